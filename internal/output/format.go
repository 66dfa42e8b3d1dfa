// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package output renders a results page for the terminal: a fixed-width
// table for people and JSON or YAML for scripts.
package output

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"go.yaml.in/yaml/v3"

	"github.com/pdiddy/met-search/pkg/types"
)

// FormatTable writes page as a human-readable table to w.
func FormatTable(page types.Page, w io.Writer) {
	if page.TotalMatches == 0 {
		fmt.Fprintln(w, "No results found.")
		return
	}
	if len(page.Records) == 0 {
		fmt.Fprintf(w, "No objects with images on page %d.\n", page.Number)
		return
	}

	fmt.Fprintf(w, "%-10s  %-50s  %-28s  %s\n", "ObjectID", "Title", "Artist", "Date")
	fmt.Fprintln(w, strings.Repeat("-", 110))

	for _, r := range page.Records {
		fmt.Fprintf(w, "%-10d  %-50s  %-28s  %s\n",
			r.ObjectID, truncate(r.Title, 50), truncate(r.Artist(), 28), r.ObjectDate)
	}

	fmt.Fprintf(w, "\nPage %d of %d (%d matches)\n", page.Number, page.EstimatedPages, page.TotalMatches)
}

// FormatJSON writes page as indented JSON to w.
func FormatJSON(page types.Page, w io.Writer) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(page)
}

// FormatYAML writes page as YAML to w.
func FormatYAML(page types.Page, w io.Writer) error {
	enc := yaml.NewEncoder(w)
	enc.SetIndent(2)
	if err := enc.Encode(page); err != nil {
		return err
	}
	return enc.Close()
}

func truncate(s string, max int) string {
	r := []rune(s)
	if len(r) <= max {
		return s
	}
	return string(r[:max-3]) + "..."
}
