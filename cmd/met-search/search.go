package main

import (
	"context"
	"errors"
	"fmt"
	"io"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/pdiddy/met-search/internal/collection"
	"github.com/pdiddy/met-search/internal/output"
	"github.com/pdiddy/met-search/internal/pager"
	"github.com/pdiddy/met-search/internal/session"
	"github.com/pdiddy/met-search/pkg/types"
)

var searchCmd = &cobra.Command{
	Use:   "search [query]",
	Short: "Search the collection and print one page of results",
	Long: `Search resolves a free-text query against the collection API and prints
one page of objects that have an image. Objects without an image are
skipped, so a page is filled from further matches where needed.`,
	Example: `  met-search search sunflowers
  met-search search --query "arms and armor" --page 2 --json`,
	RunE: runSearch,
}

func init() {
	searchCmd.Flags().StringP("query", "q", "", "free-text query (or pass it as an argument)")
	searchCmd.Flags().Int("page", 1, "page number to show")
	searchCmd.Flags().Int("page-size", 0, "objects per page (default 9)")
	searchCmd.Flags().Bool("json", false, "output the page as JSON")
	searchCmd.Flags().Bool("yaml", false, "output the page as YAML")
	searchCmd.MarkFlagsMutuallyExclusive("json", "yaml")
	_ = viper.BindPFlag("collection.page_size", searchCmd.Flags().Lookup("page-size"))

	rootCmd.AddCommand(searchCmd)
}

func runSearch(cmd *cobra.Command, args []string) error {
	query, _ := cmd.Flags().GetString("query")
	if query == "" && len(args) > 0 {
		query = args[0]
	}
	page, _ := cmd.Flags().GetInt("page")
	asJSON, _ := cmd.Flags().GetBool("json")
	asYAML, _ := cmd.Flags().GetBool("yaml")

	cfg, err := loadConfig(viper.GetViper())
	if err != nil {
		return err
	}

	client := collection.NewClient(cfg.Collection)
	filler := pager.New(client, cfg.Collection)

	result, err := searchPage(cmd.Context(), cmd.ErrOrStderr(), client, filler, query, page)
	if err != nil {
		return err
	}

	w := cmd.OutOrStdout()
	switch {
	case asJSON:
		return output.FormatJSON(result, w)
	case asYAML:
		return output.FormatYAML(result, w)
	default:
		output.FormatTable(result, w)
		return nil
	}
}

// searchPage resolves query and fills the requested page. Failure notices
// for the user go to errOut.
func searchPage(ctx context.Context, errOut io.Writer, searcher collection.Searcher, filler *pager.Filler, query string, page int) (types.Page, error) {
	if page < 1 {
		return types.Page{}, fmt.Errorf("%w: %d", pager.ErrInvalidPage, page)
	}

	ids, err := searcher.Search(ctx, query)
	if err != nil {
		return types.Page{}, userError(errOut, err)
	}

	pageSize := filler.PageSize
	result := types.Page{
		Number:         page,
		PageSize:       pageSize,
		EstimatedPages: ids.EstimatedPages(pageSize),
		TotalMatches:   ids.Len(),
	}
	if ids.Len() == 0 {
		return result, nil
	}
	if page > result.EstimatedPages {
		return types.Page{}, fmt.Errorf("page %d out of range: about %d page(s) for %d matches",
			page, result.EstimatedPages, ids.Len())
	}

	result.Records, err = filler.Fill(ctx, ids, page)
	if err != nil {
		return types.Page{}, userError(errOut, err)
	}
	return result, nil
}

// userError prints the generic retry message and returns err for the exit
// status. An empty query is reported as is.
func userError(w io.Writer, err error) error {
	if errors.Is(err, collection.ErrEmptyQuery) {
		return fmt.Errorf("provide a search query")
	}
	fmt.Fprintln(w, session.FailureMessage)
	return err
}
