// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package main is the entry point for the met-search CLI: a search front end
// for the museum collection API with a terminal surface (search) and a
// browser surface (serve).
package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"syscall"

	"github.com/charmbracelet/fang"
	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/pdiddy/met-search/pkg/types"
)

// version is set at build time via ldflags.
var version = "dev"

// rootCmd is the base command for the met-search CLI.
var rootCmd = &cobra.Command{
	Use:   "met-search",
	Short: "Search the Metropolitan Museum of Art collection",
	Long: `met-search looks up artworks in the Met's public collection API.

A free-text query is resolved to the list of matching object IDs, and
results are shown in pages of image-bearing objects. Use "search" for a
single page in the terminal or "serve" for the browser interface.`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		// A missing .env is fine.
		_ = godotenv.Load()

		level, _ := cmd.Flags().GetString("log-level")
		return setupLogging(level)
	},
}

func init() {
	cobra.OnInitialize(initConfig)

	rootCmd.PersistentFlags().String("config", "", "config file (default: ./met-search.yaml or ~/.config/met-search/met-search.yaml)")
	rootCmd.PersistentFlags().String("log-level", "info", "log level: debug, info, warn, error")
	rootCmd.PersistentFlags().String("base-url", "", "collection API base URL")
	_ = viper.BindPFlag("collection.base_url", rootCmd.PersistentFlags().Lookup("base-url"))
}

func initConfig() {
	cfgFile, _ := rootCmd.PersistentFlags().GetString("config")
	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	} else {
		viper.SetConfigName("met-search")
		viper.SetConfigType("yaml")
		viper.AddConfigPath(".")

		home, err := os.UserHomeDir()
		if err == nil {
			viper.AddConfigPath(filepath.Join(home, ".config", "met-search"))
		}
	}

	setConfigDefaults(viper.GetViper())

	viper.SetEnvPrefix("MET_SEARCH")
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	viper.AutomaticEnv()

	if err := viper.ReadInConfig(); err == nil {
		fmt.Fprintln(os.Stderr, "Using config file:", viper.ConfigFileUsed())
	}
}

// setConfigDefaults registers every key so that environment variables are
// picked up by Unmarshal even when no config file sets them.
func setConfigDefaults(v *viper.Viper) {
	d := types.DefaultAppConfig()
	v.SetDefault("collection.timeout", d.Collection.Timeout)
	v.SetDefault("collection.user_agent", d.Collection.UserAgent)
	v.SetDefault("collection.base_url", d.Collection.BaseURL)
	v.SetDefault("collection.page_size", d.Collection.PageSize)
	v.SetDefault("collection.batch_multiplier", d.Collection.BatchMultiplier)
	v.SetDefault("server.addr", d.Server.Addr)
	v.SetDefault("server.image_hosts", d.Server.ImageHosts)
	v.SetDefault("server.session_ttl", d.Server.SessionTTL)
}

// loadConfig decodes the merged file, environment and flag settings.
func loadConfig(v *viper.Viper) (types.AppConfig, error) {
	var cfg types.AppConfig
	if err := v.Unmarshal(&cfg); err != nil {
		return cfg, fmt.Errorf("decoding config: %w", err)
	}
	cfg.Normalize()
	return cfg, nil
}

func setupLogging(level string) error {
	var lvl slog.Level
	if err := lvl.UnmarshalText([]byte(level)); err != nil {
		return fmt.Errorf("invalid log level %q: %w", level, err)
	}
	slog.SetDefault(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: lvl})))
	return nil
}

func main() {
	if err := fang.Execute(
		context.Background(),
		rootCmd,
		fang.WithVersion(version),
		fang.WithNotifySignal(os.Interrupt, syscall.SIGTERM),
	); err != nil {
		os.Exit(1)
	}
}
