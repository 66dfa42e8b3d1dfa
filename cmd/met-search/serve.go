package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/pdiddy/met-search/internal/collection"
	"github.com/pdiddy/met-search/internal/pager"
	"github.com/pdiddy/met-search/internal/session"
	"github.com/pdiddy/met-search/internal/web"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the browser search interface",
	Long: `Serve starts the web interface: a search form, a grid of result cards
and Previous/Next page controls. Each browser gets its own session; paging
reuses the session's search results and fetches object details again.`,
	Example: `  # Start server on default address :8080
  met-search serve

  # Start server on a custom address
  met-search serve --addr 127.0.0.1:3000`,
	RunE: runServe,
}

func init() {
	serveCmd.Flags().String("addr", "", "listen address (default :8080)")
	_ = viper.BindPFlag("server.addr", serveCmd.Flags().Lookup("addr"))

	rootCmd.AddCommand(serveCmd)
}

func runServe(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig(viper.GetViper())
	if err != nil {
		return err
	}
	log := slog.Default()

	client := collection.NewClient(cfg.Collection)
	filler := pager.New(client, cfg.Collection)
	store := session.NewStore(func() *session.Orchestrator {
		return session.NewOrchestrator(client, filler, cfg.Collection.PageSize, log)
	}, cfg.Server.SessionTTL)
	images := web.NewImageProxy(&http.Client{Timeout: cfg.Collection.Timeout}, cfg.Collection.UserAgent, cfg.Server.ImageHosts, log)

	srv, err := web.NewServer(store, images, log)
	if err != nil {
		return err
	}
	server := web.NewHTTPServer(cfg.Server, srv.Routes())

	serverErr := make(chan error, 1)
	go func() {
		log.Info("met-search interface available", "addr", cfg.Server.Addr, "api", cfg.Collection.BaseURL)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serverErr <- err
		}
	}()

	select {
	case <-cmd.Context().Done():
		log.Info("Shutting down server...")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := server.Shutdown(shutdownCtx); err != nil {
			log.Error("Server shutdown failed", "err", err)
			return err
		}
		log.Info("Server stopped")
		return nil
	case err := <-serverErr:
		return err
	}
}
