package main

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/gilchrisn/graph-insight/pkg/api"
	"github.com/gilchrisn/graph-insight/pkg/metrics"
	"github.com/gilchrisn/graph-insight/pkg/service"
)

const shutdownTimeout = 30 * time.Second

func newServeCommand(root *rootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Load the graph once and serve queries and analysis jobs over HTTP",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := root.load()
			if err != nil {
				return err
			}
			ctx := cmd.Context()

			log.Info().Msg("Starting graph-insight server")
			g, rep, err := loadGraph(ctx, cfg)
			if err != nil {
				return err
			}

			reg := metrics.DefaultRegistry()
			graphService := service.NewGraphService(g, rep, cfg, reg)
			jobService := service.NewJobService(graphService, cfg.Jobs, reg)
			defer jobService.Close()

			handler := api.NewRouter(api.NewHandlers(graphService, jobService), reg, cfg.Server.AllowedOrigins)
			server := &http.Server{
				Addr:         cfg.Server.Address,
				Handler:      handler,
				ReadTimeout:  cfg.Server.ReadTimeout,
				WriteTimeout: cfg.Server.WriteTimeout,
			}

			errCh := make(chan error, 1)
			go func() {
				log.Info().
					Str("address", cfg.Server.Address).
					Int("max_workers", cfg.Jobs.MaxWorkers).
					Msg("HTTP server starting")
				if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
					errCh <- err
				}
				close(errCh)
			}()

			select {
			case err := <-errCh:
				return err
			case <-ctx.Done():
			}

			log.Info().Msg("Shutdown signal received")
			shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
			defer cancel()
			if err := server.Shutdown(shutdownCtx); err != nil {
				return err
			}
			log.Info().Msg("Server shutdown complete")
			return nil
		},
	}
	return cmd
}
