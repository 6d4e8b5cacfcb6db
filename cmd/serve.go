package cmd

import (
	"bookstore/catalog"
	"bookstore/service"
	"context"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/spf13/cobra"
)

const SHUTDOWN_TIMEOUT = 10 * time.Second

func newServeCmd() *cobra.Command {
	serveCmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the catalog over HTTP",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return withCatalog(cmd, func(ctx context.Context, c *catalog.Catalog) error {
				gin.SetMode(gin.ReleaseMode)
				server := &http.Server{
					Addr:    cfg.HTTP.Addr,
					Handler: service.SetupRoutes(service.NewHandlers(c, slog.Default())),
				}

				errs := make(chan error, 1)
				go func() {
					slog.Info("listening", "addr", cfg.HTTP.Addr, "backend", cfg.Backend)
					errs <- server.ListenAndServe()
				}()

				select {
				case err := <-errs:
					if errors.Is(err, http.ErrServerClosed) {
						return nil
					}
					return err
				case <-ctx.Done():
				}

				slog.Info("shutting down")
				shutdownCtx, cancel := context.WithTimeout(context.Background(), SHUTDOWN_TIMEOUT)
				defer cancel()
				return server.Shutdown(shutdownCtx)
			})
		},
	}
	serveCmd.Flags().String("http-addr", ":8080", "listen address")
	return serveCmd
}
