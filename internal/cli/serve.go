package cli

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/spf13/cobra"

	"github.com/edalab/lamina/internal/api"
	"github.com/edalab/lamina/pkg/stackup"
)

// serveCommand creates the serve command running the HTTP API.
func (c *CLI) serveCommand() *cobra.Command {
	var (
		addr        string
		stackupFile string
		noCache     bool
	)

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the stackup and cutout API over HTTP",
		Long: `Serve the stackup and cutout API over HTTP.

The server exposes the stored cells, the cutout engine, and one stackup
(loaded from --stackup or empty) under /api/v1. It shuts down cleanly on
SIGINT and SIGTERM.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			store, err := c.newStore(cmd)
			if err != nil {
				return fmt.Errorf("open cell store: %w", err)
			}
			defer store.Close()

			var stk *stackup.Stackup
			if stackupFile != "" {
				stk, err = c.importStackup(stackupFile)
				if err != nil {
					return err
				}
			} else {
				stk = c.newStackup(stackup.Laminate)
			}

			engine, ch := c.newEngine(store, noCache)
			defer ch.Close()

			if addr == "" {
				addr = c.Config.ListenAddr
			}
			srv := &http.Server{
				Addr:              addr,
				Handler:           api.NewServer(store, stk, engine, c.Logger).Handler(),
				ReadHeaderTimeout: 10 * time.Second,
			}

			errCh := make(chan error, 1)
			go func() {
				c.Logger.Info("listening", "addr", addr)
				errCh <- srv.ListenAndServe()
			}()

			select {
			case err := <-errCh:
				if errors.Is(err, http.ErrServerClosed) {
					return nil
				}
				return err
			case <-cmd.Context().Done():
				shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
				defer cancel()
				return srv.Shutdown(shutdownCtx)
			}
		},
	}

	cmd.Flags().StringVarP(&addr, "addr", "a", "", "listen address (default from config, :8080)")
	cmd.Flags().StringVar(&stackupFile, "stackup", "", "stackup file to serve")
	cmd.Flags().BoolVar(&noCache, "no-cache", false, "disable extent caching")

	return cmd
}
