package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/fyrsmithlabs/sessiond/internal/config"
	"github.com/fyrsmithlabs/sessiond/internal/gate"
	sessdhttp "github.com/fyrsmithlabs/sessiond/internal/http"
	"github.com/fyrsmithlabs/sessiond/internal/logging"
	"github.com/fyrsmithlabs/sessiond/internal/state"
)

func init() {
	rootCmd.AddCommand(serveCmd)
}

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the local decision API",
	Long: `Run the optional local HTTP service exposing session status, the tool
gate, and Prometheus metrics. Hooks work without it; the service exists
for statuslines, editors and dashboards.

Examples:
  sessd serve
  sessd serve --project /path/to/repo`,
	RunE: runServe,
}

func runServe(cmd *cobra.Command, args []string) error {
	root := projectRoot("")
	cfg, cfgErr := config.Load(root)

	logger, err := logging.NewServerLogger(cfg.Logging)
	if err != nil {
		return err
	}
	defer logger.Sync() //nolint:errcheck
	if cfgErr != nil {
		logger.Warn("running with degraded configuration", zap.Error(cfgErr))
	}

	store := state.NewStore(root)
	g := gate.New(cfg, store, root, logger)
	srv, err := sessdhttp.NewServer(cfg, store, g, root, logger)
	if err != nil {
		return err
	}

	errCh := make(chan error, 1)
	go func() {
		if err := srv.Start(); err != nil && err != http.ErrServerClosed {
			errCh <- err
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt, syscall.SIGTERM)

	select {
	case err := <-errCh:
		return err
	case sig := <-stop:
		logger.Info("shutting down", zap.String("signal", sig.String()))
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	return srv.Shutdown(ctx)
}
