package main

import (
	"fmt"
	"net/http"
	"os/signal"
	"syscall"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/sells-group/saferoute/internal/routing"
	"github.com/sells-group/saferoute/internal/server"
)

var (
	servePort    int
	serveDataset string
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the safety-scoring HTTP API",
	RunE: func(cmd *cobra.Command, _ []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		env, err := initEnv(ctx)
		if err != nil {
			return err
		}
		defer env.Close()

		if serveDataset != "" {
			if err := loadDataset(ctx, env, serveDataset); err != nil {
				return err
			}
		}

		router := routing.NewOSRMClient(cfg.Routing.BaseURL, cfg.Routing.RequestTimeout)
		api := server.New(env.Engine, router)

		port := servePort
		if port == 0 {
			port = cfg.Server.Port
		}

		srv := &http.Server{
			Addr:    fmt.Sprintf(":%d", port),
			Handler: api.Handler(),
		}

		// Graceful shutdown
		go func() {
			<-ctx.Done()
			zap.L().Info("shutting down server")
			srv.Shutdown(ctx) //nolint:errcheck
		}()

		zap.L().Info("starting server", zap.Int("port", port))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			return eris.Wrap(err, "server listen")
		}

		return nil
	},
}

func init() {
	serveCmd.Flags().IntVar(&servePort, "port", 0, "server port (default from config)")
	serveCmd.Flags().StringVar(&serveDataset, "dataset", "", "CSV or XLSX crime dataset to load at startup")
	rootCmd.AddCommand(serveCmd)
}
