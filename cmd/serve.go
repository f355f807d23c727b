package cmd

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"

	"github.com/spigell/interviewer/internal/api"
)

const shutdownTimeout = 10 * time.Second

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve the HTTP API",
	Run: func(_ *cobra.Command, _ []string) {
		runServe()
	},
}

func init() {
	rootCmd.AddCommand(serveCmd)

	serveCmd.Flags().StringP("listen", "l", "", "address to listen on (default :8080)")
	viper.BindPFlag("server.listen", serveCmd.Flags().Lookup("listen"))
}

func runServe() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	rt := setup(ctx)
	defer rt.close()

	listen := ":8080"
	if rt.config.Server != nil && rt.config.Server.Listen != "" {
		listen = rt.config.Server.Listen
	}

	var timeout time.Duration
	if rt.config.Pipeline != nil {
		timeout = rt.config.Pipeline.Timeout
	}

	server := api.New(rt.pipeline, rt.store, rt.cv, rt.logger, api.Options{Timeout: timeout})
	app := server.App()

	errCh := make(chan error, 1)
	go func() {
		rt.logger.Info("listening", zap.String("addr", listen))
		errCh <- app.Listen(listen)
	}()

	select {
	case err := <-errCh:
		if err != nil {
			rt.logger.Error("server stopped", zap.Error(err))
		}
	case <-ctx.Done():
		rt.logger.Info("shutting down")
		if err := app.ShutdownWithTimeout(shutdownTimeout); err != nil {
			rt.logger.Warn("graceful shutdown failed", zap.Error(err))
		}
	}
}
