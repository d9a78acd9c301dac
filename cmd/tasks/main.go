package main

import (
	"context"
	"log/slog"
	"os"

	"github.com/drone/signal"

	"github.com/Novip1906/tasks-api/internal/app"
	"github.com/Novip1906/tasks-api/internal/config"
	"github.com/Novip1906/tasks-api/pkg/logging"
)

func main() {
	cfg := config.MustLoadConfig()
	log := logging.SetupLogger(logging.ParseLevel(cfg.Log.Level), cfg.Log.Format)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	ctx = signal.WithContextFunc(ctx, func() {
		log.Info("received signal, terminating process")
		cancel()
	})

	srv, err := app.NewServer(ctx, cfg, log)
	if err != nil {
		log.Error("cannot start server", logging.Err(err))
		os.Exit(1)
	}
	defer srv.Close()

	log.Info("starting server",
		slog.String("http_address", cfg.HTTPAddress),
		slog.String("grpc_address", cfg.GRPCAddress),
	)
	if err := srv.Run(ctx); err != nil {
		log.Error("server run error", logging.Err(err))
		return
	}
	log.Info("server stopped")
}
