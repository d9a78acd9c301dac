package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"golang.org/x/sync/errgroup"
	"google.golang.org/grpc"
	"google.golang.org/grpc/health"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"

	"github.com/Novip1906/tasks-api/internal/config"
	"github.com/Novip1906/tasks-api/internal/httpapi"
	"github.com/Novip1906/tasks-api/internal/interceptors"
	"github.com/Novip1906/tasks-api/internal/metrics"
	"github.com/Novip1906/tasks-api/internal/middleware"
	"github.com/Novip1906/tasks-api/internal/service"
	"github.com/Novip1906/tasks-api/internal/storage"
	"github.com/Novip1906/tasks-api/pkg/logging"
)

type Server struct {
	cfg          *config.Config
	log          *slog.Logger
	db           storage.TasksStorage
	closeDB      func() error
	limiter      *middleware.RateLimiter
	tasksService *service.TasksService
	hs           *http.Server
	gs           *grpc.Server
	health       *health.Server
}

func NewServer(ctx context.Context, cfg *config.Config, log *slog.Logger) (*Server, error) {
	db, closeDB, err := openStorage(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("cannot open storage: %w", err)
	}
	log.Info("storage opened", slog.String("driver", cfg.Storage.Driver))

	reg := prometheus.NewRegistry()
	m := metrics.RegisterMetrics(reg)

	tasksService := service.NewTasksService(db, m)

	middlewares := []func(http.Handler) http.Handler{
		middleware.RequestID,
		middleware.LoggingMiddleware(log),
		middleware.Metrics(m),
	}

	var limiter *middleware.RateLimiter
	if cfg.RateLimiter.Enabled {
		limiter, err = middleware.NewRateLimiter(ctx, log, &cfg.Redis, &cfg.RateLimiter)
		if err != nil {
			closeDB()
			return nil, err
		}
		middlewares = append(middlewares, limiter.Middleware(log))
	}

	api := httpapi.NewServer(tasksService, httpapi.Options{
		RequestTimeout: cfg.HTTP.RequestTimeout,
		MaxBodyBytes:   cfg.HTTP.MaxBodyBytes,
		Middlewares:    middlewares,
		Metrics:        promhttp.HandlerFor(reg, promhttp.HandlerOpts{}),
	})

	hs := &http.Server{
		Handler:           api,
		ReadHeaderTimeout: cfg.HTTP.ReadHeaderTimeout,
	}

	healthServer := health.NewServer()
	setServingStatus(healthServer, healthpb.HealthCheckResponse_SERVING)

	gs := grpc.NewServer(grpc.ChainUnaryInterceptor(interceptors.LoggingInterceptor(log)))
	healthpb.RegisterHealthServer(gs, healthServer)

	return &Server{
		cfg:          cfg,
		log:          log,
		db:           db,
		closeDB:      closeDB,
		limiter:      limiter,
		tasksService: tasksService,
		hs:           hs,
		gs:           gs,
		health:       healthServer,
	}, nil
}

// Handler returns the HTTP API handler.
func (s *Server) Handler() http.Handler {
	return s.hs.Handler
}

// Run listens on the configured addresses and serves until ctx is done.
func (s *Server) Run(ctx context.Context) error {
	httpLn, err := net.Listen("tcp", s.cfg.HTTPAddress)
	if err != nil {
		return err
	}
	grpcLn, err := net.Listen("tcp", s.cfg.GRPCAddress)
	if err != nil {
		httpLn.Close()
		return err
	}
	return s.Serve(ctx, httpLn, grpcLn)
}

// Serve serves HTTP on httpLn and gRPC health on grpcLn. When ctx is
// done, or either server fails, the health status flips to NOT_SERVING
// and both servers are shut down within the configured timeout.
func (s *Server) Serve(ctx context.Context, httpLn, grpcLn net.Listener) error {
	g, ctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		s.log.Info("starting http server", slog.String("address", httpLn.Addr().String()))
		if err := s.hs.Serve(httpLn); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("http server: %w", err)
		}
		return nil
	})

	g.Go(func() error {
		s.log.Info("starting grpc server", slog.String("address", grpcLn.Addr().String()))
		if err := s.gs.Serve(grpcLn); err != nil {
			return fmt.Errorf("grpc server: %w", err)
		}
		return nil
	})

	g.Go(func() error {
		watchHealth(ctx, s.log, s.tasksService, s.health, s.cfg.HealthInterval)
		return nil
	})

	g.Go(func() error {
		<-ctx.Done()
		return s.shutdown()
	})

	return g.Wait()
}

func (s *Server) shutdown() error {
	s.log.Info("shutting down")
	s.health.Shutdown()

	ctx, cancel := context.WithTimeout(context.Background(), s.cfg.HTTP.ShutdownTimeout)
	defer cancel()

	err := s.hs.Shutdown(ctx)
	if err != nil {
		s.log.Error("http shutdown error", logging.Err(err))
	}

	stopped := make(chan struct{})
	go func() {
		s.gs.GracefulStop()
		close(stopped)
	}()
	select {
	case <-stopped:
	case <-ctx.Done():
		s.gs.Stop()
	}

	return err
}

// Close releases storage and the redis connection.
func (s *Server) Close() error {
	var errs []error
	if s.limiter != nil {
		errs = append(errs, s.limiter.Close())
	}
	errs = append(errs, s.closeDB())
	return errors.Join(errs...)
}
