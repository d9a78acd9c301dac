package app

import (
	"context"
	"log/slog"
	"time"

	"google.golang.org/grpc/health"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"

	"github.com/Novip1906/tasks-api/pkg/logging"
)

// HealthService is the service name reported next to the overall ""
// status on the gRPC health server.
const HealthService = "tasks"

type pinger interface {
	Ping(ctx context.Context) error
}

// watchHealth pings storage every interval and mirrors the result on hs
// until ctx is done.
func watchHealth(ctx context.Context, log *slog.Logger, db pinger, hs *health.Server, interval time.Duration) {
	if interval <= 0 {
		<-ctx.Done()
		return
	}

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	last := healthpb.HealthCheckResponse_SERVING
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}

		pingCtx, cancel := context.WithTimeout(ctx, interval)
		err := db.Ping(pingCtx)
		cancel()

		status := healthpb.HealthCheckResponse_SERVING
		if err != nil {
			if ctx.Err() != nil {
				return
			}
			status = healthpb.HealthCheckResponse_NOT_SERVING
		}

		if status != last {
			if err != nil {
				log.Error("storage unhealthy", logging.Err(err))
			} else {
				log.Info("storage healthy again")
			}
			last = status
		}
		setServingStatus(hs, status)
	}
}

func setServingStatus(hs *health.Server, status healthpb.HealthCheckResponse_ServingStatus) {
	hs.SetServingStatus("", status)
	hs.SetServingStatus(HealthService, status)
}
