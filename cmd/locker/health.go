package main

import (
	"context"
	"log"
	"net"
	"time"

	"google.golang.org/grpc"
	"google.golang.org/grpc/health"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
)

// healthService is the service name reported alongside the overall ("")
// status.
const healthService = "locker"

// healthServer serves the standard gRPC health protocol. The locker is
// SERVING while the scheduler keeps ticking.
type healthServer struct {
	grpc   *grpc.Server
	health *health.Server
	lis    net.Listener
	logger *log.Logger
}

func newHealthServer(addr string, logger *log.Logger) (*healthServer, error) {
	lis, err := net.Listen("tcp", addr)
	if err != nil {
		return nil, err
	}
	h := &healthServer{
		grpc:   grpc.NewServer(),
		health: health.NewServer(),
		lis:    lis,
		logger: logger,
	}
	healthpb.RegisterHealthServer(h.grpc, h.health)
	h.set(healthpb.HealthCheckResponse_NOT_SERVING)
	return h, nil
}

func (h *healthServer) Addr() net.Addr { return h.lis.Addr() }

func (h *healthServer) Serve() error {
	h.logger.Printf("health listening on %s", h.lis.Addr())
	return h.grpc.Serve(h.lis)
}

// Watch polls ticks every interval and flips the status when the count
// stops advancing or resumes.
func (h *healthServer) Watch(ctx context.Context, ticks func() uint64, interval time.Duration) {
	t := time.NewTicker(interval)
	defer t.Stop()

	var last uint64
	serving := false
	for {
		select {
		case <-ctx.Done():
			return
		case <-t.C:
		}
		now := ticks()
		alive := now != last
		last = now
		if alive == serving {
			continue
		}
		serving = alive
		if alive {
			h.set(healthpb.HealthCheckResponse_SERVING)
		} else {
			h.logger.Printf("scheduler stalled at tick %d", now)
			h.set(healthpb.HealthCheckResponse_NOT_SERVING)
		}
	}
}

func (h *healthServer) set(st healthpb.HealthCheckResponse_ServingStatus) {
	h.health.SetServingStatus("", st)
	h.health.SetServingStatus(healthService, st)
}

func (h *healthServer) Stop() {
	h.health.Shutdown()
	h.grpc.GracefulStop()
}
