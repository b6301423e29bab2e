package main

import (
	"context"
	"io"
	"log"
	"sync/atomic"
	"testing"
	"time"

	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
)

func TestHealthServer_TracksTicks(t *testing.T) {
	h, err := newHealthServer("127.0.0.1:0", log.New(io.Discard, "", 0))
	if err != nil {
		t.Fatalf("newHealthServer: %v", err)
	}
	go func() { _ = h.Serve() }()
	t.Cleanup(h.Stop)

	conn, err := grpc.NewClient(h.Addr().String(), grpc.WithTransportCredentials(insecure.NewCredentials()))
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	t.Cleanup(func() { conn.Close() })
	client := healthpb.NewHealthClient(conn)

	check := func() healthpb.HealthCheckResponse_ServingStatus {
		ctx, cancel := context.WithTimeout(context.Background(), time.Second)
		defer cancel()
		resp, err := client.Check(ctx, &healthpb.HealthCheckRequest{Service: healthService})
		if err != nil {
			t.Fatalf("check: %v", err)
		}
		return resp.GetStatus()
	}

	if got := check(); got != healthpb.HealthCheckResponse_NOT_SERVING {
		t.Fatalf("expected NOT_SERVING before watch, got %s", got)
	}

	var ticks atomic.Uint64
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go h.Watch(ctx, ticks.Load, 10*time.Millisecond)

	stopTicking := make(chan struct{})
	go func() {
		for {
			select {
			case <-stopTicking:
				return
			case <-time.After(time.Millisecond):
				ticks.Add(1)
			}
		}
	}()

	waitFor(t, func() bool { return check() == healthpb.HealthCheckResponse_SERVING })

	close(stopTicking)
	waitFor(t, func() bool { return check() == healthpb.HealthCheckResponse_NOT_SERVING })
}

func waitFor(t *testing.T, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatal("condition not met before deadline")
}
