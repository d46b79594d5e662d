// Package grpcserver serves the standard gRPC health protocol for the catalog.
// The reported status follows the reachability of the book store.
package grpcserver

import (
	"context"
	"time"

	"go.uber.org/zap"
	"google.golang.org/grpc"
	"google.golang.org/grpc/health"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
)

// ServiceName is the health service name reported alongside the server-wide "" entry.
const ServiceName = "bookshelf.Catalog"

// DefaultProbeInterval is used by Run when interval is non-positive.
const DefaultProbeInterval = 10 * time.Second

const probeTimeout = 2 * time.Second

// Pinger reports whether the backing store is reachable.
type Pinger interface {
	Ping(ctx context.Context) error
}

// Health tracks store readiness and publishes it through a health.Server.
type Health struct {
	srv   *health.Server
	store Pinger
	log   *zap.Logger
}

// NewHealth starts in NOT_SERVING until the first probe succeeds.
func NewHealth(store Pinger, log *zap.Logger) *Health {
	h := &Health{srv: health.NewServer(), store: store, log: log}
	h.set(healthpb.HealthCheckResponse_NOT_SERVING)
	return h
}

// Probe pings the store once and updates the published status.
func (h *Health) Probe(ctx context.Context) healthpb.HealthCheckResponse_ServingStatus {
	ctx, cancel := context.WithTimeout(ctx, probeTimeout)
	defer cancel()

	st := healthpb.HealthCheckResponse_SERVING
	if err := h.store.Ping(ctx); err != nil {
		h.log.Warn("store probe failed", zap.Error(err))
		st = healthpb.HealthCheckResponse_NOT_SERVING
	}
	h.set(st)
	return st
}

// Run probes on every tick until ctx is done, then marks the server as shutting down.
func (h *Health) Run(ctx context.Context, interval time.Duration) {
	if interval <= 0 {
		interval = DefaultProbeInterval
	}
	t := time.NewTicker(interval)
	defer t.Stop()

	h.Probe(ctx)
	for {
		select {
		case <-ctx.Done():
			h.srv.Shutdown()
			return
		case <-t.C:
			h.Probe(ctx)
		}
	}
}

func (h *Health) set(st healthpb.HealthCheckResponse_ServingStatus) {
	h.srv.SetServingStatus("", st)
	h.srv.SetServingStatus(ServiceName, st)
}

// New builds a gRPC server exposing the health service with logging and recovery.
func New(h *Health, log *zap.Logger) *grpc.Server {
	s := grpc.NewServer(
		grpc.ChainUnaryInterceptor(RecoverUnary(log), LoggingUnary(log)),
		grpc.ChainStreamInterceptor(LoggingStream(log)),
	)
	healthpb.RegisterHealthServer(s, h.srv)
	return s
}
