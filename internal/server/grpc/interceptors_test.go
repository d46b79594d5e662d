package grpcserver

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
	"google.golang.org/grpc/status"
)

const (
	checkMethod = "/grpc.health.v1.Health/Check"
	watchMethod = "/grpc.health.v1.Health/Watch"
)

func observedHealth(t *testing.T) (healthpb.HealthClient, *observer.ObservedLogs) {
	t.Helper()
	core, logs := observer.New(zapcore.InfoLevel)
	h := NewHealth(&flakyStore{}, zap.New(core))
	h.Probe(context.Background())
	return dialHealth(t, h, zap.New(core)), logs
}

func TestLoggingUnary_LogsCheckCalls(t *testing.T) {
	client, logs := observedHealth(t)
	ctx := context.Background()

	_, err := client.Check(ctx, &healthpb.HealthCheckRequest{Service: ServiceName})
	require.NoError(t, err)

	_, err = client.Check(ctx, &healthpb.HealthCheckRequest{Service: "no.such.Service"})
	require.Equal(t, codes.NotFound, status.Code(err))

	entries := logs.FilterMessage("grpc").All()
	require.Len(t, entries, 2)

	first := entries[0].ContextMap()
	require.Equal(t, checkMethod, first["method"])
	require.Equal(t, codes.OK.String(), first["code"])
	require.NotEmpty(t, first["peer"])
	require.Contains(t, first, "dur")

	require.Equal(t, codes.NotFound.String(), entries[1].ContextMap()["code"])
}

func TestLoggingStream_LogsWatchWhenStreamEnds(t *testing.T) {
	client, logs := observedHealth(t)

	ctx, cancel := context.WithCancel(context.Background())
	stream, err := client.Watch(ctx, &healthpb.HealthCheckRequest{Service: ServiceName})
	require.NoError(t, err)

	resp, err := stream.Recv()
	require.NoError(t, err)
	require.Equal(t, healthpb.HealthCheckResponse_SERVING, resp.GetStatus())

	// nothing is logged while the stream is open
	require.Zero(t, logs.FilterMessage("grpc stream").Len())

	cancel()
	require.Eventually(t, func() bool {
		return logs.FilterMessage("grpc stream").Len() == 1
	}, time.Second, 5*time.Millisecond)

	fields := logs.FilterMessage("grpc stream").All()[0].ContextMap()
	require.Equal(t, watchMethod, fields["method"])
	require.NotEqual(t, codes.OK.String(), fields["code"])
	require.NotEmpty(t, fields["peer"])
}

func TestRecoverUnary_ChainedBeforeLogging(t *testing.T) {
	core, logs := observer.New(zapcore.InfoLevel)
	log := zap.New(core)

	// same order as New: recovery outermost, so the logger sees the panic unwind
	recoverIC, logIC := RecoverUnary(log), LoggingUnary(log)
	info := &grpc.UnaryServerInfo{FullMethod: checkMethod}
	panicking := func(context.Context, any) (any, error) { panic("store exploded") }

	var (
		resp any
		err  error
	)
	require.NotPanics(t, func() {
		resp, err = recoverIC(context.Background(), &healthpb.HealthCheckRequest{}, info,
			func(ctx context.Context, req any) (any, error) { return logIC(ctx, req, info, panicking) })
	})
	require.Nil(t, resp)
	require.Equal(t, codes.Internal, status.Code(err))

	panics := logs.FilterMessage("panic").All()
	require.Len(t, panics, 1)
	require.Equal(t, zapcore.ErrorLevel, panics[0].Level)
	require.Equal(t, checkMethod, panics[0].ContextMap()["method"])
	require.Zero(t, logs.FilterMessage("grpc").Len())
}

func TestRecoverUnary_PassesThroughResult(t *testing.T) {
	core, logs := observer.New(zapcore.InfoLevel)
	ic := RecoverUnary(zap.New(core))
	info := &grpc.UnaryServerInfo{FullMethod: checkMethod}

	want := &healthpb.HealthCheckResponse{}
	resp, err := ic(context.Background(), nil, info, func(context.Context, any) (any, error) { return want, nil })
	require.NoError(t, err)
	require.Same(t, want, resp)
	require.Zero(t, logs.Len())
}
