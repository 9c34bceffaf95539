package main

import (
	"context"
	"log/slog"
	"net"
	"time"

	"github.com/md-rashed-zaman/freebusy/libs/config"
	"github.com/md-rashed-zaman/freebusy/libs/grpcx"
	"github.com/md-rashed-zaman/freebusy/libs/runtime"
	"google.golang.org/grpc"
	"google.golang.org/grpc/health"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
)

const healthServiceName = "freebusy.availability"

// healthWatcher mirrors /readyz onto the gRPC health service.
type healthWatcher struct {
	health *health.Server
	checks []runtime.ReadyCheck
	every  time.Duration
	logger *slog.Logger
}

func (p *healthWatcher) update(ctx context.Context) {
	status := healthpb.HealthCheckResponse_SERVING
	if failures := runtime.RunChecks(ctx, p.checks); len(failures) > 0 {
		status = healthpb.HealthCheckResponse_NOT_SERVING
		p.logger.Warn("readiness degraded", "failures", failures)
	}
	p.health.SetServingStatus(healthServiceName, status)
}

func (p *healthWatcher) run(ctx context.Context) {
	p.update(ctx)
	ticker := time.NewTicker(p.every)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			p.update(ctx)
		}
	}
}

func newGrpcServer(logger *slog.Logger) (*grpc.Server, *health.Server) {
	srv := grpcx.NewServer(logger)
	hs := health.NewServer()
	healthpb.RegisterHealthServer(srv, hs)
	return srv, hs
}

// serveGrpc serves on lis until ctx is done.
func serveGrpc(ctx context.Context, logger *slog.Logger, srv *grpc.Server, hs *health.Server, lis net.Listener) {
	go func() {
		logger.Info("grpc server starting", "addr", lis.Addr().String())
		if err := srv.Serve(lis); err != nil {
			logger.Error("grpc server error", "err", err)
		}
	}()

	go func() {
		<-ctx.Done()
		hs.Shutdown()
		srv.GracefulStop()
	}()
}

func startGrpcServer(ctx context.Context, logger *slog.Logger, checks ...runtime.ReadyCheck) error {
	port, err := config.Port("GRPC_PORT", "9094")
	if err != nil {
		return err
	}
	lis, err := net.Listen("tcp", ":"+port)
	if err != nil {
		return err
	}

	srv, hs := newGrpcServer(logger)
	watcher := &healthWatcher{health: hs, checks: checks, every: 10 * time.Second, logger: logger}
	go watcher.run(ctx)
	serveGrpc(ctx, logger, srv, hs, lis)
	return nil
}
