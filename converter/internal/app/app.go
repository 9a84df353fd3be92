package capp

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"time"

	"google.golang.org/grpc"
	"google.golang.org/grpc/health"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"

	"github.com/you-humble/printq/converter/internal/service"
	"github.com/you-humble/printq/core/grpc/converterpb"
	"github.com/you-humble/printq/core/metrics"
)

type app struct {
	di      *dependencyInjector
	srv     *grpc.Server
	health  *health.Server
	metrics *http.Server
}

func New(configPath string) *app {
	di := newDI(configPath)
	l := di.Logger()
	cfg := di.Config()

	grpcServer := grpc.NewServer(
		grpc.MaxRecvMsgSize(converterpb.MaxMessageBytes),
		grpc.MaxSendMsgSize(converterpb.MaxMessageBytes),
		grpc.ChainUnaryInterceptor(
			service.RecoveryUnaryInterceptor(l),
			service.UnaryMetricsInterceptor(di.ServerMetrics()),
			service.UnaryLoggingInterceptor(l),
		),
	)
	converterpb.RegisterConverterServiceServer(grpcServer, di.Service())

	hs := health.NewServer()
	healthpb.RegisterHealthServer(grpcServer, hs)

	a := &app{di: di, srv: grpcServer, health: hs}
	if cfg.MetricsAddr != "" {
		mux := http.NewServeMux()
		mux.Handle("/metrics", metrics.Handler(di.Registry()))
		a.metrics = &http.Server{
			Addr:              cfg.MetricsAddr,
			Handler:           mux,
			ReadHeaderTimeout: 5 * time.Second,
		}
	}

	return a
}

func (a *app) Run(ctx context.Context) error {
	l := a.di.Logger()
	cfg := a.di.Config()
	defer a.di.Close()

	a.setServingStatus()
	a.di.Workspace().StartSweeper(ctx, cfg.SweepInterval, cfg.SweepMaxAge)

	errCh := make(chan error, 2)

	go func() {
		if err := a.startServer(cfg.GRPCAddr); err != nil {
			errCh <- err
		}
	}()

	if a.metrics != nil {
		go func() {
			l.Info("metrics listening", slog.String("addr", a.metrics.Addr))
			if err := a.metrics.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				errCh <- fmt.Errorf("metrics server: %w", err)
			}
		}()
	}

	select {
	case <-ctx.Done():
		l.Info("shutdown signal received, starting graceful shutdown")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
		defer cancel()

		if err := a.shutdown(shutdownCtx); err != nil {
			l.Error("graceful shutdown failed", slog.String("error", err.Error()))
		} else {
			l.Info("graceful shutdown completed")
		}

	case err := <-errCh:
		l.Error("server exited with error", slog.String("error", err.Error()))
		a.srv.Stop()
		return err
	}

	return nil
}

// setServingStatus reports NOT_SERVING while the converter binary is missing
// so orchestrators can route around this instance.
func (a *app) setServingStatus() {
	l := a.di.Logger()

	st := healthpb.HealthCheckResponse_SERVING
	if path, err := a.di.Soffice().LookPath(); err != nil {
		st = healthpb.HealthCheckResponse_NOT_SERVING
		l.Warn("converter binary unavailable", slog.String("error", err.Error()))
	} else {
		l.Info("converter binary found", slog.String("path", path))
	}

	a.health.SetServingStatus("", st)
	a.health.SetServingStatus(converterpb.ServiceName, st)
}

func (a *app) startServer(addr string) error {
	lis, err := net.Listen("tcp", addr)
	if err != nil {
		return fmt.Errorf("failed to listen on %s: %w", addr, err)
	}

	a.di.Logger().Info("converter gRPC service listening", slog.String("addr", addr))
	if err := a.srv.Serve(lis); err != nil {
		return fmt.Errorf("failed to serve: %w", err)
	}

	return nil
}

func (a *app) shutdown(ctx context.Context) error {
	l := a.di.Logger()
	a.health.Shutdown()

	if a.metrics != nil {
		if err := a.metrics.Shutdown(ctx); err != nil {
			l.Warn("metrics server shutdown", slog.String("error", err.Error()))
		}
	}

	done := make(chan struct{})
	go func() {
		l.Info("stopping gRPC server gracefully...")
		a.srv.GracefulStop()
		close(done)
	}()

	select {
	case <-ctx.Done():
		l.Warn("graceful stop timed out, forcing stop")
		a.srv.Stop()
		return fmt.Errorf("shutdown timeout exceeded: %w", ctx.Err())
	case <-done:
		l.Info("gRPC server stopped")
		return nil
	}
}
