package app

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/you-humble/printq/api/internal/transport"
)

type app struct {
	di  *dependencyInjector
	srv *http.Server
}

func New(ctx context.Context, configPath string) *app {
	di := newDI(configPath)
	di.Logger()
	cfg := di.Config()

	mux := di.Router(ctx).MountRoutes(http.NewServeMux())

	return &app{
		di: di,
		srv: &http.Server{
			Addr: cfg.Addr,
			Handler: transport.WithRecover(
				transport.LogMiddleware(
					transport.MetricsMiddleware(di.ServerMetrics())(
						transport.CORS(cfg.AllowedOrigin)(mux),
					),
				),
			),
			ReadHeaderTimeout: 10 * time.Second,
		},
	}
}

func (a *app) Run(ctx context.Context) error {
	defer a.di.Close()

	if d := a.di.Dispatcher(); d != nil {
		d.Start(ctx)
	}

	errCh := make(chan error, 1)
	go func() {
		slog.Info("starting server", slog.String("addr", a.srv.Addr))
		if e := a.srv.ListenAndServe(); e != nil && !errors.Is(e, http.ErrServerClosed) {
			slog.Error("server error", slog.String("error", e.Error()))
			errCh <- e
		}
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	slog.Info("shutdown signal received")

	shutdownCtx, cancel := context.WithTimeout(
		context.Background(),
		a.di.Config().ShutdownTimeout,
	)
	defer cancel()

	if err := a.srv.Shutdown(shutdownCtx); err != nil {
		slog.Error("server shutdown error", slog.String("error", err.Error()))
		return err
	}

	if d := a.di.Dispatcher(); d != nil {
		if err := d.Stop(shutdownCtx); err != nil {
			slog.Warn("event dispatcher stop", slog.String("error", err.Error()))
		}
	}

	slog.Info("server gracefully stopped")
	return nil
}
