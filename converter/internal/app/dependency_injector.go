package capp

import (
	"log"
	"log/slog"
	"os"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/redis/go-redis/v9"

	"github.com/you-humble/printq/converter/internal/converter"
	"github.com/you-humble/printq/converter/internal/infra/cache"
	"github.com/you-humble/printq/converter/internal/infra/config"
	"github.com/you-humble/printq/converter/internal/infra/scratch"
	"github.com/you-humble/printq/converter/internal/service"
	"github.com/you-humble/printq/core/grpc/converterpb"
	rediscli "github.com/you-humble/printq/core/libs/redis"
	"github.com/you-humble/printq/core/metrics"
)

type dependencyInjector struct {
	configPath string

	cfg      *config.Config
	logger   *slog.Logger
	registry *prometheus.Registry

	workspace     *scratch.Workspace
	soffice       *converter.Soffice
	rdb           *redis.Client
	converter     service.Converter
	service       converterpb.ConverterServiceServer
	serverMetrics *metrics.ServerMetrics
}

func newDI(configPath string) *dependencyInjector {
	return &dependencyInjector{configPath: configPath}
}

func (di *dependencyInjector) Config() *config.Config {
	if di.cfg == nil {
		di.cfg = config.MustLoad(di.configPath)
	}

	return di.cfg
}

func (di *dependencyInjector) Logger() *slog.Logger {
	if di.logger == nil {
		var level slog.Level
		if err := level.UnmarshalText([]byte(di.Config().LogLevel)); err != nil {
			level = slog.LevelInfo
		}

		di.logger = slog.New(slog.NewTextHandler(
			os.Stdout,
			&slog.HandlerOptions{Level: level},
		)).With(slog.String("service", "converter"))
		slog.SetDefault(di.logger)
	}

	return di.logger
}

func (di *dependencyInjector) Registry() *prometheus.Registry {
	if di.registry == nil {
		di.registry = prometheus.NewRegistry()
		di.registry.MustRegister(
			collectors.NewGoCollector(),
			collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		)
	}

	return di.registry
}

func (di *dependencyInjector) ServerMetrics() *metrics.ServerMetrics {
	if di.serverMetrics == nil {
		di.serverMetrics = metrics.NewServerMetrics(di.Registry(), "converter")
	}

	return di.serverMetrics
}

func (di *dependencyInjector) Workspace() *scratch.Workspace {
	if di.workspace == nil {
		ws, err := scratch.NewWorkspace(di.Config().WorkspaceDir)
		if err != nil {
			log.Fatalf("Workspace: %+v", err)
		}
		di.Logger().Info("initialized scratch workspace", slog.String("dir", ws.Dir()))
		di.workspace = ws
	}

	return di.workspace
}

func (di *dependencyInjector) Soffice() *converter.Soffice {
	if di.soffice == nil {
		cfg := di.Config()
		di.soffice = converter.NewSoffice(cfg.SofficeBin, cfg.ConversionTimeout)
	}

	return di.soffice
}

func (di *dependencyInjector) Redis() *redis.Client {
	if di.rdb == nil {
		cfg := di.Config().Redis
		rdb, err := rediscli.NewClient(rediscli.Config{
			Addr:     cfg.Addr,
			Username: cfg.Username,
			Password: cfg.Password,
			DB:       cfg.DB,
		})
		if err != nil {
			log.Fatalf("Redis: %+v", err)
		}
		di.Logger().Info("connected to redis", slog.String("addr", cfg.Addr))
		di.rdb = rdb
	}

	return di.rdb
}

func (di *dependencyInjector) Converter() service.Converter {
	if di.converter == nil {
		cfg := di.Config()

		var pageCache converter.Cache
		if cfg.Cache.Enabled {
			pageCache = cache.NewPageCache(di.Redis(), cfg.Cache.TTL)
			di.Logger().Info("page count cache enabled", slog.Duration("ttl", cfg.Cache.TTL))
		}

		di.converter = converter.New(
			di.Workspace(),
			di.Soffice(),
			converter.PDFCounter,
			pageCache,
			metrics.NewConversionMetrics(di.Registry()),
			cfg.MaxParallel,
		)
		di.Logger().Info("converter ready",
			slog.String("soffice_bin", cfg.SofficeBin),
			slog.Int("max_parallel", cfg.MaxParallel),
			slog.Duration("timeout", cfg.ConversionTimeout),
		)
	}

	return di.converter
}

func (di *dependencyInjector) Service() converterpb.ConverterServiceServer {
	if di.service == nil {
		di.service = service.NewConverterService(di.Converter(), di.Config().MaxUploadBytes())
	}

	return di.service
}

func (di *dependencyInjector) Close() {
	if di.rdb != nil {
		if err := di.rdb.Close(); err != nil {
			di.Logger().Warn("close redis", slog.String("error", err.Error()))
		}
	}
}
