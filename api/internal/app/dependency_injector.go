package app

import (
	"context"
	"io"
	"log"
	"log/slog"
	"net/http"
	"os"

	"cloud.google.com/go/firestore"
	"github.com/nats-io/nats.go"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/redis/go-redis/v9"
	"google.golang.org/grpc"

	"github.com/you-humble/printq/api/internal/infra/config"
	"github.com/you-humble/printq/api/internal/infra/converter"
	"github.com/you-humble/printq/api/internal/infra/events"
	"github.com/you-humble/printq/api/internal/infra/idempotency"
	"github.com/you-humble/printq/api/internal/infra/mail"
	filestore "github.com/you-humble/printq/api/internal/infra/store/file"
	orderstore "github.com/you-humble/printq/api/internal/infra/store/order"
	"github.com/you-humble/printq/api/internal/transport"
	"github.com/you-humble/printq/api/internal/usecase"
	"github.com/you-humble/printq/core/grpc/converterpb"
	"github.com/you-humble/printq/core/libs/gcp"
	kafkaq "github.com/you-humble/printq/core/libs/kafka"
	mio "github.com/you-humble/printq/core/libs/minio"
	natsq "github.com/you-humble/printq/core/libs/nats"
	rediscli "github.com/you-humble/printq/core/libs/redis"
	"github.com/you-humble/printq/core/metrics"
)

type Router interface {
	MountRoutes(*http.ServeMux) *http.ServeMux
}

type dependencyInjector struct {
	configPath string

	cfg      *config.Config
	logger   *slog.Logger
	registry *prometheus.Registry

	redis     *redis.Client
	firestore *firestore.Client
	natsConn  *nats.Conn
	grpcConn  *grpc.ClientConn
	closers   []io.Closer

	fileStore   usecase.FileStore
	orderStore  usecase.OrderStore
	idempotency usecase.IdempotencyStore
	dispatcher  *events.Dispatcher
	eventsReady bool

	notifications *usecase.NotificationService
	orders        *usecase.OrderService
	conversion    *usecase.ConversionService

	serverMetrics *metrics.ServerMetrics
	handler       transport.Handler
	router        Router
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
		)).With(slog.String("service", "api"))
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
		di.serverMetrics = metrics.NewServerMetrics(di.Registry(), "api")
	}

	return di.serverMetrics
}

func (di *dependencyInjector) RedisClient() *redis.Client {
	if di.redis == nil {
		cfg := di.Config().Redis
		client, err := rediscli.NewClient(rediscli.Config{
			Addr:     cfg.Addr,
			Username: cfg.Username,
			Password: cfg.Password,
			DB:       cfg.DB,
		})
		if err != nil {
			log.Fatalf("Redis: %+v", err)
		}

		di.redis = client
		di.closers = append(di.closers, client)
		di.Logger().Info("connected to redis", slog.String("addr", cfg.Addr))
	}
	return di.redis
}

func (di *dependencyInjector) FirestoreClient(ctx context.Context) *firestore.Client {
	if di.firestore == nil {
		projectID := di.Config().GCP.ProjectID
		client, err := gcp.NewFirestoreClient(ctx, projectID)
		if err != nil {
			log.Fatalf("Firestore: %+v", err)
		}

		di.firestore = client
		di.closers = append(di.closers, client)
		di.Logger().Info("connected to firestore", slog.String("project_id", projectID))
	}
	return di.firestore
}

func (di *dependencyInjector) FileStore(ctx context.Context) usecase.FileStore {
	if di.fileStore == nil {
		cfg := di.Config()

		switch cfg.Storage.Driver {
		case "minio":
			store, err := filestore.NewMinIOStore(ctx, mio.Config{
				Endpoint:        cfg.MinIO.Endpoint,
				AccessKeyID:     cfg.MinIO.AccessKeyID,
				SecretAccessKey: cfg.MinIO.SecretAccessKey,
				UseSSL:          cfg.MinIO.UseSSL,
				Region:          cfg.MinIO.Region,
				Bucket:          cfg.Storage.Bucket,
				BasePath:        cfg.Storage.BasePath,
				CreateBucket:    cfg.MinIO.CreateBucket,
			})
			if err != nil {
				log.Fatalf("FileStore minio: %+v", err)
			}
			di.fileStore = store
			di.Logger().Info("initialized MinIO file store",
				slog.String("endpoint", cfg.MinIO.Endpoint),
				slog.String("bucket", cfg.Storage.Bucket),
			)

		case "gcs":
			client, bucket, err := gcp.NewBucket(ctx, cfg.Storage.Bucket)
			if err != nil {
				log.Fatalf("FileStore gcs: %+v", err)
			}
			di.closers = append(di.closers, client)
			di.fileStore = filestore.NewGCSStore(bucket, cfg.Storage.Bucket, cfg.Storage.BasePath)
			di.Logger().Info("initialized GCS file store", slog.String("bucket", cfg.Storage.Bucket))

		case "local":
			store, err := filestore.NewLocalStore(cfg.Storage.LocalDir)
			if err != nil {
				log.Fatalf("FileStore local: %+v", err)
			}
			di.fileStore = store
			di.Logger().Info("initialized local file store", slog.String("base_dir", cfg.Storage.LocalDir))
		}
	}

	return di.fileStore
}

func (di *dependencyInjector) OrderStore(ctx context.Context) usecase.OrderStore {
	if di.orderStore == nil {
		cfg := di.Config().Orders
		switch cfg.Driver {
		case "firestore":
			di.orderStore = orderstore.NewFirestoreOrderStore(di.FirestoreClient(ctx), cfg.Collection)
		default:
			di.orderStore = orderstore.NewRedisOrderStore(di.RedisClient())
		}
		di.Logger().Info("order store ready", slog.String("driver", cfg.Driver))
	}
	return di.orderStore
}

func (di *dependencyInjector) IdempotencyStore() usecase.IdempotencyStore {
	if di.idempotency == nil {
		di.idempotency = idempotency.NewRedisStore(di.RedisClient(), di.Config().Orders.IdempotencyTTL)
	}
	return di.idempotency
}

func (di *dependencyInjector) NATSConn() *nats.Conn {
	if di.natsConn == nil {
		cfg := di.Config().NATS
		nc, err := natsq.NewConnect(cfg.URL, natsq.Config{
			Name:          cfg.Name,
			MaxReconnects: cfg.MaxReconnects,
		})
		if err != nil {
			log.Fatalf("NATS connect: %+v", err)
		}
		di.natsConn = nc
	}
	return di.natsConn
}

func (di *dependencyInjector) publisher() events.Publisher {
	cfg := di.Config()

	switch cfg.Events.Driver {
	case "nats":
		js, err := natsq.NewJetStream(di.NATSConn(), &nats.StreamConfig{
			Name:     cfg.NATS.Stream,
			Subjects: []string{cfg.NATS.Subject},
			Storage:  nats.FileStorage,
			Replicas: 1,
			MaxAge:   cfg.NATS.MaxAge,
		})
		if err != nil {
			log.Fatalf("JetStream: %+v", err)
		}
		return events.NewNATSPublisher(js, cfg.NATS.Subject)

	case "kafka":
		w, err := kafkaq.NewWriter(kafkaq.ParseBrokers(cfg.Kafka.Brokers), cfg.Kafka.Topic)
		if err != nil {
			log.Fatalf("Kafka writer: %+v", err)
		}
		di.closers = append(di.closers, w)
		return events.NewKafkaPublisher(w)
	}

	return nil
}

// Dispatcher is nil when events are disabled.
func (di *dependencyInjector) Dispatcher() *events.Dispatcher {
	if !di.eventsReady {
		di.eventsReady = true

		if pub := di.publisher(); pub != nil {
			cfg := di.Config().Events
			di.dispatcher = events.NewDispatcher(pub, cfg.QueueSize, cfg.Workers, cfg.MaxRetries)
			di.Logger().Info("order events enabled",
				slog.String("driver", di.Config().Events.Driver),
				slog.Int("queue_size", cfg.QueueSize),
				slog.Int("workers", cfg.Workers),
			)
		}
	}
	return di.dispatcher
}

func (di *dependencyInjector) ConverterConn() *grpc.ClientConn {
	if di.grpcConn == nil {
		addr := di.Config().Converter.Addr
		conn, err := converterpb.NewConnection(addr)
		if err != nil {
			log.Fatalf("converter connection: %+v", err)
		}
		di.grpcConn = conn
		di.closers = append(di.closers, conn)
		di.Logger().Info("converter client ready", slog.String("addr", addr))
	}
	return di.grpcConn
}

func (di *dependencyInjector) Conversion() *usecase.ConversionService {
	if di.conversion == nil {
		di.conversion = usecase.NewConversionService(
			converter.NewClient(di.ConverterConn()),
			di.Config().Converter.Timeout,
		)
	}
	return di.conversion
}

func (di *dependencyInjector) Notifications() *usecase.NotificationService {
	if di.notifications == nil {
		cfg := di.Config()
		smtpCfg := mail.Config{
			Host:     cfg.SMTP.Host,
			Port:     cfg.SMTP.Port,
			Username: cfg.SMTP.Username,
			Password: cfg.SMTP.Password,
			From:     cfg.SMTP.From,
			Timeout:  cfg.SMTP.Timeout,
		}
		if !smtpCfg.Configured() {
			di.Logger().Warn("smtp is not configured, confirmations will fail")
		}
		di.notifications = usecase.NewNotificationService(mail.NewSMTPNotifier(smtpCfg), cfg.NotificationFooter)
	}
	return di.notifications
}

func (di *dependencyInjector) Orders(ctx context.Context) *usecase.OrderService {
	if di.orders == nil {
		cfg := di.Config().Orders

		var dispatcher usecase.EventDispatcher
		if d := di.Dispatcher(); d != nil {
			dispatcher = d
		}

		di.orders = usecase.NewOrderService(
			di.FileStore(ctx),
			di.OrderStore(ctx),
			di.Notifications(),
			dispatcher,
			di.IdempotencyStore(),
			metrics.NewOrderMetrics(di.Registry()),
			usecase.OrderOptions{
				MaxParallel:       cfg.MaxParallel,
				SaveAttempts:      cfg.SaveAttempts,
				SaveBackoff:       cfg.SaveBackoff,
				CompensateOrphans: cfg.CompensateOrphans,
			},
		)
	}
	return di.orders
}

func (di *dependencyInjector) Handler(ctx context.Context) transport.Handler {
	if di.handler == nil {
		cfg := di.Config()
		di.handler = transport.NewHandler(
			cfg.MaxUploadMB,
			cfg.MaxOrderMB,
			di.Conversion(),
			di.Orders(ctx),
			di.Notifications(),
		)
	}

	return di.handler
}

func (di *dependencyInjector) Router(ctx context.Context) Router {
	if di.router == nil {
		di.router = transport.NewRouter(di.Handler(ctx), metrics.Handler(di.Registry()))
	}

	return di.router
}

// Close releases clients in reverse creation order.
func (di *dependencyInjector) Close() {
	for i := len(di.closers) - 1; i >= 0; i-- {
		if err := di.closers[i].Close(); err != nil {
			di.Logger().Warn("close dependency", slog.String("error", err.Error()))
		}
	}
	if di.natsConn != nil {
		if err := di.natsConn.Drain(); err != nil {
			di.Logger().Warn("nats drain", slog.String("error", err.Error()))
		}
	}
}
