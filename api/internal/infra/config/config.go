package config

import (
	"log"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

type Config struct {
	Env      string `yaml:"env"`
	LogLevel string `yaml:"log_level"`

	Addr            string        `yaml:"addr"`
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout"`
	AllowedOrigin   string        `yaml:"allowed_origin"`

	MaxUploadMB int64 `yaml:"max_upload_mb"`
	MaxOrderMB  int64 `yaml:"max_order_mb"`

	Converter Converter `yaml:"converter"`
	Orders    Orders    `yaml:"orders"`
	Storage   Storage   `yaml:"storage"`
	Events    Events    `yaml:"events"`
	SMTP      SMTP      `yaml:"smtp"`

	Redis Redis `yaml:"redis"`
	MinIO MinIO `yaml:"minio"`
	GCP   GCP   `yaml:"gcp"`
	NATS  NATS  `yaml:"nats"`
	Kafka Kafka `yaml:"kafka"`

	NotificationFooter string `yaml:"notification_footer"`
}

type Converter struct {
	Addr    string        `yaml:"addr"`
	Timeout time.Duration `yaml:"timeout"`
}

type Orders struct {
	// Driver is "redis" or "firestore".
	Driver            string        `yaml:"driver"`
	MaxParallel       int           `yaml:"max_parallel_orders"`
	SaveAttempts      int           `yaml:"save_attempts"`
	SaveBackoff       time.Duration `yaml:"save_backoff"`
	CompensateOrphans bool          `yaml:"compensate_orphans"`
	IdempotencyTTL    time.Duration `yaml:"idempotency_ttl"`
	Collection        string        `yaml:"collection"`
}

type Storage struct {
	// Driver is "minio", "gcs" or "local".
	Driver   string `yaml:"driver"`
	Bucket   string `yaml:"bucket"`
	BasePath string `yaml:"base_path"`
	LocalDir string `yaml:"local_dir"`
}

type Events struct {
	// Driver is "nats", "kafka" or "none".
	Driver     string `yaml:"driver"`
	QueueSize  int    `yaml:"queue_size"`
	Workers    int    `yaml:"workers"`
	MaxRetries int    `yaml:"max_retries"`
}

type SMTP struct {
	Host     string        `yaml:"host"`
	Port     int           `yaml:"port"`
	Username string        `yaml:"username"`
	Password string        `yaml:"password"`
	From     string        `yaml:"from"`
	Timeout  time.Duration `yaml:"timeout"`
}

type Redis struct {
	Addr     string `yaml:"addr"`
	Username string `yaml:"username"`
	Password string `yaml:"password"`
	DB       int    `yaml:"db"`
}

type MinIO struct {
	Endpoint        string `yaml:"endpoint"`
	AccessKeyID     string `yaml:"access_key_id"`
	SecretAccessKey string `yaml:"secret_access_key"`
	UseSSL          bool   `yaml:"use_ssl"`
	Region          string `yaml:"region"`
	CreateBucket    bool   `yaml:"create_bucket"`
}

type GCP struct {
	ProjectID string `yaml:"project_id"`
}

type NATS struct {
	URL           string        `yaml:"url"`
	Name          string        `yaml:"name"`
	MaxReconnects int           `yaml:"max_reconnects"`
	Stream        string        `yaml:"stream"`
	Subject       string        `yaml:"subject"`
	MaxAge        time.Duration `yaml:"max_age"`
}

type Kafka struct {
	Brokers string `yaml:"brokers"`
	Topic   string `yaml:"topic"`
}

func MustLoad(path string) *Config {
	if err := godotenv.Load(); err != nil && !os.IsNotExist(err) {
		log.Printf("config: .env: %v", err)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		log.Fatalf("config: cannot read file %q: %v", path, err)
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		log.Fatalf("config: cannot unmarshal yaml: %v", err)
	}

	cfg.applyEnv()
	cfg.applyDefaults()

	if cfg.Converter.Addr == "" {
		log.Fatalf("config: converter.addr is empty")
	}
	switch cfg.Storage.Driver {
	case "minio", "gcs":
		if cfg.Storage.Bucket == "" {
			log.Fatalf("config: storage.bucket is empty")
		}
	case "local":
		if cfg.Storage.LocalDir == "" {
			log.Fatalf("config: storage.local_dir is empty")
		}
	default:
		log.Fatalf("config: unknown storage.driver %q", cfg.Storage.Driver)
	}
	switch cfg.Orders.Driver {
	case "redis":
	case "firestore":
		if cfg.GCP.ProjectID == "" {
			log.Fatalf("config: gcp.project_id is empty")
		}
	default:
		log.Fatalf("config: unknown orders.driver %q", cfg.Orders.Driver)
	}
	switch cfg.Events.Driver {
	case "none":
	case "nats":
		if cfg.NATS.Subject == "" {
			log.Fatalf("config: nats.subject is empty")
		}
	case "kafka":
		if cfg.Kafka.Topic == "" {
			log.Fatalf("config: kafka.topic is empty")
		}
	default:
		log.Fatalf("config: unknown events.driver %q", cfg.Events.Driver)
	}

	return &cfg
}

func (c *Config) applyEnv() {
	if v := os.Getenv("PORT"); v != "" {
		c.Addr = ":" + v
	}
	if v := os.Getenv("ALLOWED_ORIGIN"); v != "" {
		c.AllowedOrigin = v
	}
	if v := os.Getenv("STORAGE_BUCKET"); v != "" {
		c.Storage.Bucket = v
	}
	if v := os.Getenv("SMTP_HOST"); v != "" {
		c.SMTP.Host = v
	}
	if v := os.Getenv("SMTP_PORT"); v != "" {
		port, err := strconv.Atoi(v)
		if err != nil {
			log.Fatalf("config: SMTP_PORT %q: %v", v, err)
		}
		c.SMTP.Port = port
	}
	if v := os.Getenv("SMTP_USERNAME"); v != "" {
		c.SMTP.Username = v
	}
	if v := os.Getenv("SMTP_PASSWORD"); v != "" {
		c.SMTP.Password = v
	}
	if v := os.Getenv("SMTP_FROM"); v != "" {
		c.SMTP.From = v
	}
	if v := os.Getenv("REDIS_ADDR"); v != "" {
		c.Redis.Addr = v
	}
	if v := os.Getenv("REDIS_PASSWORD"); v != "" {
		c.Redis.Password = v
	}
	if v := os.Getenv("CONVERTER_ADDR"); v != "" {
		c.Converter.Addr = v
	}
}

func (c *Config) applyDefaults() {
	if c.Addr == "" {
		c.Addr = ":8080"
	}
	if c.ShutdownTimeout <= 0 {
		c.ShutdownTimeout = 10 * time.Second
	}
	if c.MaxUploadMB <= 0 {
		c.MaxUploadMB = 25
	}
	if c.MaxOrderMB <= 0 {
		c.MaxOrderMB = 200
	}
	if c.Converter.Timeout <= 0 {
		c.Converter.Timeout = 75 * time.Second
	}
	if c.Orders.Driver == "" {
		c.Orders.Driver = "redis"
	}
	if c.Orders.MaxParallel <= 0 {
		c.Orders.MaxParallel = 4
	}
	if c.Orders.SaveAttempts <= 0 {
		c.Orders.SaveAttempts = 3
	}
	if c.Orders.SaveBackoff <= 0 {
		c.Orders.SaveBackoff = 500 * time.Millisecond
	}
	if c.Orders.IdempotencyTTL <= 0 {
		c.Orders.IdempotencyTTL = 24 * time.Hour
	}
	if c.Storage.Driver == "" {
		c.Storage.Driver = "minio"
	}
	if c.Events.Driver == "" {
		c.Events.Driver = "none"
	}
	if c.NATS.Stream == "" {
		c.NATS.Stream = "PRINT_ORDERS"
	}
	if c.NATS.MaxAge <= 0 {
		c.NATS.MaxAge = 7 * 24 * time.Hour
	}
}
