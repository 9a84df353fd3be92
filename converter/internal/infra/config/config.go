package config

import (
	"log"
	"os"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

type Config struct {
	Env      string `yaml:"env"`
	LogLevel string `yaml:"log_level"`

	GRPCAddr    string `yaml:"grpc_addr"`
	MetricsAddr string `yaml:"metrics_addr"`

	WorkspaceDir      string        `yaml:"workspace_dir"`
	SofficeBin        string        `yaml:"soffice_bin"`
	ConversionTimeout time.Duration `yaml:"conversion_timeout"`
	MaxParallel       int           `yaml:"max_parallel"`
	MaxUploadMB       int64         `yaml:"max_upload_mb"`

	SweepInterval time.Duration `yaml:"sweep_interval"`
	SweepMaxAge   time.Duration `yaml:"sweep_max_age"`

	ShutdownTimeout time.Duration `yaml:"shutdown_timeout"`

	Cache Cache `yaml:"cache"`
	Redis Redis `yaml:"redis"`
}

type Cache struct {
	Enabled bool          `yaml:"enabled"`
	TTL     time.Duration `yaml:"ttl"`
}

type Redis struct {
	Addr     string `yaml:"addr"`
	Username string `yaml:"username"`
	Password string `yaml:"password"`
	DB       int    `yaml:"db"`
}

func (c *Config) MaxUploadBytes() int64 {
	return c.MaxUploadMB << 20
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

	if cfg.WorkspaceDir == "" {
		log.Fatalf("config: workspace_dir is empty")
	}

	return &cfg
}

func (c *Config) applyEnv() {
	if v := os.Getenv("SOFFICE_BIN"); v != "" {
		c.SofficeBin = v
	}
	if v := os.Getenv("REDIS_ADDR"); v != "" {
		c.Redis.Addr = v
	}
	if v := os.Getenv("REDIS_PASSWORD"); v != "" {
		c.Redis.Password = v
	}
	if v := os.Getenv("WORKSPACE_DIR"); v != "" {
		c.WorkspaceDir = v
	}
}

func (c *Config) applyDefaults() {
	if c.GRPCAddr == "" {
		c.GRPCAddr = ":50051"
	}
	if c.SofficeBin == "" {
		c.SofficeBin = "soffice"
	}
	if c.ConversionTimeout <= 0 {
		c.ConversionTimeout = 60 * time.Second
	}
	if c.MaxParallel <= 0 {
		c.MaxParallel = 4
	}
	if c.MaxUploadMB <= 0 {
		c.MaxUploadMB = 25
	}
	if c.SweepInterval <= 0 {
		c.SweepInterval = 10 * time.Minute
	}
	if c.SweepMaxAge <= 0 {
		c.SweepMaxAge = 2 * c.ConversionTimeout
	}
	if c.ShutdownTimeout <= 0 {
		c.ShutdownTimeout = 15 * time.Second
	}
	if c.Cache.TTL <= 0 {
		c.Cache.TTL = 7 * 24 * time.Hour
	}
}
