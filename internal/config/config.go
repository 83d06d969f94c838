package config

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/kelseyhightower/envconfig"
	"gopkg.in/yaml.v2"
)

const EnvPrefix = "SALES"

// Config is resolved in three layers: Defaults, then the optional YAML file,
// then SALES_* environment variables.
type Config struct {
	Server  ServerConfig  `yaml:"server" envconfig:"SERVER"`
	Logging LoggingConfig `yaml:"logging" envconfig:"LOGGING"`
	Dataset DatasetConfig `yaml:"dataset" envconfig:"DATASET"`
}

type ServerConfig struct {
	Port              string          `yaml:"port" envconfig:"PORT"`
	ReadHeaderTimeout time.Duration   `yaml:"read_header_timeout" envconfig:"READ_HEADER_TIMEOUT"`
	ShutdownTimeout   time.Duration   `yaml:"shutdown_timeout" envconfig:"SHUTDOWN_TIMEOUT"`
	RateLimit         RateLimitConfig `yaml:"rate_limit" envconfig:"RATE_LIMIT"`
}

type RateLimitConfig struct {
	Enabled bool    `yaml:"enabled" envconfig:"ENABLED"`
	RPS     float64 `yaml:"rps" envconfig:"RPS"`
	Burst   int     `yaml:"burst" envconfig:"BURST"`
}

type LoggingConfig struct {
	Level string `yaml:"level" envconfig:"LEVEL"`
}

type DatasetConfig struct {
	// Source is a local path or an http(s) URL, e.g. a spreadsheet CSV export link.
	Source      string        `yaml:"source" envconfig:"SOURCE"`
	Format      string        `yaml:"format" envconfig:"FORMAT"` // auto, csv, xlsx
	Sheet       string        `yaml:"sheet" envconfig:"SHEET"`
	HTTPTimeout time.Duration `yaml:"http_timeout" envconfig:"HTTP_TIMEOUT"`
	Retries     int           `yaml:"retries" envconfig:"RETRIES"`
	Columns     ColumnsConfig `yaml:"columns" envconfig:"COLUMNS"`
}

// ColumnsConfig maps dataset headers to row fields. Header matching ignores
// case and surrounding blanks.
type ColumnsConfig struct {
	SaleDate       string `yaml:"sale_date" envconfig:"SALE_DATE"`
	ExperienceDate string `yaml:"experience_date" envconfig:"EXPERIENCE_DATE"`
	Amount         string `yaml:"amount" envconfig:"AMOUNT"`
	Units          string `yaml:"units" envconfig:"UNITS"`
	Status         string `yaml:"status" envconfig:"STATUS"`
	OrderID        string `yaml:"order_id" envconfig:"ORDER_ID"`
	Campaign       string `yaml:"campaign" envconfig:"CAMPAIGN"`
	Client         string `yaml:"client" envconfig:"CLIENT"`
}

func Defaults() Config {
	return Config{
		Server: ServerConfig{
			Port:              "8080",
			ReadHeaderTimeout: 10 * time.Second,
			ShutdownTimeout:   15 * time.Second,
			RateLimit:         RateLimitConfig{Enabled: true, RPS: 50, Burst: 100},
		},
		Logging: LoggingConfig{Level: "info"},
		Dataset: DatasetConfig{
			Format:      "auto",
			HTTPTimeout: 15 * time.Second,
			Retries:     3,
			Columns: ColumnsConfig{
				SaleDate:       "DATA DE VENDA",
				ExperienceDate: "DATA DA EXPERIÊNCIA",
				Amount:         "total",
				Units:          "item_id",
				Status:         "order_status",
				OrderID:        "order_id",
				Campaign:       "campanha",
				Client:         "cliente",
			},
		},
	}
}

// Load builds the configuration. path may be empty; a missing file is an error
// only when path was given explicitly.
func Load(path string) (Config, error) {
	cfg := Defaults()

	if path != "" {
		b, err := os.ReadFile(path)
		if err != nil {
			return Config{}, fmt.Errorf("read config file: %w", err)
		}
		if err := yaml.Unmarshal(b, &cfg); err != nil {
			return Config{}, fmt.Errorf("parse config file: %w", err)
		}
	}

	if err := envconfig.Process(EnvPrefix, &cfg); err != nil {
		return Config{}, fmt.Errorf("load config from env: %w", err)
	}

	if err := cfg.validate(); err != nil {
		return Config{}, fmt.Errorf("config validation failed: %w", err)
	}
	return cfg, nil
}

func (c Config) validate() error {
	var errs []error
	if strings.TrimSpace(c.Dataset.Source) == "" {
		errs = append(errs, errors.New("dataset.source is required"))
	}
	switch strings.ToLower(c.Dataset.Format) {
	case "auto", "csv", "xlsx":
	default:
		errs = append(errs, fmt.Errorf("dataset.format %q must be auto, csv or xlsx", c.Dataset.Format))
	}
	if c.Dataset.Retries < 0 {
		errs = append(errs, errors.New("dataset.retries must be >= 0"))
	}
	if c.Server.Port == "" {
		errs = append(errs, errors.New("server.port is required"))
	}
	if c.Server.RateLimit.Enabled && (c.Server.RateLimit.RPS <= 0 || c.Server.RateLimit.Burst <= 0) {
		errs = append(errs, errors.New("server.rate_limit needs rps > 0 and burst > 0"))
	}
	if c.Dataset.Columns.SaleDate == "" || c.Dataset.Columns.Status == "" {
		errs = append(errs, errors.New("dataset.columns.sale_date and dataset.columns.status are required"))
	}
	return errors.Join(errs...)
}

func (c Config) LogLevel() slog.Level {
	switch strings.ToLower(c.Logging.Level) {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}
