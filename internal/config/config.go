package config

import (
	"fmt"
	"net/url"
	"slices"
	"strings"
	"time"

	"github.com/kelseyhightower/envconfig"
)

type Config struct {
	Server   ServerConfig   `envconfig:"SERVER"`
	Dataset  DatasetConfig  `envconfig:"DATASET"`
	Report   ReportConfig   `envconfig:"REPORT"`
	Logger   LoggerConfig   `envconfig:"LOG"`
	Tracing  TracingConfig  `envconfig:"TRACING"`
	Security SecurityConfig `envconfig:"SECURITY"`
	CTAURL   string         `envconfig:"CTA_URL" default:"https://wa.me/?text=Quiero%20el%20informe%20completo"`
}

type ServerConfig struct {
	Host            string        `envconfig:"HOST" default:"localhost"`
	Port            int           `envconfig:"PORT" default:"8084"`
	ReadTimeout     time.Duration `envconfig:"READ_TIMEOUT" default:"10s"`
	WriteTimeout    time.Duration `envconfig:"WRITE_TIMEOUT" default:"10s"`
	IdleTimeout     time.Duration `envconfig:"IDLE_TIMEOUT" default:"60s"`
	ShutdownTimeout time.Duration `envconfig:"SHUTDOWN_TIMEOUT" default:"30s"`
	MaxUploadBytes  int64         `envconfig:"MAX_UPLOAD_BYTES" default:"10485760"`
}

// DatasetConfig selects the default report's source. An empty File means
// synthetic demo data.
type DatasetConfig struct {
	File     string        `envconfig:"FILE"`
	DemoRows int           `envconfig:"DEMO_ROWS" default:"500"`
	DemoSeed uint64        `envconfig:"DEMO_SEED" default:"2025"`
	Timeout  time.Duration `envconfig:"LOAD_TIMEOUT" default:"30s"`
}

type ReportConfig struct {
	MarginThreshold  float64 `envconfig:"MARGIN_THRESHOLD" default:"15"`
	CriticalLimit    int     `envconfig:"CRITICAL_LIMIT" default:"5"`
	OpportunityLimit int     `envconfig:"OPPORTUNITY_LIMIT" default:"10"`
	CategorySort     string  `envconfig:"CATEGORY_SORT" default:"margin_percent"`
	CategoryDesc     bool    `envconfig:"CATEGORY_DESC" default:"false"`
}

type LoggerConfig struct {
	Level     string `envconfig:"LEVEL" default:"info"`
	Format    string `envconfig:"FORMAT" default:"json"`
	AddSource bool   `envconfig:"ADD_SOURCE" default:"true"`
}

type TracingConfig struct {
	Exporter    string  `envconfig:"EXPORTER" default:"none"`
	SampleRatio float64 `envconfig:"SAMPLE_RATIO" default:"1"`
}

type SecurityConfig struct {
	EnableRateLimit bool     `envconfig:"RATE_LIMIT_ENABLED" default:"true"`
	RateLimitRPS    int      `envconfig:"RATE_LIMIT_RPS" default:"100"`
	RateLimitBurst  int      `envconfig:"RATE_LIMIT_BURST" default:"10"`
	AllowedOrigins  []string `envconfig:"ALLOWED_ORIGINS" default:"http://localhost:8084"`
	TrustedProxies  []string `envconfig:"TRUSTED_PROXIES" default:"127.0.0.1"`
}

func Load() (*Config, error) {
	var cfg Config
	if err := envconfig.Process("", &cfg); err != nil {
		return nil, fmt.Errorf("read environment: %w", err)
	}

	if err := cfg.validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return &cfg, nil
}

func (c *Config) validate() error {
	if c.Server.Port < 1 || c.Server.Port > 65535 {
		return fmt.Errorf("server port must be between 1 and 65535, got %d", c.Server.Port)
	}

	if c.Server.ReadTimeout <= 0 {
		return fmt.Errorf("server read timeout must be positive")
	}

	if c.Server.WriteTimeout <= 0 {
		return fmt.Errorf("server write timeout must be positive")
	}

	if c.Server.MaxUploadBytes <= 0 {
		return fmt.Errorf("max upload bytes must be positive")
	}

	if c.Dataset.File == "" && c.Dataset.DemoRows <= 0 {
		return fmt.Errorf("demo rows must be positive when no dataset file is set")
	}

	if c.Report.CriticalLimit < 1 || c.Report.OpportunityLimit < 1 {
		return fmt.Errorf("report limits must be at least 1")
	}

	validSorts := []string{"sales", "margin", "margin_percent"}
	if !slices.Contains(validSorts, c.Report.CategorySort) {
		return fmt.Errorf("invalid category sort %q, must be one of: %s", c.Report.CategorySort, strings.Join(validSorts, ", "))
	}

	validLogLevels := []string{"debug", "info", "warn", "error"}
	if !slices.Contains(validLogLevels, c.Logger.Level) {
		return fmt.Errorf("invalid log level %q, must be one of: %s", c.Logger.Level, strings.Join(validLogLevels, ", "))
	}

	validLogFormats := []string{"json", "text"}
	if !slices.Contains(validLogFormats, c.Logger.Format) {
		return fmt.Errorf("invalid log format %q, must be one of: %s", c.Logger.Format, strings.Join(validLogFormats, ", "))
	}

	validExporters := []string{"none", "stdout"}
	if !slices.Contains(validExporters, c.Tracing.Exporter) {
		return fmt.Errorf("invalid trace exporter %q, must be one of: %s", c.Tracing.Exporter, strings.Join(validExporters, ", "))
	}

	if c.Tracing.SampleRatio < 0 || c.Tracing.SampleRatio > 1 {
		return fmt.Errorf("trace sample ratio must be between 0 and 1")
	}

	if c.Security.RateLimitRPS <= 0 {
		return fmt.Errorf("rate limit RPS must be positive")
	}

	if c.Security.RateLimitBurst <= 0 {
		return fmt.Errorf("rate limit burst must be positive")
	}

	if c.CTAURL != "" {
		if u, err := url.Parse(c.CTAURL); err != nil || u.Scheme == "" {
			return fmt.Errorf("call-to-action URL %q is not absolute", c.CTAURL)
		}
	}

	return nil
}

func (c *Config) Address() string {
	return fmt.Sprintf("%s:%d", c.Server.Host, c.Server.Port)
}
