// Package config provides configuration management for the application.
package config

import (
	"errors"
	"fmt"
	"net/url"
	"os"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// DefaultBodySizeLimit is the largest request body the server accepts by default.
const DefaultBodySizeLimit = "1M"

// Config holds the application configuration
type Config struct {
	Server  ServerConfig  `yaml:"server"`
	Quote   QuoteConfig   `yaml:"quote"`
	Logging LoggingConfig `yaml:"logging"`
	Metrics MetricsConfig `yaml:"metrics"`
	Tracing TracingConfig `yaml:"tracing"`
	Audit   AuditConfig   `yaml:"audit"`
	Storage StorageConfig `yaml:"storage"`
}

// ServerConfig holds HTTP server configuration
type ServerConfig struct {
	Port string `yaml:"port"`
	// MasterKey enables bearer authentication when non-empty.
	MasterKey      string `yaml:"master_key"`
	BodySizeLimit  string `yaml:"body_size_limit"`
	SwaggerEnabled bool   `yaml:"swagger_enabled"`
}

// QuoteConfig describes the downstream quote service.
type QuoteConfig struct {
	Address string `yaml:"address"`
	// ValuePath is an optional gjson path used when the quote service answers with JSON.
	ValuePath string   `yaml:"value_path"`
	Timeout   Duration `yaml:"timeout"`
}

// LoggingConfig controls the slog handler.
type LoggingConfig struct {
	Format string `yaml:"format"` // auto, json or text
	Level  string `yaml:"level"`
}

// MetricsConfig controls the Prometheus endpoint.
type MetricsConfig struct {
	Enabled  bool   `yaml:"enabled"`
	Endpoint string `yaml:"endpoint"`
}

// TracingConfig controls the OpenTelemetry tracer provider.
type TracingConfig struct {
	Enabled      bool   `yaml:"enabled"`
	Exporter     string `yaml:"exporter"` // stdout or otlp
	OTLPEndpoint string `yaml:"otlp_endpoint"`
	ServiceName  string `yaml:"service_name"`
}

// AuditConfig controls the audit log.
type AuditConfig struct {
	Enabled       bool     `yaml:"enabled"`
	LogBodies     bool     `yaml:"log_bodies"`
	LogHeaders    bool     `yaml:"log_headers"`
	BufferSize    int      `yaml:"buffer_size"`
	FlushInterval Duration `yaml:"flush_interval"`
	RetentionDays int      `yaml:"retention_days"`

	// OnlyShippingOperations skips health, metrics and admin traffic.
	OnlyShippingOperations bool `yaml:"only_shipping_operations"`
}

// StorageConfig selects the database backing the audit log.
type StorageConfig struct {
	Type       string           `yaml:"type"`
	SQLite     SQLiteConfig     `yaml:"sqlite"`
	PostgreSQL PostgreSQLConfig `yaml:"postgresql"`
	MongoDB    MongoDBConfig    `yaml:"mongodb"`
}

// SQLiteConfig holds SQLite settings.
type SQLiteConfig struct {
	Path string `yaml:"path"`
}

// PostgreSQLConfig holds PostgreSQL settings.
type PostgreSQLConfig struct {
	URL      string `yaml:"url"`
	MaxConns int    `yaml:"max_conns"`
}

// MongoDBConfig holds MongoDB settings.
type MongoDBConfig struct {
	URL      string `yaml:"url"`
	Database string `yaml:"database"`
}

// Duration is a time.Duration that unmarshals from "5s" style strings or a bare number of seconds.
type Duration time.Duration

// UnmarshalYAML implements yaml.Unmarshaler.
func (d *Duration) UnmarshalYAML(value *yaml.Node) error {
	parsed, err := ParseDuration(expandString(value.Value))
	if err != nil {
		return err
	}
	*d = Duration(parsed)
	return nil
}

// Std returns the value as a time.Duration.
func (d Duration) Std() time.Duration {
	return time.Duration(d)
}

// ParseDuration accepts Go duration syntax ("1500ms", "5s") or an integer number of seconds.
func ParseDuration(s string) (time.Duration, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, nil
	}
	if secs, err := strconv.Atoi(s); err == nil {
		if secs < 0 {
			return 0, fmt.Errorf("invalid duration %q: must not be negative", s)
		}
		return time.Duration(secs) * time.Second, nil
	}
	d, err := time.ParseDuration(s)
	if err != nil {
		return 0, fmt.Errorf("invalid duration %q: %w", s, err)
	}
	if d < 0 {
		return 0, fmt.Errorf("invalid duration %q: must not be negative", s)
	}
	return d, nil
}

// Default returns the configuration used before any file or environment is applied.
func Default() *Config {
	return &Config{
		Server: ServerConfig{
			Port:          "8080",
			BodySizeLimit: DefaultBodySizeLimit,
		},
		Quote: QuoteConfig{
			Timeout: Duration(5 * time.Second),
		},
		Logging: LoggingConfig{
			Format: "auto",
			Level:  "info",
		},
		Metrics: MetricsConfig{
			Enabled:  true,
			Endpoint: "/metrics",
		},
		Tracing: TracingConfig{
			Exporter:    "stdout",
			ServiceName: "shipping",
		},
		Audit: AuditConfig{
			BufferSize:    1000,
			FlushInterval: Duration(5 * time.Second),
			RetentionDays: 30,
		},
		Storage: StorageConfig{
			Type:       "sqlite",
			SQLite:     SQLiteConfig{Path: "data/shipping.db"},
			PostgreSQL: PostgreSQLConfig{MaxConns: 10},
			MongoDB:    MongoDBConfig{Database: "shipping"},
		},
	}
}

// Load reads configuration from defaults, .env, the YAML file and the environment, in that order.
func Load() (*Config, error) {
	// A missing .env is fine; variables already set in the environment win.
	_ = godotenv.Load()

	cfg := Default()

	path, err := configPath()
	if err != nil {
		return nil, err
	}
	if path != "" {
		if err := loadFile(cfg, path); err != nil {
			return nil, err
		}
	}

	if err := applyEnv(cfg); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func configPath() (string, error) {
	if p := os.Getenv("CONFIG_PATH"); p != "" {
		if _, err := os.Stat(p); err != nil {
			return "", fmt.Errorf("config file %s: %w", p, err)
		}
		return p, nil
	}
	for _, p := range []string{"config.yaml", "config/config.yaml"} {
		if _, err := os.Stat(p); err == nil {
			return p, nil
		}
	}
	return "", nil
}

func loadFile(cfg *Config, path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read config file %s: %w", path, err)
	}

	var root yaml.Node
	if err := yaml.Unmarshal(data, &root); err != nil {
		return fmt.Errorf("failed to parse config file %s: %w", path, err)
	}
	expandNode(&root)
	if err := root.Decode(cfg); err != nil {
		return fmt.Errorf("failed to decode config file %s: %w", path, err)
	}
	return nil
}

// expandNode replaces ${VAR} placeholders in every scalar so that typed fields
// (bools, ints, durations) can be templated as well as strings.
func expandNode(n *yaml.Node) {
	if n == nil {
		return
	}
	if n.Kind == yaml.ScalarNode {
		expanded := expandString(n.Value)
		if expanded != n.Value {
			// Substituted scalars are re-resolved, so "${RETENTION:-30}" decodes into an int.
			n.Value = expanded
			n.Tag = ""
			n.Style = 0
		}
		return
	}
	for _, c := range n.Content {
		expandNode(c)
	}
}

var placeholder = regexp.MustCompile(`\$\{([A-Za-z_][A-Za-z0-9_]*)(:-([^}]*))?\}`)

// expandString resolves ${VAR} and ${VAR:-default}. Unset variables without a default are left as-is.
func expandString(s string) string {
	if !strings.Contains(s, "${") {
		return s
	}
	return placeholder.ReplaceAllStringFunc(s, func(match string) string {
		parts := placeholder.FindStringSubmatch(match)
		name, hasDefault, def := parts[1], parts[2] != "", parts[3]
		if v := os.Getenv(name); v != "" {
			return v
		}
		if hasDefault {
			return def
		}
		return match
	})
}

func applyEnv(cfg *Config) error {
	var errs []error

	str := func(key string, dst *string) {
		if v, ok := os.LookupEnv(key); ok && v != "" {
			*dst = v
		}
	}
	boolean := func(key string, dst *bool) {
		v, ok := os.LookupEnv(key)
		if !ok || v == "" {
			return
		}
		b, err := strconv.ParseBool(v)
		if err != nil {
			errs = append(errs, fmt.Errorf("%s: invalid boolean %q", key, v))
			return
		}
		*dst = b
	}
	integer := func(key string, dst *int) {
		v, ok := os.LookupEnv(key)
		if !ok || v == "" {
			return
		}
		n, err := strconv.Atoi(v)
		if err != nil {
			errs = append(errs, fmt.Errorf("%s: invalid integer %q", key, v))
			return
		}
		*dst = n
	}
	duration := func(key string, dst *Duration) {
		v, ok := os.LookupEnv(key)
		if !ok || v == "" {
			return
		}
		d, err := ParseDuration(v)
		if err != nil {
			errs = append(errs, fmt.Errorf("%s: %w", key, err))
			return
		}
		*dst = Duration(d)
	}

	str("PORT", &cfg.Server.Port)
	str("SHIPPING_MASTER_KEY", &cfg.Server.MasterKey)
	str("BODY_SIZE_LIMIT", &cfg.Server.BodySizeLimit)
	boolean("SWAGGER_ENABLED", &cfg.Server.SwaggerEnabled)

	str("QUOTE_ADDR", &cfg.Quote.Address)
	str("QUOTE_VALUE_PATH", &cfg.Quote.ValuePath)
	duration("QUOTE_TIMEOUT", &cfg.Quote.Timeout)

	str("LOG_FORMAT", &cfg.Logging.Format)
	str("LOG_LEVEL", &cfg.Logging.Level)

	boolean("METRICS_ENABLED", &cfg.Metrics.Enabled)
	str("METRICS_ENDPOINT", &cfg.Metrics.Endpoint)

	boolean("TRACING_ENABLED", &cfg.Tracing.Enabled)
	str("TRACING_EXPORTER", &cfg.Tracing.Exporter)
	str("OTEL_EXPORTER_OTLP_ENDPOINT", &cfg.Tracing.OTLPEndpoint)
	str("OTEL_SERVICE_NAME", &cfg.Tracing.ServiceName)

	boolean("AUDIT_ENABLED", &cfg.Audit.Enabled)
	boolean("AUDIT_LOG_BODIES", &cfg.Audit.LogBodies)
	boolean("AUDIT_LOG_HEADERS", &cfg.Audit.LogHeaders)
	integer("AUDIT_BUFFER_SIZE", &cfg.Audit.BufferSize)
	duration("AUDIT_FLUSH_INTERVAL", &cfg.Audit.FlushInterval)
	integer("AUDIT_RETENTION_DAYS", &cfg.Audit.RetentionDays)
	boolean("AUDIT_ONLY_SHIPPING_OPERATIONS", &cfg.Audit.OnlyShippingOperations)

	str("STORAGE_TYPE", &cfg.Storage.Type)
	str("SQLITE_PATH", &cfg.Storage.SQLite.Path)
	str("POSTGRES_URL", &cfg.Storage.PostgreSQL.URL)
	integer("POSTGRES_MAX_CONNS", &cfg.Storage.PostgreSQL.MaxConns)
	str("MONGODB_URL", &cfg.Storage.MongoDB.URL)
	str("MONGODB_DATABASE", &cfg.Storage.MongoDB.Database)

	return errors.Join(errs...)
}

// Validate reports every invalid setting at once.
func (c *Config) Validate() error {
	var errs []error

	if c.Quote.Address == "" {
		errs = append(errs, errors.New("quote.address is required (set QUOTE_ADDR)"))
	} else if u, err := url.Parse(c.Quote.Address); err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		errs = append(errs, fmt.Errorf("quote.address %q must be an absolute http(s) URL", c.Quote.Address))
	}

	switch c.Storage.Type {
	case "sqlite", "postgresql", "mongodb":
	default:
		errs = append(errs, fmt.Errorf("storage.type %q must be one of sqlite, postgresql, mongodb", c.Storage.Type))
	}

	switch c.Logging.Format {
	case "auto", "json", "text":
	default:
		errs = append(errs, fmt.Errorf("logging.format %q must be one of auto, json, text", c.Logging.Format))
	}

	switch c.Tracing.Exporter {
	case "stdout", "otlp":
	default:
		errs = append(errs, fmt.Errorf("tracing.exporter %q must be stdout or otlp", c.Tracing.Exporter))
	}

	if c.Metrics.Enabled && !strings.HasPrefix(c.Metrics.Endpoint, "/") {
		errs = append(errs, fmt.Errorf("metrics.endpoint %q must start with /", c.Metrics.Endpoint))
	}
	if c.Audit.BufferSize < 0 {
		errs = append(errs, errors.New("audit.buffer_size must not be negative"))
	}
	if c.Audit.RetentionDays < 0 {
		errs = append(errs, errors.New("audit.retention_days must not be negative"))
	}

	return errors.Join(errs...)
}
