// Package config loads service configuration from an optional YAML file
// with environment-variable overrides. Environment always wins over the
// file, and the file over built-in defaults.
package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"
)

// Duration is a time.Duration that unmarshals from YAML strings like
// "10m" or "24h".
type Duration time.Duration

// UnmarshalYAML implements yaml.Unmarshaler.
func (d *Duration) UnmarshalYAML(value *yaml.Node) error {
	var s string
	if err := value.Decode(&s); err != nil {
		return err
	}
	parsed, err := time.ParseDuration(s)
	if err != nil {
		return fmt.Errorf("invalid duration %q: %w", s, err)
	}
	*d = Duration(parsed)
	return nil
}

// Std returns the wrapped time.Duration.
func (d Duration) Std() time.Duration { return time.Duration(d) }

// Config is the root service configuration.
type Config struct {
	ListenAddr string `yaml:"listen_addr"`
	PprofAddr  string `yaml:"pprof_addr"`

	Telemetry TelemetryConfig `yaml:"telemetry"`
	Gemini    GeminiConfig    `yaml:"gemini"`
	Refresh   RefreshConfig   `yaml:"refresh"`
	Dashboard DashboardConfig `yaml:"dashboard"`
}

// TelemetryConfig selects and configures the analytics backend.
type TelemetryConfig struct {
	Backend       string              `yaml:"backend"`
	Elasticsearch ElasticsearchConfig `yaml:"elasticsearch"`
	ClickHouse    ClickHouseConfig    `yaml:"clickhouse"`
}

// ElasticsearchConfig points at the T-Pot Elasticsearch.
type ElasticsearchConfig struct {
	URL      string   `yaml:"url"`
	Index    string   `yaml:"index"`
	Username string   `yaml:"username"`
	Password string   `yaml:"password"`
	Timeout  Duration `yaml:"timeout"`
}

// ClickHouseConfig points at a ClickHouse events table.
type ClickHouseConfig struct {
	Addr     string `yaml:"addr"`
	Database string `yaml:"database"`
	Username string `yaml:"username"`
	Password string `yaml:"password"`
	Table    string `yaml:"table"`
}

// GeminiConfig holds summarization-service credentials.
type GeminiConfig struct {
	APIKey  string   `yaml:"api_key"`
	Model   string   `yaml:"model"`
	BaseURL string   `yaml:"base_url"`
	Timeout Duration `yaml:"timeout"`
}

// RefreshConfig controls the background analysis pipeline.
type RefreshConfig struct {
	InitialDelay Duration `yaml:"initial_delay"`
	Interval     Duration `yaml:"interval"`
	Window       Duration `yaml:"window"`
	TopSize      int      `yaml:"top_size"`
}

// DashboardConfig bounds the /api/dashboard query.
type DashboardConfig struct {
	Window            Duration `yaml:"window"`
	BucketInterval    Duration `yaml:"bucket_interval"`
	TopSize           int      `yaml:"top_size"`
	CredentialTopSize int      `yaml:"credential_top_size"`
	SampleSize        int      `yaml:"sample_size"`
}

// Default returns the configuration for a stock single-host T-Pot
// deployment.
func Default() Config {
	return Config{
		ListenAddr: ":5001",
		PprofAddr:  "localhost:6060",
		Telemetry: TelemetryConfig{
			Backend: "elasticsearch",
			Elasticsearch: ElasticsearchConfig{
				URL:     "http://localhost:64298",
				Index:   "logstash-*",
				Timeout: Duration(30 * time.Second),
			},
			ClickHouse: ClickHouseConfig{
				Addr:     "localhost:9000",
				Database: "default",
				Username: "default",
				Table:    "honeypot_events",
			},
		},
		Gemini: GeminiConfig{
			Model:   "gemini-2.5-pro",
			BaseURL: "https://generativelanguage.googleapis.com",
			Timeout: Duration(60 * time.Second),
		},
		Refresh: RefreshConfig{
			InitialDelay: Duration(10 * time.Second),
			Interval:     Duration(10 * time.Minute),
			Window:       Duration(15 * time.Minute),
			TopSize:      5,
		},
		Dashboard: DashboardConfig{
			Window:            Duration(24 * time.Hour),
			BucketInterval:    Duration(time.Hour),
			TopSize:           10,
			CredentialTopSize: 15,
			SampleSize:        200,
		},
	}
}

// Load builds the effective configuration: defaults, then the YAML file
// (CONFIG_FILE, default "config.yaml", missing default file is fine),
// then environment overrides.
func Load() (Config, error) {
	cfg := Default()

	path := getEnv("CONFIG_FILE", "config.yaml")
	data, err := os.ReadFile(path)
	switch {
	case err == nil:
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return Config{}, fmt.Errorf("parsing config file %s: %w", path, err)
		}
	case os.IsNotExist(err) && os.Getenv("CONFIG_FILE") == "":
		// No file, no explicit request for one: defaults plus env.
	default:
		return Config{}, fmt.Errorf("reading config file %s: %w", path, err)
	}

	applyEnv(&cfg)

	if err := cfg.validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func (c Config) validate() error {
	switch c.Telemetry.Backend {
	case "elasticsearch", "clickhouse":
	default:
		return fmt.Errorf("unknown telemetry backend: %s (supported: elasticsearch, clickhouse)", c.Telemetry.Backend)
	}
	if c.Refresh.Interval <= 0 {
		return fmt.Errorf("refresh interval must be positive")
	}
	if c.Refresh.Window <= 0 {
		return fmt.Errorf("refresh window must be positive")
	}
	if c.Dashboard.BucketInterval <= 0 || c.Dashboard.Window < c.Dashboard.BucketInterval {
		return fmt.Errorf("dashboard window must cover at least one bucket interval")
	}
	return nil
}

func applyEnv(cfg *Config) {
	cfg.ListenAddr = getEnv("LISTEN_ADDR", cfg.ListenAddr)
	cfg.PprofAddr = getEnv("PPROF_ADDR", cfg.PprofAddr)

	cfg.Telemetry.Backend = getEnv("TELEMETRY_BACKEND", cfg.Telemetry.Backend)
	cfg.Telemetry.Elasticsearch.URL = getEnv("ELASTICSEARCH_URL", cfg.Telemetry.Elasticsearch.URL)
	cfg.Telemetry.Elasticsearch.Index = getEnv("ELASTICSEARCH_INDEX", cfg.Telemetry.Elasticsearch.Index)
	cfg.Telemetry.Elasticsearch.Username = getEnv("ELASTICSEARCH_USERNAME", cfg.Telemetry.Elasticsearch.Username)
	cfg.Telemetry.Elasticsearch.Password = getEnv("ELASTICSEARCH_PASSWORD", cfg.Telemetry.Elasticsearch.Password)
	cfg.Telemetry.ClickHouse.Addr = getEnv("CLICKHOUSE_ADDR", cfg.Telemetry.ClickHouse.Addr)
	cfg.Telemetry.ClickHouse.Database = getEnv("CLICKHOUSE_DATABASE", cfg.Telemetry.ClickHouse.Database)
	cfg.Telemetry.ClickHouse.Username = getEnv("CLICKHOUSE_USERNAME", cfg.Telemetry.ClickHouse.Username)
	cfg.Telemetry.ClickHouse.Password = getEnv("CLICKHOUSE_PASSWORD", cfg.Telemetry.ClickHouse.Password)
	cfg.Telemetry.ClickHouse.Table = getEnv("CLICKHOUSE_TABLE", cfg.Telemetry.ClickHouse.Table)

	cfg.Gemini.APIKey = getEnv("GEMINI_API_KEY", cfg.Gemini.APIKey)
	cfg.Gemini.Model = getEnv("GEMINI_MODEL", cfg.Gemini.Model)
	cfg.Gemini.BaseURL = getEnv("GEMINI_BASE_URL", cfg.Gemini.BaseURL)

	cfg.Refresh.InitialDelay = getEnvDuration("REFRESH_INITIAL_DELAY", cfg.Refresh.InitialDelay)
	cfg.Refresh.Interval = getEnvDuration("REFRESH_INTERVAL", cfg.Refresh.Interval)
	cfg.Refresh.Window = getEnvDuration("REFRESH_WINDOW", cfg.Refresh.Window)
	cfg.Refresh.TopSize = getEnvInt("REFRESH_TOP_SIZE", cfg.Refresh.TopSize)
}

// getEnv gets an environment variable with a default fallback.
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// getEnvDuration gets a duration environment variable with a default
// fallback.
func getEnvDuration(key string, defaultValue Duration) Duration {
	if value := os.Getenv(key); value != "" {
		if d, err := time.ParseDuration(value); err == nil {
			return Duration(d)
		}
	}
	return defaultValue
}

// getEnvInt gets an integer environment variable with a default fallback.
func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if n, err := strconv.Atoi(value); err == nil {
			return n
		}
	}
	return defaultValue
}
