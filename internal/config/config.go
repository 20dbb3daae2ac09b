package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// SketchConfig configures the streaming sketch backend.
type SketchConfig struct {
	Alpha float64 `yaml:"alpha"`
}

// GobConfig configures the gob snapshot writer.
type GobConfig struct {
	RootPath string `yaml:"root_path"`
}

// TextConfig configures the text table writer.
type TextConfig struct {
	RootPath string `yaml:"root_path"`
}

// ClickHouseConfig holds the connection details for a ClickHouse writer.
type ClickHouseConfig struct {
	Host     string `yaml:"host"`
	Port     int    `yaml:"port"`
	Database string `yaml:"database"`
	Username string `yaml:"username"`
	Password string `yaml:"password"`
}

// SQLiteConfig configures the SQLite snapshot writer.
type SQLiteConfig struct {
	Path string `yaml:"path"`
}

// WriterDef defines a single snapshot writer.
type WriterDef struct {
	Type             string           `yaml:"type"`
	Enabled          bool             `yaml:"enabled"`
	SnapshotInterval string           `yaml:"snapshot_interval"`
	Gob              GobConfig        `yaml:"gob"`
	Text             TextConfig       `yaml:"text"`
	ClickHouse       ClickHouseConfig `yaml:"clickhouse"`
	SQLite           SQLiteConfig     `yaml:"sqlite"`
}

// AggregatorConfig holds the configuration for the aggregation engine.
type AggregatorConfig struct {
	Backend            string       `yaml:"backend"`
	Decimals           int          `yaml:"decimals"`
	Sketch             SketchConfig `yaml:"sketch"`
	Period             string       `yaml:"period"`
	NumWorkers         int          `yaml:"num_workers"`
	SizeOfAuditChannel int          `yaml:"size_of_audit_channel"`
	Writers            []WriterDef  `yaml:"writers"`
}

// ProbeConfig holds the message bus settings.
type ProbeConfig struct {
	NATSURL         string `yaml:"nats_url"`
	Subject         string `yaml:"subject"`
	SummarySubject  string `yaml:"summary_subject"`
	ErrorSubject    string `yaml:"error_subject"`
	PublishInterval string `yaml:"publish_interval"`
	// PublishOnIngest also publishes every group's summary after each aggregated audit.
	PublishOnIngest bool `yaml:"publish_on_ingest"`
}

// APIConfig holds the HTTP API settings.
type APIConfig struct {
	ListenAddr string `yaml:"listen_addr"`
}

// GRPCConfig holds the gRPC health server settings.
type GRPCConfig struct {
	ListenAddr string `yaml:"listen_addr"`
}

// AlerterRule is a threshold on one statistic of one metric.
type AlerterRule struct {
	Name      string  `yaml:"name"`
	Group     string  `yaml:"group"`
	Metric    string  `yaml:"metric"`
	Stat      string  `yaml:"stat"`
	Operator  string  `yaml:"operator"`
	Threshold float64 `yaml:"threshold"`
}

// AlerterConfig holds the alerter settings.
type AlerterConfig struct {
	Enabled       bool          `yaml:"enabled"`
	CheckInterval string        `yaml:"check_interval"`
	Rules         []AlerterRule `yaml:"rules"`
}

// SMTPConfig holds the email notifier settings.
type SMTPConfig struct {
	Host     string `yaml:"host"`
	Port     int    `yaml:"port"`
	Username string `yaml:"username"`
	Password string `yaml:"password"`
	From     string `yaml:"from"`
	To       string `yaml:"to"`
}

// Config is the top-level configuration struct for the entire application.
type Config struct {
	Aggregator AggregatorConfig `yaml:"aggregator"`
	Probe      ProbeConfig      `yaml:"probe"`
	API        APIConfig        `yaml:"api"`
	GRPC       GRPCConfig       `yaml:"grpc"`
	Alerter    AlerterConfig    `yaml:"alerter"`
	SMTP       SMTPConfig       `yaml:"smtp"`
}

// Default returns a configuration usable without a config file.
func Default() *Config {
	cfg := &Config{}
	cfg.applyDefaults()
	return cfg
}

// LoadConfig reads the configuration from a YAML file and returns a Config struct.
// Values from the environment (and a .env file, if present) override the file.
func LoadConfig(filePath string) (*Config, error) {
	if err := godotenv.Load(); err != nil && !os.IsNotExist(err) {
		return nil, fmt.Errorf("error loading .env file: %w", err)
	}

	data, err := os.ReadFile(filePath)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	return Parse(data)
}

// Path returns the config file path from PERFSPECTRA_CONFIG, or the default.
func Path() string {
	if p := os.Getenv("PERFSPECTRA_CONFIG"); p != "" {
		return p
	}
	return DefaultConfigPath
}

// Parse builds a Config from YAML content, applying defaults and environment overrides.
func Parse(data []byte) (*Config, error) {
	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config YAML: %w", err)
	}

	cfg.applyDefaults()
	if err := cfg.applyEnv(); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return &cfg, nil
}

func (c *Config) applyDefaults() {
	if c.Aggregator.Backend == "" {
		c.Aggregator.Backend = DefaultBackend
	}
	if c.Aggregator.Sketch.Alpha == 0 {
		c.Aggregator.Sketch.Alpha = DefaultSketchAlpha
	}
	if c.Aggregator.NumWorkers <= 0 {
		c.Aggregator.NumWorkers = DefaultNumWorkers
	}
	if c.Aggregator.SizeOfAuditChannel <= 0 {
		c.Aggregator.SizeOfAuditChannel = DefaultAuditChannelSize
	}
	if c.Probe.NATSURL == "" {
		c.Probe.NATSURL = DefaultNATSURL
	}
	if c.Probe.Subject == "" {
		c.Probe.Subject = DefaultAuditSubject
	}
	if c.Probe.SummarySubject == "" {
		c.Probe.SummarySubject = DefaultSummarySubject
	}
	if c.Probe.ErrorSubject == "" {
		c.Probe.ErrorSubject = DefaultErrorSubject
	}
	if c.Probe.PublishInterval == "" {
		c.Probe.PublishInterval = DefaultPublishInterval
	}
	if c.API.ListenAddr == "" {
		c.API.ListenAddr = DefaultAPIListenAddr
	}
	if c.GRPC.ListenAddr == "" {
		c.GRPC.ListenAddr = DefaultGRPCListenAddr
	}
	if c.Alerter.CheckInterval == "" {
		c.Alerter.CheckInterval = DefaultCheckInterval
	}
	for i := range c.Aggregator.Writers {
		w := &c.Aggregator.Writers[i]
		if w.Type == "clickhouse" && w.ClickHouse.Port == 0 {
			w.ClickHouse.Port = DefaultClickHousePort
		}
	}
}

func (c *Config) applyEnv() error {
	if v := os.Getenv("PERFSPECTRA_NATS_URL"); v != "" {
		c.Probe.NATSURL = v
	}
	if v := os.Getenv("PERFSPECTRA_BACKEND"); v != "" {
		c.Aggregator.Backend = v
	}
	if v := os.Getenv("SMTP_PASSWORD"); v != "" {
		c.SMTP.Password = v
	}

	for i := range c.Aggregator.Writers {
		w := &c.Aggregator.Writers[i]
		if w.Type != "clickhouse" {
			continue
		}
		if v := os.Getenv("CLICKHOUSE_HOST"); v != "" {
			w.ClickHouse.Host = v
		}
		if v := os.Getenv("CLICKHOUSE_PASSWORD"); v != "" {
			w.ClickHouse.Password = v
		}
		if v := os.Getenv("CLICKHOUSE_NATIVE_PORT"); v != "" {
			port, err := strconv.Atoi(v)
			if err != nil {
				return fmt.Errorf("invalid CLICKHOUSE_NATIVE_PORT: %w", err)
			}
			w.ClickHouse.Port = port
		}
	}

	return nil
}

// Validate checks that durations parse and that the engine can be built from the config.
func (c *Config) Validate() error {
	switch c.Aggregator.Backend {
	case BackendExact, BackendSketch:
	default:
		return fmt.Errorf("unknown aggregator backend: '%s'", c.Aggregator.Backend)
	}
	if c.Aggregator.Decimals < 0 || c.Aggregator.Decimals > MaxDecimals {
		return fmt.Errorf("aggregator decimals must be in [0, %d], got %d", MaxDecimals, c.Aggregator.Decimals)
	}
	if a := c.Aggregator.Sketch.Alpha; a <= 0 || a >= 1 {
		return fmt.Errorf("sketch.alpha must be in (0, 1), got %v", a)
	}
	if _, err := c.Aggregator.PeriodDuration(); err != nil {
		return err
	}
	for _, w := range c.Aggregator.Writers {
		if !w.Enabled {
			continue
		}
		if _, err := w.Interval(); err != nil {
			return err
		}
	}
	if d, err := time.ParseDuration(c.Probe.PublishInterval); err != nil || d <= 0 {
		return fmt.Errorf("invalid publish_interval for probe: '%s'", c.Probe.PublishInterval)
	}
	if c.Alerter.Enabled {
		if _, err := time.ParseDuration(c.Alerter.CheckInterval); err != nil {
			return fmt.Errorf("invalid check_interval for alerter: %w", err)
		}
	}
	return nil
}

// Interval returns the parsed snapshot interval of the writer.
func (w WriterDef) Interval() (time.Duration, error) {
	interval, err := time.ParseDuration(w.SnapshotInterval)
	if err != nil {
		return 0, fmt.Errorf("invalid snapshot_interval for writer type '%s': %w", w.Type, err)
	}
	return interval, nil
}

// PeriodDuration returns the measurement period. Zero means state is never reset.
func (a AggregatorConfig) PeriodDuration() (time.Duration, error) {
	if a.Period == "" {
		return 0, nil
	}
	period, err := time.ParseDuration(a.Period)
	if err != nil {
		return 0, fmt.Errorf("invalid aggregator period: %w", err)
	}
	if period < 0 {
		return 0, fmt.Errorf("aggregator period must not be negative")
	}
	return period, nil
}
