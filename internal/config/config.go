package config

import (
	"errors"
	"io/fs"
	"path/filepath"
	"strings"

	"github.com/joho/godotenv"
	"github.com/rotisserie/eris"
	"github.com/spf13/viper"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Config holds the full application configuration.
type Config struct {
	Store      StoreConfig      `yaml:"store" mapstructure:"store"`
	Source     SourceConfig     `yaml:"source" mapstructure:"source"`
	Run        RunConfig        `yaml:"run" mapstructure:"run"`
	Extract    ExtractConfig    `yaml:"extract" mapstructure:"extract"`
	Reconcile  ReconcileConfig  `yaml:"reconcile" mapstructure:"reconcile"`
	Fetch      FetchConfig      `yaml:"fetch" mapstructure:"fetch"`
	Log        LogConfig        `yaml:"log" mapstructure:"log"`
	Monitoring MonitoringConfig `yaml:"monitoring" mapstructure:"monitoring"`
}

// StoreConfig configures the award store.
type StoreConfig struct {
	Driver      string `yaml:"driver" mapstructure:"driver"`
	DatabaseURL string `yaml:"database_url" mapstructure:"database_url"`
	MaxConns    int32  `yaml:"max_conns" mapstructure:"max_conns"`
	MinConns    int32  `yaml:"min_conns" mapstructure:"min_conns"`
}

// SourceConfig locates the document archive.
type SourceConfig struct {
	Root string `yaml:"root" mapstructure:"root"`
}

// RunConfig configures batch runs.
type RunConfig struct {
	StartYear       int    `yaml:"start_year" mapstructure:"start_year"`
	EndYear         int    `yaml:"end_year" mapstructure:"end_year"`
	YearConcurrency int    `yaml:"year_concurrency" mapstructure:"year_concurrency"`
	ReportPath      string `yaml:"report_path" mapstructure:"report_path"`
}

// ExtractConfig configures rule-set selection. An empty RuleSet selects by era.
type ExtractConfig struct {
	RuleSet string `yaml:"rule_set" mapstructure:"rule_set"`
}

// ReconcileConfig configures cross-source reconciliation.
type ReconcileConfig struct {
	AliasFile string `yaml:"alias_file" mapstructure:"alias_file"`
}

// FetchConfig configures document retrieval.
type FetchConfig struct {
	BaseURL          string `yaml:"base_url" mapstructure:"base_url"`
	UserAgent        string `yaml:"user_agent" mapstructure:"user_agent"`
	DelayMs          int    `yaml:"delay_ms" mapstructure:"delay_ms"`
	TimeoutSecs      int    `yaml:"timeout_secs" mapstructure:"timeout_secs"`
	MaxAttempts      int    `yaml:"max_attempts" mapstructure:"max_attempts"`
	InitialBackoffMs int    `yaml:"initial_backoff_ms" mapstructure:"initial_backoff_ms"`
	MaxBackoffMs     int    `yaml:"max_backoff_ms" mapstructure:"max_backoff_ms"`
	MaxIndexPages    int    `yaml:"max_index_pages" mapstructure:"max_index_pages"`
}

// MonitoringConfig configures post-run health alerts. Zero thresholds
// disable their check; an empty WebhookURL only logs alerts.
type MonitoringConfig struct {
	WebhookURL      string  `yaml:"webhook_url" mapstructure:"webhook_url"`
	MinSuccessRate  float64 `yaml:"min_success_rate" mapstructure:"min_success_rate"`
	MaxCriticalRate float64 `yaml:"max_critical_rate" mapstructure:"max_critical_rate"`
	MaxDLQDepth     int     `yaml:"max_dlq_depth" mapstructure:"max_dlq_depth"`
}

// LogConfig configures logging.
type LogConfig struct {
	Level  string `yaml:"level" mapstructure:"level"`
	Format string `yaml:"format" mapstructure:"format"`
}

// Load reads configuration from an optional .env file, config.yaml and the
// environment.
func Load() (*Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, eris.Wrap(err, "config: read .env")
	}

	v := viper.New()

	// Config file
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")

	// Environment
	v.SetEnvPrefix("AWARDS")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// Defaults
	v.SetDefault("store.driver", "sqlite")
	v.SetDefault("store.database_url", "")
	v.SetDefault("store.max_conns", 10)
	v.SetDefault("store.min_conns", 2)
	v.SetDefault("source.root", "archive")
	v.SetDefault("run.start_year", 2005)
	v.SetDefault("run.end_year", 2025)
	v.SetDefault("run.year_concurrency", 1)
	v.SetDefault("run.report_path", "")
	v.SetDefault("extract.rule_set", "")
	v.SetDefault("reconcile.alias_file", "")
	v.SetDefault("fetch.base_url", "")
	v.SetDefault("fetch.user_agent", "awards-cli/1.0")
	v.SetDefault("fetch.delay_ms", 1000)
	v.SetDefault("fetch.timeout_secs", 30)
	v.SetDefault("fetch.max_attempts", 3)
	v.SetDefault("fetch.initial_backoff_ms", 500)
	v.SetDefault("fetch.max_backoff_ms", 30000)
	v.SetDefault("fetch.max_index_pages", 50)
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "json")
	v.SetDefault("monitoring.webhook_url", "")
	v.SetDefault("monitoring.min_success_rate", 95.0)
	v.SetDefault("monitoring.max_critical_rate", 0.10)
	v.SetDefault("monitoring.max_dlq_depth", 0)

	// Read config file (optional)
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, eris.Wrap(err, "config: read file")
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, eris.Wrap(err, "config: unmarshal")
	}

	return &cfg, nil
}

// Validate rejects configurations no command can run with.
func (c *Config) Validate() error {
	switch c.Store.Driver {
	case "sqlite":
	case "postgres":
		if c.Store.DatabaseURL == "" {
			return eris.New("config: store.database_url is required for postgres")
		}
	default:
		return eris.Errorf("config: unknown store.driver %q", c.Store.Driver)
	}
	if c.Run.StartYear <= 0 || c.Run.EndYear <= 0 {
		return eris.New("config: run.start_year and run.end_year must be positive")
	}
	if c.Run.StartYear > c.Run.EndYear {
		return eris.Errorf("config: run.start_year %d is after run.end_year %d", c.Run.StartYear, c.Run.EndYear)
	}
	if c.Run.YearConcurrency <= 0 {
		return eris.Errorf("config: run.year_concurrency must be positive, got %d", c.Run.YearConcurrency)
	}
	if c.Monitoring.MinSuccessRate < 0 || c.Monitoring.MinSuccessRate > 100 {
		return eris.Errorf("config: monitoring.min_success_rate must be within 0-100, got %v", c.Monitoring.MinSuccessRate)
	}
	if c.Source.Root == "" {
		return eris.New("config: source.root is required")
	}
	return nil
}

// Years returns the configured year range, inclusive.
func (c *Config) Years() []int {
	var years []int
	for y := c.Run.StartYear; y <= c.Run.EndYear; y++ {
		years = append(years, y)
	}
	return years
}

// ReportPath returns where run reports are written: run.report_path when
// set, otherwise run-report.json next to the store.
func (c *Config) ReportPath() string {
	if c.Run.ReportPath != "" {
		return c.Run.ReportPath
	}
	if c.Store.Driver == "sqlite" && c.Store.DatabaseURL != "" {
		return filepath.Join(filepath.Dir(c.Store.DatabaseURL), "run-report.json")
	}
	return "run-report.json"
}

// InitLogger initializes the global zap logger.
func InitLogger(cfg LogConfig) error {
	var zapCfg zap.Config
	if cfg.Format == "console" {
		zapCfg = zap.NewDevelopmentConfig()
	} else {
		zapCfg = zap.NewProductionConfig()
	}

	level, err := zapcore.ParseLevel(cfg.Level)
	if err != nil {
		return eris.Wrap(err, "config: parse log level")
	}
	zapCfg.Level.SetLevel(level)

	logger, err := zapCfg.Build()
	if err != nil {
		return eris.Wrap(err, "config: build logger")
	}
	zap.ReplaceGlobals(logger)

	return nil
}
