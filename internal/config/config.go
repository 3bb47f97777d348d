// Package config loads and validates service configuration via Viper.
package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config captures all service configuration knobs loaded via Viper.
type Config struct {
	Server       ServerConfig       `mapstructure:"server"`
	Orchestrator OrchestratorConfig `mapstructure:"orchestrator"`
	Retry        RetryConfig        `mapstructure:"retry"`
	Pipeline     PipelineConfig     `mapstructure:"pipeline"`
	Storage      StorageConfig      `mapstructure:"storage"`
	DB           DBConfig           `mapstructure:"db"`
	PubSub       PubSubConfig       `mapstructure:"pubsub"`
	Summarizer   SummarizerConfig   `mapstructure:"summarizer"`
	Logging      LoggingConfig      `mapstructure:"logging"`
	Sources      []SourceConfig     `mapstructure:"sources"`
}

// SourceConfig declares one extraction source handled by the list-page
// extractor.
type SourceConfig struct {
	ID            string `mapstructure:"id"`
	BaseURL       string `mapstructure:"base_url"`
	ItemSelector  string `mapstructure:"item_selector"`
	TitleSelector string `mapstructure:"title_selector"`
	LinkSelector  string `mapstructure:"link_selector"`
	DateSelector  string `mapstructure:"date_selector"`
	UserAgent     string `mapstructure:"user_agent"`
	MaxDocuments  int    `mapstructure:"max_documents"`
	Enabled       *bool  `mapstructure:"enabled"`
}

// ServerConfig controls HTTP server behavior.
type ServerConfig struct {
	Port int `mapstructure:"port"`
}

// OrchestratorConfig governs concurrency and queue admission.
type OrchestratorConfig struct {
	MaxConcurrentJobs        int `mapstructure:"max_concurrent_jobs"`
	QueueDrainSeconds        int `mapstructure:"queue_drain_seconds"`
	ExtractionTimeoutMinutes int `mapstructure:"extraction_timeout_minutes"`
}

// RetryConfig controls the retry supervisor.
type RetryConfig struct {
	MaxAttempts      int `mapstructure:"max_attempts"`
	BaseDelaySeconds int `mapstructure:"base_delay_seconds"`
}

// PipelineConfig controls document content shaping.
type PipelineConfig struct {
	SummaryThreshold int `mapstructure:"summary_threshold"`
	SummaryMaxLength int `mapstructure:"summary_max_length"`
}

// StorageConfig selects and parameterizes the artifact file store.
type StorageConfig struct {
	Provider  string `mapstructure:"provider"`
	BaseDir   string `mapstructure:"base_dir"`
	GCSBucket string `mapstructure:"gcs_bucket"`
	Prefix    string `mapstructure:"prefix"`
}

// DBConfig controls access to the relational database.
type DBConfig struct {
	Provider string `mapstructure:"provider"`
	DSN      string `mapstructure:"dsn"`
	MaxConns int32  `mapstructure:"max_conns"`
}

// PubSubConfig holds metadata for the terminal-event publisher.
type PubSubConfig struct {
	Enabled   bool   `mapstructure:"enabled"`
	ProjectID string `mapstructure:"project_id"`
	TopicName string `mapstructure:"topic_name"`
}

// SummarizerConfig points at the external content-processor service.
type SummarizerConfig struct {
	Endpoint       string `mapstructure:"endpoint"`
	TimeoutSeconds int    `mapstructure:"timeout_seconds"`
}

// LoggingConfig toggles zap development features.
type LoggingConfig struct {
	Development bool   `mapstructure:"development"`
	Level       string `mapstructure:"level"`
}

// Load builds a Config from disk/environment.
func Load(path string) (Config, error) {
	v := viper.New()
	v.SetEnvPrefix("DOCSTREAM")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	setDefaults(v)

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return Config{}, fmt.Errorf("read config: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, fmt.Errorf("unmarshal config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}

	return cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("server.port", 8080)
	v.SetDefault("orchestrator.max_concurrent_jobs", 3)
	v.SetDefault("orchestrator.queue_drain_seconds", 5)
	v.SetDefault("orchestrator.extraction_timeout_minutes", 10)
	v.SetDefault("retry.max_attempts", 3)
	v.SetDefault("retry.base_delay_seconds", 2)
	v.SetDefault("pipeline.summary_threshold", 1000)
	v.SetDefault("pipeline.summary_max_length", 10000)
	v.SetDefault("storage.provider", "local")
	v.SetDefault("storage.base_dir", "./artifacts")
	v.SetDefault("storage.prefix", "documents")
	v.SetDefault("db.provider", "memory")
	v.SetDefault("summarizer.timeout_seconds", 30)
	v.SetDefault("logging.development", true)
}

// Validate enforces required values and reasonable limits.
func (c Config) Validate() error {
	if c.Server.Port <= 0 {
		return fmt.Errorf("server.port must be > 0")
	}
	if c.Orchestrator.MaxConcurrentJobs <= 0 {
		return fmt.Errorf("orchestrator.max_concurrent_jobs must be > 0")
	}
	if c.Orchestrator.QueueDrainSeconds <= 0 {
		return fmt.Errorf("orchestrator.queue_drain_seconds must be > 0")
	}
	if c.Retry.MaxAttempts <= 0 {
		return fmt.Errorf("retry.max_attempts must be > 0")
	}
	if c.Pipeline.SummaryMaxLength < c.Pipeline.SummaryThreshold {
		return fmt.Errorf("pipeline.summary_max_length must be >= pipeline.summary_threshold")
	}
	switch c.Storage.Provider {
	case "local", "gcs", "memory":
	default:
		return fmt.Errorf("unknown storage provider %q", c.Storage.Provider)
	}
	if c.Storage.Provider == "gcs" && c.Storage.GCSBucket == "" {
		return fmt.Errorf("storage.gcs_bucket must be set when storage.provider is gcs")
	}
	switch c.DB.Provider {
	case "postgres", "memory":
	default:
		return fmt.Errorf("unknown db provider %q", c.DB.Provider)
	}
	if c.DB.Provider == "postgres" && c.DB.DSN == "" {
		return fmt.Errorf("db.dsn must be set when db.provider is postgres")
	}
	if c.PubSub.Enabled && (c.PubSub.ProjectID == "" || c.PubSub.TopicName == "") {
		return fmt.Errorf("pubsub.project_id and pubsub.topic_name must be set when pubsub is enabled")
	}
	for i, src := range c.Sources {
		if src.ID == "" {
			return fmt.Errorf("sources[%d].id is required", i)
		}
		if src.BaseURL == "" {
			return fmt.Errorf("sources[%d].base_url is required", i)
		}
		if src.ItemSelector == "" {
			return fmt.Errorf("sources[%d].item_selector is required", i)
		}
	}
	return nil
}

// QueueDrainInterval returns the queue admission period as a duration.
func (c Config) QueueDrainInterval() time.Duration {
	return time.Duration(c.Orchestrator.QueueDrainSeconds) * time.Second
}

// ExtractionTimeout returns the hard per-job extraction ceiling.
func (c Config) ExtractionTimeout() time.Duration {
	return time.Duration(c.Orchestrator.ExtractionTimeoutMinutes) * time.Minute
}

// RetryBaseDelay returns the base backoff unit for the retry supervisor.
func (c Config) RetryBaseDelay() time.Duration {
	return time.Duration(c.Retry.BaseDelaySeconds) * time.Second
}
