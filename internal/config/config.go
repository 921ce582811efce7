package config

import (
	"errors"
	"fmt"
	"time"

	"github.com/GriffinCanCode/fileprediction/internal/domain/sampling"
	"github.com/kelseyhightower/envconfig"
)

// Config holds all application configuration.
type Config struct {
	Server     ServerConfig
	Logging    LogConfig
	Sampling   SamplingConfig
	Executor   ExecutorConfig
	EventLog   EventLogConfig
	Prediction PredictionConfig
	Breaker    BreakerConfig
	RateLimit  RateLimitConfig
	CORS       CORSConfig
}

// ServerConfig holds HTTP server configuration.
type ServerConfig struct {
	Port string `envconfig:"PORT" default:"8000"`
	Host string `envconfig:"HOST" default:"0.0.0.0"`
}

// LogConfig holds logging configuration.
type LogConfig struct {
	Level       string `envconfig:"LOG_LEVEL" default:"info"`
	Development bool   `envconfig:"LOG_DEV" default:"false"`
}

// SamplingConfig holds the sampling probabilities.
type SamplingConfig struct {
	OpenedFileProbability float64 `envconfig:"SAMPLING_OPENED_FILE_PROBABILITY" default:"0.5"`
	CandidateProbability  float64 `envconfig:"SAMPLING_CANDIDATE_PROBABILITY" default:"0.1"`
}

// ExecutorConfig holds background pool configuration.
type ExecutorConfig struct {
	Workers   int `envconfig:"EXECUTOR_WORKERS" default:"2"`
	QueueSize int `envconfig:"EXECUTOR_QUEUE_SIZE" default:"256"`
}

// EventLogConfig selects the event sink.
type EventLogConfig struct {
	Driver string `envconfig:"EVENT_LOG_DRIVER" default:"jsonl"`
	Path   string `envconfig:"EVENT_LOG_PATH" default:"data/events.jsonl"`
}

// PredictionConfig holds the default collaborator limits.
type PredictionConfig struct {
	HistoryLimit          int      `envconfig:"HISTORY_LIMIT" default:"50"`
	RefsLimit             int      `envconfig:"PREDICTOR_REFS_LIMIT" default:"50"`
	Candidates            int      `envconfig:"PREDICTOR_CANDIDATES" default:"10"`
	LogTop                int      `envconfig:"PREDICTOR_LOG_TOP" default:"5"`
	ReferencesExclude     []string `envconfig:"REFERENCES_EXCLUDE" default:"**/.git/**,**/node_modules/**,**/vendor/**"`
	ReferencesMaxFileSize int64    `envconfig:"REFERENCES_MAX_FILE_SIZE" default:"1048576"`
}

// BreakerConfig holds circuit breaker configuration.
type BreakerConfig struct {
	MaxFailures uint32        `envconfig:"BREAKER_MAX_FAILURES" default:"5"`
	Timeout     time.Duration `envconfig:"BREAKER_TIMEOUT" default:"30s"`
}

// RateLimitConfig holds rate limiting configuration.
type RateLimitConfig struct {
	RequestsPerSecond int  `envconfig:"RATE_LIMIT_RPS" default:"100"`
	Burst             int  `envconfig:"RATE_LIMIT_BURST" default:"200"`
	Enabled           bool `envconfig:"RATE_LIMIT_ENABLED" default:"true"`
}

// CORSConfig holds the origins allowed to call the API from a browser.
type CORSConfig struct {
	AllowOrigins []string `envconfig:"CORS_ALLOW_ORIGINS" default:"*"`
}

// Load loads configuration from environment variables.
func Load() (*Config, error) {
	var cfg Config
	if err := envconfig.Process("", &cfg); err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// LoadOrDefault loads configuration from environment or returns default.
func LoadOrDefault() *Config {
	cfg, err := Load()
	if err != nil {
		return Default()
	}
	return cfg
}

// Default returns default configuration.
func Default() *Config {
	return &Config{
		Server: ServerConfig{
			Port: "8000",
			Host: "0.0.0.0",
		},
		Logging: LogConfig{
			Level:       "info",
			Development: false,
		},
		Sampling: SamplingConfig{
			OpenedFileProbability: sampling.DefaultOpenedFileProbability,
			CandidateProbability:  sampling.DefaultCandidateProbability,
		},
		Executor: ExecutorConfig{
			Workers:   2,
			QueueSize: 256,
		},
		EventLog: EventLogConfig{
			Driver: "jsonl",
			Path:   "data/events.jsonl",
		},
		Prediction: PredictionConfig{
			HistoryLimit:          50,
			RefsLimit:             50,
			Candidates:            10,
			LogTop:                5,
			ReferencesExclude:     []string{"**/.git/**", "**/node_modules/**", "**/vendor/**"},
			ReferencesMaxFileSize: 1 << 20,
		},
		Breaker: BreakerConfig{
			MaxFailures: 5,
			Timeout:     30 * time.Second,
		},
		RateLimit: RateLimitConfig{
			RequestsPerSecond: 100,
			Burst:             200,
			Enabled:           true,
		},
		CORS: CORSConfig{
			AllowOrigins: []string{"*"},
		},
	}
}

// Validate checks values envconfig cannot.
func (c *Config) Validate() error {
	var errs []error

	if err := sampling.Validate(c.Sampling.OpenedFileProbability); err != nil {
		errs = append(errs, fmt.Errorf("SAMPLING_OPENED_FILE_PROBABILITY: %w", err))
	}
	if err := sampling.Validate(c.Sampling.CandidateProbability); err != nil {
		errs = append(errs, fmt.Errorf("SAMPLING_CANDIDATE_PROBABILITY: %w", err))
	}
	if c.Executor.Workers < 1 {
		errs = append(errs, fmt.Errorf("EXECUTOR_WORKERS must be positive, got %d", c.Executor.Workers))
	}
	if c.Executor.QueueSize < 1 {
		errs = append(errs, fmt.Errorf("EXECUTOR_QUEUE_SIZE must be positive, got %d", c.Executor.QueueSize))
	}
	switch c.EventLog.Driver {
	case "jsonl", "sqlite":
		if c.EventLog.Path == "" {
			errs = append(errs, fmt.Errorf("EVENT_LOG_PATH required for driver %q", c.EventLog.Driver))
		}
	case "discard":
	default:
		errs = append(errs, fmt.Errorf("EVENT_LOG_DRIVER %q not supported", c.EventLog.Driver))
	}
	if c.Prediction.HistoryLimit < 1 || c.Prediction.RefsLimit < 1 || c.Prediction.Candidates < 1 || c.Prediction.LogTop < 1 {
		errs = append(errs, errors.New("prediction limits must be positive"))
	}
	if c.RateLimit.Enabled && (c.RateLimit.RequestsPerSecond < 1 || c.RateLimit.Burst < 1) {
		errs = append(errs, errors.New("rate limit requires positive RATE_LIMIT_RPS and RATE_LIMIT_BURST"))
	}

	if len(c.CORS.AllowOrigins) == 0 {
		errs = append(errs, errors.New("CORS_ALLOW_ORIGINS must not be empty"))
	}

	return errors.Join(errs...)
}
