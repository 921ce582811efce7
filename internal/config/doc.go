// Package config provides 12-factor configuration for the file prediction service.
//
// Configuration is loaded from environment variables with sensible defaults.
//
// Configuration Sections:
//   - Server: HTTP server settings (port, host)
//   - Logging: Log level and output format
//   - Sampling: probabilities of the opened-file and candidate checks
//   - Executor: background worker pool size and queue length
//   - EventLog: event sink driver and location
//   - Prediction: history, reference and candidate limits
//   - Breaker: circuit breaker around event log writes
//   - RateLimit: Per-IP rate limiting configuration
//   - CORS: browser origins allowed to call the API
//
// Example Usage:
//
//	cfg := config.LoadOrDefault()
//	fmt.Printf("Server running on %s:%s\n", cfg.Server.Host, cfg.Server.Port)
//
// Environment Variables:
//   - PORT, HOST
//   - LOG_LEVEL, LOG_DEV
//   - SAMPLING_OPENED_FILE_PROBABILITY, SAMPLING_CANDIDATE_PROBABILITY
//   - EXECUTOR_WORKERS, EXECUTOR_QUEUE_SIZE
//   - EVENT_LOG_DRIVER, EVENT_LOG_PATH
//   - HISTORY_LIMIT, PREDICTOR_REFS_LIMIT, PREDICTOR_CANDIDATES, PREDICTOR_LOG_TOP
//   - REFERENCES_EXCLUDE, REFERENCES_MAX_FILE_SIZE
//   - BREAKER_MAX_FAILURES, BREAKER_TIMEOUT
//   - RATE_LIMIT_RPS, RATE_LIMIT_BURST, RATE_LIMIT_ENABLED
//   - CORS_ALLOW_ORIGINS
package config
