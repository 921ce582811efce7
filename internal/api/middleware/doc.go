// Package middleware provides the gin middleware of the HTTP API: CORS,
// per-IP and global rate limiting, and zap access logging.
package middleware
