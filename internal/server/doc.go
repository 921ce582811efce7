// Package server wires the file prediction service together.
//
// This package orchestrates all components:
//   - Logger, Prometheus registry and metrics
//   - Background executor, tracer and event sink
//   - Project registry, workspace factory and navigation service
//   - Gin routing with recovery, access logging, metrics, CORS and rate limiting
//
// Server Lifecycle:
//  1. Load configuration from environment
//  2. Initialize logger (production or development)
//  3. Open the event sink
//  4. Start the background executor
//  5. Setup HTTP routes and middleware
//  6. Start HTTP server
//  7. On shutdown: stop accepting requests, dispose projects, drain the
//     executor, flush spans and close the sink
//
// Example Usage:
//
//	cfg := config.LoadOrDefault()
//	srv, err := server.NewServer(cfg)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	if err := srv.Run(ctx); err != nil {
//	    log.Fatal(err)
//	}
package server
