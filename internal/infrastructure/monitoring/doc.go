/*
Package monitoring provides metrics collection for the prediction service.

# Overview

This package implements Prometheus-based metrics for navigation handling:
how many events arrive, how often sampling selects them, how background
units end, and how long the opened-file logging path takes. HTTP request
metrics for the API are collected by a Gin middleware.

# Usage

	// Create metrics collector on a registry
	metrics := monitoring.NewMetrics(prometheus.DefaultRegisterer)

	// Add middleware to Gin router
	router.Use(monitoring.Middleware(metrics))

	// Record navigation outcomes
	metrics.RecordSampling(monitoring.CheckOpenedFile, true)
	metrics.RecordUnit(monitoring.UnitCompleted)

A nil *Metrics is valid and records nothing, which keeps unit tests free of
registry setup.

# Metrics Endpoint

Expose metrics via the standard Prometheus endpoint:

	router.GET("/metrics", gin.WrapH(promhttp.HandlerFor(registry, promhttp.HandlerOpts{})))
*/
package monitoring
