package monitoring

import (
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Sampling checks
const (
	CheckOpenedFile = "opened_file"
	CheckCandidate  = "candidate"
)

// Background unit outcomes
const (
	UnitCompleted = "completed"
	UnitCancelled = "cancelled"
	UnitRejected  = "rejected"
	UnitPanicked  = "panicked"
)

// Opened-file logging outcomes
const (
	LogLogged      = "logged"
	LogFailed      = "failed"
	LogBreakerOpen = "skipped_breaker_open"
	LogSinkFailed  = "sink_failed"
)

// Metrics holds all Prometheus metrics
type Metrics struct {
	// HTTP metrics
	RequestsTotal   *prometheus.CounterVec
	RequestDuration *prometheus.HistogramVec

	// Navigation metrics
	NavigationEvents  *prometheus.CounterVec
	LightSkipped      prometheus.Counter
	SamplingDecisions *prometheus.CounterVec
	SessionsCreated   prometheus.Counter
	Predictions       prometheus.Counter

	// Background work metrics
	Units            *prometheus.CounterVec
	QueueDepth       prometheus.Gauge
	HistoryFallbacks prometheus.Counter

	// Opened-file logging metrics
	OpenedFileLogs *prometheus.CounterVec
	LogDuration    prometheus.Histogram
	RefsDuration   prometheus.Histogram

	// Event sink metrics
	EventsWritten  *prometheus.CounterVec
	EventsRejected *prometheus.CounterVec

	// Project metrics
	ProjectsActive prometheus.Gauge

	// System metrics
	Uptime    prometheus.GaugeFunc
	startTime time.Time

	// Snapshot for the JSON health endpoint
	snapshot Snapshot
	mu       sync.RWMutex
}

// Snapshot holds current counter values for the JSON API
type Snapshot struct {
	Events          int64 `json:"events"`
	Sampled         int64 `json:"sampled"`
	Logged          int64 `json:"logged"`
	LogFailures     int64 `json:"log_failures"`
	Predictions     int64 `json:"predictions"`
	UnitsCancelled  int64 `json:"units_cancelled"`
	UnitsRejected   int64 `json:"units_rejected"`
	UptimeSeconds   int64 `json:"uptime_seconds"`
	ActiveProjects  int64 `json:"active_projects"`
	SessionsCreated int64 `json:"sessions_created"`
}

var durationBuckets = []float64{.001, .005, .01, .025, .05, .1, .25, .5, 1, 2.5, 5, 10}

// NewMetrics creates a new metrics collector registered on reg
func NewMetrics(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)
	m := &Metrics{
		startTime: time.Now(),

		// HTTP metrics
		RequestsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "fileprediction_http_requests_total",
				Help: "Total number of HTTP requests",
			},
			[]string{"method", "route", "status"},
		),
		RequestDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "fileprediction_http_request_duration_seconds",
				Help:    "HTTP request duration in seconds",
				Buckets: durationBuckets,
			},
			[]string{"method", "route"},
		),

		// Navigation metrics
		NavigationEvents: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "fileprediction_navigation_events_total",
				Help: "Navigation notifications received",
			},
			[]string{"kind"},
		),
		LightSkipped: factory.NewCounter(
			prometheus.CounterOpts{
				Name: "fileprediction_light_project_events_total",
				Help: "Notifications ignored because the project is light",
			},
		),
		SamplingDecisions: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "fileprediction_sampling_decisions_total",
				Help: "Sampling decisions by check and outcome",
			},
			[]string{"check", "outcome"},
		),
		SessionsCreated: factory.NewCounter(
			prometheus.CounterOpts{
				Name: "fileprediction_sessions_created_total",
				Help: "Navigation sessions created",
			},
		),
		Predictions: factory.NewCounter(
			prometheus.CounterOpts{
				Name: "fileprediction_predictions_total",
				Help: "Next-file predictions triggered",
			},
		),

		// Background work metrics
		Units: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "fileprediction_background_units_total",
				Help: "Background units by outcome",
			},
			[]string{"outcome"},
		),
		QueueDepth: factory.NewGauge(
			prometheus.GaugeOpts{
				Name: "fileprediction_background_queue_depth",
				Help: "Background units waiting to run",
			},
		),
		HistoryFallbacks: factory.NewCounter(
			prometheus.CounterOpts{
				Name: "fileprediction_history_inline_updates_total",
				Help: "Selections whose unit was rejected and whose history was updated inline",
			},
		),

		// Opened-file logging metrics
		OpenedFileLogs: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "fileprediction_opened_file_logs_total",
				Help: "Opened-file logging attempts by outcome",
			},
			[]string{"outcome"},
		),
		LogDuration: factory.NewHistogram(
			prometheus.HistogramOpts{
				Name:    "fileprediction_opened_file_log_duration_seconds",
				Help:    "Duration of reference calculation plus feature extraction",
				Buckets: durationBuckets,
			},
		),
		RefsDuration: factory.NewHistogram(
			prometheus.HistogramOpts{
				Name:    "fileprediction_references_duration_seconds",
				Help:    "Duration reported by the reference calculator",
				Buckets: durationBuckets,
			},
		),

		// Event sink metrics
		EventsWritten: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "fileprediction_events_written_total",
				Help: "Event records written by sink and kind",
			},
			[]string{"sink", "kind"},
		),
		EventsRejected: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "fileprediction_events_rejected_total",
				Help: "Event records refused while the sink breaker was open",
			},
			[]string{"sink"},
		),

		// Project metrics
		ProjectsActive: factory.NewGauge(
			prometheus.GaugeOpts{
				Name: "fileprediction_projects_active",
				Help: "Number of open projects",
			},
		),
	}

	m.Uptime = factory.NewGaugeFunc(
		prometheus.GaugeOpts{
			Name: "fileprediction_uptime_seconds",
			Help: "Service uptime in seconds",
		},
		func() float64 { return time.Since(m.startTime).Seconds() },
	)

	return m
}

// RecordHTTPRequest records an HTTP request
func (m *Metrics) RecordHTTPRequest(method, route, status string, duration time.Duration) {
	if m == nil {
		return
	}
	m.RequestsTotal.WithLabelValues(method, route, status).Inc()
	m.RequestDuration.WithLabelValues(method, route).Observe(duration.Seconds())
}

// RecordNavigation records an incoming navigation notification
func (m *Metrics) RecordNavigation(kind string) {
	if m == nil {
		return
	}
	m.NavigationEvents.WithLabelValues(kind).Inc()
	m.mu.Lock()
	m.snapshot.Events++
	m.mu.Unlock()
}

// RecordLightSkip records a notification dropped for a light project
func (m *Metrics) RecordLightSkip() {
	if m == nil {
		return
	}
	m.LightSkipped.Inc()
}

// RecordSampling records one sampling decision
func (m *Metrics) RecordSampling(check string, sampled bool) {
	if m == nil {
		return
	}
	outcome := "skipped"
	if sampled {
		outcome = "sampled"
		m.mu.Lock()
		m.snapshot.Sampled++
		m.mu.Unlock()
	}
	m.SamplingDecisions.WithLabelValues(check, outcome).Inc()
}

// IncSessionsCreated increments the sessions counter
func (m *Metrics) IncSessionsCreated() {
	if m == nil {
		return
	}
	m.SessionsCreated.Inc()
	m.mu.Lock()
	m.snapshot.SessionsCreated++
	m.mu.Unlock()
}

// IncPredictions increments the predictions counter
func (m *Metrics) IncPredictions() {
	if m == nil {
		return
	}
	m.Predictions.Inc()
	m.mu.Lock()
	m.snapshot.Predictions++
	m.mu.Unlock()
}

// RecordUnit records how a background unit ended
func (m *Metrics) RecordUnit(outcome string) {
	if m == nil {
		return
	}
	m.Units.WithLabelValues(outcome).Inc()
	m.mu.Lock()
	switch outcome {
	case UnitCancelled:
		m.snapshot.UnitsCancelled++
	case UnitRejected:
		m.snapshot.UnitsRejected++
	}
	m.mu.Unlock()
}

// SetQueueDepth sets the number of queued units
func (m *Metrics) SetQueueDepth(n int) {
	if m == nil {
		return
	}
	m.QueueDepth.Set(float64(n))
}

// RecordHistoryFallback records a history update made outside the background unit
func (m *Metrics) RecordHistoryFallback() {
	if m == nil {
		return
	}
	m.HistoryFallbacks.Inc()
}

// RecordOpenedFileLog records the outcome of one opened-file logging attempt
func (m *Metrics) RecordOpenedFileLog(outcome string, total, refs time.Duration) {
	if m == nil {
		return
	}
	m.OpenedFileLogs.WithLabelValues(outcome).Inc()
	if outcome == LogLogged {
		m.LogDuration.Observe(total.Seconds())
		m.RefsDuration.Observe(refs.Seconds())
	}
	m.mu.Lock()
	switch outcome {
	case LogLogged:
		m.snapshot.Logged++
	case LogFailed, LogSinkFailed:
		m.snapshot.LogFailures++
	}
	m.mu.Unlock()
}

// RecordEventWritten records a record persisted by a sink
func (m *Metrics) RecordEventWritten(sink, kind string) {
	if m == nil {
		return
	}
	m.EventsWritten.WithLabelValues(sink, kind).Inc()
}

// RecordEventRejected records a record refused by an open sink breaker
func (m *Metrics) RecordEventRejected(sink string) {
	if m == nil {
		return
	}
	m.EventsRejected.WithLabelValues(sink).Inc()
}

// SetProjectsActive sets the number of open projects
func (m *Metrics) SetProjectsActive(count int) {
	if m == nil {
		return
	}
	m.ProjectsActive.Set(float64(count))
	m.mu.Lock()
	m.snapshot.ActiveProjects = int64(count)
	m.mu.Unlock()
}

// GetSnapshot returns current values for the JSON API
func (m *Metrics) GetSnapshot() Snapshot {
	if m == nil {
		return Snapshot{}
	}
	m.mu.RLock()
	defer m.mu.RUnlock()

	s := m.snapshot
	s.UptimeSeconds = int64(time.Since(m.startTime).Seconds())
	return s
}
