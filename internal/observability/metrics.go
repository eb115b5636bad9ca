package observability

import (
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// Session metrics
	activeSessions = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "speech_scorer_active_sessions",
		Help: "Number of active recording sessions",
	})

	totalSessions = promauto.NewCounter(prometheus.CounterOpts{
		Name: "speech_scorer_sessions_total",
		Help: "Total number of recording sessions processed",
	})

	sessionDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "speech_scorer_session_duration_seconds",
		Help:    "Duration of recording sessions in seconds",
		Buckets: []float64{1, 5, 10, 30, 60, 120, 300, 600},
	})

	audioBytesReceived = promauto.NewCounter(prometheus.CounterOpts{
		Name: "speech_scorer_audio_bytes_total",
		Help: "Total audio bytes received for analysis",
	})

	// Analysis metrics
	analysesTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "speech_scorer_analyses_total",
		Help: "Total number of completed analyses",
	}, []string{"bucket"})

	analysisDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "speech_scorer_analysis_duration_seconds",
		Help:    "Scoring pipeline latency in seconds",
		Buckets: []float64{0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1.0, 2.5},
	})

	overallScores = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "speech_scorer_overall_score",
		Help:    "Distribution of overall scores",
		Buckets: []float64{10, 20, 30, 40, 50, 60, 70, 80, 90, 100},
	})

	metricScores = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "speech_scorer_metric_score",
		Help:    "Distribution of per-metric scores",
		Buckets: []float64{10, 20, 30, 40, 50, 60, 70, 80, 90, 100},
	}, []string{"metric"})

	// Transcription metrics
	sttRequests = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "speech_scorer_stt_requests_total",
		Help: "Total number of transcription requests",
	}, []string{"status"})

	sttLatency = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "speech_scorer_stt_latency_seconds",
		Help:    "Transcription latency in seconds",
		Buckets: []float64{0.1, 0.25, 0.5, 1.0, 2.0, 5.0, 10.0},
	})

	// Settings metrics
	settingsReloads = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "speech_scorer_settings_reloads_total",
		Help: "Total settings file reload attempts",
	}, []string{"layer", "status"})

	// Error metrics
	errorsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "speech_scorer_errors_total",
		Help: "Total number of errors",
	}, []string{"type", "component"})

	// Circuit breaker metrics
	circuitBreakerState = promauto.NewGaugeVec(prometheus.GaugeOpts{
		Name: "speech_scorer_circuit_breaker_state",
		Help: "Circuit breaker state (0=closed, 1=open, 2=half-open)",
	}, []string{"service"})

	circuitBreakerFailures = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "speech_scorer_circuit_breaker_failures_total",
		Help: "Total circuit breaker failures",
	}, []string{"service"})
)

// Metrics tracks metrics for a single recording session
type Metrics struct {
	sessionID    string
	startTime    time.Time
	sttStartTime time.Time
	mu           sync.Mutex
}

// NewSessionMetrics creates a new metrics tracker for a session
func NewSessionMetrics(sessionID string) *Metrics {
	return &Metrics{
		sessionID: sessionID,
		startTime: time.Now(),
	}
}

// RecordSessionStart records the start of a recording session
func (m *Metrics) RecordSessionStart() {
	activeSessions.Inc()
	totalSessions.Inc()
}

// RecordSessionEnd records the end of a recording session
func (m *Metrics) RecordSessionEnd() {
	activeSessions.Dec()
	sessionDuration.Observe(time.Since(m.startTime).Seconds())
}

// RecordSTTStart records the start of a transcription request
func (m *Metrics) RecordSTTStart() {
	m.mu.Lock()
	m.sttStartTime = time.Now()
	m.mu.Unlock()
}

// RecordSTTEnd records the end of a transcription request
func (m *Metrics) RecordSTTEnd(success bool) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if !m.sttStartTime.IsZero() {
		sttLatency.Observe(time.Since(m.sttStartTime).Seconds())
	}

	status := "success"
	if !success {
		status = "error"
	}
	sttRequests.WithLabelValues(status).Inc()
}

// RecordError records an error
func (m *Metrics) RecordError(errorType, component string) {
	errorsTotal.WithLabelValues(errorType, component).Inc()
}

// RecordAudioBytes records audio bytes received
func (m *Metrics) RecordAudioBytes(bytes int64) {
	audioBytesReceived.Add(float64(bytes))
}

// RecordAnalysis records one completed analysis with its scores
func RecordAnalysis(bucket string, overall int, scores map[string]int, seconds float64) {
	analysesTotal.WithLabelValues(bucket).Inc()
	analysisDuration.Observe(seconds)
	overallScores.Observe(float64(overall))
	for metric, score := range scores {
		metricScores.WithLabelValues(metric).Observe(float64(score))
	}
}

// RecordSettingsReload records a settings layer reload attempt
func RecordSettingsReload(layer string, success bool) {
	status := "success"
	if !success {
		status = "error"
	}
	settingsReloads.WithLabelValues(layer, status).Inc()
}

// RecordComponentError records an error outside a session context
func RecordComponentError(errorType, component string) {
	errorsTotal.WithLabelValues(errorType, component).Inc()
}

// UpdateCircuitBreakerState updates circuit breaker state metric
func UpdateCircuitBreakerState(service string, state int) {
	circuitBreakerState.WithLabelValues(service).Set(float64(state))
}

// IncrementCircuitBreakerFailures increments circuit breaker failure counter
func IncrementCircuitBreakerFailures(service string) {
	circuitBreakerFailures.WithLabelValues(service).Inc()
}
