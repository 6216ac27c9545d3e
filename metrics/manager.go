package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Manager holds the pubforms request, form and backend metrics.
type Manager struct {
	// counters
	CounterRequests          *prometheus.CounterVec
	CounterSubmissions       *prometheus.CounterVec
	CounterValidationFailure *prometheus.CounterVec
	CounterFileSelections    *prometheus.CounterVec
	CounterCategoryFetches   *prometheus.CounterVec

	// histograms
	HistRequestDuration *prometheus.HistogramVec
	HistBackendDuration *prometheus.HistogramVec
}

// NewTestManager registers on a fresh registry so tests can create many.
func NewTestManager() *Manager {
	return NewManager("pubforms", "test", prometheus.NewRegistry())
}

func NewTestManagerAndRegistry() (*Manager, *prometheus.Registry) {
	reg := prometheus.NewRegistry()
	return NewManager("pubforms", "test", reg), reg
}

// NewManager creates the metrics and registers them on reg.
func NewManager(namespace, subsystem string, reg prometheus.Registerer) *Manager {
	factory := promauto.With(reg)

	return &Manager{
		CounterRequests: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: subsystem,
			Name:      "request",
			Help:      "The total number of incoming requests",
		}, []string{"method", "status"}),
		CounterSubmissions: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: subsystem,
			Name:      "form_submissions",
			Help:      "Form submissions relayed to the backend, by page and outcome",
		}, []string{"page", "outcome"}),
		CounterValidationFailure: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: subsystem,
			Name:      "form_validation_failures",
			Help:      "Submits stopped by the validator, by page",
		}, []string{"page"}),
		CounterFileSelections: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: subsystem,
			Name:      "file_selections",
			Help:      "Selected files, by page and whether the file validator accepted them",
		}, []string{"page", "accepted"}),
		CounterCategoryFetches: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: subsystem,
			Name:      "category_fetches",
			Help:      "Category list reads, by source (cache or backend)",
		}, []string{"source"}),
		HistRequestDuration: factory.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: subsystem,
			Buckets:   []float64{0.001, 0.005, 0.01, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10},
			Name:      "request_duration_seconds",
			Help:      "Duration of incoming requests in seconds",
		}, []string{"method"}),
		HistBackendDuration: factory.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: subsystem,
			Buckets:   []float64{0.005, 0.01, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30},
			Name:      "backend_request_duration_seconds",
			Help:      "Duration of backend API calls in seconds, by endpoint",
		}, []string{"endpoint"}),
	}
}
