package metrics

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	dto "github.com/prometheus/client_model/go"
)

// Prometheus metric names.
const (
	MetricRequestsTotal          = "shopload_requests_total"
	MetricRequestDurationSeconds = "shopload_request_duration_seconds"
	MetricCurrentQPS             = "shopload_current_qps"
	MetricSuccessRate            = "shopload_success_rate"
	MetricActiveVUs              = "shopload_active_vus"
	MetricResponseBytesTotal     = "shopload_response_bytes_total"
	MetricJourneysStartedTotal   = "shopload_journeys_started_total"
	MetricJourneysCompletedTotal = "shopload_journeys_completed_total"
	MetricCheckoutsTotal         = "shopload_checkouts_total"
	MetricItemsAddedTotal        = "shopload_items_added_total"
)

// PrometheusExporter exposes live load test metrics on an HTTP endpoint
// for Prometheus to scrape.
//
// Thread Safety: Safe for concurrent use by multiple goroutines.
type PrometheusExporter struct {
	mu sync.RWMutex

	config PrometheusExporterConfig

	registry *prometheus.Registry

	requestsTotal          *prometheus.CounterVec
	requestDurationSeconds *prometheus.HistogramVec
	responseBytesTotal     prometheus.Counter
	currentQPS             prometheus.Gauge
	successRate            prometheus.Gauge
	activeVUs              prometheus.Gauge
	journeysStarted        prometheus.Counter
	journeysCompleted      prometheus.Counter
	checkouts              prometheus.Counter
	itemsAdded             prometheus.Counter

	server *http.Server
	ln     net.Listener

	running bool

	lastError error
}

// PrometheusExporterConfig holds configuration for the Prometheus exporter.
type PrometheusExporterConfig struct {
	// Port is the HTTP port for the metrics endpoint.
	// Default: 9090
	Port int

	// Path is the URL path for the metrics endpoint.
	// Default: /metrics
	Path string

	// HistogramBuckets are the histogram buckets for request duration.
	// Default: prometheus.DefBuckets
	HistogramBuckets []float64
}

// DefaultPrometheusExporterConfig returns default configuration.
func DefaultPrometheusExporterConfig() PrometheusExporterConfig {
	return PrometheusExporterConfig{
		Port:             9090,
		Path:             "/metrics",
		HistogramBuckets: prometheus.DefBuckets,
	}
}

// NewPrometheusExporter creates a new Prometheus exporter.
func NewPrometheusExporter(config PrometheusExporterConfig) *PrometheusExporter {
	if config.Port == 0 {
		config.Port = 9090
	}
	if config.Path == "" {
		config.Path = "/metrics"
	}
	if len(config.HistogramBuckets) == 0 {
		config.HistogramBuckets = prometheus.DefBuckets
	}

	// Own registry so the default Go runtime collectors stay out of the
	// scrape output.
	registry := prometheus.NewRegistry()

	exporter := &PrometheusExporter{
		config:   config,
		registry: registry,
	}

	exporter.initMetrics()

	return exporter
}

// initMetrics initializes all Prometheus metrics.
func (e *PrometheusExporter) initMetrics() {
	e.requestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: MetricRequestsTotal,
			Help: "Total number of storefront requests made by the load generator.",
		},
		[]string{"page_type", "status", "success"},
	)

	e.requestDurationSeconds = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    MetricRequestDurationSeconds,
			Help:    "Duration of storefront requests in seconds.",
			Buckets: e.config.HistogramBuckets,
		},
		[]string{"page_type"},
	)

	e.responseBytesTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: MetricResponseBytesTotal,
			Help: "Total bytes received from all responses.",
		},
	)

	e.currentQPS = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: MetricCurrentQPS,
			Help: "Current requests per second rate.",
		},
	)

	e.successRate = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: MetricSuccessRate,
			Help: "Current request success rate (0.0-100.0).",
		},
	)

	e.activeVUs = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: MetricActiveVUs,
			Help: "Number of currently active virtual users.",
		},
	)

	e.journeysStarted = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: MetricJourneysStartedTotal,
			Help: "Total number of user journeys started.",
		},
	)

	e.journeysCompleted = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: MetricJourneysCompletedTotal,
			Help: "Total number of user journeys that ran to completion.",
		},
	)

	e.checkouts = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: MetricCheckoutsTotal,
			Help: "Total number of checkouts reached with a non-empty cart.",
		},
	)

	e.itemsAdded = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: MetricItemsAddedTotal,
			Help: "Total number of items successfully added to carts.",
		},
	)

	e.registry.MustRegister(
		e.requestsTotal,
		e.requestDurationSeconds,
		e.responseBytesTotal,
		e.currentQPS,
		e.successRate,
		e.activeVUs,
		e.journeysStarted,
		e.journeysCompleted,
		e.checkouts,
		e.itemsAdded,
	)
}

// Start starts the HTTP server for the metrics endpoint.
func (e *PrometheusExporter) Start() error {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.running {
		return nil
	}

	addr := fmt.Sprintf(":%d", e.config.Port)
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return fmt.Errorf("starting Prometheus exporter: %w", err)
	}
	e.ln = ln

	mux := http.NewServeMux()
	mux.Handle(e.config.Path, promhttp.HandlerFor(e.registry, promhttp.HandlerOpts{
		EnableOpenMetrics: true,
	}))

	// Health check endpoint
	mux.HandleFunc("/health", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("OK"))
	})

	e.server = &http.Server{
		Handler:           mux,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		if err := e.server.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			e.mu.Lock()
			e.lastError = err
			e.mu.Unlock()
		}
	}()

	e.running = true
	return nil
}

// Stop stops the HTTP server.
func (e *PrometheusExporter) Stop(ctx context.Context) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	if !e.running {
		return nil
	}

	e.running = false

	if e.server != nil {
		return e.server.Shutdown(ctx)
	}
	return nil
}

// RecordRequest records a single request result.
func (e *PrometheusExporter) RecordRequest(result Result) {
	pageType := result.PageType
	if pageType == "" {
		pageType = "unknown"
	}

	statusLabel := fmt.Sprintf("%d", result.StatusCode)
	successLabel := "true"
	if !result.Success {
		successLabel = "false"
	}
	e.requestsTotal.WithLabelValues(pageType, statusLabel, successLabel).Inc()

	e.requestDurationSeconds.WithLabelValues(pageType).Observe(result.Latency.Seconds())

	e.responseBytesTotal.Add(float64(result.ResponseSize))
}

// JourneyStarted counts one journey beginning.
func (e *PrometheusExporter) JourneyStarted() {
	e.journeysStarted.Inc()
}

// JourneyCompleted counts one journey running to its natural end.
func (e *PrometheusExporter) JourneyCompleted() {
	e.journeysCompleted.Inc()
}

// CheckoutCompleted counts one checkout reached with a non-empty cart.
func (e *PrometheusExporter) CheckoutCompleted() {
	e.checkouts.Inc()
}

// ItemAdded counts one successful add-to-cart.
func (e *PrometheusExporter) ItemAdded() {
	e.itemsAdded.Inc()
}

// UpdateActiveVUs updates the active virtual users gauge.
func (e *PrometheusExporter) UpdateActiveVUs(count int) {
	e.activeVUs.Set(float64(count))
}

// UpdateFromSnapshot updates the derived gauges from a collector snapshot.
func (e *PrometheusExporter) UpdateFromSnapshot(snapshot Snapshot) {
	e.currentQPS.Set(snapshot.QPS)
	e.successRate.Set(snapshot.SuccessRate)
}

// GetPort returns the configured port.
func (e *PrometheusExporter) GetPort() int {
	return e.config.Port
}

// GetPath returns the configured path.
func (e *PrometheusExporter) GetPath() string {
	return e.config.Path
}

// GetAddress returns the full address for the metrics endpoint.
func (e *PrometheusExporter) GetAddress() string {
	return fmt.Sprintf("http://localhost:%d%s", e.config.Port, e.config.Path)
}

// IsRunning returns whether the exporter is running.
func (e *PrometheusExporter) IsRunning() bool {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.running
}

// LastError returns the last error from the HTTP server, if any.
func (e *PrometheusExporter) LastError() error {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.lastError
}

// Gather collects all metrics from the registry (for testing).
func (e *PrometheusExporter) Gather() ([]*dto.MetricFamily, error) {
	return e.registry.Gather()
}
