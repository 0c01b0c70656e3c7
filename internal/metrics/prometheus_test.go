package metrics

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"
	"testing"
	"time"

	dto "github.com/prometheus/client_model/go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewPrometheusExporter(t *testing.T) {
	t.Run("default config", func(t *testing.T) {
		exporter := NewPrometheusExporter(PrometheusExporterConfig{})

		require.NotNil(t, exporter)
		assert.Equal(t, 9090, exporter.GetPort())
		assert.Equal(t, "/metrics", exporter.GetPath())
		assert.False(t, exporter.IsRunning())
	})

	t.Run("custom config", func(t *testing.T) {
		exporter := NewPrometheusExporter(PrometheusExporterConfig{
			Port: 8080,
			Path: "/custom-metrics",
		})

		require.NotNil(t, exporter)
		assert.Equal(t, 8080, exporter.GetPort())
		assert.Equal(t, "/custom-metrics", exporter.GetPath())
	})
}

func TestDefaultPrometheusExporterConfig(t *testing.T) {
	config := DefaultPrometheusExporterConfig()

	assert.Equal(t, 9090, config.Port)
	assert.Equal(t, "/metrics", config.Path)
	assert.NotEmpty(t, config.HistogramBuckets)
}

func TestPrometheusExporterStartStop(t *testing.T) {
	config := PrometheusExporterConfig{
		Port: 19090 + int(time.Now().UnixNano()%1000),
	}
	exporter := NewPrometheusExporter(config)

	err := exporter.Start()
	require.NoError(t, err)
	assert.True(t, exporter.IsRunning())

	// Starting again is a no-op
	err = exporter.Start()
	require.NoError(t, err)

	// Health endpoint responds while running
	healthURL := fmt.Sprintf("http://localhost:%d/health", config.Port)
	resp, err := http.Get(healthURL)
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	err = exporter.Stop(ctx)
	require.NoError(t, err)
	assert.False(t, exporter.IsRunning())
}

func TestPrometheusExporterScrape(t *testing.T) {
	config := PrometheusExporterConfig{
		Port: 19090 + int(time.Now().UnixNano()%1000),
	}
	exporter := NewPrometheusExporter(config)

	exporter.RecordRequest(Result{
		PageType:     "product",
		StatusCode:   200,
		Latency:      50 * time.Millisecond,
		Success:      true,
		ResponseSize: 2048,
	})

	err := exporter.Start()
	require.NoError(t, err)
	defer func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = exporter.Stop(ctx)
	}()

	resp, err := http.Get(exporter.GetAddress())
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)

	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)

	output := string(body)
	assert.Contains(t, output, MetricRequestsTotal)
	assert.True(t, strings.Contains(output, `page_type="product"`))
}

func TestPrometheusExporterRecordRequest(t *testing.T) {
	exporter := NewPrometheusExporter(PrometheusExporterConfig{})

	exporter.RecordRequest(Result{
		PageType:     "category",
		StatusCode:   200,
		Latency:      20 * time.Millisecond,
		Success:      true,
		ResponseSize: 1024,
	})
	exporter.RecordRequest(Result{
		PageType:     "category",
		StatusCode:   500,
		Latency:      120 * time.Millisecond,
		Success:      false,
		ResponseSize: 256,
	})

	families, err := exporter.Gather()
	require.NoError(t, err)

	requests := findMetricFamily(families, MetricRequestsTotal)
	require.NotNil(t, requests)

	var success, failure float64
	for _, m := range requests.Metric {
		labels := labelMap(m)
		require.Equal(t, "category", labels["page_type"])
		if labels["success"] == "true" {
			success += m.Counter.GetValue()
		} else {
			failure += m.Counter.GetValue()
		}
	}
	assert.Equal(t, 1.0, success)
	assert.Equal(t, 1.0, failure)

	bytes := findMetricFamily(families, MetricResponseBytesTotal)
	require.NotNil(t, bytes)
	require.Len(t, bytes.Metric, 1)
	assert.Equal(t, 1280.0, bytes.Metric[0].Counter.GetValue())
}

func TestPrometheusExporterEmptyPageType(t *testing.T) {
	exporter := NewPrometheusExporter(PrometheusExporterConfig{})

	exporter.RecordRequest(Result{
		StatusCode: 200,
		Latency:    5 * time.Millisecond,
		Success:    true,
	})

	families, err := exporter.Gather()
	require.NoError(t, err)

	requests := findMetricFamily(families, MetricRequestsTotal)
	require.NotNil(t, requests)
	require.Len(t, requests.Metric, 1)
	assert.Equal(t, "unknown", labelMap(requests.Metric[0])["page_type"])
}

func TestPrometheusExporterJourneyCounters(t *testing.T) {
	exporter := NewPrometheusExporter(PrometheusExporterConfig{})

	exporter.JourneyStarted()
	exporter.JourneyStarted()
	exporter.JourneyCompleted()
	exporter.ItemAdded()
	exporter.ItemAdded()
	exporter.ItemAdded()
	exporter.CheckoutCompleted()

	families, err := exporter.Gather()
	require.NoError(t, err)

	assert.Equal(t, 2.0, counterValue(t, families, MetricJourneysStartedTotal))
	assert.Equal(t, 1.0, counterValue(t, families, MetricJourneysCompletedTotal))
	assert.Equal(t, 3.0, counterValue(t, families, MetricItemsAddedTotal))
	assert.Equal(t, 1.0, counterValue(t, families, MetricCheckoutsTotal))
}

func TestPrometheusExporterGauges(t *testing.T) {
	exporter := NewPrometheusExporter(PrometheusExporterConfig{})

	exporter.UpdateActiveVUs(25)
	exporter.UpdateFromSnapshot(Snapshot{
		QPS:         42.5,
		SuccessRate: 99.1,
	})

	families, err := exporter.Gather()
	require.NoError(t, err)

	assert.Equal(t, 25.0, gaugeValue(t, families, MetricActiveVUs))
	assert.Equal(t, 42.5, gaugeValue(t, families, MetricCurrentQPS))
	assert.Equal(t, 99.1, gaugeValue(t, families, MetricSuccessRate))
}

func TestPrometheusExporterStopNotRunning(t *testing.T) {
	exporter := NewPrometheusExporter(PrometheusExporterConfig{})

	ctx := context.Background()
	err := exporter.Stop(ctx)
	assert.NoError(t, err)
}

// findMetricFamily returns the metric family with the given name, or nil.
func findMetricFamily(families []*dto.MetricFamily, name string) *dto.MetricFamily {
	for _, f := range families {
		if f.GetName() == name {
			return f
		}
	}
	return nil
}

// labelMap converts a metric's label pairs to a map.
func labelMap(m *dto.Metric) map[string]string {
	labels := make(map[string]string, len(m.Label))
	for _, pair := range m.Label {
		labels[pair.GetName()] = pair.GetValue()
	}
	return labels
}

// counterValue returns the value of a single-series counter family.
func counterValue(t *testing.T, families []*dto.MetricFamily, name string) float64 {
	t.Helper()
	family := findMetricFamily(families, name)
	require.NotNil(t, family, "metric family %s not found", name)
	require.Len(t, family.Metric, 1)
	return family.Metric[0].Counter.GetValue()
}

// gaugeValue returns the value of a single-series gauge family.
func gaugeValue(t *testing.T, families []*dto.MetricFamily, name string) float64 {
	t.Helper()
	family := findMetricFamily(families, name)
	require.NotNil(t, family, "metric family %s not found", name)
	require.Len(t, family.Metric, 1)
	return family.Metric[0].Gauge.GetValue()
}
