package metrics

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"
)

// JSONReport represents a complete load test report in JSON format.
// It contains all information needed to analyze test results and can be
// parsed by external tools for further processing.
type JSONReport struct {
	// Metadata about the report
	Metadata ReportMetadata `json:"metadata"`

	// Configuration used for the test
	Configuration ReportConfiguration `json:"configuration"`

	// Summary statistics
	Summary ReportSummary `json:"summary"`

	// Journey-level statistics
	Journeys JourneyReport `json:"journeys"`

	// Per-page-type statistics
	Pages []PageReport `json:"pages"`

	// Status code distribution
	StatusCodes map[string]int64 `json:"statusCodes"`
}

// ReportMetadata contains metadata about the report.
type ReportMetadata struct {
	Version     string    `json:"version"`
	GeneratedAt time.Time `json:"generatedAt"`
	Generator   string    `json:"generator"`
}

// ReportConfiguration captures the test configuration.
type ReportConfiguration struct {
	Name          string   `json:"name"`
	Description   string   `json:"description,omitempty"`
	TargetBaseURL string   `json:"targetBaseURL"`
	Duration      Duration `json:"duration"`
	VUs           int      `json:"vus"`
	RampUp        Duration `json:"rampUp"`
	CheckoutRate  float64  `json:"checkoutRate"`
}

// Duration wraps time.Duration for JSON serialization.
type Duration struct {
	time.Duration
}

// MarshalJSON implements json.Marshaler for Duration.
func (d Duration) MarshalJSON() ([]byte, error) {
	return json.Marshal(map[string]any{
		"seconds": d.Seconds(),
		"display": formatDurationString(d.Duration),
	})
}

// UnmarshalJSON implements json.Unmarshaler for Duration.
func (d *Duration) UnmarshalJSON(data []byte) error {
	var obj map[string]any
	if err := json.Unmarshal(data, &obj); err != nil {
		return err
	}
	if seconds, ok := obj["seconds"].(float64); ok {
		d.Duration = time.Duration(seconds * float64(time.Second))
	}
	return nil
}

// ReportSummary contains overall test statistics.
type ReportSummary struct {
	// Timing information
	StartTime time.Time `json:"startTime"`
	EndTime   time.Time `json:"endTime"`
	Duration  Duration  `json:"duration"`

	// Request counts
	TotalRequests   int64 `json:"totalRequests"`
	SuccessRequests int64 `json:"successRequests"`
	FailedRequests  int64 `json:"failedRequests"`
	TotalBytes      int64 `json:"totalBytes"`

	// Derived metrics
	SuccessRate float64 `json:"successRate"`
	QPS         float64 `json:"qps"`
	BytesPerSec float64 `json:"bytesPerSecond"`

	// Latency statistics (in milliseconds for readability)
	Latency LatencyStats `json:"latency"`
}

// JourneyReport contains journey-level statistics.
type JourneyReport struct {
	Started        int64   `json:"started"`
	Completed      int64   `json:"completed"`
	Checkouts      int64   `json:"checkouts"`
	ItemsAdded     int64   `json:"itemsAdded"`
	CompletionRate float64 `json:"completionRate"`
	CheckoutRate   float64 `json:"checkoutRate"`
}

// LatencyStats contains latency statistics in milliseconds.
type LatencyStats struct {
	MinMs float64 `json:"minMs"`
	AvgMs float64 `json:"avgMs"`
	P50Ms float64 `json:"p50Ms"`
	P95Ms float64 `json:"p95Ms"`
	P99Ms float64 `json:"p99Ms"`
	MaxMs float64 `json:"maxMs"`
}

// PageReport contains statistics for a single page type.
type PageReport struct {
	PageType        string       `json:"pageType"`
	TotalRequests   int64        `json:"totalRequests"`
	SuccessRequests int64        `json:"successRequests"`
	FailedRequests  int64        `json:"failedRequests"`
	TotalBytes      int64        `json:"totalBytes"`
	SuccessRate     float64      `json:"successRate"`
	QPS             float64      `json:"qps"`
	Latency         LatencyStats `json:"latency"`
}

// Reporter generates JSON reports from test metrics.
type Reporter struct {
	version string
}

// NewReporter creates a new Reporter.
func NewReporter() *Reporter {
	return &Reporter{
		version: "1.0.0",
	}
}

// ReportOptions configures report generation.
type ReportOptions struct {
	// ConfigName is the name of the configuration used.
	ConfigName string

	// ConfigDescription is the description of the configuration.
	ConfigDescription string

	// TargetBaseURL is the target storefront URL.
	TargetBaseURL string

	// TestDuration is the configured test duration.
	TestDuration time.Duration

	// VUs is the configured number of virtual users.
	VUs int

	// RampUp is the configured ramp-up duration.
	RampUp time.Duration

	// CheckoutRate is the configured checkout probability.
	CheckoutRate float64
}

// GenerateReport creates a JSON report from a metrics snapshot.
func (r *Reporter) GenerateReport(snapshot Snapshot, opts ReportOptions) *JSONReport {
	report := &JSONReport{
		Metadata: ReportMetadata{
			Version:     r.version,
			GeneratedAt: time.Now().UTC(),
			Generator:   "shopload",
		},
		Configuration: ReportConfiguration{
			Name:          opts.ConfigName,
			Description:   opts.ConfigDescription,
			TargetBaseURL: opts.TargetBaseURL,
			Duration:      Duration{opts.TestDuration},
			VUs:           opts.VUs,
			RampUp:        Duration{opts.RampUp},
			CheckoutRate:  opts.CheckoutRate,
		},
		Summary:  r.buildSummary(snapshot),
		Journeys: r.buildJourneyReport(snapshot),
		StatusCodes: func() map[string]int64 {
			result := make(map[string]int64)
			for code, count := range snapshot.StatusCodes {
				result[fmt.Sprintf("%d", code)] = count
			}
			return result
		}(),
	}

	report.Pages = r.buildPageReports(snapshot)

	return report
}

// buildSummary creates the summary section from a snapshot.
func (r *Reporter) buildSummary(snapshot Snapshot) ReportSummary {
	var bytesPerSec float64
	if snapshot.Duration > 0 {
		bytesPerSec = float64(snapshot.TotalBytes) / snapshot.Duration.Seconds()
	}

	return ReportSummary{
		StartTime:       snapshot.StartTime,
		EndTime:         snapshot.EndTime,
		Duration:        Duration{snapshot.Duration},
		TotalRequests:   snapshot.TotalRequests,
		SuccessRequests: snapshot.SuccessRequests,
		FailedRequests:  snapshot.FailedRequests,
		TotalBytes:      snapshot.TotalBytes,
		SuccessRate:     snapshot.SuccessRate,
		QPS:             snapshot.QPS,
		BytesPerSec:     bytesPerSec,
		Latency:         convertLatencyStats(snapshot),
	}
}

// buildJourneyReport creates the journey section from a snapshot.
func (r *Reporter) buildJourneyReport(snapshot Snapshot) JourneyReport {
	report := JourneyReport{
		Started:    snapshot.JourneysStarted,
		Completed:  snapshot.JourneysCompleted,
		Checkouts:  snapshot.Checkouts,
		ItemsAdded: snapshot.ItemsAdded,
	}

	if snapshot.JourneysStarted > 0 {
		report.CompletionRate = float64(snapshot.JourneysCompleted) / float64(snapshot.JourneysStarted) * 100
		report.CheckoutRate = float64(snapshot.Checkouts) / float64(snapshot.JourneysStarted) * 100
	}

	return report
}

// convertLatencyStats converts duration-based latencies to milliseconds.
func convertLatencyStats(snapshot Snapshot) LatencyStats {
	return LatencyStats{
		MinMs: float64(snapshot.MinLatency.Nanoseconds()) / 1e6,
		AvgMs: float64(snapshot.AvgLatency.Nanoseconds()) / 1e6,
		P50Ms: float64(snapshot.P50Latency.Nanoseconds()) / 1e6,
		P95Ms: float64(snapshot.P95Latency.Nanoseconds()) / 1e6,
		P99Ms: float64(snapshot.P99Latency.Nanoseconds()) / 1e6,
		MaxMs: float64(snapshot.MaxLatency.Nanoseconds()) / 1e6,
	}
}

// buildPageReports creates page-type reports from a snapshot.
// Page types are sorted by name for deterministic output across runs.
func (r *Reporter) buildPageReports(snapshot Snapshot) []PageReport {
	names := make([]string, 0, len(snapshot.PageStats))
	for name := range snapshot.PageStats {
		names = append(names, name)
	}
	sort.Strings(names)

	reports := make([]PageReport, 0, len(names))

	for _, name := range names {
		stats := snapshot.PageStats[name]
		report := PageReport{
			PageType:        name,
			TotalRequests:   stats.TotalRequests,
			SuccessRequests: stats.SuccessRequests,
			FailedRequests:  stats.FailedRequests,
			TotalBytes:      stats.TotalBytes,
			SuccessRate:     stats.SuccessRate,
			QPS:             stats.QPS,
			Latency: LatencyStats{
				MinMs: float64(stats.MinLatency.Nanoseconds()) / 1e6,
				AvgMs: float64(stats.AvgLatency.Nanoseconds()) / 1e6,
				P50Ms: float64(stats.P50Latency.Nanoseconds()) / 1e6,
				P95Ms: float64(stats.P95Latency.Nanoseconds()) / 1e6,
				P99Ms: float64(stats.P99Latency.Nanoseconds()) / 1e6,
				MaxMs: float64(stats.MaxLatency.Nanoseconds()) / 1e6,
			},
		}
		reports = append(reports, report)
	}

	return reports
}

// ToJSON serializes a report to JSON bytes.
func (r *Reporter) ToJSON(report *JSONReport) ([]byte, error) {
	return json.MarshalIndent(report, "", "  ")
}

// WriteToFile writes a report to a file.
// The path supports template variables:
// - {{.Timestamp}} - Current timestamp in format YYYYMMDD-HHMMSS
// - {{.Date}} - Current date in format YYYY-MM-DD
// - {{.Time}} - Current time in format HHMMSS
func (r *Reporter) WriteToFile(report *JSONReport, path string) error {
	// Expand path templates
	expandedPath := expandPathTemplate(path)

	// Clean the path to normalize and prevent path traversal issues
	expandedPath = filepath.Clean(expandedPath)

	// Ensure directory exists
	dir := filepath.Dir(expandedPath)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("creating output directory: %w", err)
	}

	// Marshal to JSON
	data, err := r.ToJSON(report)
	if err != nil {
		return fmt.Errorf("marshaling report to JSON: %w", err)
	}

	// Write to file
	if err := os.WriteFile(expandedPath, data, 0644); err != nil {
		return fmt.Errorf("writing report file: %w", err)
	}

	return nil
}

// expandPathTemplate expands template variables in a path.
func expandPathTemplate(path string) string {
	now := time.Now()

	replacements := map[string]string{
		"{{.Timestamp}}": now.Format("20060102-150405"),
		"{{.Date}}":      now.Format("2006-01-02"),
		"{{.Time}}":      now.Format("150405"),
	}

	result := path
	for template, value := range replacements {
		result = strings.ReplaceAll(result, template, value)
	}

	return result
}

// formatDurationString formats a duration for display.
func formatDurationString(d time.Duration) string {
	if d < time.Minute {
		return fmt.Sprintf("%.1fs", d.Seconds())
	}
	if d < time.Hour {
		minutes := int(d.Minutes())
		seconds := int(d.Seconds()) % 60
		return fmt.Sprintf("%dm%ds", minutes, seconds)
	}
	hours := int(d.Hours())
	minutes := int(d.Minutes()) % 60
	return fmt.Sprintf("%dh%dm", hours, minutes)
}
