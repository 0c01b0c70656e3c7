// Package metrics provides metrics collection and reporting for the
// storefront load generator.
package metrics

import (
	"maps"
	"slices"
	"sync"
	"sync/atomic"
	"time"
)

// Page types double as the metric dimension; keep them in sync with
// the session package's vocabulary plus the action pseudo-pages.
const (
	PageAddToCart  = "add-to-cart"
	PageCartUpdate = "cart-update"
	PageCartRemove = "cart-remove"
	PageCoupon     = "coupon"
	PageAPI        = "api"
)

// Collector aggregates load test metrics per page type:
// - Request counts (total, success, failure)
// - Latency distribution (min, avg, p50, p95, p99, max)
// - Journey progress counters
//
// Thread Safety: Safe for concurrent use by multiple goroutines.
type Collector struct {
	mu sync.RWMutex

	// Global counters
	totalRequests   atomic.Int64
	successRequests atomic.Int64
	failedRequests  atomic.Int64
	totalBytes      atomic.Int64

	// Journey-level counters
	journeysStarted   atomic.Int64
	journeysCompleted atomic.Int64
	checkouts         atomic.Int64
	itemsAdded        atomic.Int64

	// Latency tracking (stored as nanoseconds for precision)
	latencies    []int64
	latencyMu    sync.RWMutex
	maxLatencies int

	// Per-page-type statistics
	pageStats   map[string]*PageStats
	pageStatsMu sync.RWMutex

	// Status code tracking
	statusCodes   map[int]int64
	statusCodesMu sync.RWMutex

	// Timing
	startTime time.Time
	endTime   time.Time
}

// Sample retention limits.
const (
	defaultMaxLatencies     = 100000
	defaultPageMaxLatencies = 10000
)

// PageStats holds statistics for a single page type.
type PageStats struct {
	mu sync.RWMutex

	Name            string
	TotalRequests   int64
	SuccessRequests int64
	FailedRequests  int64
	TotalLatencyNs  int64
	MinLatency      time.Duration
	MaxLatency      time.Duration
	TotalBytes      int64
	latencies       []int64
}

// Result represents the outcome of a single request.
type Result struct {
	PageType     string
	URL          string
	StatusCode   int
	Latency      time.Duration
	Success      bool
	ResponseSize int64
	Timestamp    time.Time
	Error        error
}

// Snapshot represents a point-in-time snapshot of all metrics.
type Snapshot struct {
	// Timing
	StartTime time.Time
	EndTime   time.Time
	Duration  time.Duration

	// Request counts
	TotalRequests   int64
	SuccessRequests int64
	FailedRequests  int64
	TotalBytes      int64

	// Journey counters
	JourneysStarted   int64
	JourneysCompleted int64
	Checkouts         int64
	ItemsAdded        int64

	// Latency distribution
	MinLatency time.Duration
	AvgLatency time.Duration
	P50Latency time.Duration
	P95Latency time.Duration
	P99Latency time.Duration
	MaxLatency time.Duration

	// Derived metrics
	SuccessRate float64 // 0.0 - 100.0 percentage
	QPS         float64 // Requests per second

	// Status code distribution
	StatusCodes map[int]int64

	// Per-page-type statistics
	PageStats map[string]*PageSnapshot
}

// PageSnapshot represents a snapshot of one page type's statistics.
type PageSnapshot struct {
	Name            string
	TotalRequests   int64
	SuccessRequests int64
	FailedRequests  int64
	TotalBytes      int64
	MinLatency      time.Duration
	AvgLatency      time.Duration
	P50Latency      time.Duration
	P95Latency      time.Duration
	P99Latency      time.Duration
	MaxLatency      time.Duration
	SuccessRate     float64
	QPS             float64
}

// NewCollector creates a new metrics collector.
func NewCollector() *Collector {
	return &Collector{
		latencies:    make([]int64, 0, defaultMaxLatencies),
		maxLatencies: defaultMaxLatencies,
		pageStats:    make(map[string]*PageStats),
		statusCodes:  make(map[int]int64),
	}
}

// Start marks the beginning of metrics collection.
func (c *Collector) Start() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.startTime = time.Now()
}

// Stop marks the end of metrics collection.
func (c *Collector) Stop() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.endTime = time.Now()
}

// Record records a request result.
func (c *Collector) Record(result Result) {
	c.totalRequests.Add(1)
	if result.Success {
		c.successRequests.Add(1)
	} else {
		c.failedRequests.Add(1)
	}
	c.totalBytes.Add(result.ResponseSize)

	c.recordLatency(result.Latency.Nanoseconds())

	if result.StatusCode > 0 {
		c.recordStatusCode(result.StatusCode)
	}

	if result.PageType != "" {
		c.recordPageResult(result)
	}
}

// JourneyStarted counts one virtual-user journey beginning.
func (c *Collector) JourneyStarted() {
	c.journeysStarted.Add(1)
}

// JourneyCompleted counts one journey running to its natural end.
func (c *Collector) JourneyCompleted() {
	c.journeysCompleted.Add(1)
}

// CheckoutCompleted counts one checkout page reached with a non-empty
// cart.
func (c *Collector) CheckoutCompleted() {
	c.checkouts.Add(1)
}

// ItemAdded counts one successful add-to-cart.
func (c *Collector) ItemAdded() {
	c.itemsAdded.Add(1)
}

// recordLatency adds a latency sample using a sliding window approach.
// When capacity is exceeded, older samples are discarded to keep a view
// of recent performance rather than a historical average.
func (c *Collector) recordLatency(latencyNs int64) {
	c.latencyMu.Lock()
	defer c.latencyMu.Unlock()

	if len(c.latencies) >= c.maxLatencies {
		halfSize := c.maxLatencies / 2
		c.latencies = c.latencies[len(c.latencies)-halfSize:]
	}

	c.latencies = append(c.latencies, latencyNs)
}

// recordStatusCode increments the count for a status code.
func (c *Collector) recordStatusCode(code int) {
	c.statusCodesMu.Lock()
	defer c.statusCodesMu.Unlock()
	c.statusCodes[code]++
}

// recordPageResult records statistics for one page type.
func (c *Collector) recordPageResult(result Result) {
	c.pageStatsMu.Lock()
	stats, ok := c.pageStats[result.PageType]
	if !ok {
		stats = &PageStats{
			Name:      result.PageType,
			latencies: make([]int64, 0, defaultPageMaxLatencies),
		}
		c.pageStats[result.PageType] = stats
	}
	c.pageStatsMu.Unlock()

	stats.mu.Lock()
	defer stats.mu.Unlock()

	stats.TotalRequests++
	if result.Success {
		stats.SuccessRequests++
	} else {
		stats.FailedRequests++
	}

	latencyNs := result.Latency.Nanoseconds()
	stats.TotalLatencyNs += latencyNs
	stats.TotalBytes += result.ResponseSize

	if stats.MinLatency == 0 || result.Latency < stats.MinLatency {
		stats.MinLatency = result.Latency
	}
	if result.Latency > stats.MaxLatency {
		stats.MaxLatency = result.Latency
	}

	if len(stats.latencies) >= defaultPageMaxLatencies {
		halfSize := defaultPageMaxLatencies / 2
		stats.latencies = stats.latencies[len(stats.latencies)-halfSize:]
	}
	stats.latencies = append(stats.latencies, latencyNs)
}

// Snapshot returns a point-in-time snapshot of all metrics.
func (c *Collector) Snapshot() Snapshot {
	c.mu.RLock()
	startTime := c.startTime
	endTime := c.endTime
	c.mu.RUnlock()

	var duration time.Duration
	if !startTime.IsZero() {
		if endTime.IsZero() {
			duration = time.Since(startTime)
		} else {
			duration = endTime.Sub(startTime)
		}
	}

	totalRequests := c.totalRequests.Load()
	successRequests := c.successRequests.Load()
	failedRequests := c.failedRequests.Load()
	totalBytes := c.totalBytes.Load()

	minLat, avgLat, p50Lat, p95Lat, p99Lat, maxLat := c.calculateLatencyStats()

	var successRate float64
	if totalRequests > 0 {
		successRate = float64(successRequests) / float64(totalRequests) * 100
	}

	var qps float64
	if duration > 0 {
		qps = float64(totalRequests) / duration.Seconds()
	}

	return Snapshot{
		StartTime:         startTime,
		EndTime:           endTime,
		Duration:          duration,
		TotalRequests:     totalRequests,
		SuccessRequests:   successRequests,
		FailedRequests:    failedRequests,
		TotalBytes:        totalBytes,
		JourneysStarted:   c.journeysStarted.Load(),
		JourneysCompleted: c.journeysCompleted.Load(),
		Checkouts:         c.checkouts.Load(),
		ItemsAdded:        c.itemsAdded.Load(),
		MinLatency:        minLat,
		AvgLatency:        avgLat,
		P50Latency:        p50Lat,
		P95Latency:        p95Lat,
		P99Latency:        p99Lat,
		MaxLatency:        maxLat,
		SuccessRate:       successRate,
		QPS:               qps,
		StatusCodes:       c.copyStatusCodes(),
		PageStats:         c.copyPageStats(duration),
	}
}

// calculateLatencyStats computes latency statistics from collected samples.
func (c *Collector) calculateLatencyStats() (min, avg, p50, p95, p99, max time.Duration) {
	c.latencyMu.RLock()
	latenciesCopy := make([]int64, len(c.latencies))
	copy(latenciesCopy, c.latencies)
	c.latencyMu.RUnlock()

	if len(latenciesCopy) == 0 {
		return 0, 0, 0, 0, 0, 0
	}

	slices.Sort(latenciesCopy)

	var sum int64
	for _, lat := range latenciesCopy {
		sum += lat
	}

	n := len(latenciesCopy)
	min = time.Duration(latenciesCopy[0])
	max = time.Duration(latenciesCopy[n-1])
	avg = time.Duration(sum / int64(n))
	p50 = time.Duration(latenciesCopy[percentileIndex(n, 0.50)])
	p95 = time.Duration(latenciesCopy[percentileIndex(n, 0.95)])
	p99 = time.Duration(latenciesCopy[percentileIndex(n, 0.99)])

	return min, avg, p50, p95, p99, max
}

// percentileIndex returns the index for a given percentile.
func percentileIndex(n int, percentile float64) int {
	idx := int(float64(n) * percentile)
	if idx >= n {
		idx = n - 1
	}
	if idx < 0 {
		idx = 0
	}
	return idx
}

// copyStatusCodes creates a copy of the status code map.
func (c *Collector) copyStatusCodes() map[int]int64 {
	c.statusCodesMu.RLock()
	defer c.statusCodesMu.RUnlock()

	result := make(map[int]int64, len(c.statusCodes))
	maps.Copy(result, c.statusCodes)
	return result
}

// copyPageStats creates snapshots of all page-type statistics.
func (c *Collector) copyPageStats(totalDuration time.Duration) map[string]*PageSnapshot {
	c.pageStatsMu.RLock()
	defer c.pageStatsMu.RUnlock()

	result := make(map[string]*PageSnapshot, len(c.pageStats))
	for name, stats := range c.pageStats {
		result[name] = stats.snapshot(totalDuration)
	}
	return result
}

// snapshot creates a snapshot of one page type's statistics.
func (s *PageStats) snapshot(totalDuration time.Duration) *PageSnapshot {
	s.mu.RLock()
	defer s.mu.RUnlock()

	snapshot := &PageSnapshot{
		Name:            s.Name,
		TotalRequests:   s.TotalRequests,
		SuccessRequests: s.SuccessRequests,
		FailedRequests:  s.FailedRequests,
		TotalBytes:      s.TotalBytes,
		MinLatency:      s.MinLatency,
		MaxLatency:      s.MaxLatency,
	}

	if s.TotalRequests > 0 {
		snapshot.AvgLatency = time.Duration(s.TotalLatencyNs / s.TotalRequests)
		snapshot.SuccessRate = float64(s.SuccessRequests) / float64(s.TotalRequests) * 100
	}

	if totalDuration > 0 {
		snapshot.QPS = float64(s.TotalRequests) / totalDuration.Seconds()
	}

	if len(s.latencies) > 0 {
		latenciesCopy := make([]int64, len(s.latencies))
		copy(latenciesCopy, s.latencies)
		slices.Sort(latenciesCopy)

		n := len(latenciesCopy)
		snapshot.P50Latency = time.Duration(latenciesCopy[percentileIndex(n, 0.50)])
		snapshot.P95Latency = time.Duration(latenciesCopy[percentileIndex(n, 0.95)])
		snapshot.P99Latency = time.Duration(latenciesCopy[percentileIndex(n, 0.99)])
	}

	return snapshot
}

// GetTotalRequests returns the current total request count.
func (c *Collector) GetTotalRequests() int64 {
	return c.totalRequests.Load()
}

// GetSuccessRate returns the current success rate (0.0 - 100.0).
func (c *Collector) GetSuccessRate() float64 {
	total := c.totalRequests.Load()
	if total == 0 {
		return 0
	}
	return float64(c.successRequests.Load()) / float64(total) * 100
}

// GetCurrentQPS returns the current requests per second.
func (c *Collector) GetCurrentQPS() float64 {
	c.mu.RLock()
	startTime := c.startTime
	c.mu.RUnlock()

	if startTime.IsZero() {
		return 0
	}

	duration := time.Since(startTime)
	if duration <= 0 {
		return 0
	}

	return float64(c.totalRequests.Load()) / duration.Seconds()
}

// Duration returns the elapsed duration since start.
func (c *Collector) Duration() time.Duration {
	c.mu.RLock()
	startTime := c.startTime
	endTime := c.endTime
	c.mu.RUnlock()

	if startTime.IsZero() {
		return 0
	}
	if endTime.IsZero() {
		return time.Since(startTime)
	}
	return endTime.Sub(startTime)
}
