package metrics

import (
	"fmt"
	"sort"
	"strings"

	"github.com/example/storefront/tools/shopload/internal/config"
)

// Exit codes for threshold results.
const (
	// ExitCodeSuccess indicates all thresholds passed.
	ExitCodeSuccess = 0
	// ExitCodeThresholdFailure indicates one or more thresholds failed.
	ExitCodeThresholdFailure = 2
)

// ThresholdResult represents the evaluation of one threshold.
type ThresholdResult struct {
	// Name is the threshold name (e.g., "global.maxErrorRate",
	// "page:checkout.maxP95Latency").
	Name string

	// Description describes what was being checked.
	Description string

	// Passed indicates whether the threshold held.
	Passed bool

	// Expected is the threshold value.
	Expected string

	// Actual is the measured value.
	Actual string

	// Page is the page type (empty for global thresholds).
	Page string
}

// ThresholdResults holds all results from one evaluation.
type ThresholdResults struct {
	Results     []ThresholdResult
	PassedCount int
	FailedCount int
	TotalCount  int
	AllPassed   bool
}

// FailedResults returns only the failed thresholds.
func (r *ThresholdResults) FailedResults() []ThresholdResult {
	failed := make([]ThresholdResult, 0, r.FailedCount)
	for _, result := range r.Results {
		if !result.Passed {
			failed = append(failed, result)
		}
	}
	return failed
}

// PassedResults returns only the passed thresholds.
func (r *ThresholdResults) PassedResults() []ThresholdResult {
	passed := make([]ThresholdResult, 0, r.PassedCount)
	for _, result := range r.Results {
		if result.Passed {
			passed = append(passed, result)
		}
	}
	return passed
}

// Summary returns a one-line summary of the results.
func (r *ThresholdResults) Summary() string {
	if r.TotalCount == 0 {
		return "No thresholds configured"
	}

	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("Thresholds: %d/%d passed", r.PassedCount, r.TotalCount))
	if r.FailedCount > 0 {
		sb.WriteString(fmt.Sprintf(" (%d FAILED)", r.FailedCount))
	}
	return sb.String()
}

// ThresholdValidator evaluates a metrics snapshot against the
// configured pass/fail criteria.
type ThresholdValidator struct {
	cfg config.ThresholdsConfig
}

// NewThresholdValidator creates a validator for the given thresholds.
func NewThresholdValidator(cfg config.ThresholdsConfig) *ThresholdValidator {
	return &ThresholdValidator{cfg: cfg}
}

// HasThresholds reports whether any threshold is configured.
func (v *ThresholdValidator) HasThresholds() bool {
	if v.cfg.MaxErrorRate != nil || v.cfg.MinSuccessRate != nil ||
		v.cfg.MaxP95Latency > 0 || v.cfg.MaxP99Latency > 0 {
		return true
	}
	for _, pt := range v.cfg.Pages {
		if pt.MaxErrorRate != nil || pt.MaxP95Latency > 0 || pt.MaxP99Latency > 0 {
			return true
		}
	}
	return false
}

// Validate evaluates all thresholds against the snapshot.
func (v *ThresholdValidator) Validate(snapshot Snapshot) *ThresholdResults {
	results := &ThresholdResults{Results: make([]ThresholdResult, 0)}

	v.validateGlobal(snapshot, results)
	v.validatePages(snapshot, results)

	results.TotalCount = len(results.Results)
	for _, r := range results.Results {
		if r.Passed {
			results.PassedCount++
		} else {
			results.FailedCount++
		}
	}
	results.AllPassed = results.FailedCount == 0

	return results
}

func (v *ThresholdValidator) validateGlobal(snapshot Snapshot, results *ThresholdResults) {
	// Config rates are 0.0-1.0 fractions; snapshot rates are 0-100.
	errorRate := (100.0 - snapshot.SuccessRate) / 100.0

	if v.cfg.MaxErrorRate != nil {
		results.Results = append(results.Results, ThresholdResult{
			Name:        "global.maxErrorRate",
			Description: "Maximum overall error rate",
			Passed:      errorRate <= *v.cfg.MaxErrorRate,
			Expected:    fmt.Sprintf("<= %.2f%%", *v.cfg.MaxErrorRate*100),
			Actual:      fmt.Sprintf("%.2f%%", errorRate*100),
		})
	}

	if v.cfg.MinSuccessRate != nil {
		results.Results = append(results.Results, ThresholdResult{
			Name:        "global.minSuccessRate",
			Description: "Minimum overall success rate",
			Passed:      snapshot.SuccessRate/100.0 >= *v.cfg.MinSuccessRate,
			Expected:    fmt.Sprintf(">= %.2f%%", *v.cfg.MinSuccessRate*100),
			Actual:      fmt.Sprintf("%.2f%%", snapshot.SuccessRate),
		})
	}

	if v.cfg.MaxP95Latency > 0 {
		results.Results = append(results.Results, ThresholdResult{
			Name:        "global.maxP95Latency",
			Description: "Maximum overall P95 latency",
			Passed:      snapshot.P95Latency <= v.cfg.MaxP95Latency,
			Expected:    fmt.Sprintf("<= %s", v.cfg.MaxP95Latency),
			Actual:      snapshot.P95Latency.String(),
		})
	}

	if v.cfg.MaxP99Latency > 0 {
		results.Results = append(results.Results, ThresholdResult{
			Name:        "global.maxP99Latency",
			Description: "Maximum overall P99 latency",
			Passed:      snapshot.P99Latency <= v.cfg.MaxP99Latency,
			Expected:    fmt.Sprintf("<= %s", v.cfg.MaxP99Latency),
			Actual:      snapshot.P99Latency.String(),
		})
	}
}

func (v *ThresholdValidator) validatePages(snapshot Snapshot, results *ThresholdResults) {
	if len(v.cfg.Pages) == 0 {
		return
	}

	// Sort page names for deterministic output.
	pages := make([]string, 0, len(v.cfg.Pages))
	for name := range v.cfg.Pages {
		pages = append(pages, name)
	}
	sort.Strings(pages)

	for _, page := range pages {
		thresholds := v.cfg.Pages[page]

		stats, exists := snapshot.PageStats[page]
		if !exists {
			// Page type never hit this run; nothing to judge.
			continue
		}

		if thresholds.MaxErrorRate != nil {
			errorRate := (100.0 - stats.SuccessRate) / 100.0
			results.Results = append(results.Results, ThresholdResult{
				Name:        fmt.Sprintf("page:%s.maxErrorRate", page),
				Description: fmt.Sprintf("Maximum error rate for %s pages", page),
				Passed:      errorRate <= *thresholds.MaxErrorRate,
				Expected:    fmt.Sprintf("<= %.2f%%", *thresholds.MaxErrorRate*100),
				Actual:      fmt.Sprintf("%.2f%%", errorRate*100),
				Page:        page,
			})
		}

		if thresholds.MaxP95Latency > 0 {
			results.Results = append(results.Results, ThresholdResult{
				Name:        fmt.Sprintf("page:%s.maxP95Latency", page),
				Description: fmt.Sprintf("Maximum P95 latency for %s pages", page),
				Passed:      stats.P95Latency <= thresholds.MaxP95Latency,
				Expected:    fmt.Sprintf("<= %s", thresholds.MaxP95Latency),
				Actual:      stats.P95Latency.String(),
				Page:        page,
			})
		}

		if thresholds.MaxP99Latency > 0 {
			results.Results = append(results.Results, ThresholdResult{
				Name:        fmt.Sprintf("page:%s.maxP99Latency", page),
				Description: fmt.Sprintf("Maximum P99 latency for %s pages", page),
				Passed:      stats.P99Latency <= thresholds.MaxP99Latency,
				Expected:    fmt.Sprintf("<= %s", thresholds.MaxP99Latency),
				Actual:      stats.P99Latency.String(),
				Page:        page,
			})
		}
	}
}

// FormatResults formats threshold results for display.
func FormatResults(results *ThresholdResults, verbose bool) string {
	if results.TotalCount == 0 {
		return "No thresholds configured"
	}

	var sb strings.Builder

	sb.WriteString("═══════════════════════════════════════════════════════════════════════════════\n")
	sb.WriteString("                              THRESHOLD RESULTS\n")
	sb.WriteString("═══════════════════════════════════════════════════════════════════════════════\n\n")

	if results.AllPassed {
		sb.WriteString(fmt.Sprintf("✓ All %d thresholds PASSED\n\n", results.TotalCount))
	} else {
		sb.WriteString(fmt.Sprintf("✗ %d/%d thresholds FAILED\n\n", results.FailedCount, results.TotalCount))
	}

	if results.FailedCount > 0 {
		sb.WriteString("FAILED THRESHOLDS:\n")
		sb.WriteString("─────────────────────────────────────────────────────────────────────────────────\n")
		for _, r := range results.FailedResults() {
			sb.WriteString(fmt.Sprintf("  ✗ %s\n", r.Name))
			sb.WriteString(fmt.Sprintf("    Description: %s\n", r.Description))
			sb.WriteString(fmt.Sprintf("    Expected:    %s\n", r.Expected))
			sb.WriteString(fmt.Sprintf("    Actual:      %s\n", r.Actual))
			sb.WriteString("\n")
		}
	}

	if verbose && results.PassedCount > 0 {
		sb.WriteString("PASSED THRESHOLDS:\n")
		sb.WriteString("─────────────────────────────────────────────────────────────────────────────────\n")
		for _, r := range results.PassedResults() {
			sb.WriteString(fmt.Sprintf("  ✓ %s\n", r.Name))
			sb.WriteString(fmt.Sprintf("    Expected: %s | Actual: %s\n", r.Expected, r.Actual))
		}
	}

	sb.WriteString("═══════════════════════════════════════════════════════════════════════════════\n")

	return sb.String()
}
