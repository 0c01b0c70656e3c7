// Package runner schedules virtual users against a storefront and
// collects the results. It owns the run lifecycle: content discovery,
// VU ramp-up, progress display, final report and threshold evaluation.
package runner

import (
	"context"
	"fmt"
	"io"
	"math/rand"
	"os"
	"os/signal"
	"sync"
	"sync/atomic"
	"syscall"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/example/storefront/tools/shopload/internal/client"
	"github.com/example/storefront/tools/shopload/internal/config"
	"github.com/example/storefront/tools/shopload/internal/discovery"
	"github.com/example/storefront/tools/shopload/internal/generator"
	"github.com/example/storefront/tools/shopload/internal/journey"
	"github.com/example/storefront/tools/shopload/internal/metrics"
)

// Runner orchestrates a full load test run.
type Runner struct {
	cfg       *config.Config
	base      *client.Client
	collector *metrics.Collector
	exporter  *metrics.PrometheusExporter
	log       *zap.Logger

	out      io.Writer
	seedBase int64

	running   atomic.Bool
	draining  atomic.Bool
	startTime time.Time
	activeVUs atomic.Int64
	wg        sync.WaitGroup
}

// New creates a runner for the given configuration. The Prometheus
// exporter is created only when enabled in the output config.
func New(cfg *config.Config, log *zap.Logger) (*Runner, error) {
	if cfg == nil {
		return nil, fmt.Errorf("runner: config is required")
	}
	if log == nil {
		log = zap.NewNop()
	}

	base, err := client.New(cfg.Target)
	if err != nil {
		return nil, fmt.Errorf("creating HTTP client: %w", err)
	}

	r := &Runner{
		cfg:       cfg,
		base:      base,
		collector: metrics.NewCollector(),
		log:       log,
		out:       os.Stdout,
		seedBase:  time.Now().UnixNano(),
	}

	if cfg.Output.Prometheus.Enabled {
		r.exporter = metrics.NewPrometheusExporter(metrics.PrometheusExporterConfig{
			Port: cfg.Output.Prometheus.Port,
			Path: cfg.Output.Prometheus.Path,
		})
	}

	return r, nil
}

// SetOutput redirects console output. Used by tests.
func (r *Runner) SetOutput(w io.Writer) {
	r.out = w
}

// SetSeed fixes the base seed for VU randomness. Used by tests; the
// default is the wall clock.
func (r *Runner) SetSeed(seed int64) {
	r.seedBase = seed
}

// Collector exposes the metrics collector, mainly for tests and for
// callers that want raw numbers after Run returns.
func (r *Runner) Collector() *metrics.Collector {
	return r.collector
}

// recorder fans results out to the collector and, when configured, the
// Prometheus exporter.
type recorder struct {
	collector *metrics.Collector
	exporter  *metrics.PrometheusExporter
}

func (r *recorder) Record(result metrics.Result) {
	r.collector.Record(result)
	if r.exporter != nil {
		r.exporter.RecordRequest(result)
	}
}

func (r *recorder) JourneyStarted() {
	r.collector.JourneyStarted()
	if r.exporter != nil {
		r.exporter.JourneyStarted()
	}
}

func (r *recorder) JourneyCompleted() {
	r.collector.JourneyCompleted()
	if r.exporter != nil {
		r.exporter.JourneyCompleted()
	}
}

func (r *recorder) CheckoutCompleted() {
	r.collector.CheckoutCompleted()
	if r.exporter != nil {
		r.exporter.CheckoutCompleted()
	}
}

func (r *recorder) ItemAdded() {
	r.collector.ItemAdded()
	if r.exporter != nil {
		r.exporter.ItemAdded()
	}
}

// Run executes the load test and returns the process exit code.
// Threshold failures yield metrics.ExitCodeThresholdFailure; setup
// failures return a non-nil error and the exit code is up to the
// caller.
func (r *Runner) Run(ctx context.Context) (int, error) {
	if r.running.Swap(true) {
		return 0, fmt.Errorf("runner is already running")
	}
	defer r.running.Store(false)

	r.startTime = time.Now()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(sigCh)

	// The steady window ends after Duration; VUs are then retired on
	// staggered deadlines spread over the ramp-down window, and this
	// outer deadline is when the last of them expires.
	ctx, cancel := context.WithTimeout(ctx, r.cfg.Duration+r.cfg.Load.RampDown)
	defer cancel()

	r.printBanner()

	if r.exporter != nil {
		if err := r.exporter.Start(); err != nil {
			r.log.Warn("prometheus exporter disabled", zap.Error(err))
			r.exporter = nil
		} else {
			fmt.Fprintf(r.out, "  Metrics: http://%s%s\n", r.exporter.GetAddress(), r.exporter.GetPath())
		}
	}

	fmt.Fprintln(r.out, "\n[Phase 1] Content discovery...")
	seed := discovery.New(r.base, r.cfg.Discovery, r.log).Discover(ctx)
	fmt.Fprintf(r.out, "  ✓ %d products, %d categories, %d search terms\n",
		len(seed.Products), len(seed.Categories), len(seed.SearchTerms))
	if ctx.Err() != nil {
		return 0, ctx.Err()
	}

	rec := &recorder{collector: r.collector, exporter: r.exporter}
	journeys, err := journey.New(r.cfg, seed, rec, r.log)
	if err != nil {
		return 0, err
	}

	fmt.Fprintln(r.out, "\n[Phase 2] Running load test...")
	fmt.Fprintf(r.out, "  Duration: %v | VUs: %d | Ramp-up: %v\n\n",
		r.cfg.Duration, r.cfg.Load.VUs, r.cfg.Load.RampUp)

	r.collector.Start()

	console := metrics.NewConsole(metrics.ConsoleConfig{
		Writer:           r.out,
		RefreshInterval:  r.cfg.Output.ReportInterval,
		ShowPageStats:    true,
		MaxPages:         10,
		ProgressBarWidth: 50,
		ShowTimestamp:    true,
		UseColors:        r.out == os.Stdout,
		TotalDuration:    r.cfg.Duration,
	})
	console.Start(r.collector, r.phase)

	r.wg.Add(1)
	go r.spawnVUs(ctx, journeys)

	if r.exporter != nil {
		r.wg.Add(1)
		go r.pumpExporter(ctx)
	}

	select {
	case <-ctx.Done():
	case sig := <-sigCh:
		r.log.Info("received signal, stopping", zap.Stringer("signal", sig))
		cancel()
	}

	r.draining.Store(true)
	r.wg.Wait()
	r.collector.Stop()
	console.Stop()

	snapshot := r.collector.Snapshot()
	console.PrintFinalReport(snapshot)

	if err := r.writeReport(snapshot); err != nil {
		r.log.Warn("writing JSON report failed", zap.Error(err))
	}

	exitCode := r.evaluateThresholds(snapshot)

	if r.exporter != nil {
		stopCtx, stopCancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer stopCancel()
		if err := r.exporter.Stop(stopCtx); err != nil {
			r.log.Warn("stopping prometheus exporter", zap.Error(err))
		}
	}

	return exitCode, nil
}

// spawnVUs starts the virtual users spread over the ramp-up window and
// gives each a retirement deadline staggered over the ramp-down
// window, so the pool winds down the way it wound up. Personas are
// drawn here, sequentially, because the generator is not safe for
// concurrent use.
func (r *Runner) spawnVUs(ctx context.Context, journeys *journey.Runner) {
	defer r.wg.Done()

	vus := r.cfg.Load.VUs
	if vus < 1 {
		vus = 1
	}
	var interval time.Duration
	if r.cfg.Load.RampUp > 0 {
		interval = r.cfg.Load.RampUp / time.Duration(vus)
	}

	gen := generator.NewSeeded(r.cfg.Behavior, uint64(r.seedBase))
	steadyEnd := r.startTime.Add(r.cfg.Duration)

	for i := 0; i < vus; i++ {
		if i > 0 && interval > 0 {
			select {
			case <-ctx.Done():
				return
			case <-time.After(interval):
			}
		}
		if ctx.Err() != nil {
			return
		}

		persona := gen.Persona()
		rng := rand.New(rand.NewSource(r.seedBase + int64(i)))

		retireAt := steadyEnd
		if r.cfg.Load.RampDown > 0 {
			retireAt = retireAt.Add(time.Duration(i+1) * r.cfg.Load.RampDown / time.Duration(vus))
		}
		vuCtx, vuCancel := context.WithDeadline(ctx, retireAt)

		r.wg.Add(1)
		go func() {
			defer vuCancel()
			r.runVU(vuCtx, i, journeys, persona, rng)
		}()
	}
}

// runVU executes journeys back to back until the context expires. A
// fresh session (cookie jar, form token, cart state) is created per
// journey so every iteration looks like a new visitor.
func (r *Runner) runVU(ctx context.Context, id int, journeys *journey.Runner, persona generator.Persona, rng *rand.Rand) {
	defer r.wg.Done()

	r.vuStarted()
	defer r.vuStopped()

	log := r.log.With(zap.Int("vu", id))
	log.Debug("virtual user started", zap.Strings("interests", persona.Interests))

	for {
		if ctx.Err() != nil {
			return
		}

		sess := r.base.NewSession(persona.UserAgent)
		sess.SetHeader("X-Session-Id", uuid.NewString())
		if err := journeys.Run(ctx, sess, persona, rng); err != nil {
			// Run only errors on context cancellation.
			return
		}

		if r.cfg.Load.IterationPause > 0 {
			select {
			case <-ctx.Done():
				return
			case <-time.After(r.cfg.Load.IterationPause):
			}
		}
	}
}

func (r *Runner) vuStarted() {
	n := r.activeVUs.Add(1)
	if r.exporter != nil {
		r.exporter.UpdateActiveVUs(int(n))
	}
}

func (r *Runner) vuStopped() {
	n := r.activeVUs.Add(-1)
	if r.exporter != nil {
		r.exporter.UpdateActiveVUs(int(n))
	}
}

// ActiveVUs returns the number of currently running virtual users.
func (r *Runner) ActiveVUs() int {
	return int(r.activeVUs.Load())
}

// pumpExporter refreshes the exporter gauges from collector snapshots.
func (r *Runner) pumpExporter(ctx context.Context) {
	defer r.wg.Done()

	ticker := time.NewTicker(time.Second)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			r.exporter.UpdateFromSnapshot(r.collector.Snapshot())
		}
	}
}

// phase labels the current run stage for the progress display. Once
// the steady window has elapsed the remaining VUs are draining.
func (r *Runner) phase() string {
	if r.draining.Load() || time.Since(r.startTime) >= r.cfg.Duration {
		return "draining"
	}
	if time.Since(r.startTime) < r.cfg.Load.RampUp {
		return "ramp-up"
	}
	return "steady"
}

// writeReport writes the JSON report when a report file is configured.
func (r *Runner) writeReport(snapshot metrics.Snapshot) error {
	if r.cfg.Output.ReportFile == "" {
		return nil
	}

	reporter := metrics.NewReporter()
	report := reporter.GenerateReport(snapshot, metrics.ReportOptions{
		ConfigName:        r.cfg.Name,
		ConfigDescription: r.cfg.Description,
		TargetBaseURL:     r.cfg.Target.BaseURL,
		TestDuration:      r.cfg.Duration,
		VUs:               r.cfg.Load.VUs,
		RampUp:            r.cfg.Load.RampUp,
		CheckoutRate:      *r.cfg.Flow.CheckoutRate,
	})
	if err := reporter.WriteToFile(report, r.cfg.Output.ReportFile); err != nil {
		return err
	}

	fmt.Fprintf(r.out, "\nJSON report written to %s\n", r.cfg.Output.ReportFile)
	return nil
}

// evaluateThresholds validates the snapshot against the configured
// pass/fail criteria and returns the resulting exit code.
func (r *Runner) evaluateThresholds(snapshot metrics.Snapshot) int {
	validator := metrics.NewThresholdValidator(r.cfg.Thresholds)
	if !validator.HasThresholds() {
		return metrics.ExitCodeSuccess
	}

	results := validator.Validate(snapshot)
	fmt.Fprintln(r.out)
	fmt.Fprint(r.out, metrics.FormatResults(results, r.cfg.Output.Verbose))

	if !results.AllPassed {
		return metrics.ExitCodeThresholdFailure
	}
	return metrics.ExitCodeSuccess
}

// printBanner prints the run header.
func (r *Runner) printBanner() {
	fmt.Fprintln(r.out, "╔════════════════════════════════════════════════════════════╗")
	fmt.Fprintf(r.out, "║  Storefront Load Generator: %-31s ║\n", truncate(r.cfg.Name, 31))
	fmt.Fprintln(r.out, "╠════════════════════════════════════════════════════════════╣")
	fmt.Fprintf(r.out, "║  Target:   %-48s  ║\n", truncate(r.cfg.Target.BaseURL, 48))
	fmt.Fprintf(r.out, "║  Duration: %-48s  ║\n", r.cfg.Duration)
	fmt.Fprintf(r.out, "║  VUs:      %-48d  ║\n", r.cfg.Load.VUs)
	fmt.Fprintln(r.out, "╚════════════════════════════════════════════════════════════╝")
}

// truncate shortens a string to max length for banner alignment.
func truncate(s string, max int) string {
	if len(s) <= max {
		return s
	}
	return s[:max-3] + "..."
}
