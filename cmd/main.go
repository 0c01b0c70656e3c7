// Package main provides the CLI entry point for the storefront load
// generator.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/example/storefront/tools/shopload/internal/config"
	"github.com/example/storefront/tools/shopload/internal/logger"
	"github.com/example/storefront/tools/shopload/internal/runner"
)

// Version information (populated at build time)
var (
	version   = "dev"
	buildTime = "unknown"
	gitCommit = "unknown"
)

// CLI flags
var (
	configPath     string
	targetURL      string
	duration       time.Duration
	vus            int
	verbose        bool
	validate       bool
	dryRun         bool
	showVersion    bool
	reportFile     string
	prometheusAddr string
)

func init() {
	// Configuration
	flag.StringVar(&configPath, "config", "", "Path to the YAML configuration file")
	flag.StringVar(&configPath, "c", "", "Path to the YAML configuration file (shorthand)")
	flag.StringVar(&targetURL, "target", "", "Target storefront base URL (overrides config)")
	flag.StringVar(&targetURL, "t", "", "Target storefront base URL (shorthand)")

	// Override flags
	flag.DurationVar(&duration, "duration", 0, "Override test duration (e.g., 5m, 1h)")
	flag.DurationVar(&duration, "d", 0, "Override test duration (shorthand)")
	flag.IntVar(&vus, "vus", 0, "Override the number of virtual users")

	// Utility flags
	flag.BoolVar(&verbose, "verbose", false, "Enable verbose output")
	flag.BoolVar(&verbose, "v", false, "Enable verbose output (shorthand)")
	flag.BoolVar(&validate, "validate", false, "Validate configuration and exit")
	flag.BoolVar(&dryRun, "dry-run", false, "Parse config and show execution plan without running")
	flag.BoolVar(&showVersion, "version", false, "Show version information")

	// Output flags
	flag.StringVar(&reportFile, "report-file", "", "JSON report file path (overrides config, supports {{.Timestamp}})")
	flag.StringVar(&prometheusAddr, "prometheus", "", "Prometheus metrics endpoint (e.g., :9090 or localhost:9090)")

	// Custom usage
	flag.Usage = printUsage
}

func printUsage() {
	fmt.Fprintf(os.Stderr, `shopload - Storefront Load Testing Tool

USAGE:
    shopload -config <path> [options]
    shopload -target <url> [options]

DESCRIPTION:
    A load testing tool that simulates realistic shopper journeys against
    an e-commerce storefront: browsing categories and products, following
    pagination and breadcrumbs, searching, adding to cart, applying
    coupons and reaching checkout. Navigation is driven by links
    discovered in the storefront's own HTML, so the traffic follows
    whatever catalog the target serves.

CONFIGURATION:
    -config, -c <path>    Path to the YAML configuration file
    -target, -t <url>     Target storefront base URL (no config file needed)

OVERRIDE OPTIONS:
    -duration, -d <dur>   Override test duration (e.g., "5m", "1h30m")
    -vus <n>              Override the number of virtual users

UTILITY OPTIONS:
    -validate             Validate configuration and exit
    -dry-run              Show execution plan without running
    -verbose, -v          Enable verbose output
    -version              Show version information
    -help, -h             Show this help message

OUTPUT OPTIONS:
    -report-file <path>   JSON report file (supports {{.Timestamp}} template)
    -prometheus <addr>    Enable Prometheus metrics endpoint (e.g., :9090)

EXIT CODES:
    0    Run completed, all thresholds passed (or none configured)
    1    Configuration or setup error
    2    One or more thresholds failed

EXAMPLES:
    # Run against a storefront with defaults (10 VUs, 5m)
    shopload -target https://shop.example.com

    # Run with a configuration file
    shopload -config configs/storefront.yaml

    # Run with overridden duration and VU count
    shopload -config configs/storefront.yaml -duration 10m -vus 50

    # Generate a JSON report with a timestamped file name
    shopload -target https://shop.example.com -report-file results/run-{{.Timestamp}}.json

    # Enable Prometheus metrics endpoint
    shopload -config configs/storefront.yaml -prometheus :9090

    # Validate configuration
    shopload -config configs/storefront.yaml -validate

    # Dry run to see execution plan
    shopload -config configs/storefront.yaml -dry-run

CONFIGURATION FILE FORMAT:
    The configuration file is in YAML format and supports:
    - Target storefront settings (baseURL, timeout, headers)
    - Load shape (VUs, ramp-up, iteration pacing)
    - Shopper behavior (think time, journey length, interests)
    - Cart and checkout flow rates
    - Browsing probabilities (related, pagination, breadcrumb, distraction)
    - Content discovery and cache-bypass sampling
    - Pass/fail thresholds and output settings

    See configs/storefront.yaml for a complete example.
`)
}

func main() {
	flag.Parse()

	// Handle version flag
	if showVersion {
		printVersion()
		os.Exit(0)
	}

	cfg, err := loadConfig()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		if configPath == "" && targetURL == "" {
			fmt.Fprintln(os.Stderr, "")
			printUsage()
		}
		os.Exit(1)
	}

	// Apply CLI overrides
	applyOverrides(cfg)

	if err := cfg.Validate(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}

	// Handle utility commands
	if validate {
		fmt.Printf("Configuration '%s' is valid.\n", cfg.Name)
		printConfigSummary(cfg)
		os.Exit(0)
	}

	if dryRun {
		printExecutionPlan(cfg)
		os.Exit(0)
	}

	// Run the load test
	exitCode, err := runLoadTest(cfg)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error running load test: %v\n", err)
		os.Exit(1)
	}
	os.Exit(exitCode)
}

// loadConfig loads the configuration from the config file, or builds a
// default one when only a target URL is given. A run without either is
// the one fatal configuration error.
func loadConfig() (*config.Config, error) {
	if configPath == "" && targetURL == "" {
		return nil, fmt.Errorf("-config or -target flag is required")
	}

	if configPath == "" {
		cfg := config.Default()
		cfg.Target.BaseURL = targetURL
		return cfg, nil
	}

	absConfigPath, err := filepath.Abs(configPath)
	if err != nil {
		return nil, fmt.Errorf("resolving config path: %w", err)
	}

	return config.LoadFromFile(absConfigPath)
}

func printVersion() {
	fmt.Printf("shopload version %s\n", version)
	fmt.Printf("  Build time: %s\n", buildTime)
	fmt.Printf("  Git commit: %s\n", gitCommit)
}

func applyOverrides(cfg *config.Config) {
	if targetURL != "" {
		cfg.Target.BaseURL = targetURL
		if verbose {
			fmt.Printf("Override: target = %s\n", targetURL)
		}
	}

	if duration > 0 {
		cfg.Duration = duration
		if verbose {
			fmt.Printf("Override: duration = %v\n", duration)
		}
	}

	if vus > 0 {
		cfg.Load.VUs = vus
		if verbose {
			fmt.Printf("Override: vus = %d\n", vus)
		}
	}

	if verbose {
		cfg.Output.Verbose = true
	}

	// Apply report file override
	if reportFile != "" {
		cfg.Output.ReportFile = reportFile
		if verbose {
			fmt.Printf("Override: report file = %s\n", reportFile)
		}
	}

	// Apply Prometheus override
	if prometheusAddr != "" {
		cfg.Output.Prometheus.Enabled = true
		// Parse address - support both :9090 and localhost:9090 formats
		port := parsePrometheusPort(prometheusAddr)
		if port > 0 {
			cfg.Output.Prometheus.Port = port
		}
		if cfg.Output.Prometheus.Path == "" {
			cfg.Output.Prometheus.Path = "/metrics"
		}
		if verbose {
			fmt.Printf("Override: Prometheus enabled on port %d\n", cfg.Output.Prometheus.Port)
		}
	}
}

// parsePrometheusPort extracts port from address string.
// Supports formats: :9090, localhost:9090, 9090
// Returns 0 for invalid ports (including out of range 1-65535).
func parsePrometheusPort(addr string) int {
	addr = strings.TrimSpace(addr)

	// Handle just port number
	if !strings.Contains(addr, ":") {
		var port int
		if _, err := fmt.Sscanf(addr, "%d", &port); err == nil {
			if port > 0 && port <= 65535 {
				return port
			}
		}
		return 0
	}

	// Handle :port or host:port
	parts := strings.Split(addr, ":")
	if len(parts) >= 2 {
		var port int
		if _, err := fmt.Sscanf(parts[len(parts)-1], "%d", &port); err == nil {
			if port > 0 && port <= 65535 {
				return port
			}
		}
	}
	return 0
}

func printConfigSummary(cfg *config.Config) {
	fmt.Println()
	fmt.Println("Configuration Summary:")
	fmt.Printf("  Name:       %s\n", cfg.Name)
	fmt.Printf("  Target:     %s\n", cfg.Target.BaseURL)
	fmt.Printf("  Duration:   %v\n", cfg.Duration)
	fmt.Printf("  VUs:        %d\n", cfg.Load.VUs)
	fmt.Printf("  Ramp-up:    %v\n", cfg.Load.RampUp)
	fmt.Printf("  Ramp-down:  %v\n", cfg.Load.RampDown)
	fmt.Printf("  Think time: %v - %v\n", cfg.Behavior.ThinkTimeMin, cfg.Behavior.ThinkTimeMax)
	fmt.Printf("  Steps:      %d - %d per journey\n", cfg.Behavior.StepsMin, cfg.Behavior.StepsMax)
}

func printExecutionPlan(cfg *config.Config) {
	fmt.Println("=== Execution Plan (Dry Run) ===")

	printConfigSummary(cfg)

	fmt.Println()
	fmt.Println("Shopper Flow:")
	fmt.Printf("  Checkout rate:      %.0f%%\n", *cfg.Flow.CheckoutRate*100)
	fmt.Printf("  Coupon rate:        %.0f%%\n", *cfg.Flow.CouponRate*100)
	fmt.Printf("  Cart mutation rate: %.0f%%\n", *cfg.Flow.CartMutationRate*100)
	fmt.Printf("  Cart max items:     %d\n", cfg.Flow.CartMaxItems)
	fmt.Printf("  Quantity:           %d - %d\n", cfg.Flow.QuantityMin, cfg.Flow.QuantityMax)

	fmt.Println()
	fmt.Println("Browsing:")
	fmt.Printf("  Related rate:         %.0f%%\n", *cfg.Browsing.RelatedRate*100)
	fmt.Printf("  Pagination rate:      %.0f%%\n", *cfg.Browsing.PaginationRate*100)
	fmt.Printf("  Breadcrumb rate:      %.0f%%\n", *cfg.Browsing.BreadcrumbRate*100)
	fmt.Printf("  Category explore:     %.0f%%\n", *cfg.Browsing.CategoryExploreRate*100)
	fmt.Printf("  Interest follow rate: %.0f%%\n", *cfg.Browsing.InterestFollowRate*100)
	fmt.Printf("  Distraction rate:     %.0f%%\n", *cfg.Browsing.DistractionRate*100)
	fmt.Printf("  Impulse add rate:     %.0f%%\n", *cfg.Browsing.ImpulseAddRate*100)

	fmt.Println()
	fmt.Println("Background Traffic:")
	apiEnabled := cfg.API.Enabled == nil || *cfg.API.Enabled
	fmt.Printf("  API calls:    %v (rate %.0f%%)\n", apiEnabled, *cfg.API.Rate*100)
	fmt.Printf("  Search rate:  %.0f%%\n", *cfg.API.SearchRate*100)
	fmt.Printf("  Cache bypass: %.0f%%\n", *cfg.Cache.BypassRate*100)

	fmt.Println()
	fmt.Println("Output:")
	fmt.Printf("  Report interval: %v\n", cfg.Output.ReportInterval)
	if cfg.Output.ReportFile != "" {
		fmt.Printf("  JSON report:     %s\n", cfg.Output.ReportFile)
	}
	if cfg.Output.Prometheus.Enabled {
		fmt.Printf("  Prometheus:      :%d%s\n", cfg.Output.Prometheus.Port, cfg.Output.Prometheus.Path)
	}

	thresholds := countThresholds(cfg)
	fmt.Println()
	fmt.Printf("Thresholds: %d configured\n", thresholds)

	fmt.Println()
	fmt.Println("Ready to execute. Remove -dry-run flag to start the load test.")
}

// countThresholds counts configured pass/fail criteria for the plan.
func countThresholds(cfg *config.Config) int {
	n := 0
	if cfg.Thresholds.MaxErrorRate != nil {
		n++
	}
	if cfg.Thresholds.MinSuccessRate != nil {
		n++
	}
	if cfg.Thresholds.MaxP95Latency > 0 {
		n++
	}
	if cfg.Thresholds.MaxP99Latency > 0 {
		n++
	}
	for _, pt := range cfg.Thresholds.Pages {
		if pt.MaxErrorRate != nil {
			n++
		}
		if pt.MaxP95Latency > 0 {
			n++
		}
		if pt.MaxP99Latency > 0 {
			n++
		}
	}
	return n
}

func runLoadTest(cfg *config.Config) (int, error) {
	log := logger.New(cfg.Log.Level, cfg.Log.Format)
	defer func() { _ = log.Sync() }()

	r, err := runner.New(cfg, log)
	if err != nil {
		return 0, err
	}

	return r.Run(context.Background())
}
