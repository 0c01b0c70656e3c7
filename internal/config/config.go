// Package config provides configuration structures for the storefront
// load generator. The main Config struct ties together all shopload
// components.
package config

import (
	"errors"
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// Errors returned by the config package.
var (
	// ErrInvalidConfig is returned when the configuration is invalid.
	ErrInvalidConfig = errors.New("config: invalid configuration")
	// ErrConfigNotFound is returned when the config file is not found.
	ErrConfigNotFound = errors.New("config: configuration file not found")
)

// Config is the root configuration structure for the load generator.
type Config struct {
	// Name is a descriptive name for this configuration.
	Name string `yaml:"name" json:"name"`

	// Description provides additional context about the configuration.
	Description string `yaml:"description,omitempty" json:"description,omitempty"`

	// Version is the configuration schema version.
	Version string `yaml:"version" json:"version"`

	// Target is the storefront under test.
	Target TargetConfig `yaml:"target" json:"target"`

	// Duration is the total duration of the load test.
	// Default: 5m
	Duration time.Duration `yaml:"duration" json:"duration"`

	// Load configures the virtual user pool.
	Load LoadConfig `yaml:"load,omitempty" json:"load,omitempty"`

	// Behavior configures per-session pacing and length.
	Behavior BehaviorConfig `yaml:"behavior,omitempty" json:"behavior,omitempty"`

	// Flow configures cart and checkout behavior.
	Flow FlowConfig `yaml:"flow,omitempty" json:"flow,omitempty"`

	// Browsing configures the navigation decision probabilities.
	Browsing BrowsingConfig `yaml:"browsing,omitempty" json:"browsing,omitempty"`

	// API configures background storefront API traffic.
	API APIConfig `yaml:"api,omitempty" json:"api,omitempty"`

	// Cache configures cache-bypass sampling.
	Cache CacheConfig `yaml:"cache,omitempty" json:"cache,omitempty"`

	// Discovery configures the pre-flight content discovery crawl.
	Discovery DiscoveryConfig `yaml:"discovery,omitempty" json:"discovery,omitempty"`

	// Paths maps well-known storefront routes.
	Paths PathsConfig `yaml:"paths,omitempty" json:"paths,omitempty"`

	// Thresholds configures pass/fail criteria evaluated at the end of a run.
	Thresholds ThresholdsConfig `yaml:"thresholds,omitempty" json:"thresholds,omitempty"`

	// Output configures output and reporting.
	Output OutputConfig `yaml:"output,omitempty" json:"output,omitempty"`

	// Log configures structured logging.
	Log LogConfig `yaml:"log,omitempty" json:"log,omitempty"`
}

// TargetConfig holds target storefront configuration.
type TargetConfig struct {
	// BaseURL is the storefront origin (e.g., "https://shop.example.com").
	BaseURL string `yaml:"baseURL" json:"baseURL"`

	// Timeout is the request timeout.
	// Default: 30s
	Timeout time.Duration `yaml:"timeout,omitempty" json:"timeout,omitempty"`

	// TLSSkipVerify skips TLS certificate verification (for testing only).
	TLSSkipVerify bool `yaml:"tlsSkipVerify,omitempty" json:"tlsSkipVerify,omitempty"`

	// Headers are additional headers to include in all requests.
	Headers map[string]string `yaml:"headers,omitempty" json:"headers,omitempty"`
}

// LoadConfig configures the virtual user pool.
type LoadConfig struct {
	// VUs is the number of concurrent virtual users.
	// Default: 10
	VUs int `yaml:"vus,omitempty" json:"vus,omitempty"`

	// RampUp is the time over which VUs are started.
	// Default: 10s
	RampUp time.Duration `yaml:"rampUp,omitempty" json:"rampUp,omitempty"`

	// RampDown is the time over which VUs are retired once the test
	// duration expires. Zero stops every VU at once.
	// Default: 0
	RampDown time.Duration `yaml:"rampDown,omitempty" json:"rampDown,omitempty"`

	// IterationPause is the idle time between journeys of the same VU.
	// Default: 2s
	IterationPause time.Duration `yaml:"iterationPause,omitempty" json:"iterationPause,omitempty"`
}

// BehaviorConfig configures session pacing and length.
type BehaviorConfig struct {
	// ThinkTimeMin is the minimum dwell time between page views.
	// Default: 1s
	ThinkTimeMin time.Duration `yaml:"thinkTimeMin,omitempty" json:"thinkTimeMin,omitempty"`

	// ThinkTimeMax is the maximum dwell time between page views.
	// Default: 5s
	ThinkTimeMax time.Duration `yaml:"thinkTimeMax,omitempty" json:"thinkTimeMax,omitempty"`

	// StepsMin is the minimum number of page views per journey.
	// Default: 3
	StepsMin int `yaml:"stepsMin,omitempty" json:"stepsMin,omitempty"`

	// StepsMax is the maximum number of page views per journey.
	// Default: 10
	StepsMax int `yaml:"stepsMax,omitempty" json:"stepsMax,omitempty"`

	// InterestsMin is the minimum number of interest categories per user.
	// Default: 1
	InterestsMin int `yaml:"interestsMin,omitempty" json:"interestsMin,omitempty"`

	// InterestsMax is the maximum number of interest categories per user.
	// Default: 3
	InterestsMax int `yaml:"interestsMax,omitempty" json:"interestsMax,omitempty"`
}

// FlowConfig configures cart and checkout behavior.
type FlowConfig struct {
	// CheckoutRate is the probability that a cart-holding user proceeds
	// to checkout at the end of a journey.
	// Default: 0.35
	CheckoutRate *float64 `yaml:"checkoutRate,omitempty" json:"checkoutRate,omitempty"`

	// CartMaxItems caps the number of distinct line items per cart.
	// Default: 5
	CartMaxItems int `yaml:"cartMaxItems,omitempty" json:"cartMaxItems,omitempty"`

	// EmptyCartVisitRate is the probability a user with an empty cart
	// visits the cart page anyway.
	// Default: 0.1
	EmptyCartVisitRate *float64 `yaml:"emptyCartVisitRate,omitempty" json:"emptyCartVisitRate,omitempty"`

	// CartMutationRate is the probability a cart review mutates the cart
	// (quantity update or line removal) instead of leaving it untouched.
	// Default: 0.3
	CartMutationRate *float64 `yaml:"cartMutationRate,omitempty" json:"cartMutationRate,omitempty"`

	// CouponRate is the probability a coupon code is applied during
	// cart review.
	// Default: 0.2
	CouponRate *float64 `yaml:"couponRate,omitempty" json:"couponRate,omitempty"`

	// QuantityMin is the minimum quantity per add-to-cart.
	// Default: 1
	QuantityMin int `yaml:"quantityMin,omitempty" json:"quantityMin,omitempty"`

	// QuantityMax is the maximum quantity per add-to-cart.
	// Default: 3
	QuantityMax int `yaml:"quantityMax,omitempty" json:"quantityMax,omitempty"`
}

// BrowsingConfig configures the navigation decision probabilities.
//
// RelatedRate, PaginationRate and BreadcrumbRate form cumulative
// probability bands over a single random draw, so their sum must not
// exceed 1.0. The remainder of the draw falls through to exploration,
// which rolls its own category-versus-product coin.
type BrowsingConfig struct {
	// RelatedRate is the band width for following related-product links.
	// Default: 0.25
	RelatedRate *float64 `yaml:"relatedRate,omitempty" json:"relatedRate,omitempty"`

	// PaginationRate is the band width for following pagination links.
	// Default: 0.2
	PaginationRate *float64 `yaml:"paginationRate,omitempty" json:"paginationRate,omitempty"`

	// BreadcrumbRate is the band width for navigating up via breadcrumbs.
	// Default: 0.1
	BreadcrumbRate *float64 `yaml:"breadcrumbRate,omitempty" json:"breadcrumbRate,omitempty"`

	// CategoryExploreRate is the probability the exploration stage draws
	// from the category pool rather than the product pool.
	// Default: 0.75
	CategoryExploreRate *float64 `yaml:"categoryExploreRate,omitempty" json:"categoryExploreRate,omitempty"`

	// InterestFollowRate is the probability a category exploration draw
	// is confined to links matching the shopper's interests.
	// Default: 0.7
	InterestFollowRate *float64 `yaml:"interestFollowRate,omitempty" json:"interestFollowRate,omitempty"`

	// DistractionRate is the probability a journey step abandons the
	// current trail and jumps to a random seed page.
	// Default: 0.15
	DistractionRate *float64 `yaml:"distractionRate,omitempty" json:"distractionRate,omitempty"`

	// ImpulseAddRate is the add-to-cart probability on a product page for
	// users with high shopping intent.
	// Default: 0.5
	ImpulseAddRate *float64 `yaml:"impulseAddRate,omitempty" json:"impulseAddRate,omitempty"`
}

// APIConfig configures background storefront API traffic.
type APIConfig struct {
	// Enabled turns API calls on or off.
	// Default: true
	Enabled *bool `yaml:"enabled,omitempty" json:"enabled,omitempty"`

	// Rate is the probability a journey step issues an API call alongside
	// the page view.
	// Default: 0.3
	Rate *float64 `yaml:"rate,omitempty" json:"rate,omitempty"`

	// SearchRate is the probability a journey step performs a catalog
	// search instead of following a link.
	// Default: 0.15
	SearchRate *float64 `yaml:"searchRate,omitempty" json:"searchRate,omitempty"`
}

// CacheConfig configures cache-bypass sampling.
type CacheConfig struct {
	// BypassRate is the fraction of page requests sent with cache-busting
	// markers to exercise the origin instead of the CDN.
	// Default: 0.1
	BypassRate *float64 `yaml:"bypassRate,omitempty" json:"bypassRate,omitempty"`
}

// DiscoveryConfig configures the pre-flight content discovery crawl.
type DiscoveryConfig struct {
	// Enabled turns crawling on or off. When disabled, the static seed
	// lists below are used as-is.
	// Default: true
	Enabled *bool `yaml:"enabled,omitempty" json:"enabled,omitempty"`

	// DeepCrawl follows discovered category pages one hop to harvest
	// product URLs beyond the homepage.
	// Default: true
	DeepCrawl *bool `yaml:"deepCrawl,omitempty" json:"deepCrawl,omitempty"`

	// MaxProducts caps the product URL pool.
	// Default: 50
	MaxProducts int `yaml:"maxProducts,omitempty" json:"maxProducts,omitempty"`

	// MaxCategories caps the category URL pool.
	// Default: 20
	MaxCategories int `yaml:"maxCategories,omitempty" json:"maxCategories,omitempty"`

	// MaxSearchTerms caps the harvested search term pool.
	// Default: 20
	MaxSearchTerms int `yaml:"maxSearchTerms,omitempty" json:"maxSearchTerms,omitempty"`

	// MaxCrawlPages caps the number of category pages fetched during a
	// deep crawl.
	// Default: 5
	MaxCrawlPages int `yaml:"maxCrawlPages,omitempty" json:"maxCrawlPages,omitempty"`

	// FetchRate limits discovery fetches in requests per second.
	// Default: 5
	FetchRate float64 `yaml:"fetchRate,omitempty" json:"fetchRate,omitempty"`

	// Exclude lists path substrings that disqualify a link from the
	// discovered pools.
	Exclude []string `yaml:"exclude,omitempty" json:"exclude,omitempty"`

	// SeedProducts are fallback product paths used when discovery is
	// disabled or finds nothing.
	SeedProducts []string `yaml:"seedProducts,omitempty" json:"seedProducts,omitempty"`

	// SeedCategories are fallback category paths.
	SeedCategories []string `yaml:"seedCategories,omitempty" json:"seedCategories,omitempty"`

	// SeedSearchTerms are fallback catalog search terms.
	SeedSearchTerms []string `yaml:"seedSearchTerms,omitempty" json:"seedSearchTerms,omitempty"`
}

// PathsConfig maps well-known storefront routes.
type PathsConfig struct {
	// Cart is the cart page path.
	// Default: "/checkout/cart/"
	Cart string `yaml:"cart,omitempty" json:"cart,omitempty"`

	// Checkout is the checkout page path.
	// Default: "/checkout/"
	Checkout string `yaml:"checkout,omitempty" json:"checkout,omitempty"`

	// CartAdd is the add-to-cart form action path.
	// Default: "/checkout/cart/add/"
	CartAdd string `yaml:"cartAdd,omitempty" json:"cartAdd,omitempty"`

	// CartUpdate is the cart quantity update form action path.
	// Default: "/checkout/cart/updatePost/"
	CartUpdate string `yaml:"cartUpdate,omitempty" json:"cartUpdate,omitempty"`

	// CartRemove is the cart line removal path.
	// Default: "/checkout/cart/delete/"
	CartRemove string `yaml:"cartRemove,omitempty" json:"cartRemove,omitempty"`

	// Coupon is the coupon application form action path.
	// Default: "/checkout/cart/couponPost/"
	Coupon string `yaml:"coupon,omitempty" json:"coupon,omitempty"`

	// Search is the catalog search path; the query lands in the "q"
	// parameter.
	// Default: "/catalogsearch/result/"
	Search string `yaml:"search,omitempty" json:"search,omitempty"`

	// APIBase is the prefix for storefront REST calls.
	// Default: "/rest/V1"
	APIBase string `yaml:"apiBase,omitempty" json:"apiBase,omitempty"`
}

// ThresholdsConfig configures pass/fail criteria evaluated at the end
// of a run.
type ThresholdsConfig struct {
	// MaxErrorRate is the maximum acceptable overall error rate (0.0-1.0).
	MaxErrorRate *float64 `yaml:"maxErrorRate,omitempty" json:"maxErrorRate,omitempty"`

	// MinSuccessRate is the minimum acceptable overall success rate (0.0-1.0).
	MinSuccessRate *float64 `yaml:"minSuccessRate,omitempty" json:"minSuccessRate,omitempty"`

	// MaxP95Latency is the maximum acceptable overall p95 latency.
	MaxP95Latency time.Duration `yaml:"maxP95Latency,omitempty" json:"maxP95Latency,omitempty"`

	// MaxP99Latency is the maximum acceptable overall p99 latency.
	MaxP99Latency time.Duration `yaml:"maxP99Latency,omitempty" json:"maxP99Latency,omitempty"`

	// Pages holds per-page-type latency thresholds keyed by page type
	// (e.g., "product", "category", "checkout").
	Pages map[string]PageThreshold `yaml:"pages,omitempty" json:"pages,omitempty"`
}

// PageThreshold holds pass/fail criteria for a single page type.
type PageThreshold struct {
	// MaxErrorRate is the maximum acceptable error rate for this page type.
	MaxErrorRate *float64 `yaml:"maxErrorRate,omitempty" json:"maxErrorRate,omitempty"`

	// MaxP95Latency is the maximum acceptable p95 latency.
	MaxP95Latency time.Duration `yaml:"maxP95Latency,omitempty" json:"maxP95Latency,omitempty"`

	// MaxP99Latency is the maximum acceptable p99 latency.
	MaxP99Latency time.Duration `yaml:"maxP99Latency,omitempty" json:"maxP99Latency,omitempty"`
}

// OutputConfig configures output and reporting.
type OutputConfig struct {
	// ReportInterval is how often to print progress reports.
	// Default: 10s
	ReportInterval time.Duration `yaml:"reportInterval,omitempty" json:"reportInterval,omitempty"`

	// ReportFile is the path for the final JSON report. Supports
	// {{.Timestamp}}, {{.Date}} and {{.Time}} template variables.
	// Empty disables the JSON report.
	ReportFile string `yaml:"reportFile,omitempty" json:"reportFile,omitempty"`

	// Verbose enables verbose output.
	Verbose bool `yaml:"verbose,omitempty" json:"verbose,omitempty"`

	// Prometheus configures the metrics endpoint.
	Prometheus PrometheusConfig `yaml:"prometheus,omitempty" json:"prometheus,omitempty"`
}

// PrometheusConfig configures the Prometheus metrics endpoint.
type PrometheusConfig struct {
	// Enabled turns the metrics HTTP listener on or off.
	Enabled bool `yaml:"enabled,omitempty" json:"enabled,omitempty"`

	// Port is the metrics listener port.
	// Default: 9090
	Port int `yaml:"port,omitempty" json:"port,omitempty"`

	// Path is the metrics endpoint path.
	// Default: "/metrics"
	Path string `yaml:"path,omitempty" json:"path,omitempty"`
}

// LogConfig configures structured logging.
type LogConfig struct {
	// Level is the log level: "debug", "info", "warn", "error".
	// Default: "info"
	Level string `yaml:"level,omitempty" json:"level,omitempty"`

	// Format is the log format: "json" or "console".
	// Default: "console"
	Format string `yaml:"format,omitempty" json:"format,omitempty"`
}

// LoadFromFile loads configuration from a YAML file.
func LoadFromFile(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("%w: %s", ErrConfigNotFound, path)
		}
		return nil, fmt.Errorf("reading config file: %w", err)
	}

	return LoadFromBytes(data)
}

// LoadFromBytes loads configuration from YAML bytes.
func LoadFromBytes(data []byte) (*Config, error) {
	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		// A TypeError means individual values failed to decode while the
		// rest of the document was applied. The faulted fields stay
		// unset and pick up defaults; anything else is a hard error.
		var typeErr *yaml.TypeError
		if !errors.As(err, &typeErr) {
			return nil, fmt.Errorf("parsing config: %w", err)
		}
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	cfg.ApplyDefaults()
	return &cfg, nil
}

// Default returns a configuration with all defaults applied and no
// target set. Used when running without a config file.
func Default() *Config {
	cfg := &Config{Name: "storefront-load"}
	cfg.ApplyDefaults()
	return cfg
}

// rateFields collects every probability field for range validation.
func (c *Config) rateFields() map[string]*float64 {
	return map[string]*float64{
		"flow.checkoutRate":            c.Flow.CheckoutRate,
		"flow.emptyCartVisitRate":      c.Flow.EmptyCartVisitRate,
		"flow.cartMutationRate":        c.Flow.CartMutationRate,
		"flow.couponRate":              c.Flow.CouponRate,
		"browsing.relatedRate":         c.Browsing.RelatedRate,
		"browsing.paginationRate":      c.Browsing.PaginationRate,
		"browsing.breadcrumbRate":      c.Browsing.BreadcrumbRate,
		"browsing.categoryExploreRate": c.Browsing.CategoryExploreRate,
		"browsing.interestFollowRate":  c.Browsing.InterestFollowRate,
		"browsing.distractionRate":     c.Browsing.DistractionRate,
		"browsing.impulseAddRate":      c.Browsing.ImpulseAddRate,
		"api.rate":                     c.API.Rate,
		"api.searchRate":               c.API.SearchRate,
		"cache.bypassRate":             c.Cache.BypassRate,
		"thresholds.maxErrorRate":      c.Thresholds.MaxErrorRate,
		"thresholds.minSuccessRate":    c.Thresholds.MinSuccessRate,
	}
}

// Validate validates the configuration.
func (c *Config) Validate() error {
	if c.Name == "" {
		return fmt.Errorf("%w: name is required", ErrInvalidConfig)
	}

	for field, v := range c.rateFields() {
		if v != nil && (*v < 0 || *v > 1) {
			return fmt.Errorf("%w: %s must be between 0.0 and 1.0, got %g", ErrInvalidConfig, field, *v)
		}
	}

	// The three navigation bands share one random draw; an oversized sum
	// would silently starve the exploration fallback.
	sum := 0.0
	if c.Browsing.RelatedRate != nil {
		sum += *c.Browsing.RelatedRate
	}
	if c.Browsing.PaginationRate != nil {
		sum += *c.Browsing.PaginationRate
	}
	if c.Browsing.BreadcrumbRate != nil {
		sum += *c.Browsing.BreadcrumbRate
	}
	if sum > 1.0 {
		return fmt.Errorf("%w: browsing band rates sum to %g, must not exceed 1.0", ErrInvalidConfig, sum)
	}

	if c.Load.VUs < 0 {
		return fmt.Errorf("%w: load.vus must not be negative", ErrInvalidConfig)
	}
	if c.Load.RampUp < 0 || c.Load.RampDown < 0 {
		return fmt.Errorf("%w: load ramp times must not be negative", ErrInvalidConfig)
	}
	if c.Duration < 0 {
		return fmt.Errorf("%w: duration must not be negative", ErrInvalidConfig)
	}

	if c.Behavior.StepsMin < 0 || c.Behavior.StepsMax < 0 {
		return fmt.Errorf("%w: behavior step bounds must not be negative", ErrInvalidConfig)
	}
	if c.Behavior.StepsMin > 0 && c.Behavior.StepsMax > 0 && c.Behavior.StepsMin > c.Behavior.StepsMax {
		return fmt.Errorf("%w: behavior.stepsMin exceeds behavior.stepsMax", ErrInvalidConfig)
	}
	if c.Behavior.ThinkTimeMin > 0 && c.Behavior.ThinkTimeMax > 0 && c.Behavior.ThinkTimeMin > c.Behavior.ThinkTimeMax {
		return fmt.Errorf("%w: behavior.thinkTimeMin exceeds behavior.thinkTimeMax", ErrInvalidConfig)
	}

	if c.Flow.QuantityMin > 0 && c.Flow.QuantityMax > 0 && c.Flow.QuantityMin > c.Flow.QuantityMax {
		return fmt.Errorf("%w: flow.quantityMin exceeds flow.quantityMax", ErrInvalidConfig)
	}
	if c.Flow.CartMaxItems < 0 {
		return fmt.Errorf("%w: flow.cartMaxItems must not be negative", ErrInvalidConfig)
	}

	if c.Discovery.FetchRate < 0 {
		return fmt.Errorf("%w: discovery.fetchRate must not be negative", ErrInvalidConfig)
	}

	return nil
}

func floatPtr(v float64) *float64 { return &v }

func boolPtr(v bool) *bool { return &v }

// ApplyDefaults applies default values to unset fields.
func (c *Config) ApplyDefaults() {
	if c.Version == "" {
		c.Version = "1.0"
	}

	if c.Duration == 0 {
		c.Duration = 5 * time.Minute
	}

	if c.Target.Timeout == 0 {
		c.Target.Timeout = 30 * time.Second
	}

	if c.Load.VUs == 0 {
		c.Load.VUs = 10
	}
	if c.Load.RampUp == 0 {
		c.Load.RampUp = 10 * time.Second
	}
	if c.Load.IterationPause == 0 {
		c.Load.IterationPause = 2 * time.Second
	}

	if c.Behavior.ThinkTimeMin == 0 {
		c.Behavior.ThinkTimeMin = 1 * time.Second
	}
	if c.Behavior.ThinkTimeMax == 0 {
		c.Behavior.ThinkTimeMax = 5 * time.Second
	}
	if c.Behavior.StepsMin == 0 {
		c.Behavior.StepsMin = 3
	}
	if c.Behavior.StepsMax == 0 {
		c.Behavior.StepsMax = 10
	}
	if c.Behavior.InterestsMin == 0 {
		c.Behavior.InterestsMin = 1
	}
	if c.Behavior.InterestsMax == 0 {
		c.Behavior.InterestsMax = 3
	}

	if c.Flow.CheckoutRate == nil {
		c.Flow.CheckoutRate = floatPtr(0.35)
	}
	if c.Flow.CartMaxItems == 0 {
		c.Flow.CartMaxItems = 5
	}
	if c.Flow.EmptyCartVisitRate == nil {
		c.Flow.EmptyCartVisitRate = floatPtr(0.1)
	}
	if c.Flow.CartMutationRate == nil {
		c.Flow.CartMutationRate = floatPtr(0.3)
	}
	if c.Flow.CouponRate == nil {
		c.Flow.CouponRate = floatPtr(0.2)
	}
	if c.Flow.QuantityMin == 0 {
		c.Flow.QuantityMin = 1
	}
	if c.Flow.QuantityMax == 0 {
		c.Flow.QuantityMax = 3
	}

	if c.Browsing.RelatedRate == nil {
		c.Browsing.RelatedRate = floatPtr(0.25)
	}
	if c.Browsing.PaginationRate == nil {
		c.Browsing.PaginationRate = floatPtr(0.2)
	}
	if c.Browsing.BreadcrumbRate == nil {
		c.Browsing.BreadcrumbRate = floatPtr(0.1)
	}
	if c.Browsing.CategoryExploreRate == nil {
		c.Browsing.CategoryExploreRate = floatPtr(0.75)
	}
	if c.Browsing.InterestFollowRate == nil {
		c.Browsing.InterestFollowRate = floatPtr(0.7)
	}
	if c.Browsing.DistractionRate == nil {
		c.Browsing.DistractionRate = floatPtr(0.15)
	}
	if c.Browsing.ImpulseAddRate == nil {
		c.Browsing.ImpulseAddRate = floatPtr(0.5)
	}

	if c.API.Enabled == nil {
		c.API.Enabled = boolPtr(true)
	}
	if c.API.Rate == nil {
		c.API.Rate = floatPtr(0.3)
	}
	if c.API.SearchRate == nil {
		c.API.SearchRate = floatPtr(0.15)
	}

	if c.Cache.BypassRate == nil {
		c.Cache.BypassRate = floatPtr(0.1)
	}

	if c.Discovery.Enabled == nil {
		c.Discovery.Enabled = boolPtr(true)
	}
	if c.Discovery.DeepCrawl == nil {
		c.Discovery.DeepCrawl = boolPtr(true)
	}
	if c.Discovery.MaxProducts == 0 {
		c.Discovery.MaxProducts = 50
	}
	if c.Discovery.MaxCategories == 0 {
		c.Discovery.MaxCategories = 20
	}
	if c.Discovery.MaxSearchTerms == 0 {
		c.Discovery.MaxSearchTerms = 20
	}
	if c.Discovery.MaxCrawlPages == 0 {
		c.Discovery.MaxCrawlPages = 5
	}
	if c.Discovery.FetchRate == 0 {
		c.Discovery.FetchRate = 5
	}
	if len(c.Discovery.Exclude) == 0 {
		c.Discovery.Exclude = []string{
			"admin", "customer", "account", "login", "logout",
			"checkout", "wishlist", "compare", "contact",
			"privacy", "terms", "cookie", "newsletter",
		}
	}
	if len(c.Discovery.SeedProducts) == 0 {
		c.Discovery.SeedProducts = []string{
			"/radiant-tee.html",
			"/breathe-easy-tank.html",
			"/argus-all-weather-tank.html",
			"/hero-hoodie.html",
			"/fusion-backpack.html",
			"/push-it-messenger-bag.html",
		}
	}
	if len(c.Discovery.SeedCategories) == 0 {
		c.Discovery.SeedCategories = []string{
			"/women.html",
			"/men.html",
			"/gear.html",
			"/training.html",
			"/sale.html",
		}
	}
	if len(c.Discovery.SeedSearchTerms) == 0 {
		c.Discovery.SeedSearchTerms = []string{
			"jacket", "tee", "bag", "watch", "yoga",
			"pants", "shorts", "hoodie", "bottle", "tank",
		}
	}

	if c.Paths.Cart == "" {
		c.Paths.Cart = "/checkout/cart/"
	}
	if c.Paths.Checkout == "" {
		c.Paths.Checkout = "/checkout/"
	}
	if c.Paths.CartAdd == "" {
		c.Paths.CartAdd = "/checkout/cart/add/"
	}
	if c.Paths.CartUpdate == "" {
		c.Paths.CartUpdate = "/checkout/cart/updatePost/"
	}
	if c.Paths.CartRemove == "" {
		c.Paths.CartRemove = "/checkout/cart/delete/"
	}
	if c.Paths.Coupon == "" {
		c.Paths.Coupon = "/checkout/cart/couponPost/"
	}
	if c.Paths.Search == "" {
		c.Paths.Search = "/catalogsearch/result/"
	}
	if c.Paths.APIBase == "" {
		c.Paths.APIBase = "/rest/V1"
	}

	if c.Output.ReportInterval == 0 {
		c.Output.ReportInterval = 10 * time.Second
	}
	if c.Output.Prometheus.Port == 0 {
		c.Output.Prometheus.Port = 9090
	}
	if c.Output.Prometheus.Path == "" {
		c.Output.Prometheus.Path = "/metrics"
	}

	if c.Log.Level == "" {
		c.Log.Level = "info"
	}
	if c.Log.Format == "" {
		c.Log.Format = "console"
	}
}
