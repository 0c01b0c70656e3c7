package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadFromBytes_MinimalConfig(t *testing.T) {
	yaml := `
name: "Test Config"
target:
  baseURL: "https://shop.example.com"
`
	cfg, err := LoadFromBytes([]byte(yaml))
	require.NoError(t, err)
	assert.Equal(t, "Test Config", cfg.Name)
	assert.Equal(t, "https://shop.example.com", cfg.Target.BaseURL)
	assert.Equal(t, 30*time.Second, cfg.Target.Timeout) // Default
	assert.Equal(t, 5*time.Minute, cfg.Duration)        // Default
	assert.Equal(t, 10, cfg.Load.VUs)                   // Default
	assert.Equal(t, 3, cfg.Behavior.StepsMin)           // Default
	assert.Equal(t, 10, cfg.Behavior.StepsMax)          // Default
	require.NotNil(t, cfg.Flow.CheckoutRate)
	assert.InDelta(t, 0.35, *cfg.Flow.CheckoutRate, 1e-9)
	require.NotNil(t, cfg.Browsing.CategoryExploreRate)
	assert.InDelta(t, 0.75, *cfg.Browsing.CategoryExploreRate, 1e-9)
	assert.Equal(t, "/checkout/cart/", cfg.Paths.Cart)
	assert.NotEmpty(t, cfg.Discovery.SeedCategories)
	assert.NotEmpty(t, cfg.Discovery.SeedSearchTerms)
}

func TestLoadFromBytes_FullConfig(t *testing.T) {
	yaml := `
name: "Full Test Config"
description: "A comprehensive test config"
version: "2.0"
target:
  baseURL: "https://shop.example.com"
  timeout: 60s
  tlsSkipVerify: true
  headers:
    X-Custom-Header: "test-value"
duration: 10m
load:
  vus: 25
  rampUp: 30s
  rampDown: 15s
  iterationPause: 5s
behavior:
  thinkTimeMin: 500ms
  thinkTimeMax: 2s
  stepsMin: 5
  stepsMax: 20
flow:
  checkoutRate: 0.5
  cartMaxItems: 3
  couponRate: 0.0
browsing:
  relatedRate: 0.3
  paginationRate: 0.3
  breadcrumbRate: 0.2
  categoryExploreRate: 0.8
  interestFollowRate: 0.6
  distractionRate: 0.05
api:
  enabled: false
cache:
  bypassRate: 0.25
discovery:
  enabled: false
  seedProducts:
    - "/widget-pro.html"
  seedCategories:
    - "/widgets.html"
thresholds:
  maxErrorRate: 0.01
  maxP95Latency: 800ms
  pages:
    checkout:
      maxP95Latency: 2s
output:
  reportInterval: 5s
  prometheus:
    enabled: true
    port: 9191
`
	cfg, err := LoadFromBytes([]byte(yaml))
	require.NoError(t, err)

	assert.Equal(t, "2.0", cfg.Version)
	assert.Equal(t, 10*time.Minute, cfg.Duration)
	assert.Equal(t, 25, cfg.Load.VUs)
	assert.Equal(t, 30*time.Second, cfg.Load.RampUp)
	assert.Equal(t, 15*time.Second, cfg.Load.RampDown)
	assert.Equal(t, 500*time.Millisecond, cfg.Behavior.ThinkTimeMin)
	assert.Equal(t, 20, cfg.Behavior.StepsMax)
	assert.InDelta(t, 0.5, *cfg.Flow.CheckoutRate, 1e-9)
	assert.Equal(t, 3, cfg.Flow.CartMaxItems)

	// Explicit zero must survive defaulting.
	require.NotNil(t, cfg.Flow.CouponRate)
	assert.Zero(t, *cfg.Flow.CouponRate)

	assert.InDelta(t, 0.3, *cfg.Browsing.RelatedRate, 1e-9)
	assert.InDelta(t, 0.8, *cfg.Browsing.CategoryExploreRate, 1e-9)
	assert.InDelta(t, 0.6, *cfg.Browsing.InterestFollowRate, 1e-9)
	assert.InDelta(t, 0.05, *cfg.Browsing.DistractionRate, 1e-9)
	assert.False(t, *cfg.API.Enabled)
	assert.InDelta(t, 0.25, *cfg.Cache.BypassRate, 1e-9)
	assert.False(t, *cfg.Discovery.Enabled)
	assert.Equal(t, []string{"/widget-pro.html"}, cfg.Discovery.SeedProducts)
	assert.InDelta(t, 0.01, *cfg.Thresholds.MaxErrorRate, 1e-9)
	assert.Equal(t, 800*time.Millisecond, cfg.Thresholds.MaxP95Latency)
	assert.Equal(t, 2*time.Second, cfg.Thresholds.Pages["checkout"].MaxP95Latency)
	assert.True(t, cfg.Output.Prometheus.Enabled)
	assert.Equal(t, 9191, cfg.Output.Prometheus.Port)
	assert.Equal(t, "/metrics", cfg.Output.Prometheus.Path) // Default
}

func TestValidate_Errors(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
		errMsg string
	}{
		{
			name:   "missing name",
			mutate: func(c *Config) { c.Name = "" },
			errMsg: "name is required",
		},
		{
			name:   "rate above one",
			mutate: func(c *Config) { c.Flow.CheckoutRate = floatPtr(1.5) },
			errMsg: "flow.checkoutRate",
		},
		{
			name:   "negative rate",
			mutate: func(c *Config) { c.Cache.BypassRate = floatPtr(-0.1) },
			errMsg: "cache.bypassRate",
		},
		{
			name: "band sum exceeds one",
			mutate: func(c *Config) {
				c.Browsing.RelatedRate = floatPtr(0.5)
				c.Browsing.PaginationRate = floatPtr(0.4)
				c.Browsing.BreadcrumbRate = floatPtr(0.2)
			},
			errMsg: "band rates sum",
		},
		{
			name:   "explore rate above one",
			mutate: func(c *Config) { c.Browsing.CategoryExploreRate = floatPtr(1.2) },
			errMsg: "browsing.categoryExploreRate",
		},
		{
			name:   "negative vus",
			mutate: func(c *Config) { c.Load.VUs = -1 },
			errMsg: "load.vus",
		},
		{
			name:   "negative ramp down",
			mutate: func(c *Config) { c.Load.RampDown = -time.Second },
			errMsg: "ramp times",
		},
		{
			name: "inverted step bounds",
			mutate: func(c *Config) {
				c.Behavior.StepsMin = 8
				c.Behavior.StepsMax = 2
			},
			errMsg: "stepsMin exceeds",
		},
		{
			name: "inverted think time bounds",
			mutate: func(c *Config) {
				c.Behavior.ThinkTimeMin = 5 * time.Second
				c.Behavior.ThinkTimeMax = 1 * time.Second
			},
			errMsg: "thinkTimeMin exceeds",
		},
		{
			name: "inverted quantity bounds",
			mutate: func(c *Config) {
				c.Flow.QuantityMin = 4
				c.Flow.QuantityMax = 2
			},
			errMsg: "quantityMin exceeds",
		},
		{
			name:   "negative fetch rate",
			mutate: func(c *Config) { c.Discovery.FetchRate = -1 },
			errMsg: "discovery.fetchRate",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := &Config{Name: "valid"}
			tt.mutate(cfg)
			err := cfg.Validate()
			require.Error(t, err)
			assert.ErrorIs(t, err, ErrInvalidConfig)
			assert.Contains(t, err.Error(), tt.errMsg)
		})
	}
}

func TestValidate_BandSumExactlyOne(t *testing.T) {
	cfg := &Config{Name: "bands"}
	cfg.Browsing.RelatedRate = floatPtr(0.5)
	cfg.Browsing.PaginationRate = floatPtr(0.3)
	cfg.Browsing.BreadcrumbRate = floatPtr(0.2)
	assert.NoError(t, cfg.Validate())
}

func TestLoadFromBytes_InvalidYAML(t *testing.T) {
	_, err := LoadFromBytes([]byte("name: [unclosed"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "parsing config")
}

func TestLoadFromBytes_BadValueFallsBackToDefault(t *testing.T) {
	// One garbled value must not reject the document: the well-formed
	// fields survive and the faulted one takes its default.
	yaml := `
name: "partial"
target:
  baseURL: "https://shop.example.com"
flow:
  checkoutRate: "not-a-number"
behavior:
  stepsMin: 4
`
	cfg, err := LoadFromBytes([]byte(yaml))
	require.NoError(t, err)

	assert.Equal(t, "partial", cfg.Name)
	assert.Equal(t, 4, cfg.Behavior.StepsMin)
	require.NotNil(t, cfg.Flow.CheckoutRate)
	assert.Equal(t, 0.35, *cfg.Flow.CheckoutRate)
}

func TestLoadFromFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "shopload.yaml")
	content := `
name: "File Config"
target:
  baseURL: "https://shop.example.com"
`
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))

	cfg, err := LoadFromFile(path)
	require.NoError(t, err)
	assert.Equal(t, "File Config", cfg.Name)
}

func TestLoadFromFile_NotFound(t *testing.T) {
	_, err := LoadFromFile("/nonexistent/shopload.yaml")
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrConfigNotFound)
}

func TestDefault(t *testing.T) {
	cfg := Default()
	assert.Equal(t, "storefront-load", cfg.Name)
	assert.NoError(t, cfg.Validate())
	assert.Equal(t, 10, cfg.Load.VUs)
	assert.Equal(t, "/catalogsearch/result/", cfg.Paths.Search)
}
