// Package discovery builds the shared pool of storefront URLs that
// virtual users browse. It runs once before load starts; the result is
// immutable and safe to share across all sessions.
package discovery

import (
	"context"
	"net/url"

	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/example/storefront/tools/shopload/internal/client"
	"github.com/example/storefront/tools/shopload/internal/config"
	"github.com/example/storefront/tools/shopload/internal/extract"
)

// SeedData is the discovered content pool. Fields are read-only after
// Discover returns.
type SeedData struct {
	Products    []string
	Categories  []string
	SearchTerms []string
}

// Discoverer crawls the storefront homepage (and optionally one hop of
// category pages) to harvest browsable URLs.
type Discoverer struct {
	client  *client.Client
	cfg     config.DiscoveryConfig
	limiter *rate.Limiter
	log     *zap.Logger
}

// New creates a Discoverer. Fetches are paced by cfg.FetchRate so the
// pre-flight crawl never looks like an attack to the target.
func New(c *client.Client, cfg config.DiscoveryConfig, log *zap.Logger) *Discoverer {
	fetchRate := cfg.FetchRate
	if fetchRate <= 0 {
		fetchRate = 5
	}
	return &Discoverer{
		client:  c,
		cfg:     cfg,
		limiter: rate.NewLimiter(rate.Limit(fetchRate), 1),
		log:     log.Named("discovery"),
	}
}

// Discover returns the content pool for the run. It never returns an
// empty pool: when crawling is disabled, fails, or yields nothing, the
// configured static seeds fill the gap so sessions cannot stall.
func (d *Discoverer) Discover(ctx context.Context) *SeedData {
	if d.cfg.Enabled == nil || !*d.cfg.Enabled {
		d.log.Info("discovery disabled, using static seeds")
		return d.fallback()
	}

	base, err := url.Parse(d.client.BaseURL())
	if err != nil {
		d.log.Warn("unparseable origin, using static seeds", zap.Error(err))
		return d.fallback()
	}

	body := d.fetch(ctx, "/")
	if len(body) == 0 {
		d.log.Warn("homepage fetch failed, using static seeds")
		return d.fallback()
	}

	links := extract.ExtractLinks(body, base, d.cfg.Exclude)
	seed := &SeedData{}
	seenProduct := make(map[string]bool)
	seenCategory := make(map[string]bool)
	merge(seed, links, seenProduct, seenCategory)

	terms := extract.SearchTerms(body, d.cfg.MaxSearchTerms)

	if d.cfg.DeepCrawl != nil && *d.cfg.DeepCrawl {
		crawled := 0
		for _, cat := range append([]string(nil), seed.Categories...) {
			if crawled >= d.cfg.MaxCrawlPages {
				break
			}
			if len(seed.Products) >= d.cfg.MaxProducts && len(seed.Categories) >= d.cfg.MaxCategories {
				break
			}

			page := d.fetch(ctx, cat)
			crawled++
			if len(page) == 0 {
				continue
			}
			merge(seed, extract.ExtractLinks(page, base, d.cfg.Exclude), seenProduct, seenCategory)
		}
		d.log.Debug("deep crawl finished", zap.Int("pagesFetched", crawled))
	}

	if len(seed.Products) == 0 {
		d.log.Info("no products discovered, using static product seeds")
		seed.Products = append([]string(nil), d.cfg.SeedProducts...)
	}
	if len(seed.Categories) == 0 {
		d.log.Info("no categories discovered, using static category seeds")
		seed.Categories = append([]string(nil), d.cfg.SeedCategories...)
	}
	if len(terms) == 0 {
		terms = append([]string(nil), d.cfg.SeedSearchTerms...)
	}
	seed.SearchTerms = truncate(terms, d.cfg.MaxSearchTerms)
	seed.Products = truncate(seed.Products, d.cfg.MaxProducts)
	seed.Categories = truncate(seed.Categories, d.cfg.MaxCategories)

	d.log.Info("discovery complete",
		zap.Int("products", len(seed.Products)),
		zap.Int("categories", len(seed.Categories)),
		zap.Int("searchTerms", len(seed.SearchTerms)),
	)
	return seed
}

// fetch performs one rate-limited GET and returns the body, or nil on
// any failure.
func (d *Discoverer) fetch(ctx context.Context, page string) []byte {
	if err := d.limiter.Wait(ctx); err != nil {
		return nil
	}
	resp := d.client.Get(ctx, page, nil, false)
	if !resp.OK() {
		if resp.Error != nil {
			d.log.Debug("fetch failed", zap.String("page", page), zap.Error(resp.Error))
		} else {
			d.log.Debug("fetch failed", zap.String("page", page), zap.Int("status", resp.StatusCode))
		}
		return nil
	}
	return resp.Body
}

// merge folds one page's links into the pool. Related links count as
// products since they point at product pages.
func merge(seed *SeedData, links extract.Links, seenProduct, seenCategory map[string]bool) {
	for _, a := range links.Products {
		if !seenProduct[a.URL] {
			seenProduct[a.URL] = true
			seed.Products = append(seed.Products, a.URL)
		}
	}
	for _, href := range links.Related {
		if !seenProduct[href] {
			seenProduct[href] = true
			seed.Products = append(seed.Products, href)
		}
	}
	for _, a := range links.Categories {
		if !seenCategory[a.URL] {
			seenCategory[a.URL] = true
			seed.Categories = append(seed.Categories, a.URL)
		}
	}
}

func (d *Discoverer) fallback() *SeedData {
	return &SeedData{
		Products:    truncate(append([]string(nil), d.cfg.SeedProducts...), d.cfg.MaxProducts),
		Categories:  truncate(append([]string(nil), d.cfg.SeedCategories...), d.cfg.MaxCategories),
		SearchTerms: truncate(append([]string(nil), d.cfg.SeedSearchTerms...), d.cfg.MaxSearchTerms),
	}
}

func truncate(list []string, max int) []string {
	if max > 0 && len(list) > max {
		return list[:max]
	}
	return list
}
