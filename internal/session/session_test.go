package session

import (
	"context"
	"fmt"
	"math/rand"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/example/storefront/tools/shopload/internal/client"
	"github.com/example/storefront/tools/shopload/internal/config"
	"github.com/example/storefront/tools/shopload/internal/discovery"
	"github.com/example/storefront/tools/shopload/internal/extract"
)

func newTestAgent(t *testing.T, baseURL string, seed int64, mutate func(*config.Config)) *Agent {
	t.Helper()

	cfg := config.Default()
	cfg.Target.BaseURL = baseURL
	cfg.Cache.BypassRate = zero() // keep request URLs deterministic
	if mutate != nil {
		mutate(cfg)
	}

	c, err := client.New(cfg.Target)
	require.NoError(t, err)

	agent, err := NewAgent(Params{
		Client: c,
		Config: cfg,
		Seed: &discovery.SeedData{
			Products:    []string{"/seed-tee.html", "/seed-bag.html"},
			Categories:  []string{"/women.html"},
			SearchTerms: []string{"jacket"},
		},
		Rand:           rand.New(rand.NewSource(seed)),
		Interests:      []string{"shoes", "fitness"},
		ShoppingIntent: 0.5,
	})
	require.NoError(t, err)
	return agent
}

func zero() *float64 {
	v := 0.0
	return &v
}

func TestNewAgent_RequiresDeps(t *testing.T) {
	_, err := NewAgent(Params{})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "required")
}

func TestVisitPage_Success(t *testing.T) {
	page := `
<html><body>
<input type="hidden" name="form_key" value="TOK123">
<a href="/cat/shoes.html" class="category">Shoes</a>
<div class="related"><a href="/running-short.html">Running Short</a></div>
</body></html>`
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(page))
	}))
	defer server.Close()

	a := newTestAgent(t, server.URL, 1, nil)
	res := a.VisitPage(context.Background(), "/", PageHomepage)

	assert.True(t, res.Success)
	assert.True(t, a.Visited("/"))
	assert.Equal(t, "TOK123", a.FormToken())
	assert.Equal(t, PageHomepage, a.Context())
	assert.Greater(t, res.NewLinks, 0)

	cats, _, related, _, _ := a.PoolSizes()
	assert.Equal(t, 1, cats, "interest-matching category admitted")
	assert.Equal(t, 1, related)
}

func TestVisitPage_FailureLeavesStateAlone(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer server.Close()

	a := newTestAgent(t, server.URL, 1, nil)
	res := a.VisitPage(context.Background(), "/broken.html", PageCategory)

	assert.False(t, res.Success)
	assert.False(t, a.Visited("/broken.html"), "failed visits stay retryable")
	assert.Empty(t, a.FormToken())
	assert.Equal(t, PageCategory, a.Context(), "context still follows the attempt")
}

func TestVisitPage_RevisitSkipped(t *testing.T) {
	var hits int
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits++
		w.Write([]byte("<html><body>page</body></html>"))
	}))
	defer server.Close()

	a := newTestAgent(t, server.URL, 1, nil)

	first := a.VisitPage(context.Background(), "/page.html", PageProduct)
	require.True(t, first.Success)
	assert.False(t, first.Skipped)

	second := a.VisitPage(context.Background(), "/page.html", PageProduct)
	assert.True(t, second.Skipped)
	assert.False(t, second.Success)
	assert.Nil(t, second.Response)

	assert.Equal(t, 1, hits, "a URL is fetched at most once per session")
}

func TestVisitPage_FailedVisitStaysRetryable(t *testing.T) {
	var hits int
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits++
		if hits == 1 {
			w.WriteHeader(http.StatusInternalServerError)
			return
		}
		w.Write([]byte("<html><body>recovered</body></html>"))
	}))
	defer server.Close()

	a := newTestAgent(t, server.URL, 1, nil)

	first := a.VisitPage(context.Background(), "/flaky.html", PageProduct)
	assert.False(t, first.Success)
	assert.False(t, first.Skipped, "only successful visits arm the skip")

	second := a.VisitPage(context.Background(), "/flaky.html", PageProduct)
	assert.True(t, second.Success)
	assert.Equal(t, 2, hits)
}

func TestVisitPage_NavigationLog(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/broken.html" {
			w.WriteHeader(http.StatusInternalServerError)
			return
		}
		w.Write([]byte("<html><body>page</body></html>"))
	}))
	defer server.Close()

	a := newTestAgent(t, server.URL, 1, nil)
	require.Empty(t, a.Path())

	a.VisitPage(context.Background(), "/women.html", PageCategory)
	a.VisitPage(context.Background(), "/broken.html", PageProduct)
	a.VisitPage(context.Background(), "/women.html", PageCategory) // revisit, no attempt

	path := a.Path()
	require.Len(t, path, 2, "failed visits are logged, skipped revisits are not")

	assert.Equal(t, "/women.html", path[0].URL)
	assert.Equal(t, PageCategory, path[0].Type)
	assert.Equal(t, "/broken.html", path[1].URL)
	assert.Equal(t, PageProduct, path[1].Type)

	assert.GreaterOrEqual(t, path[0].Elapsed, time.Duration(0))
	assert.GreaterOrEqual(t, path[1].Elapsed, path[0].Elapsed, "elapsed stamps are monotonic")
}

func TestVisitPage_TokenKeptFromFirstPage(t *testing.T) {
	var served int
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		served++
		fmt.Fprintf(w, `<input type="hidden" name="form_key" value="TOK%d">`, served)
	}))
	defer server.Close()

	a := newTestAgent(t, server.URL, 1, nil)
	a.VisitPage(context.Background(), "/a.html", PageCategory)
	a.VisitPage(context.Background(), "/b.html", PageCategory)
	assert.Equal(t, "TOK1", a.FormToken())
}

func TestVisitPage_ProductCapture(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`
<input type="hidden" name="product" value="1556">
<input name="super_attribute[93]" value="">`))
	}))
	defer server.Close()

	a := newTestAgent(t, server.URL, 1, nil)
	a.VisitPage(context.Background(), "/radiant-tee.html", PageProduct)

	id, hasOptions := a.LastProduct()
	assert.Equal(t, "1556", id)
	assert.True(t, hasOptions)
}

func TestVisitPage_RelatedVisitBecomesProductContext(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("<html></html>"))
	}))
	defer server.Close()

	a := newTestAgent(t, server.URL, 1, nil)
	a.VisitPage(context.Background(), "/related-item.html", PageRelated)
	assert.Equal(t, PageProduct, a.Context())
}

func TestLinkPriority(t *testing.T) {
	tests := []struct {
		name    string
		context PageType
		anchor  extract.Anchor
		kind    PageType
		intent  float64
		want    float64
	}{
		{
			name:    "interesting category at homepage clamps to one",
			context: PageHomepage,
			anchor:  extract.Anchor{URL: "/cat/shoes.html", Class: "category"},
			kind:    PageCategory,
			want:    1.0, // 0.1 + 0.6 + 0.3
		},
		{
			name:    "dull category away from homepage",
			context: PageProduct,
			anchor:  extract.Anchor{URL: "/sale.html"},
			kind:    PageCategory,
			want:    0.1,
		},
		{
			name:    "dull product at category with zero intent",
			context: PageCategory,
			anchor:  extract.Anchor{URL: "/plain-mug.html"},
			kind:    PageProduct,
			want:    0.5, // 0.1 + 0.4
		},
		{
			name:    "dull product at product page with full intent",
			context: PageProduct,
			anchor:  extract.Anchor{URL: "/plain-mug.html"},
			kind:    PageProduct,
			intent:  1.0,
			want:    0.6, // 0.1 + 0.2 + 0.3
		},
		{
			name:    "interest match via anchor text",
			context: PageCheckout,
			anchor:  extract.Anchor{URL: "/x.html", Text: "Fitness Tracker"},
			kind:    PageProduct,
			want:    0.7, // 0.1 + 0.6
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			a := newTestAgent(t, "https://shop.example.com", 1, nil)
			a.context = tt.context
			a.ShoppingIntent = tt.intent
			assert.InDelta(t, tt.want, a.LinkPriority(tt.anchor, tt.kind), 1e-9)
		})
	}
}

func TestLinkPriority_MonotonicInIntent(t *testing.T) {
	a := newTestAgent(t, "https://shop.example.com", 1, nil)
	a.context = PageCategory
	anchor := extract.Anchor{URL: "/plain-mug.html"}

	prev := -1.0
	for _, intent := range []float64{0, 0.25, 0.5, 0.75, 1} {
		a.ShoppingIntent = intent
		p := a.LinkPriority(anchor, PageProduct)
		assert.GreaterOrEqual(t, p, prev)
		prev = p
	}
}

func TestUpdateDiscovery_FloorRejectsLowPriority(t *testing.T) {
	a := newTestAgent(t, "https://shop.example.com", 1, nil)
	a.context = PageProduct // no context bonus for categories
	a.Interests = nil       // no interest bonus
	a.ShoppingIntent = 0

	added := a.updateDiscovery(extract.Links{
		Categories: []extract.Anchor{{URL: "/sale.html"}},
		Products:   []extract.Anchor{{URL: "/plain-mug.html"}},
	})
	assert.Zero(t, added, "base priority clears no floor")
}

func TestUpdateDiscovery_InterestingAlwaysSurvivesThinning(t *testing.T) {
	a := newTestAgent(t, "https://shop.example.com", 42, nil)
	a.context = PageHomepage

	var links extract.Links
	for i := 0; i < 50; i++ {
		links.Categories = append(links.Categories, extract.Anchor{
			URL:   fmt.Sprintf("/shoes-%d.html", i),
			Class: "category",
		})
	}
	added := a.updateDiscovery(links)
	assert.Equal(t, 50, added)
}

func TestUpdateDiscovery_DullLinksAreThinned(t *testing.T) {
	a := newTestAgent(t, "https://shop.example.com", 42, nil)
	a.context = PageCategory
	a.Interests = nil
	a.ShoppingIntent = 1.0 // 0.1+0.4+0.3=0.8 clears the product floor

	var links extract.Links
	for i := 0; i < 200; i++ {
		links.Products = append(links.Products, extract.Anchor{URL: fmt.Sprintf("/item-%d.html", i)})
	}
	added := a.updateDiscovery(links)

	// Keep rate is 0.3; allow generous slack around the expectation.
	assert.Greater(t, added, 20)
	assert.Less(t, added, 120)
}

func TestUpdateDiscovery_UnconditionalPools(t *testing.T) {
	a := newTestAgent(t, "https://shop.example.com", 1, nil)
	a.Interests = nil

	added := a.updateDiscovery(extract.Links{
		Breadcrumbs: []string{"/", "/women.html"},
		Pagination:  []string{"/women.html?p=2"},
		Related:     []string{"/related-tank.html"},
	})
	assert.Equal(t, 4, added)

	// Dedup on a second pass.
	added = a.updateDiscovery(extract.Links{
		Breadcrumbs: []string{"/"},
		Related:     []string{"/related-tank.html"},
	})
	assert.Zero(t, added)
}

func TestUpdateDiscovery_PoolCap(t *testing.T) {
	a := newTestAgent(t, "https://shop.example.com", 1, nil)

	var links extract.Links
	for i := 0; i < maxPoolSize+50; i++ {
		links.Related = append(links.Related, fmt.Sprintf("/rel-%d.html", i))
	}
	a.updateDiscovery(links)

	_, _, related, _, _ := a.PoolSizes()
	assert.Equal(t, maxPoolSize, related)
}
