package session

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/example/storefront/tools/shopload/internal/config"
)

func bandConfig(related, pagination, breadcrumb float64) func(*config.Config) {
	return func(c *config.Config) {
		c.Browsing.RelatedRate = &related
		c.Browsing.PaginationRate = &pagination
		c.Browsing.BreadcrumbRate = &breadcrumb
	}
}

func TestNextURL_RelatedBand(t *testing.T) {
	a := newTestAgent(t, "https://shop.example.com", 7, bandConfig(1, 0, 0))
	a.related = []string{"/rel-one.html", "/rel-two.html"}

	for i := 0; i < 20; i++ {
		choice, ok := a.NextURL()
		require.True(t, ok)
		assert.Equal(t, PageRelated, choice.Type)
		assert.Contains(t, a.related, choice.URL)
	}
}

func TestNextURL_PaginationNeedsListingContext(t *testing.T) {
	a := newTestAgent(t, "https://shop.example.com", 7, bandConfig(0, 1, 0))
	a.pagination = []string{"/women.html?p=2"}

	a.context = PageProduct
	_, ok := a.NextURL()
	assert.False(t, ok, "pagination band skipped outside listing context and no exploration pool")

	a.context = PageCategory
	choice, ok := a.NextURL()
	require.True(t, ok)
	assert.Equal(t, PagePagination, choice.Type)

	a.context = PagePagination
	choice, ok = a.NextURL()
	require.True(t, ok)
	assert.Equal(t, PagePagination, choice.Type)
}

func TestNextURL_BreadcrumbBand(t *testing.T) {
	a := newTestAgent(t, "https://shop.example.com", 7, bandConfig(0, 0, 1))
	a.breadcrumbs = []string{"/women.html"}

	choice, ok := a.NextURL()
	require.True(t, ok)
	assert.Equal(t, PageBreadcrumb, choice.Type)
	assert.Equal(t, "/women.html", choice.URL)
}

func TestNextURL_EmptyBandFallsThroughToExploration(t *testing.T) {
	// Full related band, but nothing in the related pool: the draw must
	// not be re-tried against later bands.
	a := newTestAgent(t, "https://shop.example.com", 7, bandConfig(1, 0, 0))
	a.pagination = []string{"/women.html?p=2"}
	a.context = PageCategory
	a.categories = []scoredLink{{url: "/gear.html", priority: 0.5}}

	for i := 0; i < 20; i++ {
		choice, ok := a.NextURL()
		require.True(t, ok)
		assert.NotEqual(t, PagePagination, choice.Type)
		assert.Equal(t, "/gear.html", choice.URL)
	}
}

func TestNextURL_ExploreFavorsCategories(t *testing.T) {
	// Exploration rolls its own coin: categories win at the configured
	// category-explore rate regardless of how the pools were scored at
	// admission.
	a := newTestAgent(t, "https://shop.example.com", 7, bandConfig(0, 0, 0))
	a.categories = []scoredLink{{url: "/gear.html", priority: 0.4}}
	a.products = []scoredLink{{url: "/tee.html", priority: 0.9}}

	const draws = 20000
	categoryDraws := 0
	for i := 0; i < draws; i++ {
		choice, ok := a.NextURL()
		require.True(t, ok)
		if choice.Type == PageCategory {
			categoryDraws++
		}
	}
	assert.InDelta(t, 0.75, float64(categoryDraws)/draws, 0.02)
}

func TestNextURL_ExploreRateZeroPrefersProducts(t *testing.T) {
	a := newTestAgent(t, "https://shop.example.com", 7, func(c *config.Config) {
		bandConfig(0, 0, 0)(c)
		c.Browsing.CategoryExploreRate = zero()
	})
	a.categories = []scoredLink{{url: "/gear.html", priority: 0.5}}
	a.products = []scoredLink{{url: "/tee.html", priority: 0.5}}

	for i := 0; i < 50; i++ {
		choice, ok := a.NextURL()
		require.True(t, ok)
		assert.Equal(t, PageProduct, choice.Type)
	}

	// An exhausted product pool falls back to categories.
	a.visited["/tee.html"] = true
	choice, ok := a.NextURL()
	require.True(t, ok)
	assert.Equal(t, PageCategory, choice.Type)
}

func TestNextURL_InterestFollowConfinesCategoryDraw(t *testing.T) {
	one := 1.0
	a := newTestAgent(t, "https://shop.example.com", 7, func(c *config.Config) {
		bandConfig(0, 0, 0)(c)
		c.Browsing.CategoryExploreRate = &one
		c.Browsing.InterestFollowRate = &one
	})
	a.categories = []scoredLink{
		{url: "/fitness.html", priority: 0.7, interesting: true},
		{url: "/clearance.html", priority: 0.4},
	}

	for i := 0; i < 50; i++ {
		choice, ok := a.NextURL()
		require.True(t, ok)
		assert.Equal(t, "/fitness.html", choice.URL)
	}

	// Once the interesting subset is exhausted the full pool serves.
	a.visited["/fitness.html"] = true
	choice, ok := a.NextURL()
	require.True(t, ok)
	assert.Equal(t, "/clearance.html", choice.URL)
}

func TestNextURL_InterestFollowZeroDrawsUniformly(t *testing.T) {
	one := 1.0
	a := newTestAgent(t, "https://shop.example.com", 7, func(c *config.Config) {
		bandConfig(0, 0, 0)(c)
		c.Browsing.CategoryExploreRate = &one
		c.Browsing.InterestFollowRate = zero()
	})
	a.categories = []scoredLink{
		{url: "/fitness.html", priority: 0.7, interesting: true},
		{url: "/clearance.html", priority: 0.4},
	}

	counts := map[string]int{}
	for i := 0; i < 200; i++ {
		choice, ok := a.NextURL()
		require.True(t, ok)
		counts[choice.URL]++
	}
	assert.Greater(t, counts["/clearance.html"], 0)
	assert.Greater(t, counts["/fitness.html"], 0)
}

func TestNextURL_SkipsVisited(t *testing.T) {
	a := newTestAgent(t, "https://shop.example.com", 7, bandConfig(0, 0, 0))
	for i := 0; i < 10; i++ {
		a.products = append(a.products, scoredLink{url: fmt.Sprintf("/p-%d.html", i), priority: 0.5})
	}

	seen := map[string]bool{}
	for {
		choice, ok := a.NextURL()
		if !ok {
			break
		}
		assert.False(t, seen[choice.URL], "URL %s proposed twice", choice.URL)
		seen[choice.URL] = true
		a.visited[choice.URL] = true
	}
	assert.Len(t, seen, 10, "every pool entry proposed exactly once")
}

func TestNextURL_Exhausted(t *testing.T) {
	a := newTestAgent(t, "https://shop.example.com", 7, nil)
	_, ok := a.NextURL()
	assert.False(t, ok)
}

func TestSeedChoice(t *testing.T) {
	a := newTestAgent(t, "https://shop.example.com", 7, nil)

	choice, ok := a.SeedChoice()
	require.True(t, ok)
	assert.Contains(t, []PageType{PageProduct, PageCategory}, choice.Type)

	// Exhaust the shared pool; SeedChoice must then report failure.
	for _, u := range a.seed.Products {
		a.visited[u] = true
	}
	for _, u := range a.seed.Categories {
		a.visited[u] = true
	}
	_, ok = a.SeedChoice()
	assert.False(t, ok)
}

func TestSearchTerm(t *testing.T) {
	a := newTestAgent(t, "https://shop.example.com", 7, nil)
	assert.Equal(t, "jacket", a.SearchTerm())

	a.seed.SearchTerms = nil
	assert.Empty(t, a.SearchTerm())
}
