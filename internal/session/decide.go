package session

// Choice is the decision engine's output: where to go next and what
// kind of page it is.
type Choice struct {
	URL  string
	Type PageType
}

// NextURL picks the agent's next destination. One uniform draw is
// checked against three cumulative probability bands in fixed order
// (related products, then pagination, then breadcrumbs); the remainder
// of the draw falls through to a second exploration draw over the
// category and product pools. The band order is deliberate: a
// related-product click is the highest-engagement action, in-listing
// paging the next, backing out via breadcrumbs the next, and generic
// wandering the default.
//
// The second return value is false when no unvisited URL remains in
// any pool; callers fall back to shared seed data or end the journey.
func (a *Agent) NextURL() (Choice, bool) {
	d := a.rng.Float64()

	relatedBand := *a.cfg.Browsing.RelatedRate
	paginationBand := relatedBand + *a.cfg.Browsing.PaginationRate
	breadcrumbBand := paginationBand + *a.cfg.Browsing.BreadcrumbRate

	switch {
	case d < relatedBand:
		if u, ok := a.pickPlain(a.related); ok {
			return Choice{URL: u, Type: PageRelated}, true
		}
	case d < paginationBand:
		if a.context == PageCategory || a.context == PagePagination {
			if u, ok := a.pickPlain(a.pagination); ok {
				return Choice{URL: u, Type: PagePagination}, true
			}
		}
	case d < breadcrumbBand:
		if u, ok := a.pickPlain(a.breadcrumbs); ok {
			return Choice{URL: u, Type: PageBreadcrumb}, true
		}
	}

	return a.explore()
}

// pickPlain returns a uniformly random unvisited entry.
func (a *Agent) pickPlain(pool []string) (string, bool) {
	candidates := pool[:0:0]
	for _, u := range pool {
		if !a.visited[u] {
			candidates = append(candidates, u)
		}
	}
	if len(candidates) == 0 {
		return "", false
	}
	return candidates[a.rng.Intn(len(candidates))], true
}

// explore is the decision engine's second, independent draw: a coin
// weighted by the category-explore rate picks which pool to draw from,
// falling back to the other pool when the first is exhausted. Category
// draws prefer the interest-matching subset at the interest-follow
// rate; product draws are uniform over the whole pool.
func (a *Agent) explore() (Choice, bool) {
	if a.rng.Float64() < *a.cfg.Browsing.CategoryExploreRate {
		if u, ok := a.pickCategory(); ok {
			return Choice{URL: u, Type: PageCategory}, true
		}
		if u, ok := a.pickScored(a.products, false); ok {
			return Choice{URL: u, Type: PageProduct}, true
		}
		return Choice{}, false
	}

	if u, ok := a.pickScored(a.products, false); ok {
		return Choice{URL: u, Type: PageProduct}, true
	}
	if u, ok := a.pickCategory(); ok {
		return Choice{URL: u, Type: PageCategory}, true
	}
	return Choice{}, false
}

// pickCategory draws an unvisited category link. When the
// interest-follow roll succeeds and interest-matching links remain,
// the draw is confined to that subset.
func (a *Agent) pickCategory() (string, bool) {
	if a.rng.Float64() < *a.cfg.Browsing.InterestFollowRate {
		if u, ok := a.pickScored(a.categories, true); ok {
			return u, true
		}
	}
	return a.pickScored(a.categories, false)
}

// pickScored returns a uniformly random unvisited pool entry,
// optionally restricted to interest-matching ones.
func (a *Agent) pickScored(pool []scoredLink, interestingOnly bool) (string, bool) {
	var candidates []string
	for _, l := range pool {
		if a.visited[l.url] {
			continue
		}
		if interestingOnly && !l.interesting {
			continue
		}
		candidates = append(candidates, l.url)
	}
	if len(candidates) == 0 {
		return "", false
	}
	return candidates[a.rng.Intn(len(candidates))], true
}

// SeedChoice draws a destination from the shared discovered pool,
// used when the agent's own pools are exhausted or as a distraction
// jump target. It avoids already-visited URLs when possible.
func (a *Agent) SeedChoice() (Choice, bool) {
	// Lean toward products when the shopper means business.
	wantProduct := a.rng.Float64() < 0.5+a.ShoppingIntent*0.3

	if wantProduct {
		if u, ok := a.pickPlain(a.seed.Products); ok {
			return Choice{URL: u, Type: PageProduct}, true
		}
		if u, ok := a.pickPlain(a.seed.Categories); ok {
			return Choice{URL: u, Type: PageCategory}, true
		}
	} else {
		if u, ok := a.pickPlain(a.seed.Categories); ok {
			return Choice{URL: u, Type: PageCategory}, true
		}
		if u, ok := a.pickPlain(a.seed.Products); ok {
			return Choice{URL: u, Type: PageProduct}, true
		}
	}
	return Choice{}, false
}

// SearchTerm draws a random discovered search term, or "" when the
// pool is empty.
func (a *Agent) SearchTerm() string {
	if len(a.seed.SearchTerms) == 0 {
		return ""
	}
	return a.seed.SearchTerms[a.rng.Intn(len(a.seed.SearchTerms))]
}
