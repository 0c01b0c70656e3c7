// Package session implements the virtual shopper. An Agent holds one
// user's browsing state: the pages it has seen, the links it found
// interesting enough to remember, its cart, and the random source that
// drives its decisions. Agents are not safe for concurrent use; each
// virtual user owns exactly one at a time.
package session

import (
	"context"
	"fmt"
	"math/rand"
	"net/url"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/example/storefront/tools/shopload/internal/client"
	"github.com/example/storefront/tools/shopload/internal/config"
	"github.com/example/storefront/tools/shopload/internal/discovery"
	"github.com/example/storefront/tools/shopload/internal/extract"
)

// PageType labels the kind of page a request targets. It doubles as
// the agent's browsing context and as the metrics dimension.
type PageType string

// Page types.
const (
	PageHomepage   PageType = "homepage"
	PageCategory   PageType = "category"
	PageProduct    PageType = "product"
	PagePagination PageType = "pagination"
	PageBreadcrumb PageType = "breadcrumb"
	PageRelated    PageType = "related"
	PageCart       PageType = "cart"
	PageCheckout   PageType = "checkout"
	PageSearch     PageType = "search"
)

// Priority scoring. Additive bonuses on a small base, clamped to 1.0;
// pool admission requires clearing the per-kind floor.
const (
	priorityBase           = 0.1
	priorityInterestBonus  = 0.6
	priorityCategoryAtHome = 0.3
	priorityProductAtCat   = 0.4
	priorityProductAtProd  = 0.2
	priorityIntentWeight   = 0.3
	priorityFloorCategory  = 0.3
	priorityFloorProduct   = 0.2
)

// Thinning keep-rates for links that miss the agent's interests.
// Interesting links are always kept.
const (
	keepDullCategory = 0.4
	keepDullProduct  = 0.3
)

// maxPoolSize bounds each discovered pool. The priority floor is a
// quality filter, not a cap, so a long session against a link-dense
// storefront needs a backstop.
const maxPoolSize = 256

// CartItem is one cart line as the agent believes it to be.
type CartItem struct {
	ProductID string
	Qty       int
	Options   map[string]string
}

// scoredLink is a pool entry with its admission-time priority and
// whether it matched the agent's interests when admitted.
type scoredLink struct {
	url         string
	priority    float64
	interesting bool
}

// PathEntry is one line of the agent's navigation log: where the agent
// went, what kind of page it expected, and how far into the session
// the attempt happened.
type PathEntry struct {
	URL     string
	Type    PageType
	Elapsed time.Duration
}

// Agent is one virtual shopper.
type Agent struct {
	ID             string
	Interests      []string
	ShoppingIntent float64

	client *client.Client
	cfg    *config.Config
	seed   *discovery.SeedData
	rng    *rand.Rand
	base   *url.URL
	log    *zap.Logger

	startedAt time.Time
	path      []PathEntry

	visited     map[string]bool
	categories  []scoredLink
	products    []scoredLink
	related     []string
	pagination  []string
	breadcrumbs []string
	inPool      map[string]bool

	context   PageType
	formToken string
	cart      []CartItem

	lastProductID  string
	lastHadOptions bool
}

// Params bundles the dependencies of a new Agent.
type Params struct {
	// Client is the agent's own cookie session.
	Client *client.Client

	// Config is the run configuration.
	Config *config.Config

	// Seed is the shared discovered content pool.
	Seed *discovery.SeedData

	// Rand drives every probabilistic decision the agent makes.
	// Injected so tests can seed it.
	Rand *rand.Rand

	// Interests are the category words this shopper gravitates toward.
	Interests []string

	// ShoppingIntent in [0,1] scales product-link priorities and the
	// impulse-buy chance.
	ShoppingIntent float64

	Log *zap.Logger
}

// NewAgent creates an agent with empty browsing state.
func NewAgent(p Params) (*Agent, error) {
	if p.Client == nil || p.Config == nil || p.Seed == nil || p.Rand == nil {
		return nil, fmt.Errorf("session: client, config, seed and rand are required")
	}

	base, err := url.Parse(p.Client.BaseURL())
	if err != nil {
		return nil, fmt.Errorf("session: parsing origin: %w", err)
	}

	log := p.Log
	if log == nil {
		log = zap.NewNop()
	}

	id := uuid.NewString()
	return &Agent{
		ID:             id,
		Interests:      p.Interests,
		ShoppingIntent: p.ShoppingIntent,
		client:         p.Client,
		cfg:            p.Config,
		seed:           p.Seed,
		rng:            p.Rand,
		base:           base,
		log:            log.With(zap.String("agent", id[:8])),
		startedAt:      time.Now(),
		visited:        make(map[string]bool),
		inPool:         make(map[string]bool),
		context:        PageHomepage,
	}, nil
}

// VisitResult is the outcome of one page visit.
type VisitResult struct {
	Response *client.Response
	Success  bool
	NewLinks int

	// Skipped is set when the URL was already seen this session and no
	// request was made.
	Skipped bool
}

// VisitPage fetches a page and folds what it finds into the agent's
// state. A URL already visited this session is skipped without a
// request; cyclic link graphs cannot make the agent loop. Otherwise
// the attempt lands in the navigation log, and on success the URL is
// marked visited, the form token is captured if still missing, and new
// links join the discovered pools. On failure the URL stays unvisited
// so it may be retried by a later draw.
func (a *Agent) VisitPage(ctx context.Context, pageURL string, pageType PageType) VisitResult {
	if a.visited[pageURL] {
		a.log.Debug("revisit skipped", zap.String("url", pageURL))
		return VisitResult{Skipped: true}
	}

	a.path = append(a.path, PathEntry{
		URL:     pageURL,
		Type:    pageType,
		Elapsed: time.Since(a.startedAt),
	})

	bypass := a.rng.Float64() < *a.cfg.Cache.BypassRate
	resp := a.client.Get(ctx, pageURL, nil, bypass)

	a.context = normalizeContext(pageType)

	if !resp.OK() {
		a.log.Debug("page visit failed",
			zap.String("url", pageURL),
			zap.String("type", string(pageType)),
			zap.Int("status", resp.StatusCode),
			zap.Error(resp.Error),
		)
		return VisitResult{Response: resp}
	}

	a.visited[pageURL] = true

	if a.formToken == "" {
		a.formToken = extract.FormToken(resp.Body)
	}
	if pageType == PageProduct || pageType == PageRelated {
		a.lastProductID = extract.ProductID(resp.Body)
		a.lastHadOptions = extract.HasOptions(resp.Body)
	}

	links := extract.ExtractLinks(resp.Body, a.base, a.cfg.Discovery.Exclude)
	added := a.updateDiscovery(links)

	return VisitResult{Response: resp, Success: true, NewLinks: added}
}

// normalizeContext folds visit types into the context vocabulary: a
// related-product click lands on a product page.
func normalizeContext(pt PageType) PageType {
	if pt == PageRelated {
		return PageProduct
	}
	return pt
}

// FormToken returns the captured form token, or "" if none seen yet.
func (a *Agent) FormToken() string { return a.formToken }

// Context returns the agent's current browsing context.
func (a *Agent) Context() PageType { return a.context }

// Cart returns the agent's cart lines.
func (a *Agent) Cart() []CartItem { return a.cart }

// Visited reports whether the agent already saw the URL.
func (a *Agent) Visited(u string) bool { return a.visited[u] }

// Path returns the navigation log: one entry per attempted visit, in
// order, stamped with time elapsed since the session started.
func (a *Agent) Path() []PathEntry { return a.path }

// LastProduct returns the product id and options flag captured from the
// most recent product page visit.
func (a *Agent) LastProduct() (id string, hasOptions bool) {
	return a.lastProductID, a.lastHadOptions
}

// updateDiscovery admits extracted links into the agent's pools and
// returns how many were added. Breadcrumb, pagination and related
// links are admitted unconditionally; their DOM position is signal
// enough. Category and product links first survive interest thinning,
// then must clear the priority floor.
func (a *Agent) updateDiscovery(links extract.Links) int {
	added := 0

	for _, href := range links.Breadcrumbs {
		if a.admitPlain(&a.breadcrumbs, href) {
			added++
		}
	}
	for _, href := range links.Pagination {
		if a.admitPlain(&a.pagination, href) {
			added++
		}
	}
	for _, href := range links.Related {
		if a.admitPlain(&a.related, href) {
			added++
		}
	}

	for _, anchor := range links.Categories {
		interesting := a.matchesInterests(anchor)
		if !interesting && a.rng.Float64() >= keepDullCategory {
			continue
		}
		p := a.LinkPriority(anchor, PageCategory)
		if p > priorityFloorCategory && a.admitScored(&a.categories, anchor.URL, p, interesting) {
			added++
		}
	}

	for _, anchor := range links.Products {
		interesting := a.matchesInterests(anchor)
		if !interesting && a.rng.Float64() >= keepDullProduct {
			continue
		}
		p := a.LinkPriority(anchor, PageProduct)
		if p > priorityFloorProduct && a.admitScored(&a.products, anchor.URL, p, interesting) {
			added++
		}
	}

	return added
}

func (a *Agent) admitPlain(pool *[]string, href string) bool {
	if a.inPool[href] || a.visited[href] || len(*pool) >= maxPoolSize {
		return false
	}
	a.inPool[href] = true
	*pool = append(*pool, href)
	return true
}

func (a *Agent) admitScored(pool *[]scoredLink, href string, priority float64, interesting bool) bool {
	if a.inPool[href] || a.visited[href] || len(*pool) >= maxPoolSize {
		return false
	}
	a.inPool[href] = true
	*pool = append(*pool, scoredLink{url: href, priority: priority, interesting: interesting})
	return true
}

// LinkPriority scores a link for pool admission. The score is additive
// over the base, context-sensitive, and clamped to 1.0.
func (a *Agent) LinkPriority(anchor extract.Anchor, kind PageType) float64 {
	p := priorityBase

	if a.matchesInterests(anchor) {
		p += priorityInterestBonus
	}

	switch kind {
	case PageCategory:
		if a.context == PageHomepage {
			p += priorityCategoryAtHome
		}
	case PageProduct:
		switch a.context {
		case PageCategory:
			p += priorityProductAtCat
		case PageProduct:
			p += priorityProductAtProd
		}
		p += a.ShoppingIntent * priorityIntentWeight
	}

	if p > 1.0 {
		p = 1.0
	}
	return p
}

// matchesInterests reports whether the anchor's URL, text or class
// intersects the agent's interests.
func (a *Agent) matchesInterests(anchor extract.Anchor) bool {
	if len(a.Interests) == 0 {
		return false
	}
	haystack := strings.ToLower(anchor.URL + " " + anchor.Text + " " + anchor.Class)
	for _, interest := range a.Interests {
		if interest != "" && strings.Contains(haystack, strings.ToLower(interest)) {
			return true
		}
	}
	return false
}

// PoolSizes returns the discovered pool sizes, mainly for logging.
func (a *Agent) PoolSizes() (categories, products, related, pagination, breadcrumbs int) {
	return len(a.categories), len(a.products), len(a.related), len(a.pagination), len(a.breadcrumbs)
}
