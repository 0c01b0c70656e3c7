// Package journey orchestrates complete shopping sessions. A journey
// is one user's visit: land on the homepage, wander the catalog for a
// few steps, maybe fill a cart, maybe check out. The decision engine
// lives in the session package; this package sequences it, paces it
// with think time, and reports every request to the metrics recorder.
package journey

import (
	"context"
	"fmt"
	"math/rand"
	"net/url"
	"time"

	"go.uber.org/zap"

	"github.com/example/storefront/tools/shopload/internal/client"
	"github.com/example/storefront/tools/shopload/internal/config"
	"github.com/example/storefront/tools/shopload/internal/discovery"
	"github.com/example/storefront/tools/shopload/internal/generator"
	"github.com/example/storefront/tools/shopload/internal/metrics"
	"github.com/example/storefront/tools/shopload/internal/session"
)

// Recorder receives request results and journey milestones.
// *metrics.Collector satisfies it.
type Recorder interface {
	Record(metrics.Result)
	JourneyStarted()
	JourneyCompleted()
	CheckoutCompleted()
	ItemAdded()
}

// apiPaths are storefront REST endpoints hit by background API traffic,
// relative to the configured API base.
var apiPaths = []string{
	"/directory/countries",
	"/directory/currency",
	"/store/storeViews",
	"/store/websites",
}

// Runner executes journeys against one target. It is stateless across
// journeys and safe to share between virtual users; all per-user state
// lives in the session agent created per journey.
type Runner struct {
	cfg  *config.Config
	seed *discovery.SeedData
	rec  Recorder
	log  *zap.Logger
}

// New creates a journey runner.
func New(cfg *config.Config, seed *discovery.SeedData, rec Recorder, log *zap.Logger) (*Runner, error) {
	if cfg == nil || seed == nil || rec == nil {
		return nil, fmt.Errorf("journey: config, seed and recorder are required")
	}
	if log == nil {
		log = zap.NewNop()
	}
	return &Runner{cfg: cfg, seed: seed, rec: rec, log: log}, nil
}

// Run executes a single journey for the given session client and
// persona. It returns the context error when the run was cut short by
// cancellation, nil otherwise; a storefront that errors on every page
// still yields a completed journey, just one full of failed requests.
func (r *Runner) Run(ctx context.Context, sess *client.Client, persona generator.Persona, rng *rand.Rand) error {
	agent, err := session.NewAgent(session.Params{
		Client:         sess,
		Config:         r.cfg,
		Seed:           r.seed,
		Rand:           rng,
		Interests:      persona.Interests,
		ShoppingIntent: persona.ShoppingIntent,
		Log:            r.log,
	})
	if err != nil {
		return err
	}

	r.rec.JourneyStarted()

	r.visit(ctx, agent, "/", session.PageHomepage)

	steps := r.drawSteps(rng)
	for step := 0; step < steps; step++ {
		if err := r.think(ctx, agent.Context(), rng); err != nil {
			return err
		}

		distracted := rng.Float64() < *r.cfg.Browsing.DistractionRate

		choice, ok := r.nextChoice(agent, rng, distracted)
		if !ok {
			// Nothing left anywhere worth clicking.
			r.log.Debug("journey ended early, pools exhausted", zap.Int("step", step))
			break
		}

		res := r.visit(ctx, agent, choice.URL, choice.Type)

		if res.Success && agent.Context() == session.PageProduct {
			r.maybeAddToCart(ctx, agent, rng, distracted)
		}

		if ctx.Err() != nil {
			return ctx.Err()
		}
	}

	if err := r.searchStage(ctx, agent, rng); err != nil {
		return err
	}
	r.apiStage(ctx, sess, rng)

	if err := r.cartStage(ctx, agent, persona, rng); err != nil {
		return err
	}

	r.rec.JourneyCompleted()
	return nil
}

// drawSteps picks the journey length between the configured bounds.
func (r *Runner) drawSteps(rng *rand.Rand) int {
	min, max := r.cfg.Behavior.StepsMin, r.cfg.Behavior.StepsMax
	if min < 1 {
		min = 1
	}
	if max < min {
		max = min
	}
	return min + rng.Intn(max-min+1)
}

// nextChoice decides where the journey goes this step. A distracted
// shopper jumps straight to a random seed page; otherwise the agent's
// own decision engine decides, with the shared seed pool as a fallback
// when the agent has nothing left.
func (r *Runner) nextChoice(agent *session.Agent, rng *rand.Rand, distracted bool) (session.Choice, bool) {
	if distracted {
		if c, ok := agent.SeedChoice(); ok {
			return c, true
		}
	}

	if c, ok := agent.NextURL(); ok {
		return c, true
	}
	return agent.SeedChoice()
}

// maybeAddToCart rolls the impulse-buy dice on a product page. A
// distracted shopper who still ended up on a product is unusually
// taken with it, so the roll skips the intent scaling. Configurable
// products are only added when their options are known; the session
// layer enforces that.
func (r *Runner) maybeAddToCart(ctx context.Context, agent *session.Agent, rng *rand.Rand, distracted bool) {
	chance := agent.ShoppingIntent * *r.cfg.Browsing.ImpulseAddRate
	if distracted {
		chance = *r.cfg.Browsing.ImpulseAddRate
	}
	if rng.Float64() >= chance {
		return
	}

	productID, hasOptions := agent.LastProduct()
	resp, added := agent.AddToCart(ctx, productID, hasOptions, nil)
	if resp == nil {
		return
	}

	r.recordAction(metrics.PageAddToCart, r.cfg.Paths.CartAdd, resp)
	if added {
		r.rec.ItemAdded()
	}
}

// searchStage rolls the keyword-search phase once per journey: a
// single catalog search with a discovered term, gated by the
// configured search fraction.
func (r *Runner) searchStage(ctx context.Context, agent *session.Agent, rng *rand.Rand) error {
	if rng.Float64() >= *r.cfg.API.SearchRate {
		return nil
	}
	term := agent.SearchTerm()
	if term == "" {
		return nil
	}

	if err := r.think(ctx, agent.Context(), rng); err != nil {
		return err
	}
	q := url.Values{"q": {term}}
	r.visit(ctx, agent, r.cfg.Paths.Search+"?"+q.Encode(), session.PageSearch)
	return nil
}

// apiStage issues at most one background storefront REST call per
// journey, the way a real frontend's XHR traffic would.
func (r *Runner) apiStage(ctx context.Context, sess *client.Client, rng *rand.Rand) {
	if r.cfg.API.Enabled == nil || !*r.cfg.API.Enabled {
		return
	}
	if rng.Float64() >= *r.cfg.API.Rate {
		return
	}

	path := r.cfg.Paths.APIBase + apiPaths[rng.Intn(len(apiPaths))]
	resp := sess.Get(ctx, path, nil, false)
	r.recordAction(metrics.PageAPI, path, resp)
}

// cartStage closes out the journey: review the cart, maybe mutate it,
// maybe apply a coupon, maybe proceed to checkout. Empty-cart shoppers
// occasionally peek at the cart page too.
func (r *Runner) cartStage(ctx context.Context, agent *session.Agent, persona generator.Persona, rng *rand.Rand) error {
	if len(agent.Cart()) == 0 {
		if rng.Float64() < *r.cfg.Flow.EmptyCartVisitRate {
			if err := r.think(ctx, agent.Context(), rng); err != nil {
				return err
			}
			r.visit(ctx, agent, r.cfg.Paths.Cart, session.PageCart)
		}
		return nil
	}

	if err := r.think(ctx, agent.Context(), rng); err != nil {
		return err
	}
	r.visit(ctx, agent, r.cfg.Paths.Cart, session.PageCart)

	if rng.Float64() < *r.cfg.Flow.CartMutationRate {
		if rng.Float64() < 0.5 {
			if resp, _ := agent.UpdateQuantities(ctx); resp != nil {
				r.recordAction(metrics.PageCartUpdate, r.cfg.Paths.CartUpdate, resp)
			}
		} else {
			if resp, _ := agent.RemoveItem(ctx); resp != nil {
				r.recordAction(metrics.PageCartRemove, r.cfg.Paths.CartRemove, resp)
			}
		}
	}

	if len(agent.Cart()) > 0 && rng.Float64() < *r.cfg.Flow.CouponRate {
		if resp, _ := agent.ApplyCoupon(ctx, persona.CouponCode); resp != nil {
			r.recordAction(metrics.PageCoupon, r.cfg.Paths.Coupon, resp)
		}
	}

	if len(agent.Cart()) > 0 && rng.Float64() < *r.cfg.Flow.CheckoutRate {
		if err := r.think(ctx, agent.Context(), rng); err != nil {
			return err
		}
		res := r.visit(ctx, agent, r.cfg.Paths.Checkout, session.PageCheckout)
		if res.Success {
			r.rec.CheckoutCompleted()
		}
	}

	return ctx.Err()
}

// visit fetches one page through the agent and records the result
// under the visit's page type. A revisit skipped by the agent made no
// request and leaves the metrics untouched.
func (r *Runner) visit(ctx context.Context, agent *session.Agent, pageURL string, pageType session.PageType) session.VisitResult {
	res := agent.VisitPage(ctx, pageURL, pageType)
	if res.Skipped {
		return res
	}
	resp := res.Response

	result := metrics.Result{
		PageType:  string(pageType),
		URL:       pageURL,
		Success:   res.Success,
		Timestamp: time.Now(),
	}
	if resp != nil {
		result.StatusCode = resp.StatusCode
		result.Latency = resp.Duration
		result.ResponseSize = int64(len(resp.Body))
		result.Error = resp.Error
	}
	r.rec.Record(result)

	return res
}

// recordAction records a non-page interaction (cart mutation, coupon,
// API call) under its pseudo page type.
func (r *Runner) recordAction(pageType, pageURL string, resp *client.Response) {
	r.rec.Record(metrics.Result{
		PageType:     pageType,
		URL:          pageURL,
		StatusCode:   resp.StatusCode,
		Latency:      resp.Duration,
		Success:      resp.OK(),
		ResponseSize: int64(len(resp.Body)),
		Timestamp:    time.Now(),
		Error:        resp.Error,
	})
}

// think sleeps a uniform draw between the configured dwell bounds,
// stretched on product pages where shoppers read, and shortened on
// pagination where they skim. Returns early on cancellation.
func (r *Runner) think(ctx context.Context, pageType session.PageType, rng *rand.Rand) error {
	min, max := r.cfg.Behavior.ThinkTimeMin, r.cfg.Behavior.ThinkTimeMax
	if max < min {
		max = min
	}

	d := min
	if span := max - min; span > 0 {
		d += time.Duration(rng.Int63n(int64(span)))
	}

	switch pageType {
	case session.PageProduct:
		d = d * 3 / 2
	case session.PagePagination:
		d = d / 2
	}

	if d <= 0 {
		return ctx.Err()
	}

	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
