// Package generator produces shopper personas for the load generator.
// A persona is the static part of a virtual user: what it cares about,
// what browser it claims to be, and how determined it is to buy.
package generator

import (
	"strings"

	"github.com/brianvoe/gofakeit/v7"

	"github.com/example/storefront/tools/shopload/internal/config"
)

// Persona describes one virtual shopper.
type Persona struct {
	// Interests are category words the shopper gravitates toward.
	Interests []string

	// UserAgent is the browser identity for the whole session.
	UserAgent string

	// ShoppingIntent in [0,1]: 0 is a window shopper, 1 walks in with a
	// credit card out.
	ShoppingIntent float64

	// CouponCode is the code this shopper tries at the cart, if asked to.
	CouponCode string
}

// defaultVocabulary is the interest word list personas draw from when
// the configuration supplies none. The words mirror a typical apparel
// and gear storefront's category naming.
var defaultVocabulary = []string{
	"women", "men", "gear", "bags", "fitness", "watches",
	"tops", "bottoms", "jackets", "hoodies", "tees", "pants",
	"shorts", "bras", "tanks", "sale", "new", "eco",
}

// couponCodes are plausible promo codes; storefronts reject unknown
// codes gracefully, which is itself a useful code path to exercise.
var couponCodes = []string{
	"SAVE10", "WELCOME", "FREESHIP", "SUMMER20", "VIP15", "H20",
}

// PersonaGenerator builds personas from a faker source. Not safe for
// concurrent use; the runner draws personas from its ramp loop only.
type PersonaGenerator struct {
	faker      *gofakeit.Faker
	cfg        config.BehaviorConfig
	vocabulary []string
}

// New creates a randomly seeded persona generator.
func New(cfg config.BehaviorConfig) *PersonaGenerator {
	return NewSeeded(cfg, 0)
}

// NewSeeded creates a persona generator with a fixed seed, for
// reproducible runs and tests. Seed 0 means random.
func NewSeeded(cfg config.BehaviorConfig, seed uint64) *PersonaGenerator {
	return &PersonaGenerator{
		faker:      gofakeit.New(seed),
		cfg:        cfg,
		vocabulary: defaultVocabulary,
	}
}

// SetVocabulary replaces the interest word list. Empty input keeps the
// default.
func (g *PersonaGenerator) SetVocabulary(words []string) {
	if len(words) > 0 {
		g.vocabulary = words
	}
}

// Persona produces the next shopper.
func (g *PersonaGenerator) Persona() Persona {
	return Persona{
		Interests:      g.interests(),
		UserAgent:      g.faker.UserAgent(),
		ShoppingIntent: g.faker.Float64Range(0, 1),
		CouponCode:     g.couponCode(),
	}
}

// interests draws a distinct set of interest words sized between the
// configured bounds.
func (g *PersonaGenerator) interests() []string {
	min, max := g.cfg.InterestsMin, g.cfg.InterestsMax
	if min < 1 {
		min = 1
	}
	if max < min {
		max = min
	}
	if max > len(g.vocabulary) {
		max = len(g.vocabulary)
	}
	if min > max {
		min = max
	}

	n := min
	if max > min {
		n = g.faker.Number(min, max)
	}

	picked := make([]string, 0, n)
	seen := make(map[string]bool, n)
	for len(picked) < n {
		w := g.vocabulary[g.faker.Number(0, len(g.vocabulary)-1)]
		if !seen[w] {
			seen[w] = true
			picked = append(picked, w)
		}
	}
	return picked
}

// couponCode mostly returns a known promo code, sometimes an invented
// one so the reject path gets traffic too.
func (g *PersonaGenerator) couponCode() string {
	if g.faker.Float64Range(0, 1) < 0.8 {
		return couponCodes[g.faker.Number(0, len(couponCodes)-1)]
	}
	return strings.ToUpper(g.faker.LetterN(4)) + g.faker.DigitN(2)
}
