// Package extract pulls link candidates and form tokens out of
// storefront HTML. HTML is treated purely as a source of anchor tags
// and a few regex-matchable tokens; nothing is rendered or executed,
// and malformed markup degrades to empty results rather than errors.
package extract

import (
	"bytes"
	"net/url"
	"regexp"
	"strings"

	"github.com/PuerkitoBio/goquery"
)

// Anchor is a content link with the signals used for interest matching.
type Anchor struct {
	URL   string
	Text  string
	Class string
}

// Links holds the classified link candidates from one page.
type Links struct {
	Breadcrumbs []string
	Pagination  []string
	Related     []string
	Categories  []Anchor
	Products    []Anchor
}

// Total returns the number of extracted links across all classes.
func (l Links) Total() int {
	return len(l.Breadcrumbs) + len(l.Pagination) + len(l.Related) + len(l.Categories) + len(l.Products)
}

// DOM regions that mark an anchor's role regardless of its target.
const (
	breadcrumbSelector = `[class*="breadcrumb"] a[href], nav[aria-label="breadcrumb"] a[href], [itemtype*="BreadcrumbList"] a[href]`
	paginationSelector = `[class*="pagination"] a[href], [class*="pages"] a[href], [class*="pager"] a[href]`
	relatedSelector    = `[class*="related"] a[href], [class*="upsell"] a[href], [class*="crosssell"] a[href], [class*="cross-sell"] a[href], [class*="recommend"] a[href]`
)

// categoryHints mark a path or anchor as a listing page rather than a
// single product.
var categoryHints = []string{
	"category", "collection", "/c/", "shop-by", "all-",
}

var pageParamPattern = regexp.MustCompile(`[?&](?:p|page)=\d+`)

// ExtractLinks parses page HTML and classifies every same-origin
// content anchor. Targets containing any exclusion substring are
// dropped. A parse failure returns empty Links.
func ExtractLinks(body []byte, base *url.URL, exclude []string) Links {
	var links Links

	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(body))
	if err != nil || base == nil {
		return links
	}

	seen := make(map[string]bool)
	admit := func(dst *[]string, href string) {
		if !seen[href] {
			seen[href] = true
			*dst = append(*dst, href)
		}
	}

	doc.Find(breadcrumbSelector).Each(func(_ int, s *goquery.Selection) {
		if href, ok := normalize(s.AttrOr("href", ""), base, exclude); ok {
			admit(&links.Breadcrumbs, href)
		}
	})

	doc.Find(paginationSelector).Each(func(_ int, s *goquery.Selection) {
		if href, ok := normalize(s.AttrOr("href", ""), base, exclude); ok {
			admit(&links.Pagination, href)
		}
	})

	doc.Find(relatedSelector).Each(func(_ int, s *goquery.Selection) {
		if href, ok := normalize(s.AttrOr("href", ""), base, exclude); ok {
			admit(&links.Related, href)
		}
	})

	doc.Find("a[href]").Each(func(_ int, s *goquery.Selection) {
		href, ok := normalize(s.AttrOr("href", ""), base, exclude)
		if !ok || seen[href] {
			return
		}

		// Anchors with a page-number parameter are pagination even
		// outside a pagination container.
		if pageParamPattern.MatchString(href) {
			admit(&links.Pagination, href)
			return
		}

		text := strings.TrimSpace(s.Text())
		class := s.AttrOr("class", "")
		anchor := Anchor{URL: href, Text: text, Class: class}

		switch classifyContent(href, text, class) {
		case kindCategory:
			seen[href] = true
			links.Categories = append(links.Categories, anchor)
		case kindProduct:
			seen[href] = true
			links.Products = append(links.Products, anchor)
		}
	})

	return links
}

type contentKind int

const (
	kindSkip contentKind = iota
	kindCategory
	kindProduct
)

// classifyContent decides whether an anchor points at a listing page or
// a single product. Anything that does not look like a content page is
// skipped.
func classifyContent(href, text, class string) contentKind {
	u, err := url.Parse(href)
	if err != nil {
		return kindSkip
	}
	path := strings.ToLower(u.Path)

	if path == "" || path == "/" {
		return kindSkip
	}
	if !strings.HasSuffix(path, ".html") && !strings.Contains(path, "/product") {
		return kindSkip
	}

	haystack := path + " " + strings.ToLower(text) + " " + strings.ToLower(class)
	for _, hint := range categoryHints {
		if strings.Contains(haystack, hint) {
			return kindCategory
		}
	}

	// One-segment .html paths are top-level listing pages on most
	// storefront themes; deeper slugs are products.
	trimmed := strings.Trim(strings.TrimSuffix(path, ".html"), "/")
	if trimmed != "" && !strings.Contains(trimmed, "/") && !strings.Contains(trimmed, "-") {
		return kindCategory
	}

	return kindProduct
}

// normalize resolves href against base, keeps it on-origin, strips the
// fragment and reports whether the target survives the exclusion list.
func normalize(href string, base *url.URL, exclude []string) (string, bool) {
	href = strings.TrimSpace(href)
	if href == "" || href == "#" ||
		strings.HasPrefix(href, "javascript:") || strings.HasPrefix(href, "mailto:") ||
		strings.HasPrefix(href, "tel:") {
		return "", false
	}

	ref, err := url.Parse(href)
	if err != nil {
		return "", false
	}

	u := base.ResolveReference(ref)
	if u.Scheme != "http" && u.Scheme != "https" {
		return "", false
	}
	if u.Host != base.Host {
		return "", false
	}
	u.Fragment = ""

	target := u.Path
	if u.RawQuery != "" {
		target += "?" + u.RawQuery
	}
	if target == "" {
		target = "/"
	}

	lower := strings.ToLower(target)
	for _, ex := range exclude {
		if ex != "" && strings.Contains(lower, strings.ToLower(ex)) {
			return "", false
		}
	}

	return target, true
}

// SearchTerms harvests plausible catalog search terms from anchor text.
// Multi-word and very short texts are skipped; terms come back
// lowercased and deduplicated.
func SearchTerms(body []byte, max int) []string {
	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(body))
	if err != nil {
		return nil
	}

	var terms []string
	seen := make(map[string]bool)
	doc.Find("a[href]").EachWithBreak(func(_ int, s *goquery.Selection) bool {
		text := strings.ToLower(strings.TrimSpace(s.Text()))
		if len(text) < 3 || len(text) > 20 || strings.ContainsAny(text, " \t\n") {
			return true
		}
		if !seen[text] {
			seen[text] = true
			terms = append(terms, text)
		}
		return max <= 0 || len(terms) < max
	})

	return terms
}

// Token extraction patterns. Each has explicit nothing-found semantics:
// the empty string (or false) rather than an error.
var (
	formTokenInputPattern = regexp.MustCompile(`name="form_key"[^>]*value="([A-Za-z0-9]+)"`)
	formTokenJSONPattern  = regexp.MustCompile(`"form_key"\s*:\s*"([A-Za-z0-9]+)"`)
	productIDInputPattern = regexp.MustCompile(`name="product"[^>]*value="(\d+)"`)
	productIDDataPattern  = regexp.MustCompile(`data-product-id="(\d+)"`)
	productIDJSONPattern  = regexp.MustCompile(`"productId"\s*:\s*"?(\d+)`)
	optionsPattern        = regexp.MustCompile(`super_attribute|swatch-attribute|data-role="swatch-options"`)
)

// FormToken extracts the session form token from page HTML, or returns
// the empty string when the page carries none.
func FormToken(body []byte) string {
	if m := formTokenInputPattern.FindSubmatch(body); m != nil {
		return string(m[1])
	}
	if m := formTokenJSONPattern.FindSubmatch(body); m != nil {
		return string(m[1])
	}
	return ""
}

// ProductID extracts the numeric product identifier from a product
// page, or returns the empty string.
func ProductID(body []byte) string {
	if m := productIDInputPattern.FindSubmatch(body); m != nil {
		return string(m[1])
	}
	if m := productIDDataPattern.FindSubmatch(body); m != nil {
		return string(m[1])
	}
	if m := productIDJSONPattern.FindSubmatch(body); m != nil {
		return string(m[1])
	}
	return ""
}

// HasOptions reports whether the product page requires configurable
// options before it can be added to a cart.
func HasOptions(body []byte) bool {
	return optionsPattern.Match(body)
}
