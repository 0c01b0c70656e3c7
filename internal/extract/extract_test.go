package extract

import (
	"net/url"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func mustBase(t *testing.T) *url.URL {
	t.Helper()
	base, err := url.Parse("https://shop.example.com")
	require.NoError(t, err)
	return base
}

const samplePage = `
<html><body>
<nav class="breadcrumbs">
  <a href="/">Home</a>
  <a href="/women.html">Women</a>
</nav>
<div class="pages-pagination">
  <a href="/women.html?p=2">2</a>
  <a href="/women.html?p=3">3</a>
</div>
<div class="block related">
  <a href="/breathe-easy-tank.html">Breathe Easy Tank</a>
</div>
<ul class="nav">
  <li><a href="/men.html">Men</a></li>
  <li><a href="/cat/shoes.html" class="category">Shoes</a></li>
</ul>
<div class="product-grid">
  <a href="/radiant-tee.html">Radiant Tee</a>
  <a href="/hero-hoodie.html">Hero Hoodie</a>
  <a href="https://shop.example.com/fusion-backpack.html">Fusion Backpack</a>
  <a href="https://other.example.org/external.html">External</a>
  <a href="/customer/account/">My Account</a>
  <a href="#">Top</a>
  <a href="javascript:void(0)">Menu</a>
  <a href="mailto:help@example.com">Help</a>
</div>
</body></html>`

func TestExtractLinks(t *testing.T) {
	exclude := []string{"customer", "admin"}
	links := ExtractLinks([]byte(samplePage), mustBase(t), exclude)

	assert.Equal(t, []string{"/", "/women.html"}, links.Breadcrumbs)
	assert.Equal(t, []string{"/women.html?p=2", "/women.html?p=3"}, links.Pagination)
	assert.Equal(t, []string{"/breathe-easy-tank.html"}, links.Related)

	var catURLs []string
	for _, a := range links.Categories {
		catURLs = append(catURLs, a.URL)
	}
	assert.Equal(t, []string{"/men.html", "/cat/shoes.html"}, catURLs)

	var prodURLs []string
	for _, a := range links.Products {
		prodURLs = append(prodURLs, a.URL)
	}
	assert.Equal(t, []string{"/radiant-tee.html", "/hero-hoodie.html", "/fusion-backpack.html"}, prodURLs)
}

func TestExtractLinks_AnchorSignals(t *testing.T) {
	html := `<a href="/cat/shoes.html" class="category nav-item">Running Shoes</a>`
	links := ExtractLinks([]byte(html), mustBase(t), nil)
	require.Len(t, links.Categories, 1)
	assert.Equal(t, "/cat/shoes.html", links.Categories[0].URL)
	assert.Equal(t, "Running Shoes", links.Categories[0].Text)
	assert.Contains(t, links.Categories[0].Class, "category")
}

func TestExtractLinks_PageParamOutsideContainer(t *testing.T) {
	html := `<a href="/gear.html?page=4">Next</a>`
	links := ExtractLinks([]byte(html), mustBase(t), nil)
	assert.Equal(t, []string{"/gear.html?page=4"}, links.Pagination)
	assert.Empty(t, links.Categories)
}

func TestExtractLinks_MalformedHTML(t *testing.T) {
	// html.Parse repairs most damage; classification must still not
	// produce junk entries.
	links := ExtractLinks([]byte("<div><<<a href=></div"), mustBase(t), nil)
	assert.Zero(t, links.Total())
}

func TestExtractLinks_Empty(t *testing.T) {
	links := ExtractLinks(nil, mustBase(t), nil)
	assert.Zero(t, links.Total())
}

func TestExtractLinks_Dedup(t *testing.T) {
	html := `
<div class="related"><a href="/tank.html">Tank</a></div>
<a href="/tank.html">Tank again</a>`
	links := ExtractLinks([]byte(html), mustBase(t), nil)
	assert.Equal(t, []string{"/tank.html"}, links.Related)
	assert.Empty(t, links.Products, "anchor already claimed by related block")
}

func TestClassifyContent(t *testing.T) {
	tests := []struct {
		name  string
		href  string
		text  string
		class string
		want  contentKind
	}{
		{"top level listing", "/women.html", "Women", "", kindCategory},
		{"category class", "/some-page.html", "Sale", "category-link", kindCategory},
		{"category hint in path", "/collection/summer.html", "", "", kindCategory},
		{"product slug", "/radiant-tee.html", "Radiant Tee", "", kindProduct},
		{"nested product", "/gear/fusion-backpack.html", "", "", kindProduct},
		{"non content", "/checkout/cart/", "Cart", "", kindSkip},
		{"root", "/", "Home", "", kindSkip},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, classifyContent(tt.href, tt.text, tt.class))
		})
	}
}

func TestSearchTerms(t *testing.T) {
	html := `
<a href="/a.html">Jacket</a>
<a href="/b.html">Hoodie</a>
<a href="/c.html">Hoodie</a>
<a href="/d.html">Two Words</a>
<a href="/e.html">ab</a>`
	terms := SearchTerms([]byte(html), 10)
	assert.Equal(t, []string{"jacket", "hoodie"}, terms)
}

func TestSearchTerms_Max(t *testing.T) {
	html := `<a href="/a">alpha</a><a href="/b">bravo</a><a href="/c">charlie</a>`
	terms := SearchTerms([]byte(html), 2)
	assert.Len(t, terms, 2)
}

func TestFormToken(t *testing.T) {
	tests := []struct {
		name string
		body string
		want string
	}{
		{
			name: "hidden input",
			body: `<input type="hidden" name="form_key" value="Abc123XYZ">`,
			want: "Abc123XYZ",
		},
		{
			name: "json config",
			body: `<script>var config = {"form_key": "k9YxZ21"};</script>`,
			want: "k9YxZ21",
		},
		{"absent", `<html><body>no token here</body></html>`, ""},
		{"empty body", ``, ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, FormToken([]byte(tt.body)))
		})
	}
}

func TestProductID(t *testing.T) {
	tests := []struct {
		name string
		body string
		want string
	}{
		{"hidden input", `<input type="hidden" name="product" value="1556">`, "1556"},
		{"data attribute", `<div data-product-id="42"></div>`, "42"},
		{"json config", `{"productId": "77"}`, "77"},
		{"absent", `<html></html>`, ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, ProductID([]byte(tt.body)))
		})
	}
}

func TestHasOptions(t *testing.T) {
	assert.True(t, HasOptions([]byte(`<input name="super_attribute[93]" value="">`)))
	assert.True(t, HasOptions([]byte(`<div data-role="swatch-options"></div>`)))
	assert.False(t, HasOptions([]byte(`<input name="qty" value="1">`)))
}
