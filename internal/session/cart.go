package session

import (
	"context"
	"fmt"
	"net/url"
	"strconv"

	"go.uber.org/zap"

	"github.com/example/storefront/tools/shopload/internal/client"
)

// AddToCart attempts to put a product in the cart. Preconditions: a
// form token has been captured, the product id is known, the cart has
// room, and configurable products come with their options. When a
// precondition fails no request is issued and the first return is nil.
// The local cart mirrors the server only on a successful response.
func (a *Agent) AddToCart(ctx context.Context, productID string, hasOptions bool, options map[string]string) (*client.Response, bool) {
	if a.formToken == "" || productID == "" {
		return nil, false
	}
	if len(a.cart) >= a.cfg.Flow.CartMaxItems {
		return nil, false
	}
	if hasOptions && len(options) == 0 {
		return nil, false
	}

	qty := a.randQty()
	form := url.Values{
		"form_key": {a.formToken},
		"product":  {productID},
		"qty":      {strconv.Itoa(qty)},
	}
	for k, v := range options {
		form.Set(fmt.Sprintf("super_attribute[%s]", k), v)
	}

	resp := a.client.PostForm(ctx, a.cfg.Paths.CartAdd, form)
	if !resp.OK() {
		a.log.Debug("add to cart failed", zap.String("product", productID), zap.Int("status", resp.StatusCode))
		return resp, false
	}

	a.cart = append(a.cart, CartItem{ProductID: productID, Qty: qty, Options: options})
	return resp, true
}

// UpdateQuantities changes the quantity of one random cart line.
// Returns nil when the cart is empty or no form token was captured.
func (a *Agent) UpdateQuantities(ctx context.Context) (*client.Response, bool) {
	if len(a.cart) == 0 || a.formToken == "" {
		return nil, false
	}

	idx := a.rng.Intn(len(a.cart))
	newQty := a.randQty()

	form := url.Values{"form_key": {a.formToken}}
	for _, item := range a.cart {
		qty := item.Qty
		if item.ProductID == a.cart[idx].ProductID {
			qty = newQty
		}
		form.Set(fmt.Sprintf("cart[%s][qty]", item.ProductID), strconv.Itoa(qty))
	}

	resp := a.client.PostForm(ctx, a.cfg.Paths.CartUpdate, form)
	if !resp.OK() {
		return resp, false
	}

	a.cart[idx].Qty = newQty
	return resp, true
}

// RemoveItem deletes one random cart line.
func (a *Agent) RemoveItem(ctx context.Context) (*client.Response, bool) {
	if len(a.cart) == 0 || a.formToken == "" {
		return nil, false
	}

	idx := a.rng.Intn(len(a.cart))
	form := url.Values{
		"form_key": {a.formToken},
		"id":       {a.cart[idx].ProductID},
	}

	resp := a.client.PostForm(ctx, a.cfg.Paths.CartRemove, form)
	if !resp.OK() {
		return resp, false
	}

	a.cart = append(a.cart[:idx], a.cart[idx+1:]...)
	return resp, true
}

// ApplyCoupon submits a coupon code against the cart. Whether the
// storefront accepts the code is its business; any completed response
// counts as a successful interaction.
func (a *Agent) ApplyCoupon(ctx context.Context, code string) (*client.Response, bool) {
	if len(a.cart) == 0 || a.formToken == "" || code == "" {
		return nil, false
	}

	form := url.Values{
		"form_key":    {a.formToken},
		"coupon_code": {code},
	}

	resp := a.client.PostForm(ctx, a.cfg.Paths.Coupon, form)
	return resp, resp.OK()
}

func (a *Agent) randQty() int {
	min, max := a.cfg.Flow.QuantityMin, a.cfg.Flow.QuantityMax
	if min < 1 {
		min = 1
	}
	if max < min {
		max = min
	}
	return min + a.rng.Intn(max-min+1)
}
