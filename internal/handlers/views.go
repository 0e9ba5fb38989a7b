package handlers

import (
	"context"

	"github.com/google/uuid"

	"github.com/example/bikestore/internal/models"
	"github.com/example/bikestore/internal/services"
)

// cartView renders a cart, with a null id for one that was never stored.
type cartView struct {
	*models.Cart
	ID *uuid.UUID `json:"id"`
}

func newCartView(cart *models.Cart) cartView {
	view := cartView{Cart: cart}
	if !cart.Virtual {
		id := cart.ID
		view.ID = &id
	}
	return view
}

// orderView adds display-currency amounts to an order.
type orderView struct {
	*models.Cart
	DisplayCurrency *displayAmounts `json:"display_currency,omitempty"`
}

type displayAmounts struct {
	Currency       string  `json:"currency"`
	CurrencySymbol string  `json:"currency_symbol"`
	Subtotal       float64 `json:"subtotal"`
	ShippingCost   float64 `json:"shipping_cost"`
	TaxAmount      float64 `json:"tax_amount"`
	DiscountAmount float64 `json:"discount_amount"`
	TotalAmount    float64 `json:"total_amount"`
}

func newOrderView(ctx context.Context, fx *services.CurrencyService, cart *models.Cart, currency string) orderView {
	view := orderView{Cart: cart}
	info, ok := displayCurrency(ctx, fx, currency)
	if !ok {
		return view
	}

	view.DisplayCurrency = &displayAmounts{
		Currency:       info.Code,
		CurrencySymbol: info.Symbol,
		Subtotal:       fx.Convert(ctx, cart.Subtotal, info.Code),
		ShippingCost:   fx.Convert(ctx, cart.ShippingCost, info.Code),
		TaxAmount:      fx.Convert(ctx, cart.TaxAmount, info.Code),
		DiscountAmount: fx.Convert(ctx, cart.DiscountAmount, info.Code),
		TotalAmount:    fx.Convert(ctx, cart.TotalAmount, info.Code),
	}
	return view
}

// productView shows price in the requested display currency and keeps the
// INR price as original_price.
type productView struct {
	models.Product
	Price          float64  `json:"price"`
	OriginalPrice  *float64 `json:"original_price,omitempty"`
	Currency       string   `json:"currency,omitempty"`
	CurrencySymbol string   `json:"currency_symbol,omitempty"`
}

func newProductViews(ctx context.Context, fx *services.CurrencyService, products []models.Product, currency string) []productView {
	views := make([]productView, 0, len(products))
	info, ok := displayCurrency(ctx, fx, currency)
	for _, p := range products {
		view := productView{Product: p, Price: p.Price}
		if ok {
			original := p.Price
			view.Price = fx.Convert(ctx, p.Price, info.Code)
			view.OriginalPrice = &original
			view.Currency = info.Code
			view.CurrencySymbol = info.Symbol
		}
		views = append(views, view)
	}
	return views
}

// displayCurrency resolves a requested currency other than the INR base that
// has a known rate.
func displayCurrency(ctx context.Context, fx *services.CurrencyService, code string) (services.CurrencyInfo, bool) {
	if code == "" || fx == nil {
		return services.CurrencyInfo{}, false
	}
	info, ok := services.LookupCurrency(code)
	if !ok || info.Code == "INR" || !fx.HasRate(ctx, info.Code) {
		return services.CurrencyInfo{}, false
	}
	return info, true
}
