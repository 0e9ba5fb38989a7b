package handlers

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/example/bikestore/internal/models"
	"github.com/example/bikestore/internal/services"
)

func TestNewProductViews(t *testing.T) {
	// No API key: the fallback table knows USD but not AUD.
	fx := services.NewCurrencyService(services.CurrencyConfig{})
	ctx := context.Background()
	products := []models.Product{{Name: "Horn", Price: 1000}}

	usd := newProductViews(ctx, fx, products, "usd")
	require.Len(t, usd, 1)
	assert.Equal(t, 12.0, usd[0].Price)
	require.NotNil(t, usd[0].OriginalPrice)
	assert.Equal(t, 1000.0, *usd[0].OriginalPrice)
	assert.Equal(t, "USD", usd[0].Currency)
	assert.Equal(t, "$", usd[0].CurrencySymbol)

	for _, code := range []string{"AUD", "INR", "XYZ", ""} {
		views := newProductViews(ctx, fx, products, code)
		require.Len(t, views, 1)
		assert.Equal(t, 1000.0, views[0].Price, code)
		assert.Nil(t, views[0].OriginalPrice, code)
		assert.Empty(t, views[0].Currency, code)
		assert.Empty(t, views[0].CurrencySymbol, code)
	}

	plain := newProductViews(ctx, nil, products, "USD")
	assert.Equal(t, 1000.0, plain[0].Price)
}

func TestNewOrderView(t *testing.T) {
	fx := services.NewCurrencyService(services.CurrencyConfig{})
	ctx := context.Background()
	cart := &models.Cart{Subtotal: 1000, ShippingCost: 100, TotalAmount: 1100}

	view := newOrderView(ctx, fx, cart, "EUR")
	require.NotNil(t, view.DisplayCurrency)
	assert.Equal(t, "€", view.DisplayCurrency.CurrencySymbol)
	assert.Equal(t, 11.0, view.DisplayCurrency.Subtotal)
	assert.Equal(t, 12.1, view.DisplayCurrency.TotalAmount)

	assert.Nil(t, newOrderView(ctx, fx, cart, "CAD").DisplayCurrency)
}
