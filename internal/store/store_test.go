package store

import (
	"context"
	"fmt"
	"math/rand"
	"os"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/example/bikestore/internal/database"
	"github.com/example/bikestore/internal/models"
	"github.com/example/bikestore/internal/services"
)

// These tests talk to real backends and are skipped unless
// BIKESTORE_TEST_DATABASE_URL / BIKESTORE_TEST_REDIS_URL are set.

func testDB(t *testing.T) *gorm.DB {
	t.Helper()
	dsn := os.Getenv("BIKESTORE_TEST_DATABASE_URL")
	if dsn == "" {
		t.Skip("BIKESTORE_TEST_DATABASE_URL not set")
	}
	return database.Connect(database.Options{DSN: dsn, MaxOpenConns: 5})
}

func randomPhone() string {
	return fmt.Sprintf("9%09d", rand.Intn(1_000_000_000))
}

func seedProduct(t *testing.T, db *gorm.DB, stock int) models.Product {
	t.Helper()
	p := models.Product{Name: "Test Helmet " + uuid.NewString()[:6], Price: 1000, QuantityAvailable: stock}
	require.NoError(t, db.Create(&p).Error)
	t.Cleanup(func() { db.Delete(&models.Product{}, "id = ?", p.ID) })
	return p
}

func openCart(t *testing.T, carts *CartStore, phone string, lines ...models.CartItem) *models.Cart {
	t.Helper()
	cart := &models.Cart{
		PhoneNumber:   phone,
		Items:         lines,
		Status:        models.CartStatusCheckout,
		OrderStatus:   models.OrderStatusPlaced,
		PaymentStatus: models.PaymentStatusPending,
	}
	require.NoError(t, carts.Create(context.Background(), cart))
	t.Cleanup(func() { carts.db.Delete(&models.Cart{}, "id = ?", cart.ID) })
	return cart
}

func TestCartStore_OneOpenCartPerPhone(t *testing.T) {
	db := testDB(t)
	carts := NewCartStore(db)
	phone := randomPhone()

	openCart(t, carts, phone)
	err := carts.Create(context.Background(), &models.Cart{PhoneNumber: phone, Items: models.CartItems{}, Status: models.CartStatusActive})
	assert.ErrorIs(t, err, services.ErrCartConflict)
}

func TestCartStore_SaveComparesVersion(t *testing.T) {
	db := testDB(t)
	carts := NewCartStore(db)
	ctx := context.Background()

	cart := openCart(t, carts, randomPhone())
	stale := *cart

	cart.Notes = "first"
	require.NoError(t, carts.Save(ctx, cart))
	assert.Equal(t, 2, cart.Version)

	stale.Notes = "second"
	assert.ErrorIs(t, carts.Save(ctx, &stale), services.ErrCartConflict)
	assert.ErrorIs(t, carts.Delete(ctx, &stale), services.ErrCartConflict)

	loaded, err := carts.FindByID(ctx, cart.ID)
	require.NoError(t, err)
	assert.Equal(t, "first", loaded.Notes)
}

func TestCartStore_PlaceOrder(t *testing.T) {
	db := testDB(t)
	carts := NewCartStore(db)
	ctx := context.Background()

	a := seedProduct(t, db, 3)
	b := seedProduct(t, db, 1)

	t.Run("shortage rolls back every line", func(t *testing.T) {
		cart := openCart(t, carts, randomPhone(),
			models.CartItem{ProductID: a.ID, Quantity: 2, Price: 1000},
			models.CartItem{ProductID: b.ID, Quantity: 2, Price: 1000},
		)
		cart.Status = models.CartStatusOrdered

		err := carts.PlaceOrder(ctx, cart)
		var lineErr *services.LineStockError
		require.ErrorAs(t, err, &lineErr)
		assert.Equal(t, b.ID, lineErr.ProductID)
		assert.Equal(t, 1, cart.Version)

		got, err := NewProductStore(db).FindProducts(ctx, []uuid.UUID{a.ID, b.ID})
		require.NoError(t, err)
		assert.Equal(t, 3, got[a.ID].QuantityAvailable)
		assert.Equal(t, 1, got[b.ID].QuantityAvailable)
	})

	t.Run("success decrements stock and consumes coupon", func(t *testing.T) {
		limit := 1
		coupon := models.Coupon{Code: "T" + uuid.NewString()[:8], Type: models.CouponFlat, Discount: 100, IsActive: true, UsageLimit: &limit}
		require.NoError(t, db.Create(&coupon).Error)
		t.Cleanup(func() { db.Delete(&coupon) })

		phone := randomPhone()
		cart := openCart(t, carts, phone, models.CartItem{ProductID: a.ID, Quantity: 2, Price: 1000})
		cart.CouponID = &coupon.ID
		cart.Status = models.CartStatusOrdered
		number := fmt.Sprintf("ORD-%d-TEST", time.Now().UnixNano())
		cart.OrderNumber = &number

		require.NoError(t, carts.PlaceOrder(ctx, cart))
		assert.Equal(t, 2, cart.Version)

		got, err := NewProductStore(db).FindProducts(ctx, []uuid.UUID{a.ID})
		require.NoError(t, err)
		assert.Equal(t, 1, got[a.ID].QuantityAvailable)

		coupons := NewCouponStore(db)
		used, err := coupons.UsageCount(ctx, coupon.ID, phone)
		require.NoError(t, err)
		assert.Equal(t, 1, used)

		stored, err := coupons.FindByID(ctx, coupon.ID)
		require.NoError(t, err)
		assert.Equal(t, 1, stored.UsedCount)

		order, err := carts.FindOrderByNumber(ctx, number)
		require.NoError(t, err)
		assert.Equal(t, models.CartStatusOrdered, order.Status)

		// The coupon is now exhausted for everyone.
		other := openCart(t, carts, randomPhone(), models.CartItem{ProductID: a.ID, Quantity: 1, Price: 1000})
		other.CouponID = &coupon.ID
		other.Status = models.CartStatusOrdered
		assert.ErrorIs(t, carts.PlaceOrder(ctx, other), services.ErrCouponExhausted)

		got, err = NewProductStore(db).FindProducts(ctx, []uuid.UUID{a.ID})
		require.NoError(t, err)
		assert.Equal(t, 1, got[a.ID].QuantityAvailable)
	})
}

func TestPaymentEventStore_RecordsOnce(t *testing.T) {
	db := testDB(t)
	events := NewPaymentEventStore(db)
	ctx := context.Background()

	paymentID := "pay_" + uuid.NewString()[:10]
	first := &models.PaymentEvent{Event: "payment.captured", PaymentID: paymentID, Payload: []byte(`{}`)}
	fresh, err := events.Record(ctx, first)
	require.NoError(t, err)
	assert.True(t, fresh)
	t.Cleanup(func() { _ = events.Delete(ctx, first.ID) })

	fresh, err = events.Record(ctx, &models.PaymentEvent{Event: "payment.captured", PaymentID: paymentID, Payload: []byte(`{}`)})
	require.NoError(t, err)
	assert.False(t, fresh)
}

func TestRedisRateStore(t *testing.T) {
	url := os.Getenv("BIKESTORE_TEST_REDIS_URL")
	if url == "" {
		t.Skip("BIKESTORE_TEST_REDIS_URL not set")
	}
	opts, err := redis.ParseURL(url)
	require.NoError(t, err)
	client := redis.NewClient(opts)
	defer client.Close()

	ctx := context.Background()
	require.NoError(t, client.Del(ctx, ratesKey).Err())

	store := NewRedisRateStore(client, time.Minute)
	_, _, err = store.Load(ctx)
	assert.ErrorIs(t, err, services.ErrRatesNotCached)

	at := time.Now().UTC().Truncate(time.Second)
	require.NoError(t, store.Save(ctx, map[string]float64{"USD": 0.012}, at))

	rates, fetchedAt, err := store.Load(ctx)
	require.NoError(t, err)
	assert.Equal(t, 0.012, rates["USD"])
	assert.True(t, at.Equal(fetchedAt))

	ttl, err := client.TTL(ctx, ratesKey).Result()
	require.NoError(t, err)
	assert.Greater(t, ttl, time.Duration(0))
}
