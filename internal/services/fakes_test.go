package services

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/example/bikestore/internal/models"
)

type fakeProducts struct {
	mu    sync.Mutex
	items map[uuid.UUID]models.Product
}

func newFakeProducts(products ...models.Product) *fakeProducts {
	f := &fakeProducts{items: map[uuid.UUID]models.Product{}}
	for _, p := range products {
		f.items[p.ID] = p
	}
	return f
}

func (f *fakeProducts) FindProducts(_ context.Context, ids []uuid.UUID) (map[uuid.UUID]models.Product, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make(map[uuid.UUID]models.Product, len(ids))
	for _, id := range ids {
		if p, ok := f.items[id]; ok {
			out[id] = p
		}
	}
	return out, nil
}

func (f *fakeProducts) stock(id uuid.UUID) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.items[id].QuantityAvailable
}

func (f *fakeProducts) setStock(id uuid.UUID, qty int) {
	f.mu.Lock()
	defer f.mu.Unlock()
	p := f.items[id]
	p.QuantityAvailable = qty
	f.items[id] = p
}

type fakeCoupons struct {
	mu      sync.Mutex
	coupons map[uuid.UUID]*models.Coupon
	usage   map[string]int
}

func newFakeCoupons(coupons ...*models.Coupon) *fakeCoupons {
	f := &fakeCoupons{coupons: map[uuid.UUID]*models.Coupon{}, usage: map[string]int{}}
	for _, c := range coupons {
		f.coupons[c.ID] = c
	}
	return f
}

func (f *fakeCoupons) FindByID(_ context.Context, id uuid.UUID) (*models.Coupon, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	c, ok := f.coupons[id]
	if !ok {
		return nil, ErrCouponNotFound
	}
	cp := *c
	return &cp, nil
}

func (f *fakeCoupons) FindActiveByCode(_ context.Context, code string) (*models.Coupon, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, c := range f.coupons {
		if c.Code == code && c.IsActive {
			cp := *c
			return &cp, nil
		}
	}
	return nil, ErrCouponNotFound
}

func (f *fakeCoupons) UsageCount(_ context.Context, couponID uuid.UUID, phone string) (int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.usage[couponID.String()+"|"+phone], nil
}

// consume mirrors the conditional increments done by the order transaction.
func (f *fakeCoupons) consume(couponID uuid.UUID, phone string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	c, ok := f.coupons[couponID]
	if !ok {
		return ErrCouponExhausted
	}
	key := couponID.String() + "|" + phone
	if c.UsageLimit != nil && (c.UsedCount >= *c.UsageLimit || f.usage[key] >= *c.UsageLimit) {
		return ErrCouponExhausted
	}
	c.UsedCount++
	f.usage[key]++
	return nil
}

type fakeCarts struct {
	mu       sync.Mutex
	carts    map[uuid.UUID]models.Cart
	products *fakeProducts
	coupons  *fakeCoupons

	// conflicts makes the next n Save calls fail with ErrCartConflict.
	conflicts int
	saves     int
}

func newFakeCarts(products *fakeProducts, coupons *fakeCoupons) *fakeCarts {
	return &fakeCarts{carts: map[uuid.UUID]models.Cart{}, products: products, coupons: coupons}
}

func (f *fakeCarts) FindOpen(_ context.Context, phone string) (*models.Cart, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, c := range f.carts {
		if c.PhoneNumber == phone && models.IsOpenStatus(c.Status) {
			return cloneCart(c), nil
		}
	}
	return nil, ErrCartNotFound
}

func (f *fakeCarts) FindByID(_ context.Context, id uuid.UUID) (*models.Cart, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	c, ok := f.carts[id]
	if !ok {
		return nil, ErrCartNotFound
	}
	return cloneCart(c), nil
}

func (f *fakeCarts) FindByRazorpayOrderID(_ context.Context, orderID string) (*models.Cart, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, c := range f.carts {
		if c.RazorpayOrderID != nil && *c.RazorpayOrderID == orderID {
			return cloneCart(c), nil
		}
	}
	return nil, ErrCartNotFound
}

func (f *fakeCarts) FindOrderByNumber(_ context.Context, number string) (*models.Cart, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, c := range f.carts {
		if c.OrderNumber != nil && *c.OrderNumber == number {
			return cloneCart(c), nil
		}
	}
	return nil, ErrCartNotFound
}

func (f *fakeCarts) ListOrders(_ context.Context, phone string, limit, offset int) ([]models.Cart, int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var orders []models.Cart
	for _, c := range f.carts {
		if c.PhoneNumber == phone && c.Status == models.CartStatusOrdered {
			orders = append(orders, *cloneCart(c))
		}
	}
	sort.Slice(orders, func(i, j int) bool {
		return orders[i].OrderDate.After(*orders[j].OrderDate)
	})
	total := int64(len(orders))
	if offset >= len(orders) {
		return []models.Cart{}, total, nil
	}
	end := min(offset+limit, len(orders))
	return orders[offset:end], total, nil
}

func (f *fakeCarts) Create(_ context.Context, cart *models.Cart) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, c := range f.carts {
		if c.PhoneNumber == cart.PhoneNumber && models.IsOpenStatus(c.Status) {
			return ErrCartConflict
		}
	}
	if cart.ID == uuid.Nil {
		cart.ID = uuid.New()
	}
	cart.Version = 1
	f.carts[cart.ID] = *cloneCart(*cart)
	return nil
}

func (f *fakeCarts) Save(_ context.Context, cart *models.Cart) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.saves++
	if f.conflicts > 0 {
		f.conflicts--
		// Simulate a concurrent writer bumping the stored version.
		stored := f.carts[cart.ID]
		stored.Version++
		f.carts[cart.ID] = stored
		return ErrCartConflict
	}
	return f.saveLocked(cart)
}

func (f *fakeCarts) saveLocked(cart *models.Cart) error {
	stored, ok := f.carts[cart.ID]
	if !ok || stored.Version != cart.Version {
		return ErrCartConflict
	}
	row := *cloneCart(*cart)
	row.Version = cart.Version + 1
	f.carts[cart.ID] = row
	cart.Version = row.Version
	return nil
}

func (f *fakeCarts) Delete(_ context.Context, cart *models.Cart) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	stored, ok := f.carts[cart.ID]
	if !ok || stored.Version != cart.Version {
		return ErrCartConflict
	}
	delete(f.carts, cart.ID)
	return nil
}

func (f *fakeCarts) PlaceOrder(_ context.Context, cart *models.Cart) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.products.mu.Lock()
	for _, item := range cart.Items {
		p, ok := f.products.items[item.ProductID]
		if !ok || p.QuantityAvailable < item.Quantity {
			f.products.mu.Unlock()
			return &LineStockError{ProductID: item.ProductID, Requested: item.Quantity}
		}
	}
	f.products.mu.Unlock()

	if cart.CouponID != nil {
		if err := f.coupons.consume(*cart.CouponID, cart.PhoneNumber); err != nil {
			return err
		}
	}

	if err := f.saveLocked(cart); err != nil {
		return err
	}

	f.products.mu.Lock()
	for _, item := range cart.Items {
		p := f.products.items[item.ProductID]
		p.QuantityAvailable -= item.Quantity
		f.products.items[item.ProductID] = p
	}
	f.products.mu.Unlock()
	return nil
}

func (f *fakeCarts) put(cart models.Cart) *models.Cart {
	f.mu.Lock()
	defer f.mu.Unlock()
	if cart.ID == uuid.Nil {
		cart.ID = uuid.New()
	}
	if cart.Version == 0 {
		cart.Version = 1
	}
	f.carts[cart.ID] = *cloneCart(cart)
	return cloneCart(cart)
}

func (f *fakeCarts) get(id uuid.UUID) (models.Cart, bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	c, ok := f.carts[id]
	return c, ok
}

func (f *fakeCarts) count() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.carts)
}

func cloneCart(c models.Cart) *models.Cart {
	c.Items = append(models.CartItems{}, c.Items...)
	return &c
}

type fakeOTPs struct {
	mu   sync.Mutex
	rows map[uuid.UUID]*models.OTP
}

func newFakeOTPs() *fakeOTPs {
	return &fakeOTPs{rows: map[uuid.UUID]*models.OTP{}}
}

func (f *fakeOTPs) DeleteUnverified(_ context.Context, isdCode, phone string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	for id, o := range f.rows {
		if o.IsdCode == isdCode && o.PhoneNumber == phone && !o.IsVerified {
			delete(f.rows, id)
		}
	}
	return nil
}

func (f *fakeOTPs) Create(_ context.Context, otp *models.OTP) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if otp.ID == uuid.Nil {
		otp.ID = uuid.New()
	}
	cp := *otp
	f.rows[otp.ID] = &cp
	return nil
}

func (f *fakeOTPs) Delete(_ context.Context, id uuid.UUID) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	delete(f.rows, id)
	return nil
}

func (f *fakeOTPs) FindLatestUnverified(_ context.Context, isdCode, phone string, now time.Time) (*models.OTP, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var latest *models.OTP
	for _, o := range f.rows {
		if o.IsdCode != isdCode || o.PhoneNumber != phone || o.IsVerified || !o.ExpiresAt.After(now) {
			continue
		}
		if latest == nil || o.CreatedAt.After(latest.CreatedAt) {
			latest = o
		}
	}
	if latest == nil {
		return nil, nil
	}
	cp := *latest
	return &cp, nil
}

func (f *fakeOTPs) IncrementAttempts(_ context.Context, id uuid.UUID) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if o, ok := f.rows[id]; ok {
		o.Attempts++
	}
	return nil
}

func (f *fakeOTPs) MarkVerified(_ context.Context, id uuid.UUID, at time.Time) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if o, ok := f.rows[id]; ok {
		o.IsVerified = true
		o.VerifiedAt = &at
	}
	return nil
}

func (f *fakeOTPs) PurgeExpired(_ context.Context, now time.Time) (int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var n int64
	for id, o := range f.rows {
		if o.ExpiresAt.Before(now) {
			delete(f.rows, id)
			n++
		}
	}
	return n, nil
}

func (f *fakeOTPs) only(t interface{ Fatalf(string, ...any) }) *models.OTP {
	f.mu.Lock()
	defer f.mu.Unlock()
	if len(f.rows) != 1 {
		t.Fatalf("expected exactly one otp row, got %d", len(f.rows))
	}
	for _, o := range f.rows {
		return o
	}
	return nil
}

type fakeProfiles struct {
	profiles map[string]*models.Profile
}

func (f fakeProfiles) FindProfile(_ context.Context, isdCode, phone string) (*models.Profile, error) {
	return f.profiles[isdCode+phone], nil
}

type fakeSender struct {
	mu    sync.Mutex
	codes []string
	err   error
}

func (f *fakeSender) SendOTP(_ context.Context, _, _, code string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return f.err
	}
	f.codes = append(f.codes, code)
	return nil
}

type fakePaymentEvents struct {
	mu     sync.Mutex
	events map[string]models.PaymentEvent
}

func newFakePaymentEvents() *fakePaymentEvents {
	return &fakePaymentEvents{events: map[string]models.PaymentEvent{}}
}

func (f *fakePaymentEvents) Record(_ context.Context, event *models.PaymentEvent) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	key := event.Event + "|" + event.PaymentID
	if _, ok := f.events[key]; ok {
		return false, nil
	}
	if event.ID == uuid.Nil {
		event.ID = uuid.New()
	}
	f.events[key] = *event
	return true, nil
}

func (f *fakePaymentEvents) Delete(_ context.Context, id uuid.UUID) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	for k, e := range f.events {
		if e.ID == id {
			delete(f.events, k)
		}
	}
	return nil
}

type fakeGateway struct {
	mu       sync.Mutex
	requests []GatewayOrderRequest
}

func (f *fakeGateway) CreateOrder(_ context.Context, req GatewayOrderRequest) (*GatewayOrder, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.requests = append(f.requests, req)
	return &GatewayOrder{
		ID:       "order_" + uuid.NewString()[:8],
		Amount:   req.Amount,
		Currency: req.Currency,
		Receipt:  req.Receipt,
		Status:   "created",
	}, nil
}

type fakePublisher struct {
	mu     sync.Mutex
	events []OrderEvent
	done   chan struct{}
}

func newFakePublisher() *fakePublisher {
	return &fakePublisher{done: make(chan struct{}, 16)}
}

func (f *fakePublisher) Publish(_ context.Context, _ string, event any) error {
	f.mu.Lock()
	f.events = append(f.events, event.(OrderEvent))
	f.mu.Unlock()
	f.done <- struct{}{}
	return nil
}

func testProduct(name string, price float64, stock int) models.Product {
	return models.Product{
		BaseModel:         models.BaseModel{ID: uuid.New()},
		Name:              name,
		Category:          "Accessories",
		Price:             price,
		QuantityAvailable: stock,
	}
}

func testAddress() *models.Address {
	return &models.Address{
		FullName:     "Arjun Rao",
		Phone:        "9876543210",
		AddressLine1: "12 MG Road",
		City:         "Bengaluru",
		State:        "Karnataka",
		PostalCode:   "560001",
		Country:      "India",
	}
}

func intPtr(v int) *int { return &v }

func floatPtr(v float64) *float64 { return &v }
