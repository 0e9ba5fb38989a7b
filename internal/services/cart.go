package services

import (
	"context"
	"crypto/rand"
	"errors"
	"fmt"
	"log"
	"math/big"
	"time"

	"github.com/google/uuid"

	"github.com/example/bikestore/internal/models"
)

const maxCartRetries = 3

// Pricing holds the cart charges applied on top of the subtotal.
type Pricing struct {
	ShippingCost float64
	TaxPercent   float64
}

// CartService reconciles carts against stock and prices them.
type CartService struct {
	carts    CartRepository
	products ProductRepository
	coupons  *CouponService
	pricing  Pricing
	events   OrderEventPublisher
	notifier OrderNotifier
	now      func() time.Time
}

// NewCartService constructs CartService.
func NewCartService(carts CartRepository, products ProductRepository, coupons *CouponService, pricing Pricing) *CartService {
	return &CartService{
		carts:    carts,
		products: products,
		coupons:  coupons,
		pricing:  pricing,
		now:      time.Now,
	}
}

// SetEventPublisher enables order event publishing.
func (s *CartService) SetEventPublisher(p OrderEventPublisher) {
	s.events = p
}

// SetNotifier enables staff notifications for new orders.
func (s *CartService) SetNotifier(n OrderNotifier) {
	s.notifier = n
}

// ItemRequest is one entry of a manage-items batch.
type ItemRequest struct {
	ProductID string `json:"product_id"`
	Quantity  *int   `json:"quantity"`
}

// ProcessedItem reports what happened to a requested line.
type ProcessedItem struct {
	ProductID string `json:"product_id"`
	Action    string `json:"action"`
	Quantity  int    `json:"quantity"`
	Message   string `json:"message,omitempty"`
}

// UnprocessedItem is requested quantity that stock could not cover.
type UnprocessedItem struct {
	ProductID         uuid.UUID `json:"product_id"`
	Name              string    `json:"name"`
	Quantity          int       `json:"quantity"`
	Price             float64   `json:"price"`
	TotalPrice        float64   `json:"total_price"`
	AvailableQuantity int       `json:"available_quantity"`
	Message           string    `json:"message"`
}

// ManageResult is the outcome of ManageItems.
type ManageResult struct {
	Cart          *models.Cart      `json:"cart"`
	Processed     []ProcessedItem   `json:"processed_items"`
	Unprocessed   []UnprocessedItem `json:"unprocessed_items"`
	CouponRemoved string            `json:"coupon_removed,omitempty"`
}

// Availability is the stock check result for one line.
type Availability struct {
	ProductID         string  `json:"product_id"`
	ProductName       string  `json:"product_name,omitempty"`
	IsValid           bool    `json:"is_valid"`
	Message           string  `json:"message"`
	RequestedQuantity int     `json:"requested_quantity"`
	AvailableQuantity int     `json:"available_quantity"`
	Price             float64 `json:"price,omitempty"`
}

type lineRequest struct {
	productID uuid.UUID
	quantity  int
}

// ActiveCart returns the open cart for phone, or a virtual empty cart.
func (s *CartService) ActiveCart(ctx context.Context, phone string) (*models.Cart, error) {
	cart, err := s.carts.FindOpen(ctx, phone)
	if errors.Is(err, ErrCartNotFound) {
		return models.NewVirtualCart(phone), nil
	}
	return cart, err
}

// ManageItems applies a batch of add/update/remove requests. Malformed input
// rejects the whole batch; stock shortages are reported per line.
func (s *CartService) ManageItems(ctx context.Context, phone string, reqs []ItemRequest) (*ManageResult, error) {
	lines, products, err := s.gateItems(ctx, reqs)
	if err != nil {
		return nil, err
	}

	for attempt := 1; ; attempt++ {
		result, err := s.manageOnce(ctx, phone, lines, products)
		if !errors.Is(err, ErrCartConflict) || attempt >= maxCartRetries {
			return result, err
		}
		log.Printf("[Cart] version conflict for %s, retrying (%d/%d)", phone, attempt, maxCartRetries)

		ids := make([]uuid.UUID, 0, len(lines))
		for _, l := range lines {
			ids = append(ids, l.productID)
		}
		if products, err = s.products.FindProducts(ctx, ids); err != nil {
			return nil, err
		}
	}
}

func (s *CartService) gateItems(ctx context.Context, reqs []ItemRequest) ([]lineRequest, map[uuid.UUID]models.Product, error) {
	if len(reqs) == 0 {
		return nil, nil, ErrItemsRequired
	}

	var bad []ItemError
	lines := make([]lineRequest, 0, len(reqs))
	for i, req := range reqs {
		switch {
		case req.ProductID == "" || req.Quantity == nil:
			bad = append(bad, ItemError{Index: i, ProductID: req.ProductID, Quantity: req.Quantity, Message: "product_id and quantity are required"})
			continue
		case *req.Quantity < 0:
			bad = append(bad, ItemError{Index: i, ProductID: req.ProductID, Quantity: req.Quantity, Message: "quantity cannot be negative"})
			continue
		}

		id, err := uuid.Parse(req.ProductID)
		if err != nil {
			bad = append(bad, ItemError{Index: i, ProductID: req.ProductID, Quantity: req.Quantity, Message: "invalid product_id"})
			continue
		}
		lines = append(lines, lineRequest{productID: id, quantity: *req.Quantity})
	}
	if len(bad) > 0 {
		return nil, nil, &ItemValidationError{Items: bad}
	}

	ids := make([]uuid.UUID, 0, len(lines))
	for _, l := range lines {
		ids = append(ids, l.productID)
	}
	products, err := s.products.FindProducts(ctx, ids)
	if err != nil {
		return nil, nil, err
	}

	for i, l := range lines {
		if _, ok := products[l.productID]; !ok {
			qty := l.quantity
			bad = append(bad, ItemError{Index: i, ProductID: l.productID.String(), Quantity: &qty, Message: "product not found"})
		}
	}
	if len(bad) > 0 {
		return nil, nil, &ItemValidationError{Items: bad}
	}

	return lines, products, nil
}

func (s *CartService) manageOnce(ctx context.Context, phone string, lines []lineRequest, products map[uuid.UUID]models.Product) (*ManageResult, error) {
	cart, err := s.carts.FindOpen(ctx, phone)
	isNew := false
	if errors.Is(err, ErrCartNotFound) {
		cart = newCart(phone)
		isNew = true
	} else if err != nil {
		return nil, err
	}

	result := &ManageResult{Processed: []ProcessedItem{}, Unprocessed: []UnprocessedItem{}}

	for _, line := range lines {
		product := products[line.productID]
		idx := cart.Items.Find(line.productID)

		if line.quantity == 0 {
			if idx >= 0 {
				cart.Items = append(cart.Items[:idx], cart.Items[idx+1:]...)
				result.Processed = append(result.Processed, ProcessedItem{ProductID: line.productID.String(), Action: "removed"})
			} else {
				result.Processed = append(result.Processed, ProcessedItem{ProductID: line.productID.String(), Action: "no-op", Message: "item not in cart"})
			}
			continue
		}

		existing := 0
		if idx >= 0 {
			existing = cart.Items[idx].Quantity
		}
		room := product.QuantityAvailable - existing
		if room < 0 {
			room = 0
		}
		toAdd := min(line.quantity, room)

		if short := line.quantity - toAdd; short > 0 {
			result.Unprocessed = append(result.Unprocessed, UnprocessedItem{
				ProductID:         product.ID,
				Name:              product.Name,
				Quantity:          short,
				Price:             product.Price,
				TotalPrice:        models.RoundAmount(product.Price * float64(short)),
				AvailableQuantity: product.QuantityAvailable,
				Message:           fmt.Sprintf("Only %d available, %d not processed", toAdd, short),
			})
		}
		if toAdd == 0 {
			continue
		}

		if idx >= 0 {
			cart.Items[idx].Quantity += toAdd
			snapshotProduct(&cart.Items[idx], product)
			result.Processed = append(result.Processed, ProcessedItem{ProductID: line.productID.String(), Action: "updated", Quantity: cart.Items[idx].Quantity})
		} else {
			item := models.CartItem{ProductID: product.ID, Quantity: toAdd}
			snapshotProduct(&item, product)
			cart.Items = append(cart.Items, item)
			result.Processed = append(result.Processed, ProcessedItem{ProductID: line.productID.String(), Action: "added", Quantity: toAdd})
		}
	}

	if err := s.revalidateLines(ctx, cart, result); err != nil {
		return nil, err
	}

	reason, err := s.reprice(ctx, cart)
	if err != nil {
		return nil, err
	}
	result.CouponRemoved = reason
	reopen(cart)

	if cart.IsEmpty() {
		if !isNew {
			if err := s.carts.Delete(ctx, cart); err != nil {
				return nil, err
			}
			log.Printf("[Cart] cart %s emptied and deleted", cart.ID)
		}
		result.Cart = models.NewVirtualCart(phone)
		return result, nil
	}

	if isNew {
		err = s.carts.Create(ctx, cart)
	} else {
		err = s.carts.Save(ctx, cart)
	}
	if err != nil {
		return nil, err
	}

	result.Cart = cart
	return result, nil
}

// revalidateLines re-reads stock for every line and evicts lines that can no
// longer be covered.
func (s *CartService) revalidateLines(ctx context.Context, cart *models.Cart, result *ManageResult) error {
	if cart.IsEmpty() {
		return nil
	}

	ids := make([]uuid.UUID, 0, len(cart.Items))
	for _, item := range cart.Items {
		ids = append(ids, item.ProductID)
	}
	fresh, err := s.products.FindProducts(ctx, ids)
	if err != nil {
		return err
	}

	kept := make(models.CartItems, 0, len(cart.Items))
	for _, item := range cart.Items {
		product, ok := fresh[item.ProductID]
		if !ok {
			result.Unprocessed = append(result.Unprocessed, UnprocessedItem{
				ProductID: item.ProductID,
				Name:      item.Name,
				Quantity:  item.Quantity,
				Price:     item.Price,
				Message:   "Product no longer available",
			})
			continue
		}
		if !product.InStock(item.Quantity) {
			result.Unprocessed = append(result.Unprocessed, UnprocessedItem{
				ProductID:         item.ProductID,
				Name:              product.Name,
				Quantity:          item.Quantity,
				Price:             product.Price,
				TotalPrice:        models.RoundAmount(product.Price * float64(item.Quantity)),
				AvailableQuantity: product.QuantityAvailable,
				Message:           "Insufficient quantity available",
			})
			continue
		}
		snapshotProduct(&item, product)
		kept = append(kept, item)
	}
	cart.Items = kept
	return nil
}

// reprice recomputes charges and re-checks an applied coupon. It returns the
// reason when the coupon had to be dropped.
func (s *CartService) reprice(ctx context.Context, cart *models.Cart) (string, error) {
	cart.RecalculateSubtotal()

	if cart.IsEmpty() {
		cart.ShippingCost = 0
		cart.TaxAmount = 0
		cart.ClearCoupon()
		cart.RecalculateTotal()
		return "", nil
	}

	cart.ShippingCost = s.pricing.ShippingCost
	cart.TaxAmount = models.RoundAmount(cart.Subtotal * s.pricing.TaxPercent / 100)

	var reason string
	if cart.CouponID != nil {
		coupon, err := s.coupons.coupons.FindByID(ctx, *cart.CouponID)
		switch {
		case errors.Is(err, ErrCouponNotFound):
			reason = "Coupon is no longer available"
		case err != nil:
			return "", err
		default:
			elig, err := s.coupons.CheckEligibility(ctx, coupon, cart.PhoneNumber, cart.Subtotal)
			if err != nil {
				return "", err
			}
			if elig.Valid {
				cart.DiscountAmount = CalculateDiscount(coupon, cart.Subtotal)
			} else {
				reason = elig.Reason
			}
		}
		if reason != "" {
			log.Printf("[Cart] dropping coupon %s from cart %s: %s", cart.CouponCode, cart.ID, reason)
			cart.ClearCoupon()
		}
	}

	cart.RecalculateTotal()
	return reason, nil
}

// ValidateItems checks an arbitrary item list against current stock.
func (s *CartService) ValidateItems(ctx context.Context, reqs []ItemRequest) ([]Availability, bool, error) {
	if len(reqs) == 0 {
		return nil, false, ErrItemsRequired
	}

	ids := make([]uuid.UUID, 0, len(reqs))
	for _, req := range reqs {
		if id, err := uuid.Parse(req.ProductID); err == nil {
			ids = append(ids, id)
		}
	}
	products, err := s.products.FindProducts(ctx, ids)
	if err != nil {
		return nil, false, err
	}

	results := make([]Availability, 0, len(reqs))
	for _, req := range reqs {
		qty := 0
		if req.Quantity != nil {
			qty = *req.Quantity
		}
		id, err := uuid.Parse(req.ProductID)
		var product models.Product
		var ok bool
		if err == nil {
			product, ok = products[id]
		}
		results = append(results, availabilityFor(req.ProductID, product, ok, qty))
	}
	return results, allValid(results), nil
}

// Clear deletes the open cart and returns the virtual empty cart.
func (s *CartService) Clear(ctx context.Context, phone string) (*models.Cart, error) {
	for attempt := 1; ; attempt++ {
		cart, err := s.carts.FindOpen(ctx, phone)
		if err != nil {
			return nil, err
		}
		err = s.carts.Delete(ctx, cart)
		if err == nil {
			return models.NewVirtualCart(phone), nil
		}
		if !errors.Is(err, ErrCartConflict) || attempt >= maxCartRetries {
			return nil, err
		}
	}
}

// UpdateAddresses sets whichever of the two addresses is non-nil.
func (s *CartService) UpdateAddresses(ctx context.Context, phone string, shipping, billing *models.Address) (*models.Cart, error) {
	return s.mutateOpenCart(ctx, phone, func(cart *models.Cart) error {
		if shipping != nil {
			cart.ShippingAddress = shipping
		}
		if billing != nil {
			cart.BillingAddress = billing
		}
		return nil
	})
}

// ApplyCoupon attaches an eligible coupon and recomputes the discount.
// Usage is only consumed when the order is placed.
func (s *CartService) ApplyCoupon(ctx context.Context, phone, code string) (*models.Cart, error) {
	coupon, err := s.coupons.Lookup(ctx, code)
	if err != nil {
		return nil, err
	}

	return s.mutateOpenCart(ctx, phone, func(cart *models.Cart) error {
		if cart.IsEmpty() {
			return ErrCartEmpty
		}
		cart.RecalculateSubtotal()

		elig, err := s.coupons.CheckEligibility(ctx, coupon, phone, cart.Subtotal)
		if err != nil {
			return err
		}
		if !elig.Valid {
			return &CouponIneligibleError{Reason: elig.Reason}
		}

		id := coupon.ID
		cart.CouponID = &id
		cart.CouponCode = coupon.Code
		if _, err := s.reprice(ctx, cart); err != nil {
			return err
		}
		reopen(cart)
		return nil
	})
}

// RemoveCoupon detaches any applied coupon.
func (s *CartService) RemoveCoupon(ctx context.Context, phone string) (*models.Cart, error) {
	return s.mutateOpenCart(ctx, phone, func(cart *models.Cart) error {
		cart.ClearCoupon()
		if _, err := s.reprice(ctx, cart); err != nil {
			return err
		}
		reopen(cart)
		return nil
	})
}

// Checkout validates the whole cart. Cash on delivery places the order at
// once; every other method parks the cart in checkout awaiting payment.
func (s *CartService) Checkout(ctx context.Context, phone, method string) (*models.Cart, error) {
	if method == "" {
		method = models.PaymentMethodOnline
	}
	if !validPaymentMethod(method) {
		return nil, ErrInvalidPayMethod
	}

	for attempt := 1; ; attempt++ {
		cart, err := s.carts.FindOpen(ctx, phone)
		if err != nil {
			return nil, err
		}
		if err := s.readyForPayment(ctx, cart); err != nil {
			return nil, err
		}

		cart.PaymentMethod = method
		if method == models.PaymentMethodCOD {
			err = s.PlaceOrder(ctx, cart, models.OrderStatusPlaced)
		} else {
			cart.Status = models.CartStatusCheckout
			err = s.carts.Save(ctx, cart)
		}
		if err == nil {
			return cart, nil
		}
		if !errors.Is(err, ErrCartConflict) || attempt >= maxCartRetries {
			return nil, err
		}
	}
}

// readyForPayment runs the pre-payment gate: non-empty, addressed, fully in
// stock, and any coupon still eligible.
func (s *CartService) readyForPayment(ctx context.Context, cart *models.Cart) error {
	if cart.IsEmpty() {
		return ErrCartEmpty
	}
	if !cart.HasAddresses() {
		return ErrAddressesRequired
	}

	results, ok, err := s.checkCart(ctx, cart)
	if err != nil {
		return err
	}
	if !ok {
		return &StockError{Results: results}
	}

	if cart.CouponID != nil {
		coupon, err := s.coupons.coupons.FindByID(ctx, *cart.CouponID)
		if errors.Is(err, ErrCouponNotFound) {
			return &CouponIneligibleError{Reason: "Coupon is no longer available"}
		}
		if err != nil {
			return err
		}
		elig, err := s.coupons.CheckEligibility(ctx, coupon, cart.PhoneNumber, cart.Subtotal)
		if err != nil {
			return err
		}
		if !elig.Valid {
			return &CouponIneligibleError{Reason: elig.Reason}
		}
	}
	return nil
}

// PlaceOrder turns cart into an order through the atomic placement
// transaction. cart is only updated when placement succeeds.
func (s *CartService) PlaceOrder(ctx context.Context, cart *models.Cart, orderStatus string) error {
	now := s.now()
	placed := *cart
	if placed.OrderNumber == nil {
		number, err := GenerateOrderNumber(now)
		if err != nil {
			return err
		}
		placed.OrderNumber = &number
	}
	placed.Status = models.CartStatusOrdered
	placed.OrderStatus = orderStatus
	placed.OrderDate = &now

	if err := s.carts.PlaceOrder(ctx, &placed); err != nil {
		return err
	}
	*cart = placed

	log.Printf("[Cart] order %s placed for %s, total %.2f", *cart.OrderNumber, cart.PhoneNumber, cart.TotalAmount)
	publishOrderEvent(s.events, EventOrderPlaced, cart, now)
	if s.notifier != nil {
		go func(c models.Cart) {
			if err := s.notifier.NotifyOrderPlaced(c); err != nil {
				log.Printf("[Cart] order notification failed for %s: %v", *c.OrderNumber, err)
			}
		}(*cart)
	}
	return nil
}

func (s *CartService) checkCart(ctx context.Context, cart *models.Cart) ([]Availability, bool, error) {
	ids := make([]uuid.UUID, 0, len(cart.Items))
	for _, item := range cart.Items {
		ids = append(ids, item.ProductID)
	}
	products, err := s.products.FindProducts(ctx, ids)
	if err != nil {
		return nil, false, err
	}

	results := make([]Availability, 0, len(cart.Items))
	for _, item := range cart.Items {
		product, ok := products[item.ProductID]
		results = append(results, availabilityFor(item.ProductID.String(), product, ok, item.Quantity))
	}
	return results, allValid(results), nil
}

// mutateOpenCart loads the open cart, applies fn and saves, retrying on
// version conflicts.
func (s *CartService) mutateOpenCart(ctx context.Context, phone string, fn func(*models.Cart) error) (*models.Cart, error) {
	for attempt := 1; ; attempt++ {
		cart, err := s.carts.FindOpen(ctx, phone)
		if err != nil {
			return nil, err
		}
		if err := fn(cart); err != nil {
			return nil, err
		}

		err = s.carts.Save(ctx, cart)
		if err == nil {
			return cart, nil
		}
		if !errors.Is(err, ErrCartConflict) || attempt >= maxCartRetries {
			return nil, err
		}
		log.Printf("[Cart] version conflict for %s, retrying (%d/%d)", phone, attempt, maxCartRetries)
	}
}

// GenerateOrderNumber returns ORD-<unix ms>-<5 random upper-case characters>.
func GenerateOrderNumber(at time.Time) (string, error) {
	const alphabet = "ABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789"
	suffix := make([]byte, 5)
	for i := range suffix {
		n, err := rand.Int(rand.Reader, big.NewInt(int64(len(alphabet))))
		if err != nil {
			return "", err
		}
		suffix[i] = alphabet[n.Int64()]
	}
	return fmt.Sprintf("ORD-%d-%s", at.UnixMilli(), suffix), nil
}

func newCart(phone string) *models.Cart {
	return &models.Cart{
		PhoneNumber:   phone,
		Items:         models.CartItems{},
		Status:        models.CartStatusActive,
		OrderStatus:   models.OrderStatusPlaced,
		PaymentStatus: models.PaymentStatusPending,
		Version:       1,
	}
}

// reopen moves an edited cart back to active and forgets its gateway order,
// which was created for the old total.
func reopen(cart *models.Cart) {
	cart.Status = models.CartStatusActive
	cart.RazorpayOrderID = nil
	cart.PaymentAmount = 0
}

func snapshotProduct(item *models.CartItem, product models.Product) {
	item.Name = product.Name
	item.ImageURL = product.ImageURL
	item.Category = product.Category
	item.Price = product.Price
	item.TotalPrice = models.RoundAmount(product.Price * float64(item.Quantity))
}

func availabilityFor(productID string, product models.Product, found bool, qty int) Availability {
	if !found {
		return Availability{
			ProductID:         productID,
			Message:           "Product not found",
			RequestedQuantity: qty,
		}
	}

	res := Availability{
		ProductID:         product.ID.String(),
		ProductName:       product.Name,
		IsValid:           true,
		Message:           "Product available",
		RequestedQuantity: qty,
		AvailableQuantity: product.QuantityAvailable,
		Price:             product.Price,
	}
	if !product.InStock(qty) {
		res.IsValid = false
		res.Message = "Insufficient quantity available"
	}
	return res
}

func allValid(results []Availability) bool {
	for _, r := range results {
		if !r.IsValid {
			return false
		}
	}
	return true
}

func validPaymentMethod(method string) bool {
	switch method {
	case models.PaymentMethodOnline, models.PaymentMethodCard, models.PaymentMethodUPI,
		models.PaymentMethodNetbanking, models.PaymentMethodCOD, models.PaymentMethodWallet:
		return true
	}
	return false
}
