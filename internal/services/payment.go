package services

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"math"
	"time"

	"github.com/google/uuid"

	"github.com/example/bikestore/internal/models"
)

const (
	webhookPaymentCaptured = "payment.captured"
	webhookPaymentFailed   = "payment.failed"
	settlementCurrency     = "INR"
)

// PaymentService bridges carts and the payment gateway.
type PaymentService struct {
	carts         CartRepository
	cartService   *CartService
	gateway       PaymentGateway
	paymentEvents PaymentEventRepository
	keyID         string
	keySecret     string
	displayName   string
	events        OrderEventPublisher
	now           func() time.Time
}

// PaymentConfig carries the gateway credentials.
type PaymentConfig struct {
	KeyID       string
	KeySecret   string
	DisplayName string
}

// NewPaymentService constructs PaymentService.
func NewPaymentService(carts CartRepository, cartService *CartService, gateway PaymentGateway, paymentEvents PaymentEventRepository, cfg PaymentConfig) *PaymentService {
	return &PaymentService{
		carts:         carts,
		cartService:   cartService,
		gateway:       gateway,
		paymentEvents: paymentEvents,
		keyID:         cfg.KeyID,
		keySecret:     cfg.KeySecret,
		displayName:   cfg.DisplayName,
		now:           time.Now,
	}
}

// SetEventPublisher enables payment failure events.
func (s *PaymentService) SetEventPublisher(p OrderEventPublisher) {
	s.events = p
}

// CheckoutSession is what the client needs to open the gateway checkout.
type CheckoutSession struct {
	OrderID  string    `json:"order_id"`
	Amount   int64     `json:"amount"`
	Currency string    `json:"currency"`
	CartID   uuid.UUID `json:"cart_id"`
	KeyID    string    `json:"key_id"`
	Name     string    `json:"name"`
}

// VerifyRequest is the client callback after a successful payment.
type VerifyRequest struct {
	CartID    uuid.UUID
	OrderID   string
	PaymentID string
	Signature string
}

// WebhookPayload is the subset of the gateway webhook body we use.
type WebhookPayload struct {
	Event   string `json:"event"`
	Payload struct {
		Payment struct {
			Entity struct {
				ID      string `json:"id"`
				OrderID string `json:"order_id"`
				Amount  int64  `json:"amount"`
				Status  string `json:"status"`
			} `json:"entity"`
		} `json:"payment"`
	} `json:"payload"`
}

// AmountInPaise converts a rupee total to integer minor units.
func AmountInPaise(total float64) int64 {
	return int64(math.Round(total * 100))
}

// CreateOrder creates a gateway order for the phone's open cart. Payment is
// always settled in INR whatever the display currency.
func (s *PaymentService) CreateOrder(ctx context.Context, phone string) (*CheckoutSession, error) {
	for attempt := 1; ; attempt++ {
		cart, err := s.carts.FindOpen(ctx, phone)
		if err != nil {
			return nil, err
		}
		if err := s.cartService.readyForPayment(ctx, cart); err != nil {
			return nil, err
		}
		if cart.TotalAmount <= 0 {
			return nil, ErrInvalidAmount
		}

		amount := AmountInPaise(cart.TotalAmount)
		order, err := s.gateway.CreateOrder(ctx, GatewayOrderRequest{
			Amount:   amount,
			Currency: settlementCurrency,
			Receipt:  "receipt_" + cart.ID.String(),
			Capture:  1,
			Notes: map[string]string{
				"cart_id":      cart.ID.String(),
				"phone_number": phone,
			},
		})
		if err != nil {
			log.Printf("[Payment] create order failed for cart %s: %v", cart.ID, err)
			return nil, err
		}

		cart.RazorpayOrderID = &order.ID
		cart.PaymentAmount = order.Amount
		cart.PaymentMethod = models.PaymentMethodOnline
		cart.PaymentStatus = models.PaymentStatusPending
		cart.Status = models.CartStatusCheckout

		err = s.carts.Save(ctx, cart)
		if err == nil {
			log.Printf("[Payment] order %s created for cart %s (%d paise)", order.ID, cart.ID, order.Amount)
			return &CheckoutSession{
				OrderID:  order.ID,
				Amount:   order.Amount,
				Currency: order.Currency,
				CartID:   cart.ID,
				KeyID:    s.keyID,
				Name:     s.displayName,
			}, nil
		}
		if !errors.Is(err, ErrCartConflict) || attempt >= maxCartRetries {
			return nil, err
		}
	}
}

// Verify checks the client callback signature and places the order.
func (s *PaymentService) Verify(ctx context.Context, req VerifyRequest) (*models.Cart, error) {
	if !VerifyPaymentSignature(s.keySecret, req.OrderID, req.PaymentID, req.Signature) {
		log.Printf("[Payment] signature mismatch for order %s", req.OrderID)
		return nil, ErrInvalidSignature
	}

	cart, err := s.carts.FindByID(ctx, req.CartID)
	if err != nil {
		return nil, err
	}
	if cart.RazorpayOrderID == nil || *cart.RazorpayOrderID != req.OrderID {
		return nil, ErrPaymentMismatch
	}

	return s.capture(ctx, cart, req.PaymentID, req.Signature, 0)
}

// HandleWebhook applies a signature-verified webhook body.
func (s *PaymentService) HandleWebhook(ctx context.Context, body []byte) error {
	var payload WebhookPayload
	if err := json.Unmarshal(body, &payload); err != nil {
		return fmt.Errorf("decode webhook: %w", err)
	}

	entity := payload.Payload.Payment.Entity
	log.Printf("[Payment] webhook %s for order %s", payload.Event, entity.OrderID)

	if payload.Event != webhookPaymentCaptured && payload.Event != webhookPaymentFailed {
		log.Printf("[Payment] unhandled webhook event %s", payload.Event)
		return nil
	}

	record := &models.PaymentEvent{
		Event:           payload.Event,
		PaymentID:       entity.ID,
		RazorpayOrderID: entity.OrderID,
		Amount:          entity.Amount,
		Payload:         body,
	}

	cart, err := s.carts.FindByRazorpayOrderID(ctx, entity.OrderID)
	switch {
	case errors.Is(err, ErrCartNotFound):
		record.Outcome = "cart_not_found"
		_, err = s.paymentEvents.Record(ctx, record)
		return err
	case err != nil:
		return err
	}
	record.CartID = &cart.ID
	record.Outcome = "received"

	fresh, err := s.paymentEvents.Record(ctx, record)
	if err != nil {
		return err
	}
	if !fresh {
		log.Printf("[Payment] duplicate webhook %s for payment %s ignored", payload.Event, entity.ID)
		return nil
	}

	if payload.Event == webhookPaymentFailed {
		err = s.markFailed(ctx, cart)
	} else {
		_, err = s.capture(ctx, cart, entity.ID, "", entity.Amount)
		var hold *PaymentHoldError
		if errors.As(err, &hold) {
			// Acknowledge the delivery; the hold is recorded on the cart.
			err = nil
		}
	}

	if err != nil {
		// Let the gateway redeliver.
		if delErr := s.paymentEvents.Delete(ctx, record.ID); delErr != nil {
			log.Printf("[Payment] failed to drop webhook record %s: %v", record.ID, delErr)
		}
	}
	return err
}

// Status returns the payment fields of a cart.
func (s *PaymentService) Status(ctx context.Context, cartID uuid.UUID) (*models.Cart, error) {
	return s.carts.FindByID(ctx, cartID)
}

// capture records the payment and places the order. It is a no-op for a cart
// that is already ordered. paid is the captured amount in paise, 0 when the
// caller does not know it.
func (s *PaymentService) capture(ctx context.Context, cart *models.Cart, paymentID, signature string, paid int64) (*models.Cart, error) {
	for attempt := 1; ; attempt++ {
		if cart.Status == models.CartStatusOrdered {
			return cart, nil
		}

		cart.RazorpayPaymentID = paymentID
		if signature != "" {
			cart.RazorpaySignature = signature
		}
		cart.PaymentStatus = models.PaymentStatusPaid
		cart.PaymentMethod = models.PaymentMethodOnline

		due := AmountInPaise(cart.TotalAmount)
		if (paid > 0 && paid != due) || (cart.PaymentAmount > 0 && cart.PaymentAmount != due) {
			log.Printf("[Payment] payment %s for cart %s does not cover %d paise", paymentID, cart.ID, due)
			return s.hold(ctx, cart, ErrAmountMismatch)
		}

		err := s.cartService.PlaceOrder(ctx, cart, models.OrderStatusConfirmed)
		if err == nil {
			return cart, nil
		}

		if errors.Is(err, ErrCartConflict) && attempt < maxCartRetries {
			if cart, err = s.carts.FindByID(ctx, cart.ID); err != nil {
				return nil, err
			}
			continue
		}

		if errors.Is(err, ErrInsufficientStock) || errors.Is(err, ErrCouponExhausted) {
			log.Printf("[Payment] payment %s captured but order for cart %s failed: %v", paymentID, cart.ID, err)
			return s.hold(ctx, cart, err)
		}
		return nil, err
	}
}

// hold keeps a paid cart in checkout for staff to resolve.
func (s *PaymentService) hold(ctx context.Context, cart *models.Cart, cause error) (*models.Cart, error) {
	cart.Status = models.CartStatusCheckout
	if err := s.carts.Save(ctx, cart); err != nil {
		log.Printf("[Payment] failed to record held payment on cart %s: %v", cart.ID, err)
	}
	return cart, &PaymentHoldError{Cause: cause}
}

func (s *PaymentService) markFailed(ctx context.Context, cart *models.Cart) error {
	for attempt := 1; ; attempt++ {
		if cart.Status == models.CartStatusOrdered {
			return nil
		}

		cart.PaymentStatus = models.PaymentStatusFailed
		cart.Status = models.CartStatusActive

		err := s.carts.Save(ctx, cart)
		if err == nil {
			log.Printf("[Payment] payment failed for cart %s, cart reopened", cart.ID)
			publishOrderEvent(s.events, EventOrderPaymentFailed, cart, s.now())
			return nil
		}
		if !errors.Is(err, ErrCartConflict) || attempt >= maxCartRetries {
			return err
		}
		if cart, err = s.carts.FindByID(ctx, cart.ID); err != nil {
			return err
		}
	}
}

// VerifyPaymentSignature checks hex(HMAC-SHA256(secret, orderID|paymentID)).
func VerifyPaymentSignature(secret, orderID, paymentID, signature string) bool {
	if secret == "" || orderID == "" || paymentID == "" || signature == "" {
		return false
	}
	return verifyHMAC(secret, []byte(orderID+"|"+paymentID), signature)
}

// VerifyWebhookSignature checks hex(HMAC-SHA256(secret, rawBody)).
func VerifyWebhookSignature(secret string, body []byte, signature string) bool {
	if secret == "" || signature == "" {
		return false
	}
	return verifyHMAC(secret, body, signature)
}

// SignPayload returns hex(HMAC-SHA256(secret, payload)).
func SignPayload(secret string, payload []byte) string {
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write(payload)
	return hex.EncodeToString(mac.Sum(nil))
}

func verifyHMAC(secret string, payload []byte, signature string) bool {
	expected := SignPayload(secret, payload)
	return hmac.Equal([]byte(expected), []byte(signature))
}
