package services

import (
	"bytes"
	"encoding/json"
	"fmt"
	"html"
	"log"
	"math"
	"net/http"
	"strings"
	"time"

	"github.com/example/bikestore/internal/models"
)

// TelegramService posts order notifications to the admin Telegram chat.
type TelegramService struct {
	botToken    string
	adminChatID string
	apiBase     string
	client      *http.Client
}

// NewTelegramService creates a new TelegramService.
func NewTelegramService(botToken, adminChatID string) *TelegramService {
	return &TelegramService{
		botToken:    botToken,
		adminChatID: adminChatID,
		apiBase:     "https://api.telegram.org",
		client:      &http.Client{Timeout: 10 * time.Second},
	}
}

// Enabled reports whether both bot token and admin chat are configured.
func (s *TelegramService) Enabled() bool {
	return s.botToken != "" && s.adminChatID != ""
}

type telegramMessage struct {
	ChatID    string `json:"chat_id"`
	Text      string `json:"text"`
	ParseMode string `json:"parse_mode"`
}

// SendMessage sends an HTML message to chatID.
func (s *TelegramService) SendMessage(chatID, text string) error {
	if s.botToken == "" {
		log.Println("[Telegram] Bot token not configured")
		return nil
	}

	url := fmt.Sprintf("%s/bot%s/sendMessage", s.apiBase, s.botToken)

	body, err := json.Marshal(telegramMessage{ChatID: chatID, Text: text, ParseMode: "HTML"})
	if err != nil {
		return err
	}

	resp, err := s.client.Post(url, "application/json", bytes.NewReader(body))
	if err != nil {
		log.Printf("[Telegram] Failed to send message: %v", err)
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		log.Printf("[Telegram] Unexpected status: %d", resp.StatusCode)
		return fmt.Errorf("telegram returned status %d", resp.StatusCode)
	}
	return nil
}

// NotifyOrderPlaced implements OrderNotifier.
func (s *TelegramService) NotifyOrderPlaced(cart models.Cart) error {
	if s.adminChatID == "" {
		return nil
	}
	return s.SendMessage(s.adminChatID, FormatOrderMessage(cart))
}

// FormatOrderMessage renders the admin notification for a new order.
func FormatOrderMessage(cart models.Cart) string {
	var items strings.Builder
	for i, item := range cart.Items {
		fmt.Fprintf(&items, "%d. <b>%s</b>\n   %d x %s = %s\n",
			i+1, html.EscapeString(item.Name), item.Quantity, FormatINR(item.Price), FormatINR(item.TotalPrice))
	}

	number := ""
	if cart.OrderNumber != nil {
		number = *cart.OrderNumber
	}

	customer := ""
	if cart.ShippingAddress != nil {
		customer = fmt.Sprintf("%s, %s", cart.ShippingAddress.FullName, cart.ShippingAddress.City)
	}

	var msg strings.Builder
	fmt.Fprintf(&msg, "<b>🏍 New order %s</b>\n", html.EscapeString(number))
	fmt.Fprintf(&msg, "<b>Customer:</b> %s\n", html.EscapeString(customer))
	fmt.Fprintf(&msg, "<b>Phone:</b> %s\n", cart.PhoneNumber)
	fmt.Fprintf(&msg, "<b>Items:</b>\n%s", items.String())
	if cart.CouponCode != "" {
		fmt.Fprintf(&msg, "<b>Coupon:</b> %s (-%s)\n", cart.CouponCode, FormatINR(cart.DiscountAmount))
	}
	fmt.Fprintf(&msg, "<b>Total:</b> %s\n", FormatINR(cart.TotalAmount))
	fmt.Fprintf(&msg, "<b>Payment:</b> %s (%s)", cart.PaymentMethod, cart.PaymentStatus)
	return msg.String()
}

// FormatINR formats amount with the rupee sign and Indian digit grouping,
// e.g. 123456.5 -> ₹1,23,456.50.
func FormatINR(amount float64) string {
	sign := ""
	if amount < 0 {
		sign = "-"
		amount = -amount
	}

	paise := int64(math.Round(amount * 100))
	whole := fmt.Sprintf("%d", paise/100)
	frac := paise % 100

	if len(whole) > 3 {
		head, tail := whole[:len(whole)-3], whole[len(whole)-3:]
		var groups []string
		for len(head) > 2 {
			groups = append([]string{head[len(head)-2:]}, groups...)
			head = head[:len(head)-2]
		}
		groups = append([]string{head}, groups...)
		whole = strings.Join(groups, ",") + "," + tail
	}

	return fmt.Sprintf("%s₹%s.%02d", sign, whole, frac)
}
