package services

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log"
	"net/http"
	"net/url"
	"strings"
	"time"
)

var smsHTTPClient = &http.Client{Timeout: 15 * time.Second}

// SMSSender delivers a verification code to a phone number.
type SMSSender interface {
	SendOTP(ctx context.Context, isdCode, phone, code string) error
}

// SMSConfig selects and configures the SMS provider.
type SMSConfig struct {
	Provider         string
	Fast2SMSAPIKey   string
	Fast2SMSURL      string
	TwilioAccountSID string
	TwilioAuthToken  string
	TwilioFromNumber string
}

// NewSMSSender returns the sender for cfg.Provider. Unknown providers and
// "log" fall back to LogSender.
func NewSMSSender(cfg SMSConfig) SMSSender {
	switch strings.ToLower(cfg.Provider) {
	case "fast2sms":
		return &Fast2SMSSender{apiKey: cfg.Fast2SMSAPIKey, endpoint: cfg.Fast2SMSURL, client: smsHTTPClient}
	case "twilio":
		return &TwilioSender{
			accountSID: cfg.TwilioAccountSID,
			authToken:  cfg.TwilioAuthToken,
			from:       cfg.TwilioFromNumber,
			baseURL:    "https://api.twilio.com/2010-04-01",
			client:     smsHTTPClient,
		}
	default:
		log.Printf("[SMS] provider %q not recognised, codes will only be logged", cfg.Provider)
		return LogSender{}
	}
}

// Fast2SMSSender uses the Fast2SMS OTP route.
type Fast2SMSSender struct {
	apiKey   string
	endpoint string
	client   *http.Client
}

type fast2SMSResponse struct {
	Return  bool `json:"return"`
	Message any  `json:"message"`
}

// SendOTP implements SMSSender.
func (s *Fast2SMSSender) SendOTP(ctx context.Context, _, phone, code string) error {
	if s.apiKey == "" {
		return errors.New("FAST2SMS_API_KEY is not configured")
	}

	q := url.Values{}
	q.Set("authorization", s.apiKey)
	q.Set("variables_values", code)
	q.Set("route", "otp")
	q.Set("numbers", phone)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, s.endpoint+"?"+q.Encode(), nil)
	if err != nil {
		return fmt.Errorf("fast2sms request build: %w", err)
	}

	resp, err := s.client.Do(req)
	if err != nil {
		return fmt.Errorf("fast2sms request: %w", err)
	}
	defer resp.Body.Close()

	body, _ := io.ReadAll(resp.Body)
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("fast2sms failed: status %d, body: %s", resp.StatusCode, string(body))
	}

	var parsed fast2SMSResponse
	if err := json.Unmarshal(body, &parsed); err != nil {
		return fmt.Errorf("fast2sms unmarshal: %w", err)
	}
	if !parsed.Return {
		return fmt.Errorf("fast2sms rejected message: %v", parsed.Message)
	}
	return nil
}

// TwilioSender uses the Twilio Messages API.
type TwilioSender struct {
	accountSID string
	authToken  string
	from       string
	baseURL    string
	client     *http.Client
}

// SendOTP implements SMSSender.
func (s *TwilioSender) SendOTP(ctx context.Context, isdCode, phone, code string) error {
	if s.accountSID == "" || s.authToken == "" || s.from == "" {
		return errors.New("twilio credentials are not configured")
	}

	form := url.Values{}
	form.Set("To", "+"+isdCode+phone)
	form.Set("From", s.from)
	form.Set("Body", fmt.Sprintf("Your verification code is %s", code))

	endpoint := fmt.Sprintf("%s/Accounts/%s/Messages.json", s.baseURL, s.accountSID)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, strings.NewReader(form.Encode()))
	if err != nil {
		return fmt.Errorf("twilio request build: %w", err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	req.SetBasicAuth(s.accountSID, s.authToken)

	resp, err := s.client.Do(req)
	if err != nil {
		return fmt.Errorf("twilio request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		body, _ := io.ReadAll(resp.Body)
		return fmt.Errorf("twilio failed: status %d, body: %s", resp.StatusCode, string(body))
	}
	return nil
}

// LogSender writes codes to the log. For local development only.
type LogSender struct{}

// SendOTP implements SMSSender.
func (LogSender) SendOTP(_ context.Context, isdCode, phone, code string) error {
	log.Printf("[SMS] OTP for +%s%s: %s", isdCode, phone, code)
	return nil
}
