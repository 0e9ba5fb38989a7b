package services

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log"
	"net/http"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"golang.org/x/sync/singleflight"

	"github.com/example/bikestore/internal/models"
)

const (
	baseCurrency           = "INR"
	defaultExchangeRateURL = "https://v6.exchangerate-api.com/v6"
	defaultRatesTTL        = time.Hour
)

// ErrRatesNotCached is returned by a RateStore holding no table.
var ErrRatesNotCached = errors.New("exchange rates not cached")

// fallbackRates are served when the rate API cannot be reached.
var fallbackRates = map[string]float64{
	"INR": 1,
	"USD": 0.012,
	"EUR": 0.011,
	"GBP": 0.0095,
}

// CurrencyInfo describes a display currency.
type CurrencyInfo struct {
	Code   string `json:"code"`
	Name   string `json:"name"`
	Symbol string `json:"symbol"`
}

// SupportedCurrencies are the display currencies clients may request.
var SupportedCurrencies = []CurrencyInfo{
	{Code: "INR", Name: "Indian Rupee", Symbol: "₹"},
	{Code: "USD", Name: "US Dollar", Symbol: "$"},
	{Code: "EUR", Name: "Euro", Symbol: "€"},
	{Code: "GBP", Name: "British Pound", Symbol: "£"},
	{Code: "AUD", Name: "Australian Dollar", Symbol: "A$"},
	{Code: "CAD", Name: "Canadian Dollar", Symbol: "C$"},
	{Code: "SGD", Name: "Singapore Dollar", Symbol: "S$"},
	{Code: "AED", Name: "UAE Dirham", Symbol: "د.إ"},
	{Code: "JPY", Name: "Japanese Yen", Symbol: "¥"},
}

// LookupCurrency finds a supported currency by ISO code.
func LookupCurrency(code string) (CurrencyInfo, bool) {
	code = strings.ToUpper(strings.TrimSpace(code))
	for _, c := range SupportedCurrencies {
		if c.Code == code {
			return c, true
		}
	}
	return CurrencyInfo{}, false
}

// RateStore shares the rate table between replicas.
type RateStore interface {
	Load(ctx context.Context) (map[string]float64, time.Time, error)
	Save(ctx context.Context, rates map[string]float64, fetchedAt time.Time) error
}

// CurrencyConfig configures CurrencyService.
type CurrencyConfig struct {
	APIKey     string
	BaseURL    string
	Multiplier float64
	TTL        time.Duration
}

// CurrencyService converts INR amounts for display using a cached rate table.
type CurrencyService struct {
	apiKey     string
	baseURL    string
	multiplier float64
	ttl        time.Duration
	client     *http.Client
	store      RateStore

	mu         sync.RWMutex
	rates      map[string]float64
	fetchedAt  time.Time
	refreshing atomic.Bool
	group      singleflight.Group

	now func() time.Time
}

// NewCurrencyService constructs CurrencyService.
func NewCurrencyService(cfg CurrencyConfig) *CurrencyService {
	if cfg.BaseURL == "" {
		cfg.BaseURL = defaultExchangeRateURL
	}
	if cfg.Multiplier <= 0 {
		cfg.Multiplier = 1
	}
	if cfg.TTL <= 0 {
		cfg.TTL = defaultRatesTTL
	}
	return &CurrencyService{
		apiKey:     cfg.APIKey,
		baseURL:    strings.TrimRight(cfg.BaseURL, "/"),
		multiplier: cfg.Multiplier,
		ttl:        cfg.TTL,
		client:     &http.Client{Timeout: 10 * time.Second},
		now:        time.Now,
	}
}

// SetRateStore enables a shared rate table.
func (s *CurrencyService) SetRateStore(store RateStore) {
	s.store = store
}

type exchangeRateResponse struct {
	Result          string             `json:"result"`
	ConversionRates map[string]float64 `json:"conversion_rates"`
	ErrorType       string             `json:"error-type"`
}

// Rates returns the INR-based rate table. While one caller refreshes a stale
// table, concurrent callers keep receiving the old one.
func (s *CurrencyService) Rates(ctx context.Context) map[string]float64 {
	rates, fresh := s.cached()
	if fresh {
		return rates
	}

	if rates != nil {
		if !s.refreshing.CompareAndSwap(false, true) {
			return rates
		}
		defer s.refreshing.Store(false)
	}

	v, _, _ := s.group.Do("rates", func() (any, error) {
		return s.refresh(context.WithoutCancel(ctx)), nil
	})
	return v.(map[string]float64)
}

// Convert converts an INR amount to target, applies the multiplier and rounds
// to two decimals. INR or an empty target returns amount unchanged. A code
// with no rate keeps the INR amount, still multiplied and rounded.
func (s *CurrencyService) Convert(ctx context.Context, amount float64, target string) float64 {
	target = strings.ToUpper(strings.TrimSpace(target))
	if target == "" || target == baseCurrency {
		return amount
	}

	rate, ok := s.Rates(ctx)[target]
	if !ok {
		log.Printf("[FX] rate for %s not found, returning original amount", target)
		rate = 1
	}
	return models.RoundAmount(amount * rate * s.multiplier)
}

// HasRate reports whether amounts can be converted to target.
func (s *CurrencyService) HasRate(ctx context.Context, target string) bool {
	target = strings.ToUpper(strings.TrimSpace(target))
	if target == baseCurrency {
		return true
	}
	_, ok := s.Rates(ctx)[target]
	return ok
}

func (s *CurrencyService) cached() (map[string]float64, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.rates == nil {
		return nil, false
	}
	return s.rates, s.now().Sub(s.fetchedAt) < s.ttl
}

func (s *CurrencyService) refresh(ctx context.Context) map[string]float64 {
	// Check again in case another caller refreshed while we waited.
	if rates, fresh := s.cached(); fresh {
		return rates
	}

	if s.store != nil {
		rates, at, err := s.store.Load(ctx)
		if err == nil && s.now().Sub(at) < s.ttl {
			s.set(rates, at)
			return rates
		}
		if err != nil && !errors.Is(err, ErrRatesNotCached) {
			log.Printf("[FX] shared rate store unavailable: %v", err)
		}
	}

	rates, err := s.fetch(ctx)
	if err != nil {
		log.Printf("[FX] failed to fetch exchange rates, using fallback table: %v", err)
		out := make(map[string]float64, len(fallbackRates))
		for k, v := range fallbackRates {
			out[k] = v
		}
		return out
	}

	now := s.now()
	s.set(rates, now)
	if s.store != nil {
		if err := s.store.Save(ctx, rates, now); err != nil {
			log.Printf("[FX] failed to share exchange rates: %v", err)
		}
	}
	return rates
}

func (s *CurrencyService) set(rates map[string]float64, at time.Time) {
	s.mu.Lock()
	s.rates = rates
	s.fetchedAt = at
	s.mu.Unlock()
}

func (s *CurrencyService) fetch(ctx context.Context) (map[string]float64, error) {
	if s.apiKey == "" {
		return nil, errors.New("EXCHANGE_RATE_API_KEY is not configured")
	}

	url := fmt.Sprintf("%s/%s/latest/%s", s.baseURL, s.apiKey, baseCurrency)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("create rate request: %w", err)
	}

	resp, err := s.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("rate request: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read rate response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("rate api returned status %d", resp.StatusCode)
	}

	var parsed exchangeRateResponse
	if err := json.Unmarshal(body, &parsed); err != nil {
		return nil, fmt.Errorf("decode rate response: %w", err)
	}
	if len(parsed.ConversionRates) == 0 {
		return nil, fmt.Errorf("invalid response from exchange rate api: %s", parsed.ErrorType)
	}
	return parsed.ConversionRates, nil
}
