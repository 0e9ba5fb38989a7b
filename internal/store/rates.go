package store

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/example/bikestore/internal/services"
)

const ratesKey = "bikestore:fx:inr"

// RedisRateStore shares the exchange-rate table between server replicas.
type RedisRateStore struct {
	client *redis.Client
	ttl    time.Duration
}

var _ services.RateStore = (*RedisRateStore)(nil)

// NewRedisRateStore constructs RedisRateStore. Entries expire after ttl.
func NewRedisRateStore(client *redis.Client, ttl time.Duration) *RedisRateStore {
	return &RedisRateStore{client: client, ttl: ttl}
}

type cachedRates struct {
	Rates     map[string]float64 `json:"rates"`
	FetchedAt time.Time          `json:"fetched_at"`
}

func (s *RedisRateStore) Load(ctx context.Context) (map[string]float64, time.Time, error) {
	raw, err := s.client.Get(ctx, ratesKey).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, time.Time{}, services.ErrRatesNotCached
	}
	if err != nil {
		return nil, time.Time{}, err
	}

	var cached cachedRates
	if err := json.Unmarshal(raw, &cached); err != nil {
		return nil, time.Time{}, err
	}
	if len(cached.Rates) == 0 {
		return nil, time.Time{}, services.ErrRatesNotCached
	}
	return cached.Rates, cached.FetchedAt, nil
}

func (s *RedisRateStore) Save(ctx context.Context, rates map[string]float64, fetchedAt time.Time) error {
	data, err := json.Marshal(cachedRates{Rates: rates, FetchedAt: fetchedAt})
	if err != nil {
		return err
	}
	return s.client.Set(ctx, ratesKey, data, s.ttl).Err()
}
