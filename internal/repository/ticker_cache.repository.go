package repository

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/goccy/go-json"
	"github.com/krobus00/price-relay/internal/constant"
	"github.com/krobus00/price-relay/internal/entity"
	"github.com/redis/go-redis/v9"
)

// TickerCacheRepository keeps the latest ticker per symbol in redis.
type TickerCacheRepository struct {
	client *redis.Client
	ttl    time.Duration
}

func NewTickerCacheRepository(client *redis.Client, ttl time.Duration) *TickerCacheRepository {
	return &TickerCacheRepository{client: client, ttl: ttl}
}

func (r *TickerCacheRepository) PublishTicker(ctx context.Context, update entity.TickerUpdate) error {
	msg := update.Message()

	payload, err := json.Marshal(msg)
	if err != nil {
		return err
	}

	return r.client.Set(ctx, constant.GetTickerCacheKey(msg.Symbol), payload, r.ttl).Err()
}

func (r *TickerCacheRepository) GetLatest(ctx context.Context, symbol string) (entity.TickerMessage, bool, error) {
	key := constant.GetTickerCacheKey(strings.ToLower(strings.TrimSpace(symbol)))

	raw, err := r.client.Get(ctx, key).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return entity.TickerMessage{}, false, nil
		}
		return entity.TickerMessage{}, false, err
	}

	var msg entity.TickerMessage
	if err := json.Unmarshal(raw, &msg); err != nil {
		return entity.TickerMessage{}, false, err
	}

	return msg, true, nil
}
