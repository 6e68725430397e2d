package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/aman-zulfiqar/confidential-dex/internal/models"
	"github.com/aman-zulfiqar/confidential-dex/internal/storage"
	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"
)

const (
	pricePrefix     = "price:"
	txPrefix        = "dex:tx:"
	recentTxKey     = "dex:transactions:recent"
	recentTxMaxSize = 1000
	txTTL           = 7 * 24 * time.Hour
)

var (
	_ storage.PriceCache      = (*RedisCache)(nil)
	_ storage.TransactionSink = (*RedisCache)(nil)
)

// RedisCache mirrors oracle prices, keeps a capped list of recent
// transactions and fans them out over pub/sub.
type RedisCache struct {
	client *redis.Client
	logger *logrus.Logger
}

func NewRedisCache(addr, password string, db int, logger *logrus.Logger) *RedisCache {
	return NewRedisCacheFromClient(redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
		DB:       db,
	}), logger)
}

func NewRedisCacheFromClient(client *redis.Client, logger *logrus.Logger) *RedisCache {
	if logger == nil {
		logger = logrus.New()
	}
	return &RedisCache{client: client, logger: logger}
}

func (r *RedisCache) Ping(ctx context.Context) error {
	return r.client.Ping(ctx).Err()
}

func (r *RedisCache) Close() error {
	return r.client.Close()
}

func (r *RedisCache) UpdatePrice(ctx context.Context, token string, price float64) error {
	key := pricePrefix + strings.ToUpper(token)
	if err := r.client.Set(ctx, key, strconv.FormatFloat(price, 'f', -1, 64), 0).Err(); err != nil {
		return fmt.Errorf("failed to set %s: %w", key, err)
	}
	return nil
}

func (r *RedisCache) GetPrice(ctx context.Context, token string) (float64, error) {
	key := pricePrefix + strings.ToUpper(token)
	val, err := r.client.Get(ctx, key).Float64()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return 0, storage.ErrNotFound
		}
		return 0, fmt.Errorf("failed to get %s: %w", key, err)
	}
	return val, nil
}

// RecordTransaction stores tx under its id, ranks it by timestamp in the
// recent index and publishes it. Recording the same id again replaces the
// stored copy, so status changes show up in place.
func (r *RedisCache) RecordTransaction(ctx context.Context, tx *models.Transaction) error {
	data, err := json.Marshal(tx)
	if err != nil {
		return fmt.Errorf("failed to marshal transaction: %w", err)
	}

	pipe := r.client.TxPipeline()
	pipe.Set(ctx, txPrefix+tx.ID, data, txTTL)
	pipe.ZAdd(ctx, recentTxKey, redis.Z{Score: float64(tx.Timestamp.UnixMilli()), Member: tx.ID})
	pipe.ZRemRangeByRank(ctx, recentTxKey, 0, -recentTxMaxSize-1)
	for _, ch := range channelsFor(tx) {
		pipe.Publish(ctx, ch, data)
	}
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("failed to record transaction %s: %w", tx.ID, err)
	}
	return nil
}

// GetRecentTransactions returns up to limit transactions, newest first.
// Entries whose record has expired are skipped.
func (r *RedisCache) GetRecentTransactions(ctx context.Context, limit int64) ([]*models.Transaction, error) {
	if limit <= 0 {
		return []*models.Transaction{}, nil
	}
	ids, err := r.client.ZRevRange(ctx, recentTxKey, 0, limit-1).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to read recent transactions: %w", err)
	}
	if len(ids) == 0 {
		return []*models.Transaction{}, nil
	}

	keys := make([]string, len(ids))
	for i, id := range ids {
		keys[i] = txPrefix + id
	}
	items, err := r.client.MGet(ctx, keys...).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to read recent transactions: %w", err)
	}

	out := make([]*models.Transaction, 0, len(items))
	for _, item := range items {
		raw, ok := item.(string)
		if !ok {
			continue
		}
		var tx models.Transaction
		if err := json.Unmarshal([]byte(raw), &tx); err != nil {
			r.logger.WithError(err).Warn("skipping malformed cached transaction")
			continue
		}
		out = append(out, &tx)
	}
	return out, nil
}
