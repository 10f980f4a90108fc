package repository

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/expresskart/marketplace/pkg/config"
	"github.com/expresskart/marketplace/pkg/models"
	"github.com/expresskart/marketplace/pkg/order"
	"github.com/go-redis/redis/v8"
)

const (
	orderNumberKey   = "orders:number"
	orderNumberFloor = 1000
	orderCacheTTL    = 30 * time.Minute

	// StatusChannel carries order.StatusChange events as JSON.
	StatusChannel = "orders:status"
)

// RedisRepository backs three concerns: the order summary cache, the
// sequential order-number counter, and the status-change fanout channel.
type RedisRepository struct {
	client *redis.Client
	config *config.RedisConfig
}

func NewRedisRepository(cfg *config.RedisConfig) *RedisRepository {
	return &RedisRepository{
		client: redis.NewClient(&redis.Options{
			Addr:     cfg.Addr,
			Password: cfg.Password,
			DB:       cfg.DB,
			PoolSize: cfg.PoolSize,
		}),
		config: cfg,
	}
}

func (r *RedisRepository) Ping(ctx context.Context) error {
	return r.client.Ping(ctx).Err()
}

func (r *RedisRepository) Close() error {
	return r.client.Close()
}

func (r *RedisRepository) setJSON(ctx context.Context, key string, value interface{}, expiration time.Duration) error {
	data, err := json.Marshal(value)
	if err != nil {
		return err
	}
	return r.client.Set(ctx, key, data, expiration).Err()
}

func (r *RedisRepository) getJSON(ctx context.Context, key string, dest interface{}) error {
	data, err := r.client.Get(ctx, key).Result()
	if err != nil {
		return err
	}
	return json.Unmarshal([]byte(data), dest)
}

// NextOrderNumber issues the next order number from a shared counter.
// Numbers start above the floor so early orders don't look like test data.
func (r *RedisRepository) NextOrderNumber(ctx context.Context) (string, error) {
	n, err := r.client.Incr(ctx, orderNumberKey).Result()
	if err != nil {
		return "", fmt.Errorf("increment order counter: %w", err)
	}
	return fmt.Sprintf("ORD-%d", orderNumberFloor+n), nil
}

// OrderCacheEntry is the read-side summary kept per order.
type OrderCacheEntry struct {
	ID          string `json:"id"`
	OrderNumber string `json:"order_number"`
	CustomerID  string `json:"customer_id"`
	VendorID    string `json:"vendor_id"`
	Status      string `json:"status"`
}

func orderCacheKey(orderID string) string {
	return fmt.Sprintf("order:%s", orderID)
}

// CacheOrder implements order.Cache.
func (r *RedisRepository) CacheOrder(ctx context.Context, o *models.Order) error {
	entry := &OrderCacheEntry{
		ID:          o.ID,
		OrderNumber: o.OrderNumber,
		CustomerID:  o.CustomerID,
		VendorID:    o.VendorID,
		Status:      string(o.Status),
	}
	return r.setJSON(ctx, orderCacheKey(o.ID), entry, orderCacheTTL)
}

// InvalidateOrder implements order.Cache. The cache is dropped rather than
// rewritten so the next read always comes from the store.
func (r *RedisRepository) InvalidateOrder(ctx context.Context, orderID string) error {
	return r.client.Del(ctx, orderCacheKey(orderID)).Err()
}

func (r *RedisRepository) GetOrderCache(ctx context.Context, orderID string) (*OrderCacheEntry, error) {
	var entry OrderCacheEntry
	if err := r.getJSON(ctx, orderCacheKey(orderID), &entry); err != nil {
		return nil, err
	}
	return &entry, nil
}

// PublishStatusChange implements order.Publisher.
func (r *RedisRepository) PublishStatusChange(ctx context.Context, change order.StatusChange) error {
	data, err := json.Marshal(change)
	if err != nil {
		return err
	}
	return r.client.Publish(ctx, StatusChannel, data).Err()
}

// SubscribeStatusChanges subscribes to the status-change channel. The
// caller owns the returned PubSub and must Close it.
func (r *RedisRepository) SubscribeStatusChanges(ctx context.Context) *redis.PubSub {
	return r.client.Subscribe(ctx, StatusChannel)
}
