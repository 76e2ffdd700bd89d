package cart

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	goredis "github.com/redis/go-redis/v9"

	"github.com/velora-co/velora-backend/pkg/config"
	pkgerrors "github.com/velora-co/velora-backend/pkg/errors"
)

type redisStore interface {
	Get(ctx context.Context, key string) (string, error)
	Set(ctx context.Context, key string, value any, ttl time.Duration) error
	Del(ctx context.Context, keys ...string) error
	CartKey(userID string) string
}

// Line is one variant entry in a customer's cart.
type Line struct {
	VariantID uuid.UUID `json:"variant_id"`
	Qty       int       `json:"qty"`
	AddedAt   time.Time `json:"added_at"`
}

// Cart is the stored shape: variant references and quantities only.
// Prices and titles are resolved against the catalog on every read so a
// stale cart can never quote a stale price.
type Cart struct {
	Lines     []Line    `json:"lines"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Store persists carts as JSON blobs in Redis, one key per customer,
// refreshed to the configured TTL on every write.
type Store struct {
	redis redisStore
	ttl   time.Duration
}

// NewStore builds a cart store on top of the shared Redis client.
func NewStore(client redisStore, cfg config.CartConfig) (*Store, error) {
	if client == nil {
		return nil, fmt.Errorf("redis client required")
	}
	if cfg.TTL <= 0 {
		return nil, fmt.Errorf("cart ttl must be positive")
	}
	return &Store{redis: client, ttl: cfg.TTL}, nil
}

// Load returns the customer's cart, or an empty cart when none is stored.
func (s *Store) Load(ctx context.Context, userID uuid.UUID) (*Cart, error) {
	raw, err := s.redis.Get(ctx, s.redis.CartKey(userID.String()))
	if err != nil {
		if errors.Is(err, goredis.Nil) {
			return &Cart{}, nil
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load cart")
	}
	var cart Cart
	if err := json.Unmarshal([]byte(raw), &cart); err != nil {
		// A corrupt blob is unrecoverable; start the customer fresh.
		return &Cart{}, nil
	}
	return &cart, nil
}

// Save writes the cart back and resets its TTL.
func (s *Store) Save(ctx context.Context, userID uuid.UUID, cart *Cart) error {
	cart.UpdatedAt = time.Now().UTC()
	payload, err := json.Marshal(cart)
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "encode cart")
	}
	if err := s.redis.Set(ctx, s.redis.CartKey(userID.String()), string(payload), s.ttl); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "save cart")
	}
	return nil
}

// Clear removes the customer's cart entirely.
func (s *Store) Clear(ctx context.Context, userID uuid.UUID) error {
	if err := s.redis.Del(ctx, s.redis.CartKey(userID.String())); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "clear cart")
	}
	return nil
}
