package redisx

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"
)

const (
	// idem:order:create:{user_id}:{key} -> order id, or "pending" while the
	// first request is still running
	keyIdemOrderCreate = "idem:order:create:%d:%s"
	pending            = "pending"
)

var (
	TTLIdempotency = 24 * time.Hour
	// TTLPending bounds how long a crashed checkout can hold its key.
	TTLPending = 30 * time.Second
)

func New(addr, password string, db int) *redis.Client {
	return redis.NewClient(&redis.Options{
		Addr:         addr,
		Password:     password,
		DB:           db,
		DialTimeout:  2 * time.Second,
		ReadTimeout:  2 * time.Second,
		WriteTimeout: 2 * time.Second,
	})
}

// Idempotency remembers which order a client-supplied Idempotency-Key
// produced, so a retried checkout returns the first order instead of
// creating a second one.
type Idempotency struct {
	rdb        *redis.Client
	ttl        time.Duration
	pendingTTL time.Duration
}

func NewIdempotency(rdb *redis.Client) *Idempotency {
	return &Idempotency{rdb: rdb, ttl: TTLIdempotency, pendingTTL: TTLPending}
}

func orderCreateKey(userID int64, key string) string {
	return fmt.Sprintf(keyIdemOrderCreate, userID, key)
}

// Reserve claims key for userID. When the key was already claimed it reports
// reserved=false and the order id stored for it, which is 0 while the
// original request has not finished.
func (s *Idempotency) Reserve(ctx context.Context, userID int64, key string) (orderID int64, reserved bool, err error) {
	k := orderCreateKey(userID, key)

	ok, err := s.rdb.SetNX(ctx, k, pending, s.pendingTTL).Result()
	if err != nil {
		return 0, false, fmt.Errorf("reserve idempotency key: %w", err)
	}
	if ok {
		return 0, true, nil
	}

	v, err := s.rdb.Get(ctx, k).Result()
	if errors.Is(err, redis.Nil) {
		// expired between SETNX and GET; try once more
		ok, err = s.rdb.SetNX(ctx, k, pending, s.pendingTTL).Result()
		if err != nil {
			return 0, false, fmt.Errorf("reserve idempotency key: %w", err)
		}
		return 0, ok, nil
	}
	if err != nil {
		return 0, false, fmt.Errorf("read idempotency key: %w", err)
	}
	return parseOrderID(v), false, nil
}

func parseOrderID(v string) int64 {
	if v == pending {
		return 0
	}
	id, err := strconv.ParseInt(v, 10, 64)
	if err != nil {
		return 0
	}
	return id
}

// Complete records the order produced under key.
func (s *Idempotency) Complete(ctx context.Context, userID int64, key string, orderID int64) error {
	if err := s.rdb.Set(ctx, orderCreateKey(userID, key), orderID, s.ttl).Err(); err != nil {
		return fmt.Errorf("complete idempotency key: %w", err)
	}
	return nil
}

// Release frees key after a failed attempt so the client can retry.
func (s *Idempotency) Release(ctx context.Context, userID int64, key string) error {
	if err := s.rdb.Del(ctx, orderCreateKey(userID, key)).Err(); err != nil {
		return fmt.Errorf("release idempotency key: %w", err)
	}
	return nil
}
