package redis

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/google/uuid"
	goredis "github.com/redis/go-redis/v9"

	"github.com/labtrace/labtrace-backend/internal/logger"
	"github.com/labtrace/labtrace-backend/internal/types"
)

// GrantCache is a read-through cache for per-object access grant lookups.
// Grant mutations must invalidate the object's entry before returning.
type GrantCache interface {
	Get(ctx context.Context, objectType string, objectID uuid.UUID) ([]*types.AccessGrant, bool, error)
	Set(ctx context.Context, objectType string, objectID uuid.UUID, grants []*types.AccessGrant) error
	Invalidate(ctx context.Context, objectType string, objectID uuid.UUID) error
	Close() error
}

type grantCache struct {
	log *logger.Logger
	rdb *goredis.Client
	ttl time.Duration
}

func NewGrantCache(log *logger.Logger) (GrantCache, error) {
	if log == nil {
		return nil, fmt.Errorf("logger required")
	}

	addr := strings.TrimSpace(os.Getenv("REDIS_ADDR"))
	if addr == "" {
		return nil, fmt.Errorf("missing REDIS_ADDR")
	}

	rdb := goredis.NewClient(&goredis.Options{
		Addr:        addr,
		DialTimeout: 5 * time.Second,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := rdb.Ping(ctx).Err(); err != nil {
		_ = rdb.Close()
		return nil, fmt.Errorf("redis ping: %w", err)
	}

	return &grantCache{
		log: log.With("client", "RedisGrantCache"),
		rdb: rdb,
		ttl: 5 * time.Minute,
	}, nil
}

func grantKey(objectType string, objectID uuid.UUID) string {
	return fmt.Sprintf("grants:%s:%s", objectType, objectID)
}

func (gc *grantCache) Get(ctx context.Context, objectType string, objectID uuid.UUID) ([]*types.AccessGrant, bool, error) {
	raw, err := gc.rdb.Get(ctx, grantKey(objectType, objectID)).Bytes()
	if err == goredis.Nil {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("redis get: %w", err)
	}
	var grants []*types.AccessGrant
	if err := json.Unmarshal(raw, &grants); err != nil {
		gc.log.Warn("Dropping undecodable grant cache entry", "object_type", objectType, "error", err)
		_ = gc.rdb.Del(ctx, grantKey(objectType, objectID)).Err()
		return nil, false, nil
	}
	return grants, true, nil
}

func (gc *grantCache) Set(ctx context.Context, objectType string, objectID uuid.UUID, grants []*types.AccessGrant) error {
	raw, err := json.Marshal(grants)
	if err != nil {
		return fmt.Errorf("marshal grants: %w", err)
	}
	if err := gc.rdb.Set(ctx, grantKey(objectType, objectID), raw, gc.ttl).Err(); err != nil {
		return fmt.Errorf("redis set: %w", err)
	}
	return nil
}

func (gc *grantCache) Invalidate(ctx context.Context, objectType string, objectID uuid.UUID) error {
	if err := gc.rdb.Del(ctx, grantKey(objectType, objectID)).Err(); err != nil {
		return fmt.Errorf("redis del: %w", err)
	}
	return nil
}

func (gc *grantCache) Close() error {
	return gc.rdb.Close()
}
