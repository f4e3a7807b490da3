package service

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/bitfantasy/nimo-pos/internal/pos/metrics"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

const (
	snapshotKeyPrefix     = "pos:product:snapshot:"
	snapshotVersionPrefix = "pos:product:snapshot:ver:"
	snapshotVersionTTL    = 24 * time.Hour
)

var errSnapshotStale = errors.New("snapshot version changed")

// SnapshotCache 商品快照的 Redis 缓存
//
// rdb 为 nil 时所有方法为空操作。缓存只服务读取，订单提交始终在事务内读取库存和供货价。
// 每个商品有一个版本号，Invalidate 递增版本，Set 只在读取数据库前后版本一致时写入，
// 读到旧数据的请求不会覆盖失效后的缓存。
type SnapshotCache struct {
	rdb    *redis.Client
	ttl    time.Duration
	logger *zap.Logger
}

func NewSnapshotCache(rdb *redis.Client, ttl time.Duration, logger *zap.Logger) *SnapshotCache {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &SnapshotCache{rdb: rdb, ttl: ttl, logger: logger}
}

func (c *SnapshotCache) enabled() bool {
	return c != nil && c.rdb != nil
}

func (c *SnapshotCache) Get(ctx context.Context, productID string) (*ProductSnapshot, bool) {
	if !c.enabled() {
		return nil, false
	}
	data, err := c.rdb.Get(ctx, snapshotKeyPrefix+productID).Bytes()
	if err != nil {
		if err != redis.Nil {
			c.logger.Warn("Snapshot cache get failed", zap.String("product_id", productID), zap.Error(err))
		}
		metrics.CacheMisses.Inc()
		return nil, false
	}
	var snap ProductSnapshot
	if err := json.Unmarshal(data, &snap); err != nil {
		metrics.CacheMisses.Inc()
		return nil, false
	}
	metrics.CacheHits.Inc()
	return &snap, true
}

// Version 读取数据库之前调用，Redis 不可用时返回 -1，Set 随之跳过
func (c *SnapshotCache) Version(ctx context.Context, productID string) int64 {
	if !c.enabled() {
		return -1
	}
	v, err := c.rdb.Get(ctx, snapshotVersionPrefix+productID).Int64()
	if err != nil && err != redis.Nil {
		c.logger.Warn("Snapshot version get failed", zap.String("product_id", productID), zap.Error(err))
		return -1
	}
	return v
}

// Set 写入快照，version 为读取数据库前 Version 的返回值
func (c *SnapshotCache) Set(ctx context.Context, snap *ProductSnapshot, version int64) {
	if !c.enabled() || snap == nil || version < 0 {
		return
	}
	data, err := json.Marshal(snap)
	if err != nil {
		return
	}
	productID := snap.Product.ID
	versionKey := snapshotVersionPrefix + productID
	err = c.rdb.Watch(ctx, func(tx *redis.Tx) error {
		current, err := tx.Get(ctx, versionKey).Int64()
		if err != nil && err != redis.Nil {
			return err
		}
		if current != version {
			return errSnapshotStale
		}
		_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			pipe.Set(ctx, snapshotKeyPrefix+productID, data, c.ttl)
			return nil
		})
		return err
	}, versionKey)
	switch {
	case err == nil:
	case errors.Is(err, errSnapshotStale), errors.Is(err, redis.TxFailedErr):
		c.logger.Debug("Snapshot invalidated during read, not cached", zap.String("product_id", productID))
	default:
		c.logger.Warn("Snapshot cache set failed", zap.String("product_id", productID), zap.Error(err))
	}
}

// Invalidate 在库存或目录变更提交后调用
func (c *SnapshotCache) Invalidate(ctx context.Context, productIDs ...string) {
	if !c.enabled() || len(productIDs) == 0 {
		return
	}
	_, err := c.rdb.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		for _, id := range productIDs {
			pipe.Incr(ctx, snapshotVersionPrefix+id)
			pipe.Expire(ctx, snapshotVersionPrefix+id, snapshotVersionTTL)
			pipe.Del(ctx, snapshotKeyPrefix+id)
		}
		return nil
	})
	if err != nil {
		c.logger.Warn("Snapshot cache invalidate failed", zap.Strings("product_ids", productIDs), zap.Error(err))
	}
}
