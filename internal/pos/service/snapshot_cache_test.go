package service

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/bitfantasy/nimo-pos/internal/pos/entity"
	"github.com/bitfantasy/nimo-pos/internal/pos/repository"
	"github.com/bitfantasy/nimo-pos/internal/pos/testutil"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
	"gorm.io/gorm"
)

// 指向不可达地址的 Redis，所有命令立即失败
func unreachableRedis(t *testing.T) *redis.Client {
	t.Helper()
	rdb := redis.NewClient(&redis.Options{
		Addr:        "127.0.0.1:1",
		DialTimeout: 100 * time.Millisecond,
		MaxRetries:  -1,
	})
	t.Cleanup(func() { _ = rdb.Close() })
	return rdb
}

func TestSnapshotCache_RedisDownFallsBackToDatabase(t *testing.T) {
	db := testutil.SetupTestDB(t)
	logger := zaptest.NewLogger(t)
	cache := NewSnapshotCache(unreachableRedis(t), time.Minute, logger)
	svcs := NewServices(repository.NewRepositories(db), db, Options{
		Logger:         logger,
		Cache:          cache,
		DefaultTaxRate: dec("14"),
	})
	ctx := context.Background()

	wh := testutil.SeedWarehouse(t, db, "主仓")
	p := testutil.SeedProduct(t, db, "矿泉水", 2, wh.ID)
	testutil.SeedStock(t, db, wh.ID, p.ID, 9)

	snap, err := svcs.Catalog.GetProductSnapshot(ctx, p.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(9), snap.CurrentStock)

	_, _, err = submit(t, svcs, "", DraftLine{ProductID: p.ID, Quantity: 4, SalePrice: dec("20")})
	require.NoError(t, err)

	snap, err = svcs.Catalog.GetProductSnapshot(ctx, p.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(5), snap.CurrentStock)
}

func setupWithRedis(t *testing.T) (*Services, *gorm.DB, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = rdb.Close() })

	db := testutil.SetupTestDB(t)
	logger := zaptest.NewLogger(t)
	svcs := NewServices(repository.NewRepositories(db), db, Options{
		Logger:         logger,
		Cache:          NewSnapshotCache(rdb, time.Minute, logger),
		DefaultTaxRate: dec("14"),
	})
	return svcs, db, mr
}

func TestSnapshotCache_HitUntilSaleInvalidates(t *testing.T) {
	svcs, db, mr := setupWithRedis(t)
	ctx := context.Background()
	wh := testutil.SeedWarehouse(t, db, "主仓")
	p := testutil.SeedProduct(t, db, "矿泉水", 2, wh.ID)
	testutil.SeedStock(t, db, wh.ID, p.ID, 9)

	snap, err := svcs.Catalog.GetProductSnapshot(ctx, p.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(9), snap.CurrentStock)
	assert.True(t, mr.Exists(snapshotKeyPrefix+p.ID))

	// 绕过服务改名，命中缓存时仍返回旧名称
	require.NoError(t, db.Model(&entity.Product{}).Where("id = ?", p.ID).Update("name", "苏打水").Error)
	snap, err = svcs.Catalog.GetProductSnapshot(ctx, p.ID)
	require.NoError(t, err)
	assert.Equal(t, "矿泉水", snap.Product.Name)

	_, _, err = submit(t, svcs, "", DraftLine{ProductID: p.ID, Quantity: 4, SalePrice: dec("20")})
	require.NoError(t, err)
	assert.False(t, mr.Exists(snapshotKeyPrefix+p.ID))

	snap, err = svcs.Catalog.GetProductSnapshot(ctx, p.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(5), snap.CurrentStock)
	assert.Equal(t, "苏打水", snap.Product.Name)
}

func TestSnapshotCache_SaleDuringReadIsNotCached(t *testing.T) {
	svcs, db, mr := setupWithRedis(t)
	ctx := context.Background()
	wh := testutil.SeedWarehouse(t, db, "主仓")
	p := testutil.SeedProduct(t, db, "矿泉水", 2, wh.ID)
	testutil.SeedStock(t, db, wh.ID, p.ID, 10)

	// 快照读完商品行后，一笔销售提交并使缓存失效
	armed := false
	err := db.Callback().Query().After("gorm:query").Register("test:sale_during_snapshot", func(tx *gorm.DB) {
		if !armed || tx.Statement.Table != "pos_products" {
			return
		}
		armed = false
		_, _, err := submit(t, svcs, "", DraftLine{ProductID: p.ID, Quantity: 4, SalePrice: dec("20")})
		require.NoError(t, err)
	})
	require.NoError(t, err)

	armed = true
	snap, err := svcs.Catalog.GetProductSnapshot(ctx, p.ID)
	require.NoError(t, db.Callback().Query().Remove("test:sale_during_snapshot"))
	require.NoError(t, err)
	assert.Equal(t, int64(10), snap.CurrentStock)
	assert.False(t, mr.Exists(snapshotKeyPrefix+p.ID))

	snap, err = svcs.Catalog.GetProductSnapshot(ctx, p.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(6), snap.CurrentStock)
	assert.True(t, mr.Exists(snapshotKeyPrefix+p.ID))
	testutil.AssertStockInvariant(t, db)
}

func TestInvoiceObjectName(t *testing.T) {
	inv := &entity.Invoice{
		InvoiceCode: "INV-20260315-0A1B2C3D",
		InvoiceDate: time.Date(2026, 3, 15, 10, 0, 0, 0, time.UTC),
	}
	assert.Equal(t, "invoices/2026/03/INV-20260315-0A1B2C3D.json", ObjectName(inv))
}
