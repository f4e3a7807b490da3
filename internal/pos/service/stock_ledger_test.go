package service

import (
	"context"
	"errors"
	"testing"

	"github.com/bitfantasy/nimo-pos/internal/pos/entity"
	"github.com/bitfantasy/nimo-pos/internal/pos/metrics"
	"github.com/bitfantasy/nimo-pos/internal/pos/testutil"
	promtest "github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

func TestSetWarehouseStock_RecomputesTotal(t *testing.T) {
	svcs, db := setupServices(t)
	ctx := context.Background()
	w1 := testutil.SeedWarehouse(t, db, "W1")
	w2 := testutil.SeedWarehouse(t, db, "W2")
	p := testutil.SeedProduct(t, db, "A", 0, w1.ID)

	require.NoError(t, svcs.Stock.SetWarehouseStock(ctx, w1.ID, p.ID, 7, "u1"))
	require.NoError(t, svcs.Stock.SetWarehouseStock(ctx, w2.ID, p.ID, 5, "u1"))
	require.NoError(t, svcs.Stock.SetWarehouseStock(ctx, w1.ID, p.ID, 3, "u1"))

	_, total := testutil.StockOf(t, db, w1.ID, p.ID)
	assert.Equal(t, int64(8), total)
	testutil.AssertStockInvariant(t, db)

	logs, n, err := svcs.Activity.List(ctx, repositoryParams(entity.ActionStockUpdated))
	require.NoError(t, err)
	assert.Equal(t, int64(3), n)
	assert.Equal(t, p.ID, logs[0].EntityID)
}

func TestBulkUpdateStock_IsAtomic(t *testing.T) {
	svcs, db := setupServices(t)
	ctx := context.Background()
	w1 := testutil.SeedWarehouse(t, db, "W1")
	w2 := testutil.SeedWarehouse(t, db, "W2")
	p := testutil.SeedProduct(t, db, "A", 0, w1.ID)

	err := svcs.Stock.BulkUpdateStock(ctx, p.ID, []StockEntry{
		{WarehouseID: w1.ID, Quantity: 10},
		{WarehouseID: w2.ID, Quantity: 4},
	}, "u1")
	require.NoError(t, err)
	_, total := testutil.StockOf(t, db, w1.ID, p.ID)
	assert.Equal(t, int64(14), total)

	// 第二个仓库不存在，整批不生效
	err = svcs.Stock.BulkUpdateStock(ctx, p.ID, []StockEntry{
		{WarehouseID: w1.ID, Quantity: 1},
		{WarehouseID: "missing", Quantity: 1},
	}, "u1")
	var ie *IntegrityError
	require.ErrorAs(t, err, &ie)
	q1, total := testutil.StockOf(t, db, w1.ID, p.ID)
	assert.Equal(t, int64(10), q1)
	assert.Equal(t, int64(14), total)
	testutil.AssertStockInvariant(t, db)
}

func TestBulkUpdateStock_Validation(t *testing.T) {
	svcs, db := setupServices(t)
	ctx := context.Background()
	wh := testutil.SeedWarehouse(t, db, "W1")
	p := testutil.SeedProduct(t, db, "A", 0, wh.ID)

	var ve *ValidationError
	err := svcs.Stock.SetWarehouseStock(ctx, wh.ID, p.ID, -1, "u1")
	require.ErrorAs(t, err, &ve)
	assert.Equal(t, "quantity", ve.Field)

	err = svcs.Stock.BulkUpdateStock(ctx, p.ID, nil, "u1")
	require.ErrorAs(t, err, &ve)

	var ie *IntegrityError
	err = svcs.Stock.BulkUpdateStock(ctx, p.ID, []StockEntry{{WarehouseID: wh.ID, Quantity: 1}, {WarehouseID: wh.ID, Quantity: 2}}, "u1")
	require.ErrorAs(t, err, &ie)

	err = svcs.Stock.SetWarehouseStock(ctx, wh.ID, "missing", 1, "u1")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestSetWarehouseStock_RaisesAlertAtThreshold(t *testing.T) {
	svcs, db := setupServices(t)
	ctx := context.Background()
	wh := testutil.SeedWarehouse(t, db, "W1")
	p := testutil.SeedProduct(t, db, "A", 5, wh.ID)

	require.NoError(t, svcs.Stock.SetWarehouseStock(ctx, wh.ID, p.ID, 20, "u1"))
	alerts, err := svcs.Alerts.ListOpenAlerts(ctx)
	require.NoError(t, err)
	assert.Empty(t, alerts)

	require.NoError(t, svcs.Stock.SetWarehouseStock(ctx, wh.ID, p.ID, 5, "u1"))
	alerts, err = svcs.Alerts.ListOpenAlerts(ctx)
	require.NoError(t, err)
	require.Len(t, alerts, 1)
	assert.Equal(t, int64(5), alerts[0].CurrentStock)
}

func TestSetWarehouseStock_SaleBeforeTotalWriteIsCounted(t *testing.T) {
	svcs, db := setupServices(t)
	ctx := context.Background()
	w1 := testutil.SeedWarehouse(t, db, "W1")
	w2 := testutil.SeedWarehouse(t, db, "W2")
	p := testutil.SeedProduct(t, db, "A", 0, w1.ID)
	testutil.SeedStock(t, db, w1.ID, p.ID, 10)
	testutil.SeedStock(t, db, w2.ID, p.ID, 10)

	// 写入仓库行之后、写商品合计之前，另一笔销售从 W2 扣减5
	fired := false
	err := db.Callback().Update().Before("gorm:update").Register("test:sale_before_total", func(tx *gorm.DB) {
		if fired || tx.Statement.Table != "pos_products" {
			return
		}
		fired = true
		sale := tx.Session(&gorm.Session{NewDB: true})
		sale.Exec("UPDATE pos_warehouse_products SET quantity = quantity - 5 WHERE warehouse_id = ? AND product_id = ?", w2.ID, p.ID)
		sale.Exec("UPDATE pos_products SET current_stock = current_stock - 5 WHERE id = ?", p.ID)
	})
	require.NoError(t, err)

	require.NoError(t, svcs.Stock.SetWarehouseStock(ctx, w1.ID, p.ID, 20, "u1"))
	require.NoError(t, db.Callback().Update().Remove("test:sale_before_total"))
	require.True(t, fired)

	q2, total := testutil.StockOf(t, db, w2.ID, p.ID)
	assert.Equal(t, int64(5), q2)
	assert.Equal(t, int64(25), total)
	testutil.AssertStockInvariant(t, db)
}

func TestSetWarehouseStock_AlertCountedOnlyAfterCommit(t *testing.T) {
	svcs, db := setupServices(t)
	ctx := context.Background()
	wh := testutil.SeedWarehouse(t, db, "W1")
	p := testutil.SeedProduct(t, db, "A", 5, wh.ID)
	before := promtest.ToFloat64(metrics.StockAlertsRaised)

	err := db.Callback().Create().Before("gorm:create").Register("test:activity_write_fails", func(tx *gorm.DB) {
		if tx.Statement.Table == "pos_activity_logs" {
			_ = tx.AddError(errors.New("activity log unavailable"))
		}
	})
	require.NoError(t, err)
	require.Error(t, svcs.Stock.SetWarehouseStock(ctx, wh.ID, p.ID, 2, "u1"))
	require.NoError(t, db.Callback().Create().Remove("test:activity_write_fails"))

	assert.Equal(t, before, promtest.ToFloat64(metrics.StockAlertsRaised))
	assert.Zero(t, countRows(t, db, &entity.StockAlert{}))
	assert.Zero(t, countRows(t, db, &entity.Notification{}))

	require.NoError(t, svcs.Stock.SetWarehouseStock(ctx, wh.ID, p.ID, 2, "u1"))
	assert.Equal(t, before+1, promtest.ToFloat64(metrics.StockAlertsRaised))
}

func TestDecrementForSale_InsufficientLeavesStockUntouched(t *testing.T) {
	svcs, db := setupServices(t)
	ctx := context.Background()
	wh := testutil.SeedWarehouse(t, db, "W1")
	p := testutil.SeedProduct(t, db, "A", 0, wh.ID)
	testutil.SeedStock(t, db, wh.ID, p.ID, 3)

	err := db.Transaction(func(tx *gorm.DB) error {
		return svcs.Stock.DecrementForSale(ctx, tx, p.ID, wh.ID, 4)
	})
	var se *InsufficientStockError
	require.ErrorAs(t, err, &se)
	assert.Equal(t, int64(3), se.Available)

	err = db.Transaction(func(tx *gorm.DB) error {
		return svcs.Stock.DecrementForSale(ctx, tx, p.ID, wh.ID, 3)
	})
	require.NoError(t, err)
	qty, total := testutil.StockOf(t, db, wh.ID, p.ID)
	assert.Zero(t, qty)
	assert.Zero(t, total)

	// 没有库存行时可用数量为0
	other := testutil.SeedWarehouse(t, db, "W2")
	err = db.Transaction(func(tx *gorm.DB) error {
		return svcs.Stock.DecrementForSale(ctx, tx, p.ID, other.ID, 1)
	})
	require.ErrorAs(t, err, &se)
	assert.Zero(t, se.Available)
}

func TestListByWarehouse(t *testing.T) {
	svcs, db := setupServices(t)
	wh := testutil.SeedWarehouse(t, db, "W1")
	a := testutil.SeedProduct(t, db, "A", 0, wh.ID)
	b := testutil.SeedProduct(t, db, "B", 0, wh.ID)
	testutil.SeedStock(t, db, wh.ID, a.ID, 1)
	testutil.SeedStock(t, db, wh.ID, b.ID, 2)

	rows, err := svcs.Stock.ListByWarehouse(context.Background(), wh.ID)
	require.NoError(t, err)
	assert.Len(t, rows, 2)

	_, err = svcs.Stock.ListByWarehouse(context.Background(), "missing")
	assert.ErrorIs(t, err, ErrNotFound)
}
