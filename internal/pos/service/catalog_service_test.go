package service

import (
	"context"
	"testing"
	"time"

	"github.com/bitfantasy/nimo-pos/internal/pos/entity"
	"github.com/bitfantasy/nimo-pos/internal/pos/repository"
	"github.com/bitfantasy/nimo-pos/internal/pos/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

func TestUpsertProduct_CreateAndFullReplace(t *testing.T) {
	svcs, db := setupServices(t)
	ctx := context.Background()
	w1 := testutil.SeedWarehouse(t, db, "W1")
	w2 := testutil.SeedWarehouse(t, db, "W2")
	s1 := testutil.SeedSupplier(t, db, "S1")
	s2 := testutil.SeedSupplier(t, db, "S2")

	id, err := svcs.Catalog.UpsertProduct(ctx, UpsertProductRequest{
		Name:           "Widget",
		MinStockLevel:  2,
		RetailPrice:    dec("20"),
		WholesalePrice: dec("16"),
		Offers: []OfferEntry{
			{SupplierID: s1.ID, SupplyPrice: dec("10")},
			{SupplierID: s2.ID, SupplyPrice: dec("12")},
		},
		Stocks: []StockEntry{
			{WarehouseID: w1.ID, Quantity: 6},
			{WarehouseID: w2.ID, Quantity: 4},
		},
	}, "u1")
	require.NoError(t, err)

	p, err := svcs.Catalog.GetProduct(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, int64(10), p.CurrentStock)
	assert.Equal(t, w1.ID, p.SourceWarehouseID)
	assert.Equal(t, entity.UnitTypePiece, p.UnitType)
	assert.Contains(t, p.Code, "PRD-")

	// 更新时整体替换报价和库存
	_, err = svcs.Catalog.UpsertProduct(ctx, UpsertProductRequest{
		ID:                id,
		Name:              "Widget v2",
		MinStockLevel:     2,
		SourceWarehouseID: w2.ID,
		Offers:            []OfferEntry{{SupplierID: s2.ID, SupplyPrice: dec("11")}},
		Stocks:            []StockEntry{{WarehouseID: w2.ID, Quantity: 9}},
	}, "u1")
	require.NoError(t, err)

	snap, err := svcs.Catalog.GetProductSnapshot(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, "Widget v2", snap.Product.Name)
	assert.Equal(t, int64(9), snap.CurrentStock)
	require.Len(t, snap.Warehouses, 1)
	assert.Equal(t, w2.ID, snap.Warehouses[0].WarehouseID)
	assert.Equal(t, "W2", snap.Warehouses[0].WarehouseName)
	require.Len(t, snap.Offers, 1)
	assert.Equal(t, "S2", snap.Offers[0].SupplierName)
	assert.True(t, dec("11").Equal(snap.MinSupplyPrice))
	assert.False(t, snap.BelowThreshold)
	testutil.AssertStockInvariant(t, db)
}

func TestUpsertProduct_IntegrityErrorsRollBack(t *testing.T) {
	svcs, db := setupServices(t)
	ctx := context.Background()
	wh := testutil.SeedWarehouse(t, db, "W1")
	s := testutil.SeedSupplier(t, db, "S1")

	var ie *IntegrityError
	_, err := svcs.Catalog.UpsertProduct(ctx, UpsertProductRequest{
		Name:   "Ghost supplier",
		Offers: []OfferEntry{{SupplierID: "missing", SupplyPrice: dec("1")}},
	}, "u1")
	require.ErrorAs(t, err, &ie)

	_, err = svcs.Catalog.UpsertProduct(ctx, UpsertProductRequest{
		Name:   "Ghost warehouse",
		Offers: []OfferEntry{{SupplierID: s.ID, SupplyPrice: dec("1")}},
		Stocks: []StockEntry{{WarehouseID: wh.ID, Quantity: 1}, {WarehouseID: "missing", Quantity: 1}},
	}, "u1")
	require.ErrorAs(t, err, &ie)

	_, err = svcs.Catalog.UpsertProduct(ctx, UpsertProductRequest{
		Name:   "Duplicate offer",
		Offers: []OfferEntry{{SupplierID: s.ID, SupplyPrice: dec("1")}, {SupplierID: s.ID, SupplyPrice: dec("2")}},
	}, "u1")
	require.ErrorAs(t, err, &ie)

	assert.Zero(t, countRows(t, db, &entity.Product{}))
	assert.Zero(t, countRows(t, db, &entity.SupplierOffer{}))
	assert.Zero(t, countRows(t, db, &entity.WarehouseStock{}))

	var ve *ValidationError
	_, err = svcs.Catalog.UpsertProduct(ctx, UpsertProductRequest{Name: "Bad", MinStockLevel: -1}, "u1")
	require.ErrorAs(t, err, &ve)
	_, err = svcs.Catalog.UpsertProduct(ctx, UpsertProductRequest{Name: "Bad", UnitType: "BARREL"}, "u1")
	require.ErrorAs(t, err, &ve)
	_, err = svcs.Catalog.UpsertProduct(ctx, UpsertProductRequest{ID: "missing", Name: "Bad"}, "u1")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestDeleteProduct_GuardAndCascade(t *testing.T) {
	svcs, db := setupServices(t)
	ctx := context.Background()
	wh := testutil.SeedWarehouse(t, db, "W1")
	sold := testutil.SeedProduct(t, db, "Sold", 10, wh.ID)
	testutil.SeedStock(t, db, wh.ID, sold.ID, 5)
	_, _, err := submit(t, svcs, "", DraftLine{ProductID: sold.ID, Quantity: 1, SalePrice: dec("2")})
	require.NoError(t, err)

	err = svcs.Catalog.DeleteProduct(ctx, sold.ID, "u1")
	var re *ReferentialDeleteError
	require.ErrorAs(t, err, &re)
	assert.Equal(t, int64(1), re.Count)
	_, err = svcs.Catalog.GetProduct(ctx, sold.ID)
	require.NoError(t, err)

	unsold := testutil.SeedProduct(t, db, "Unsold", 10, wh.ID)
	testutil.SeedStock(t, db, wh.ID, unsold.ID, 1)
	testutil.SeedOffer(t, db, testutil.SeedSupplier(t, db, "S").ID, unsold.ID, 3)
	require.NoError(t, svcs.Stock.SetWarehouseStock(ctx, wh.ID, unsold.ID, 2, "u1"))

	require.NoError(t, svcs.Catalog.DeleteProduct(ctx, unsold.ID, "u1"))
	_, err = svcs.Catalog.GetProduct(ctx, unsold.ID)
	assert.ErrorIs(t, err, ErrNotFound)

	var n int64
	db.Model(&entity.SupplierOffer{}).Where("product_id = ?", unsold.ID).Count(&n)
	assert.Zero(t, n)
	db.Model(&entity.WarehouseStock{}).Where("product_id = ?", unsold.ID).Count(&n)
	assert.Zero(t, n)
	db.Model(&entity.StockAlert{}).Where("product_id = ?", unsold.ID).Count(&n)
	assert.Zero(t, n)

	assert.ErrorIs(t, svcs.Catalog.DeleteProduct(ctx, unsold.ID, "u1"), ErrNotFound)
}

func TestDeleteWarehouse_Guard(t *testing.T) {
	svcs, db := setupServices(t)
	ctx := context.Background()
	wh := testutil.SeedWarehouse(t, db, "W1")
	p := testutil.SeedProduct(t, db, "A", 0, wh.ID)
	testutil.SeedStock(t, db, wh.ID, p.ID, 5)

	err := svcs.Catalog.DeleteWarehouse(ctx, wh.ID, "u1")
	var re *ReferentialDeleteError
	require.ErrorAs(t, err, &re)
	_, err = svcs.Catalog.GetWarehouse(ctx, wh.ID)
	require.NoError(t, err)

	require.NoError(t, svcs.Stock.SetWarehouseStock(ctx, wh.ID, p.ID, 0, "u1"))
	require.NoError(t, svcs.Catalog.DeleteWarehouse(ctx, wh.ID, "u1"))

	_, err = svcs.Catalog.GetWarehouse(ctx, wh.ID)
	assert.ErrorIs(t, err, ErrNotFound)
	assert.Zero(t, countRows(t, db, &entity.WarehouseStock{}))
	got, err := svcs.Catalog.GetProduct(ctx, p.ID)
	require.NoError(t, err)
	assert.Empty(t, got.SourceWarehouseID)
	testutil.AssertStockInvariant(t, db)
}

func TestDeleteWarehouse_StockWrittenBeforeDeleteBlocksIt(t *testing.T) {
	svcs, db := setupServices(t)
	ctx := context.Background()
	wh := testutil.SeedWarehouse(t, db, "W1")
	empty := testutil.SeedProduct(t, db, "A", 0, wh.ID)
	other := testutil.SeedProduct(t, db, "B", 0, wh.ID)
	testutil.SeedStock(t, db, wh.ID, empty.ID, 0)

	// 检查通过后、删除库存行之前，另一个写入方给仓库放入5件
	err := db.Callback().Delete().Before("gorm:delete").Register("test:stock_before_delete", func(tx *gorm.DB) {
		if tx.Statement.Table != "pos_warehouse_products" {
			return
		}
		writer := tx.Session(&gorm.Session{NewDB: true})
		writer.Exec("INSERT INTO pos_warehouse_products (warehouse_id, product_id, quantity, updated_at) VALUES (?, ?, ?, ?)",
			wh.ID, other.ID, 5, time.Now())
		writer.Exec("UPDATE pos_products SET current_stock = current_stock + 5 WHERE id = ?", other.ID)
	})
	require.NoError(t, err)

	err = svcs.Catalog.DeleteWarehouse(ctx, wh.ID, "u1")
	require.NoError(t, db.Callback().Delete().Remove("test:stock_before_delete"))
	var re *ReferentialDeleteError
	require.ErrorAs(t, err, &re)
	assert.Equal(t, int64(1), re.Count)

	_, err = svcs.Catalog.GetWarehouse(ctx, wh.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(1), countRows(t, db, &entity.WarehouseStock{}))
	got, err := svcs.Catalog.GetProduct(ctx, empty.ID)
	require.NoError(t, err)
	assert.Equal(t, wh.ID, got.SourceWarehouseID)
	testutil.AssertStockInvariant(t, db)
}

func TestSupplierOffers_OverwriteAndCascade(t *testing.T) {
	svcs, db := setupServices(t)
	ctx := context.Background()
	wh := testutil.SeedWarehouse(t, db, "W1")
	p := testutil.SeedProduct(t, db, "A", 0, wh.ID)

	s, err := svcs.Catalog.CreateSupplier(ctx, SupplierRequest{Name: "Acme"}, "u1")
	require.NoError(t, err)

	_, err = svcs.Catalog.UpsertSupplierOffer(ctx, s.ID, SupplierOfferRequest{ProductID: p.ID, SupplyPrice: dec("9")})
	require.NoError(t, err)
	_, err = svcs.Catalog.UpsertSupplierOffer(ctx, s.ID, SupplierOfferRequest{ProductID: p.ID, SupplyPrice: dec("8")})
	require.NoError(t, err)
	assert.Equal(t, int64(1), countRows(t, db, &entity.SupplierOffer{}))

	got, err := svcs.Catalog.GetSupplier(ctx, s.ID)
	require.NoError(t, err)
	require.Len(t, got.Offers, 1)
	assert.True(t, dec("8").Equal(got.Offers[0].SupplyPrice))

	list, total, err := svcs.Catalog.ListSuppliers(ctx, "Acme", 1, 20)
	require.NoError(t, err)
	assert.Equal(t, int64(1), total)
	assert.Equal(t, int64(1), list[0].ProductCount)

	_, err = svcs.Catalog.UpsertSupplierOffer(ctx, s.ID, SupplierOfferRequest{ProductID: p.ID, SupplyPrice: dec("-1")})
	var ve *ValidationError
	require.ErrorAs(t, err, &ve)
	_, err = svcs.Catalog.UpsertSupplierOffer(ctx, s.ID, SupplierOfferRequest{ProductID: "missing", SupplyPrice: dec("1")})
	assert.ErrorIs(t, err, ErrNotFound)

	require.NoError(t, svcs.Catalog.DeleteSupplier(ctx, s.ID, "u1"))
	assert.Zero(t, countRows(t, db, &entity.SupplierOffer{}))
	_, err = svcs.Catalog.GetSupplier(ctx, s.ID)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestRemoveSupplierOffer(t *testing.T) {
	svcs, db := setupServices(t)
	ctx := context.Background()
	wh := testutil.SeedWarehouse(t, db, "W1")
	p := testutil.SeedProduct(t, db, "A", 0, wh.ID)
	s := testutil.SeedSupplier(t, db, "S")
	testutil.SeedOffer(t, db, s.ID, p.ID, 4)

	require.NoError(t, svcs.Catalog.RemoveSupplierOffer(ctx, s.ID, p.ID))
	assert.ErrorIs(t, svcs.Catalog.RemoveSupplierOffer(ctx, s.ID, p.ID), ErrNotFound)
}

func TestWarehouseCRUDAndProductList(t *testing.T) {
	svcs, db := setupServices(t)
	ctx := context.Background()

	wh, err := svcs.Catalog.CreateWarehouse(ctx, WarehouseRequest{Name: "Front", Location: "Shop"})
	require.NoError(t, err)
	wh, err = svcs.Catalog.UpdateWarehouse(ctx, wh.ID, WarehouseRequest{Name: "Front Store", Location: "Shop"})
	require.NoError(t, err)
	assert.Equal(t, "Front Store", wh.Name)

	list, err := svcs.Catalog.ListWarehouses(ctx)
	require.NoError(t, err)
	assert.Len(t, list, 1)

	low := testutil.SeedProduct(t, db, "Low", 5, wh.ID)
	testutil.SeedStock(t, db, wh.ID, low.ID, 1)
	ok := testutil.SeedProduct(t, db, "Plenty", 5, wh.ID)
	testutil.SeedStock(t, db, wh.ID, ok.ID, 50)

	items, total, err := svcs.Catalog.ListProducts(ctx, repository.ProductListParams{LowStock: true})
	require.NoError(t, err)
	assert.Equal(t, int64(1), total)
	assert.Equal(t, low.ID, items[0].ID)
}

func TestSnapshotCache_NilSafe(t *testing.T) {
	var c *SnapshotCache
	_, ok := c.Get(context.Background(), "p")
	assert.False(t, ok)
	assert.Equal(t, int64(-1), c.Version(context.Background(), "p"))
	c.Set(context.Background(), &ProductSnapshot{}, 0)
	c.Invalidate(context.Background(), "p")

	c = NewSnapshotCache(nil, 0, nil)
	_, ok = c.Get(context.Background(), "p")
	assert.False(t, ok)

	var a *InvoiceArchive
	a.Put(context.Background(), nil, &entity.Invoice{})
}
