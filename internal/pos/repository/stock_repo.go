package repository

import (
	"context"
	"time"

	"github.com/bitfantasy/nimo-pos/internal/pos/entity"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// StockRepository 仓库库存与商品库存缓存的读写
//
// 写方法只应由库存账本在事务内调用。
type StockRepository struct {
	db *gorm.DB
}

func NewStockRepository(db *gorm.DB) *StockRepository {
	return &StockRepository{db: db}
}

// GetQuantity 获取指定仓库的商品数量，没有记录时返回0
func (r *StockRepository) GetQuantity(ctx context.Context, warehouseID, productID string) (int64, error) {
	var rows []entity.WarehouseStock
	err := r.db.WithContext(ctx).Where("warehouse_id = ? AND product_id = ?", warehouseID, productID).
		Limit(1).Find(&rows).Error
	if err != nil || len(rows) == 0 {
		return 0, err
	}
	return rows[0].Quantity, nil
}

// Upsert 写入仓库库存行
func (r *StockRepository) Upsert(ctx context.Context, warehouseID, productID string, quantity int64) error {
	row := &entity.WarehouseStock{
		WarehouseID: warehouseID,
		ProductID:   productID,
		Quantity:    quantity,
		UpdatedAt:   time.Now(),
	}
	return r.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "warehouse_id"}, {Name: "product_id"}},
		DoUpdates: clause.AssignmentColumns([]string{"quantity", "updated_at"}),
	}).Create(row).Error
}

// Decrement 条件扣减，库存不足时不修改并返回 false
func (r *StockRepository) Decrement(ctx context.Context, warehouseID, productID string, quantity int64) (bool, error) {
	res := r.db.WithContext(ctx).Model(&entity.WarehouseStock{}).
		Where("warehouse_id = ? AND product_id = ? AND quantity >= ?", warehouseID, productID, quantity).
		Updates(map[string]interface{}{
			"quantity":   gorm.Expr("quantity - ?", quantity),
			"updated_at": time.Now(),
		})
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected == 1, nil
}

// RecomputeProductStock 用一条语句把商品库存写为所有仓库数量之和，返回写入后的值
func (r *StockRepository) RecomputeProductStock(ctx context.Context, productID string) (int64, error) {
	sum := r.db.Session(&gorm.Session{NewDB: true}).Model(&entity.WarehouseStock{}).
		Select("COALESCE(SUM(quantity), 0)").Where("product_id = ?", productID)
	err := r.db.WithContext(ctx).Model(&entity.Product{}).Where("id = ?", productID).
		Updates(map[string]interface{}{"current_stock": sum, "updated_at": time.Now()}).Error
	if err != nil {
		return 0, err
	}
	var total int64
	err = r.db.WithContext(ctx).Model(&entity.Product{}).Where("id = ?", productID).
		Select("current_stock").Scan(&total).Error
	return total, err
}

// DecrementProductStock 商品库存缓存扣减
func (r *StockRepository) DecrementProductStock(ctx context.Context, productID string, quantity int64) error {
	return r.db.WithContext(ctx).Model(&entity.Product{}).Where("id = ?", productID).
		Updates(map[string]interface{}{
			"current_stock": gorm.Expr("current_stock - ?", quantity),
			"updated_at":    time.Now(),
		}).Error
}

func (r *StockRepository) ListByProduct(ctx context.Context, productID string) ([]entity.WarehouseStock, error) {
	var rows []entity.WarehouseStock
	err := r.db.WithContext(ctx).Preload("Warehouse").Where("product_id = ?", productID).
		Order("warehouse_id ASC").Find(&rows).Error
	return rows, err
}

func (r *StockRepository) ListByWarehouse(ctx context.Context, warehouseID string) ([]entity.WarehouseStock, error) {
	var rows []entity.WarehouseStock
	err := r.db.WithContext(ctx).Where("warehouse_id = ?", warehouseID).
		Order("product_id ASC").Find(&rows).Error
	return rows, err
}

func (r *StockRepository) DeleteByProduct(ctx context.Context, productID string) error {
	return r.db.WithContext(ctx).Where("product_id = ?", productID).Delete(&entity.WarehouseStock{}).Error
}

// LockByWarehouse 锁定仓库的所有库存行
func (r *StockRepository) LockByWarehouse(ctx context.Context, warehouseID string) ([]entity.WarehouseStock, error) {
	var rows []entity.WarehouseStock
	err := withLock(r.db.WithContext(ctx), entity.WarehouseStock{}.TableName(), lockUpdate).
		Where("warehouse_id = ?", warehouseID).Order("product_id ASC").Find(&rows).Error
	return rows, err
}

// DeleteEmptyByWarehouse 只删除数量为0的库存行
func (r *StockRepository) DeleteEmptyByWarehouse(ctx context.Context, warehouseID string) error {
	return r.db.WithContext(ctx).Where("warehouse_id = ? AND quantity = 0", warehouseID).
		Delete(&entity.WarehouseStock{}).Error
}

// CountByWarehouse 仓库剩余的库存行数
func (r *StockRepository) CountByWarehouse(ctx context.Context, warehouseID string) (int64, error) {
	var n int64
	err := r.db.WithContext(ctx).Model(&entity.WarehouseStock{}).
		Where("warehouse_id = ?", warehouseID).Count(&n).Error
	return n, err
}
