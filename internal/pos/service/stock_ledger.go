package service

import (
	"context"
	"fmt"

	"github.com/bitfantasy/nimo-pos/internal/pos/entity"
	"github.com/bitfantasy/nimo-pos/internal/pos/events"
	"github.com/bitfantasy/nimo-pos/internal/pos/metrics"
	"github.com/bitfantasy/nimo-pos/internal/pos/repository"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// StockLedger 库存账本
//
// 唯一允许修改 WarehouseStock.quantity 和 Product.current_stock 的路径。
// 每次调用后 current_stock 等于该商品所有仓库数量之和。
type StockLedger struct {
	db       *gorm.DB
	repos    *repository.Repositories
	alerts   *AlertService
	activity *ActivityService
	cache    *SnapshotCache
	events   *events.Hub
	logger   *zap.Logger
}

func NewStockLedger(db *gorm.DB, repos *repository.Repositories, alerts *AlertService, activity *ActivityService, cache *SnapshotCache, logger *zap.Logger) *StockLedger {
	return &StockLedger{db: db, repos: repos, alerts: alerts, activity: activity, cache: cache, logger: logger}
}

// StockEntry 单个仓库的库存数量
type StockEntry struct {
	WarehouseID string `json:"warehouse_id" binding:"required"`
	Quantity    int64  `json:"quantity"`
}

// SetWarehouseStock 写入单个仓库库存并重算商品库存
func (l *StockLedger) SetWarehouseStock(ctx context.Context, warehouseID, productID string, quantity int64, userID string) error {
	return l.BulkUpdateStock(ctx, productID, []StockEntry{{WarehouseID: warehouseID, Quantity: quantity}}, userID)
}

// BulkUpdateStock 在一个事务内写入多个仓库库存，商品库存反映整批结果
func (l *StockLedger) BulkUpdateStock(ctx context.Context, productID string, entries []StockEntry, userID string) error {
	if len(entries) == 0 {
		return &ValidationError{Field: "entries", Message: "至少需要一个仓库"}
	}
	if err := validateStockEntries(entries); err != nil {
		return err
	}

	var total int64
	var alerted bool
	err := l.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		repos := l.repos.WithTx(tx)
		if _, err := repos.Product.LockByID(ctx, productID); err != nil {
			return notFound("商品", err)
		}
		if err := checkWarehousesExist(ctx, repos, entries); err != nil {
			return err
		}
		for _, e := range entries {
			if err := repos.Stock.Upsert(ctx, e.WarehouseID, productID, e.Quantity); err != nil {
				return fmt.Errorf("更新仓库库存失败: %w", err)
			}
		}
		var err error
		if total, err = l.recompute(ctx, repos, productID); err != nil {
			return err
		}
		if alerted, err = l.alerts.RaiseIfBelowThreshold(ctx, tx, productID); err != nil {
			return err
		}
		return l.activity.Append(ctx, tx, &entity.ActivityLog{
			UserID:        userID,
			ActionType:    entity.ActionStockUpdated,
			ActionDetails: fmt.Sprintf("更新库存: %d个仓库, 合计%d", len(entries), total),
			EntityType:    "product",
			EntityID:      productID,
		})
	})
	if err != nil {
		return err
	}

	l.cache.Invalidate(ctx, productID)
	l.events.Publish(events.TypeStockUpdated, stockEvent{ProductID: productID, CurrentStock: total})
	if alerted {
		metrics.StockAlertsRaised.Inc()
		l.events.Publish(events.TypeStockAlert, stockEvent{ProductID: productID, CurrentStock: total})
	}
	return nil
}

type stockEvent struct {
	ProductID    string `json:"product_id"`
	CurrentStock int64  `json:"current_stock"`
}

// DecrementForSale 在调用方事务内条件扣减仓库库存和商品库存
//
// 调用方需已持有商品行锁。库存不足时返回 *InsufficientStockError，不做任何修改。
func (l *StockLedger) DecrementForSale(ctx context.Context, tx *gorm.DB, productID, warehouseID string, quantity int64) error {
	if quantity <= 0 {
		return &ValidationError{Field: "quantity", Message: "数量必须大于0"}
	}
	repos := l.repos.WithTx(tx)
	ok, err := repos.Stock.Decrement(ctx, warehouseID, productID, quantity)
	if err != nil {
		return fmt.Errorf("扣减库存失败: %w", err)
	}
	if !ok {
		available, err := repos.Stock.GetQuantity(ctx, warehouseID, productID)
		if err != nil {
			return fmt.Errorf("查询库存失败: %w", err)
		}
		return &InsufficientStockError{
			ProductID:   productID,
			WarehouseID: warehouseID,
			Requested:   quantity,
			Available:   available,
		}
	}
	if err := repos.Stock.DecrementProductStock(ctx, productID, quantity); err != nil {
		return fmt.Errorf("扣减商品库存失败: %w", err)
	}
	return nil
}

// ReplaceStock 在调用方事务内用给定集合整体替换商品的仓库库存
func (l *StockLedger) ReplaceStock(ctx context.Context, tx *gorm.DB, productID string, entries []StockEntry) error {
	if err := validateStockEntries(entries); err != nil {
		return err
	}
	repos := l.repos.WithTx(tx)
	if _, err := repos.Product.LockByID(ctx, productID); err != nil {
		return notFound("商品", err)
	}
	if err := checkWarehousesExist(ctx, repos, entries); err != nil {
		return err
	}
	if err := repos.Stock.DeleteByProduct(ctx, productID); err != nil {
		return fmt.Errorf("清除仓库库存失败: %w", err)
	}
	for _, e := range entries {
		if err := repos.Stock.Upsert(ctx, e.WarehouseID, productID, e.Quantity); err != nil {
			return fmt.Errorf("写入仓库库存失败: %w", err)
		}
	}
	_, err := l.recompute(ctx, repos, productID)
	return err
}

// ListByWarehouse 仓库库存明细
func (l *StockLedger) ListByWarehouse(ctx context.Context, warehouseID string) ([]entity.WarehouseStock, error) {
	if _, err := l.repos.Warehouse.GetByID(ctx, warehouseID); err != nil {
		return nil, notFound("仓库", err)
	}
	return l.repos.Stock.ListByWarehouse(ctx, warehouseID)
}

func (l *StockLedger) recompute(ctx context.Context, repos *repository.Repositories, productID string) (int64, error) {
	total, err := repos.Stock.RecomputeProductStock(ctx, productID)
	if err != nil {
		return 0, fmt.Errorf("更新商品库存失败: %w", err)
	}
	return total, nil
}

func validateStockEntries(entries []StockEntry) error {
	seen := make(map[string]bool, len(entries))
	for i, e := range entries {
		if e.WarehouseID == "" {
			return &ValidationError{Line: i + 1, Field: "warehouse_id", Message: "不能为空"}
		}
		if e.Quantity < 0 {
			return &ValidationError{Line: i + 1, Field: "quantity", Message: "数量不能为负数"}
		}
		if seen[e.WarehouseID] {
			return &IntegrityError{Entity: "warehouse_stock", Message: "重复的仓库: " + e.WarehouseID}
		}
		seen[e.WarehouseID] = true
	}
	return nil
}

func checkWarehousesExist(ctx context.Context, repos *repository.Repositories, entries []StockEntry) error {
	if len(entries) == 0 {
		return nil
	}
	ids := make([]string, 0, len(entries))
	for _, e := range entries {
		ids = append(ids, e.WarehouseID)
	}
	n, err := repos.Warehouse.LockExisting(ctx, ids)
	if err != nil {
		return fmt.Errorf("查询仓库失败: %w", err)
	}
	if n != int64(len(ids)) {
		return &IntegrityError{Entity: "warehouse_stock", Message: "引用了不存在的仓库"}
	}
	return nil
}
