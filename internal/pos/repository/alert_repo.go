package repository

import (
	"context"
	"time"

	"github.com/bitfantasy/nimo-pos/internal/pos/entity"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type AlertRepository struct {
	db *gorm.DB
}

func NewAlertRepository(db *gorm.DB) *AlertRepository {
	return &AlertRepository{db: db}
}

// UpsertOpen 按商品写入预警，已有记录时原地更新并重新打开
func (r *AlertRepository) UpsertOpen(ctx context.Context, alert *entity.StockAlert) error {
	alert.AlertStatus = entity.AlertStatusOpen
	alert.ClearedAt = nil
	return r.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "product_id"}},
		DoUpdates: clause.AssignmentColumns([]string{"current_stock", "alert_threshold", "alert_status", "cleared_at", "updated_at"}),
	}).Create(alert).Error
}

func (r *AlertRepository) GetByProduct(ctx context.Context, productID string) (*entity.StockAlert, error) {
	var a entity.StockAlert
	if err := r.db.WithContext(ctx).Where("product_id = ?", productID).First(&a).Error; err != nil {
		return nil, err
	}
	return &a, nil
}

func (r *AlertRepository) ListOpen(ctx context.Context) ([]entity.StockAlert, error) {
	var alerts []entity.StockAlert
	err := r.db.WithContext(ctx).Preload("Product").
		Where("alert_status = ?", entity.AlertStatusOpen).
		Order("updated_at DESC").Find(&alerts).Error
	return alerts, err
}

// Clear 关闭预警，返回是否存在打开的预警
func (r *AlertRepository) Clear(ctx context.Context, productID string) (bool, error) {
	now := time.Now()
	res := r.db.WithContext(ctx).Model(&entity.StockAlert{}).
		Where("product_id = ? AND alert_status = ?", productID, entity.AlertStatusOpen).
		Updates(map[string]interface{}{
			"alert_status": entity.AlertStatusCleared,
			"cleared_at":   now,
			"updated_at":   now,
		})
	return res.RowsAffected > 0, res.Error
}

func (r *AlertRepository) DeleteByProduct(ctx context.Context, productID string) error {
	return r.db.WithContext(ctx).Where("product_id = ?", productID).Delete(&entity.StockAlert{}).Error
}

// --- Notification ---

func (r *AlertRepository) CreateNotification(ctx context.Context, n *entity.Notification) error {
	return r.db.WithContext(ctx).Create(n).Error
}

func (r *AlertRepository) ListNotifications(ctx context.Context, unreadOnly bool, page, size int) ([]entity.Notification, int64, error) {
	query := r.db.WithContext(ctx).Model(&entity.Notification{})
	if unreadOnly {
		query = query.Where("is_read = ?", false)
	}
	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}
	page, size = normalizePage(page, size)
	var items []entity.Notification
	err := query.Order("created_at DESC").Offset((page - 1) * size).Limit(size).Find(&items).Error
	return items, total, err
}

func (r *AlertRepository) MarkNotificationRead(ctx context.Context, id string) (bool, error) {
	res := r.db.WithContext(ctx).Model(&entity.Notification{}).Where("id = ?", id).Update("is_read", true)
	return res.RowsAffected > 0, res.Error
}
