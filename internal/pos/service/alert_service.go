package service

import (
	"context"
	"fmt"
	"time"

	"github.com/bitfantasy/nimo-pos/internal/pos/entity"
	"github.com/bitfantasy/nimo-pos/internal/pos/events"
	"github.com/bitfantasy/nimo-pos/internal/pos/repository"
	"github.com/google/uuid"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// AlertService 库存预警
//
// 只负责发起和显式关闭预警，库存回升时不会自动关闭。
type AlertService struct {
	db       *gorm.DB
	repos    *repository.Repositories
	activity *ActivityService
	events   *events.Hub
	logger   *zap.Logger
}

func NewAlertService(db *gorm.DB, repos *repository.Repositories, activity *ActivityService, logger *zap.Logger) *AlertService {
	return &AlertService{db: db, repos: repos, activity: activity, logger: logger}
}

// RaiseIfBelowThreshold 商品库存不高于最低库存时写入预警并追加通知
//
// 同一商品重复调用只更新已有预警行。返回是否发起了预警，调用方在事务提交后计数。
func (s *AlertService) RaiseIfBelowThreshold(ctx context.Context, tx *gorm.DB, productID string) (bool, error) {
	repos := s.repos.WithTx(tx)
	product, err := repos.Product.GetByID(ctx, productID)
	if err != nil {
		return false, notFound("商品", err)
	}
	if !product.BelowThreshold() {
		return false, nil
	}

	now := time.Now()
	alert := &entity.StockAlert{
		ID:             uuid.New().String(),
		ProductID:      product.ID,
		CurrentStock:   product.CurrentStock,
		AlertThreshold: product.MinStockLevel,
		CreatedAt:      now,
		UpdatedAt:      now,
	}
	if err := repos.Alert.UpsertOpen(ctx, alert); err != nil {
		return false, fmt.Errorf("写入库存预警失败: %w", err)
	}

	notification := &entity.Notification{
		ID:               uuid.New().String(),
		NotificationType: entity.NotificationTypeLowStock,
		Content: fmt.Sprintf("商品 %s (%s) 库存不足: 当前%d, 最低%d",
			product.Name, product.Code, product.CurrentStock, product.MinStockLevel),
		ProductID: product.ID,
	}
	if err := repos.Alert.CreateNotification(ctx, notification); err != nil {
		return false, fmt.Errorf("写入通知失败: %w", err)
	}

	s.logger.Info("Stock alert raised",
		zap.String("product_id", product.ID),
		zap.Int64("current_stock", product.CurrentStock),
		zap.Int64("threshold", product.MinStockLevel))
	return true, nil
}

func (s *AlertService) ListOpenAlerts(ctx context.Context) ([]entity.StockAlert, error) {
	return s.repos.Alert.ListOpen(ctx)
}

// ClearAlert 显式关闭商品的预警
func (s *AlertService) ClearAlert(ctx context.Context, productID, userID string) error {
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		repos := s.repos.WithTx(tx)
		ok, err := repos.Alert.Clear(ctx, productID)
		if err != nil {
			return fmt.Errorf("关闭预警失败: %w", err)
		}
		if !ok {
			return fmt.Errorf("打开的预警: %w", ErrNotFound)
		}
		return s.activity.Append(ctx, tx, &entity.ActivityLog{
			UserID:        userID,
			ActionType:    entity.ActionAlertCleared,
			ActionDetails: "关闭库存预警",
			EntityType:    "alert",
			EntityID:      productID,
		})
	})
	if err != nil {
		return err
	}
	s.events.Publish(events.TypeAlertCleared, map[string]string{"product_id": productID, "cleared_by": userID})
	return nil
}

func (s *AlertService) GetAlert(ctx context.Context, productID string) (*entity.StockAlert, error) {
	alert, err := s.repos.Alert.GetByProduct(ctx, productID)
	if err != nil {
		return nil, notFound("库存预警", err)
	}
	return alert, nil
}

// --- Notification ---

func (s *AlertService) ListNotifications(ctx context.Context, unreadOnly bool, page, size int) ([]entity.Notification, int64, error) {
	return s.repos.Alert.ListNotifications(ctx, unreadOnly, page, size)
}

func (s *AlertService) MarkNotificationRead(ctx context.Context, id string) error {
	ok, err := s.repos.Alert.MarkNotificationRead(ctx, id)
	if err != nil {
		return fmt.Errorf("更新通知失败: %w", err)
	}
	if !ok {
		return fmt.Errorf("通知: %w", ErrNotFound)
	}
	return nil
}
