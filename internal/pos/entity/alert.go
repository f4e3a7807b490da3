package entity

import (
	"time"
)

// AlertStatus 库存预警状态
const (
	AlertStatusOpen    = "OPEN"
	AlertStatusCleared = "CLEARED"
)

// NotificationType 通知类型
const (
	NotificationTypeLowStock = "LOW_STOCK"
)

// StockAlert 库存预警，每个商品最多一条
type StockAlert struct {
	ID             string     `json:"id" gorm:"primaryKey;size:36"`
	ProductID      string     `json:"product_id" gorm:"size:36;not null;uniqueIndex"`
	CurrentStock   int64      `json:"current_stock" gorm:"not null"`
	AlertThreshold int64      `json:"alert_threshold" gorm:"not null"`
	AlertStatus    string     `json:"alert_status" gorm:"size:20;not null;default:OPEN"`
	ClearedAt      *time.Time `json:"cleared_at"`
	CreatedAt      time.Time  `json:"created_at"`
	UpdatedAt      time.Time  `json:"updated_at"`

	Product *Product `json:"product,omitempty" gorm:"foreignKey:ProductID"`
}

func (StockAlert) TableName() string {
	return "pos_stock_alerts"
}

// Notification 通知，只追加
type Notification struct {
	ID               string    `json:"id" gorm:"primaryKey;size:36"`
	NotificationType string    `json:"notification_type" gorm:"size:50;not null"`
	Content          string    `json:"content" gorm:"type:text;not null"`
	ProductID        string    `json:"product_id" gorm:"size:36"`
	IsRead           bool      `json:"is_read" gorm:"not null;default:false"`
	CreatedAt        time.Time `json:"created_at"`
}

func (Notification) TableName() string {
	return "pos_notifications"
}
