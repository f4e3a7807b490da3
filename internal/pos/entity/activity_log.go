package entity

import "time"

// ActionType 操作类型
const (
	ActionOrderCreated     = "ORDER_CREATED"
	ActionProductUpserted  = "PRODUCT_UPSERTED"
	ActionProductDeleted   = "PRODUCT_DELETED"
	ActionStockUpdated     = "STOCK_UPDATED"
	ActionWarehouseDeleted = "WAREHOUSE_DELETED"
	ActionSupplierDeleted  = "SUPPLIER_DELETED"
	ActionAlertCleared     = "ALERT_CLEARED"
)

// ActivityLog 操作日志，只追加
type ActivityLog struct {
	ID            string    `json:"id" gorm:"primaryKey;size:36"`
	UserID        string    `json:"user_id" gorm:"size:64;index"`
	ActionType    string    `json:"action_type" gorm:"size:50;not null;index"`
	ActionDetails string    `json:"action_details" gorm:"type:text"`
	EntityType    string    `json:"entity_type" gorm:"size:50"` // order/product/warehouse/supplier/alert
	EntityID      string    `json:"entity_id" gorm:"size:36"`
	CreatedAt     time.Time `json:"created_at"`
}

func (ActivityLog) TableName() string {
	return "pos_activity_logs"
}
