package entity

import (
	"time"
)

// Warehouse 仓库
type Warehouse struct {
	ID             string    `json:"id" gorm:"primaryKey;size:36"`
	Code           string    `json:"code" gorm:"size:50;not null;uniqueIndex"`
	Name           string    `json:"name" gorm:"size:100;not null"`
	Location       string    `json:"location" gorm:"size:500"`
	ContactDetails string    `json:"contact_details" gorm:"size:500"`
	CreatedAt      time.Time `json:"created_at"`
	UpdatedAt      time.Time `json:"updated_at"`
}

func (Warehouse) TableName() string {
	return "pos_warehouses"
}

// WarehouseStock 仓库商品库存，实物库存的唯一来源
type WarehouseStock struct {
	WarehouseID string    `json:"warehouse_id" gorm:"primaryKey;size:36"`
	ProductID   string    `json:"product_id" gorm:"primaryKey;size:36;index"`
	Quantity    int64     `json:"quantity" gorm:"not null;default:0"`
	UpdatedAt   time.Time `json:"updated_at"`

	Warehouse *Warehouse `json:"warehouse,omitempty" gorm:"foreignKey:WarehouseID"`
}

func (WarehouseStock) TableName() string {
	return "pos_warehouse_products"
}
