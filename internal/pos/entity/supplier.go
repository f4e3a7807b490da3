package entity

import (
	"time"

	"github.com/shopspring/decimal"
)

// Supplier 供应商
type Supplier struct {
	ID             string    `json:"id" gorm:"primaryKey;size:36"`
	SupplierCode   string    `json:"supplier_code" gorm:"size:50;not null;uniqueIndex"`
	Name           string    `json:"name" gorm:"size:200;not null"`
	ContactDetails string    `json:"contact_details" gorm:"size:500"`
	CreatedBy      string    `json:"created_by" gorm:"size:64"`
	CreatedAt      time.Time `json:"created_at"`
	UpdatedAt      time.Time `json:"updated_at"`

	Offers []SupplierOffer `json:"offers,omitempty" gorm:"foreignKey:SupplierID"`
}

func (Supplier) TableName() string {
	return "pos_suppliers"
}

// SupplierOffer 供应商报价，(supplier_id, product_id) 唯一，重复写入覆盖价格与日期
type SupplierOffer struct {
	SupplierID  string          `json:"supplier_id" gorm:"primaryKey;size:36"`
	ProductID   string          `json:"product_id" gorm:"primaryKey;size:36;index"`
	SupplyPrice decimal.Decimal `json:"supply_price" gorm:"type:decimal(12,2);not null;default:0"`
	SupplyDate  time.Time       `json:"supply_date"`
	UpdatedAt   time.Time       `json:"updated_at"`

	Supplier *Supplier `json:"supplier,omitempty" gorm:"foreignKey:SupplierID"`
}

func (SupplierOffer) TableName() string {
	return "pos_supplier_products"
}
