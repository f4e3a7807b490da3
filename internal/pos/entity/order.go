package entity

import (
	"time"

	"github.com/shopspring/decimal"
)

// PriceType 价格类型，仅作记录，不影响利润计算
const (
	PriceTypeRetail    = "retail"
	PriceTypeWholesale = "wholesale"
	PriceTypeCustom    = "custom"
)

// ValidPriceType 校验价格类型
func ValidPriceType(t string) bool {
	switch t {
	case PriceTypeRetail, PriceTypeWholesale, PriceTypeCustom:
		return true
	}
	return false
}

// Order 销售订单，提交后不可修改
type Order struct {
	ID         string          `json:"id" gorm:"primaryKey;size:36"`
	OrderCode  string          `json:"order_code" gorm:"size:50;not null;uniqueIndex"`
	CustomerID *string         `json:"customer_id" gorm:"size:36;index"` // 为空表示现金散客
	OrderDate  time.Time       `json:"order_date" gorm:"not null"`
	TotalPrice decimal.Decimal `json:"total_price" gorm:"type:decimal(12,2);not null;default:0"`
	CreatedBy  string          `json:"created_by" gorm:"size:64"`
	CreatedAt  time.Time       `json:"created_at"`

	Customer *Customer   `json:"customer,omitempty" gorm:"foreignKey:CustomerID"`
	Lines    []OrderLine `json:"lines,omitempty" gorm:"foreignKey:OrderID"`
	Invoice  *Invoice    `json:"invoice,omitempty" gorm:"foreignKey:OrderID"`
}

func (Order) TableName() string {
	return "pos_orders"
}

// OrderLine 订单明细
type OrderLine struct {
	ID          string          `json:"id" gorm:"primaryKey;size:36"`
	OrderID     string          `json:"order_id" gorm:"size:36;not null;index"`
	ProductID   string          `json:"product_id" gorm:"size:36;not null;index"`
	WarehouseID string          `json:"warehouse_id" gorm:"size:36;not null"`
	Quantity    int64           `json:"quantity" gorm:"not null"`
	SalePrice   decimal.Decimal `json:"sale_price" gorm:"type:decimal(12,2);not null"`
	PriceType   string          `json:"price_type" gorm:"size:20;not null;default:retail"`
	SupplyCost  decimal.Decimal `json:"supply_cost" gorm:"type:decimal(12,2);not null;default:0"`
	Amount      decimal.Decimal `json:"amount" gorm:"type:decimal(12,2);not null"`
	CreatedAt   time.Time       `json:"created_at"`
}

func (OrderLine) TableName() string {
	return "pos_order_details"
}

// Invoice 发票，每个订单恰好一张
type Invoice struct {
	ID          string          `json:"id" gorm:"primaryKey;size:36"`
	InvoiceCode string          `json:"invoice_code" gorm:"size:50;not null;uniqueIndex"`
	OrderID     string          `json:"order_id" gorm:"size:36;not null;uniqueIndex"`
	Subtotal    decimal.Decimal `json:"subtotal" gorm:"type:decimal(12,2);not null"`
	Discount    decimal.Decimal `json:"discount" gorm:"type:decimal(12,2);not null;default:0"`
	TaxRate     decimal.Decimal `json:"tax_rate" gorm:"type:decimal(5,2);not null;default:0"`
	TaxAmount   decimal.Decimal `json:"tax_amount" gorm:"type:decimal(12,2);not null;default:0"`
	TotalAmount decimal.Decimal `json:"total_amount" gorm:"type:decimal(12,2);not null"`
	Profit      decimal.Decimal `json:"profit" gorm:"type:decimal(12,2);not null"`
	InvoiceDate time.Time       `json:"invoice_date" gorm:"not null"`
	CreatedAt   time.Time       `json:"created_at"`
}

func (Invoice) TableName() string {
	return "pos_invoices"
}
