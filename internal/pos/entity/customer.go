package entity

import (
	"time"

	"github.com/shopspring/decimal"
)

// Customer 客户
type Customer struct {
	ID             string          `json:"id" gorm:"primaryKey;size:36"`
	CustomerCode   string          `json:"customer_code" gorm:"size:50;not null;uniqueIndex"`
	Name           string          `json:"name" gorm:"size:200;not null"`
	Address        string          `json:"address" gorm:"size:500"`
	Phone          string          `json:"phone" gorm:"size:20"`
	DiscountAmount decimal.Decimal `json:"discount_amount" gorm:"type:decimal(12,2);not null;default:0"` // 固定金额，不是百分比
	CreatedBy      string          `json:"created_by" gorm:"size:64"`
	CreatedAt      time.Time       `json:"created_at"`
	UpdatedAt      time.Time       `json:"updated_at"`
}

func (Customer) TableName() string {
	return "pos_customers"
}
