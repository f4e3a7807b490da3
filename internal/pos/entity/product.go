package entity

import (
	"time"

	"github.com/shopspring/decimal"
)

// UnitType 计量单位
const (
	UnitTypePiece = "PIECE"
	UnitTypeBox   = "BOX"
	UnitTypeKg    = "KG"
	UnitTypeLiter = "LITER"
	UnitTypeMeter = "METER"
)

// Product 商品
//
// CurrentStock 是各仓库库存之和的缓存，只能由库存账本写入。
type Product struct {
	ID                string          `json:"id" gorm:"primaryKey;size:36"`
	Code              string          `json:"code" gorm:"size:50;not null;uniqueIndex"`
	Name              string          `json:"name" gorm:"size:200;not null"`
	Description       string          `json:"description" gorm:"type:text"`
	UnitType          string          `json:"unit_type" gorm:"size:20;not null;default:PIECE"`
	MinStockLevel     int64           `json:"min_stock_level" gorm:"not null;default:0"`
	CurrentStock      int64           `json:"current_stock" gorm:"not null;default:0"`
	RetailPrice       decimal.Decimal `json:"retail_price" gorm:"type:decimal(12,2);not null;default:0"`
	WholesalePrice    decimal.Decimal `json:"wholesale_price" gorm:"type:decimal(12,2);not null;default:0"`
	SourceWarehouseID string          `json:"source_warehouse_id" gorm:"size:36;index"`
	CreatedBy         string          `json:"created_by" gorm:"size:64"`
	CreatedAt         time.Time       `json:"created_at"`
	UpdatedAt         time.Time       `json:"updated_at"`

	Offers []SupplierOffer  `json:"offers,omitempty" gorm:"foreignKey:ProductID"`
	Stocks []WarehouseStock `json:"stocks,omitempty" gorm:"foreignKey:ProductID"`
}

func (Product) TableName() string {
	return "pos_products"
}

// BelowThreshold 当前库存是否已到达或低于最低库存
func (p *Product) BelowThreshold() bool {
	return p.CurrentStock <= p.MinStockLevel
}
