package entity

import "gorm.io/gorm"

// AutoMigrate 自动迁移所有POS表
func AutoMigrate(db *gorm.DB) error {
	return db.AutoMigrate(
		// 基础数据
		&Product{},
		&Supplier{},
		&SupplierOffer{},
		&Warehouse{},
		&WarehouseStock{},
		&Customer{},

		// 销售
		&Order{},
		&OrderLine{},
		&Invoice{},

		// 预警
		&StockAlert{},
		&Notification{},

		// 日志
		&ActivityLog{},
	)
}
