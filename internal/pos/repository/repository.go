package repository

import "gorm.io/gorm"

// Repositories POS 仓库集合
type Repositories struct {
	Product     *ProductRepository
	Supplier    *SupplierRepository
	Warehouse   *WarehouseRepository
	Stock       *StockRepository
	Customer    *CustomerRepository
	Order       *OrderRepository
	Alert       *AlertRepository
	ActivityLog *ActivityLogRepository
}

func NewRepositories(db *gorm.DB) *Repositories {
	return &Repositories{
		Product:     NewProductRepository(db),
		Supplier:    NewSupplierRepository(db),
		Warehouse:   NewWarehouseRepository(db),
		Stock:       NewStockRepository(db),
		Customer:    NewCustomerRepository(db),
		Order:       NewOrderRepository(db),
		Alert:       NewAlertRepository(db),
		ActivityLog: NewActivityLogRepository(db),
	}
}

// WithTx 返回绑定到事务的仓库集合
func (r *Repositories) WithTx(tx *gorm.DB) *Repositories {
	return NewRepositories(tx)
}

func normalizePage(page, size int) (int, int) {
	if page <= 0 {
		page = 1
	}
	if size <= 0 {
		size = 20
	}
	return page, size
}
