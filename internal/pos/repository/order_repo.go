package repository

import (
	"context"

	"github.com/bitfantasy/nimo-pos/internal/pos/entity"
	"gorm.io/gorm"
)

type OrderRepository struct {
	db *gorm.DB
}

func NewOrderRepository(db *gorm.DB) *OrderRepository {
	return &OrderRepository{db: db}
}

// CreateOrder 创建订单及明细
func (r *OrderRepository) CreateOrder(ctx context.Context, order *entity.Order) error {
	return r.db.WithContext(ctx).Create(order).Error
}

func (r *OrderRepository) CreateInvoice(ctx context.Context, inv *entity.Invoice) error {
	return r.db.WithContext(ctx).Create(inv).Error
}

func (r *OrderRepository) GetByID(ctx context.Context, id string) (*entity.Order, error) {
	var o entity.Order
	err := r.db.WithContext(ctx).Preload("Customer").Preload("Lines").Preload("Invoice").
		Where("id = ?", id).First(&o).Error
	if err != nil {
		return nil, err
	}
	return &o, nil
}

func (r *OrderRepository) GetInvoiceByOrder(ctx context.Context, orderID string) (*entity.Invoice, error) {
	var inv entity.Invoice
	if err := r.db.WithContext(ctx).Where("order_id = ?", orderID).First(&inv).Error; err != nil {
		return nil, err
	}
	return &inv, nil
}

type OrderListParams struct {
	CustomerID string
	From       string // YYYY-MM-DD
	To         string
	Page       int
	Size       int
}

func (r *OrderRepository) List(ctx context.Context, params OrderListParams) ([]entity.Order, int64, error) {
	query := r.db.WithContext(ctx).Model(&entity.Order{})
	if params.CustomerID != "" {
		query = query.Where("customer_id = ?", params.CustomerID)
	}
	if params.From != "" {
		query = query.Where("order_date >= ?", params.From)
	}
	if params.To != "" {
		query = query.Where("order_date < ?", params.To)
	}
	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}
	page, size := normalizePage(params.Page, params.Size)
	var orders []entity.Order
	err := query.Preload("Invoice").Order("created_at DESC").
		Offset((page - 1) * size).Limit(size).Find(&orders).Error
	return orders, total, err
}

// CountLinesByProduct 引用该商品的订单明细数
func (r *OrderRepository) CountLinesByProduct(ctx context.Context, productID string) (int64, error) {
	var n int64
	err := r.db.WithContext(ctx).Model(&entity.OrderLine{}).Where("product_id = ?", productID).Count(&n).Error
	return n, err
}

// CountByCustomer 客户的订单数
func (r *OrderRepository) CountByCustomer(ctx context.Context, customerID string) (int64, error) {
	var n int64
	err := r.db.WithContext(ctx).Model(&entity.Order{}).Where("customer_id = ?", customerID).Count(&n).Error
	return n, err
}
