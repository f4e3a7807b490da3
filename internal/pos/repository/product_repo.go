package repository

import (
	"context"

	"github.com/bitfantasy/nimo-pos/internal/pos/entity"
	"gorm.io/gorm"
)

type ProductRepository struct {
	db *gorm.DB
}

func NewProductRepository(db *gorm.DB) *ProductRepository {
	return &ProductRepository{db: db}
}

func (r *ProductRepository) Create(ctx context.Context, p *entity.Product) error {
	return r.db.WithContext(ctx).Create(p).Error
}

func (r *ProductRepository) GetByID(ctx context.Context, id string) (*entity.Product, error) {
	var p entity.Product
	if err := r.db.WithContext(ctx).Where("id = ?", id).First(&p).Error; err != nil {
		return nil, err
	}
	return &p, nil
}

// LockByID 读取商品并加写锁
//
// 库存账本的所有写路径先锁商品行，同一商品的库存写入因此串行执行。
func (r *ProductRepository) LockByID(ctx context.Context, id string) (*entity.Product, error) {
	var p entity.Product
	err := withLock(r.db.WithContext(ctx), entity.Product{}.TableName(), lockUpdate).
		Where("id = ?", id).First(&p).Error
	if err != nil {
		return nil, err
	}
	return &p, nil
}

// LockByIDs 按ID升序锁定多个商品，返回锁住的行数
func (r *ProductRepository) LockByIDs(ctx context.Context, ids []string) (int, error) {
	var items []entity.Product
	err := withLock(r.db.WithContext(ctx), entity.Product{}.TableName(), lockUpdate).
		Select("id").Where("id IN ?", ids).Order("id ASC").Find(&items).Error
	return len(items), err
}

// GetByIDs 批量获取商品，按ID索引
func (r *ProductRepository) GetByIDs(ctx context.Context, ids []string) (map[string]*entity.Product, error) {
	var items []entity.Product
	if err := r.db.WithContext(ctx).Where("id IN ?", ids).Find(&items).Error; err != nil {
		return nil, err
	}
	result := make(map[string]*entity.Product, len(items))
	for i := range items {
		result[items[i].ID] = &items[i]
	}
	return result, nil
}

// UpdateAttributes 更新商品的描述性字段，不包含 current_stock
func (r *ProductRepository) UpdateAttributes(ctx context.Context, p *entity.Product) error {
	return r.db.WithContext(ctx).Model(&entity.Product{}).Where("id = ?", p.ID).
		Select("name", "description", "unit_type", "min_stock_level", "retail_price", "wholesale_price", "source_warehouse_id", "updated_at").
		Updates(p).Error
}

func (r *ProductRepository) Delete(ctx context.Context, id string) error {
	return r.db.WithContext(ctx).Where("id = ?", id).Delete(&entity.Product{}).Error
}

type ProductListParams struct {
	Keyword  string
	LowStock bool
	Page     int
	Size     int
}

func (r *ProductRepository) List(ctx context.Context, params ProductListParams) ([]entity.Product, int64, error) {
	query := r.db.WithContext(ctx).Model(&entity.Product{})
	if params.Keyword != "" {
		kw := "%" + params.Keyword + "%"
		query = query.Where("name LIKE ? OR code LIKE ?", kw, kw)
	}
	if params.LowStock {
		query = query.Where("current_stock <= min_stock_level")
	}
	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}
	page, size := normalizePage(params.Page, params.Size)
	var items []entity.Product
	err := query.Order("name ASC").Offset((page - 1) * size).Limit(size).Find(&items).Error
	return items, total, err
}

// ClearSourceWarehouse 清除指向该仓库的默认出货仓库
func (r *ProductRepository) ClearSourceWarehouse(ctx context.Context, warehouseID string) error {
	return r.db.WithContext(ctx).Model(&entity.Product{}).Where("source_warehouse_id = ?", warehouseID).
		Update("source_warehouse_id", "").Error
}
