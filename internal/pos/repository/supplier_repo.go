package repository

import (
	"context"

	"github.com/bitfantasy/nimo-pos/internal/pos/entity"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type SupplierRepository struct {
	db *gorm.DB
}

func NewSupplierRepository(db *gorm.DB) *SupplierRepository {
	return &SupplierRepository{db: db}
}

func (r *SupplierRepository) Create(ctx context.Context, s *entity.Supplier) error {
	return r.db.WithContext(ctx).Create(s).Error
}

func (r *SupplierRepository) GetByID(ctx context.Context, id string) (*entity.Supplier, error) {
	var s entity.Supplier
	if err := r.db.WithContext(ctx).Where("id = ?", id).First(&s).Error; err != nil {
		return nil, err
	}
	return &s, nil
}

func (r *SupplierRepository) Update(ctx context.Context, s *entity.Supplier) error {
	return r.db.WithContext(ctx).Save(s).Error
}

func (r *SupplierRepository) Delete(ctx context.Context, id string) error {
	return r.db.WithContext(ctx).Where("id = ?", id).Delete(&entity.Supplier{}).Error
}

// CountExisting 统计存在的供应商数量
func (r *SupplierRepository) CountExisting(ctx context.Context, ids []string) (int64, error) {
	var n int64
	err := r.db.WithContext(ctx).Model(&entity.Supplier{}).Where("id IN ?", ids).Count(&n).Error
	return n, err
}

// SupplierSummary 供应商列表行，附带报价商品数
type SupplierSummary struct {
	entity.Supplier
	ProductCount int64 `json:"product_count"`
}

func (r *SupplierRepository) List(ctx context.Context, keyword string, page, size int) ([]SupplierSummary, int64, error) {
	query := r.db.WithContext(ctx).Model(&entity.Supplier{})
	if keyword != "" {
		kw := "%" + keyword + "%"
		query = query.Where("name LIKE ? OR supplier_code LIKE ?", kw, kw)
	}
	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}
	page, size = normalizePage(page, size)
	var rows []SupplierSummary
	err := query.Select("pos_suppliers.*, (SELECT COUNT(*) FROM pos_supplier_products sp WHERE sp.supplier_id = pos_suppliers.id) AS product_count").
		Order("name ASC").Offset((page - 1) * size).Limit(size).Scan(&rows).Error
	return rows, total, err
}

// --- Supplier Offer ---

// UpsertOffer 写入报价，已存在的 (supplier, product) 覆盖价格和日期
func (r *SupplierRepository) UpsertOffer(ctx context.Context, offer *entity.SupplierOffer) error {
	return r.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "supplier_id"}, {Name: "product_id"}},
		DoUpdates: clause.AssignmentColumns([]string{"supply_price", "supply_date", "updated_at"}),
	}).Create(offer).Error
}

// RemoveOffer 删除报价，返回是否存在
func (r *SupplierRepository) RemoveOffer(ctx context.Context, supplierID, productID string) (bool, error) {
	res := r.db.WithContext(ctx).Where("supplier_id = ? AND product_id = ?", supplierID, productID).
		Delete(&entity.SupplierOffer{})
	return res.RowsAffected > 0, res.Error
}

func (r *SupplierRepository) DeleteOffersByProduct(ctx context.Context, productID string) error {
	return r.db.WithContext(ctx).Where("product_id = ?", productID).Delete(&entity.SupplierOffer{}).Error
}

func (r *SupplierRepository) DeleteOffersBySupplier(ctx context.Context, supplierID string) error {
	return r.db.WithContext(ctx).Where("supplier_id = ?", supplierID).Delete(&entity.SupplierOffer{}).Error
}

func (r *SupplierRepository) ListOffersByProduct(ctx context.Context, productID string) ([]entity.SupplierOffer, error) {
	var offers []entity.SupplierOffer
	err := r.db.WithContext(ctx).Preload("Supplier").Where("product_id = ?", productID).
		Order("supply_price ASC").Find(&offers).Error
	return offers, err
}

func (r *SupplierRepository) ListOffersBySupplier(ctx context.Context, supplierID string) ([]entity.SupplierOffer, error) {
	var offers []entity.SupplierOffer
	err := r.db.WithContext(ctx).Where("supplier_id = ?", supplierID).Find(&offers).Error
	return offers, err
}

// MinSupplyPrice 商品最低供货价，没有报价时返回0
func (r *SupplierRepository) MinSupplyPrice(ctx context.Context, productID string) (decimal.Decimal, error) {
	offers, err := r.ListOffersByProduct(ctx, productID)
	if err != nil {
		return decimal.Zero, err
	}
	if len(offers) == 0 {
		return decimal.Zero, nil
	}
	min := offers[0].SupplyPrice
	for _, o := range offers[1:] {
		if o.SupplyPrice.LessThan(min) {
			min = o.SupplyPrice
		}
	}
	return min, nil
}
