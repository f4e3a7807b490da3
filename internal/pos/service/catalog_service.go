package service

import (
	"context"
	"fmt"
	"time"

	"github.com/bitfantasy/nimo-pos/internal/pos/entity"
	"github.com/bitfantasy/nimo-pos/internal/pos/repository"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// CatalogService 商品、供应商、仓库及其关联
type CatalogService struct {
	db       *gorm.DB
	repos    *repository.Repositories
	ledger   *StockLedger
	activity *ActivityService
	cache    *SnapshotCache
	logger   *zap.Logger
}

func NewCatalogService(db *gorm.DB, repos *repository.Repositories, ledger *StockLedger, activity *ActivityService, cache *SnapshotCache, logger *zap.Logger) *CatalogService {
	return &CatalogService{db: db, repos: repos, ledger: ledger, activity: activity, cache: cache, logger: logger}
}

// --- Product ---

// OfferEntry 商品的供应商报价
type OfferEntry struct {
	SupplierID  string          `json:"supplier_id" binding:"required"`
	SupplyPrice decimal.Decimal `json:"supply_price"`
	SupplyDate  *time.Time      `json:"supply_date"`
}

// UpsertProductRequest 没有 ID 时创建，否则更新
//
// Offers 和 Stocks 是完整集合，会整体替换商品现有的报价和仓库库存。
type UpsertProductRequest struct {
	ID                string          `json:"id"`
	Name              string          `json:"name" binding:"required"`
	Description       string          `json:"description"`
	UnitType          string          `json:"unit_type"`
	MinStockLevel     int64           `json:"min_stock_level"`
	RetailPrice       decimal.Decimal `json:"retail_price"`
	WholesalePrice    decimal.Decimal `json:"wholesale_price"`
	SourceWarehouseID string          `json:"source_warehouse_id"`
	Offers            []OfferEntry    `json:"offers"`
	Stocks            []StockEntry    `json:"stocks"`
}

func (req *UpsertProductRequest) validate() error {
	if req.Name == "" {
		return &ValidationError{Field: "name", Message: "不能为空"}
	}
	if req.MinStockLevel < 0 {
		return &ValidationError{Field: "min_stock_level", Message: "不能为负数"}
	}
	if req.RetailPrice.IsNegative() {
		return &ValidationError{Field: "retail_price", Message: "不能为负数"}
	}
	if req.WholesalePrice.IsNegative() {
		return &ValidationError{Field: "wholesale_price", Message: "不能为负数"}
	}
	switch req.UnitType {
	case "":
		req.UnitType = entity.UnitTypePiece
	case entity.UnitTypePiece, entity.UnitTypeBox, entity.UnitTypeKg, entity.UnitTypeLiter, entity.UnitTypeMeter:
	default:
		return &ValidationError{Field: "unit_type", Message: "无效的计量单位: " + req.UnitType}
	}
	seen := make(map[string]bool, len(req.Offers))
	for i, o := range req.Offers {
		if o.SupplierID == "" {
			return &ValidationError{Line: i + 1, Field: "supplier_id", Message: "不能为空"}
		}
		if o.SupplyPrice.IsNegative() {
			return &ValidationError{Line: i + 1, Field: "supply_price", Message: "不能为负数"}
		}
		if seen[o.SupplierID] {
			return &IntegrityError{Entity: "supplier_product", Message: "重复的供应商: " + o.SupplierID}
		}
		seen[o.SupplierID] = true
	}
	return validateStockEntries(req.Stocks)
}

// UpsertProduct 创建或更新商品，并在同一事务内整体替换报价和仓库库存
func (s *CatalogService) UpsertProduct(ctx context.Context, req UpsertProductRequest, userID string) (string, error) {
	if err := req.validate(); err != nil {
		return "", err
	}
	if req.SourceWarehouseID == "" && len(req.Stocks) > 0 {
		req.SourceWarehouseID = req.Stocks[0].WarehouseID
	}

	var productID string
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		repos := s.repos.WithTx(tx)
		now := time.Now()

		if req.SourceWarehouseID != "" {
			if _, err := repos.Warehouse.GetByID(ctx, req.SourceWarehouseID); err != nil {
				return &IntegrityError{Entity: "product", Message: "默认出货仓库不存在: " + req.SourceWarehouseID}
			}
		}
		if len(req.Offers) > 0 {
			ids := make([]string, 0, len(req.Offers))
			for _, o := range req.Offers {
				ids = append(ids, o.SupplierID)
			}
			n, err := repos.Supplier.CountExisting(ctx, ids)
			if err != nil {
				return fmt.Errorf("查询供应商失败: %w", err)
			}
			if n != int64(len(ids)) {
				return &IntegrityError{Entity: "supplier_product", Message: "引用了不存在的供应商"}
			}
		}

		product := &entity.Product{
			ID:                req.ID,
			Name:              req.Name,
			Description:       req.Description,
			UnitType:          req.UnitType,
			MinStockLevel:     req.MinStockLevel,
			RetailPrice:       req.RetailPrice,
			WholesalePrice:    req.WholesalePrice,
			SourceWarehouseID: req.SourceWarehouseID,
			UpdatedAt:         now,
		}
		if req.ID == "" {
			product.ID = uuid.New().String()
			product.Code = newCode(prefixProduct)
			product.CreatedBy = userID
			if err := repos.Product.Create(ctx, product); err != nil {
				return fmt.Errorf("创建商品失败: %w", err)
			}
		} else {
			if _, err := repos.Product.LockByID(ctx, req.ID); err != nil {
				return notFound("商品", err)
			}
			if err := repos.Product.UpdateAttributes(ctx, product); err != nil {
				return fmt.Errorf("更新商品失败: %w", err)
			}
		}
		productID = product.ID

		if err := repos.Supplier.DeleteOffersByProduct(ctx, productID); err != nil {
			return fmt.Errorf("清除供应商报价失败: %w", err)
		}
		for _, o := range req.Offers {
			supplyDate := now
			if o.SupplyDate != nil {
				supplyDate = *o.SupplyDate
			}
			offer := &entity.SupplierOffer{
				SupplierID:  o.SupplierID,
				ProductID:   productID,
				SupplyPrice: o.SupplyPrice,
				SupplyDate:  supplyDate,
				UpdatedAt:   now,
			}
			if err := repos.Supplier.UpsertOffer(ctx, offer); err != nil {
				return fmt.Errorf("写入供应商报价失败: %w", err)
			}
		}

		if err := s.ledger.ReplaceStock(ctx, tx, productID, req.Stocks); err != nil {
			return err
		}

		return s.activity.Append(ctx, tx, &entity.ActivityLog{
			UserID:     userID,
			ActionType: entity.ActionProductUpserted,
			ActionDetails: fmt.Sprintf("保存商品 %s: %d个报价, %d个仓库",
				req.Name, len(req.Offers), len(req.Stocks)),
			EntityType: "product",
			EntityID:   productID,
		})
	})
	if err != nil {
		return "", err
	}

	s.cache.Invalidate(ctx, productID)
	return productID, nil
}

// DeleteProduct 删除商品及其报价、库存和预警，已被订单引用时拒绝
func (s *CatalogService) DeleteProduct(ctx context.Context, id, userID string) error {
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		repos := s.repos.WithTx(tx)
		product, err := repos.Product.GetByID(ctx, id)
		if err != nil {
			return notFound("商品", err)
		}
		n, err := repos.Order.CountLinesByProduct(ctx, id)
		if err != nil {
			return fmt.Errorf("查询订单明细失败: %w", err)
		}
		if n > 0 {
			return &ReferentialDeleteError{Entity: "product", ID: id, Dependents: "订单明细", Count: n}
		}
		if err := repos.Supplier.DeleteOffersByProduct(ctx, id); err != nil {
			return fmt.Errorf("删除供应商报价失败: %w", err)
		}
		if err := repos.Stock.DeleteByProduct(ctx, id); err != nil {
			return fmt.Errorf("删除仓库库存失败: %w", err)
		}
		if err := repos.Alert.DeleteByProduct(ctx, id); err != nil {
			return fmt.Errorf("删除库存预警失败: %w", err)
		}
		if err := repos.Product.Delete(ctx, id); err != nil {
			return fmt.Errorf("删除商品失败: %w", err)
		}
		return s.activity.Append(ctx, tx, &entity.ActivityLog{
			UserID:        userID,
			ActionType:    entity.ActionProductDeleted,
			ActionDetails: fmt.Sprintf("删除商品 %s (%s)", product.Name, product.Code),
			EntityType:    "product",
			EntityID:      id,
		})
	})
	if err != nil {
		return err
	}
	s.cache.Invalidate(ctx, id)
	return nil
}

func (s *CatalogService) GetProduct(ctx context.Context, id string) (*entity.Product, error) {
	p, err := s.repos.Product.GetByID(ctx, id)
	if err != nil {
		return nil, notFound("商品", err)
	}
	return p, nil
}

func (s *CatalogService) ListProducts(ctx context.Context, params repository.ProductListParams) ([]entity.Product, int64, error) {
	return s.repos.Product.List(ctx, params)
}

// WarehouseQuantity 快照中单个仓库的库存
type WarehouseQuantity struct {
	WarehouseID   string `json:"warehouse_id"`
	WarehouseName string `json:"warehouse_name"`
	Quantity      int64  `json:"quantity"`
}

// SupplierPrice 快照中单个供应商的报价
type SupplierPrice struct {
	SupplierID   string          `json:"supplier_id"`
	SupplierName string          `json:"supplier_name"`
	SupplyPrice  decimal.Decimal `json:"supply_price"`
	SupplyDate   time.Time       `json:"supply_date"`
}

// ProductSnapshot 商品库存、报价和价格的只读视图
type ProductSnapshot struct {
	Product        entity.Product      `json:"product"`
	CurrentStock   int64               `json:"current_stock"`
	MinStockLevel  int64               `json:"min_stock_level"`
	BelowThreshold bool                `json:"below_threshold"`
	RetailPrice    decimal.Decimal     `json:"retail_price"`
	WholesalePrice decimal.Decimal     `json:"wholesale_price"`
	MinSupplyPrice decimal.Decimal     `json:"min_supply_price"`
	Warehouses     []WarehouseQuantity `json:"warehouses"`
	Offers         []SupplierPrice     `json:"offers"`
}

// GetProductSnapshot 读取商品快照，优先使用缓存
func (s *CatalogService) GetProductSnapshot(ctx context.Context, id string) (*ProductSnapshot, error) {
	if snap, ok := s.cache.Get(ctx, id); ok {
		return snap, nil
	}
	version := s.cache.Version(ctx, id)

	product, err := s.repos.Product.GetByID(ctx, id)
	if err != nil {
		return nil, notFound("商品", err)
	}
	stocks, err := s.repos.Stock.ListByProduct(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("查询仓库库存失败: %w", err)
	}
	offers, err := s.repos.Supplier.ListOffersByProduct(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("查询供应商报价失败: %w", err)
	}

	snap := &ProductSnapshot{
		Product:        *product,
		CurrentStock:   product.CurrentStock,
		MinStockLevel:  product.MinStockLevel,
		BelowThreshold: product.BelowThreshold(),
		RetailPrice:    product.RetailPrice,
		WholesalePrice: product.WholesalePrice,
		MinSupplyPrice: decimal.Zero,
		Warehouses:     make([]WarehouseQuantity, 0, len(stocks)),
		Offers:         make([]SupplierPrice, 0, len(offers)),
	}
	for _, st := range stocks {
		wq := WarehouseQuantity{WarehouseID: st.WarehouseID, Quantity: st.Quantity}
		if st.Warehouse != nil {
			wq.WarehouseName = st.Warehouse.Name
		}
		snap.Warehouses = append(snap.Warehouses, wq)
	}
	for i, o := range offers {
		sp := SupplierPrice{SupplierID: o.SupplierID, SupplyPrice: o.SupplyPrice, SupplyDate: o.SupplyDate}
		if o.Supplier != nil {
			sp.SupplierName = o.Supplier.Name
		}
		snap.Offers = append(snap.Offers, sp)
		if i == 0 || o.SupplyPrice.LessThan(snap.MinSupplyPrice) {
			snap.MinSupplyPrice = o.SupplyPrice
		}
	}

	s.cache.Set(ctx, snap, version)
	return snap, nil
}

// --- Supplier ---

type SupplierRequest struct {
	Name           string `json:"name" binding:"required"`
	ContactDetails string `json:"contact_details"`
}

func (s *CatalogService) CreateSupplier(ctx context.Context, req SupplierRequest, userID string) (*entity.Supplier, error) {
	if req.Name == "" {
		return nil, &ValidationError{Field: "name", Message: "不能为空"}
	}
	supplier := &entity.Supplier{
		ID:             uuid.New().String(),
		SupplierCode:   newCode(prefixSupplier),
		Name:           req.Name,
		ContactDetails: req.ContactDetails,
		CreatedBy:      userID,
	}
	if err := s.repos.Supplier.Create(ctx, supplier); err != nil {
		return nil, fmt.Errorf("创建供应商失败: %w", err)
	}
	return supplier, nil
}

func (s *CatalogService) UpdateSupplier(ctx context.Context, id string, req SupplierRequest) (*entity.Supplier, error) {
	supplier, err := s.repos.Supplier.GetByID(ctx, id)
	if err != nil {
		return nil, notFound("供应商", err)
	}
	if req.Name != "" {
		supplier.Name = req.Name
	}
	supplier.ContactDetails = req.ContactDetails
	if err := s.repos.Supplier.Update(ctx, supplier); err != nil {
		return nil, fmt.Errorf("更新供应商失败: %w", err)
	}
	return supplier, nil
}

func (s *CatalogService) GetSupplier(ctx context.Context, id string) (*entity.Supplier, error) {
	supplier, err := s.repos.Supplier.GetByID(ctx, id)
	if err != nil {
		return nil, notFound("供应商", err)
	}
	offers, err := s.repos.Supplier.ListOffersBySupplier(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("查询供应商报价失败: %w", err)
	}
	supplier.Offers = offers
	return supplier, nil
}

func (s *CatalogService) ListSuppliers(ctx context.Context, keyword string, page, size int) ([]repository.SupplierSummary, int64, error) {
	return s.repos.Supplier.List(ctx, keyword, page, size)
}

// DeleteSupplier 删除供应商并级联删除其报价
func (s *CatalogService) DeleteSupplier(ctx context.Context, id, userID string) error {
	var affected []string
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		repos := s.repos.WithTx(tx)
		supplier, err := repos.Supplier.GetByID(ctx, id)
		if err != nil {
			return notFound("供应商", err)
		}
		offers, err := repos.Supplier.ListOffersBySupplier(ctx, id)
		if err != nil {
			return fmt.Errorf("查询供应商报价失败: %w", err)
		}
		for _, o := range offers {
			affected = append(affected, o.ProductID)
		}
		if err := repos.Supplier.DeleteOffersBySupplier(ctx, id); err != nil {
			return fmt.Errorf("删除供应商报价失败: %w", err)
		}
		if err := repos.Supplier.Delete(ctx, id); err != nil {
			return fmt.Errorf("删除供应商失败: %w", err)
		}
		return s.activity.Append(ctx, tx, &entity.ActivityLog{
			UserID:        userID,
			ActionType:    entity.ActionSupplierDeleted,
			ActionDetails: fmt.Sprintf("删除供应商 %s, 级联%d个报价", supplier.Name, len(offers)),
			EntityType:    "supplier",
			EntityID:      id,
		})
	})
	if err != nil {
		return err
	}
	s.cache.Invalidate(ctx, affected...)
	return nil
}

// --- Supplier Offer ---

type SupplierOfferRequest struct {
	ProductID   string          `json:"product_id" binding:"required"`
	SupplyPrice decimal.Decimal `json:"supply_price"`
	SupplyDate  *time.Time      `json:"supply_date"`
}

// UpsertSupplierOffer 写入报价，同一 (供应商, 商品) 重复写入覆盖价格和日期
func (s *CatalogService) UpsertSupplierOffer(ctx context.Context, supplierID string, req SupplierOfferRequest) (*entity.SupplierOffer, error) {
	if req.SupplyPrice.IsNegative() {
		return nil, &ValidationError{Field: "supply_price", Message: "不能为负数"}
	}
	if _, err := s.repos.Supplier.GetByID(ctx, supplierID); err != nil {
		return nil, notFound("供应商", err)
	}
	if _, err := s.repos.Product.GetByID(ctx, req.ProductID); err != nil {
		return nil, notFound("商品", err)
	}
	now := time.Now()
	offer := &entity.SupplierOffer{
		SupplierID:  supplierID,
		ProductID:   req.ProductID,
		SupplyPrice: req.SupplyPrice,
		SupplyDate:  now,
		UpdatedAt:   now,
	}
	if req.SupplyDate != nil {
		offer.SupplyDate = *req.SupplyDate
	}
	if err := s.repos.Supplier.UpsertOffer(ctx, offer); err != nil {
		return nil, fmt.Errorf("写入供应商报价失败: %w", err)
	}
	s.cache.Invalidate(ctx, req.ProductID)
	return offer, nil
}

func (s *CatalogService) RemoveSupplierOffer(ctx context.Context, supplierID, productID string) error {
	ok, err := s.repos.Supplier.RemoveOffer(ctx, supplierID, productID)
	if err != nil {
		return fmt.Errorf("删除供应商报价失败: %w", err)
	}
	if !ok {
		return fmt.Errorf("供应商报价: %w", ErrNotFound)
	}
	s.cache.Invalidate(ctx, productID)
	return nil
}

// --- Warehouse ---

type WarehouseRequest struct {
	Name           string `json:"name" binding:"required"`
	Location       string `json:"location"`
	ContactDetails string `json:"contact_details"`
}

func (s *CatalogService) CreateWarehouse(ctx context.Context, req WarehouseRequest) (*entity.Warehouse, error) {
	if req.Name == "" {
		return nil, &ValidationError{Field: "name", Message: "不能为空"}
	}
	wh := &entity.Warehouse{
		ID:             uuid.New().String(),
		Code:           newCode(prefixWarehouse),
		Name:           req.Name,
		Location:       req.Location,
		ContactDetails: req.ContactDetails,
	}
	if err := s.repos.Warehouse.Create(ctx, wh); err != nil {
		return nil, fmt.Errorf("创建仓库失败: %w", err)
	}
	return wh, nil
}

func (s *CatalogService) UpdateWarehouse(ctx context.Context, id string, req WarehouseRequest) (*entity.Warehouse, error) {
	wh, err := s.repos.Warehouse.GetByID(ctx, id)
	if err != nil {
		return nil, notFound("仓库", err)
	}
	if req.Name != "" {
		wh.Name = req.Name
	}
	wh.Location = req.Location
	wh.ContactDetails = req.ContactDetails
	if err := s.repos.Warehouse.Update(ctx, wh); err != nil {
		return nil, fmt.Errorf("更新仓库失败: %w", err)
	}
	return wh, nil
}

func (s *CatalogService) GetWarehouse(ctx context.Context, id string) (*entity.Warehouse, error) {
	wh, err := s.repos.Warehouse.GetByID(ctx, id)
	if err != nil {
		return nil, notFound("仓库", err)
	}
	return wh, nil
}

func (s *CatalogService) ListWarehouses(ctx context.Context) ([]entity.Warehouse, error) {
	return s.repos.Warehouse.List(ctx)
}

// DeleteWarehouse 仓库内仍有正库存时拒绝删除，否则删除零库存行和仓库
//
// 仓库行和库存行在检查前加锁，库存写入方对仓库持共享锁，检查与删除之间不会插入新库存。
func (s *CatalogService) DeleteWarehouse(ctx context.Context, id, userID string) error {
	var affected []string
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		repos := s.repos.WithTx(tx)
		wh, err := repos.Warehouse.LockByID(ctx, id)
		if err != nil {
			return notFound("仓库", err)
		}
		rows, err := repos.Stock.LockByWarehouse(ctx, id)
		if err != nil {
			return fmt.Errorf("查询仓库库存失败: %w", err)
		}
		var stocked int64
		for _, r := range rows {
			if r.Quantity > 0 {
				stocked++
			}
		}
		if stocked > 0 {
			return &ReferentialDeleteError{Entity: "warehouse", ID: id, Dependents: "有库存的商品", Count: stocked}
		}
		if err := repos.Stock.DeleteEmptyByWarehouse(ctx, id); err != nil {
			return fmt.Errorf("删除仓库库存失败: %w", err)
		}
		remaining, err := repos.Stock.CountByWarehouse(ctx, id)
		if err != nil {
			return fmt.Errorf("查询仓库库存失败: %w", err)
		}
		if remaining > 0 {
			return &ReferentialDeleteError{Entity: "warehouse", ID: id, Dependents: "有库存的商品", Count: remaining}
		}
		for _, r := range rows {
			affected = append(affected, r.ProductID)
		}
		if err := repos.Product.ClearSourceWarehouse(ctx, id); err != nil {
			return fmt.Errorf("更新商品出货仓库失败: %w", err)
		}
		if err := repos.Warehouse.Delete(ctx, id); err != nil {
			return fmt.Errorf("删除仓库失败: %w", err)
		}
		return s.activity.Append(ctx, tx, &entity.ActivityLog{
			UserID:        userID,
			ActionType:    entity.ActionWarehouseDeleted,
			ActionDetails: fmt.Sprintf("删除仓库 %s (%s)", wh.Name, wh.Code),
			EntityType:    "warehouse",
			EntityID:      id,
		})
	})
	if err != nil {
		return err
	}
	s.cache.Invalidate(ctx, affected...)
	return nil
}
