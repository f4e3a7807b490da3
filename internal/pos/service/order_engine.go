package service

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/bitfantasy/nimo-pos/internal/pos/entity"
	"github.com/bitfantasy/nimo-pos/internal/pos/events"
	"github.com/bitfantasy/nimo-pos/internal/pos/metrics"
	"github.com/bitfantasy/nimo-pos/internal/pos/repository"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

var hundred = decimal.NewFromInt(100)

// OrderEngine 订单提交
//
// 草稿经过校验后在一个事务内写入订单、明细、扣减库存、计算利润、
// 发起预警、开具发票并记录日志，任一步失败整体回滚。
type OrderEngine struct {
	db             *gorm.DB
	repos          *repository.Repositories
	ledger         *StockLedger
	alerts         *AlertService
	activity       *ActivityService
	cache          *SnapshotCache
	archive        *InvoiceArchive
	events         *events.Hub
	defaultTaxRate decimal.Decimal
	logger         *zap.Logger
}

func NewOrderEngine(db *gorm.DB, repos *repository.Repositories, ledger *StockLedger, alerts *AlertService,
	activity *ActivityService, cache *SnapshotCache, archive *InvoiceArchive, defaultTaxRate decimal.Decimal, logger *zap.Logger) *OrderEngine {
	return &OrderEngine{
		db:             db,
		repos:          repos,
		ledger:         ledger,
		alerts:         alerts,
		activity:       activity,
		cache:          cache,
		archive:        archive,
		defaultTaxRate: defaultTaxRate,
		logger:         logger,
	}
}

// plannedLine 校验后的订单行
type plannedLine struct {
	DraftLine
	product *entity.Product
	amount  decimal.Decimal
}

type orderPlan struct {
	customer *entity.Customer
	lines    []plannedLine
	subtotal decimal.Decimal
	discount decimal.Decimal
	taxRate  decimal.Decimal
	alerted  []string // 本次提交触发预警的商品
}

// productIDs 去重并升序排列的商品ID，加锁按这个顺序进行
func (p *orderPlan) productIDs() []string {
	seen := make(map[string]bool, len(p.lines))
	ids := make([]string, 0, len(p.lines))
	for _, l := range p.lines {
		if !seen[l.ProductID] {
			seen[l.ProductID] = true
			ids = append(ids, l.ProductID)
		}
	}
	sort.Strings(ids)
	return ids
}

// decrementOrder 按 (warehouse_id, product_id) 排序的行下标，并发订单以相同顺序锁库存行
func (p *orderPlan) decrementOrder() []int {
	idx := make([]int, len(p.lines))
	for i := range idx {
		idx[i] = i
	}
	sort.SliceStable(idx, func(a, b int) bool {
		la, lb := p.lines[idx[a]], p.lines[idx[b]]
		if la.WarehouseID != lb.WarehouseID {
			return la.WarehouseID < lb.WarehouseID
		}
		return la.ProductID < lb.ProductID
	})
	return idx
}

type stockKey struct {
	productID   string
	warehouseID string
}

// SubmitOrder 校验并提交草稿，成功返回发票
//
// 失败时草稿进入 REJECTED 状态，错误为 *ValidationError、*InsufficientStockError
// 或存储错误，数据库中不留下任何该次提交的记录。
func (e *OrderEngine) SubmitOrder(ctx context.Context, d *Draft) (*entity.Invoice, error) {
	if err := d.begin(); err != nil {
		return nil, err
	}

	plan, err := e.validate(ctx, d)
	if err != nil {
		return nil, e.reject(d, err)
	}
	if err := ctx.Err(); err != nil {
		return nil, e.reject(d, err)
	}

	start := time.Now()
	order, invoice, err := e.commit(ctx, d, plan)
	if err != nil {
		return nil, e.reject(d, err)
	}
	metrics.ObserveCommit(start)
	metrics.OrdersCommitted.Inc()
	metrics.StockAlertsRaised.Add(float64(len(plan.alerted)))
	d.commit()

	e.logger.Info("Order committed",
		zap.String("order_code", order.OrderCode),
		zap.String("invoice_code", invoice.InvoiceCode),
		zap.String("total", invoice.TotalAmount.StringFixed(2)),
		zap.String("profit", invoice.Profit.StringFixed(2)),
		zap.Int("lines", len(order.Lines)))

	productIDs := plan.productIDs()
	e.cache.Invalidate(ctx, productIDs...)
	e.archive.Put(ctx, order, invoice)
	e.events.Publish(events.TypeOrderCommitted, map[string]interface{}{
		"order_id":     order.ID,
		"order_code":   order.OrderCode,
		"invoice_code": invoice.InvoiceCode,
		"total_amount": invoice.TotalAmount.StringFixed(2),
		"product_ids":  productIDs,
	})
	for _, id := range plan.alerted {
		e.events.Publish(events.TypeStockAlert, map[string]string{"product_id": id, "order_id": order.ID})
	}

	return invoice, nil
}

func (e *OrderEngine) reject(d *Draft, err error) error {
	d.reject(err)

	var ve *ValidationError
	var se *InsufficientStockError
	switch {
	case errors.As(err, &ve):
		metrics.OrdersRejected.WithLabelValues("validation").Inc()
		e.logger.Warn("Order rejected", zap.String("reason", "validation"), zap.Error(err))
	case errors.As(err, &se):
		metrics.OrdersRejected.WithLabelValues("insufficient_stock").Inc()
		e.logger.Warn("Order rejected", zap.String("reason", "insufficient_stock"),
			zap.String("product_id", se.ProductID),
			zap.Int64("requested", se.Requested),
			zap.Int64("available", se.Available))
	default:
		metrics.OrdersRejected.WithLabelValues("error").Inc()
		e.logger.Error("Order commit failed", zap.Error(err))
	}
	return err
}

// validate 提交前校验，读取的库存只用于提前拒绝，提交时在事务内重新检查
func (e *OrderEngine) validate(ctx context.Context, d *Draft) (*orderPlan, error) {
	if len(d.lines) == 0 {
		return nil, &ValidationError{Field: "lines", Message: "订单至少需要一行"}
	}

	productIDs := make([]string, 0, len(d.lines))
	for i, l := range d.lines {
		if l.ProductID == "" {
			return nil, &ValidationError{Line: i + 1, Field: "product_id", Message: "不能为空"}
		}
		if l.Quantity <= 0 {
			return nil, &ValidationError{Line: i + 1, Field: "quantity", Message: "数量必须大于0"}
		}
		if l.SalePrice.IsNegative() {
			return nil, &ValidationError{Line: i + 1, Field: "sale_price", Message: "售价不能为负数"}
		}
		if _, ok := normalizePriceType(l.PriceType); !ok {
			return nil, &ValidationError{Line: i + 1, Field: "price_type", Message: "无效的价格类型: " + l.PriceType}
		}
		productIDs = append(productIDs, l.ProductID)
	}

	products, err := e.repos.Product.GetByIDs(ctx, productIDs)
	if err != nil {
		return nil, fmt.Errorf("查询商品失败: %w", err)
	}

	plan := &orderPlan{subtotal: decimal.Zero}
	if d.customerID != nil {
		customer, err := e.repos.Customer.GetByID(ctx, *d.customerID)
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return nil, &ValidationError{Field: "customer_id", Message: "客户不存在"}
			}
			return nil, fmt.Errorf("查询客户失败: %w", err)
		}
		plan.customer = customer
	}

	requested := make(map[stockKey]int64)
	available := make(map[stockKey]int64)
	warehouses := make(map[string]bool)
	for i, l := range d.lines {
		product, ok := products[l.ProductID]
		if !ok {
			return nil, &ValidationError{Line: i + 1, Field: "product_id", Message: "商品不存在: " + l.ProductID}
		}
		line := plannedLine{DraftLine: l, product: product}
		line.PriceType, _ = normalizePriceType(l.PriceType)
		if line.WarehouseID == "" {
			line.WarehouseID = product.SourceWarehouseID
		}
		if line.WarehouseID == "" {
			return nil, &ValidationError{Line: i + 1, Field: "warehouse_id", Message: "商品没有默认出货仓库"}
		}
		exists, checked := warehouses[line.WarehouseID]
		if !checked {
			if _, err := e.repos.Warehouse.GetByID(ctx, line.WarehouseID); err != nil {
				if !errors.Is(err, gorm.ErrRecordNotFound) {
					return nil, fmt.Errorf("查询仓库失败: %w", err)
				}
			} else {
				exists = true
			}
			warehouses[line.WarehouseID] = exists
		}
		if !exists {
			return nil, &ValidationError{Line: i + 1, Field: "warehouse_id", Message: "仓库不存在: " + line.WarehouseID}
		}

		key := stockKey{productID: l.ProductID, warehouseID: line.WarehouseID}
		avail, seen := available[key]
		if !seen {
			if avail, err = e.repos.Stock.GetQuantity(ctx, line.WarehouseID, l.ProductID); err != nil {
				return nil, fmt.Errorf("查询库存失败: %w", err)
			}
			available[key] = avail
		}
		requested[key] += l.Quantity
		if requested[key] > avail {
			return nil, &InsufficientStockError{
				Line:        i + 1,
				ProductID:   l.ProductID,
				WarehouseID: line.WarehouseID,
				Requested:   requested[key],
				Available:   avail,
			}
		}

		line.amount = l.SalePrice.Mul(decimal.NewFromInt(l.Quantity))
		plan.subtotal = plan.subtotal.Add(line.amount)
		plan.lines = append(plan.lines, line)
	}

	switch {
	case d.discount != nil:
		if d.discount.IsNegative() {
			return nil, &ValidationError{Field: "discount", Message: "折扣不能为负数"}
		}
		if d.discount.GreaterThan(plan.subtotal) {
			return nil, &ValidationError{Field: "discount", Message: "折扣不能超过订单金额"}
		}
		plan.discount = *d.discount
	case plan.customer != nil:
		plan.discount = decimal.Min(plan.customer.DiscountAmount, plan.subtotal)
	default:
		plan.discount = decimal.Zero
	}

	switch {
	case d.taxRate != nil:
		if d.taxRate.IsNegative() {
			return nil, &ValidationError{Field: "tax_rate", Message: "税率不能为负数"}
		}
		plan.taxRate = *d.taxRate
	case d.applyDefaultTax:
		plan.taxRate = e.defaultTaxRate
	default:
		plan.taxRate = decimal.Zero
	}

	return plan, nil
}

func (e *OrderEngine) commit(ctx context.Context, d *Draft, plan *orderPlan) (*entity.Order, *entity.Invoice, error) {
	now := time.Now()
	order := &entity.Order{
		ID:         uuid.New().String(),
		OrderCode:  newCode(prefixOrder),
		CustomerID: d.customerID,
		OrderDate:  now,
		TotalPrice: plan.subtotal,
		CreatedBy:  d.userID,
		CreatedAt:  now,
	}
	var invoice *entity.Invoice

	err := e.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		repos := e.repos.WithTx(tx)

		productIDs := plan.productIDs()
		locked, err := repos.Product.LockByIDs(ctx, productIDs)
		if err != nil {
			return fmt.Errorf("锁定商品失败: %w", err)
		}
		if locked != len(productIDs) {
			return &IntegrityError{Entity: "product", Message: "订单商品已被删除"}
		}

		// 供货价在事务内读取
		profit := decimal.Zero
		lines := make([]entity.OrderLine, 0, len(plan.lines))
		for _, l := range plan.lines {
			cost, err := repos.Supplier.MinSupplyPrice(ctx, l.ProductID)
			if err != nil {
				return fmt.Errorf("查询供货价失败: %w", err)
			}
			qty := decimal.NewFromInt(l.Quantity)
			profit = profit.Add(l.SalePrice.Sub(cost).Mul(qty))
			lines = append(lines, entity.OrderLine{
				ID:          uuid.New().String(),
				OrderID:     order.ID,
				ProductID:   l.ProductID,
				WarehouseID: l.WarehouseID,
				Quantity:    l.Quantity,
				SalePrice:   l.SalePrice,
				PriceType:   l.PriceType,
				SupplyCost:  cost,
				Amount:      l.amount,
				CreatedAt:   now,
			})
		}
		order.Lines = lines
		if err := repos.Order.CreateOrder(ctx, order); err != nil {
			return fmt.Errorf("创建订单失败: %w", err)
		}

		for _, i := range plan.decrementOrder() {
			l := plan.lines[i]
			if err := e.ledger.DecrementForSale(ctx, tx, l.ProductID, l.WarehouseID, l.Quantity); err != nil {
				var se *InsufficientStockError
				if errors.As(err, &se) {
					se.Line = i + 1
				}
				return err
			}
		}

		plan.alerted = plan.alerted[:0]
		for _, id := range productIDs {
			raised, err := e.alerts.RaiseIfBelowThreshold(ctx, tx, id)
			if err != nil {
				return err
			}
			if raised {
				plan.alerted = append(plan.alerted, id)
			}
		}

		taxable := plan.subtotal.Sub(plan.discount)
		taxAmount := taxable.Mul(plan.taxRate).Div(hundred).Round(2)
		invoice = &entity.Invoice{
			ID:          uuid.New().String(),
			InvoiceCode: newCode(prefixInvoice),
			OrderID:     order.ID,
			Subtotal:    plan.subtotal,
			Discount:    plan.discount,
			TaxRate:     plan.taxRate,
			TaxAmount:   taxAmount,
			TotalAmount: taxable.Add(taxAmount),
			Profit:      profit,
			InvoiceDate: now,
			CreatedAt:   now,
		}
		if err := repos.Order.CreateInvoice(ctx, invoice); err != nil {
			return fmt.Errorf("创建发票失败: %w", err)
		}

		customer := "现金散客"
		if plan.customer != nil {
			customer = plan.customer.Name
		}
		return e.activity.Append(ctx, tx, &entity.ActivityLog{
			UserID:     d.userID,
			ActionType: entity.ActionOrderCreated,
			ActionDetails: fmt.Sprintf("创建订单 %s: 客户 %s, %d行, 发票 %s 合计 %s",
				order.OrderCode, customer, len(lines), invoice.InvoiceCode, invoice.TotalAmount.StringFixed(2)),
			EntityType: "order",
			EntityID:   order.ID,
		})
	})
	if err != nil {
		return nil, nil, err
	}

	order.Invoice = invoice
	return order, invoice, nil
}

func (e *OrderEngine) GetOrder(ctx context.Context, id string) (*entity.Order, error) {
	order, err := e.repos.Order.GetByID(ctx, id)
	if err != nil {
		return nil, notFound("订单", err)
	}
	return order, nil
}

func (e *OrderEngine) ListOrders(ctx context.Context, params repository.OrderListParams) ([]entity.Order, int64, error) {
	return e.repos.Order.List(ctx, params)
}

func (e *OrderEngine) GetInvoiceByOrder(ctx context.Context, orderID string) (*entity.Invoice, error) {
	inv, err := e.repos.Order.GetInvoiceByOrder(ctx, orderID)
	if err != nil {
		return nil, notFound("发票", err)
	}
	return inv, nil
}
