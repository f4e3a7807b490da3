package service

import (
	"errors"
	"fmt"

	"github.com/bitfantasy/nimo-pos/internal/pos/entity"
	"github.com/shopspring/decimal"
)

// DraftState 订单草稿状态
type DraftState string

const (
	DraftStateDraft      DraftState = "DRAFT"
	DraftStateValidating DraftState = "VALIDATING"
	DraftStateCommitted  DraftState = "COMMITTED"
	DraftStateRejected   DraftState = "REJECTED"
)

// ErrDraftLocked 草稿不在 DRAFT 状态，不能修改或提交
var ErrDraftLocked = errors.New("订单草稿已提交")

// DraftLine 草稿行，WarehouseID 为空时使用商品的默认出货仓库
type DraftLine struct {
	ProductID   string          `json:"product_id" binding:"required"`
	WarehouseID string          `json:"warehouse_id"`
	Quantity    int64           `json:"quantity"`
	SalePrice   decimal.Decimal `json:"sale_price"`
	PriceType   string          `json:"price_type"`
}

// Draft 尚未持久化的订单，由发起会话持有
//
// Draft 不是并发安全的，每个会话使用自己的 Draft。
type Draft struct {
	userID          string
	customerID      *string
	lines           []DraftLine
	discount        *decimal.Decimal
	taxRate         *decimal.Decimal
	applyDefaultTax bool

	state     DraftState
	rejection error
}

func NewDraft(userID string) *Draft {
	return &Draft{userID: userID, state: DraftStateDraft}
}

func (d *Draft) State() DraftState { return d.state }

// Rejection 被拒绝的原因，未被拒绝时为 nil
func (d *Draft) Rejection() error { return d.rejection }

func (d *Draft) UserID() string { return d.userID }

func (d *Draft) CustomerID() *string { return d.customerID }

func (d *Draft) Lines() []DraftLine {
	out := make([]DraftLine, len(d.lines))
	copy(out, d.lines)
	return out
}

func (d *Draft) editable() error {
	if d.state != DraftStateDraft {
		return fmt.Errorf("%w: 当前状态 %s", ErrDraftLocked, d.state)
	}
	return nil
}

// SetCustomer 设置客户，空字符串表示现金散客
func (d *Draft) SetCustomer(customerID string) error {
	if err := d.editable(); err != nil {
		return err
	}
	if customerID == "" {
		d.customerID = nil
		return nil
	}
	d.customerID = &customerID
	return nil
}

func (d *Draft) AddLine(line DraftLine) error {
	if err := d.editable(); err != nil {
		return err
	}
	d.lines = append(d.lines, line)
	return nil
}

// SetQuantity 修改第 n 行数量，n 从1开始
func (d *Draft) SetQuantity(n int, quantity int64) error {
	if err := d.editable(); err != nil {
		return err
	}
	if n < 1 || n > len(d.lines) {
		return &ValidationError{Line: n, Field: "line", Message: "行号超出范围"}
	}
	d.lines[n-1].Quantity = quantity
	return nil
}

func (d *Draft) RemoveLine(n int) error {
	if err := d.editable(); err != nil {
		return err
	}
	if n < 1 || n > len(d.lines) {
		return &ValidationError{Line: n, Field: "line", Message: "行号超出范围"}
	}
	d.lines = append(d.lines[:n-1], d.lines[n:]...)
	return nil
}

// SetDiscount 覆盖客户折扣，固定金额
func (d *Draft) SetDiscount(amount decimal.Decimal) error {
	if err := d.editable(); err != nil {
		return err
	}
	d.discount = &amount
	return nil
}

// SetTaxRate 税率百分比，如 14 表示 14%
func (d *Draft) SetTaxRate(rate decimal.Decimal) error {
	if err := d.editable(); err != nil {
		return err
	}
	d.taxRate = &rate
	return nil
}

// ApplyDefaultTax 未设置税率时使用配置的默认税率
func (d *Draft) ApplyDefaultTax(apply bool) error {
	if err := d.editable(); err != nil {
		return err
	}
	d.applyDefaultTax = apply
	return nil
}

// Subtotal 行金额合计，不含折扣和税
func (d *Draft) Subtotal() decimal.Decimal {
	total := decimal.Zero
	for _, l := range d.lines {
		total = total.Add(l.SalePrice.Mul(decimal.NewFromInt(l.Quantity)))
	}
	return total
}

// Reopen 被拒绝的草稿回到 DRAFT 状态，可调整后重新提交
func (d *Draft) Reopen() error {
	if d.state != DraftStateRejected {
		return fmt.Errorf("%w: 只有被拒绝的草稿可以重新打开", ErrDraftLocked)
	}
	d.state = DraftStateDraft
	d.rejection = nil
	return nil
}

func (d *Draft) begin() error {
	if err := d.editable(); err != nil {
		return err
	}
	d.state = DraftStateValidating
	return nil
}

func (d *Draft) reject(err error) {
	d.state = DraftStateRejected
	d.rejection = err
}

func (d *Draft) commit() {
	d.state = DraftStateCommitted
}

// SubmitOrderRequest 下单请求
type SubmitOrderRequest struct {
	CustomerID      string           `json:"customer_id"`
	Lines           []DraftLine      `json:"lines" binding:"required,min=1,dive"`
	Discount        *decimal.Decimal `json:"discount"`
	TaxRate         *decimal.Decimal `json:"tax_rate"`
	ApplyDefaultTax bool             `json:"apply_default_tax"`
}

// ToDraft 将请求转换为草稿
func (req SubmitOrderRequest) ToDraft(userID string) *Draft {
	d := NewDraft(userID)
	_ = d.SetCustomer(req.CustomerID)
	for _, l := range req.Lines {
		_ = d.AddLine(l)
	}
	if req.Discount != nil {
		_ = d.SetDiscount(*req.Discount)
	}
	if req.TaxRate != nil {
		_ = d.SetTaxRate(*req.TaxRate)
	}
	_ = d.ApplyDefaultTax(req.ApplyDefaultTax)
	return d
}

func normalizePriceType(t string) (string, bool) {
	if t == "" {
		return entity.PriceTypeRetail, true
	}
	return t, entity.ValidPriceType(t)
}
