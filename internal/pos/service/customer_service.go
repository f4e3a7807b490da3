package service

import (
	"context"
	"fmt"

	"github.com/bitfantasy/nimo-pos/internal/pos/entity"
	"github.com/bitfantasy/nimo-pos/internal/pos/repository"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

type CustomerService struct {
	db    *gorm.DB
	repos *repository.Repositories
}

func NewCustomerService(db *gorm.DB, repos *repository.Repositories) *CustomerService {
	return &CustomerService{db: db, repos: repos}
}

type CustomerRequest struct {
	Name           string          `json:"name" binding:"required"`
	Address        string          `json:"address"`
	Phone          string          `json:"phone"`
	DiscountAmount decimal.Decimal `json:"discount_amount"`
}

func (req CustomerRequest) validate() error {
	if req.Name == "" {
		return &ValidationError{Field: "name", Message: "不能为空"}
	}
	if req.DiscountAmount.IsNegative() {
		return &ValidationError{Field: "discount_amount", Message: "不能为负数"}
	}
	return nil
}

func (s *CustomerService) CreateCustomer(ctx context.Context, req CustomerRequest, userID string) (*entity.Customer, error) {
	if err := req.validate(); err != nil {
		return nil, err
	}
	customer := &entity.Customer{
		ID:             uuid.New().String(),
		CustomerCode:   newCode(prefixCustomer),
		Name:           req.Name,
		Address:        req.Address,
		Phone:          req.Phone,
		DiscountAmount: req.DiscountAmount,
		CreatedBy:      userID,
	}
	if err := s.repos.Customer.Create(ctx, customer); err != nil {
		return nil, fmt.Errorf("创建客户失败: %w", err)
	}
	return customer, nil
}

func (s *CustomerService) UpdateCustomer(ctx context.Context, id string, req CustomerRequest) (*entity.Customer, error) {
	if err := req.validate(); err != nil {
		return nil, err
	}
	customer, err := s.repos.Customer.GetByID(ctx, id)
	if err != nil {
		return nil, notFound("客户", err)
	}
	customer.Name = req.Name
	customer.Address = req.Address
	customer.Phone = req.Phone
	customer.DiscountAmount = req.DiscountAmount
	if err := s.repos.Customer.Update(ctx, customer); err != nil {
		return nil, fmt.Errorf("更新客户失败: %w", err)
	}
	return customer, nil
}

func (s *CustomerService) GetCustomer(ctx context.Context, id string) (*entity.Customer, error) {
	customer, err := s.repos.Customer.GetByID(ctx, id)
	if err != nil {
		return nil, notFound("客户", err)
	}
	return customer, nil
}

func (s *CustomerService) ListCustomers(ctx context.Context, keyword string, page, size int) ([]entity.Customer, int64, error) {
	return s.repos.Customer.List(ctx, keyword, page, size)
}

// DeleteCustomer 客户已有订单时拒绝删除
func (s *CustomerService) DeleteCustomer(ctx context.Context, id string) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		repos := s.repos.WithTx(tx)
		if _, err := repos.Customer.GetByID(ctx, id); err != nil {
			return notFound("客户", err)
		}
		n, err := repos.Order.CountByCustomer(ctx, id)
		if err != nil {
			return fmt.Errorf("查询客户订单失败: %w", err)
		}
		if n > 0 {
			return &ReferentialDeleteError{Entity: "customer", ID: id, Dependents: "订单", Count: n}
		}
		if err := repos.Customer.Delete(ctx, id); err != nil {
			return fmt.Errorf("删除客户失败: %w", err)
		}
		return nil
	})
}
