package service

import (
	"errors"
	"fmt"

	"gorm.io/gorm"
)

// ErrNotFound 记录不存在
var ErrNotFound = errors.New("记录不存在")

// ValidationError 提交前的校验失败，Line 从1开始，0 表示不针对某一行
type ValidationError struct {
	Line    int
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	if e.Line > 0 {
		return fmt.Sprintf("第%d行 %s: %s", e.Line, e.Field, e.Message)
	}
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

// InsufficientStockError 扣减会导致库存为负，Available 为当前可用数量
type InsufficientStockError struct {
	Line        int
	ProductID   string
	WarehouseID string
	Requested   int64
	Available   int64
}

func (e *InsufficientStockError) Error() string {
	return fmt.Sprintf("库存不足: 商品 %s 仓库 %s 需要%d, 可用%d", e.ProductID, e.WarehouseID, e.Requested, e.Available)
}

// IntegrityError 重复关联或引用不存在的记录
type IntegrityError struct {
	Entity  string
	Message string
}

func (e *IntegrityError) Error() string {
	return fmt.Sprintf("%s 数据完整性错误: %s", e.Entity, e.Message)
}

// ReferentialDeleteError 存在依赖记录，拒绝删除
type ReferentialDeleteError struct {
	Entity     string
	ID         string
	Dependents string
	Count      int64
}

func (e *ReferentialDeleteError) Error() string {
	return fmt.Sprintf("%s %s 不能删除: 存在%d条%s", e.Entity, e.ID, e.Count, e.Dependents)
}

// notFound 将 gorm.ErrRecordNotFound 转换为 ErrNotFound
func notFound(what string, err error) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return fmt.Errorf("%s: %w", what, ErrNotFound)
	}
	return fmt.Errorf("查询%s失败: %w", what, err)
}
