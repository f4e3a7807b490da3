package repository

import (
	"context"

	"github.com/bitfantasy/nimo-pos/internal/pos/entity"
	"gorm.io/gorm"
)

type WarehouseRepository struct {
	db *gorm.DB
}

func NewWarehouseRepository(db *gorm.DB) *WarehouseRepository {
	return &WarehouseRepository{db: db}
}

func (r *WarehouseRepository) Create(ctx context.Context, w *entity.Warehouse) error {
	return r.db.WithContext(ctx).Create(w).Error
}

func (r *WarehouseRepository) GetByID(ctx context.Context, id string) (*entity.Warehouse, error) {
	var w entity.Warehouse
	if err := r.db.WithContext(ctx).Where("id = ?", id).First(&w).Error; err != nil {
		return nil, err
	}
	return &w, nil
}

// LockByID 读取仓库并加写锁，与 LockExisting 互斥
func (r *WarehouseRepository) LockByID(ctx context.Context, id string) (*entity.Warehouse, error) {
	var w entity.Warehouse
	err := withLock(r.db.WithContext(ctx), entity.Warehouse{}.TableName(), lockUpdate).
		Where("id = ?", id).First(&w).Error
	if err != nil {
		return nil, err
	}
	return &w, nil
}

func (r *WarehouseRepository) Update(ctx context.Context, w *entity.Warehouse) error {
	return r.db.WithContext(ctx).Save(w).Error
}

func (r *WarehouseRepository) Delete(ctx context.Context, id string) error {
	return r.db.WithContext(ctx).Where("id = ?", id).Delete(&entity.Warehouse{}).Error
}

// LockExisting 对存在的仓库加共享锁并返回数量，仓库在事务结束前不能被删除
func (r *WarehouseRepository) LockExisting(ctx context.Context, ids []string) (int64, error) {
	var items []entity.Warehouse
	err := withLock(r.db.WithContext(ctx), entity.Warehouse{}.TableName(), lockShare).
		Select("id").Where("id IN ?", ids).Order("id ASC").Find(&items).Error
	return int64(len(items)), err
}

func (r *WarehouseRepository) List(ctx context.Context) ([]entity.Warehouse, error) {
	var items []entity.Warehouse
	err := r.db.WithContext(ctx).Order("name ASC").Find(&items).Error
	return items, err
}
