package service

import (
	"context"
	"fmt"

	"github.com/bitfantasy/nimo-pos/internal/pos/entity"
	"github.com/bitfantasy/nimo-pos/internal/pos/repository"
	"gorm.io/gorm"
)

// ActivityService 操作日志，只追加
type ActivityService struct {
	repos *repository.Repositories
}

func NewActivityService(repos *repository.Repositories) *ActivityService {
	return &ActivityService{repos: repos}
}

// Append 在调用方事务内追加日志
func (s *ActivityService) Append(ctx context.Context, tx *gorm.DB, log *entity.ActivityLog) error {
	if err := s.repos.WithTx(tx).ActivityLog.Create(ctx, log); err != nil {
		return fmt.Errorf("写入操作日志失败: %w", err)
	}
	return nil
}

func (s *ActivityService) List(ctx context.Context, params repository.ActivityLogListParams) ([]entity.ActivityLog, int64, error) {
	return s.repos.ActivityLog.List(ctx, params)
}
