package repos

import (
	"context"

	"gorm.io/gorm"

	"github.com/yungbote/streamvault-backend/internal/logger"
	"github.com/yungbote/streamvault-backend/internal/types"
)

type RoleBindingRepo interface {
	Create(ctx context.Context, tx *gorm.DB, binding *types.RoleBinding) (*types.RoleBinding, error)
	Exists(ctx context.Context, tx *gorm.DB, role, identity string) (bool, error)
	Delete(ctx context.Context, tx *gorm.DB, role, identity string) (int64, error)
	CountByRole(ctx context.Context, tx *gorm.DB, role string) (int64, error)
	ListByRole(ctx context.Context, tx *gorm.DB, role string) ([]*types.RoleBinding, error)
}

type roleBindingRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewRoleBindingRepo(db *gorm.DB, baseLog *logger.Logger) RoleBindingRepo {
	repoLog := baseLog.With("repo", "RoleBindingRepo")
	return &roleBindingRepo{db: db, log: repoLog}
}

func (rr *roleBindingRepo) Create(ctx context.Context, tx *gorm.DB, binding *types.RoleBinding) (*types.RoleBinding, error) {
	transaction := tx
	if transaction == nil {
		transaction = rr.db
	}
	if err := transaction.WithContext(ctx).Create(binding).Error; err != nil {
		return nil, err
	}
	return binding, nil
}

func (rr *roleBindingRepo) Exists(ctx context.Context, tx *gorm.DB, role, identity string) (bool, error) {
	transaction := tx
	if transaction == nil {
		transaction = rr.db
	}
	var count int64
	if err := transaction.WithContext(ctx).
		Model(&types.RoleBinding{}).
		Where("role = ? AND identity = ?", role, identity).
		Count(&count).Error; err != nil {
		return false, err
	}
	return count > 0, nil
}

func (rr *roleBindingRepo) Delete(ctx context.Context, tx *gorm.DB, role, identity string) (int64, error) {
	transaction := tx
	if transaction == nil {
		transaction = rr.db
	}
	result := transaction.WithContext(ctx).
		Where("role = ? AND identity = ?", role, identity).
		Delete(&types.RoleBinding{})
	if result.Error != nil {
		return 0, result.Error
	}
	return result.RowsAffected, nil
}

func (rr *roleBindingRepo) CountByRole(ctx context.Context, tx *gorm.DB, role string) (int64, error) {
	transaction := tx
	if transaction == nil {
		transaction = rr.db
	}
	var count int64
	if err := transaction.WithContext(ctx).
		Model(&types.RoleBinding{}).
		Where("role = ?", role).
		Count(&count).Error; err != nil {
		return 0, err
	}
	return count, nil
}

func (rr *roleBindingRepo) ListByRole(ctx context.Context, tx *gorm.DB, role string) ([]*types.RoleBinding, error) {
	transaction := tx
	if transaction == nil {
		transaction = rr.db
	}
	var results []*types.RoleBinding
	if err := transaction.WithContext(ctx).
		Where("role = ?", role).
		Order("created_at ASC").
		Find(&results).Error; err != nil {
		return nil, err
	}
	return results, nil
}
