package repos

import (
	"context"

	"gorm.io/gorm"

	"github.com/yungbote/streamvault-backend/internal/logger"
	"github.com/yungbote/streamvault-backend/internal/types"
)

type AllowedAssetRepo interface {
	Add(ctx context.Context, tx *gorm.DB, asset *types.AllowedAsset) (*types.AllowedAsset, error)
	Exists(ctx context.Context, tx *gorm.DB, asset string) (bool, error)
	Remove(ctx context.Context, tx *gorm.DB, asset string) (int64, error)
}

type allowedAssetRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewAllowedAssetRepo(db *gorm.DB, baseLog *logger.Logger) AllowedAssetRepo {
	repoLog := baseLog.With("repo", "AllowedAssetRepo")
	return &allowedAssetRepo{db: db, log: repoLog}
}

func (aa *allowedAssetRepo) Add(ctx context.Context, tx *gorm.DB, asset *types.AllowedAsset) (*types.AllowedAsset, error) {
	transaction := tx
	if transaction == nil {
		transaction = aa.db
	}
	if err := transaction.WithContext(ctx).Create(asset).Error; err != nil {
		return nil, err
	}
	return asset, nil
}

func (aa *allowedAssetRepo) Exists(ctx context.Context, tx *gorm.DB, asset string) (bool, error) {
	transaction := tx
	if transaction == nil {
		transaction = aa.db
	}
	var count int64
	if err := transaction.WithContext(ctx).
		Model(&types.AllowedAsset{}).
		Where("asset = ?", asset).
		Count(&count).Error; err != nil {
		return false, err
	}
	return count > 0, nil
}

func (aa *allowedAssetRepo) Remove(ctx context.Context, tx *gorm.DB, asset string) (int64, error) {
	transaction := tx
	if transaction == nil {
		transaction = aa.db
	}
	result := transaction.WithContext(ctx).
		Where("asset = ?", asset).
		Delete(&types.AllowedAsset{})
	if result.Error != nil {
		return 0, result.Error
	}
	return result.RowsAffected, nil
}
