package repos

import (
	"context"

	"gorm.io/gorm"

	"github.com/yungbote/streamvault-backend/internal/logger"
	"github.com/yungbote/streamvault-backend/internal/types"
)

type RestrictedPartyRepo interface {
	Add(ctx context.Context, tx *gorm.DB, party *types.RestrictedParty) (*types.RestrictedParty, error)
	Exists(ctx context.Context, tx *gorm.DB, identity string) (bool, error)
	Remove(ctx context.Context, tx *gorm.DB, identity string) (int64, error)
	List(ctx context.Context, tx *gorm.DB) ([]*types.RestrictedParty, error)
}

type restrictedPartyRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewRestrictedPartyRepo(db *gorm.DB, baseLog *logger.Logger) RestrictedPartyRepo {
	repoLog := baseLog.With("repo", "RestrictedPartyRepo")
	return &restrictedPartyRepo{db: db, log: repoLog}
}

func (rp *restrictedPartyRepo) Add(ctx context.Context, tx *gorm.DB, party *types.RestrictedParty) (*types.RestrictedParty, error) {
	transaction := tx
	if transaction == nil {
		transaction = rp.db
	}
	if err := transaction.WithContext(ctx).Create(party).Error; err != nil {
		return nil, err
	}
	return party, nil
}

func (rp *restrictedPartyRepo) Exists(ctx context.Context, tx *gorm.DB, identity string) (bool, error) {
	transaction := tx
	if transaction == nil {
		transaction = rp.db
	}
	var count int64
	if err := transaction.WithContext(ctx).
		Model(&types.RestrictedParty{}).
		Where("identity = ?", identity).
		Count(&count).Error; err != nil {
		return false, err
	}
	return count > 0, nil
}

func (rp *restrictedPartyRepo) Remove(ctx context.Context, tx *gorm.DB, identity string) (int64, error) {
	transaction := tx
	if transaction == nil {
		transaction = rp.db
	}
	result := transaction.WithContext(ctx).
		Where("identity = ?", identity).
		Delete(&types.RestrictedParty{})
	if result.Error != nil {
		return 0, result.Error
	}
	return result.RowsAffected, nil
}

func (rp *restrictedPartyRepo) List(ctx context.Context, tx *gorm.DB) ([]*types.RestrictedParty, error) {
	transaction := tx
	if transaction == nil {
		transaction = rp.db
	}
	var results []*types.RestrictedParty
	if err := transaction.WithContext(ctx).
		Order("created_at ASC").
		Find(&results).Error; err != nil {
		return nil, err
	}
	return results, nil
}
