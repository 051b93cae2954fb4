package repos

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/yungbote/streamvault-backend/internal/logger"
	"github.com/yungbote/streamvault-backend/internal/types"
)

type AgreementRepo interface {
	Create(ctx context.Context, tx *gorm.DB, agreement *types.Agreement) (*types.Agreement, error)
	GetByID(ctx context.Context, tx *gorm.DB, id uuid.UUID) (*types.Agreement, error)
	Update(ctx context.Context, tx *gorm.DB, agreement *types.Agreement) error
	ListByParty(ctx context.Context, tx *gorm.DB, identity string) ([]*types.Agreement, error)
	ListByVersion(ctx context.Context, tx *gorm.DB, version uint32) ([]*types.Agreement, error)
	Count(ctx context.Context, tx *gorm.DB) (int64, error)
}

type agreementRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewAgreementRepo(db *gorm.DB, baseLog *logger.Logger) AgreementRepo {
	repoLog := baseLog.With("repo", "AgreementRepo")
	return &agreementRepo{db: db, log: repoLog}
}

func (ar *agreementRepo) Create(ctx context.Context, tx *gorm.DB, agreement *types.Agreement) (*types.Agreement, error) {
	transaction := tx
	if transaction == nil {
		transaction = ar.db
	}
	if err := transaction.WithContext(ctx).Create(agreement).Error; err != nil {
		return nil, err
	}
	return agreement, nil
}

func (ar *agreementRepo) GetByID(ctx context.Context, tx *gorm.DB, id uuid.UUID) (*types.Agreement, error) {
	transaction := tx
	if transaction == nil {
		transaction = ar.db
	}
	var result types.Agreement
	if err := transaction.WithContext(ctx).
		Where("id = ?", id).
		First(&result).Error; err != nil {
		return nil, err
	}
	return &result, nil
}

func (ar *agreementRepo) Update(ctx context.Context, tx *gorm.DB, agreement *types.Agreement) error {
	transaction := tx
	if transaction == nil {
		transaction = ar.db
	}
	return transaction.WithContext(ctx).Save(agreement).Error
}

func (ar *agreementRepo) ListByParty(ctx context.Context, tx *gorm.DB, identity string) ([]*types.Agreement, error) {
	transaction := tx
	if transaction == nil {
		transaction = ar.db
	}
	var results []*types.Agreement
	if err := transaction.WithContext(ctx).
		Where("sender = ? OR receiver = ? OR receipt_owner = ?", identity, identity, identity).
		Order("created_at DESC").
		Find(&results).Error; err != nil {
		return nil, err
	}
	return results, nil
}

func (ar *agreementRepo) ListByVersion(ctx context.Context, tx *gorm.DB, version uint32) ([]*types.Agreement, error) {
	transaction := tx
	if transaction == nil {
		transaction = ar.db
	}
	var results []*types.Agreement
	if err := transaction.WithContext(ctx).
		Where("record_version = ?", version).
		Find(&results).Error; err != nil {
		return nil, err
	}
	return results, nil
}

func (ar *agreementRepo) Count(ctx context.Context, tx *gorm.DB) (int64, error) {
	transaction := tx
	if transaction == nil {
		transaction = ar.db
	}
	var count int64
	if err := transaction.WithContext(ctx).
		Model(&types.Agreement{}).
		Count(&count).Error; err != nil {
		return 0, err
	}
	return count, nil
}
