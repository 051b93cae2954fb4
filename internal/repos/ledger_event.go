package repos

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/yungbote/streamvault-backend/internal/logger"
	"github.com/yungbote/streamvault-backend/internal/types"
)

// LedgerEventRepo is append-only. There is no update or delete.
type LedgerEventRepo interface {
	Append(ctx context.Context, tx *gorm.DB, event *types.LedgerEvent) (*types.LedgerEvent, error)
	ListByAgreement(ctx context.Context, tx *gorm.DB, agreementID uuid.UUID) ([]*types.LedgerEvent, error)
	ListByProposal(ctx context.Context, tx *gorm.DB, proposalID uuid.UUID) ([]*types.LedgerEvent, error)
}

type ledgerEventRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewLedgerEventRepo(db *gorm.DB, baseLog *logger.Logger) LedgerEventRepo {
	repoLog := baseLog.With("repo", "LedgerEventRepo")
	return &ledgerEventRepo{db: db, log: repoLog}
}

func (le *ledgerEventRepo) Append(ctx context.Context, tx *gorm.DB, event *types.LedgerEvent) (*types.LedgerEvent, error) {
	transaction := tx
	if transaction == nil {
		transaction = le.db
	}
	if err := transaction.WithContext(ctx).Create(event).Error; err != nil {
		return nil, err
	}
	return event, nil
}

func (le *ledgerEventRepo) ListByAgreement(ctx context.Context, tx *gorm.DB, agreementID uuid.UUID) ([]*types.LedgerEvent, error) {
	transaction := tx
	if transaction == nil {
		transaction = le.db
	}
	var results []*types.LedgerEvent
	if err := transaction.WithContext(ctx).
		Where("agreement_id = ?", agreementID).
		Order("occurred_at ASC, created_at ASC").
		Find(&results).Error; err != nil {
		return nil, err
	}
	return results, nil
}

func (le *ledgerEventRepo) ListByProposal(ctx context.Context, tx *gorm.DB, proposalID uuid.UUID) ([]*types.LedgerEvent, error) {
	transaction := tx
	if transaction == nil {
		transaction = le.db
	}
	var results []*types.LedgerEvent
	if err := transaction.WithContext(ctx).
		Where("proposal_id = ?", proposalID).
		Order("occurred_at ASC, created_at ASC").
		Find(&results).Error; err != nil {
		return nil, err
	}
	return results, nil
}
