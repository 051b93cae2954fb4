package repos

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/yungbote/streamvault-backend/internal/logger"
	"github.com/yungbote/streamvault-backend/internal/types"
)

type ProposalRepo interface {
	Create(ctx context.Context, tx *gorm.DB, proposal *types.Proposal) (*types.Proposal, error)
	GetByID(ctx context.Context, tx *gorm.DB, id uuid.UUID) (*types.Proposal, error)
	Update(ctx context.Context, tx *gorm.DB, proposal *types.Proposal) error
	ListBySender(ctx context.Context, tx *gorm.DB, sender string) ([]*types.Proposal, error)
}

type proposalRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewProposalRepo(db *gorm.DB, baseLog *logger.Logger) ProposalRepo {
	repoLog := baseLog.With("repo", "ProposalRepo")
	return &proposalRepo{db: db, log: repoLog}
}

func (pr *proposalRepo) Create(ctx context.Context, tx *gorm.DB, proposal *types.Proposal) (*types.Proposal, error) {
	transaction := tx
	if transaction == nil {
		transaction = pr.db
	}
	if err := transaction.WithContext(ctx).Create(proposal).Error; err != nil {
		return nil, err
	}
	return proposal, nil
}

func (pr *proposalRepo) GetByID(ctx context.Context, tx *gorm.DB, id uuid.UUID) (*types.Proposal, error) {
	transaction := tx
	if transaction == nil {
		transaction = pr.db
	}
	var result types.Proposal
	if err := transaction.WithContext(ctx).
		Where("id = ?", id).
		First(&result).Error; err != nil {
		return nil, err
	}
	return &result, nil
}

func (pr *proposalRepo) Update(ctx context.Context, tx *gorm.DB, proposal *types.Proposal) error {
	transaction := tx
	if transaction == nil {
		transaction = pr.db
	}
	return transaction.WithContext(ctx).Save(proposal).Error
}

func (pr *proposalRepo) ListBySender(ctx context.Context, tx *gorm.DB, sender string) ([]*types.Proposal, error) {
	transaction := tx
	if transaction == nil {
		transaction = pr.db
	}
	var results []*types.Proposal
	if err := transaction.WithContext(ctx).
		Where("sender = ?", sender).
		Order("created_at DESC").
		Find(&results).Error; err != nil {
		return nil, err
	}
	return results, nil
}
