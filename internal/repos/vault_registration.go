package repos

import (
	"context"

	"gorm.io/gorm"

	"github.com/yungbote/streamvault-backend/internal/logger"
	"github.com/yungbote/streamvault-backend/internal/types"
)

type VaultRegistrationRepo interface {
	Approve(ctx context.Context, tx *gorm.DB, registration *types.VaultRegistration) (*types.VaultRegistration, error)
	Approved(ctx context.Context, tx *gorm.DB, ref string) (bool, error)
}

type vaultRegistrationRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewVaultRegistrationRepo(db *gorm.DB, baseLog *logger.Logger) VaultRegistrationRepo {
	repoLog := baseLog.With("repo", "VaultRegistrationRepo")
	return &vaultRegistrationRepo{db: db, log: repoLog}
}

func (vr *vaultRegistrationRepo) Approve(ctx context.Context, tx *gorm.DB, registration *types.VaultRegistration) (*types.VaultRegistration, error) {
	transaction := tx
	if transaction == nil {
		transaction = vr.db
	}
	if err := transaction.WithContext(ctx).Create(registration).Error; err != nil {
		return nil, err
	}
	return registration, nil
}

func (vr *vaultRegistrationRepo) Approved(ctx context.Context, tx *gorm.DB, ref string) (bool, error) {
	transaction := tx
	if transaction == nil {
		transaction = vr.db
	}
	var count int64
	if err := transaction.WithContext(ctx).
		Model(&types.VaultRegistration{}).
		Where("ref = ?", ref).
		Count(&count).Error; err != nil {
		return false, err
	}
	return count > 0, nil
}
