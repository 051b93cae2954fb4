package repos

import (
	"context"
	"database/sql"

	"gorm.io/gorm"

	"github.com/yungbote/streamvault-backend/internal/logger"
	"github.com/yungbote/streamvault-backend/internal/types"
)

type MigrationRecordRepo interface {
	Create(ctx context.Context, tx *gorm.DB, record *types.MigrationRecord) (*types.MigrationRecord, error)
	Executed(ctx context.Context, tx *gorm.DB, targetVersion uint32) (bool, error)
	MaxExecutedVersion(ctx context.Context, tx *gorm.DB) (uint32, error)
}

type migrationRecordRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewMigrationRecordRepo(db *gorm.DB, baseLog *logger.Logger) MigrationRecordRepo {
	repoLog := baseLog.With("repo", "MigrationRecordRepo")
	return &migrationRecordRepo{db: db, log: repoLog}
}

func (mr *migrationRecordRepo) Create(ctx context.Context, tx *gorm.DB, record *types.MigrationRecord) (*types.MigrationRecord, error) {
	transaction := tx
	if transaction == nil {
		transaction = mr.db
	}
	if err := transaction.WithContext(ctx).Create(record).Error; err != nil {
		return nil, err
	}
	return record, nil
}

func (mr *migrationRecordRepo) Executed(ctx context.Context, tx *gorm.DB, targetVersion uint32) (bool, error) {
	transaction := tx
	if transaction == nil {
		transaction = mr.db
	}
	var count int64
	if err := transaction.WithContext(ctx).
		Model(&types.MigrationRecord{}).
		Where("target_version = ?", targetVersion).
		Count(&count).Error; err != nil {
		return false, err
	}
	return count > 0, nil
}

func (mr *migrationRecordRepo) MaxExecutedVersion(ctx context.Context, tx *gorm.DB) (uint32, error) {
	transaction := tx
	if transaction == nil {
		transaction = mr.db
	}
	var highest sql.NullInt64
	if err := transaction.WithContext(ctx).
		Model(&types.MigrationRecord{}).
		Select("MAX(target_version)").
		Scan(&highest).Error; err != nil {
		return 0, err
	}
	if !highest.Valid {
		// No migrations on record means the schema is at its initial version.
		return 1, nil
	}
	return uint32(highest.Int64), nil
}
