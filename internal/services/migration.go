package services

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/yungbote/streamvault-backend/internal/apierr"
	"github.com/yungbote/streamvault-backend/internal/clock"
	"github.com/yungbote/streamvault-backend/internal/logger"
	"github.com/yungbote/streamvault-backend/internal/repos"
	"github.com/yungbote/streamvault-backend/internal/types"
)

// MigrationService applies one-shot, forward-only schema transitions.
// Records carry an explicit record_version tag, so each step selects exactly
// the rows it must rewrite instead of sniffing shapes.
type MigrationService interface {
	Migrate(ctx context.Context, caller string, targetVersion uint32) *apierr.Error
}

type migrationService struct {
	db            *gorm.DB
	log           *logger.Logger
	clk           clock.Clock
	migrationRepo repos.MigrationRecordRepo
	agreementRepo repos.AgreementRepo
	access        AccessService
	events        EventService
}

func NewMigrationService(
	db *gorm.DB,
	log *logger.Logger,
	clk clock.Clock,
	migrationRepo repos.MigrationRecordRepo,
	agreementRepo repos.AgreementRepo,
	access AccessService,
	events EventService,
) MigrationService {
	serviceLog := log.With("service", "MigrationService")
	return &migrationService{
		db:            db,
		log:           serviceLog,
		clk:           clk,
		migrationRepo: migrationRepo,
		agreementRepo: agreementRepo,
		access:        access,
		events:        events,
	}
}

func (ms *migrationService) Migrate(ctx context.Context, caller string, targetVersion uint32) *apierr.Error {
	if aerr := ms.access.Ensure(ctx, types.RoleAdmin, caller); aerr != nil {
		return aerr
	}
	if targetVersion < 2 || targetVersion > types.CurrentSchemaVersion {
		return validationErr(CodeInvalidVersion, "unknown target version")
	}
	txErr := ms.events.Tx(ctx, func(tx *gorm.DB) error {
		executed, err := ms.migrationRepo.Executed(ctx, tx, targetVersion)
		if err != nil {
			return err
		}
		if executed {
			return conflictErr(CodeMigrationExecuted, "migration already executed")
		}
		current, err := ms.migrationRepo.MaxExecutedVersion(ctx, tx)
		if err != nil {
			return err
		}
		if targetVersion != current+1 {
			return validationErr(CodeInvalidVersion, fmt.Sprintf("next version must be %d", current+1))
		}

		switch targetVersion {
		case 2:
			if err := ms.migrateV2(ctx, tx); err != nil {
				return err
			}
		}

		now := ms.clk.Now().Unix()
		if _, err := ms.migrationRepo.Create(ctx, tx, &types.MigrationRecord{
			ID:            uuid.New(),
			TargetVersion: targetVersion,
			ExecutedBy:    caller,
			ExecutedAt:    now,
		}); err != nil {
			return err
		}
		return ms.events.Append(ctx, tx, &types.LedgerEvent{
			Type:       types.EventMigrated,
			Actor:      caller,
			Payload:    jsonPayload(map[string]any{"target_version": targetVersion}),
			OccurredAt: now,
		})
	})
	return asAPIError(txErr)
}

// migrateV2 backfills the cliff introduced in version 2: version-1 records
// had no cliff, which is equivalent to a cliff at start.
func (ms *migrationService) migrateV2(ctx context.Context, tx *gorm.DB) error {
	legacy, err := ms.agreementRepo.ListByVersion(ctx, tx, 1)
	if err != nil {
		return err
	}
	for _, a := range legacy {
		a.CliffTime = a.StartTime
		a.RecordVersion = 2
		if err := ms.agreementRepo.Update(ctx, tx, a); err != nil {
			return err
		}
	}
	ms.log.Info("Backfilled cliff for legacy agreements", "count", len(legacy))
	return nil
}
