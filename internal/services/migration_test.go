package services

import (
	"context"
	"testing"

	"github.com/google/uuid"

	"github.com/yungbote/streamvault-backend/internal/types"
)

func (e *testEnv) seedLegacyAgreement(t *testing.T, start, end int64) uuid.UUID {
	t.Helper()
	a := &types.Agreement{
		ID:            uuid.New(),
		Sender:        testSender,
		Receiver:      testReceiver,
		Asset:         "USDC",
		TotalAmount:   1000,
		StartTime:     start,
		CliffTime:     0,
		EndTime:       end,
		Curve:         "linear",
		ReceiptOwner:  testReceiver,
		RecordVersion: 1,
	}
	if _, err := e.agreementRepo.Create(context.Background(), nil, a); err != nil {
		t.Fatalf("seed legacy agreement: %v", err)
	}
	return a.ID
}

func TestMigrateRequiresAdmin(t *testing.T) {
	env := newTestEnv(t)
	aerr := env.migration.Migrate(context.Background(), testSender, 2)
	wantCode(t, aerr, CodeRoleRequired)
}

func TestMigrateBackfillsCliff(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	legacyID := env.seedLegacyAgreement(t, 500, 1500)
	modern := env.mustCreate(t, env.linearInput(1000, 100))

	if aerr := env.migration.Migrate(ctx, testAdmin, 2); aerr != nil {
		t.Fatalf("migrate failed: %v", aerr)
	}

	got := env.reload(t, legacyID)
	if got.CliffTime != got.StartTime {
		t.Fatalf("cliff = %d, want start %d", got.CliffTime, got.StartTime)
	}
	if got.RecordVersion != 2 {
		t.Fatalf("record version = %d, want 2", got.RecordVersion)
	}

	// Records already at the current version are untouched.
	after := env.reload(t, modern.ID)
	if after.CliffTime != modern.CliffTime {
		t.Fatalf("modern record cliff changed: %d -> %d", modern.CliffTime, after.CliffTime)
	}
}

func TestMigrateIsOneShot(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	if aerr := env.migration.Migrate(ctx, testAdmin, 2); aerr != nil {
		t.Fatalf("migrate failed: %v", aerr)
	}
	aerr := env.migration.Migrate(ctx, testAdmin, 2)
	wantCode(t, aerr, CodeMigrationExecuted)
}

func TestMigrateRejectsBadVersions(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	aerr := env.migration.Migrate(ctx, testAdmin, 1)
	wantCode(t, aerr, CodeInvalidVersion)
	aerr = env.migration.Migrate(ctx, testAdmin, 99)
	wantCode(t, aerr, CodeInvalidVersion)
}
