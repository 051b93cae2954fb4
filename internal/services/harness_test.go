package services

import (
	"context"
	"fmt"
	"testing"

	"github.com/google/uuid"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"github.com/yungbote/streamvault-backend/internal/apierr"
	"github.com/yungbote/streamvault-backend/internal/clock"
	"github.com/yungbote/streamvault-backend/internal/db"
	"github.com/yungbote/streamvault-backend/internal/guard"
	"github.com/yungbote/streamvault-backend/internal/logger"
	"github.com/yungbote/streamvault-backend/internal/repos"
	"github.com/yungbote/streamvault-backend/internal/types"
	"github.com/yungbote/streamvault-backend/internal/vault"
)

type testEnv struct {
	db     *gorm.DB
	clk    *clock.Fixed
	guard  *guard.Guard
	vaults *vault.Registry

	agreementRepo repos.AgreementRepo
	eventRepo     repos.LedgerEventRepo

	events     EventService
	access     AccessService
	compliance ComplianceService
	agreement  AgreementService
	proposal   ProposalService
	migration  MigrationService
}

const (
	testAdmin    = "GADMIN"
	testSender   = "GSENDER"
	testReceiver = "GRECEIVER"
	testThird    = "GTHIRD"
	testArbiter  = "GARBITER"
)

func newTestEnvAllowlist(t *testing.T, allowlistEnabled bool) *testEnv {
	t.Helper()
	// A plain ":memory:" DSN gives every pooled connection its own empty
	// database; role checks that run on the root handle while a transaction
	// holds the first connection would see no tables. A named shared-cache
	// in-memory database keeps all connections on the same schema while
	// staying isolated per test env.
	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", uuid.NewString())
	gdb, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger: gormlogger.Default.LogMode(gormlogger.Silent),
	})
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	if err := gdb.AutoMigrate(db.AllModels()...); err != nil {
		t.Fatalf("automigrate: %v", err)
	}
	log, err := logger.New("development")
	if err != nil {
		t.Fatalf("init logger: %v", err)
	}

	clk := &clock.Fixed{}
	clk.Set(1_000_000)
	g := guard.New()
	vaults := vault.NewRegistry()

	agreementRepo := repos.NewAgreementRepo(gdb, log)
	proposalRepo := repos.NewProposalRepo(gdb, log)
	roleRepo := repos.NewRoleBindingRepo(gdb, log)
	restrictedRepo := repos.NewRestrictedPartyRepo(gdb, log)
	assetRepo := repos.NewAllowedAssetRepo(gdb, log)
	eventRepo := repos.NewLedgerEventRepo(gdb, log)
	migrationRepo := repos.NewMigrationRecordRepo(gdb, log)
	vaultRegRepo := repos.NewVaultRegistrationRepo(gdb, log)

	events := NewEventService(gdb, log, eventRepo, nil)
	access := NewAccessService(gdb, log, clk, roleRepo, events)
	compliance := NewComplianceService(gdb, log, clk, restrictedRepo, assetRepo, access, events, allowlistEnabled)
	agreement := NewAgreementService(gdb, log, clk, g, agreementRepo, vaultRegRepo, vaults, access, compliance, events)
	proposal := NewProposalService(gdb, log, clk, proposalRepo, agreementRepo, compliance, events)
	migration := NewMigrationService(gdb, log, clk, migrationRepo, agreementRepo, access, events)

	env := &testEnv{
		db:            gdb,
		clk:           clk,
		guard:         g,
		vaults:        vaults,
		agreementRepo: agreementRepo,
		eventRepo:     eventRepo,
		events:        events,
		access:        access,
		compliance:    compliance,
		agreement:     agreement,
		proposal:      proposal,
		migration:     migration,
	}
	if err := env.access.Bootstrap(context.Background(), testAdmin); err != nil {
		t.Fatalf("bootstrap admin: %v", err)
	}
	return env
}

func newTestEnv(t *testing.T) *testEnv {
	return newTestEnvAllowlist(t, false)
}

func (e *testEnv) now() int64 { return e.clk.T.Unix() }

// linearInput is a plain linear agreement starting now.
func (e *testEnv) linearInput(total, duration int64) CreateAgreementInput {
	start := e.now()
	return CreateAgreementInput{
		Receiver:    testReceiver,
		Asset:       "USDC",
		TotalAmount: total,
		StartTime:   start,
		CliffTime:   start,
		EndTime:     start + duration,
		Curve:       "linear",
	}
}

func (e *testEnv) mustCreate(t *testing.T, in CreateAgreementInput) *types.Agreement {
	t.Helper()
	agreement, aerr := e.agreement.Create(context.Background(), testSender, in)
	if aerr != nil {
		t.Fatalf("Create failed: %v", aerr)
	}
	return agreement
}

func (e *testEnv) reload(t *testing.T, id uuid.UUID) *types.Agreement {
	t.Helper()
	agreement, aerr := e.agreement.Get(context.Background(), id)
	if aerr != nil {
		t.Fatalf("Get failed: %v", aerr)
	}
	return agreement
}

func wantCode(t *testing.T, got *apierr.Error, code string) {
	t.Helper()
	if got == nil {
		t.Fatalf("expected error with code %s, got nil", code)
	}
	if got.Code != code {
		t.Fatalf("expected code %s, got %s (%v)", code, got.Code, got.Err)
	}
}
