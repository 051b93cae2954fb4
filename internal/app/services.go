package app

import (
	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"

	"github.com/yungbote/streamvault-backend/internal/clock"
	"github.com/yungbote/streamvault-backend/internal/guard"
	"github.com/yungbote/streamvault-backend/internal/logger"
	"github.com/yungbote/streamvault-backend/internal/services"
	"github.com/yungbote/streamvault-backend/internal/vault"
)

type Services struct {
	Event      services.EventService
	Access     services.AccessService
	Compliance services.ComplianceService
	Agreement  services.AgreementService
	Proposal   services.ProposalService
	Migration  services.MigrationService
}

func wireServices(db *gorm.DB, log *logger.Logger, cfg Config, r Repos, rdb *redis.Client, vaults *vault.Registry) Services {
	clk := clock.System()
	g := guard.New()

	event := services.NewEventService(db, log, r.LedgerEvent, rdb)
	access := services.NewAccessService(db, log, clk, r.RoleBinding, event)
	compliance := services.NewComplianceService(db, log, clk, r.RestrictedParty, r.AllowedAsset, access, event, cfg.AllowlistEnabled)
	agreement := services.NewAgreementService(db, log, clk, g, r.Agreement, r.VaultRegistration, vaults, access, compliance, event)
	proposal := services.NewProposalService(db, log, clk, r.Proposal, r.Agreement, compliance, event)
	migration := services.NewMigrationService(db, log, clk, r.MigrationRecord, r.Agreement, access, event)

	return Services{
		Event:      event,
		Access:     access,
		Compliance: compliance,
		Agreement:  agreement,
		Proposal:   proposal,
		Migration:  migration,
	}
}
