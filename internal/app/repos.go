package app

import (
	"gorm.io/gorm"

	"github.com/yungbote/streamvault-backend/internal/logger"
	"github.com/yungbote/streamvault-backend/internal/repos"
)

type Repos struct {
	Agreement         repos.AgreementRepo
	Proposal          repos.ProposalRepo
	RoleBinding       repos.RoleBindingRepo
	RestrictedParty   repos.RestrictedPartyRepo
	AllowedAsset      repos.AllowedAssetRepo
	LedgerEvent       repos.LedgerEventRepo
	MigrationRecord   repos.MigrationRecordRepo
	VaultRegistration repos.VaultRegistrationRepo
}

func wireRepos(db *gorm.DB, log *logger.Logger) Repos {
	return Repos{
		Agreement:         repos.NewAgreementRepo(db, log),
		Proposal:          repos.NewProposalRepo(db, log),
		RoleBinding:       repos.NewRoleBindingRepo(db, log),
		RestrictedParty:   repos.NewRestrictedPartyRepo(db, log),
		AllowedAsset:      repos.NewAllowedAssetRepo(db, log),
		LedgerEvent:       repos.NewLedgerEventRepo(db, log),
		MigrationRecord:   repos.NewMigrationRecordRepo(db, log),
		VaultRegistration: repos.NewVaultRegistrationRepo(db, log),
	}
}
