package services

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/yungbote/streamvault-backend/internal/apierr"
	"github.com/yungbote/streamvault-backend/internal/clock"
	"github.com/yungbote/streamvault-backend/internal/logger"
	"github.com/yungbote/streamvault-backend/internal/repos"
	"github.com/yungbote/streamvault-backend/internal/types"
)

// ComplianceService screens counter-parties against the deny-list and,
// when the allowlist is enabled, assets against the allowed set. Screening
// runs whenever a receiving identity is introduced or changed.
type ComplianceService interface {
	ValidateParty(ctx context.Context, tx *gorm.DB, identity string) *apierr.Error
	ValidateAsset(ctx context.Context, tx *gorm.DB, asset string) *apierr.Error
	Restrict(ctx context.Context, caller, target string) *apierr.Error
	Unrestrict(ctx context.Context, caller, target string) *apierr.Error
	ListRestricted(ctx context.Context, caller string) ([]*types.RestrictedParty, *apierr.Error)
	AllowAsset(ctx context.Context, caller, asset string) *apierr.Error
	DisallowAsset(ctx context.Context, caller, asset string) *apierr.Error
}

type complianceService struct {
	db               *gorm.DB
	log              *logger.Logger
	clk              clock.Clock
	restrictedRepo   repos.RestrictedPartyRepo
	assetRepo        repos.AllowedAssetRepo
	access           AccessService
	events           EventService
	allowlistEnabled bool
}

func NewComplianceService(
	db *gorm.DB,
	log *logger.Logger,
	clk clock.Clock,
	restrictedRepo repos.RestrictedPartyRepo,
	assetRepo repos.AllowedAssetRepo,
	access AccessService,
	events EventService,
	allowlistEnabled bool,
) ComplianceService {
	serviceLog := log.With("service", "ComplianceService")
	return &complianceService{
		db:               db,
		log:              serviceLog,
		clk:              clk,
		restrictedRepo:   restrictedRepo,
		assetRepo:        assetRepo,
		access:           access,
		events:           events,
		allowlistEnabled: allowlistEnabled,
	}
}

func (cs *complianceService) ValidateParty(ctx context.Context, tx *gorm.DB, identity string) *apierr.Error {
	restricted, err := cs.restrictedRepo.Exists(ctx, tx, identity)
	if err != nil {
		return internalErr(err)
	}
	if restricted {
		return authErr(CodeRestrictedParty, "counter-party is restricted")
	}
	return nil
}

func (cs *complianceService) ValidateAsset(ctx context.Context, tx *gorm.DB, asset string) *apierr.Error {
	if !cs.allowlistEnabled {
		return nil
	}
	allowed, err := cs.assetRepo.Exists(ctx, tx, asset)
	if err != nil {
		return internalErr(err)
	}
	if !allowed {
		return authErr(CodeAssetNotAllowed, "asset is not on the allowlist")
	}
	return nil
}

// Restrict is idempotent: restricting an already-restricted identity is a
// no-op, not an error.
func (cs *complianceService) Restrict(ctx context.Context, caller, target string) *apierr.Error {
	if aerr := cs.access.Ensure(ctx, types.RoleAdmin, caller); aerr != nil {
		return aerr
	}
	txErr := cs.events.Tx(ctx, func(tx *gorm.DB) error {
		exists, err := cs.restrictedRepo.Exists(ctx, tx, target)
		if err != nil {
			return err
		}
		if exists {
			return nil
		}
		if _, err := cs.restrictedRepo.Add(ctx, tx, &types.RestrictedParty{
			ID:           uuid.New(),
			Identity:     target,
			RestrictedBy: caller,
		}); err != nil {
			return err
		}
		return cs.events.Append(ctx, tx, &types.LedgerEvent{
			Type:       types.EventPartyRestricted,
			Actor:      caller,
			Payload:    jsonPayload(map[string]any{"identity": target}),
			OccurredAt: cs.clk.Now().Unix(),
		})
	})
	return asAPIError(txErr)
}

func (cs *complianceService) Unrestrict(ctx context.Context, caller, target string) *apierr.Error {
	if aerr := cs.access.Ensure(ctx, types.RoleAdmin, caller); aerr != nil {
		return aerr
	}
	txErr := cs.events.Tx(ctx, func(tx *gorm.DB) error {
		affected, err := cs.restrictedRepo.Remove(ctx, tx, target)
		if err != nil {
			return err
		}
		if affected == 0 {
			return nil
		}
		return cs.events.Append(ctx, tx, &types.LedgerEvent{
			Type:       types.EventPartyUnrestricted,
			Actor:      caller,
			Payload:    jsonPayload(map[string]any{"identity": target}),
			OccurredAt: cs.clk.Now().Unix(),
		})
	})
	return asAPIError(txErr)
}

func (cs *complianceService) ListRestricted(ctx context.Context, caller string) ([]*types.RestrictedParty, *apierr.Error) {
	if aerr := cs.access.EnsureAny(ctx, caller, types.RoleAdmin, types.RoleComplianceOfficer); aerr != nil {
		return nil, aerr
	}
	parties, err := cs.restrictedRepo.List(ctx, nil)
	if err != nil {
		return nil, internalErr(err)
	}
	return parties, nil
}

func (cs *complianceService) AllowAsset(ctx context.Context, caller, asset string) *apierr.Error {
	if aerr := cs.access.EnsureAny(ctx, caller, types.RoleAdmin, types.RoleComplianceOfficer); aerr != nil {
		return aerr
	}
	txErr := cs.events.Tx(ctx, func(tx *gorm.DB) error {
		exists, err := cs.assetRepo.Exists(ctx, tx, asset)
		if err != nil {
			return err
		}
		if exists {
			return nil
		}
		if _, err := cs.assetRepo.Add(ctx, tx, &types.AllowedAsset{
			ID:      uuid.New(),
			Asset:   asset,
			AddedBy: caller,
		}); err != nil {
			return err
		}
		return cs.events.Append(ctx, tx, &types.LedgerEvent{
			Type:       types.EventAssetAllowed,
			Actor:      caller,
			Payload:    jsonPayload(map[string]any{"asset": asset}),
			OccurredAt: cs.clk.Now().Unix(),
		})
	})
	return asAPIError(txErr)
}

func (cs *complianceService) DisallowAsset(ctx context.Context, caller, asset string) *apierr.Error {
	if aerr := cs.access.EnsureAny(ctx, caller, types.RoleAdmin, types.RoleComplianceOfficer); aerr != nil {
		return aerr
	}
	txErr := cs.events.Tx(ctx, func(tx *gorm.DB) error {
		affected, err := cs.assetRepo.Remove(ctx, tx, asset)
		if err != nil {
			return err
		}
		if affected == 0 {
			return nil
		}
		return cs.events.Append(ctx, tx, &types.LedgerEvent{
			Type:       types.EventAssetDisallowed,
			Actor:      caller,
			Payload:    jsonPayload(map[string]any{"asset": asset}),
			OccurredAt: cs.clk.Now().Unix(),
		})
	})
	return asAPIError(txErr)
}
