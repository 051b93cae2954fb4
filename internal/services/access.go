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

// AccessService is the role registry. Guards run before any other effect of
// an operation; role mutation is admin-only and the admin set can never be
// emptied.
type AccessService interface {
	Bootstrap(ctx context.Context, adminIdentity string) error
	Ensure(ctx context.Context, role, identity string) *apierr.Error
	EnsureAny(ctx context.Context, identity string, roles ...string) *apierr.Error
	HasRole(ctx context.Context, role, identity string) (bool, error)
	Grant(ctx context.Context, caller, target, role string) *apierr.Error
	Revoke(ctx context.Context, caller, target, role string) *apierr.Error
	ListRole(ctx context.Context, caller, role string) ([]*types.RoleBinding, *apierr.Error)
}

type accessService struct {
	db       *gorm.DB
	log      *logger.Logger
	clk      clock.Clock
	roleRepo repos.RoleBindingRepo
	events   EventService
}

func NewAccessService(db *gorm.DB, log *logger.Logger, clk clock.Clock, roleRepo repos.RoleBindingRepo, events EventService) AccessService {
	serviceLog := log.With("service", "AccessService")
	return &accessService{db: db, log: serviceLog, clk: clk, roleRepo: roleRepo, events: events}
}

// Bootstrap seeds the first admin from configuration when the admin set is
// empty, so a fresh deployment is administrable.
func (as *accessService) Bootstrap(ctx context.Context, adminIdentity string) error {
	if adminIdentity == "" {
		return nil
	}
	count, err := as.roleRepo.CountByRole(ctx, nil, types.RoleAdmin)
	if err != nil {
		return err
	}
	if count > 0 {
		return nil
	}
	as.log.Info("Seeding bootstrap admin", "identity", adminIdentity)
	_, err = as.roleRepo.Create(ctx, nil, &types.RoleBinding{
		ID:        uuid.New(),
		Role:      types.RoleAdmin,
		Identity:  adminIdentity,
		GrantedBy: "bootstrap",
	})
	return err
}

func (as *accessService) Ensure(ctx context.Context, role, identity string) *apierr.Error {
	ok, err := as.roleRepo.Exists(ctx, nil, role, identity)
	if err != nil {
		return internalErr(err)
	}
	if !ok {
		return authErr(CodeRoleRequired, fmt.Sprintf("caller does not hold role %s", role))
	}
	return nil
}

func (as *accessService) EnsureAny(ctx context.Context, identity string, roles ...string) *apierr.Error {
	for _, role := range roles {
		ok, err := as.roleRepo.Exists(ctx, nil, role, identity)
		if err != nil {
			return internalErr(err)
		}
		if ok {
			return nil
		}
	}
	return authErr(CodeRoleRequired, "caller does not hold any required role")
}

func (as *accessService) HasRole(ctx context.Context, role, identity string) (bool, error) {
	return as.roleRepo.Exists(ctx, nil, role, identity)
}

func (as *accessService) Grant(ctx context.Context, caller, target, role string) *apierr.Error {
	if !types.KnownRole(role) {
		return notFoundErr(CodeRoleNotFound, "unknown role")
	}
	if target == "" {
		return validationErr(CodeInvalidAmount, "target identity required")
	}
	if aerr := as.Ensure(ctx, types.RoleAdmin, caller); aerr != nil {
		return aerr
	}
	txErr := as.events.Tx(ctx, func(tx *gorm.DB) error {
		exists, err := as.roleRepo.Exists(ctx, tx, role, target)
		if err != nil {
			return err
		}
		if exists {
			return conflictErr(CodeRoleAlreadyGranted, "identity already holds role")
		}
		if _, err := as.roleRepo.Create(ctx, tx, &types.RoleBinding{
			ID:        uuid.New(),
			Role:      role,
			Identity:  target,
			GrantedBy: caller,
		}); err != nil {
			return err
		}
		return as.events.Append(ctx, tx, &types.LedgerEvent{
			Type:       types.EventRoleGranted,
			Actor:      caller,
			Payload:    jsonPayload(map[string]any{"role": role, "identity": target}),
			OccurredAt: as.clk.Now().Unix(),
		})
	})
	return asAPIError(txErr)
}

func (as *accessService) Revoke(ctx context.Context, caller, target, role string) *apierr.Error {
	if !types.KnownRole(role) {
		return notFoundErr(CodeRoleNotFound, "unknown role")
	}
	if aerr := as.Ensure(ctx, types.RoleAdmin, caller); aerr != nil {
		return aerr
	}
	txErr := as.events.Tx(ctx, func(tx *gorm.DB) error {
		if role == types.RoleAdmin {
			count, err := as.roleRepo.CountByRole(ctx, tx, types.RoleAdmin)
			if err != nil {
				return err
			}
			held, err := as.roleRepo.Exists(ctx, tx, types.RoleAdmin, target)
			if err != nil {
				return err
			}
			if held && count <= 1 {
				return conflictErr(CodeLastAdmin, "cannot revoke the last admin")
			}
		}
		affected, err := as.roleRepo.Delete(ctx, tx, role, target)
		if err != nil {
			return err
		}
		if affected == 0 {
			return notFoundErr(CodeRoleNotFound, "identity does not hold role")
		}
		return as.events.Append(ctx, tx, &types.LedgerEvent{
			Type:       types.EventRoleRevoked,
			Actor:      caller,
			Payload:    jsonPayload(map[string]any{"role": role, "identity": target}),
			OccurredAt: as.clk.Now().Unix(),
		})
	})
	return asAPIError(txErr)
}

func (as *accessService) ListRole(ctx context.Context, caller, role string) ([]*types.RoleBinding, *apierr.Error) {
	if !types.KnownRole(role) {
		return nil, notFoundErr(CodeRoleNotFound, "unknown role")
	}
	if aerr := as.Ensure(ctx, types.RoleAdmin, caller); aerr != nil {
		return nil, aerr
	}
	bindings, err := as.roleRepo.ListByRole(ctx, nil, role)
	if err != nil {
		return nil, internalErr(err)
	}
	return bindings, nil
}
