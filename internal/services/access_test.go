package services

import (
	"context"
	"testing"

	"github.com/yungbote/streamvault-backend/internal/types"
)

func TestGrantRequiresAdmin(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	aerr := env.access.Grant(ctx, testSender, testThird, types.RolePauser)
	wantCode(t, aerr, CodeRoleRequired)

	if aerr := env.access.Grant(ctx, testAdmin, testThird, types.RolePauser); aerr != nil {
		t.Fatalf("grant failed: %v", aerr)
	}
	held, err := env.access.HasRole(ctx, types.RolePauser, testThird)
	if err != nil || !held {
		t.Fatalf("role not held: held=%v err=%v", held, err)
	}
}

func TestDuplicateGrantRejected(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	if aerr := env.access.Grant(ctx, testAdmin, testThird, types.RoleGuardian); aerr != nil {
		t.Fatalf("grant failed: %v", aerr)
	}
	aerr := env.access.Grant(ctx, testAdmin, testThird, types.RoleGuardian)
	wantCode(t, aerr, CodeRoleAlreadyGranted)
}

func TestUnknownRoleRejected(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	aerr := env.access.Grant(ctx, testAdmin, testThird, "superuser")
	wantCode(t, aerr, CodeRoleNotFound)
	aerr = env.access.Revoke(ctx, testAdmin, testThird, "superuser")
	wantCode(t, aerr, CodeRoleNotFound)
}

func TestLastAdminRevokeRejected(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	aerr := env.access.Revoke(ctx, testAdmin, testAdmin, types.RoleAdmin)
	wantCode(t, aerr, CodeLastAdmin)

	// With a second admin, either may be revoked, but never both.
	if aerr := env.access.Grant(ctx, testAdmin, testThird, types.RoleAdmin); aerr != nil {
		t.Fatalf("grant failed: %v", aerr)
	}
	if aerr := env.access.Revoke(ctx, testAdmin, testAdmin, types.RoleAdmin); aerr != nil {
		t.Fatalf("revoke with two admins failed: %v", aerr)
	}
	aerr = env.access.Revoke(ctx, testThird, testThird, types.RoleAdmin)
	wantCode(t, aerr, CodeLastAdmin)
}

func TestRevokeUnheldRole(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	aerr := env.access.Revoke(ctx, testAdmin, testThird, types.RolePauser)
	wantCode(t, aerr, CodeRoleNotFound)
}

func TestBootstrapIsIdempotent(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	// A second bootstrap with a different identity must not add an admin.
	if err := env.access.Bootstrap(ctx, testThird); err != nil {
		t.Fatalf("bootstrap: %v", err)
	}
	held, err := env.access.HasRole(ctx, types.RoleAdmin, testThird)
	if err != nil {
		t.Fatalf("has role: %v", err)
	}
	if held {
		t.Fatal("bootstrap overwrote existing admin set")
	}
}

func TestRestrictIdempotent(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	aerr := env.compliance.Restrict(ctx, testSender, testThird)
	wantCode(t, aerr, CodeRoleRequired)

	if aerr := env.compliance.Restrict(ctx, testAdmin, testThird); aerr != nil {
		t.Fatalf("restrict failed: %v", aerr)
	}
	if aerr := env.compliance.Restrict(ctx, testAdmin, testThird); aerr != nil {
		t.Fatalf("repeat restrict failed: %v", aerr)
	}
	if aerr := env.compliance.Unrestrict(ctx, testAdmin, testThird); aerr != nil {
		t.Fatalf("unrestrict failed: %v", aerr)
	}
	if aerr := env.compliance.Unrestrict(ctx, testAdmin, testThird); aerr != nil {
		t.Fatalf("repeat unrestrict failed: %v", aerr)
	}
	if aerr := env.compliance.ValidateParty(ctx, nil, testThird); aerr != nil {
		t.Fatalf("unrestricted party still blocked: %v", aerr)
	}
}

func TestAssetAllowlist(t *testing.T) {
	env := newTestEnvAllowlist(t, true)
	ctx := context.Background()

	_, aerr := env.agreement.Create(ctx, testSender, env.linearInput(100, 10))
	wantCode(t, aerr, CodeAssetNotAllowed)

	if aerr := env.compliance.AllowAsset(ctx, testAdmin, "USDC"); aerr != nil {
		t.Fatalf("allow asset failed: %v", aerr)
	}
	if _, aerr := env.agreement.Create(ctx, testSender, env.linearInput(100, 10)); aerr != nil {
		t.Fatalf("create with allowed asset failed: %v", aerr)
	}

	if aerr := env.compliance.DisallowAsset(ctx, testAdmin, "USDC"); aerr != nil {
		t.Fatalf("disallow asset failed: %v", aerr)
	}
	_, aerr = env.agreement.Create(ctx, testSender, env.linearInput(100, 10))
	wantCode(t, aerr, CodeAssetNotAllowed)
}

func TestAllowlistInertWhenDisabled(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	if _, aerr := env.agreement.Create(ctx, testSender, env.linearInput(100, 10)); aerr != nil {
		t.Fatalf("create with allowlist disabled failed: %v", aerr)
	}
}
