package services

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/yungbote/streamvault-backend/internal/settlement"
	"github.com/yungbote/streamvault-backend/internal/types"
	"github.com/yungbote/streamvault-backend/internal/vault"
	"github.com/yungbote/streamvault-backend/internal/vesting"
)

func TestCreateValidation(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	start := env.now()

	cases := []struct {
		name string
		in   CreateAgreementInput
		code string
	}{
		{
			name: "zero_amount",
			in:   CreateAgreementInput{Receiver: testReceiver, Asset: "USDC", TotalAmount: 0, StartTime: start, CliffTime: start, EndTime: start + 10, Curve: "linear"},
			code: CodeInvalidAmount,
		},
		{
			name: "end_before_start",
			in:   CreateAgreementInput{Receiver: testReceiver, Asset: "USDC", TotalAmount: 100, StartTime: start + 10, CliffTime: start + 10, EndTime: start, Curve: "linear"},
			code: CodeInvalidTimeRange,
		},
		{
			name: "cliff_after_end",
			in:   CreateAgreementInput{Receiver: testReceiver, Asset: "USDC", TotalAmount: 100, StartTime: start, CliffTime: start + 20, EndTime: start + 10, Curve: "linear"},
			code: CodeInvalidTimeRange,
		},
		{
			name: "bad_curve",
			in:   CreateAgreementInput{Receiver: testReceiver, Asset: "USDC", TotalAmount: 100, StartTime: start, CliffTime: start, EndTime: start + 10, Curve: "cubic"},
			code: CodeInvalidMilestones,
		},
		{
			name: "milestone_over_100",
			in: CreateAgreementInput{Receiver: testReceiver, Asset: "USDC", TotalAmount: 100, StartTime: start, CliffTime: start, EndTime: start + 10, Curve: "linear",
				Milestones: []vesting.Milestone{{Timestamp: start + 5, Percentage: 101}}},
			code: CodeInvalidMilestones,
		},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, aerr := env.agreement.Create(ctx, testSender, tc.in)
			wantCode(t, aerr, tc.code)
		})
	}
}

func TestWithdrawSequenceNoDust(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	a := env.mustCreate(t, env.linearInput(1000, 3))

	var sum int64
	wants := []int64{333, 333, 334}
	for i, want := range wants {
		env.clk.Advance(time.Second)
		got, aerr := env.agreement.Withdraw(ctx, testReceiver, a.ID)
		if aerr != nil {
			t.Fatalf("withdraw %d failed: %v", i+1, aerr)
		}
		if got != want {
			t.Fatalf("withdraw %d = %d, want %d", i+1, got, want)
		}
		sum += got
	}
	if sum != 1000 {
		t.Fatalf("withdrawals sum to %d, want 1000", sum)
	}
	_, aerr := env.agreement.Withdraw(ctx, testReceiver, a.ID)
	wantCode(t, aerr, CodeNothingWithdrawable)
}

func TestWithdrawAuthorization(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	a := env.mustCreate(t, env.linearInput(1000, 10))
	env.clk.Advance(5 * time.Second)

	_, aerr := env.agreement.Withdraw(ctx, testSender, a.ID)
	wantCode(t, aerr, CodeNotReceiptOwner)

	_, aerr = env.agreement.Withdraw(ctx, testReceiver, uuid.New())
	wantCode(t, aerr, CodeAgreementNotFound)
}

func TestReentrantWithdrawRejected(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	a := env.mustCreate(t, env.linearInput(1000, 10))
	env.clk.Advance(5 * time.Second)

	// Simulate a nested invocation holding the guard.
	if !env.guard.Acquire(a.ID) {
		t.Fatal("guard acquire failed")
	}
	_, aerr := env.agreement.Withdraw(ctx, testReceiver, a.ID)
	wantCode(t, aerr, CodeReentrantCall)
	env.guard.Release(a.ID)

	// Sequential withdrawals succeed.
	if _, aerr := env.agreement.Withdraw(ctx, testReceiver, a.ID); aerr != nil {
		t.Fatalf("sequential withdraw failed: %v", aerr)
	}
	env.clk.Advance(5 * time.Second)
	if _, aerr := env.agreement.Withdraw(ctx, testReceiver, a.ID); aerr != nil {
		t.Fatalf("second sequential withdraw failed: %v", aerr)
	}
}

func TestPauseShiftsSchedule(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	a := env.mustCreate(t, env.linearInput(1000, 100))

	env.clk.Advance(10 * time.Second)
	if aerr := env.agreement.Pause(ctx, testSender, a.ID); aerr != nil {
		t.Fatalf("pause failed: %v", aerr)
	}

	// Nothing accrues while paused, and withdrawal is blocked.
	env.clk.Advance(40 * time.Second)
	_, aerr := env.agreement.Withdraw(ctx, testReceiver, a.ID)
	wantCode(t, aerr, CodeAgreementPaused)

	if aerr := env.agreement.Unpause(ctx, testSender, a.ID); aerr != nil {
		t.Fatalf("unpause failed: %v", aerr)
	}
	w, aerr := env.agreement.Withdrawable(ctx, a.ID)
	if aerr != nil {
		t.Fatalf("withdrawable failed: %v", aerr)
	}
	if w != 100 {
		t.Fatalf("withdrawable after 40s pause = %d, want 100", w)
	}

	// Full unlock arrives exactly pause-duration late.
	env.clk.Advance(89 * time.Second) // offset 139, effective 99
	w, _ = env.agreement.Withdrawable(ctx, a.ID)
	if w >= 1000 {
		t.Fatalf("unlocked early: %d", w)
	}
	env.clk.Advance(1 * time.Second) // offset 140, effective 100
	w, _ = env.agreement.Withdrawable(ctx, a.ID)
	if w != 1000 {
		t.Fatalf("withdrawable at shifted end = %d, want 1000", w)
	}
}

func TestPauseStateConflicts(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	a := env.mustCreate(t, env.linearInput(1000, 100))

	aerr := env.agreement.Unpause(ctx, testSender, a.ID)
	wantCode(t, aerr, CodeAgreementNotPaused)

	if aerr := env.agreement.Pause(ctx, testSender, a.ID); aerr != nil {
		t.Fatalf("pause failed: %v", aerr)
	}
	aerr = env.agreement.Pause(ctx, testSender, a.ID)
	wantCode(t, aerr, CodeAgreementPaused)

	aerr = env.agreement.Pause(ctx, testThird, a.ID)
	wantCode(t, aerr, CodeRoleRequired)
}

func TestCancelSplitsBalance(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	a := env.mustCreate(t, env.linearInput(1000, 100))

	env.clk.Advance(30 * time.Second)
	if aerr := env.agreement.Cancel(ctx, testSender, a.ID); aerr != nil {
		t.Fatalf("cancel failed: %v", aerr)
	}
	got := env.reload(t, a.ID)
	if !got.Cancelled {
		t.Fatal("agreement not marked cancelled")
	}
	// 300 unlocked to the receiver side, 700 refunded.
	if got.WithdrawnAmount != 300 {
		t.Fatalf("withdrawn after cancel = %d, want 300", got.WithdrawnAmount)
	}

	aerr := env.agreement.Cancel(ctx, testSender, a.ID)
	wantCode(t, aerr, CodeAlreadyCancelled)

	_, aerr = env.agreement.Withdraw(ctx, testReceiver, a.ID)
	wantCode(t, aerr, CodeAlreadyCancelled)
}

func TestCancelOnlySender(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	a := env.mustCreate(t, env.linearInput(1000, 100))
	aerr := env.agreement.Cancel(ctx, testReceiver, a.ID)
	wantCode(t, aerr, CodeUnauthorized)
}

func TestSoulboundReceiverImmutable(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	in := env.linearInput(1000, 100)
	in.Soulbound = true
	a := env.mustCreate(t, in)

	// Every caller gets the same refusal, before authorization.
	for _, caller := range []string{testReceiver, testSender, testAdmin, testThird} {
		aerr := env.agreement.TransferReceiver(ctx, caller, a.ID, testThird)
		wantCode(t, aerr, CodeSoulboundReceiver)
	}

	// Receipt ownership stays transferable on soulbound agreements.
	if aerr := env.agreement.TransferReceipt(ctx, testReceiver, a.ID, testThird); aerr != nil {
		t.Fatalf("receipt transfer on soulbound failed: %v", aerr)
	}
	got := env.reload(t, a.ID)
	if got.ReceiptOwner != testThird {
		t.Fatalf("receipt owner = %s, want %s", got.ReceiptOwner, testThird)
	}
	if got.Receiver != testReceiver {
		t.Fatalf("receiver changed to %s", got.Receiver)
	}
}

func TestTransferReceiverMovesReceipt(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	a := env.mustCreate(t, env.linearInput(1000, 100))

	aerr := env.agreement.TransferReceiver(ctx, testThird, a.ID, testThird)
	wantCode(t, aerr, CodeUnauthorized)

	if aerr := env.agreement.TransferReceiver(ctx, testReceiver, a.ID, testThird); aerr != nil {
		t.Fatalf("transfer failed: %v", aerr)
	}
	got := env.reload(t, a.ID)
	if got.Receiver != testThird || got.ReceiptOwner != testThird {
		t.Fatalf("receiver=%s receipt=%s, want both %s", got.Receiver, got.ReceiptOwner, testThird)
	}
}

func TestTransferToRestrictedPartyRejected(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	a := env.mustCreate(t, env.linearInput(1000, 100))

	if aerr := env.compliance.Restrict(ctx, testAdmin, testThird); aerr != nil {
		t.Fatalf("restrict failed: %v", aerr)
	}
	aerr := env.agreement.TransferReceiver(ctx, testReceiver, a.ID, testThird)
	wantCode(t, aerr, CodeRestrictedParty)
	aerr = env.agreement.TransferReceipt(ctx, testReceiver, a.ID, testThird)
	wantCode(t, aerr, CodeRestrictedParty)

	_, aerr = env.agreement.Create(ctx, testSender, CreateAgreementInput{
		Receiver: testThird, Asset: "USDC", TotalAmount: 100,
		StartTime: env.now(), CliffTime: env.now(), EndTime: env.now() + 10, Curve: "linear",
	})
	wantCode(t, aerr, CodeRestrictedParty)
}

func TestTopUpExtendsProportionally(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	a := env.mustCreate(t, env.linearInput(1000, 100))

	aerr := env.agreement.TopUp(ctx, testReceiver, a.ID, 500)
	wantCode(t, aerr, CodeUnauthorized)
	aerr = env.agreement.TopUp(ctx, testSender, a.ID, 0)
	wantCode(t, aerr, CodeInvalidAmount)

	if aerr := env.agreement.TopUp(ctx, testSender, a.ID, 500); aerr != nil {
		t.Fatalf("topup failed: %v", aerr)
	}
	got := env.reload(t, a.ID)
	if got.TotalAmount != 1500 {
		t.Fatalf("total = %d, want 1500", got.TotalAmount)
	}
	// end extends by 500 * 100 / 1000 = 50 seconds.
	if got.EndTime != a.StartTime+150 {
		t.Fatalf("end = %d, want %d", got.EndTime, a.StartTime+150)
	}

	env.clk.Advance(150 * time.Second)
	amount, aerr2 := env.agreement.Withdraw(ctx, testReceiver, a.ID)
	if aerr2 != nil {
		t.Fatalf("withdraw after topup failed: %v", aerr2)
	}
	if amount != 1500 {
		t.Fatalf("withdraw at end = %d, want 1500", amount)
	}
}

func TestDisputeLifecycle(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	a := env.mustCreate(t, env.linearInput(1000, 100))

	aerr := env.agreement.Freeze(ctx, testArbiter, a.ID)
	wantCode(t, aerr, CodeArbiterNotSet)

	aerr = env.agreement.SetArbiter(ctx, testSender, a.ID, testReceiver)
	wantCode(t, aerr, CodeUnauthorized)
	if aerr := env.agreement.SetArbiter(ctx, testSender, a.ID, testArbiter); aerr != nil {
		t.Fatalf("set arbiter failed: %v", aerr)
	}

	aerr = env.agreement.ResolveDispute(ctx, testArbiter, a.ID, 5000)
	wantCode(t, aerr, CodeAgreementNotFrozen)

	aerr = env.agreement.Freeze(ctx, testSender, a.ID)
	wantCode(t, aerr, CodeUnauthorized)
	if aerr := env.agreement.Freeze(ctx, testArbiter, a.ID); aerr != nil {
		t.Fatalf("freeze failed: %v", aerr)
	}

	env.clk.Advance(50 * time.Second)
	_, werr := env.agreement.Withdraw(ctx, testReceiver, a.ID)
	wantCode(t, werr, CodeAgreementFrozen)

	aerr = env.agreement.ResolveDispute(ctx, testArbiter, a.ID, 10001)
	wantCode(t, aerr, CodeInvalidBasisPoints)
	if aerr := env.agreement.ResolveDispute(ctx, testArbiter, a.ID, 2500); aerr != nil {
		t.Fatalf("resolve failed: %v", aerr)
	}
	got := env.reload(t, a.ID)
	if !got.Cancelled || got.IsFrozen {
		t.Fatalf("resolved agreement state: cancelled=%v frozen=%v", got.Cancelled, got.IsFrozen)
	}
	if got.WithdrawnAmount != got.TotalAmount {
		t.Fatalf("resolution left unsettled balance: %d of %d", got.WithdrawnAmount, got.TotalAmount)
	}
}

func TestClawbackAlwaysDisabled(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	a := env.mustCreate(t, env.linearInput(1000, 100))
	for _, caller := range []string{testSender, testAdmin, testReceiver} {
		aerr := env.agreement.Clawback(ctx, caller, a.ID)
		wantCode(t, aerr, CodeClawbackDisabled)
	}
}

func TestVaultLifecycle(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	mock := vault.NewMock(1000) // 10% yield
	env.vaults.Register("vault:mock", mock)

	// Unapproved refs are rejected.
	in := env.linearInput(1000, 100)
	in.VaultRef = "vault:mock"
	in.InterestStrategy = settlement.PartyReceiver
	_, aerr := env.agreement.Create(ctx, testSender, in)
	wantCode(t, aerr, CodeVaultNotApproved)

	aerr = env.agreement.ApproveVault(ctx, testThird, "vault:mock")
	wantCode(t, aerr, CodeRoleRequired)
	if aerr := env.agreement.ApproveVault(ctx, testAdmin, "vault:mock"); aerr != nil {
		t.Fatalf("approve vault failed: %v", aerr)
	}

	a := env.mustCreate(t, in)
	if a.VaultShares != 1000 || a.DepositedPrincipal != 1000 {
		t.Fatalf("deposit state: shares=%d principal=%d", a.VaultShares, a.DepositedPrincipal)
	}

	env.clk.Advance(50 * time.Second)
	amount, werr := env.agreement.Withdraw(ctx, testReceiver, a.ID)
	if werr != nil {
		t.Fatalf("withdraw failed: %v", werr)
	}
	if amount != 500 {
		t.Fatalf("withdraw = %d, want 500", amount)
	}
	got := env.reload(t, a.ID)
	if got.VaultShares != 500 {
		t.Fatalf("shares after withdraw = %d, want 500", got.VaultShares)
	}

	events, err := env.events.ListByAgreement(ctx, a.ID)
	if err != nil {
		t.Fatalf("list events: %v", err)
	}
	var sawInterest bool
	for _, ev := range events {
		if ev.Type == types.EventInterestPaid {
			sawInterest = true
			if ev.Amount != 50 {
				t.Fatalf("interest amount = %d, want 50", ev.Amount)
			}
		}
	}
	if !sawInterest {
		t.Fatal("no interest event recorded")
	}

	if aerr := env.agreement.Cancel(ctx, testSender, a.ID); aerr != nil {
		t.Fatalf("cancel failed: %v", aerr)
	}
	got = env.reload(t, a.ID)
	if got.VaultShares != 0 {
		t.Fatalf("shares after cancel = %d, want 0", got.VaultShares)
	}
}

func TestVaultFailureLeavesAccountingUntouched(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	mock := vault.NewMock(0)
	env.vaults.Register("vault:flaky", mock)
	if aerr := env.agreement.ApproveVault(ctx, testAdmin, "vault:flaky"); aerr != nil {
		t.Fatalf("approve vault failed: %v", aerr)
	}
	in := env.linearInput(1000, 100)
	in.VaultRef = "vault:flaky"
	a := env.mustCreate(t, in)

	env.clk.Advance(50 * time.Second)
	mock.Fail = true
	_, werr := env.agreement.Withdraw(ctx, testReceiver, a.ID)
	wantCode(t, werr, CodeVaultFailed)

	got := env.reload(t, a.ID)
	if got.WithdrawnAmount != 0 || got.VaultShares != 1000 {
		t.Fatalf("failed vault mutated accounting: withdrawn=%d shares=%d", got.WithdrawnAmount, got.VaultShares)
	}

	mock.Fail = false
	if _, werr := env.agreement.Withdraw(ctx, testReceiver, a.ID); werr != nil {
		t.Fatalf("withdraw after recovery failed: %v", werr)
	}
}

func TestEventsAppendedPerMutation(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	a := env.mustCreate(t, env.linearInput(1000, 10))
	env.clk.Advance(5 * time.Second)
	if _, aerr := env.agreement.Withdraw(ctx, testReceiver, a.ID); aerr != nil {
		t.Fatalf("withdraw failed: %v", aerr)
	}
	if aerr := env.agreement.Cancel(ctx, testSender, a.ID); aerr != nil {
		t.Fatalf("cancel failed: %v", aerr)
	}

	events, err := env.events.ListByAgreement(ctx, a.ID)
	if err != nil {
		t.Fatalf("list events: %v", err)
	}
	seen := map[string]int{}
	for _, ev := range events {
		seen[ev.Type]++
	}
	if seen[types.EventAgreementCreated] != 1 {
		t.Fatalf("created events = %d", seen[types.EventAgreementCreated])
	}
	if seen[types.EventWithdrawal] == 0 {
		t.Fatal("no withdrawal event")
	}
	if seen[types.EventCancelled] != 1 {
		t.Fatalf("cancelled events = %d", seen[types.EventCancelled])
	}
}

func TestVaultValueReflectsYield(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	mock := vault.NewMock(1000) // 10% yield
	env.vaults.Register("vault:mock", mock)
	if aerr := env.agreement.ApproveVault(ctx, testAdmin, "vault:mock"); aerr != nil {
		t.Fatalf("approve vault failed: %v", aerr)
	}

	in := env.linearInput(500, 100)
	in.VaultRef = "vault:mock"
	a := env.mustCreate(t, in)

	value, aerr := env.agreement.VaultValue(ctx, a.ID)
	if aerr != nil {
		t.Fatalf("vault value failed: %v", aerr)
	}
	if value != 550 {
		t.Fatalf("vault value = %d, want 550", value)
	}

	mock.Fail = true
	_, aerr = env.agreement.VaultValue(ctx, a.ID)
	wantCode(t, aerr, CodeVaultFailed)
	mock.Fail = false

	// Valuation is read-only.
	got := env.reload(t, a.ID)
	if got.VaultShares != 500 {
		t.Fatalf("shares after valuation = %d, want 500", got.VaultShares)
	}

	plain := env.mustCreate(t, env.linearInput(1000, 100))
	value, aerr = env.agreement.VaultValue(ctx, plain.ID)
	if aerr != nil {
		t.Fatalf("vault value failed: %v", aerr)
	}
	if value != 0 {
		t.Fatalf("vault value without vault = %d, want 0", value)
	}
}

func TestAgreementCountTracksCreates(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	n, err := env.agreementRepo.Count(ctx, nil)
	if err != nil {
		t.Fatalf("count failed: %v", err)
	}
	if n != 0 {
		t.Fatalf("initial count = %d, want 0", n)
	}

	env.mustCreate(t, env.linearInput(1000, 100))
	env.mustCreate(t, env.linearInput(2000, 200))

	n, err = env.agreementRepo.Count(ctx, nil)
	if err != nil {
		t.Fatalf("count failed: %v", err)
	}
	if n != 2 {
		t.Fatalf("count after creates = %d, want 2", n)
	}
}
