package services

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/yungbote/streamvault-backend/internal/types"
)

func (e *testEnv) proposeInput(required int) ProposeCreateInput {
	start := e.now()
	return ProposeCreateInput{
		Receiver:          testReceiver,
		Asset:             "USDC",
		TotalAmount:       1000,
		StartTime:         start,
		EndTime:           start + 100,
		RequiredApprovals: required,
		Deadline:          start + 3600,
	}
}

func TestProposeValidation(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	in := env.proposeInput(2)
	in.TotalAmount = 0
	_, aerr := env.proposal.ProposeCreate(ctx, testSender, in)
	wantCode(t, aerr, CodeInvalidAmount)

	in = env.proposeInput(2)
	in.RequiredApprovals = 0
	_, aerr = env.proposal.ProposeCreate(ctx, testSender, in)
	wantCode(t, aerr, CodeInvalidThreshold)

	in = env.proposeInput(2)
	in.EndTime = in.StartTime
	_, aerr = env.proposal.ProposeCreate(ctx, testSender, in)
	wantCode(t, aerr, CodeInvalidTimeRange)

	in = env.proposeInput(2)
	in.Deadline = env.now() - 1
	_, aerr = env.proposal.ProposeCreate(ctx, testSender, in)
	wantCode(t, aerr, CodeInvalidTimeRange)
}

func TestQuorumExecutesExactlyOnce(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	p, aerr := env.proposal.ProposeCreate(ctx, testSender, env.proposeInput(2))
	if aerr != nil {
		t.Fatalf("propose failed: %v", aerr)
	}

	// First approval: below threshold, no agreement yet.
	res, aerr := env.proposal.Approve(ctx, "APPROVER_A", p.ID)
	if aerr != nil {
		t.Fatalf("approve A failed: %v", aerr)
	}
	if res.AgreementID != nil {
		t.Fatal("agreement created below threshold")
	}
	if res.Proposal.Executed {
		t.Fatal("proposal executed below threshold")
	}

	// Second distinct approval: quorum, agreement created atomically.
	res, aerr = env.proposal.Approve(ctx, "APPROVER_B", p.ID)
	if aerr != nil {
		t.Fatalf("approve B failed: %v", aerr)
	}
	if res.AgreementID == nil {
		t.Fatal("no agreement at quorum")
	}
	if !res.Proposal.Executed {
		t.Fatal("proposal not marked executed")
	}
	agreement := env.reload(t, *res.AgreementID)
	if agreement.TotalAmount != 1000 || agreement.Sender != testSender || agreement.Receiver != testReceiver {
		t.Fatalf("agreement fields wrong: %+v", agreement)
	}
	if agreement.RecordVersion != types.CurrentSchemaVersion {
		t.Fatalf("record version = %d", agreement.RecordVersion)
	}

	// Re-approval from an earlier approver is rejected as a duplicate,
	// not re-counted.
	_, aerr = env.proposal.Approve(ctx, "APPROVER_A", p.ID)
	wantCode(t, aerr, CodeAlreadyApproved)

	// A fresh approver after execution is rejected too.
	_, aerr = env.proposal.Approve(ctx, "APPROVER_C", p.ID)
	wantCode(t, aerr, CodeAlreadyExecuted)
}

func TestDuplicateApprovalNeverCounts(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	p, aerr := env.proposal.ProposeCreate(ctx, testSender, env.proposeInput(2))
	if aerr != nil {
		t.Fatalf("propose failed: %v", aerr)
	}
	if _, aerr := env.proposal.Approve(ctx, "APPROVER_A", p.ID); aerr != nil {
		t.Fatalf("approve failed: %v", aerr)
	}
	_, aerr = env.proposal.Approve(ctx, "APPROVER_A", p.ID)
	wantCode(t, aerr, CodeAlreadyApproved)

	got, gerr := env.proposal.Get(ctx, p.ID)
	if gerr != nil {
		t.Fatalf("get failed: %v", gerr)
	}
	if got.Executed {
		t.Fatal("duplicate approval reached quorum")
	}
}

func TestExpiredProposalRejectsApproval(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	p, aerr := env.proposal.ProposeCreate(ctx, testSender, env.proposeInput(1))
	if aerr != nil {
		t.Fatalf("propose failed: %v", aerr)
	}
	env.clk.Advance(2 * time.Hour)
	_, aerr = env.proposal.Approve(ctx, "APPROVER_A", p.ID)
	wantCode(t, aerr, CodeProposalExpired)

	got, gerr := env.proposal.Get(ctx, p.ID)
	if gerr != nil {
		t.Fatalf("get failed: %v", gerr)
	}
	if got.Executed || got.AgreementID != nil {
		t.Fatal("expired proposal mutated")
	}
}

func TestApproveUnknownProposal(t *testing.T) {
	env := newTestEnv(t)
	_, aerr := env.proposal.Approve(context.Background(), "APPROVER_A", uuid.New())
	wantCode(t, aerr, CodeProposalNotFound)
}

func TestProposalToRestrictedReceiverRejected(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	if aerr := env.compliance.Restrict(ctx, testAdmin, testReceiver); aerr != nil {
		t.Fatalf("restrict failed: %v", aerr)
	}
	_, aerr := env.proposal.ProposeCreate(ctx, testSender, env.proposeInput(1))
	wantCode(t, aerr, CodeRestrictedParty)
}

func TestRestrictionAfterProposeBlocksExecution(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	p, aerr := env.proposal.ProposeCreate(ctx, testSender, env.proposeInput(1))
	if aerr != nil {
		t.Fatalf("propose failed: %v", aerr)
	}
	if aerr := env.compliance.Restrict(ctx, testAdmin, testReceiver); aerr != nil {
		t.Fatalf("restrict failed: %v", aerr)
	}
	_, aerr = env.proposal.Approve(ctx, "APPROVER_A", p.ID)
	wantCode(t, aerr, CodeRestrictedParty)

	// The rejected quorum approval must not leave a half-executed state.
	got, gerr := env.proposal.Get(ctx, p.ID)
	if gerr != nil {
		t.Fatalf("get failed: %v", gerr)
	}
	if got.Executed || got.AgreementID != nil {
		t.Fatal("blocked execution mutated proposal")
	}
}
