package services

import (
	"context"
	"encoding/json"
	"errors"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/yungbote/streamvault-backend/internal/apierr"
	"github.com/yungbote/streamvault-backend/internal/clock"
	"github.com/yungbote/streamvault-backend/internal/logger"
	"github.com/yungbote/streamvault-backend/internal/repos"
	"github.com/yungbote/streamvault-backend/internal/types"
	"github.com/yungbote/streamvault-backend/internal/vesting"
)

type ProposeCreateInput struct {
	Receiver          string `json:"receiver"`
	Asset             string `json:"asset"`
	TotalAmount       int64  `json:"total_amount"`
	StartTime         int64  `json:"start_time"`
	EndTime           int64  `json:"end_time"`
	RequiredApprovals int    `json:"required_approvals"`
	Deadline          int64  `json:"deadline"`
}

// ApproveResult reports the proposal after one approval. AgreementID is set
// only on the approval that reached quorum.
type ApproveResult struct {
	Proposal    *types.Proposal `json:"proposal"`
	AgreementID *uuid.UUID      `json:"agreement_id,omitempty"`
}

// ProposalService runs the multi-party approval workflow. The quorum
// transition executes exactly once: the approval that first reaches the
// threshold creates the agreement in the same transaction, so no
// partial-custody state is ever observable.
type ProposalService interface {
	ProposeCreate(ctx context.Context, caller string, in ProposeCreateInput) (*types.Proposal, *apierr.Error)
	Approve(ctx context.Context, caller string, id uuid.UUID) (*ApproveResult, *apierr.Error)
	Get(ctx context.Context, id uuid.UUID) (*types.Proposal, *apierr.Error)
}

type proposalService struct {
	db            *gorm.DB
	log           *logger.Logger
	clk           clock.Clock
	proposalRepo  repos.ProposalRepo
	agreementRepo repos.AgreementRepo
	compliance    ComplianceService
	events        EventService
}

func NewProposalService(
	db *gorm.DB,
	log *logger.Logger,
	clk clock.Clock,
	proposalRepo repos.ProposalRepo,
	agreementRepo repos.AgreementRepo,
	compliance ComplianceService,
	events EventService,
) ProposalService {
	serviceLog := log.With("service", "ProposalService")
	return &proposalService{
		db:            db,
		log:           serviceLog,
		clk:           clk,
		proposalRepo:  proposalRepo,
		agreementRepo: agreementRepo,
		compliance:    compliance,
		events:        events,
	}
}

func (ps *proposalService) ProposeCreate(ctx context.Context, caller string, in ProposeCreateInput) (*types.Proposal, *apierr.Error) {
	if in.TotalAmount <= 0 {
		return nil, validationErr(CodeInvalidAmount, "total amount must be positive")
	}
	if in.StartTime >= in.EndTime {
		return nil, validationErr(CodeInvalidTimeRange, "start must be before end")
	}
	if in.RequiredApprovals < 1 {
		return nil, validationErr(CodeInvalidThreshold, "required approvals must be at least 1")
	}
	now := ps.clk.Now().Unix()
	if in.Deadline <= now {
		return nil, validationErr(CodeInvalidTimeRange, "deadline must be in the future")
	}
	if aerr := ps.compliance.ValidateParty(ctx, nil, in.Receiver); aerr != nil {
		return nil, aerr
	}
	if aerr := ps.compliance.ValidateAsset(ctx, nil, in.Asset); aerr != nil {
		return nil, aerr
	}

	proposal := &types.Proposal{
		ID:                uuid.New(),
		Sender:            caller,
		Receiver:          in.Receiver,
		Asset:             in.Asset,
		TotalAmount:       in.TotalAmount,
		StartTime:         in.StartTime,
		EndTime:           in.EndTime,
		Approvers:         []byte("[]"),
		RequiredApprovals: in.RequiredApprovals,
		Deadline:          in.Deadline,
	}
	txErr := ps.events.Tx(ctx, func(tx *gorm.DB) error {
		if _, err := ps.proposalRepo.Create(ctx, tx, proposal); err != nil {
			return err
		}
		return ps.events.Append(ctx, tx, &types.LedgerEvent{
			ProposalID: &proposal.ID,
			Type:       types.EventProposalCreated,
			Actor:      caller,
			Amount:     proposal.TotalAmount,
			Payload: jsonPayload(map[string]any{
				"receiver":           proposal.Receiver,
				"required_approvals": proposal.RequiredApprovals,
				"deadline":           proposal.Deadline,
			}),
			OccurredAt: now,
		})
	})
	if txErr != nil {
		return nil, asAPIError(txErr)
	}
	return proposal, nil
}

func (ps *proposalService) Approve(ctx context.Context, caller string, id uuid.UUID) (*ApproveResult, *apierr.Error) {
	var result ApproveResult
	txErr := ps.events.Tx(ctx, func(tx *gorm.DB) error {
		proposal, err := ps.proposalRepo.GetByID(ctx, tx, id)
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return notFoundErr(CodeProposalNotFound, "proposal not found")
			}
			return err
		}
		var approvers []string
		if len(proposal.Approvers) > 0 {
			if err := json.Unmarshal(proposal.Approvers, &approvers); err != nil {
				return err
			}
		}
		// Duplicate approval stays "already approved" even after execution,
		// so a re-approving identity gets the same answer either way.
		for _, a := range approvers {
			if a == caller {
				return conflictErr(CodeAlreadyApproved, "identity already approved")
			}
		}
		if proposal.Executed {
			return conflictErr(CodeAlreadyExecuted, "proposal already executed")
		}
		now := ps.clk.Now().Unix()
		if now > proposal.Deadline {
			return conflictErr(CodeProposalExpired, "proposal deadline has passed")
		}
		approvers = append(approvers, caller)
		raw, err := json.Marshal(approvers)
		if err != nil {
			return err
		}
		proposal.Approvers = raw

		if err := ps.events.Append(ctx, tx, &types.LedgerEvent{
			ProposalID: &proposal.ID,
			Type:       types.EventProposalApproved,
			Actor:      caller,
			Payload:    jsonPayload(map[string]any{"approvals": len(approvers)}),
			OccurredAt: now,
		}); err != nil {
			return err
		}

		if len(approvers) >= proposal.RequiredApprovals {
			if aerr := ps.compliance.ValidateParty(ctx, tx, proposal.Receiver); aerr != nil {
				return aerr
			}
			agreement := &types.Agreement{
				ID:            uuid.New(),
				Sender:        proposal.Sender,
				Receiver:      proposal.Receiver,
				Asset:         proposal.Asset,
				TotalAmount:   proposal.TotalAmount,
				StartTime:     proposal.StartTime,
				CliffTime:     proposal.StartTime,
				EndTime:       proposal.EndTime,
				Curve:         string(vesting.CurveLinear),
				ReceiptOwner:  proposal.Receiver,
				RecordVersion: types.CurrentSchemaVersion,
			}
			if _, err := ps.agreementRepo.Create(ctx, tx, agreement); err != nil {
				return err
			}
			proposal.Executed = true
			proposal.AgreementID = &agreement.ID
			result.AgreementID = &agreement.ID
			if err := ps.events.Append(ctx, tx, &types.LedgerEvent{
				ProposalID:  &proposal.ID,
				AgreementID: &agreement.ID,
				Type:        types.EventProposalExecuted,
				Actor:       caller,
				Amount:      proposal.TotalAmount,
				OccurredAt:  now,
			}); err != nil {
				return err
			}
			if err := ps.events.Append(ctx, tx, &types.LedgerEvent{
				AgreementID: &agreement.ID,
				Type:        types.EventAgreementCreated,
				Actor:       proposal.Sender,
				Amount:      agreement.TotalAmount,
				Payload: jsonPayload(map[string]any{
					"receiver": agreement.Receiver,
					"asset":    agreement.Asset,
					"proposal": proposal.ID.String(),
				}),
				OccurredAt: now,
			}); err != nil {
				return err
			}
		}

		if err := ps.proposalRepo.Update(ctx, tx, proposal); err != nil {
			return err
		}
		result.Proposal = proposal
		return nil
	})
	if txErr != nil {
		return nil, asAPIError(txErr)
	}
	return &result, nil
}

func (ps *proposalService) Get(ctx context.Context, id uuid.UUID) (*types.Proposal, *apierr.Error) {
	proposal, err := ps.proposalRepo.GetByID(ctx, nil, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, notFoundErr(CodeProposalNotFound, "proposal not found")
		}
		return nil, internalErr(err)
	}
	return proposal, nil
}
