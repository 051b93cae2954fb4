package services

import (
	"context"
	"encoding/json"
	"errors"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/yungbote/streamvault-backend/internal/apierr"
	"github.com/yungbote/streamvault-backend/internal/clock"
	"github.com/yungbote/streamvault-backend/internal/guard"
	"github.com/yungbote/streamvault-backend/internal/logger"
	"github.com/yungbote/streamvault-backend/internal/repos"
	"github.com/yungbote/streamvault-backend/internal/settlement"
	"github.com/yungbote/streamvault-backend/internal/types"
	"github.com/yungbote/streamvault-backend/internal/vault"
	"github.com/yungbote/streamvault-backend/internal/vesting"
)

type CreateAgreementInput struct {
	Receiver         string              `json:"receiver"`
	Asset            string              `json:"asset"`
	TotalAmount      int64               `json:"total_amount"`
	StartTime        int64               `json:"start_time"`
	CliffTime        int64               `json:"cliff_time"`
	EndTime          int64               `json:"end_time"`
	Curve            string              `json:"curve"`
	Milestones       []vesting.Milestone `json:"milestones,omitempty"`
	Soulbound        bool                `json:"soulbound"`
	InterestStrategy uint32              `json:"interest_strategy"`
	VaultRef         string              `json:"vault_ref,omitempty"`
}

// AgreementService owns the lifecycle of a streaming-payment agreement.
// Every mutation runs inside one transaction together with its audit events,
// behind the per-agreement reentrancy guard where funds move.
type AgreementService interface {
	Create(ctx context.Context, caller string, in CreateAgreementInput) (*types.Agreement, *apierr.Error)
	Get(ctx context.Context, id uuid.UUID) (*types.Agreement, *apierr.Error)
	ListByParty(ctx context.Context, identity string) ([]*types.Agreement, *apierr.Error)
	Withdrawable(ctx context.Context, id uuid.UUID) (int64, *apierr.Error)
	VaultValue(ctx context.Context, id uuid.UUID) (int64, *apierr.Error)
	Withdraw(ctx context.Context, caller string, id uuid.UUID) (int64, *apierr.Error)
	Cancel(ctx context.Context, caller string, id uuid.UUID) *apierr.Error
	Pause(ctx context.Context, caller string, id uuid.UUID) *apierr.Error
	Unpause(ctx context.Context, caller string, id uuid.UUID) *apierr.Error
	TopUp(ctx context.Context, caller string, id uuid.UUID, amount int64) *apierr.Error
	TransferReceiver(ctx context.Context, caller string, id uuid.UUID, newReceiver string) *apierr.Error
	TransferReceipt(ctx context.Context, caller string, id uuid.UUID, newOwner string) *apierr.Error
	SetArbiter(ctx context.Context, caller string, id uuid.UUID, arbiter string) *apierr.Error
	Freeze(ctx context.Context, caller string, id uuid.UUID) *apierr.Error
	ResolveDispute(ctx context.Context, caller string, id uuid.UUID, receiverBps uint32) *apierr.Error
	Clawback(ctx context.Context, caller string, id uuid.UUID) *apierr.Error
	ApproveVault(ctx context.Context, caller, ref string) *apierr.Error
}

type agreementService struct {
	db            *gorm.DB
	log           *logger.Logger
	clk           clock.Clock
	guard         *guard.Guard
	agreementRepo repos.AgreementRepo
	vaultRegRepo  repos.VaultRegistrationRepo
	vaults        *vault.Registry
	access        AccessService
	compliance    ComplianceService
	events        EventService
}

func NewAgreementService(
	db *gorm.DB,
	log *logger.Logger,
	clk clock.Clock,
	g *guard.Guard,
	agreementRepo repos.AgreementRepo,
	vaultRegRepo repos.VaultRegistrationRepo,
	vaults *vault.Registry,
	access AccessService,
	compliance ComplianceService,
	events EventService,
) AgreementService {
	serviceLog := log.With("service", "AgreementService")
	return &agreementService{
		db:            db,
		log:           serviceLog,
		clk:           clk,
		guard:         g,
		agreementRepo: agreementRepo,
		vaultRegRepo:  vaultRegRepo,
		vaults:        vaults,
		access:        access,
		compliance:    compliance,
		events:        events,
	}
}

func validateSchedule(total, start, cliff, end int64) *apierr.Error {
	if total <= 0 {
		return validationErr(CodeInvalidAmount, "total amount must be positive")
	}
	if start > cliff || cliff > end || start >= end {
		return validationErr(CodeInvalidTimeRange, "schedule must satisfy start <= cliff <= end with start < end")
	}
	return nil
}

func validateMilestones(milestones []vesting.Milestone, start, end int64) *apierr.Error {
	prev := int64(-1)
	for _, m := range milestones {
		if m.Percentage > 100 {
			return validationErr(CodeInvalidMilestones, "milestone percentage exceeds 100")
		}
		if m.Timestamp < start || m.Timestamp > end {
			return validationErr(CodeInvalidMilestones, "milestone timestamp outside schedule")
		}
		if m.Timestamp <= prev {
			return validationErr(CodeInvalidMilestones, "milestone timestamps must be strictly increasing")
		}
		prev = m.Timestamp
	}
	return nil
}

func (s *agreementService) Create(ctx context.Context, caller string, in CreateAgreementInput) (*types.Agreement, *apierr.Error) {
	if aerr := validateSchedule(in.TotalAmount, in.StartTime, in.CliffTime, in.EndTime); aerr != nil {
		return nil, aerr
	}
	curve := vesting.Curve(in.Curve)
	if curve != vesting.CurveLinear && curve != vesting.CurveExponential {
		return nil, validationErr(CodeInvalidMilestones, "unknown curve type")
	}
	if aerr := validateMilestones(in.Milestones, in.StartTime, in.EndTime); aerr != nil {
		return nil, aerr
	}
	if aerr := s.compliance.ValidateParty(ctx, nil, in.Receiver); aerr != nil {
		return nil, aerr
	}
	if aerr := s.compliance.ValidateAsset(ctx, nil, in.Asset); aerr != nil {
		return nil, aerr
	}

	var milestonesJSON []byte
	if len(in.Milestones) > 0 {
		raw, err := json.Marshal(in.Milestones)
		if err != nil {
			return nil, internalErr(err)
		}
		milestonesJSON = raw
	}

	agreement := &types.Agreement{
		ID:               uuid.New(),
		Sender:           caller,
		Receiver:         in.Receiver,
		Asset:            in.Asset,
		TotalAmount:      in.TotalAmount,
		StartTime:        in.StartTime,
		CliffTime:        in.CliffTime,
		EndTime:          in.EndTime,
		Curve:            string(curve),
		Milestones:       milestonesJSON,
		IsSoulbound:      in.Soulbound,
		ReceiptOwner:     in.Receiver,
		InterestStrategy: in.InterestStrategy,
		RecordVersion:    types.CurrentSchemaVersion,
	}

	txErr := s.events.Tx(ctx, func(tx *gorm.DB) error {
		if in.VaultRef != "" {
			approved, err := s.vaultRegRepo.Approved(ctx, tx, in.VaultRef)
			if err != nil {
				return err
			}
			if !approved {
				return authErr(CodeVaultNotApproved, "vault reference is not approved")
			}
			adapter, err := s.vaults.Get(in.VaultRef)
			if err != nil {
				return authErr(CodeVaultNotApproved, "vault reference has no adapter")
			}
			shares, err := adapter.Deposit(ctx, in.TotalAmount)
			if err != nil {
				return upstreamErr(CodeVaultFailed, err)
			}
			agreement.VaultRef = in.VaultRef
			agreement.VaultShares = shares
			agreement.DepositedPrincipal = in.TotalAmount
		}
		if _, err := s.agreementRepo.Create(ctx, tx, agreement); err != nil {
			return err
		}
		return s.events.Append(ctx, tx, &types.LedgerEvent{
			AgreementID: &agreement.ID,
			Type:        types.EventAgreementCreated,
			Actor:       caller,
			Amount:      agreement.TotalAmount,
			Payload: jsonPayload(map[string]any{
				"receiver":  agreement.Receiver,
				"asset":     agreement.Asset,
				"soulbound": agreement.IsSoulbound,
			}),
			OccurredAt: s.clk.Now().Unix(),
		})
	})
	if txErr != nil {
		return nil, asAPIError(txErr)
	}
	return agreement, nil
}

func (s *agreementService) Get(ctx context.Context, id uuid.UUID) (*types.Agreement, *apierr.Error) {
	agreement, err := s.agreementRepo.GetByID(ctx, nil, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, notFoundErr(CodeAgreementNotFound, "agreement not found")
		}
		return nil, internalErr(err)
	}
	return agreement, nil
}

func (s *agreementService) ListByParty(ctx context.Context, identity string) ([]*types.Agreement, *apierr.Error) {
	agreements, err := s.agreementRepo.ListByParty(ctx, nil, identity)
	if err != nil {
		return nil, internalErr(err)
	}
	return agreements, nil
}

func (s *agreementService) unlockedNow(a *types.Agreement, now int64) (int64, *apierr.Error) {
	pausedSeconds := a.TotalPausedDuration
	if a.IsPaused {
		pausedSeconds += now - a.PausedAt
	}
	var milestones []vesting.Milestone
	if len(a.Milestones) > 0 {
		if err := json.Unmarshal(a.Milestones, &milestones); err != nil {
			return 0, internalErr(err)
		}
	}
	unlocked, err := vesting.Unlocked(a.TotalAmount, a.StartTime, a.CliffTime, a.EndTime, now, pausedSeconds, vesting.Curve(a.Curve), milestones)
	if err != nil {
		return 0, arithmeticErr(CodeCurveOverflow, err.Error())
	}
	return unlocked, nil
}

func (s *agreementService) Withdrawable(ctx context.Context, id uuid.UUID) (int64, *apierr.Error) {
	agreement, aerr := s.Get(ctx, id)
	if aerr != nil {
		return 0, aerr
	}
	unlocked, aerr := s.unlockedNow(agreement, s.clk.Now().Unix())
	if aerr != nil {
		return 0, aerr
	}
	return settlement.Withdrawable(unlocked, agreement.WithdrawnAmount), nil
}

// VaultValue reports the current redeemable value of the agreement's vault
// position without moving funds. Agreements with no vault, or whose shares
// are fully redeemed, hold no external position and report zero.
func (s *agreementService) VaultValue(ctx context.Context, id uuid.UUID) (int64, *apierr.Error) {
	agreement, aerr := s.Get(ctx, id)
	if aerr != nil {
		return 0, aerr
	}
	if agreement.VaultRef == "" || agreement.VaultShares <= 0 {
		return 0, nil
	}
	adapter, err := s.vaults.Get(agreement.VaultRef)
	if err != nil {
		return 0, upstreamErr(CodeVaultFailed, err)
	}
	value, err := adapter.ValueOf(ctx, agreement.VaultShares)
	if err != nil {
		return 0, upstreamErr(CodeVaultFailed, err)
	}
	return value, nil
}

// redeemForWithdrawal pulls back the vault shares covering an amount of
// principal. Yield above principal is interest, split per the agreement's
// strategy. Returns the shares redeemed and the interest split.
func (s *agreementService) redeemForWithdrawal(ctx context.Context, a *types.Agreement, amount int64) (int64, settlement.Shares, error) {
	if a.VaultRef == "" || a.VaultShares <= 0 {
		return 0, settlement.Shares{}, nil
	}
	adapter, err := s.vaults.Get(a.VaultRef)
	if err != nil {
		return 0, settlement.Shares{}, upstreamErr(CodeVaultFailed, err)
	}
	remaining := a.TotalAmount - a.WithdrawnAmount
	sharesToRedeem := settlement.ProportionalShares(a.VaultShares, amount, remaining)
	if sharesToRedeem == 0 {
		return 0, settlement.Shares{}, nil
	}
	value, err := adapter.Redeem(ctx, sharesToRedeem)
	if err != nil {
		return 0, settlement.Shares{}, upstreamErr(CodeVaultFailed, err)
	}
	interest := settlement.VaultInterest(value, amount)
	return sharesToRedeem, settlement.SplitInterest(interest, a.InterestStrategy), nil
}

func (s *agreementService) Withdraw(ctx context.Context, caller string, id uuid.UUID) (int64, *apierr.Error) {
	if !s.guard.Acquire(id) {
		return 0, conflictErr(CodeReentrantCall, "agreement operation already in flight")
	}
	defer s.guard.Release(id)

	var amount int64
	txErr := s.events.Tx(ctx, func(tx *gorm.DB) error {
		agreement, err := s.agreementRepo.GetByID(ctx, tx, id)
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return notFoundErr(CodeAgreementNotFound, "agreement not found")
			}
			return err
		}
		if caller != agreement.ReceiptOwner {
			return authErr(CodeNotReceiptOwner, "caller does not hold the withdrawal receipt")
		}
		if agreement.Cancelled {
			return conflictErr(CodeAlreadyCancelled, "agreement is cancelled")
		}
		if agreement.IsFrozen {
			return conflictErr(CodeAgreementFrozen, "agreement is frozen pending dispute")
		}
		if agreement.IsPaused {
			return conflictErr(CodeAgreementPaused, "agreement is paused")
		}
		now := s.clk.Now().Unix()
		unlocked, aerr := s.unlockedNow(agreement, now)
		if aerr != nil {
			return aerr
		}
		amount = settlement.Withdrawable(unlocked, agreement.WithdrawnAmount)
		if amount == 0 {
			return conflictErr(CodeNothingWithdrawable, "nothing withdrawable yet")
		}

		redeemedShares, interest, err := s.redeemForWithdrawal(ctx, agreement, amount)
		if err != nil {
			return err
		}
		agreement.VaultShares -= redeemedShares
		agreement.WithdrawnAmount += amount
		if err := s.agreementRepo.Update(ctx, tx, agreement); err != nil {
			return err
		}
		if err := s.events.Append(ctx, tx, &types.LedgerEvent{
			AgreementID: &agreement.ID,
			Type:        types.EventWithdrawal,
			Actor:       caller,
			Amount:      amount,
			OccurredAt:  now,
		}); err != nil {
			return err
		}
		return s.appendInterestEvent(ctx, tx, agreement, caller, interest, now)
	})
	if txErr != nil {
		return 0, asAPIError(txErr)
	}
	return amount, nil
}

func (s *agreementService) appendInterestEvent(ctx context.Context, tx *gorm.DB, a *types.Agreement, actor string, shares settlement.Shares, now int64) error {
	total := shares.Sender + shares.Receiver + shares.Protocol
	if total == 0 {
		return nil
	}
	return s.events.Append(ctx, tx, &types.LedgerEvent{
		AgreementID: &a.ID,
		Type:        types.EventInterestPaid,
		Actor:       actor,
		Amount:      total,
		Payload: jsonPayload(map[string]any{
			"sender":   shares.Sender,
			"receiver": shares.Receiver,
			"protocol": shares.Protocol,
		}),
		OccurredAt: now,
	})
}

func (s *agreementService) Cancel(ctx context.Context, caller string, id uuid.UUID) *apierr.Error {
	if !s.guard.Acquire(id) {
		return conflictErr(CodeReentrantCall, "agreement operation already in flight")
	}
	defer s.guard.Release(id)

	txErr := s.events.Tx(ctx, func(tx *gorm.DB) error {
		agreement, err := s.agreementRepo.GetByID(ctx, tx, id)
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return notFoundErr(CodeAgreementNotFound, "agreement not found")
			}
			return err
		}
		if caller != agreement.Sender {
			return authErr(CodeUnauthorized, "only the sender may cancel")
		}
		if agreement.Cancelled {
			return conflictErr(CodeAlreadyCancelled, "agreement is already cancelled")
		}
		if agreement.IsFrozen {
			return conflictErr(CodeAgreementFrozen, "agreement is frozen pending dispute")
		}
		if agreement.WithdrawnAmount >= agreement.TotalAmount {
			return conflictErr(CodeAgreementCompleted, "agreement is fully settled")
		}
		now := s.clk.Now().Unix()
		unlocked, aerr := s.unlockedNow(agreement, now)
		if aerr != nil {
			return aerr
		}
		receiverDue := settlement.Withdrawable(unlocked, agreement.WithdrawnAmount)
		senderRefund := agreement.TotalAmount - unlocked

		var interest settlement.Shares
		if agreement.VaultRef != "" && agreement.VaultShares > 0 {
			adapter, err := s.vaults.Get(agreement.VaultRef)
			if err != nil {
				return upstreamErr(CodeVaultFailed, err)
			}
			outstanding := agreement.TotalAmount - agreement.WithdrawnAmount
			value, err := adapter.Redeem(ctx, agreement.VaultShares)
			if err != nil {
				return upstreamErr(CodeVaultFailed, err)
			}
			interest = settlement.SplitInterest(settlement.VaultInterest(value, outstanding), agreement.InterestStrategy)
			agreement.VaultShares = 0
		}

		agreement.Cancelled = true
		agreement.WithdrawnAmount = unlocked
		if agreement.IsPaused {
			agreement.TotalPausedDuration += now - agreement.PausedAt
			agreement.IsPaused = false
			agreement.PausedAt = 0
		}
		if err := s.agreementRepo.Update(ctx, tx, agreement); err != nil {
			return err
		}
		if receiverDue > 0 {
			if err := s.events.Append(ctx, tx, &types.LedgerEvent{
				AgreementID: &agreement.ID,
				Type:        types.EventWithdrawal,
				Actor:       agreement.ReceiptOwner,
				Amount:      receiverDue,
				OccurredAt:  now,
			}); err != nil {
				return err
			}
		}
		if err := s.events.Append(ctx, tx, &types.LedgerEvent{
			AgreementID: &agreement.ID,
			Type:        types.EventCancelled,
			Actor:       caller,
			Amount:      senderRefund,
			OccurredAt:  now,
		}); err != nil {
			return err
		}
		return s.appendInterestEvent(ctx, tx, agreement, caller, interest, now)
	})
	return asAPIError(txErr)
}

func (s *agreementService) pauseAuthorized(ctx context.Context, caller string, a *types.Agreement) *apierr.Error {
	if caller == a.Sender {
		return nil
	}
	return s.access.EnsureAny(ctx, caller, types.RolePauser, types.RoleAdmin)
}

func (s *agreementService) Pause(ctx context.Context, caller string, id uuid.UUID) *apierr.Error {
	txErr := s.events.Tx(ctx, func(tx *gorm.DB) error {
		agreement, err := s.agreementRepo.GetByID(ctx, tx, id)
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return notFoundErr(CodeAgreementNotFound, "agreement not found")
			}
			return err
		}
		if aerr := s.pauseAuthorized(ctx, caller, agreement); aerr != nil {
			return aerr
		}
		if agreement.Cancelled {
			return conflictErr(CodeAlreadyCancelled, "agreement is cancelled")
		}
		if agreement.IsFrozen {
			return conflictErr(CodeAgreementFrozen, "agreement is frozen pending dispute")
		}
		if agreement.IsPaused {
			return conflictErr(CodeAgreementPaused, "agreement is already paused")
		}
		now := s.clk.Now().Unix()
		agreement.IsPaused = true
		agreement.PausedAt = now
		if err := s.agreementRepo.Update(ctx, tx, agreement); err != nil {
			return err
		}
		return s.events.Append(ctx, tx, &types.LedgerEvent{
			AgreementID: &agreement.ID,
			Type:        types.EventPaused,
			Actor:       caller,
			OccurredAt:  now,
		})
	})
	return asAPIError(txErr)
}

func (s *agreementService) Unpause(ctx context.Context, caller string, id uuid.UUID) *apierr.Error {
	txErr := s.events.Tx(ctx, func(tx *gorm.DB) error {
		agreement, err := s.agreementRepo.GetByID(ctx, tx, id)
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return notFoundErr(CodeAgreementNotFound, "agreement not found")
			}
			return err
		}
		if aerr := s.pauseAuthorized(ctx, caller, agreement); aerr != nil {
			return aerr
		}
		if !agreement.IsPaused {
			return conflictErr(CodeAgreementNotPaused, "agreement is not paused")
		}
		now := s.clk.Now().Unix()
		agreement.TotalPausedDuration += now - agreement.PausedAt
		agreement.IsPaused = false
		agreement.PausedAt = 0
		if err := s.agreementRepo.Update(ctx, tx, agreement); err != nil {
			return err
		}
		return s.events.Append(ctx, tx, &types.LedgerEvent{
			AgreementID: &agreement.ID,
			Type:        types.EventUnpaused,
			Actor:       caller,
			OccurredAt:  now,
		})
	})
	return asAPIError(txErr)
}

// TopUp adds funds to a live agreement and extends the end time in
// proportion, so the payout rate is preserved.
func (s *agreementService) TopUp(ctx context.Context, caller string, id uuid.UUID, amount int64) *apierr.Error {
	if amount <= 0 {
		return validationErr(CodeInvalidAmount, "top-up amount must be positive")
	}
	if !s.guard.Acquire(id) {
		return conflictErr(CodeReentrantCall, "agreement operation already in flight")
	}
	defer s.guard.Release(id)

	txErr := s.events.Tx(ctx, func(tx *gorm.DB) error {
		agreement, err := s.agreementRepo.GetByID(ctx, tx, id)
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return notFoundErr(CodeAgreementNotFound, "agreement not found")
			}
			return err
		}
		if caller != agreement.Sender {
			return authErr(CodeUnauthorized, "only the sender may top up")
		}
		if agreement.Cancelled {
			return conflictErr(CodeAlreadyCancelled, "agreement is cancelled")
		}
		if agreement.IsFrozen {
			return conflictErr(CodeAgreementFrozen, "agreement is frozen pending dispute")
		}
		if agreement.WithdrawnAmount >= agreement.TotalAmount {
			return conflictErr(CodeAgreementCompleted, "agreement is fully settled")
		}

		extension, err := extendForTopUp(agreement.TotalAmount, agreement.StartTime, agreement.EndTime, amount)
		if err != nil {
			return arithmeticErr(CodeCurveOverflow, err.Error())
		}
		agreement.EndTime += extension
		agreement.TotalAmount += amount

		if agreement.VaultRef != "" {
			adapter, err := s.vaults.Get(agreement.VaultRef)
			if err != nil {
				return upstreamErr(CodeVaultFailed, err)
			}
			shares, err := adapter.Deposit(ctx, amount)
			if err != nil {
				return upstreamErr(CodeVaultFailed, err)
			}
			agreement.VaultShares += shares
			agreement.DepositedPrincipal += amount
		}

		if err := s.agreementRepo.Update(ctx, tx, agreement); err != nil {
			return err
		}
		return s.events.Append(ctx, tx, &types.LedgerEvent{
			AgreementID: &agreement.ID,
			Type:        types.EventToppedUp,
			Actor:       caller,
			Amount:      amount,
			Payload:     jsonPayload(map[string]any{"new_end_time": agreement.EndTime, "new_total": agreement.TotalAmount}),
			OccurredAt:  s.clk.Now().Unix(),
		})
	})
	return asAPIError(txErr)
}

func (s *agreementService) TransferReceiver(ctx context.Context, caller string, id uuid.UUID, newReceiver string) *apierr.Error {
	txErr := s.events.Tx(ctx, func(tx *gorm.DB) error {
		agreement, err := s.agreementRepo.GetByID(ctx, tx, id)
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return notFoundErr(CodeAgreementNotFound, "agreement not found")
			}
			return err
		}
		// The soulbound check comes before authorization: the answer must not
		// depend on who asks.
		if agreement.IsSoulbound {
			return authErr(CodeSoulboundReceiver, "receiver of a soulbound agreement cannot change")
		}
		if caller != agreement.Receiver {
			return authErr(CodeUnauthorized, "only the current receiver may transfer")
		}
		if agreement.Cancelled {
			return conflictErr(CodeAlreadyCancelled, "agreement is cancelled")
		}
		if aerr := s.compliance.ValidateParty(ctx, tx, newReceiver); aerr != nil {
			return aerr
		}
		oldReceiver := agreement.Receiver
		agreement.Receiver = newReceiver
		if agreement.ReceiptOwner == oldReceiver {
			agreement.ReceiptOwner = newReceiver
		}
		if err := s.agreementRepo.Update(ctx, tx, agreement); err != nil {
			return err
		}
		return s.events.Append(ctx, tx, &types.LedgerEvent{
			AgreementID: &agreement.ID,
			Type:        types.EventReceiverChanged,
			Actor:       caller,
			Payload:     jsonPayload(map[string]any{"from": oldReceiver, "to": newReceiver}),
			OccurredAt:  s.clk.Now().Unix(),
		})
	})
	return asAPIError(txErr)
}

func (s *agreementService) TransferReceipt(ctx context.Context, caller string, id uuid.UUID, newOwner string) *apierr.Error {
	txErr := s.events.Tx(ctx, func(tx *gorm.DB) error {
		agreement, err := s.agreementRepo.GetByID(ctx, tx, id)
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return notFoundErr(CodeAgreementNotFound, "agreement not found")
			}
			return err
		}
		if caller != agreement.ReceiptOwner {
			return authErr(CodeNotReceiptOwner, "caller does not hold the withdrawal receipt")
		}
		if agreement.Cancelled {
			return conflictErr(CodeAlreadyCancelled, "agreement is cancelled")
		}
		if aerr := s.compliance.ValidateParty(ctx, tx, newOwner); aerr != nil {
			return aerr
		}
		oldOwner := agreement.ReceiptOwner
		agreement.ReceiptOwner = newOwner
		if err := s.agreementRepo.Update(ctx, tx, agreement); err != nil {
			return err
		}
		return s.events.Append(ctx, tx, &types.LedgerEvent{
			AgreementID: &agreement.ID,
			Type:        types.EventReceiptChanged,
			Actor:       caller,
			Payload:     jsonPayload(map[string]any{"from": oldOwner, "to": newOwner}),
			OccurredAt:  s.clk.Now().Unix(),
		})
	})
	return asAPIError(txErr)
}

func (s *agreementService) SetArbiter(ctx context.Context, caller string, id uuid.UUID, arbiter string) *apierr.Error {
	txErr := s.events.Tx(ctx, func(tx *gorm.DB) error {
		agreement, err := s.agreementRepo.GetByID(ctx, tx, id)
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return notFoundErr(CodeAgreementNotFound, "agreement not found")
			}
			return err
		}
		if caller != agreement.Sender {
			return authErr(CodeUnauthorized, "only the sender may assign an arbiter")
		}
		if arbiter == "" || arbiter == agreement.Sender || arbiter == agreement.Receiver {
			return authErr(CodeUnauthorized, "arbiter must be a third party")
		}
		if agreement.Cancelled {
			return conflictErr(CodeAlreadyCancelled, "agreement is cancelled")
		}
		agreement.Arbiter = arbiter
		if err := s.agreementRepo.Update(ctx, tx, agreement); err != nil {
			return err
		}
		return s.events.Append(ctx, tx, &types.LedgerEvent{
			AgreementID: &agreement.ID,
			Type:        types.EventArbiterSet,
			Actor:       caller,
			Payload:     jsonPayload(map[string]any{"arbiter": arbiter}),
			OccurredAt:  s.clk.Now().Unix(),
		})
	})
	return asAPIError(txErr)
}

func (s *agreementService) Freeze(ctx context.Context, caller string, id uuid.UUID) *apierr.Error {
	txErr := s.events.Tx(ctx, func(tx *gorm.DB) error {
		agreement, err := s.agreementRepo.GetByID(ctx, tx, id)
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return notFoundErr(CodeAgreementNotFound, "agreement not found")
			}
			return err
		}
		if agreement.Arbiter == "" {
			return conflictErr(CodeArbiterNotSet, "no arbiter assigned")
		}
		if caller != agreement.Arbiter {
			return authErr(CodeUnauthorized, "only the arbiter may freeze")
		}
		if agreement.Cancelled {
			return conflictErr(CodeAlreadyCancelled, "agreement is cancelled")
		}
		if agreement.IsFrozen {
			return conflictErr(CodeAgreementFrozen, "agreement is already frozen")
		}
		agreement.IsFrozen = true
		if err := s.agreementRepo.Update(ctx, tx, agreement); err != nil {
			return err
		}
		return s.events.Append(ctx, tx, &types.LedgerEvent{
			AgreementID: &agreement.ID,
			Type:        types.EventFrozen,
			Actor:       caller,
			OccurredAt:  s.clk.Now().Unix(),
		})
	})
	return asAPIError(txErr)
}

// ResolveDispute settles a frozen agreement. The arbiter picks the receiver's
// share of the remaining balance in basis points; the sender takes the exact
// complement and the agreement terminates.
func (s *agreementService) ResolveDispute(ctx context.Context, caller string, id uuid.UUID, receiverBps uint32) *apierr.Error {
	if receiverBps > settlement.MaxBasisPoints {
		return validationErr(CodeInvalidBasisPoints, "basis points out of range")
	}
	if !s.guard.Acquire(id) {
		return conflictErr(CodeReentrantCall, "agreement operation already in flight")
	}
	defer s.guard.Release(id)

	txErr := s.events.Tx(ctx, func(tx *gorm.DB) error {
		agreement, err := s.agreementRepo.GetByID(ctx, tx, id)
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return notFoundErr(CodeAgreementNotFound, "agreement not found")
			}
			return err
		}
		if agreement.Arbiter == "" {
			return conflictErr(CodeArbiterNotSet, "no arbiter assigned")
		}
		if caller != agreement.Arbiter {
			return authErr(CodeUnauthorized, "only the arbiter may resolve")
		}
		if agreement.Cancelled {
			return conflictErr(CodeAlreadyCancelled, "agreement is cancelled")
		}
		if !agreement.IsFrozen {
			return conflictErr(CodeAgreementNotFrozen, "agreement is not frozen")
		}
		now := s.clk.Now().Unix()
		remaining := agreement.TotalAmount - agreement.WithdrawnAmount
		receiverShare, senderShare, err := settlement.DisputeSplit(remaining, receiverBps)
		if err != nil {
			return validationErr(CodeInvalidBasisPoints, err.Error())
		}

		var interest settlement.Shares
		if agreement.VaultRef != "" && agreement.VaultShares > 0 {
			adapter, err := s.vaults.Get(agreement.VaultRef)
			if err != nil {
				return upstreamErr(CodeVaultFailed, err)
			}
			value, err := adapter.Redeem(ctx, agreement.VaultShares)
			if err != nil {
				return upstreamErr(CodeVaultFailed, err)
			}
			interest = settlement.SplitInterest(settlement.VaultInterest(value, remaining), agreement.InterestStrategy)
			agreement.VaultShares = 0
		}

		agreement.IsFrozen = false
		agreement.Cancelled = true
		agreement.WithdrawnAmount = agreement.TotalAmount
		if agreement.IsPaused {
			agreement.TotalPausedDuration += now - agreement.PausedAt
			agreement.IsPaused = false
			agreement.PausedAt = 0
		}
		if err := s.agreementRepo.Update(ctx, tx, agreement); err != nil {
			return err
		}
		if err := s.events.Append(ctx, tx, &types.LedgerEvent{
			AgreementID: &agreement.ID,
			Type:        types.EventDisputeResolved,
			Actor:       caller,
			Amount:      remaining,
			Payload: jsonPayload(map[string]any{
				"receiver_share": receiverShare,
				"sender_share":   senderShare,
				"receiver_bps":   receiverBps,
			}),
			OccurredAt: now,
		}); err != nil {
			return err
		}
		return s.appendInterestEvent(ctx, tx, agreement, caller, interest, now)
	})
	return asAPIError(txErr)
}

// Clawback exists as an explicit always-off switch. Deriving it from asset
// metadata is a possible future behavior; until then every call is rejected.
func (s *agreementService) Clawback(ctx context.Context, caller string, id uuid.UUID) *apierr.Error {
	return authErr(CodeClawbackDisabled, "clawback is disabled for all assets")
}

func (s *agreementService) ApproveVault(ctx context.Context, caller, ref string) *apierr.Error {
	if ref == "" {
		return validationErr(CodeInvalidAmount, "vault reference required")
	}
	if aerr := s.access.EnsureAny(ctx, caller, types.RoleTreasuryManager, types.RoleAdmin); aerr != nil {
		return aerr
	}
	txErr := s.events.Tx(ctx, func(tx *gorm.DB) error {
		approved, err := s.vaultRegRepo.Approved(ctx, tx, ref)
		if err != nil {
			return err
		}
		if approved {
			return nil
		}
		if _, err := s.vaultRegRepo.Approve(ctx, tx, &types.VaultRegistration{
			ID:         uuid.New(),
			Ref:        ref,
			ApprovedBy: caller,
		}); err != nil {
			return err
		}
		return s.events.Append(ctx, tx, &types.LedgerEvent{
			Type:       types.EventVaultApproved,
			Actor:      caller,
			Payload:    jsonPayload(map[string]any{"ref": ref}),
			OccurredAt: s.clk.Now().Unix(),
		})
	})
	return asAPIError(txErr)
}
