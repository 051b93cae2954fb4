package types

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
)

const (
	EventAgreementCreated  = "agreement.created"
	EventProposalCreated   = "proposal.created"
	EventProposalApproved  = "proposal.approved"
	EventProposalExecuted  = "proposal.executed"
	EventWithdrawal        = "agreement.withdrawal"
	EventCancelled         = "agreement.cancelled"
	EventPaused            = "agreement.paused"
	EventUnpaused          = "agreement.unpaused"
	EventToppedUp          = "agreement.topped_up"
	EventReceiverChanged   = "agreement.receiver_changed"
	EventReceiptChanged    = "agreement.receipt_changed"
	EventArbiterSet        = "agreement.arbiter_set"
	EventFrozen            = "agreement.frozen"
	EventDisputeResolved   = "agreement.dispute_resolved"
	EventInterestPaid      = "agreement.interest_paid"
	EventRoleGranted       = "access.role_granted"
	EventRoleRevoked       = "access.role_revoked"
	EventPartyRestricted   = "compliance.restricted"
	EventPartyUnrestricted = "compliance.unrestricted"
	EventAssetAllowed      = "compliance.asset_allowed"
	EventAssetDisallowed   = "compliance.asset_disallowed"
	EventVaultApproved     = "vault.approved"
	EventMigrated          = "schema.migrated"
)

// LedgerEvent is an append-only audit record written in the same transaction
// as the state change it describes. Rows are never updated or deleted.
type LedgerEvent struct {
	ID          uuid.UUID      `gorm:"type:uuid;primaryKey" json:"id"`
	AgreementID *uuid.UUID     `gorm:"type:uuid;index;column:agreement_id" json:"agreement_id,omitempty"`
	ProposalID  *uuid.UUID     `gorm:"type:uuid;index;column:proposal_id" json:"proposal_id,omitempty"`
	Type        string         `gorm:"not null;index;column:type" json:"type"`
	Actor       string         `gorm:"not null;column:actor" json:"actor"`
	Amount      int64          `gorm:"not null;default:0;column:amount" json:"amount"`
	Payload     datatypes.JSON `gorm:"column:payload" json:"payload,omitempty"`
	OccurredAt  int64          `gorm:"not null;index;column:occurred_at" json:"occurred_at"`
	CreatedAt   time.Time      `gorm:"not null" json:"created_at"`
}

func (LedgerEvent) TableName() string { return "ledger_event" }
