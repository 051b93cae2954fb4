package types

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
)

// Agreement is a single streaming-payment record. Rows are never deleted;
// terminal states are flagged (cancelled) so the audit trail stays intact.
type Agreement struct {
	ID                  uuid.UUID      `gorm:"type:uuid;primaryKey" json:"id"`
	Sender              string         `gorm:"not null;index;column:sender" json:"sender"`
	Receiver            string         `gorm:"not null;index;column:receiver" json:"receiver"`
	Asset               string         `gorm:"not null;column:asset" json:"asset"`
	TotalAmount         int64          `gorm:"not null;column:total_amount" json:"total_amount"`
	StartTime           int64          `gorm:"not null;column:start_time" json:"start_time"`
	CliffTime           int64          `gorm:"not null;column:cliff_time" json:"cliff_time"`
	EndTime             int64          `gorm:"not null;column:end_time" json:"end_time"`
	WithdrawnAmount     int64          `gorm:"not null;default:0;column:withdrawn_amount" json:"withdrawn_amount"`
	Cancelled           bool           `gorm:"not null;default:false;column:cancelled" json:"cancelled"`
	IsPaused            bool           `gorm:"not null;default:false;column:is_paused" json:"is_paused"`
	PausedAt            int64          `gorm:"not null;default:0;column:paused_at" json:"paused_at"`
	TotalPausedDuration int64          `gorm:"not null;default:0;column:total_paused_duration" json:"total_paused_duration"`
	Curve               string         `gorm:"not null;column:curve" json:"curve"`
	Milestones          datatypes.JSON `gorm:"column:milestones" json:"milestones,omitempty"`
	IsSoulbound         bool           `gorm:"not null;default:false;column:is_soulbound" json:"is_soulbound"`
	ReceiptOwner        string         `gorm:"not null;column:receipt_owner" json:"receipt_owner"`
	InterestStrategy    uint32         `gorm:"not null;default:0;column:interest_strategy" json:"interest_strategy"`
	VaultRef            string         `gorm:"column:vault_ref" json:"vault_ref,omitempty"`
	VaultShares         int64          `gorm:"not null;default:0;column:vault_shares" json:"vault_shares"`
	DepositedPrincipal  int64          `gorm:"not null;default:0;column:deposited_principal" json:"deposited_principal"`
	Arbiter             string         `gorm:"column:arbiter" json:"arbiter,omitempty"`
	IsFrozen            bool           `gorm:"not null;default:false;column:is_frozen" json:"is_frozen"`
	RecordVersion       uint32         `gorm:"not null;column:record_version" json:"record_version"`
	CreatedAt           time.Time      `gorm:"not null" json:"created_at"`
	UpdatedAt           time.Time      `gorm:"not null" json:"updated_at"`
}

func (Agreement) TableName() string { return "agreement" }
