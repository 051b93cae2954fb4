package types

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
)

// Proposal is a pending multi-party agreement creation. Executed flips to
// true exactly once, when the distinct-approver count first reaches the
// threshold before the deadline.
type Proposal struct {
	ID                uuid.UUID      `gorm:"type:uuid;primaryKey" json:"id"`
	Sender            string         `gorm:"not null;index;column:sender" json:"sender"`
	Receiver          string         `gorm:"not null;column:receiver" json:"receiver"`
	Asset             string         `gorm:"not null;column:asset" json:"asset"`
	TotalAmount       int64          `gorm:"not null;column:total_amount" json:"total_amount"`
	StartTime         int64          `gorm:"not null;column:start_time" json:"start_time"`
	EndTime           int64          `gorm:"not null;column:end_time" json:"end_time"`
	Approvers         datatypes.JSON `gorm:"column:approvers" json:"approvers"`
	RequiredApprovals int            `gorm:"not null;column:required_approvals" json:"required_approvals"`
	Deadline          int64          `gorm:"not null;column:deadline" json:"deadline"`
	Executed          bool           `gorm:"not null;default:false;column:executed" json:"executed"`
	AgreementID       *uuid.UUID     `gorm:"type:uuid;column:agreement_id" json:"agreement_id,omitempty"`
	CreatedAt         time.Time      `gorm:"not null" json:"created_at"`
	UpdatedAt         time.Time      `gorm:"not null" json:"updated_at"`
}

func (Proposal) TableName() string { return "proposal" }
