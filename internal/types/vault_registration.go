package types

import (
	"time"

	"github.com/google/uuid"
)

// VaultRegistration approves a vault reference for use by new agreements.
type VaultRegistration struct {
	ID         uuid.UUID `gorm:"type:uuid;primaryKey" json:"id"`
	Ref        string    `gorm:"not null;uniqueIndex;column:ref" json:"ref"`
	ApprovedBy string    `gorm:"not null;column:approved_by" json:"approved_by"`
	CreatedAt  time.Time `gorm:"not null" json:"created_at"`
	UpdatedAt  time.Time `gorm:"not null" json:"updated_at"`
}

func (VaultRegistration) TableName() string { return "vault_registration" }
