package types

import (
	"time"

	"github.com/google/uuid"
)

// RestrictedParty is a deny-listed counter-party identity.
type RestrictedParty struct {
	ID           uuid.UUID `gorm:"type:uuid;primaryKey" json:"id"`
	Identity     string    `gorm:"not null;uniqueIndex;column:identity" json:"identity"`
	RestrictedBy string    `gorm:"not null;column:restricted_by" json:"restricted_by"`
	CreatedAt    time.Time `gorm:"not null" json:"created_at"`
	UpdatedAt    time.Time `gorm:"not null" json:"updated_at"`
}

func (RestrictedParty) TableName() string { return "restricted_party" }
