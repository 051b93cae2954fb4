package types

import (
	"time"

	"github.com/google/uuid"
)

// AllowedAsset whitelists an asset identifier for new agreements when the
// allowlist is enabled.
type AllowedAsset struct {
	ID        uuid.UUID `gorm:"type:uuid;primaryKey" json:"id"`
	Asset     string    `gorm:"not null;uniqueIndex;column:asset" json:"asset"`
	AddedBy   string    `gorm:"not null;column:added_by" json:"added_by"`
	CreatedAt time.Time `gorm:"not null" json:"created_at"`
	UpdatedAt time.Time `gorm:"not null" json:"updated_at"`
}

func (AllowedAsset) TableName() string { return "allowed_asset" }
