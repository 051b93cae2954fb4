package types

import (
	"time"

	"github.com/google/uuid"
)

// CurrentSchemaVersion is the version newly created records carry.
const CurrentSchemaVersion uint32 = 2

// MigrationRecord marks one schema version transition as executed. One row
// per target version makes every migration one-shot.
type MigrationRecord struct {
	ID            uuid.UUID `gorm:"type:uuid;primaryKey" json:"id"`
	TargetVersion uint32    `gorm:"not null;uniqueIndex;column:target_version" json:"target_version"`
	ExecutedBy    string    `gorm:"not null;column:executed_by" json:"executed_by"`
	ExecutedAt    int64     `gorm:"not null;column:executed_at" json:"executed_at"`
	CreatedAt     time.Time `gorm:"not null" json:"created_at"`
}

func (MigrationRecord) TableName() string { return "migration_record" }
