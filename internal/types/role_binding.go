package types

import (
	"time"

	"github.com/google/uuid"
)

const (
	RoleAdmin             = "admin"
	RolePauser            = "pauser"
	RoleTreasuryManager   = "treasury_manager"
	RoleGuardian          = "guardian"
	RoleComplianceOfficer = "compliance_officer"
)

// RoleBinding grants one role to one identity. An identity may hold several
// roles; a role may bind several identities.
type RoleBinding struct {
	ID        uuid.UUID `gorm:"type:uuid;primaryKey" json:"id"`
	Role      string    `gorm:"not null;index;uniqueIndex:idx_role_identity;column:role" json:"role"`
	Identity  string    `gorm:"not null;index;uniqueIndex:idx_role_identity;column:identity" json:"identity"`
	GrantedBy string    `gorm:"not null;column:granted_by" json:"granted_by"`
	CreatedAt time.Time `gorm:"not null" json:"created_at"`
	UpdatedAt time.Time `gorm:"not null" json:"updated_at"`
}

func (RoleBinding) TableName() string { return "role_binding" }

func KnownRole(role string) bool {
	switch role {
	case RoleAdmin, RolePauser, RoleTreasuryManager, RoleGuardian, RoleComplianceOfficer:
		return true
	}
	return false
}
