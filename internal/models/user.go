package models

import "github.com/google/uuid"

// User is the read-only projection of a learner owned by the profile service.
type User struct {
	ID             uuid.UUID `gorm:"type:uuid;primaryKey" json:"id"`
	Name           string    `gorm:"size:255;not null" json:"name"`
	OrganizationID string    `gorm:"size:64;index" json:"organization_id"`
}
