package models

import (
	"fmt"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/angelmondragon/hackbot/pkg/enums"
)

// RegistrationRequest is one submission of a user asking to join a team.
type RegistrationRequest struct {
	ID               uuid.UUID                `gorm:"column:id;type:text;primaryKey"`
	UserID           string                   `gorm:"column:user_id;not null;index"`
	FullName         string                   `gorm:"column:full_name;not null"`
	TeamName         string                   `gorm:"column:team_name;not null"`
	Status           enums.RegistrationStatus `gorm:"column:status;not null;default:'pending'"`
	RejectionReason  *string                  `gorm:"column:rejection_reason"`
	ModLogMessageRef *string                  `gorm:"column:mod_log_message_ref"`
	ReviewedBy       *string                  `gorm:"column:reviewed_by"`
	CreatedAt        time.Time                `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt        time.Time                `gorm:"column:updated_at;autoUpdateTime"`
}

// TableName pins the table created by the goose migrations.
func (RegistrationRequest) TableName() string {
	return "registration_requests"
}

// BeforeCreate assigns an id when the caller did not and rejects unknown statuses.
func (r *RegistrationRequest) BeforeCreate(*gorm.DB) error {
	if r.ID == uuid.Nil {
		r.ID = uuid.New()
	}
	if r.Status == "" {
		r.Status = enums.RegistrationStatusPending
	}
	if !r.Status.IsValid() {
		return fmt.Errorf("invalid registration status %q", r.Status)
	}
	return nil
}
