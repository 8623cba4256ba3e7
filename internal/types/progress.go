package types

import (
	"time"

	"github.com/google/uuid"
)

const (
	ProgressNotStarted = "not_started"
	ProgressInProgress = "in_progress"
	ProgressCompleted  = "completed"
)

// ModuleProgress is the per-(user, module) progress record. It is
// created lazily on the first status-affecting call and never deleted.
// time_spent_seconds is the single authoritative time field; minute
// views are derived at the API boundary.
type ModuleProgress struct {
	ID                 uuid.UUID       `gorm:"type:uuid;default:uuid_generate_v4();primaryKey" json:"id"`
	UserID             uuid.UUID       `gorm:"type:uuid;not null;index:idx_user_module_progress,unique" json:"user_id"`
	User               *User           `gorm:"constraint:OnDelete:CASCADE;foreignKey:UserID;references:ID" json:"user,omitempty"`
	ModuleID           uuid.UUID       `gorm:"type:uuid;not null;index:idx_user_module_progress,unique" json:"module_id"`
	Module             *TrainingModule `gorm:"constraint:OnDelete:CASCADE;foreignKey:ModuleID;references:ID" json:"module,omitempty"`
	Status             string          `gorm:"column:status;not null;default:'not_started'" json:"status"`
	StartedAt          *time.Time      `gorm:"column:started_at" json:"started_at,omitempty"`
	CompletedAt        *time.Time      `gorm:"column:completed_at" json:"completed_at,omitempty"`
	TimeSpentSeconds   int             `gorm:"column:time_spent_seconds;not null;default:0" json:"time_spent_seconds"`
	OverriddenByUserID *uuid.UUID      `gorm:"type:uuid;column:overridden_by_user_id" json:"overridden_by_user_id,omitempty"`
	OverriddenAt       *time.Time      `gorm:"column:overridden_at" json:"overridden_at,omitempty"`
	CreatedAt          time.Time       `gorm:"not null;default:now()" json:"created_at"`
	UpdatedAt          time.Time       `gorm:"not null;default:now()" json:"updated_at"`
}

func (ModuleProgress) TableName() string { return "module_progress" }

// TimeSpentMinutes is the minute-rounded boundary view of the
// authoritative second counter.
func (p *ModuleProgress) TimeSpentMinutes() int {
	if p == nil {
		return 0
	}
	return p.TimeSpentSeconds / 60
}
