package types

import (
	"time"

	"github.com/google/uuid"
)

// TimeLog is an append-only audit record of a single study session.
// Rows are never mutated or deleted; the duration is folded into the
// module_progress counter at write time.
type TimeLog struct {
	ID              uuid.UUID       `gorm:"type:uuid;default:uuid_generate_v4();primaryKey" json:"id"`
	UserID          uuid.UUID       `gorm:"type:uuid;not null;index:idx_time_log_user_module" json:"user_id"`
	User            *User           `gorm:"constraint:OnDelete:CASCADE;foreignKey:UserID;references:ID" json:"user,omitempty"`
	ModuleID        uuid.UUID       `gorm:"type:uuid;not null;index:idx_time_log_user_module" json:"module_id"`
	Module          *TrainingModule `gorm:"constraint:OnDelete:CASCADE;foreignKey:ModuleID;references:ID" json:"module,omitempty"`
	SessionStart    time.Time       `gorm:"column:session_start;not null" json:"session_start"`
	SessionEnd      *time.Time      `gorm:"column:session_end" json:"session_end,omitempty"`
	DurationMinutes int             `gorm:"column:duration_minutes;not null" json:"duration_minutes"`
	CreatedAt       time.Time       `gorm:"not null;default:now()" json:"created_at"`
}

func (TimeLog) TableName() string { return "time_log" }
