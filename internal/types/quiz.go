package types

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
)

// QuizAttempt is an append-only scored attempt. Retakes insert new rows;
// failing attempts are retained.
type QuizAttempt struct {
	ID          uuid.UUID       `gorm:"type:uuid;default:uuid_generate_v4();primaryKey" json:"id"`
	UserID      uuid.UUID       `gorm:"type:uuid;not null;index:idx_quiz_attempt_user_module" json:"user_id"`
	User        *User           `gorm:"constraint:OnDelete:CASCADE;foreignKey:UserID;references:ID" json:"user,omitempty"`
	ModuleID    uuid.UUID       `gorm:"type:uuid;not null;index:idx_quiz_attempt_user_module" json:"module_id"`
	Module      *TrainingModule `gorm:"constraint:OnDelete:CASCADE;foreignKey:ModuleID;references:ID" json:"module,omitempty"`
	Score       float64         `gorm:"column:score;not null" json:"score"` // 0-100
	Answers     datatypes.JSON  `gorm:"type:jsonb;column:answers" json:"answers"`
	CompletedAt time.Time       `gorm:"column:completed_at;not null;index" json:"completed_at"`
	CreatedAt   time.Time       `gorm:"not null;default:now()" json:"created_at"`
}

func (QuizAttempt) TableName() string { return "quiz_attempt" }
