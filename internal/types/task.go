package types

import (
	"time"

	"github.com/google/uuid"
)

const (
	TaskTypeTraining = "training"

	TaskStatusPending    = "pending"
	TaskStatusInProgress = "in_progress"
	TaskStatusCompleted  = "completed"
)

// Task is an assignment record ("complete this training module by
// Friday"). Completing a module closes its open training tasks as a
// best-effort side effect.
type Task struct {
	ID               uuid.UUID  `gorm:"type:uuid;default:uuid_generate_v4();primaryKey" json:"id"`
	TaskType         string     `gorm:"column:task_type;not null;index" json:"task_type"`
	Title            string     `gorm:"column:title;not null" json:"title"`
	Description      string     `gorm:"column:description" json:"description"`
	ReferenceID      *uuid.UUID `gorm:"type:uuid;column:reference_id;index" json:"reference_id,omitempty"`
	AssignedToUserID uuid.UUID  `gorm:"type:uuid;not null;index" json:"assigned_to_user_id"`
	AssignedTo       *User      `gorm:"constraint:OnDelete:CASCADE;foreignKey:AssignedToUserID;references:ID" json:"assigned_to,omitempty"`
	AssignedByUserID *uuid.UUID `gorm:"type:uuid" json:"assigned_by_user_id,omitempty"`
	Status           string     `gorm:"column:status;not null;default:'pending';index" json:"status"`
	DueDate          *time.Time `gorm:"column:due_date" json:"due_date,omitempty"`
	CompletedAt      *time.Time `gorm:"column:completed_at" json:"completed_at,omitempty"`
	CreatedAt        time.Time  `gorm:"not null;default:now()" json:"created_at"`
	UpdatedAt        time.Time  `gorm:"not null;default:now()" json:"updated_at"`
}

func (Task) TableName() string { return "task" }
