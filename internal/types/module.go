package types

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
)

type TrainingModule struct {
	ID                   uuid.UUID      `gorm:"type:uuid;default:uuid_generate_v4();primaryKey" json:"id"`
	Title                string         `gorm:"column:title;not null" json:"title"`
	Description          string         `gorm:"column:description" json:"description"`
	OrderIndex           int            `gorm:"column:order_index;not null;default:0" json:"order_index"`
	TrackID              *uuid.UUID     `gorm:"type:uuid;index" json:"track_id,omitempty"` // legacy single-parent linkage
	Track                *TrainingTrack `gorm:"constraint:OnDelete:SET NULL;foreignKey:TrackID;references:ID" json:"track,omitempty"`
	AgencyID             *uuid.UUID     `gorm:"type:uuid;index" json:"agency_id,omitempty"`
	Agency               *Agency        `gorm:"constraint:OnDelete:SET NULL;foreignKey:AgencyID;references:ID" json:"agency,omitempty"`
	IsActive             bool           `gorm:"column:is_active;not null;default:true" json:"is_active"`
	IsStandalone         bool           `gorm:"column:is_standalone;not null;default:false" json:"is_standalone"`
	EstimatedTimeMinutes *int           `gorm:"column:estimated_time_minutes" json:"estimated_time_minutes,omitempty"`
	CreatedAt            time.Time      `gorm:"not null;default:now()" json:"created_at"`
	UpdatedAt            time.Time      `gorm:"not null;default:now()" json:"updated_at"`
}

func (TrainingModule) TableName() string { return "training_module" }

const (
	ContentTypeVideo    = "video"
	ContentTypeDocument = "document"
	ContentTypeQuiz     = "quiz"
)

// ModuleContent holds a module's content items. For content_type "quiz"
// the content_data payload is a ModuleQuizDefinition.
type ModuleContent struct {
	ID          uuid.UUID       `gorm:"type:uuid;default:uuid_generate_v4();primaryKey" json:"id"`
	ModuleID    uuid.UUID       `gorm:"type:uuid;not null;index" json:"module_id"`
	Module      *TrainingModule `gorm:"constraint:OnDelete:CASCADE;foreignKey:ModuleID;references:ID" json:"module,omitempty"`
	ContentType string          `gorm:"column:content_type;not null;index" json:"content_type"`
	OrderIndex  int             `gorm:"column:order_index;not null;default:0" json:"order_index"`
	ContentData datatypes.JSON  `gorm:"type:jsonb;column:content_data" json:"content_data"`
	CreatedAt   time.Time       `gorm:"not null;default:now()" json:"created_at"`
	UpdatedAt   time.Time       `gorm:"not null;default:now()" json:"updated_at"`
}

func (ModuleContent) TableName() string { return "module_content" }

type QuizQuestion struct {
	Type          string   `json:"type"` // "multiple_choice","true_false","text"
	Prompt        string   `json:"prompt"`
	Options       []string `json:"options,omitempty"`
	CorrectAnswer string   `json:"correctAnswer"`
}

// ModuleQuizDefinition is the jsonb shape stored in module_content rows
// of type "quiz". MinimumScore of zero means no passing threshold.
type ModuleQuizDefinition struct {
	Questions    []QuizQuestion `json:"questions"`
	MinimumScore float64        `json:"minimumScore,omitempty"`
}
