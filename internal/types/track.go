package types

import (
	"time"

	"github.com/google/uuid"
)

// TrainingTrack is an ordered curriculum of modules, assembled per role
// or topic. Tracks own nothing about a user's progress; they are catalog
// data read by the completion aggregator.
type TrainingTrack struct {
	ID          uuid.UUID  `gorm:"type:uuid;default:uuid_generate_v4();primaryKey" json:"id"`
	Name        string     `gorm:"column:name;not null" json:"name"`
	Description string     `gorm:"column:description" json:"description"`
	OrderIndex  int        `gorm:"column:order_index;not null;default:0" json:"order_index"`
	AgencyID    *uuid.UUID `gorm:"type:uuid;index" json:"agency_id,omitempty"`
	Agency      *Agency    `gorm:"constraint:OnDelete:SET NULL;foreignKey:AgencyID;references:ID" json:"agency,omitempty"`
	IsActive    bool       `gorm:"column:is_active;not null;default:true" json:"is_active"`
	CreatedAt   time.Time  `gorm:"not null;default:now()" json:"created_at"`
	UpdatedAt   time.Time  `gorm:"not null;default:now()" json:"updated_at"`
}

func (TrainingTrack) TableName() string { return "training_track" }

// TrackModule is the many-to-many linkage between tracks and modules.
// When a row exists its order_index wins over the module's own
// order_index; modules linked only through the legacy module.track_id FK
// fall back to their own ordering.
type TrackModule struct {
	ID         uuid.UUID       `gorm:"type:uuid;default:uuid_generate_v4();primaryKey" json:"id"`
	TrackID    uuid.UUID       `gorm:"type:uuid;not null;index:idx_track_module,unique" json:"track_id"`
	Track      *TrainingTrack  `gorm:"constraint:OnDelete:CASCADE;foreignKey:TrackID;references:ID" json:"track,omitempty"`
	ModuleID   uuid.UUID       `gorm:"type:uuid;not null;index:idx_track_module,unique" json:"module_id"`
	Module     *TrainingModule `gorm:"constraint:OnDelete:CASCADE;foreignKey:ModuleID;references:ID" json:"module,omitempty"`
	OrderIndex int             `gorm:"column:order_index;not null;default:0" json:"order_index"`
	CreatedAt  time.Time       `gorm:"not null;default:now()" json:"created_at"`
}

func (TrackModule) TableName() string { return "track_module" }
