package types

import (
	"time"

	"github.com/google/uuid"
)

type Agency struct {
	ID                     uuid.UUID `gorm:"type:uuid;default:uuid_generate_v4();primaryKey" json:"id"`
	Name                   string    `gorm:"column:name;not null" json:"name"`
	CertificateTemplateURL string    `gorm:"column:certificate_template_url" json:"certificate_template_url,omitempty"`
	CreatedAt              time.Time `gorm:"not null;default:now()" json:"created_at"`
	UpdatedAt              time.Time `gorm:"not null;default:now()" json:"updated_at"`
}

func (Agency) TableName() string { return "agency" }

// UserAgency links users to the agencies they work under. The earliest
// association counts as the user's primary agency.
type UserAgency struct {
	ID        uuid.UUID `gorm:"type:uuid;default:uuid_generate_v4();primaryKey" json:"id"`
	UserID    uuid.UUID `gorm:"type:uuid;not null;index:idx_user_agency,unique" json:"user_id"`
	User      *User     `gorm:"constraint:OnDelete:CASCADE;foreignKey:UserID;references:ID" json:"user,omitempty"`
	AgencyID  uuid.UUID `gorm:"type:uuid;not null;index:idx_user_agency,unique" json:"agency_id"`
	Agency    *Agency   `gorm:"constraint:OnDelete:CASCADE;foreignKey:AgencyID;references:ID" json:"agency,omitempty"`
	CreatedAt time.Time `gorm:"not null;default:now()" json:"created_at"`
}

func (UserAgency) TableName() string { return "user_agency" }
