package types

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
)

const (
	CertificateTypeModule        = "module"
	CertificateTypeTrainingFocus = "training_focus"
)

// Certificate is written once by the issuer and never auto-deleted.
// The (certificate_type, reference_id, user_id) identity is enforced by
// a partial unique index created in db.PostgresService so that two
// concurrent completions cannot insert duplicates.
type Certificate struct {
	ID                uuid.UUID      `gorm:"type:uuid;default:uuid_generate_v4();primaryKey" json:"id"`
	CertificateType   string         `gorm:"column:certificate_type;not null;index:idx_certificate_identity" json:"certificate_type"`
	ReferenceID       uuid.UUID      `gorm:"type:uuid;column:reference_id;not null;index:idx_certificate_identity" json:"reference_id"`
	UserID            *uuid.UUID     `gorm:"type:uuid;index:idx_certificate_identity" json:"user_id,omitempty"`
	User              *User          `gorm:"constraint:OnDelete:SET NULL;foreignKey:UserID;references:ID" json:"user,omitempty"`
	Email             string         `gorm:"column:email;index" json:"email,omitempty"` // passwordless recipients
	CertificateNumber string         `gorm:"column:certificate_number;not null;uniqueIndex" json:"certificate_number"`
	CertificateData   datatypes.JSON `gorm:"type:jsonb;column:certificate_data" json:"certificate_data"`
	ArtifactPath      string         `gorm:"column:artifact_path" json:"artifact_path"`
	IssuedAt          time.Time      `gorm:"column:issued_at;not null" json:"issued_at"`
	CreatedAt         time.Time      `gorm:"not null;default:now()" json:"created_at"`
}

func (Certificate) TableName() string { return "certificate" }

// CertificateData is the jsonb snapshot baked into the record so the
// artifact can be re-rendered without re-reading catalog state.
type CertificateData struct {
	RecipientName     string    `json:"recipientName"`
	ReferenceName     string    `json:"referenceName"`
	CertificateType   string    `json:"certificateType"`
	CertificateNumber string    `json:"certificateNumber"`
	IssuedAt          time.Time `json:"issuedAt"`
	AgencyName        string    `json:"agencyName,omitempty"`
	ModuleNames       []string  `json:"moduleNames,omitempty"`
}
