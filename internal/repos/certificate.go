package repos

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/brightpath-hq/brightpath-backend/internal/logger"
	"github.com/brightpath-hq/brightpath-backend/internal/types"
)

type CertificateRepo interface {
	// CreateIfAbsent inserts the row unless a certificate with the same
	// (type, reference, user) identity already exists. Returns false when
	// the insert lost to an existing row.
	CreateIfAbsent(ctx context.Context, tx *gorm.DB, row *types.Certificate) (bool, error)
	FindByReference(ctx context.Context, tx *gorm.DB, certificateType string, referenceID uuid.UUID, userID uuid.UUID) (*types.Certificate, error)
	// FindByReferenceEmail resolves the identity of an email-only
	// certificate, where no user row exists and the email is the key.
	FindByReferenceEmail(ctx context.Context, tx *gorm.DB, certificateType string, referenceID uuid.UUID, email string) (*types.Certificate, error)
	GetByIDs(ctx context.Context, tx *gorm.DB, ids []uuid.UUID) ([]*types.Certificate, error)
	GetByUserID(ctx context.Context, tx *gorm.DB, userID uuid.UUID) ([]*types.Certificate, error)
	GetByEmail(ctx context.Context, tx *gorm.DB, email string) ([]*types.Certificate, error)
	UpdateArtifactPath(ctx context.Context, tx *gorm.DB, id uuid.UUID, artifactPath string) error
}

type certificateRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewCertificateRepo(db *gorm.DB, baseLog *logger.Logger) CertificateRepo {
	return &certificateRepo{db: db, log: baseLog.With("repo", "CertificateRepo")}
}

func (r *certificateRepo) CreateIfAbsent(ctx context.Context, tx *gorm.DB, row *types.Certificate) (bool, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}

	if row == nil {
		return false, nil
	}

	// The identity unique index turns the duplicate insert into a no-op
	// instead of an error; RowsAffected tells us which happened.
	res := transaction.WithContext(ctx).
		Clauses(clause.OnConflict{DoNothing: true}).
		Create(row)
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected > 0, nil
}

func (r *certificateRepo) FindByReference(ctx context.Context, tx *gorm.DB, certificateType string, referenceID uuid.UUID, userID uuid.UUID) (*types.Certificate, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}

	if certificateType == "" || referenceID == uuid.Nil || userID == uuid.Nil {
		return nil, nil
	}

	var rows []*types.Certificate
	if err := transaction.WithContext(ctx).
		Where("certificate_type = ? AND reference_id = ? AND user_id = ?", certificateType, referenceID, userID).
		Limit(1).
		Find(&rows).Error; err != nil {
		return nil, err
	}
	if len(rows) == 0 {
		return nil, nil
	}
	return rows[0], nil
}

func (r *certificateRepo) FindByReferenceEmail(ctx context.Context, tx *gorm.DB, certificateType string, referenceID uuid.UUID, email string) (*types.Certificate, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}

	if certificateType == "" || referenceID == uuid.Nil || email == "" {
		return nil, nil
	}

	var rows []*types.Certificate
	if err := transaction.WithContext(ctx).
		Where("certificate_type = ? AND reference_id = ? AND user_id IS NULL AND email = ?", certificateType, referenceID, email).
		Limit(1).
		Find(&rows).Error; err != nil {
		return nil, err
	}
	if len(rows) == 0 {
		return nil, nil
	}
	return rows[0], nil
}

func (r *certificateRepo) GetByIDs(ctx context.Context, tx *gorm.DB, ids []uuid.UUID) ([]*types.Certificate, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}

	var results []*types.Certificate
	if len(ids) == 0 {
		return results, nil
	}

	if err := transaction.WithContext(ctx).
		Where("id IN ?", ids).
		Find(&results).Error; err != nil {
		return nil, err
	}
	return results, nil
}

func (r *certificateRepo) GetByUserID(ctx context.Context, tx *gorm.DB, userID uuid.UUID) ([]*types.Certificate, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}

	var results []*types.Certificate
	if userID == uuid.Nil {
		return results, nil
	}

	if err := transaction.WithContext(ctx).
		Where("user_id = ?", userID).
		Order("issued_at DESC").
		Find(&results).Error; err != nil {
		return nil, err
	}
	return results, nil
}

func (r *certificateRepo) GetByEmail(ctx context.Context, tx *gorm.DB, email string) ([]*types.Certificate, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}

	var results []*types.Certificate
	if email == "" {
		return results, nil
	}

	if err := transaction.WithContext(ctx).
		Where("user_id IS NULL AND email = ?", email).
		Order("issued_at DESC").
		Find(&results).Error; err != nil {
		return nil, err
	}
	return results, nil
}

// UpdateArtifactPath is the single permitted mutation on a certificate:
// re-rendering replaces the stored artifact, nothing else.
func (r *certificateRepo) UpdateArtifactPath(ctx context.Context, tx *gorm.DB, id uuid.UUID, artifactPath string) error {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}

	return transaction.WithContext(ctx).
		Model(&types.Certificate{}).
		Where("id = ?", id).
		Update("artifact_path", artifactPath).Error
}
