package repos

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/brightpath-hq/brightpath-backend/internal/logger"
	"github.com/brightpath-hq/brightpath-backend/internal/types"
)

type TrackRepo interface {
	GetByIDs(ctx context.Context, tx *gorm.DB, ids []uuid.UUID) ([]*types.TrainingTrack, error)
	// GetForUser returns the active tracks visible to the user: platform
	// tracks plus tracks scoped to the user's agencies. Used by the
	// cross-track progress summary.
	GetForUser(ctx context.Context, tx *gorm.DB, userID uuid.UUID) ([]*types.TrainingTrack, error)
}

type trackRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewTrackRepo(db *gorm.DB, baseLog *logger.Logger) TrackRepo {
	return &trackRepo{db: db, log: baseLog.With("repo", "TrackRepo")}
}

func (r *trackRepo) GetByIDs(ctx context.Context, tx *gorm.DB, ids []uuid.UUID) ([]*types.TrainingTrack, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}

	var results []*types.TrainingTrack
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

func (r *trackRepo) GetForUser(ctx context.Context, tx *gorm.DB, userID uuid.UUID) ([]*types.TrainingTrack, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}

	var results []*types.TrainingTrack
	if userID == uuid.Nil {
		return results, nil
	}

	if err := transaction.WithContext(ctx).
		Raw(`
			SELECT DISTINCT t.*
			FROM training_track t
			WHERE t.is_active = TRUE
			  AND (
				t.agency_id IS NULL
				OR t.agency_id IN (SELECT agency_id FROM user_agency WHERE user_id = ?)
			  )
			ORDER BY t.order_index ASC, t.name ASC
		`, userID).
		Scan(&results).Error; err != nil {
		return nil, err
	}
	return results, nil
}
