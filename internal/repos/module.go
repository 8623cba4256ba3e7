package repos

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/brightpath-hq/brightpath-backend/internal/logger"
	"github.com/brightpath-hq/brightpath-backend/internal/types"
)

// ModuleRepo is the catalog side of the training engine: track/module
// containment is read here and never written by the progress paths.
type ModuleRepo interface {
	GetByIDs(ctx context.Context, tx *gorm.DB, ids []uuid.UUID) ([]*types.TrainingModule, error)
	// GetModulesForTrack returns the track's modules in curriculum order.
	// Both linkage styles are honored: the track_module pivot and the
	// legacy training_module.track_id FK, with the pivot's order_index
	// winning when both exist.
	GetModulesForTrack(ctx context.Context, tx *gorm.DB, trackID uuid.UUID) ([]*types.TrainingModule, error)
	// TrackIDsForModule returns every track the module belongs to through
	// either linkage. Empty means the module is standalone.
	TrackIDsForModule(ctx context.Context, tx *gorm.DB, moduleID uuid.UUID) ([]uuid.UUID, error)
}

type moduleRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewModuleRepo(db *gorm.DB, baseLog *logger.Logger) ModuleRepo {
	return &moduleRepo{db: db, log: baseLog.With("repo", "ModuleRepo")}
}

func (r *moduleRepo) GetByIDs(ctx context.Context, tx *gorm.DB, ids []uuid.UUID) ([]*types.TrainingModule, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}

	var results []*types.TrainingModule
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

func (r *moduleRepo) GetModulesForTrack(ctx context.Context, tx *gorm.DB, trackID uuid.UUID) ([]*types.TrainingModule, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}

	var results []*types.TrainingModule
	if trackID == uuid.Nil {
		return results, nil
	}

	if err := transaction.WithContext(ctx).
		Raw(`
			SELECT m.*
			FROM training_module m
			LEFT JOIN track_module tm
				ON tm.track_id = ? AND tm.module_id = m.id
			WHERE (m.track_id = ? OR tm.track_id = ?)
			ORDER BY COALESCE(tm.order_index, m.order_index) ASC, m.created_at ASC
		`, trackID, trackID, trackID).
		Scan(&results).Error; err != nil {
		return nil, err
	}
	return results, nil
}

func (r *moduleRepo) TrackIDsForModule(ctx context.Context, tx *gorm.DB, moduleID uuid.UUID) ([]uuid.UUID, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}

	if moduleID == uuid.Nil {
		return nil, nil
	}

	var ids []uuid.UUID
	if err := transaction.WithContext(ctx).
		Raw(`
			SELECT track_id FROM track_module WHERE module_id = ?
			UNION
			SELECT track_id FROM training_module WHERE id = ? AND track_id IS NOT NULL
		`, moduleID, moduleID).
		Scan(&ids).Error; err != nil {
		return nil, err
	}
	return ids, nil
}
