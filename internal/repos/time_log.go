package repos

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/brightpath-hq/brightpath-backend/internal/logger"
	"github.com/brightpath-hq/brightpath-backend/internal/types"
)

// TimeLogRepo is append-only: no update or delete methods on purpose.
type TimeLogRepo interface {
	Create(ctx context.Context, tx *gorm.DB, row *types.TimeLog) error
	GetByUserAndModule(ctx context.Context, tx *gorm.DB, userID, moduleID uuid.UUID) ([]*types.TimeLog, error)
}

type timeLogRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewTimeLogRepo(db *gorm.DB, baseLog *logger.Logger) TimeLogRepo {
	return &timeLogRepo{db: db, log: baseLog.With("repo", "TimeLogRepo")}
}

func (r *timeLogRepo) Create(ctx context.Context, tx *gorm.DB, row *types.TimeLog) error {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}

	if row == nil {
		return nil
	}

	return transaction.WithContext(ctx).Create(row).Error
}

func (r *timeLogRepo) GetByUserAndModule(ctx context.Context, tx *gorm.DB, userID, moduleID uuid.UUID) ([]*types.TimeLog, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}

	var results []*types.TimeLog
	if userID == uuid.Nil || moduleID == uuid.Nil {
		return results, nil
	}

	if err := transaction.WithContext(ctx).
		Where("user_id = ? AND module_id = ?", userID, moduleID).
		Order("session_start ASC").
		Find(&results).Error; err != nil {
		return nil, err
	}
	return results, nil
}
