package repos

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/brightpath-hq/brightpath-backend/internal/logger"
	"github.com/brightpath-hq/brightpath-backend/internal/types"
)

type ProgressRepo interface {
	GetByUserAndModule(ctx context.Context, tx *gorm.DB, userID, moduleID uuid.UUID) (*types.ModuleProgress, error)
	GetByUserAndModuleIDs(ctx context.Context, tx *gorm.DB, userID uuid.UUID, moduleIDs []uuid.UUID) ([]*types.ModuleProgress, error)
	GetByUserID(ctx context.Context, tx *gorm.DB, userID uuid.UUID) ([]*types.ModuleProgress, error)
	// CreateIfAbsent inserts the row unless one already exists for the
	// same user/module pair. Returns false when the insert lost to an
	// existing row.
	CreateIfAbsent(ctx context.Context, tx *gorm.DB, row *types.ModuleProgress) (bool, error)
	Updates(ctx context.Context, tx *gorm.DB, userID, moduleID uuid.UUID, fields map[string]interface{}) error
	AddTime(ctx context.Context, tx *gorm.DB, userID, moduleID uuid.UUID, seconds int) error
}

type progressRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewProgressRepo(db *gorm.DB, baseLog *logger.Logger) ProgressRepo {
	return &progressRepo{db: db, log: baseLog.With("repo", "ProgressRepo")}
}

func (r *progressRepo) GetByUserAndModule(ctx context.Context, tx *gorm.DB, userID, moduleID uuid.UUID) (*types.ModuleProgress, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}

	if userID == uuid.Nil || moduleID == uuid.Nil {
		return nil, nil
	}

	var rows []*types.ModuleProgress
	if err := transaction.WithContext(ctx).
		Where("user_id = ? AND module_id = ?", userID, moduleID).
		Limit(1).
		Find(&rows).Error; err != nil {
		return nil, err
	}
	if len(rows) == 0 {
		return nil, nil
	}
	return rows[0], nil
}

func (r *progressRepo) GetByUserAndModuleIDs(ctx context.Context, tx *gorm.DB, userID uuid.UUID, moduleIDs []uuid.UUID) ([]*types.ModuleProgress, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}

	var results []*types.ModuleProgress
	if userID == uuid.Nil || len(moduleIDs) == 0 {
		return results, nil
	}

	if err := transaction.WithContext(ctx).
		Where("user_id = ? AND module_id IN ?", userID, moduleIDs).
		Find(&results).Error; err != nil {
		return nil, err
	}
	return results, nil
}

func (r *progressRepo) GetByUserID(ctx context.Context, tx *gorm.DB, userID uuid.UUID) ([]*types.ModuleProgress, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}

	var results []*types.ModuleProgress
	if userID == uuid.Nil {
		return results, nil
	}

	if err := transaction.WithContext(ctx).
		Where("user_id = ?", userID).
		Find(&results).Error; err != nil {
		return nil, err
	}
	return results, nil
}

func (r *progressRepo) CreateIfAbsent(ctx context.Context, tx *gorm.DB, row *types.ModuleProgress) (bool, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}

	if row == nil {
		return false, nil
	}

	// The pair unique index turns a concurrent first-touch insert into a
	// no-op instead of a duplicate-key error; RowsAffected tells us which
	// happened.
	res := transaction.WithContext(ctx).
		Clauses(clause.OnConflict{DoNothing: true}).
		Create(row)
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected > 0, nil
}

func (r *progressRepo) Updates(ctx context.Context, tx *gorm.DB, userID, moduleID uuid.UUID, fields map[string]interface{}) error {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}

	if len(fields) == 0 {
		return nil
	}

	return transaction.WithContext(ctx).
		Model(&types.ModuleProgress{}).
		Where("user_id = ? AND module_id = ?", userID, moduleID).
		Updates(fields).Error
}

// AddTime increments the counter at the store level so concurrent
// session logs for the same row cannot lose updates.
func (r *progressRepo) AddTime(ctx context.Context, tx *gorm.DB, userID, moduleID uuid.UUID, seconds int) error {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}

	if seconds == 0 {
		return nil
	}

	return transaction.WithContext(ctx).
		Model(&types.ModuleProgress{}).
		Where("user_id = ? AND module_id = ?", userID, moduleID).
		Update("time_spent_seconds", gorm.Expr("time_spent_seconds + ?", seconds)).Error
}
