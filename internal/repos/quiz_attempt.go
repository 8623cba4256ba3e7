package repos

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/brightpath-hq/brightpath-backend/internal/logger"
	"github.com/brightpath-hq/brightpath-backend/internal/types"
)

// QuizAttemptRepo is append-only; retakes create new rows and earlier
// attempts are never touched.
type QuizAttemptRepo interface {
	Create(ctx context.Context, tx *gorm.DB, row *types.QuizAttempt) error
	GetByUserAndModule(ctx context.Context, tx *gorm.DB, userID, moduleID uuid.UUID) ([]*types.QuizAttempt, error)
	Latest(ctx context.Context, tx *gorm.DB, userID, moduleID uuid.UUID) (*types.QuizAttempt, error)
	Count(ctx context.Context, tx *gorm.DB, userID, moduleID uuid.UUID) (int64, error)
}

type quizAttemptRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewQuizAttemptRepo(db *gorm.DB, baseLog *logger.Logger) QuizAttemptRepo {
	return &quizAttemptRepo{db: db, log: baseLog.With("repo", "QuizAttemptRepo")}
}

func (r *quizAttemptRepo) Create(ctx context.Context, tx *gorm.DB, row *types.QuizAttempt) error {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}

	if row == nil {
		return nil
	}

	return transaction.WithContext(ctx).Create(row).Error
}

func (r *quizAttemptRepo) GetByUserAndModule(ctx context.Context, tx *gorm.DB, userID, moduleID uuid.UUID) ([]*types.QuizAttempt, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}

	var results []*types.QuizAttempt
	if userID == uuid.Nil || moduleID == uuid.Nil {
		return results, nil
	}

	if err := transaction.WithContext(ctx).
		Where("user_id = ? AND module_id = ?", userID, moduleID).
		Order("completed_at DESC").
		Find(&results).Error; err != nil {
		return nil, err
	}
	return results, nil
}

// Latest is the attempt with the maximum completed_at, regardless of
// insertion order.
func (r *quizAttemptRepo) Latest(ctx context.Context, tx *gorm.DB, userID, moduleID uuid.UUID) (*types.QuizAttempt, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}

	if userID == uuid.Nil || moduleID == uuid.Nil {
		return nil, nil
	}

	var rows []*types.QuizAttempt
	if err := transaction.WithContext(ctx).
		Where("user_id = ? AND module_id = ?", userID, moduleID).
		Order("completed_at DESC").
		Limit(1).
		Find(&rows).Error; err != nil {
		return nil, err
	}
	if len(rows) == 0 {
		return nil, nil
	}
	return rows[0], nil
}

func (r *quizAttemptRepo) Count(ctx context.Context, tx *gorm.DB, userID, moduleID uuid.UUID) (int64, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}

	if userID == uuid.Nil || moduleID == uuid.Nil {
		return 0, nil
	}

	var count int64
	if err := transaction.WithContext(ctx).
		Model(&types.QuizAttempt{}).
		Where("user_id = ? AND module_id = ?", userID, moduleID).
		Count(&count).Error; err != nil {
		return 0, err
	}
	return count, nil
}
