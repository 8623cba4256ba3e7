package repos

import (
	"context"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/brightpath-hq/brightpath-backend/internal/logger"
	"github.com/brightpath-hq/brightpath-backend/internal/types"
)

type TaskRepo interface {
	// GetOpenTrainingTasks returns pending/in_progress training tasks for
	// the user that reference the given module.
	GetOpenTrainingTasks(ctx context.Context, tx *gorm.DB, userID, moduleID uuid.UUID) ([]*types.Task, error)
	MarkComplete(ctx context.Context, tx *gorm.DB, taskID uuid.UUID) error
}

type taskRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewTaskRepo(db *gorm.DB, baseLog *logger.Logger) TaskRepo {
	return &taskRepo{db: db, log: baseLog.With("repo", "TaskRepo")}
}

func (r *taskRepo) GetOpenTrainingTasks(ctx context.Context, tx *gorm.DB, userID, moduleID uuid.UUID) ([]*types.Task, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}

	var results []*types.Task
	if userID == uuid.Nil || moduleID == uuid.Nil {
		return results, nil
	}

	if err := transaction.WithContext(ctx).
		Where("assigned_to_user_id = ? AND task_type = ? AND reference_id = ? AND status IN ?",
			userID, types.TaskTypeTraining, moduleID,
			[]string{types.TaskStatusPending, types.TaskStatusInProgress}).
		Find(&results).Error; err != nil {
		return nil, err
	}
	return results, nil
}

func (r *taskRepo) MarkComplete(ctx context.Context, tx *gorm.DB, taskID uuid.UUID) error {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}

	now := time.Now()
	return transaction.WithContext(ctx).
		Model(&types.Task{}).
		Where("id = ?", taskID).
		Updates(map[string]interface{}{
			"status":       types.TaskStatusCompleted,
			"completed_at": now,
		}).Error
}
