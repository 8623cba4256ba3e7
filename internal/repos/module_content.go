package repos

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/brightpath-hq/brightpath-backend/internal/logger"
	"github.com/brightpath-hq/brightpath-backend/internal/types"
)

type ModuleContentRepo interface {
	GetByModuleID(ctx context.Context, tx *gorm.DB, moduleID uuid.UUID) ([]*types.ModuleContent, error)
}

type moduleContentRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewModuleContentRepo(db *gorm.DB, baseLog *logger.Logger) ModuleContentRepo {
	return &moduleContentRepo{db: db, log: baseLog.With("repo", "ModuleContentRepo")}
}

func (r *moduleContentRepo) GetByModuleID(ctx context.Context, tx *gorm.DB, moduleID uuid.UUID) ([]*types.ModuleContent, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}

	var results []*types.ModuleContent
	if moduleID == uuid.Nil {
		return results, nil
	}

	if err := transaction.WithContext(ctx).
		Where("module_id = ?", moduleID).
		Order("order_index ASC").
		Find(&results).Error; err != nil {
		return nil, err
	}
	return results, nil
}
