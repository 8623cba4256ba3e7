package services

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/brightpath-hq/brightpath-backend/internal/apierr"
	"github.com/brightpath-hq/brightpath-backend/internal/logger"
	"github.com/brightpath-hq/brightpath-backend/internal/repos"
	"github.com/brightpath-hq/brightpath-backend/internal/types"
)

// SideEffectFailure reports a post-completion step that did not take. The
// completion itself has already committed when one of these is returned.
type SideEffectFailure struct {
	Stage   string `json:"stage"`
	Message string `json:"message"`
}

const (
	SideEffectTaskSync    = "task_sync"
	SideEffectCertificate = "certificate"
)

type CompleteModuleResult struct {
	Progress           *types.ModuleProgress `json:"progress"`
	IssuedCertificates []*types.Certificate  `json:"issuedCertificates,omitempty"`
	SideEffects        []SideEffectFailure   `json:"sideEffects,omitempty"`
}

// ModuleProgressView is the read model for one (user, module) pair. It is
// assembled on demand and never stored.
type ModuleProgressView struct {
	ModuleID         uuid.UUID  `json:"moduleId"`
	Status           string     `json:"status"`
	StartedAt        *time.Time `json:"startedAt"`
	CompletedAt      *time.Time `json:"completedAt"`
	TimeSpentSeconds int        `json:"timeSpentSeconds"`
	TimeSpentMinutes int        `json:"timeSpentMinutes"`
	OverriddenBy     *uuid.UUID `json:"overriddenBy,omitempty"`
	OverriddenAt     *time.Time `json:"overriddenAt,omitempty"`
	Quiz             *QuizStats `json:"quiz"`
}

type ProgressService interface {
	// StartModule moves the pair to in_progress. Completed modules refuse
	// to restart so accumulated time stays trustworthy; started_at is set
	// on the first start only.
	StartModule(ctx context.Context, userID, moduleID uuid.UUID) (*types.ModuleProgress, error)
	// CompleteModule marks the pair completed, idempotently, then runs the
	// best-effort follow-ups: closing open training tasks and certificate
	// issuance. Follow-up failures are reported, never returned as errors.
	CompleteModule(ctx context.Context, userID, moduleID uuid.UUID) (*CompleteModuleResult, error)
	LogTime(ctx context.Context, userID, moduleID uuid.UUID, sessionStart time.Time, sessionEnd *time.Time, durationMinutes int) (*types.ModuleProgress, error)
	ModuleProgress(ctx context.Context, userID, moduleID uuid.UUID) (*ModuleProgressView, error)
	UserProgress(ctx context.Context, userID uuid.UUID) ([]*types.ModuleProgress, error)
	// AdminOverrideComplete force-completes on behalf of a user and always
	// restamps the override audit fields, even when already completed.
	AdminOverrideComplete(ctx context.Context, userID, moduleID, actorID uuid.UUID) (*types.ModuleProgress, error)
	// AdminReset is the only backward transition: status, timestamps, time
	// and override audit all go back to zero. Logs and attempts remain.
	AdminReset(ctx context.Context, userID, moduleID, actorID uuid.UUID) (*types.ModuleProgress, error)
}

type progressService struct {
	db           *gorm.DB
	log          *logger.Logger
	progressRepo repos.ProgressRepo
	moduleRepo   repos.ModuleRepo
	timeLogRepo  repos.TimeLogRepo
	taskRepo     repos.TaskRepo
	certSvc      CertificateService
	quizSvc      QuizService
}

func NewProgressService(
	db *gorm.DB,
	baseLog *logger.Logger,
	progressRepo repos.ProgressRepo,
	moduleRepo repos.ModuleRepo,
	timeLogRepo repos.TimeLogRepo,
	taskRepo repos.TaskRepo,
	certSvc CertificateService,
	quizSvc QuizService,
) ProgressService {
	return &progressService{
		db:           db,
		log:          baseLog.With("service", "ProgressService"),
		progressRepo: progressRepo,
		moduleRepo:   moduleRepo,
		timeLogRepo:  timeLogRepo,
		taskRepo:     taskRepo,
		certSvc:      certSvc,
		quizSvc:      quizSvc,
	}
}

func (s *progressService) StartModule(ctx context.Context, userID, moduleID uuid.UUID) (*types.ModuleProgress, error) {
	if err := s.requireModule(ctx, userID, moduleID); err != nil {
		return nil, err
	}

	existing, err := s.progressRepo.GetByUserAndModule(ctx, nil, userID, moduleID)
	if err != nil {
		return nil, err
	}

	if existing == nil {
		now := time.Now()
		record := &types.ModuleProgress{
			ID:        uuid.New(),
			UserID:    userID,
			ModuleID:  moduleID,
			Status:    types.ProgressInProgress,
			StartedAt: &now,
		}
		adopted, inserted, err := s.firstTouch(ctx, record)
		if err != nil {
			return nil, err
		}
		if inserted {
			s.log.Info("StartModule: started", "user_id", userID, "module_id", moduleID)
			return record, nil
		}
		// A concurrent writer created the row first; its state governs.
		existing = adopted
	}

	if existing.Status == types.ProgressCompleted {
		return nil, apierr.AlreadyCompleted()
	}

	fields := map[string]any{"status": types.ProgressInProgress}
	if existing.StartedAt == nil {
		fields["started_at"] = time.Now()
	}
	if err := s.progressRepo.Updates(ctx, nil, userID, moduleID, fields); err != nil {
		return nil, err
	}
	return s.progressRepo.GetByUserAndModule(ctx, nil, userID, moduleID)
}

func (s *progressService) CompleteModule(ctx context.Context, userID, moduleID uuid.UUID) (*CompleteModuleResult, error) {
	if err := s.requireModule(ctx, userID, moduleID); err != nil {
		return nil, err
	}

	existing, err := s.progressRepo.GetByUserAndModule(ctx, nil, userID, moduleID)
	if err != nil {
		return nil, err
	}

	now := time.Now()
	if existing == nil {
		record := &types.ModuleProgress{
			ID:          uuid.New(),
			UserID:      userID,
			ModuleID:    moduleID,
			Status:      types.ProgressCompleted,
			CompletedAt: &now,
		}
		// Two concurrent completions both succeed: the loser adopts the
		// winner's row and falls through to the idempotent update below.
		adopted, _, err := s.firstTouch(ctx, record)
		if err != nil {
			return nil, err
		}
		existing = adopted
	}
	if existing.Status != types.ProgressCompleted || existing.CompletedAt == nil {
		fields := map[string]any{"status": types.ProgressCompleted}
		// completed_at is written once; re-completions keep the original.
		if existing.CompletedAt == nil {
			fields["completed_at"] = now
		}
		if err := s.progressRepo.Updates(ctx, nil, userID, moduleID, fields); err != nil {
			return nil, err
		}
		existing, err = s.progressRepo.GetByUserAndModule(ctx, nil, userID, moduleID)
		if err != nil {
			return nil, err
		}
	}

	s.log.Info("CompleteModule: completed", "user_id", userID, "module_id", moduleID)

	result := &CompleteModuleResult{Progress: existing}
	s.syncTrainingTasks(ctx, userID, moduleID, result)
	s.issueCertificates(ctx, userID, moduleID, result)
	return result, nil
}

func (s *progressService) LogTime(ctx context.Context, userID, moduleID uuid.UUID, sessionStart time.Time, sessionEnd *time.Time, durationMinutes int) (*types.ModuleProgress, error) {
	if err := s.requireModule(ctx, userID, moduleID); err != nil {
		return nil, err
	}
	if durationMinutes < 0 {
		return nil, apierr.Validation("duration must be non-negative")
	}
	if sessionStart.IsZero() {
		return nil, apierr.Validation("session start is required")
	}
	if sessionEnd != nil && sessionEnd.Before(sessionStart) {
		return nil, apierr.Validation("session end must not precede session start")
	}

	record, err := s.progressRepo.GetByUserAndModule(ctx, nil, userID, moduleID)
	if err != nil {
		return nil, err
	}
	if record == nil {
		// Time against a never-started module still counts; the row is
		// created without touching status.
		fresh := &types.ModuleProgress{
			ID:       uuid.New(),
			UserID:   userID,
			ModuleID: moduleID,
			Status:   types.ProgressNotStarted,
		}
		record, _, err = s.firstTouch(ctx, fresh)
		if err != nil {
			return nil, err
		}
	}

	entry := &types.TimeLog{
		ID:              uuid.New(),
		UserID:          userID,
		ModuleID:        moduleID,
		SessionStart:    sessionStart,
		SessionEnd:      sessionEnd,
		DurationMinutes: durationMinutes,
	}
	if err := s.timeLogRepo.Create(ctx, nil, entry); err != nil {
		return nil, err
	}
	if err := s.progressRepo.AddTime(ctx, nil, userID, moduleID, durationMinutes*60); err != nil {
		return nil, err
	}
	return s.progressRepo.GetByUserAndModule(ctx, nil, userID, moduleID)
}

func (s *progressService) ModuleProgress(ctx context.Context, userID, moduleID uuid.UUID) (*ModuleProgressView, error) {
	if err := s.requireModule(ctx, userID, moduleID); err != nil {
		return nil, err
	}

	view := &ModuleProgressView{ModuleID: moduleID, Status: types.ProgressNotStarted}

	record, err := s.progressRepo.GetByUserAndModule(ctx, nil, userID, moduleID)
	if err != nil {
		return nil, err
	}
	if record != nil {
		view.Status = record.Status
		view.StartedAt = record.StartedAt
		view.CompletedAt = record.CompletedAt
		view.TimeSpentSeconds = record.TimeSpentSeconds
		view.TimeSpentMinutes = record.TimeSpentMinutes()
		view.OverriddenBy = record.OverriddenByUserID
		view.OverriddenAt = record.OverriddenAt
	}

	stats, err := s.quizSvc.Stats(ctx, userID, moduleID)
	if err != nil {
		s.log.Warn("ModuleProgress: quiz stats failed", "error", err, "user_id", userID, "module_id", moduleID)
	} else {
		view.Quiz = stats
	}
	return view, nil
}

func (s *progressService) UserProgress(ctx context.Context, userID uuid.UUID) ([]*types.ModuleProgress, error) {
	if userID == uuid.Nil {
		return nil, apierr.Validation("user id is required")
	}
	return s.progressRepo.GetByUserID(ctx, nil, userID)
}

func (s *progressService) AdminOverrideComplete(ctx context.Context, userID, moduleID, actorID uuid.UUID) (*types.ModuleProgress, error) {
	if actorID == uuid.Nil {
		return nil, apierr.Validation("actor id is required")
	}
	if err := s.requireModule(ctx, userID, moduleID); err != nil {
		return nil, err
	}

	now := time.Now()
	existing, err := s.progressRepo.GetByUserAndModule(ctx, nil, userID, moduleID)
	if err != nil {
		return nil, err
	}

	if existing == nil {
		record := &types.ModuleProgress{
			ID:                 uuid.New(),
			UserID:             userID,
			ModuleID:           moduleID,
			Status:             types.ProgressCompleted,
			StartedAt:          &now,
			CompletedAt:        &now,
			OverriddenByUserID: &actorID,
			OverriddenAt:       &now,
		}
		adopted, inserted, err := s.firstTouch(ctx, record)
		if err != nil {
			return nil, err
		}
		if inserted {
			s.log.Info("AdminOverrideComplete: force-completed", "user_id", userID, "module_id", moduleID, "actor_id", actorID)
			return record, nil
		}
		existing = adopted
	}

	// The audit stamp always moves to the latest override, even when the
	// record was already completed.
	fields := map[string]any{
		"status":                types.ProgressCompleted,
		"overridden_by_user_id": actorID,
		"overridden_at":         now,
	}
	if existing.CompletedAt == nil {
		fields["completed_at"] = now
	}
	if err := s.progressRepo.Updates(ctx, nil, userID, moduleID, fields); err != nil {
		return nil, err
	}
	s.log.Info("AdminOverrideComplete: force-completed", "user_id", userID, "module_id", moduleID, "actor_id", actorID)
	return s.progressRepo.GetByUserAndModule(ctx, nil, userID, moduleID)
}

func (s *progressService) AdminReset(ctx context.Context, userID, moduleID, actorID uuid.UUID) (*types.ModuleProgress, error) {
	if actorID == uuid.Nil {
		return nil, apierr.Validation("actor id is required")
	}
	if err := s.requireModule(ctx, userID, moduleID); err != nil {
		return nil, err
	}

	existing, err := s.progressRepo.GetByUserAndModule(ctx, nil, userID, moduleID)
	if err != nil {
		return nil, err
	}
	if existing == nil {
		record := &types.ModuleProgress{
			ID:       uuid.New(),
			UserID:   userID,
			ModuleID: moduleID,
			Status:   types.ProgressNotStarted,
		}
		_, inserted, err := s.firstTouch(ctx, record)
		if err != nil {
			return nil, err
		}
		if inserted {
			return record, nil
		}
		// A concurrent writer created the row; reset it like any other.
	}

	fields := map[string]any{
		"status":                types.ProgressNotStarted,
		"started_at":            nil,
		"completed_at":          nil,
		"time_spent_seconds":    0,
		"overridden_by_user_id": nil,
		"overridden_at":         nil,
	}
	if err := s.progressRepo.Updates(ctx, nil, userID, moduleID, fields); err != nil {
		return nil, err
	}
	s.log.Info("AdminReset: progress reset", "user_id", userID, "module_id", moduleID, "actor_id", actorID)
	return s.progressRepo.GetByUserAndModule(ctx, nil, userID, moduleID)
}

// firstTouch inserts the first row for a user/module pair. When a
// concurrent writer got there first the pair index rejects our insert
// and the winner's row is adopted instead; inserted reports which way
// it went.
func (s *progressService) firstTouch(ctx context.Context, row *types.ModuleProgress) (*types.ModuleProgress, bool, error) {
	inserted, err := s.progressRepo.CreateIfAbsent(ctx, nil, row)
	if err != nil {
		return nil, false, err
	}
	if inserted {
		return row, true, nil
	}
	existing, err := s.progressRepo.GetByUserAndModule(ctx, nil, row.UserID, row.ModuleID)
	if err != nil {
		return nil, false, err
	}
	if existing == nil {
		return nil, false, fmt.Errorf("progress insert conflicted but no existing row found")
	}
	return existing, false, nil
}

func (s *progressService) requireModule(ctx context.Context, userID, moduleID uuid.UUID) error {
	if userID == uuid.Nil {
		return apierr.Validation("user id is required")
	}
	if moduleID == uuid.Nil {
		return apierr.Validation("module id is required")
	}
	modules, err := s.moduleRepo.GetByIDs(ctx, nil, []uuid.UUID{moduleID})
	if err != nil {
		return err
	}
	if len(modules) == 0 {
		return apierr.NotFound("training module not found")
	}
	return nil
}

func (s *progressService) syncTrainingTasks(ctx context.Context, userID, moduleID uuid.UUID, result *CompleteModuleResult) {
	tasks, err := s.taskRepo.GetOpenTrainingTasks(ctx, nil, userID, moduleID)
	if err != nil {
		s.log.Warn("CompleteModule: task lookup failed", "error", err, "user_id", userID, "module_id", moduleID)
		result.SideEffects = append(result.SideEffects, SideEffectFailure{Stage: SideEffectTaskSync, Message: err.Error()})
		return
	}
	for _, task := range tasks {
		if err := s.taskRepo.MarkComplete(ctx, nil, task.ID); err != nil {
			s.log.Warn("CompleteModule: task close failed", "error", err, "task_id", task.ID)
			result.SideEffects = append(result.SideEffects, SideEffectFailure{Stage: SideEffectTaskSync, Message: err.Error()})
		}
	}
}

func (s *progressService) issueCertificates(ctx context.Context, userID, moduleID uuid.UUID, result *CompleteModuleResult) {
	if s.certSvc == nil {
		return
	}
	certs, err := s.certSvc.IssueForCompletedModule(ctx, userID, moduleID)
	if err != nil {
		s.log.Warn("CompleteModule: certificate issuance failed", "error", err, "user_id", userID, "module_id", moduleID)
		result.SideEffects = append(result.SideEffects, SideEffectFailure{Stage: SideEffectCertificate, Message: err.Error()})
		return
	}
	result.IssuedCertificates = certs
}
