package services

import (
	"context"
	"math"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"
	"gorm.io/gorm"

	"github.com/brightpath-hq/brightpath-backend/internal/apierr"
	"github.com/brightpath-hq/brightpath-backend/internal/logger"
	"github.com/brightpath-hq/brightpath-backend/internal/repos"
	"github.com/brightpath-hq/brightpath-backend/internal/types"
)

const (
	TrackStatusNotStarted = "not_started"
	TrackStatusInProgress = "in_progress"
	TrackStatusComplete   = "complete"
)

// TrackProgress is the derived, never-persisted completion view of one
// track for one user.
type TrackProgress struct {
	TrackID           uuid.UUID `json:"trackId"`
	CompletionPercent int       `json:"completionPercent"`
	Status            string    `json:"status"`
	ModulesTotal      int       `json:"modulesTotal"`
	ModulesCompleted  int       `json:"modulesCompleted"`
	ModulesInProgress int       `json:"modulesInProgress"`
	ModulesNotStarted int       `json:"modulesNotStarted"`
}

type ModuleTimeSpent struct {
	ModuleID     uuid.UUID `json:"moduleId"`
	ModuleName   string    `json:"moduleName"`
	TotalSeconds int       `json:"totalSeconds"`
	TotalMinutes int       `json:"totalMinutes"`
}

type TrackTimeSpent struct {
	TrackID      uuid.UUID          `json:"trackId"`
	TotalSeconds int                `json:"totalSeconds"`
	TotalMinutes int                `json:"totalMinutes"`
	ByModule     []*ModuleTimeSpent `json:"byModule"`
}

type TrackModuleDetail struct {
	ModuleID         uuid.UUID `json:"moduleId"`
	ModuleName       string    `json:"moduleName"`
	Status           string    `json:"status"`
	TimeSpentMinutes int       `json:"timeSpentMinutes"`
	LatestQuizScore  *float64  `json:"latestQuizScore"`
	QuizAttemptCount int64     `json:"quizAttemptCount"`
}

type TrackSummary struct {
	Track    *types.TrainingTrack `json:"track"`
	Progress *TrackProgress       `json:"progress"`
	Time     *TrackTimeSpent      `json:"time"`
	Modules  []*TrackModuleDetail `json:"modules"`
}

type ProgressSummary struct {
	UserID uuid.UUID       `json:"userId"`
	Tracks []*TrackSummary `json:"tracks"`
}

type TrackProgressService interface {
	TrackProgress(ctx context.Context, userID, trackID uuid.UUID) (*TrackProgress, error)
	TimeSpent(ctx context.Context, userID, trackID uuid.UUID) (*TrackTimeSpent, error)
	// UserProgressSummary aggregates every visible track for the user,
	// fanning the per-track work out concurrently.
	UserProgressSummary(ctx context.Context, userID uuid.UUID) (*ProgressSummary, error)
}

type trackProgressService struct {
	db           *gorm.DB
	log          *logger.Logger
	trackRepo    repos.TrackRepo
	moduleRepo   repos.ModuleRepo
	progressRepo repos.ProgressRepo
	quizSvc      QuizService
}

func NewTrackProgressService(
	db *gorm.DB,
	baseLog *logger.Logger,
	trackRepo repos.TrackRepo,
	moduleRepo repos.ModuleRepo,
	progressRepo repos.ProgressRepo,
	quizSvc QuizService,
) TrackProgressService {
	return &trackProgressService{
		db:           db,
		log:          baseLog.With("service", "TrackProgressService"),
		trackRepo:    trackRepo,
		moduleRepo:   moduleRepo,
		progressRepo: progressRepo,
		quizSvc:      quizSvc,
	}
}

func (s *trackProgressService) TrackProgress(ctx context.Context, userID, trackID uuid.UUID) (*TrackProgress, error) {
	if userID == uuid.Nil || trackID == uuid.Nil {
		return nil, apierr.Validation("user id and track id are required")
	}

	tracks, err := s.trackRepo.GetByIDs(ctx, nil, []uuid.UUID{trackID})
	if err != nil {
		return nil, err
	}
	if len(tracks) == 0 {
		return nil, apierr.NotFound("training track not found")
	}

	modules, err := s.moduleRepo.GetModulesForTrack(ctx, nil, trackID)
	if err != nil {
		return nil, err
	}
	progressByModule, err := s.progressForModules(ctx, userID, modules)
	if err != nil {
		return nil, err
	}
	return computeTrackProgress(trackID, modules, progressByModule), nil
}

func (s *trackProgressService) TimeSpent(ctx context.Context, userID, trackID uuid.UUID) (*TrackTimeSpent, error) {
	if userID == uuid.Nil || trackID == uuid.Nil {
		return nil, apierr.Validation("user id and track id are required")
	}

	modules, err := s.moduleRepo.GetModulesForTrack(ctx, nil, trackID)
	if err != nil {
		return nil, err
	}
	progressByModule, err := s.progressForModules(ctx, userID, modules)
	if err != nil {
		return nil, err
	}

	out := &TrackTimeSpent{TrackID: trackID, ByModule: make([]*ModuleTimeSpent, 0, len(modules))}
	for _, module := range modules {
		seconds := 0
		if record, ok := progressByModule[module.ID]; ok {
			seconds = record.TimeSpentSeconds
		}
		out.TotalSeconds += seconds
		out.ByModule = append(out.ByModule, &ModuleTimeSpent{
			ModuleID:     module.ID,
			ModuleName:   module.Title,
			TotalSeconds: seconds,
			TotalMinutes: seconds / 60,
		})
	}
	out.TotalMinutes = out.TotalSeconds / 60
	return out, nil
}

func (s *trackProgressService) UserProgressSummary(ctx context.Context, userID uuid.UUID) (*ProgressSummary, error) {
	if userID == uuid.Nil {
		return nil, apierr.Validation("user id is required")
	}

	tracks, err := s.trackRepo.GetForUser(ctx, nil, userID)
	if err != nil {
		return nil, err
	}

	summaries := make([]*TrackSummary, len(tracks))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(4)
	for i, track := range tracks {
		g.Go(func() error {
			summary, err := s.trackSummary(gctx, userID, track)
			if err != nil {
				return err
			}
			summaries[i] = summary
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return &ProgressSummary{UserID: userID, Tracks: summaries}, nil
}

func (s *trackProgressService) trackSummary(ctx context.Context, userID uuid.UUID, track *types.TrainingTrack) (*TrackSummary, error) {
	modules, err := s.moduleRepo.GetModulesForTrack(ctx, nil, track.ID)
	if err != nil {
		return nil, err
	}
	progressByModule, err := s.progressForModules(ctx, userID, modules)
	if err != nil {
		return nil, err
	}

	summary := &TrackSummary{
		Track:    track,
		Progress: computeTrackProgress(track.ID, modules, progressByModule),
		Time:     &TrackTimeSpent{TrackID: track.ID, ByModule: make([]*ModuleTimeSpent, 0, len(modules))},
		Modules:  make([]*TrackModuleDetail, 0, len(modules)),
	}

	for _, module := range modules {
		detail := &TrackModuleDetail{
			ModuleID:   module.ID,
			ModuleName: module.Title,
			Status:     types.ProgressNotStarted,
		}
		seconds := 0
		if record, ok := progressByModule[module.ID]; ok {
			detail.Status = record.Status
			detail.TimeSpentMinutes = record.TimeSpentMinutes()
			seconds = record.TimeSpentSeconds
		}
		summary.Time.TotalSeconds += seconds
		summary.Time.ByModule = append(summary.Time.ByModule, &ModuleTimeSpent{
			ModuleID:     module.ID,
			ModuleName:   module.Title,
			TotalSeconds: seconds,
			TotalMinutes: seconds / 60,
		})

		stats, err := s.quizSvc.Stats(ctx, userID, module.ID)
		if err != nil {
			s.log.Warn("trackSummary: quiz stats failed", "error", err, "module_id", module.ID)
		} else if stats != nil {
			detail.LatestQuizScore = stats.LatestScore
			detail.QuizAttemptCount = stats.AttemptCount
		}
		summary.Modules = append(summary.Modules, detail)
	}
	summary.Time.TotalMinutes = summary.Time.TotalSeconds / 60
	return summary, nil
}

func (s *trackProgressService) progressForModules(ctx context.Context, userID uuid.UUID, modules []*types.TrainingModule) (map[uuid.UUID]*types.ModuleProgress, error) {
	ids := make([]uuid.UUID, 0, len(modules))
	for _, module := range modules {
		ids = append(ids, module.ID)
	}
	records, err := s.progressRepo.GetByUserAndModuleIDs(ctx, nil, userID, ids)
	if err != nil {
		return nil, err
	}
	byModule := make(map[uuid.UUID]*types.ModuleProgress, len(records))
	for _, record := range records {
		byModule[record.ModuleID] = record
	}
	return byModule, nil
}

// computeTrackProgress derives the aggregate from the module list and the
// user's progress rows. A track with no modules is 0% and not_started.
func computeTrackProgress(trackID uuid.UUID, modules []*types.TrainingModule, progressByModule map[uuid.UUID]*types.ModuleProgress) *TrackProgress {
	out := &TrackProgress{TrackID: trackID, Status: TrackStatusNotStarted, ModulesTotal: len(modules)}
	if len(modules) == 0 {
		return out
	}

	for _, module := range modules {
		record, ok := progressByModule[module.ID]
		if !ok {
			out.ModulesNotStarted++
			continue
		}
		switch record.Status {
		case types.ProgressCompleted:
			out.ModulesCompleted++
		case types.ProgressInProgress:
			out.ModulesInProgress++
		default:
			out.ModulesNotStarted++
		}
	}

	out.CompletionPercent = int(math.Round(float64(out.ModulesCompleted) / float64(out.ModulesTotal) * 100))
	switch {
	case out.ModulesCompleted == out.ModulesTotal:
		out.Status = TrackStatusComplete
	case out.ModulesCompleted > 0 || out.ModulesInProgress > 0:
		out.Status = TrackStatusInProgress
	}
	return out
}
