package services

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/brightpath-hq/brightpath-backend/internal/apierr"
	"github.com/brightpath-hq/brightpath-backend/internal/logger"
	"github.com/brightpath-hq/brightpath-backend/internal/types"
)

type trackFixture struct {
	svc          TrackProgressService
	progressRepo *fakeProgressRepo
	moduleRepo   *fakeModuleRepo
	trackRepo    *fakeTrackRepo
	attemptRepo  *fakeQuizAttemptRepo
}

func newTrackFixture(t *testing.T) *trackFixture {
	t.Helper()
	log := logger.NewNop()
	f := &trackFixture{
		progressRepo: newFakeProgressRepo(),
		moduleRepo:   newFakeModuleRepo(),
		trackRepo:    newFakeTrackRepo(),
		attemptRepo:  &fakeQuizAttemptRepo{},
	}
	quizSvc := NewQuizService(nil, log, f.attemptRepo, newFakeModuleContentRepo())
	f.svc = NewTrackProgressService(nil, log, f.trackRepo, f.moduleRepo, f.progressRepo, quizSvc)
	return f
}

func (f *trackFixture) setProgress(t *testing.T, userID, moduleID uuid.UUID, status string, seconds int) {
	t.Helper()
	now := time.Now()
	record := &types.ModuleProgress{
		ID:               uuid.New(),
		UserID:           userID,
		ModuleID:         moduleID,
		Status:           status,
		TimeSpentSeconds: seconds,
	}
	if status != types.ProgressNotStarted {
		record.StartedAt = &now
	}
	if status == types.ProgressCompleted {
		record.CompletedAt = &now
	}
	if err := f.progressRepo.Create(context.Background(), nil, record); err != nil {
		t.Fatalf("seed progress: %v", err)
	}
}

func TestTrackProgressEmptyTrack(t *testing.T) {
	f := newTrackFixture(t)
	track := f.trackRepo.addTrack("Empty Track")

	progress, err := f.svc.TrackProgress(context.Background(), uuid.New(), track.ID)
	if err != nil {
		t.Fatalf("TrackProgress: %v", err)
	}
	if progress.CompletionPercent != 0 {
		t.Fatalf("percent: want=0 got=%d", progress.CompletionPercent)
	}
	if progress.Status != TrackStatusNotStarted {
		t.Fatalf("status: want=%q got=%q", TrackStatusNotStarted, progress.Status)
	}
}

func TestTrackProgressUnknownTrack(t *testing.T) {
	f := newTrackFixture(t)
	_, err := f.svc.TrackProgress(context.Background(), uuid.New(), uuid.New())
	if !apierr.IsCode(err, apierr.CodeNotFound) {
		t.Fatalf("want not_found, got %v", err)
	}
}

func TestTrackProgressRoundsPercent(t *testing.T) {
	f := newTrackFixture(t)
	userID := uuid.New()
	track := f.trackRepo.addTrack("Caregiver Core")
	a := f.moduleRepo.addModule("A")
	b := f.moduleRepo.addModule("B")
	c := f.moduleRepo.addModule("C")
	for _, m := range []*types.TrainingModule{a, b, c} {
		f.moduleRepo.linkToTrack(track.ID, m.ID)
	}

	f.setProgress(t, userID, a.ID, types.ProgressCompleted, 600)
	f.setProgress(t, userID, b.ID, types.ProgressInProgress, 60)

	progress, err := f.svc.TrackProgress(context.Background(), userID, track.ID)
	if err != nil {
		t.Fatalf("TrackProgress: %v", err)
	}
	if progress.CompletionPercent != 33 {
		t.Fatalf("percent: want=33 got=%d", progress.CompletionPercent)
	}
	if progress.Status != TrackStatusInProgress {
		t.Fatalf("status: want=%q got=%q", TrackStatusInProgress, progress.Status)
	}
	if progress.ModulesCompleted != 1 || progress.ModulesInProgress != 1 || progress.ModulesNotStarted != 1 {
		t.Fatalf("counts: %+v", progress)
	}
}

func TestTrackProgressComplete(t *testing.T) {
	f := newTrackFixture(t)
	userID := uuid.New()
	track := f.trackRepo.addTrack("Two Step")
	a := f.moduleRepo.addModule("A")
	b := f.moduleRepo.addModule("B")
	f.moduleRepo.linkToTrack(track.ID, a.ID)
	f.moduleRepo.linkToTrack(track.ID, b.ID)

	f.setProgress(t, userID, a.ID, types.ProgressCompleted, 0)
	f.setProgress(t, userID, b.ID, types.ProgressCompleted, 0)

	progress, err := f.svc.TrackProgress(context.Background(), userID, track.ID)
	if err != nil {
		t.Fatalf("TrackProgress: %v", err)
	}
	if progress.CompletionPercent != 100 || progress.Status != TrackStatusComplete {
		t.Fatalf("want 100%%/complete, got %d%%/%q", progress.CompletionPercent, progress.Status)
	}
}

func TestTrackProgressCountsLegacyLinkage(t *testing.T) {
	f := newTrackFixture(t)
	userID := uuid.New()
	track := f.trackRepo.addTrack("Mixed Linkage")
	pivot := f.moduleRepo.addModule("Pivot Linked")
	f.moduleRepo.linkToTrack(track.ID, pivot.ID)
	legacy := f.moduleRepo.addModule("Legacy Linked")
	trackID := track.ID
	legacy.TrackID = &trackID

	f.setProgress(t, userID, legacy.ID, types.ProgressCompleted, 0)

	progress, err := f.svc.TrackProgress(context.Background(), userID, track.ID)
	if err != nil {
		t.Fatalf("TrackProgress: %v", err)
	}
	if progress.ModulesTotal != 2 {
		t.Fatalf("modules total: want=2 got=%d", progress.ModulesTotal)
	}
	if progress.CompletionPercent != 50 {
		t.Fatalf("percent: want=50 got=%d", progress.CompletionPercent)
	}
}

func TestTimeSpentSumsModules(t *testing.T) {
	f := newTrackFixture(t)
	userID := uuid.New()
	track := f.trackRepo.addTrack("Timed")
	a := f.moduleRepo.addModule("A")
	b := f.moduleRepo.addModule("B")
	f.moduleRepo.linkToTrack(track.ID, a.ID)
	f.moduleRepo.linkToTrack(track.ID, b.ID)

	f.setProgress(t, userID, a.ID, types.ProgressCompleted, 900)
	f.setProgress(t, userID, b.ID, types.ProgressInProgress, 150)

	spent, err := f.svc.TimeSpent(context.Background(), userID, track.ID)
	if err != nil {
		t.Fatalf("TimeSpent: %v", err)
	}
	if spent.TotalSeconds != 1050 {
		t.Fatalf("total seconds: want=1050 got=%d", spent.TotalSeconds)
	}
	if spent.TotalMinutes != 17 {
		t.Fatalf("total minutes: want=17 got=%d", spent.TotalMinutes)
	}
	if len(spent.ByModule) != 2 {
		t.Fatalf("by-module entries: want=2 got=%d", len(spent.ByModule))
	}
}

func TestUserProgressSummaryPreservesTrackOrder(t *testing.T) {
	f := newTrackFixture(t)
	userID := uuid.New()

	first := f.trackRepo.addTrack("First")
	second := f.trackRepo.addTrack("Second")
	third := f.trackRepo.addTrack("Third")
	f.trackRepo.userTracks[userID] = []uuid.UUID{first.ID, second.ID, third.ID}

	module := f.moduleRepo.addModule("Only Module")
	f.moduleRepo.linkToTrack(second.ID, module.ID)
	f.setProgress(t, userID, module.ID, types.ProgressCompleted, 300)

	summary, err := f.svc.UserProgressSummary(context.Background(), userID)
	if err != nil {
		t.Fatalf("UserProgressSummary: %v", err)
	}
	if len(summary.Tracks) != 3 {
		t.Fatalf("tracks: want=3 got=%d", len(summary.Tracks))
	}
	for i, want := range []uuid.UUID{first.ID, second.ID, third.ID} {
		if summary.Tracks[i].Track.ID != want {
			t.Fatalf("track order at %d: want=%s got=%s", i, want, summary.Tracks[i].Track.ID)
		}
	}
	if summary.Tracks[1].Progress.Status != TrackStatusComplete {
		t.Fatalf("second track status: want=%q got=%q", TrackStatusComplete, summary.Tracks[1].Progress.Status)
	}
	if summary.Tracks[1].Time.TotalMinutes != 5 {
		t.Fatalf("second track minutes: want=5 got=%d", summary.Tracks[1].Time.TotalMinutes)
	}
	if len(summary.Tracks[1].Modules) != 1 || summary.Tracks[1].Modules[0].Status != types.ProgressCompleted {
		t.Fatalf("module detail: %+v", summary.Tracks[1].Modules)
	}
}
