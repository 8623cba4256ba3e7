package services

import (
	"context"
	"encoding/json"
	"math"
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"

	"github.com/brightpath-hq/brightpath-backend/internal/apierr"
	"github.com/brightpath-hq/brightpath-backend/internal/logger"
	"github.com/brightpath-hq/brightpath-backend/internal/repos"
	"github.com/brightpath-hq/brightpath-backend/internal/types"
)

// QuizStats is the per-(user, module) quiz view. The pointer fields stay
// nil when the module's quiz definition is absent or malformed: callers
// must treat nil as "unknown", not "failed".
type QuizStats struct {
	LatestScore    *float64           `json:"latestScore"`
	AttemptCount   int64              `json:"attemptCount"`
	CorrectCount   *int               `json:"correctCount"`
	TotalQuestions *int               `json:"totalQuestions"`
	MinimumScore   *float64           `json:"minimumScore"`
	Passed         *bool              `json:"passed"`
	LatestAttempt  *QuizLatestAttempt `json:"latestAttempt,omitempty"`
}

type QuizLatestAttempt struct {
	Score       float64   `json:"score"`
	CompletedAt time.Time `json:"completedAt"`
}

type QuizSubmission struct {
	Attempt *types.QuizAttempt `json:"attempt"`
	Passed  bool               `json:"passed"`
}

type QuizService interface {
	// SubmitQuiz grades the answers against the module's quiz definition,
	// records the attempt and reports pass/fail. Previous attempts are
	// never touched; a retake is a new row.
	SubmitQuiz(ctx context.Context, userID, moduleID uuid.UUID, answers []string) (*QuizSubmission, error)
	RecordAttempt(ctx context.Context, userID, moduleID uuid.UUID, score float64, answers []string) (*types.QuizAttempt, error)
	Attempts(ctx context.Context, userID, moduleID uuid.UUID) ([]*types.QuizAttempt, error)
	Stats(ctx context.Context, userID, moduleID uuid.UUID) (*QuizStats, error)
}

type quizService struct {
	db          *gorm.DB
	log         *logger.Logger
	attemptRepo repos.QuizAttemptRepo
	contentRepo repos.ModuleContentRepo
}

func NewQuizService(
	db *gorm.DB,
	baseLog *logger.Logger,
	attemptRepo repos.QuizAttemptRepo,
	contentRepo repos.ModuleContentRepo,
) QuizService {
	return &quizService{
		db:          db,
		log:         baseLog.With("service", "QuizService"),
		attemptRepo: attemptRepo,
		contentRepo: contentRepo,
	}
}

func (s *quizService) SubmitQuiz(ctx context.Context, userID, moduleID uuid.UUID, answers []string) (*QuizSubmission, error) {
	if userID == uuid.Nil {
		return nil, apierr.Validation("user id is required")
	}
	if moduleID == uuid.Nil {
		return nil, apierr.Validation("module id is required")
	}

	def, err := s.quizDefinition(ctx, nil, moduleID)
	if err != nil {
		return nil, err
	}
	if def == nil {
		return nil, apierr.NotFound("quiz not found for this module")
	}
	if len(def.Questions) == 0 {
		return nil, apierr.Validation("invalid quiz format")
	}

	score := gradeAnswers(def.Questions, answers)

	attempt, err := s.RecordAttempt(ctx, userID, moduleID, score, answers)
	if err != nil {
		return nil, err
	}

	passed := true
	if def.MinimumScore > 0 {
		passed = score >= def.MinimumScore
	}
	return &QuizSubmission{Attempt: attempt, Passed: passed}, nil
}

func (s *quizService) RecordAttempt(ctx context.Context, userID, moduleID uuid.UUID, score float64, answers []string) (*types.QuizAttempt, error) {
	if userID == uuid.Nil {
		return nil, apierr.Validation("user id is required")
	}
	if moduleID == uuid.Nil {
		return nil, apierr.Validation("module id is required")
	}
	if score < 0 || score > 100 {
		return nil, apierr.Validation("score must be between 0 and 100")
	}

	answersJSON, err := json.Marshal(answers)
	if err != nil {
		return nil, err
	}

	attempt := &types.QuizAttempt{
		ID:          uuid.New(),
		UserID:      userID,
		ModuleID:    moduleID,
		Score:       score,
		Answers:     datatypes.JSON(answersJSON),
		CompletedAt: time.Now(),
	}
	if err := s.attemptRepo.Create(ctx, nil, attempt); err != nil {
		s.log.Error("RecordAttempt: insert failed", "error", err, "user_id", userID, "module_id", moduleID)
		return nil, err
	}
	return attempt, nil
}

func (s *quizService) Attempts(ctx context.Context, userID, moduleID uuid.UUID) ([]*types.QuizAttempt, error) {
	if userID == uuid.Nil || moduleID == uuid.Nil {
		return nil, apierr.Validation("user id and module id are required")
	}
	return s.attemptRepo.GetByUserAndModule(ctx, nil, userID, moduleID)
}

func (s *quizService) Stats(ctx context.Context, userID, moduleID uuid.UUID) (*QuizStats, error) {
	if userID == uuid.Nil || moduleID == uuid.Nil {
		return nil, apierr.Validation("user id and module id are required")
	}

	latest, err := s.attemptRepo.Latest(ctx, nil, userID, moduleID)
	if err != nil {
		return nil, err
	}
	count, err := s.attemptRepo.Count(ctx, nil, userID, moduleID)
	if err != nil {
		return nil, err
	}

	stats := &QuizStats{AttemptCount: count}
	if latest == nil {
		return stats, nil
	}

	score := latest.Score
	stats.LatestScore = &score
	stats.LatestAttempt = &QuizLatestAttempt{Score: latest.Score, CompletedAt: latest.CompletedAt}

	// Quiz definition lookup is best-effort: a missing or malformed
	// definition degrades the stats to score/count only.
	def, defErr := s.quizDefinition(ctx, nil, moduleID)
	if defErr != nil || def == nil || len(def.Questions) == 0 {
		if defErr != nil {
			s.log.Warn("Stats: quiz definition unavailable", "error", defErr, "module_id", moduleID)
		}
		return stats, nil
	}

	total := len(def.Questions)
	correct := int(math.Round(latest.Score / 100 * float64(total)))
	stats.TotalQuestions = &total
	stats.CorrectCount = &correct
	passed := true
	if def.MinimumScore > 0 {
		minimum := def.MinimumScore
		stats.MinimumScore = &minimum
		passed = latest.Score >= def.MinimumScore
	}
	stats.Passed = &passed
	return stats, nil
}

// quizDefinition returns nil when the module has no quiz content item or
// when the stored payload does not parse.
func (s *quizService) quizDefinition(ctx context.Context, tx *gorm.DB, moduleID uuid.UUID) (*types.ModuleQuizDefinition, error) {
	items, err := s.contentRepo.GetByModuleID(ctx, tx, moduleID)
	if err != nil {
		return nil, err
	}
	for _, item := range items {
		if item == nil || item.ContentType != types.ContentTypeQuiz {
			continue
		}
		var def types.ModuleQuizDefinition
		if err := json.Unmarshal(item.ContentData, &def); err != nil {
			s.log.Warn("quizDefinition: malformed quiz payload", "error", err, "module_id", moduleID)
			return nil, nil
		}
		return &def, nil
	}
	return nil, nil
}

func gradeAnswers(questions []types.QuizQuestion, answers []string) float64 {
	if len(questions) == 0 {
		return 0
	}

	correct := 0
	for i, question := range questions {
		var answer string
		if i < len(answers) {
			answer = answers[i]
		}
		switch question.Type {
		case "multiple_choice", "true_false":
			if answer == question.CorrectAnswer {
				correct++
			}
		case "text":
			if answer != "" && question.CorrectAnswer != "" &&
				strings.EqualFold(strings.TrimSpace(answer), strings.TrimSpace(question.CorrectAnswer)) {
				correct++
			}
		}
	}

	// Two decimal places, matching what the score column stores.
	return math.Round(float64(correct)/float64(len(questions))*100*100) / 100
}
