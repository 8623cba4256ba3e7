package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/brightpath-hq/brightpath-backend/internal/services"
)

type QuizHandler struct {
	quizService services.QuizService
}

func NewQuizHandler(quizService services.QuizService) *QuizHandler {
	return &QuizHandler{quizService: quizService}
}

// POST /api/modules/:id/quiz/submit
func (h *QuizHandler) SubmitQuiz(c *gin.Context) {
	userID, ok := currentUserID(c)
	if !ok {
		return
	}
	moduleID, ok := pathUUID(c, "id")
	if !ok {
		return
	}
	var req struct {
		Answers []string `json:"answers"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
		return
	}
	submission, err := h.quizService.SubmitQuiz(c.Request.Context(), userID, moduleID, req.Answers)
	if err != nil {
		RespondWithError(c, err)
		return
	}
	RespondOK(c, submission)
}

// GET /api/modules/:id/quiz/attempts
func (h *QuizHandler) ListAttempts(c *gin.Context) {
	userID, ok := currentUserID(c)
	if !ok {
		return
	}
	moduleID, ok := pathUUID(c, "id")
	if !ok {
		return
	}
	attempts, err := h.quizService.Attempts(c.Request.Context(), userID, moduleID)
	if err != nil {
		RespondWithError(c, err)
		return
	}
	RespondOK(c, gin.H{"attempts": attempts})
}

// GET /api/modules/:id/quiz/stats
func (h *QuizHandler) GetStats(c *gin.Context) {
	userID, ok := currentUserID(c)
	if !ok {
		return
	}
	moduleID, ok := pathUUID(c, "id")
	if !ok {
		return
	}
	stats, err := h.quizService.Stats(c.Request.Context(), userID, moduleID)
	if err != nil {
		RespondWithError(c, err)
		return
	}
	RespondOK(c, stats)
}
