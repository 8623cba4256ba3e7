package handlers

import (
	"github.com/gin-gonic/gin"

	"github.com/brightpath-hq/brightpath-backend/internal/services"
)

type TrackHandler struct {
	trackService services.TrackProgressService
}

func NewTrackHandler(trackService services.TrackProgressService) *TrackHandler {
	return &TrackHandler{trackService: trackService}
}

// GET /api/tracks/:id/progress
func (h *TrackHandler) GetTrackProgress(c *gin.Context) {
	userID, ok := currentUserID(c)
	if !ok {
		return
	}
	trackID, ok := pathUUID(c, "id")
	if !ok {
		return
	}
	progress, err := h.trackService.TrackProgress(c.Request.Context(), userID, trackID)
	if err != nil {
		RespondWithError(c, err)
		return
	}
	RespondOK(c, progress)
}

// GET /api/tracks/:id/time
func (h *TrackHandler) GetTimeSpent(c *gin.Context) {
	userID, ok := currentUserID(c)
	if !ok {
		return
	}
	trackID, ok := pathUUID(c, "id")
	if !ok {
		return
	}
	spent, err := h.trackService.TimeSpent(c.Request.Context(), userID, trackID)
	if err != nil {
		RespondWithError(c, err)
		return
	}
	RespondOK(c, spent)
}

// GET /api/progress/summary
func (h *TrackHandler) GetProgressSummary(c *gin.Context) {
	userID, ok := currentUserID(c)
	if !ok {
		return
	}
	summary, err := h.trackService.UserProgressSummary(c.Request.Context(), userID)
	if err != nil {
		RespondWithError(c, err)
		return
	}
	RespondOK(c, summary)
}
