package handlers

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/brightpath-hq/brightpath-backend/internal/requestdata"
	"github.com/brightpath-hq/brightpath-backend/internal/services"
)

type ProgressHandler struct {
	progressService services.ProgressService
}

func NewProgressHandler(progressService services.ProgressService) *ProgressHandler {
	return &ProgressHandler{progressService: progressService}
}

func currentUserID(c *gin.Context) (uuid.UUID, bool) {
	rd := requestdata.GetRequestData(c.Request.Context())
	if rd == nil || rd.UserID == uuid.Nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "missing or invalid token"})
		return uuid.Nil, false
	}
	return rd.UserID, true
}

func pathUUID(c *gin.Context, name string) (uuid.UUID, bool) {
	id, err := uuid.Parse(c.Param(name))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid " + name})
		return uuid.Nil, false
	}
	return id, true
}

// POST /api/modules/:id/start
func (h *ProgressHandler) StartModule(c *gin.Context) {
	userID, ok := currentUserID(c)
	if !ok {
		return
	}
	moduleID, ok := pathUUID(c, "id")
	if !ok {
		return
	}
	record, err := h.progressService.StartModule(c.Request.Context(), userID, moduleID)
	if err != nil {
		RespondWithError(c, err)
		return
	}
	RespondOK(c, gin.H{"progress": record})
}

// POST /api/modules/:id/complete
func (h *ProgressHandler) CompleteModule(c *gin.Context) {
	userID, ok := currentUserID(c)
	if !ok {
		return
	}
	moduleID, ok := pathUUID(c, "id")
	if !ok {
		return
	}
	result, err := h.progressService.CompleteModule(c.Request.Context(), userID, moduleID)
	if err != nil {
		RespondWithError(c, err)
		return
	}
	RespondOK(c, result)
}

// POST /api/modules/:id/time
func (h *ProgressHandler) LogTime(c *gin.Context) {
	userID, ok := currentUserID(c)
	if !ok {
		return
	}
	moduleID, ok := pathUUID(c, "id")
	if !ok {
		return
	}
	var req struct {
		SessionStart    time.Time  `json:"session_start"`
		SessionEnd      *time.Time `json:"session_end"`
		DurationMinutes int        `json:"duration_minutes"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
		return
	}
	record, err := h.progressService.LogTime(c.Request.Context(), userID, moduleID, req.SessionStart, req.SessionEnd, req.DurationMinutes)
	if err != nil {
		RespondWithError(c, err)
		return
	}
	RespondOK(c, gin.H{"progress": record})
}

// GET /api/modules/:id/progress
func (h *ProgressHandler) GetModuleProgress(c *gin.Context) {
	userID, ok := currentUserID(c)
	if !ok {
		return
	}
	moduleID, ok := pathUUID(c, "id")
	if !ok {
		return
	}
	view, err := h.progressService.ModuleProgress(c.Request.Context(), userID, moduleID)
	if err != nil {
		RespondWithError(c, err)
		return
	}
	RespondOK(c, view)
}

// GET /api/progress
func (h *ProgressHandler) ListUserProgress(c *gin.Context) {
	userID, ok := currentUserID(c)
	if !ok {
		return
	}
	records, err := h.progressService.UserProgress(c.Request.Context(), userID)
	if err != nil {
		RespondWithError(c, err)
		return
	}
	RespondOK(c, gin.H{"progress": records})
}

// POST /api/admin/users/:userId/modules/:moduleId/override-complete
func (h *ProgressHandler) AdminOverrideComplete(c *gin.Context) {
	actorID, ok := currentUserID(c)
	if !ok {
		return
	}
	userID, ok := pathUUID(c, "userId")
	if !ok {
		return
	}
	moduleID, ok := pathUUID(c, "moduleId")
	if !ok {
		return
	}
	record, err := h.progressService.AdminOverrideComplete(c.Request.Context(), userID, moduleID, actorID)
	if err != nil {
		RespondWithError(c, err)
		return
	}
	RespondOK(c, gin.H{"progress": record})
}

// POST /api/admin/users/:userId/modules/:moduleId/reset
func (h *ProgressHandler) AdminReset(c *gin.Context) {
	actorID, ok := currentUserID(c)
	if !ok {
		return
	}
	userID, ok := pathUUID(c, "userId")
	if !ok {
		return
	}
	moduleID, ok := pathUUID(c, "moduleId")
	if !ok {
		return
	}
	record, err := h.progressService.AdminReset(c.Request.Context(), userID, moduleID, actorID)
	if err != nil {
		RespondWithError(c, err)
		return
	}
	RespondOK(c, gin.H{"progress": record})
}
