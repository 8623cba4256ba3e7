package handlers

import (
	"net/http"
	"os"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/brightpath-hq/brightpath-backend/internal/services"
)

type CertificateHandler struct {
	certificateService services.CertificateService
}

func NewCertificateHandler(certificateService services.CertificateService) *CertificateHandler {
	return &CertificateHandler{certificateService: certificateService}
}

// GET /api/certificates
func (h *CertificateHandler) ListForUser(c *gin.Context) {
	userID, ok := currentUserID(c)
	if !ok {
		return
	}
	certs, err := h.certificateService.GetForUser(c.Request.Context(), userID)
	if err != nil {
		RespondWithError(c, err)
		return
	}
	RespondOK(c, gin.H{"certificates": certs})
}

// GET /api/certificates/lookup?email=...
func (h *CertificateHandler) LookupByEmail(c *gin.Context) {
	certs, err := h.certificateService.GetByEmail(c.Request.Context(), c.Query("email"))
	if err != nil {
		RespondWithError(c, err)
		return
	}
	RespondOK(c, gin.H{"certificates": certs})
}

// GET /api/certificates/:id/artifact
func (h *CertificateHandler) DownloadArtifact(c *gin.Context) {
	userID, ok := currentUserID(c)
	if !ok {
		return
	}
	certID, ok := pathUUID(c, "id")
	if !ok {
		return
	}
	certs, err := h.certificateService.GetForUser(c.Request.Context(), userID)
	if err != nil {
		RespondWithError(c, err)
		return
	}
	for _, cert := range certs {
		if cert.ID != certID {
			continue
		}
		if cert.ArtifactPath == "" {
			c.JSON(http.StatusNotFound, gin.H{"error": "artifact not rendered"})
			return
		}
		if _, err := os.Stat(cert.ArtifactPath); err != nil {
			c.JSON(http.StatusNotFound, gin.H{"error": "artifact missing"})
			return
		}
		c.FileAttachment(cert.ArtifactPath, cert.CertificateNumber+".png")
		return
	}
	c.JSON(http.StatusNotFound, gin.H{"error": "certificate not found"})
}

// POST /api/admin/certificates/issue
func (h *CertificateHandler) IssueForEmail(c *gin.Context) {
	var req struct {
		CertificateType string `json:"certificate_type"`
		ReferenceID     string `json:"reference_id"`
		RecipientName   string `json:"recipient_name"`
		Email           string `json:"email"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
		return
	}
	referenceID, err := uuid.Parse(req.ReferenceID)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid reference_id"})
		return
	}
	cert, err := h.certificateService.GenerateForEmail(c.Request.Context(), req.CertificateType, referenceID, req.RecipientName, req.Email)
	if err != nil {
		RespondWithError(c, err)
		return
	}
	RespondOK(c, gin.H{"certificate": cert})
}

// POST /api/admin/certificates/:id/rerender
func (h *CertificateHandler) Rerender(c *gin.Context) {
	certID, ok := pathUUID(c, "id")
	if !ok {
		return
	}
	cert, err := h.certificateService.Rerender(c.Request.Context(), certID)
	if err != nil {
		RespondWithError(c, err)
		return
	}
	RespondOK(c, gin.H{"certificate": cert})
}
