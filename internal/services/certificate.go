package services

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
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

// CertificateArtifactRenderer turns a certificate snapshot into PNG bytes.
// A nil renderer disables artifact generation; records are still issued.
type CertificateArtifactRenderer interface {
	Render(data *types.CertificateData) (bytes.Buffer, error)
}

type CertificateService interface {
	// IssueForCompletedModule runs after a module completion: a standalone
	// module earns a module certificate immediately, while a module that
	// belongs to tracks earns a training_focus certificate for every track
	// the completion finishes. Re-issuing an existing certificate returns
	// the existing record.
	IssueForCompletedModule(ctx context.Context, userID, moduleID uuid.UUID) ([]*types.Certificate, error)
	Generate(ctx context.Context, certificateType string, referenceID, userID uuid.UUID) (*types.Certificate, error)
	// GenerateForEmail issues a certificate to a recipient without a user
	// account, keyed on the email address. Used for passwordless trainees
	// who complete modules before onboarding.
	GenerateForEmail(ctx context.Context, certificateType string, referenceID uuid.UUID, recipientName, email string) (*types.Certificate, error)
	GetForUser(ctx context.Context, userID uuid.UUID) ([]*types.Certificate, error)
	GetByEmail(ctx context.Context, email string) ([]*types.Certificate, error)
	Rerender(ctx context.Context, certificateID uuid.UUID) (*types.Certificate, error)
}

type certificateService struct {
	db          *gorm.DB
	log         *logger.Logger
	certRepo    repos.CertificateRepo
	moduleRepo  repos.ModuleRepo
	trackRepo   repos.TrackRepo
	userRepo    repos.UserRepo
	trackSvc    TrackProgressService
	renderer    CertificateArtifactRenderer
	artifactDir string
}

func NewCertificateService(
	db *gorm.DB,
	baseLog *logger.Logger,
	certRepo repos.CertificateRepo,
	moduleRepo repos.ModuleRepo,
	trackRepo repos.TrackRepo,
	userRepo repos.UserRepo,
	trackSvc TrackProgressService,
	renderer CertificateArtifactRenderer,
	artifactDir string,
) CertificateService {
	return &certificateService{
		db:          db,
		log:         baseLog.With("service", "CertificateService"),
		certRepo:    certRepo,
		moduleRepo:  moduleRepo,
		trackRepo:   trackRepo,
		userRepo:    userRepo,
		trackSvc:    trackSvc,
		renderer:    renderer,
		artifactDir: artifactDir,
	}
}

func (s *certificateService) IssueForCompletedModule(ctx context.Context, userID, moduleID uuid.UUID) ([]*types.Certificate, error) {
	if userID == uuid.Nil || moduleID == uuid.Nil {
		return nil, apierr.Validation("user id and module id are required")
	}

	trackIDs, err := s.moduleRepo.TrackIDsForModule(ctx, nil, moduleID)
	if err != nil {
		return nil, err
	}

	if len(trackIDs) == 0 {
		cert, err := s.Generate(ctx, types.CertificateTypeModule, moduleID, userID)
		if err != nil {
			return nil, err
		}
		return []*types.Certificate{cert}, nil
	}

	// One failing track must not block the rest; failures are logged and
	// the remaining tracks are still evaluated.
	issued := make([]*types.Certificate, 0, len(trackIDs))
	for _, trackID := range trackIDs {
		progress, err := s.trackSvc.TrackProgress(ctx, userID, trackID)
		if err != nil {
			s.log.Warn("IssueForCompletedModule: track progress failed", "error", err, "track_id", trackID, "user_id", userID)
			continue
		}
		if progress.Status != TrackStatusComplete {
			continue
		}
		cert, err := s.Generate(ctx, types.CertificateTypeTrainingFocus, trackID, userID)
		if err != nil {
			s.log.Warn("IssueForCompletedModule: issuance failed", "error", err, "track_id", trackID, "user_id", userID)
			continue
		}
		issued = append(issued, cert)
	}
	return issued, nil
}

func (s *certificateService) Generate(ctx context.Context, certificateType string, referenceID, userID uuid.UUID) (*types.Certificate, error) {
	if certificateType != types.CertificateTypeModule && certificateType != types.CertificateTypeTrainingFocus {
		return nil, apierr.Validation("unknown certificate type")
	}
	if referenceID == uuid.Nil || userID == uuid.Nil {
		return nil, apierr.Validation("reference id and user id are required")
	}

	existing, err := s.certRepo.FindByReference(ctx, nil, certificateType, referenceID, userID)
	if err != nil {
		return nil, err
	}
	if existing != nil {
		return existing, nil
	}

	users, err := s.userRepo.GetByIDs(ctx, nil, []uuid.UUID{userID})
	if err != nil {
		return nil, err
	}
	if len(users) == 0 {
		return nil, apierr.NotFound("user not found")
	}
	user := users[0]

	data := &types.CertificateData{
		RecipientName:     user.DisplayName(),
		CertificateType:   certificateType,
		CertificateNumber: newCertificateNumber(),
		IssuedAt:          time.Now(),
	}

	if agencies, err := s.userRepo.GetAgencies(ctx, nil, userID); err != nil {
		s.log.Warn("Generate: agency lookup failed", "error", err, "user_id", userID)
	} else if len(agencies) > 0 {
		data.AgencyName = agencies[0].Name
	}

	if err := s.fillReferenceData(ctx, certificateType, referenceID, data); err != nil {
		return nil, err
	}

	dataJSON, err := json.Marshal(data)
	if err != nil {
		return nil, err
	}

	cert := &types.Certificate{
		ID:                uuid.New(),
		CertificateType:   certificateType,
		ReferenceID:       referenceID,
		UserID:            &userID,
		Email:             user.Email,
		CertificateNumber: data.CertificateNumber,
		CertificateData:   datatypes.JSON(dataJSON),
		IssuedAt:          data.IssuedAt,
	}

	inserted, err := s.certRepo.CreateIfAbsent(ctx, nil, cert)
	if err != nil {
		return nil, err
	}
	if !inserted {
		// Lost the race to a concurrent completion; the winner's record is
		// the certificate.
		winner, err := s.certRepo.FindByReference(ctx, nil, certificateType, referenceID, userID)
		if err != nil {
			return nil, err
		}
		if winner == nil {
			return nil, fmt.Errorf("certificate insert conflicted but no existing row found")
		}
		return winner, nil
	}

	s.log.Info("Generate: certificate issued",
		"certificate_number", cert.CertificateNumber,
		"certificate_type", certificateType,
		"reference_id", referenceID,
		"user_id", userID)

	s.renderArtifact(ctx, cert, data)
	return cert, nil
}

func (s *certificateService) GenerateForEmail(ctx context.Context, certificateType string, referenceID uuid.UUID, recipientName, email string) (*types.Certificate, error) {
	if certificateType != types.CertificateTypeModule && certificateType != types.CertificateTypeTrainingFocus {
		return nil, apierr.Validation("unknown certificate type")
	}
	email = strings.TrimSpace(strings.ToLower(email))
	recipientName = strings.TrimSpace(recipientName)
	if referenceID == uuid.Nil || email == "" {
		return nil, apierr.Validation("reference id and email are required")
	}
	if recipientName == "" {
		return nil, apierr.Validation("recipient name is required")
	}

	existing, err := s.certRepo.FindByReferenceEmail(ctx, nil, certificateType, referenceID, email)
	if err != nil {
		return nil, err
	}
	if existing != nil {
		return existing, nil
	}

	data := &types.CertificateData{
		RecipientName:     recipientName,
		CertificateType:   certificateType,
		CertificateNumber: newCertificateNumber(),
		IssuedAt:          time.Now(),
	}
	if err := s.fillReferenceData(ctx, certificateType, referenceID, data); err != nil {
		return nil, err
	}

	dataJSON, err := json.Marshal(data)
	if err != nil {
		return nil, err
	}

	cert := &types.Certificate{
		ID:                uuid.New(),
		CertificateType:   certificateType,
		ReferenceID:       referenceID,
		Email:             email,
		CertificateNumber: data.CertificateNumber,
		CertificateData:   datatypes.JSON(dataJSON),
		IssuedAt:          data.IssuedAt,
	}

	inserted, err := s.certRepo.CreateIfAbsent(ctx, nil, cert)
	if err != nil {
		return nil, err
	}
	if !inserted {
		winner, err := s.certRepo.FindByReferenceEmail(ctx, nil, certificateType, referenceID, email)
		if err != nil {
			return nil, err
		}
		if winner == nil {
			return nil, fmt.Errorf("certificate insert conflicted but no existing row found")
		}
		return winner, nil
	}

	s.log.Info("GenerateForEmail: certificate issued",
		"certificate_number", cert.CertificateNumber,
		"certificate_type", certificateType,
		"reference_id", referenceID,
		"email", email)

	s.renderArtifact(ctx, cert, data)
	return cert, nil
}

// fillReferenceData resolves the reference name (and module list for a
// track) into the immutable snapshot.
func (s *certificateService) fillReferenceData(ctx context.Context, certificateType string, referenceID uuid.UUID, data *types.CertificateData) error {
	switch certificateType {
	case types.CertificateTypeModule:
		modules, err := s.moduleRepo.GetByIDs(ctx, nil, []uuid.UUID{referenceID})
		if err != nil {
			return err
		}
		if len(modules) == 0 {
			return apierr.NotFound("training module not found")
		}
		data.ReferenceName = modules[0].Title
	case types.CertificateTypeTrainingFocus:
		tracks, err := s.trackRepo.GetByIDs(ctx, nil, []uuid.UUID{referenceID})
		if err != nil {
			return err
		}
		if len(tracks) == 0 {
			return apierr.NotFound("training track not found")
		}
		data.ReferenceName = tracks[0].Name
		modules, err := s.moduleRepo.GetModulesForTrack(ctx, nil, referenceID)
		if err != nil {
			return err
		}
		for _, module := range modules {
			data.ModuleNames = append(data.ModuleNames, module.Title)
		}
	}
	return nil
}

func (s *certificateService) GetForUser(ctx context.Context, userID uuid.UUID) ([]*types.Certificate, error) {
	if userID == uuid.Nil {
		return nil, apierr.Validation("user id is required")
	}
	return s.certRepo.GetByUserID(ctx, nil, userID)
}

func (s *certificateService) GetByEmail(ctx context.Context, email string) ([]*types.Certificate, error) {
	email = strings.TrimSpace(strings.ToLower(email))
	if email == "" {
		return nil, apierr.Validation("email is required")
	}
	return s.certRepo.GetByEmail(ctx, nil, email)
}

func (s *certificateService) Rerender(ctx context.Context, certificateID uuid.UUID) (*types.Certificate, error) {
	if certificateID == uuid.Nil {
		return nil, apierr.Validation("certificate id is required")
	}
	certs, err := s.certRepo.GetByIDs(ctx, nil, []uuid.UUID{certificateID})
	if err != nil {
		return nil, err
	}
	if len(certs) == 0 {
		return nil, apierr.NotFound("certificate not found")
	}
	cert := certs[0]

	var data types.CertificateData
	if err := json.Unmarshal(cert.CertificateData, &data); err != nil {
		return nil, fmt.Errorf("failed to decode certificate snapshot: %w", err)
	}
	s.renderArtifact(ctx, cert, &data)
	return cert, nil
}

// renderArtifact is best-effort: issuance already happened and must not be
// unwound by a drawing or filesystem failure.
func (s *certificateService) renderArtifact(ctx context.Context, cert *types.Certificate, data *types.CertificateData) {
	if s.renderer == nil {
		return
	}
	buf, err := s.renderer.Render(data)
	if err != nil {
		s.log.Warn("renderArtifact: render failed", "error", err, "certificate_number", cert.CertificateNumber)
		return
	}
	if err := os.MkdirAll(s.artifactDir, 0o755); err != nil {
		s.log.Warn("renderArtifact: mkdir failed", "error", err, "dir", s.artifactDir)
		return
	}
	path := filepath.Join(s.artifactDir, cert.CertificateNumber+".png")
	if err := os.WriteFile(path, buf.Bytes(), 0o644); err != nil {
		s.log.Warn("renderArtifact: write failed", "error", err, "path", path)
		return
	}
	if err := s.certRepo.UpdateArtifactPath(ctx, nil, cert.ID, path); err != nil {
		s.log.Warn("renderArtifact: path update failed", "error", err, "certificate_id", cert.ID)
		return
	}
	cert.ArtifactPath = path
}

func newCertificateNumber() string {
	suffix := strings.ToUpper(strings.ReplaceAll(uuid.New().String(), "-", ""))[:10]
	return fmt.Sprintf("BP-%d-%s", time.Now().Year(), suffix)
}
