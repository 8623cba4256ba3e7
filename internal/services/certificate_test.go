package services

import (
	"context"
	"encoding/json"
	"regexp"
	"testing"

	"github.com/google/uuid"

	"github.com/brightpath-hq/brightpath-backend/internal/logger"
	"github.com/brightpath-hq/brightpath-backend/internal/types"
)

type certFixture struct {
	svc          CertificateService
	certRepo     *fakeCertificateRepo
	moduleRepo   *fakeModuleRepo
	trackRepo    *fakeTrackRepo
	userRepo     *fakeUserRepo
	progressRepo *fakeProgressRepo
}

func newCertFixture(t *testing.T) *certFixture {
	t.Helper()
	log := logger.NewNop()
	f := &certFixture{
		certRepo:     &fakeCertificateRepo{},
		moduleRepo:   newFakeModuleRepo(),
		trackRepo:    newFakeTrackRepo(),
		userRepo:     newFakeUserRepo(),
		progressRepo: newFakeProgressRepo(),
	}
	quizSvc := NewQuizService(nil, log, &fakeQuizAttemptRepo{}, newFakeModuleContentRepo())
	trackSvc := NewTrackProgressService(nil, log, f.trackRepo, f.moduleRepo, f.progressRepo, quizSvc)
	f.svc = NewCertificateService(nil, log, f.certRepo, f.moduleRepo, f.trackRepo, f.userRepo, trackSvc, nil, t.TempDir())
	return f
}

func (f *certFixture) completeModule(t *testing.T, userID, moduleID uuid.UUID) {
	t.Helper()
	record := &types.ModuleProgress{ID: uuid.New(), UserID: userID, ModuleID: moduleID, Status: types.ProgressCompleted}
	if err := f.progressRepo.Create(context.Background(), nil, record); err != nil {
		t.Fatalf("seed completion: %v", err)
	}
}

var certificateNumberPattern = regexp.MustCompile(`^BP-\d{4}-[0-9A-F]{10}$`)

func TestIssueForStandaloneModule(t *testing.T) {
	ctx := context.Background()
	f := newCertFixture(t)
	user := f.userRepo.addUser("Dana", "Reyes", "dana@example.com")
	module := f.moduleRepo.addModule("HIPAA Basics")
	f.completeModule(t, user.ID, module.ID)

	issued, err := f.svc.IssueForCompletedModule(ctx, user.ID, module.ID)
	if err != nil {
		t.Fatalf("IssueForCompletedModule: %v", err)
	}
	if len(issued) != 1 {
		t.Fatalf("issued: want=1 got=%d", len(issued))
	}
	cert := issued[0]
	if cert.CertificateType != types.CertificateTypeModule {
		t.Fatalf("type: want=%q got=%q", types.CertificateTypeModule, cert.CertificateType)
	}
	if cert.ReferenceID != module.ID {
		t.Fatalf("reference: want=%s got=%s", module.ID, cert.ReferenceID)
	}
	if !certificateNumberPattern.MatchString(cert.CertificateNumber) {
		t.Fatalf("certificate number %q does not match pattern", cert.CertificateNumber)
	}

	var data types.CertificateData
	if err := json.Unmarshal(cert.CertificateData, &data); err != nil {
		t.Fatalf("decode snapshot: %v", err)
	}
	if data.RecipientName != "Dana Reyes" {
		t.Fatalf("recipient: want=%q got=%q", "Dana Reyes", data.RecipientName)
	}
	if data.ReferenceName != "HIPAA Basics" {
		t.Fatalf("reference name: want=%q got=%q", "HIPAA Basics", data.ReferenceName)
	}
}

func TestIssueIsIdempotent(t *testing.T) {
	ctx := context.Background()
	f := newCertFixture(t)
	user := f.userRepo.addUser("Sam", "", "sam@example.com")
	module := f.moduleRepo.addModule("Standalone")
	f.completeModule(t, user.ID, module.ID)

	first, err := f.svc.IssueForCompletedModule(ctx, user.ID, module.ID)
	if err != nil {
		t.Fatalf("first issue: %v", err)
	}
	second, err := f.svc.IssueForCompletedModule(ctx, user.ID, module.ID)
	if err != nil {
		t.Fatalf("second issue: %v", err)
	}
	if len(f.certRepo.certs) != 1 {
		t.Fatalf("stored certificates: want=1 got=%d", len(f.certRepo.certs))
	}
	if first[0].CertificateNumber != second[0].CertificateNumber {
		t.Fatalf("re-issue minted a new certificate: %q vs %q", first[0].CertificateNumber, second[0].CertificateNumber)
	}
}

func TestNoTrackCertificateUntilTrackDone(t *testing.T) {
	ctx := context.Background()
	f := newCertFixture(t)
	user := f.userRepo.addUser("Lee", "Park", "lee@example.com")
	track := f.trackRepo.addTrack("Onboarding")
	a := f.moduleRepo.addModule("A")
	b := f.moduleRepo.addModule("B")
	f.moduleRepo.linkToTrack(track.ID, a.ID)
	f.moduleRepo.linkToTrack(track.ID, b.ID)

	f.completeModule(t, user.ID, a.ID)
	issued, err := f.svc.IssueForCompletedModule(ctx, user.ID, a.ID)
	if err != nil {
		t.Fatalf("IssueForCompletedModule: %v", err)
	}
	if len(issued) != 0 {
		t.Fatalf("half-done track must not issue, got %v", issued)
	}

	f.completeModule(t, user.ID, b.ID)
	issued, err = f.svc.IssueForCompletedModule(ctx, user.ID, b.ID)
	if err != nil {
		t.Fatalf("IssueForCompletedModule (final): %v", err)
	}
	if len(issued) != 1 {
		t.Fatalf("finished track: want=1 certificate got=%d", len(issued))
	}
	cert := issued[0]
	if cert.CertificateType != types.CertificateTypeTrainingFocus || cert.ReferenceID != track.ID {
		t.Fatalf("certificate: type=%q reference=%s", cert.CertificateType, cert.ReferenceID)
	}

	var data types.CertificateData
	if err := json.Unmarshal(cert.CertificateData, &data); err != nil {
		t.Fatalf("decode snapshot: %v", err)
	}
	if len(data.ModuleNames) != 2 {
		t.Fatalf("module names in snapshot: want=2 got=%v", data.ModuleNames)
	}
}

func TestGenerateSurvivesInsertConflict(t *testing.T) {
	ctx := context.Background()
	f := newCertFixture(t)
	user := f.userRepo.addUser("Ana", "Im", "ana@example.com")
	module := f.moduleRepo.addModule("Raced")
	f.completeModule(t, user.ID, module.ID)

	// Pre-insert the winner's row so CreateIfAbsent reports a conflict.
	userID := user.ID
	winner := &types.Certificate{
		ID:                uuid.New(),
		CertificateType:   types.CertificateTypeModule,
		ReferenceID:       module.ID,
		UserID:            &userID,
		CertificateNumber: "BP-2026-AAAAAAAAAA",
	}
	inserted, err := f.certRepo.CreateIfAbsent(ctx, nil, winner)
	if err != nil || !inserted {
		t.Fatalf("seed winner: inserted=%v err=%v", inserted, err)
	}

	cert, err := f.svc.Generate(ctx, types.CertificateTypeModule, module.ID, user.ID)
	if err != nil {
		t.Fatalf("Generate: %v", err)
	}
	if cert.CertificateNumber != winner.CertificateNumber {
		t.Fatalf("loser must adopt the winner's certificate: want=%q got=%q", winner.CertificateNumber, cert.CertificateNumber)
	}
	if len(f.certRepo.certs) != 1 {
		t.Fatalf("stored certificates: want=1 got=%d", len(f.certRepo.certs))
	}
}

func TestGenerateForEmailIssuesPasswordlessCertificate(t *testing.T) {
	ctx := context.Background()
	f := newCertFixture(t)
	module := f.moduleRepo.addModule("Pre-Hire Orientation")

	cert, err := f.svc.GenerateForEmail(ctx, types.CertificateTypeModule, module.ID, "Kim Osei", "  Kim.Osei@Example.com ")
	if err != nil {
		t.Fatalf("GenerateForEmail: %v", err)
	}
	if cert.UserID != nil {
		t.Fatalf("user id: want nil for a passwordless recipient, got %v", cert.UserID)
	}
	if cert.Email != "kim.osei@example.com" {
		t.Fatalf("email: want normalized %q got=%q", "kim.osei@example.com", cert.Email)
	}
	if !certificateNumberPattern.MatchString(cert.CertificateNumber) {
		t.Fatalf("certificate number %q does not match pattern", cert.CertificateNumber)
	}

	var data types.CertificateData
	if err := json.Unmarshal(cert.CertificateData, &data); err != nil {
		t.Fatalf("decode snapshot: %v", err)
	}
	if data.RecipientName != "Kim Osei" {
		t.Fatalf("recipient: want=%q got=%q", "Kim Osei", data.RecipientName)
	}
	if data.ReferenceName != "Pre-Hire Orientation" {
		t.Fatalf("reference name: want=%q got=%q", "Pre-Hire Orientation", data.ReferenceName)
	}

	// The public email lookup finds it.
	found, err := f.svc.GetByEmail(ctx, "KIM.OSEI@example.com")
	if err != nil {
		t.Fatalf("GetByEmail: %v", err)
	}
	if len(found) != 1 || found[0].CertificateNumber != cert.CertificateNumber {
		t.Fatalf("lookup: want the issued certificate, got %v", found)
	}

	// Re-issuing for the same email is idempotent.
	again, err := f.svc.GenerateForEmail(ctx, types.CertificateTypeModule, module.ID, "Kim Osei", "kim.osei@example.com")
	if err != nil {
		t.Fatalf("GenerateForEmail (repeat): %v", err)
	}
	if again.CertificateNumber != cert.CertificateNumber {
		t.Fatalf("re-issue minted a new certificate: %q vs %q", cert.CertificateNumber, again.CertificateNumber)
	}
	if len(f.certRepo.certs) != 1 {
		t.Fatalf("stored certificates: want=1 got=%d", len(f.certRepo.certs))
	}
}

func TestEmailLookupExcludesUserBoundCertificates(t *testing.T) {
	ctx := context.Background()
	f := newCertFixture(t)
	user := f.userRepo.addUser("Rae", "Sato", "rae@example.com")
	module := f.moduleRepo.addModule("Account Module")
	f.completeModule(t, user.ID, module.ID)

	if _, err := f.svc.Generate(ctx, types.CertificateTypeModule, module.ID, user.ID); err != nil {
		t.Fatalf("Generate: %v", err)
	}

	// The user-bound certificate carries the email but belongs to the
	// account; the passwordless lookup must not surface it.
	found, err := f.svc.GetByEmail(ctx, "rae@example.com")
	if err != nil {
		t.Fatalf("GetByEmail: %v", err)
	}
	if len(found) != 0 {
		t.Fatalf("email lookup: want=0 user-bound certificates, got %d", len(found))
	}
}

func TestGenerateIncludesAgency(t *testing.T) {
	ctx := context.Background()
	f := newCertFixture(t)
	user := f.userRepo.addUser("Noa", "Blum", "noa@example.com")
	f.userRepo.agencies[user.ID] = []*types.Agency{
		{ID: uuid.New(), Name: "Sunrise Home Care"},
		{ID: uuid.New(), Name: "Second Agency"},
	}
	module := f.moduleRepo.addModule("Agency Module")
	f.completeModule(t, user.ID, module.ID)

	cert, err := f.svc.Generate(ctx, types.CertificateTypeModule, module.ID, user.ID)
	if err != nil {
		t.Fatalf("Generate: %v", err)
	}
	var data types.CertificateData
	if err := json.Unmarshal(cert.CertificateData, &data); err != nil {
		t.Fatalf("decode snapshot: %v", err)
	}
	if data.AgencyName != "Sunrise Home Care" {
		t.Fatalf("agency: want primary %q got=%q", "Sunrise Home Care", data.AgencyName)
	}
}
