package services

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/brightpath-hq/brightpath-backend/internal/types"
)

// In-memory repo fakes backing the service tests. They hold pointers, so
// tests mutate state through the same records the services see.

func pairKey(userID, moduleID uuid.UUID) string {
	return userID.String() + "|" + moduleID.String()
}

type fakeProgressRepo struct {
	mu      sync.Mutex
	records map[string]*types.ModuleProgress
	// beforeCreate runs once at the top of the next CreateIfAbsent call,
	// simulating a writer that slips in between read and insert.
	beforeCreate func()
}

func newFakeProgressRepo() *fakeProgressRepo {
	return &fakeProgressRepo{records: map[string]*types.ModuleProgress{}}
}

func (f *fakeProgressRepo) GetByUserAndModule(ctx context.Context, tx *gorm.DB, userID, moduleID uuid.UUID) (*types.ModuleProgress, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	record, ok := f.records[pairKey(userID, moduleID)]
	if !ok {
		return nil, nil
	}
	clone := *record
	return &clone, nil
}

func (f *fakeProgressRepo) GetByUserAndModuleIDs(ctx context.Context, tx *gorm.DB, userID uuid.UUID, moduleIDs []uuid.UUID) ([]*types.ModuleProgress, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := []*types.ModuleProgress{}
	for _, moduleID := range moduleIDs {
		if record, ok := f.records[pairKey(userID, moduleID)]; ok {
			clone := *record
			out = append(out, &clone)
		}
	}
	return out, nil
}

func (f *fakeProgressRepo) GetByUserID(ctx context.Context, tx *gorm.DB, userID uuid.UUID) ([]*types.ModuleProgress, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := []*types.ModuleProgress{}
	for _, record := range f.records {
		if record.UserID == userID {
			clone := *record
			out = append(out, &clone)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ModuleID.String() < out[j].ModuleID.String() })
	return out, nil
}

// Create is a test seeding helper; the service path goes through
// CreateIfAbsent.
func (f *fakeProgressRepo) Create(ctx context.Context, tx *gorm.DB, row *types.ModuleProgress) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	key := pairKey(row.UserID, row.ModuleID)
	if _, exists := f.records[key]; exists {
		return fmt.Errorf("duplicate progress row for %s", key)
	}
	clone := *row
	f.records[key] = &clone
	return nil
}

func (f *fakeProgressRepo) CreateIfAbsent(ctx context.Context, tx *gorm.DB, row *types.ModuleProgress) (bool, error) {
	if f.beforeCreate != nil {
		hook := f.beforeCreate
		f.beforeCreate = nil
		hook()
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, exists := f.records[pairKey(row.UserID, row.ModuleID)]; exists {
		return false, nil
	}
	clone := *row
	f.records[pairKey(row.UserID, row.ModuleID)] = &clone
	return true, nil
}

func (f *fakeProgressRepo) Updates(ctx context.Context, tx *gorm.DB, userID, moduleID uuid.UUID, fields map[string]interface{}) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	record, ok := f.records[pairKey(userID, moduleID)]
	if !ok {
		return nil
	}
	for column, value := range fields {
		switch column {
		case "status":
			record.Status = value.(string)
		case "started_at":
			record.StartedAt = toTimePtr(value)
		case "completed_at":
			record.CompletedAt = toTimePtr(value)
		case "time_spent_seconds":
			record.TimeSpentSeconds = value.(int)
		case "overridden_by_user_id":
			record.OverriddenByUserID = toUUIDPtr(value)
		case "overridden_at":
			record.OverriddenAt = toTimePtr(value)
		default:
			return fmt.Errorf("unexpected column %q", column)
		}
	}
	return nil
}

func (f *fakeProgressRepo) AddTime(ctx context.Context, tx *gorm.DB, userID, moduleID uuid.UUID, seconds int) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	record, ok := f.records[pairKey(userID, moduleID)]
	if !ok {
		return nil
	}
	record.TimeSpentSeconds += seconds
	return nil
}

func toTimePtr(value interface{}) *time.Time {
	if value == nil {
		return nil
	}
	switch v := value.(type) {
	case time.Time:
		return &v
	case *time.Time:
		return v
	}
	return nil
}

func toUUIDPtr(value interface{}) *uuid.UUID {
	if value == nil {
		return nil
	}
	switch v := value.(type) {
	case uuid.UUID:
		return &v
	case *uuid.UUID:
		return v
	}
	return nil
}

type fakeModuleRepo struct {
	modules      map[uuid.UUID]*types.TrainingModule
	trackModules map[uuid.UUID][]uuid.UUID // ordered
}

func newFakeModuleRepo() *fakeModuleRepo {
	return &fakeModuleRepo{
		modules:      map[uuid.UUID]*types.TrainingModule{},
		trackModules: map[uuid.UUID][]uuid.UUID{},
	}
}

func (f *fakeModuleRepo) addModule(title string) *types.TrainingModule {
	module := &types.TrainingModule{ID: uuid.New(), Title: title, IsActive: true}
	f.modules[module.ID] = module
	return module
}

func (f *fakeModuleRepo) linkToTrack(trackID, moduleID uuid.UUID) {
	f.trackModules[trackID] = append(f.trackModules[trackID], moduleID)
}

func (f *fakeModuleRepo) GetByIDs(ctx context.Context, tx *gorm.DB, ids []uuid.UUID) ([]*types.TrainingModule, error) {
	out := []*types.TrainingModule{}
	for _, id := range ids {
		if module, ok := f.modules[id]; ok {
			out = append(out, module)
		}
	}
	return out, nil
}

func (f *fakeModuleRepo) GetModulesForTrack(ctx context.Context, tx *gorm.DB, trackID uuid.UUID) ([]*types.TrainingModule, error) {
	out := []*types.TrainingModule{}
	seen := map[uuid.UUID]bool{}
	for _, moduleID := range f.trackModules[trackID] {
		if module, ok := f.modules[moduleID]; ok && !seen[moduleID] {
			out = append(out, module)
			seen[moduleID] = true
		}
	}
	for _, module := range f.modules {
		if module.TrackID != nil && *module.TrackID == trackID && !seen[module.ID] {
			out = append(out, module)
			seen[module.ID] = true
		}
	}
	return out, nil
}

func (f *fakeModuleRepo) TrackIDsForModule(ctx context.Context, tx *gorm.DB, moduleID uuid.UUID) ([]uuid.UUID, error) {
	out := []uuid.UUID{}
	seen := map[uuid.UUID]bool{}
	for trackID, moduleIDs := range f.trackModules {
		for _, id := range moduleIDs {
			if id == moduleID && !seen[trackID] {
				out = append(out, trackID)
				seen[trackID] = true
			}
		}
	}
	if module, ok := f.modules[moduleID]; ok && module.TrackID != nil && !seen[*module.TrackID] {
		out = append(out, *module.TrackID)
	}
	return out, nil
}

type fakeTimeLogRepo struct {
	entries []*types.TimeLog
}

func (f *fakeTimeLogRepo) Create(ctx context.Context, tx *gorm.DB, row *types.TimeLog) error {
	clone := *row
	f.entries = append(f.entries, &clone)
	return nil
}

func (f *fakeTimeLogRepo) GetByUserAndModule(ctx context.Context, tx *gorm.DB, userID, moduleID uuid.UUID) ([]*types.TimeLog, error) {
	out := []*types.TimeLog{}
	for _, entry := range f.entries {
		if entry.UserID == userID && entry.ModuleID == moduleID {
			out = append(out, entry)
		}
	}
	return out, nil
}

type fakeTaskRepo struct {
	tasks   []*types.Task
	markErr error
}

func (f *fakeTaskRepo) GetOpenTrainingTasks(ctx context.Context, tx *gorm.DB, userID, moduleID uuid.UUID) ([]*types.Task, error) {
	out := []*types.Task{}
	for _, task := range f.tasks {
		if task.AssignedToUserID == userID && task.ReferenceID != nil && *task.ReferenceID == moduleID &&
			(task.Status == types.TaskStatusPending || task.Status == types.TaskStatusInProgress) {
			out = append(out, task)
		}
	}
	return out, nil
}

func (f *fakeTaskRepo) MarkComplete(ctx context.Context, tx *gorm.DB, taskID uuid.UUID) error {
	if f.markErr != nil {
		return f.markErr
	}
	for _, task := range f.tasks {
		if task.ID == taskID {
			task.Status = types.TaskStatusCompleted
		}
	}
	return nil
}

type fakeQuizAttemptRepo struct {
	mu       sync.Mutex
	attempts []*types.QuizAttempt
}

func (f *fakeQuizAttemptRepo) Create(ctx context.Context, tx *gorm.DB, row *types.QuizAttempt) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	clone := *row
	f.attempts = append(f.attempts, &clone)
	return nil
}

func (f *fakeQuizAttemptRepo) GetByUserAndModule(ctx context.Context, tx *gorm.DB, userID, moduleID uuid.UUID) ([]*types.QuizAttempt, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := []*types.QuizAttempt{}
	for _, attempt := range f.attempts {
		if attempt.UserID == userID && attempt.ModuleID == moduleID {
			out = append(out, attempt)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CompletedAt.After(out[j].CompletedAt) })
	return out, nil
}

func (f *fakeQuizAttemptRepo) Latest(ctx context.Context, tx *gorm.DB, userID, moduleID uuid.UUID) (*types.QuizAttempt, error) {
	attempts, _ := f.GetByUserAndModule(ctx, tx, userID, moduleID)
	if len(attempts) == 0 {
		return nil, nil
	}
	return attempts[0], nil
}

func (f *fakeQuizAttemptRepo) Count(ctx context.Context, tx *gorm.DB, userID, moduleID uuid.UUID) (int64, error) {
	attempts, _ := f.GetByUserAndModule(ctx, tx, userID, moduleID)
	return int64(len(attempts)), nil
}

type fakeModuleContentRepo struct {
	contents map[uuid.UUID][]*types.ModuleContent
}

func newFakeModuleContentRepo() *fakeModuleContentRepo {
	return &fakeModuleContentRepo{contents: map[uuid.UUID][]*types.ModuleContent{}}
}

func (f *fakeModuleContentRepo) GetByModuleID(ctx context.Context, tx *gorm.DB, moduleID uuid.UUID) ([]*types.ModuleContent, error) {
	return f.contents[moduleID], nil
}

type fakeTrackRepo struct {
	tracks     map[uuid.UUID]*types.TrainingTrack
	userTracks map[uuid.UUID][]uuid.UUID
}

func newFakeTrackRepo() *fakeTrackRepo {
	return &fakeTrackRepo{
		tracks:     map[uuid.UUID]*types.TrainingTrack{},
		userTracks: map[uuid.UUID][]uuid.UUID{},
	}
}

func (f *fakeTrackRepo) addTrack(name string) *types.TrainingTrack {
	track := &types.TrainingTrack{ID: uuid.New(), Name: name, IsActive: true}
	f.tracks[track.ID] = track
	return track
}

func (f *fakeTrackRepo) GetByIDs(ctx context.Context, tx *gorm.DB, ids []uuid.UUID) ([]*types.TrainingTrack, error) {
	out := []*types.TrainingTrack{}
	for _, id := range ids {
		if track, ok := f.tracks[id]; ok {
			out = append(out, track)
		}
	}
	return out, nil
}

func (f *fakeTrackRepo) GetForUser(ctx context.Context, tx *gorm.DB, userID uuid.UUID) ([]*types.TrainingTrack, error) {
	out := []*types.TrainingTrack{}
	for _, trackID := range f.userTracks[userID] {
		if track, ok := f.tracks[trackID]; ok {
			out = append(out, track)
		}
	}
	return out, nil
}

type fakeUserRepo struct {
	users    map[uuid.UUID]*types.User
	agencies map[uuid.UUID][]*types.Agency
}

func newFakeUserRepo() *fakeUserRepo {
	return &fakeUserRepo{
		users:    map[uuid.UUID]*types.User{},
		agencies: map[uuid.UUID][]*types.Agency{},
	}
}

func (f *fakeUserRepo) addUser(firstName, lastName, email string) *types.User {
	user := &types.User{ID: uuid.New(), FirstName: firstName, LastName: lastName, Email: email, Role: "user"}
	f.users[user.ID] = user
	return user
}

func (f *fakeUserRepo) Create(ctx context.Context, tx *gorm.DB, rows []*types.User) ([]*types.User, error) {
	for _, row := range rows {
		f.users[row.ID] = row
	}
	return rows, nil
}

func (f *fakeUserRepo) GetByIDs(ctx context.Context, tx *gorm.DB, ids []uuid.UUID) ([]*types.User, error) {
	out := []*types.User{}
	for _, id := range ids {
		if user, ok := f.users[id]; ok {
			out = append(out, user)
		}
	}
	return out, nil
}

func (f *fakeUserRepo) GetByEmails(ctx context.Context, tx *gorm.DB, emails []string) ([]*types.User, error) {
	out := []*types.User{}
	for _, email := range emails {
		for _, user := range f.users {
			if user.Email == email {
				out = append(out, user)
			}
		}
	}
	return out, nil
}

func (f *fakeUserRepo) GetAgencies(ctx context.Context, tx *gorm.DB, userID uuid.UUID) ([]*types.Agency, error) {
	return f.agencies[userID], nil
}

type fakeCertificateRepo struct {
	mu        sync.Mutex
	certs     []*types.Certificate
	createErr error
}

// certIdentity mirrors the partial unique indexes: user-bound rows key
// on the user id, email-only rows on the email.
func certIdentity(certificateType string, referenceID uuid.UUID, userID *uuid.UUID, email string) string {
	owner := "email:" + email
	if userID != nil {
		owner = "user:" + userID.String()
	}
	return certificateType + "|" + referenceID.String() + "|" + owner
}

func (f *fakeCertificateRepo) CreateIfAbsent(ctx context.Context, tx *gorm.DB, row *types.Certificate) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.createErr != nil {
		return false, f.createErr
	}
	identity := certIdentity(row.CertificateType, row.ReferenceID, row.UserID, row.Email)
	for _, cert := range f.certs {
		if certIdentity(cert.CertificateType, cert.ReferenceID, cert.UserID, cert.Email) == identity {
			return false, nil
		}
	}
	clone := *row
	f.certs = append(f.certs, &clone)
	return true, nil
}

func (f *fakeCertificateRepo) FindByReference(ctx context.Context, tx *gorm.DB, certificateType string, referenceID uuid.UUID, userID uuid.UUID) (*types.Certificate, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, cert := range f.certs {
		if cert.CertificateType == certificateType && cert.ReferenceID == referenceID &&
			cert.UserID != nil && *cert.UserID == userID {
			return cert, nil
		}
	}
	return nil, nil
}

func (f *fakeCertificateRepo) FindByReferenceEmail(ctx context.Context, tx *gorm.DB, certificateType string, referenceID uuid.UUID, email string) (*types.Certificate, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, cert := range f.certs {
		if cert.CertificateType == certificateType && cert.ReferenceID == referenceID &&
			cert.UserID == nil && cert.Email == email {
			return cert, nil
		}
	}
	return nil, nil
}

func (f *fakeCertificateRepo) GetByIDs(ctx context.Context, tx *gorm.DB, ids []uuid.UUID) ([]*types.Certificate, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := []*types.Certificate{}
	for _, id := range ids {
		for _, cert := range f.certs {
			if cert.ID == id {
				out = append(out, cert)
			}
		}
	}
	return out, nil
}

func (f *fakeCertificateRepo) GetByUserID(ctx context.Context, tx *gorm.DB, userID uuid.UUID) ([]*types.Certificate, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := []*types.Certificate{}
	for _, cert := range f.certs {
		if cert.UserID != nil && *cert.UserID == userID {
			out = append(out, cert)
		}
	}
	return out, nil
}

func (f *fakeCertificateRepo) GetByEmail(ctx context.Context, tx *gorm.DB, email string) ([]*types.Certificate, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := []*types.Certificate{}
	for _, cert := range f.certs {
		if cert.UserID == nil && cert.Email == email {
			out = append(out, cert)
		}
	}
	return out, nil
}

func (f *fakeCertificateRepo) UpdateArtifactPath(ctx context.Context, tx *gorm.DB, id uuid.UUID, artifactPath string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, cert := range f.certs {
		if cert.ID == id {
			cert.ArtifactPath = artifactPath
		}
	}
	return nil
}

// stubCertificateService records issuance calls so completion tests can
// assert the hook fired without standing up the full issuer.
type stubCertificateService struct {
	issued   []uuid.UUID
	returned []*types.Certificate
	issueErr error
}

func (s *stubCertificateService) IssueForCompletedModule(ctx context.Context, userID, moduleID uuid.UUID) ([]*types.Certificate, error) {
	if s.issueErr != nil {
		return nil, s.issueErr
	}
	s.issued = append(s.issued, moduleID)
	return s.returned, nil
}

func (s *stubCertificateService) Generate(ctx context.Context, certificateType string, referenceID, userID uuid.UUID) (*types.Certificate, error) {
	return nil, nil
}

func (s *stubCertificateService) GenerateForEmail(ctx context.Context, certificateType string, referenceID uuid.UUID, recipientName, email string) (*types.Certificate, error) {
	return nil, nil
}

func (s *stubCertificateService) GetForUser(ctx context.Context, userID uuid.UUID) ([]*types.Certificate, error) {
	return nil, nil
}

func (s *stubCertificateService) GetByEmail(ctx context.Context, email string) ([]*types.Certificate, error) {
	return nil, nil
}

func (s *stubCertificateService) Rerender(ctx context.Context, certificateID uuid.UUID) (*types.Certificate, error) {
	return nil, nil
}
