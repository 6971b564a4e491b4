package result

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/meditrack/hospital-api/internal/model"
	apperrors "github.com/meditrack/hospital-api/pkg/errors"
)

// fakeTx serializes transaction bodies with a mutex, standing in for the
// row locks the real repositories take with SELECT ... FOR UPDATE.
type fakeTx struct {
	mu sync.Mutex
}

func (f *fakeTx) WithTx(ctx context.Context, fn func(ctx context.Context) error) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	return fn(ctx)
}

type fakeResultRepo struct {
	mu      sync.Mutex
	results map[uuid.UUID]*model.TestResult
}

func newFakeResultRepo() *fakeResultRepo {
	return &fakeResultRepo{results: make(map[uuid.UUID]*model.TestResult)}
}

func (f *fakeResultRepo) Create(ctx context.Context, r *model.TestResult) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	r.ID = uuid.New()
	r.CreatedAt = time.Now()
	r.UpdatedAt = r.CreatedAt
	cp := *r
	f.results[r.ID] = &cp
	return nil
}

func (f *fakeResultRepo) Get(ctx context.Context, id uuid.UUID) (*model.TestResult, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	r, ok := f.results[id]
	if !ok {
		return nil, apperrors.NotFound("test result", nil)
	}
	cp := *r
	return &cp, nil
}

func (f *fakeResultRepo) GetForUpdate(ctx context.Context, id uuid.UUID) (*model.TestResult, error) {
	return f.Get(ctx, id)
}

func (f *fakeResultRepo) GetByRequest(ctx context.Context, requestID uuid.UUID) (*model.TestResult, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, r := range f.results {
		if r.TestRequestID == requestID {
			cp := *r
			return &cp, nil
		}
	}
	return nil, apperrors.NotFound("test result", nil)
}

func (f *fakeResultRepo) List(ctx context.Context, filters *model.ResultFilters) ([]*model.TestResult, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []*model.TestResult
	for _, r := range f.results {
		if filters.Status != "" && r.Status != filters.Status {
			continue
		}
		if filters.LabTechnicianID != uuid.Nil && r.LabTechnicianID != filters.LabTechnicianID {
			continue
		}
		cp := *r
		out = append(out, &cp)
	}
	return out, nil
}

func (f *fakeResultRepo) Update(ctx context.Context, r *model.TestResult) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.results[r.ID]; !ok {
		return apperrors.NotFound("test result", nil)
	}
	r.UpdatedAt = time.Now()
	cp := *r
	f.results[r.ID] = &cp
	return nil
}

// tamper mutates the stored copy directly, bypassing the service.
func (f *fakeResultRepo) tamper(id uuid.UUID, mutate func(*model.TestResult)) {
	f.mu.Lock()
	defer f.mu.Unlock()
	mutate(f.results[id])
}

type fakeRequestRepo struct {
	mu       sync.Mutex
	requests map[uuid.UUID]*model.TestRequest
}

func newFakeRequestRepo() *fakeRequestRepo {
	return &fakeRequestRepo{requests: make(map[uuid.UUID]*model.TestRequest)}
}

func (f *fakeRequestRepo) Create(ctx context.Context, r *model.TestRequest) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if r.ID == uuid.Nil {
		r.ID = uuid.New()
	}
	cp := *r
	f.requests[r.ID] = &cp
	return nil
}

func (f *fakeRequestRepo) Get(ctx context.Context, id uuid.UUID) (*model.TestRequest, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	r, ok := f.requests[id]
	if !ok {
		return nil, apperrors.NotFound("test request", nil)
	}
	cp := *r
	return &cp, nil
}

func (f *fakeRequestRepo) GetForUpdate(ctx context.Context, id uuid.UUID) (*model.TestRequest, error) {
	return f.Get(ctx, id)
}

func (f *fakeRequestRepo) List(ctx context.Context, filters *model.TestRequestFilters) ([]*model.TestRequest, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []*model.TestRequest
	for _, r := range f.requests {
		cp := *r
		out = append(out, &cp)
	}
	return out, nil
}

func (f *fakeRequestRepo) Update(ctx context.Context, r *model.TestRequest) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.requests[r.ID]; !ok {
		return apperrors.NotFound("test request", nil)
	}
	cp := *r
	f.requests[r.ID] = &cp
	return nil
}

type fakePatientRepo struct {
	mu       sync.Mutex
	patients map[uuid.UUID]*model.Patient
}

func newFakePatientRepo() *fakePatientRepo {
	return &fakePatientRepo{patients: make(map[uuid.UUID]*model.Patient)}
}

func (f *fakePatientRepo) Create(ctx context.Context, p *model.Patient) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if p.ID == uuid.Nil {
		p.ID = uuid.New()
	}
	cp := *p
	f.patients[p.ID] = &cp
	return nil
}

func (f *fakePatientRepo) Get(ctx context.Context, id uuid.UUID) (*model.Patient, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	p, ok := f.patients[id]
	if !ok {
		return nil, apperrors.NotFound("patient", nil)
	}
	cp := *p
	return &cp, nil
}

func (f *fakePatientRepo) List(ctx context.Context, filters *model.PatientFilters) ([]*model.Patient, error) {
	return nil, nil
}

func (f *fakePatientRepo) Update(ctx context.Context, p *model.Patient) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	cp := *p
	f.patients[p.ID] = &cp
	return nil
}

type fakeTestRepo struct {
	mu    sync.Mutex
	tests map[uuid.UUID]*model.Test
}

func newFakeTestRepo() *fakeTestRepo {
	return &fakeTestRepo{tests: make(map[uuid.UUID]*model.Test)}
}

func (f *fakeTestRepo) Create(ctx context.Context, t *model.Test) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if t.ID == uuid.Nil {
		t.ID = uuid.New()
	}
	cp := *t
	f.tests[t.ID] = &cp
	return nil
}

func (f *fakeTestRepo) Get(ctx context.Context, id uuid.UUID) (*model.Test, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	t, ok := f.tests[id]
	if !ok {
		return nil, apperrors.NotFound("test", nil)
	}
	cp := *t
	return &cp, nil
}

func (f *fakeTestRepo) GetByCode(ctx context.Context, code string) (*model.Test, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, t := range f.tests {
		if t.Code == code {
			cp := *t
			return &cp, nil
		}
	}
	return nil, apperrors.NotFound("test", nil)
}

func (f *fakeTestRepo) List(ctx context.Context, filters *model.TestFilters) ([]*model.Test, error) {
	return nil, nil
}

func (f *fakeTestRepo) Update(ctx context.Context, t *model.Test) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	cp := *t
	f.tests[t.ID] = &cp
	return nil
}

func (f *fakeTestRepo) Deactivate(ctx context.Context, id uuid.UUID) error {
	return nil
}

type fakeAccessRepo struct {
	mu     sync.Mutex
	grants []*model.PatientAccess
}

func newFakeAccessRepo() *fakeAccessRepo {
	return &fakeAccessRepo{}
}

func (f *fakeAccessRepo) Create(ctx context.Context, a *model.PatientAccess) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	a.ID = uuid.New()
	a.CreatedAt = time.Now()
	cp := *a
	f.grants = append(f.grants, &cp)
	return nil
}

func (f *fakeAccessRepo) GetActive(ctx context.Context, resultID, patientID uuid.UUID, now time.Time) (*model.PatientAccess, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, g := range f.grants {
		if g.TestResultID == resultID && g.PatientID == patientID && now.Before(g.ExpiresAt) {
			cp := *g
			return &cp, nil
		}
	}
	return nil, apperrors.NotFound("access grant", nil)
}

func (f *fakeAccessRepo) CountByResult(ctx context.Context, resultID uuid.UUID) (int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	n := 0
	for _, g := range f.grants {
		if g.TestResultID == resultID {
			n++
		}
	}
	return n, nil
}

type fakeAuditRepo struct {
	mu   sync.Mutex
	logs []*model.AuditLog
}

func newFakeAuditRepo() *fakeAuditRepo {
	return &fakeAuditRepo{}
}

func (f *fakeAuditRepo) Create(ctx context.Context, l *model.AuditLog) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	l.ID = uuid.New()
	l.CreatedAt = time.Now()
	cp := *l
	f.logs = append(f.logs, &cp)
	return nil
}

func (f *fakeAuditRepo) List(ctx context.Context, entityType string, entityID uuid.UUID) ([]*model.AuditLog, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []*model.AuditLog
	for _, l := range f.logs {
		if l.EntityType == entityType && l.EntityID == entityID {
			cp := *l
			out = append(out, &cp)
		}
	}
	return out, nil
}

func (f *fakeAuditRepo) DeleteBefore(ctx context.Context, cutoff time.Time) (int64, error) {
	return 0, nil
}

func (f *fakeAuditRepo) actions() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []string
	for _, l := range f.logs {
		out = append(out, l.Action)
	}
	return out
}

type fakeOutboxRepo struct {
	mu     sync.Mutex
	events []*model.OutboxEvent
}

func newFakeOutboxRepo() *fakeOutboxRepo {
	return &fakeOutboxRepo{}
}

func (f *fakeOutboxRepo) Create(ctx context.Context, e *model.OutboxEvent) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	e.ID = uuid.New()
	cp := *e
	f.events = append(f.events, &cp)
	return nil
}

func (f *fakeOutboxRepo) GetPendingWithLock(ctx context.Context, limit int) ([]*model.OutboxEvent, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []*model.OutboxEvent
	for _, e := range f.events {
		if e.Status == model.OutboxStatusPending {
			cp := *e
			out = append(out, &cp)
		}
		if len(out) == limit {
			break
		}
	}
	return out, nil
}

func (f *fakeOutboxRepo) UpdateStatus(ctx context.Context, id uuid.UUID, status model.OutboxStatus, errorMessage *string, retryAt *time.Time) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, e := range f.events {
		if e.ID == id {
			e.Status = status
			e.ErrorMessage = errorMessage
			e.RetryAt = retryAt
			if retryAt != nil {
				e.RetryCount++
			}
		}
	}
	return nil
}

func (f *fakeOutboxRepo) DeleteProcessedBefore(ctx context.Context, before time.Time) (int64, error) {
	return 0, nil
}

func (f *fakeOutboxRepo) eventTypes() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []string
	for _, e := range f.events {
		out = append(out, e.EventType)
	}
	return out
}

type sentEmail struct {
	To         string
	ResultID   uuid.UUID
	AccessCode string
	ExpiresAt  time.Time
}

// fakeMailer records result emails on a channel since delivery happens on a
// goroutine after the transaction commits.
type fakeMailer struct {
	resultEmails chan sentEmail
}

func newFakeMailer() *fakeMailer {
	return &fakeMailer{resultEmails: make(chan sentEmail, 10)}
}

func (f *fakeMailer) SendResultReady(ctx context.Context, to, patientName, testName string, resultID uuid.UUID, accessCode string, expiresAt time.Time) error {
	f.resultEmails <- sentEmail{To: to, ResultID: resultID, AccessCode: accessCode, ExpiresAt: expiresAt}
	return nil
}

func (f *fakeMailer) SendCredentials(ctx context.Context, to, name, tempPassword string) error {
	return nil
}

func (f *fakeMailer) SendAppointmentReminder(ctx context.Context, to, patientName string, startTime time.Time) error {
	return nil
}

func (f *fakeMailer) SendCustom(ctx context.Context, to, subject, body string) error {
	return nil
}
