package request

import (
	"context"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/meditrack/hospital-api/internal/model"
	apperrors "github.com/meditrack/hospital-api/pkg/errors"
)

type fakeTx struct {
	mu sync.Mutex
}

func (f *fakeTx) WithTx(ctx context.Context, fn func(ctx context.Context) error) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	return fn(ctx)
}

type fakeRequestRepo struct {
	mu       sync.Mutex
	requests map[uuid.UUID]*model.TestRequest
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
		if filters.DoctorID != uuid.Nil && r.DoctorID != filters.DoctorID {
			continue
		}
		if filters.LabTechnicianID != uuid.Nil &&
			(r.LabTechnicianID == nil || *r.LabTechnicianID != filters.LabTechnicianID) {
			continue
		}
		if filters.PatientID != uuid.Nil && r.PatientID != filters.PatientID {
			continue
		}
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
	patients map[uuid.UUID]*model.Patient
}

func (f *fakePatientRepo) Create(ctx context.Context, p *model.Patient) error {
	if p.ID == uuid.Nil {
		p.ID = uuid.New()
	}
	f.patients[p.ID] = p
	return nil
}

func (f *fakePatientRepo) Get(ctx context.Context, id uuid.UUID) (*model.Patient, error) {
	p, ok := f.patients[id]
	if !ok {
		return nil, apperrors.NotFound("patient", nil)
	}
	return p, nil
}

func (f *fakePatientRepo) List(ctx context.Context, filters *model.PatientFilters) ([]*model.Patient, error) {
	return nil, nil
}

func (f *fakePatientRepo) Update(ctx context.Context, p *model.Patient) error { return nil }

type fakeTestRepo struct {
	tests map[uuid.UUID]*model.Test
}

func (f *fakeTestRepo) Create(ctx context.Context, t *model.Test) error {
	if t.ID == uuid.Nil {
		t.ID = uuid.New()
	}
	f.tests[t.ID] = t
	return nil
}

func (f *fakeTestRepo) Get(ctx context.Context, id uuid.UUID) (*model.Test, error) {
	t, ok := f.tests[id]
	if !ok {
		return nil, apperrors.NotFound("test", nil)
	}
	return t, nil
}

func (f *fakeTestRepo) GetByCode(ctx context.Context, code string) (*model.Test, error) {
	return nil, apperrors.NotFound("test", nil)
}

func (f *fakeTestRepo) List(ctx context.Context, filters *model.TestFilters) ([]*model.Test, error) {
	return nil, nil
}

func (f *fakeTestRepo) Update(ctx context.Context, t *model.Test) error    { return nil }
func (f *fakeTestRepo) Deactivate(ctx context.Context, id uuid.UUID) error { return nil }

type fakeUserRepo struct {
	users map[uuid.UUID]*model.User
}

func (f *fakeUserRepo) Create(ctx context.Context, u *model.User) error {
	if u.ID == uuid.Nil {
		u.ID = uuid.New()
	}
	f.users[u.ID] = u
	return nil
}

func (f *fakeUserRepo) Get(ctx context.Context, id uuid.UUID) (*model.User, error) {
	u, ok := f.users[id]
	if !ok {
		return nil, apperrors.NotFound("user", nil)
	}
	return u, nil
}

func (f *fakeUserRepo) GetByEmail(ctx context.Context, email string) (*model.User, error) {
	return nil, apperrors.NotFound("user", nil)
}

func (f *fakeUserRepo) List(ctx context.Context, filters *model.StaffFilters) ([]*model.User, error) {
	return nil, nil
}

func (f *fakeUserRepo) Update(ctx context.Context, u *model.User) error { return nil }

type fakeAuditRepo struct {
	mu   sync.Mutex
	logs []*model.AuditLog
}

func (f *fakeAuditRepo) Create(ctx context.Context, l *model.AuditLog) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.logs = append(f.logs, l)
	return nil
}

func (f *fakeAuditRepo) List(ctx context.Context, entityType string, entityID uuid.UUID) ([]*model.AuditLog, error) {
	return nil, nil
}

func (f *fakeAuditRepo) DeleteBefore(ctx context.Context, cutoff time.Time) (int64, error) {
	return 0, nil
}

type fakeOutboxRepo struct {
	mu     sync.Mutex
	events []*model.OutboxEvent
}

func (f *fakeOutboxRepo) Create(ctx context.Context, e *model.OutboxEvent) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.events = append(f.events, e)
	return nil
}

func (f *fakeOutboxRepo) GetPendingWithLock(ctx context.Context, limit int) ([]*model.OutboxEvent, error) {
	return nil, nil
}

func (f *fakeOutboxRepo) UpdateStatus(ctx context.Context, id uuid.UUID, status model.OutboxStatus, errorMessage *string, retryAt *time.Time) error {
	return nil
}

func (f *fakeOutboxRepo) DeleteProcessedBefore(ctx context.Context, before time.Time) (int64, error) {
	return 0, nil
}

type env struct {
	svc      *Service
	requests *fakeRequestRepo
	outbox   *fakeOutboxRepo
	audit    *fakeAuditRepo

	patientID uuid.UUID
	testID    uuid.UUID
	doctorID  uuid.UUID
	techID    uuid.UUID
}

func newEnv(t *testing.T) *env {
	t.Helper()

	e := &env{
		requests: &fakeRequestRepo{requests: make(map[uuid.UUID]*model.TestRequest)},
		outbox:   &fakeOutboxRepo{},
		audit:    &fakeAuditRepo{},
	}
	patients := &fakePatientRepo{patients: make(map[uuid.UUID]*model.Patient)}
	tests := &fakeTestRepo{tests: make(map[uuid.UUID]*model.Test)}
	users := &fakeUserRepo{users: make(map[uuid.UUID]*model.User)}

	e.svc = NewService(&fakeTx{}, e.requests, patients, tests, users, e.audit, e.outbox)

	ctx := context.Background()
	patient := &model.Patient{MRN: "MRN-1", FirstName: "Ada", LastName: "Lovelace"}
	require.NoError(t, patients.Create(ctx, patient))
	e.patientID = patient.ID

	test := &model.Test{Name: "Lipid Panel", Code: "LIPID", Category: "blood"}
	require.NoError(t, tests.Create(ctx, test))
	e.testID = test.ID

	doctor := &model.User{Role: model.RoleDoctor, FirstName: "Greg", LastName: "House"}
	require.NoError(t, users.Create(ctx, doctor))
	e.doctorID = doctor.ID

	tech := &model.User{Role: model.RoleLabTechnician, FirstName: "Tech", LastName: "One"}
	require.NoError(t, users.Create(ctx, tech))
	e.techID = tech.ID

	return e
}

func (e *env) doctorCaller() *model.Caller {
	return &model.Caller{UserID: e.doctorID, Role: model.RoleDoctor}
}

func (e *env) techCaller() *model.Caller {
	return &model.Caller{UserID: e.techID, Role: model.RoleLabTechnician}
}

func (e *env) create(t *testing.T) *model.TestRequest {
	t.Helper()
	order, err := e.svc.Create(context.Background(), e.doctorCaller(), &model.CreateTestOrderRequest{
		PatientID: e.patientID,
		TestID:    e.testID,
		DoctorID:  e.doctorID,
		Priority:  "high",
	})
	require.NoError(t, err)
	return order
}

func TestCreate(t *testing.T) {
	e := newEnv(t)

	order := e.create(t)

	assert.Equal(t, model.RequestStatusPending, order.Status)
	assert.Equal(t, model.PriorityHigh, order.Priority)
	assert.True(t, strings.HasPrefix(order.RequestNumber, "TR-"), "got %q", order.RequestNumber)
	assert.Len(t, e.outbox.events, 1)
	assert.Equal(t, model.EventRequestCreated, e.outbox.events[0].EventType)
}

func TestCreateDefaultsPriority(t *testing.T) {
	e := newEnv(t)

	order, err := e.svc.Create(context.Background(), e.doctorCaller(), &model.CreateTestOrderRequest{
		PatientID: e.patientID,
		TestID:    e.testID,
		DoctorID:  e.doctorID,
	})
	require.NoError(t, err)
	assert.Equal(t, model.PriorityMedium, order.Priority)
}

func TestCreateRejectsNonDoctorOrderer(t *testing.T) {
	e := newEnv(t)

	_, err := e.svc.Create(context.Background(), e.doctorCaller(), &model.CreateTestOrderRequest{
		PatientID: e.patientID,
		TestID:    e.testID,
		DoctorID:  e.techID,
	})
	assert.True(t, apperrors.IsCode(err, apperrors.ErrBadRequest))
}

func TestCreateUnknownPatient(t *testing.T) {
	e := newEnv(t)

	_, err := e.svc.Create(context.Background(), e.doctorCaller(), &model.CreateTestOrderRequest{
		PatientID: uuid.New(),
		TestID:    e.testID,
		DoctorID:  e.doctorID,
	})
	assert.True(t, apperrors.IsCode(err, apperrors.ErrNotFound))
}

func TestAssign(t *testing.T) {
	e := newEnv(t)
	order := e.create(t)

	assigned, err := e.svc.Assign(context.Background(), e.doctorCaller(), order.ID, e.techID)
	require.NoError(t, err)

	assert.Equal(t, model.RequestStatusAssignedToLab, assigned.Status)
	require.NotNil(t, assigned.LabTechnicianID)
	assert.Equal(t, e.techID, *assigned.LabTechnicianID)
	assert.NotNil(t, assigned.AssignedAt)
}

func TestAssignRejectsNonTechnicianAssignee(t *testing.T) {
	e := newEnv(t)
	order := e.create(t)

	_, err := e.svc.Assign(context.Background(), e.doctorCaller(), order.ID, e.doctorID)
	assert.True(t, apperrors.IsCode(err, apperrors.ErrBadRequest))
}

func TestAssignRejectsForeignDoctor(t *testing.T) {
	e := newEnv(t)
	order := e.create(t)

	other := &model.Caller{UserID: uuid.New(), Role: model.RoleDoctor}
	_, err := e.svc.Assign(context.Background(), other, order.ID, e.techID)
	assert.True(t, apperrors.IsCode(err, apperrors.ErrNotFound))
}

func TestAssignTwiceFails(t *testing.T) {
	e := newEnv(t)
	order := e.create(t)

	_, err := e.svc.Assign(context.Background(), e.doctorCaller(), order.ID, e.techID)
	require.NoError(t, err)

	_, err = e.svc.Assign(context.Background(), e.doctorCaller(), order.ID, e.techID)
	assert.True(t, apperrors.IsCode(err, apperrors.ErrPrecondition))
}

func TestStart(t *testing.T) {
	e := newEnv(t)
	order := e.create(t)
	_, err := e.svc.Assign(context.Background(), e.doctorCaller(), order.ID, e.techID)
	require.NoError(t, err)

	started, err := e.svc.Start(context.Background(), e.techCaller(), order.ID)
	require.NoError(t, err)
	assert.Equal(t, model.RequestStatusInProgress, started.Status)
	assert.NotNil(t, started.StartedAt)
}

func TestStartOnlyAssignedTechnician(t *testing.T) {
	e := newEnv(t)
	order := e.create(t)
	_, err := e.svc.Assign(context.Background(), e.doctorCaller(), order.ID, e.techID)
	require.NoError(t, err)

	other := &model.Caller{UserID: uuid.New(), Role: model.RoleLabTechnician}
	_, err = e.svc.Start(context.Background(), other, order.ID)
	assert.True(t, apperrors.IsCode(err, apperrors.ErrNotFound))
}

func TestStartBeforeAssignmentFails(t *testing.T) {
	e := newEnv(t)
	order := e.create(t)

	// No technician on the order yet, so the ownership check fires first.
	_, err := e.svc.Start(context.Background(), e.techCaller(), order.ID)
	assert.Error(t, err)
}

func TestCancel(t *testing.T) {
	e := newEnv(t)
	order := e.create(t)

	cancelled, err := e.svc.Cancel(context.Background(), e.doctorCaller(), order.ID, "duplicate order")
	require.NoError(t, err)
	assert.Equal(t, model.RequestStatusCancelled, cancelled.Status)
	assert.Equal(t, "duplicate order", cancelled.DoctorRemarks)
}

func TestCancelTerminalFails(t *testing.T) {
	e := newEnv(t)
	order := e.create(t)

	_, err := e.svc.Cancel(context.Background(), e.doctorCaller(), order.ID, "first")
	require.NoError(t, err)

	_, err = e.svc.Cancel(context.Background(), e.doctorCaller(), order.ID, "second")
	assert.True(t, apperrors.IsCode(err, apperrors.ErrPrecondition))
}

func TestListScopesToCaller(t *testing.T) {
	e := newEnv(t)
	order := e.create(t)
	_, err := e.svc.Assign(context.Background(), e.doctorCaller(), order.ID, e.techID)
	require.NoError(t, err)

	orders, err := e.svc.List(context.Background(), e.doctorCaller(), &model.TestRequestFilters{})
	require.NoError(t, err)
	assert.Len(t, orders, 1)

	orders, err = e.svc.List(context.Background(), e.techCaller(), &model.TestRequestFilters{})
	require.NoError(t, err)
	assert.Len(t, orders, 1)

	stranger := &model.Caller{UserID: uuid.New(), Role: model.RoleDoctor}
	orders, err = e.svc.List(context.Background(), stranger, &model.TestRequestFilters{})
	require.NoError(t, err)
	assert.Empty(t, orders)
}

func TestGetScopesToCaller(t *testing.T) {
	e := newEnv(t)
	order := e.create(t)

	got, err := e.svc.Get(context.Background(), e.doctorCaller(), order.ID)
	require.NoError(t, err)
	assert.Equal(t, order.ID, got.ID)

	// The patient on the order can see it.
	patientCaller := &model.Caller{UserID: uuid.New(), Role: model.RolePatient, PatientID: &e.patientID}
	_, err = e.svc.Get(context.Background(), patientCaller, order.ID)
	assert.NoError(t, err)

	// An unrelated patient cannot.
	otherID := uuid.New()
	other := &model.Caller{UserID: uuid.New(), Role: model.RolePatient, PatientID: &otherID}
	_, err = e.svc.Get(context.Background(), other, order.ID)
	assert.True(t, apperrors.IsCode(err, apperrors.ErrNotFound))
}
