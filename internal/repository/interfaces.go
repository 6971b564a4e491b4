package repository

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/meditrack/hospital-api/internal/model"
)

// TxRunner executes fn atomically. Repository calls made with the context
// passed to fn join the same transaction.
type TxRunner interface {
	WithTx(ctx context.Context, fn func(ctx context.Context) error) error
}

type UserRepository interface {
	Create(ctx context.Context, user *model.User) error
	Get(ctx context.Context, id uuid.UUID) (*model.User, error)
	GetByEmail(ctx context.Context, email string) (*model.User, error)
	List(ctx context.Context, filters *model.StaffFilters) ([]*model.User, error)
	Update(ctx context.Context, user *model.User) error
}

type PatientRepository interface {
	Create(ctx context.Context, patient *model.Patient) error
	Get(ctx context.Context, id uuid.UUID) (*model.Patient, error)
	List(ctx context.Context, filters *model.PatientFilters) ([]*model.Patient, error)
	Update(ctx context.Context, patient *model.Patient) error
}

type TestRepository interface {
	Create(ctx context.Context, test *model.Test) error
	Get(ctx context.Context, id uuid.UUID) (*model.Test, error)
	GetByCode(ctx context.Context, code string) (*model.Test, error)
	List(ctx context.Context, filters *model.TestFilters) ([]*model.Test, error)
	Update(ctx context.Context, test *model.Test) error
	Deactivate(ctx context.Context, id uuid.UUID) error
}

type TestRequestRepository interface {
	Create(ctx context.Context, req *model.TestRequest) error
	Get(ctx context.Context, id uuid.UUID) (*model.TestRequest, error)
	// GetForUpdate locks the request row for the duration of the enclosing
	// transaction so racing lifecycle mutations are serialized.
	GetForUpdate(ctx context.Context, id uuid.UUID) (*model.TestRequest, error)
	List(ctx context.Context, filters *model.TestRequestFilters) ([]*model.TestRequest, error)
	Update(ctx context.Context, req *model.TestRequest) error
}

type TestResultRepository interface {
	Create(ctx context.Context, result *model.TestResult) error
	Get(ctx context.Context, id uuid.UUID) (*model.TestResult, error)
	GetForUpdate(ctx context.Context, id uuid.UUID) (*model.TestResult, error)
	GetByRequest(ctx context.Context, requestID uuid.UUID) (*model.TestResult, error)
	List(ctx context.Context, filters *model.ResultFilters) ([]*model.TestResult, error)
	Update(ctx context.Context, result *model.TestResult) error
}

type PatientAccessRepository interface {
	Create(ctx context.Context, access *model.PatientAccess) error
	GetActive(ctx context.Context, resultID, patientID uuid.UUID, now time.Time) (*model.PatientAccess, error)
	CountByResult(ctx context.Context, resultID uuid.UUID) (int, error)
}

type AppointmentRepository interface {
	Create(ctx context.Context, appt *model.Appointment) error
	Get(ctx context.Context, id uuid.UUID) (*model.Appointment, error)
	List(ctx context.Context, filters *model.AppointmentFilters) ([]*model.Appointment, error)
	ListOverlapping(ctx context.Context, doctorID uuid.UUID, start, end time.Time) ([]*model.Appointment, error)
	Update(ctx context.Context, appt *model.Appointment) error
}

type ReminderRepository interface {
	Create(ctx context.Context, reminder *model.Reminder) error
	ListDue(ctx context.Context, now time.Time, limit int) ([]*model.Reminder, error)
	MarkSent(ctx context.Context, id uuid.UUID, sentAt time.Time) error
	MarkFailed(ctx context.Context, id uuid.UUID) error
}

type AuditRepository interface {
	Create(ctx context.Context, log *model.AuditLog) error
	List(ctx context.Context, entityType string, entityID uuid.UUID) ([]*model.AuditLog, error)
	DeleteBefore(ctx context.Context, cutoff time.Time) (int64, error)
}

type OutboxRepository interface {
	Create(ctx context.Context, event *model.OutboxEvent) error
	GetPendingWithLock(ctx context.Context, limit int) ([]*model.OutboxEvent, error)
	UpdateStatus(ctx context.Context, id uuid.UUID, status model.OutboxStatus, errorMessage *string, retryAt *time.Time) error
	DeleteProcessedBefore(ctx context.Context, before time.Time) (int64, error)
}
