package email

import (
	"context"
	"time"

	"github.com/google/uuid"
)

type Service interface {
	// SendResultReady delivers the retrieval reference and access code for an
	// approved result. This is the only channel the code travels on.
	SendResultReady(ctx context.Context, to, patientName, testName string, resultID uuid.UUID, accessCode string, expiresAt time.Time) error
	SendCredentials(ctx context.Context, to, name, tempPassword string) error
	SendAppointmentReminder(ctx context.Context, to, patientName string, startTime time.Time) error
	SendCustom(ctx context.Context, to, subject, body string) error
}
