package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/meditrack/hospital-api/internal/model"
	"github.com/meditrack/hospital-api/internal/repository"
	apperrors "github.com/meditrack/hospital-api/pkg/errors"
)

type appointmentRepository struct {
	BaseRepository
}

func NewAppointmentRepository(base BaseRepository) repository.AppointmentRepository {
	return &appointmentRepository{base}
}

func (r *appointmentRepository) Create(ctx context.Context, appt *model.Appointment) error {
	query := `
		INSERT INTO appointments (
			id, patient_id, doctor_id, start_time, end_time, status, notes,
			cancel_reason, created_at, updated_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
	`
	appt.ID = uuid.New()
	appt.CreatedAt = time.Now()
	appt.UpdatedAt = appt.CreatedAt

	_, err := r.ext(ctx).ExecContext(ctx, query,
		appt.ID, appt.PatientID, appt.DoctorID, appt.StartTime, appt.EndTime,
		appt.Status, appt.Notes, appt.CancelReason, appt.CreatedAt, appt.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to create appointment: %w", err)
	}
	return nil
}

func (r *appointmentRepository) Get(ctx context.Context, id uuid.UUID) (*model.Appointment, error) {
	var appt model.Appointment
	err := sqlx.GetContext(ctx, r.ext(ctx), &appt, `SELECT * FROM appointments WHERE id = $1`, id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, apperrors.NotFound("appointment", err)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get appointment: %w", err)
	}
	return &appt, nil
}

func (r *appointmentRepository) List(ctx context.Context, filters *model.AppointmentFilters) ([]*model.Appointment, error) {
	query := `SELECT * FROM appointments WHERE 1=1`
	args := []interface{}{}
	idx := 1

	if filters.PatientID != uuid.Nil {
		query += fmt.Sprintf(" AND patient_id = $%d", idx)
		args = append(args, filters.PatientID)
		idx++
	}
	if filters.DoctorID != uuid.Nil {
		query += fmt.Sprintf(" AND doctor_id = $%d", idx)
		args = append(args, filters.DoctorID)
		idx++
	}
	if filters.Status != "" {
		query += fmt.Sprintf(" AND status = $%d", idx)
		args = append(args, filters.Status)
		idx++
	}
	if !filters.StartDate.IsZero() {
		query += fmt.Sprintf(" AND start_time >= $%d", idx)
		args = append(args, filters.StartDate)
		idx++
	}
	if !filters.EndDate.IsZero() {
		query += fmt.Sprintf(" AND start_time <= $%d", idx)
		args = append(args, filters.EndDate)
		idx++
	}

	filters.Normalize()
	query += fmt.Sprintf(" ORDER BY start_time ASC LIMIT $%d OFFSET $%d", idx, idx+1)
	args = append(args, filters.PageSize, filters.Offset())

	var appts []*model.Appointment
	if err := sqlx.SelectContext(ctx, r.ext(ctx), &appts, query, args...); err != nil {
		return nil, fmt.Errorf("failed to list appointments: %w", err)
	}
	return appts, nil
}

func (r *appointmentRepository) ListOverlapping(ctx context.Context, doctorID uuid.UUID, start, end time.Time) ([]*model.Appointment, error) {
	var appts []*model.Appointment
	err := sqlx.SelectContext(ctx, r.ext(ctx), &appts, `
		SELECT * FROM appointments
		WHERE doctor_id = $1
		AND status IN ('scheduled', 'confirmed')
		AND start_time < $3 AND end_time > $2
	`, doctorID, start, end)
	if err != nil {
		return nil, fmt.Errorf("failed to list overlapping appointments: %w", err)
	}
	return appts, nil
}

func (r *appointmentRepository) Update(ctx context.Context, appt *model.Appointment) error {
	appt.UpdatedAt = time.Now()
	query := `
		UPDATE appointments
		SET start_time = $1, end_time = $2, status = $3, notes = $4,
			cancel_reason = $5, updated_at = $6
		WHERE id = $7
	`
	res, err := r.ext(ctx).ExecContext(ctx, query,
		appt.StartTime, appt.EndTime, appt.Status, appt.Notes,
		appt.CancelReason, appt.UpdatedAt, appt.ID,
	)
	if err != nil {
		return fmt.Errorf("failed to update appointment: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return apperrors.NotFound("appointment", nil)
	}
	return nil
}

type reminderRepository struct {
	BaseRepository
}

func NewReminderRepository(base BaseRepository) repository.ReminderRepository {
	return &reminderRepository{base}
}

func (r *reminderRepository) Create(ctx context.Context, reminder *model.Reminder) error {
	query := `
		INSERT INTO reminders (
			id, appointment_id, due_at, status, sent_at, created_at, updated_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7)
	`
	reminder.ID = uuid.New()
	reminder.CreatedAt = time.Now()
	reminder.UpdatedAt = reminder.CreatedAt
	reminder.Status = model.ReminderStatusPending

	_, err := r.ext(ctx).ExecContext(ctx, query,
		reminder.ID, reminder.AppointmentID, reminder.DueAt, reminder.Status,
		reminder.SentAt, reminder.CreatedAt, reminder.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to create reminder: %w", err)
	}
	return nil
}

func (r *reminderRepository) ListDue(ctx context.Context, now time.Time, limit int) ([]*model.Reminder, error) {
	var reminders []*model.Reminder
	err := sqlx.SelectContext(ctx, r.ext(ctx), &reminders, `
		SELECT * FROM reminders
		WHERE status = 'pending' AND due_at <= $1
		ORDER BY due_at ASC
		LIMIT $2
		FOR UPDATE SKIP LOCKED
	`, now, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list due reminders: %w", err)
	}
	return reminders, nil
}

func (r *reminderRepository) MarkSent(ctx context.Context, id uuid.UUID, sentAt time.Time) error {
	_, err := r.ext(ctx).ExecContext(ctx,
		`UPDATE reminders SET status = 'sent', sent_at = $1, updated_at = $1 WHERE id = $2`,
		sentAt, id,
	)
	return err
}

func (r *reminderRepository) MarkFailed(ctx context.Context, id uuid.UUID) error {
	_, err := r.ext(ctx).ExecContext(ctx,
		`UPDATE reminders SET status = 'failed', updated_at = $1 WHERE id = $2`,
		time.Now(), id,
	)
	return err
}
