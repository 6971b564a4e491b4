package appointment

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/meditrack/hospital-api/internal/model"
	"github.com/meditrack/hospital-api/internal/repository"
	apperrors "github.com/meditrack/hospital-api/pkg/errors"
)

// reminderLead is how long before the start time the reminder email fires.
const reminderLead = 24 * time.Hour

type Service struct {
	tx           repository.TxRunner
	appointments repository.AppointmentRepository
	reminders    repository.ReminderRepository
	outbox       repository.OutboxRepository
	now          func() time.Time
}

func NewService(tx repository.TxRunner, appointments repository.AppointmentRepository, reminders repository.ReminderRepository, outbox repository.OutboxRepository) *Service {
	return &Service{
		tx:           tx,
		appointments: appointments,
		reminders:    reminders,
		outbox:       outbox,
		now:          time.Now,
	}
}

// Book creates an appointment after a slot-conflict check against the
// doctor's existing schedule, plus a pending reminder.
func (s *Service) Book(ctx context.Context, req *model.CreateAppointmentRequest) (*model.Appointment, error) {
	if !req.StartTime.After(s.now()) {
		return nil, apperrors.BadRequest("appointment must be in the future", nil)
	}

	var appt *model.Appointment
	err := s.tx.WithTx(ctx, func(ctx context.Context) error {
		overlapping, err := s.appointments.ListOverlapping(ctx, req.DoctorID, req.StartTime, req.EndTime)
		if err != nil {
			return err
		}
		if len(overlapping) > 0 {
			return apperrors.BadRequest("time slot conflicts with an existing appointment", nil)
		}

		appt = &model.Appointment{
			PatientID: req.PatientID,
			DoctorID:  req.DoctorID,
			StartTime: req.StartTime,
			EndTime:   req.EndTime,
			Status:    model.AppointmentStatusScheduled,
			Notes:     req.Notes,
		}
		if err := s.appointments.Create(ctx, appt); err != nil {
			return err
		}

		if due := req.StartTime.Add(-reminderLead); due.After(s.now()) {
			if err := s.reminders.Create(ctx, &model.Reminder{
				AppointmentID: appt.ID,
				DueAt:         due,
			}); err != nil {
				return err
			}
		}

		event, err := model.NewOutboxEvent(model.EventAppointmentBooked, model.ChannelDoctor, map[string]any{
			"appointmentId": appt.ID,
			"patientId":     appt.PatientID,
			"startTime":     appt.StartTime,
		})
		if err != nil {
			return apperrors.Internal(err)
		}
		return s.outbox.Create(ctx, event)
	})
	if err != nil {
		return nil, err
	}
	return appt, nil
}

func (s *Service) Get(ctx context.Context, id uuid.UUID) (*model.Appointment, error) {
	return s.appointments.Get(ctx, id)
}

func (s *Service) List(ctx context.Context, filters *model.AppointmentFilters) ([]*model.Appointment, error) {
	return s.appointments.List(ctx, filters)
}

// Update reschedules or mutates an appointment, re-running the conflict
// check when the slot moves.
func (s *Service) Update(ctx context.Context, id uuid.UUID, req *model.UpdateAppointmentRequest) (*model.Appointment, error) {
	var appt *model.Appointment
	err := s.tx.WithTx(ctx, func(ctx context.Context) error {
		var err error
		appt, err = s.appointments.Get(ctx, id)
		if err != nil {
			return err
		}
		if appt.Status == model.AppointmentStatusCancelled || appt.Status == model.AppointmentStatusCompleted {
			return apperrors.Precondition("appointment already finalized")
		}

		if req.StartTime != nil && req.EndTime != nil {
			overlapping, err := s.appointments.ListOverlapping(ctx, appt.DoctorID, *req.StartTime, *req.EndTime)
			if err != nil {
				return err
			}
			for _, o := range overlapping {
				if o.ID != appt.ID {
					return apperrors.BadRequest("time slot conflicts with an existing appointment", nil)
				}
			}
			appt.StartTime = *req.StartTime
			appt.EndTime = *req.EndTime
		}
		if req.Status != nil {
			appt.Status = model.AppointmentStatus(*req.Status)
		}
		if req.Notes != nil {
			appt.Notes = *req.Notes
		}
		if req.CancelReason != nil {
			appt.CancelReason = req.CancelReason
		}

		return s.appointments.Update(ctx, appt)
	})
	if err != nil {
		return nil, err
	}
	return appt, nil
}

// Cancel marks an appointment cancelled and emits a push event.
func (s *Service) Cancel(ctx context.Context, id uuid.UUID, reason string) error {
	return s.tx.WithTx(ctx, func(ctx context.Context) error {
		appt, err := s.appointments.Get(ctx, id)
		if err != nil {
			return err
		}
		if appt.Status == model.AppointmentStatusCancelled {
			return apperrors.Precondition("appointment already cancelled")
		}

		appt.Status = model.AppointmentStatusCancelled
		appt.CancelReason = &reason
		if err := s.appointments.Update(ctx, appt); err != nil {
			return err
		}

		event, err := model.NewOutboxEvent(model.EventAppointmentCancelled, model.ChannelPatient, map[string]any{
			"appointmentId": appt.ID,
			"reason":        reason,
		})
		if err != nil {
			return apperrors.Internal(err)
		}
		return s.outbox.Create(ctx, event)
	})
}
