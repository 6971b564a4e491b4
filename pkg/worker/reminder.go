package worker

import (
	"context"
	"time"

	"github.com/meditrack/hospital-api/internal/email"
	"github.com/meditrack/hospital-api/internal/model"
	"github.com/meditrack/hospital-api/internal/repository"
	"github.com/meditrack/hospital-api/pkg/logger"
)

// ReminderWorker drains due appointment reminders and emails the patient.
// Rows are claimed with SKIP LOCKED so multiple workers can run safely.
type ReminderWorker struct {
	tx           repository.TxRunner
	reminders    repository.ReminderRepository
	appointments repository.AppointmentRepository
	patients     repository.PatientRepository
	mailer       email.Service
	interval     time.Duration
	batchSize    int
	logger       *logger.Logger
}

func NewReminderWorker(
	tx repository.TxRunner,
	reminders repository.ReminderRepository,
	appointments repository.AppointmentRepository,
	patients repository.PatientRepository,
	mailer email.Service,
	interval time.Duration,
	log *logger.Logger,
) *ReminderWorker {
	if interval <= 0 {
		interval = time.Minute
	}
	return &ReminderWorker{
		tx:           tx,
		reminders:    reminders,
		appointments: appointments,
		patients:     patients,
		mailer:       mailer,
		interval:     interval,
		batchSize:    50,
		logger:       log,
	}
}

func (w *ReminderWorker) Start(ctx context.Context) {
	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	w.logger.Info("Starting reminder worker")

	for {
		select {
		case <-ctx.Done():
			w.logger.Info("Shutting down reminder worker")
			return
		case <-ticker.C:
			if err := w.processDue(ctx); err != nil {
				w.logger.Error(err, "Failed to process reminders")
			}
		}
	}
}

func (w *ReminderWorker) processDue(ctx context.Context) error {
	return w.tx.WithTx(ctx, func(ctx context.Context) error {
		due, err := w.reminders.ListDue(ctx, time.Now(), w.batchSize)
		if err != nil {
			return err
		}

		for _, reminder := range due {
			if err := w.send(ctx, reminder); err != nil {
				w.logger.Error(err, "Failed to send reminder", "reminder_id", reminder.ID.String())
				if markErr := w.reminders.MarkFailed(ctx, reminder.ID); markErr != nil {
					w.logger.Error(markErr, "Failed to mark reminder failed")
				}
				continue
			}
			if err := w.reminders.MarkSent(ctx, reminder.ID, time.Now()); err != nil {
				w.logger.Error(err, "Failed to mark reminder sent")
			}
		}
		return nil
	})
}

func (w *ReminderWorker) send(ctx context.Context, reminder *model.Reminder) error {
	appt, err := w.appointments.Get(ctx, reminder.AppointmentID)
	if err != nil {
		return err
	}
	if appt.Status == model.AppointmentStatusCancelled {
		// Nothing to remind; mark it sent so it stops coming back.
		return nil
	}
	patient, err := w.patients.Get(ctx, appt.PatientID)
	if err != nil {
		return err
	}
	return w.mailer.SendAppointmentReminder(ctx, patient.Email, patient.FullName(), appt.StartTime)
}
