package worker

import (
	"context"
	"time"

	"github.com/meditrack/hospital-api/internal/repository"
	"github.com/meditrack/hospital-api/pkg/logger"
)

// CleanupWorker prunes old audit rows and processed outbox events.
type CleanupWorker struct {
	audit         repository.AuditRepository
	outbox        repository.OutboxRepository
	retentionDays int
	interval      time.Duration
	logger        *logger.Logger
}

func NewCleanupWorker(audit repository.AuditRepository, outbox repository.OutboxRepository, retentionDays int, interval time.Duration, log *logger.Logger) *CleanupWorker {
	if retentionDays <= 0 {
		retentionDays = 365
	}
	if interval <= 0 {
		interval = 24 * time.Hour
	}
	return &CleanupWorker{
		audit:         audit,
		outbox:        outbox,
		retentionDays: retentionDays,
		interval:      interval,
		logger:        log,
	}
}

func (w *CleanupWorker) Start(ctx context.Context) {
	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			cutoff := time.Now().AddDate(0, 0, -w.retentionDays)
			if n, err := w.audit.DeleteBefore(ctx, cutoff); err != nil {
				w.logger.Error(err, "Failed to prune audit logs")
			} else if n > 0 {
				w.logger.Info("Pruned audit logs", "deleted", n)
			}

			// Processed outbox events older than a week are noise.
			if n, err := w.outbox.DeleteProcessedBefore(ctx, time.Now().AddDate(0, 0, -7)); err != nil {
				w.logger.Error(err, "Failed to prune outbox events")
			} else if n > 0 {
				w.logger.Info("Pruned outbox events", "deleted", n)
			}
		}
	}
}
