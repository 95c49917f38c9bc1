package scheduler

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"push-backend/internal/event"
	"push-backend/internal/notification/domain"
	"push-backend/internal/notification/repository"
)

// Processor delivers one pending record
type Processor interface {
	ProcessCreated(ctx context.Context, n *domain.Notification) event.Result
}

// PendingSweeper retries records left pending after their creation trigger
// was lost
type PendingSweeper struct {
	repo      repository.NotificationRepository
	processor Processor
	interval  time.Duration
	minAge    time.Duration
	logger    *slog.Logger
	now       func() time.Time
	stopChan  chan struct{}
	stopOnce  sync.Once
	done      chan struct{}
}

// NewPendingSweeper creates a new sweeper. Records younger than minAge are
// left to their own trigger.
func NewPendingSweeper(
	repo repository.NotificationRepository,
	processor Processor,
	interval, minAge time.Duration,
	logger *slog.Logger,
) *PendingSweeper {
	return &PendingSweeper{
		repo:      repo,
		processor: processor,
		interval:  interval,
		minAge:    minAge,
		logger:    logger.With("component", "pending_sweeper"),
		now:       time.Now,
		stopChan:  make(chan struct{}),
		done:      make(chan struct{}),
	}
}

// Start begins the sweep loop. It returns immediately.
func (s *PendingSweeper) Start(ctx context.Context) {
	s.logger.Info("Starting pending sweeper", "interval", s.interval, "min_age", s.minAge)

	go func() {
		defer close(s.done)

		ticker := time.NewTicker(s.interval)
		defer ticker.Stop()

		for {
			select {
			case <-ticker.C:
				s.sweep(ctx)
			case <-s.stopChan:
				s.logger.Info("Pending sweeper stopped")
				return
			case <-ctx.Done():
				s.logger.Info("Pending sweeper stopped", "reason", ctx.Err())
				return
			}
		}
	}()
}

// Stop ends the loop and waits for an in-flight sweep to finish.
func (s *PendingSweeper) Stop() {
	s.stopOnce.Do(func() { close(s.stopChan) })
	<-s.done
}

// sweep processes every stale pending record and returns how many it handed
// to the processor.
func (s *PendingSweeper) sweep(ctx context.Context) int {
	records, err := s.repo.FindByField(ctx, domain.FieldStatus, string(domain.StatusPending))
	if err != nil {
		s.logger.Error("Failed to list pending notifications", "error", err)
		return 0
	}

	cutoff := s.now().Add(-s.minAge)
	processed := 0
	for _, n := range records {
		if ctx.Err() != nil {
			break
		}
		// Externally written records carry no created_at; their trigger owns them
		if n.CreatedAt == nil || n.CreatedAt.After(cutoff) {
			continue
		}
		// Claimed records were already handed to the gateway by some worker
		if n.Claimed() {
			continue
		}

		res := s.processor.ProcessCreated(ctx, n)
		processed++
		if !res.Success {
			s.logger.Warn("Pending notification retry failed", "notification_id", n.ID, "error", res.Error)
		}
	}

	if processed > 0 {
		s.logger.Info("Swept pending notifications", "count", processed)
	}
	return processed
}
