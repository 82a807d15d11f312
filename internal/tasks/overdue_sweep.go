package tasks

import (
	"context"
	"fmt"
	"time"

	"github.com/mikestefanello/backlite"

	"github.com/mrlokans/librarydesk/internal/logging"
)

// OverdueSweeper notifies members about overdue loans.
type OverdueSweeper interface {
	SweepOverdue(ctx context.Context, now time.Time) (int, error)
}

// OverdueSweepTask scans every library for overdue borrowings.
type OverdueSweepTask struct {
	ScheduledAt time.Time `json:"scheduled_at"`
}

// Config returns the queue configuration for the overdue sweep.
func (t OverdueSweepTask) Config() backlite.QueueConfig {
	return backlite.QueueConfig{
		Name:        "overdue_sweep",
		MaxAttempts: 2,
		Backoff:     10 * time.Minute,
		Timeout:     10 * time.Minute,
		Retention: &backlite.Retention{
			Duration:   7 * 24 * time.Hour,
			OnlyFailed: false,
			Data:       &backlite.RetainData{OnlyFailed: true},
		},
	}
}

// OverdueSweepProcessor creates a processor function for OverdueSweepTask.
func OverdueSweepProcessor(sweeper OverdueSweeper) backlite.QueueProcessor[OverdueSweepTask] {
	return func(ctx context.Context, task OverdueSweepTask) error {
		if sweeper == nil {
			return fmt.Errorf("overdue sweeper not configured")
		}

		now := task.ScheduledAt
		if now.IsZero() {
			now = time.Now()
		}

		count, err := sweeper.SweepOverdue(ctx, now)
		if err != nil {
			return fmt.Errorf("overdue sweep: %w", err)
		}

		logging.Info().Int("overdue", count).Msg("overdue sweep finished")
		return nil
	}
}

// NewOverdueSweepQueue creates a backlite queue for the overdue sweep.
func NewOverdueSweepQueue(sweeper OverdueSweeper) backlite.Queue {
	return backlite.NewQueue(OverdueSweepProcessor(sweeper))
}

// EnqueueOverdueSweep queues a sweep for the given instant.
func (c *Client) EnqueueOverdueSweep(ctx context.Context, at time.Time) error {
	if _, err := c.Add(OverdueSweepTask{ScheduledAt: at}).Ctx(ctx).Save(); err != nil {
		return fmt.Errorf("failed to enqueue overdue sweep: %w", err)
	}
	return nil
}
