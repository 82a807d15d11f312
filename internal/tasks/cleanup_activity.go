package tasks

import (
	"context"
	"fmt"
	"time"

	"github.com/mikestefanello/backlite"

	"github.com/mrlokans/librarydesk/internal/logging"
)

// ActivityCleaner deletes old activity log entries.
type ActivityCleaner interface {
	DeleteOldEntries(retention time.Duration) (int64, error)
}

// CleanupActivityTask removes activity log entries older than the retention period.
type CleanupActivityTask struct {
	RetentionDays int `json:"retention_days"`
}

// Config returns the queue configuration for activity cleanup tasks.
func (t CleanupActivityTask) Config() backlite.QueueConfig {
	return backlite.QueueConfig{
		Name:        "cleanup_activity_log",
		MaxAttempts: 3,
		Backoff:     5 * time.Minute,
		Timeout:     2 * time.Minute,
		Retention: &backlite.Retention{
			Duration:   24 * time.Hour,
			OnlyFailed: false,
			Data:       &backlite.RetainData{OnlyFailed: true},
		},
	}
}

// CleanupActivityProcessor creates a processor function for CleanupActivityTask.
func CleanupActivityProcessor(cleaner ActivityCleaner) backlite.QueueProcessor[CleanupActivityTask] {
	return func(ctx context.Context, task CleanupActivityTask) error {
		if cleaner == nil {
			return fmt.Errorf("activity cleaner not configured")
		}

		retentionDays := task.RetentionDays
		if retentionDays <= 0 {
			retentionDays = 365
		}

		deleted, err := cleaner.DeleteOldEntries(time.Duration(retentionDays) * 24 * time.Hour)
		if err != nil {
			return fmt.Errorf("cleanup activity log: %w", err)
		}

		logging.Info().Int64("deleted", deleted).Int("retention_days", retentionDays).Msg("activity log cleaned up")
		return nil
	}
}

// NewCleanupActivityQueue creates a backlite queue for activity cleanup tasks.
func NewCleanupActivityQueue(cleaner ActivityCleaner) backlite.Queue {
	return backlite.NewQueue(CleanupActivityProcessor(cleaner))
}

// EnqueueActivityCleanup queues removal of activity entries older than retentionDays.
func (c *Client) EnqueueActivityCleanup(ctx context.Context, retentionDays int) error {
	if _, err := c.Add(CleanupActivityTask{RetentionDays: retentionDays}).Ctx(ctx).Save(); err != nil {
		return fmt.Errorf("failed to enqueue activity cleanup: %w", err)
	}
	return nil
}
