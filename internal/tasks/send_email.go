package tasks

import (
	"context"
	"fmt"
	"time"

	"github.com/mikestefanello/backlite"

	"github.com/mrlokans/librarydesk/internal/mail"
)

// EmailDeliverer sends a rendered email.
type EmailDeliverer interface {
	Deliver(ctx context.Context, msg mail.Message) error
}

// SendEmailTask delivers one rendered email.
type SendEmailTask struct {
	Message mail.Message `json:"message"`
}

// Config returns the queue configuration for email delivery.
func (t SendEmailTask) Config() backlite.QueueConfig {
	return backlite.QueueConfig{
		Name:        "send_email",
		MaxAttempts: 5,
		Backoff:     2 * time.Minute,
		Timeout:     30 * time.Second,
		Retention: &backlite.Retention{
			Duration:   72 * time.Hour,
			OnlyFailed: true,
			Data:       &backlite.RetainData{OnlyFailed: true},
		},
	}
}

// SendEmailProcessor creates a processor function for SendEmailTask.
func SendEmailProcessor(deliverer EmailDeliverer) backlite.QueueProcessor[SendEmailTask] {
	return func(ctx context.Context, task SendEmailTask) error {
		if deliverer == nil {
			return fmt.Errorf("email deliverer not configured")
		}
		if err := deliverer.Deliver(ctx, task.Message); err != nil {
			return fmt.Errorf("deliver %s email: %w", task.Message.Template, err)
		}
		return nil
	}
}

// NewSendEmailQueue creates a backlite queue for email delivery.
func NewSendEmailQueue(deliverer EmailDeliverer) backlite.Queue {
	return backlite.NewQueue(SendEmailProcessor(deliverer))
}

// EnqueueEmail implements mail.Enqueuer.
func (c *Client) EnqueueEmail(ctx context.Context, msg mail.Message) error {
	_, err := c.Add(SendEmailTask{Message: msg}).Ctx(ctx).Save()
	return err
}
