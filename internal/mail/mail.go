// Package mail renders and delivers the emails sent to library members.
package mail

import "context"

// Message is a rendered email ready for delivery.
type Message struct {
	To       string `json:"to"`
	Subject  string `json:"subject"`
	Body     string `json:"body"`
	Template string `json:"template"`
}

// Sender delivers a rendered message.
type Sender interface {
	Send(ctx context.Context, msg Message) error
}

// Enqueuer hands a message to a background worker for delivery.
type Enqueuer interface {
	EnqueueEmail(ctx context.Context, msg Message) error
}
