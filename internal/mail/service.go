package mail

import (
	"context"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/mrlokans/librarydesk/internal/entities"
	"github.com/mrlokans/librarydesk/internal/logging"
	"github.com/mrlokans/librarydesk/internal/metrics"
)

// EmailService composes member emails and hands them to a queue or sender.
type EmailService struct {
	sender  Sender
	queue   Enqueuer
	baseURL string
}

// NewEmailService creates a service that sends inline through sender.
func NewEmailService(sender Sender, baseURL string) *EmailService {
	return &EmailService{sender: sender, baseURL: strings.TrimRight(baseURL, "/")}
}

// UseQueue routes future emails through q instead of sending inline.
func (s *EmailService) UseQueue(q Enqueuer) {
	s.queue = q
}

// Deliver sends an already rendered message. Task workers call this.
func (s *EmailService) Deliver(ctx context.Context, msg Message) error {
	err := s.sender.Send(ctx, msg)
	metrics.RecordEmail(msg.Template, err)
	return err
}

// SendMemberDeletedEmail tells a member their account was removed.
func (s *EmailService) SendMemberDeletedEmail(ctx context.Context, user *entities.User, libraryName string) error {
	return s.dispatch(ctx, user.Email, TemplateMemberDeleted, map[string]any{
		"Name":        user.FullName(),
		"UserCode":    user.Code,
		"LibraryName": libraryName,
	})
}

// SendMemberSetupEmail sends the link a pending member uses to choose a password.
func (s *EmailService) SendMemberSetupEmail(ctx context.Context, user *entities.User, libraryName, token string, expiresAt time.Time) error {
	return s.dispatch(ctx, user.Email, TemplateMemberSetup, map[string]any{
		"Name":        user.FullName(),
		"UserCode":    user.Code,
		"LibraryName": libraryName,
		"Link":        s.SetupLink(token),
		"ExpiresAt":   expiresAt.Format("2 Jan 2006 15:04"),
	})
}

// SendOverdueReminder reminds a member about an overdue loan.
func (s *EmailService) SendOverdueReminder(ctx context.Context, b *entities.Borrowing, libraryName string, now time.Time) error {
	return s.dispatch(ctx, b.User.Email, TemplateOverdueReminder, map[string]any{
		"Name":        b.User.FullName(),
		"BookTitle":   b.Book.Title,
		"DueDate":     b.DueDate.Format("2 Jan 2006"),
		"DaysOverdue": b.DaysOverdue(now),
		"LibraryName": libraryName,
	})
}

// SetupLink builds the account setup URL for a token.
func (s *EmailService) SetupLink(token string) string {
	return s.baseURL + "/setup-account?token=" + url.QueryEscape(token)
}

func (s *EmailService) dispatch(ctx context.Context, to, name string, data map[string]any) error {
	if to == "" {
		return fmt.Errorf("%s: recipient has no email address", name)
	}

	subject, body, err := Render(name, data)
	if err != nil {
		return err
	}
	msg := Message{To: to, Subject: subject, Body: body, Template: name}

	if s.queue != nil {
		if err := s.queue.EnqueueEmail(ctx, msg); err != nil {
			logging.Ctx(ctx).Warn().Err(err).Str("template", name).Msg("enqueue failed, sending inline")
		} else {
			return nil
		}
	}
	return s.Deliver(ctx, msg)
}
