package mail

import (
	"context"
	"errors"
	"net/smtp"
	"strings"
	"sync"
	"testing"
	"time"

	gobreaker "github.com/sony/gobreaker/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mrlokans/librarydesk/internal/entities"
)

type recordingSender struct {
	mu   sync.Mutex
	sent []Message
	err  error
}

func (r *recordingSender) Send(_ context.Context, msg Message) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.sent = append(r.sent, msg)
	return r.err
}

type recordingQueue struct {
	queued []Message
	err    error
}

func (q *recordingQueue) EnqueueEmail(_ context.Context, msg Message) error {
	if q.err != nil {
		return q.err
	}
	q.queued = append(q.queued, msg)
	return nil
}

func member() *entities.User {
	return &entities.User{Code: "MEM-0001", FirstName: "Ada", LastName: "Lovelace", Email: "ada@example.com"}
}

func TestRender(t *testing.T) {
	subject, body, err := Render(TemplateMemberDeleted, map[string]any{"Name": "Ada", "UserCode": "MEM-1", "LibraryName": "Central"})
	require.NoError(t, err)
	assert.Equal(t, "Your Central account has been removed", subject)
	assert.True(t, strings.HasPrefix(body, "Hello Ada,"))
	assert.Contains(t, body, "MEM-1")

	_, _, err = Render("nope", nil)
	assert.Error(t, err)
}

func TestEmailService_Inline(t *testing.T) {
	sender := &recordingSender{}
	svc := NewEmailService(sender, "https://lib.example.com/")

	err := svc.SendMemberSetupEmail(context.Background(), member(), "Central", "tok en", time.Now().Add(72*time.Hour))
	require.NoError(t, err)

	require.Len(t, sender.sent, 1)
	msg := sender.sent[0]
	assert.Equal(t, "ada@example.com", msg.To)
	assert.Equal(t, TemplateMemberSetup, msg.Template)
	assert.Contains(t, msg.Body, "https://lib.example.com/setup-account?token=tok+en")
}

func TestEmailService_Queue(t *testing.T) {
	sender := &recordingSender{}
	queue := &recordingQueue{}
	svc := NewEmailService(sender, "http://localhost")
	svc.UseQueue(queue)

	b := &entities.Borrowing{
		Status:  entities.BorrowingStatusActive,
		DueDate: time.Now().AddDate(0, 0, -3),
		User:    *member(),
		Book:    entities.Book{Title: "Dune"},
	}
	require.NoError(t, svc.SendOverdueReminder(context.Background(), b, "Central", time.Now()))
	require.Len(t, queue.queued, 1)
	assert.Empty(t, sender.sent)
	assert.Equal(t, "Overdue: Dune", queue.queued[0].Subject)
	assert.Contains(t, queue.queued[0].Body, "3 day(s) overdue")

	queue.err = errors.New("queue closed")
	require.NoError(t, svc.SendMemberDeletedEmail(context.Background(), member(), "Central"))
	assert.Len(t, sender.sent, 1, "falls back to inline delivery")
}

func TestEmailService_NoAddress(t *testing.T) {
	svc := NewEmailService(&recordingSender{}, "")
	u := member()
	u.Email = ""
	assert.Error(t, svc.SendMemberDeletedEmail(context.Background(), u, "Central"))
}

func TestSMTPSender_BreakerOpens(t *testing.T) {
	sender := NewSMTPSender(SMTPConfig{Host: "localhost", Port: 2525, From: "desk@example.com"})

	calls := 0
	var lastMsg []byte
	sender.send = func(addr string, _ smtp.Auth, from string, to []string, msg []byte) error {
		calls++
		lastMsg = msg
		assert.Equal(t, "localhost:2525", addr)
		return errors.New("connection refused")
	}

	ctx := context.Background()
	for i := 0; i < 5; i++ {
		assert.Error(t, sender.Send(ctx, Message{To: "a@example.com", Subject: "s", Body: "line1\nline2"}))
	}
	assert.Contains(t, string(lastMsg), "line1\r\nline2")
	assert.Equal(t, gobreaker.StateOpen, sender.State())

	err := sender.Send(ctx, Message{To: "a@example.com"})
	assert.ErrorIs(t, err, gobreaker.ErrOpenState)
	assert.Equal(t, 5, calls)
}

func TestLogSender(t *testing.T) {
	assert.NoError(t, LogSender{}.Send(context.Background(), Message{To: "x@example.com"}))
}
