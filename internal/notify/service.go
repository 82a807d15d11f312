// Package notify implements internal messaging between library users and
// the notification feed.
package notify

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/mrlokans/librarydesk/internal/database"
	"github.com/mrlokans/librarydesk/internal/database/members"
	"github.com/mrlokans/librarydesk/internal/database/messages"
	"github.com/mrlokans/librarydesk/internal/database/notifications"
	"github.com/mrlokans/librarydesk/internal/entities"
	"github.com/mrlokans/librarydesk/internal/logging"
)

var (
	ErrNotFound          = errors.New("not found")
	ErrRecipientNotFound = errors.New("recipient not found")
	ErrEmptyMessage      = errors.New("message is empty")
	ErrInvalidView       = errors.New("invalid view")
	ErrTitleRequired     = errors.New("title is required")
)

const listLimit = 200

type Service struct {
	messages      *messages.Repository
	notifications *notifications.Repository
	members       *members.Repository
	now           func() time.Time
}

func NewService(msgs *messages.Repository, notes *notifications.Repository, users *members.Repository) *Service {
	return &Service{messages: msgs, notifications: notes, members: users, now: time.Now}
}

// ListMessages returns a mailbox view with sender and recipient names filled in.
func (s *Service) ListMessages(libraryID uint, owner entities.UserCode, view entities.MessageView) ([]entities.Message, error) {
	if view == "" {
		view = entities.MessageViewInbox
	}
	if !view.IsValid() {
		return nil, ErrInvalidView
	}

	list, err := s.messages.List(libraryID, owner, view, listLimit)
	if err != nil {
		return nil, fmt.Errorf("failed to list messages: %w", err)
	}
	if err := s.fillNames(libraryID, list); err != nil {
		return nil, err
	}
	return list, nil
}

// MarkRead marks a received message as read. Repeating the call is harmless.
func (s *Service) MarkRead(libraryID, id uint, owner entities.UserCode) error {
	return translate(s.messages.MarkRead(libraryID, id, owner, s.now()))
}

// ToggleStar flips the star on a message and returns the new state.
func (s *Service) ToggleStar(libraryID, id uint, owner entities.UserCode) (bool, error) {
	starred, err := s.messages.ToggleStar(libraryID, id, owner)
	return starred, translate(err)
}

// Delete hides a message. Rows are kept.
func (s *Service) Delete(libraryID, id uint, owner entities.UserCode) error {
	return translate(s.messages.SoftDelete(libraryID, id, owner))
}

func (s *Service) UnreadCount(libraryID uint, owner entities.UserCode) (int64, error) {
	return s.messages.UnreadCount(libraryID, owner)
}

// Send delivers a composed message and notifies the recipient.
func (s *Service) Send(ctx context.Context, libraryID uint, from, to entities.UserCode, subject, body string) (*entities.Message, error) {
	subject = strings.TrimSpace(subject)
	if subject == "" {
		subject = "(no subject)"
	}
	return s.deliver(ctx, libraryID, from, to, subject, body)
}

// SendChat delivers a chat line. Chat lines share storage with messages under a fixed subject.
func (s *Service) SendChat(ctx context.Context, libraryID uint, from, to entities.UserCode, body string) (*entities.Message, error) {
	return s.deliver(ctx, libraryID, from, to, entities.ChatSubject, body)
}

func (s *Service) deliver(ctx context.Context, libraryID uint, from, to entities.UserCode, subject, body string) (*entities.Message, error) {
	body = strings.TrimSpace(body)
	if body == "" {
		return nil, ErrEmptyMessage
	}

	recipient, err := s.members.GetByCode(libraryID, to)
	if database.IsNotFound(err) {
		return nil, ErrRecipientNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load recipient: %w", err)
	}

	msg := &entities.Message{
		LibraryID:     libraryID,
		SenderCode:    from,
		RecipientCode: recipient.Code,
		Subject:       subject,
		Body:          body,
		CreatedAt:     s.now(),
	}
	if err := s.messages.Create(msg); err != nil {
		return nil, fmt.Errorf("failed to store message: %w", err)
	}

	s.Notify(ctx, &entities.Notification{
		LibraryID: libraryID,
		UserCode:  recipient.Code,
		Type:      entities.NotificationTypeMessage,
		Title:     "New message",
		Message:   subject,
	})
	return msg, nil
}

// Conversation returns the chat with other in chronological order and marks
// everything other sent me as read.
func (s *Service) Conversation(libraryID uint, me, other entities.UserCode) ([]entities.Message, error) {
	if _, err := s.members.GetByCode(libraryID, other); err != nil {
		if database.IsNotFound(err) {
			return nil, ErrRecipientNotFound
		}
		return nil, err
	}

	list, err := s.messages.Conversation(libraryID, me, other, listLimit)
	if err != nil {
		return nil, fmt.Errorf("failed to load conversation: %w", err)
	}
	if _, err := s.messages.MarkConversationRead(libraryID, me, other, s.now()); err != nil {
		return nil, fmt.Errorf("failed to mark conversation read: %w", err)
	}
	if err := s.fillNames(libraryID, list); err != nil {
		return nil, err
	}
	return list, nil
}

// CreateNotification stores a notification for a user of the library.
func (s *Service) CreateNotification(libraryID uint, user entities.UserCode, kind entities.NotificationType, title, message, link string) (*entities.Notification, error) {
	title = strings.TrimSpace(title)
	if title == "" {
		return nil, ErrTitleRequired
	}
	if kind == "" {
		kind = entities.NotificationTypeSystem
	}
	recipient, err := s.members.GetByCode(libraryID, user)
	if database.IsNotFound(err) {
		return nil, ErrRecipientNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load recipient: %w", err)
	}

	n := &entities.Notification{
		LibraryID: libraryID,
		UserCode:  recipient.Code,
		Type:      kind,
		Title:     title,
		Message:   message,
		Link:      link,
		CreatedAt: s.now(),
	}
	if err := s.notifications.Create(n); err != nil {
		return nil, fmt.Errorf("failed to create notification: %w", err)
	}
	return n, nil
}

// Notify stores a notification after the fact. A failure is logged and never
// reaches the caller.
func (s *Service) Notify(ctx context.Context, n *entities.Notification) {
	if n.CreatedAt.IsZero() {
		n.CreatedAt = s.now()
	}
	if err := s.notifications.Create(n); err != nil {
		logging.Ctx(ctx).Warn().Err(err).
			Str("user_id", n.UserCode.String()).
			Str("type", string(n.Type)).
			Msg("failed to create notification")
	}
}

func (s *Service) ListNotifications(libraryID uint, user entities.UserCode, unreadOnly bool) ([]entities.Notification, error) {
	return s.notifications.List(libraryID, user, unreadOnly, listLimit)
}

func (s *Service) MarkAsRead(libraryID, id uint, user entities.UserCode) error {
	return translate(s.notifications.MarkRead(libraryID, id, user, s.now()))
}

func (s *Service) MarkAllAsRead(libraryID uint, user entities.UserCode) (int64, error) {
	return s.notifications.MarkAllRead(libraryID, user, s.now())
}

func (s *Service) GetUnreadCount(libraryID uint, user entities.UserCode) (int64, error) {
	return s.notifications.UnreadCount(libraryID, user)
}

func (s *Service) fillNames(libraryID uint, list []entities.Message) error {
	seen := map[entities.UserCode]bool{}
	var codes []entities.UserCode
	for _, m := range list {
		for _, c := range []entities.UserCode{m.SenderCode, m.RecipientCode} {
			if !seen[c] {
				seen[c] = true
				codes = append(codes, c)
			}
		}
	}

	names, err := s.members.NamesByCode(libraryID, codes)
	if err != nil {
		return fmt.Errorf("failed to resolve names: %w", err)
	}
	for i := range list {
		list[i].SenderName = nameOr(names, list[i].SenderCode)
		list[i].RecipientName = nameOr(names, list[i].RecipientCode)
	}
	return nil
}

func nameOr(names map[entities.UserCode]string, code entities.UserCode) string {
	if name, ok := names[code]; ok && name != "" {
		return name
	}
	return code.String()
}

func translate(err error) error {
	if database.IsNotFound(err) {
		return ErrNotFound
	}
	return err
}
