// Package reservations moves reservations through their approval lifecycle.
package reservations

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/mrlokans/librarydesk/internal/audit"
	"github.com/mrlokans/librarydesk/internal/database"
	"github.com/mrlokans/librarydesk/internal/database/circulation"
	"github.com/mrlokans/librarydesk/internal/entities"
	"github.com/mrlokans/librarydesk/internal/metrics"
)

var (
	ErrNotFound          = errors.New("reservation not found")
	ErrReasonRequired    = errors.New("rejection reason required")
	ErrInvalidTransition = errors.New("invalid reservation transition")
)

// TransitionError reports a reservation that was not in the status an action needs.
type TransitionError struct {
	Action   string
	Required entities.ReservationStatus
}

func (e *TransitionError) Error() string {
	return fmt.Sprintf("only %s reservations can be %s", e.Required, e.Action)
}

func (e *TransitionError) Unwrap() error {
	return ErrInvalidTransition
}

// Notifier stores in-app notifications.
type Notifier interface {
	Notify(ctx context.Context, n *entities.Notification)
}

// Auditor records librarian activity.
type Auditor interface {
	LogAsync(ctx context.Context, entry audit.Entry)
}

type Service struct {
	repo     *circulation.Repository
	notifier Notifier
	auditor  Auditor
	now      func() time.Time
}

func NewService(repo *circulation.Repository, notifier Notifier, auditor Auditor) *Service {
	return &Service{repo: repo, notifier: notifier, auditor: auditor, now: time.Now}
}

// Approve accepts a pending reservation.
func (s *Service) Approve(ctx context.Context, libraryID, id, librarianID uint, notes string) (*entities.Reservation, error) {
	now := s.now()
	return s.transition(ctx, libraryID, id, librarianID, entities.ReservationStatusApproved, "approved",
		map[string]interface{}{
			"notes":        strings.TrimSpace(notes),
			"processed_by": librarianID,
			"processed_at": now,
		})
}

// Reject declines a pending reservation. A reason is mandatory.
func (s *Service) Reject(ctx context.Context, libraryID, id, librarianID uint, reason string) (*entities.Reservation, error) {
	reason = strings.TrimSpace(reason)
	if reason == "" {
		return nil, ErrReasonRequired
	}
	now := s.now()
	return s.transition(ctx, libraryID, id, librarianID, entities.ReservationStatusRejected, "rejected",
		map[string]interface{}{
			"rejection_reason": reason,
			"processed_by":     librarianID,
			"processed_at":     now,
		})
}

// Fulfill marks an approved reservation as ready for pickup.
func (s *Service) Fulfill(ctx context.Context, libraryID, id, librarianID uint) (*entities.Reservation, error) {
	return s.transition(ctx, libraryID, id, librarianID, entities.ReservationStatusFulfilled, "fulfilled",
		map[string]interface{}{"fulfilled_at": s.now()})
}

// GetReservation returns one reservation of the library.
func (s *Service) GetReservation(libraryID, id uint) (*entities.Reservation, error) {
	res, err := s.repo.GetReservation(libraryID, id)
	if database.IsNotFound(err) {
		return nil, ErrNotFound
	}
	return res, err
}

// List returns reservations, pending ones first.
func (s *Service) List(libraryID uint, filter circulation.ReservationFilter) ([]entities.Reservation, int64, error) {
	return s.repo.ListReservations(libraryID, filter)
}

// Counts returns the number of reservations per status.
func (s *Service) Counts(libraryID uint) (map[entities.ReservationStatus]int64, error) {
	return s.repo.CountReservationsByStatus(libraryID)
}

func (s *Service) transition(ctx context.Context, libraryID, id, librarianID uint, to entities.ReservationStatus, verb string, updates map[string]interface{}) (*entities.Reservation, error) {
	if _, err := s.GetReservation(libraryID, id); err != nil {
		return nil, err
	}

	ok, err := s.repo.TransitionReservation(libraryID, id, to, updates)
	if err != nil {
		return nil, fmt.Errorf("failed to update reservation: %w", err)
	}
	metrics.RecordReservation(string(to), ok)
	if !ok {
		return nil, &TransitionError{Action: verb, Required: entities.ReservationSources(to)[0]}
	}

	res, err := s.repo.GetReservation(libraryID, id)
	if err != nil {
		return nil, fmt.Errorf("failed to reload reservation: %w", err)
	}

	s.notifier.Notify(ctx, &entities.Notification{
		LibraryID: libraryID,
		UserCode:  res.User.Code,
		Type:      entities.NotificationTypeReservation,
		Title:     "Reservation " + verb,
		Message:   memberMessage(res),
	})
	s.auditor.LogAsync(ctx, audit.Entry{
		LibraryID:   libraryID,
		UserID:      librarianID,
		Action:      activityFor(to),
		Description: fmt.Sprintf("Reservation #%d for \"%s\" %s", res.ID, res.Book.Title, verb),
		EntityType:  "reservation",
		EntityID:    res.ID,
	})
	return res, nil
}

func memberMessage(res *entities.Reservation) string {
	switch res.Status {
	case entities.ReservationStatusApproved:
		return fmt.Sprintf("Your reservation for \"%s\" has been approved.", res.Book.Title)
	case entities.ReservationStatusRejected:
		return fmt.Sprintf("Your reservation for \"%s\" was rejected: %s", res.Book.Title, res.RejectionReason)
	case entities.ReservationStatusFulfilled:
		return fmt.Sprintf("\"%s\" is ready for pickup.", res.Book.Title)
	}
	return ""
}

func activityFor(status entities.ReservationStatus) string {
	switch status {
	case entities.ReservationStatusApproved:
		return entities.ActivityReservationApproved
	case entities.ReservationStatusRejected:
		return entities.ActivityReservationRejected
	default:
		return entities.ActivityReservationFulfill
	}
}
