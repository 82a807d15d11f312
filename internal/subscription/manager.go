// Package subscription decides what a library's plan allows.
package subscription

import (
	"errors"
	"fmt"
	"time"

	"github.com/mrlokans/librarydesk/internal/database"
	"github.com/mrlokans/librarydesk/internal/entities"
)

var (
	ErrSubscriptionInactive = errors.New("subscription is not active")
	ErrBookLimitReached     = errors.New("plan book limit reached")
	ErrNoSubscription       = errors.New("library has no subscription")
)

// Store is the persistence the manager needs.
type Store interface {
	GetSubscription(libraryID uint) (*entities.Subscription, error)
}

// BookCounter counts a library's titles.
type BookCounter interface {
	Count(libraryID uint) (int64, error)
}

// Details is the subscription summary shown to librarians.
type Details struct {
	Plan           entities.SubscriptionPlan   `json:"plan"`
	Status         entities.SubscriptionStatus `json:"status"`
	Active         bool                        `json:"active"`
	StartsAt       time.Time                   `json:"starts_at"`
	ExpiresAt      *time.Time                  `json:"expires_at,omitempty"`
	BookLimit      int64                       `json:"book_limit"`
	BooksUsed      int64                       `json:"books_used"`
	BooksRemaining int64                       `json:"books_remaining"`
}

// Unlimited reports whether the plan has no book cap.
func (d *Details) Unlimited() bool {
	return d.BookLimit == 0
}

type Manager struct {
	store Store
	books BookCounter
	now   func() time.Time
}

func NewManager(store Store, books BookCounter) *Manager {
	return &Manager{store: store, books: books, now: time.Now}
}

// HasActiveSubscription reports whether the library may use the module.
// A library without a subscription row is not active.
func (m *Manager) HasActiveSubscription(libraryID uint) (bool, error) {
	sub, err := m.store.GetSubscription(libraryID)
	if database.IsNotFound(err) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("failed to load subscription: %w", err)
	}
	return sub.IsActive(m.now()), nil
}

// GetSubscriptionDetails returns the plan, status and book usage of a library.
func (m *Manager) GetSubscriptionDetails(libraryID uint) (*Details, error) {
	sub, err := m.store.GetSubscription(libraryID)
	if database.IsNotFound(err) {
		return nil, ErrNoSubscription
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load subscription: %w", err)
	}

	used, err := m.books.Count(libraryID)
	if err != nil {
		return nil, fmt.Errorf("failed to count books: %w", err)
	}

	details := &Details{
		Plan:           sub.Plan,
		Status:         sub.Status,
		Active:         sub.IsActive(m.now()),
		StartsAt:       sub.StartsAt,
		ExpiresAt:      sub.ExpiresAt,
		BookLimit:      sub.Plan.BookLimit(),
		BooksUsed:      used,
		BooksRemaining: -1,
	}
	if !details.Unlimited() {
		details.BooksRemaining = max(details.BookLimit-used, 0)
	}
	return details, nil
}

// CanAddBook returns nil when one more title fits the library's plan.
func (m *Manager) CanAddBook(libraryID uint) error {
	sub, err := m.store.GetSubscription(libraryID)
	if database.IsNotFound(err) {
		return ErrSubscriptionInactive
	}
	if err != nil {
		return fmt.Errorf("failed to load subscription: %w", err)
	}
	if !sub.IsActive(m.now()) {
		return ErrSubscriptionInactive
	}

	limit := sub.Plan.BookLimit()
	if limit == 0 {
		return nil
	}
	used, err := m.books.Count(libraryID)
	if err != nil {
		return fmt.Errorf("failed to count books: %w", err)
	}
	if used >= limit {
		return ErrBookLimitReached
	}
	return nil
}
