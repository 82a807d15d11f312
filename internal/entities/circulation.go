package entities

import "time"

type BorrowingStatus string

const (
	BorrowingStatusActive   BorrowingStatus = "active"
	BorrowingStatusReturned BorrowingStatus = "returned"
)

// CanTransitionTo reports whether a borrowing may move from s to next.
func (s BorrowingStatus) CanTransitionTo(next BorrowingStatus) bool {
	return s == BorrowingStatusActive && next == BorrowingStatusReturned
}

type ReservationStatus string

const (
	ReservationStatusPending   ReservationStatus = "pending"
	ReservationStatusApproved  ReservationStatus = "approved"
	ReservationStatusRejected  ReservationStatus = "rejected"
	ReservationStatusFulfilled ReservationStatus = "fulfilled"
	ReservationStatusBorrowed  ReservationStatus = "borrowed"
	ReservationStatusReturned  ReservationStatus = "returned"
)

var reservationTransitions = map[ReservationStatus][]ReservationStatus{
	ReservationStatusPending:  {ReservationStatusApproved, ReservationStatusRejected},
	ReservationStatusApproved: {ReservationStatusFulfilled, ReservationStatusBorrowed, ReservationStatusReturned},
	ReservationStatusBorrowed: {ReservationStatusReturned},
}

// CanTransitionTo reports whether a reservation may move from s to next.
// Transitions are one-directional; rejected, fulfilled and returned are terminal.
func (s ReservationStatus) CanTransitionTo(next ReservationStatus) bool {
	for _, allowed := range reservationTransitions[s] {
		if allowed == next {
			return true
		}
	}
	return false
}

// ReservationSources returns every status that may transition into next.
// Conditional updates use it as the guard: UPDATE ... WHERE status IN (...).
func ReservationSources(next ReservationStatus) []ReservationStatus {
	var sources []ReservationStatus
	for from, targets := range reservationTransitions {
		for _, to := range targets {
			if to == next {
				sources = append(sources, from)
			}
		}
	}
	return sources
}

func (s ReservationStatus) IsValid() bool {
	switch s {
	case ReservationStatusPending, ReservationStatusApproved, ReservationStatusRejected,
		ReservationStatusFulfilled, ReservationStatusBorrowed, ReservationStatusReturned:
		return true
	}
	return false
}

type Borrowing struct {
	ID           uint            `gorm:"primaryKey" json:"id"`
	LibraryID    uint            `gorm:"index;not null" json:"library_id"`
	UserID       uint            `gorm:"index;not null" json:"user_id"`
	BookID       uint            `gorm:"index;not null" json:"book_id"`
	IssueDate    time.Time       `json:"issue_date"`
	DueDate      time.Time       `gorm:"index" json:"due_date"`
	ReturnDate   *time.Time      `json:"return_date,omitempty"`
	Status       BorrowingStatus `gorm:"size:20;not null;index" json:"status"`
	RenewalCount int             `gorm:"not null;default:0" json:"renewal_count"`
	IssuedBy     uint            `json:"issued_by"`
	ReturnedBy   *uint           `json:"returned_by,omitempty"`
	CreatedAt    time.Time       `json:"created_at"`
	UpdatedAt    time.Time       `json:"updated_at"`

	User User `gorm:"foreignKey:UserID" json:"user,omitempty"`
	Book Book `gorm:"foreignKey:BookID" json:"book,omitempty"`
}

func (Borrowing) TableName() string {
	return "borrowings"
}

// IsOverdue reports whether an active loan is past its due date on the given day.
func (b *Borrowing) IsOverdue(now time.Time) bool {
	if b.Status != BorrowingStatusActive {
		return false
	}
	return DateOnly(b.DueDate).Before(DateOnly(now))
}

// DaysOverdue returns the number of whole days past due, or zero.
func (b *Borrowing) DaysOverdue(now time.Time) int {
	if !b.IsOverdue(now) {
		return 0
	}
	return int(DateOnly(now).Sub(DateOnly(b.DueDate)).Hours() / 24)
}

type Reservation struct {
	ID              uint              `gorm:"primaryKey" json:"id"`
	LibraryID       uint              `gorm:"index;not null" json:"library_id"`
	UserID          uint              `gorm:"index;not null" json:"user_id"`
	BookID          uint              `gorm:"index;not null" json:"book_id"`
	Status          ReservationStatus `gorm:"size:20;not null;index" json:"status"`
	Notes           string            `gorm:"size:1000" json:"notes,omitempty"`
	RejectionReason string            `gorm:"size:1000" json:"rejection_reason,omitempty"`
	ProcessedBy     *uint             `json:"processed_by,omitempty"`
	ProcessedAt     *time.Time        `json:"processed_at,omitempty"`
	FulfilledAt     *time.Time        `json:"fulfilled_at,omitempty"`
	ReturnedAt      *time.Time        `json:"returned_at,omitempty"`
	CreatedAt       time.Time         `json:"created_at"`
	UpdatedAt       time.Time         `json:"updated_at"`

	User User `gorm:"foreignKey:UserID" json:"user,omitempty"`
	Book Book `gorm:"foreignKey:BookID" json:"book,omitempty"`
}

func (Reservation) TableName() string {
	return "reservations"
}

// DateOnly truncates t to midnight in its own location.
func DateOnly(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, t.Location())
}
