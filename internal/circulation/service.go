// Package circulation issues, returns and renews loans.
package circulation

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/mrlokans/librarydesk/internal/audit"
	"github.com/mrlokans/librarydesk/internal/database"
	"github.com/mrlokans/librarydesk/internal/database/circulation"
	"github.com/mrlokans/librarydesk/internal/database/libraries"
	"github.com/mrlokans/librarydesk/internal/database/members"
	"github.com/mrlokans/librarydesk/internal/entities"
	"github.com/mrlokans/librarydesk/internal/logging"
	"github.com/mrlokans/librarydesk/internal/metrics"
)

var (
	ErrBorrowingNotFound = errors.New("borrowing not found")
	ErrAlreadyReturned   = errors.New("borrowing already returned")
	ErrNotActive         = errors.New("borrowing is not active")
	ErrMemberNotFound    = errors.New("member not found")
	ErrMemberNotActive   = errors.New("member is not active")
	ErrBookNotFound      = errors.New("book not found")
	ErrNoCopiesAvailable = errors.New("no copies available")
	ErrRenewConflict     = errors.New("borrowing was changed concurrently")
)

// Notifier stores in-app notifications.
type Notifier interface {
	Notify(ctx context.Context, n *entities.Notification)
}

// Auditor records librarian activity.
type Auditor interface {
	LogAsync(ctx context.Context, entry audit.Entry)
}

// Mailer sends overdue reminders.
type Mailer interface {
	SendOverdueReminder(ctx context.Context, b *entities.Borrowing, libraryName string, now time.Time) error
}

// Config holds loan periods in days.
type Config struct {
	LoanPeriodDays int
	RenewalDays    int
}

type Service struct {
	repo      *circulation.Repository
	members   *members.Repository
	libraries *libraries.Repository
	notifier  Notifier
	auditor   Auditor
	mailer    Mailer
	cfg       Config
	now       func() time.Time
}

func NewService(repo *circulation.Repository, users *members.Repository, libs *libraries.Repository,
	notifier Notifier, auditor Auditor, mailer Mailer, cfg Config) *Service {
	if cfg.LoanPeriodDays <= 0 {
		cfg.LoanPeriodDays = 14
	}
	if cfg.RenewalDays <= 0 {
		cfg.RenewalDays = 14
	}
	return &Service{
		repo:      repo,
		members:   users,
		libraries: libs,
		notifier:  notifier,
		auditor:   auditor,
		mailer:    mailer,
		cfg:       cfg,
		now:       time.Now,
	}
}

// Issue lends one copy of a book to an active member. An approved reservation
// the member holds for the book moves to borrowed.
func (s *Service) Issue(ctx context.Context, libraryID, librarianID, userID, bookID uint) (*entities.Borrowing, error) {
	member, err := s.members.GetByID(libraryID, userID)
	if database.IsNotFound(err) {
		return nil, ErrMemberNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load member: %w", err)
	}
	if member.Status != entities.UserStatusActive {
		return nil, ErrMemberNotActive
	}

	now := s.now()
	borrowing := &entities.Borrowing{
		LibraryID: libraryID,
		UserID:    userID,
		BookID:    bookID,
		IssueDate: now,
		DueDate:   entities.DateOnly(now).AddDate(0, 0, s.cfg.LoanPeriodDays),
		Status:    entities.BorrowingStatusActive,
		IssuedBy:  librarianID,
	}

	err = s.repo.WithTx(func(tx *circulation.Repository) error {
		ok, err := tx.DecrementAvailable(libraryID, bookID)
		if err != nil {
			return err
		}
		if !ok {
			var book entities.Book
			if err := tx.FindBook(libraryID, bookID, &book); err != nil {
				if database.IsNotFound(err) {
					return ErrBookNotFound
				}
				return err
			}
			return ErrNoCopiesAvailable
		}

		if err := tx.CreateBorrowing(borrowing); err != nil {
			return err
		}

		res, err := tx.LockOpenReservation(libraryID, userID, bookID, entities.ReservationStatusApproved)
		if database.IsNotFound(err) {
			return nil
		}
		if err != nil {
			return err
		}
		_, err = tx.TransitionReservation(libraryID, res.ID, entities.ReservationStatusBorrowed, nil)
		return err
	})
	if err != nil {
		if errors.Is(err, ErrBookNotFound) || errors.Is(err, ErrNoCopiesAvailable) {
			return nil, err
		}
		return nil, fmt.Errorf("failed to issue book: %w", err)
	}

	metrics.RecordCirculation("issue")

	full, err := s.repo.GetBorrowing(libraryID, borrowing.ID)
	if err != nil {
		return borrowing, nil
	}

	s.notifier.Notify(ctx, &entities.Notification{
		LibraryID: libraryID,
		UserCode:  member.Code,
		Type:      entities.NotificationTypeBorrowing,
		Title:     "Book issued",
		Message:   fmt.Sprintf("You borrowed \"%s\". Please return it by %s.", full.Book.Title, full.DueDate.Format("2 Jan 2006")),
	})
	s.auditor.LogAsync(ctx, audit.Entry{
		LibraryID:   libraryID,
		UserID:      librarianID,
		Action:      entities.ActivityBookIssued,
		Description: fmt.Sprintf("Issued \"%s\" to %s", full.Book.Title, member.FullName()),
		EntityType:  "borrowing",
		EntityID:    full.ID,
	})
	return full, nil
}

// ReturnResult describes a completed return.
type ReturnResult struct {
	Borrowing           *entities.Borrowing
	ReservationReturned bool
}

// Return closes an active loan: the borrowing is marked returned, one copy
// goes back on the shelf and the member's open reservation for the book is
// closed. All three happen in one transaction.
func (s *Service) Return(ctx context.Context, libraryID, borrowingID, librarianID uint) (*ReturnResult, error) {
	now := s.now()
	result := &ReturnResult{}

	err := s.repo.WithTx(func(tx *circulation.Repository) error {
		b, err := tx.LockBorrowing(libraryID, borrowingID)
		if database.IsNotFound(err) {
			return ErrBorrowingNotFound
		}
		if err != nil {
			return err
		}
		if !b.Status.CanTransitionTo(entities.BorrowingStatusReturned) {
			return ErrAlreadyReturned
		}

		ok, err := tx.MarkReturned(libraryID, borrowingID, librarianID, now)
		if err != nil {
			return err
		}
		if !ok {
			return ErrAlreadyReturned
		}

		if ok, err := tx.IncrementAvailable(libraryID, b.BookID); err != nil {
			return err
		} else if !ok {
			logging.Ctx(ctx).Warn().Uint("book_id", b.BookID).Msg("available copies already at total on return")
		}

		res, err := tx.LockOpenReservation(libraryID, b.UserID, b.BookID)
		if database.IsNotFound(err) {
			return nil
		}
		if err != nil {
			return err
		}
		result.ReservationReturned, err = tx.TransitionReservation(libraryID, res.ID, entities.ReservationStatusReturned,
			map[string]interface{}{"returned_at": now})
		return err
	})
	if err != nil {
		if errors.Is(err, ErrBorrowingNotFound) || errors.Is(err, ErrAlreadyReturned) {
			return nil, err
		}
		return nil, fmt.Errorf("failed to return book: %w", err)
	}

	metrics.RecordCirculation("return")

	b, err := s.repo.GetBorrowing(libraryID, borrowingID)
	if err != nil {
		logging.Ctx(ctx).Warn().Err(err).Uint("borrowing_id", borrowingID).Msg("failed to reload returned borrowing")
		return result, nil
	}
	result.Borrowing = b

	s.notifier.Notify(ctx, &entities.Notification{
		LibraryID: libraryID,
		UserCode:  b.User.Code,
		Type:      entities.NotificationTypeBorrowing,
		Title:     "Book returned",
		Message:   fmt.Sprintf("Thank you for returning \"%s\".", b.Book.Title),
	})
	s.auditor.LogAsync(ctx, audit.Entry{
		LibraryID:   libraryID,
		UserID:      librarianID,
		Action:      entities.ActivityBookReturned,
		Description: fmt.Sprintf("Returned \"%s\" from %s", b.Book.Title, b.User.FullName()),
		EntityType:  "borrowing",
		EntityID:    b.ID,
		Metadata:    map[string]any{"late": entities.DateOnly(b.DueDate).Before(entities.DateOnly(now))},
	})
	return result, nil
}

// Renew pushes the due date of an active loan back by the renewal period.
// Overdue loans can be renewed too.
func (s *Service) Renew(ctx context.Context, libraryID, borrowingID, librarianID uint) (*entities.Borrowing, error) {
	const attempts = 3

	for i := 0; i < attempts; i++ {
		b, err := s.repo.GetBorrowing(libraryID, borrowingID)
		if database.IsNotFound(err) {
			return nil, ErrBorrowingNotFound
		}
		if err != nil {
			return nil, fmt.Errorf("failed to load borrowing: %w", err)
		}
		if b.Status != entities.BorrowingStatusActive {
			return nil, ErrNotActive
		}

		newDue := b.DueDate.AddDate(0, 0, s.cfg.RenewalDays)
		ok, err := s.repo.ExtendDueDate(libraryID, borrowingID, b.RenewalCount, newDue)
		if err != nil {
			return nil, fmt.Errorf("failed to renew borrowing: %w", err)
		}
		if !ok {
			continue
		}

		b.DueDate = newDue
		b.RenewalCount++
		metrics.RecordCirculation("renew")

		s.notifier.Notify(ctx, &entities.Notification{
			LibraryID: libraryID,
			UserCode:  b.User.Code,
			Type:      entities.NotificationTypeBorrowing,
			Title:     "Loan renewed",
			Message:   fmt.Sprintf("\"%s\" is now due on %s.", b.Book.Title, newDue.Format("2 Jan 2006")),
		})
		s.auditor.LogAsync(ctx, audit.Entry{
			LibraryID:   libraryID,
			UserID:      librarianID,
			Action:      entities.ActivityBookRenewed,
			Description: fmt.Sprintf("Renewed \"%s\" for %s", b.Book.Title, b.User.FullName()),
			EntityType:  "borrowing",
			EntityID:    b.ID,
			Metadata:    map[string]any{"due_date": newDue.Format(entities.AttendanceDateLayout), "renewal_count": b.RenewalCount},
		})
		return b, nil
	}
	return nil, ErrRenewConflict
}

// History lists borrowings for the history page.
func (s *Service) History(libraryID uint, filter circulation.BorrowingFilter) ([]entities.Borrowing, int64, error) {
	return s.repo.ListBorrowings(libraryID, filter, s.now())
}

// Stats are the loan counters on the librarian dashboard.
type Stats struct {
	Active  int64
	Overdue int64
}

func (s *Service) Stats(libraryID uint) (Stats, error) {
	var st Stats
	var err error
	if st.Active, err = s.repo.CountActive(libraryID); err != nil {
		return st, fmt.Errorf("failed to count active borrowings: %w", err)
	}
	if st.Overdue, err = s.repo.CountOverdue(libraryID, s.now()); err != nil {
		return st, fmt.Errorf("failed to count overdue borrowings: %w", err)
	}
	return st, nil
}

// Overdue lists a library's overdue loans.
func (s *Service) Overdue(libraryID uint) ([]entities.Borrowing, error) {
	return s.repo.ListOverdue(libraryID, s.now())
}

// SweepOverdue notifies and emails every member with an overdue loan across all
// libraries. It returns the number of overdue loans found.
func (s *Service) SweepOverdue(ctx context.Context, now time.Time) (int, error) {
	overdue, err := s.repo.ListOverdue(0, now)
	if err != nil {
		return 0, fmt.Errorf("failed to list overdue borrowings: %w", err)
	}
	metrics.OverdueBorrowings.Set(float64(len(overdue)))

	names := map[uint]string{}
	for i := range overdue {
		b := &overdue[i]

		name, ok := names[b.LibraryID]
		if !ok {
			if lib, err := s.libraries.GetByID(b.LibraryID); err == nil {
				name = lib.Name
			}
			names[b.LibraryID] = name
		}

		s.notifier.Notify(ctx, &entities.Notification{
			LibraryID: b.LibraryID,
			UserCode:  b.User.Code,
			Type:      entities.NotificationTypeOverdue,
			Title:     "Book overdue",
			Message:   fmt.Sprintf("\"%s\" is %d day(s) overdue.", b.Book.Title, b.DaysOverdue(now)),
		})

		if s.mailer != nil {
			if err := s.mailer.SendOverdueReminder(ctx, b, name, now); err != nil {
				logging.Ctx(ctx).Warn().Err(err).Uint("borrowing_id", b.ID).Msg("failed to send overdue reminder")
			}
		}
	}
	return len(overdue), nil
}
