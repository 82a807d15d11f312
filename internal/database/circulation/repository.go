// Package circulation stores borrowings and reservations and the copy counters
// they move. Multi-step changes run through WithTx and every state change is a
// conditional UPDATE whose RowsAffected tells the caller whether it won.
package circulation

import (
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/mrlokans/librarydesk/internal/entities"
)

type Repository struct {
	db *gorm.DB
}

func NewRepository(db *gorm.DB) *Repository {
	return &Repository{db: db}
}

// WithTx runs fn inside a transaction with a repository bound to it.
func (r *Repository) WithTx(fn func(tx *Repository) error) error {
	return r.db.Transaction(func(tx *gorm.DB) error {
		return fn(&Repository{db: tx})
	})
}

// BorrowingFilter narrows borrowing listings.
type BorrowingFilter struct {
	Status  entities.BorrowingStatus
	UserID  uint
	BookID  uint
	Overdue bool
	Search  string
	Limit   int
	Offset  int
}

// ReservationFilter narrows reservation listings.
type ReservationFilter struct {
	Status entities.ReservationStatus
	UserID uint
	Limit  int
	Offset int
}

func (r *Repository) GetBorrowing(libraryID, id uint) (*entities.Borrowing, error) {
	var b entities.Borrowing
	err := r.db.Preload("User").Preload("Book").
		Where("id = ? AND library_id = ?", id, libraryID).First(&b).Error
	if err != nil {
		return nil, err
	}
	return &b, nil
}

// LockBorrowing reads a borrowing with a row lock where the dialect supports it.
func (r *Repository) LockBorrowing(libraryID, id uint) (*entities.Borrowing, error) {
	var b entities.Borrowing
	err := r.db.Clauses(clause.Locking{Strength: "UPDATE"}).
		Where("id = ? AND library_id = ?", id, libraryID).First(&b).Error
	if err != nil {
		return nil, err
	}
	return &b, nil
}

func (r *Repository) CreateBorrowing(b *entities.Borrowing) error {
	return r.db.Create(b).Error
}

// MarkReturned closes an active borrowing. It reports false when the borrowing
// was already returned.
func (r *Repository) MarkReturned(libraryID, id, returnedBy uint, at time.Time) (bool, error) {
	result := r.db.Model(&entities.Borrowing{}).
		Where("id = ? AND library_id = ? AND status = ?", id, libraryID, entities.BorrowingStatusActive).
		Updates(map[string]interface{}{
			"status":      entities.BorrowingStatusReturned,
			"return_date": at,
			"returned_by": returnedBy,
			"updated_at":  at,
		})
	return result.RowsAffected == 1, result.Error
}

// ExtendDueDate moves the due date of an active borrowing and bumps its renewal
// count. It only applies if nobody renewed since expectedRenewals was read.
func (r *Repository) ExtendDueDate(libraryID, id uint, expectedRenewals int, newDue time.Time) (bool, error) {
	result := r.db.Model(&entities.Borrowing{}).
		Where("id = ? AND library_id = ? AND status = ? AND renewal_count = ?",
			id, libraryID, entities.BorrowingStatusActive, expectedRenewals).
		Updates(map[string]interface{}{
			"due_date":      newDue,
			"renewal_count": gorm.Expr("renewal_count + 1"),
			"updated_at":    time.Now(),
		})
	return result.RowsAffected == 1, result.Error
}

func (r *Repository) borrowingQuery(libraryID uint, filter BorrowingFilter, now time.Time) *gorm.DB {
	query := r.db.Model(&entities.Borrowing{}).Where("borrowings.library_id = ?", libraryID)
	if filter.Status != "" {
		query = query.Where("borrowings.status = ?", filter.Status)
	}
	if filter.UserID > 0 {
		query = query.Where("borrowings.user_id = ?", filter.UserID)
	}
	if filter.BookID > 0 {
		query = query.Where("borrowings.book_id = ?", filter.BookID)
	}
	if filter.Overdue {
		query = query.Where("borrowings.status = ? AND borrowings.due_date < ?",
			entities.BorrowingStatusActive, entities.DateOnly(now))
	}
	if filter.Search != "" {
		pattern := "%" + filter.Search + "%"
		query = query.Joins("JOIN books ON books.id = borrowings.book_id").
			Joins("JOIN users ON users.id = borrowings.user_id").
			Where("books.title LIKE ? OR users.first_name LIKE ? OR users.last_name LIKE ? OR users.user_id LIKE ?",
				pattern, pattern, pattern, pattern)
	}
	return query
}

// ListBorrowings returns borrowings newest first, plus the total match count.
func (r *Repository) ListBorrowings(libraryID uint, filter BorrowingFilter, now time.Time) ([]entities.Borrowing, int64, error) {
	var total int64
	if err := r.borrowingQuery(libraryID, filter, now).Count(&total).Error; err != nil {
		return nil, 0, err
	}

	query := r.borrowingQuery(libraryID, filter, now).Preload("User").Preload("Book")
	if filter.Limit > 0 {
		query = query.Limit(filter.Limit).Offset(filter.Offset)
	}

	var list []entities.Borrowing
	err := query.Order("borrowings.issue_date DESC, borrowings.id DESC").Find(&list).Error
	return list, total, err
}

// ListOverdue returns active borrowings due before today. libraryID 0 means every library.
func (r *Repository) ListOverdue(libraryID uint, now time.Time) ([]entities.Borrowing, error) {
	query := r.db.Preload("User").Preload("Book").
		Where("status = ? AND due_date < ?", entities.BorrowingStatusActive, entities.DateOnly(now))
	if libraryID > 0 {
		query = query.Where("library_id = ?", libraryID)
	}
	var list []entities.Borrowing
	err := query.Order("due_date ASC").Find(&list).Error
	return list, err
}

func (r *Repository) CountActive(libraryID uint) (int64, error) {
	var count int64
	err := r.db.Model(&entities.Borrowing{}).
		Where("library_id = ? AND status = ?", libraryID, entities.BorrowingStatusActive).
		Count(&count).Error
	return count, err
}

func (r *Repository) CountOverdue(libraryID uint, now time.Time) (int64, error) {
	var count int64
	err := r.db.Model(&entities.Borrowing{}).
		Where("library_id = ? AND status = ? AND due_date < ?", libraryID, entities.BorrowingStatusActive, entities.DateOnly(now)).
		Count(&count).Error
	return count, err
}

// UserBorrowingStats counts a member's loans for the member profile page.
func (r *Repository) UserBorrowingStats(libraryID, userID uint, now time.Time) (total, active, overdue int64, err error) {
	base := func() *gorm.DB {
		return r.db.Model(&entities.Borrowing{}).Where("library_id = ? AND user_id = ?", libraryID, userID)
	}
	if err = base().Count(&total).Error; err != nil {
		return
	}
	if err = base().Where("status = ?", entities.BorrowingStatusActive).Count(&active).Error; err != nil {
		return
	}
	err = base().Where("status = ? AND due_date < ?", entities.BorrowingStatusActive, entities.DateOnly(now)).Count(&overdue).Error
	return
}

// DecrementAvailable takes one copy off the shelf. It reports false when none is left.
func (r *Repository) DecrementAvailable(libraryID, bookID uint) (bool, error) {
	result := r.db.Model(&entities.Book{}).
		Where("id = ? AND library_id = ? AND available_copies > 0", bookID, libraryID).
		Update("available_copies", gorm.Expr("available_copies - 1"))
	return result.RowsAffected == 1, result.Error
}

// IncrementAvailable puts one copy back, never exceeding total_copies.
func (r *Repository) IncrementAvailable(libraryID, bookID uint) (bool, error) {
	result := r.db.Model(&entities.Book{}).
		Where("id = ? AND library_id = ? AND available_copies < total_copies", bookID, libraryID).
		Update("available_copies", gorm.Expr("available_copies + 1"))
	return result.RowsAffected == 1, result.Error
}

func (r *Repository) GetReservation(libraryID, id uint) (*entities.Reservation, error) {
	var res entities.Reservation
	err := r.db.Preload("User").Preload("Book").
		Where("id = ? AND library_id = ?", id, libraryID).First(&res).Error
	if err != nil {
		return nil, err
	}
	return &res, nil
}

func (r *Repository) CreateReservation(res *entities.Reservation) error {
	return r.db.Create(res).Error
}

// TransitionReservation moves a reservation to status `to` if its current status
// may lead there. updates carries the extra columns to set alongside. It reports
// false when the reservation was not in a valid source status.
func (r *Repository) TransitionReservation(libraryID, id uint, to entities.ReservationStatus, updates map[string]interface{}) (bool, error) {
	values := map[string]interface{}{"status": to, "updated_at": time.Now()}
	for k, v := range updates {
		values[k] = v
	}

	result := r.db.Model(&entities.Reservation{}).
		Where("id = ? AND library_id = ? AND status IN ?", id, libraryID, entities.ReservationSources(to)).
		Updates(values)
	return result.RowsAffected == 1, result.Error
}

// LockOpenReservation finds the member's approved or borrowed reservation for a
// book, oldest first. Returns gorm.ErrRecordNotFound when there is none.
func (r *Repository) LockOpenReservation(libraryID, userID, bookID uint, statuses ...entities.ReservationStatus) (*entities.Reservation, error) {
	if len(statuses) == 0 {
		statuses = []entities.ReservationStatus{entities.ReservationStatusApproved, entities.ReservationStatusBorrowed}
	}
	var res entities.Reservation
	err := r.db.Clauses(clause.Locking{Strength: "UPDATE"}).
		Where("library_id = ? AND user_id = ? AND book_id = ? AND status IN ?", libraryID, userID, bookID, statuses).
		Order("created_at ASC, id ASC").
		First(&res).Error
	if err != nil {
		return nil, err
	}
	return &res, nil
}

// ListReservations returns reservations with pending first, then newest first.
func (r *Repository) ListReservations(libraryID uint, filter ReservationFilter) ([]entities.Reservation, int64, error) {
	query := r.db.Model(&entities.Reservation{}).Where("library_id = ?", libraryID)
	if filter.Status != "" {
		query = query.Where("status = ?", filter.Status)
	}
	if filter.UserID > 0 {
		query = query.Where("user_id = ?", filter.UserID)
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}
	if filter.Limit > 0 {
		query = query.Limit(filter.Limit).Offset(filter.Offset)
	}

	var list []entities.Reservation
	err := query.Preload("User").Preload("Book").
		Order("CASE WHEN status = 'pending' THEN 0 ELSE 1 END").
		Order("created_at DESC, id DESC").
		Find(&list).Error
	return list, total, err
}

// CountReservationsByStatus returns per-status reservation counts for a library.
func (r *Repository) CountReservationsByStatus(libraryID uint) (map[entities.ReservationStatus]int64, error) {
	var rows []struct {
		Status entities.ReservationStatus
		Count  int64
	}
	err := r.db.Model(&entities.Reservation{}).
		Select("status, COUNT(*) AS count").
		Where("library_id = ?", libraryID).
		Group("status").
		Scan(&rows).Error
	if err != nil {
		return nil, err
	}
	counts := make(map[entities.ReservationStatus]int64, len(rows))
	for _, row := range rows {
		counts[row.Status] = row.Count
	}
	return counts, nil
}

// FindBook loads a book into dest. Used to tell a missing book from an empty shelf.
func (r *Repository) FindBook(libraryID, bookID uint, dest *entities.Book) error {
	return r.db.Where("id = ? AND library_id = ?", bookID, libraryID).First(dest).Error
}
