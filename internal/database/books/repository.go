// Package books provides database operations for a library's catalog.
//
// Every method takes the owning library so one tenant can never read or
// modify another tenant's books.
//
// # Usage
//
//	repo := books.NewRepository(db)
//	book, err := repo.GetByID(libraryID, 123)
package books

import (
	"strings"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/mrlokans/librarydesk/internal/entities"
)

// Repository handles book database operations.
type Repository struct {
	db *gorm.DB
}

// NewRepository creates a new books repository.
func NewRepository(db *gorm.DB) *Repository {
	return &Repository{db: db}
}

// ListFilter narrows List results.
type ListFilter struct {
	Search     string
	CategoryID uint
	Available  bool
	Limit      int
	Offset     int
}

// Stats summarises a library's catalog for the dashboard.
type Stats struct {
	Titles          int64
	TotalCopies     int64
	AvailableCopies int64
}

func (r *Repository) Create(book *entities.Book) error {
	return r.db.Omit(clause.Associations).Create(book).Error
}

// GetByID retrieves a book with its category.
func (r *Repository) GetByID(libraryID, id uint) (*entities.Book, error) {
	var book entities.Book
	err := r.db.Preload("Category").Where("id = ? AND library_id = ?", id, libraryID).First(&book).Error
	if err != nil {
		return nil, err
	}
	return &book, nil
}

// GetByCode retrieves a book by its library-assigned book_id.
func (r *Repository) GetByCode(libraryID uint, code string) (*entities.Book, error) {
	var book entities.Book
	err := r.db.Preload("Category").Where("book_id = ? AND library_id = ?", code, libraryID).First(&book).Error
	if err != nil {
		return nil, err
	}
	return &book, nil
}

// ExistsCode reports whether another book in the library already uses code.
func (r *Repository) ExistsCode(libraryID uint, code string, excludeID uint) (bool, error) {
	return r.exists(libraryID, "book_id = ?", code, excludeID)
}

// ExistsISBN reports whether another book in the library already uses isbn.
func (r *Repository) ExistsISBN(libraryID uint, isbn string, excludeID uint) (bool, error) {
	return r.exists(libraryID, "isbn = ?", isbn, excludeID)
}

func (r *Repository) exists(libraryID uint, cond string, value interface{}, excludeID uint) (bool, error) {
	query := r.db.Model(&entities.Book{}).Where("library_id = ?", libraryID).Where(cond, value)
	if excludeID > 0 {
		query = query.Where("id <> ?", excludeID)
	}
	var count int64
	if err := query.Count(&count).Error; err != nil {
		return false, err
	}
	return count > 0, nil
}

// Update saves all editable fields of book.
func (r *Repository) Update(book *entities.Book) error {
	result := r.db.Model(&entities.Book{}).
		Where("id = ? AND library_id = ?", book.ID, book.LibraryID).
		Omit(clause.Associations).
		Select("book_id", "title", "author", "category_id", "isbn", "publisher", "publication_year",
			"description", "location", "total_copies", "available_copies", "cover_image", "updated_at").
		Updates(book)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}

// Delete removes a book from the library.
func (r *Repository) Delete(libraryID, id uint) error {
	result := r.db.Where("id = ? AND library_id = ?", id, libraryID).Delete(&entities.Book{})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}

// CountOpenReservations counts reservations of the book that are still
// pending, approved or out on loan.
func (r *Repository) CountOpenReservations(libraryID, bookID uint) (int64, error) {
	var count int64
	err := r.db.Model(&entities.Reservation{}).
		Where("library_id = ? AND book_id = ? AND status IN ?", libraryID, bookID, []entities.ReservationStatus{
			entities.ReservationStatusPending,
			entities.ReservationStatusApproved,
			entities.ReservationStatusBorrowed,
		}).
		Count(&count).Error
	return count, err
}

// Count returns the number of titles in the library.
func (r *Repository) Count(libraryID uint) (int64, error) {
	var count int64
	err := r.db.Model(&entities.Book{}).Where("library_id = ?", libraryID).Count(&count).Error
	return count, err
}

// List returns books ordered by title, plus the total match count.
func (r *Repository) List(libraryID uint, filter ListFilter) ([]entities.Book, int64, error) {
	query := r.db.Model(&entities.Book{}).Where("library_id = ?", libraryID)
	if s := strings.TrimSpace(filter.Search); s != "" {
		pattern := "%" + s + "%"
		query = query.Where("LOWER(title) LIKE LOWER(?) OR LOWER(author) LIKE LOWER(?) OR isbn LIKE ? OR book_id LIKE ?",
			pattern, pattern, pattern, pattern)
	}
	if filter.CategoryID > 0 {
		query = query.Where("category_id = ?", filter.CategoryID)
	}
	if filter.Available {
		query = query.Where("available_copies > 0")
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	if filter.Limit > 0 {
		query = query.Limit(filter.Limit).Offset(filter.Offset)
	}

	var books []entities.Book
	err := query.Preload("Category").Order("title ASC, id ASC").Find(&books).Error
	return books, total, err
}

// GetStats returns catalog totals for a library.
func (r *Repository) GetStats(libraryID uint) (Stats, error) {
	var stats Stats
	err := r.db.Model(&entities.Book{}).
		Select("COUNT(*) AS titles, COALESCE(SUM(total_copies), 0) AS total_copies, COALESCE(SUM(available_copies), 0) AS available_copies").
		Where("library_id = ?", libraryID).
		Scan(&stats).Error
	return stats, err
}

// CountActiveBorrowings returns how many copies of a book are currently on loan.
func (r *Repository) CountActiveBorrowings(libraryID, bookID uint) (int64, error) {
	var count int64
	err := r.db.Model(&entities.Borrowing{}).
		Where("library_id = ? AND book_id = ? AND status = ?", libraryID, bookID, entities.BorrowingStatusActive).
		Count(&count).Error
	return count, err
}
