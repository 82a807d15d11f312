// Package catalog manages a library's books and categories.
package catalog

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/mrlokans/librarydesk/internal/audit"
	"github.com/mrlokans/librarydesk/internal/database"
	"github.com/mrlokans/librarydesk/internal/database/books"
	"github.com/mrlokans/librarydesk/internal/database/categories"
	"github.com/mrlokans/librarydesk/internal/entities"
	"github.com/mrlokans/librarydesk/internal/logging"
	"github.com/mrlokans/librarydesk/internal/metrics"
	"github.com/mrlokans/librarydesk/internal/validation"
)

var (
	ErrDuplicateCode       = errors.New("a book with this ID already exists")
	ErrDuplicateISBN       = errors.New("a book with this ISBN already exists")
	ErrBookNotFound        = errors.New("book not found")
	ErrCategoryNotFound    = errors.New("category not found")
	ErrCategoryExists      = errors.New("category already exists")
	ErrActiveBorrowings    = errors.New("book has active borrowings")
	ErrOpenReservations    = errors.New("book has open reservations")
	ErrCopiesBelowBorrowed = errors.New("total copies cannot be lower than copies on loan")
)

// PlanChecker enforces subscription limits.
type PlanChecker interface {
	CanAddBook(libraryID uint) error
}

// CoverStore persists uploaded cover images.
type CoverStore interface {
	Save(r io.Reader) (string, error)
	Remove(name string) error
}

// Auditor records librarian activity.
type Auditor interface {
	LogAsync(ctx context.Context, entry audit.Entry)
	LogBook(ctx context.Context, libraryID, userID uint, action string, book *entities.Book)
}

// BookInput carries the editable fields of a book.
type BookInput struct {
	Code            string `form:"book_id" json:"book_id" validate:"required,max=50"`
	Title           string `form:"title" json:"title" validate:"required,max=512"`
	Author          string `form:"author" json:"author" validate:"required,max=256"`
	ISBN            string `form:"isbn" json:"isbn" validate:"max=20"`
	CategoryID      uint   `form:"category_id" json:"category_id"`
	Publisher       string `form:"publisher" json:"publisher" validate:"max=256"`
	PublicationYear int    `form:"publication_year" json:"publication_year" validate:"min=0,max=9999"`
	Description     string `form:"description" json:"description"`
	Location        string `form:"location" json:"location" validate:"max=100"`
	TotalCopies     int    `form:"total_copies" json:"total_copies" validate:"min=1"`
}

func (in *BookInput) normalize() {
	in.Code = strings.TrimSpace(in.Code)
	in.Title = strings.TrimSpace(in.Title)
	in.Author = strings.TrimSpace(in.Author)
	in.ISBN = strings.TrimSpace(in.ISBN)
	in.Publisher = strings.TrimSpace(in.Publisher)
	in.Location = strings.TrimSpace(in.Location)
}

type Service struct {
	books      *books.Repository
	categories *categories.Repository
	plans      PlanChecker
	covers     CoverStore
	auditor    Auditor
}

func NewService(bookRepo *books.Repository, categoryRepo *categories.Repository, plans PlanChecker, covers CoverStore, auditor Auditor) *Service {
	return &Service{books: bookRepo, categories: categoryRepo, plans: plans, covers: covers, auditor: auditor}
}

// AddBook creates a book after checking the plan limit and uniqueness of
// book_id and ISBN. A book without total_copies gets one copy. cover may be nil. A stored cover is removed again if the
// book cannot be saved.
func (s *Service) AddBook(ctx context.Context, libraryID, librarianID uint, in BookInput, cover io.Reader) (*entities.Book, error) {
	if err := s.plans.CanAddBook(libraryID); err != nil {
		return nil, err
	}

	in.normalize()
	if in.TotalCopies == 0 {
		in.TotalCopies = 1
	}
	if err := validation.Struct(in); err != nil {
		return nil, err
	}
	if err := s.checkUnique(libraryID, in, 0); err != nil {
		return nil, err
	}

	book := &entities.Book{
		LibraryID:       libraryID,
		TotalCopies:     in.TotalCopies,
		AvailableCopies: in.TotalCopies,
	}
	if err := s.apply(libraryID, book, in); err != nil {
		return nil, err
	}

	if cover != nil {
		name, err := s.covers.Save(cover)
		if err != nil {
			return nil, err
		}
		book.CoverImage = name
	}

	if err := s.books.Create(book); err != nil {
		s.discardCover(ctx, book.CoverImage)
		if database.IsUniqueViolation(err) {
			return nil, s.uniqueCause(libraryID, in)
		}
		return nil, fmt.Errorf("failed to create book: %w", err)
	}

	metrics.BooksAdded.Inc()
	s.auditor.LogBook(ctx, libraryID, librarianID, entities.ActivityBookAdded, book)
	return book, nil
}

// UpdateBook edits a book. Changing total copies shifts available copies by the
// same amount and may not drop below the copies currently on loan.
func (s *Service) UpdateBook(ctx context.Context, libraryID, librarianID, id uint, in BookInput, cover io.Reader) (*entities.Book, error) {
	book, err := s.GetBook(libraryID, id)
	if err != nil {
		return nil, err
	}

	in.normalize()
	if err := validation.Struct(in); err != nil {
		return nil, err
	}
	if err := s.checkUnique(libraryID, in, id); err != nil {
		return nil, err
	}

	onLoan := book.TotalCopies - book.AvailableCopies
	if in.TotalCopies < onLoan {
		return nil, ErrCopiesBelowBorrowed
	}
	book.AvailableCopies = in.TotalCopies - onLoan
	book.TotalCopies = in.TotalCopies
	if err := s.apply(libraryID, book, in); err != nil {
		return nil, err
	}

	oldCover := book.CoverImage
	if cover != nil {
		name, err := s.covers.Save(cover)
		if err != nil {
			return nil, err
		}
		book.CoverImage = name
	}

	if err := s.books.Update(book); err != nil {
		if book.CoverImage != oldCover {
			s.discardCover(ctx, book.CoverImage)
		}
		if database.IsUniqueViolation(err) {
			return nil, s.uniqueCause(libraryID, in)
		}
		return nil, fmt.Errorf("failed to update book: %w", err)
	}
	if book.CoverImage != oldCover {
		s.discardCover(ctx, oldCover)
	}

	s.auditor.LogBook(ctx, libraryID, librarianID, entities.ActivityBookUpdated, book)
	return book, nil
}

// DeleteBook removes a book that nobody has on loan or waiting on a reservation.
func (s *Service) DeleteBook(ctx context.Context, libraryID, librarianID, id uint) error {
	book, err := s.GetBook(libraryID, id)
	if err != nil {
		return err
	}

	active, err := s.books.CountActiveBorrowings(libraryID, id)
	if err != nil {
		return fmt.Errorf("failed to count borrowings: %w", err)
	}
	if active > 0 {
		return ErrActiveBorrowings
	}
	reserved, err := s.books.CountOpenReservations(libraryID, id)
	if err != nil {
		return fmt.Errorf("failed to count reservations: %w", err)
	}
	if reserved > 0 {
		return ErrOpenReservations
	}

	if err := s.books.Delete(libraryID, id); err != nil {
		if database.IsNotFound(err) {
			return ErrBookNotFound
		}
		return fmt.Errorf("failed to delete book: %w", err)
	}
	s.discardCover(ctx, book.CoverImage)

	s.auditor.LogBook(ctx, libraryID, librarianID, entities.ActivityBookDeleted, book)
	return nil
}

func (s *Service) GetBook(libraryID, id uint) (*entities.Book, error) {
	book, err := s.books.GetByID(libraryID, id)
	if database.IsNotFound(err) {
		return nil, ErrBookNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load book: %w", err)
	}
	return book, nil
}

// SearchBooks matches title, author, ISBN or book_id.
func (s *Service) SearchBooks(libraryID uint, filter books.ListFilter) ([]entities.Book, int64, error) {
	return s.books.List(libraryID, filter)
}

func (s *Service) Stats(libraryID uint) (books.Stats, error) {
	return s.books.GetStats(libraryID)
}

// AddCategory creates a category. Names are unique per library.
func (s *Service) AddCategory(ctx context.Context, libraryID, librarianID uint, in CategoryInput) (*entities.Category, error) {
	in.Name = strings.TrimSpace(in.Name)
	in.Description = strings.TrimSpace(in.Description)
	if err := validation.Struct(in); err != nil {
		return nil, err
	}

	if _, err := s.categories.GetByName(libraryID, in.Name); err == nil {
		return nil, ErrCategoryExists
	} else if !database.IsNotFound(err) {
		return nil, fmt.Errorf("failed to check category: %w", err)
	}

	category := &entities.Category{LibraryID: libraryID, Name: in.Name, Description: in.Description}
	if err := s.categories.Create(category); err != nil {
		if database.IsUniqueViolation(err) {
			return nil, ErrCategoryExists
		}
		return nil, fmt.Errorf("failed to create category: %w", err)
	}

	s.auditor.LogAsync(ctx, audit.Entry{
		LibraryID:   libraryID,
		UserID:      librarianID,
		Action:      entities.ActivityCategoryAdded,
		Description: "Added category: " + category.Name,
		EntityType:  "category",
		EntityID:    category.ID,
	})
	return category, nil
}

// CategoryInput carries a new category.
type CategoryInput struct {
	Name        string `form:"name" json:"name" validate:"required,max=100"`
	Description string `form:"description" json:"description" validate:"max=500"`
}

func (s *Service) ListCategories(libraryID uint) ([]entities.Category, error) {
	return s.categories.List(libraryID)
}

func (s *Service) apply(libraryID uint, book *entities.Book, in BookInput) error {
	book.Code = in.Code
	book.Title = in.Title
	book.Author = in.Author
	book.Publisher = in.Publisher
	book.PublicationYear = in.PublicationYear
	book.Description = in.Description
	book.Location = in.Location

	book.ISBN = nil
	if in.ISBN != "" {
		isbn := in.ISBN
		book.ISBN = &isbn
	}

	book.CategoryID = nil
	book.Category = nil
	if in.CategoryID > 0 {
		category, err := s.categories.GetByID(libraryID, in.CategoryID)
		if database.IsNotFound(err) {
			return ErrCategoryNotFound
		}
		if err != nil {
			return fmt.Errorf("failed to load category: %w", err)
		}
		book.CategoryID = &category.ID
		book.Category = category
	}
	return nil
}

func (s *Service) checkUnique(libraryID uint, in BookInput, excludeID uint) error {
	exists, err := s.books.ExistsCode(libraryID, in.Code, excludeID)
	if err != nil {
		return fmt.Errorf("failed to check book id: %w", err)
	}
	if exists {
		return ErrDuplicateCode
	}
	if in.ISBN == "" {
		return nil
	}
	exists, err = s.books.ExistsISBN(libraryID, in.ISBN, excludeID)
	if err != nil {
		return fmt.Errorf("failed to check isbn: %w", err)
	}
	if exists {
		return ErrDuplicateISBN
	}
	return nil
}

// uniqueCause tells which unique index a racing insert hit.
func (s *Service) uniqueCause(libraryID uint, in BookInput) error {
	if in.ISBN != "" {
		if exists, _ := s.books.ExistsISBN(libraryID, in.ISBN, 0); exists {
			if codeTaken, _ := s.books.ExistsCode(libraryID, in.Code, 0); !codeTaken {
				return ErrDuplicateISBN
			}
		}
	}
	return ErrDuplicateCode
}

func (s *Service) discardCover(ctx context.Context, name string) {
	if name == "" {
		return
	}
	if err := s.covers.Remove(name); err != nil {
		logging.Ctx(ctx).Warn().Err(err).Str("cover", name).Msg("failed to remove cover image")
	}
}
