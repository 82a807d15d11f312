// Package dbtest builds throwaway databases and fixtures for package tests.
package dbtest

import (
	"fmt"
	"path/filepath"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/mrlokans/librarydesk/internal/database"
	"github.com/mrlokans/librarydesk/internal/entities"
)

var seq atomic.Uint64

// Open creates a migrated database in a temp directory that is removed after the test.
func Open(t testing.TB) *database.Database {
	t.Helper()

	db, err := database.NewDatabase(filepath.Join(t.TempDir(), "test.db"))
	require.NoError(t, err)

	t.Cleanup(func() {
		_ = db.Close()
	})
	return db
}

// Library creates a library with an active premium subscription.
func Library(t testing.TB, db *gorm.DB, name string) *entities.Library {
	t.Helper()

	lib := &entities.Library{Name: name, Email: "desk@" + name + ".test"}
	require.NoError(t, db.Create(lib).Error)

	sub := &entities.Subscription{
		LibraryID: lib.ID,
		Plan:      entities.SubscriptionPlanPremium,
		Status:    entities.SubscriptionStatusActive,
		StartsAt:  time.Now().Add(-24 * time.Hour),
	}
	require.NoError(t, db.Create(sub).Error)
	return lib
}

// User creates a user with the given role and status in libraryID.
func User(t testing.TB, db *gorm.DB, libraryID uint, role entities.UserRole, status entities.UserStatus) *entities.User {
	t.Helper()

	n := seq.Add(1)
	prefix := "MEM"
	if role == entities.UserRoleLibrarian {
		prefix = "LIB"
	}
	user := &entities.User{
		Code:      entities.UserCode(fmt.Sprintf("%s-%04d", prefix, n)),
		LibraryID: libraryID,
		FirstName: "User",
		LastName:  fmt.Sprintf("%d", n),
		Email:     fmt.Sprintf("user%d@example.com", n),
		Role:      role,
		Status:    status,
	}
	require.NoError(t, db.Create(user).Error)
	return user
}

// Member creates an active member.
func Member(t testing.TB, db *gorm.DB, libraryID uint) *entities.User {
	t.Helper()
	return User(t, db, libraryID, entities.UserRoleMember, entities.UserStatusActive)
}

// Librarian creates an active librarian.
func Librarian(t testing.TB, db *gorm.DB, libraryID uint) *entities.User {
	t.Helper()
	return User(t, db, libraryID, entities.UserRoleLibrarian, entities.UserStatusActive)
}

// Book creates a book with all copies available.
func Book(t testing.TB, db *gorm.DB, libraryID uint, code string, copies int) *entities.Book {
	t.Helper()

	book := &entities.Book{
		LibraryID:       libraryID,
		Code:            code,
		Title:           "Title " + code,
		Author:          "Author " + code,
		TotalCopies:     copies,
		AvailableCopies: copies,
	}
	require.NoError(t, db.Create(book).Error)
	return book
}

// Borrowing creates an active loan and takes one copy off the shelf.
func Borrowing(t testing.TB, db *gorm.DB, libraryID, userID uint, book *entities.Book, due time.Time) *entities.Borrowing {
	t.Helper()

	b := &entities.Borrowing{
		LibraryID: libraryID,
		UserID:    userID,
		BookID:    book.ID,
		IssueDate: due.AddDate(0, 0, -14),
		DueDate:   due,
		Status:    entities.BorrowingStatusActive,
	}
	require.NoError(t, db.Create(b).Error)
	require.NoError(t, db.Model(&entities.Book{}).Where("id = ?", book.ID).
		Update("available_copies", gorm.Expr("available_copies - 1")).Error)
	return b
}

// Reservation creates a reservation in the given status.
func Reservation(t testing.TB, db *gorm.DB, libraryID, userID, bookID uint, status entities.ReservationStatus) *entities.Reservation {
	t.Helper()

	r := &entities.Reservation{
		LibraryID: libraryID,
		UserID:    userID,
		BookID:    bookID,
		Status:    status,
	}
	require.NoError(t, db.Create(r).Error)
	return r
}
