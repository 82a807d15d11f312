package books

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/mrlokans/librarydesk/internal/database"
	"github.com/mrlokans/librarydesk/internal/database/dbtest"
	"github.com/mrlokans/librarydesk/internal/entities"
)

func strPtr(s string) *string { return &s }

func TestRepository_CodeUniquePerLibrary(t *testing.T) {
	db := dbtest.Open(t)
	repo := NewRepository(db.DB)
	libA := dbtest.Library(t, db.DB, "a")
	libB := dbtest.Library(t, db.DB, "b")

	require.NoError(t, repo.Create(&entities.Book{LibraryID: libA.ID, Code: "BK-1", Title: "T", Author: "A", TotalCopies: 1, AvailableCopies: 1}))
	require.NoError(t, repo.Create(&entities.Book{LibraryID: libB.ID, Code: "BK-1", Title: "T", Author: "A", TotalCopies: 1, AvailableCopies: 1}))

	err := repo.Create(&entities.Book{LibraryID: libA.ID, Code: "BK-1", Title: "T2", Author: "A", TotalCopies: 1, AvailableCopies: 1})
	require.Error(t, err)
	assert.True(t, database.IsUniqueViolation(err))

	exists, err := repo.ExistsCode(libA.ID, "BK-1", 0)
	require.NoError(t, err)
	assert.True(t, exists)

	exists, err = repo.ExistsCode(libA.ID, "BK-2", 0)
	require.NoError(t, err)
	assert.False(t, exists)
}

func TestRepository_ISBN(t *testing.T) {
	db := dbtest.Open(t)
	repo := NewRepository(db.DB)
	lib := dbtest.Library(t, db.DB, "a")

	first := &entities.Book{LibraryID: lib.ID, Code: "1", Title: "T", Author: "A", ISBN: strPtr("978-0"), TotalCopies: 1, AvailableCopies: 1}
	require.NoError(t, repo.Create(first))

	// books without an ISBN never collide
	require.NoError(t, repo.Create(&entities.Book{LibraryID: lib.ID, Code: "2", Title: "T", Author: "A", TotalCopies: 1, AvailableCopies: 1}))
	require.NoError(t, repo.Create(&entities.Book{LibraryID: lib.ID, Code: "3", Title: "T", Author: "A", TotalCopies: 1, AvailableCopies: 1}))

	exists, err := repo.ExistsISBN(lib.ID, "978-0", 0)
	require.NoError(t, err)
	assert.True(t, exists)

	exists, err = repo.ExistsISBN(lib.ID, "978-0", first.ID)
	require.NoError(t, err)
	assert.False(t, exists)
}

func TestRepository_UpdateAndDelete(t *testing.T) {
	db := dbtest.Open(t)
	repo := NewRepository(db.DB)
	lib := dbtest.Library(t, db.DB, "a")
	book := dbtest.Book(t, db.DB, lib.ID, "X", 2)

	book.Title = "Renamed"
	book.ISBN = nil
	require.NoError(t, repo.Update(book))

	got, err := repo.GetByID(lib.ID, book.ID)
	require.NoError(t, err)
	assert.Equal(t, "Renamed", got.Title)

	other := *book
	other.LibraryID = lib.ID + 1
	assert.ErrorIs(t, repo.Update(&other), gorm.ErrRecordNotFound)

	assert.ErrorIs(t, repo.Delete(lib.ID+1, book.ID), gorm.ErrRecordNotFound)
	require.NoError(t, repo.Delete(lib.ID, book.ID))
	_, err = repo.GetByID(lib.ID, book.ID)
	assert.ErrorIs(t, err, gorm.ErrRecordNotFound)
}

func TestRepository_ListAndStats(t *testing.T) {
	db := dbtest.Open(t)
	repo := NewRepository(db.DB)
	lib := dbtest.Library(t, db.DB, "a")
	member := dbtest.Member(t, db.DB, lib.ID)

	dune := dbtest.Book(t, db.DB, lib.ID, "D", 3)
	require.NoError(t, db.DB.Model(dune).Update("title", "Dune").Error)
	dbtest.Book(t, db.DB, lib.ID, "E", 1)
	dbtest.Borrowing(t, db.DB, lib.ID, member.ID, dune, time.Now().AddDate(0, 0, 14))

	books, total, err := repo.List(lib.ID, ListFilter{Search: "dune"})
	require.NoError(t, err)
	assert.Equal(t, int64(1), total)
	assert.Equal(t, dune.ID, books[0].ID)

	_, total, err = repo.List(lib.ID, ListFilter{})
	require.NoError(t, err)
	assert.Equal(t, int64(2), total)

	stats, err := repo.GetStats(lib.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(2), stats.Titles)
	assert.Equal(t, int64(4), stats.TotalCopies)
	assert.Equal(t, int64(3), stats.AvailableCopies)

	active, err := repo.CountActiveBorrowings(lib.ID, dune.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(1), active)
}
