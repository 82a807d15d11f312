package catalog

import (
	"bytes"
	"context"
	"errors"
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/mrlokans/librarydesk/internal/audit"
	"github.com/mrlokans/librarydesk/internal/covers"
	"github.com/mrlokans/librarydesk/internal/database/activity"
	"github.com/mrlokans/librarydesk/internal/database/books"
	"github.com/mrlokans/librarydesk/internal/database/categories"
	"github.com/mrlokans/librarydesk/internal/database/dbtest"
	"github.com/mrlokans/librarydesk/internal/entities"
	"github.com/mrlokans/librarydesk/internal/subscription"
	"github.com/mrlokans/librarydesk/internal/validation"
)

type planStub struct{ err error }

func (p planStub) CanAddBook(uint) error { return p.err }

var pngBytes = []byte("\x89PNG\r\n\x1a\n\x00\x00\x00\rIHDR-some-image-data")

type fixture struct {
	svc    *Service
	db     *gorm.DB
	covers *covers.Store
	lib    *entities.Library
}

func setup(t *testing.T, plan PlanChecker) fixture {
	db := dbtest.Open(t)
	store, err := covers.NewStore(t.TempDir(), 1<<20)
	require.NoError(t, err)

	auditor := audit.NewService(activity.NewRepository(db.DB))
	t.Cleanup(auditor.Wait)

	return fixture{
		svc:    NewService(books.NewRepository(db.DB), categories.NewRepository(db.DB), plan, store, auditor),
		db:     db.DB,
		covers: store,
		lib:    dbtest.Library(t, db.DB, "central"),
	}
}

func input(code string) BookInput {
	return BookInput{Code: code, Title: "Dune", Author: "Frank Herbert", TotalCopies: 2}
}

func (f fixture) coverFiles(t *testing.T) int {
	entries, err := os.ReadDir(f.covers.Dir())
	require.NoError(t, err)
	return len(entries)
}

func TestService_AddBook(t *testing.T) {
	ctx := context.Background()

	t.Run("creates with all copies available", func(t *testing.T) {
		f := setup(t, planStub{})
		book, err := f.svc.AddBook(ctx, f.lib.ID, 1, input("BK-1"), nil)
		require.NoError(t, err)
		assert.Equal(t, 2, book.AvailableCopies)
		assert.Nil(t, book.ISBN, "empty ISBN stored as NULL")
	})

	t.Run("duplicate book id", func(t *testing.T) {
		f := setup(t, planStub{})
		_, err := f.svc.AddBook(ctx, f.lib.ID, 1, input("BK-1"), nil)
		require.NoError(t, err)

		_, err = f.svc.AddBook(ctx, f.lib.ID, 1, input("BK-1"), bytes.NewReader(pngBytes))
		assert.ErrorIs(t, err, ErrDuplicateCode)
		assert.Zero(t, f.coverFiles(t), "no cover stored for a rejected book")
	})

	t.Run("same book id in another library", func(t *testing.T) {
		f := setup(t, planStub{})
		other := dbtest.Library(t, f.db, "other")
		_, err := f.svc.AddBook(ctx, f.lib.ID, 1, input("BK-1"), nil)
		require.NoError(t, err)
		_, err = f.svc.AddBook(ctx, other.ID, 1, input("BK-1"), nil)
		assert.NoError(t, err)
	})

	t.Run("duplicate isbn", func(t *testing.T) {
		f := setup(t, planStub{})
		in := input("BK-1")
		in.ISBN = "9780441013593"
		_, err := f.svc.AddBook(ctx, f.lib.ID, 1, in, nil)
		require.NoError(t, err)

		in.Code = "BK-2"
		_, err = f.svc.AddBook(ctx, f.lib.ID, 1, in, nil)
		assert.ErrorIs(t, err, ErrDuplicateISBN)
	})

	t.Run("validation", func(t *testing.T) {
		f := setup(t, planStub{})
		in := input("BK-1")
		in.Title = "  "
		_, err := f.svc.AddBook(ctx, f.lib.ID, 1, in, nil)
		var ve validation.Errors
		require.ErrorAs(t, err, &ve)
		assert.Equal(t, "Title is required", ve.First())

		in = input("BK-1")
		in.TotalCopies = -1
		_, err = f.svc.AddBook(ctx, f.lib.ID, 1, in, nil)
		assert.Equal(t, "Total copies must be at least 1", validation.Message(err))
	})

	t.Run("missing copies default to one", func(t *testing.T) {
		f := setup(t, planStub{})
		in := input("BK-1")
		in.TotalCopies = 0
		book, err := f.svc.AddBook(ctx, f.lib.ID, 1, in, nil)
		require.NoError(t, err)
		assert.Equal(t, 1, book.TotalCopies)
		assert.Equal(t, 1, book.AvailableCopies)
	})

	t.Run("plan limit", func(t *testing.T) {
		f := setup(t, planStub{err: subscription.ErrBookLimitReached})
		_, err := f.svc.AddBook(ctx, f.lib.ID, 1, input("BK-1"), nil)
		assert.ErrorIs(t, err, subscription.ErrBookLimitReached)
	})

	t.Run("cover upload", func(t *testing.T) {
		f := setup(t, planStub{})
		book, err := f.svc.AddBook(ctx, f.lib.ID, 1, input("BK-1"), bytes.NewReader(pngBytes))
		require.NoError(t, err)
		assert.NotEmpty(t, book.CoverImage)
		assert.Equal(t, 1, f.coverFiles(t))

		_, err = f.svc.AddBook(ctx, f.lib.ID, 1, input("BK-2"), bytes.NewReader([]byte("not an image")))
		assert.ErrorIs(t, err, covers.ErrUnsupportedType)
	})

	t.Run("unknown category", func(t *testing.T) {
		f := setup(t, planStub{})
		in := input("BK-1")
		in.CategoryID = 99
		_, err := f.svc.AddBook(ctx, f.lib.ID, 1, in, nil)
		assert.ErrorIs(t, err, ErrCategoryNotFound)
	})
}

func TestService_UpdateBook(t *testing.T) {
	ctx := context.Background()
	f := setup(t, planStub{})
	member := dbtest.Member(t, f.db, f.lib.ID)

	book, err := f.svc.AddBook(ctx, f.lib.ID, 1, input("BK-1"), bytes.NewReader(pngBytes))
	require.NoError(t, err)
	dbtest.Borrowing(t, f.db, f.lib.ID, member.ID, book, time.Now().AddDate(0, 0, 7))

	in := input("BK-1")
	in.TotalCopies = 5
	in.Title = "Dune Messiah"
	updated, err := f.svc.UpdateBook(ctx, f.lib.ID, 1, book.ID, in, bytes.NewReader(pngBytes))
	require.NoError(t, err)
	assert.Equal(t, "Dune Messiah", updated.Title)
	assert.Equal(t, 5, updated.TotalCopies)
	assert.Equal(t, 4, updated.AvailableCopies)
	assert.NotEqual(t, book.CoverImage, updated.CoverImage)
	assert.Equal(t, 1, f.coverFiles(t), "old cover removed")

	in.TotalCopies = 0
	_, err = f.svc.UpdateBook(ctx, f.lib.ID, 1, book.ID, in, nil)
	assert.Error(t, err)

	other, err := f.svc.AddBook(ctx, f.lib.ID, 1, input("BK-2"), nil)
	require.NoError(t, err)
	_, err = f.svc.UpdateBook(ctx, f.lib.ID, 1, other.ID, input("BK-1"), nil)
	assert.ErrorIs(t, err, ErrDuplicateCode)

	_, err = f.svc.UpdateBook(ctx, f.lib.ID+1, 1, book.ID, input("BK-9"), nil)
	assert.ErrorIs(t, err, ErrBookNotFound)
}

func TestService_UpdateBook_BelowLoaned(t *testing.T) {
	ctx := context.Background()
	f := setup(t, planStub{})
	member := dbtest.Member(t, f.db, f.lib.ID)

	book, err := f.svc.AddBook(ctx, f.lib.ID, 1, input("BK-1"), nil)
	require.NoError(t, err)
	dbtest.Borrowing(t, f.db, f.lib.ID, member.ID, book, time.Now())
	dbtest.Borrowing(t, f.db, f.lib.ID, member.ID, book, time.Now())

	in := input("BK-1")
	in.TotalCopies = 1
	_, err = f.svc.UpdateBook(ctx, f.lib.ID, 1, book.ID, in, nil)
	assert.ErrorIs(t, err, ErrCopiesBelowBorrowed)
}

func TestService_DeleteBook(t *testing.T) {
	ctx := context.Background()
	f := setup(t, planStub{})
	member := dbtest.Member(t, f.db, f.lib.ID)

	loaned, err := f.svc.AddBook(ctx, f.lib.ID, 1, input("BK-1"), nil)
	require.NoError(t, err)
	dbtest.Borrowing(t, f.db, f.lib.ID, member.ID, loaned, time.Now())
	assert.ErrorIs(t, f.svc.DeleteBook(ctx, f.lib.ID, 1, loaned.ID), ErrActiveBorrowings)

	reserved, err := f.svc.AddBook(ctx, f.lib.ID, 1, input("BK-3"), nil)
	require.NoError(t, err)
	pending := dbtest.Reservation(t, f.db, f.lib.ID, member.ID, reserved.ID, entities.ReservationStatusPending)
	assert.ErrorIs(t, f.svc.DeleteBook(ctx, f.lib.ID, 1, reserved.ID), ErrOpenReservations)

	require.NoError(t, f.db.Model(pending).Update("status", entities.ReservationStatusApproved).Error)
	assert.ErrorIs(t, f.svc.DeleteBook(ctx, f.lib.ID, 1, reserved.ID), ErrOpenReservations)

	require.NoError(t, f.db.Model(pending).Update("status", entities.ReservationStatusRejected).Error)
	assert.NoError(t, f.svc.DeleteBook(ctx, f.lib.ID, 1, reserved.ID), "closed reservations do not block")

	free, err := f.svc.AddBook(ctx, f.lib.ID, 1, input("BK-2"), bytes.NewReader(pngBytes))
	require.NoError(t, err)
	require.NoError(t, f.svc.DeleteBook(ctx, f.lib.ID, 1, free.ID))
	assert.Zero(t, f.coverFiles(t))

	_, err = f.svc.GetBook(f.lib.ID, free.ID)
	assert.ErrorIs(t, err, ErrBookNotFound)
}

func TestService_Categories(t *testing.T) {
	ctx := context.Background()
	f := setup(t, planStub{})
	other := dbtest.Library(t, f.db, "other")

	category, err := f.svc.AddCategory(ctx, f.lib.ID, 1, CategoryInput{Name: " Fiction "})
	require.NoError(t, err)
	assert.Equal(t, "Fiction", category.Name)

	_, err = f.svc.AddCategory(ctx, f.lib.ID, 1, CategoryInput{Name: "Fiction"})
	assert.ErrorIs(t, err, ErrCategoryExists)

	_, err = f.svc.AddCategory(ctx, other.ID, 1, CategoryInput{Name: "Fiction"})
	assert.NoError(t, err)

	_, err = f.svc.AddCategory(ctx, f.lib.ID, 1, CategoryInput{})
	assert.Equal(t, "Name is required", validation.Message(err))

	in := input("BK-1")
	in.CategoryID = category.ID
	book, err := f.svc.AddBook(ctx, f.lib.ID, 1, in, nil)
	require.NoError(t, err)
	assert.Equal(t, "Fiction", book.CategoryName())

	list, err := f.svc.ListCategories(f.lib.ID)
	require.NoError(t, err)
	assert.Len(t, list, 1)

	found, total, err := f.svc.SearchBooks(f.lib.ID, books.ListFilter{Search: "herbert"})
	require.NoError(t, err)
	assert.Equal(t, int64(1), total)
	assert.Equal(t, "Fiction", found[0].CategoryName())
}

func TestService_PlanErrorsPassThrough(t *testing.T) {
	boom := errors.New("db down")
	f := setup(t, planStub{err: boom})
	_, err := f.svc.AddBook(context.Background(), f.lib.ID, 1, input("BK-1"), nil)
	assert.ErrorIs(t, err, boom)
}
