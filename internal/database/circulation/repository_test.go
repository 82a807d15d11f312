package circulation

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/mrlokans/librarydesk/internal/database/dbtest"
	"github.com/mrlokans/librarydesk/internal/entities"
)

type fixture struct {
	repo   *Repository
	db     *gorm.DB
	lib    *entities.Library
	member *entities.User
	book   *entities.Book
}

func setup(t *testing.T, copies int) fixture {
	db := dbtest.Open(t)
	lib := dbtest.Library(t, db.DB, "central")
	return fixture{
		repo:   NewRepository(db.DB),
		db:     db.DB,
		lib:    lib,
		member: dbtest.Member(t, db.DB, lib.ID),
		book:   dbtest.Book(t, db.DB, lib.ID, "B-1", copies),
	}
}

func (f fixture) available(t *testing.T) int {
	var book entities.Book
	require.NoError(t, f.db.First(&book, f.book.ID).Error)
	return book.AvailableCopies
}

func TestRepository_AvailableCopiesBounds(t *testing.T) {
	f := setup(t, 1)

	ok, err := f.repo.IncrementAvailable(f.lib.ID, f.book.ID)
	require.NoError(t, err)
	assert.False(t, ok, "cannot exceed total copies")

	ok, err = f.repo.DecrementAvailable(f.lib.ID, f.book.ID)
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = f.repo.DecrementAvailable(f.lib.ID, f.book.ID)
	require.NoError(t, err)
	assert.False(t, ok, "cannot go below zero")
	assert.Equal(t, 0, f.available(t))

	ok, err = f.repo.IncrementAvailable(f.lib.ID, f.book.ID)
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, 1, f.available(t))
}

func TestRepository_MarkReturned_Once(t *testing.T) {
	f := setup(t, 2)
	b := dbtest.Borrowing(t, f.db, f.lib.ID, f.member.ID, f.book, time.Now().AddDate(0, 0, 3))

	ok, err := f.repo.MarkReturned(f.lib.ID, b.ID, 1, time.Now())
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = f.repo.MarkReturned(f.lib.ID, b.ID, 1, time.Now())
	require.NoError(t, err)
	assert.False(t, ok)

	got, err := f.repo.GetBorrowing(f.lib.ID, b.ID)
	require.NoError(t, err)
	assert.Equal(t, entities.BorrowingStatusReturned, got.Status)
	assert.NotNil(t, got.ReturnDate)
	require.NotNil(t, got.ReturnedBy)
	assert.Equal(t, uint(1), *got.ReturnedBy)
}

func TestRepository_ExtendDueDate(t *testing.T) {
	f := setup(t, 1)
	due := time.Now().AddDate(0, 0, 3)
	b := dbtest.Borrowing(t, f.db, f.lib.ID, f.member.ID, f.book, due)

	ok, err := f.repo.ExtendDueDate(f.lib.ID, b.ID, 0, due.AddDate(0, 0, 14))
	require.NoError(t, err)
	assert.True(t, ok)

	// stale renewal count loses
	ok, err = f.repo.ExtendDueDate(f.lib.ID, b.ID, 0, due.AddDate(0, 0, 28))
	require.NoError(t, err)
	assert.False(t, ok)

	got, err := f.repo.GetBorrowing(f.lib.ID, b.ID)
	require.NoError(t, err)
	assert.Equal(t, 1, got.RenewalCount)
	assert.Equal(t, due.AddDate(0, 0, 14).Unix(), got.DueDate.Unix())
}

func TestRepository_TransitionReservation(t *testing.T) {
	f := setup(t, 1)
	res := dbtest.Reservation(t, f.db, f.lib.ID, f.member.ID, f.book.ID, entities.ReservationStatusPending)

	ok, err := f.repo.TransitionReservation(f.lib.ID, res.ID, entities.ReservationStatusApproved, map[string]interface{}{"notes": "ok"})
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = f.repo.TransitionReservation(f.lib.ID, res.ID, entities.ReservationStatusApproved, nil)
	require.NoError(t, err)
	assert.False(t, ok, "approved cannot be approved again")

	ok, err = f.repo.TransitionReservation(f.lib.ID, res.ID, entities.ReservationStatusRejected, nil)
	require.NoError(t, err)
	assert.False(t, ok)

	ok, err = f.repo.TransitionReservation(f.lib.ID+1, res.ID, entities.ReservationStatusFulfilled, nil)
	require.NoError(t, err)
	assert.False(t, ok, "other library")

	got, err := f.repo.GetReservation(f.lib.ID, res.ID)
	require.NoError(t, err)
	assert.Equal(t, entities.ReservationStatusApproved, got.Status)
	assert.Equal(t, "ok", got.Notes)
}

func TestRepository_LockOpenReservation(t *testing.T) {
	f := setup(t, 1)
	dbtest.Reservation(t, f.db, f.lib.ID, f.member.ID, f.book.ID, entities.ReservationStatusRejected)

	_, err := f.repo.LockOpenReservation(f.lib.ID, f.member.ID, f.book.ID)
	assert.ErrorIs(t, err, gorm.ErrRecordNotFound)

	approved := dbtest.Reservation(t, f.db, f.lib.ID, f.member.ID, f.book.ID, entities.ReservationStatusApproved)
	err = f.repo.WithTx(func(tx *Repository) error {
		res, err := tx.LockOpenReservation(f.lib.ID, f.member.ID, f.book.ID)
		if err != nil {
			return err
		}
		assert.Equal(t, approved.ID, res.ID)
		return nil
	})
	require.NoError(t, err)
}

func TestRepository_ListAndCounts(t *testing.T) {
	f := setup(t, 3)
	now := time.Now()
	dbtest.Borrowing(t, f.db, f.lib.ID, f.member.ID, f.book, now.AddDate(0, 0, -2))
	dbtest.Borrowing(t, f.db, f.lib.ID, f.member.ID, f.book, now.AddDate(0, 0, 5))
	dbtest.Reservation(t, f.db, f.lib.ID, f.member.ID, f.book.ID, entities.ReservationStatusApproved)
	pending := dbtest.Reservation(t, f.db, f.lib.ID, f.member.ID, f.book.ID, entities.ReservationStatusPending)

	list, total, err := f.repo.ListBorrowings(f.lib.ID, BorrowingFilter{}, now)
	require.NoError(t, err)
	assert.Equal(t, int64(2), total)
	assert.Len(t, list, 2)
	assert.Equal(t, f.book.Title, list[0].Book.Title)

	_, total, err = f.repo.ListBorrowings(f.lib.ID, BorrowingFilter{Overdue: true}, now)
	require.NoError(t, err)
	assert.Equal(t, int64(1), total)

	_, total, err = f.repo.ListBorrowings(f.lib.ID, BorrowingFilter{Search: f.member.Code.String()}, now)
	require.NoError(t, err)
	assert.Equal(t, int64(2), total)

	overdue, err := f.repo.ListOverdue(0, now)
	require.NoError(t, err)
	assert.Len(t, overdue, 1)

	active, err := f.repo.CountActive(f.lib.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(2), active)

	count, err := f.repo.CountOverdue(f.lib.ID, now)
	require.NoError(t, err)
	assert.Equal(t, int64(1), count)

	totalLoans, activeLoans, overdueLoans, err := f.repo.UserBorrowingStats(f.lib.ID, f.member.ID, now)
	require.NoError(t, err)
	assert.Equal(t, []int64{2, 2, 1}, []int64{totalLoans, activeLoans, overdueLoans})

	reservations, _, err := f.repo.ListReservations(f.lib.ID, ReservationFilter{})
	require.NoError(t, err)
	require.Len(t, reservations, 2)
	assert.Equal(t, pending.ID, reservations[0].ID, "pending listed first")

	byStatus, err := f.repo.CountReservationsByStatus(f.lib.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(1), byStatus[entities.ReservationStatusPending])
	assert.Equal(t, int64(1), byStatus[entities.ReservationStatusApproved])
}
