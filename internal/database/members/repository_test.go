package members

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/mrlokans/librarydesk/internal/database/dbtest"
	"github.com/mrlokans/librarydesk/internal/entities"
)

func setup(t *testing.T) (*Repository, *gorm.DB, *entities.Library) {
	db := dbtest.Open(t)
	lib := dbtest.Library(t, db.DB, "central")
	return NewRepository(db.DB), db.DB, lib
}

func TestRepository_GetByID_ScopedToLibrary(t *testing.T) {
	repo, db, lib := setup(t)
	other := dbtest.Library(t, db, "other")
	member := dbtest.Member(t, db, lib.ID)

	got, err := repo.GetByID(lib.ID, member.ID)
	require.NoError(t, err)
	assert.Equal(t, member.Code, got.Code)

	_, err = repo.GetByID(other.ID, member.ID)
	assert.ErrorIs(t, err, gorm.ErrRecordNotFound)
}

func TestRepository_List(t *testing.T) {
	repo, db, lib := setup(t)

	alice := dbtest.Member(t, db, lib.ID)
	require.NoError(t, db.Model(alice).Update("first_name", "Alice").Error)
	dbtest.User(t, db, lib.ID, entities.UserRoleMember, entities.UserStatusPending)
	dbtest.Librarian(t, db, lib.ID)

	t.Run("by role", func(t *testing.T) {
		users, total, err := repo.List(lib.ID, ListFilter{Role: entities.UserRoleMember})
		require.NoError(t, err)
		assert.Equal(t, int64(2), total)
		assert.Len(t, users, 2)
	})

	t.Run("by status", func(t *testing.T) {
		_, total, err := repo.List(lib.ID, ListFilter{Role: entities.UserRoleMember, Status: entities.UserStatusPending})
		require.NoError(t, err)
		assert.Equal(t, int64(1), total)
	})

	t.Run("search", func(t *testing.T) {
		users, total, err := repo.List(lib.ID, ListFilter{Search: "alic"})
		require.NoError(t, err)
		assert.Equal(t, int64(1), total)
		assert.Equal(t, alice.ID, users[0].ID)
	})

	t.Run("counts", func(t *testing.T) {
		counts, err := repo.CountByStatus(lib.ID)
		require.NoError(t, err)
		assert.Equal(t, int64(1), counts[entities.UserStatusActive])
		assert.Equal(t, int64(1), counts[entities.UserStatusPending])
	})
}

func TestRepository_NamesByCode(t *testing.T) {
	repo, db, lib := setup(t)
	member := dbtest.Member(t, db, lib.ID)

	names, err := repo.NamesByCode(lib.ID, []entities.UserCode{member.Code, "missing"})
	require.NoError(t, err)
	assert.Equal(t, member.FullName(), names[member.Code])
	assert.NotContains(t, names, entities.UserCode("missing"))
}

func TestRepository_UpdateSetupToken(t *testing.T) {
	repo, db, lib := setup(t)
	pending := dbtest.User(t, db, lib.ID, entities.UserRoleMember, entities.UserStatusPending)

	expires := time.Now().Add(72 * time.Hour)
	require.NoError(t, repo.UpdateSetupToken(lib.ID, pending.ID, "abc123", expires))

	got, err := repo.GetBySetupTokenHash("abc123")
	require.NoError(t, err)
	assert.Equal(t, pending.ID, got.ID)
	require.NotNil(t, got.SetupTokenExpiresAt)

	assert.ErrorIs(t, repo.UpdateSetupToken(lib.ID+100, pending.ID, "x", expires), gorm.ErrRecordNotFound)
}

func TestRepository_Activate(t *testing.T) {
	repo, db, lib := setup(t)
	pending := dbtest.User(t, db, lib.ID, entities.UserRoleMember, entities.UserStatusPending)
	require.NoError(t, repo.UpdateSetupToken(lib.ID, pending.ID, "tok", time.Now().Add(time.Hour)))

	ok, err := repo.Activate(pending.ID, "bcrypt-hash")
	require.NoError(t, err)
	assert.True(t, ok)

	got, err := repo.FindByID(pending.ID)
	require.NoError(t, err)
	assert.Equal(t, entities.UserStatusActive, got.Status)
	assert.Equal(t, "bcrypt-hash", got.PasswordHash)
	assert.Empty(t, got.SetupTokenHash)
	assert.Nil(t, got.SetupTokenExpiresAt)

	ok, err = repo.Activate(pending.ID, "other")
	require.NoError(t, err)
	assert.False(t, ok, "second activation must not overwrite the password")
}

func TestRepository_RecordFailedLogin_Locks(t *testing.T) {
	repo, db, lib := setup(t)
	user := dbtest.Librarian(t, db, lib.ID)

	require.NoError(t, repo.RecordFailedLogin(user.ID, 2, time.Minute))
	got, err := repo.FindByID(user.ID)
	require.NoError(t, err)
	assert.Equal(t, 1, got.FailedLoginCount)
	assert.Nil(t, got.LockedUntil)

	require.NoError(t, repo.RecordFailedLogin(user.ID, 2, time.Minute))
	got, err = repo.FindByID(user.ID)
	require.NoError(t, err)
	require.NotNil(t, got.LockedUntil)
	assert.True(t, got.LockedUntil.After(time.Now()))

	require.NoError(t, repo.RecordLogin(user.ID, time.Now()))
	got, err = repo.FindByID(user.ID)
	require.NoError(t, err)
	assert.Nil(t, got.LockedUntil)
	assert.NotNil(t, got.LastLoginAt)
}

func TestRepository_Delete(t *testing.T) {
	t.Run("removes dependents", func(t *testing.T) {
		repo, db, lib := setup(t)
		member := dbtest.Member(t, db, lib.ID)
		book := dbtest.Book(t, db, lib.ID, "B-1", 1)

		require.NoError(t, db.Create(&entities.Attendance{LibraryID: lib.ID, UserID: member.ID, Date: "2024-05-01"}).Error)
		require.NoError(t, db.Create(&entities.Notification{LibraryID: lib.ID, UserCode: member.Code, Type: entities.NotificationTypeSystem, Title: "Hi"}).Error)
		dbtest.Reservation(t, db, lib.ID, member.ID, book.ID, entities.ReservationStatusPending)
		rejected := dbtest.Reservation(t, db, lib.ID, member.ID, book.ID, entities.ReservationStatusRejected)

		require.NoError(t, repo.Delete(lib.ID, member.ID))

		var count int64
		db.Model(&entities.User{}).Where("id = ?", member.ID).Count(&count)
		assert.Zero(t, count)
		db.Model(&entities.Attendance{}).Count(&count)
		assert.Zero(t, count)
		db.Model(&entities.Notification{}).Count(&count)
		assert.Zero(t, count)

		var remaining []entities.Reservation
		require.NoError(t, db.Find(&remaining).Error)
		require.Len(t, remaining, 1)
		assert.Equal(t, rejected.ID, remaining[0].ID)
	})

	t.Run("refuses with active borrowings", func(t *testing.T) {
		repo, db, lib := setup(t)
		member := dbtest.Member(t, db, lib.ID)
		book := dbtest.Book(t, db, lib.ID, "B-2", 1)
		dbtest.Borrowing(t, db, lib.ID, member.ID, book, time.Now().AddDate(0, 0, 7))

		err := repo.Delete(lib.ID, member.ID)
		assert.ErrorIs(t, err, ErrActiveBorrowings)

		_, err = repo.GetByID(lib.ID, member.ID)
		assert.NoError(t, err)
	})

	t.Run("other library", func(t *testing.T) {
		repo, db, lib := setup(t)
		member := dbtest.Member(t, db, lib.ID)

		assert.ErrorIs(t, repo.Delete(lib.ID+1, member.ID), gorm.ErrRecordNotFound)
	})
}
