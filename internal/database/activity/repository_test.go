package activity

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mrlokans/librarydesk/internal/database/dbtest"
	"github.com/mrlokans/librarydesk/internal/entities"
)

func TestRepository_LogEvent(t *testing.T) {
	db := dbtest.Open(t)
	repo := NewRepository(db.DB)

	entry := &entities.ActivityLog{
		LibraryID:   1,
		UserID:      7,
		Action:      entities.ActivityBookAdded,
		Description: "Added book: Dune",
	}

	err := repo.LogEvent(entry)
	require.NoError(t, err)
	assert.NotZero(t, entry.ID)
	assert.False(t, entry.CreatedAt.IsZero())
	assert.Equal(t, entities.ActivityStatusSuccess, entry.Status)
}

func TestRepository_List(t *testing.T) {
	db := dbtest.Open(t)
	repo := NewRepository(db.DB)

	for i := 0; i < 15; i++ {
		require.NoError(t, repo.LogEvent(&entities.ActivityLog{
			LibraryID: 1,
			UserID:    1,
			Action:    entities.ActivityBookReturned,
			CreatedAt: time.Now().Add(time.Duration(-i) * time.Hour),
		}))
	}
	for i := 0; i < 5; i++ {
		require.NoError(t, repo.LogEvent(&entities.ActivityLog{
			LibraryID: 1,
			UserID:    2,
			Action:    entities.ActivityBookIssued,
		}))
	}
	require.NoError(t, repo.LogEvent(&entities.ActivityLog{LibraryID: 2, UserID: 3, Action: entities.ActivityBookIssued}))

	t.Run("scoped to library", func(t *testing.T) {
		entries, total, err := repo.List(1, Filter{}, 50, 0)
		require.NoError(t, err)
		assert.Equal(t, int64(20), total)
		assert.Len(t, entries, 20)
		for _, e := range entries {
			assert.Equal(t, uint(1), e.LibraryID)
		}
	})

	t.Run("filter by user and action", func(t *testing.T) {
		_, total, err := repo.List(1, Filter{UserID: 1}, 50, 0)
		require.NoError(t, err)
		assert.Equal(t, int64(15), total)

		_, total, err = repo.List(1, Filter{Action: entities.ActivityBookIssued}, 50, 0)
		require.NoError(t, err)
		assert.Equal(t, int64(5), total)
	})

	t.Run("pagination", func(t *testing.T) {
		page1, _, err := repo.List(1, Filter{UserID: 1}, 5, 0)
		require.NoError(t, err)
		page2, _, err := repo.List(1, Filter{UserID: 1}, 5, 5)
		require.NoError(t, err)
		assert.Len(t, page1, 5)
		assert.Len(t, page2, 5)
		assert.NotEqual(t, page1[0].ID, page2[0].ID)
	})

	t.Run("most recent first", func(t *testing.T) {
		entries, _, err := repo.List(1, Filter{UserID: 1}, 10, 0)
		require.NoError(t, err)
		for i := 1; i < len(entries); i++ {
			assert.False(t, entries[i-1].CreatedAt.Before(entries[i].CreatedAt))
		}
	})
}

func TestRepository_DeleteOlderThan(t *testing.T) {
	db := dbtest.Open(t)
	repo := NewRepository(db.DB)

	require.NoError(t, repo.LogEvent(&entities.ActivityLog{LibraryID: 1, Action: "old", CreatedAt: time.Now().AddDate(0, 0, -400)}))
	require.NoError(t, repo.LogEvent(&entities.ActivityLog{LibraryID: 1, Action: "new"}))

	deleted, err := repo.DeleteOlderThan(time.Now().AddDate(0, 0, -365))
	require.NoError(t, err)
	assert.Equal(t, int64(1), deleted)

	entries, err := repo.Recent(1, 10)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, "new", entries[0].Action)
}
