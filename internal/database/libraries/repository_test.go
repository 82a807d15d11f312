package libraries

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mrlokans/librarydesk/internal/database/dbtest"
	"github.com/mrlokans/librarydesk/internal/entities"
)

func TestRepository_CreateAndGet(t *testing.T) {
	db := dbtest.Open(t)
	repo := NewRepository(db.DB)

	lib := &entities.Library{Name: "Riverside"}
	require.NoError(t, repo.Create(lib))

	got, err := repo.GetByID(lib.ID)
	require.NoError(t, err)
	assert.Equal(t, "Riverside", got.Name)

	libs, err := repo.List()
	require.NoError(t, err)
	assert.Len(t, libs, 1)
}

func TestRepository_SaveSubscription(t *testing.T) {
	db := dbtest.Open(t)
	repo := NewRepository(db.DB)

	lib := &entities.Library{Name: "Hillside"}
	require.NoError(t, repo.Create(lib))

	_, err := repo.GetSubscription(lib.ID)
	require.Error(t, err)

	require.NoError(t, repo.SaveSubscription(&entities.Subscription{
		LibraryID: lib.ID,
		Plan:      entities.SubscriptionPlanBasic,
		Status:    entities.SubscriptionStatusActive,
		StartsAt:  time.Now(),
	}))

	expires := time.Now().Add(-time.Hour)
	require.NoError(t, repo.SaveSubscription(&entities.Subscription{
		LibraryID: lib.ID,
		Plan:      entities.SubscriptionPlanStandard,
		Status:    entities.SubscriptionStatusExpired,
		StartsAt:  time.Now().AddDate(-1, 0, 0),
		ExpiresAt: &expires,
	}))

	sub, err := repo.GetSubscription(lib.ID)
	require.NoError(t, err)
	assert.Equal(t, entities.SubscriptionPlanStandard, sub.Plan)
	assert.Equal(t, entities.SubscriptionStatusExpired, sub.Status)
	assert.False(t, sub.IsActive(time.Now()))

	var count int64
	require.NoError(t, db.DB.Model(&entities.Subscription{}).Count(&count).Error)
	assert.Equal(t, int64(1), count)
}
