package categories

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mrlokans/librarydesk/internal/database"
	"github.com/mrlokans/librarydesk/internal/database/dbtest"
	"github.com/mrlokans/librarydesk/internal/entities"
)

func TestRepository_UniqueNamePerLibrary(t *testing.T) {
	db := dbtest.Open(t)
	repo := NewRepository(db.DB)
	libA := dbtest.Library(t, db.DB, "a")
	libB := dbtest.Library(t, db.DB, "b")

	require.NoError(t, repo.Create(&entities.Category{LibraryID: libA.ID, Name: "Fiction"}))
	require.NoError(t, repo.Create(&entities.Category{LibraryID: libB.ID, Name: "Fiction"}))

	err := repo.Create(&entities.Category{LibraryID: libA.ID, Name: "Fiction"})
	require.Error(t, err)
	assert.True(t, database.IsUniqueViolation(err))

	require.NoError(t, repo.Create(&entities.Category{LibraryID: libA.ID, Name: "Art"}))

	list, err := repo.List(libA.ID)
	require.NoError(t, err)
	require.Len(t, list, 2)
	assert.Equal(t, "Art", list[0].Name)
	assert.Equal(t, "Fiction", list[1].Name)

	got, err := repo.GetByName(libB.ID, "Fiction")
	require.NoError(t, err)
	assert.Equal(t, libB.ID, got.LibraryID)

	_, err = repo.GetByID(libB.ID, list[0].ID)
	assert.True(t, database.IsNotFound(err))
}
