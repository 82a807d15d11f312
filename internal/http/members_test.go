package http

import (
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mrlokans/librarydesk/internal/database/dbtest"
	"github.com/mrlokans/librarydesk/internal/entities"
)

func flash(t *testing.T, w *httptest.ResponseRecorder, key string) string {
	t.Helper()
	loc, err := url.Parse(w.Header().Get("Location"))
	require.NoError(t, err)
	return loc.Query().Get(key)
}

func TestMembersController_CreateMember(t *testing.T) {
	app := newDeskApp(t)

	w := app.post(t, "/librarian/members", url.Values{
		"first_name": {"Shevek"},
		"last_name":  {"Urras"},
		"email":      {"shevek@anarres.test"},
	})
	require.Equal(t, http.StatusSeeOther, w.Code)
	assert.Contains(t, flash(t, w, "success"), "Member Shevek Urras created")

	var created entities.User
	require.NoError(t, app.db.Where("email = ?", "shevek@anarres.test").First(&created).Error)
	assert.Equal(t, entities.UserStatusPending, created.Status)
	assert.Equal(t, app.lib.ID, created.LibraryID)

	w = app.post(t, "/librarian/members", url.Values{"first_name": {"Takver"}, "email": {"shevek@anarres.test"}})
	require.Equal(t, http.StatusSeeOther, w.Code)
	assert.Equal(t, "A user with this email already exists", flash(t, w, "error"))
}

func TestMembersController_Delete(t *testing.T) {
	app := newDeskApp(t)

	t.Run("pending members are kept", func(t *testing.T) {
		pending := dbtest.User(t, app.db, app.lib.ID, entities.UserRoleMember, entities.UserStatusPending)

		w := app.post(t, "/librarian/members/"+itoa(pending.ID)+"/delete", nil)
		require.Equal(t, http.StatusSeeOther, w.Code)
		assert.True(t, strings.HasPrefix(w.Header().Get("Location"), memberPath(pending.ID)+"?"))
		assert.Contains(t, flash(t, w, "error"), "Pending members cannot be deleted")
	})

	t.Run("members with loans are kept", func(t *testing.T) {
		book := dbtest.Book(t, app.db, app.lib.ID, "D-1", 1)
		dbtest.Borrowing(t, app.db, app.lib.ID, app.member.ID, book, time.Now().AddDate(0, 0, 7))

		w := app.post(t, "/librarian/members/"+itoa(app.member.ID)+"/delete", nil)
		require.Equal(t, http.StatusSeeOther, w.Code)
		assert.Equal(t, "Cannot delete a member with active borrowings. Return all books first.", flash(t, w, "error"))
	})

	t.Run("active member without loans", func(t *testing.T) {
		member := dbtest.Member(t, app.db, app.lib.ID)

		w := app.post(t, "/librarian/members/"+itoa(member.ID)+"/delete", nil)
		require.Equal(t, http.StatusSeeOther, w.Code)
		assert.Contains(t, flash(t, w, "success"), "has been deleted")

		var count int64
		require.NoError(t, app.db.Model(&entities.User{}).Where("id = ?", member.ID).Count(&count).Error)
		assert.Zero(t, count)
	})

	t.Run("librarians are not members", func(t *testing.T) {
		w := app.post(t, "/librarian/members/"+itoa(app.librarian.ID)+"/delete", nil)
		require.Equal(t, http.StatusSeeOther, w.Code)
		assert.Equal(t, "Member not found", flash(t, w, "error"))
	})
}

func TestMembersController_ResendSetup(t *testing.T) {
	app := newDeskApp(t)
	pending := dbtest.User(t, app.db, app.lib.ID, entities.UserRoleMember, entities.UserStatusPending)

	w := app.post(t, "/librarian/members/"+itoa(pending.ID)+"/resend-setup", nil)
	require.Equal(t, http.StatusSeeOther, w.Code)
	assert.Contains(t, flash(t, w, "success"), pending.Email)

	w = app.post(t, "/librarian/members/"+itoa(app.member.ID)+"/resend-setup", nil)
	require.Equal(t, http.StatusSeeOther, w.Code)
	assert.Equal(t, "This member has already set up their account", flash(t, w, "error"))
}

func TestMembersController_Pages(t *testing.T) {
	app := newDeskApp(t)

	w := app.get(t, "/librarian/members?status=active")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), app.member.Email)
	assert.Contains(t, w.Body.String(), "Active (1)")

	w = app.get(t, "/librarian/members/"+itoa(app.member.ID))
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), string(app.member.Code))

	w = app.get(t, "/librarian/members/"+itoa(app.member.ID)+"/delete")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "cannot be undone")

	w = app.get(t, "/librarian/members/0")
	assert.Equal(t, http.StatusNotFound, w.Code)

	w = app.get(t, "/librarian/members/"+itoa(app.librarian.ID))
	assert.Equal(t, http.StatusNotFound, w.Code)
}
