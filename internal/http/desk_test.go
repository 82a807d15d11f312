package http

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strconv"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/mrlokans/librarydesk/internal/attendance"
	"github.com/mrlokans/librarydesk/internal/audit"
	"github.com/mrlokans/librarydesk/internal/auth"
	"github.com/mrlokans/librarydesk/internal/catalog"
	"github.com/mrlokans/librarydesk/internal/circulation"
	"github.com/mrlokans/librarydesk/internal/covers"
	dbactivity "github.com/mrlokans/librarydesk/internal/database/activity"
	dbattendance "github.com/mrlokans/librarydesk/internal/database/attendance"
	"github.com/mrlokans/librarydesk/internal/database/books"
	"github.com/mrlokans/librarydesk/internal/database/categories"
	dbcirculation "github.com/mrlokans/librarydesk/internal/database/circulation"
	"github.com/mrlokans/librarydesk/internal/database/dbtest"
	"github.com/mrlokans/librarydesk/internal/database/libraries"
	dbmembers "github.com/mrlokans/librarydesk/internal/database/members"
	"github.com/mrlokans/librarydesk/internal/database/messages"
	"github.com/mrlokans/librarydesk/internal/database/notifications"
	"github.com/mrlokans/librarydesk/internal/entities"
	"github.com/mrlokans/librarydesk/internal/mail"
	"github.com/mrlokans/librarydesk/internal/members"
	"github.com/mrlokans/librarydesk/internal/notify"
	"github.com/mrlokans/librarydesk/internal/reservations"
	"github.com/mrlokans/librarydesk/internal/subscription"
)

// deskApp is the librarian desk wired against a throwaway database, signed in as librarian.
type deskApp struct {
	router    *gin.Engine
	db        *gorm.DB
	lib       *entities.Library
	librarian *entities.User
	member    *entities.User
	notify    *notify.Service
	auditor   *audit.Service
}

func newDeskApp(t *testing.T) *deskApp {
	t.Helper()
	gin.SetMode(gin.TestMode)

	db := dbtest.Open(t)
	lib := dbtest.Library(t, db.DB, "central")
	librarian := dbtest.Librarian(t, db.DB, lib.ID)
	member := dbtest.Member(t, db.DB, lib.ID)

	auditor := audit.NewService(dbactivity.NewRepository(db.DB))
	t.Cleanup(auditor.Wait)

	mailer := mail.NewEmailService(mail.LogSender{}, "http://desk.test")
	users := dbmembers.NewRepository(db.DB)
	loans := dbcirculation.NewRepository(db.DB)
	visits := dbattendance.NewRepository(db.DB)
	libs := libraries.NewRepository(db.DB)
	bookRepo := books.NewRepository(db.DB)

	coverStore, err := covers.NewStore(t.TempDir(), 1<<20)
	require.NoError(t, err)

	notifySvc := notify.NewService(messages.NewRepository(db.DB), notifications.NewRepository(db.DB), users)
	plans := subscription.NewManager(libs, bookRepo)

	cfg := RouterConfig{
		Auditor:       auditor,
		Catalog:       catalog.NewService(bookRepo, categories.NewRepository(db.DB), plans, coverStore, auditor),
		Covers:        coverStore,
		Members:       members.NewService(users, loans, visits, libs, mailer, auditor, 0),
		Circulation:   circulation.NewService(loans, users, libs, notifySvc, auditor, mailer, circulation.Config{}),
		Reservations:  reservations.NewService(loans, notifySvc, auditor),
		Notify:        notifySvc,
		Attendance:    attendance.NewService(visits, users, auditor),
		Subscriptions: plans,
	}

	tmpl, err := LoadTemplates("")
	require.NoError(t, err)

	router := gin.New()
	router.SetHTMLTemplate(tmpl)
	signedIn := func(c *gin.Context) {
		c.Set(auth.ContextKeyPrincipal, auth.PrincipalFor(librarian))
		c.Next()
	}
	require.NoError(t, registerDesk(router, signedIn, cfg))

	return &deskApp{
		router:    router,
		db:        db.DB,
		lib:       lib,
		librarian: librarian,
		member:    member,
		notify:    notifySvc,
		auditor:   auditor,
	}
}

func (a *deskApp) get(t *testing.T, path string) *httptest.ResponseRecorder {
	t.Helper()
	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, path, nil)
	a.router.ServeHTTP(w, req)
	return w
}

func (a *deskApp) post(t *testing.T, path string, form url.Values) *httptest.ResponseRecorder {
	t.Helper()
	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, path, strings.NewReader(form.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	a.router.ServeHTTP(w, req)
	return w
}

func decode(t *testing.T, w *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var body map[string]any
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body), w.Body.String())
	return body
}

func itoa(id uint) string {
	return strconv.FormatUint(uint64(id), 10)
}
