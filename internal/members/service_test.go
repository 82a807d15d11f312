package members

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mrlokans/librarydesk/internal/audit"
	"github.com/mrlokans/librarydesk/internal/auth"
	"github.com/mrlokans/librarydesk/internal/database"
	"github.com/mrlokans/librarydesk/internal/database/activity"
	"github.com/mrlokans/librarydesk/internal/database/attendance"
	"github.com/mrlokans/librarydesk/internal/database/circulation"
	"github.com/mrlokans/librarydesk/internal/database/dbtest"
	"github.com/mrlokans/librarydesk/internal/database/libraries"
	"github.com/mrlokans/librarydesk/internal/database/members"
	"github.com/mrlokans/librarydesk/internal/entities"
)

type sentSetup struct {
	email   string
	library string
	token   string
	expires time.Time
}

type fakeMailer struct {
	mu       sync.Mutex
	deleted  []string
	setups   []sentSetup
	setupErr error
}

func (m *fakeMailer) SendMemberDeletedEmail(_ context.Context, user *entities.User, libraryName string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.deleted = append(m.deleted, user.Email+"@"+libraryName)
	return nil
}

func (m *fakeMailer) SendMemberSetupEmail(_ context.Context, user *entities.User, libraryName, token string, expiresAt time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.setups = append(m.setups, sentSetup{email: user.Email, library: libraryName, token: token, expires: expiresAt})
	return m.setupErr
}

type fixture struct {
	svc       *Service
	repo      *members.Repository
	mailer    *fakeMailer
	lib       *entities.Library
	librarian *entities.User
	db        *database.Database
}

func setup(t *testing.T) fixture {
	db := dbtest.Open(t)
	lib := dbtest.Library(t, db.DB, "central")
	repo := members.NewRepository(db.DB)
	auditor := audit.NewService(activity.NewRepository(db.DB))
	mailer := &fakeMailer{}
	t.Cleanup(auditor.Wait)

	svc := NewService(repo, circulation.NewRepository(db.DB), attendance.NewRepository(db.DB),
		libraries.NewRepository(db.DB), mailer, auditor, 72*time.Hour)
	return fixture{
		svc:       svc,
		repo:      repo,
		mailer:    mailer,
		lib:       lib,
		librarian: dbtest.Librarian(t, db.DB, lib.ID),
		db:        db,
	}
}

func TestCreate_PendingMemberWithSetupEmail(t *testing.T) {
	f := setup(t)
	now := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)
	f.svc.now = func() time.Time { return now }

	user, err := f.svc.Create(context.Background(), f.lib.ID, f.librarian.ID, Input{
		FirstName: " Ada ",
		LastName:  "Lovelace",
		Email:     " Ada@Example.COM ",
	})
	require.NoError(t, err)

	assert.Equal(t, entities.UserStatusPending, user.Status)
	assert.Equal(t, entities.UserRoleMember, user.Role)
	assert.Equal(t, "ada@example.com", user.Email)
	assert.Regexp(t, `^MEM-[0-9A-F]{8}$`, string(user.Code))

	require.Len(t, f.mailer.setups, 1)
	sent := f.mailer.setups[0]
	assert.Equal(t, "central", sent.library)
	assert.Equal(t, auth.HashToken(sent.token), user.SetupTokenHash)
	assert.Equal(t, now.Add(72*time.Hour).Unix(), sent.expires.Unix())

	stored, err := f.repo.GetBySetupTokenHash(auth.HashToken(sent.token))
	require.NoError(t, err)
	assert.Equal(t, user.ID, stored.ID)
}

func TestCreate_Validation(t *testing.T) {
	f := setup(t)
	ctx := context.Background()

	_, err := f.svc.Create(ctx, f.lib.ID, f.librarian.ID, Input{Email: "a@example.com"})
	assert.ErrorIs(t, err, ErrNameRequired)

	_, err = f.svc.Create(ctx, f.lib.ID, f.librarian.ID, Input{FirstName: "A", Email: "not-an-email"})
	assert.ErrorIs(t, err, ErrEmailInvalid)

	_, err = f.svc.Create(ctx, f.lib.ID, f.librarian.ID, Input{FirstName: "A", Email: f.librarian.Email})
	assert.ErrorIs(t, err, ErrEmailExists)
}

func TestCreate_EmailFailureKeepsMember(t *testing.T) {
	f := setup(t)
	f.mailer.setupErr = errors.New("smtp down")

	user, err := f.svc.Create(context.Background(), f.lib.ID, f.librarian.ID, Input{FirstName: "A", Email: "a@example.com"})
	require.NoError(t, err)

	_, err = f.repo.GetByID(f.lib.ID, user.ID)
	assert.NoError(t, err)
}

func TestDelete_PendingMemberRefused(t *testing.T) {
	f := setup(t)
	pending := dbtest.User(t, f.db.DB, f.lib.ID, entities.UserRoleMember, entities.UserStatusPending)

	_, err := f.svc.Delete(context.Background(), f.lib.ID, pending.ID, f.librarian.ID)
	assert.ErrorIs(t, err, ErrMemberPending)

	_, err = f.repo.GetByID(f.lib.ID, pending.ID)
	assert.NoError(t, err, "pending member must survive")
	assert.Empty(t, f.mailer.deleted)
}

func TestDelete_ActiveBorrowingsRefused(t *testing.T) {
	f := setup(t)
	member := dbtest.Member(t, f.db.DB, f.lib.ID)
	book := dbtest.Book(t, f.db.DB, f.lib.ID, "B-1", 1)
	dbtest.Borrowing(t, f.db.DB, f.lib.ID, member.ID, book, time.Now().AddDate(0, 0, 7))

	_, err := f.svc.Delete(context.Background(), f.lib.ID, member.ID, f.librarian.ID)
	assert.ErrorIs(t, err, ErrActiveBorrowings)
}

func TestDelete_RemovesMemberAndSendsEmail(t *testing.T) {
	f := setup(t)
	member := dbtest.Member(t, f.db.DB, f.lib.ID)
	book := dbtest.Book(t, f.db.DB, f.lib.ID, "B-1", 1)
	res := dbtest.Reservation(t, f.db.DB, f.lib.ID, member.ID, book.ID, entities.ReservationStatusPending)

	deleted, err := f.svc.Delete(context.Background(), f.lib.ID, member.ID, f.librarian.ID)
	require.NoError(t, err)
	assert.Equal(t, member.ID, deleted.ID)

	_, err = f.svc.Get(f.lib.ID, member.ID)
	assert.ErrorIs(t, err, ErrMemberNotFound)

	var count int64
	require.NoError(t, f.db.DB.Model(&entities.Reservation{}).Where("id = ?", res.ID).Count(&count).Error)
	assert.Zero(t, count)
	assert.Equal(t, []string{member.Email + "@central"}, f.mailer.deleted)
}

func TestDelete_OtherLibraryNotFound(t *testing.T) {
	f := setup(t)
	other := dbtest.Library(t, f.db.DB, "branch")
	member := dbtest.Member(t, f.db.DB, other.ID)

	_, err := f.svc.Delete(context.Background(), f.lib.ID, member.ID, f.librarian.ID)
	assert.ErrorIs(t, err, ErrMemberNotFound)
}

func TestDelete_LibrarianIsNotAMember(t *testing.T) {
	f := setup(t)
	_, err := f.svc.Delete(context.Background(), f.lib.ID, f.librarian.ID, f.librarian.ID)
	assert.ErrorIs(t, err, ErrMemberNotFound)
}

func TestResendSetup_RotatesToken(t *testing.T) {
	f := setup(t)
	user, err := f.svc.Create(context.Background(), f.lib.ID, f.librarian.ID, Input{FirstName: "A", Email: "a@example.com"})
	require.NoError(t, err)
	firstHash := user.SetupTokenHash

	resent, err := f.svc.ResendSetup(context.Background(), f.lib.ID, user.ID, f.librarian.ID)
	require.NoError(t, err)
	assert.NotEqual(t, firstHash, resent.SetupTokenHash)

	require.Len(t, f.mailer.setups, 2)
	_, err = f.repo.GetBySetupTokenHash(firstHash)
	assert.Error(t, err, "old token must stop working")
	_, err = f.repo.GetBySetupTokenHash(auth.HashToken(f.mailer.setups[1].token))
	assert.NoError(t, err)
}

func TestResendSetup_ActiveMemberRefused(t *testing.T) {
	f := setup(t)
	member := dbtest.Member(t, f.db.DB, f.lib.ID)

	_, err := f.svc.ResendSetup(context.Background(), f.lib.ID, member.ID, f.librarian.ID)
	assert.ErrorIs(t, err, ErrNotPending)
	assert.Empty(t, f.mailer.setups)
}

func TestView_Stats(t *testing.T) {
	f := setup(t)
	member := dbtest.Member(t, f.db.DB, f.lib.ID)
	book := dbtest.Book(t, f.db.DB, f.lib.ID, "B-1", 3)
	dbtest.Borrowing(t, f.db.DB, f.lib.ID, member.ID, book, time.Now().AddDate(0, 0, 7))
	dbtest.Borrowing(t, f.db.DB, f.lib.ID, member.ID, book, time.Now().AddDate(0, 0, -3))
	require.NoError(t, attendance.NewRepository(f.db.DB).Upsert(&entities.Attendance{
		LibraryID: f.lib.ID,
		UserID:    member.ID,
		Date:      attendance.Today(time.Now()),
	}))

	p, err := f.svc.View(f.lib.ID, member.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(2), p.TotalBorrowings)
	assert.Equal(t, int64(2), p.ActiveBorrowings)
	assert.Equal(t, int64(1), p.OverdueCount)
	assert.Len(t, p.Borrowings, 2)
	assert.Len(t, p.Attendance, 1)
}

func TestList_OnlyMembers(t *testing.T) {
	f := setup(t)
	dbtest.Member(t, f.db.DB, f.lib.ID)
	dbtest.User(t, f.db.DB, f.lib.ID, entities.UserRoleMember, entities.UserStatusPending)

	list, total, err := f.svc.List(f.lib.ID, members.ListFilter{})
	require.NoError(t, err)
	assert.Equal(t, int64(2), total)
	for _, u := range list {
		assert.Equal(t, entities.UserRoleMember, u.Role)
	}

	_, total, err = f.svc.List(f.lib.ID, members.ListFilter{Status: entities.UserStatusPending})
	require.NoError(t, err)
	assert.Equal(t, int64(1), total)
}
