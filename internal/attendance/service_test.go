package attendance

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/mrlokans/librarydesk/internal/audit"
	"github.com/mrlokans/librarydesk/internal/database/activity"
	"github.com/mrlokans/librarydesk/internal/database/attendance"
	"github.com/mrlokans/librarydesk/internal/database/dbtest"
	"github.com/mrlokans/librarydesk/internal/database/members"
	"github.com/mrlokans/librarydesk/internal/entities"
)

type fixture struct {
	svc       *Service
	repo      *attendance.Repository
	lib       *entities.Library
	librarian *entities.User
	member    *entities.User
	db        *gorm.DB
}

func setup(t *testing.T) fixture {
	db := dbtest.Open(t)
	lib := dbtest.Library(t, db.DB, "central")
	auditor := audit.NewService(activity.NewRepository(db.DB))
	t.Cleanup(auditor.Wait)

	repo := attendance.NewRepository(db.DB)
	svc := NewService(repo, members.NewRepository(db.DB), auditor)
	svc.now = func() time.Time { return time.Date(2026, 3, 10, 9, 30, 0, 0, time.UTC) }
	return fixture{
		svc:       svc,
		repo:      repo,
		lib:       lib,
		librarian: dbtest.Librarian(t, db.DB, lib.ID),
		member:    dbtest.Member(t, db.DB, lib.ID),
		db:        db.DB,
	}
}

func TestMarkPresent_Upserts(t *testing.T) {
	f := setup(t)
	ctx := context.Background()

	rec, err := f.svc.MarkPresent(ctx, f.lib.ID, f.librarian.ID, Mark{UserID: f.member.ID, Date: "2026-03-10", Arrival: "09:15"})
	require.NoError(t, err)
	require.NotNil(t, rec.ArrivalTime)
	assert.Equal(t, "09:15", *rec.ArrivalTime)
	assert.Nil(t, rec.DepartureTime)

	_, err = f.svc.MarkPresent(ctx, f.lib.ID, f.librarian.ID, Mark{UserID: f.member.ID, Date: "2026-03-10", Arrival: "09:15", Departure: "12:00"})
	require.NoError(t, err)

	rec, err = f.svc.MarkPresent(ctx, f.lib.ID, f.librarian.ID, Mark{UserID: f.member.ID, Date: "2026-03-10", Arrival: " 09:15 ", Departure: " 12:00"})
	require.NoError(t, err)
	require.NotNil(t, rec.DepartureTime)
	assert.Equal(t, "12:00", *rec.DepartureTime, "surrounding spaces are trimmed")

	sheet, err := f.svc.ForDate(f.lib.ID, "")
	require.NoError(t, err)
	assert.Equal(t, "2026-03-10", sheet.Date)
	assert.Equal(t, 1, sheet.PresentCount)
	require.Len(t, sheet.Members, 1)
	require.NotNil(t, sheet.Members[0].DepartureTime)
	assert.Equal(t, "12:00", *sheet.Members[0].DepartureTime)

	count, err := f.svc.PresentToday(f.lib.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(1), count)
}

func TestMarkPresent_Validation(t *testing.T) {
	f := setup(t)

	tests := []struct {
		name string
		mark Mark
		want error
	}{
		{"bad date", Mark{UserID: f.member.ID, Date: "10/03/2026"}, ErrInvalidDate},
		{"future date", Mark{UserID: f.member.ID, Date: "2026-03-11"}, ErrFutureDate},
		{"bad arrival", Mark{UserID: f.member.ID, Date: "2026-03-10", Arrival: "9am"}, ErrInvalidTime},
		{"bad departure", Mark{UserID: f.member.ID, Date: "2026-03-10", Departure: "24:00"}, ErrInvalidTime},
		{"single digit hour", Mark{UserID: f.member.ID, Date: "2026-03-10", Arrival: "9:15"}, ErrInvalidTime},
		{"departure first", Mark{UserID: f.member.ID, Date: "2026-03-10", Arrival: "10:00", Departure: "09:00"}, ErrDepartureBeforeIn},
		{"librarian", Mark{UserID: f.librarian.ID, Date: "2026-03-10"}, ErrMemberNotFound},
		{"unknown", Mark{UserID: 9999, Date: "2026-03-10"}, ErrMemberNotFound},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := f.svc.MarkPresent(context.Background(), f.lib.ID, f.librarian.ID, tt.mark)
			assert.ErrorIs(t, err, tt.want)
		})
	}
}

func TestMarkPresent_OtherLibrary(t *testing.T) {
	f := setup(t)
	other := dbtest.Library(t, f.db, "north")
	stranger := dbtest.Member(t, f.db, other.ID)

	_, err := f.svc.MarkPresent(context.Background(), f.lib.ID, f.librarian.ID, Mark{UserID: stranger.ID, Date: "2026-03-10"})
	assert.ErrorIs(t, err, ErrMemberNotFound)
}

func TestMarkPresent_InactiveMember(t *testing.T) {
	f := setup(t)
	pending := dbtest.User(t, f.db, f.lib.ID, entities.UserRoleMember, entities.UserStatusPending)

	_, err := f.svc.MarkPresent(context.Background(), f.lib.ID, f.librarian.ID, Mark{UserID: pending.ID, Date: "2026-03-10"})
	assert.ErrorIs(t, err, ErrMemberInactive)
}

func TestMarkAbsent(t *testing.T) {
	f := setup(t)
	ctx := context.Background()

	_, err := f.svc.MarkPresent(ctx, f.lib.ID, f.librarian.ID, Mark{UserID: f.member.ID, Date: "2026-03-09"})
	require.NoError(t, err)

	removed, err := f.svc.MarkAbsent(ctx, f.lib.ID, f.librarian.ID, f.member.ID, "2026-03-09")
	require.NoError(t, err)
	assert.True(t, removed)

	removed, err = f.svc.MarkAbsent(ctx, f.lib.ID, f.librarian.ID, f.member.ID, "2026-03-09")
	require.NoError(t, err)
	assert.False(t, removed, "absent twice is a no-op")
}

func TestHistory_DisplayStatus(t *testing.T) {
	f := setup(t)
	ctx := context.Background()

	_, err := f.svc.MarkPresent(ctx, f.lib.ID, f.librarian.ID, Mark{UserID: f.member.ID, Date: "2026-03-08"})
	require.NoError(t, err)
	_, err = f.svc.MarkPresent(ctx, f.lib.ID, f.librarian.ID, Mark{UserID: f.member.ID, Date: "2026-03-09", Arrival: "10:00"})
	require.NoError(t, err)

	member, history, err := f.svc.History(f.lib.ID, f.member.ID)
	require.NoError(t, err)
	assert.Equal(t, f.member.ID, member.ID)
	require.Len(t, history, 2)
	assert.Equal(t, "2026-03-09", history[0].Date)
	assert.Equal(t, "Present", history[0].Status)
	assert.Equal(t, "Present (time not recorded)", history[1].Status)
}
