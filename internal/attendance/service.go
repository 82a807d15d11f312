// Package attendance records daily member presence at the library.
package attendance

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/mrlokans/librarydesk/internal/audit"
	"github.com/mrlokans/librarydesk/internal/database"
	"github.com/mrlokans/librarydesk/internal/database/attendance"
	"github.com/mrlokans/librarydesk/internal/database/members"
	"github.com/mrlokans/librarydesk/internal/entities"
	"github.com/mrlokans/librarydesk/internal/validation"
)

var (
	ErrMemberNotFound    = errors.New("member not found")
	ErrMemberInactive    = errors.New("only active members can be marked present")
	ErrInvalidDate       = errors.New("invalid date format")
	ErrFutureDate        = errors.New("attendance cannot be recorded for a future date")
	ErrInvalidTime       = errors.New("invalid time format, use HH:MM")
	ErrDepartureBeforeIn = errors.New("departure time cannot be before arrival time")
)

const historyLimit = 365

// Auditor records librarian activity.
type Auditor interface {
	LogAsync(ctx context.Context, entry audit.Entry)
}

// Mark is a presence update for one member and day.
type Mark struct {
	UserID    uint
	Date      string
	Arrival   string `validate:"omitempty,clock"`
	Departure string `validate:"omitempty,clock"`
}

// Sheet is the daily attendance page data.
type Sheet struct {
	Date         string
	Members      []attendance.PresentMember
	PresentCount int
}

// Entry is a history row with its display label.
type Entry struct {
	entities.Attendance
	Status string
}

type Service struct {
	repo    *attendance.Repository
	users   *members.Repository
	auditor Auditor
	now     func() time.Time
}

func NewService(repo *attendance.Repository, users *members.Repository, auditor Auditor) *Service {
	return &Service{repo: repo, users: users, auditor: auditor, now: time.Now}
}

// Today is the current attendance date.
func (s *Service) Today() string {
	return attendance.Today(s.now())
}

// MarkPresent records presence. Marking an already present member updates the times.
func (s *Service) MarkPresent(ctx context.Context, libraryID, librarianID uint, m Mark) (*entities.Attendance, error) {
	date, err := s.parseDate(m.Date)
	if err != nil {
		return nil, err
	}
	m.Arrival = strings.TrimSpace(m.Arrival)
	m.Departure = strings.TrimSpace(m.Departure)
	if err := validation.Struct(m); err != nil {
		return nil, ErrInvalidTime
	}
	arrival, departure := optional(m.Arrival), optional(m.Departure)
	if arrival != nil && departure != nil && *departure < *arrival {
		return nil, ErrDepartureBeforeIn
	}

	member, err := s.member(libraryID, m.UserID)
	if err != nil {
		return nil, err
	}
	if member.Status != entities.UserStatusActive {
		return nil, ErrMemberInactive
	}

	rec := &entities.Attendance{
		LibraryID:     libraryID,
		UserID:        member.ID,
		Date:          date,
		ArrivalTime:   arrival,
		DepartureTime: departure,
	}
	if err := s.repo.Upsert(rec); err != nil {
		return nil, fmt.Errorf("failed to record attendance: %w", err)
	}

	s.auditor.LogAsync(ctx, audit.Entry{
		LibraryID:   libraryID,
		UserID:      librarianID,
		Action:      entities.ActivityAttendanceMarked,
		Description: fmt.Sprintf("Marked %s present on %s", member.FullName(), date),
		EntityType:  "user",
		EntityID:    member.ID,
	})
	return rec, nil
}

// MarkAbsent removes presence for the day. It reports whether a record existed.
func (s *Service) MarkAbsent(ctx context.Context, libraryID, librarianID, userID uint, day string) (bool, error) {
	date, err := s.parseDate(day)
	if err != nil {
		return false, err
	}
	member, err := s.member(libraryID, userID)
	if err != nil {
		return false, err
	}

	removed, err := s.repo.Delete(libraryID, member.ID, date)
	if err != nil {
		return false, fmt.Errorf("failed to remove attendance: %w", err)
	}
	if removed {
		s.auditor.LogAsync(ctx, audit.Entry{
			LibraryID:   libraryID,
			UserID:      librarianID,
			Action:      entities.ActivityAttendanceRemoved,
			Description: fmt.Sprintf("Removed attendance for %s on %s", member.FullName(), date),
			EntityType:  "user",
			EntityID:    member.ID,
		})
	}
	return removed, nil
}

// ForDate lists active members with their presence for day. An empty day means today.
func (s *Service) ForDate(libraryID uint, day string) (*Sheet, error) {
	date, err := s.parseDate(day)
	if err != nil {
		return nil, err
	}

	rows, err := s.repo.ForDate(libraryID, date)
	if err != nil {
		return nil, fmt.Errorf("failed to load attendance: %w", err)
	}
	sheet := &Sheet{Date: date, Members: rows}
	for i := range rows {
		if rows[i].Present() {
			sheet.PresentCount++
		}
	}
	return sheet, nil
}

// History returns the member and their attendance, most recent first.
func (s *Service) History(libraryID, userID uint) (*entities.User, []Entry, error) {
	member, err := s.member(libraryID, userID)
	if err != nil {
		return nil, nil, err
	}
	list, err := s.repo.History(libraryID, member.ID, historyLimit)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to load attendance history: %w", err)
	}
	out := make([]Entry, 0, len(list))
	for i := range list {
		out = append(out, Entry{Attendance: list[i], Status: list[i].DisplayStatus()})
	}
	return member, out, nil
}

// PresentToday counts members marked present today.
func (s *Service) PresentToday(libraryID uint) (int64, error) {
	return s.repo.CountForDate(libraryID, s.Today())
}

func (s *Service) member(libraryID, userID uint) (*entities.User, error) {
	user, err := s.users.GetByID(libraryID, userID)
	if database.IsNotFound(err) {
		return nil, ErrMemberNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load member: %w", err)
	}
	if user.Role != entities.UserRoleMember {
		return nil, ErrMemberNotFound
	}
	return user, nil
}

// parseDate validates day. An empty day means today.
func (s *Service) parseDate(day string) (string, error) {
	day = strings.TrimSpace(day)
	if day == "" {
		return s.Today(), nil
	}
	t, err := time.Parse(entities.AttendanceDateLayout, day)
	if err != nil {
		return "", ErrInvalidDate
	}
	date := t.Format(entities.AttendanceDateLayout)
	if date > s.Today() {
		return "", ErrFutureDate
	}
	return date, nil
}

func optional(v string) *string {
	if v == "" {
		return nil
	}
	return &v
}
