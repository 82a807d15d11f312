// Package members manages library members: listing, profiles, account setup and removal.
package members

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/mrlokans/librarydesk/internal/audit"
	"github.com/mrlokans/librarydesk/internal/auth"
	"github.com/mrlokans/librarydesk/internal/database"
	"github.com/mrlokans/librarydesk/internal/database/attendance"
	"github.com/mrlokans/librarydesk/internal/database/circulation"
	"github.com/mrlokans/librarydesk/internal/database/libraries"
	"github.com/mrlokans/librarydesk/internal/database/members"
	"github.com/mrlokans/librarydesk/internal/entities"
	"github.com/mrlokans/librarydesk/internal/logging"
	"github.com/mrlokans/librarydesk/internal/validation"
)

var (
	ErrMemberNotFound   = errors.New("member not found")
	ErrMemberPending    = errors.New("member account is pending")
	ErrNotPending       = errors.New("member account is already set up")
	ErrActiveBorrowings = errors.New("member has active borrowings")
	ErrEmailExists      = errors.New("email already registered")
	ErrEmailInvalid     = errors.New("invalid email format")
	ErrNameRequired     = errors.New("first name is required")
)

const (
	recentBorrowings = 10
	recentAttendance = 30
)

// Mailer sends member account emails.
type Mailer interface {
	SendMemberDeletedEmail(ctx context.Context, user *entities.User, libraryName string) error
	SendMemberSetupEmail(ctx context.Context, user *entities.User, libraryName, token string, expiresAt time.Time) error
}

// Auditor records librarian activity.
type Auditor interface {
	LogAsync(ctx context.Context, entry audit.Entry)
}

// Input is the data a librarian enters for a new member.
type Input struct {
	FirstName string
	LastName  string
	Email     string
	Phone     string
}

// Profile is a member together with loan statistics and recent history.
type Profile struct {
	Member           *entities.User
	TotalBorrowings  int64
	ActiveBorrowings int64
	OverdueCount     int64
	Borrowings       []entities.Borrowing
	Attendance       []entities.Attendance
}

type Service struct {
	repo       *members.Repository
	loans      *circulation.Repository
	attendance *attendance.Repository
	libraries  *libraries.Repository
	mailer     Mailer
	auditor    Auditor
	setupTTL   time.Duration
	now        func() time.Time
}

func NewService(repo *members.Repository, loans *circulation.Repository, att *attendance.Repository,
	libs *libraries.Repository, mailer Mailer, auditor Auditor, setupTTL time.Duration) *Service {
	if setupTTL <= 0 {
		setupTTL = 72 * time.Hour
	}
	return &Service{
		repo:       repo,
		loans:      loans,
		attendance: att,
		libraries:  libs,
		mailer:     mailer,
		auditor:    auditor,
		setupTTL:   setupTTL,
		now:        time.Now,
	}
}

// List returns library members matching status and search, plus the total.
func (s *Service) List(libraryID uint, filter members.ListFilter) ([]entities.User, int64, error) {
	filter.Role = entities.UserRoleMember
	return s.repo.List(libraryID, filter)
}

// Counts returns member totals per status.
func (s *Service) Counts(libraryID uint) (map[entities.UserStatus]int64, error) {
	return s.repo.CountByStatus(libraryID)
}

// Get returns a single member of the library.
func (s *Service) Get(libraryID, id uint) (*entities.User, error) {
	user, err := s.repo.GetByID(libraryID, id)
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

// View builds the member profile page data.
func (s *Service) View(libraryID, id uint) (*Profile, error) {
	user, err := s.Get(libraryID, id)
	if err != nil {
		return nil, err
	}

	now := s.now()
	p := &Profile{Member: user}
	p.TotalBorrowings, p.ActiveBorrowings, p.OverdueCount, err = s.loans.UserBorrowingStats(libraryID, id, now)
	if err != nil {
		return nil, fmt.Errorf("failed to load borrowing stats: %w", err)
	}

	p.Borrowings, _, err = s.loans.ListBorrowings(libraryID, circulation.BorrowingFilter{UserID: id, Limit: recentBorrowings}, now)
	if err != nil {
		return nil, fmt.Errorf("failed to load borrowings: %w", err)
	}

	p.Attendance, err = s.attendance.History(libraryID, id, recentAttendance)
	if err != nil {
		return nil, fmt.Errorf("failed to load attendance: %w", err)
	}
	return p, nil
}

// Create registers a pending member and sends the account setup email.
// The member is created even if the email cannot be sent.
func (s *Service) Create(ctx context.Context, libraryID, librarianID uint, in Input) (*entities.User, error) {
	in.FirstName = strings.TrimSpace(in.FirstName)
	in.LastName = strings.TrimSpace(in.LastName)
	in.Email = strings.ToLower(strings.TrimSpace(in.Email))
	in.Phone = strings.TrimSpace(in.Phone)

	if in.FirstName == "" {
		return nil, ErrNameRequired
	}
	if !validation.Email(in.Email) {
		return nil, ErrEmailInvalid
	}

	_, err := s.repo.GetByEmail(in.Email)
	if err == nil {
		return nil, ErrEmailExists
	}
	if !database.IsNotFound(err) {
		return nil, fmt.Errorf("failed to check email: %w", err)
	}

	setup, err := auth.NewSetupToken(s.now(), s.setupTTL)
	if err != nil {
		return nil, err
	}

	user := &entities.User{
		Code:                entities.NewUserCode(entities.UserRoleMember),
		LibraryID:           libraryID,
		FirstName:           in.FirstName,
		LastName:            in.LastName,
		Email:               in.Email,
		Phone:               in.Phone,
		Role:                entities.UserRoleMember,
		Status:              entities.UserStatusPending,
		SetupTokenHash:      setup.Hash,
		SetupTokenExpiresAt: &setup.ExpiresAt,
	}
	if err := s.repo.Create(user); err != nil {
		if database.IsUniqueViolation(err) {
			return nil, ErrEmailExists
		}
		return nil, fmt.Errorf("failed to create member: %w", err)
	}

	s.sendSetup(ctx, user, setup)
	s.auditor.LogAsync(ctx, audit.Entry{
		LibraryID:   libraryID,
		UserID:      librarianID,
		Action:      entities.ActivityMemberCreated,
		Description: fmt.Sprintf("Created member %s (%s)", user.FullName(), user.Code),
		EntityType:  "user",
		EntityID:    user.ID,
	})
	return user, nil
}

// Delete removes a member. Pending members and members with books on loan are refused.
func (s *Service) Delete(ctx context.Context, libraryID, id, librarianID uint) (*entities.User, error) {
	user, err := s.Get(libraryID, id)
	if err != nil {
		return nil, err
	}
	if user.Status == entities.UserStatusPending {
		return nil, ErrMemberPending
	}

	if err := s.repo.Delete(libraryID, id); err != nil {
		switch {
		case errors.Is(err, members.ErrActiveBorrowings):
			return nil, ErrActiveBorrowings
		case database.IsNotFound(err):
			return nil, ErrMemberNotFound
		}
		return nil, fmt.Errorf("failed to delete member: %w", err)
	}

	if err := s.mailer.SendMemberDeletedEmail(ctx, user, s.libraryName(libraryID)); err != nil {
		l := logging.Ctx(ctx)
		l.Warn().Err(err).Str("member", user.Code.String()).Msg("Failed to send member deleted email")
	}
	s.auditor.LogAsync(ctx, audit.Entry{
		LibraryID:   libraryID,
		UserID:      librarianID,
		Action:      entities.ActivityMemberDeleted,
		Description: fmt.Sprintf("Deleted member %s (%s)", user.FullName(), user.Code),
		EntityType:  "user",
		EntityID:    user.ID,
		Metadata:    map[string]any{"email": user.Email},
	})
	return user, nil
}

// ResendSetup issues a fresh setup token to a pending member and emails it.
// Any previous token stops working.
func (s *Service) ResendSetup(ctx context.Context, libraryID, id, librarianID uint) (*entities.User, error) {
	user, err := s.Get(libraryID, id)
	if err != nil {
		return nil, err
	}
	if user.Status != entities.UserStatusPending {
		return nil, ErrNotPending
	}

	setup, err := auth.NewSetupToken(s.now(), s.setupTTL)
	if err != nil {
		return nil, err
	}
	if err := s.repo.UpdateSetupToken(libraryID, id, setup.Hash, setup.ExpiresAt); err != nil {
		if database.IsNotFound(err) {
			return nil, ErrMemberNotFound
		}
		return nil, fmt.Errorf("failed to store setup token: %w", err)
	}
	user.SetupTokenHash = setup.Hash
	user.SetupTokenExpiresAt = &setup.ExpiresAt

	if err := s.mailer.SendMemberSetupEmail(ctx, user, s.libraryName(libraryID), setup.Value, setup.ExpiresAt); err != nil {
		return user, fmt.Errorf("failed to send setup email: %w", err)
	}
	s.auditor.LogAsync(ctx, audit.Entry{
		LibraryID:   libraryID,
		UserID:      librarianID,
		Action:      entities.ActivitySetupResent,
		Description: fmt.Sprintf("Resent setup email to %s", user.Email),
		EntityType:  "user",
		EntityID:    user.ID,
	})
	return user, nil
}

func (s *Service) sendSetup(ctx context.Context, user *entities.User, setup auth.SetupToken) {
	if err := s.mailer.SendMemberSetupEmail(ctx, user, s.libraryName(user.LibraryID), setup.Value, setup.ExpiresAt); err != nil {
		l := logging.Ctx(ctx)
		l.Warn().Err(err).Str("member", user.Code.String()).Msg("Failed to send setup email")
	}
}

func (s *Service) libraryName(libraryID uint) string {
	lib, err := s.libraries.GetByID(libraryID)
	if err != nil {
		return "your library"
	}
	return lib.Name
}
