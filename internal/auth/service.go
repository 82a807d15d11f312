package auth

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/mrlokans/librarydesk/internal/config"
	"github.com/mrlokans/librarydesk/internal/database"
	"github.com/mrlokans/librarydesk/internal/database/members"
	"github.com/mrlokans/librarydesk/internal/entities"
	"github.com/mrlokans/librarydesk/internal/validation"
)

var (
	ErrUserNotFound     = errors.New("user not found")
	ErrUserExists       = errors.New("user already exists")
	ErrInvalidToken     = errors.New("invalid token")
	ErrTokenExpired     = errors.New("token expired")
	ErrAccountLocked    = errors.New("account is locked due to too many failed login attempts")
	ErrAccountInactive  = errors.New("account is not active")
	ErrEmailInvalid     = errors.New("invalid email format")
	ErrPasswordRequired = errors.New("password is required")
	ErrNameRequired     = errors.New("first name is required")
)

// Service authenticates staff and resolves sessions into principals.
type Service struct {
	users     *members.Repository
	config    config.Auth
	passwords passwordHasher
	now       func() time.Time
}

// NewService creates a new authentication service.
func NewService(users *members.Repository, cfg config.Auth) *Service {
	if cfg.BcryptCost == 0 {
		cfg.BcryptCost = 12
	}
	if cfg.MaxLoginAttempts == 0 {
		cfg.MaxLoginAttempts = 5
	}
	if cfg.LockoutDuration == 0 {
		cfg.LockoutDuration = 30 * time.Minute
	}
	return &Service{users: users, config: cfg, passwords: passwordHasher{cost: cfg.BcryptCost}, now: time.Now}
}

// Authenticate validates an email and password.
// Accounts are locked after too many consecutive failures.
func (s *Service) Authenticate(email, password string) (*entities.User, error) {
	user, err := s.users.GetByEmail(email)
	if database.IsNotFound(err) {
		return nil, ErrUserNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to find user: %w", err)
	}

	now := s.now()
	if user.LockedUntil != nil && now.Before(*user.LockedUntil) {
		return nil, ErrAccountLocked
	}
	if user.PasswordHash == "" {
		return nil, ErrAccountInactive
	}

	if err := s.passwords.verify(user.PasswordHash, password); err != nil {
		if ferr := s.users.RecordFailedLogin(user.ID, s.config.MaxLoginAttempts, s.config.LockoutDuration); ferr != nil {
			return nil, fmt.Errorf("failed to record failed login: %w", ferr)
		}
		return nil, err
	}

	if user.Status != entities.UserStatusActive {
		return nil, ErrAccountInactive
	}

	if err := s.users.RecordLogin(user.ID, now); err != nil {
		return nil, fmt.Errorf("failed to record login: %w", err)
	}
	return user, nil
}

// Resolve turns a session user id into a Principal. Inactive or deleted users resolve to ErrUserNotFound.
func (s *Service) Resolve(userID uint) (*Principal, error) {
	user, err := s.users.FindByID(userID)
	if database.IsNotFound(err) {
		return nil, ErrUserNotFound
	}
	if err != nil {
		return nil, err
	}
	if user.Status != entities.UserStatusActive {
		return nil, ErrUserNotFound
	}
	return PrincipalFor(user), nil
}

// CreateLibrarian creates an active librarian account with a password.
func (s *Service) CreateLibrarian(libraryID uint, firstName, lastName, email, password string) (*entities.User, error) {
	firstName = strings.TrimSpace(firstName)
	email = strings.ToLower(strings.TrimSpace(email))

	if firstName == "" {
		return nil, ErrNameRequired
	}
	if !validation.Email(email) {
		return nil, ErrEmailInvalid
	}
	if password == "" {
		return nil, ErrPasswordRequired
	}

	_, err := s.users.GetByEmail(email)
	if err == nil {
		return nil, ErrUserExists
	}
	if !database.IsNotFound(err) {
		return nil, fmt.Errorf("failed to check existing user: %w", err)
	}

	passwordHash, err := s.passwords.hash(password)
	if err != nil {
		return nil, err
	}

	user := &entities.User{
		Code:         entities.NewUserCode(entities.UserRoleLibrarian),
		LibraryID:    libraryID,
		FirstName:    firstName,
		LastName:     strings.TrimSpace(lastName),
		Email:        email,
		Role:         entities.UserRoleLibrarian,
		Status:       entities.UserStatusActive,
		PasswordHash: passwordHash,
	}
	if err := s.users.Create(user); err != nil {
		if database.IsUniqueViolation(err) {
			return nil, ErrUserExists
		}
		return nil, fmt.Errorf("failed to create user: %w", err)
	}
	return user, nil
}

// LookupSetupToken returns the pending user a setup token belongs to.
func (s *Service) LookupSetupToken(token string) (*entities.User, error) {
	if token == "" {
		return nil, ErrInvalidToken
	}
	user, err := s.users.GetBySetupTokenHash(HashToken(token))
	if database.IsNotFound(err) {
		return nil, ErrInvalidToken
	}
	if err != nil {
		return nil, err
	}
	if user.Status != entities.UserStatusPending {
		return nil, ErrInvalidToken
	}
	if user.SetupTokenExpiresAt == nil || s.now().After(*user.SetupTokenExpiresAt) {
		return nil, ErrTokenExpired
	}
	return user, nil
}

// CompleteSetup sets the first password of a pending account and activates it.
func (s *Service) CompleteSetup(token, password string) (*entities.User, error) {
	user, err := s.LookupSetupToken(token)
	if err != nil {
		return nil, err
	}

	passwordHash, err := s.passwords.hash(password)
	if err != nil {
		return nil, err
	}

	ok, err := s.users.Activate(user.ID, passwordHash)
	if err != nil {
		return nil, fmt.Errorf("failed to activate account: %w", err)
	}
	if !ok {
		return nil, ErrInvalidToken
	}
	user.Status = entities.UserStatusActive
	return user, nil
}
