package entities

import (
	"strings"
	"time"

	"github.com/google/uuid"
)

type UserRole string

const (
	UserRoleLibrarian UserRole = "librarian"
	UserRoleMember    UserRole = "member"
	UserRoleAdmin     UserRole = "admin"
)

type UserStatus string

const (
	UserStatusActive   UserStatus = "active"
	UserStatusInactive UserStatus = "inactive"
	UserStatusPending  UserStatus = "pending"
)

// UserCode is the external, human-facing user identifier (e.g. "MEM-1A2B3C4D").
// Internal foreign keys use User.ID; messaging and notifications address users by code.
type UserCode string

func (c UserCode) String() string {
	return string(c)
}

// NewUserCode returns a fresh code for role, e.g. "MEM-1A2B3C4D" or "LIB-9F00E1D2".
func NewUserCode(role UserRole) UserCode {
	prefix := "MEM"
	if role != UserRoleMember {
		prefix = "LIB"
	}
	id := strings.ToUpper(strings.ReplaceAll(uuid.NewString(), "-", ""))
	return UserCode(prefix + "-" + id[:8])
}

type User struct {
	ID                  uint       `gorm:"primaryKey" json:"id"`
	Code                UserCode   `gorm:"column:user_id;uniqueIndex;size:32;not null" json:"user_id"`
	LibraryID           uint       `gorm:"index;not null" json:"library_id"`
	FirstName           string     `gorm:"size:100" json:"first_name"`
	LastName            string     `gorm:"size:100" json:"last_name"`
	Email               string     `gorm:"uniqueIndex;size:255;not null" json:"email"`
	Phone               string     `gorm:"size:50" json:"phone,omitempty"`
	Role                UserRole   `gorm:"size:20;not null;index" json:"role"`
	Status              UserStatus `gorm:"size:20;not null;index" json:"status"`
	PasswordHash        string     `gorm:"size:255" json:"-"`
	SetupTokenHash      string     `gorm:"size:64;index" json:"-"`
	SetupTokenExpiresAt *time.Time `json:"-"`
	LastLoginAt         *time.Time `json:"last_login_at,omitempty"`
	FailedLoginCount    int        `gorm:"default:0" json:"-"`
	LockedUntil         *time.Time `json:"-"`
	CreatedAt           time.Time  `json:"created_at"`
	UpdatedAt           time.Time  `json:"updated_at"`

	Library Library `gorm:"foreignKey:LibraryID" json:"-"`
}

func (User) TableName() string {
	return "users"
}

func (u *User) FullName() string {
	return strings.TrimSpace(u.FirstName + " " + u.LastName)
}

func (u *User) IsLibrarian() bool {
	return u.Role == UserRoleLibrarian
}
