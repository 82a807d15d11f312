package http

import (
	"github.com/mrlokans/librarydesk/internal/attendance"
	"github.com/mrlokans/librarydesk/internal/audit"
	"github.com/mrlokans/librarydesk/internal/auth"
	"github.com/mrlokans/librarydesk/internal/catalog"
	"github.com/mrlokans/librarydesk/internal/circulation"
	"github.com/mrlokans/librarydesk/internal/config"
	"github.com/mrlokans/librarydesk/internal/covers"
	"github.com/mrlokans/librarydesk/internal/database"
	"github.com/mrlokans/librarydesk/internal/members"
	"github.com/mrlokans/librarydesk/internal/notify"
	"github.com/mrlokans/librarydesk/internal/reservations"
	"github.com/mrlokans/librarydesk/internal/subscription"
)

// RouterConfig contains all dependencies and configuration needed
// to create the HTTP router.
type RouterConfig struct {
	// Core dependencies
	Database *database.Database
	Auditor  *audit.Service
	Version  string

	// Authentication
	AuthService    *auth.Service
	SessionManager *auth.SessionManager
	Authorizer     auth.Authorizer
	AuthConfig     config.Auth
	CSRFSecret     []byte

	// Librarian desk
	Catalog       *catalog.Service
	Covers        *covers.Store
	Members       *members.Service
	Circulation   *circulation.Service
	Reservations  *reservations.Service
	Notify        *notify.Service
	Attendance    *attendance.Service
	Subscriptions *subscription.Manager

	// UI paths. Empty paths use the embedded templates and assets.
	TemplatesPath string
	StaticPath    string

	// Upper bound for multipart bodies on book forms.
	MaxUploadSize int64

	MetricsEnabled bool

	// Extra readiness checks reported by /health.
	HealthChecks []HealthCheck
}
