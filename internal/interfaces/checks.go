package interfaces

// This file contains compile-time interface implementation checks.
// These ensure that concrete types satisfy their interfaces at compile time,
// catching missing methods before runtime.
//
// To verify all checks pass: go build ./internal/interfaces/...

import (
	"github.com/mrlokans/librarydesk/internal/attendance"
	"github.com/mrlokans/librarydesk/internal/audit"
	"github.com/mrlokans/librarydesk/internal/auth"
	"github.com/mrlokans/librarydesk/internal/authz"
	"github.com/mrlokans/librarydesk/internal/catalog"
	"github.com/mrlokans/librarydesk/internal/circulation"
	"github.com/mrlokans/librarydesk/internal/covers"
	"github.com/mrlokans/librarydesk/internal/database/books"
	"github.com/mrlokans/librarydesk/internal/database/libraries"
	"github.com/mrlokans/librarydesk/internal/mail"
	"github.com/mrlokans/librarydesk/internal/members"
	"github.com/mrlokans/librarydesk/internal/notify"
	"github.com/mrlokans/librarydesk/internal/reservations"
	"github.com/mrlokans/librarydesk/internal/subscription"
	"github.com/mrlokans/librarydesk/internal/tasks"
)

// =============================================================================
// Data Access Layer
// =============================================================================

var _ subscription.Store = (*libraries.Repository)(nil)
var _ subscription.BookCounter = (*books.Repository)(nil)
var _ catalog.CoverStore = (*covers.Store)(nil)
var _ catalog.PlanChecker = (*subscription.Manager)(nil)

// =============================================================================
// Activity Log
// =============================================================================

var _ catalog.Auditor = (*audit.Service)(nil)
var _ members.Auditor = (*audit.Service)(nil)
var _ circulation.Auditor = (*audit.Service)(nil)
var _ reservations.Auditor = (*audit.Service)(nil)
var _ attendance.Auditor = (*audit.Service)(nil)
var _ auth.AuthAuditor = (*audit.Service)(nil)
var _ tasks.ActivityCleaner = (*audit.Service)(nil)

// =============================================================================
// Notifications and Mail
// =============================================================================

var _ circulation.Notifier = (*notify.Service)(nil)
var _ reservations.Notifier = (*notify.Service)(nil)

var _ members.Mailer = (*mail.EmailService)(nil)
var _ circulation.Mailer = (*mail.EmailService)(nil)
var _ tasks.EmailDeliverer = (*mail.EmailService)(nil)

var _ mail.Sender = (*mail.SMTPSender)(nil)
var _ mail.Sender = mail.LogSender{}
var _ mail.Enqueuer = (*tasks.Client)(nil)

// =============================================================================
// Background Work and Access Control
// =============================================================================

var _ tasks.OverdueSweeper = (*circulation.Service)(nil)
var _ auth.Authorizer = (*authz.Enforcer)(nil)
