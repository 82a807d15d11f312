// Package interfaces documents the seams between the librarian desk packages.
//
// Services depend on small consumer-side interfaces instead of each other's
// concrete types, so tests can swap in fakes and the wiring lives in one place
// (internal/entrypoint).
//
// # Interface Categories
//
// ## Activity Log
//
//   - catalog.Auditor, members.Auditor, circulation.Auditor,
//     reservations.Auditor, attendance.Auditor: record librarian actions
//   - auth.AuthAuditor: login and logout events
//   - tasks.ActivityCleaner: retention cleanup
//
// All are satisfied by *audit.Service.
//
// ## Notifications and Mail
//
//   - circulation.Notifier, reservations.Notifier: in-app notifications (*notify.Service)
//   - members.Mailer, circulation.Mailer: account and overdue emails (*mail.EmailService)
//   - mail.Sender: the transport (*mail.SMTPSender, mail.LogSender)
//   - mail.Enqueuer: hands messages to the task queue (*tasks.Client)
//
// ## Subscriptions and Storage
//
//   - catalog.PlanChecker: book limits per plan (*subscription.Manager)
//   - catalog.CoverStore: uploaded covers on disk (*covers.Store)
//   - subscription.Store, subscription.BookCounter: repositories
//
// ## Access Control
//
//   - auth.Authorizer: role/path/method decisions (*authz.Enforcer)
//
// # Adding a New Notification Channel
//
// To push notifications somewhere other than the database (e.g. SMS):
//
//  1. Implement the notifier in a new package:
//
//     type SMSNotifier struct{ client *twilio.Client }
//
//     func (n *SMSNotifier) Notify(ctx context.Context, note *entities.Notification)
//
//  2. Add compile-time checks in checks.go:
//
//     var _ circulation.Notifier = (*SMSNotifier)(nil)
//
//  3. Pass it to circulation.NewService in entrypoint.go
//
// # Adding a New Database Domain
//
//  1. Create sub-package: internal/database/fines/
//
//  2. Define repository:
//
//     type Repository struct { db *gorm.DB }
//
//     func NewRepository(db *gorm.DB) *Repository
//
//  3. Every query is scoped by library_id
//
//  4. Add the entity to the AutoMigrate list in database.NewDatabase
//
// # Compile-Time Interface Checks
//
// All implementations should include compile-time checks to ensure they satisfy
// their interfaces. This catches missing methods at compile time rather than runtime:
//
//	var _ SomeInterface = (*MyImplementation)(nil)
//
// See checks.go.
package interfaces
