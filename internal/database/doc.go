// Package database provides the data access layer for the application.
//
// # Architecture
//
// The database layer is organized into domain-specific sub-packages:
//
//	database/
//	├── database.go      # Connection setup, migrations, error helpers
//	├── libraries/       # Libraries (tenants) and their subscriptions
//	├── members/         # Users of every role
//	├── books/           # Catalogue titles and copy counters
//	├── categories/      # Book categories
//	├── circulation/     # Borrowings and reservations
//	├── attendance/      # Daily presence records
//	├── messages/        # Internal messages and chat
//	├── notifications/   # User notifications
//	└── activity/        # Librarian activity log
//
// # Tenancy
//
// Every repository method that reads or writes library data takes the
// libraryID taken from the authenticated session. Rows belonging to another
// library are reported as not found, never returned.
//
// # Using Sub-packages
//
//	db, err := database.NewDatabase("./librarydesk.db")
//	booksRepo := books.NewRepository(db.DB)
//	book, err := booksRepo.GetByCode(libraryID, "B-001")
//
// # Adding a New Domain
//
//  1. Create a new sub-package: internal/database/<domain>/
//  2. Define a Repository struct with a *gorm.DB field
//  3. Add NewRepository(db *gorm.DB) constructor
//  4. Add a compile-time interface check in internal/interfaces
package database
