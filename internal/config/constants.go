package config

const (
	// DefaultDatabasePath is the default path for the main application database
	DefaultDatabasePath = "./librarydesk.db"

	// DefaultUploadsDir is where uploaded book covers are stored
	DefaultUploadsDir = "./uploads/covers"

	// DefaultMaxCoverSize is the largest accepted cover upload (5 MiB)
	DefaultMaxCoverSize = 5 << 20

	// DefaultLoanPeriodDays is the due-date offset for newly issued books
	DefaultLoanPeriodDays = 14

	// DefaultRenewalDays is added to the current due date on every renewal
	DefaultRenewalDays = 14
)
