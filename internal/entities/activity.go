package entities

import "time"

type ActivityStatus string

const (
	ActivityStatusSuccess ActivityStatus = "success"
	ActivityStatusFailed  ActivityStatus = "failed"
)

// Activity actions recorded for librarian operations.
const (
	ActivityBookAdded           = "book_added"
	ActivityBookUpdated         = "book_updated"
	ActivityBookDeleted         = "book_deleted"
	ActivityCategoryAdded       = "category_added"
	ActivityBookIssued          = "book_issued"
	ActivityBookReturned        = "book_returned"
	ActivityBookRenewed         = "book_renewed"
	ActivityReservationApproved = "reservation_approved"
	ActivityReservationRejected = "reservation_rejected"
	ActivityReservationFulfill  = "reservation_fulfilled"
	ActivityMemberCreated       = "member_created"
	ActivityMemberDeleted       = "member_deleted"
	ActivitySetupResent         = "member_setup_resent"
	ActivityAttendanceMarked    = "attendance_marked"
	ActivityAttendanceRemoved   = "attendance_removed"
	ActivityLogin               = "login"
	ActivityLogout              = "logout"
)

// ActivityLog is the append-only audit trail of librarian actions within a library.
type ActivityLog struct {
	ID          uint           `gorm:"primaryKey" json:"id"`
	LibraryID   uint           `gorm:"index;not null" json:"library_id"`
	UserID      uint           `gorm:"index" json:"user_id"`
	Action      string         `gorm:"index;size:100;not null" json:"action"`
	Description string         `gorm:"size:500" json:"description"`
	EntityType  string         `gorm:"size:50" json:"entity_type,omitempty"`
	EntityID    *uint          `gorm:"index" json:"entity_id,omitempty"`
	Metadata    string         `gorm:"type:text" json:"metadata,omitempty"`
	IPAddress   string         `gorm:"size:45" json:"ip_address,omitempty"`
	Status      ActivityStatus `gorm:"size:20" json:"status"`
	ErrorMsg    string         `gorm:"size:500" json:"error_msg,omitempty"`
	CreatedAt   time.Time      `gorm:"index" json:"created_at"`
}

func (ActivityLog) TableName() string {
	return "activity_logs"
}
