package entities

import "time"

// AttendanceDateLayout is the storage format of Attendance.Date.
const AttendanceDateLayout = "2006-01-02"

// Attendance is one presence record per member, library and day.
// Legacy rows carry no times; they still mean the member was present.
type Attendance struct {
	ID            uint      `gorm:"primaryKey" json:"id"`
	LibraryID     uint      `gorm:"uniqueIndex:idx_attendance_user_library_date;not null" json:"library_id"`
	UserID        uint      `gorm:"uniqueIndex:idx_attendance_user_library_date;not null" json:"user_id"`
	Date          string    `gorm:"uniqueIndex:idx_attendance_user_library_date;size:10;not null" json:"date"`
	ArrivalTime   *string   `gorm:"size:5" json:"arrival_time,omitempty"`
	DepartureTime *string   `gorm:"size:5" json:"departure_time,omitempty"`
	CreatedAt     time.Time `json:"created_at"`
	UpdatedAt     time.Time `json:"updated_at"`
}

func (Attendance) TableName() string {
	return "attendance"
}

func (a *Attendance) HasTimes() bool {
	return a.ArrivalTime != nil || a.DepartureTime != nil
}

// DisplayStatus is the label shown in attendance history.
func (a *Attendance) DisplayStatus() string {
	if !a.HasTimes() {
		return "Present (time not recorded)"
	}
	return "Present"
}
