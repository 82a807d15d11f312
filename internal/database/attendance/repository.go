package attendance

import (
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/mrlokans/librarydesk/internal/entities"
)

type Repository struct {
	db *gorm.DB
}

func NewRepository(db *gorm.DB) *Repository {
	return &Repository{db: db}
}

// PresentMember is a member row on the daily attendance sheet.
type PresentMember struct {
	entities.User
	AttendanceID  *uint
	ArrivalTime   *string
	DepartureTime *string
}

// Present reports whether the member has an attendance row for the day.
func (p *PresentMember) Present() bool {
	return p.AttendanceID != nil
}

// Upsert records presence for a day. Marking twice keeps one row and updates its times.
func (r *Repository) Upsert(a *entities.Attendance) error {
	return r.db.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "user_id"}, {Name: "library_id"}, {Name: "date"}},
		DoUpdates: clause.AssignmentColumns([]string{"arrival_time", "departure_time", "updated_at"}),
	}).Create(a).Error
}

// Delete removes presence for a day. Deleting a missing row is not an error.
func (r *Repository) Delete(libraryID, userID uint, date string) (bool, error) {
	result := r.db.Where("library_id = ? AND user_id = ? AND date = ?", libraryID, userID, date).
		Delete(&entities.Attendance{})
	return result.RowsAffected > 0, result.Error
}

func (r *Repository) Get(libraryID, userID uint, date string) (*entities.Attendance, error) {
	var a entities.Attendance
	err := r.db.Where("library_id = ? AND user_id = ? AND date = ?", libraryID, userID, date).First(&a).Error
	if err != nil {
		return nil, err
	}
	return &a, nil
}

// ForDate lists the library's active members with their attendance on date.
func (r *Repository) ForDate(libraryID uint, date string) ([]PresentMember, error) {
	var rows []PresentMember
	err := r.db.Model(&entities.User{}).
		Select("users.*, attendance.id AS attendance_id, attendance.arrival_time, attendance.departure_time").
		Joins("LEFT JOIN attendance ON attendance.user_id = users.id AND attendance.library_id = users.library_id AND attendance.date = ?", date).
		Where("users.library_id = ? AND users.role = ? AND users.status = ?", libraryID, entities.UserRoleMember, entities.UserStatusActive).
		Order("users.first_name ASC, users.last_name ASC").
		Scan(&rows).Error
	return rows, err
}

// History returns a member's attendance, most recent day first.
func (r *Repository) History(libraryID, userID uint, limit int) ([]entities.Attendance, error) {
	query := r.db.Where("library_id = ? AND user_id = ?", libraryID, userID).Order("date DESC")
	if limit > 0 {
		query = query.Limit(limit)
	}
	var list []entities.Attendance
	err := query.Find(&list).Error
	return list, err
}

func (r *Repository) CountForDate(libraryID uint, date string) (int64, error) {
	var count int64
	err := r.db.Model(&entities.Attendance{}).Where("library_id = ? AND date = ?", libraryID, date).Count(&count).Error
	return count, err
}

// Today formats t as an attendance date.
func Today(t time.Time) string {
	return t.Format(entities.AttendanceDateLayout)
}
