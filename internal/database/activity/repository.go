package activity

import (
	"time"

	"gorm.io/gorm"

	"github.com/mrlokans/librarydesk/internal/entities"
)

type Repository struct {
	db *gorm.DB
}

func NewRepository(db *gorm.DB) *Repository {
	return &Repository{db: db}
}

// Filter narrows List results. Zero values match everything.
type Filter struct {
	Action string
	UserID uint
}

// LogEvent appends an entry to the activity log.
func (r *Repository) LogEvent(entry *entities.ActivityLog) error {
	if entry.CreatedAt.IsZero() {
		entry.CreatedAt = time.Now()
	}
	if entry.Status == "" {
		entry.Status = entities.ActivityStatusSuccess
	}
	return r.db.Create(entry).Error
}

// List returns a page of a library's activity, most recent first.
func (r *Repository) List(libraryID uint, filter Filter, limit, offset int) ([]entities.ActivityLog, int64, error) {
	var entries []entities.ActivityLog
	var total int64

	query := r.db.Model(&entities.ActivityLog{}).Where("library_id = ?", libraryID)
	if filter.Action != "" {
		query = query.Where("action = ?", filter.Action)
	}
	if filter.UserID > 0 {
		query = query.Where("user_id = ?", filter.UserID)
	}

	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	if limit <= 0 {
		limit = 50
	}
	if offset < 0 {
		offset = 0
	}

	err := query.Order("created_at DESC").Order("id DESC").Limit(limit).Offset(offset).Find(&entries).Error
	return entries, total, err
}

// Recent returns the latest entries for the dashboard.
func (r *Repository) Recent(libraryID uint, limit int) ([]entities.ActivityLog, error) {
	entries, _, err := r.List(libraryID, Filter{}, limit, 0)
	return entries, err
}

// DeleteOlderThan removes entries created before the cutoff across all libraries.
func (r *Repository) DeleteOlderThan(cutoff time.Time) (int64, error) {
	result := r.db.Where("created_at < ?", cutoff).Delete(&entities.ActivityLog{})
	return result.RowsAffected, result.Error
}
