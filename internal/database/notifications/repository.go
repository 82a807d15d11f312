package notifications

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

func (r *Repository) Create(n *entities.Notification) error {
	return r.db.Create(n).Error
}

// List returns a user's notifications, newest first.
func (r *Repository) List(libraryID uint, user entities.UserCode, unreadOnly bool, limit int) ([]entities.Notification, error) {
	query := r.db.Where("library_id = ? AND user_id = ?", libraryID, user)
	if unreadOnly {
		query = query.Where("is_read = ?", false)
	}
	if limit > 0 {
		query = query.Limit(limit)
	}
	var list []entities.Notification
	err := query.Order("created_at DESC, id DESC").Find(&list).Error
	return list, err
}

// MarkRead marks a single notification as read. Returns gorm.ErrRecordNotFound
// when it does not belong to the user.
func (r *Repository) MarkRead(libraryID, id uint, user entities.UserCode, at time.Time) error {
	var n entities.Notification
	err := r.db.Select("id").Where("id = ? AND library_id = ? AND user_id = ?", id, libraryID, user).First(&n).Error
	if err != nil {
		return err
	}
	return r.db.Model(&entities.Notification{}).
		Where("id = ? AND is_read = ?", id, false).
		Updates(map[string]interface{}{"is_read": true, "read_at": at}).Error
}

func (r *Repository) MarkAllRead(libraryID uint, user entities.UserCode, at time.Time) (int64, error) {
	result := r.db.Model(&entities.Notification{}).
		Where("library_id = ? AND user_id = ? AND is_read = ?", libraryID, user, false).
		Updates(map[string]interface{}{"is_read": true, "read_at": at})
	return result.RowsAffected, result.Error
}

func (r *Repository) UnreadCount(libraryID uint, user entities.UserCode) (int64, error) {
	var count int64
	err := r.db.Model(&entities.Notification{}).
		Where("library_id = ? AND user_id = ? AND is_read = ?", libraryID, user, false).
		Count(&count).Error
	return count, err
}
