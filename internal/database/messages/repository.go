// Package messages stores internal mail between library users.
package messages

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

func (r *Repository) Create(msg *entities.Message) error {
	return r.db.Create(msg).Error
}

// List returns the owner's messages for a view. Unread messages come first.
func (r *Repository) List(libraryID uint, owner entities.UserCode, view entities.MessageView, limit int) ([]entities.Message, error) {
	query := r.db.Where("library_id = ? AND is_deleted = ?", libraryID, false)
	switch view {
	case entities.MessageViewSent:
		query = query.Where("sender_code = ?", owner)
	case entities.MessageViewStarred:
		query = query.Where("(recipient_code = ? OR sender_code = ?) AND is_starred = ?", owner, owner, true)
	default:
		query = query.Where("recipient_code = ?", owner)
	}
	if limit > 0 {
		query = query.Limit(limit)
	}

	var list []entities.Message
	err := query.Order("is_read ASC, created_at DESC, id DESC").Find(&list).Error
	return list, err
}

// Get returns a message the owner sent or received.
func (r *Repository) Get(libraryID, id uint, owner entities.UserCode) (*entities.Message, error) {
	var msg entities.Message
	err := r.db.Where("id = ? AND library_id = ? AND is_deleted = ? AND (recipient_code = ? OR sender_code = ?)",
		id, libraryID, false, owner, owner).First(&msg).Error
	if err != nil {
		return nil, err
	}
	return &msg, nil
}

// MarkRead flags a received message as read. Already-read messages keep their read time.
func (r *Repository) MarkRead(libraryID, id uint, recipient entities.UserCode, at time.Time) error {
	var msg entities.Message
	err := r.db.Select("id").
		Where("id = ? AND library_id = ? AND recipient_code = ? AND is_deleted = ?", id, libraryID, recipient, false).
		First(&msg).Error
	if err != nil {
		return err
	}
	return r.db.Model(&entities.Message{}).
		Where("id = ? AND is_read = ?", id, false).
		Updates(map[string]interface{}{"is_read": true, "read_at": at}).Error
}

// ToggleStar flips the star flag and returns its new value.
func (r *Repository) ToggleStar(libraryID, id uint, owner entities.UserCode) (bool, error) {
	var starred bool
	err := r.db.Transaction(func(tx *gorm.DB) error {
		var msg entities.Message
		err := tx.Where("id = ? AND library_id = ? AND is_deleted = ? AND (recipient_code = ? OR sender_code = ?)",
			id, libraryID, false, owner, owner).First(&msg).Error
		if err != nil {
			return err
		}
		starred = !msg.IsStarred
		return tx.Model(&entities.Message{}).Where("id = ?", id).Update("is_starred", starred).Error
	})
	return starred, err
}

// SoftDelete hides a message from every view.
func (r *Repository) SoftDelete(libraryID, id uint, owner entities.UserCode) error {
	result := r.db.Model(&entities.Message{}).
		Where("id = ? AND library_id = ? AND (recipient_code = ? OR sender_code = ?)", id, libraryID, owner, owner).
		Update("is_deleted", true)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}

func (r *Repository) UnreadCount(libraryID uint, recipient entities.UserCode) (int64, error) {
	var count int64
	err := r.db.Model(&entities.Message{}).
		Where("library_id = ? AND recipient_code = ? AND is_read = ? AND is_deleted = ?", libraryID, recipient, false, false).
		Count(&count).Error
	return count, err
}

// Conversation returns chat messages between two users in chronological order.
func (r *Repository) Conversation(libraryID uint, me, other entities.UserCode, limit int) ([]entities.Message, error) {
	query := r.db.Where("library_id = ? AND is_deleted = ? AND ((sender_code = ? AND recipient_code = ?) OR (sender_code = ? AND recipient_code = ?))",
		libraryID, false, me, other, other, me)
	if limit > 0 {
		// newest N, flipped back below
		query = query.Order("created_at DESC, id DESC").Limit(limit)
	}

	var list []entities.Message
	if err := query.Find(&list).Error; err != nil {
		return nil, err
	}
	if limit <= 0 {
		return list, nil
	}
	for i, j := 0, len(list)-1; i < j; i, j = i+1, j-1 {
		list[i], list[j] = list[j], list[i]
	}
	return list, nil
}

// MarkConversationRead marks everything other sent to me as read.
func (r *Repository) MarkConversationRead(libraryID uint, me, other entities.UserCode, at time.Time) (int64, error) {
	result := r.db.Model(&entities.Message{}).
		Where("library_id = ? AND sender_code = ? AND recipient_code = ? AND is_read = ?", libraryID, other, me, false).
		Updates(map[string]interface{}{"is_read": true, "read_at": at})
	return result.RowsAffected, result.Error
}
