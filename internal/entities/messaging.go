package entities

import "time"

// ChatSubject is the fixed subject given to chat-style messages.
const ChatSubject = "Chat Message"

type MessageView string

const (
	MessageViewInbox   MessageView = "inbox"
	MessageViewSent    MessageView = "sent"
	MessageViewStarred MessageView = "starred"
)

func (v MessageView) IsValid() bool {
	switch v {
	case MessageViewInbox, MessageViewSent, MessageViewStarred:
		return true
	}
	return false
}

type Message struct {
	ID            uint       `gorm:"primaryKey" json:"id"`
	LibraryID     uint       `gorm:"index;not null" json:"library_id"`
	SenderCode    UserCode   `gorm:"index;size:32;not null" json:"sender_id"`
	RecipientCode UserCode   `gorm:"index;size:32;not null" json:"recipient_id"`
	Subject       string     `gorm:"size:255" json:"subject"`
	Body          string     `gorm:"type:text;not null" json:"message"`
	IsRead        bool       `gorm:"not null;default:false;index" json:"is_read"`
	IsStarred     bool       `gorm:"not null;default:false" json:"is_starred"`
	IsDeleted     bool       `gorm:"not null;default:false" json:"is_deleted"`
	ReadAt        *time.Time `json:"read_at,omitempty"`
	CreatedAt     time.Time  `gorm:"index" json:"created_at"`

	SenderName    string `gorm:"-" json:"sender_name,omitempty"`
	RecipientName string `gorm:"-" json:"recipient_name,omitempty"`
}

func (Message) TableName() string {
	return "messages"
}

type NotificationType string

const (
	NotificationTypeReservation NotificationType = "reservation"
	NotificationTypeBorrowing   NotificationType = "borrowing"
	NotificationTypeOverdue     NotificationType = "overdue"
	NotificationTypeMessage     NotificationType = "message"
	NotificationTypeSystem      NotificationType = "system"
)

type Notification struct {
	ID        uint             `gorm:"primaryKey" json:"id"`
	LibraryID uint             `gorm:"index;not null" json:"library_id"`
	UserCode  UserCode         `gorm:"column:user_id;index;size:32;not null" json:"user_id"`
	Type      NotificationType `gorm:"size:30;not null" json:"type"`
	Title     string           `gorm:"size:255;not null" json:"title"`
	Message   string           `gorm:"type:text" json:"message"`
	Link      string           `gorm:"size:512" json:"link,omitempty"`
	IsRead    bool             `gorm:"not null;default:false;index" json:"is_read"`
	ReadAt    *time.Time       `json:"read_at,omitempty"`
	CreatedAt time.Time        `gorm:"index" json:"created_at"`
}

func (Notification) TableName() string {
	return "notifications"
}
