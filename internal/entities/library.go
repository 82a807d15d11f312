package entities

import "time"

type SubscriptionPlan string

const (
	SubscriptionPlanBasic    SubscriptionPlan = "basic"
	SubscriptionPlanStandard SubscriptionPlan = "standard"
	SubscriptionPlanPremium  SubscriptionPlan = "premium"
)

// BookLimit returns the maximum number of books the plan allows. Zero means unlimited.
func (p SubscriptionPlan) BookLimit() int64 {
	switch p {
	case SubscriptionPlanBasic:
		return 500
	case SubscriptionPlanStandard:
		return 5000
	default:
		return 0
	}
}

func (p SubscriptionPlan) IsValid() bool {
	switch p {
	case SubscriptionPlanBasic, SubscriptionPlanStandard, SubscriptionPlanPremium:
		return true
	}
	return false
}

type SubscriptionStatus string

const (
	SubscriptionStatusActive    SubscriptionStatus = "active"
	SubscriptionStatusExpired   SubscriptionStatus = "expired"
	SubscriptionStatusCancelled SubscriptionStatus = "cancelled"
)

// Library is the tenant boundary. Every domain row carries its ID.
type Library struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	Name      string    `gorm:"size:255;not null" json:"name"`
	Email     string    `gorm:"size:255" json:"email,omitempty"`
	Address   string    `gorm:"size:512" json:"address,omitempty"`
	Phone     string    `gorm:"size:50" json:"phone,omitempty"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

func (Library) TableName() string {
	return "libraries"
}

type Subscription struct {
	ID        uint               `gorm:"primaryKey" json:"id"`
	LibraryID uint               `gorm:"uniqueIndex;not null" json:"library_id"`
	Plan      SubscriptionPlan   `gorm:"size:20;not null" json:"plan"`
	Status    SubscriptionStatus `gorm:"size:20;not null;index" json:"status"`
	StartsAt  time.Time          `json:"starts_at"`
	ExpiresAt *time.Time         `json:"expires_at,omitempty"`
	CreatedAt time.Time          `json:"created_at"`
	UpdatedAt time.Time          `json:"updated_at"`
}

func (Subscription) TableName() string {
	return "subscriptions"
}

// IsActive reports whether the subscription is usable at the given instant.
func (s *Subscription) IsActive(now time.Time) bool {
	if s == nil || s.Status != SubscriptionStatusActive {
		return false
	}
	return s.ExpiresAt == nil || s.ExpiresAt.After(now)
}
