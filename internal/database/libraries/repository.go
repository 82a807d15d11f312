// Package libraries stores tenants and their subscriptions.
package libraries

import (
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

func (r *Repository) Create(lib *entities.Library) error {
	return r.db.Create(lib).Error
}

func (r *Repository) GetByID(id uint) (*entities.Library, error) {
	var lib entities.Library
	if err := r.db.First(&lib, id).Error; err != nil {
		return nil, err
	}
	return &lib, nil
}

func (r *Repository) List() ([]entities.Library, error) {
	var libs []entities.Library
	err := r.db.Order("name ASC").Find(&libs).Error
	return libs, err
}

// GetSubscription returns the library's subscription, or gorm.ErrRecordNotFound.
func (r *Repository) GetSubscription(libraryID uint) (*entities.Subscription, error) {
	var sub entities.Subscription
	if err := r.db.Where("library_id = ?", libraryID).First(&sub).Error; err != nil {
		return nil, err
	}
	return &sub, nil
}

// SaveSubscription inserts or replaces the single subscription row of a library.
func (r *Repository) SaveSubscription(sub *entities.Subscription) error {
	return r.db.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "library_id"}},
		DoUpdates: clause.AssignmentColumns([]string{"plan", "status", "starts_at", "expires_at", "updated_at"}),
	}).Create(sub).Error
}
