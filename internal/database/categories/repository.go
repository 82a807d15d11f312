package categories

import (
	"gorm.io/gorm"

	"github.com/mrlokans/librarydesk/internal/entities"
)

type Repository struct {
	db *gorm.DB
}

func NewRepository(db *gorm.DB) *Repository {
	return &Repository{db: db}
}

func (r *Repository) Create(category *entities.Category) error {
	return r.db.Create(category).Error
}

func (r *Repository) GetByID(libraryID, id uint) (*entities.Category, error) {
	var category entities.Category
	err := r.db.Where("id = ? AND library_id = ?", id, libraryID).First(&category).Error
	if err != nil {
		return nil, err
	}
	return &category, nil
}

func (r *Repository) GetByName(libraryID uint, name string) (*entities.Category, error) {
	var category entities.Category
	err := r.db.Where("library_id = ? AND name = ?", libraryID, name).First(&category).Error
	if err != nil {
		return nil, err
	}
	return &category, nil
}

// List returns the library's categories sorted by name.
func (r *Repository) List(libraryID uint) ([]entities.Category, error) {
	var categories []entities.Category
	err := r.db.Where("library_id = ?", libraryID).Order("name ASC").Find(&categories).Error
	return categories, err
}
