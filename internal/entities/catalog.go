package entities

import "time"

type Category struct {
	ID          uint      `gorm:"primaryKey" json:"id"`
	LibraryID   uint      `gorm:"uniqueIndex:idx_categories_library_name;not null" json:"library_id"`
	Name        string    `gorm:"uniqueIndex:idx_categories_library_name;size:100;not null" json:"name"`
	Description string    `gorm:"size:500" json:"description,omitempty"`
	CreatedAt   time.Time `json:"created_at"`
}

func (Category) TableName() string {
	return "categories"
}

// Book is a catalogue title. Code is the librarian-assigned book ID, unique per library.
type Book struct {
	ID              uint      `gorm:"primaryKey" json:"id"`
	LibraryID       uint      `gorm:"uniqueIndex:idx_books_library_code;uniqueIndex:idx_books_library_isbn;not null" json:"library_id"`
	Code            string    `gorm:"column:book_id;uniqueIndex:idx_books_library_code;size:50;not null" json:"book_id"`
	Title           string    `gorm:"index;size:512;not null" json:"title"`
	Author          string    `gorm:"index;size:256;not null" json:"author"`
	CategoryID      *uint     `gorm:"index" json:"category_id,omitempty"`
	Category        *Category `gorm:"foreignKey:CategoryID" json:"category,omitempty"`
	ISBN            *string   `gorm:"uniqueIndex:idx_books_library_isbn;size:20" json:"isbn,omitempty"`
	Publisher       string    `gorm:"size:256" json:"publisher,omitempty"`
	PublicationYear int       `json:"publication_year,omitempty"`
	Description     string    `gorm:"type:text" json:"description,omitempty"`
	Location        string    `gorm:"size:100" json:"location,omitempty"`
	TotalCopies     int       `gorm:"not null;default:1" json:"total_copies"`
	AvailableCopies int       `gorm:"not null;default:1" json:"available_copies"`
	CoverImage      string    `gorm:"size:255" json:"cover_image,omitempty"`
	CreatedAt       time.Time `json:"created_at"`
	UpdatedAt       time.Time `json:"updated_at"`
}

func (Book) TableName() string {
	return "books"
}

func (b *Book) CategoryName() string {
	if b.Category == nil {
		return ""
	}
	return b.Category.Name
}

func (b *Book) ISBNValue() string {
	if b.ISBN == nil {
		return ""
	}
	return *b.ISBN
}
