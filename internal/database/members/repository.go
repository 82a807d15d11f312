// Package members stores library users: members and librarians.
package members

import (
	"errors"
	"strings"
	"time"

	"gorm.io/gorm"

	"github.com/mrlokans/librarydesk/internal/entities"
)

// ErrActiveBorrowings is returned when a user still holds borrowed books.
var ErrActiveBorrowings = errors.New("member has active borrowings")

type Repository struct {
	db *gorm.DB
}

func NewRepository(db *gorm.DB) *Repository {
	return &Repository{db: db}
}

// ListFilter narrows List results. Zero values match everything.
type ListFilter struct {
	Role   entities.UserRole
	Status entities.UserStatus
	Search string
	Limit  int
	Offset int
}

func (r *Repository) Create(user *entities.User) error {
	return r.db.Create(user).Error
}

// GetByID returns a user that belongs to libraryID.
func (r *Repository) GetByID(libraryID, id uint) (*entities.User, error) {
	var user entities.User
	err := r.db.Where("id = ? AND library_id = ?", id, libraryID).First(&user).Error
	if err != nil {
		return nil, err
	}
	return &user, nil
}

// FindByID returns a user regardless of library. Used by the session layer.
func (r *Repository) FindByID(id uint) (*entities.User, error) {
	var user entities.User
	if err := r.db.Preload("Library").First(&user, id).Error; err != nil {
		return nil, err
	}
	return &user, nil
}

func (r *Repository) GetByCode(libraryID uint, code entities.UserCode) (*entities.User, error) {
	var user entities.User
	err := r.db.Where("user_id = ? AND library_id = ?", code, libraryID).First(&user).Error
	if err != nil {
		return nil, err
	}
	return &user, nil
}

func (r *Repository) GetByEmail(email string) (*entities.User, error) {
	var user entities.User
	err := r.db.Preload("Library").Where("email = ?", strings.ToLower(strings.TrimSpace(email))).First(&user).Error
	if err != nil {
		return nil, err
	}
	return &user, nil
}

func (r *Repository) GetBySetupTokenHash(hash string) (*entities.User, error) {
	var user entities.User
	if err := r.db.Where("setup_token_hash = ?", hash).First(&user).Error; err != nil {
		return nil, err
	}
	return &user, nil
}

// List returns a page of users in a library ordered by name, plus the total match count.
func (r *Repository) List(libraryID uint, filter ListFilter) ([]entities.User, int64, error) {
	query := r.db.Model(&entities.User{}).Where("library_id = ?", libraryID)
	if filter.Role != "" {
		query = query.Where("role = ?", filter.Role)
	}
	if filter.Status != "" {
		query = query.Where("status = ?", filter.Status)
	}
	if s := strings.TrimSpace(filter.Search); s != "" {
		like := "%" + s + "%"
		query = query.Where("first_name LIKE ? OR last_name LIKE ? OR email LIKE ? OR user_id LIKE ?", like, like, like, like)
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	if filter.Limit > 0 {
		query = query.Limit(filter.Limit).Offset(filter.Offset)
	}

	var users []entities.User
	err := query.Order("first_name ASC, last_name ASC, id ASC").Find(&users).Error
	return users, total, err
}

// CountByStatus counts members of a library grouped by status.
func (r *Repository) CountByStatus(libraryID uint) (map[entities.UserStatus]int64, error) {
	var rows []struct {
		Status entities.UserStatus
		Count  int64
	}
	err := r.db.Model(&entities.User{}).
		Select("status, COUNT(*) AS count").
		Where("library_id = ? AND role = ?", libraryID, entities.UserRoleMember).
		Group("status").
		Scan(&rows).Error
	if err != nil {
		return nil, err
	}

	counts := make(map[entities.UserStatus]int64, len(rows))
	for _, row := range rows {
		counts[row.Status] = row.Count
	}
	return counts, nil
}

// NamesByCode resolves display names for a set of user codes in one query.
func (r *Repository) NamesByCode(libraryID uint, codes []entities.UserCode) (map[entities.UserCode]string, error) {
	names := make(map[entities.UserCode]string, len(codes))
	if len(codes) == 0 {
		return names, nil
	}

	var users []entities.User
	err := r.db.Select("user_id", "first_name", "last_name").
		Where("library_id = ? AND user_id IN ?", libraryID, codes).
		Find(&users).Error
	if err != nil {
		return nil, err
	}
	for i := range users {
		names[users[i].Code] = users[i].FullName()
	}
	return names, nil
}

// UpdateSetupToken replaces the pending setup token of a user.
func (r *Repository) UpdateSetupToken(libraryID, id uint, hash string, expiresAt time.Time) error {
	result := r.db.Model(&entities.User{}).
		Where("id = ? AND library_id = ?", id, libraryID).
		Updates(map[string]interface{}{
			"setup_token_hash":       hash,
			"setup_token_expires_at": expiresAt,
		})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}

// Activate sets the password of a pending user, makes the account active and
// consumes the setup token. It returns false when the user was not pending.
func (r *Repository) Activate(id uint, passwordHash string) (bool, error) {
	result := r.db.Model(&entities.User{}).
		Where("id = ? AND status = ?", id, entities.UserStatusPending).
		Updates(map[string]interface{}{
			"password_hash":          passwordHash,
			"status":                 entities.UserStatusActive,
			"setup_token_hash":       "",
			"setup_token_expires_at": nil,
		})
	return result.RowsAffected == 1, result.Error
}

// RecordLogin stores a successful login and clears the failure counter.
func (r *Repository) RecordLogin(id uint, at time.Time) error {
	return r.db.Model(&entities.User{}).Where("id = ?", id).Updates(map[string]interface{}{
		"last_login_at":      at,
		"failed_login_count": 0,
		"locked_until":       nil,
	}).Error
}

// RecordFailedLogin increments the failure counter and locks the account once max is reached.
func (r *Repository) RecordFailedLogin(id uint, max int, lockFor time.Duration) error {
	return r.db.Transaction(func(tx *gorm.DB) error {
		var user entities.User
		if err := tx.Select("id", "failed_login_count").First(&user, id).Error; err != nil {
			return err
		}
		updates := map[string]interface{}{"failed_login_count": user.FailedLoginCount + 1}
		if max > 0 && user.FailedLoginCount+1 >= max {
			updates["locked_until"] = time.Now().Add(lockFor)
			updates["failed_login_count"] = 0
		}
		return tx.Model(&entities.User{}).Where("id = ?", id).Updates(updates).Error
	})
}

// Delete removes a user and the rows that only make sense while the user exists:
// attendance, notifications and open reservations. Loan history is kept.
func (r *Repository) Delete(libraryID, id uint) error {
	return r.db.Transaction(func(tx *gorm.DB) error {
		var user entities.User
		if err := tx.Where("id = ? AND library_id = ?", id, libraryID).First(&user).Error; err != nil {
			return err
		}

		var active int64
		err := tx.Model(&entities.Borrowing{}).
			Where("user_id = ? AND library_id = ? AND status = ?", id, libraryID, entities.BorrowingStatusActive).
			Count(&active).Error
		if err != nil {
			return err
		}
		if active > 0 {
			return ErrActiveBorrowings
		}

		if err := tx.Where("user_id = ? AND library_id = ?", id, libraryID).Delete(&entities.Attendance{}).Error; err != nil {
			return err
		}
		if err := tx.Where("user_id = ? AND library_id = ?", user.Code, libraryID).Delete(&entities.Notification{}).Error; err != nil {
			return err
		}
		err = tx.Where("user_id = ? AND library_id = ? AND status IN ?", id, libraryID,
			[]entities.ReservationStatus{entities.ReservationStatusPending, entities.ReservationStatusApproved}).
			Delete(&entities.Reservation{}).Error
		if err != nil {
			return err
		}

		return tx.Delete(&user).Error
	})
}
