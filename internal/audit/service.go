// Package audit records what librarians do into the per-library activity log.
package audit

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"github.com/mrlokans/librarydesk/internal/database/activity"
	"github.com/mrlokans/librarydesk/internal/entities"
	"github.com/mrlokans/librarydesk/internal/logging"
)

// Entry describes one librarian action.
type Entry struct {
	LibraryID   uint
	UserID      uint
	Action      string
	Description string
	EntityType  string
	EntityID    uint
	Metadata    map[string]any
	IPAddress   string
	Err         error
}

// Service provides high-level activity logging.
type Service struct {
	repo *activity.Repository
	wg   sync.WaitGroup
}

// NewService creates a new audit service.
func NewService(repo *activity.Repository) *Service {
	return &Service{repo: repo}
}

// Log records an entry synchronously.
func (s *Service) Log(entry Entry) error {
	return s.repo.LogEvent(toActivityLog(entry))
}

// LogAsync records an entry in the background. Failures are only logged.
func (s *Service) LogAsync(ctx context.Context, entry Entry) {
	log := toActivityLog(entry)
	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		if err := s.repo.LogEvent(log); err != nil {
			logging.Ctx(ctx).Warn().Err(err).Str("action", log.Action).Msg("failed to record activity")
		}
	}()
}

// Wait blocks until pending asynchronous writes finish.
func (s *Service) Wait() {
	s.wg.Wait()
}

// LogBook records a catalog change.
func (s *Service) LogBook(ctx context.Context, libraryID, userID uint, action string, book *entities.Book) {
	verb := map[string]string{
		entities.ActivityBookAdded:   "Added",
		entities.ActivityBookUpdated: "Updated",
		entities.ActivityBookDeleted: "Deleted",
	}[action]
	s.LogAsync(ctx, Entry{
		LibraryID:   libraryID,
		UserID:      userID,
		Action:      action,
		Description: verb + " book: " + book.Title,
		EntityType:  "book",
		EntityID:    book.ID,
		Metadata:    map[string]any{"book_id": book.Code},
	})
}

// LogAuth records a login or logout.
func (s *Service) LogAuth(ctx context.Context, libraryID, userID uint, action, ipAddr string, err error) {
	s.LogAsync(ctx, Entry{
		LibraryID: libraryID,
		UserID:    userID,
		Action:    action,
		IPAddress: ipAddr,
		Err:       err,
	})
}

// List retrieves a page of a library's activity.
func (s *Service) List(libraryID uint, filter activity.Filter, limit, offset int) ([]entities.ActivityLog, int64, error) {
	return s.repo.List(libraryID, filter, limit, offset)
}

// Recent retrieves the newest entries for the dashboard.
func (s *Service) Recent(libraryID uint, limit int) ([]entities.ActivityLog, error) {
	return s.repo.Recent(libraryID, limit)
}

// DeleteOldEntries removes entries older than the retention window.
func (s *Service) DeleteOldEntries(retention time.Duration) (int64, error) {
	return s.repo.DeleteOlderThan(time.Now().Add(-retention))
}

func toActivityLog(entry Entry) *entities.ActivityLog {
	log := &entities.ActivityLog{
		LibraryID:   entry.LibraryID,
		UserID:      entry.UserID,
		Action:      entry.Action,
		Description: truncate(entry.Description, 500),
		EntityType:  entry.EntityType,
		IPAddress:   entry.IPAddress,
		Status:      entities.ActivityStatusSuccess,
	}
	if entry.EntityID > 0 {
		id := entry.EntityID
		log.EntityID = &id
	}
	if len(entry.Metadata) > 0 {
		if b, err := json.Marshal(entry.Metadata); err == nil {
			log.Metadata = string(b)
		}
	}
	if entry.Err != nil {
		log.Status = entities.ActivityStatusFailed
		log.ErrorMsg = truncate(entry.Err.Error(), 500)
	}
	return log
}

// truncate shortens a string to max length.
func truncate(s string, maxLen int) string {
	if len(s) <= maxLen {
		return s
	}
	return s[:maxLen-3] + "..."
}
