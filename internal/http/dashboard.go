package http

import (
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/mrlokans/librarydesk/internal/attendance"
	"github.com/mrlokans/librarydesk/internal/audit"
	"github.com/mrlokans/librarydesk/internal/catalog"
	"github.com/mrlokans/librarydesk/internal/circulation"
	"github.com/mrlokans/librarydesk/internal/entities"
	"github.com/mrlokans/librarydesk/internal/members"
	"github.com/mrlokans/librarydesk/internal/notify"
	"github.com/mrlokans/librarydesk/internal/reservations"
	"github.com/mrlokans/librarydesk/internal/subscription"
)

const (
	dashboardActivity = 10
	dashboardOverdue  = 5
)

// DashboardStats are the counters on the librarian home page.
type DashboardStats struct {
	Titles              int64
	TotalCopies         int64
	AvailableCopies     int64
	ActiveMembers       int64
	PendingMembers      int64
	ActiveBorrowings    int64
	OverdueBorrowings   int64
	PendingReservations int64
	PresentToday        int64
	UnreadMessages      int64
	UnreadNotifications int64
}

type DashboardController struct {
	catalog       *catalog.Service
	members       *members.Service
	circulation   *circulation.Service
	reservations  *reservations.Service
	attendance    *attendance.Service
	notify        *notify.Service
	subscriptions *subscription.Manager
	audit         *audit.Service
}

func NewDashboardController(
	catalogSvc *catalog.Service,
	memberSvc *members.Service,
	circulationSvc *circulation.Service,
	reservationSvc *reservations.Service,
	attendanceSvc *attendance.Service,
	notifySvc *notify.Service,
	subscriptions *subscription.Manager,
	auditor *audit.Service,
) *DashboardController {
	return &DashboardController{
		catalog:       catalogSvc,
		members:       memberSvc,
		circulation:   circulationSvc,
		reservations:  reservationSvc,
		attendance:    attendanceSvc,
		notify:        notifySvc,
		subscriptions: subscriptions,
		audit:         auditor,
	}
}

// DashboardPage renders the librarian home page.
// GET /librarian/
func (dc *DashboardController) DashboardPage(c *gin.Context) {
	p := principal(c)

	stats, err := dc.stats(p.LibraryID, p.Code)
	if err != nil {
		pageError(c, err, "dashboard stats")
		return
	}

	overdue, err := dc.circulation.Overdue(p.LibraryID)
	if err != nil {
		pageError(c, err, "overdue borrowings")
		return
	}
	if len(overdue) > dashboardOverdue {
		overdue = overdue[:dashboardOverdue]
	}

	recent, err := dc.audit.Recent(p.LibraryID, dashboardActivity)
	if err != nil {
		pageError(c, err, "recent activity")
		return
	}

	plan, err := dc.subscriptions.GetSubscriptionDetails(p.LibraryID)
	if err != nil && !errors.Is(err, subscription.ErrNoSubscription) {
		pageError(c, err, "subscription details")
		return
	}

	render(c, http.StatusOK, "dashboard.html", gin.H{
		"Title":        "Dashboard",
		"Nav":          "dashboard",
		"Stats":        stats,
		"Overdue":      overdue,
		"Activity":     recent,
		"Subscription": plan,
		"Now":          time.Now(),
	})
}

func (dc *DashboardController) stats(libraryID uint, me entities.UserCode) (*DashboardStats, error) {
	var s DashboardStats

	books, err := dc.catalog.Stats(libraryID)
	if err != nil {
		return nil, err
	}
	s.Titles, s.TotalCopies, s.AvailableCopies = books.Titles, books.TotalCopies, books.AvailableCopies

	memberCounts, err := dc.members.Counts(libraryID)
	if err != nil {
		return nil, err
	}
	s.ActiveMembers = memberCounts[entities.UserStatusActive]
	s.PendingMembers = memberCounts[entities.UserStatusPending]

	loans, err := dc.circulation.Stats(libraryID)
	if err != nil {
		return nil, err
	}
	s.ActiveBorrowings, s.OverdueBorrowings = loans.Active, loans.Overdue

	reservationCounts, err := dc.reservations.Counts(libraryID)
	if err != nil {
		return nil, err
	}
	s.PendingReservations = reservationCounts[entities.ReservationStatusPending]

	if s.PresentToday, err = dc.attendance.PresentToday(libraryID); err != nil {
		return nil, err
	}
	if s.UnreadMessages, err = dc.notify.UnreadCount(libraryID, me); err != nil {
		return nil, err
	}
	if s.UnreadNotifications, err = dc.notify.GetUnreadCount(libraryID, me); err != nil {
		return nil, err
	}
	return &s, nil
}
