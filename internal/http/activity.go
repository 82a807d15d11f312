package http

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/mrlokans/librarydesk/internal/audit"
	"github.com/mrlokans/librarydesk/internal/database/activity"
	"github.com/mrlokans/librarydesk/internal/entities"
)

// activityActions populates the action filter on the activity page.
var activityActions = []string{
	entities.ActivityBookAdded,
	entities.ActivityBookUpdated,
	entities.ActivityBookDeleted,
	entities.ActivityCategoryAdded,
	entities.ActivityBookIssued,
	entities.ActivityBookReturned,
	entities.ActivityBookRenewed,
	entities.ActivityReservationApproved,
	entities.ActivityReservationRejected,
	entities.ActivityReservationFulfill,
	entities.ActivityMemberCreated,
	entities.ActivityMemberDeleted,
	entities.ActivitySetupResent,
	entities.ActivityAttendanceMarked,
	entities.ActivityAttendanceRemoved,
	entities.ActivityLogin,
	entities.ActivityLogout,
}

type ActivityController struct {
	audit *audit.Service
}

func NewActivityController(svc *audit.Service) *ActivityController {
	return &ActivityController{audit: svc}
}

// ActivityPage lists the library's activity log, newest first.
// GET /librarian/activity?action=&user=&page=
func (ac *ActivityController) ActivityPage(c *gin.Context) {
	p := principal(c)
	limit, offset, page := pagination(c)
	userID, _ := strconv.ParseUint(c.Query("user"), 10, 32)

	filter := activity.Filter{Action: c.Query("action"), UserID: uint(userID)}
	entries, total, err := ac.audit.List(p.LibraryID, filter, limit, offset)
	if err != nil {
		pageError(c, err, "list activity")
		return
	}
	render(c, http.StatusOK, "activity.html", gin.H{
		"Title":   "Activity log",
		"Nav":     "activity",
		"Entries": entries,
		"Total":   total,
		"Actions": activityActions,
		"Action":  filter.Action,
		"UserID":  filter.UserID,
		"Page":    page,
		"Pages":   totalPages(total),
	})
}
