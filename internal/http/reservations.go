package http

import (
	"net/http"

	"github.com/gin-gonic/gin"

	dbcirculation "github.com/mrlokans/librarydesk/internal/database/circulation"
	"github.com/mrlokans/librarydesk/internal/entities"
	"github.com/mrlokans/librarydesk/internal/reservations"
)

type ReservationsController struct {
	reservations *reservations.Service
}

func NewReservationsController(svc *reservations.Service) *ReservationsController {
	return &ReservationsController{reservations: svc}
}

// ReservationsPage lists reservations with per-status counts.
// GET /librarian/reservations
func (rc *ReservationsController) ReservationsPage(c *gin.Context) {
	p := principal(c)
	limit, offset, page := pagination(c)

	status := entities.ReservationStatus(c.Query("status"))
	if !status.IsValid() {
		status = ""
	}
	list, total, err := rc.reservations.List(p.LibraryID, dbcirculation.ReservationFilter{
		Status: status,
		Limit:  limit,
		Offset: offset,
	})
	if err != nil {
		errorPage(c, http.StatusInternalServerError, flashError(c, err, "list reservations"))
		return
	}
	counts, err := rc.reservations.Counts(p.LibraryID)
	if err != nil {
		errorPage(c, http.StatusInternalServerError, flashError(c, err, "count reservations"))
		return
	}

	render(c, http.StatusOK, "reservations.html", gin.H{
		"Title":        "Reservations",
		"Nav":          "reservations",
		"Reservations": list,
		"Total":        total,
		"Counts":       stringKeys(counts),
		"Status":       string(status),
		"Page":         page,
		"Pages":        totalPages(total),
	})
}

type reservationStatusForm struct {
	ReservationID uint   `form:"reservation_id"`
	Action        string `form:"action"`
	Notes         string `form:"notes"`
	Reason        string `form:"reason"`
}

// UpdateStatus approves, rejects or fulfills a reservation.
// POST /librarian/ajax/reservations/status
func (rc *ReservationsController) UpdateStatus(c *gin.Context) {
	p := principal(c)
	var form reservationStatusForm
	if err := c.ShouldBind(&form); err != nil || form.ReservationID == 0 || form.Action == "" {
		respondBadRequest(c, "Invalid request")
		return
	}

	ctx := c.Request.Context()
	var (
		res *entities.Reservation
		err error
		msg string
	)
	switch form.Action {
	case "approve":
		res, err = rc.reservations.Approve(ctx, p.LibraryID, form.ReservationID, p.UserID, form.Notes)
		msg = "Reservation approved successfully"
	case "reject":
		res, err = rc.reservations.Reject(ctx, p.LibraryID, form.ReservationID, p.UserID, form.Reason)
		msg = "Reservation rejected"
	case "fulfill":
		res, err = rc.reservations.Fulfill(ctx, p.LibraryID, form.ReservationID, p.UserID)
		msg = "Reservation marked as fulfilled"
	default:
		respondBadRequest(c, "Invalid action")
		return
	}
	if err != nil {
		respondServiceError(c, err, "reservation "+form.Action)
		return
	}
	respondOK(c, gin.H{"message": msg, "status": res.Status})
}
