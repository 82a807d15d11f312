package http

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/mrlokans/librarydesk/internal/attendance"
)

type AttendanceController struct {
	attendance *attendance.Service
}

func NewAttendanceController(svc *attendance.Service) *AttendanceController {
	return &AttendanceController{attendance: svc}
}

type attendanceForm struct {
	UserID    uint   `form:"user_id" binding:"required"`
	Date      string `form:"date"`
	Status    string `form:"status" binding:"required,oneof=present absent"`
	Arrival   string `form:"arrival_time"`
	Departure string `form:"departure_time"`
}

// AttendancePage shows the sheet for ?date= (today by default).
// GET /librarian/attendance
func (ac *AttendanceController) AttendancePage(c *gin.Context) {
	p := principal(c)
	sheet, err := ac.attendance.ForDate(p.LibraryID, c.Query("date"))
	if err != nil {
		pageError(c, err, "load attendance")
		return
	}
	render(c, http.StatusOK, "attendance.html", gin.H{
		"Title": "Attendance",
		"Nav":   "attendance",
		"Sheet": sheet,
		"Today": ac.attendance.Today(),
	})
}

// HistoryPage shows one member's attendance history.
// GET /librarian/attendance/history/:id
func (ac *AttendanceController) HistoryPage(c *gin.Context) {
	p := principal(c)
	id, err := strconv.ParseUint(c.Param("id"), 10, 32)
	if err != nil || id == 0 {
		errorPage(c, http.StatusNotFound, "Member not found")
		return
	}

	member, entries, err := ac.attendance.History(p.LibraryID, uint(id))
	if err != nil {
		pageError(c, err, "attendance history")
		return
	}
	render(c, http.StatusOK, "attendance_history.html", gin.H{
		"Title":   "Attendance history",
		"Nav":     "attendance",
		"Member":  member,
		"Entries": entries,
	})
}

// Mark records a member as present or absent for a day.
// POST /librarian/ajax/attendance
func (ac *AttendanceController) Mark(c *gin.Context) {
	p := principal(c)
	var form attendanceForm
	if err := c.ShouldBind(&form); err != nil {
		respondBadRequest(c, "Invalid request")
		return
	}

	ctx := c.Request.Context()
	if form.Status == "absent" {
		removed, err := ac.attendance.MarkAbsent(ctx, p.LibraryID, p.UserID, form.UserID, form.Date)
		if err != nil {
			respondServiceError(c, err, "mark absent")
			return
		}
		respondOK(c, gin.H{"message": "Attendance removed", "removed": removed})
		return
	}

	record, err := ac.attendance.MarkPresent(ctx, p.LibraryID, p.UserID, attendance.Mark{
		UserID:    form.UserID,
		Date:      form.Date,
		Arrival:   form.Arrival,
		Departure: form.Departure,
	})
	if err != nil {
		respondServiceError(c, err, "mark present")
		return
	}
	respondOK(c, gin.H{"message": "Attendance marked", "attendance": record})
}
