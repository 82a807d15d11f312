package http

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/mrlokans/librarydesk/internal/circulation"
	dbcirculation "github.com/mrlokans/librarydesk/internal/database/circulation"
	"github.com/mrlokans/librarydesk/internal/entities"
)

type BorrowingsController struct {
	circulation *circulation.Service
}

func NewBorrowingsController(svc *circulation.Service) *BorrowingsController {
	return &BorrowingsController{circulation: svc}
}

// HistoryPage lists borrowings. ?status= takes active, returned or overdue.
// GET /librarian/borrowings
func (bc *BorrowingsController) HistoryPage(c *gin.Context) {
	p := principal(c)
	limit, offset, page := pagination(c)

	status := c.Query("status")
	filter := dbcirculation.BorrowingFilter{
		Search: c.Query("q"),
		Limit:  limit,
		Offset: offset,
	}
	switch status {
	case "overdue":
		filter.Overdue = true
	case string(entities.BorrowingStatusActive), string(entities.BorrowingStatusReturned):
		filter.Status = entities.BorrowingStatus(status)
	default:
		status = ""
	}

	list, total, err := bc.circulation.History(p.LibraryID, filter)
	if err != nil {
		errorPage(c, http.StatusInternalServerError, flashError(c, err, "borrowing history"))
		return
	}

	render(c, http.StatusOK, "borrowings.html", gin.H{
		"Title":      "Borrowings",
		"Nav":        "borrowings",
		"Borrowings": list,
		"Total":      total,
		"Status":     status,
		"Query":      filter.Search,
		"Page":       page,
		"Pages":      totalPages(total),
		"Now":        time.Now(),
	})
}

// Issue lends a book to a member.
// POST /librarian/ajax/borrowings/issue
func (bc *BorrowingsController) Issue(c *gin.Context) {
	p := principal(c)
	userID, ok := parseFormID(c, "user_id")
	if !ok {
		return
	}
	bookID, ok := parseFormID(c, "book_id")
	if !ok {
		return
	}

	b, err := bc.circulation.Issue(c.Request.Context(), p.LibraryID, p.UserID, userID, bookID)
	if err != nil {
		respondServiceError(c, err, "issue book")
		return
	}
	respondOK(c, gin.H{
		"message":      "Book issued successfully",
		"borrowing_id": b.ID,
		"due_date":     b.DueDate.Format("2006-01-02"),
	})
}

// Return closes a loan.
// POST /librarian/ajax/borrowings/:id/return
func (bc *BorrowingsController) Return(c *gin.Context) {
	p := principal(c)
	id, ok := parseIDParam(c, "id")
	if !ok {
		return
	}

	result, err := bc.circulation.Return(c.Request.Context(), p.LibraryID, id, p.UserID)
	if err != nil {
		respondServiceError(c, err, "return book")
		return
	}
	respondOK(c, gin.H{
		"message":              "Book returned successfully",
		"reservation_returned": result.ReservationReturned,
	})
}

// Renew extends a loan's due date.
// POST /librarian/ajax/borrowings/:id/renew
func (bc *BorrowingsController) Renew(c *gin.Context) {
	p := principal(c)
	id, ok := parseIDParam(c, "id")
	if !ok {
		return
	}

	b, err := bc.circulation.Renew(c.Request.Context(), p.LibraryID, id, p.UserID)
	if err != nil {
		respondServiceError(c, err, "renew book")
		return
	}
	respondOK(c, gin.H{
		"message":       "Book renewed successfully",
		"due_date":      b.DueDate.Format("2006-01-02"),
		"renewal_count": b.RenewalCount,
	})
}
