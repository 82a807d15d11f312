package http

import (
	"errors"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/mrlokans/librarydesk/internal/attendance"
	"github.com/mrlokans/librarydesk/internal/auth"
	"github.com/mrlokans/librarydesk/internal/catalog"
	"github.com/mrlokans/librarydesk/internal/circulation"
	"github.com/mrlokans/librarydesk/internal/covers"
	"github.com/mrlokans/librarydesk/internal/logging"
	"github.com/mrlokans/librarydesk/internal/members"
	"github.com/mrlokans/librarydesk/internal/notify"
	"github.com/mrlokans/librarydesk/internal/reservations"
	"github.com/mrlokans/librarydesk/internal/subscription"
	"github.com/mrlokans/librarydesk/internal/validation"
)

// --- Response Types ---

// ErrorResponse is the body of validation and persistence failures.
type ErrorResponse struct {
	Error string `json:"error"`
}

// ConflictResponse is the body of requests refused because of the current state.
type ConflictResponse struct {
	Success bool   `json:"success"`
	Error   string `json:"error"`
}

// --- Error Response Helpers ---

func respondBadRequest(c *gin.Context, message string) {
	c.JSON(http.StatusBadRequest, ErrorResponse{Error: message})
}

func respondNotFound(c *gin.Context, resource string) {
	c.JSON(http.StatusNotFound, ErrorResponse{Error: resource + " not found"})
}

// respondConflict answers a request the current state does not allow.
func respondConflict(c *gin.Context, message string) {
	c.JSON(http.StatusConflict, ConflictResponse{Success: false, Error: message})
}

// respondInternalError logs the error and sends a generic 500.
// The actual error is never exposed to the client.
func respondInternalError(c *gin.Context, err error, context string) {
	l := logging.Ctx(c.Request.Context())
	l.Error().Err(err).Str("op", context).Msg("Internal error")
	c.JSON(http.StatusInternalServerError, ErrorResponse{Error: "An internal error occurred. Please try again."})
}

// --- Success Response Helpers ---

// respondOK sends {"success":true} merged with data.
func respondOK(c *gin.Context, data gin.H) {
	body := gin.H{"success": true}
	for k, v := range data {
		body[k] = v
	}
	c.JSON(http.StatusOK, body)
}

// --- Service error mapping ---

type errorMapping struct {
	err      error
	status   int
	message  string
	conflict bool
}

var serviceErrors = []errorMapping{
	{subscription.ErrSubscriptionInactive, http.StatusForbidden, "Your library does not have an active subscription.", false},
	{subscription.ErrBookLimitReached, http.StatusForbidden, "Book limit reached for your subscription plan. Please upgrade to add more books.", false},
	{subscription.ErrNoSubscription, http.StatusNotFound, "No subscription found for this library", false},

	{catalog.ErrDuplicateCode, http.StatusBadRequest, "A book with this ID already exists.", false},
	{catalog.ErrDuplicateISBN, http.StatusBadRequest, "A book with this ISBN already exists.", false},
	{catalog.ErrBookNotFound, http.StatusNotFound, "Book not found", false},
	{catalog.ErrCategoryNotFound, http.StatusBadRequest, "Category not found", false},
	{catalog.ErrCategoryExists, http.StatusBadRequest, "Category already exists", false},
	{catalog.ErrActiveBorrowings, http.StatusConflict, "Cannot delete a book that is currently borrowed", true},
	{catalog.ErrOpenReservations, http.StatusConflict, "Cannot delete a book with pending or approved reservations", true},
	{catalog.ErrCopiesBelowBorrowed, http.StatusBadRequest, "Total copies cannot be lower than the copies currently on loan", false},
	{covers.ErrTooLarge, http.StatusBadRequest, "Cover image is too large", false},
	{covers.ErrUnsupportedType, http.StatusBadRequest, "Cover image must be JPEG, PNG or GIF", false},

	{circulation.ErrBorrowingNotFound, http.StatusNotFound, "Borrowing not found", false},
	{circulation.ErrAlreadyReturned, http.StatusConflict, "This book has already been returned", true},
	{circulation.ErrNotActive, http.StatusConflict, "Only active borrowings can be renewed", true},
	{circulation.ErrRenewConflict, http.StatusConflict, "The borrowing was changed by someone else. Please reload and try again.", true},
	{circulation.ErrMemberNotFound, http.StatusNotFound, "Member not found", false},
	{circulation.ErrMemberNotActive, http.StatusConflict, "Only active members can borrow books", true},
	{circulation.ErrBookNotFound, http.StatusNotFound, "Book not found", false},
	{circulation.ErrNoCopiesAvailable, http.StatusConflict, "No copies of this book are available", true},

	{reservations.ErrNotFound, http.StatusNotFound, "Reservation not found", false},
	{reservations.ErrReasonRequired, http.StatusBadRequest, "A reason is required to reject a reservation", false},

	{notify.ErrNotFound, http.StatusNotFound, "Not found", false},
	{notify.ErrRecipientNotFound, http.StatusNotFound, "Recipient not found", false},
	{notify.ErrEmptyMessage, http.StatusBadRequest, "Message cannot be empty", false},
	{notify.ErrInvalidView, http.StatusBadRequest, "Invalid view", false},
	{notify.ErrTitleRequired, http.StatusBadRequest, "Title is required", false},

	{attendance.ErrMemberNotFound, http.StatusNotFound, "Member not found", false},
	{attendance.ErrMemberInactive, http.StatusConflict, "Only active members can be marked present", true},
	{attendance.ErrInvalidDate, http.StatusBadRequest, "Invalid date format", false},
	{attendance.ErrFutureDate, http.StatusBadRequest, "Attendance cannot be recorded for a future date", false},
	{attendance.ErrInvalidTime, http.StatusBadRequest, "Invalid time format, use HH:MM", false},
	{attendance.ErrDepartureBeforeIn, http.StatusBadRequest, "Departure time cannot be before arrival time", false},

	{members.ErrMemberNotFound, http.StatusNotFound, "Member not found", false},
	{members.ErrMemberPending, http.StatusConflict, "Pending members cannot be deleted. Resend the setup email or wait for activation.", true},
	{members.ErrNotPending, http.StatusConflict, "This member has already set up their account", true},
	{members.ErrActiveBorrowings, http.StatusConflict, "Cannot delete a member with active borrowings. Return all books first.", true},
	{members.ErrEmailExists, http.StatusBadRequest, "A user with this email already exists", false},
	{members.ErrEmailInvalid, http.StatusBadRequest, "Invalid email format", false},
	{members.ErrNameRequired, http.StatusBadRequest, "First name is required", false},
}

// describeError maps a service error to a status and a message safe to show.
// ok is false for errors that must be treated as internal.
func describeError(err error) (status int, message string, conflict, ok bool) {
	for _, m := range serviceErrors {
		if errors.Is(err, m.err) {
			return m.status, m.message, m.conflict, true
		}
	}

	var transition *reservations.TransitionError
	if errors.As(err, &transition) {
		return http.StatusConflict, capitalize(transition.Error()), true, true
	}

	var invalid validation.Errors
	if errors.As(err, &invalid) {
		return http.StatusBadRequest, invalid.First(), false, true
	}
	return http.StatusInternalServerError, "", false, false
}

// respondServiceError writes the JSON shape that matches err.
func respondServiceError(c *gin.Context, err error, context string) {
	status, message, conflict, ok := describeError(err)
	switch {
	case !ok:
		respondInternalError(c, err, context)
	case conflict:
		c.JSON(status, ConflictResponse{Success: false, Error: message})
	default:
		c.JSON(status, ErrorResponse{Error: message})
	}
}

// flashError is the message used when a page form post fails.
func flashError(c *gin.Context, err error, context string) string {
	if _, message, _, ok := describeError(err); ok {
		return message
	}
	l := logging.Ctx(c.Request.Context())
	l.Error().Err(err).Str("op", context).Msg("Internal error")
	return "Something went wrong. Please try again."
}

func capitalize(s string) string {
	if s == "" {
		return s
	}
	return strings.ToUpper(s[:1]) + s[1:]
}

// --- Parameter Parsing ---

// parseIDParam extracts and validates an unsigned integer ID from URL parameters.
// Returns the parsed ID or responds with a 400 error and returns 0, false.
func parseIDParam(c *gin.Context, paramName string) (uint, bool) {
	id, err := strconv.ParseUint(c.Param(paramName), 10, 32)
	if err != nil || id == 0 {
		respondBadRequest(c, "Invalid "+paramName)
		return 0, false
	}
	return uint(id), true
}

// parseFormID reads an id from the form body or query string.
func parseFormID(c *gin.Context, name string) (uint, bool) {
	raw := c.PostForm(name)
	if raw == "" {
		raw = c.Query(name)
	}
	if raw == "" {
		respondBadRequest(c, name+" is required")
		return 0, false
	}
	id, err := strconv.ParseUint(raw, 10, 32)
	if err != nil || id == 0 {
		respondBadRequest(c, "Invalid "+name)
		return 0, false
	}
	return uint(id), true
}

const defaultPageSize = 25

// pagination reads ?page= and returns limit, offset and the page number.
func pagination(c *gin.Context) (limit, offset, page int) {
	page, _ = strconv.Atoi(c.Query("page"))
	if page < 1 {
		page = 1
	}
	return defaultPageSize, (page - 1) * defaultPageSize, page
}

func totalPages(total int64) int {
	return int((total + defaultPageSize - 1) / defaultPageSize)
}

// --- Pages ---

// principal returns the librarian of a request inside the /librarian group.
func principal(c *gin.Context) *auth.Principal {
	return auth.MustPrincipal(c)
}

// render executes a page template with the data every page needs.
func render(c *gin.Context, status int, name string, data gin.H) {
	if data == nil {
		data = gin.H{}
	}
	data["Principal"] = auth.GetPrincipal(c)
	data["CSRFField"] = auth.CSRFTokenField(c)
	data["CSRFToken"] = auth.GetCSRFToken(c)
	if _, ok := data["Success"]; !ok {
		data["Success"] = c.Query("success")
	}
	if _, ok := data["Error"]; !ok {
		data["Error"] = c.Query("error")
	}
	c.HTML(status, name, data)
}

// redirectWithFlash redirects to path with ?success= or ?error= appended.
func redirectWithFlash(c *gin.Context, path, key, message string) {
	sep := "?"
	if strings.Contains(path, "?") {
		sep = "&"
	}
	c.Redirect(http.StatusSeeOther, path+sep+key+"="+url.QueryEscape(message))
}

// errorPage renders a full-page error.
func errorPage(c *gin.Context, status int, message string) {
	render(c, status, "error.html", gin.H{"Title": http.StatusText(status), "Message": message})
}

// pageError renders the error page that matches a service error.
func pageError(c *gin.Context, err error, context string) {
	status, message, _, ok := describeError(err)
	if !ok {
		errorPage(c, http.StatusInternalServerError, flashError(c, err, context))
		return
	}
	errorPage(c, status, message)
}

// stringKeys converts a status count map so templates can index it with literals.
func stringKeys[K ~string](m map[K]int64) map[string]int64 {
	out := make(map[string]int64, len(m))
	for k, v := range m {
		out[string(k)] = v
	}
	return out
}
