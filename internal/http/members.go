package http

import (
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	dbmembers "github.com/mrlokans/librarydesk/internal/database/members"
	"github.com/mrlokans/librarydesk/internal/entities"
	"github.com/mrlokans/librarydesk/internal/members"
)

const membersPath = "/librarian/members"

type MembersController struct {
	members *members.Service
}

func NewMembersController(svc *members.Service) *MembersController {
	return &MembersController{members: svc}
}

// MembersPage lists members filtered by status and search.
// GET /librarian/members
func (mc *MembersController) MembersPage(c *gin.Context) {
	p := principal(c)
	limit, offset, page := pagination(c)

	filter := dbmembers.ListFilter{
		Status: entities.UserStatus(c.Query("status")),
		Search: c.Query("q"),
		Limit:  limit,
		Offset: offset,
	}
	list, total, err := mc.members.List(p.LibraryID, filter)
	if err != nil {
		errorPage(c, http.StatusInternalServerError, flashError(c, err, "list members"))
		return
	}
	counts, err := mc.members.Counts(p.LibraryID)
	if err != nil {
		errorPage(c, http.StatusInternalServerError, flashError(c, err, "count members"))
		return
	}

	render(c, http.StatusOK, "members.html", gin.H{
		"Title":   "Members",
		"Nav":     "members",
		"Members": list,
		"Total":   total,
		"Counts":  stringKeys(counts),
		"Status":  string(filter.Status),
		"Query":   filter.Search,
		"Page":    page,
		"Pages":   totalPages(total),
	})
}

// CreateMember registers a pending member from the members page form.
// POST /librarian/members
func (mc *MembersController) CreateMember(c *gin.Context) {
	p := principal(c)
	in := members.Input{
		FirstName: c.PostForm("first_name"),
		LastName:  c.PostForm("last_name"),
		Email:     c.PostForm("email"),
		Phone:     c.PostForm("phone"),
	}

	user, err := mc.members.Create(c.Request.Context(), p.LibraryID, p.UserID, in)
	if err != nil {
		redirectWithFlash(c, membersPath, "error", flashError(c, err, "create member"))
		return
	}
	redirectWithFlash(c, membersPath, "success",
		fmt.Sprintf("Member %s created. A setup email was sent to %s.", user.FullName(), user.Email))
}

// MemberPage shows a member profile with loans and attendance.
// GET /librarian/members/:id
func (mc *MembersController) MemberPage(c *gin.Context) {
	p := principal(c)
	id, ok := mc.memberID(c)
	if !ok {
		return
	}

	profile, err := mc.members.View(p.LibraryID, id)
	if err != nil {
		pageError(c, err, "view member")
		return
	}
	render(c, http.StatusOK, "member.html", gin.H{
		"Title":   profile.Member.FullName(),
		"Nav":     "members",
		"Profile": profile,
		"Now":     time.Now(),
	})
}

// DeleteConfirmPage asks the librarian to confirm a deletion.
// GET /librarian/members/:id/delete
func (mc *MembersController) DeleteConfirmPage(c *gin.Context) {
	p := principal(c)
	id, ok := mc.memberID(c)
	if !ok {
		return
	}

	profile, err := mc.members.View(p.LibraryID, id)
	if err != nil {
		pageError(c, err, "load member")
		return
	}
	render(c, http.StatusOK, "member_delete.html", gin.H{
		"Title":   "Delete member",
		"Nav":     "members",
		"Profile": profile,
	})
}

// DeleteMember removes a member after confirmation.
// POST /librarian/members/:id/delete
func (mc *MembersController) DeleteMember(c *gin.Context) {
	p := principal(c)
	id, ok := mc.memberID(c)
	if !ok {
		return
	}

	user, err := mc.members.Delete(c.Request.Context(), p.LibraryID, id, p.UserID)
	if err != nil {
		redirectWithFlash(c, memberPath(id), "error", flashError(c, err, "delete member"))
		return
	}
	redirectWithFlash(c, membersPath, "success", fmt.Sprintf("Member %s has been deleted.", user.FullName()))
}

// ResendSetup issues a new setup link to a pending member.
// POST /librarian/members/:id/resend-setup
func (mc *MembersController) ResendSetup(c *gin.Context) {
	p := principal(c)
	id, ok := mc.memberID(c)
	if !ok {
		return
	}

	user, err := mc.members.ResendSetup(c.Request.Context(), p.LibraryID, id, p.UserID)
	if err != nil {
		redirectWithFlash(c, memberPath(id), "error", flashError(c, err, "resend setup"))
		return
	}
	redirectWithFlash(c, memberPath(id), "success", "A new setup email was sent to "+user.Email+".")
}

func (mc *MembersController) memberID(c *gin.Context) (uint, bool) {
	id, err := strconv.ParseUint(c.Param("id"), 10, 32)
	if err != nil || id == 0 {
		errorPage(c, http.StatusNotFound, "Member not found")
		return 0, false
	}
	return uint(id), true
}

func memberPath(id uint) string {
	return fmt.Sprintf("%s/%d", membersPath, id)
}
