package http

import (
	"net/http"

	"github.com/gin-gonic/gin"

	dbmembers "github.com/mrlokans/librarydesk/internal/database/members"
	"github.com/mrlokans/librarydesk/internal/entities"
	"github.com/mrlokans/librarydesk/internal/members"
	"github.com/mrlokans/librarydesk/internal/notify"
)

type MessagesController struct {
	notify  *notify.Service
	members *members.Service
}

func NewMessagesController(svc *notify.Service, memberSvc *members.Service) *MessagesController {
	return &MessagesController{notify: svc, members: memberSvc}
}

type composeForm struct {
	RecipientID string `form:"recipient_id" binding:"required"`
	Subject     string `form:"subject"`
	Message     string `form:"message"`
}

type chatForm struct {
	RecipientID string `form:"recipient_id" binding:"required"`
	Message     string `form:"message"`
}

// MessagesPage renders the mailbox with the compose form.
// GET /librarian/messages
func (mc *MessagesController) MessagesPage(c *gin.Context) {
	p := principal(c)
	view := messageView(c)
	if !view.IsValid() {
		errorPage(c, http.StatusBadRequest, "Invalid view")
		return
	}

	list, err := mc.notify.ListMessages(p.LibraryID, p.Code, view)
	if err != nil {
		pageError(c, err, "list messages")
		return
	}
	unread, err := mc.notify.UnreadCount(p.LibraryID, p.Code)
	if err != nil {
		pageError(c, err, "count unread messages")
		return
	}
	recipients, _, err := mc.members.List(p.LibraryID, dbmembers.ListFilter{Status: entities.UserStatusActive})
	if err != nil {
		pageError(c, err, "list recipients")
		return
	}

	render(c, http.StatusOK, "messages.html", gin.H{
		"Title":      "Messages",
		"Nav":        "messages",
		"Messages":   list,
		"View":       string(view),
		"Unread":     unread,
		"Recipients": recipients,
	})
}

// List returns one mailbox view.
// GET /librarian/ajax/messages?view=inbox|sent|starred
func (mc *MessagesController) List(c *gin.Context) {
	p := principal(c)
	list, err := mc.notify.ListMessages(p.LibraryID, p.Code, messageView(c))
	if err != nil {
		respondServiceError(c, err, "list messages")
		return
	}
	respondOK(c, gin.H{"messages": list})
}

// Compose sends a message to another user of the library.
// POST /librarian/ajax/messages
func (mc *MessagesController) Compose(c *gin.Context) {
	p := principal(c)
	var form composeForm
	if err := c.ShouldBind(&form); err != nil {
		respondBadRequest(c, "Recipient is required")
		return
	}

	msg, err := mc.notify.Send(c.Request.Context(), p.LibraryID, p.Code,
		entities.UserCode(form.RecipientID), form.Subject, form.Message)
	if err != nil {
		respondServiceError(c, err, "send message")
		return
	}
	respondOK(c, gin.H{"message": "Message sent", "id": msg.ID})
}

// UnreadCount returns the number of unread messages in the inbox.
// GET /librarian/ajax/messages/unread-count
func (mc *MessagesController) UnreadCount(c *gin.Context) {
	p := principal(c)
	n, err := mc.notify.UnreadCount(p.LibraryID, p.Code)
	if err != nil {
		respondServiceError(c, err, "count unread messages")
		return
	}
	respondOK(c, gin.H{"count": n})
}

// POST /librarian/ajax/messages/:id/read
func (mc *MessagesController) MarkRead(c *gin.Context) {
	p := principal(c)
	id, ok := parseIDParam(c, "id")
	if !ok {
		return
	}
	if err := mc.notify.MarkRead(p.LibraryID, id, p.Code); err != nil {
		respondServiceError(c, err, "mark message read")
		return
	}
	respondOK(c, nil)
}

// POST /librarian/ajax/messages/:id/star
func (mc *MessagesController) ToggleStar(c *gin.Context) {
	p := principal(c)
	id, ok := parseIDParam(c, "id")
	if !ok {
		return
	}
	starred, err := mc.notify.ToggleStar(p.LibraryID, id, p.Code)
	if err != nil {
		respondServiceError(c, err, "toggle star")
		return
	}
	respondOK(c, gin.H{"is_starred": starred})
}

// Delete hides a message from the caller's mailbox.
// POST /librarian/ajax/messages/:id/delete
func (mc *MessagesController) Delete(c *gin.Context) {
	p := principal(c)
	id, ok := parseIDParam(c, "id")
	if !ok {
		return
	}
	if err := mc.notify.Delete(p.LibraryID, id, p.Code); err != nil {
		respondServiceError(c, err, "delete message")
		return
	}
	respondOK(c, gin.H{"message": "Message deleted"})
}

// SendChat posts one chat line.
// POST /librarian/ajax/chat/send
func (mc *MessagesController) SendChat(c *gin.Context) {
	p := principal(c)
	var form chatForm
	if err := c.ShouldBind(&form); err != nil {
		respondBadRequest(c, "Recipient is required")
		return
	}

	msg, err := mc.notify.SendChat(c.Request.Context(), p.LibraryID, p.Code,
		entities.UserCode(form.RecipientID), form.Message)
	if err != nil {
		respondServiceError(c, err, "send chat")
		return
	}
	respondOK(c, gin.H{"chat": msg})
}

// Conversation returns the chat with another user, oldest first.
// GET /librarian/ajax/chat/:code
func (mc *MessagesController) Conversation(c *gin.Context) {
	p := principal(c)
	other := entities.UserCode(c.Param("code"))
	list, err := mc.notify.Conversation(p.LibraryID, p.Code, other)
	if err != nil {
		respondServiceError(c, err, "load conversation")
		return
	}
	respondOK(c, gin.H{"messages": list})
}

func messageView(c *gin.Context) entities.MessageView {
	v := entities.MessageView(c.Query("view"))
	if v == "" {
		return entities.MessageViewInbox
	}
	return v
}
