package http

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/mrlokans/librarydesk/internal/entities"
	"github.com/mrlokans/librarydesk/internal/notify"
)

type NotificationsController struct {
	notify *notify.Service
}

func NewNotificationsController(svc *notify.Service) *NotificationsController {
	return &NotificationsController{notify: svc}
}

type notificationForm struct {
	UserID  string `form:"user_id" binding:"required"`
	Type    string `form:"type"`
	Title   string `form:"title"`
	Message string `form:"message"`
	Link    string `form:"link"`
}

// NotificationsPage lists the librarian's own notifications.
// GET /librarian/notifications
func (nc *NotificationsController) NotificationsPage(c *gin.Context) {
	p := principal(c)
	unreadOnly := c.Query("unread") == "1"
	list, err := nc.notify.ListNotifications(p.LibraryID, p.Code, unreadOnly)
	if err != nil {
		pageError(c, err, "list notifications")
		return
	}
	unread, err := nc.notify.GetUnreadCount(p.LibraryID, p.Code)
	if err != nil {
		pageError(c, err, "count notifications")
		return
	}
	render(c, http.StatusOK, "notifications.html", gin.H{
		"Title":         "Notifications",
		"Nav":           "notifications",
		"Notifications": list,
		"Unread":        unread,
		"UnreadOnly":    unreadOnly,
	})
}

// GET /librarian/ajax/notifications?unread=1
func (nc *NotificationsController) List(c *gin.Context) {
	p := principal(c)
	list, err := nc.notify.ListNotifications(p.LibraryID, p.Code, c.Query("unread") == "1")
	if err != nil {
		respondServiceError(c, err, "list notifications")
		return
	}
	respondOK(c, gin.H{"notifications": list})
}

// Create stores a notification for another user of the library.
// POST /librarian/ajax/notifications
func (nc *NotificationsController) Create(c *gin.Context) {
	p := principal(c)
	var form notificationForm
	if err := c.ShouldBind(&form); err != nil {
		respondBadRequest(c, "Recipient is required")
		return
	}

	n, err := nc.notify.CreateNotification(p.LibraryID, entities.UserCode(form.UserID),
		entities.NotificationType(form.Type), form.Title, form.Message, form.Link)
	if err != nil {
		respondServiceError(c, err, "create notification")
		return
	}
	respondOK(c, gin.H{"message": "Notification created", "notification_id": n.ID})
}

// GET /librarian/ajax/notifications/unread-count
func (nc *NotificationsController) UnreadCount(c *gin.Context) {
	p := principal(c)
	n, err := nc.notify.GetUnreadCount(p.LibraryID, p.Code)
	if err != nil {
		respondServiceError(c, err, "count notifications")
		return
	}
	respondOK(c, gin.H{"count": n})
}

// POST /librarian/ajax/notifications/read-all
func (nc *NotificationsController) MarkAllRead(c *gin.Context) {
	p := principal(c)
	n, err := nc.notify.MarkAllAsRead(p.LibraryID, p.Code)
	if err != nil {
		respondServiceError(c, err, "mark notifications read")
		return
	}
	respondOK(c, gin.H{"updated": n})
}

// POST /librarian/ajax/notifications/:id/read
func (nc *NotificationsController) MarkRead(c *gin.Context) {
	p := principal(c)
	id, ok := parseIDParam(c, "id")
	if !ok {
		return
	}
	if err := nc.notify.MarkAsRead(p.LibraryID, id, p.Code); err != nil {
		respondServiceError(c, err, "mark notification read")
		return
	}
	respondOK(c, nil)
}
