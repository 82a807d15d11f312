package http

import (
	"github.com/gin-gonic/gin"

	"github.com/mrlokans/librarydesk/internal/subscription"
)

type SubscriptionController struct {
	manager *subscription.Manager
}

func NewSubscriptionController(m *subscription.Manager) *SubscriptionController {
	return &SubscriptionController{manager: m}
}

// Details returns the library plan and book usage.
// GET /librarian/ajax/subscription
func (sc *SubscriptionController) Details(c *gin.Context) {
	p := principal(c)
	details, err := sc.manager.GetSubscriptionDetails(p.LibraryID)
	if err != nil {
		respondServiceError(c, err, "subscription details")
		return
	}
	respondOK(c, gin.H{"subscription": details})
}
