package http

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/mrlokans/librarydesk/internal/catalog"
)

type CategoriesController struct {
	catalog *catalog.Service
}

func NewCategoriesController(svc *catalog.Service) *CategoriesController {
	return &CategoriesController{catalog: svc}
}

// Handle dispatches the category AJAX endpoint on ?action=.
// GET|POST /librarian/ajax/categories
func (cc *CategoriesController) Handle(c *gin.Context) {
	action := c.Query("action")
	if action == "" {
		action = c.PostForm("action")
	}

	switch action {
	case "get_categories":
		cc.list(c)
	case "add_category":
		if c.Request.Method != http.MethodPost {
			c.JSON(http.StatusMethodNotAllowed, ErrorResponse{Error: "Method not allowed"})
			return
		}
		cc.add(c)
	default:
		respondBadRequest(c, "Invalid action")
	}
}

func (cc *CategoriesController) list(c *gin.Context) {
	p := principal(c)
	categories, err := cc.catalog.ListCategories(p.LibraryID)
	if err != nil {
		respondServiceError(c, err, "list categories")
		return
	}
	respondOK(c, gin.H{"categories": categories})
}

func (cc *CategoriesController) add(c *gin.Context) {
	p := principal(c)
	var in catalog.CategoryInput
	if err := c.ShouldBind(&in); err != nil {
		respondBadRequest(c, "Invalid category data")
		return
	}

	category, err := cc.catalog.AddCategory(c.Request.Context(), p.LibraryID, p.UserID, in)
	if err != nil {
		respondServiceError(c, err, "add category")
		return
	}
	respondOK(c, gin.H{
		"message":  "Category added successfully",
		"category": gin.H{"id": category.ID, "name": category.Name},
	})
}
