package http

import (
	"errors"
	"io"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/mrlokans/librarydesk/internal/catalog"
	"github.com/mrlokans/librarydesk/internal/database/books"
)

const defaultMaxUpload = 8 << 20

type BooksController struct {
	catalog   *catalog.Service
	maxUpload int64
}

func NewBooksController(svc *catalog.Service, maxUpload int64) *BooksController {
	if maxUpload <= 0 {
		maxUpload = defaultMaxUpload
	}
	return &BooksController{catalog: svc, maxUpload: maxUpload}
}

// BooksPage renders the catalog with search and category filter.
// GET /librarian/books
func (bc *BooksController) BooksPage(c *gin.Context) {
	p := principal(c)
	limit, offset, page := pagination(c)
	categoryID, _ := strconv.ParseUint(c.Query("category"), 10, 32)

	filter := books.ListFilter{
		Search:     c.Query("q"),
		CategoryID: uint(categoryID),
		Limit:      limit,
		Offset:     offset,
	}
	list, total, err := bc.catalog.SearchBooks(p.LibraryID, filter)
	if err != nil {
		errorPage(c, http.StatusInternalServerError, flashError(c, err, "list books"))
		return
	}
	categories, err := bc.catalog.ListCategories(p.LibraryID)
	if err != nil {
		errorPage(c, http.StatusInternalServerError, flashError(c, err, "list categories"))
		return
	}

	render(c, http.StatusOK, "books.html", gin.H{
		"Title":      "Books",
		"Nav":        "books",
		"Books":      list,
		"Total":      total,
		"Categories": categories,
		"Query":      filter.Search,
		"CategoryID": filter.CategoryID,
		"Page":       page,
		"Pages":      totalPages(total),
	})
}

// Handle dispatches the book AJAX endpoint on ?action=.
// GET|POST /librarian/ajax/books
func (bc *BooksController) Handle(c *gin.Context) {
	action := c.Query("action")
	if action == "" {
		action = c.PostForm("action")
	}

	switch action {
	case "get_book":
		bc.getBook(c)
	case "search":
		bc.search(c)
	case "add_book", "update_book", "delete_book":
		if c.Request.Method != http.MethodPost {
			c.JSON(http.StatusMethodNotAllowed, ErrorResponse{Error: "Method not allowed"})
			return
		}
		switch action {
		case "add_book":
			bc.addBook(c)
		case "update_book":
			bc.updateBook(c)
		default:
			bc.deleteBook(c)
		}
	default:
		respondBadRequest(c, "Invalid action")
	}
}

func (bc *BooksController) addBook(c *gin.Context) {
	p := principal(c)
	in, cover, ok := bc.bindBook(c)
	if !ok {
		return
	}
	if cover != nil {
		defer cover.Close()
	}

	book, err := bc.catalog.AddBook(c.Request.Context(), p.LibraryID, p.UserID, in, readerOrNil(cover))
	if err != nil {
		respondServiceError(c, err, "add book")
		return
	}
	respondOK(c, gin.H{"message": "Book added successfully", "book": book})
}

func (bc *BooksController) updateBook(c *gin.Context) {
	p := principal(c)
	id, ok := parseFormID(c, "id")
	if !ok {
		return
	}
	in, cover, ok := bc.bindBook(c)
	if !ok {
		return
	}
	if cover != nil {
		defer cover.Close()
	}

	book, err := bc.catalog.UpdateBook(c.Request.Context(), p.LibraryID, p.UserID, id, in, readerOrNil(cover))
	if err != nil {
		respondServiceError(c, err, "update book")
		return
	}
	respondOK(c, gin.H{"message": "Book updated successfully", "book": book})
}

func (bc *BooksController) deleteBook(c *gin.Context) {
	p := principal(c)
	id, ok := parseFormID(c, "id")
	if !ok {
		return
	}
	if err := bc.catalog.DeleteBook(c.Request.Context(), p.LibraryID, p.UserID, id); err != nil {
		respondServiceError(c, err, "delete book")
		return
	}
	respondOK(c, gin.H{"message": "Book deleted successfully"})
}

func (bc *BooksController) getBook(c *gin.Context) {
	p := principal(c)
	id, ok := parseFormID(c, "id")
	if !ok {
		return
	}
	book, err := bc.catalog.GetBook(p.LibraryID, id)
	if err != nil {
		respondServiceError(c, err, "get book")
		return
	}
	respondOK(c, gin.H{"book": book})
}

func (bc *BooksController) search(c *gin.Context) {
	p := principal(c)
	limit, _ := strconv.Atoi(c.Query("limit"))
	if limit <= 0 || limit > 100 {
		limit = 20
	}
	list, total, err := bc.catalog.SearchBooks(p.LibraryID, books.ListFilter{
		Search:    c.Query("q"),
		Available: c.Query("available") == "1",
		Limit:     limit,
	})
	if err != nil {
		respondServiceError(c, err, "search books")
		return
	}
	respondOK(c, gin.H{"books": list, "total": total})
}

// bindBook reads the book form and the optional cover upload.
func (bc *BooksController) bindBook(c *gin.Context) (catalog.BookInput, io.ReadCloser, bool) {
	var in catalog.BookInput
	c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, bc.maxUpload)
	if err := c.ShouldBind(&in); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			respondBadRequest(c, "Upload is too large")
			return in, nil, false
		}
		respondBadRequest(c, "Invalid book data")
		return in, nil, false
	}

	header, err := c.FormFile("cover_image")
	if errors.Is(err, http.ErrMissingFile) || errors.Is(err, http.ErrNotMultipart) {
		return in, nil, true
	}
	if err != nil {
		respondBadRequest(c, "Invalid cover upload")
		return in, nil, false
	}
	file, err := header.Open()
	if err != nil {
		respondInternalError(c, err, "open cover upload")
		return in, nil, false
	}
	return in, file, true
}

// readerOrNil keeps a nil ReadCloser from becoming a non-nil io.Reader.
func readerOrNil(rc io.ReadCloser) io.Reader {
	if rc == nil {
		return nil
	}
	return rc
}
