package http

import (
	"github.com/gin-gonic/gin"

	"github.com/carrelhq/carrel/internal/inventory"
)

type BooksController struct {
	inventory *inventory.Service
}

func NewBooksController(inventory *inventory.Service) *BooksController {
	return &BooksController{
		inventory: inventory,
	}
}

func (controller *BooksController) ListBooks(c *gin.Context) {
	opts := inventory.ListOptions{
		Page:       parseQueryInt(c, "page", 1),
		Limit:      parseQueryInt(c, "limit", 20),
		Search:     c.Query("search"),
		CategoryID: int64(parseQueryInt(c, "category_id", 0)),
		Status:     c.Query("status"),
	}

	books, total, err := controller.inventory.List(opts)
	if err != nil {
		respondError(c, err)
		return
	}
	respondOK(c, PaginatedData{Items: books, Total: total, Page: opts.Page, Limit: opts.Limit})
}

// SearchBooks is the listing with the query bound to the search filter.
func (controller *BooksController) SearchBooks(c *gin.Context) {
	q := c.Query("q")
	if q == "" {
		respondBadRequest(c, "q query parameter is required")
		return
	}

	opts := inventory.ListOptions{
		Page:   parseQueryInt(c, "page", 1),
		Limit:  parseQueryInt(c, "limit", 20),
		Search: q,
	}
	books, total, err := controller.inventory.List(opts)
	if err != nil {
		respondError(c, err)
		return
	}
	respondOK(c, PaginatedData{Items: books, Total: total, Page: opts.Page, Limit: opts.Limit})
}

func (controller *BooksController) GetBook(c *gin.Context) {
	id, ok := parseIDParam(c, "id")
	if !ok {
		return
	}

	book, err := controller.inventory.Get(id)
	if err != nil {
		respondError(c, err)
		return
	}
	respondOK(c, book)
}

func (controller *BooksController) CreateBook(c *gin.Context) {
	var input inventory.BookInput
	if err := c.ShouldBindJSON(&input); err != nil {
		respondBadRequest(c, "invalid request body")
		return
	}

	book, err := controller.inventory.Create(input)
	if err != nil {
		respondError(c, err)
		return
	}
	respondCreated(c, book)
}

func (controller *BooksController) BatchCreateBooks(c *gin.Context) {
	var body struct {
		Books []inventory.BookInput `json:"books"`
	}
	if err := c.ShouldBindJSON(&body); err != nil {
		respondBadRequest(c, "invalid request body")
		return
	}
	if len(body.Books) == 0 {
		respondBadRequest(c, "books must not be empty")
		return
	}

	respondOK(c, controller.inventory.BatchCreate(body.Books))
}

func (controller *BooksController) UpdateBook(c *gin.Context) {
	id, ok := parseIDParam(c, "id")
	if !ok {
		return
	}

	var input inventory.BookInput
	if err := c.ShouldBindJSON(&input); err != nil {
		respondBadRequest(c, "invalid request body")
		return
	}

	book, err := controller.inventory.Update(id, input)
	if err != nil {
		respondError(c, err)
		return
	}
	respondOK(c, book)
}

func (controller *BooksController) DeleteBook(c *gin.Context) {
	id, ok := parseIDParam(c, "id")
	if !ok {
		return
	}

	if err := controller.inventory.Delete(id); err != nil {
		respondError(c, err)
		return
	}
	respondMessage(c, "book deleted", nil)
}
