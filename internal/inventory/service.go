// Package inventory implements the business rules for the book catalog:
// ISBN uniqueness, required fields, deletion guards and batch intake.
package inventory

import (
	"github.com/doug-martin/goqu/v9"
	_ "github.com/doug-martin/goqu/v9/dialect/sqlite3" // dialect registration

	"github.com/carrelhq/carrel/internal/apperr"
	"github.com/carrelhq/carrel/internal/entities"
	"github.com/carrelhq/carrel/internal/store"
)

var dialect = goqu.Dialect("sqlite3")

// Service handles all book catalog operations.
type Service struct {
	store *store.Store
}

// NewService creates a new inventory service.
func NewService(st *store.Store) *Service {
	return &Service{store: st}
}

// BookInput carries the writable fields of a book. ISBN is only honored on
// create; it is immutable afterwards.
type BookInput struct {
	ISBN        string  `json:"isbn"`
	Title       string  `json:"title"`
	Author      string  `json:"author"`
	Publisher   string  `json:"publisher"`
	PublishDate string  `json:"publish_date"`
	CategoryID  *int64  `json:"category_id"`
	CoverURL    string  `json:"cover_url"`
	Description string  `json:"description"`
	Price       float64 `json:"price"`
	Room        string  `json:"room"`
	Shelf       string  `json:"shelf"`
	Row         string  `json:"row"`
	Column      string  `json:"column"`
	Number      string  `json:"number"`
	Status      string  `json:"status"`
}

// BookDetail is a book joined with its category name.
type BookDetail struct {
	entities.Book
	CategoryName *string `db:"category_name" json:"category_name"`
}

// ListOptions filter and page the book listing. Zero values mean "no
// filter"; Page and Limit default to 1 and 20.
type ListOptions struct {
	Page       int
	Limit      int
	Search     string
	CategoryID int64
	Status     string
}

// Create validates and inserts a new book with status defaulted to
// available. Duplicate ISBNs are rejected with a conflict.
func (s *Service) Create(in BookInput) (*BookDetail, error) {
	if in.ISBN == "" || in.Title == "" || in.Author == "" {
		return nil, apperr.Validation("isbn, title and author are required")
	}

	var existingID int64
	found, err := s.store.QueryOne(&existingID, `SELECT id FROM books WHERE isbn = ?`, in.ISBN)
	if err != nil {
		return nil, err
	}
	if found {
		return nil, apperr.Conflict("a book with ISBN %s already exists", in.ISBN)
	}

	res, err := s.store.Execute(`
		INSERT INTO books (
			isbn, title, author, publisher, publish_date, category_id,
			cover_url, description, price, room, shelf, "row", "column", number
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		in.ISBN, in.Title, in.Author, in.Publisher, nullable(in.PublishDate), in.CategoryID,
		in.CoverURL, in.Description, in.Price, in.Room, in.Shelf, in.Row, in.Column, in.Number)
	if err != nil {
		return nil, err
	}
	return s.Get(res.LastInsertID)
}

// Update rewrites a book's mutable fields. The ISBN is never touched. An
// empty status falls back to available.
func (s *Service) Update(id int64, in BookInput) (*BookDetail, error) {
	if in.Title == "" || in.Author == "" {
		return nil, apperr.Validation("title and author are required")
	}
	status := in.Status
	if status == "" {
		status = entities.BookStatusAvailable
	}

	res, err := s.store.Execute(`
		UPDATE books SET
			title = ?, author = ?, publisher = ?, publish_date = ?,
			category_id = ?, cover_url = ?, description = ?, price = ?,
			room = ?, shelf = ?, "row" = ?, "column" = ?, number = ?,
			status = ?, updated_at = CURRENT_TIMESTAMP
		WHERE id = ?`,
		in.Title, in.Author, in.Publisher, nullable(in.PublishDate),
		in.CategoryID, in.CoverURL, in.Description, in.Price,
		in.Room, in.Shelf, in.Row, in.Column, in.Number,
		status, id)
	if err != nil {
		return nil, err
	}
	if res.RowsAffected == 0 {
		return nil, apperr.NotFound("book")
	}
	return s.Get(id)
}

// Delete removes a book unless an open loan still references it.
func (s *Service) Delete(id int64) error {
	var loanID int64
	found, err := s.store.QueryOne(&loanID,
		`SELECT id FROM loans WHERE book_id = ? AND status = ? LIMIT 1`, id, entities.LoanStatusBorrowed)
	if err != nil {
		return err
	}
	if found {
		return apperr.Conflict("book has an open loan and cannot be deleted")
	}

	res, err := s.store.Execute(`DELETE FROM books WHERE id = ?`, id)
	if err != nil {
		return err
	}
	if res.RowsAffected == 0 {
		return apperr.NotFound("book")
	}
	return nil
}

// Get retrieves a single book with its category name.
func (s *Service) Get(id int64) (*BookDetail, error) {
	var book BookDetail
	found, err := s.store.QueryOne(&book, `
		SELECT b.*, c.name AS category_name
		FROM books b
		LEFT JOIN categories c ON b.category_id = c.id
		WHERE b.id = ?`, id)
	if err != nil {
		return nil, err
	}
	if !found {
		return nil, apperr.NotFound("book")
	}
	return &book, nil
}

// List returns a page of books matching the filters plus the unpaged total.
func (s *Service) List(opts ListOptions) ([]BookDetail, int64, error) {
	page, limit := opts.Page, opts.Limit
	if page < 1 {
		page = 1
	}
	if limit < 1 {
		limit = 20
	}

	filters := make([]goqu.Expression, 0, 3)
	if opts.Search != "" {
		pattern := "%" + opts.Search + "%"
		filters = append(filters, goqu.Or(
			goqu.I("b.title").Like(pattern),
			goqu.I("b.author").Like(pattern),
			goqu.I("b.isbn").Like(pattern),
		))
	}
	if opts.CategoryID != 0 {
		filters = append(filters, goqu.I("b.category_id").Eq(opts.CategoryID))
	}
	if opts.Status != "" {
		filters = append(filters, goqu.I("b.status").Eq(opts.Status))
	}

	query, args, err := dialect.
		From(goqu.T("books").As("b")).
		LeftJoin(goqu.T("categories").As("c"), goqu.On(goqu.I("b.category_id").Eq(goqu.I("c.id")))).
		Select(goqu.I("b.*"), goqu.I("c.name").As("category_name")).
		Where(filters...).
		Order(goqu.I("b.created_at").Desc()).
		Limit(uint(limit)).
		Offset(uint((page - 1) * limit)).
		Prepared(true).ToSQL()
	if err != nil {
		return nil, 0, &apperr.StoreError{Statement: "build book list query", Err: err}
	}

	books := []BookDetail{}
	if err := s.store.QueryMany(&books, query, args...); err != nil {
		return nil, 0, err
	}

	countQuery, countArgs, err := dialect.
		From(goqu.T("books").As("b")).
		Select(goqu.COUNT(goqu.Star())).
		Where(filters...).
		Prepared(true).ToSQL()
	if err != nil {
		return nil, 0, &apperr.StoreError{Statement: "build book count query", Err: err}
	}

	var total int64
	if _, err := s.store.QueryOne(&total, countQuery, countArgs...); err != nil {
		return nil, 0, err
	}
	return books, total, nil
}

// BatchItem reports one successfully created entry of a batch intake.
type BatchItem struct {
	Index int    `json:"index"`
	ISBN  string `json:"isbn"`
	ID    int64  `json:"id"`
}

// BatchError reports one rejected entry of a batch intake.
type BatchError struct {
	Index int    `json:"index"`
	ISBN  string `json:"isbn"`
	Error string `json:"error"`
}

// BatchResult is the partial-success report of a batch intake.
type BatchResult struct {
	Created []BatchItem  `json:"created"`
	Errors  []BatchError `json:"errors"`
	Total   int          `json:"total"`
}

// BatchCreate processes entries independently: per-entry validation or
// uniqueness failures are collected and never abort sibling entries.
func (s *Service) BatchCreate(inputs []BookInput) BatchResult {
	result := BatchResult{
		Created: []BatchItem{},
		Errors:  []BatchError{},
		Total:   len(inputs),
	}
	for i, in := range inputs {
		book, err := s.Create(in)
		if err != nil {
			result.Errors = append(result.Errors, BatchError{Index: i, ISBN: in.ISBN, Error: err.Error()})
			continue
		}
		result.Created = append(result.Created, BatchItem{Index: i, ISBN: book.ISBN, ID: book.ID})
	}
	return result
}

func nullable(s string) any {
	if s == "" {
		return nil
	}
	return s
}
