// Package lending implements the circulation workflow: borrowing, returns,
// overdue detection and the derived circulation reports.
package lending

import (
	"time"

	"github.com/doug-martin/goqu/v9"
	_ "github.com/doug-martin/goqu/v9/dialect/sqlite3" // dialect registration

	"github.com/carrelhq/carrel/internal/apperr"
	"github.com/carrelhq/carrel/internal/entities"
	"github.com/carrelhq/carrel/internal/settings"
	"github.com/carrelhq/carrel/internal/store"
)

const dateLayout = "2006-01-02"

var dialect = goqu.Dialect("sqlite3")

// Service handles all circulation operations.
type Service struct {
	store    *store.Store
	settings *settings.Service
}

// NewService creates a new lending service.
func NewService(st *store.Store, settings *settings.Service) *Service {
	return &Service{store: st, settings: settings}
}

// BorrowInput carries the fields of a borrow request. DueDate is an optional
// YYYY-MM-DD date; when empty the configured loan duration applies.
type BorrowInput struct {
	BookID   int64  `json:"book_id"`
	Borrower string `json:"borrower"`
	DueDate  string `json:"due_date"`
	Contact  string `json:"contact"`
	Notes    string `json:"notes"`
}

// LoanDetail is a loan joined with identifying fields of its book.
type LoanDetail struct {
	entities.Loan
	BookTitle  string  `db:"book_title" json:"book_title"`
	BookAuthor string  `db:"book_author" json:"book_author"`
	BookISBN   string  `db:"book_isbn" json:"book_isbn"`
	CoverURL   *string `db:"cover_url" json:"cover_url"`
}

// ListOptions filter and page the loan listing.
type ListOptions struct {
	Page     int
	Limit    int
	Status   string
	Borrower string
	Overdue  bool
}

// Borrow records a loan for an available book and marks the book borrowed.
func (s *Service) Borrow(in BorrowInput) (*LoanDetail, error) {
	if in.BookID == 0 || in.Borrower == "" {
		return nil, apperr.Validation("book_id and borrower are required")
	}

	var book struct {
		ID     int64  `db:"id"`
		Status string `db:"status"`
	}
	found, err := s.store.QueryOne(&book, `SELECT id, status FROM books WHERE id = ?`, in.BookID)
	if err != nil {
		return nil, err
	}
	if !found {
		return nil, apperr.NotFound("book")
	}
	if book.Status != entities.BookStatusAvailable {
		return nil, apperr.Conflict("book is not available for borrowing")
	}

	dueDate := in.DueDate
	if dueDate == "" {
		days := s.settings.LoanDurationDays()
		dueDate = time.Now().AddDate(0, 0, days).Format(dateLayout)
	} else if _, err := time.Parse(dateLayout, dueDate); err != nil {
		return nil, apperr.Validation("due_date must be a YYYY-MM-DD date")
	}

	res, err := s.store.Execute(
		`INSERT INTO loans (book_id, borrower, contact, notes, due_date) VALUES (?, ?, ?, ?, ?)`,
		in.BookID, in.Borrower, in.Contact, in.Notes, dueDate)
	if err != nil {
		return nil, err
	}

	if _, err := s.store.Execute(
		`UPDATE books SET status = ?, updated_at = CURRENT_TIMESTAMP WHERE id = ?`,
		entities.BookStatusBorrowed, in.BookID); err != nil {
		return nil, err
	}

	return s.get(res.LastInsertID)
}

// Return closes an open loan and marks its book available again.
func (s *Service) Return(loanID int64) (*LoanDetail, error) {
	var loan entities.Loan
	found, err := s.store.QueryOne(&loan, `SELECT * FROM loans WHERE id = ?`, loanID)
	if err != nil {
		return nil, err
	}
	if !found {
		return nil, apperr.NotFound("loan")
	}
	if loan.Status != entities.LoanStatusBorrowed {
		return nil, apperr.Conflict("loan is already returned")
	}

	if _, err := s.store.Execute(
		`UPDATE loans SET status = ?, return_date = CURRENT_TIMESTAMP WHERE id = ?`,
		entities.LoanStatusReturned, loanID); err != nil {
		return nil, err
	}
	if _, err := s.store.Execute(
		`UPDATE books SET status = ?, updated_at = CURRENT_TIMESTAMP WHERE id = ?`,
		entities.BookStatusAvailable, loan.BookID); err != nil {
		return nil, err
	}

	return s.get(loanID)
}

// List returns a page of loans matching the filters plus the unpaged total.
func (s *Service) List(opts ListOptions) ([]LoanDetail, int64, error) {
	page, limit := opts.Page, opts.Limit
	if page < 1 {
		page = 1
	}
	if limit < 1 {
		limit = 20
	}

	filters := make([]goqu.Expression, 0, 3)
	if opts.Status != "" {
		filters = append(filters, goqu.I("l.status").Eq(opts.Status))
	}
	if opts.Borrower != "" {
		filters = append(filters, goqu.I("l.borrower").Like("%"+opts.Borrower+"%"))
	}
	if opts.Overdue {
		filters = append(filters,
			goqu.I("l.status").Eq(entities.LoanStatusBorrowed),
			goqu.I("l.due_date").Lt(goqu.L("date('now')")),
		)
	}

	query, args, err := dialect.
		From(goqu.T("loans").As("l")).
		Join(goqu.T("books").As("b"), goqu.On(goqu.I("l.book_id").Eq(goqu.I("b.id")))).
		Select(
			goqu.I("l.*"),
			goqu.I("b.title").As("book_title"),
			goqu.I("b.author").As("book_author"),
			goqu.I("b.isbn").As("book_isbn"),
			goqu.I("b.cover_url").As("cover_url"),
		).
		Where(filters...).
		Order(goqu.I("l.created_at").Desc()).
		Limit(uint(limit)).
		Offset(uint((page - 1) * limit)).
		Prepared(true).ToSQL()
	if err != nil {
		return nil, 0, &apperr.StoreError{Statement: "build loan list query", Err: err}
	}

	loans := []LoanDetail{}
	if err := s.store.QueryMany(&loans, query, args...); err != nil {
		return nil, 0, err
	}

	countQuery, countArgs, err := dialect.
		From(goqu.T("loans").As("l")).
		Select(goqu.COUNT(goqu.Star())).
		Where(filters...).
		Prepared(true).ToSQL()
	if err != nil {
		return nil, 0, &apperr.StoreError{Statement: "build loan count query", Err: err}
	}

	var total int64
	if _, err := s.store.QueryOne(&total, countQuery, countArgs...); err != nil {
		return nil, 0, err
	}
	return loans, total, nil
}

// ListForBook returns the full loan history of one book, newest first.
func (s *Service) ListForBook(bookID int64) ([]LoanDetail, error) {
	loans := []LoanDetail{}
	err := s.store.QueryMany(&loans, `
		SELECT l.*, b.title AS book_title, b.author AS book_author,
			b.isbn AS book_isbn, b.cover_url AS cover_url
		FROM loans l
		JOIN books b ON l.book_id = b.id
		WHERE l.book_id = ?
		ORDER BY l.created_at DESC`, bookID)
	return loans, err
}

// Overdue returns open loans whose due date has passed, most overdue first.
func (s *Service) Overdue() ([]LoanDetail, error) {
	loans := []LoanDetail{}
	err := s.store.QueryMany(&loans, `
		SELECT l.*, b.title AS book_title, b.author AS book_author,
			b.isbn AS book_isbn, b.cover_url AS cover_url
		FROM loans l
		JOIN books b ON l.book_id = b.id
		WHERE l.status = 'borrowed' AND l.due_date < date('now')
		ORDER BY l.due_date`)
	return loans, err
}

// DueSoon returns open loans due within the next days days, including today,
// soonest first.
func (s *Service) DueSoon(days int) ([]LoanDetail, error) {
	if days < 1 {
		days = 3
	}
	loans := []LoanDetail{}
	err := s.store.QueryMany(&loans, `
		SELECT l.*, b.title AS book_title, b.author AS book_author,
			b.isbn AS book_isbn, b.cover_url AS cover_url
		FROM loans l
		JOIN books b ON l.book_id = b.id
		WHERE l.status = 'borrowed'
			AND l.due_date >= date('now')
			AND l.due_date <= date('now', '+' || ? || ' days')
		ORDER BY l.due_date`, days)
	return loans, err
}

// Activity is one entry of the recent circulation feed. OccurredAt is the
// raw datetime text of the event; computed columns come back from SQLite
// without a declared type, so it is not scanned into time.Time.
type Activity struct {
	LoanID     int64  `db:"loan_id" json:"loan_id"`
	Type       string `db:"type" json:"type"`
	BookTitle  string `db:"book_title" json:"book_title"`
	Borrower   string `db:"borrower" json:"borrower"`
	OccurredAt string `db:"occurred_at" json:"occurred_at"`
}

// RecentActivity returns the latest borrow and return events, newest first.
func (s *Service) RecentActivity(limit int) ([]Activity, error) {
	if limit < 1 {
		limit = 10
	}
	activities := []Activity{}
	err := s.store.QueryMany(&activities, `
		SELECT
			l.id AS loan_id,
			CASE WHEN l.return_date IS NOT NULL THEN 'return' ELSE 'borrow' END AS type,
			b.title AS book_title,
			l.borrower,
			COALESCE(l.return_date, l.created_at) AS occurred_at
		FROM loans l
		JOIN books b ON l.book_id = b.id
		ORDER BY occurred_at DESC
		LIMIT ?`, limit)
	return activities, err
}

// Statistics aggregates circulation counters with the latest activity.
type Statistics struct {
	TotalLoans     int64      `json:"total_loans"`
	ActiveLoans    int64      `json:"active_loans"`
	OverdueLoans   int64      `json:"overdue_loans"`
	ReturnedLoans  int64      `json:"returned_loans"`
	RecentActivity []Activity `json:"recent_activity"`
}

// Statistics returns the current circulation counters and the ten most
// recent events.
func (s *Service) Statistics() (*Statistics, error) {
	stats := &Statistics{}
	counters := []struct {
		dest  *int64
		query string
	}{
		{&stats.TotalLoans, `SELECT COUNT(*) FROM loans`},
		{&stats.ActiveLoans, `SELECT COUNT(*) FROM loans WHERE status = 'borrowed'`},
		{&stats.OverdueLoans, `SELECT COUNT(*) FROM loans WHERE status = 'borrowed' AND due_date < date('now')`},
		{&stats.ReturnedLoans, `SELECT COUNT(*) FROM loans WHERE status = 'returned'`},
	}
	for _, c := range counters {
		if _, err := s.store.QueryOne(c.dest, c.query); err != nil {
			return nil, err
		}
	}

	recent, err := s.RecentActivity(10)
	if err != nil {
		return nil, err
	}
	stats.RecentActivity = recent
	return stats, nil
}

// TrendPoint is the borrow count of one calendar day.
type TrendPoint struct {
	Day   string `db:"day" json:"day"`
	Count int64  `db:"count" json:"count"`
}

// Trend returns per-day borrow counts over the trailing days days. Days
// without borrows are omitted.
func (s *Service) Trend(days int) ([]TrendPoint, error) {
	if days < 1 {
		days = 30
	}
	points := []TrendPoint{}
	err := s.store.QueryMany(&points, `
		SELECT date(borrow_date) AS day, COUNT(*) AS count
		FROM loans
		WHERE borrow_date >= date('now', '-' || ? || ' days')
		GROUP BY day
		ORDER BY day`, days)
	return points, err
}

// PopularBook is one entry of the most-borrowed ranking.
type PopularBook struct {
	BookID    int64  `db:"book_id" json:"book_id"`
	Title     string `db:"title" json:"title"`
	Author    string `db:"author" json:"author"`
	ISBN      string `db:"isbn" json:"isbn"`
	LoanCount int64  `db:"loan_count" json:"loan_count"`
}

// PopularBooks ranks books by total loan count, descending.
func (s *Service) PopularBooks(limit int) ([]PopularBook, error) {
	if limit < 1 {
		limit = 10
	}
	books := []PopularBook{}
	err := s.store.QueryMany(&books, `
		SELECT b.id AS book_id, b.title, b.author, b.isbn, COUNT(l.id) AS loan_count
		FROM books b
		JOIN loans l ON l.book_id = b.id
		GROUP BY b.id, b.title, b.author, b.isbn
		ORDER BY loan_count DESC, b.title
		LIMIT ?`, limit)
	return books, err
}

// ReconcileReport lists the repairs applied by a reconcile run.
type ReconcileReport struct {
	BooksMarkedBorrowed  []int64 `json:"books_marked_borrowed"`
	BooksMarkedAvailable []int64 `json:"books_marked_available"`
}

// Reconcile repairs divergence between loan and book state: a book with an
// open loan is forced to borrowed, and a borrowed book without an open loan
// is released. Borrow and return write the loan row and the book row as two
// separate statements, so a crash between them can leave the two out of
// step; this is the explicit repair path.
func (s *Service) Reconcile() (*ReconcileReport, error) {
	report := &ReconcileReport{
		BooksMarkedBorrowed:  []int64{},
		BooksMarkedAvailable: []int64{},
	}

	var lent []int64
	if err := s.store.QueryMany(&lent, `
		SELECT DISTINCT b.id
		FROM books b
		JOIN loans l ON l.book_id = b.id AND l.status = 'borrowed'
		WHERE b.status != 'borrowed'`); err != nil {
		return nil, err
	}
	for _, id := range lent {
		if _, err := s.store.Execute(
			`UPDATE books SET status = ?, updated_at = CURRENT_TIMESTAMP WHERE id = ?`,
			entities.BookStatusBorrowed, id); err != nil {
			return nil, err
		}
		report.BooksMarkedBorrowed = append(report.BooksMarkedBorrowed, id)
	}

	var stale []int64
	if err := s.store.QueryMany(&stale, `
		SELECT b.id
		FROM books b
		WHERE b.status = 'borrowed'
			AND NOT EXISTS (SELECT 1 FROM loans l WHERE l.book_id = b.id AND l.status = 'borrowed')`); err != nil {
		return nil, err
	}
	for _, id := range stale {
		if _, err := s.store.Execute(
			`UPDATE books SET status = ?, updated_at = CURRENT_TIMESTAMP WHERE id = ?`,
			entities.BookStatusAvailable, id); err != nil {
			return nil, err
		}
		report.BooksMarkedAvailable = append(report.BooksMarkedAvailable, id)
	}

	return report, nil
}

// get retrieves a single loan with its book fields.
func (s *Service) get(id int64) (*LoanDetail, error) {
	var loan LoanDetail
	found, err := s.store.QueryOne(&loan, `
		SELECT l.*, b.title AS book_title, b.author AS book_author,
			b.isbn AS book_isbn, b.cover_url AS cover_url
		FROM loans l
		JOIN books b ON l.book_id = b.id
		WHERE l.id = ?`, id)
	if err != nil {
		return nil, err
	}
	if !found {
		return nil, apperr.NotFound("loan")
	}
	return &loan, nil
}
