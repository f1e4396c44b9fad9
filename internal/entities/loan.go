package entities

import (
	"time"
)

// Loan statuses. "returned" is terminal; there are no renewals.
const (
	LoanStatusBorrowed = "borrowed"
	LoanStatusReturned = "returned"
)

// Loan ties one book to one borrower over a time interval. The borrower is
// free text, not a managed identity. Overdue is never stored; it is derived
// at read time from status and due date.
type Loan struct {
	ID         int64      `db:"id" json:"id"`
	BookID     int64      `db:"book_id" json:"book_id"`
	Borrower   string     `db:"borrower" json:"borrower"`
	Contact    string     `db:"contact" json:"contact"`
	Notes      string     `db:"notes" json:"notes"`
	BorrowDate time.Time  `db:"borrow_date" json:"borrow_date"`
	DueDate    time.Time  `db:"due_date" json:"due_date"`
	ReturnDate *time.Time `db:"return_date" json:"return_date"`
	Status     string     `db:"status" json:"status"`
	CreatedAt  time.Time  `db:"created_at" json:"created_at"`
}
