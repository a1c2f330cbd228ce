package library

import (
	"time"

	"github.com/shopspring/decimal"
)

// Book is one catalogue entry. IsAvailable is false exactly while an open
// loan references the book.
type Book struct {
	ID          int    `json:"id"`
	Title       string `json:"title"`
	Author      string `json:"author"`
	ISBN        string `json:"isbn"`
	IsAvailable bool   `json:"is_available"`
}

// Loan records one borrowing of a book. A loan moves Open -> Returned ->
// Settled and never backwards; settled loans are kept as history.
type Loan struct {
	ID            int             `json:"id"`
	BookID        int             `json:"book_id"`
	Username      string          `json:"username"`
	LoanDate      time.Time       `json:"loan_date"`
	DueDate       time.Time       `json:"due_date"`
	ReturnDate    time.Time       `json:"return_date,omitzero"`
	IsReturned    bool            `json:"is_returned"`
	OverdueAmount decimal.Decimal `json:"overdue_amount"`
}

// LoanState is the lifecycle position of a loan.
type LoanState string

const (
	LoanOpen     LoanState = "open"
	LoanReturned LoanState = "returned"
	LoanSettled  LoanState = "settled"
)

// State derives the lifecycle position from the stored fields. A returned
// loan with nothing owed counts as settled, whether it was paid or on time.
func (l Loan) State() LoanState {
	switch {
	case !l.IsReturned:
		return LoanOpen
	case l.OverdueAmount.IsPositive():
		return LoanReturned
	default:
		return LoanSettled
	}
}

// Owes reports whether the loan carries an unpaid overdue fee.
func (l Loan) Owes() bool { return l.OverdueAmount.IsPositive() }

// Equal compares loans by value; decimal amounts compare numerically.
func (l Loan) Equal(o Loan) bool {
	return l.ID == o.ID &&
		l.BookID == o.BookID &&
		l.Username == o.Username &&
		l.LoanDate.Equal(o.LoanDate) &&
		l.DueDate.Equal(o.DueDate) &&
		l.ReturnDate.Equal(o.ReturnDate) &&
		l.IsReturned == o.IsReturned &&
		l.OverdueAmount.Equal(o.OverdueAmount)
}

// User is a registered borrower. ActiveLoans is a cache of the user's open
// loan count and is recomputed from the loan list, never trusted.
type User struct {
	Username    string `json:"username"`
	Password    string `json:"-"`
	ActiveLoans int    `json:"active_loans"`
}

// Counters holds the next IDs to hand out.
type Counters struct {
	NextBookID int `json:"next_book_id"`
	NextLoanID int `json:"next_loan_id"`
}

// LoanView pairs a loan with its book when the book still exists.
type LoanView struct {
	Loan Loan  `json:"loan"`
	Book *Book `json:"book,omitempty"`
}

// BookTitle returns the book's title, or "Unknown" when it was deleted.
func (v LoanView) BookTitle() string {
	if v.Book == nil {
		return "Unknown"
	}
	return v.Book.Title
}

// FeeStatement lists a user's unpaid overdue fees.
type FeeStatement struct {
	Username string          `json:"username"`
	Items    []LoanView      `json:"items"`
	Total    decimal.Decimal `json:"total"`
}
