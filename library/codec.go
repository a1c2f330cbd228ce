package library

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// Delimiter separates the fields of one record line. Free-text fields never
// contain it: it is stripped on encode together with line breaks.
const Delimiter = "|"

const (
	bookFields = 5
	loanFields = 8
	userFields = 3
)

var sanitizer = strings.NewReplacer("\r", "", "\n", "", Delimiter, "")

func sanitize(s string) string { return sanitizer.Replace(s) }

func encodeBool(b bool) string {
	if b {
		return "1"
	}
	return "0"
}

func decodeBool(field, s string) (bool, error) {
	switch s {
	case "1":
		return true, nil
	case "0":
		return false, nil
	default:
		return false, parseErrorf("%s: want 0 or 1, got %q", field, s)
	}
}

func decodeID(field, s string) (int, error) {
	n, err := strconv.Atoi(s)
	if err != nil || n <= 0 {
		return 0, parseErrorf("%s: want positive integer, got %q", field, s)
	}
	return n, nil
}

// epoch encodes an unset time as 0.
func epoch(t time.Time) int64 {
	if t.IsZero() {
		return 0
	}
	return t.Unix()
}

func decodeEpoch(field, s string) (time.Time, error) {
	n, err := strconv.ParseInt(s, 10, 64)
	if err != nil {
		return time.Time{}, parseErrorf("%s: want epoch seconds, got %q", field, s)
	}
	if n == 0 {
		return time.Time{}, nil
	}
	return time.Unix(n, 0).UTC(), nil
}

func splitFields(kind, line string, want int) ([]string, error) {
	f := strings.Split(line, Delimiter)
	if len(f) != want {
		return nil, parseErrorf("%s record: want %d fields, got %d", kind, want, len(f))
	}
	return f, nil
}

// EncodeBook renders id|title|author|isbn|isAvailable.
func EncodeBook(b Book) string {
	return strings.Join([]string{
		strconv.Itoa(b.ID),
		sanitize(b.Title),
		sanitize(b.Author),
		sanitize(b.ISBN),
		encodeBool(b.IsAvailable),
	}, Delimiter)
}

// DecodeBook parses a line written by EncodeBook.
func DecodeBook(line string) (Book, error) {
	f, err := splitFields("book", line, bookFields)
	if err != nil {
		return Book{}, err
	}
	id, err := decodeID("book id", f[0])
	if err != nil {
		return Book{}, err
	}
	avail, err := decodeBool("isAvailable", f[4])
	if err != nil {
		return Book{}, err
	}
	return Book{ID: id, Title: f[1], Author: f[2], ISBN: f[3], IsAvailable: avail}, nil
}

// EncodeLoan renders
// loanID|bookID|username|loanDate|dueDate|returnDate|isReturned|overdueAmount
// with dates as epoch seconds and the amount with two decimals.
func EncodeLoan(l Loan) string {
	return strings.Join([]string{
		strconv.Itoa(l.ID),
		strconv.Itoa(l.BookID),
		sanitize(l.Username),
		strconv.FormatInt(epoch(l.LoanDate), 10),
		strconv.FormatInt(epoch(l.DueDate), 10),
		strconv.FormatInt(epoch(l.ReturnDate), 10),
		encodeBool(l.IsReturned),
		l.OverdueAmount.StringFixed(2),
	}, Delimiter)
}

// DecodeLoan parses a line written by EncodeLoan. Amounts with any number of
// decimals are accepted.
func DecodeLoan(line string) (Loan, error) {
	f, err := splitFields("loan", line, loanFields)
	if err != nil {
		return Loan{}, err
	}
	var l Loan
	if l.ID, err = decodeID("loan id", f[0]); err != nil {
		return Loan{}, err
	}
	if l.BookID, err = decodeID("book id", f[1]); err != nil {
		return Loan{}, err
	}
	l.Username = f[2]
	if l.LoanDate, err = decodeEpoch("loanDate", f[3]); err != nil {
		return Loan{}, err
	}
	if l.DueDate, err = decodeEpoch("dueDate", f[4]); err != nil {
		return Loan{}, err
	}
	if l.ReturnDate, err = decodeEpoch("returnDate", f[5]); err != nil {
		return Loan{}, err
	}
	if l.IsReturned, err = decodeBool("isReturned", f[6]); err != nil {
		return Loan{}, err
	}
	amount, err := decimal.NewFromString(f[7])
	if err != nil || amount.IsNegative() {
		return Loan{}, parseErrorf("overdueAmount: want non-negative decimal, got %q", f[7])
	}
	l.OverdueAmount = amount
	return l, nil
}

// EncodeUser renders username|password|activeLoans.
func EncodeUser(u User) string {
	return strings.Join([]string{
		sanitize(u.Username),
		sanitize(u.Password),
		strconv.Itoa(u.ActiveLoans),
	}, Delimiter)
}

// DecodeUser parses a line written by EncodeUser.
func DecodeUser(line string) (User, error) {
	f, err := splitFields("user", line, userFields)
	if err != nil {
		return User{}, err
	}
	if f[0] == "" {
		return User{}, parseErrorf("username: empty")
	}
	n, err := strconv.Atoi(f[2])
	if err != nil || n < 0 {
		return User{}, parseErrorf("activeLoans: want non-negative integer, got %q", f[2])
	}
	return User{Username: f[0], Password: f[1], ActiveLoans: n}, nil
}

// EncodeCounters renders the counter mirror: "nextBookID nextLoanID".
func EncodeCounters(c Counters) string {
	return fmt.Sprintf("%d %d", c.NextBookID, c.NextLoanID)
}

// DecodeCounters parses the counter mirror.
func DecodeCounters(line string) (Counters, error) {
	f := strings.Fields(line)
	if len(f) != 2 {
		return Counters{}, parseErrorf("counters: want 2 integers, got %d fields", len(f))
	}
	book, err := decodeID("nextBookID", f[0])
	if err != nil {
		return Counters{}, err
	}
	loan, err := decodeID("nextLoanID", f[1])
	if err != nil {
		return Counters{}, err
	}
	return Counters{NextBookID: book, NextLoanID: loan}, nil
}
