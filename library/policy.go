package library

import (
	"time"

	"github.com/shopspring/decimal"
)

// Borrowing limits.
const (
	MaxActiveLoans = 5
	LoanPeriodDays = 14
)

const day = 24 * time.Hour

// Policy holds the borrowing rules applied by the lending workflow.
type Policy struct {
	MaxActiveLoans int
	LoanPeriod     time.Duration
}

// DefaultPolicy returns a five-loan cap with a fourteen-day loan period.
func DefaultPolicy() Policy {
	return Policy{MaxActiveLoans: MaxActiveLoans, LoanPeriod: LoanPeriodDays * day}
}

// DueDate is the loan date plus the loan period.
func (p Policy) DueDate(loanDate time.Time) time.Time {
	return loanDate.Add(p.LoanPeriod)
}

// CheckEligibility rejects a borrower at the loan cap or with any unpaid
// fee, whichever loan the fee came from.
func (p Policy) CheckEligibility(username string, loans []Loan) error {
	if open := RecomputeActiveLoans(loans, username); open >= p.MaxActiveLoans {
		return policyViolationf("loan limit reached: %d of %d books on loan", open, p.MaxActiveLoans)
	}
	for _, l := range loans {
		if l.Username == username && l.Owes() {
			return policyViolationf("outstanding overdue fee on loan %d must be paid before borrowing", l.ID)
		}
	}
	return nil
}

// DaysOverdue counts whole days between due and returned; early or on-time
// returns count zero.
func DaysOverdue(due, returned time.Time) int {
	d := returned.Sub(due)
	if d <= 0 {
		return 0
	}
	return int(d / day)
}

var (
	feeDayOne   = decimal.NewFromInt(5)
	feeDayTwo   = decimal.NewFromInt(6)
	feeDayThree = decimal.NewFromInt(7)
	feePerDay   = decimal.NewFromInt(10)
)

// OverdueFee is 5.00, 6.00 and 7.00 for one to three days late, then jumps
// to 10.00 per day from the fourth day on.
func OverdueFee(daysOverdue int) decimal.Decimal {
	switch {
	case daysOverdue <= 0:
		return decimal.Zero
	case daysOverdue == 1:
		return feeDayOne
	case daysOverdue == 2:
		return feeDayTwo
	case daysOverdue == 3:
		return feeDayThree
	default:
		return feePerDay.Mul(decimal.NewFromInt(int64(daysOverdue)))
	}
}
