package library

import (
	"github.com/shopspring/decimal"
)

// ------------------ Lending ------------------

// LoanBook opens a loan of bookID for username. Every precondition is
// checked before anything changes; on success Books, Loans, Users and the
// counter mirror are saved in that order.
func (lm *LibraryManager) LoanBook(username string, bookID int) (Loan, error) {
	lm.mu.Lock()
	defer lm.mu.Unlock()

	s := lm.store
	if s.userIndex(username) < 0 {
		return Loan{}, notFoundf("user %q not found", username)
	}
	if err := lm.policy.CheckEligibility(username, s.loans); err != nil {
		return Loan{}, err
	}
	bi := s.bookIndex(bookID)
	if bi < 0 {
		return Loan{}, notFoundf("book %d not found", bookID)
	}
	if !s.books[bi].IsAvailable {
		return Loan{}, policyViolationf("book %d is not available", bookID)
	}

	now := lm.now()
	l := Loan{
		ID:            s.takeLoanID(),
		BookID:        bookID,
		Username:      username,
		LoanDate:      now,
		DueDate:       lm.policy.DueDate(now),
		IsReturned:    false,
		OverdueAmount: decimal.Zero,
	}
	s.loans = append(s.loans, l)
	s.books[bi].IsAvailable = false
	s.syncUser(username)

	lm.log.Debug("book loaned", "loan_id", l.ID, "book_id", bookID, "username", username)
	return l, lm.persist("loan book", s.SaveBooks, s.SaveLoans, s.SaveUsers, s.SaveCounters)
}

// ReturnLoan closes an open loan owned by username and freezes its overdue
// fee. Returning a loan of another user reports NotFound.
func (lm *LibraryManager) ReturnLoan(username string, loanID int) (Loan, error) {
	lm.mu.Lock()
	defer lm.mu.Unlock()

	s := lm.store
	li := s.loanIndex(loanID)
	if li < 0 || s.loans[li].Username != username {
		return Loan{}, notFoundf("loan %d not found", loanID)
	}
	if s.loans[li].IsReturned {
		return Loan{}, policyViolationf("loan %d is already returned", loanID)
	}

	l := &s.loans[li]
	l.ReturnDate = lm.now()
	l.IsReturned = true
	days := DaysOverdue(l.DueDate, l.ReturnDate)
	l.OverdueAmount = OverdueFee(days)

	// The book may have been deleted while on loan in older data.
	if bi := s.bookIndex(l.BookID); bi >= 0 {
		s.books[bi].IsAvailable = true
	}
	s.syncUser(username)

	lm.log.Debug("loan returned",
		"loan_id", loanID,
		"days_overdue", days,
		"overdue_amount", l.OverdueAmount.StringFixed(2),
	)
	return *l, lm.persist("return loan", s.SaveBooks, s.SaveLoans, s.SaveUsers)
}

// PayLoan settles the overdue fee of a returned loan owned by username and
// returns the amount paid. Confirmation is the caller's job.
func (lm *LibraryManager) PayLoan(username string, loanID int) (decimal.Decimal, error) {
	lm.mu.Lock()
	defer lm.mu.Unlock()

	s := lm.store
	li := s.loanIndex(loanID)
	if li < 0 || s.loans[li].Username != username {
		return decimal.Zero, notFoundf("loan %d not found", loanID)
	}
	l := &s.loans[li]
	if !l.Owes() {
		return decimal.Zero, policyViolationf("loan %d has no outstanding fee", loanID)
	}

	paid := l.OverdueAmount
	l.OverdueAmount = decimal.Zero
	lm.log.Debug("fee paid", "loan_id", loanID, "amount", paid.StringFixed(2))
	return paid, lm.persist("pay loan", s.SaveLoans)
}

// ActiveLoans lists the open loans of username with their books resolved.
func (lm *LibraryManager) ActiveLoans(username string) []LoanView {
	return lm.loanViews(username, func(l Loan) bool { return !l.IsReturned })
}

// LoanHistory lists every loan of username, oldest first.
func (lm *LibraryManager) LoanHistory(username string) []LoanView {
	return lm.loanViews(username, func(Loan) bool { return true })
}

func (lm *LibraryManager) loanViews(username string, keep func(Loan) bool) []LoanView {
	lm.mu.Lock()
	defer lm.mu.Unlock()

	out := make([]LoanView, 0)
	for _, l := range lm.store.loans {
		if l.Username == username && keep(l) {
			out = append(out, lm.store.view(l))
		}
	}
	return out
}

// ListOutstandingFees returns every unpaid fee of username and their total.
func (lm *LibraryManager) ListOutstandingFees(username string) FeeStatement {
	lm.mu.Lock()
	defer lm.mu.Unlock()

	st := FeeStatement{Username: username, Items: make([]LoanView, 0), Total: decimal.Zero}
	for _, l := range lm.store.loans {
		if l.Username == username && l.Owes() {
			st.Items = append(st.Items, lm.store.view(l))
			st.Total = st.Total.Add(l.OverdueAmount)
		}
	}
	return st
}

// CurrentActiveLoanCount counts the open loans of username from the loan
// list, not from the cached user field.
func (lm *LibraryManager) CurrentActiveLoanCount(username string) int {
	lm.mu.Lock()
	defer lm.mu.Unlock()
	return RecomputeActiveLoans(lm.store.loans, username)
}
