package library

import (
	"log/slog"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Session is one logged-in user. It lives only in memory; its ID tags log
// lines and is never stored.
type Session struct {
	ID       string
	Username string

	lm    *LibraryManager
	log   *slog.Logger
	ended bool
}

// Login authenticates and opens a session.
func (lm *LibraryManager) Login(username, password string) (*Session, error) {
	u, err := lm.Authenticate(username, password)
	if err != nil {
		return nil, err
	}
	id := uuid.NewString()
	s := &Session{
		ID:       id,
		Username: u.Username,
		lm:       lm,
		log:      lm.log.With("session_id", id, "username", u.Username),
	}
	s.log.Info("session started")
	return s, nil
}

func (s *Session) check() error {
	if s.ended {
		return &Error{Code: CodeInvalidCredentials, Message: "session has ended"}
	}
	return nil
}

func (s *Session) Loan(bookID int) (Loan, error) {
	if err := s.check(); err != nil {
		return Loan{}, err
	}
	return s.lm.LoanBook(s.Username, bookID)
}

func (s *Session) Return(loanID int) (Loan, error) {
	if err := s.check(); err != nil {
		return Loan{}, err
	}
	return s.lm.ReturnLoan(s.Username, loanID)
}

func (s *Session) Pay(loanID int) (decimal.Decimal, error) {
	if err := s.check(); err != nil {
		return decimal.Zero, err
	}
	return s.lm.PayLoan(s.Username, loanID)
}

func (s *Session) ActiveLoans() []LoanView  { return s.lm.ActiveLoans(s.Username) }
func (s *Session) Fees() FeeStatement       { return s.lm.ListOutstandingFees(s.Username) }
func (s *Session) ActiveLoanCount() int     { return s.lm.CurrentActiveLoanCount(s.Username) }
func (s *Session) MaxActiveLoans() int      { return s.lm.Policy().MaxActiveLoans }
func (s *Session) Manager() *LibraryManager { return s.lm }

// Logout ends the session. Later lending calls fail.
func (s *Session) Logout() {
	if s.ended {
		return
	}
	s.ended = true
	s.log.Info("session ended")
}
