package library

// RecomputeActiveLoans counts the open loans held by username. The loan list
// is the source of truth; User.ActiveLoans only caches this number.
func RecomputeActiveLoans(loans []Loan, username string) int {
	n := 0
	for _, l := range loans {
		if l.Username == username && !l.IsReturned {
			n++
		}
	}
	return n
}

func hasOpenLoan(loans []Loan, bookID int) bool {
	for _, l := range loans {
		if l.BookID == bookID && !l.IsReturned {
			return true
		}
	}
	return false
}

// RepairReport describes what a repair pass corrected.
type RepairReport struct {
	UsersCorrected int `json:"users_corrected"`
	BooksCorrected int `json:"books_corrected"`
}

// syncUser refreshes the cached count of one user.
func (s *Store) syncUser(username string) {
	if i := s.userIndex(username); i >= 0 {
		s.users[i].ActiveLoans = RecomputeActiveLoans(s.loans, username)
	}
}

// repair recomputes every cached count and every availability flag from
// the loan list.
func (s *Store) repair() RepairReport {
	var r RepairReport
	for i := range s.users {
		want := RecomputeActiveLoans(s.loans, s.users[i].Username)
		if s.users[i].ActiveLoans != want {
			s.log.Info("repaired active loan count",
				"username", s.users[i].Username,
				"cached", s.users[i].ActiveLoans,
				"actual", want,
			)
			s.users[i].ActiveLoans = want
			r.UsersCorrected++
		}
	}
	for i := range s.books {
		want := !hasOpenLoan(s.loans, s.books[i].ID)
		if s.books[i].IsAvailable != want {
			s.log.Info("repaired book availability",
				"book_id", s.books[i].ID,
				"available", want,
			)
			s.books[i].IsAvailable = want
			r.BooksCorrected++
		}
	}
	return r
}
