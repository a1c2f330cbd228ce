package library

import (
	"fmt"
	"log/slog"

	"community-library/storage"
)

// Bootstrap administrator credentials, created when no users are stored.
const (
	DefaultAdminUsername = "admin"
	DefaultAdminPassword = "admin123"
)

// Store owns the in-memory collections and the ID counters, and moves them
// to and from the backend through the record codec. It does no locking of
// its own; LibraryManager serializes access.
type Store struct {
	backend   storage.Backend
	log       *slog.Logger
	bootstrap User

	books    []Book
	loans    []Loan
	users    []User
	counters Counters

	// usersUnreadable is set when the users resource exists but could not
	// be read; repair then leaves it alone.
	usersUnreadable bool
}

// NewStore returns an empty store. admin is the account created when the
// user collection is missing or empty.
func NewStore(backend storage.Backend, log *slog.Logger, admin User) *Store {
	if log == nil {
		log = slog.Default()
	}
	return &Store{
		backend:   backend,
		log:       log,
		bootstrap: admin,
		counters:  Counters{NextBookID: 1, NextLoanID: 1},
	}
}

// Load replaces the in-memory state with the backend content. It never
// fails: malformed lines are skipped and unreadable resources start empty.
// Everything skipped is returned as warnings.
func (s *Store) Load() []error {
	var warnings []error
	warn := func(err error) {
		s.log.Warn("load warning", "backend", s.backend.Name(), "error", err)
		warnings = append(warnings, err)
	}

	mirror := Counters{NextBookID: 1, NextLoanID: 1}
	if lines, err := s.read(storage.Counters, warn); err == nil && len(lines) > 0 {
		c, err := DecodeCounters(lines[0])
		if err != nil {
			warn(Wrapf(err, CodeParse, "%s line 1", storage.Counters))
		} else {
			mirror = c
		}
	}

	s.books = s.books[:0]
	lines, _ := s.read(storage.Books, warn)
	eachRecord(storage.Books, lines, DecodeBook, warn, func(b Book) { s.books = append(s.books, b) })

	s.loans = s.loans[:0]
	lines, _ = s.read(storage.Loans, warn)
	eachRecord(storage.Loans, lines, DecodeLoan, warn, func(l Loan) { s.loans = append(s.loans, l) })

	s.counters = deriveCounters(mirror, s.books, s.loans)

	s.users = s.users[:0]
	lines, err := s.read(storage.Users, warn)
	eachRecord(storage.Users, lines, DecodeUser, warn, func(u User) { s.users = append(s.users, u) })
	if len(s.users) == 0 {
		s.users = append(s.users, s.bootstrap)
		s.log.Info("created bootstrap administrator", "username", s.bootstrap.Username)
		// An unreadable file is left alone; it may still hold real accounts.
		s.usersUnreadable = err != nil && !storage.IsNotFound(err)
		if !s.usersUnreadable {
			if err := s.SaveUsers(); err != nil {
				warn(err)
			}
		}
	}

	s.log.Debug("store loaded",
		"books", len(s.books),
		"loans", len(s.loans),
		"users", len(s.users),
		"next_book_id", s.counters.NextBookID,
		"next_loan_id", s.counters.NextLoanID,
	)
	return warnings
}

// read returns the lines of r. A missing resource is not a warning.
func (s *Store) read(r storage.Resource, warn func(error)) ([]string, error) {
	lines, err := s.backend.ReadLines(r)
	if err != nil && !storage.IsNotFound(err) {
		warn(Wrapf(err, CodeIOFailure, "read %s", r))
	}
	return lines, err
}

func eachRecord[T any](r storage.Resource, lines []string, decode func(string) (T, error), warn func(error), add func(T)) {
	for i, line := range lines {
		if line == "" {
			continue
		}
		v, err := decode(line)
		if err != nil {
			warn(Wrapf(err, CodeParse, "%s line %d", r, i+1))
			continue
		}
		add(v)
	}
}

// deriveCounters takes the larger of the mirror and max(ID)+1, so IDs stay
// unique even when the mirror is stale or missing.
func deriveCounters(mirror Counters, books []Book, loans []Loan) Counters {
	c := mirror
	for _, b := range books {
		if b.ID >= c.NextBookID {
			c.NextBookID = b.ID + 1
		}
	}
	for _, l := range loans {
		if l.ID >= c.NextLoanID {
			c.NextLoanID = l.ID + 1
		}
	}
	return c
}

// ------------------ Saving ------------------

func (s *Store) SaveBooks() error {
	lines := make([]string, len(s.books))
	for i, b := range s.books {
		lines[i] = EncodeBook(b)
	}
	return s.write(storage.Books, lines)
}

func (s *Store) SaveLoans() error {
	lines := make([]string, len(s.loans))
	for i, l := range s.loans {
		lines[i] = EncodeLoan(l)
	}
	return s.write(storage.Loans, lines)
}

func (s *Store) SaveUsers() error {
	lines := make([]string, len(s.users))
	for i, u := range s.users {
		lines[i] = EncodeUser(u)
	}
	return s.write(storage.Users, lines)
}

func (s *Store) SaveCounters() error {
	return s.write(storage.Counters, []string{EncodeCounters(s.counters)})
}

func (s *Store) write(r storage.Resource, lines []string) error {
	if err := s.backend.WriteLines(r, lines); err != nil {
		return Wrapf(err, CodeIOFailure, "save %s", r)
	}
	return nil
}

// ------------------ Lookups ------------------

func (s *Store) bookIndex(id int) int {
	for i := range s.books {
		if s.books[i].ID == id {
			return i
		}
	}
	return -1
}

func (s *Store) loanIndex(id int) int {
	for i := range s.loans {
		if s.loans[i].ID == id {
			return i
		}
	}
	return -1
}

func (s *Store) userIndex(username string) int {
	for i := range s.users {
		if s.users[i].Username == username {
			return i
		}
	}
	return -1
}

// BookByID resolves a possibly dangling book reference.
func (s *Store) BookByID(id int) (Book, bool) {
	if i := s.bookIndex(id); i >= 0 {
		return s.books[i], true
	}
	return Book{}, false
}

func (s *Store) view(l Loan) LoanView {
	v := LoanView{Loan: l}
	if b, ok := s.BookByID(l.BookID); ok {
		v.Book = &b
	}
	return v
}

func (s *Store) takeBookID() int {
	id := s.counters.NextBookID
	s.counters.NextBookID++
	return id
}

func (s *Store) takeLoanID() int {
	id := s.counters.NextLoanID
	s.counters.NextLoanID++
	return id
}

// Counters returns the next IDs that will be assigned.
func (s *Store) Counters() Counters { return s.counters }

func (s *Store) String() string {
	return fmt.Sprintf("Store{backend=%s books=%d loans=%d users=%d}", s.backend.Name(), len(s.books), len(s.loans), len(s.users))
}
