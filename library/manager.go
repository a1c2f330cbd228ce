package library

import (
	"errors"
	"fmt"
	"log/slog"
	"slices"
	"sync"
	"time"

	"community-library/storage"
)

// LibraryManager is the operation surface used by the CLI. It owns the
// Store and serializes every operation with one mutex.
type LibraryManager struct {
	mu sync.Mutex

	store     *Store
	log       *slog.Logger
	now       func() time.Time
	policy    Policy
	creds     Credentials
	validator *inputValidator
	warnings  []error
}

// Option configures a LibraryManager.
type Option func(*LibraryManager)

func WithLogger(log *slog.Logger) Option {
	return func(lm *LibraryManager) { lm.log = log }
}

// WithClock replaces time.Now. Times are kept at second precision in UTC
// because that is how they are stored.
func WithClock(now func() time.Time) Option {
	return func(lm *LibraryManager) {
		lm.now = func() time.Time { return now().UTC().Truncate(time.Second) }
	}
}

func WithPolicy(p Policy) Option {
	return func(lm *LibraryManager) { lm.policy = p }
}

func WithCredentials(c Credentials) Option {
	return func(lm *LibraryManager) { lm.creds = c }
}

// NewLibraryManager loads all collections from backend and repairs derived
// fields. Load problems never fail construction; they are kept in
// Warnings().
func NewLibraryManager(backend storage.Backend, opts ...Option) (*LibraryManager, error) {
	if backend == nil {
		return nil, errors.New("library: nil storage backend")
	}
	lm := &LibraryManager{
		log:       slog.Default(),
		policy:    DefaultPolicy(),
		creds:     PlainCredentials{},
		validator: newInputValidator(),
	}
	WithClock(time.Now)(lm)
	for _, opt := range opts {
		opt(lm)
	}
	if lm.log == nil {
		lm.log = slog.Default()
	}
	if lm.policy.MaxActiveLoans <= 0 || lm.policy.LoanPeriod <= 0 {
		return nil, fmt.Errorf("library: invalid policy: max %d loans, period %s", lm.policy.MaxActiveLoans, lm.policy.LoanPeriod)
	}

	adminPassword, err := lm.creds.Hash(DefaultAdminPassword)
	if err != nil {
		return nil, err
	}
	lm.store = NewStore(backend, lm.log, User{Username: DefaultAdminUsername, Password: adminPassword})
	lm.warnings = lm.store.Load()

	if _, err := lm.RepairAll(); err != nil {
		lm.warnings = append(lm.warnings, err)
	}
	return lm, nil
}

// Warnings returns what was skipped or failed while starting up.
func (lm *LibraryManager) Warnings() []error {
	lm.mu.Lock()
	defer lm.mu.Unlock()
	return slices.Clone(lm.warnings)
}

// Policy returns the borrowing rules in force.
func (lm *LibraryManager) Policy() Policy { return lm.policy }

// Counters returns the next book and loan IDs.
func (lm *LibraryManager) Counters() Counters {
	lm.mu.Lock()
	defer lm.mu.Unlock()
	return lm.store.Counters()
}

// RepairAll recomputes every user's active loan count and every book's
// availability from the loan list. Users are always saved unless they could
// not be read at startup; books only when a flag changed.
func (lm *LibraryManager) RepairAll() (RepairReport, error) {
	lm.mu.Lock()
	defer lm.mu.Unlock()

	r := lm.store.repair()
	var saves []func() error
	if !lm.store.usersUnreadable {
		saves = append(saves, lm.store.SaveUsers)
	}
	if r.BooksCorrected > 0 {
		saves = append(saves, lm.store.SaveBooks)
	}
	return r, lm.persist("repair", saves...)
}

// persist runs every save even after a failure. The in-memory change is
// kept either way; a failure comes back as IOFailure.
func (lm *LibraryManager) persist(op string, saves ...func() error) error {
	var errs []error
	for _, save := range saves {
		if err := save(); err != nil {
			errs = append(errs, err)
		}
	}
	if len(errs) == 0 {
		return nil
	}
	err := Wrap(errors.Join(errs...), CodeIOFailure, op+": change kept in memory but not saved")
	lm.log.Error("persistence failed", "op", op, "error", err)
	return err
}
