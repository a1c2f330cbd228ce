package library

import (
	"crypto/subtle"
	"fmt"
	"strings"

	"golang.org/x/crypto/bcrypt"
)

// Password schemes accepted by CredentialsFor.
const (
	SchemePlain  = "plain"
	SchemeBcrypt = "bcrypt"
)

// Credentials turns a password into its stored form and checks a password
// against a stored value.
type Credentials interface {
	Name() string
	Hash(password string) (string, error)
	Verify(stored, password string) bool
}

// PlainCredentials stores passwords as given. It is the default so that
// existing users files keep working; it is not secure.
type PlainCredentials struct{}

func (PlainCredentials) Name() string                         { return SchemePlain }
func (PlainCredentials) Hash(password string) (string, error) { return password, nil }
func (PlainCredentials) Verify(stored, password string) bool {
	return subtle.ConstantTimeCompare([]byte(stored), []byte(password)) == 1
}

// BcryptCredentials hashes new passwords with bcrypt. Stored values that are
// not bcrypt hashes are compared as plaintext, so an existing users file can
// be migrated one registration at a time.
type BcryptCredentials struct {
	Cost int
}

func (BcryptCredentials) Name() string { return SchemeBcrypt }

func (c BcryptCredentials) Hash(password string) (string, error) {
	cost := c.Cost
	if cost == 0 {
		cost = bcrypt.DefaultCost
	}
	h, err := bcrypt.GenerateFromPassword([]byte(password), cost)
	if err != nil {
		return "", fmt.Errorf("hash password: %w", err)
	}
	return string(h), nil
}

func (c BcryptCredentials) Verify(stored, password string) bool {
	if !strings.HasPrefix(stored, "$2") {
		return PlainCredentials{}.Verify(stored, password)
	}
	return bcrypt.CompareHashAndPassword([]byte(stored), []byte(password)) == nil
}

// CredentialsFor returns the scheme named by scheme; "" means plain.
func CredentialsFor(scheme string, cost int) (Credentials, error) {
	switch scheme {
	case "", SchemePlain:
		return PlainCredentials{}, nil
	case SchemeBcrypt:
		if cost != 0 && (cost < bcrypt.MinCost || cost > bcrypt.MaxCost) {
			return nil, fmt.Errorf("bcrypt cost %d out of range [%d, %d]", cost, bcrypt.MinCost, bcrypt.MaxCost)
		}
		return BcryptCredentials{Cost: cost}, nil
	default:
		return nil, fmt.Errorf("unknown password scheme %q", scheme)
	}
}

// ------------------ Auth gateway ------------------

// Authenticate returns the user whose username and password match exactly.
// Unknown users and wrong passwords fail the same way.
func (lm *LibraryManager) Authenticate(username, password string) (User, error) {
	lm.mu.Lock()
	defer lm.mu.Unlock()

	if i := lm.store.userIndex(username); i >= 0 {
		u := lm.store.users[i]
		if lm.creds.Verify(u.Password, password) {
			return u, nil
		}
	}
	lm.log.Info("authentication failed", "username", username)
	return User{}, ErrInvalidCredentials
}

// Register creates a user with no loans and saves the users collection.
// Usernames are case-sensitive and never normalized.
func (lm *LibraryManager) Register(username, password string) (User, error) {
	if err := lm.validator.validate(credentialsInput{Username: username, Password: password}); err != nil {
		return User{}, err
	}

	lm.mu.Lock()
	defer lm.mu.Unlock()

	if lm.store.userIndex(username) >= 0 {
		return User{}, &Error{Code: CodeDuplicateUsername, Message: fmt.Sprintf("username %q already exists", username)}
	}
	stored, err := lm.creds.Hash(password)
	if err != nil {
		return User{}, Wrap(err, CodeValidation, "register")
	}
	u := User{Username: username, Password: stored, ActiveLoans: 0}
	lm.store.users = append(lm.store.users, u)
	lm.log.Debug("user registered", "username", username, "scheme", lm.creds.Name())
	return u, lm.persist("register", lm.store.SaveUsers)
}
