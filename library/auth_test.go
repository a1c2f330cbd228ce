package library

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"community-library/storage"
)

func TestRegister_DuplicateAdmin(t *testing.T) {
	mgr, _ := newManager(t)
	_, err := mgr.Register("admin", "x")
	assert.ErrorIs(t, err, ErrDuplicateUsername)
}

func TestRegister_CaseSensitive(t *testing.T) {
	backend := tempBackend(t)
	mgr := openManager(t, backend, &testClock{now: t0})

	u, err := mgr.Register("Admin", "x")
	require.NoError(t, err)
	assert.Equal(t, User{Username: "Admin", Password: "x", ActiveLoans: 0}, u)

	lines, err := backend.ReadLines(storage.Users)
	require.NoError(t, err)
	assert.Equal(t, []string{"admin|admin123|0", "Admin|x|0"}, lines)
}

func TestRegister_Validation(t *testing.T) {
	mgr, _ := newManager(t)
	for _, tc := range []struct{ user, pass string }{
		{"", "pw"},
		{"bob", ""},
		{"bo|b", "pw"},
		{"bob", "p\nw"},
	} {
		_, err := mgr.Register(tc.user, tc.pass)
		assert.ErrorIs(t, err, ErrValidation, "%q/%q", tc.user, tc.pass)
	}
}

func TestAuthenticate(t *testing.T) {
	mgr, _ := newManager(t)
	register(t, mgr, "alice")

	u, err := mgr.Authenticate("alice", "pw-alice")
	require.NoError(t, err)
	assert.Equal(t, "alice", u.Username)

	_, err = mgr.Authenticate("alice", "wrong")
	assert.ErrorIs(t, err, ErrInvalidCredentials)
	_, err = mgr.Authenticate("Alice", "pw-alice")
	assert.ErrorIs(t, err, ErrInvalidCredentials)
	_, err = mgr.Authenticate("ghost", "")
	assert.ErrorIs(t, err, ErrInvalidCredentials)
}

func TestBcryptCredentials(t *testing.T) {
	backend := tempBackend(t)
	seed(t, backend, storage.Users, "legacy|plainpw|0")
	creds := BcryptCredentials{Cost: bcrypt.MinCost}
	mgr := openManager(t, backend, &testClock{now: t0}, WithCredentials(creds))

	u, err := mgr.Register("alice", "s3cret")
	require.NoError(t, err)
	assert.NotEqual(t, "s3cret", u.Password)

	_, err = mgr.Authenticate("alice", "s3cret")
	assert.NoError(t, err)
	_, err = mgr.Authenticate("alice", "wrong")
	assert.ErrorIs(t, err, ErrInvalidCredentials)
	_, err = mgr.Authenticate("legacy", "plainpw")
	assert.NoError(t, err)
}

func TestCredentialsFor(t *testing.T) {
	c, err := CredentialsFor("", 0)
	require.NoError(t, err)
	assert.Equal(t, SchemePlain, c.Name())

	c, err = CredentialsFor(SchemeBcrypt, 10)
	require.NoError(t, err)
	assert.Equal(t, BcryptCredentials{Cost: 10}, c)

	_, err = CredentialsFor(SchemeBcrypt, 99)
	assert.Error(t, err)
	_, err = CredentialsFor("md5", 0)
	assert.Error(t, err)
}

func TestSession(t *testing.T) {
	mgr, clock := newManager(t)
	register(t, mgr, "alice")
	b := addBook(t, mgr, "Dune", "Frank Herbert")

	_, err := mgr.Login("alice", "nope")
	assert.ErrorIs(t, err, ErrInvalidCredentials)

	s, err := mgr.Login("alice", "pw-alice")
	require.NoError(t, err)
	assert.NotEmpty(t, s.ID)
	assert.Equal(t, MaxActiveLoans, s.MaxActiveLoans())

	l, err := s.Loan(b.ID)
	require.NoError(t, err)
	assert.Equal(t, 1, s.ActiveLoanCount())
	require.Len(t, s.ActiveLoans(), 1)

	clock.Advance(15 * day)
	_, err = s.Return(l.ID)
	require.NoError(t, err)
	assert.Equal(t, "5.00", s.Fees().Total.StringFixed(2))
	paid, err := s.Pay(l.ID)
	require.NoError(t, err)
	assert.Equal(t, "5.00", paid.StringFixed(2))

	other, err := mgr.Login("alice", "pw-alice")
	require.NoError(t, err)
	assert.NotEqual(t, s.ID, other.ID)

	s.Logout()
	_, err = s.Loan(b.ID)
	assert.ErrorIs(t, err, ErrInvalidCredentials)
}
