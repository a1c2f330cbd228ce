package library

import (
	"fmt"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoanBook_OpensLoan(t *testing.T) {
	mgr, _ := newManager(t)
	register(t, mgr, "alice")
	b := addBook(t, mgr, "Dune", "Frank Herbert")

	l, err := mgr.LoanBook("alice", b.ID)
	require.NoError(t, err)
	assert.Equal(t, LoanOpen, l.State())
	assert.Equal(t, t0, l.LoanDate)
	assert.Equal(t, due, l.DueDate)
	assert.True(t, l.ReturnDate.IsZero())

	got, err := mgr.GetBook(b.ID)
	require.NoError(t, err)
	assert.False(t, got.IsAvailable)
	assert.Equal(t, 1, mgr.CurrentActiveLoanCount("alice"))
	assertConsistent(t, mgr)
}

func TestLoanBook_Rejections(t *testing.T) {
	mgr, _ := newManager(t)
	register(t, mgr, "alice")
	register(t, mgr, "bob")
	b := addBook(t, mgr, "Dune", "Frank Herbert")
	_, err := mgr.LoanBook("alice", b.ID)
	require.NoError(t, err)

	_, err = mgr.LoanBook("bob", b.ID)
	assert.ErrorIs(t, err, ErrPolicyViolation)
	_, err = mgr.LoanBook("bob", 99)
	assert.ErrorIs(t, err, ErrNotFound)
	_, err = mgr.LoanBook("nobody", b.ID)
	assert.ErrorIs(t, err, ErrNotFound)
	assert.Len(t, mgr.LoanHistory("bob"), 0)
}

func TestLoanBook_SixthLoanRejected(t *testing.T) {
	mgr, _ := newManager(t)
	register(t, mgr, "alice")
	for i := range MaxActiveLoans {
		b := addBook(t, mgr, fmt.Sprintf("Book %d", i), "Author")
		_, err := mgr.LoanBook("alice", b.ID)
		require.NoError(t, err)
	}
	sixth := addBook(t, mgr, "Book 6", "Author")

	_, err := mgr.LoanBook("alice", sixth.ID)
	assert.ErrorIs(t, err, ErrPolicyViolation)
	assert.Equal(t, MaxActiveLoans, mgr.CurrentActiveLoanCount("alice"))
	got, err := mgr.GetBook(sixth.ID)
	require.NoError(t, err)
	assert.True(t, got.IsAvailable)
	assertConsistent(t, mgr)
}

func TestLending_LateReturnBlocksUntilPaid(t *testing.T) {
	mgr, clock := newManager(t)
	register(t, mgr, "alice")
	dune := addBook(t, mgr, "Dune", "Frank Herbert")
	emma := addBook(t, mgr, "Emma", "Jane Austen")

	l, err := mgr.LoanBook("alice", dune.ID)
	require.NoError(t, err)
	clock.Advance(19 * day)

	returned, err := mgr.ReturnLoan("alice", l.ID)
	require.NoError(t, err)
	assert.Equal(t, LoanReturned, returned.State())
	assert.Equal(t, clock.Now(), returned.ReturnDate)
	assert.True(t, returned.OverdueAmount.Equal(decimal.NewFromInt(50)), returned.OverdueAmount.String())
	assert.Equal(t, 0, mgr.CurrentActiveLoanCount("alice"))
	assertConsistent(t, mgr)

	_, err = mgr.LoanBook("alice", emma.ID)
	assert.ErrorIs(t, err, ErrPolicyViolation)

	fees := mgr.ListOutstandingFees("alice")
	require.Len(t, fees.Items, 1)
	assert.Equal(t, "Dune", fees.Items[0].BookTitle())
	assert.Equal(t, "50.00", fees.Total.StringFixed(2))

	paid, err := mgr.PayLoan("alice", l.ID)
	require.NoError(t, err)
	assert.Equal(t, "50.00", paid.StringFixed(2))
	assert.Empty(t, mgr.ListOutstandingFees("alice").Items)

	history := mgr.LoanHistory("alice")
	require.Len(t, history, 1)
	assert.Equal(t, LoanSettled, history[0].Loan.State())

	_, err = mgr.LoanBook("alice", emma.ID)
	assert.NoError(t, err)
}

func TestReturnLoan_Errors(t *testing.T) {
	mgr, _ := newManager(t)
	register(t, mgr, "alice")
	register(t, mgr, "bob")
	b := addBook(t, mgr, "Dune", "Frank Herbert")
	l, err := mgr.LoanBook("alice", b.ID)
	require.NoError(t, err)

	_, err = mgr.ReturnLoan("alice", 42)
	assert.ErrorIs(t, err, ErrNotFound)
	_, err = mgr.ReturnLoan("bob", l.ID)
	assert.ErrorIs(t, err, ErrNotFound)

	_, err = mgr.ReturnLoan("alice", l.ID)
	require.NoError(t, err)
	_, err = mgr.ReturnLoan("alice", l.ID)
	assert.ErrorIs(t, err, ErrPolicyViolation)
}

func TestReturnLoan_OnTimeHasNoFee(t *testing.T) {
	mgr, clock := newManager(t)
	register(t, mgr, "alice")
	b := addBook(t, mgr, "Dune", "Frank Herbert")
	l, err := mgr.LoanBook("alice", b.ID)
	require.NoError(t, err)
	clock.Advance(14*day + 23*time.Hour)

	returned, err := mgr.ReturnLoan("alice", l.ID)
	require.NoError(t, err)
	assert.True(t, returned.OverdueAmount.IsZero())
	assert.Equal(t, LoanSettled, returned.State())
}

func TestPayLoan_Errors(t *testing.T) {
	mgr, clock := newManager(t)
	register(t, mgr, "alice")
	register(t, mgr, "bob")
	b := addBook(t, mgr, "Dune", "Frank Herbert")
	l, err := mgr.LoanBook("alice", b.ID)
	require.NoError(t, err)

	_, err = mgr.PayLoan("alice", l.ID)
	assert.ErrorIs(t, err, ErrPolicyViolation)

	clock.Advance(16 * day)
	_, err = mgr.ReturnLoan("alice", l.ID)
	require.NoError(t, err)

	_, err = mgr.PayLoan("bob", l.ID)
	assert.ErrorIs(t, err, ErrNotFound)
	_, err = mgr.PayLoan("alice", 77)
	assert.ErrorIs(t, err, ErrNotFound)

	paid, err := mgr.PayLoan("alice", l.ID)
	require.NoError(t, err)
	assert.Equal(t, "6.00", paid.StringFixed(2))
	_, err = mgr.PayLoan("alice", l.ID)
	assert.ErrorIs(t, err, ErrPolicyViolation)
}

func TestActiveLoans_ResolvesDeletedBook(t *testing.T) {
	mgr, _ := newManager(t)
	register(t, mgr, "alice")
	dune := addBook(t, mgr, "Dune", "Frank Herbert")
	emma := addBook(t, mgr, "Emma", "Jane Austen")
	l1, err := mgr.LoanBook("alice", dune.ID)
	require.NoError(t, err)
	_, err = mgr.LoanBook("alice", emma.ID)
	require.NoError(t, err)
	_, err = mgr.ReturnLoan("alice", l1.ID)
	require.NoError(t, err)
	require.NoError(t, mgr.DeleteBook(dune.ID))

	active := mgr.ActiveLoans("alice")
	require.Len(t, active, 1)
	assert.Equal(t, "Emma", active[0].BookTitle())

	history := mgr.LoanHistory("alice")
	require.Len(t, history, 2)
	assert.Nil(t, history[0].Book)
	assert.Equal(t, "Unknown", history[0].BookTitle())
}
