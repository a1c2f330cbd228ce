package cli

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/spf13/cobra"
	"golang.org/x/term"

	"community-library/library"
)

const banner = "========================================"

// errQuit ends the shell when input runs out.
var errQuit = errors.New("quit")

type shell struct {
	in  io.Reader
	sc  *bufio.Scanner
	out io.Writer
	mgr *library.LibraryManager
}

func runShell(cmd *cobra.Command, opts *RootOptions) error {
	return withManager(cmd, opts, func(mgr *library.LibraryManager) error {
		in := cmd.InOrStdin()
		s := &shell{in: in, sc: bufio.NewScanner(in), out: cmd.OutOrStdout(), mgr: mgr}
		for _, w := range mgr.Warnings() {
			fmt.Fprintf(cmd.ErrOrStderr(), "warning: %v\n", w)
		}
		if err := s.welcomeMenu(); err != nil && !errors.Is(err, errQuit) {
			return err
		}
		return nil
	})
}

// ------------------ Input ------------------

func (s *shell) line(prompt string) (string, error) {
	fmt.Fprint(s.out, prompt)
	if !s.sc.Scan() {
		if err := s.sc.Err(); err != nil {
			return "", err
		}
		return "", errQuit
	}
	return strings.TrimSpace(s.sc.Text()), nil
}

// number reads an integer; ok is false when the input is not one.
func (s *shell) number(prompt string) (n int, ok bool, err error) {
	text, err := s.line(prompt)
	if err != nil {
		return 0, false, err
	}
	n, convErr := strconv.Atoi(text)
	if convErr != nil {
		fmt.Fprintln(s.out, "Invalid number. Please enter a valid integer.")
		return 0, false, nil
	}
	return n, true, nil
}

// readPassword masks input on a terminal and reads a plain line otherwise.
func (s *shell) readPassword(prompt string) (string, error) {
	f, ok := s.in.(*os.File)
	if !ok || !term.IsTerminal(int(f.Fd())) {
		return s.line(prompt)
	}
	fmt.Fprint(s.out, prompt)
	b, err := term.ReadPassword(int(f.Fd()))
	fmt.Fprintln(s.out)
	if err != nil {
		return "", fmt.Errorf("failed to read password: %w", err)
	}
	return strings.TrimSpace(string(b)), nil
}

func (s *shell) header(title string) {
	fmt.Fprintf(s.out, "\n%s\n    %s\n%s\n", banner, title, banner)
}

// report prints the outcome of a core call. It returns true when the
// operation took effect, including when only saving failed.
func (s *shell) report(err error) bool {
	switch {
	case err == nil:
		return true
	case errors.Is(err, library.ErrIOFailure):
		fmt.Fprintf(s.out, "Warning: the change was not saved to storage: %v\n", err)
		return true
	default:
		fmt.Fprintf(s.out, "Error: %s\n", message(err))
		return false
	}
}

// message is the user-facing text of a library error.
func message(err error) string {
	var de *library.Error
	if errors.As(err, &de) {
		return de.Message
	}
	return err.Error()
}

// ------------------ Menus ------------------

func (s *shell) welcomeMenu() error {
	for {
		fmt.Fprintf(s.out, "\n%s\n  BUKIT KATIL COMMUNITY LIBRARY (BKCL)\n     Library Book Management System\n%s\n", banner, banner)
		fmt.Fprintln(s.out, "1. Login\n2. Register New User\n0. Exit")
		choice, ok, err := s.number("Enter your choice: ")
		if err != nil {
			return err
		}
		if !ok {
			continue
		}
		switch choice {
		case 1:
			sess, err := s.handleLogin()
			if err != nil {
				return err
			}
			if sess != nil {
				if err := s.mainMenu(sess); err != nil {
					return err
				}
			}
		case 2:
			if err := s.handleRegister(); err != nil {
				return err
			}
		case 0:
			fmt.Fprintln(s.out, "\nThank you for using BKCL System!")
			return nil
		default:
			fmt.Fprintln(s.out, "Invalid choice!")
		}
	}
}

func (s *shell) mainMenu(sess *library.Session) error {
	defer sess.Logout()
	for {
		fmt.Fprintf(s.out, "\n%s\n  BUKIT KATIL COMMUNITY LIBRARY (BKCL)\n%s\n", banner, banner)
		fmt.Fprintf(s.out, "Logged in as: %s\n", sess.Username)
		fmt.Fprintf(s.out, "Active Loans: %d/%d\n\n", sess.ActiveLoanCount(), sess.MaxActiveLoans())
		fmt.Fprintln(s.out, "1. Book Catalogue Management")
		fmt.Fprintln(s.out, "2. Loan a Book")
		fmt.Fprintln(s.out, "3. Return a Book")
		fmt.Fprintln(s.out, "4. View Overdue Payments")
		fmt.Fprintln(s.out, "5. Pay Overdue Fees")
		fmt.Fprintln(s.out, "0. Logout")

		choice, ok, err := s.number("Enter your choice: ")
		if err != nil {
			return err
		}
		if !ok {
			continue
		}
		switch choice {
		case 1:
			err = s.catalogueMenu()
		case 2:
			err = s.handleLoan(sess)
		case 3:
			err = s.handleReturn(sess)
		case 4:
			s.header("OVERDUE PAYMENTS")
			writeFees(s.out, sess.Fees())
		case 5:
			err = s.handlePay(sess)
		case 0:
			fmt.Fprintln(s.out, "Logged out successfully!")
			return nil
		default:
			fmt.Fprintln(s.out, "Invalid choice!")
		}
		if err != nil {
			return err
		}
	}
}

func (s *shell) catalogueMenu() error {
	for {
		s.header("BOOK CATALOGUE MANAGEMENT")
		fmt.Fprintln(s.out, "1. Add New Book")
		fmt.Fprintln(s.out, "2. View All Books")
		fmt.Fprintln(s.out, "3. Search Book")
		fmt.Fprintln(s.out, "4. Edit Book Information")
		fmt.Fprintln(s.out, "5. Delete Book")
		fmt.Fprintln(s.out, "0. Back to Main Menu")

		choice, ok, err := s.number("Enter your choice: ")
		if err != nil {
			return err
		}
		if !ok {
			continue
		}
		switch choice {
		case 1:
			err = s.handleAddBook()
		case 2:
			s.header("BOOK CATALOGUE")
			writeBooks(s.out, s.mgr.ListBooks(), "No books in the catalogue.")
		case 3:
			err = s.handleSearch()
		case 4:
			err = s.handleEditBook()
		case 5:
			err = s.handleDeleteBook()
		case 0:
			return nil
		default:
			fmt.Fprintln(s.out, "Invalid choice!")
		}
		if err != nil {
			return err
		}
	}
}

// ------------------ Auth ------------------

func (s *shell) handleLogin() (*library.Session, error) {
	s.header("BKCL LOGIN SYSTEM")
	username, err := s.line("Username: ")
	if err != nil {
		return nil, err
	}
	password, err := s.readPassword("Password: ")
	if err != nil {
		return nil, err
	}
	sess, err := s.mgr.Login(username, password)
	if err != nil {
		fmt.Fprintln(s.out, "\nInvalid username or password!")
		return nil, nil
	}
	fmt.Fprintf(s.out, "\nLogin successful! Welcome, %s!\n", sess.Username)
	return sess, nil
}

func (s *shell) handleRegister() error {
	s.header("USER REGISTRATION")
	username, err := s.line("Username: ")
	if err != nil {
		return err
	}
	password, err := s.readPassword("Password: ")
	if err != nil {
		return err
	}
	_, err = s.mgr.Register(username, password)
	if errors.Is(err, library.ErrDuplicateUsername) {
		fmt.Fprintln(s.out, "\nUsername already exists!")
		return nil
	}
	if s.report(err) {
		fmt.Fprintln(s.out, "\nRegistration successful! You can now login.")
	}
	return nil
}

// ------------------ Catalogue ------------------

func (s *shell) handleAddBook() error {
	s.header("ADD NEW BOOK")
	fmt.Fprintf(s.out, "Book ID (auto): %d\n", s.mgr.Counters().NextBookID)
	var in library.BookInput
	for _, f := range []struct {
		prompt string
		dst    *string
	}{
		{"Title: ", &in.Title},
		{"Author: ", &in.Author},
		{"ISBN: ", &in.ISBN},
	} {
		v, err := s.line(f.prompt)
		if err != nil {
			return err
		}
		*f.dst = v
	}
	b, err := s.mgr.AddBook(in)
	if s.report(err) {
		fmt.Fprintf(s.out, "\nBook added successfully! (ID %d)\n", b.ID)
	}
	return nil
}

func (s *shell) handleSearch() error {
	s.header("SEARCH BOOK")
	kw, err := s.line("Enter search keyword (title or author): ")
	if err != nil {
		return err
	}
	if kw == "" {
		fmt.Fprintln(s.out, "No keyword entered.")
		return nil
	}
	fmt.Fprintln(s.out, "\nSearch Results:")
	writeBooks(s.out, s.mgr.SearchBooks(kw), "No books found matching the keyword.")
	return nil
}

func (s *shell) handleEditBook() error {
	s.header("EDIT BOOK INFORMATION")
	id, ok, err := s.number("Enter Book ID to edit: ")
	if err != nil || !ok {
		return err
	}
	b, err := s.mgr.GetBook(id)
	if err != nil {
		fmt.Fprintln(s.out, "Book not found!")
		return nil
	}

	var upd library.BookUpdate
	for _, f := range []struct {
		label, current string
		dst            *string
	}{
		{"Title", b.Title, &upd.Title},
		{"Author", b.Author, &upd.Author},
		{"ISBN", b.ISBN, &upd.ISBN},
	} {
		v, err := s.line(fmt.Sprintf("Current %s: %s\nNew %s (or press Enter to keep): ", f.label, f.current, f.label))
		if err != nil {
			return err
		}
		*f.dst = v
	}
	_, err = s.mgr.EditBook(id, upd)
	if s.report(err) {
		fmt.Fprintln(s.out, "\nBook information updated successfully!")
	}
	return nil
}

func (s *shell) handleDeleteBook() error {
	s.header("DELETE BOOK")
	id, ok, err := s.number("Enter Book ID to delete: ")
	if err != nil || !ok {
		return err
	}
	err = s.mgr.DeleteBook(id)
	switch {
	case errors.Is(err, library.ErrNotFound):
		fmt.Fprintln(s.out, "Book not found!")
	case errors.Is(err, library.ErrPolicyViolation):
		fmt.Fprintln(s.out, "Cannot delete book that is currently loaned!")
	default:
		if s.report(err) {
			fmt.Fprintln(s.out, "Book deleted successfully!")
		}
	}
	return nil
}

// ------------------ Lending ------------------

func (s *shell) handleLoan(sess *library.Session) error {
	s.header("LOAN BOOK")
	fmt.Fprintf(s.out, "Your active loans: %d/%d\n", sess.ActiveLoanCount(), sess.MaxActiveLoans())
	id, ok, err := s.number("Enter Book ID to loan: ")
	if err != nil || !ok {
		return err
	}
	l, err := sess.Loan(id)
	if s.report(err) {
		fmt.Fprintln(s.out, "\nBook loaned successfully!")
		fmt.Fprintf(s.out, "Loan ID: %d\nDue date: %s\n", l.ID, l.DueDate.Format("2006-01-02"))
	}
	return nil
}

func (s *shell) handleReturn(sess *library.Session) error {
	s.header("RETURN BOOK")
	active := sess.ActiveLoans()
	if len(active) == 0 {
		fmt.Fprintln(s.out, "You have no active loans.")
		return nil
	}
	fmt.Fprintln(s.out, "Your active loans:")
	writeLoans(s.out, active)

	id, ok, err := s.number("\nEnter Loan ID to return: ")
	if err != nil || !ok {
		return err
	}
	l, err := sess.Return(id)
	if errors.Is(err, library.ErrNotFound) || errors.Is(err, library.ErrPolicyViolation) {
		fmt.Fprintln(s.out, "Loan not found or already returned!")
		return nil
	}
	if !s.report(err) {
		return nil
	}
	if l.Owes() {
		fmt.Fprintf(s.out, "\nBook is %d day(s) overdue!\n", library.DaysOverdue(l.DueDate, l.ReturnDate))
		fmt.Fprintf(s.out, "Overdue fee: RM %s\n", l.OverdueAmount.StringFixed(2))
	} else {
		fmt.Fprintln(s.out, "\nBook returned on time!")
	}
	fmt.Fprintln(s.out, "Book returned successfully!")
	return nil
}

func (s *shell) handlePay(sess *library.Session) error {
	s.header("PAY OVERDUE FEES")
	st := sess.Fees()
	writeFees(s.out, st)
	if len(st.Items) == 0 {
		return nil
	}

	id, ok, err := s.number("Enter Loan ID to pay: ")
	if err != nil || !ok {
		return err
	}
	var owed *library.LoanView
	for i := range st.Items {
		if st.Items[i].Loan.ID == id {
			owed = &st.Items[i]
		}
	}
	if owed == nil {
		fmt.Fprintln(s.out, "Loan not found or no overdue amount!")
		return nil
	}

	fmt.Fprintf(s.out, "Amount to pay: RM %s\n", owed.Loan.OverdueAmount.StringFixed(2))
	conf, ok, err := s.number("Confirm payment? (1=Yes, 0=No): ")
	if err != nil || !ok {
		return err
	}
	if conf != 1 {
		fmt.Fprintln(s.out, "Payment cancelled.")
		return nil
	}
	_, err = sess.Pay(id)
	if s.report(err) {
		fmt.Fprintln(s.out, "Payment successful!")
	}
	return nil
}
