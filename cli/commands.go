package cli

import (
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"

	"community-library/library"
)

func newShellCommand(opts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "shell",
		Short: "Start the interactive menu (default)",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runShell(cmd, opts)
		},
	}
}

func newBooksCommand(opts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "books",
		Short: "Inspect the book catalogue",
	}

	cmd.AddCommand(&cobra.Command{
		Use:   "list",
		Short: "List every book",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withManager(cmd, opts, func(mgr *library.LibraryManager) error {
				books := mgr.ListBooks()
				return formatter(cmd, opts).Success(books, func(w io.Writer) {
					writeBooks(w, books, "No books in the catalogue.")
				})
			})
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "search <keyword>",
		Short: "Find books whose title or author contains keyword (case-sensitive)",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withManager(cmd, opts, func(mgr *library.LibraryManager) error {
				books := mgr.SearchBooks(args[0])
				return formatter(cmd, opts).Success(books, func(w io.Writer) {
					writeBooks(w, books, "No books found matching the keyword.")
				})
			})
		},
	})

	return cmd
}

func newFeesCommand(opts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "fees <username>",
		Short: "Show a user's unpaid overdue fees",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withManager(cmd, opts, func(mgr *library.LibraryManager) error {
				st := mgr.ListOutstandingFees(args[0])
				return formatter(cmd, opts).Success(st, func(w io.Writer) {
					writeFees(w, st)
				})
			})
		},
	}
}

func newRepairCommand(opts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "repair",
		Short: "Recompute active loan counts and book availability from the loan list",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withManager(cmd, opts, func(mgr *library.LibraryManager) error {
				// Startup already repaired; a second pass reports what is left.
				r, err := mgr.RepairAll()
				if err != nil {
					return err
				}
				warnings := make([]string, 0)
				for _, w := range mgr.Warnings() {
					warnings = append(warnings, w.Error())
				}
				data := struct {
					library.RepairReport
					Warnings []string `json:"warnings"`
				}{r, warnings}
				return formatter(cmd, opts).Success(data, func(w io.Writer) {
					for _, msg := range warnings {
						fmt.Fprintf(w, "warning: %s\n", msg)
					}
					fmt.Fprintf(w, "Users corrected: %d\nBooks corrected: %d\n", r.UsersCorrected, r.BooksCorrected)
				})
			})
		},
	}
}

// ------------------ Text rendering ------------------

func writeBooks(w io.Writer, books []library.Book, empty string) {
	if len(books) == 0 {
		fmt.Fprintln(w, empty)
		return
	}
	fmt.Fprintf(w, "%-5s %-30s %-25s %-18s %s\n", "ID", "Title", "Author", "ISBN", "Status")
	fmt.Fprintln(w, strings.Repeat("-", 90))
	for _, b := range books {
		status := "Available"
		if !b.IsAvailable {
			status = "On Loan"
		}
		fmt.Fprintf(w, "%-5d %-30s %-25s %-18s %s\n", b.ID, b.Title, b.Author, b.ISBN, status)
	}
}

func writeFees(w io.Writer, st library.FeeStatement) {
	if len(st.Items) == 0 {
		fmt.Fprintln(w, "You have no overdue payments.")
		return
	}
	fmt.Fprintf(w, "%-8s %-30s %s\n", "Loan ID", "Book Title", "Amount (RM)")
	fmt.Fprintln(w, strings.Repeat("-", 60))
	for _, it := range st.Items {
		fmt.Fprintf(w, "%-8d %-30s %s\n", it.Loan.ID, it.BookTitle(), it.Loan.OverdueAmount.StringFixed(2))
	}
	fmt.Fprintln(w, strings.Repeat("-", 60))
	fmt.Fprintf(w, "Total Overdue: RM %s\n", st.Total.StringFixed(2))
}

func writeLoans(w io.Writer, loans []library.LoanView) {
	fmt.Fprintf(w, "%-8s %-30s %s\n", "Loan ID", "Book Title", "Due Date")
	fmt.Fprintln(w, strings.Repeat("-", 60))
	for _, v := range loans {
		fmt.Fprintf(w, "%-8d %-30s %s\n", v.Loan.ID, v.BookTitle(), v.Loan.DueDate.Format("2006-01-02"))
	}
}
