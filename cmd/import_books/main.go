// Command import_books adds the books listed in a YAML catalogue file to the
// library, using the same configuration as bkcl.
package main

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"community-library/config"
	"community-library/di"
	"community-library/library"
)

// Catalogue is the import file layout.
type Catalogue struct {
	Books []library.BookInput `yaml:"books"`
}

type importResult struct {
	Imported []library.Book
	Skipped  int
	Errors   int
}

func main() {
	if err := newCommand().Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func newCommand() *cobra.Command {
	var (
		overrides    config.Overrides
		skipExisting bool
	)
	cmd := &cobra.Command{
		Use:           "import_books <catalogue.yaml>",
		Short:         "Import books from a YAML catalogue",
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) (err error) {
			cat, err := readCatalogue(args[0])
			if err != nil {
				return err
			}

			c := di.NewContainer(di.Options{Overrides: overrides, LogWriter: cmd.ErrOrStderr()})
			defer func() {
				if cerr := c.Close(); cerr != nil && err == nil {
					err = cerr
				}
			}()
			mgr, err := c.Manager()
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			res := importBooks(out, mgr, cat, skipExisting)
			printSummary(out, res)
			if res.Errors > 0 {
				return fmt.Errorf("%d book(s) failed to import", res.Errors)
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&overrides.File, "config", "", "config file")
	cmd.Flags().StringVar(&overrides.Backend, "backend", "", "storage backend (file, sqlite, badger)")
	cmd.Flags().StringVarP(&overrides.DataPath, "data", "d", "", "data directory")
	cmd.Flags().StringVar(&overrides.LogLevel, "log-level", "", "log level")
	cmd.Flags().BoolVar(&skipExisting, "skip-existing", false, "skip books whose ISBN is already catalogued")
	return cmd
}

func readCatalogue(path string) (*Catalogue, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read catalogue: %w", err)
	}
	var cat Catalogue
	if err := yaml.Unmarshal(data, &cat); err != nil {
		return nil, fmt.Errorf("parse catalogue %s: %w", path, err)
	}
	return &cat, nil
}

func importBooks(out io.Writer, mgr *library.LibraryManager, cat *Catalogue, skipExisting bool) importResult {
	known := make(map[string]bool)
	if skipExisting {
		for _, b := range mgr.ListBooks() {
			known[b.ISBN] = true
		}
	}

	var res importResult
	fmt.Fprintf(out, "Importing %d book(s)...\n", len(cat.Books))
	for _, in := range cat.Books {
		fmt.Fprintf(out, "Importing: %s by %s... ", in.Title, in.Author)
		if known[in.ISBN] {
			fmt.Fprintln(out, "SKIPPED (already catalogued)")
			res.Skipped++
			continue
		}
		b, err := mgr.AddBook(in)
		if err != nil {
			fmt.Fprintf(out, "ERROR - %v\n", err)
			res.Errors++
			continue
		}
		known[b.ISBN] = true
		fmt.Fprintf(out, "SUCCESS (ID: %d)\n", b.ID)
		res.Imported = append(res.Imported, b)
	}
	return res
}

func printSummary(out io.Writer, res importResult) {
	fmt.Fprintf(out, "\nImport complete!\n")
	fmt.Fprintf(out, "Successfully imported: %d books\n", len(res.Imported))
	fmt.Fprintf(out, "Skipped: %d\n", res.Skipped)
	fmt.Fprintf(out, "Errors: %d\n", res.Errors)

	if len(res.Imported) == 0 {
		return
	}
	fmt.Fprintln(out, "\nImported books:")
	fmt.Fprintf(out, "%-4s %-50s %-30s\n", "ID", "Title", "Author")
	fmt.Fprintln(out, strings.Repeat("-", 86))
	for _, b := range res.Imported {
		fmt.Fprintf(out, "%-4d %-50s %-30s\n", b.ID, truncateString(b.Title, 50), truncateString(b.Author, 30))
	}
}

func truncateString(s string, maxLen int) string {
	r := []rune(s)
	if len(r) <= maxLen {
		return s
	}
	if maxLen <= 3 {
		return string(r[:maxLen])
	}
	return string(r[:maxLen-3]) + "..."
}
