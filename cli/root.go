// Package cli is the bkcl command tree: an interactive menu shell plus a
// few scriptable commands over the same library manager.
package cli

import (
	"fmt"
	"io"
	"slices"

	"github.com/spf13/cobra"

	"community-library/config"
	"community-library/di"
	"community-library/library"
)

// RootOptions holds global flags for all commands.
type RootOptions struct {
	Format    string // "json" | "text"
	Overrides config.Overrides
}

// NewRootCommand creates the root command. Without a subcommand it starts
// the interactive shell.
func NewRootCommand() *cobra.Command {
	cmd, _ := newRoot()
	return cmd
}

func newRoot() (*cobra.Command, *RootOptions) {
	opts := &RootOptions{}

	cmd := &cobra.Command{
		Use:   "bkcl",
		Short: "BKCL - Bukit Katil Community Library",
		Long:  "Book catalogue, loans and overdue fees for a small community library.",
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if !slices.Contains(ValidFormats, opts.Format) {
				return WrapExitError(ExitCommandError, "invalid flag", fmt.Errorf("invalid format %q: must be one of %v", opts.Format, ValidFormats))
			}
			return nil
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			return runShell(cmd, opts)
		},
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	f := cmd.PersistentFlags()
	f.StringVar(&opts.Format, "format", FormatText, "output format (json|text)")
	f.StringVar(&opts.Overrides.File, "config", "", "config file (default "+config.DefaultFile+" if present)")
	f.StringVar(&opts.Overrides.Environment, "env", "", "environment (development, staging, production)")
	f.StringVar(&opts.Overrides.LogLevel, "log-level", "", "log level (debug, info, warn, error)")
	f.StringVar(&opts.Overrides.LogFormat, "log-format", "", "log format (pretty, json)")
	f.StringVar(&opts.Overrides.Backend, "backend", "", "storage backend (file, sqlite, badger)")
	f.StringVarP(&opts.Overrides.DataPath, "data", "d", "", "data directory")
	f.StringVar(&opts.Overrides.PasswordScheme, "password-scheme", "", "password scheme for new accounts (plain, bcrypt)")

	cmd.AddCommand(newShellCommand(opts))
	cmd.AddCommand(newBooksCommand(opts))
	cmd.AddCommand(newFeesCommand(opts))
	cmd.AddCommand(newRepairCommand(opts))

	return cmd, opts
}

// Run executes the command tree and returns the process exit code.
func Run(args []string, in io.Reader, out, errOut io.Writer) int {
	cmd, opts := newRoot()
	cmd.SetArgs(args)
	cmd.SetIn(in)
	cmd.SetOut(out)
	cmd.SetErr(errOut)

	err := cmd.Execute()
	if err == nil {
		return ExitSuccess
	}
	w := errOut
	if opts.Format == FormatJSON {
		w = out
	}
	(&OutputFormatter{Format: opts.Format, Writer: w}).Error(err)
	return GetExitCode(err)
}

// withManager builds the container for one command and closes it after fn.
func withManager(cmd *cobra.Command, opts *RootOptions, fn func(*library.LibraryManager) error) (err error) {
	c := di.NewContainer(di.Options{Overrides: opts.Overrides, LogWriter: cmd.ErrOrStderr()})
	defer func() {
		if cerr := c.Close(); cerr != nil && err == nil {
			err = WrapExitError(ExitCommandError, "close storage", cerr)
		}
	}()

	mgr, err := c.Manager()
	if err != nil {
		return WrapExitError(ExitCommandError, "startup failed", err)
	}
	return fn(mgr)
}

func formatter(cmd *cobra.Command, opts *RootOptions) *OutputFormatter {
	return &OutputFormatter{Format: opts.Format, Writer: cmd.OutOrStdout()}
}
