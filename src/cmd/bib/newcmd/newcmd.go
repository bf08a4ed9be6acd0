// Package newcmd implements "bib new": creating an entry by type, by
// identifier lookup, or from the last used type.
package newcmd

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"

	"bibentry/src/internal/schema"
	"bibentry/src/internal/session"
)

// Opener opens a session that reports to n.
type Opener func(n session.Notifier) (*session.Session, error)

var (
	// ErrNoEntry is returned when a lookup ended without importing an
	// entry. The explanation has already been printed.
	ErrNoEntry   = errors.New("no entry was added")
	ErrCancelled = errors.New("lookup cancelled")
)

type Builder struct {
	Open Opener
}

func New(open Opener) Builder { return Builder{Open: open} }

// Command returns "new" with its subcommands.
func (b Builder) Command() *cobra.Command {
	cmd := &cobra.Command{
		Use:          "new",
		Short:        "Create a new entry by type or by identifier lookup",
		SilenceUsage: true,
	}
	cmd.AddCommand(b.Type(), b.Lookup(), b.Instant(), b.Approach(), b.Guess())
	return cmd
}

// run opens a session, hands it to fn and always closes it so the final
// state is persisted.
func (b Builder) run(cmd *cobra.Command, fn func(s *session.Session, p *printer) error) (err error) {
	p := &printer{out: cmd.OutOrStdout(), errOut: cmd.ErrOrStderr()}
	s, err := b.Open(p)
	if err != nil {
		return err
	}
	defer func() {
		if cerr := s.Close(); err == nil {
			err = cerr
		}
	}()
	return fn(s, p)
}

// Type returns "new type [type]".
func (b Builder) Type() *cobra.Command {
	return &cobra.Command{
		Use:   "type [type]",
		Short: "Create an empty entry of the given type, or list the types",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if len(args) == 0 {
				return listTypes(cmd.OutOrStdout())
			}
			return b.run(cmd, func(s *session.Session, _ *printer) error {
				if err := s.SwitchApproach(session.CreateEntry); err != nil {
					return err
				}
				t, err := schema.ParseEntryType(args[0])
				if err != nil {
					return err
				}
				res, err := s.CreateEntry(cmd.Context(), t)
				return reportResult(cmd.OutOrStdout(), res, err)
			})
		},
	}
}

// Instant returns "new instant", which repeats the last created type.
func (b Builder) Instant() *cobra.Command {
	return &cobra.Command{
		Use:   "instant",
		Short: "Create an empty entry of the last used type",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return b.run(cmd, func(s *session.Session, _ *printer) error {
				res, err := s.InstantEntry(cmd.Context())
				return reportResult(cmd.OutOrStdout(), res, err)
			})
		},
	}
}

// Lookup returns "new lookup <identifier>".
func (b Builder) Lookup() *cobra.Command {
	var fetcherName string
	var guess bool
	c := &cobra.Command{
		Use:   "lookup <identifier>",
		Short: "Look up an identifier (DOI, ISBN, RFC, YouTube, URL) online and import the result",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return b.run(cmd, func(s *session.Session, p *printer) error {
				if err := s.SwitchApproach(session.LookupIdentifier); err != nil {
					return err
				}
				switch {
				case fetcherName != "":
					if err := s.SetGuessing(false); err != nil {
						return err
					}
					if err := s.SelectFetcher(fetcherName); err != nil {
						return err
					}
				case guess:
					if err := s.SetGuessing(true); err != nil {
						return err
					}
				}
				res, err := runLookup(cmd.Context(), s, strings.Join(args, " "), cmd.ErrOrStderr())
				if err != nil {
					return reportResult(cmd.OutOrStdout(), res, err)
				}
				if res == nil {
					if p.failed {
						return ErrNoEntry
					}
					return ErrCancelled
				}
				return printResult(cmd.OutOrStdout(), res)
			})
		},
	}
	c.Flags().StringVarP(&fetcherName, "fetcher", "f", "", "use this fetcher instead of guessing (remembered)")
	c.Flags().BoolVar(&guess, "guess", false, "guess the fetcher from the identifier again (remembered)")
	c.MarkFlagsMutuallyExclusive("fetcher", "guess")
	return c
}

// runLookup is the control loop: it submits the lookup, then waits for the
// task's single outcome. When ctx ends (Ctrl-C) the task is cancelled and
// the loop keeps waiting for the outcome the cancellation produces.
func runLookup(ctx context.Context, s *session.Session, text string, status io.Writer) (*session.Result, error) {
	task, err := s.Lookup(ctx, text)
	if err != nil {
		return nil, err
	}
	done := ctx.Done()
	for {
		select {
		case o := <-task.Done():
			return s.Complete(context.WithoutCancel(ctx), o)
		case <-done:
			if s.Cancel() {
				fmt.Fprintln(status, "Cancelling lookup...")
			}
			done = nil
		}
	}
}

// Approach returns "new approach [name]".
func (b Builder) Approach() *cobra.Command {
	return &cobra.Command{
		Use:   "approach [type|lookup|interpret|format]",
		Short: "Show or set the approach the next dialog starts with",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return b.run(cmd, func(s *session.Session, _ *printer) error {
				if len(args) == 1 {
					a, err := session.ParseApproach(args[0])
					if err != nil {
						return err
					}
					if err := s.SwitchApproach(a); err != nil {
						return err
					}
				}
				act := s.ConfirmAction()
				state := "enabled"
				if !act.Enabled {
					state = "disabled"
				}
				_, err := fmt.Fprintf(cmd.OutOrStdout(), "approach: %s (confirm: %s, %s)\n", s.Approach(), act.Label, state)
				return err
			})
		},
	}
}

// Guess returns "new guess [on|off]".
func (b Builder) Guess() *cobra.Command {
	return &cobra.Command{
		Use:       "guess [on|off]",
		Short:     "Show or set whether the fetcher is guessed from the identifier",
		Args:      cobra.MaximumNArgs(1),
		ValidArgs: []string{"on", "off"},
		RunE: func(cmd *cobra.Command, args []string) error {
			return b.run(cmd, func(s *session.Session, _ *printer) error {
				if len(args) == 1 {
					on, err := parseOnOff(args[0])
					if err != nil {
						return err
					}
					if err := s.SetGuessing(on); err != nil {
						return err
					}
				}
				if s.Guessing() {
					_, err := fmt.Fprintln(cmd.OutOrStdout(), "guessing: on")
					return err
				}
				name := "(none)"
				if f, ok := s.Selected(); ok {
					name = f.Name()
				}
				_, err := fmt.Fprintf(cmd.OutOrStdout(), "guessing: off (fetcher: %s)\n", name)
				return err
			})
		},
	}
}

func parseOnOff(s string) (bool, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "on", "true", "yes":
		return true, nil
	case "off", "false", "no":
		return false, nil
	}
	return false, fmt.Errorf("want on or off, got %q", s)
}

func listTypes(w io.Writer) error {
	seen := map[schema.EntryType]bool{}
	if _, err := fmt.Fprintln(w, "Recommended:"); err != nil {
		return err
	}
	for _, t := range schema.Recommended {
		seen[t] = true
		fmt.Fprintf(w, "  %s\n", t)
	}
	fmt.Fprintln(w, "Other:")
	for _, t := range schema.All() {
		if !seen[t] {
			fmt.Fprintf(w, "  %s\n", t)
		}
	}
	return nil
}

// reportResult prints res when the entry was stored, then returns err. A
// stored entry whose follow-up step failed is printed and still fails.
func reportResult(w io.Writer, res *session.Result, err error) error {
	if res != nil {
		if perr := printResult(w, res); perr != nil && err == nil {
			return perr
		}
	}
	return err
}

func printResult(w io.Writer, res *session.Result) error {
	r := res.Report
	var err error
	switch {
	case r.Path == "":
		_, err = fmt.Fprintf(w, "%s: duplicate of %s (matched on %s)\n", r.Action, r.DuplicateOf, r.MatchedOn)
	case r.DuplicateOf != "" && r.DuplicateOf != r.ID:
		_, err = fmt.Fprintf(w, "%s %s (duplicate of %s)\n", r.Action, r.Path, r.DuplicateOf)
	default:
		_, err = fmt.Fprintf(w, "%s %s\n", r.Action, r.Path)
	}
	return err
}
