package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/roach88/crossbind/internal/ir"
	"github.com/roach88/crossbind/internal/ownership"
	"github.com/roach88/crossbind/internal/store"
)

// JournalOptions holds flags for the journal command.
type JournalOptions struct {
	*RootOptions
	Database string
	Session  string
	Wrapper  string // optional - filter to one wrapper
}

// JournalResult is the ownership history of one session.
type JournalResult struct {
	Session string            `json:"session"`
	Wrapper string            `json:"wrapper,omitempty"`
	Events  []ownership.Event `json:"events"`
	Stats   JournalStats      `json:"stats"`
}

// JournalStats summarizes a journal.
type JournalStats struct {
	TotalEvents int                         `json:"total_events"`
	ByKind      map[ownership.EventKind]int `json:"by_kind"`
	// Alive counts wrappers with a wrap event and no later destroy or
	// invalidate.
	Alive int `json:"alive"`
}

// NewJournalCommand creates the journal command.
func NewJournalCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &JournalOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "journal",
		Short: "Show recorded ownership events",
		Long: `Show the ownership journal recorded by "crossbind test --journal".

Without --session the recorded sessions are listed. With --session the
events of that session are printed in seq order: wraps, ownership
transfers, parent/child edges, keep-alive references, invalidations
and destructions.

Examples:
  crossbind journal --db journal.db
  crossbind journal --db journal.db --session parent_child
  crossbind journal --db journal.db --session parent_child --wrapper w-2`,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runJournal(opts, cmd)
		},
	}

	cmd.Flags().StringVar(&opts.Database, "db", "", "path to SQLite database (required)")
	_ = cmd.MarkFlagRequired("db")
	cmd.Flags().StringVar(&opts.Session, "session", "", "session (scenario name) to show")
	cmd.Flags().StringVar(&opts.Wrapper, "wrapper", "", "filter to one wrapper id")

	return cmd
}

func runJournal(opts *JournalOptions, cmd *cobra.Command) error {
	ctx := cmd.Context()
	formatter := opts.formatter(cmd)

	st, err := store.Open(opts.Database)
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to open database", err)
	}
	defer st.Close()

	if opts.Session == "" {
		sessions, err := st.ListSessions(ctx)
		if err != nil {
			return formatter.Fail(ExitCommandError, ErrCodeCatalogFailed, err.Error(), nil)
		}
		if formatter.JSON() {
			return formatter.Success(sessions)
		}
		if len(sessions) == 0 {
			fmt.Fprintln(formatter.Writer, "No sessions recorded.")
			return nil
		}
		for _, s := range sessions {
			fmt.Fprintln(formatter.Writer, s)
		}
		return nil
	}

	var events []ownership.Event
	if opts.Wrapper != "" {
		events, err = st.ReadWrapperEvents(ctx, opts.Session, ir.WrapperID(opts.Wrapper))
	} else {
		events, err = st.ReadEvents(ctx, opts.Session)
	}
	if err != nil {
		return formatter.Fail(ExitCommandError, ErrCodeCatalogFailed, err.Error(), nil)
	}
	if len(events) == 0 {
		return formatter.Fail(ExitCommandError, ErrCodeNotFound, fmt.Sprintf("no events for session %q", opts.Session), nil)
	}

	result := JournalResult{
		Session: opts.Session,
		Wrapper: opts.Wrapper,
		Events:  events,
		Stats:   journalStats(events),
	}
	if formatter.JSON() {
		return formatter.Success(result)
	}

	w := formatter.Writer
	fmt.Fprintf(w, "Session: %s\n\n", result.Session)
	for _, ev := range events {
		fmt.Fprintf(w, "  %s\n", ev)
	}
	fmt.Fprintf(w, "\n%d event(s), %d wrapper(s) alive\n", result.Stats.TotalEvents, result.Stats.Alive)
	return nil
}

func journalStats(events []ownership.Event) JournalStats {
	stats := JournalStats{
		TotalEvents: len(events),
		ByKind:      make(map[ownership.EventKind]int),
	}
	alive := make(map[ir.WrapperID]bool)
	for _, ev := range events {
		stats.ByKind[ev.Kind]++
		switch ev.Kind {
		case ownership.EventWrap:
			alive[ev.Wrapper] = true
		case ownership.EventDestroy, ownership.EventInvalidate:
			delete(alive, ev.Wrapper)
		}
	}
	stats.Alive = len(alive)
	return stats
}
