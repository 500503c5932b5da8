package cli

import (
	"context"
	"fmt"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/roach88/qtrace/internal/store"
)

// RunsOptions holds flags for the runs command.
type RunsOptions struct {
	*RootOptions
	Database   string
	Incomplete bool
}

// RunSummary is one journaled run with its event count.
type RunSummary struct {
	store.Run
	Events int `json:"events"`
}

// NewRunsCommand creates the runs command.
func NewRunsCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &RunsOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "runs",
		Short: "List journaled runs",
		Long: `List the runs recorded in a journal, oldest first.

With --incomplete, only runs that were never marked complete are listed:
runs whose tracer aborted, or whose recording was interrupted.

Examples:
  qtrace runs --db ./qtrace.db
  qtrace runs --db ./qtrace.db --incomplete --format json`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runRuns(opts, cmd)
		},
	}

	cmd.Flags().StringVar(&opts.Database, "db", "", "path to SQLite database (required)")
	_ = cmd.MarkFlagRequired("db")
	cmd.Flags().BoolVar(&opts.Incomplete, "incomplete", false, "list only incomplete runs")

	return cmd
}

func runRuns(opts *RunsOptions, cmd *cobra.Command) error {
	ctx := context.Background()
	formatter := newFormatter(opts.RootOptions, cmd)

	st, err := openExistingStore(opts.Database)
	if err != nil {
		return formatter.Fail(ExitCommandError, ErrCodeStoreFailed, err.Error(), nil)
	}
	defer st.Close()

	summaries, err := listRuns(ctx, st, opts.Incomplete)
	if err != nil {
		return formatter.Fail(ExitCommandError, ErrCodeStoreFailed, err.Error(), nil)
	}

	if formatter.Format == "json" {
		return formatter.Success(summaries)
	}

	if len(summaries) == 0 {
		fmt.Fprintln(formatter.Writer, "No runs found.")
		return nil
	}

	tw := tabwriter.NewWriter(formatter.Writer, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "RUN\tLABEL\tEVENTS\tSTATUS\tCONFIG")
	for _, s := range summaries {
		status := "complete"
		if !s.Complete {
			status = "incomplete"
		}
		fmt.Fprintf(tw, "%s\t%s\t%d\t%s\t%s\n", s.ID, s.Label, s.Events, status, shortHash(s.ConfigHash))
	}
	return tw.Flush()
}

func listRuns(ctx context.Context, st *store.Store, incompleteOnly bool) ([]RunSummary, error) {
	var (
		runs []store.Run
		err  error
	)
	if incompleteOnly {
		runs, err = st.FindIncompleteRuns(ctx)
	} else {
		runs, err = st.ListRuns(ctx)
	}
	if err != nil {
		return nil, err
	}

	summaries := make([]RunSummary, len(runs))
	for i, run := range runs {
		n, err := st.CountEvents(ctx, run.ID)
		if err != nil {
			return nil, err
		}
		summaries[i] = RunSummary{Run: run, Events: n}
	}
	return summaries, nil
}
