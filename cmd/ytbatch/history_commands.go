package main

import (
	"fmt"
	"strconv"
	"time"

	"github.com/spf13/cobra"

	"ytbatch/internal/history"
	"ytbatch/internal/textutil"
)

func newHistoryCommand(ctx *commandContext) *cobra.Command {
	var limit int
	var asJSON bool

	cmd := &cobra.Command{
		Use:   "history",
		Short: "List recent download runs",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			store, err := ctx.openHistory()
			if err != nil {
				return err
			}
			defer store.Close()

			runs, err := store.List(cmd.Context(), limit)
			if err != nil {
				return err
			}
			if asJSON {
				return writeJSON(cmd, runSummaries(runs))
			}
			out := cmd.OutOrStdout()
			if len(runs) == 0 {
				fmt.Fprintln(out, "No runs recorded")
				return nil
			}
			rows := make([][]string, 0, len(runs))
			for _, run := range runs {
				succeeded, failed, untried := run.Counts()
				rows = append(rows, []string{
					shortID(run.ID),
					run.StartedAt.Local().Format("2006-01-02 15:04"),
					textutil.Title(string(run.Kind)),
					string(run.State),
					fmt.Sprintf("%d/%d/%d", succeeded, failed, untried),
					orDash(run.Completeness),
					runSubject(run),
				})
			}
			fmt.Fprintln(out, renderTable(
				[]string{"ID", "Started", "Kind", "State", "OK/Fail/Untried", "Verified", "Source"},
				rows,
				[]columnAlignment{alignLeft, alignLeft, alignLeft, alignLeft, alignRight},
			))
			return nil
		},
	}
	cmd.Flags().IntVarP(&limit, "limit", "l", 20, "Maximum number of runs to show (0 for all)")
	cmd.Flags().BoolVar(&asJSON, "json", false, "Output as JSON")

	cmd.AddCommand(newHistoryShowCommand(ctx))
	return cmd
}

func newHistoryShowCommand(ctx *commandContext) *cobra.Command {
	var asJSON bool

	cmd := &cobra.Command{
		Use:   "show ID",
		Short: "Show one run and its items (ID may be a unique prefix)",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			store, err := ctx.openHistory()
			if err != nil {
				return err
			}
			defer store.Close()

			run, err := store.Get(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			if asJSON {
				return writeJSON(cmd, runDetail(run))
			}

			out := cmd.OutOrStdout()
			colorize := shouldColorize(out)
			for _, line := range renderSectionHeader(fmt.Sprintf("Run %s", run.ID), colorize) {
				fmt.Fprintln(out, line)
			}
			fmt.Fprintln(out, renderStatusLine("Kind", statusInfo, textutil.Title(string(run.Kind)), colorize))
			fmt.Fprintln(out, renderStatusLine("Source", statusInfo, runSubject(run), colorize))
			fmt.Fprintln(out, renderStatusLine("Directory", statusInfo, run.Dir, colorize))
			fmt.Fprintln(out, renderStatusLine("Started", statusInfo, run.StartedAt.Local().Format(time.RFC3339), colorize))
			fmt.Fprintln(out, renderStatusLine("Duration", statusInfo, run.Duration().Round(time.Second).String(), colorize))
			stateKind := statusOK
			if run.ErrorKind != "" {
				stateKind = statusError
			}
			fmt.Fprintln(out, renderStatusLine("State", stateKind, string(run.State), colorize))
			if run.ErrorMessage != "" {
				fmt.Fprintln(out, renderStatusLine("Error", statusError, run.ErrorMessage, colorize))
			}
			if run.Completeness != "" {
				detail := fmt.Sprintf("%s (%d/%d files, %d retries)", run.Completeness, run.ObservedCount, run.ExpectedCount, run.Retries)
				fmt.Fprintln(out, renderStatusLine("Verification", statusInfo, detail, colorize))
			}

			if len(run.Items) > 0 {
				rows := make([][]string, 0, len(run.Items))
				for _, item := range run.Items {
					label := item.Label
					if label == "" {
						label = item.Item
					}
					rows = append(rows, []string{strconv.Itoa(item.Position), string(item.Status), label, orDash(item.ErrorKind)})
				}
				fmt.Fprintln(out, renderTable([]string{"#", "Status", "Item", "Error"}, rows, []columnAlignment{alignRight}))
			}
			return nil
		},
	}
	cmd.Flags().BoolVar(&asJSON, "json", false, "Output as JSON")
	return cmd
}

func runSubject(run history.Run) string {
	if run.Source != "" {
		return run.Source
	}
	s, f, u := run.Counts()
	return fmt.Sprintf("%d URL(s)", s+f+u)
}

func orDash(value string) string {
	if value == "" {
		return "-"
	}
	return value
}

type runSummaryJSON struct {
	ID           string    `json:"id"`
	Kind         string    `json:"kind"`
	Source       string    `json:"source,omitempty"`
	Dir          string    `json:"dir"`
	State        string    `json:"state"`
	Completeness string    `json:"completeness,omitempty"`
	Succeeded    int       `json:"succeeded"`
	Failed       int       `json:"failed"`
	Untried      int       `json:"untried"`
	ErrorKind    string    `json:"error_kind,omitempty"`
	StartedAt    time.Time `json:"started_at"`
	FinishedAt   time.Time `json:"finished_at"`
}

type runItemJSON struct {
	Position     int    `json:"position"`
	Item         string `json:"item"`
	Label        string `json:"label,omitempty"`
	Status       string `json:"status"`
	ExitCode     int    `json:"exit_code"`
	ErrorKind    string `json:"error_kind,omitempty"`
	ErrorMessage string `json:"error_message,omitempty"`
}

type runDetailJSON struct {
	runSummaryJSON
	ExpectedCount int           `json:"expected_count,omitempty"`
	ObservedCount int           `json:"observed_count,omitempty"`
	Retries       int           `json:"retries"`
	ErrorMessage  string        `json:"error_message,omitempty"`
	Items         []runItemJSON `json:"items"`
}

func runSummary(run history.Run) runSummaryJSON {
	succeeded, failed, untried := run.Counts()
	return runSummaryJSON{
		ID:           run.ID,
		Kind:         string(run.Kind),
		Source:       run.Source,
		Dir:          run.Dir,
		State:        string(run.State),
		Completeness: run.Completeness,
		Succeeded:    succeeded,
		Failed:       failed,
		Untried:      untried,
		ErrorKind:    run.ErrorKind,
		StartedAt:    run.StartedAt,
		FinishedAt:   run.FinishedAt,
	}
}

func runSummaries(runs []history.Run) []runSummaryJSON {
	out := make([]runSummaryJSON, 0, len(runs))
	for _, run := range runs {
		out = append(out, runSummary(run))
	}
	return out
}

func runDetail(run history.Run) runDetailJSON {
	items := make([]runItemJSON, 0, len(run.Items))
	for _, item := range run.Items {
		items = append(items, runItemJSON{
			Position:     item.Position,
			Item:         item.Item,
			Label:        item.Label,
			Status:       string(item.Status),
			ExitCode:     item.ExitCode,
			ErrorKind:    item.ErrorKind,
			ErrorMessage: item.ErrorMessage,
		})
	}
	return runDetailJSON{
		runSummaryJSON: runSummary(run),
		ExpectedCount:  run.ExpectedCount,
		ObservedCount:  run.ObservedCount,
		Retries:        run.Retries,
		ErrorMessage:   run.ErrorMessage,
		Items:          items,
	}
}
