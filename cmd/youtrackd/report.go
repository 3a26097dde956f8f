package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/trackforge/youtrackd/internal/ids"
	"github.com/trackforge/youtrackd/internal/journal"
	"github.com/trackforge/youtrackd/internal/report"
	"github.com/trackforge/youtrackd/internal/youtrack"
)

var (
	reportIssue string
	reportOut   string
	reportLocal bool
)

// reportCmd exports a spent-time timesheet as an Excel workbook
var reportCmd = &cobra.Command{
	Use:   "report",
	Short: "Export a spent-time timesheet for an issue as XLSX",
	Long: `Export the work items of an issue as an Excel timesheet with one
row per work item and a totals row.

By default work items are fetched from the YouTrack API. With --local the
report is built from the local work item journal instead, which covers
entries recorded by this server only (JOURNAL_ENABLED=true).

Examples:
  # Timesheet for AGI-123 from the API
  youtrackd report --issue AGI-123 --out agi-123.xlsx

  # Bare numbers expand with the default project key
  youtrackd report --issue 123

  # Build from the local journal instead of the API
  youtrackd report --issue AGI-123 --local`,
	RunE: runReport,
}

func init() {
	reportCmd.Flags().StringVar(&reportIssue, "issue", "", "issue ID, e.g. AGI-123 (required)")
	reportCmd.Flags().StringVar(&reportOut, "out", "timesheet.xlsx", "output file path")
	reportCmd.Flags().BoolVar(&reportLocal, "local", false, "use the local work item journal instead of the API")
	_ = reportCmd.MarkFlagRequired("issue")
}

// runReport builds the timesheet from the API or the journal and writes it.
func runReport(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	issueID := ids.Normalize(reportIssue, cfg.YouTrack.DefaultProjectKey)

	var ts report.Timesheet
	if reportLocal {
		j, err := journal.Open(cfg.Journal.Path)
		if err != nil {
			return fmt.Errorf("failed to open journal: %w", err)
		}
		defer j.Close()

		entries, err := j.List(cmd.Context(), journal.Filter{IssueID: issueID})
		if err != nil {
			return fmt.Errorf("failed to list journal entries: %w", err)
		}
		ts = report.FromJournal(entries)
	} else {
		client, err := youtrack.New(cfg)
		if err != nil {
			return fmt.Errorf("failed to create youtrack client: %w", err)
		}

		items, err := youtrack.NewWorkItemsClient(client).List(cmd.Context(), issueID)
		if err != nil {
			return fmt.Errorf("failed to fetch work items for %s: %w", issueID, err)
		}
		ts = report.FromWorkItems(issueID, items)
	}

	if err := report.WriteXLSX(reportOut, ts); err != nil {
		return fmt.Errorf("failed to write %s: %w", reportOut, err)
	}

	fmt.Fprintf(os.Stderr, "Wrote %s: %d work items, %d minutes total\n",
		reportOut, len(ts.Rows), ts.TotalMinutes)
	return nil
}
