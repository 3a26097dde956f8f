// Package report renders work item timesheets as XLSX workbooks.
package report

import (
	"fmt"
	"time"

	"github.com/xuri/excelize/v2"

	"github.com/trackforge/youtrackd/internal/journal"
	"github.com/trackforge/youtrackd/internal/youtrack"
)

// Row is one line of a timesheet.
type Row struct {
	IssueID     string
	Date        string
	Minutes     int
	Description string
	Author      string
	WorkType    string
}

// Timesheet is a set of rows plus the precomputed total.
type Timesheet struct {
	Rows         []Row
	TotalMinutes int
}

// FromWorkItems builds a timesheet from YouTrack work items.
func FromWorkItems(issueID string, items []youtrack.WorkItem) Timesheet {
	ts := Timesheet{Rows: make([]Row, 0, len(items))}
	for _, item := range items {
		row := Row{
			IssueID:     issueID,
			Description: item.Text,
		}
		if item.Date > 0 {
			row.Date = time.UnixMilli(item.Date).UTC().Format("2006-01-02")
		}
		if item.Duration != nil {
			row.Minutes = item.Duration.Minutes
		}
		if item.Author != nil {
			row.Author = item.Author.Login
			if row.Author == "" {
				row.Author = item.Author.Name
			}
		}
		if item.Type != nil {
			row.WorkType = item.Type.Name
		}
		ts.Rows = append(ts.Rows, row)
		ts.TotalMinutes += row.Minutes
	}
	return ts
}

// FromJournal builds a timesheet from journaled submissions. Failed
// entries are skipped; they never reached YouTrack.
func FromJournal(entries []*journal.Entry) Timesheet {
	ts := Timesheet{Rows: make([]Row, 0, len(entries))}
	for _, e := range entries {
		if e.Status != journal.StatusSubmitted {
			continue
		}
		ts.Rows = append(ts.Rows, Row{
			IssueID:     e.IssueID,
			Date:        e.WorkDate,
			Minutes:     e.Minutes,
			Description: e.Description,
		})
		ts.TotalMinutes += e.Minutes
	}
	return ts
}

// Hours formats minutes as decimal hours with two digits.
func Hours(minutes int) string {
	return fmt.Sprintf("%.2f", float64(minutes)/60)
}

// WriteXLSX writes the timesheet to path: a header row, one row per work
// item, and a totals row.
func WriteXLSX(path string, ts Timesheet) error {
	file := excelize.NewFile()
	defer file.Close()

	sheet := file.GetSheetName(0)
	headers := []string{"Issue", "Date", "Minutes", "Hours", "Description", "Author", "WorkType"}

	for col, header := range headers {
		cell, _ := excelize.CoordinatesToCellName(col+1, 1)
		if err := file.SetCellValue(sheet, cell, header); err != nil {
			return fmt.Errorf("set excel header %s: %w", cell, err)
		}
	}

	for i, row := range ts.Rows {
		rowNum := i + 2
		values := []any{
			row.IssueID,
			row.Date,
			row.Minutes,
			Hours(row.Minutes),
			row.Description,
			row.Author,
			row.WorkType,
		}
		for col, value := range values {
			cell, _ := excelize.CoordinatesToCellName(col+1, rowNum)
			if err := file.SetCellValue(sheet, cell, value); err != nil {
				return fmt.Errorf("set excel value %s: %w", cell, err)
			}
		}
	}

	totalRow := len(ts.Rows) + 2
	totals := []any{"Total", "", ts.TotalMinutes, Hours(ts.TotalMinutes)}
	for col, value := range totals {
		cell, _ := excelize.CoordinatesToCellName(col+1, totalRow)
		if err := file.SetCellValue(sheet, cell, value); err != nil {
			return fmt.Errorf("set excel total %s: %w", cell, err)
		}
	}

	if err := file.SaveAs(path); err != nil {
		return fmt.Errorf("save excel output %s: %w", path, err)
	}

	return nil
}
