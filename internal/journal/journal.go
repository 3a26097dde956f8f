// Package journal keeps a local audit trail of the work items submitted
// through the server. It exists so logged time can be reviewed and
// reported on without round-tripping to YouTrack; recording is best
// effort and callers must never fail an operation because the journal
// did.
package journal

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	_ "modernc.org/sqlite"
)

// Entry statuses. Submitted entries reached YouTrack; failed ones
// record the attempt together with the error detail.
const (
	StatusSubmitted = "submitted"
	StatusFailed    = "failed"
)

// Entry is one journaled work item submission.
type Entry struct {
	ID          int64
	IssueID     string
	Minutes     int
	Description string
	// WorkDate is the YYYY-MM-DD day the time was logged against.
	WorkDate  string
	Status    string
	Detail    string
	CreatedAt time.Time
}

// Filter narrows List results. Zero values match everything.
type Filter struct {
	IssueID string
	Status  string
	Since   *time.Time
}

// Journal is a sqlite-backed work item journal.
type Journal struct {
	db *sql.DB
}

// Open opens (or creates) the journal database at path, creating parent
// directories and applying pending migrations. A leading "~/" expands
// to the user's home directory.
func Open(path string) (*Journal, error) {
	expanded, err := expandPath(path)
	if err != nil {
		return nil, err
	}
	if dir := filepath.Dir(expanded); dir != "." {
		if err := os.MkdirAll(dir, 0o700); err != nil {
			return nil, fmt.Errorf("create journal directory: %w", err)
		}
	}

	db, err := sql.Open("sqlite", expanded)
	if err != nil {
		return nil, fmt.Errorf("open journal database: %w", err)
	}
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping journal database: %w", err)
	}
	if err := runMigrations(db); err != nil {
		db.Close()
		return nil, fmt.Errorf("migrate journal database: %w", err)
	}

	return &Journal{db: db}, nil
}

// Close closes the underlying database.
func (j *Journal) Close() error {
	return j.db.Close()
}

// Record inserts one entry and fills in its ID and creation time.
func (j *Journal) Record(ctx context.Context, entry *Entry) error {
	if entry.IssueID == "" {
		return fmt.Errorf("journal entry needs an issue ID")
	}
	if entry.Status == "" {
		entry.Status = StatusSubmitted
	}
	if entry.CreatedAt.IsZero() {
		entry.CreatedAt = time.Now().UTC()
	}

	const query = `
	INSERT INTO work_entries (issue_id, minutes, description, work_date, status, detail, created_at)
	VALUES (?, ?, ?, ?, ?, ?, ?)`

	result, err := j.db.ExecContext(ctx, query,
		entry.IssueID,
		entry.Minutes,
		entry.Description,
		entry.WorkDate,
		entry.Status,
		entry.Detail,
		formatTime(entry.CreatedAt),
	)
	if err != nil {
		return fmt.Errorf("record journal entry: %w", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return fmt.Errorf("read journal entry id: %w", err)
	}
	entry.ID = id
	return nil
}

// List returns entries matching the filter, oldest first.
func (j *Journal) List(ctx context.Context, filter Filter) ([]*Entry, error) {
	var conditions []string
	var args []any

	if filter.IssueID != "" {
		conditions = append(conditions, "issue_id = ?")
		args = append(args, filter.IssueID)
	}
	if filter.Status != "" {
		conditions = append(conditions, "status = ?")
		args = append(args, filter.Status)
	}
	if filter.Since != nil {
		conditions = append(conditions, "created_at >= ?")
		args = append(args, formatTime(*filter.Since))
	}

	query := `
	SELECT id, issue_id, minutes, description, work_date, status, detail, created_at
	FROM work_entries`
	if len(conditions) > 0 {
		query += " WHERE " + strings.Join(conditions, " AND ")
	}
	query += " ORDER BY created_at ASC, id ASC"

	rows, err := j.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query journal entries: %w", err)
	}
	defer rows.Close()

	entries, err := scanEntries(rows)
	if err != nil {
		return nil, fmt.Errorf("scan journal entries: %w", err)
	}
	return entries, nil
}

// TotalMinutes sums the submitted minutes for an issue. Failed attempts
// do not count.
func (j *Journal) TotalMinutes(ctx context.Context, issueID string) (int, error) {
	const query = `
	SELECT COALESCE(SUM(minutes), 0)
	FROM work_entries
	WHERE issue_id = ? AND status = ?`

	var total int
	if err := j.db.QueryRowContext(ctx, query, issueID, StatusSubmitted).Scan(&total); err != nil {
		return 0, fmt.Errorf("sum journal minutes for %s: %w", issueID, err)
	}
	return total, nil
}

// Issues returns the distinct issue IDs present in the journal.
func (j *Journal) Issues(ctx context.Context) ([]string, error) {
	rows, err := j.db.QueryContext(ctx, `SELECT DISTINCT issue_id FROM work_entries ORDER BY issue_id`)
	if err != nil {
		return nil, fmt.Errorf("query journal issues: %w", err)
	}
	defer rows.Close()

	var issues []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("scan journal issue: %w", err)
		}
		issues = append(issues, id)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate journal issues: %w", err)
	}
	return issues, nil
}

func expandPath(path string) (string, error) {
	if path == "" {
		return "", fmt.Errorf("journal path is empty")
	}
	if path == "~" || strings.HasPrefix(path, "~/") {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("resolve home directory: %w", err)
		}
		return filepath.Join(home, strings.TrimPrefix(path, "~")), nil
	}
	return path, nil
}

// formatTime renders timestamps the way the schema stores them. All
// times go in as UTC RFC3339 so lexicographic order is chronological.
func formatTime(t time.Time) string {
	return t.UTC().Format(time.RFC3339)
}

func parseTime(raw string) (time.Time, error) {
	return time.Parse(time.RFC3339, raw)
}
