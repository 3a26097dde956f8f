package journal

// Scanner is the scanning behavior shared by sql.Row and sql.Rows.
type Scanner interface {
	Scan(dest ...any) error
}

// Rows is the iteration surface of sql.Rows.
type Rows interface {
	Next() bool
	Scan(dest ...any) error
	Err() error
}

func scanEntry(scanner Scanner) (*Entry, error) {
	entry := &Entry{}
	var createdRaw string

	err := scanner.Scan(
		&entry.ID,
		&entry.IssueID,
		&entry.Minutes,
		&entry.Description,
		&entry.WorkDate,
		&entry.Status,
		&entry.Detail,
		&createdRaw,
	)
	if err != nil {
		return nil, err
	}

	entry.CreatedAt, err = parseTime(createdRaw)
	if err != nil {
		return nil, err
	}
	return entry, nil
}

func scanEntries(rows Rows) ([]*Entry, error) {
	var entries []*Entry
	for rows.Next() {
		entry, err := scanEntry(rows)
		if err != nil {
			return nil, err
		}
		entries = append(entries, entry)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return entries, nil
}
