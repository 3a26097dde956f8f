// Package ids normalizes YouTrack issue identifiers.
//
// YouTrack accepts readable IDs like "AGI-123". Clients frequently send bare
// numbers ("123"); when a default project key is configured, those are
// expanded to the full readable form before hitting the API.
package ids

import "regexp"

var (
	bareNumber  = regexp.MustCompile(`^\d+$`)
	queryNumber = regexp.MustCompile(`\b(\d{3,})\b`)
	internalID  = regexp.MustCompile(`^\d+-\d+$`)
)

// Normalize expands a bare issue number using the default project key.
// IDs that already contain a dash, non-numeric IDs, and empty inputs pass
// through unchanged. An empty defaultKey disables expansion.
func Normalize(issueID, defaultKey string) string {
	if issueID == "" {
		return issueID
	}
	for i := 0; i < len(issueID); i++ {
		if issueID[i] == '-' {
			return issueID
		}
	}
	if defaultKey != "" && bareNumber.MatchString(issueID) {
		return defaultKey + "-" + issueID
	}
	return issueID
}

// NormalizeQuery expands standalone numbers of three or more digits inside a
// search query into readable issue IDs. Shorter numbers are left alone so
// that counts and limits survive intact, and numbers that already follow a
// dash ("AGI-123") are not prefixed twice.
func NormalizeQuery(query, defaultKey string) string {
	if query == "" || defaultKey == "" {
		return query
	}
	var out []byte
	last := 0
	for _, m := range queryNumber.FindAllStringIndex(query, -1) {
		if m[0] > 0 && query[m[0]-1] == '-' {
			continue
		}
		out = append(out, query[last:m[0]]...)
		out = append(out, defaultKey...)
		out = append(out, '-')
		out = append(out, query[m[0]:m[1]]...)
		last = m[1]
	}
	if out == nil {
		return query
	}
	return string(append(out, query[last:]...))
}

// IsInternal reports whether the ID is an internal database ID like "3-37"
// rather than a readable ID like "DEMO-37".
func IsInternal(issueID string) bool {
	return internalID.MatchString(issueID)
}
