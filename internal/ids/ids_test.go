package ids

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNormalize(t *testing.T) {
	tests := []struct {
		name       string
		issueID    string
		defaultKey string
		want       string
	}{
		{"bare number gets key", "123", "AGI", "AGI-123"},
		{"readable id unchanged", "AGI-123", "AGI", "AGI-123"},
		{"other project unchanged", "DEMO-7", "AGI", "DEMO-7"},
		{"internal id unchanged", "3-37", "AGI", "3-37"},
		{"empty input unchanged", "", "AGI", ""},
		{"no default key", "123", "", "123"},
		{"non numeric unchanged", "abc", "AGI", "abc"},
		{"single digit gets key", "7", "AGI", "AGI-7"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Normalize(tt.issueID, tt.defaultKey))
		})
	}
}

func TestNormalizeQuery(t *testing.T) {
	tests := []struct {
		name       string
		query      string
		defaultKey string
		want       string
	}{
		{"bare number in query", "fix 123 now", "AGI", "fix AGI-123 now"},
		{"entire query is number", "456", "AGI", "AGI-456"},
		{"short numbers untouched", "limit 42", "AGI", "limit 42"},
		{"multiple numbers", "123 and 9876", "AGI", "AGI-123 and AGI-9876"},
		{"already prefixed stays", "AGI-123", "AGI", "AGI-123"},
		{"empty query", "", "AGI", ""},
		{"no default key", "issue 123", "", "issue 123"},
		{"project filter untouched", "project: DEMO #Unresolved", "AGI", "project: DEMO #Unresolved"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, NormalizeQuery(tt.query, tt.defaultKey))
		})
	}
}

func TestIsInternal(t *testing.T) {
	assert.True(t, IsInternal("3-37"))
	assert.True(t, IsInternal("82-5001"))
	assert.False(t, IsInternal("DEMO-37"))
	assert.False(t, IsInternal("123"))
	assert.False(t, IsInternal(""))
}
