package mcp

import (
	"regexp"
	"slices"
	"strings"
	"sync"
)

// ToolCategory groups tools for the help inventory and search_tools.
type ToolCategory string

const (
	CategoryIssues      ToolCategory = "issues"
	CategoryUpdates     ToolCategory = "updates"
	CategoryFields      ToolCategory = "fields"
	CategoryLinks       ToolCategory = "links"
	CategoryAttachments ToolCategory = "attachments"
	CategoryTime        ToolCategory = "time"
	CategoryDiagnostics ToolCategory = "diagnostics"
	CategoryProjects    ToolCategory = "projects"
	CategoryUsers       ToolCategory = "users"
)

// ToolMetadata describes one registered tool.
type ToolMetadata struct {
	Name        string
	Description string
	Category    ToolCategory
	Keywords    []string
}

// ToolRegistry is the inventory behind get_help and search_tools.
// Registration happens during startup, before the serving loop, but
// lookups run concurrently with it, so all access takes the lock.
type ToolRegistry struct {
	mu    sync.RWMutex
	tools map[string]*ToolMetadata
}

// NewToolRegistry creates an empty registry.
func NewToolRegistry() *ToolRegistry {
	return &ToolRegistry{tools: make(map[string]*ToolMetadata)}
}

// Register adds or replaces a tool entry. Nil and nameless entries are
// ignored.
func (r *ToolRegistry) Register(meta *ToolMetadata) {
	if meta == nil || meta.Name == "" {
		return
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.tools[meta.Name] = meta
}

// List returns every registered tool sorted by name, so the help
// inventory renders in a stable order.
func (r *ToolRegistry) List() []*ToolMetadata {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]*ToolMetadata, 0, len(r.tools))
	for _, meta := range r.tools {
		out = append(out, meta)
	}
	slices.SortFunc(out, func(a, b *ToolMetadata) int {
		return strings.Compare(a.Name, b.Name)
	})
	return out
}

// Count returns the number of registered tools.
func (r *ToolRegistry) Count() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.tools)
}

// SearchResult pairs a matched tool with its rank and why it matched.
type SearchResult struct {
	Tool   *ToolMetadata
	Score  int
	Reason string
}

// Match scores, highest first. An exact name outranks a name fragment,
// which outranks a hit in the description or keywords.
const (
	scoreExactName = 3
	scoreNameMatch = 2
	scoreTextMatch = 1
)

// Search matches query against tool names, descriptions, and keywords,
// case insensitively. A query that compiles as a regular expression also
// matches as a pattern; one that does not falls back to plain substring
// matching. A non-empty category narrows the catalog first. Results come
// back ordered by score, then name.
func (r *ToolRegistry) Search(query string, category ToolCategory) []SearchResult {
	if query == "" {
		return nil
	}
	needle := strings.ToLower(query)
	pattern, err := regexp.Compile("(?i)" + query)
	if err != nil {
		pattern = nil
	}

	r.mu.RLock()
	defer r.mu.RUnlock()

	var results []SearchResult
	for _, meta := range r.tools {
		if category != "" && meta.Category != category {
			continue
		}
		if score, reason := match(meta, needle, pattern); score > 0 {
			results = append(results, SearchResult{Tool: meta, Score: score, Reason: reason})
		}
	}

	slices.SortFunc(results, func(a, b SearchResult) int {
		if a.Score != b.Score {
			return b.Score - a.Score
		}
		return strings.Compare(a.Tool.Name, b.Tool.Name)
	})
	return results
}

// match scores one tool against the query. Zero means no match.
func match(meta *ToolMetadata, needle string, pattern *regexp.Regexp) (int, string) {
	name := strings.ToLower(meta.Name)
	if name == needle {
		return scoreExactName, "exact name match"
	}
	if strings.Contains(name, needle) || (pattern != nil && pattern.MatchString(meta.Name)) {
		return scoreNameMatch, "name match"
	}
	if strings.Contains(strings.ToLower(meta.Description), needle) ||
		(pattern != nil && pattern.MatchString(meta.Description)) {
		return scoreTextMatch, "description match"
	}
	for _, kw := range meta.Keywords {
		if strings.Contains(strings.ToLower(kw), needle) || (pattern != nil && pattern.MatchString(kw)) {
			return scoreTextMatch, "keyword match"
		}
	}
	return 0, ""
}
