package mcp

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/trackforge/youtrackd/internal/youtrack"
)

func TestAnalyzeWorkflow_StateMachine(t *testing.T) {
	field := &youtrack.StateField{
		Name:         "State",
		Type:         "StateMachineIssueCustomField",
		CurrentState: "Open",
		PossibleEvents: []youtrack.StateEvent{
			{ID: "start", Presentation: "Start Progress"},
			{ID: "close", Presentation: "Close"},
		},
	}

	analysis := analyzeWorkflow("AGI-123", field)

	assert.Equal(t, "AGI-123", analysis.IssueID)
	assert.Equal(t, "Open", analysis.CurrentState)
	assert.Equal(t, "state_machine", analysis.WorkflowType)
	require.Len(t, analysis.AvailableTransitions, 2)
	assert.Equal(t, "start", analysis.AvailableTransitions[0].EventID)
	assert.Equal(t, "Transition via event: Start Progress", analysis.AvailableTransitions[0].Description)
	require.NotEmpty(t, analysis.Restrictions)
	assert.Contains(t, analysis.Restrictions[0], "State machine workflow")
	assert.Contains(t, analysis.Recommendations, "Use event-based transitions instead of direct state updates")
}

func TestAnalyzeWorkflow_DirectField(t *testing.T) {
	field := &youtrack.StateField{
		Name:           "State",
		Type:           "StateIssueCustomField",
		CurrentState:   "In Progress",
		PossibleEvents: []youtrack.StateEvent{{ID: "fix", Presentation: "Fix"}},
	}

	analysis := analyzeWorkflow("AGI-7", field)

	assert.Equal(t, "direct_field", analysis.WorkflowType)
	assert.Empty(t, analysis.Restrictions)
	assert.Contains(t, analysis.Recommendations, "Direct state updates should work with proper field formatting")
}

func TestAnalyzeWorkflow_NoEventsSuggestsPermissions(t *testing.T) {
	field := &youtrack.StateField{
		Name:         "State",
		Type:         "StateIssueCustomField",
		CurrentState: "Fixed",
	}

	analysis := analyzeWorkflow("AGI-9", field)

	assert.Empty(t, analysis.AvailableTransitions)
	require.NotEmpty(t, analysis.Restrictions)
	assert.Contains(t, analysis.Restrictions[0], "permission restrictions")
	assert.Contains(t, analysis.Recommendations, "Check user permissions for state field updates")
}

func TestAnalyzeWorkflow_EmptyPresentation(t *testing.T) {
	field := &youtrack.StateField{
		Name:           "State",
		Type:           "StateIssueCustomField",
		CurrentState:   "Open",
		PossibleEvents: []youtrack.StateEvent{{ID: "e1"}},
	}

	analysis := analyzeWorkflow("AGI-1", field)

	require.Len(t, analysis.AvailableTransitions, 1)
	assert.Equal(t, "Transition via event: Unknown", analysis.AvailableTransitions[0].Description)
}

func TestBuildHelp_FunctionsTopic(t *testing.T) {
	s, err := NewServer(DefaultConfig(), testYouTrackClient(t))
	require.NoError(t, err)

	out := s.buildHelp(context.Background(), "functions")

	assert.Equal(t, "functions", out.HelpTopic)
	assert.Empty(t, out.YouTrackHelp)

	issues, ok := out.AvailableFunctions[string(CategoryIssues)].(map[string]string)
	require.True(t, ok, "issues category missing from function inventory")
	assert.Contains(t, issues, "get_issue")

	diag, ok := out.AvailableFunctions[string(CategoryDiagnostics)].(map[string]string)
	require.True(t, ok)
	assert.Contains(t, diag, "search_tools")
}

func TestBuildHelp_PriorityTopic(t *testing.T) {
	s, err := NewServer(DefaultConfig(), testYouTrackClient(t))
	require.NoError(t, err)

	out := s.buildHelp(context.Background(), "priority")

	workflow, ok := out.YouTrackHelp["workflow"].(map[string]any)
	require.True(t, ok)
	assert.Contains(t, workflow, "priority_help")
	assert.NotContains(t, out.YouTrackHelp, "projects")
	assert.Empty(t, out.QuickExamples)
	assert.NotEmpty(t, out.QuickTips)
}
