package adapter

import (
	"regexp"

	"messagebridge/types"
)

type toolTextRule struct {
	pattern     *regexp.Regexp
	replacement string
}

// toolDescriptionRules rewrites enforcement phrasing baked into Claude's own
// tool descriptions (e.g. "you must call X before Y") into generic language
// that doesn't assume the issuing model is Claude itself.
var toolDescriptionRules = []toolTextRule{
	{
		pattern:     regexp.MustCompile(`(?is)this tool will error if you attempt [^.]*\.`),
		replacement: "Read the file before attempting to edit it.",
	},
	{
		pattern:     regexp.MustCompile(`(?is)ALWAYS use absolute paths[^.]*\.`),
		replacement: "Use absolute file paths.",
	},
}

// toolResultReminderPattern strips an injected system reminder wrapper from
// a tool result body; the reminder text itself is assistant-runtime
// plumbing, not information the upstream model needs repeated back to it.
var toolResultReminderPattern = regexp.MustCompile(`(?is)<system-reminder>.*?</system-reminder>\s*`)

// ToolsAdapter rewrites tool descriptions and strips injected reminder
// wrappers from tool results before they're replayed to a non-Claude model.
type ToolsAdapter struct{ Base }

func NewToolsAdapter() ToolsAdapter { return ToolsAdapter{} }

func (ToolsAdapter) AdaptToolDescription(description string, _ *types.ClaudeMessagesRequest) string {
	for _, rule := range toolDescriptionRules {
		description = rule.pattern.ReplaceAllString(description, rule.replacement)
	}
	return description
}

func (ToolsAdapter) AdaptToolResult(_ string, result string, _ *types.ClaudeMessagesRequest) string {
	return toolResultReminderPattern.ReplaceAllString(result, "")
}
