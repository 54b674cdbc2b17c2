package adapter

import (
	"regexp"
	"strings"

	"messagebridge/types"
)

// isOpenAIModel matches the small set of model names/families whose prompt
// conventions differ enough from Claude's that the default prompt rewriter
// activates OpenAI-specific phrasing.
func isOpenAIModel(model string) bool {
	lower := strings.ToLower(model)
	switch lower {
	case "o3", "o3-mini", "o4-mini":
		return true
	}
	return strings.Contains(lower, "gpt-") || strings.Contains(lower, "openai")
}

// rewriteRule is one regex-driven system/user prompt transformation. Each
// rule targets a phrase in the Claude-authored prompt that assumes a Claude
// runtime (a specific tool-call batching policy, a specific plan-mode
// reminder wording) and replaces it with model-family-appropriate text so a
// non-Claude upstream doesn't choke on instructions that don't apply to it.
type rewriteRule struct {
	pattern     *regexp.Regexp
	replacement string
	onlyOpenAI  bool
}

var systemPromptRules = []rewriteRule{
	{
		pattern:     regexp.MustCompile(`(?is)you should minimize output tokens[^.]*\.`),
		replacement: "",
		onlyOpenAI:  true,
	},
	{
		pattern:     regexp.MustCompile(`(?is)IMPORTANT: You should (minimize|keep your responses short)[^.]*\.`),
		replacement: "Keep responses focused and avoid unnecessary preamble or postamble.",
	},
	{
		pattern: regexp.MustCompile(`(?is)if you intend to call multiple tools[^.]*no dependencies between them[^.]*\.`),
		replacement: "If multiple tool calls have no dependency on each other's output, issue them together in a " +
			"single turn instead of one at a time.",
	},
}

var userPromptRules = []rewriteRule{
	{
		pattern:     regexp.MustCompile(`(?is)<system-reminder>\s*Plan mode is active[^<]*</system-reminder>`),
		replacement: "Plan mode is active: describe your plan before making any changes.",
	},
}

func applyRules(text string, rules []rewriteRule, model string) string {
	for _, rule := range rules {
		if rule.onlyOpenAI && !isOpenAIModel(model) {
			continue
		}
		text = rule.pattern.ReplaceAllString(text, rule.replacement)
	}
	return text
}

// SystemPromptAdapter rewrites phrasing in the system prompt that assumes a
// Claude-native runtime so it reads sensibly for whatever model actually
// receives it.
type SystemPromptAdapter struct{ Base }

func NewSystemPromptAdapter() SystemPromptAdapter { return SystemPromptAdapter{} }

func (SystemPromptAdapter) AdaptSystemPrompt(prompt string, req *types.ClaudeMessagesRequest) string {
	return applyRules(prompt, systemPromptRules, req.Model)
}

// UserPromptAdapter rewrites phrasing in user-authored content for the same
// reason as SystemPromptAdapter, scoped to the narrower set of phrases that
// show up there (agent-injected reminders) rather than system-prompt policy.
type UserPromptAdapter struct{ Base }

func NewUserPromptAdapter() UserPromptAdapter { return UserPromptAdapter{} }

func (UserPromptAdapter) AdaptUserPrompt(prompt string, req *types.ClaudeMessagesRequest) string {
	return applyRules(prompt, userPromptRules, req.Model)
}
