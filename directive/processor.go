package directive

import (
	"os"
	"regexp"
	"strings"

	"github.com/tidwall/gjson"

	"messagebridge/types"
)

var directiveRegex = regexp.MustCompile(`(?s)---\s*PROXY DIRECTIVE\s*---\s*(.*?)\s*---\s*END DIRECTIVE\s*---`)

// claudeMDMarker gates directive extraction from non-first user messages:
// only a message that looks like an agent-injected CLAUDE.md preamble is
// eligible, so an attacker-controlled later user turn can't smuggle in a
// directive.
const claudeMDMarker = "<system-reminder>\nAs you answer the user's questions, you can use the following context:\n# claudeMd"

// limitToClaudeMDEnv, when set, additionally requires the first user message
// to carry the CLAUDE.md marker before its directive is honored. Disabled by
// default since it would break directives passed through other clients.
const limitToClaudeMDEnv = "LIMIT_DIRECTIVE_TO_CLAUDEMD"

// Process extracts a directive from the request's system prompt or first
// eligible user message (if any), resolves it against the request's current
// model, applies the resolved Settings to the request in place, and strips
// the directive text from the prompt it came from. Returns the zero Settings
// if no directive was found.
func Process(req *types.ClaudeMessagesRequest, limitToClaudeMD bool) Settings {
	if v := os.Getenv(limitToClaudeMDEnv); v == "1" || strings.EqualFold(v, "true") {
		limitToClaudeMD = true
	}
	dir, ok := findDirective(req, limitToClaudeMD)
	if !ok {
		return Settings{}
	}
	settings := resolveSettings(req, dir)
	applySettings(req, settings)
	return settings
}

func findDirective(req *types.ClaudeMessagesRequest, limitToClaudeMD bool) (ProxyDirective, bool) {
	if req.System != nil {
		if dir, cleaned, ok := extractFromContent(*req.System); ok {
			*req.System = cleaned
			return dir, true
		}
	}

	for i := range req.Messages {
		msg := &req.Messages[i]
		if msg.Role != "user" {
			continue
		}
		beginsWithMarker := contentStartsWith(msg.Content, claudeMDMarker)
		isFirstUser := isFirstUserMessage(req.Messages, i)

		shouldExtract := beginsWithMarker
		if isFirstUser {
			shouldExtract = !limitToClaudeMD || beginsWithMarker
		}
		if !shouldExtract {
			continue
		}
		if dir, cleaned, ok := extractFromContent(msg.Content); ok {
			msg.Content = cleaned
			return dir, true
		}
	}
	return ProxyDirective{}, false
}

func isFirstUserMessage(messages []types.ClaudeMessage, index int) bool {
	for i := 0; i < index; i++ {
		if messages[i].Role == "user" {
			return false
		}
	}
	return true
}

func contentStartsWith(c types.ClaudeContent, prefix string) bool {
	if !c.IsArray {
		return strings.HasPrefix(c.Text, prefix)
	}
	for _, b := range c.Blocks {
		if strings.HasPrefix(b.Text, prefix) {
			return true
		}
	}
	return false
}

func extractFromContent(c types.ClaudeContent) (ProxyDirective, types.ClaudeContent, bool) {
	if !c.IsArray {
		cleaned, dir, ok := parseDirectiveFromText(c.Text)
		if !ok {
			return ProxyDirective{}, c, false
		}
		c.Text = cleaned
		return dir, c, true
	}
	for i := range c.Blocks {
		if c.Blocks[i].Type != "text" || !directiveRegex.MatchString(c.Blocks[i].Text) {
			continue
		}
		cleaned, dir, ok := parseDirectiveFromText(c.Blocks[i].Text)
		if !ok {
			continue
		}
		c.Blocks[i].Text = cleaned
		return dir, c, true
	}
	return ProxyDirective{}, c, false
}

func parseDirectiveFromText(text string) (cleaned string, dir ProxyDirective, ok bool) {
	match := directiveRegex.FindStringSubmatchIndex(text)
	if match == nil {
		return text, ProxyDirective{}, false
	}
	raw := strings.TrimSpace(text[match[2]:match[3]])
	parsed, parseErr := parseDirectiveJSON(raw)
	if parseErr != nil {
		return text, ProxyDirective{}, false
	}
	return directiveRegex.ReplaceAllString(text, ""), parsed, true
}

// parseDirectiveJSON reads the directive object field-by-field with gjson
// rather than a strict struct unmarshal, so an unrecognized extra key in a
// hand-written directive block doesn't reject the whole thing.
func parseDirectiveJSON(raw string) (ProxyDirective, error) {
	if !gjson.Valid(raw) {
		return ProxyDirective{}, errInvalidDirectiveJSON
	}
	result := gjson.Parse(raw)
	var dir ProxyDirective
	if g := result.Get("global"); g.Exists() {
		s := settingsFromJSON(g)
		dir.Global = &s
	}
	for _, ruleJSON := range result.Get("rules").Array() {
		rule := Rule{
			If:    Condition{ModelContains: ruleJSON.Get("if.modelContains").String()},
			Apply: settingsFromJSON(ruleJSON.Get("apply")),
		}
		dir.Rules = append(dir.Rules, rule)
	}
	return dir, nil
}

func settingsFromJSON(v gjson.Result) Settings {
	var s Settings
	if r := v.Get("model"); r.Exists() {
		val := r.String()
		s.Model = &val
	}
	if r := v.Get("max_tokens"); r.Exists() {
		val := int(r.Int())
		s.MaxTokens = &val
	}
	if r := v.Get("temperature"); r.Exists() {
		val := r.Float()
		s.Temperature = &val
	}
	if r := v.Get("top_p"); r.Exists() {
		val := r.Float()
		s.TopP = &val
	}
	if r := v.Get("reasoning_effort"); r.Exists() {
		val := r.String()
		s.ReasoningEffort = &val
	}
	if r := v.Get("enable_meowsings"); r.Exists() {
		val := r.Bool()
		s.EnableMeowsings = &val
	}
	if r := v.Get("responses"); r.Exists() {
		var rs ResponsesSettings
		if e := r.Get("enable"); e.Exists() {
			val := e.Bool()
			rs.Enable = &val
		}
		if m := r.Get("max_output_tokens"); m.Exists() {
			val := int(m.Int())
			rs.MaxOutputTokens = &val
		}
		if rsm := r.Get("reasoning_summary"); rsm.Exists() {
			val := rsm.String()
			rs.ReasoningSummary = &val
		}
		s.Responses = &rs
	}
	return s
}

type directiveParseError string

func (e directiveParseError) Error() string { return string(e) }

const errInvalidDirectiveJSON = directiveParseError("directive block is not valid JSON")

func resolveSettings(req *types.ClaudeMessagesRequest, dir ProxyDirective) Settings {
	base := Settings{}
	if dir.Global != nil {
		base = *dir.Global
	}
	for _, rule := range dir.Rules {
		if !evaluateCondition(req.Model, rule.If) {
			continue
		}
		base = mergeSettings(base, rule.Apply)
	}
	return base
}

func mergeSettings(accumulated, incoming Settings) Settings {
	if incoming.Model != nil {
		accumulated.Model = incoming.Model
	}
	if incoming.MaxTokens != nil {
		accumulated.MaxTokens = incoming.MaxTokens
	}
	if incoming.Temperature != nil {
		accumulated.Temperature = incoming.Temperature
	}
	if incoming.TopP != nil {
		accumulated.TopP = incoming.TopP
	}
	if incoming.ReasoningEffort != nil {
		accumulated.ReasoningEffort = incoming.ReasoningEffort
	}
	if incoming.EnableMeowsings != nil {
		accumulated.EnableMeowsings = incoming.EnableMeowsings
	}
	if incoming.Responses != nil {
		accumulated.Responses = mergeResponses(accumulated.Responses, incoming.Responses)
	}
	return accumulated
}

func mergeResponses(base, incoming *ResponsesSettings) *ResponsesSettings {
	switch {
	case base == nil && incoming == nil:
		return nil
	case base == nil:
		return incoming
	case incoming == nil:
		return base
	}
	merged := *base
	if incoming.Enable != nil {
		merged.Enable = incoming.Enable
	}
	if incoming.MaxOutputTokens != nil {
		merged.MaxOutputTokens = incoming.MaxOutputTokens
	}
	if incoming.ReasoningSummary != nil {
		merged.ReasoningSummary = incoming.ReasoningSummary
	}
	return &merged
}

func applySettings(req *types.ClaudeMessagesRequest, settings Settings) {
	if settings.Model != nil {
		req.Model = *settings.Model
	}
	if settings.MaxTokens != nil {
		req.MaxTokens = *settings.MaxTokens
	}
	if settings.Temperature != nil {
		req.Temperature = settings.Temperature
	}
	if settings.TopP != nil {
		req.TopP = settings.TopP
	}
	if settings.ReasoningEffort != nil {
		budget := MapReasoningEffortToBudgetTokens(*settings.ReasoningEffort)
		req.Thinking = &types.ClaudeThinking{Type: "enabled", BudgetTokens: &budget}
	}
}
