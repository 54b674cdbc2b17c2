// Package directive extracts and applies an embedded JSON configuration
// block — a "proxy directive" — from a Claude request's system prompt or
// first user message, ahead of adapter selection and request conversion.
package directive

// ResponsesSettings toggles routing the request through the OpenAI
// Responses API instead of Chat Completions.
type ResponsesSettings struct {
	Enable            *bool   `json:"enable,omitempty"`
	MaxOutputTokens   *int    `json:"max_output_tokens,omitempty"`
	ReasoningSummary  *string `json:"reasoning_summary,omitempty"`
}

// Settings is the set of request parameters a directive can override.
type Settings struct {
	Model            *string            `json:"model,omitempty"`
	MaxTokens        *int               `json:"max_tokens,omitempty"`
	Temperature      *float64           `json:"temperature,omitempty"`
	TopP             *float64           `json:"top_p,omitempty"`
	ReasoningEffort  *string            `json:"reasoning_effort,omitempty"`
	EnableMeowsings  *bool              `json:"enable_meowsings,omitempty"`
	Responses        *ResponsesSettings `json:"responses,omitempty"`
}

// Condition is evaluated against the request to decide whether a Rule's
// Settings apply.
type Condition struct {
	ModelContains string `json:"modelContains"`
}

// Rule applies its Settings when If matches the model the client requested.
type Rule struct {
	If    Condition `json:"if"`
	Apply Settings  `json:"apply"`
}

// ProxyDirective is the full embedded configuration block: a base Global
// setting plus model-conditional Rules layered on top.
type ProxyDirective struct {
	Global *Settings `json:"global,omitempty"`
	Rules  []Rule    `json:"rules,omitempty"`
}
