package adapter

import (
	"encoding/json"
	"sort"
	"strings"

	"messagebridge/types"
)

// ToolSimulationModelAdapter strips the `-xml-tools`/`-bracket-tools`
// suffix from the model name forwarded upstream; the suffix exists only to
// select simulation grammar for this proxy, not to name a real model.
type ToolSimulationModelAdapter struct{ Base }

func (ToolSimulationModelAdapter) AdaptModel(model string, _ *types.ClaudeMessagesRequest) string {
	for _, suffix := range []string{"-xml-tools", "-bracket-tools"} {
		if strings.HasSuffix(model, suffix) {
			return strings.TrimSuffix(model, suffix)
		}
	}
	return model
}

// ToolSimulationToolsAdapter suppresses the native tools list and tool
// choice entirely: a simulating model has no real function-calling support,
// so its tool calls must come from parsed in-band text instead.
type ToolSimulationToolsAdapter struct{ Base }

func (ToolSimulationToolsAdapter) AdaptTools([]types.ClaudeTool, *types.ClaudeMessagesRequest) []types.ClaudeTool {
	return nil
}

func (ToolSimulationToolsAdapter) AdaptToolChoice(*types.ClaudeToolChoice, *types.ClaudeMessagesRequest) *types.ClaudeToolChoice {
	return nil
}

// ToolSimulationRequestAdapter injects the tool grammar and the tool
// catalog (name, description, schema) into the system prompt as plain
// instructions, since the model can't see them via native tool definitions.
type ToolSimulationRequestAdapter struct {
	Base
	grammar Grammar
}

func NewToolSimulationRequestAdapter(g Grammar) *ToolSimulationRequestAdapter {
	return &ToolSimulationRequestAdapter{grammar: g}
}

func (a *ToolSimulationRequestAdapter) AdaptSystemPrompt(prompt string, req *types.ClaudeMessagesRequest) string {
	if len(req.Tools) == 0 {
		return prompt
	}
	var list strings.Builder
	for i, tool := range req.Tools {
		if i > 0 {
			list.WriteString("\n\n")
		}
		if a.grammar == GrammarXML {
			list.WriteString(xmlFunctionBlock(tool))
		} else {
			list.WriteString(bracketToolBlock(tool))
		}
	}

	var header string
	if a.grammar == GrammarXML {
		header = "You can call tools. To call a tool, emit:\n<function_calls>\n<invoke name=\"ToolName\">\n" +
			"<parameter name=\"arg\">value</parameter>\n</invoke>\n</function_calls>\n\n" +
			"Here are the functions available in JSONSchema format:\n<functions>\n" + list.String() + "\n</functions>"
	} else {
		header = "You have access to a set of tools. To call a tool, emit:\n---TOOLS---\n" +
			"[tool(ToolName, arg=\"value\")]\n---END_TOOLS---\n\nAvailable tools:\n\n" + list.String()
	}
	return header + "\n\n" + prompt
}

// xmlFunctionBlock renders one tool as the <function> JSON block the XML
// grammar's prompt template expects, carrying the tool's full input schema
// so the model knows the parameter names and types it must emit.
func xmlFunctionBlock(tool types.ClaudeTool) string {
	schema := tool.InputSchema
	if len(schema) == 0 {
		schema = json.RawMessage("{}")
	}
	func_ := map[string]any{
		"name":        tool.Name,
		"description": tool.Description,
		"parameters":  json.RawMessage(schema),
	}
	body, _ := json.MarshalIndent(func_, "", "  ")
	return "<function>\n" + string(body) + "\n</function>"
}

// bracketToolBlock renders one tool as Markdown plus its raw JSON schema,
// the form the bracket grammar's prompt template expects.
func bracketToolBlock(tool types.ClaudeTool) string {
	schema := tool.InputSchema
	if len(schema) == 0 {
		schema = json.RawMessage("{}")
	}
	var pretty strings.Builder
	if err := json.Indent(&pretty, schema, "", "  "); err != nil {
		pretty.WriteString(string(schema))
	}
	description := tool.Description
	if description == "" {
		description = "No description provided."
	}
	return "**Tool Name:** `" + tool.Name + "`\n\n**Tool Description:** " + description +
		"\n\n**Tool Schema:**\n\n```json\n" + pretty.String() + "\n```"
}

// AdaptMessages rewrites prior tool-use turns into the grammar a simulating
// model was told to emit, since it has no native tool_calls to replay: an
// assistant message's tool_calls become in-band grammar text (a `[tool(...)]`
// line in the bracket grammar; in the XML grammar an <invoke> element whose
// <parameters> child holds the call's raw JSON arguments string, not one
// <parameter> element per argument), and a tool message becomes a grammar
// result envelope addressed by tool name.
func (a *ToolSimulationRequestAdapter) AdaptMessages(messages []types.OpenAIMessage, _ *types.ClaudeMessagesRequest) []types.OpenAIMessage {
	toolNameByCallID := map[string]string{}
	for _, msg := range messages {
		for _, call := range msg.ToolCalls {
			toolNameByCallID[call.ID] = call.Function.Name
		}
	}

	out := make([]types.OpenAIMessage, len(messages))
	for i, msg := range messages {
		switch {
		case msg.Role == "assistant" && len(msg.ToolCalls) > 0:
			out[i] = a.convertAssistantToolCalls(msg)
		case msg.Role == "tool":
			out[i] = a.convertToolMessage(msg, toolNameByCallID[msg.ToolCallID])
		default:
			out[i] = msg
		}
	}
	return out
}

func (a *ToolSimulationRequestAdapter) convertAssistantToolCalls(msg types.OpenAIMessage) types.OpenAIMessage {
	var calls strings.Builder
	for i, call := range msg.ToolCalls {
		if i > 0 {
			calls.WriteString("\n")
		}
		if a.grammar == GrammarXML {
			calls.WriteString("<invoke name=\"" + call.Function.Name + "\"><parameters>" + call.Function.Arguments + "</parameters></invoke>")
		} else {
			calls.WriteString(bracketInvocation(call.Function.Name, call.Function.Arguments))
		}
	}

	var formatted string
	if a.grammar == GrammarXML {
		formatted = "<function_calls>\n" + calls.String() + "\n</function_calls>"
	} else {
		formatted = "---TOOLS---\n" + calls.String() + "\n---END_TOOLS---"
	}

	existing := ""
	if msg.Content != nil && !msg.Content.IsArray {
		existing = strings.TrimSpace(msg.Content.Text)
	}
	content := formatted
	if existing != "" {
		content = existing + "\n\n" + formatted
	}

	msg.ToolCalls = nil
	msg.Content = types.NewOpenAIText(content)
	return msg
}

func bracketInvocation(name, arguments string) string {
	var args map[string]json.RawMessage
	if err := json.Unmarshal([]byte(arguments), &args); err != nil {
		return "[tool(" + name + ")]"
	}

	keys := make([]string, 0, len(args))
	for k := range args {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	var params strings.Builder
	for i, key := range keys {
		if i > 0 {
			params.WriteString(", ")
		}
		var s string
		if json.Unmarshal(args[key], &s) == nil {
			params.WriteString(key + "=\"" + s + "\"")
		} else {
			params.WriteString(key + "=\"\"\"" + string(args[key]) + "\"\"\"")
		}
	}
	if params.Len() == 0 {
		return "[tool(" + name + ")]"
	}
	return "[tool(" + name + ", " + params.String() + ")]"
}

func (a *ToolSimulationRequestAdapter) convertToolMessage(msg types.OpenAIMessage, toolName string) types.OpenAIMessage {
	text := ""
	if msg.Content != nil && !msg.Content.IsArray {
		text = msg.Content.Text
	}

	var content string
	if a.grammar == GrammarXML {
		content = "<function_results>\n<result name=\"" + toolName + "\">" + text + "</result>\n</function_results>"
	} else {
		content = "[tool_result(name=\"" + toolName + "\", result=\"\"\"" + text + "\"\"\")]"
	}

	return types.OpenAIMessage{
		Role:    "user",
		Content: types.NewOpenAIText(content),
	}
}
