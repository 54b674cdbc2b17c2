package adapter

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"messagebridge/types"
)

func toolSimRequest(tools ...types.ClaudeTool) *types.ClaudeMessagesRequest {
	return &types.ClaudeMessagesRequest{Model: "some-model-xml-tools", Tools: tools}
}

func TestToolSimulationRequestAdapterSystemPromptIncludesSchema(t *testing.T) {
	req := toolSimRequest(types.ClaudeTool{
		Name:        "Read",
		Description: "Read a file",
		InputSchema: []byte(`{"type":"object","properties":{"path":{"type":"string"}}}`),
	})

	xml := NewToolSimulationRequestAdapter(GrammarXML).AdaptSystemPrompt("Be helpful.", req)
	assert.Contains(t, xml, "<function>")
	assert.Contains(t, xml, `"name": "Read"`)
	assert.Contains(t, xml, `"path"`)
	assert.Contains(t, xml, "Be helpful.")

	bracket := NewToolSimulationRequestAdapter(GrammarBracket).AdaptSystemPrompt("Be helpful.", req)
	assert.Contains(t, bracket, "**Tool Name:** `Read`")
	assert.Contains(t, bracket, `"path"`)
}

func TestToolSimulationRequestAdapterSystemPromptNoTools(t *testing.T) {
	a := NewToolSimulationRequestAdapter(GrammarXML)
	req := toolSimRequest()
	assert.Equal(t, "Be helpful.", a.AdaptSystemPrompt("Be helpful.", req))
}

func TestToolSimulationRequestAdapterAdaptMessagesXML(t *testing.T) {
	a := NewToolSimulationRequestAdapter(GrammarXML)
	messages := []types.OpenAIMessage{
		{Role: "user", Content: types.NewOpenAIText("what's the weather?")},
		{
			Role: "assistant",
			ToolCalls: []types.OpenAIToolCall{
				{ID: "call_1", Type: "function", Function: types.OpenAIFunction{Name: "GetWeather", Arguments: `{"city":"nyc"}`}},
			},
		},
		{Role: "tool", ToolCallID: "call_1", Content: types.NewOpenAIText(`{"temp":72}`)},
	}

	out := a.AdaptMessages(messages, nil)
	require.Len(t, out, 3)

	assert.Equal(t, "user", out[0].Role)

	assert.Equal(t, "assistant", out[1].Role)
	assert.Nil(t, out[1].ToolCalls)
	assert.Contains(t, out[1].Content.Text, "<function_calls>")
	assert.Contains(t, out[1].Content.Text, `<invoke name="GetWeather">`)

	assert.Equal(t, "user", out[2].Role)
	assert.Contains(t, out[2].Content.Text, "<function_results>")
	assert.Contains(t, out[2].Content.Text, `<result name="GetWeather">`)
	assert.Contains(t, out[2].Content.Text, `{"temp":72}`)
}

func TestToolSimulationRequestAdapterAdaptMessagesBracket(t *testing.T) {
	a := NewToolSimulationRequestAdapter(GrammarBracket)
	messages := []types.OpenAIMessage{
		{
			Role: "assistant",
			ToolCalls: []types.OpenAIToolCall{
				{ID: "call_1", Type: "function", Function: types.OpenAIFunction{Name: "Read", Arguments: `{"path":"/tmp/a"}`}},
			},
		},
		{Role: "tool", ToolCallID: "call_1", Content: types.NewOpenAIText("file contents")},
	}

	out := a.AdaptMessages(messages, nil)
	require.Len(t, out, 2)

	assert.Contains(t, out[0].Content.Text, "---TOOLS---")
	assert.Contains(t, out[0].Content.Text, `[tool(Read, path="/tmp/a")]`)

	assert.Contains(t, out[1].Content.Text, `[tool_result(name="Read", result="""file contents""")]`)
}

func TestToolSimulationRequestAdapterAdaptMessagesLeavesPlainMessagesAlone(t *testing.T) {
	a := NewToolSimulationRequestAdapter(GrammarXML)
	messages := []types.OpenAIMessage{
		{Role: "system", Content: types.NewOpenAIText("sys")},
		{Role: "user", Content: types.NewOpenAIText("hi")},
		{Role: "assistant", Content: types.NewOpenAIText("hello")},
	}

	out := a.AdaptMessages(messages, nil)
	assert.Equal(t, messages, out)
}
