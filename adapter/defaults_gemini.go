package adapter

import (
	"encoding/json"
	"strings"

	"messagebridge/types"
)

// GeminiToolSchemaAdapter reshapes a JSON Schema tool parameter definition
// into the subset Gemini's function-calling API accepts: no $ref/$schema/
// definitions/additionalProperties, allOf folded into a flat object schema,
// array-valued "type" collapsed to its first member, and "format" dropped
// from string schemas except the two values Gemini recognizes.
type GeminiToolSchemaAdapter struct{ Base }

func (GeminiToolSchemaAdapter) AdaptToolSchema(schema json.RawMessage, _ *types.ClaudeMessagesRequest) json.RawMessage {
	var root any
	if err := json.Unmarshal(schema, &root); err != nil {
		return schema
	}
	walked := walkGeminiSchema(root, root)
	out, err := json.Marshal(walked)
	if err != nil {
		return schema
	}
	return out
}

func walkGeminiSchema(node, root any) any {
	switch v := node.(type) {
	case map[string]any:
		return walkGeminiObject(v, root)
	case []any:
		result := make([]any, len(v))
		for i, item := range v {
			result[i] = walkGeminiSchema(item, root)
		}
		return result
	default:
		return node
	}
}

func walkGeminiObject(obj map[string]any, root any) map[string]any {
	if ref, ok := obj["$ref"].(string); ok {
		if resolved := resolveJSONPointer(root, ref); resolved != nil {
			if resolvedObj, ok := resolved.(map[string]any); ok {
				return walkGeminiObject(resolvedObj, root)
			}
		}
	}

	if allOf, ok := obj["allOf"].([]any); ok {
		merged := map[string]any{"type": "object", "properties": map[string]any{}}
		for _, sub := range allOf {
			subObj, ok := sub.(map[string]any)
			if !ok {
				continue
			}
			resolvedSub := walkGeminiObject(subObj, root)
			if props, ok := resolvedSub["properties"].(map[string]any); ok {
				for k, v := range props {
					merged["properties"].(map[string]any)[k] = v
				}
			}
		}
		obj = merged
	}

	out := map[string]any{}
	for key, value := range obj {
		switch key {
		case "$schema", "additionalProperties", "definitions", "$ref", "allOf":
			continue
		case "type":
			out[key] = firstGeminiType(value)
		case "format":
			typeVal, _ := firstGeminiType(obj["type"]).(string)
			if typeVal != "" && typeVal != "string" {
				out[key] = value
				continue
			}
			if s, ok := value.(string); ok && (s == "date-time" || s == "enum") {
				out[key] = value
			}
		default:
			out[key] = walkGeminiSchema(value, root)
		}
	}
	return out
}

func firstGeminiType(value any) any {
	arr, ok := value.([]any)
	if !ok {
		return value
	}
	for _, t := range arr {
		if s, ok := t.(string); ok && s != "null" {
			return s
		}
	}
	if len(arr) > 0 {
		return arr[0]
	}
	return value
}

func resolveJSONPointer(root any, ref string) any {
	if !strings.HasPrefix(ref, "#/") {
		return nil
	}
	parts := strings.Split(strings.TrimPrefix(ref, "#/"), "/")
	current := root
	for _, part := range parts {
		obj, ok := current.(map[string]any)
		if !ok {
			return nil
		}
		current, ok = obj[part]
		if !ok {
			return nil
		}
	}
	return current
}
