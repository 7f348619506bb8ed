package providerutils

import "github.com/harborwave/llmkit/pkg/llm"

// AnthropicRole collapses the unified role set onto Anthropic's two-role
// wire format: {user, tool} both become "user" (tool results are rendered
// as user-turn content blocks); {system, developer} are not emitted as
// per-message roles at all — the caller lifts them to the request's
// top-level `system` field before reaching this mapping.
func AnthropicRole(r llm.Role) string {
	switch r {
	case llm.RoleAssistant:
		return "assistant"
	default:
		return "user"
	}
}

// GeminiRole renames roles for the Gemini wire format: assistant becomes
// "model", tool becomes "function".
func GeminiRole(r llm.Role) string {
	switch r {
	case llm.RoleAssistant:
		return "model"
	case llm.RoleTool:
		return "function"
	default:
		return "user"
	}
}

// ChatCompletionsRole maps roles for the OpenAI Chat Completions wire
// format. Tool turns use role "tool" in modern Chat Completions (the
// function-role variant is legacy and not emitted here).
func ChatCompletionsRole(r llm.Role) string {
	return string(r)
}

// SplitSystemMessages partitions messages into the system/developer
// instructions, wherever they appear in the list (concatenated, in order,
// for providers with a single top-level system field), and the remaining
// conversation turns.
func SplitSystemMessages(messages []llm.Message) (system string, rest []llm.Message) {
	for _, m := range messages {
		if m.Role == llm.RoleSystem || m.Role == llm.RoleDeveloper {
			if system != "" {
				system += "\n\n"
			}
			system += m.Content
			continue
		}
		rest = append(rest, m)
	}
	return system, rest
}
