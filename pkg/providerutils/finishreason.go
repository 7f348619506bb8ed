package providerutils

import "github.com/harborwave/llmkit/pkg/llm"

// AnthropicFinishReasons maps Anthropic's stop_reason values onto the
// unified FinishReason enumeration (spec §4.5).
var AnthropicFinishReasons = map[string]llm.FinishReason{
	"end_turn":      llm.FinishStop,
	"stop_sequence": llm.FinishStop,
	"max_tokens":    llm.FinishMaxTokens,
	"tool_use":      llm.FinishToolUse,
}

// ChatCompletionsFinishReasons maps Chat Completions' finish_reason values
// (spec §4.6), including the Perplexity/older "end_turn" and "max_tokens"
// aliases some OpenAI-compatible gateways emit instead of the canonical
// "stop"/"length".
var ChatCompletionsFinishReasons = map[string]llm.FinishReason{
	"stop":           llm.FinishStop,
	"end_turn":       llm.FinishStop,
	"length":         llm.FinishMaxTokens,
	"max_tokens":     llm.FinishMaxTokens,
	"tool_calls":     llm.FinishToolUse,
	"tool_use":       llm.FinishToolUse,
	"function_call":  llm.FinishToolUse,
	"content_filter": llm.FinishContentFilter,
}

// GeminiFinishReasons maps Gemini candidate finishReason values that
// surface as a normal (non-error) completion. SAFETY/RECITATION are not
// listed here — per spec §4.8 they are surfaced as failures, not mapped to
// a FinishReason.
var GeminiFinishReasons = map[string]llm.FinishReason{
	"STOP":       llm.FinishStop,
	"MAX_TOKENS": llm.FinishMaxTokens,
}
