package providerutils

import (
	"encoding/json"
	"fmt"

	"github.com/harborwave/llmkit/pkg/internal/imageutil"
	"github.com/harborwave/llmkit/pkg/internal/media"
	"github.com/harborwave/llmkit/pkg/llm"
	"github.com/harborwave/llmkit/pkg/llmerr"
)

// anthropicMaxInlinePDFBytes is the inline-document ceiling spec.md §4.9
// names: "Anthropic rejects PDFs > 32 MB with invalidRequest".
const anthropicMaxInlinePDFBytes = 32 * 1024 * 1024

// attachmentMimeType returns a's declared MIME type, or sniffs one from the
// attachment's magic-number signature when the caller didn't set one.
func attachmentMimeType(a llm.Attachment) string {
	if a.MimeType != "" {
		return a.MimeType
	}
	switch a.Kind {
	case llm.AttachmentVideo:
		return media.DetectVideoMediaType(a.Bytes)
	case llm.AttachmentImage:
		return media.DetectImageMediaType(a.Bytes)
	default:
		return "application/octet-stream"
	}
}

// AnthropicContent renders one Message into Anthropic Messages API content
// blocks: inline text, image/document blocks for Attachments, tool_use
// blocks for an assistant's ToolCalls, and tool_result blocks for a tool
// turn's ToolResults (Anthropic has no dedicated tool role — these ride
// along on a "user" message, per providerutils.AnthropicRole).
func AnthropicContent(m llm.Message) ([]map[string]interface{}, error) {
	var blocks []map[string]interface{}

	if m.Content != "" {
		blocks = append(blocks, map[string]interface{}{"type": "text", "text": m.Content})
	}

	for _, a := range m.Attachments {
		mime := attachmentMimeType(a)
		switch a.Kind {
		case llm.AttachmentImage:
			blocks = append(blocks, map[string]interface{}{
				"type": "image",
				"source": map[string]interface{}{
					"type":       "base64",
					"media_type": mime,
					"data":       imageutil.EncodeToBase64(a.Bytes),
				},
			})
		case llm.AttachmentDocument:
			if len(a.Bytes) > anthropicMaxInlinePDFBytes {
				return nil, llmerr.New(llmerr.KindInvalidRequest, "anthropic",
					fmt.Sprintf("document %q is %d bytes, exceeds the 32MB inline limit", a.Filename, len(a.Bytes)), nil)
			}
			blocks = append(blocks, map[string]interface{}{
				"type": "document",
				"source": map[string]interface{}{
					"type":       "base64",
					"media_type": mime,
					"data":       imageutil.EncodeToBase64(a.Bytes),
				},
			})
		default:
			// Audio/video are not accepted as Anthropic message content;
			// surface as a text note so the turn still carries the filename.
			blocks = append(blocks, map[string]interface{}{
				"type": "text",
				"text": fmt.Sprintf("[attachment %q (%s) omitted: unsupported by Anthropic Messages]", a.Filename, mime),
			})
		}
	}

	for _, tc := range m.ToolCalls {
		blocks = append(blocks, map[string]interface{}{
			"type":  "tool_use",
			"id":    tc.ID,
			"name":  tc.Name,
			"input": tc.Parameters,
		})
	}

	for _, tr := range m.ToolResults {
		content := make([]map[string]interface{}, 0, len(tr.Content))
		for _, c := range tr.Content {
			switch c.Kind {
			case llm.ToolContentImage:
				content = append(content, map[string]interface{}{
					"type": "image",
					"source": map[string]interface{}{
						"type":       "base64",
						"media_type": c.MimeType,
						"data":       imageutil.EncodeToBase64(c.Bytes),
					},
				})
			default:
				content = append(content, map[string]interface{}{"type": "text", "text": c.Text})
			}
		}
		block := map[string]interface{}{
			"type":        "tool_result",
			"tool_use_id": tr.ID,
			"content":     content,
		}
		if tr.IsError {
			block["is_error"] = true
		}
		blocks = append(blocks, block)
	}

	return blocks, nil
}

// ChatCompletionsMessage renders one Message into the zero-or-more wire
// messages Chat Completions expects. An assistant turn with tool calls
// produces a single message carrying "tool_calls"; a tool turn explodes
// into one "role":"tool" message per ToolResult, since Chat Completions
// correlates by message, not by content block.
func ChatCompletionsMessage(m llm.Message) []map[string]interface{} {
	if m.Role == llm.RoleTool || len(m.ToolResults) > 0 {
		out := make([]map[string]interface{}, 0, len(m.ToolResults))
		for _, tr := range m.ToolResults {
			out = append(out, map[string]interface{}{
				"role":         "tool",
				"tool_call_id": tr.ID,
				"content":      toolResultText(tr),
			})
		}
		return out
	}

	msg := map[string]interface{}{"role": ChatCompletionsRole(m.Role)}

	parts := chatCompletionsContentParts(m)
	if len(parts) == 1 && parts[0]["type"] == "text" {
		msg["content"] = parts[0]["text"]
	} else if len(parts) > 0 {
		msg["content"] = parts
	} else {
		msg["content"] = nil
	}

	if len(m.ToolCalls) > 0 {
		calls := make([]map[string]interface{}, len(m.ToolCalls))
		for i, tc := range m.ToolCalls {
			args, _ := json.Marshal(tc.Parameters)
			calls[i] = map[string]interface{}{
				"id":   tc.ID,
				"type": "function",
				"function": map[string]interface{}{
					"name":      tc.Name,
					"arguments": string(args),
				},
			}
		}
		msg["tool_calls"] = calls
	}

	return []map[string]interface{}{msg}
}

func chatCompletionsContentParts(m llm.Message) []map[string]interface{} {
	var parts []map[string]interface{}
	if m.Content != "" {
		parts = append(parts, map[string]interface{}{"type": "text", "text": m.Content})
	}
	for _, a := range m.Attachments {
		if a.Kind != llm.AttachmentImage {
			parts = append(parts, map[string]interface{}{
				"type": "text",
				"text": fmt.Sprintf("[attachment %q (%s) omitted: unsupported by Chat Completions]", a.Filename, attachmentMimeType(a)),
			})
			continue
		}
		parts = append(parts, map[string]interface{}{
			"type": "image_url",
			"image_url": map[string]interface{}{
				"url": imageutil.ConvertToDataURI(a.Bytes, attachmentMimeType(a)),
			},
		})
	}
	return parts
}

func toolResultText(tr llm.ToolResult) string {
	out := ""
	for i, c := range tr.Content {
		if i > 0 {
			out += "\n"
		}
		if c.Kind == llm.ToolContentText {
			out += c.Text
		} else {
			out += fmt.Sprintf("[%s content, %d bytes]", c.Kind, len(c.Bytes))
		}
	}
	return out
}

// ResponsesInputItems renders one Message into the OpenAI Responses API's
// "input" item list: a "message" item for plain turns, "function_call" for
// an assistant's tool invocations, and "function_call_output" per tool
// result.
func ResponsesInputItems(m llm.Message) []map[string]interface{} {
	var items []map[string]interface{}

	if m.Content != "" || len(m.Attachments) > 0 {
		content := make([]map[string]interface{}, 0, 1+len(m.Attachments))
		if m.Content != "" {
			textType := "input_text"
			if m.Role == llm.RoleAssistant {
				textType = "output_text"
			}
			content = append(content, map[string]interface{}{"type": textType, "text": m.Content})
		}
		for _, a := range m.Attachments {
			if a.Kind == llm.AttachmentImage {
				content = append(content, map[string]interface{}{
					"type":      "input_image",
					"image_url": imageutil.ConvertToDataURI(a.Bytes, attachmentMimeType(a)),
				})
			} else {
				content = append(content, map[string]interface{}{
					"type":     "input_file",
					"filename": a.Filename,
					"file_data": imageutil.ConvertToDataURI(a.Bytes, attachmentMimeType(a)),
				})
			}
		}
		items = append(items, map[string]interface{}{
			"type":    "message",
			"role":    string(m.Role),
			"content": content,
		})
	}

	for _, tc := range m.ToolCalls {
		args, _ := json.Marshal(tc.Parameters)
		items = append(items, map[string]interface{}{
			"type":      "function_call",
			"call_id":   tc.ID,
			"name":      tc.Name,
			"arguments": string(args),
		})
	}

	for _, tr := range m.ToolResults {
		items = append(items, map[string]interface{}{
			"type":    "function_call_output",
			"call_id": tr.ID,
			"output":  toolResultText(tr),
		})
	}

	return items
}

// GeminiUploader resolves an Attachment that's too large (or of a kind
// Gemini won't inline) to a File API URI. Implemented by
// pkg/providers/google's resumable-upload client; kept as an interface
// here so content rendering has no HTTP dependency of its own.
type GeminiUploader interface {
	Upload(kind llm.AttachmentKind, mimeType string, data []byte, filename string) (uri string, err error)
}

// geminiInlineThresholdBytes is the spec §4.9 upload cutover: "Gemini uses
// a File API upload for video, audio, and documents ≥ 20 MB".
const geminiInlineThresholdBytes = 20 * 1024 * 1024

// GeminiParts renders one Message into Gemini `parts[]`: text, inlineData
// for small attachments, fileData (via uploader) for large ones,
// functionCall (echoing any captured thoughtSignature) for ToolCalls, and
// functionResponse for ToolResults.
func GeminiParts(m llm.Message, uploader GeminiUploader) ([]map[string]interface{}, error) {
	var parts []map[string]interface{}

	if m.Content != "" {
		parts = append(parts, map[string]interface{}{"text": m.Content})
	}

	for _, a := range m.Attachments {
		mime := attachmentMimeType(a)
		needsUpload := a.Kind == llm.AttachmentVideo || a.Kind == llm.AttachmentAudio ||
			(a.Kind == llm.AttachmentDocument && len(a.Bytes) >= geminiInlineThresholdBytes)
		if needsUpload {
			if uploader == nil {
				return nil, llmerr.New(llmerr.KindInvalidRequest, "google",
					fmt.Sprintf("attachment %q requires a File API upload but no uploader is configured", a.Filename), nil)
			}
			uri, err := uploader.Upload(a.Kind, mime, a.Bytes, a.Filename)
			if err != nil {
				return nil, err
			}
			parts = append(parts, map[string]interface{}{
				"fileData": map[string]interface{}{"mimeType": mime, "fileUri": uri},
			})
			continue
		}
		parts = append(parts, map[string]interface{}{
			"inlineData": map[string]interface{}{"mimeType": mime, "data": imageutil.EncodeToBase64(a.Bytes)},
		})
	}

	for _, tc := range m.ToolCalls {
		part := map[string]interface{}{
			"functionCall": map[string]interface{}{"name": tc.Name, "args": tc.Parameters},
		}
		if sig, ok := tc.ProviderMetadata["thoughtSignature"]; ok {
			part["thoughtSignature"] = sig
		}
		parts = append(parts, part)
	}

	for _, tr := range m.ToolResults {
		parts = append(parts, map[string]interface{}{
			"functionResponse": map[string]interface{}{
				"name":     tr.Name,
				"response": map[string]interface{}{"content": toolResultText(tr), "isError": tr.IsError},
			},
		})
	}

	return parts, nil
}
