package mcp

import (
	"encoding/base64"
	"fmt"
	"strings"

	"github.com/harborwave/llmkit/pkg/llm"
)

// ConvertToolResult converts an MCP CallToolResult into an llm.ToolResult,
// so a tool backed by an MCP server answers a ToolCall the same way a
// native tool implementation would. name and id identify the ToolCall this
// result answers.
func ConvertToolResult(result CallToolResult, name, id string) (llm.ToolResult, error) {
	content := make([]llm.ToolContent, 0, len(result.Content))
	for _, item := range result.Content {
		part, err := convertContentItem(item)
		if err != nil {
			return llm.ToolResult{}, fmt.Errorf("converting mcp content item: %w", err)
		}
		content = append(content, part)
	}

	return llm.ToolResult{
		Name:    name,
		ID:      id,
		Content: content,
		IsError: result.IsError,
	}, nil
}

func convertContentItem(item ToolResultContent) (llm.ToolContent, error) {
	switch item.Type {
	case "text":
		return llm.ToolContent{Kind: llm.ToolContentText, Text: item.Text}, nil
	case "image":
		return convertImageItem(item)
	case "resource":
		return convertResourceItem(item), nil
	default:
		return llm.ToolContent{
			Kind: llm.ToolContentText,
			Text: fmt.Sprintf("unsupported MCP content type: %s", item.Type),
		}, nil
	}
}

// convertImageItem decodes MCP image content (URL, data URL, or raw
// base64) into an llm.ToolContent. Keeping image bytes out of the text
// channel avoids the token blowup a base64 string would cause if it were
// instead flattened into plain text.
func convertImageItem(item ToolResultContent) (llm.ToolContent, error) {
	if item.MimeType == "" {
		return llm.ToolContent{}, fmt.Errorf("missing MIME type for image content")
	}
	if item.Data == "" {
		return llm.ToolContent{}, fmt.Errorf("empty image data")
	}

	if strings.HasPrefix(item.Data, "http://") || strings.HasPrefix(item.Data, "https://") {
		return llm.ToolContent{Kind: llm.ToolContentFile, Filename: item.Data, MimeType: item.MimeType}, nil
	}

	raw := item.Data
	if strings.HasPrefix(raw, "data:") {
		parts := strings.SplitN(raw, ",", 2)
		if len(parts) != 2 {
			return llm.ToolContent{}, fmt.Errorf("invalid data URL format")
		}
		raw = parts[1]
	}

	bytes, err := base64.StdEncoding.DecodeString(raw)
	if err != nil {
		return llm.ToolContent{}, fmt.Errorf("decoding base64 image data: %w", err)
	}

	return llm.ToolContent{Kind: llm.ToolContentImage, Bytes: bytes, MimeType: item.MimeType}, nil
}

func convertResourceItem(item ToolResultContent) llm.ToolContent {
	if strings.HasPrefix(item.MimeType, "image/") && item.URI != "" {
		return llm.ToolContent{Kind: llm.ToolContentFile, Filename: item.URI, MimeType: item.MimeType}
	}

	text := item.URI
	if item.Text != "" {
		text = item.Text
	}
	return llm.ToolContent{Kind: llm.ToolContentText, Text: text}
}
