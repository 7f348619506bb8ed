package mcp

import (
	"encoding/base64"
	"testing"

	"github.com/harborwave/llmkit/pkg/llm"
)

func TestConvertToolResultText(t *testing.T) {
	result := CallToolResult{
		Content: []ToolResultContent{{Type: "text", Text: "42 degrees"}},
	}

	out, err := ConvertToolResult(result, "get_weather", "call_1")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(out.Content) != 1 || out.Content[0].Kind != llm.ToolContentText || out.Content[0].Text != "42 degrees" {
		t.Fatalf("unexpected content: %+v", out.Content)
	}
	if out.Name != "get_weather" || out.ID != "call_1" {
		t.Fatalf("unexpected name/id: %+v", out)
	}
}

func TestConvertToolResultImageBase64(t *testing.T) {
	raw := []byte("fake-png-bytes")
	encoded := base64.StdEncoding.EncodeToString(raw)

	result := CallToolResult{
		Content: []ToolResultContent{{Type: "image", Data: encoded, MimeType: "image/png"}},
	}

	out, err := ConvertToolResult(result, "screenshot", "call_2")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if out.Content[0].Kind != llm.ToolContentImage {
		t.Fatalf("expected image content, got %v", out.Content[0].Kind)
	}
	if string(out.Content[0].Bytes) != "fake-png-bytes" {
		t.Fatalf("unexpected decoded bytes: %q", out.Content[0].Bytes)
	}
}

func TestConvertToolResultImageDataURL(t *testing.T) {
	raw := []byte("fake-jpeg-bytes")
	encoded := base64.StdEncoding.EncodeToString(raw)

	result := CallToolResult{
		Content: []ToolResultContent{{
			Type:     "image",
			Data:     "data:image/jpeg;base64," + encoded,
			MimeType: "image/jpeg",
		}},
	}

	out, err := ConvertToolResult(result, "screenshot", "call_3")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if string(out.Content[0].Bytes) != "fake-jpeg-bytes" {
		t.Fatalf("unexpected decoded bytes: %q", out.Content[0].Bytes)
	}
}

func TestConvertToolResultImageURL(t *testing.T) {
	result := CallToolResult{
		Content: []ToolResultContent{{Type: "image", Data: "https://example.com/x.png", MimeType: "image/png"}},
	}

	out, err := ConvertToolResult(result, "screenshot", "call_4")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if out.Content[0].Kind != llm.ToolContentFile || out.Content[0].Filename != "https://example.com/x.png" {
		t.Fatalf("unexpected content: %+v", out.Content[0])
	}
}

func TestConvertToolResultImageMissingMimeType(t *testing.T) {
	result := CallToolResult{Content: []ToolResultContent{{Type: "image", Data: "abc"}}}
	if _, err := ConvertToolResult(result, "screenshot", "call_5"); err == nil {
		t.Fatalf("expected error for missing MIME type")
	}
}

func TestConvertToolResultResource(t *testing.T) {
	result := CallToolResult{
		Content: []ToolResultContent{{Type: "resource", URI: "file:///tmp/a.txt", Text: "hello"}},
	}

	out, err := ConvertToolResult(result, "read_file", "call_6")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if out.Content[0].Kind != llm.ToolContentText || out.Content[0].Text != "hello" {
		t.Fatalf("unexpected content: %+v", out.Content[0])
	}
}

func TestConvertToolResultIsErrorPropagates(t *testing.T) {
	result := CallToolResult{
		Content: []ToolResultContent{{Type: "text", Text: "boom"}},
		IsError: true,
	}

	out, err := ConvertToolResult(result, "fail_tool", "call_7")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !out.IsError {
		t.Fatalf("expected IsError to propagate")
	}
}
