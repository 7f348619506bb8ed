// Package mcp carries the Model Context Protocol content-conversion
// contract: the shape of a tool result an MCP server returns, and how it
// maps onto pkg/llm's provider-neutral ToolResult so an MCP-backed tool
// can be replayed into any of the four chat providers the same way a
// native tool call's result would be.
package mcp

// ProtocolVersion is the MCP protocol revision this contract targets.
const ProtocolVersion = "2024-11-05"

// ToolResultContent is one content item of an MCP tool call result.
type ToolResultContent struct {
	Type     string      `json:"type"` // "text", "image", "resource"
	Text     string      `json:"text,omitempty"`
	Data     string      `json:"data,omitempty"` // base64 for image
	MimeType string      `json:"mimeType,omitempty"`
	URI      string      `json:"uri,omitempty"` // for resource type
	Metadata interface{} `json:"metadata,omitempty"`
}

// CallToolResult is the result payload an MCP server returns from a
// tools/call request.
type CallToolResult struct {
	Content  []ToolResultContent    `json:"content"`
	IsError  bool                   `json:"isError,omitempty"`
	Metadata map[string]interface{} `json:"_meta,omitempty"`
}
