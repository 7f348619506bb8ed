// Package llm holds the provider-neutral conversation data model: Message,
// Attachment, Tool, ToolResult, and GenerationResponse, shared by every
// provider client in pkg/providers/*.
package llm

// Role identifies who produced a Message.
type Role string

const (
	RoleSystem    Role = "system"
	RoleDeveloper Role = "developer"
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
	RoleTool      Role = "tool"
)

// AttachmentKind is the semantic category of an Attachment. Providers
// handle each category differently (inline base64 vs upload-then-reference),
// so the kind — not just the MIME type — is load-bearing.
type AttachmentKind string

const (
	AttachmentImage    AttachmentKind = "image"
	AttachmentDocument AttachmentKind = "document"
	AttachmentVideo    AttachmentKind = "video"
	AttachmentAudio    AttachmentKind = "audio"
)

// Attachment is a piece of multimodal input content. Resizing/reformatting
// and upload-threshold handling are external collaborators — see
// pkg/providerutils for the hook points that call them.
type Attachment struct {
	Kind     AttachmentKind
	Bytes    []byte
	MimeType string
	Filename string
}

// Message is one immutable turn in a conversation. ToolCalls is populated
// only on assistant messages that invoked tools; ToolResults only on
// tool-role turns answering a prior call.
type Message struct {
	Role        Role
	Content     string
	Attachments []Attachment
	ToolCalls   []ToolCall
	ToolResults []ToolResult
}

// ToolCall is a model-initiated function invocation, either freshly
// published on a GenerationResponse or replayed as history on a later
// assistant Message.
type ToolCall struct {
	Name             string
	ID               string
	Parameters       map[string]interface{}
	ProviderMetadata map[string]interface{}
}

// ToolContentKind is the bare output category of a ToolResult content item,
// also reused as Tool.ResultTypes for static capability matching.
type ToolContentKind string

const (
	ToolContentText  ToolContentKind = "text"
	ToolContentImage ToolContentKind = "image"
	ToolContentAudio ToolContentKind = "audio"
	ToolContentFile  ToolContentKind = "file"
)

// ToolContent is one item of a tool's result payload, sent back to the
// provider on the next turn.
type ToolContent struct {
	Kind     ToolContentKind
	Text     string
	Bytes    []byte
	MimeType string
	Filename string
}

// ToolResult is the outcome of executing one ToolCall. ID equals the
// ToolCall.ID it answers — callers are responsible for the correlation;
// mismatches are propagated to the provider verbatim.
type ToolResult struct {
	Name    string
	ID      string
	Content []ToolContent
	IsError bool
}

// TextResult builds a simple one-item text ToolResult.
func TextResult(name, id, text string) ToolResult {
	return ToolResult{
		Name:    name,
		ID:      id,
		Content: []ToolContent{{Kind: ToolContentText, Text: text}},
	}
}

// ErrorResult builds a ToolResult flagged as an error with a text
// explanation, the shape every failed dispatch (unknown tool, validation
// failure, executor panic/error) is normalized into.
func ErrorResult(name, id, message string) ToolResult {
	return ToolResult{
		Name:    name,
		ID:      id,
		Content: []ToolContent{{Kind: ToolContentText, Text: message}},
		IsError: true,
	}
}
