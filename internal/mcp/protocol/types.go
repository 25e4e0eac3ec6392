package protocol

import "encoding/json"

// ProtocolVersion is the tool-server protocol revision announced in the
// initialize handshake.
const ProtocolVersion = "2024-11-05"

// Methods the orchestrator speaks.
const (
	MethodInitialize  = "initialize"
	MethodInitialized = "notifications/initialized"
	MethodToolsList   = "tools/list"
	MethodToolsCall   = "tools/call"
	MethodPing        = "ping"
)

// PeerInfo names one side of the session. It travels as clientInfo in
// the handshake request and as serverInfo in its result.
type PeerInfo struct {
	Name    string `json:"name"`
	Version string `json:"version"`
}

// Capabilities is the feature set a peer declares during the handshake.
// The orchestrator only cares about tool support.
type Capabilities struct {
	Tools *ToolsCapability `json:"tools,omitempty"`
}

// ToolsCapability flags tool-related features.
type ToolsCapability struct {
	// ListChanged means the server notifies when its catalog changes.
	ListChanged bool `json:"listChanged,omitempty"`
}

// initialize

// InitializeParams opens a session.
type InitializeParams struct {
	ProtocolVersion string       `json:"protocolVersion"`
	Capabilities    Capabilities `json:"capabilities"`
	ClientInfo      PeerInfo     `json:"clientInfo"`
}

// InitializeResult acknowledges a session.
type InitializeResult struct {
	ProtocolVersion string       `json:"protocolVersion"`
	Capabilities    Capabilities `json:"capabilities"`
	ServerInfo      PeerInfo     `json:"serverInfo"`
}

// tools/list

// ToolInfo describes one remote tool as reported by tools/list.
type ToolInfo struct {
	Name        string          `json:"name"`
	Description string          `json:"description,omitempty"`
	InputSchema json.RawMessage `json:"inputSchema"`
}

// ListToolsParams requests a page of the catalog.
type ListToolsParams struct {
	Cursor string `json:"cursor,omitempty"`
}

// ListToolsResult is a page of the catalog.
type ListToolsResult struct {
	Tools      []ToolInfo `json:"tools"`
	NextCursor *string    `json:"nextCursor,omitempty"`
}

// tools/call

// CallToolParams invokes one remote tool.
type CallToolParams struct {
	Name      string         `json:"name"`
	Arguments map[string]any `json:"arguments,omitempty"`
}

// CallToolResult is the tools/call reply: ordered content blocks, an
// error flag, and an optional structured payload.
type CallToolResult struct {
	Content           []ContentBlock `json:"content"`
	IsError           bool           `json:"isError,omitempty"`
	StructuredContent any            `json:"structuredContent,omitempty"`
}

// Content block type markers.
const (
	BlockText     = "text"
	BlockImage    = "image"
	BlockResource = "resource"
)

// ContentBlock is one element of a tool result. Only the fields for its
// type are set: text blocks carry Text, image blocks Data plus a mime
// type, resource blocks a URI.
type ContentBlock struct {
	Type     string `json:"type"`
	Text     string `json:"text,omitempty"`
	Data     string `json:"data,omitempty"`
	MimeType string `json:"mimeType,omitempty"`
	URI      string `json:"uri,omitempty"`
}

// IsText reports whether the block carries textual content. Some
// servers omit the type marker on plain text, so a bare Text field
// counts too.
func (b ContentBlock) IsText() bool {
	return b.Type == BlockText || (b.Type == "" && b.Text != "")
}

// TextBlock builds a text content block.
func TextBlock(text string) ContentBlock {
	return ContentBlock{Type: BlockText, Text: text}
}
