package mcphost

import "encoding/json"

const jsonrpcVersion = "2.0"

// Host-bound methods.
const (
	methodInitialize  = "initialize"
	methodInitialized = "notifications/initialized"
	methodToolsCall   = "tools/call"
	methodUIMessage   = "ui/message"
	methodOpenLink    = "ui/open-link"
	methodLogMessage  = "notifications/message"
	methodSizeChanged = "ui/notifications/size-changed"
)

// Widget-bound methods.
const (
	methodToolInput          = "ui/notifications/tool-input"
	methodToolInputPartial   = "ui/notifications/tool-input-partial"
	methodToolResult         = "ui/notifications/tool-result"
	methodHostContextChanged = "ui/notifications/host-context-changed"
	methodToolCancelled      = "ui/notifications/tool-cancelled"
	methodTeardown           = "ui/teardown"
)

const codeMethodNotFound = -32601

// jsonRPCRequest represents an outbound JSON-RPC 2.0 request.
type jsonRPCRequest struct {
	JSONRPC string `json:"jsonrpc"`
	ID      int64  `json:"id"`
	Method  string `json:"method"`
	Params  any    `json:"params,omitempty"`
}

// jsonRPCNotification represents an outbound JSON-RPC 2.0 notification.
type jsonRPCNotification struct {
	JSONRPC string `json:"jsonrpc"`
	Method  string `json:"method"`
	Params  any    `json:"params,omitempty"`
}

// jsonRPCResponse represents an outbound reply to a host-initiated request.
type jsonRPCResponse struct {
	JSONRPC string        `json:"jsonrpc"`
	ID      int64         `json:"id"`
	Result  any           `json:"result,omitempty"`
	Error   *jsonRPCError `json:"error,omitempty"`
}

// jsonRPCError represents a JSON-RPC 2.0 error object.
type jsonRPCError struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
	Data    any    `json:"data,omitempty"`
}

// jsonRPCInbound is a loosely decoded incoming frame: a request (ID and
// Method), a notification (Method only), or a response (ID with Result or
// Error). Anything else is malformed and silently ignored.
type jsonRPCInbound struct {
	JSONRPC string          `json:"jsonrpc"`
	ID      *int64          `json:"id,omitempty"`
	Method  string          `json:"method,omitempty"`
	Params  json.RawMessage `json:"params,omitempty"`
	Result  json.RawMessage `json:"result,omitempty"`
	Error   *jsonRPCError   `json:"error,omitempty"`
}
