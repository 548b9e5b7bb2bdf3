package mcpui

import (
	"encoding/json"

	"github.com/google/uuid"
)

// MessageType identifies a uniform protocol message.
type MessageType string

// Action messages (widget to host). Each action carrying a MessageID is
// acked with TypeMessageReceived and eventually answered with exactly one
// TypeMessageResponse.
const (
	TypeTool       MessageType = "tool"
	TypePrompt     MessageType = "prompt"
	TypeLink       MessageType = "link"
	TypeNotify     MessageType = "notify"
	TypeIntent     MessageType = "intent"
	TypeSizeChange MessageType = "ui-size-change"
)

// Lifecycle messages.
const (
	// TypeReady signals that the widget has booted and wants current state.
	TypeReady MessageType = "ready"

	// TypeRequestRenderData asks for the current render state. Answered
	// synchronously from the cache, never via a host round trip.
	TypeRequestRenderData MessageType = "request-render-data"

	// TypeRenderData carries a full render state snapshot to the widget.
	TypeRenderData MessageType = "render-data"

	// TypeTeardown tells the widget the host is about to remove it.
	TypeTeardown MessageType = "teardown"

	// TypeToolCancelled tells the widget a running tool call was cancelled.
	TypeToolCancelled MessageType = "tool-cancelled"

	// TypeMessageReceived acks an outbound action message.
	TypeMessageReceived MessageType = "message-received"

	// TypeMessageResponse carries the terminal outcome of an action message.
	TypeMessageResponse MessageType = "message-response"
)

// Known returns true if the type belongs to the uniform vocabulary.
func (t MessageType) Known() bool {
	switch t {
	case TypeTool, TypePrompt, TypeLink, TypeNotify, TypeIntent, TypeSizeChange,
		TypeReady, TypeRequestRenderData, TypeRenderData, TypeTeardown,
		TypeToolCancelled, TypeMessageReceived, TypeMessageResponse:
		return true
	default:
		return false
	}
}

// IsAction returns true for widget-originated action messages that require
// translation onto the host protocol.
func (t MessageType) IsAction() bool {
	switch t {
	case TypeTool, TypePrompt, TypeLink, TypeNotify, TypeIntent, TypeSizeChange:
		return true
	default:
		return false
	}
}

// Message is the uniform message exchanged between widget and adapter, in
// both directions. MessageID correlates a request with its eventual response
// and is absent for notifications.
type Message struct {
	Type      MessageType     `json:"type"`
	MessageID string          `json:"messageId,omitempty"`
	Payload   json.RawMessage `json:"payload,omitempty"`
}

// Decode parses raw transport data as a uniform message. The second return
// value is false when the data is not a recognized uniform message, in which
// case the interceptor must pass the data through untouched.
func Decode(data []byte) (Message, bool) {
	var m Message
	if err := json.Unmarshal(data, &m); err != nil {
		return Message{}, false
	}
	if !m.Type.Known() {
		return Message{}, false
	}
	return m, true
}

// New creates a uniform message with the given payload. A nil payload yields
// a payload-free message.
func New(t MessageType, payload any) Message {
	m := Message{Type: t}
	if payload != nil {
		if data, err := json.Marshal(payload); err == nil {
			m.Payload = data
		}
	}
	return m
}

// GenerateMessageID creates a unique message identifier.
func GenerateMessageID() string {
	return "msg-" + uuid.New().String()
}

// Dispatch delivers a uniform message to the widget.
type Dispatch func(Message)

// Translator converts uniform widget messages to a host-native protocol and
// host traffic back into uniform messages. One translator serves one adapter
// session; Close discards all session state.
type Translator interface {
	// Start brings the link up: the JSON-RPC family begins its initialize
	// handshake, the capability family reads host fields and subscribes to
	// change notifications.
	Start() error

	// HandleWidgetMessage translates an intercepted widget message.
	HandleWidgetMessage(Message)

	// Close stops translation, clears cached state, and silently discards
	// any calls still in flight.
	Close()
}

// ToolPayload is the payload of a TypeTool action.
type ToolPayload struct {
	ToolName string         `json:"toolName"`
	Params   map[string]any `json:"params,omitempty"`
}

// PromptPayload is the payload of a TypePrompt action.
type PromptPayload struct {
	Prompt string `json:"prompt"`
}

// IntentPayload is the payload of a TypeIntent action.
type IntentPayload struct {
	Intent string         `json:"intent"`
	Params map[string]any `json:"params,omitempty"`
}

// PromptText synthesizes the follow-up message text for an intent that is
// mapped onto the host's message capability. Both host families use the same
// rendering so hosts see consistent traffic.
func (p IntentPayload) PromptText() string {
	text := "Intent: " + p.Intent
	if len(p.Params) > 0 {
		if data, err := json.Marshal(p.Params); err == nil {
			text += "\nParameters: " + string(data)
		}
	}
	return text
}

// LinkPayload is the payload of a TypeLink action.
type LinkPayload struct {
	URL string `json:"url"`
}

// NotifyPayload is the payload of a TypeNotify action.
type NotifyPayload struct {
	Message string `json:"message"`
}

// SizeChangePayload is the payload of a TypeSizeChange action.
type SizeChangePayload struct {
	Width  float64 `json:"width"`
	Height float64 `json:"height"`
}

// ReceivedPayload is the payload of a TypeMessageReceived ack.
type ReceivedPayload struct {
	MessageID string `json:"messageId"`
}

// ResponsePayload is the payload of a TypeMessageResponse. Exactly one of
// Response and Error is set.
type ResponsePayload struct {
	MessageID string         `json:"messageId"`
	Response  any            `json:"response,omitempty"`
	Error     *ResponseError `json:"error,omitempty"`
}

// CancelledPayload is the payload of a TypeToolCancelled lifecycle message.
type CancelledPayload struct {
	Reason string `json:"reason,omitempty"`
}

// NewReceived creates the ack message for an action carrying messageID.
func NewReceived(messageID string) Message {
	return New(TypeMessageReceived, ReceivedPayload{MessageID: messageID})
}

// NewResponse creates a successful terminal response for messageID.
func NewResponse(messageID string, response any) Message {
	return New(TypeMessageResponse, ResponsePayload{
		MessageID: messageID,
		Response:  response,
	})
}

// NewErrorResponse creates a failed terminal response for messageID.
func NewErrorResponse(messageID string, err error) Message {
	return New(TypeMessageResponse, ResponsePayload{
		MessageID: messageID,
		Error:     ToResponseError(err),
	})
}

// NewRenderData creates a render-data message tagged with the requesting
// messageID, or untagged when messageID is empty (change broadcast).
func NewRenderData(messageID string, data any) Message {
	m := New(TypeRenderData, data)
	m.MessageID = messageID
	return m
}
