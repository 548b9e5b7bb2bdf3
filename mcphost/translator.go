// Package mcphost translates the uniform widget protocol onto hosts that
// speak JSON-RPC 2.0 (MCP). Outbound actions become requests or
// notifications per a fixed mapping; inbound notifications merge into the
// render state cache; inbound responses settle pending calls by id.
//
// The link starts with an initialize handshake. Traffic other than local
// render-data queries is held until the handshake settles, either by a host
// response or by the configured timeout elapsing; the adapter never blocks
// indefinitely on a silent host.
package mcphost

import (
	"encoding/json"
	"fmt"
	"sync"

	"github.com/mark3labs/mcp-go/mcp"

	mcpui "github.com/katherinek727/mcp-ui"
	"github.com/katherinek727/mcp-ui/pending"
	"github.com/katherinek727/mcp-ui/render"
)

// HostTransport delivers encoded JSON-RPC frames to the host.
type HostTransport interface {
	Send(data []byte) error
}

// HostFunc adapts a function to the HostTransport interface.
type HostFunc func(data []byte) error

// Send delivers the frame by calling f.
func (f HostFunc) Send(data []byte) error {
	return f(data)
}

// Handshake phases.
type phase int

const (
	phaseUninitialized phase = iota
	phaseInitializing
	phaseReady
)

// uiMessageParams is the params shape for ui/message requests.
type uiMessageParams struct {
	Role    string            `json:"role"`
	Content []mcp.TextContent `json:"content"`
}

// openLinkParams is the params shape for ui/open-link requests.
type openLinkParams struct {
	URL string `json:"url"`
}

// logParams is the params shape for notifications/message.
type logParams struct {
	Level mcp.LoggingLevel `json:"level"`
	Data  any              `json:"data"`
}

// sizeParams is the params shape for ui/notifications/size-changed.
type sizeParams struct {
	Width  float64 `json:"width"`
	Height float64 `json:"height"`
}

// initializeResult is the slice of the host's initialize response the
// adapter cares about: identity for diagnostics, host context for the
// render state cache.
type initializeResult struct {
	ProtocolVersion string             `json:"protocolVersion"`
	ServerInfo      mcp.Implementation `json:"serverInfo"`
	HostContext     map[string]any     `json:"hostContext,omitempty"`
}

// Translator maps uniform widget messages onto a JSON-RPC host and back.
// It is safe for concurrent use; multiple calls may be in flight at once and
// settle out of send order. Create one per adapter session with New.
type Translator struct {
	cfg    mcpui.Config
	host   HostTransport
	widget mcpui.Dispatch
	table  *pending.Table
	state  *render.State

	clientInfo mcp.Implementation

	mu     sync.Mutex
	phase  phase
	queue  []mcpui.Message
	closed bool
}

// Option configures a Translator.
type Option func(*Translator)

// WithClientInfo sets the app identity sent in the initialize request.
func WithClientInfo(info mcp.Implementation) Option {
	return func(t *Translator) {
		t.clientInfo = info
	}
}

// New creates a Translator that sends host frames through host and delivers
// uniform messages to the widget through widget.
func New(host HostTransport, widget mcpui.Dispatch, cfg mcpui.Config, opts ...Option) *Translator {
	t := &Translator{
		cfg:    cfg,
		host:   host,
		widget: widget,
		table:  pending.NewTable(cfg.Timeout),
		state:  render.NewState(),
		clientInfo: mcp.Implementation{
			Name:    "mcp-ui-adapter",
			Version: "1.0.0",
		},
	}
	for _, opt := range opts {
		opt(t)
	}
	return t
}

// State exposes the render state cache, shared with the session owner.
func (t *Translator) State() *render.State {
	return t.state
}

// Start sends the initialize request and arms its timeout. The translator
// reaches the ready phase on a matching response or on the timeout elapsing,
// whichever comes first; queued traffic is flushed either way.
func (t *Translator) Start() error {
	t.mu.Lock()
	if t.phase != phaseUninitialized {
		t.mu.Unlock()
		return nil
	}
	t.phase = phaseInitializing
	t.mu.Unlock()

	id := t.table.Add(t.settleInitialize)
	req := jsonRPCRequest{
		JSONRPC: jsonrpcVersion,
		ID:      id,
		Method:  methodInitialize,
		Params: mcp.InitializeParams{
			ProtocolVersion: mcp.LATEST_PROTOCOL_VERSION,
			Capabilities:    mcp.ClientCapabilities{},
			ClientInfo:      t.clientInfo,
		},
	}
	if err := t.send(req); err != nil {
		t.table.Settle(id, nil, err)
		return fmt.Errorf("initialize: %w", err)
	}
	return nil
}

// settleInitialize finishes the handshake. A successful response captures
// host context and announces the initialized notification; a timeout or
// rejection still unblocks the link.
func (t *Translator) settleInitialize(result json.RawMessage, err error) {
	if err == nil {
		var res initializeResult
		if jsonErr := json.Unmarshal(result, &res); jsonErr == nil && res.HostContext != nil {
			t.state.ApplyHostContext(res.HostContext)
		}
		t.sendNotification(methodInitialized, nil)
	}

	t.mu.Lock()
	t.phase = phaseReady
	queued := t.queue
	t.queue = nil
	t.mu.Unlock()

	for _, msg := range queued {
		t.translateAction(msg)
	}
}

// HandleWidgetMessage translates an intercepted widget message. Action
// messages are acked immediately; during the handshake they are queued and
// flushed once the link is ready. Render-data queries are always answered
// locally, in any phase.
func (t *Translator) HandleWidgetMessage(msg mcpui.Message) {
	switch msg.Type {
	case mcpui.TypeRequestRenderData:
		t.dispatch(mcpui.NewRenderData(msg.MessageID, t.state.Snapshot()))
		return
	case mcpui.TypeReady:
		t.dispatch(mcpui.NewRenderData("", t.state.Snapshot()))
		return
	}

	if !msg.Type.IsAction() {
		// Closed vocabulary: anything else is reported, never dropped.
		if msg.MessageID != "" {
			t.dispatch(mcpui.NewErrorResponse(msg.MessageID,
				mcpui.NewUnsupportedCapabilityError(string(msg.Type))))
		}
		return
	}

	if !validAction(msg) {
		// Malformed widget traffic is silently ignored.
		return
	}

	if msg.MessageID != "" {
		t.dispatch(mcpui.NewReceived(msg.MessageID))
	}

	t.mu.Lock()
	if t.phase != phaseReady {
		t.queue = append(t.queue, msg)
		t.mu.Unlock()
		return
	}
	t.mu.Unlock()

	t.translateAction(msg)
}

// validAction reports whether the action payload decodes into its expected
// shape. Invalid actions never produce an ack or a response.
func validAction(msg mcpui.Message) bool {
	var out any
	switch msg.Type {
	case mcpui.TypeTool:
		out = &mcpui.ToolPayload{}
	case mcpui.TypePrompt:
		out = &mcpui.PromptPayload{}
	case mcpui.TypeIntent:
		out = &mcpui.IntentPayload{}
	case mcpui.TypeLink:
		out = &mcpui.LinkPayload{}
	case mcpui.TypeNotify:
		out = &mcpui.NotifyPayload{}
	case mcpui.TypeSizeChange:
		out = &mcpui.SizeChangePayload{}
	default:
		return false
	}
	if len(msg.Payload) == 0 {
		return true
	}
	return json.Unmarshal(msg.Payload, out) == nil
}

// translateAction maps one action message onto the host protocol. The
// payload has been validated and the ack dispatched by the time this runs.
func (t *Translator) translateAction(msg mcpui.Message) {
	switch msg.Type {
	case mcpui.TypeTool:
		var p mcpui.ToolPayload
		json.Unmarshal(msg.Payload, &p)
		t.request(msg.MessageID, methodToolsCall, mcp.CallToolParams{
			Name:      p.ToolName,
			Arguments: p.Params,
		})

	case mcpui.TypePrompt:
		var p mcpui.PromptPayload
		json.Unmarshal(msg.Payload, &p)
		t.request(msg.MessageID, methodUIMessage, userMessage(p.Prompt))

	case mcpui.TypeIntent:
		var p mcpui.IntentPayload
		json.Unmarshal(msg.Payload, &p)
		t.request(msg.MessageID, methodUIMessage, userMessage(p.PromptText()))

	case mcpui.TypeLink:
		var p mcpui.LinkPayload
		json.Unmarshal(msg.Payload, &p)
		t.request(msg.MessageID, methodOpenLink, openLinkParams{URL: p.URL})

	case mcpui.TypeNotify:
		var p mcpui.NotifyPayload
		json.Unmarshal(msg.Payload, &p)
		t.notifyHost(msg.MessageID, methodLogMessage, logParams{
			Level: mcp.LoggingLevelInfo,
			Data:  p.Message,
		})

	case mcpui.TypeSizeChange:
		var p mcpui.SizeChangePayload
		json.Unmarshal(msg.Payload, &p)
		t.notifyHost(msg.MessageID, methodSizeChanged, sizeParams{
			Width:  p.Width,
			Height: p.Height,
		})
	}
}

func userMessage(text string) uiMessageParams {
	return uiMessageParams{
		Role:    "user",
		Content: []mcp.TextContent{mcp.NewTextContent(text)},
	}
}

// request issues a host-bound request correlated to the widget messageID.
// The pending table guarantees exactly one terminal response: the host's
// reply or a timeout, whichever fires first.
func (t *Translator) request(messageID, method string, params any) {
	id := t.table.Add(t.settleFor(messageID))
	req := jsonRPCRequest{
		JSONRPC: jsonrpcVersion,
		ID:      id,
		Method:  method,
		Params:  params,
	}
	if err := t.send(req); err != nil {
		t.table.Settle(id, nil, mcpui.NewHostRejectionError("host transport failed", err))
	}
}

// notifyHost issues a host-bound notification. No host reply is possible, so
// the terminal response is produced locally.
func (t *Translator) notifyHost(messageID, method string, params any) {
	err := t.sendNotification(method, params)
	if messageID == "" {
		return
	}
	if err != nil {
		t.dispatch(mcpui.NewErrorResponse(messageID,
			mcpui.NewHostRejectionError("host transport failed", err)))
		return
	}
	t.dispatch(mcpui.NewResponse(messageID, map[string]any{"acknowledged": true}))
}

// settleFor returns the settle callback that turns a pending outcome into
// the widget's message-response.
func (t *Translator) settleFor(messageID string) pending.Settle {
	return func(result json.RawMessage, err error) {
		if messageID == "" {
			return
		}
		if err != nil {
			t.dispatch(mcpui.NewErrorResponse(messageID, err))
			return
		}
		var v any
		if len(result) > 0 {
			if jsonErr := json.Unmarshal(result, &v); jsonErr != nil {
				v = string(result)
			}
		}
		t.dispatch(mcpui.NewResponse(messageID, v))
	}
}

// HandleHostMessage processes one raw frame from the host. Unparseable
// frames are silently ignored; the adapter never crashes on malformed host
// traffic.
func (t *Translator) HandleHostMessage(data []byte) {
	var in jsonRPCInbound
	if err := json.Unmarshal(data, &in); err != nil || in.JSONRPC != jsonrpcVersion {
		return
	}

	switch {
	case in.Method != "" && in.ID != nil:
		t.handleHostRequest(in)
	case in.Method != "":
		t.handleHostNotification(in)
	case in.ID != nil:
		t.handleHostResponse(in)
	}
}

// handleHostRequest serves host-initiated requests. Teardown is forwarded to
// the widget and acknowledged immediately; the widget cannot veto it.
func (t *Translator) handleHostRequest(in jsonRPCInbound) {
	switch in.Method {
	case methodTeardown:
		t.dispatch(mcpui.New(mcpui.TypeTeardown, nil))
		t.send(jsonRPCResponse{
			JSONRPC: jsonrpcVersion,
			ID:      *in.ID,
			Result:  map[string]any{},
		})
	default:
		t.send(jsonRPCResponse{
			JSONRPC: jsonrpcVersion,
			ID:      *in.ID,
			Error: &jsonRPCError{
				Code:    codeMethodNotFound,
				Message: fmt.Sprintf("method not found: %s", in.Method),
			},
		})
	}
}

// handleHostNotification merges host data into the render state and
// rebroadcasts a full render-data snapshot on every change.
func (t *Translator) handleHostNotification(in jsonRPCInbound) {
	switch in.Method {
	case methodToolInput, methodToolInputPartial:
		var v any
		if err := json.Unmarshal(in.Params, &v); err != nil {
			return
		}
		t.state.SetToolInput(v)

	case methodToolResult:
		var v any
		if err := json.Unmarshal(in.Params, &v); err != nil {
			return
		}
		t.state.SetToolOutput(v)

	case methodHostContextChanged:
		var ctx map[string]any
		if err := json.Unmarshal(in.Params, &ctx); err != nil {
			return
		}
		t.state.ApplyHostContext(ctx)

	case methodToolCancelled:
		var p mcpui.CancelledPayload
		json.Unmarshal(in.Params, &p)
		t.dispatch(mcpui.New(mcpui.TypeToolCancelled, p))
		return

	default:
		return
	}

	t.dispatch(mcpui.NewRenderData("", t.state.Snapshot()))
}

// handleHostResponse settles the matching pending call. Responses for ids
// that already settled, timed out, or were discarded at uninstall are
// no-ops.
func (t *Translator) handleHostResponse(in jsonRPCInbound) {
	if in.Error != nil {
		t.table.Settle(*in.ID, nil, mcpui.NewHostRejectionError(in.Error.Message, nil))
		return
	}
	t.table.Settle(*in.ID, in.Result, nil)
}

// Close stops translation and discards all session state. Calls still in
// flight are dropped silently; their late replies and settlements are
// no-ops.
func (t *Translator) Close() {
	t.mu.Lock()
	if t.closed {
		t.mu.Unlock()
		return
	}
	t.closed = true
	t.queue = nil
	t.mu.Unlock()

	t.table.Clear()
	t.state.Reset()
}

// dispatch delivers a message to the widget unless the session has closed.
func (t *Translator) dispatch(msg mcpui.Message) {
	t.mu.Lock()
	closed := t.closed
	t.mu.Unlock()
	if closed {
		return
	}
	t.widget(msg)
}

func (t *Translator) send(frame any) error {
	t.mu.Lock()
	closed := t.closed
	t.mu.Unlock()
	if closed {
		return nil
	}
	data, err := json.Marshal(frame)
	if err != nil {
		return err
	}
	return t.host.Send(data)
}

func (t *Translator) sendNotification(method string, params any) error {
	return t.send(jsonRPCNotification{
		JSONRPC: jsonrpcVersion,
		Method:  method,
		Params:  params,
	})
}
