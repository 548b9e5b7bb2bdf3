// Package caphost translates the uniform widget protocol onto hosts that
// expose an imperative capability surface instead of a message channel:
// promise-like operations for tool calls and follow-up messages, passively
// readable state fields, and a change-notification event.
//
// There is no push channel. The adapter reads all fields at install, answers
// render-data queries from its cache, and re-reads everything whenever the
// host fires its change event. If the capability surface is absent at
// install, the adapter does not activate at all.
package caphost

import (
	"context"
	"encoding/json"
	"errors"
	"sync"

	mcpui "github.com/katherinek727/mcp-ui"
	"github.com/katherinek727/mcp-ui/pending"
	"github.com/katherinek727/mcp-ui/render"
)

// Fields is one read of the host's passive state surface. Zero-valued
// strings mean the host reports nothing; the render cache keeps its
// defaults for those.
type Fields struct {
	ToolInput   any
	ToolOutput  any
	WidgetState any
	Locale      string
	Theme       string
	DisplayMode string
	MaxHeight   int
}

// Host is the capability surface exposed by the embedding host. CallTool
// and SendFollowUp may block until the host settles them; the translator
// bounds both with the configured timeout.
type Host interface {
	// CallTool invokes a named tool and returns its result.
	CallTool(ctx context.Context, name string, args map[string]any) (any, error)

	// SendFollowUp sends a follow-up message into the conversation.
	SendFollowUp(ctx context.Context, prompt string) error

	// Fields reads the current values of all passive state fields.
	Fields() Fields

	// Subscribe registers fn to run whenever host state changes and returns
	// the matching unsubscribe. The adapter subscribes at install and
	// unsubscribes at uninstall.
	Subscribe(fn func()) (unsubscribe func())
}

// Translator maps uniform widget messages onto a capability host. It is
// safe for concurrent use; multiple capability calls may be in flight at
// once and settle out of send order. Create one per adapter session with
// New.
type Translator struct {
	cfg    mcpui.Config
	host   Host
	widget mcpui.Dispatch
	table  *pending.Table
	state  *render.State

	mu          sync.Mutex
	closed      bool
	unsubscribe func()
}

// New creates a Translator over the given capability surface. When host is
// nil the capability surface is absent and the adapter must not activate:
// New returns (nil, false) and nothing is constructed.
func New(host Host, widget mcpui.Dispatch, cfg mcpui.Config) (*Translator, bool) {
	if host == nil {
		return nil, false
	}
	return &Translator{
		cfg:    cfg,
		host:   host,
		widget: widget,
		table:  pending.NewTable(cfg.Timeout),
		state:  render.NewState(),
	}, true
}

// State exposes the render state cache, shared with the session owner.
func (t *Translator) State() *render.State {
	return t.state
}

// Start seeds the render cache from the host's fields, dispatches the
// initial render-data message, and subscribes to change notifications.
func (t *Translator) Start() error {
	t.readFields()
	t.dispatch(mcpui.NewRenderData("", t.state.Snapshot()))

	unsub := t.host.Subscribe(t.refresh)
	t.mu.Lock()
	t.unsubscribe = unsub
	t.mu.Unlock()
	return nil
}

// refresh re-reads every host field and rebroadcasts the full snapshot.
func (t *Translator) refresh() {
	t.readFields()
	t.dispatch(mcpui.NewRenderData("", t.state.Snapshot()))
}

func (t *Translator) readFields() {
	f := t.host.Fields()
	if f.ToolInput != nil {
		t.state.SetToolInput(f.ToolInput)
	}
	if f.ToolOutput != nil {
		t.state.SetToolOutput(f.ToolOutput)
	}
	if f.WidgetState != nil {
		t.state.SetWidgetState(f.WidgetState)
	}
	t.state.SetLocale(f.Locale)
	t.state.SetTheme(f.Theme)
	t.state.SetDisplayMode(f.DisplayMode)
	if f.MaxHeight > 0 {
		t.state.SetMaxHeight(f.MaxHeight)
	}
}

// HandleWidgetMessage translates an intercepted widget message.
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

	switch msg.Type {
	case mcpui.TypeTool:
		var p mcpui.ToolPayload
		json.Unmarshal(msg.Payload, &p)
		t.callTool(msg.MessageID, p)

	case mcpui.TypePrompt:
		var p mcpui.PromptPayload
		json.Unmarshal(msg.Payload, &p)
		t.sendFollowUp(msg.MessageID, p.Prompt)

	case mcpui.TypeIntent:
		var p mcpui.IntentPayload
		json.Unmarshal(msg.Payload, &p)
		if t.cfg.IntentHandling == mcpui.IntentIgnore {
			t.respond(msg.MessageID, map[string]any{"ignored": true})
			return
		}
		t.sendFollowUp(msg.MessageID, p.PromptText())

	case mcpui.TypeNotify:
		// No host capability exists for notifications; answered locally.
		t.respond(msg.MessageID, map[string]any{"acknowledged": true})

	case mcpui.TypeLink:
		if msg.MessageID != "" {
			t.dispatch(mcpui.NewErrorResponse(msg.MessageID,
				mcpui.NewUnsupportedCapabilityError("link")))
		}

	case mcpui.TypeSizeChange:
		// Best-effort: this family has no resize call, so the host is never
		// contacted. The terminal response still fires.
		t.respond(msg.MessageID, map[string]any{"acknowledged": true})
	}
}

// callTool runs the tool capability off the dispatch path. The pending
// table guarantees exactly one terminal response: the capability settling
// or the timeout, whichever fires first; a late settlement is a no-op.
func (t *Translator) callTool(messageID string, p mcpui.ToolPayload) {
	id := t.table.Add(t.settleFor(messageID))
	ctx, cancel := context.WithTimeout(context.Background(), t.cfg.Timeout)
	go func() {
		defer cancel()
		result, err := t.host.CallTool(ctx, p.ToolName, p.Params)
		if err != nil {
			t.table.Settle(id, nil, t.asSettleError(err))
			return
		}
		raw, jsonErr := json.Marshal(result)
		if jsonErr != nil {
			t.table.Settle(id, nil, mcpui.NewHostRejectionError("unencodable tool result", jsonErr))
			return
		}
		t.table.Settle(id, raw, nil)
	}()
}

// sendFollowUp runs the follow-up-message capability off the dispatch path.
func (t *Translator) sendFollowUp(messageID, prompt string) {
	id := t.table.Add(t.settleFor(messageID))
	ctx, cancel := context.WithTimeout(context.Background(), t.cfg.Timeout)
	go func() {
		defer cancel()
		if err := t.host.SendFollowUp(ctx, prompt); err != nil {
			t.table.Settle(id, nil, t.asSettleError(err))
			return
		}
		t.table.Settle(id, json.RawMessage(`{"success":true}`), nil)
	}()
}

// asSettleError maps a capability failure onto the error taxonomy. A call
// that died on the bounding context is a timeout, not a host rejection;
// which of the two timeout paths settles first is then irrelevant to the
// widget.
func (t *Translator) asSettleError(err error) error {
	if errors.Is(err, context.DeadlineExceeded) {
		return mcpui.NewTimeoutError(t.cfg.Timeout)
	}
	return mcpui.NewHostRejectionError(err.Error(), err)
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

// respond answers an action locally, without contacting the host.
func (t *Translator) respond(messageID string, response any) {
	if messageID == "" {
		return
	}
	t.dispatch(mcpui.NewResponse(messageID, response))
}

// Close unsubscribes from host change notifications and discards all
// session state. Capability calls still in flight may settle afterward and
// are silently dropped.
func (t *Translator) Close() {
	t.mu.Lock()
	if t.closed {
		t.mu.Unlock()
		return
	}
	t.closed = true
	unsub := t.unsubscribe
	t.unsubscribe = nil
	t.mu.Unlock()

	if unsub != nil {
		unsub()
	}
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

// validAction reports whether the action payload decodes into its expected
// shape.
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
