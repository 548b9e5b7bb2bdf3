package mcphost

import (
	"encoding/json"
	"fmt"
	"sync"
	"testing"
	"time"

	mcpui "github.com/katherinek727/mcp-ui"
)

// fakeHost captures frames sent to the host.
type fakeHost struct {
	mu     sync.Mutex
	frames [][]byte
	err    error
}

func (h *fakeHost) Send(data []byte) error {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.err != nil {
		return h.err
	}
	cp := make([]byte, len(data))
	copy(cp, data)
	h.frames = append(h.frames, cp)
	return nil
}

func (h *fakeHost) count() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.frames)
}

func (h *fakeHost) frame(t *testing.T, i int) map[string]any {
	t.Helper()
	h.mu.Lock()
	defer h.mu.Unlock()
	if i >= len(h.frames) {
		t.Fatalf("frame %d not sent, have %d", i, len(h.frames))
	}
	var m map[string]any
	if err := json.Unmarshal(h.frames[i], &m); err != nil {
		t.Fatalf("frame %d not JSON: %v", i, err)
	}
	return m
}

func (h *fakeHost) reset() {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.frames = nil
}

// widgetLog captures messages dispatched to the widget.
type widgetLog struct {
	mu   sync.Mutex
	msgs []mcpui.Message
}

func (w *widgetLog) dispatch(m mcpui.Message) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.msgs = append(w.msgs, m)
}

func (w *widgetLog) byType(t mcpui.MessageType) []mcpui.Message {
	w.mu.Lock()
	defer w.mu.Unlock()
	var out []mcpui.Message
	for _, m := range w.msgs {
		if m.Type == t {
			out = append(out, m)
		}
	}
	return out
}

func (w *widgetLog) reset() {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.msgs = nil
}

func frameID(t *testing.T, frame map[string]any) int64 {
	t.Helper()
	id, ok := frame["id"].(float64)
	if !ok {
		t.Fatalf("frame has no numeric id: %v", frame)
	}
	return int64(id)
}

func responsePayload(t *testing.T, m mcpui.Message) mcpui.ResponsePayload {
	t.Helper()
	var p mcpui.ResponsePayload
	if err := json.Unmarshal(m.Payload, &p); err != nil {
		t.Fatalf("bad response payload: %v", err)
	}
	return p
}

// newReady builds a translator and completes the handshake, clearing the
// captured handshake traffic so tests assert on steady-state frames only.
func newReady(t *testing.T) (*Translator, *fakeHost, *widgetLog) {
	t.Helper()
	host := &fakeHost{}
	w := &widgetLog{}
	tr := New(host, w.dispatch, mcpui.NewConfig(mcpui.WithTimeout(time.Second)))
	if err := tr.Start(); err != nil {
		t.Fatalf("Start: %v", err)
	}
	id := frameID(t, host.frame(t, 0))
	tr.HandleHostMessage([]byte(fmt.Sprintf(
		`{"jsonrpc":"2.0","id":%d,"result":{"protocolVersion":"1.0","serverInfo":{"name":"host","version":"1"}}}`, id)))
	host.reset()
	w.reset()
	return tr, host, w
}

func TestStartSendsInitialize(t *testing.T) {
	host := &fakeHost{}
	w := &widgetLog{}
	tr := New(host, w.dispatch, mcpui.NewConfig())
	defer tr.Close()

	if err := tr.Start(); err != nil {
		t.Fatalf("Start: %v", err)
	}

	frame := host.frame(t, 0)
	if frame["jsonrpc"] != "2.0" {
		t.Errorf("jsonrpc = %v, want 2.0", frame["jsonrpc"])
	}
	if frame["method"] != "initialize" {
		t.Errorf("method = %v, want initialize", frame["method"])
	}
	params := frame["params"].(map[string]any)
	if params["protocolVersion"] == "" {
		t.Error("initialize params missing protocolVersion")
	}
	info := params["clientInfo"].(map[string]any)
	if info["name"] != "mcp-ui-adapter" {
		t.Errorf("clientInfo.name = %v, want mcp-ui-adapter", info["name"])
	}
}

func TestHandshakeSuccessCapturesContextAndNotifies(t *testing.T) {
	host := &fakeHost{}
	w := &widgetLog{}
	tr := New(host, w.dispatch, mcpui.NewConfig())
	defer tr.Close()

	tr.Start()
	id := frameID(t, host.frame(t, 0))
	tr.HandleHostMessage([]byte(fmt.Sprintf(
		`{"jsonrpc":"2.0","id":%d,"result":{"protocolVersion":"1.0","serverInfo":{"name":"h","version":"1"},"hostContext":{"theme":"dark","locale":"en-GB"}}}`, id)))

	// The initialized notification follows the successful response.
	frame := host.frame(t, 1)
	if frame["method"] != "notifications/initialized" {
		t.Errorf("method = %v, want notifications/initialized", frame["method"])
	}
	if _, hasID := frame["id"]; hasID {
		t.Error("initialized must be a notification, not a request")
	}

	// Host context landed in the render state.
	tr.HandleWidgetMessage(mcpui.Message{Type: mcpui.TypeRequestRenderData, MessageID: "q1"})
	rd := w.byType(mcpui.TypeRenderData)
	if len(rd) != 1 {
		t.Fatalf("render-data messages = %d, want 1", len(rd))
	}
	var data map[string]any
	json.Unmarshal(rd[0].Payload, &data)
	if data["theme"] != "dark" {
		t.Errorf("theme = %v, want dark", data["theme"])
	}
	if data["locale"] != "en-GB" {
		t.Errorf("locale = %v, want en-GB", data["locale"])
	}
}

func TestHandshakeTimeoutUnblocksTraffic(t *testing.T) {
	host := &fakeHost{}
	w := &widgetLog{}
	tr := New(host, w.dispatch, mcpui.NewConfig(mcpui.WithTimeout(50*time.Millisecond)))
	defer tr.Close()

	tr.Start()
	tr.HandleWidgetMessage(mcpui.Message{
		Type:      mcpui.TypeTool,
		MessageID: "t1",
		Payload:   json.RawMessage(`{"toolName":"ping"}`),
	})

	// Ack is immediate even while the handshake is pending; the translated
	// call is held until the link unblocks.
	if got := len(w.byType(mcpui.TypeMessageReceived)); got != 1 {
		t.Fatalf("acks = %d, want 1", got)
	}
	if host.count() != 1 {
		t.Fatalf("frames before ready = %d, want 1 (initialize only)", host.count())
	}

	deadline := time.Now().Add(2 * time.Second)
	for host.count() < 2 && time.Now().Before(deadline) {
		time.Sleep(10 * time.Millisecond)
	}
	frame := host.frame(t, 1)
	if frame["method"] != "tools/call" {
		t.Errorf("flushed method = %v, want tools/call", frame["method"])
	}
}

func TestToolCallWireShape(t *testing.T) {
	tr, host, w := newReady(t)
	defer tr.Close()

	tr.HandleWidgetMessage(mcpui.Message{
		Type:      mcpui.TypeTool,
		MessageID: "t1",
		Payload:   json.RawMessage(`{"toolName":"get_weather","params":{"city":"SF"}}`),
	})

	frame := host.frame(t, 0)
	if frame["jsonrpc"] != "2.0" {
		t.Errorf("jsonrpc = %v, want 2.0", frame["jsonrpc"])
	}
	if frame["method"] != "tools/call" {
		t.Errorf("method = %v, want tools/call", frame["method"])
	}
	params := frame["params"].(map[string]any)
	if params["name"] != "get_weather" {
		t.Errorf("params.name = %v, want get_weather", params["name"])
	}
	args := params["arguments"].(map[string]any)
	if args["city"] != "SF" {
		t.Errorf("arguments.city = %v, want SF", args["city"])
	}

	// Settle with a result and verify the terminal response.
	tr.HandleHostMessage([]byte(fmt.Sprintf(
		`{"jsonrpc":"2.0","id":%d,"result":{"temp":70}}`, frameID(t, frame))))

	responses := w.byType(mcpui.TypeMessageResponse)
	if len(responses) != 1 {
		t.Fatalf("responses = %d, want 1", len(responses))
	}
	p := responsePayload(t, responses[0])
	if p.MessageID != "t1" {
		t.Errorf("messageId = %q, want t1", p.MessageID)
	}
	res := p.Response.(map[string]any)
	if res["temp"] != float64(70) {
		t.Errorf("response.temp = %v, want 70", res["temp"])
	}
}

func TestPromptMapping(t *testing.T) {
	tr, host, _ := newReady(t)
	defer tr.Close()

	tr.HandleWidgetMessage(mcpui.Message{
		Type:      mcpui.TypePrompt,
		MessageID: "p1",
		Payload:   json.RawMessage(`{"prompt":"what next?"}`),
	})

	frame := host.frame(t, 0)
	if frame["method"] != "ui/message" {
		t.Errorf("method = %v, want ui/message", frame["method"])
	}
	params := frame["params"].(map[string]any)
	if params["role"] != "user" {
		t.Errorf("role = %v, want user", params["role"])
	}
	content := params["content"].([]any)
	part := content[0].(map[string]any)
	if part["type"] != "text" || part["text"] != "what next?" {
		t.Errorf("content[0] = %v, want text part", part)
	}
}

func TestIntentMapping(t *testing.T) {
	tr, host, _ := newReady(t)
	defer tr.Close()

	tr.HandleWidgetMessage(mcpui.Message{
		Type:      mcpui.TypeIntent,
		MessageID: "i1",
		Payload:   json.RawMessage(`{"intent":"book_table","params":{"seats":2}}`),
	})

	frame := host.frame(t, 0)
	if frame["method"] != "ui/message" {
		t.Errorf("method = %v, want ui/message", frame["method"])
	}
	params := frame["params"].(map[string]any)
	text := params["content"].([]any)[0].(map[string]any)["text"].(string)
	if want := "Intent: book_table"; len(text) < len(want) || text[:len(want)] != want {
		t.Errorf("intent text = %q, want prefix %q", text, want)
	}
	if !jsonContains(text, `"seats":2`) {
		t.Errorf("intent text %q missing parameters", text)
	}
}

func jsonContains(s, sub string) bool {
	for i := 0; i+len(sub) <= len(s); i++ {
		if s[i:i+len(sub)] == sub {
			return true
		}
	}
	return false
}

func TestLinkMapping(t *testing.T) {
	tr, host, _ := newReady(t)
	defer tr.Close()

	tr.HandleWidgetMessage(mcpui.Message{
		Type:      mcpui.TypeLink,
		MessageID: "l1",
		Payload:   json.RawMessage(`{"url":"https://example.com"}`),
	})

	frame := host.frame(t, 0)
	if frame["method"] != "ui/open-link" {
		t.Errorf("method = %v, want ui/open-link", frame["method"])
	}
	params := frame["params"].(map[string]any)
	if params["url"] != "https://example.com" {
		t.Errorf("url = %v, want https://example.com", params["url"])
	}
}

func TestNotifyIsNotificationWithLocalResponse(t *testing.T) {
	tr, host, w := newReady(t)
	defer tr.Close()

	tr.HandleWidgetMessage(mcpui.Message{
		Type:      mcpui.TypeNotify,
		MessageID: "n1",
		Payload:   json.RawMessage(`{"message":"saved"}`),
	})

	frame := host.frame(t, 0)
	if frame["method"] != "notifications/message" {
		t.Errorf("method = %v, want notifications/message", frame["method"])
	}
	if _, hasID := frame["id"]; hasID {
		t.Error("notify must map to a notification, not a request")
	}
	params := frame["params"].(map[string]any)
	if params["level"] != "info" {
		t.Errorf("level = %v, want info", params["level"])
	}
	if params["data"] != "saved" {
		t.Errorf("data = %v, want saved", params["data"])
	}

	// No host reply is possible, so the terminal response is local.
	responses := w.byType(mcpui.TypeMessageResponse)
	if len(responses) != 1 {
		t.Fatalf("responses = %d, want 1", len(responses))
	}
	p := responsePayload(t, responses[0])
	if p.MessageID != "n1" || p.Error != nil {
		t.Errorf("unexpected response %+v", p)
	}
}

func TestSizeChangeMapping(t *testing.T) {
	tr, host, _ := newReady(t)
	defer tr.Close()

	tr.HandleWidgetMessage(mcpui.Message{
		Type:    mcpui.TypeSizeChange,
		Payload: json.RawMessage(`{"width":320,"height":480}`),
	})

	frame := host.frame(t, 0)
	if frame["method"] != "ui/notifications/size-changed" {
		t.Errorf("method = %v, want ui/notifications/size-changed", frame["method"])
	}
	params := frame["params"].(map[string]any)
	if params["width"] != float64(320) || params["height"] != float64(480) {
		t.Errorf("params = %v, want width 320 height 480", params)
	}
}

func TestExactlyOneAckOneResponse(t *testing.T) {
	tr, host, w := newReady(t)
	defer tr.Close()

	tr.HandleWidgetMessage(mcpui.Message{
		Type:      mcpui.TypeTool,
		MessageID: "t1",
		Payload:   json.RawMessage(`{"toolName":"x"}`),
	})

	id := frameID(t, host.frame(t, 0))
	reply := []byte(fmt.Sprintf(`{"jsonrpc":"2.0","id":%d,"result":{}}`, id))
	tr.HandleHostMessage(reply)
	tr.HandleHostMessage(reply) // duplicate reply must be a no-op

	if got := len(w.byType(mcpui.TypeMessageReceived)); got != 1 {
		t.Errorf("acks = %d, want exactly 1", got)
	}
	if got := len(w.byType(mcpui.TypeMessageResponse)); got != 1 {
		t.Errorf("responses = %d, want exactly 1", got)
	}
}

func TestHostErrorForwarded(t *testing.T) {
	tr, host, w := newReady(t)
	defer tr.Close()

	tr.HandleWidgetMessage(mcpui.Message{
		Type:      mcpui.TypeTool,
		MessageID: "t1",
		Payload:   json.RawMessage(`{"toolName":"x"}`),
	})
	id := frameID(t, host.frame(t, 0))
	tr.HandleHostMessage([]byte(fmt.Sprintf(
		`{"jsonrpc":"2.0","id":%d,"error":{"code":-32000,"message":"tool exploded"}}`, id)))

	responses := w.byType(mcpui.TypeMessageResponse)
	if len(responses) != 1 {
		t.Fatalf("responses = %d, want 1", len(responses))
	}
	p := responsePayload(t, responses[0])
	if p.Error == nil {
		t.Fatal("expected error response")
	}
	if p.Error.Message != "tool exploded" {
		t.Errorf("error.message = %q, want host message forwarded verbatim", p.Error.Message)
	}
	if p.Error.Name != "HostError" {
		t.Errorf("error.name = %q, want HostError", p.Error.Name)
	}
}

func TestTimeoutError(t *testing.T) {
	host := &fakeHost{}
	w := &widgetLog{}
	tr := New(host, w.dispatch, mcpui.NewConfig(mcpui.WithTimeout(50*time.Millisecond)))
	defer tr.Close()
	tr.Start()
	id := frameID(t, host.frame(t, 0))
	tr.HandleHostMessage([]byte(fmt.Sprintf(`{"jsonrpc":"2.0","id":%d,"result":{}}`, id)))

	start := time.Now()
	tr.HandleWidgetMessage(mcpui.Message{
		Type:      mcpui.TypeTool,
		MessageID: "t1",
		Payload:   json.RawMessage(`{"toolName":"slow"}`),
	})

	deadline := time.Now().Add(2 * time.Second)
	for len(w.byType(mcpui.TypeMessageResponse)) == 0 && time.Now().Before(deadline) {
		time.Sleep(10 * time.Millisecond)
	}
	responses := w.byType(mcpui.TypeMessageResponse)
	if len(responses) != 1 {
		t.Fatalf("responses = %d, want 1", len(responses))
	}
	if elapsed := time.Since(start); elapsed < 50*time.Millisecond {
		t.Errorf("timeout fired after %s, must never fire before 50ms", elapsed)
	}
	p := responsePayload(t, responses[0])
	if p.Error == nil || p.Error.Name != "TimeoutError" {
		t.Errorf("expected TimeoutError, got %+v", p.Error)
	}
}

func TestRenderDataQueryIsLocalAndIdempotent(t *testing.T) {
	tr, host, w := newReady(t)
	defer tr.Close()

	tr.HandleWidgetMessage(mcpui.Message{Type: mcpui.TypeRequestRenderData, MessageID: "q1"})
	tr.HandleWidgetMessage(mcpui.Message{Type: mcpui.TypeRequestRenderData, MessageID: "q2"})

	if host.count() != 0 {
		t.Errorf("render-data queries must not reach the host, sent %d frames", host.count())
	}
	rd := w.byType(mcpui.TypeRenderData)
	if len(rd) != 2 {
		t.Fatalf("render-data messages = %d, want 2", len(rd))
	}
	if rd[0].MessageID != "q1" || rd[1].MessageID != "q2" {
		t.Errorf("messageIds = %q, %q, want q1, q2", rd[0].MessageID, rd[1].MessageID)
	}
	if string(rd[0].Payload) != string(rd[1].Payload) {
		t.Errorf("repeated queries differ: %s vs %s", rd[0].Payload, rd[1].Payload)
	}
}

func TestHostNotificationsMergePerField(t *testing.T) {
	tr, _, w := newReady(t)
	defer tr.Close()

	tr.HandleHostMessage([]byte(`{"jsonrpc":"2.0","method":"ui/notifications/tool-input","params":{"query":"a"}}`))
	tr.HandleHostMessage([]byte(`{"jsonrpc":"2.0","method":"ui/notifications/host-context-changed","params":{"theme":"dark"}}`))

	rd := w.byType(mcpui.TypeRenderData)
	if len(rd) != 2 {
		t.Fatalf("render-data broadcasts = %d, want 2", len(rd))
	}
	var data map[string]any
	json.Unmarshal(rd[1].Payload, &data)
	input := data["toolInput"].(map[string]any)
	if input["query"] != "a" {
		t.Errorf("toolInput.query = %v, want a", input["query"])
	}
	if data["theme"] != "dark" {
		t.Errorf("theme = %v, want dark", data["theme"])
	}
}

func TestToolResultUpdatesOutput(t *testing.T) {
	tr, _, w := newReady(t)
	defer tr.Close()

	tr.HandleHostMessage([]byte(`{"jsonrpc":"2.0","method":"ui/notifications/tool-result","params":{"temp":70}}`))

	rd := w.byType(mcpui.TypeRenderData)
	if len(rd) != 1 {
		t.Fatalf("render-data broadcasts = %d, want 1", len(rd))
	}
	var data map[string]any
	json.Unmarshal(rd[0].Payload, &data)
	output := data["toolOutput"].(map[string]any)
	if output["temp"] != float64(70) {
		t.Errorf("toolOutput.temp = %v, want 70", output["temp"])
	}
}

func TestTeardownForwardedAndAcked(t *testing.T) {
	tr, host, w := newReady(t)
	defer tr.Close()

	tr.HandleHostMessage([]byte(`{"jsonrpc":"2.0","id":9,"method":"ui/teardown"}`))

	if got := len(w.byType(mcpui.TypeTeardown)); got != 1 {
		t.Fatalf("teardown messages = %d, want 1", got)
	}
	frame := host.frame(t, 0)
	if frameID(t, frame) != 9 {
		t.Errorf("reply id = %v, want 9", frame["id"])
	}
	if _, ok := frame["result"]; !ok {
		t.Error("teardown must be acknowledged with an empty success result")
	}
	if _, ok := frame["error"]; ok {
		t.Error("teardown ack must not carry an error")
	}
}

func TestToolCancelledForwarded(t *testing.T) {
	tr, _, w := newReady(t)
	defer tr.Close()

	tr.HandleHostMessage([]byte(`{"jsonrpc":"2.0","method":"ui/notifications/tool-cancelled","params":{"reason":"user aborted"}}`))

	cancelled := w.byType(mcpui.TypeToolCancelled)
	if len(cancelled) != 1 {
		t.Fatalf("tool-cancelled messages = %d, want 1", len(cancelled))
	}
	var p mcpui.CancelledPayload
	json.Unmarshal(cancelled[0].Payload, &p)
	if p.Reason != "user aborted" {
		t.Errorf("reason = %q, want user aborted", p.Reason)
	}
}

func TestMalformedHostTrafficIgnored(t *testing.T) {
	tr, host, w := newReady(t)
	defer tr.Close()

	tr.HandleHostMessage([]byte(`not json at all`))
	tr.HandleHostMessage([]byte(`{"jsonrpc":"1.0","id":1,"result":{}}`))
	tr.HandleHostMessage([]byte(`{"jsonrpc":"2.0"}`))

	if host.count() != 0 || len(w.byType(mcpui.TypeMessageResponse)) != 0 {
		t.Error("malformed host traffic must be silently ignored")
	}
}

func TestUnknownHostRequestRejected(t *testing.T) {
	tr, host, _ := newReady(t)
	defer tr.Close()

	tr.HandleHostMessage([]byte(`{"jsonrpc":"2.0","id":4,"method":"ui/unknown"}`))

	frame := host.frame(t, 0)
	errObj, ok := frame["error"].(map[string]any)
	if !ok {
		t.Fatal("expected error reply for unknown method")
	}
	if errObj["code"] != float64(-32601) {
		t.Errorf("code = %v, want -32601", errObj["code"])
	}
}

func TestCloseDiscardsInFlight(t *testing.T) {
	tr, host, w := newReady(t)

	tr.HandleWidgetMessage(mcpui.Message{
		Type:      mcpui.TypeTool,
		MessageID: "t1",
		Payload:   json.RawMessage(`{"toolName":"x"}`),
	})
	id := frameID(t, host.frame(t, 0))
	w.reset()

	tr.Close()
	tr.HandleHostMessage([]byte(fmt.Sprintf(`{"jsonrpc":"2.0","id":%d,"result":{}}`, id)))

	if got := len(w.byType(mcpui.TypeMessageResponse)); got != 0 {
		t.Errorf("responses after close = %d, want 0 (late settlement is discarded)", got)
	}
}
