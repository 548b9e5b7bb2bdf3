// Command demo runs the adapter against an in-process JSON-RPC host with a
// canned weather tool, printing every frame crossing each boundary. It
// exercises the full loop: install, initialize handshake, widget tool call,
// host notifications, render-data, uninstall.
package main

import (
	"encoding/json"
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"

	mcpui "github.com/katherinek727/mcp-ui"
	"github.com/katherinek727/mcp-ui/bridge"
	"github.com/katherinek727/mcp-ui/mcphost"
)

// demoHost is a minimal JSON-RPC host: it answers initialize and tools/call
// and swallows notifications.
type demoHost struct {
	translator *mcphost.Translator
}

func (h *demoHost) Send(data []byte) error {
	fmt.Printf("  -> host    %s\n", data)

	var frame struct {
		ID     *int64 `json:"id"`
		Method string `json:"method"`
		Params struct {
			Name      string         `json:"name"`
			Arguments map[string]any `json:"arguments"`
		} `json:"params"`
	}
	if err := json.Unmarshal(data, &frame); err != nil || frame.ID == nil {
		return nil
	}

	var result any
	switch frame.Method {
	case "initialize":
		result = map[string]any{
			"protocolVersion": "1.0",
			"serverInfo":      map[string]any{"name": "demo-host", "version": "1.0.0"},
			"hostContext":     map[string]any{"theme": "dark", "locale": "en-US"},
		}
	case "tools/call":
		result = map[string]any{
			"city": frame.Params.Arguments["city"],
			"temp": 70,
		}
	default:
		return nil
	}

	reply, _ := json.Marshal(map[string]any{
		"jsonrpc": "2.0",
		"id":      *frame.ID,
		"result":  result,
	})
	// The goroutine keeps the demo honest about re-entrancy; real hosts
	// answer asynchronously.
	go h.translator.HandleHostMessage(reply)
	return nil
}

func main() {
	godotenv.Load()

	timeout := 5 * time.Second
	if ms := os.Getenv("MCPUI_TIMEOUT_MS"); ms != "" {
		if v, err := strconv.Atoi(ms); err == nil {
			timeout = time.Duration(v) * time.Millisecond
		}
	}

	fmt.Println("mcp-ui adapter demo")
	fmt.Println()

	host := &demoHost{}
	widget := func(m mcpui.Message) {
		fmt.Printf("  <- widget  type=%s messageId=%s payload=%s\n", m.Type, m.MessageID, m.Payload)
	}

	cfg := mcpui.NewConfig(mcpui.WithTimeout(timeout))
	translator := mcphost.New(host, widget, cfg)
	host.translator = translator

	adapter, err := bridge.Install(func(data []byte) {
		fmt.Printf("  !! passthrough %s\n", data)
	}, translator, cfg)
	if err != nil {
		fmt.Fprintf(os.Stderr, "install: %v\n", err)
		os.Exit(1)
	}
	defer adapter.Uninstall()

	time.Sleep(100 * time.Millisecond) // let the handshake settle

	fmt.Println("\nwidget asks for the weather:")
	adapter.Post([]byte(`{"type":"tool","messageId":"t1","payload":{"toolName":"get_weather","params":{"city":"SF"}}}`))
	time.Sleep(100 * time.Millisecond)

	fmt.Println("\nhost pushes a context change:")
	translator.HandleHostMessage([]byte(`{"jsonrpc":"2.0","method":"ui/notifications/host-context-changed","params":{"theme":"light"}}`))

	fmt.Println("\nwidget queries render data:")
	adapter.Post([]byte(`{"type":"request-render-data","messageId":"q1"}`))

	fmt.Println("\nnon-uniform traffic passes through untouched:")
	adapter.Post([]byte(`{"event":"analytics"}`))
}
