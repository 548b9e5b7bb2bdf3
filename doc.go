// Package mcpui provides the in-iframe adapter runtime that connects embedded
// HTML widgets to the chat host they run inside.
//
// Widgets speak a single uniform message vocabulary regardless of which host
// embeds them. The adapter intercepts the widget's outbound messages and
// translates them onto the host's native protocol, then translates host
// traffic back into uniform messages for the widget. Two host families are
// supported:
//
//   - [github.com/katherinek727/mcp-ui/mcphost]: hosts speaking JSON-RPC 2.0
//     (MCP), with an initialize handshake before steady-state traffic.
//   - [github.com/katherinek727/mcp-ui/caphost]: hosts exposing an imperative
//     capability surface with readable state fields and a change event.
//
// Use the [github.com/katherinek727/mcp-ui/bridge] package as the entry point:
// it owns the session, wraps the widget's outbound send primitive, and routes
// recognized uniform messages into the active translator while passing
// everything else through untouched.
//
// # Basic Usage
//
// Install an adapter over a JSON-RPC host:
//
//	cfg := mcpui.NewConfig(mcpui.WithTimeout(10 * time.Second))
//	t := mcphost.New(host, deliverToWidget, cfg)
//	adapter, err := bridge.Install(origPost, t, cfg)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer adapter.Uninstall()
//
//	// Hand adapter.Post to the widget as its outbound send primitive.
//
// # Message Flow
//
// Every outbound action message carrying a messageId produces exactly one
// "message-received" ack and exactly one terminal "message-response", whether
// the host replies, rejects, or never answers (timeout). Responses reach the
// widget in settlement order, which may differ from send order.
//
// Render state (tool input/output, widget state, host context) is cached by
// the adapter and redelivered on demand or whenever new host data arrives.
package mcpui
