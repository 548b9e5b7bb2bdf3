// Package pending correlates outbound host-bound calls with their eventual
// settlement: a matching host reply or a timeout, whichever fires first.
// The loser of that race is a guaranteed no-op.
package pending

import (
	"encoding/json"
	"sync"
	"time"

	mcpui "github.com/katherinek727/mcp-ui"
)

// Settle receives the terminal outcome of a host-bound call: a raw result on
// success or a non-nil error on timeout or host rejection. It is invoked
// exactly once per entry, outside the table lock.
type Settle func(result json.RawMessage, err error)

// Table tracks in-flight host-bound calls keyed by a monotonically
// increasing id unique within the session. Table is safe for concurrent use;
// multiple calls may be in flight at once and settle out of send order.
type Table struct {
	mu      sync.Mutex
	timeout time.Duration
	next    int64
	entries map[int64]*entry
}

type entry struct {
	settle Settle
	timer  *time.Timer
}

// NewTable creates a Table whose entries time out after timeout.
func NewTable(timeout time.Duration) *Table {
	return &Table{
		timeout: timeout,
		entries: make(map[int64]*entry),
	}
}

// Add registers a new pending call and arms its timeout timer. It returns
// the id to correlate the host's reply with.
func (t *Table) Add(settle Settle) int64 {
	return t.AddWithTimeout(settle, t.timeout)
}

// AddWithTimeout registers a pending call with a per-call timeout.
func (t *Table) AddWithTimeout(settle Settle, d time.Duration) int64 {
	t.mu.Lock()
	t.next++
	id := t.next
	e := &entry{settle: settle}
	t.entries[id] = e
	e.timer = time.AfterFunc(d, func() {
		t.Settle(id, nil, mcpui.NewTimeoutError(d))
	})
	t.mu.Unlock()
	return id
}

// Settle resolves the entry with the given id and removes it. Exactly one of
// {host reply, timeout} wins; a second Settle for the same id returns false
// and does nothing, as does a Settle for an unknown id.
func (t *Table) Settle(id int64, result json.RawMessage, err error) bool {
	t.mu.Lock()
	e, ok := t.entries[id]
	if !ok {
		t.mu.Unlock()
		return false
	}
	delete(t.entries, id)
	e.timer.Stop()
	t.mu.Unlock()

	e.settle(result, err)
	return true
}

// Len returns the number of calls currently in flight.
func (t *Table) Len() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return len(t.entries)
}

// Clear discards every in-flight entry without settling it and stops all
// timers. Calls still in flight at uninstall are dropped silently, by
// contract; their late replies become no-ops.
func (t *Table) Clear() {
	t.mu.Lock()
	defer t.mu.Unlock()
	for id, e := range t.entries {
		e.timer.Stop()
		delete(t.entries, id)
	}
}
