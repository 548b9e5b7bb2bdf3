// Package bridge owns the adapter session: it wraps the widget's outbound
// send primitive, diverts recognized uniform messages into the active
// translator, and passes everything else through untouched. Install is
// reversible; Uninstall restores the original call path and discards all
// session state.
package bridge

import (
	"sync"

	mcpui "github.com/katherinek727/mcp-ui"
)

// PostFunc is the widget's outbound cross-document send primitive. The
// adapter never changes the widget's calling convention; it only wraps this
// function at the transport boundary.
type PostFunc func(data []byte)

// Adapter is one installed widget-to-host session. All session state
// (pending calls, render cache, handshake phase) belongs to the translator
// it wraps, so concurrent adapters never cross-contaminate.
type Adapter struct {
	cfg        mcpui.Config
	orig       PostFunc
	translator mcpui.Translator

	mu        sync.Mutex
	installed bool
}

// Install wraps orig with the interception layer and starts the translator.
// On a Start failure nothing stays installed and the original call path is
// untouched.
func Install(orig PostFunc, t mcpui.Translator, cfg mcpui.Config) (*Adapter, error) {
	a := &Adapter{
		cfg:        cfg,
		orig:       orig,
		translator: t,
	}
	if err := t.Start(); err != nil {
		return nil, err
	}
	a.mu.Lock()
	a.installed = true
	a.mu.Unlock()
	return a, nil
}

// Post is the wrapped outbound call handed to the widget in place of its
// original send primitive. Recognized uniform messages are diverted into
// the translator; anything else, and all traffic after uninstall, goes to
// the original path unchanged.
func (a *Adapter) Post(data []byte) {
	a.mu.Lock()
	installed := a.installed
	a.mu.Unlock()

	if installed {
		if msg, ok := mcpui.Decode(data); ok {
			a.translator.HandleWidgetMessage(msg)
			return
		}
	}
	if a.orig != nil {
		a.orig(data)
	}
}

// Installed reports whether interception is active.
func (a *Adapter) Installed() bool {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.installed
}

// Config returns the session configuration. It is immutable for the life of
// the adapter.
func (a *Adapter) Config() mcpui.Config {
	return a.cfg
}

// Uninstall synchronously stops interception, restores the original call
// path, and discards all session state. Calls already in flight may settle
// afterward; they are silently dropped. Uninstall is idempotent.
func (a *Adapter) Uninstall() {
	a.mu.Lock()
	if !a.installed {
		a.mu.Unlock()
		return
	}
	a.installed = false
	a.mu.Unlock()

	a.translator.Close()
}

// Installer binds a Config and a translator factory so a session can be
// re-created after uninstall with identical configuration.
type Installer struct {
	cfg     mcpui.Config
	orig    PostFunc
	factory func(cfg mcpui.Config) (mcpui.Translator, bool)
}

// NewInstaller creates a config-bound installer. The factory builds a fresh
// translator per session and reports false when the host family is
// unavailable (e.g. an absent capability surface), in which case Install
// does nothing.
func NewInstaller(orig PostFunc, factory func(cfg mcpui.Config) (mcpui.Translator, bool), opts ...mcpui.Option) *Installer {
	return &Installer{
		cfg:     mcpui.NewConfig(opts...),
		orig:    orig,
		factory: factory,
	}
}

// Install mints a new adapter session. The second return value is false
// when the host family is unavailable; that is not an error, the adapter
// simply does not activate.
func (in *Installer) Install() (*Adapter, bool, error) {
	t, ok := in.factory(in.cfg)
	if !ok {
		return nil, false, nil
	}
	a, err := Install(in.orig, t, in.cfg)
	if err != nil {
		return nil, true, err
	}
	return a, true, nil
}
