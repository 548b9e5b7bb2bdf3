// Package render caches the adapter's view of tool input/output, widget
// state, and host context. The cache answers render-data queries without a
// host round trip and is rebroadcast to the widget whenever new host data
// arrives.
package render

import "sync"

// Field defaults applied until the host reports a value.
const (
	DefaultTheme       = "light"
	DefaultLocale      = "en-US"
	DefaultDisplayMode = "inline"
)

// Data is the snapshot delivered to the widget in render-data messages.
type Data struct {
	ToolInput   any    `json:"toolInput,omitempty"`
	ToolOutput  any    `json:"toolOutput,omitempty"`
	WidgetState any    `json:"widgetState,omitempty"`
	Theme       string `json:"theme"`
	Locale      string `json:"locale"`
	DisplayMode string `json:"displayMode"`
	MaxHeight   int    `json:"maxHeight,omitempty"`
}

// State holds the latest known render data for one adapter session. Each
// field is last-write-wins independently of the others; new host data never
// blanket-overwrites fields it does not mention. State is safe for
// concurrent use.
type State struct {
	mu   sync.RWMutex
	data Data
}

// NewState creates a State with field defaults in place.
func NewState() *State {
	return &State{data: defaults()}
}

func defaults() Data {
	return Data{
		Theme:       DefaultTheme,
		Locale:      DefaultLocale,
		DisplayMode: DefaultDisplayMode,
	}
}

// Snapshot returns a copy of the current render data.
func (s *State) Snapshot() Data {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.data
}

// SetToolInput records the latest tool input.
func (s *State) SetToolInput(v any) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.data.ToolInput = v
}

// SetToolOutput records the latest tool output.
func (s *State) SetToolOutput(v any) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.data.ToolOutput = v
}

// SetWidgetState records the latest widget state.
func (s *State) SetWidgetState(v any) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.data.WidgetState = v
}

// SetTheme records the host theme. Empty values are ignored so the default
// survives hosts that never report one.
func (s *State) SetTheme(theme string) {
	if theme == "" {
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.data.Theme = theme
}

// SetLocale records the host locale. Empty values are ignored.
func (s *State) SetLocale(locale string) {
	if locale == "" {
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.data.Locale = locale
}

// SetDisplayMode records the host display mode. Empty values are ignored.
func (s *State) SetDisplayMode(mode string) {
	if mode == "" {
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.data.DisplayMode = mode
}

// SetMaxHeight records the maximum height granted by the host.
func (s *State) SetMaxHeight(h int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.data.MaxHeight = h
}

// ApplyHostContext merges a host context object field-by-field. Fields the
// context does not mention keep their current values.
func (s *State) ApplyHostContext(ctx map[string]any) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if v, ok := ctx["theme"].(string); ok && v != "" {
		s.data.Theme = v
	}
	if v, ok := ctx["locale"].(string); ok && v != "" {
		s.data.Locale = v
	}
	if v, ok := ctx["displayMode"].(string); ok && v != "" {
		s.data.DisplayMode = v
	}
	if v, ok := ctx["maxHeight"].(float64); ok {
		s.data.MaxHeight = int(v)
	}
	if v, ok := ctx["toolInput"]; ok {
		s.data.ToolInput = v
	}
	if v, ok := ctx["toolOutput"]; ok {
		s.data.ToolOutput = v
	}
	if v, ok := ctx["widgetState"]; ok {
		s.data.WidgetState = v
	}
}

// Reset clears the cache back to defaults. Called only on uninstall; the
// cache lives for the whole adapter session otherwise.
func (s *State) Reset() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.data = defaults()
}
