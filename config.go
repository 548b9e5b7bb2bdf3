package mcpui

import "time"

// IntentHandling selects how the capability family maps intent actions,
// which have no native capability of their own.
type IntentHandling string

const (
	// IntentPrompt synthesizes a follow-up message embedding the intent name
	// and parameters. This is the default.
	IntentPrompt IntentHandling = "prompt"

	// IntentIgnore answers the widget locally without contacting the host.
	IntentIgnore IntentHandling = "ignore"
)

// DefaultTimeout bounds every outbound host-bound call unless overridden.
const DefaultTimeout = 30 * time.Second

// Config holds adapter session configuration. It is immutable once the
// adapter is installed; changing it requires a fresh install.
type Config struct {
	// Timeout bounds every pending host-bound call, including the initialize
	// handshake.
	Timeout time.Duration

	// IntentHandling governs intent actions under the capability family.
	IntentHandling IntentHandling

	// HostOrigin restricts which origin the adapter treats as the host.
	// Empty means any origin; enforcement is the embedder's transport's job.
	HostOrigin string
}

// Option configures a Config.
type Option func(*Config)

// WithTimeout sets the pending-call timeout.
func WithTimeout(d time.Duration) Option {
	return func(c *Config) {
		c.Timeout = d
	}
}

// WithIntentHandling sets how intent actions are mapped.
func WithIntentHandling(h IntentHandling) Option {
	return func(c *Config) {
		c.IntentHandling = h
	}
}

// WithHostOrigin sets the expected host origin.
func WithHostOrigin(origin string) Option {
	return func(c *Config) {
		c.HostOrigin = origin
	}
}

// NewConfig builds a Config from defaults plus the given options.
func NewConfig(opts ...Option) Config {
	cfg := Config{
		Timeout:        DefaultTimeout,
		IntentHandling: IntentPrompt,
	}
	for _, opt := range opts {
		opt(&cfg)
	}
	return cfg
}
