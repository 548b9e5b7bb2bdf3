package mcpui

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestNewConfigDefaults(t *testing.T) {
	cfg := NewConfig()
	assert.Equal(t, DefaultTimeout, cfg.Timeout)
	assert.Equal(t, IntentPrompt, cfg.IntentHandling)
	assert.Empty(t, cfg.HostOrigin)
}

func TestConfigOptions(t *testing.T) {
	cfg := NewConfig(
		WithTimeout(5*time.Second),
		WithIntentHandling(IntentIgnore),
		WithHostOrigin("https://chat.example.com"),
	)
	assert.Equal(t, 5*time.Second, cfg.Timeout)
	assert.Equal(t, IntentIgnore, cfg.IntentHandling)
	assert.Equal(t, "https://chat.example.com", cfg.HostOrigin)
}
