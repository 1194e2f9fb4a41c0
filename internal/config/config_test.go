package config

import (
	"log/slog"
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadServer(t *testing.T) {
	t.Setenv("JWT_SECRET", "secret")
	t.Setenv("PORT", "9000")
	t.Setenv("JWT_TTL", "15m")

	cfg, err := LoadServer()
	require.NoError(t, err)

	assert.Equal(t, "9000", cfg.Port)
	assert.Equal(t, "secret", cfg.JWTSecret)
	assert.Equal(t, 15*time.Minute, cfg.JWTTTL)
	assert.Equal(t, 30, cfg.MessageRate)
}

func TestLoadServer_MissingSecret(t *testing.T) {
	t.Setenv("JWT_SECRET", "")
	require.NoError(t, os.Unsetenv("JWT_SECRET"))

	_, err := LoadServer()
	assert.Error(t, err)
}

func TestLoadClient_Defaults(t *testing.T) {
	t.Setenv("API_URL", "https://api.example.com/")
	t.Setenv("WS_URL", "")

	cfg, err := LoadClient()
	require.NoError(t, err)

	assert.Equal(t, "wss://api.example.com/ws", cfg.WSURL)
	assert.Equal(t, time.Second, cfg.TypingIdle)
	assert.Equal(t, 500*time.Millisecond, cfg.SearchDebounce)
	assert.Equal(t, "/login", cfg.LoginPath)
}

func TestWebsocketURL(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"http://localhost:8080", "ws://localhost:8080/ws"},
		{"https://example.com/", "wss://example.com/ws"},
		{"example.com", "example.com/ws"},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			assert.Equal(t, tt.want, WebsocketURL(tt.in))
		})
	}
}

func TestNewLogger(t *testing.T) {
	logger := NewLogger("debug", "json")
	assert.True(t, logger.Enabled(t.Context(), slog.LevelDebug))

	logger = NewLogger("nonsense", "text")
	assert.False(t, logger.Enabled(t.Context(), slog.LevelDebug))
	assert.True(t, logger.Enabled(t.Context(), slog.LevelInfo))
}
