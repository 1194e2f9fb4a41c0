// Package config loads process configuration from the environment.
package config

import (
	"fmt"
	"log"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
)

// Server holds the relay server settings.
type Server struct {
	Port        string        `envconfig:"PORT" default:"8080"`
	DBURL       string        `envconfig:"DB_URL"`
	JWTSecret   string        `envconfig:"JWT_SECRET" required:"true"`
	JWTIssuer   string        `envconfig:"JWT_ISS" default:"eventhub"`
	JWTTTL      time.Duration `envconfig:"JWT_TTL" default:"24h"`
	NATSURL     string        `envconfig:"NATS_URL"`
	NATSUser    string        `envconfig:"NATS_USER"`
	NATSPass    string        `envconfig:"NATS_PASSWORD"`
	NATSCred    string        `envconfig:"NATS_CRED"`
	LogLevel    string        `envconfig:"LOG_LEVEL" default:"info"`
	LogFormat   string        `envconfig:"LOG_FORMAT" default:"text"`
	MessageRate int           `envconfig:"MESSAGE_RATE" default:"30"` // messages per minute per connection
	TypingRate  int           `envconfig:"TYPING_RATE" default:"120"`
	IPRate      int           `envconfig:"IP_RATE" default:"300"` // requests per minute per IP

	// Bootstrap admin, created on startup when both are set.
	AdminEmail    string `envconfig:"ADMIN_EMAIL"`
	AdminPassword string `envconfig:"ADMIN_PASSWORD"`
}

// Client holds the client library and CLI settings.
type Client struct {
	APIURL         string        `envconfig:"API_URL" default:"http://localhost:8080"`
	WSURL          string        `envconfig:"WS_URL"`
	SessionDir     string        `envconfig:"SESSION_DIR"`
	LoginPath      string        `envconfig:"LOGIN_PATH" default:"/login"`
	TypingIdle     time.Duration `envconfig:"TYPING_IDLE" default:"1s"`
	SearchDebounce time.Duration `envconfig:"SEARCH_DEBOUNCE" default:"500ms"`
}

// loadDotenv loads .env when present. A missing file is not an error.
func loadDotenv() {
	if err := godotenv.Load(); err != nil && !os.IsNotExist(err) {
		log.Printf("failed to load .env file: %+v", err)
	}
}

// LoadServer reads the server configuration.
func LoadServer() (Server, error) {
	loadDotenv()

	var cfg Server
	if err := envconfig.Process("", &cfg); err != nil {
		return Server{}, fmt.Errorf("internal/config: %w", err)
	}
	return cfg, nil
}

// LoadClient reads the client configuration. WSURL defaults to APIURL with
// the scheme switched to ws/wss.
func LoadClient() (Client, error) {
	loadDotenv()

	var cfg Client
	if err := envconfig.Process("", &cfg); err != nil {
		return Client{}, fmt.Errorf("internal/config: %w", err)
	}
	if cfg.WSURL == "" {
		cfg.WSURL = WebsocketURL(cfg.APIURL)
	}
	return cfg, nil
}

// WebsocketURL derives the /ws endpoint from an HTTP base URL.
func WebsocketURL(apiURL string) string {
	u := strings.TrimRight(apiURL, "/")
	switch {
	case strings.HasPrefix(u, "https://"):
		u = "wss://" + strings.TrimPrefix(u, "https://")
	case strings.HasPrefix(u, "http://"):
		u = "ws://" + strings.TrimPrefix(u, "http://")
	}
	return u + "/ws"
}

// NewLogger builds the process logger from LOG_LEVEL and LOG_FORMAT.
func NewLogger(level, format string) *slog.Logger {
	var lvl slog.Level
	if err := lvl.UnmarshalText([]byte(level)); err != nil {
		lvl = slog.LevelInfo
	}

	opts := &slog.HandlerOptions{Level: lvl}
	if strings.EqualFold(format, "json") {
		return slog.New(slog.NewJSONHandler(os.Stdout, opts))
	}
	return slog.New(slog.NewTextHandler(os.Stdout, opts))
}
