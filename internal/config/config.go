package config

import (
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"time"
)

type Config struct {
	// APIBaseURL is the REST endpoint, e.g. http://localhost:8080/v1.
	APIBaseURL string
	// WSURL is the STOMP WebSocket endpoint, e.g. ws://localhost:8080/ws.
	WSURL string
	// StateDir holds the persisted session file.
	StateDir string
	// PageSize is the history page size requested from the server.
	PageSize int
	// Heartbeat is the STOMP heartbeat interval, both directions.
	Heartbeat time.Duration
}

const (
	defaultPageSize  = 50
	defaultHeartbeat = 10 * time.Second
)

func NewConfig(apiBaseURL, wsURL, stateDir string, pageSize int, heartbeat time.Duration) (*Config, error) {
	if apiBaseURL == "" {
		return nil, fmt.Errorf("API base URL cannot be empty")
	}
	if _, err := url.Parse(apiBaseURL); err != nil {
		return nil, fmt.Errorf("parse API base URL: %w", err)
	}

	if wsURL == "" {
		return nil, fmt.Errorf("WebSocket URL cannot be empty")
	}
	u, err := url.Parse(wsURL)
	if err != nil {
		return nil, fmt.Errorf("parse WebSocket URL: %w", err)
	}
	if u.Scheme != "ws" && u.Scheme != "wss" {
		return nil, fmt.Errorf("WebSocket URL must use ws or wss scheme, got %q", u.Scheme)
	}

	if stateDir == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return nil, fmt.Errorf("resolve home dir: %w", err)
		}
		stateDir = filepath.Join(home, ".config", "chatcli")
	}

	if pageSize <= 0 {
		pageSize = defaultPageSize
	}

	if heartbeat < 0 {
		return nil, fmt.Errorf("heartbeat cannot be negative")
	}
	if heartbeat == 0 {
		heartbeat = defaultHeartbeat
	}

	return &Config{
		APIBaseURL: apiBaseURL,
		WSURL:      wsURL,
		StateDir:   stateDir,
		PageSize:   pageSize,
		Heartbeat:  heartbeat,
	}, nil
}
