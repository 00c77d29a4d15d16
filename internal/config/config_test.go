package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestNewConfig(t *testing.T) {
	var (
		apiURL   = "http://localhost:8080/v1"
		wsURL    = "ws://localhost:8080/ws"
		stateDir = "/tmp/chatcli-test"
	)

	tcases := []struct {
		name     string
		apiURL   string
		wsURL    string
		stateDir string
		pageSize int
		err      bool
	}{
		{
			name:     "valid config",
			apiURL:   apiURL,
			wsURL:    wsURL,
			stateDir: stateDir,
			pageSize: 25,
			err:      false,
		},
		{
			name:     "empty API base URL",
			apiURL:   "",
			wsURL:    wsURL,
			stateDir: stateDir,
			err:      true,
		},
		{
			name:     "empty WebSocket URL",
			apiURL:   apiURL,
			wsURL:    "",
			stateDir: stateDir,
			err:      true,
		},
		{
			name:     "http scheme on the WebSocket URL",
			apiURL:   apiURL,
			wsURL:    "http://localhost:8080/ws",
			stateDir: stateDir,
			err:      true,
		},
		{
			name:     "wss scheme is accepted",
			apiURL:   apiURL,
			wsURL:    "wss://chat.example.com/ws",
			stateDir: stateDir,
			err:      false,
		},
	}

	for _, tc := range tcases {
		t.Run(tc.name, func(t *testing.T) {
			cfg, err := NewConfig(tc.apiURL, tc.wsURL, tc.stateDir, tc.pageSize, 0)
			if tc.err {
				assert.Error(t, err)
				assert.Nil(t, cfg)
				return
			}

			assert.NoError(t, err)
			assert.Equal(t, tc.apiURL, cfg.APIBaseURL)
			assert.Equal(t, tc.wsURL, cfg.WSURL)
			assert.Equal(t, tc.stateDir, cfg.StateDir)
		})
	}
}

func TestNewConfig_defaults(t *testing.T) {
	cfg, err := NewConfig("http://localhost:8080/v1", "ws://localhost:8080/ws", "/tmp/state", 0, 0)
	assert.NoError(t, err)
	assert.Equal(t, defaultPageSize, cfg.PageSize)
	assert.Equal(t, defaultHeartbeat, cfg.Heartbeat)

	cfg, err = NewConfig("http://localhost:8080/v1", "ws://localhost:8080/ws", "", 10, 0)
	assert.NoError(t, err)
	assert.NotEmpty(t, cfg.StateDir)

	_, err = NewConfig("http://localhost:8080/v1", "ws://localhost:8080/ws", "/tmp/state", 0, -time.Second)
	assert.Error(t, err)
}
