package session

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/gochat-dev/chatclient/internal/types"
)

// State is the client-side persisted session: the current user snapshot and
// the token pair. Each field is independently optional.
type State struct {
	User         *types.UserDetail `json:"user,omitempty"`
	AccessToken  string            `json:"accessToken,omitempty"`
	RefreshToken string            `json:"refreshToken,omitempty"`
}

type StateStore interface {
	Load() (State, error)
	Save(State) error
	Clear() error
}

// FileStore persists session state as a JSON file under the state directory.
type FileStore struct {
	path string
}

func NewFileStore(dir string) *FileStore {
	return &FileStore{path: filepath.Join(dir, "session.json")}
}

func (f *FileStore) Load() (State, error) {
	data, err := os.ReadFile(f.path)
	if err != nil {
		if os.IsNotExist(err) {
			return State{}, nil
		}
		return State{}, fmt.Errorf("read session state: %w", err)
	}

	var s State
	if err := json.Unmarshal(data, &s); err != nil {
		return State{}, fmt.Errorf("parse session state: %w", err)
	}

	return s, nil
}

func (f *FileStore) Save(s State) error {
	if err := os.MkdirAll(filepath.Dir(f.path), 0700); err != nil {
		return fmt.Errorf("create state dir: %w", err)
	}

	data, err := json.Marshal(s)
	if err != nil {
		return fmt.Errorf("encode session state: %w", err)
	}

	// tokens live in this file, keep it owner-only
	if err := os.WriteFile(f.path, data, 0600); err != nil {
		return fmt.Errorf("write session state: %w", err)
	}

	return nil
}

func (f *FileStore) Clear() error {
	if err := os.Remove(f.path); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("remove session state: %w", err)
	}

	return nil
}
