// Package credentials supplies the username/password pair injected into test
// scripts. Credentials are side-loaded into a JSON file by an operator (see
// Setup) and only ever read by the runner.
package credentials

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/qa-agent/qa-acceptor/types"
)

// DefaultFile is where credentials are stored when no path is configured
const DefaultFile = "qa_agent_user_creds.json"

// ErrNotFound is returned when the store holds no credentials
var ErrNotFound = errors.New("credential file not found, run the credentials setup")

// Provider supplies credentials for a run
type Provider interface {
	Credentials(ctx context.Context) (types.Credentials, error)
}

// ProviderFunc adapts a function to the Provider interface
type ProviderFunc func(ctx context.Context) (types.Credentials, error)

func (f ProviderFunc) Credentials(ctx context.Context) (types.Credentials, error) {
	return f(ctx)
}

// Static returns a provider that always yields creds
func Static(creds types.Credentials) Provider {
	return ProviderFunc(func(context.Context) (types.Credentials, error) {
		return creds, nil
	})
}

var _ Provider = (*FileStore)(nil)

// FileStore reads and writes credentials as a JSON document on disk
type FileStore struct {
	path string
}

// NewFileStore creates a store backed by path, DefaultFile when empty
func NewFileStore(path string) *FileStore {
	if path == "" {
		path = DefaultFile
	}
	return &FileStore{path: path}
}

// Path returns the backing file path
func (s *FileStore) Path() string {
	return s.path
}

// Credentials loads the stored pair. A missing file yields ErrNotFound.
func (s *FileStore) Credentials(ctx context.Context) (types.Credentials, error) {
	if err := ctx.Err(); err != nil {
		return types.Credentials{}, err
	}

	data, err := os.ReadFile(s.path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return types.Credentials{}, fmt.Errorf("%w: %s", ErrNotFound, s.path)
		}
		return types.Credentials{}, fmt.Errorf("failed to read credential file %s: %w", s.path, err)
	}

	var creds types.Credentials
	if err := json.Unmarshal(data, &creds); err != nil {
		return types.Credentials{}, fmt.Errorf("failed to parse credential file %s: %w", s.path, err)
	}
	if creds.IsZero() {
		return types.Credentials{}, fmt.Errorf("%w: %s is empty", ErrNotFound, s.path)
	}
	return creds, nil
}

// Save writes the pair, readable by the owner only
func (s *FileStore) Save(creds types.Credentials) error {
	if dir := filepath.Dir(s.path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("failed to create credential directory %s: %w", dir, err)
		}
	}

	data, err := json.MarshalIndent(creds, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to encode credentials: %w", err)
	}
	if err := os.WriteFile(s.path, data, 0o600); err != nil {
		return fmt.Errorf("failed to write credential file %s: %w", s.path, err)
	}
	// WriteFile keeps the mode of an existing file
	if err := os.Chmod(s.path, 0o600); err != nil {
		return fmt.Errorf("failed to restrict credential file %s: %w", s.path, err)
	}
	return nil
}
