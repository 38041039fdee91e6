// Package state persists the most recent execution request so the UI
// can pre-fill its form after a restart.
package state

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/RodrigoLima82/databricks-assessment-tool/internal/run"
)

type Store struct {
	path string
}

func NewStore(path string) (*Store, error) {
	if strings.TrimSpace(path) == "" {
		return nil, errors.New("state: empty path")
	}
	return &Store{path: path}, nil
}

// SaveLast writes the request atomically (temp file then rename).
func (s *Store) SaveLast(req run.Request) error {
	data, err := json.MarshalIndent(req, "", "  ")
	if err != nil {
		return fmt.Errorf("state: encode request: %w", err)
	}
	dir := filepath.Dir(s.path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("state: create dir: %w", err)
	}
	tmp, err := os.CreateTemp(dir, ".last-request-*")
	if err != nil {
		return err
	}
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmp.Name())
		return err
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmp.Name())
		return err
	}
	return os.Rename(tmp.Name(), s.path)
}

// LoadLast returns the persisted request, with ok=false when none has
// been saved yet.
func (s *Store) LoadLast() (run.Request, bool, error) {
	data, err := os.ReadFile(s.path)
	if errors.Is(err, fs.ErrNotExist) {
		return run.Request{}, false, nil
	}
	if err != nil {
		return run.Request{}, false, err
	}
	var req run.Request
	if err := json.Unmarshal(data, &req); err != nil {
		return run.Request{}, false, fmt.Errorf("state: decode request: %w", err)
	}
	return req, true, nil
}
