package report

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"
)

// Store persists report documents keyed by the pipeline unit that wrote
// them. Re-running a unit overwrites its document under the same name.
type Store interface {
	Put(ctx context.Context, name string, content []byte) error
	Get(ctx context.Context, name string) ([]byte, error)
	Stat(ctx context.Context, name string) (Info, error)
	List(ctx context.Context) ([]Info, error)
}

var ErrNotFound = errors.New("report not found")

// Info describes one stored report document.
type Info struct {
	Name       string    `json:"name"`
	Size       int64     `json:"size"`
	ModifiedAt time.Time `json:"modifiedAt"`
}

// Entry is one row of a listing query: a known unit name and whether its
// report currently exists in storage.
type Entry struct {
	Name       string    `json:"name"`
	Exists     bool      `json:"exists"`
	Size       int64     `json:"size,omitempty"`
	ModifiedAt time.Time `json:"modifiedAt,omitempty"`
}

// Listing resolves each known unit name against storage. It is derived
// purely from the store, never from in-memory session state, so it
// survives restarts and reflects partially completed runs.
func Listing(ctx context.Context, store Store, names []string) ([]Entry, error) {
	entries := make([]Entry, 0, len(names))
	for _, name := range names {
		info, err := store.Stat(ctx, name)
		if errors.Is(err, ErrNotFound) {
			entries = append(entries, Entry{Name: name})
			continue
		}
		if err != nil {
			return nil, fmt.Errorf("stat report %s: %w", name, err)
		}
		entries = append(entries, Entry{
			Name:       name,
			Exists:     true,
			Size:       info.Size,
			ModifiedAt: info.ModifiedAt,
		})
	}
	return entries, nil
}

func validateName(name string) (string, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return "", fmt.Errorf("report name is required")
	}
	if strings.ContainsAny(name, `/\`) || strings.Contains(name, "..") {
		return "", fmt.Errorf("invalid report name %q", name)
	}
	return name, nil
}
