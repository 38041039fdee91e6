package state

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/RodrigoLima82/databricks-assessment-tool/internal/run"
)

func TestSaveAndLoadLast(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "last_request.json")
	s, err := NewStore(path)
	require.NoError(t, err)

	_, ok, err := s.LoadLast()
	require.NoError(t, err)
	require.False(t, ok)

	req := run.Request{
		Export:   true,
		Analysis: true,
		Phases:   []string{"inventory", "detailed"},
		Language: "pt-BR",
	}
	require.NoError(t, s.SaveLast(req))

	got, ok, err := s.LoadLast()
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, req, got)
}

func TestSaveOverwrites(t *testing.T) {
	path := filepath.Join(t.TempDir(), "last_request.json")
	s, err := NewStore(path)
	require.NoError(t, err)

	require.NoError(t, s.SaveLast(run.Request{Export: true}))
	require.NoError(t, s.SaveLast(run.Request{Analysis: true, Phases: []string{"ucx"}}))

	got, ok, err := s.LoadLast()
	require.NoError(t, err)
	require.True(t, ok)
	require.False(t, got.Export)
	require.Equal(t, []string{"ucx"}, got.Phases)
}

func TestLoadLastCorruptFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "last_request.json")
	require.NoError(t, os.WriteFile(path, []byte("{not json"), 0o644))

	s, err := NewStore(path)
	require.NoError(t, err)
	_, _, err = s.LoadLast()
	require.Error(t, err)
}
