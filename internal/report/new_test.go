package report

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestNewDefaultsToFileStore(t *testing.T) {
	store, err := New(Config{Dir: t.TempDir()})
	require.NoError(t, err)
	require.IsType(t, &FileStore{}, store)
}

func TestNewIgnoresEnvironment(t *testing.T) {
	// backend selection is driven by the Config struct alone; stray env
	// vars from another deployment must not flip the backend
	t.Setenv("REPORT_PG_DSN", "postgres://example.invalid/reports")
	t.Setenv("REPORT_S3_ENDPOINT", "minio.example.invalid:9000")
	t.Setenv("REPORT_S3_USE_SSL", "false")

	store, err := New(Config{Dir: t.TempDir()})
	require.NoError(t, err)
	require.IsType(t, &FileStore{}, store)

	require.NoError(t, store.Put(context.Background(), "report", []byte("# r")))
	data, err := store.Get(context.Background(), "report")
	require.NoError(t, err)
	require.Equal(t, "# r", string(data))
}

func TestNewSelectsS3WhenConfigured(t *testing.T) {
	store, err := New(Config{
		Dir: t.TempDir(),
		S3: S3Config{
			Endpoint:  "minio.example.invalid:9000",
			AccessKey: "access",
			SecretKey: "secret",
			Bucket:    "assessment-reports",
			UseSSL:    true,
		},
	})
	require.NoError(t, err)
	require.IsType(t, &CachedStore{}, store)
}

func TestNewFallsBackOnBadPostgresDSN(t *testing.T) {
	store, err := New(Config{Dir: t.TempDir(), PostgresDSN: "not-a-dsn"})
	require.NoError(t, err)
	require.IsType(t, &FileStore{}, store)
}
