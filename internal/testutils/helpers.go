package testutils

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/aretw0/loam"
	weaveloam "github.com/aretw0/weave/pkg/adapters/loam"
	"github.com/stretchr/testify/require"
)

// SetupSource creates a temporary directory and opens a loam graph source in it.
// It returns the absolute path to the directory and the source.
func SetupSource(t *testing.T, opts ...loam.Option) (string, *weaveloam.Source) {
	t.Helper()

	dir, err := filepath.Abs(t.TempDir())
	require.NoError(t, err, "Failed to get absolute path for temp dir")

	src, err := weaveloam.Open(dir, opts...)
	require.NoError(t, err, "Failed to open loam source")

	return dir, src
}

// WriteFile writes content under a fresh temp dir and returns its path.
func WriteFile(t *testing.T, name, content string) string {
	t.Helper()

	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}
