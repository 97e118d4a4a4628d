package memosync_test

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aretw0/memosync"
	"github.com/aretw0/memosync/pkg/core"
)

func TestOpen(t *testing.T) {
	dir := t.TempDir()
	file := filepath.Join(dir, "memosync.yaml")
	vault := filepath.Join(dir, "vault")
	require.NoError(t, os.WriteFile(file, []byte(`
memos:
  url: https://memos.example.com/api/v1
  token: secret
sync:
  dir: `+vault+`
  limit: 50
`), 0644))

	app, err := memosync.Open(memosync.LoadOptions{File: file, EnvFile: filepath.Join(dir, "none.env")})
	require.NoError(t, err)
	assert.Equal(t, 50, app.Config.Sync.Limit)
	assert.Equal(t, vault, app.FS.Path)
}

func TestOpen_InvalidConfig(t *testing.T) {
	dir := t.TempDir()
	file := filepath.Join(dir, "memosync.yaml")
	require.NoError(t, os.WriteFile(file, []byte("memos:\n  url: https://memos.example.com\n"), 0644))

	_, err := memosync.Open(memosync.LoadOptions{File: file, EnvFile: filepath.Join(dir, "none.env")})
	assert.ErrorIs(t, err, core.ErrConfiguration)
}
