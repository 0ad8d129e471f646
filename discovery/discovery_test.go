package discovery

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeFiles(t *testing.T, dir string, names ...string) {
	t.Helper()
	for _, name := range names {
		require.NoError(t, os.WriteFile(filepath.Join(dir, name), []byte("print('ok')\n"), 0o644))
	}
}

func TestDiscoverSortsAndFilters(t *testing.T) {
	dir := t.TempDir()
	writeFiles(t, dir, "test_cart.py", "test_about.py", "README.md", "test_report.html", "test_login.py")
	require.NoError(t, os.Mkdir(filepath.Join(dir, "nested.py"), 0o755))
	require.NoError(t, os.Mkdir(filepath.Join(dir, "sub"), 0o755))
	writeFiles(t, filepath.Join(dir, "sub"), "test_deep.py")

	scripts, err := Discover(dir, ".py")
	require.NoError(t, err)

	var ids []string
	for _, s := range scripts {
		ids = append(ids, s.TestID)
		assert.True(t, filepath.IsAbs(s.Path), "path %q should be absolute", s.Path)
	}
	assert.Equal(t, []string{"test_about", "test_cart", "test_login"}, ids)
}

func TestDiscoverDefaultExtension(t *testing.T) {
	dir := t.TempDir()
	writeFiles(t, dir, "b.py", "a.py", "c.sh")

	scripts, err := Discover(dir, "")
	require.NoError(t, err)
	require.Len(t, scripts, 2)
	assert.Equal(t, "a", scripts[0].TestID)
	assert.Equal(t, "b", scripts[1].TestID)

	scripts, err = Discover(dir, "sh")
	require.NoError(t, err)
	require.Len(t, scripts, 1)
	assert.Equal(t, "c", scripts[0].TestID)
}

func TestDiscoverEmptyDirectory(t *testing.T) {
	scripts, err := Discover(t.TempDir(), ".py")
	require.NoError(t, err)
	assert.Empty(t, scripts)
}

func TestDiscoverMissingDirectory(t *testing.T) {
	_, err := Discover(filepath.Join(t.TempDir(), "does-not-exist"), ".py")
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrNotFound))

	var nf *NotFoundError
	require.True(t, errors.As(err, &nf))
	assert.Equal(t, "does not exist", nf.Reason)
}

func TestDiscoverFileInsteadOfDirectory(t *testing.T) {
	dir := t.TempDir()
	writeFiles(t, dir, "test_login.py")

	_, err := Discover(filepath.Join(dir, "test_login.py"), ".py")
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestDiscoverFollowsSymlinks(t *testing.T) {
	dir := t.TempDir()
	target := t.TempDir()
	writeFiles(t, target, "shared.py")
	if err := os.Symlink(filepath.Join(target, "shared.py"), filepath.Join(dir, "test_shared.py")); err != nil {
		t.Skipf("symlinks not supported: %v", err)
	}

	scripts, err := Discover(dir, ".py")
	require.NoError(t, err)
	require.Len(t, scripts, 1)
	assert.Equal(t, "test_shared", scripts[0].TestID)
}
