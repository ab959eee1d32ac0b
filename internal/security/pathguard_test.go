package security

import (
	"fmt"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/quiverlab/toolgate/internal/fault"
)

func guardFor(t *testing.T, dirs ...string) *PathGuard {
	t.Helper()
	return &PathGuard{allowedDirs: dirs}
}

func tempGuard(t *testing.T) (*PathGuard, string) {
	t.Helper()
	dir := t.TempDir()
	resolved, err := filepath.EvalSymlinks(dir)
	require.NoError(t, err)
	return guardFor(t, resolved), resolved
}

func TestAssertAllowedRejectsTraversal(t *testing.T) {
	g := NewPathGuard()

	_, err := g.AssertAllowed("../../../../../../etc/passwd")
	require.Error(t, err)

	var serr *fault.SecurityError
	assert.ErrorAs(t, err, &serr)
}

func TestAssertAllowedRejectsDeniedExtensions(t *testing.T) {
	g, dir := tempGuard(t)
	for _, name := range []string{"notes.exe", "run.sh", "lib.so", "setup.MSI", "tool.Jar"} {
		_, err := g.AssertAllowed(filepath.Join(dir, name))
		require.Error(t, err, "file %s", name)
		assert.Contains(t, err.Error(), "extension")
	}
}

func TestAssertAllowedAcceptsInsideAllowList(t *testing.T) {
	g, dir := tempGuard(t)

	got, err := g.AssertAllowed(filepath.Join(dir, "notes.txt"))
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(dir, "notes.txt"), got)

	got, err = g.AssertAllowed(filepath.Join(dir, "sub", "deep", "file.md"))
	require.NoError(t, err)
	assert.True(t, filepath.IsAbs(got))
}

func TestAssertAllowedPrefixBoundary(t *testing.T) {
	g := guardFor(t, "/home/user")

	_, err := g.AssertAllowed("/home/userevil/file.txt")
	require.Error(t, err)

	// the allowed dir itself passes
	got, err := g.AssertAllowed("/home/user")
	if err == nil {
		assert.Equal(t, "/home/user", got)
	}
}

func TestAssertAllowedExtraDirs(t *testing.T) {
	g, _ := tempGuard(t)
	other := t.TempDir()
	resolved, err := filepath.EvalSymlinks(other)
	require.NoError(t, err)

	_, err = g.AssertAllowed(filepath.Join(resolved, "f.txt"))
	require.Error(t, err)

	got, err := g.AssertAllowed(filepath.Join(resolved, "f.txt"), resolved)
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(resolved, "f.txt"), got)
}

func TestAssertAllowedExtraDirsConcurrent(t *testing.T) {
	base := make([]string, 1, 8) // spare capacity that extras must not share
	resolved, err := filepath.EvalSymlinks(t.TempDir())
	require.NoError(t, err)
	base[0] = resolved
	g := guardFor(t, base...)

	dirA, err := filepath.EvalSymlinks(t.TempDir())
	require.NoError(t, err)
	dirB, err := filepath.EvalSymlinks(t.TempDir())
	require.NoError(t, err)

	done := make(chan error, 2)
	check := func(own, other string) {
		for i := 0; i < 200; i++ {
			if _, err := g.AssertAllowed(filepath.Join(own, "f.txt"), own); err != nil {
				done <- err
				return
			}
			if _, err := g.AssertAllowed(filepath.Join(other, "f.txt")); err == nil {
				done <- fmt.Errorf("extra dir %s leaked into the shared allow-list", other)
				return
			}
		}
		done <- nil
	}
	go check(dirA, dirB)
	go check(dirB, dirA)

	require.NoError(t, <-done)
	require.NoError(t, <-done)
}

func TestCheckReadable(t *testing.T) {
	g, dir := tempGuard(t)

	path := filepath.Join(dir, "present.txt")
	require.NoError(t, os.WriteFile(path, []byte("hi"), 0o644))

	assert.NoError(t, g.CheckReadable(path))
	assert.Error(t, g.CheckReadable(filepath.Join(dir, "missing.txt")))
	assert.Error(t, g.CheckReadable(dir))
}

func TestCheckWritable(t *testing.T) {
	g, dir := tempGuard(t)

	assert.NoError(t, g.CheckWritable(filepath.Join(dir, "new.txt")))
	assert.Error(t, g.CheckWritable(filepath.Join(dir, "no", "such", "parent.txt")))
	assert.Error(t, g.CheckWritable(dir))
}
