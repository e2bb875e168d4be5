package supervisor

import (
	"os"
	"path/filepath"
	"strconv"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPIDFileAcquireAndRead(t *testing.T) {
	path := filepath.Join(t.TempDir(), "test.pid")
	pf := NewPIDFile(path)

	require.NoError(t, pf.Acquire())

	pid, err := ReadPID(path)
	require.NoError(t, err)
	assert.Equal(t, os.Getpid(), pid)
	assert.True(t, pf.Alive())

	require.NoError(t, pf.Release())
}

func TestPIDFileRejectsLiveProcess(t *testing.T) {
	path := filepath.Join(t.TempDir(), "test.pid")
	pf := NewPIDFile(path)

	require.NoError(t, pf.Acquire())

	err := NewPIDFile(path).Acquire()
	assert.Error(t, err)

	require.NoError(t, pf.Release())
}

func TestPIDFileReplacesStale(t *testing.T) {
	path := filepath.Join(t.TempDir(), "test.pid")

	// A pid that cannot belong to a live process.
	require.NoError(t, os.WriteFile(path, []byte(strconv.Itoa(1<<30)), 0644))

	pf := NewPIDFile(path)
	require.NoError(t, pf.Acquire())

	pid, err := ReadPID(path)
	require.NoError(t, err)
	assert.Equal(t, os.Getpid(), pid)
}

func TestPIDFileReleaseNotExists(t *testing.T) {
	pf := NewPIDFile(filepath.Join(t.TempDir(), "missing.pid"))
	assert.NoError(t, pf.Release())
}

func TestReadPIDErrors(t *testing.T) {
	dir := t.TempDir()

	_, err := ReadPID(filepath.Join(dir, "missing.pid"))
	assert.True(t, os.IsNotExist(err))

	empty := filepath.Join(dir, "empty.pid")
	require.NoError(t, os.WriteFile(empty, []byte("  "), 0644))
	_, err = ReadPID(empty)
	assert.Error(t, err)

	garbage := filepath.Join(dir, "garbage.pid")
	require.NoError(t, os.WriteFile(garbage, []byte("not-a-pid"), 0644))
	_, err = ReadPID(garbage)
	assert.Error(t, err)
}

func TestIsProcessRunning(t *testing.T) {
	assert.True(t, IsProcessRunning(os.Getpid()))
	assert.False(t, IsProcessRunning(1<<30))
}

func TestAliveOnMissingFile(t *testing.T) {
	pf := NewPIDFile(filepath.Join(t.TempDir(), "missing.pid"))
	assert.False(t, pf.Alive())
}
