//go:build !windows

package procexec

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/sys/unix"
)

func TestSpawnDetachedStartsNewSession(t *testing.T) {
	exited := make(chan int, 1)
	e := New("", func(pid int, _ error, _ time.Duration) { exited <- pid })

	pid, err := e.SpawnDetached("sleep 30", t.TempDir())
	require.NoError(t, err)
	require.Greater(t, pid, 0)
	t.Cleanup(func() { _ = e.Kill(pid) })

	sid, err := unix.Getsid(pid)
	require.NoError(t, err)
	assert.Equal(t, pid, sid, "child should lead its own session")

	require.NoError(t, e.Kill(pid))

	select {
	case got := <-exited:
		assert.Equal(t, pid, got)
	case <-time.After(5 * time.Second):
		t.Fatal("child was not reaped after kill")
	}
	assert.False(t, Alive(pid))
}

func TestKillSignalsWholeGroup(t *testing.T) {
	exited := make(chan struct{})
	e := New("", func(int, error, time.Duration) { close(exited) })

	// The shell forks sleep into the same group and waits on it.
	pid, err := e.SpawnDetached("sleep 30 & wait", "")
	require.NoError(t, err)

	pgid, err := unix.Getpgid(pid)
	require.NoError(t, err)
	assert.Equal(t, pid, pgid)

	require.NoError(t, e.Kill(pid))
	select {
	case <-exited:
	case <-time.After(5 * time.Second):
		t.Fatal("group leader survived kill")
	}
}

func TestSpawnDetachedRejectsMissingDir(t *testing.T) {
	e := New("", nil)
	_, err := e.SpawnDetached("true", "/definitely/not/a/dir")
	assert.Error(t, err)
}

func TestSpawnDetachedReportsMissingShell(t *testing.T) {
	e := New("/no/such/shell", nil)
	_, err := e.SpawnDetached("true", "")
	assert.Error(t, err)
}

func TestChildExitIsObserved(t *testing.T) {
	var mu sync.Mutex
	var gotErr error
	done := make(chan struct{})
	e := New("", func(_ int, err error, _ time.Duration) {
		mu.Lock()
		gotErr = err
		mu.Unlock()
		close(done)
	})

	_, err := e.SpawnDetached("exit 3", "")
	require.NoError(t, err)

	select {
	case <-done:
	case <-time.After(5 * time.Second):
		t.Fatal("exit not observed")
	}
	mu.Lock()
	defer mu.Unlock()
	assert.Error(t, gotErr)
}

func TestKillInvalidPID(t *testing.T) {
	e := New("", nil)
	assert.Error(t, e.Kill(0))
	assert.Error(t, e.Kill(-5))
}

func TestKillMissingProcess(t *testing.T) {
	e := New("", nil)
	pid, err := e.SpawnDetached("exit 0", "")
	require.NoError(t, err)

	require.Eventually(t, func() bool { return !Alive(pid) }, 5*time.Second, 20*time.Millisecond)
	assert.ErrorIs(t, e.Kill(pid), ErrNotRunning)
}

func TestKillRejectsPIDBeyondPIDT(t *testing.T) {
	e := New("", nil)
	pid, err := e.SpawnDetached("sleep 30", "")
	require.NoError(t, err)
	t.Cleanup(func() { _ = e.Kill(pid) })

	// kill(2) would see only the low 32 bits, i.e. the real child.
	aliased := int(int64(pid) + 1<<32)
	assert.ErrorIs(t, e.Kill(aliased), ErrInvalidPID)
	assert.False(t, Alive(aliased))
	assert.True(t, Alive(pid), "child must survive a kill aimed at an aliased pid")
}
