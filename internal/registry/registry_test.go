package registry

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func intPtr(v int) *int { return &v }

func TestPutAndGet(t *testing.T) {
	reg := New()

	stored := reg.Put(Record{PID: 100, ToolID: "jupyter", ToolName: "Jupyter", Port: intPtr(8888)})
	assert.False(t, stored.StartTime.IsZero(), "start time should be stamped")

	got, ok := reg.Get(100)
	require.True(t, ok)
	assert.Equal(t, "jupyter", got.ToolID)
	require.NotNil(t, got.Port)
	assert.Equal(t, 8888, *got.Port)
}

func TestPutOverwritesExistingPID(t *testing.T) {
	reg := New()
	reg.Put(Record{PID: 7, ToolID: "a"})
	reg.Put(Record{PID: 7, ToolID: "b"})

	assert.Equal(t, 1, reg.Len())
	got, _ := reg.Get(7)
	assert.Equal(t, "b", got.ToolID)
}

func TestPutKeepsExplicitStartTime(t *testing.T) {
	reg := New()
	at := time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)
	reg.Put(Record{PID: 1, StartTime: at})

	got, _ := reg.Get(1)
	assert.True(t, got.StartTime.Equal(at))
}

func TestRecordsDoNotAlias(t *testing.T) {
	reg := New()
	port := 3000
	reg.Put(Record{PID: 1, Port: &port})
	port = 9999

	got, _ := reg.Get(1)
	*got.Port = 1234

	again, _ := reg.Get(1)
	assert.Equal(t, 3000, *again.Port)
}

func TestRemoveIsIdempotent(t *testing.T) {
	reg := New()
	reg.Put(Record{PID: 55})

	assert.True(t, reg.Remove(55))
	assert.False(t, reg.Remove(55))
	assert.False(t, reg.Remove(999999))
	assert.Equal(t, 0, reg.Len())
}

func TestSnapshotOrderedByStartTime(t *testing.T) {
	reg := New()
	base := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	reg.Put(Record{PID: 3, StartTime: base.Add(2 * time.Second)})
	reg.Put(Record{PID: 1, StartTime: base})
	reg.Put(Record{PID: 2, StartTime: base.Add(time.Second)})

	snap := reg.Snapshot()
	require.Len(t, snap, 3)
	assert.Equal(t, []int{1, 2, 3}, []int{snap[0].PID, snap[1].PID, snap[2].PID})
	assert.Equal(t, 3, reg.Len(), "snapshot must not mutate the registry")
}

func TestSnapshotEmpty(t *testing.T) {
	snap := New().Snapshot()
	assert.NotNil(t, snap)
	assert.Empty(t, snap)
}

func TestDrainClearsRegistry(t *testing.T) {
	reg := New()
	reg.Put(Record{PID: 10})
	reg.Put(Record{PID: 11})
	reg.Put(Record{PID: 12})

	drained := reg.Drain()
	assert.Len(t, drained, 3)
	assert.Equal(t, 0, reg.Len())
	assert.Empty(t, reg.Drain())
}

func TestConcurrentAccess(t *testing.T) {
	reg := New()

	var wg sync.WaitGroup
	for i := 1; i <= 50; i++ {
		wg.Add(3)
		go func(pid int) {
			defer wg.Done()
			reg.Put(Record{PID: pid})
		}(i)
		go func(pid int) {
			defer wg.Done()
			_ = reg.Snapshot()
		}(i)
		go func(pid int) {
			defer wg.Done()
			reg.Remove(pid + 1000)
		}(i)
	}
	wg.Wait()

	assert.Equal(t, 50, reg.Len())
}
