// Package procstat reads live OS statistics for a tracked pid.
package procstat

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/shirou/gopsutil/v3/process"
)

// ErrNotFound means the pid no longer exists.
var ErrNotFound = errors.New("process not found")

type Stats struct {
	PID        int       `json:"pid"`
	Running    bool      `json:"running"`
	Status     []string  `json:"status,omitempty"`
	Name       string    `json:"name,omitempty"`
	Cmdline    string    `json:"cmdline,omitempty"`
	CPUPercent float64   `json:"cpu_percent"`
	RSSBytes   uint64    `json:"rss_bytes"`
	NumThreads int32     `json:"num_threads"`
	CreateTime time.Time `json:"create_time,omitempty"`
}

// Inspect collects what gopsutil can read for pid. Individual field errors
// are ignored; only a missing process is an error.
func Inspect(ctx context.Context, pid int) (Stats, error) {
	if pid <= 0 {
		return Stats{}, fmt.Errorf("%w: pid %d", ErrNotFound, pid)
	}
	exists, err := process.PidExistsWithContext(ctx, int32(pid))
	if err != nil {
		return Stats{}, fmt.Errorf("check pid %d: %w", pid, err)
	}
	if !exists {
		return Stats{}, fmt.Errorf("%w: pid %d", ErrNotFound, pid)
	}

	p, err := process.NewProcessWithContext(ctx, int32(pid))
	if err != nil {
		if errors.Is(err, process.ErrorProcessNotRunning) {
			return Stats{}, fmt.Errorf("%w: pid %d", ErrNotFound, pid)
		}
		return Stats{}, fmt.Errorf("open pid %d: %w", pid, err)
	}

	st := Stats{PID: pid}
	if running, err := p.IsRunningWithContext(ctx); err == nil {
		st.Running = running
	}
	if status, err := p.StatusWithContext(ctx); err == nil {
		st.Status = status
	}
	if name, err := p.NameWithContext(ctx); err == nil {
		st.Name = name
	}
	if cmdline, err := p.CmdlineWithContext(ctx); err == nil {
		st.Cmdline = cmdline
	}
	if pct, err := p.CPUPercentWithContext(ctx); err == nil {
		st.CPUPercent = pct
	}
	if mem, err := p.MemoryInfoWithContext(ctx); err == nil && mem != nil {
		st.RSSBytes = mem.RSS
	}
	if n, err := p.NumThreadsWithContext(ctx); err == nil {
		st.NumThreads = n
	}
	if ms, err := p.CreateTimeWithContext(ctx); err == nil && ms > 0 {
		st.CreateTime = time.UnixMilli(ms).UTC()
	}
	return st, nil
}
