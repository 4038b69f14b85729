// Package registry holds the in-memory table of processes launched by this
// instance.
//
// The registry is a cache, not a ledger: a child may exit without the registry
// being told, and nothing is persisted. It is created empty at startup and
// abandoned at exit, so a restart forgets every previously launched process.
package registry

import (
	"sort"
	"sync"
	"time"
)

// Record describes one launched child process.
type Record struct {
	PID        int       `json:"pid"`
	ToolID     string    `json:"toolId"`
	ToolName   string    `json:"toolName"`
	Port       *int      `json:"port"`
	StartTime  time.Time `json:"startTime"`
	LaunchID   string    `json:"launchId,omitempty"`
	Command    string    `json:"command,omitempty"`
	WorkingDir string    `json:"workingDir,omitempty"`
}

// Registry maps process identifiers to records. A single mutex guards the
// map; read volume is a status poll every few seconds.
type Registry struct {
	mu      sync.Mutex
	records map[int]Record
	now     func() time.Time
}

// New returns an empty registry.
func New() *Registry {
	return &Registry{
		records: make(map[int]Record),
		now:     time.Now,
	}
}

// Put inserts rec, overwriting any record with the same PID. A zero StartTime
// is stamped with the current time. The stored record is returned.
func (r *Registry) Put(rec Record) Record {
	r.mu.Lock()
	defer r.mu.Unlock()

	if rec.StartTime.IsZero() {
		rec.StartTime = r.now().UTC()
	}
	rec = rec.clone()
	r.records[rec.PID] = rec
	return rec.clone()
}

// Remove deletes the record for pid. Removing an absent pid is a no-op; the
// return value reports whether a record was present.
func (r *Registry) Remove(pid int) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	_, ok := r.records[pid]
	delete(r.records, pid)
	return ok
}

// Get returns the record for pid.
func (r *Registry) Get(pid int) (Record, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	rec, ok := r.records[pid]
	return rec.clone(), ok
}

// Len returns the number of tracked processes.
func (r *Registry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.records)
}

// Snapshot returns a copy of every record, oldest first.
func (r *Registry) Snapshot() []Record {
	r.mu.Lock()
	out := make([]Record, 0, len(r.records))
	for _, rec := range r.records {
		out = append(out, rec.clone())
	}
	r.mu.Unlock()

	sortRecords(out)
	return out
}

// Drain atomically removes and returns every record, oldest first.
func (r *Registry) Drain() []Record {
	r.mu.Lock()
	out := make([]Record, 0, len(r.records))
	for _, rec := range r.records {
		out = append(out, rec)
	}
	r.records = make(map[int]Record)
	r.mu.Unlock()

	sortRecords(out)
	return out
}

func (rec Record) clone() Record {
	if rec.Port != nil {
		port := *rec.Port
		rec.Port = &port
	}
	return rec
}

func sortRecords(recs []Record) {
	sort.Slice(recs, func(i, j int) bool {
		if recs[i].StartTime.Equal(recs[j].StartTime) {
			return recs[i].PID < recs[j].PID
		}
		return recs[i].StartTime.Before(recs[j].StartTime)
	})
}
