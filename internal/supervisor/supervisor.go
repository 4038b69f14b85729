// Package supervisor launches tools as detached children, terminates them on
// request, and reaps everything still tracked when the service shuts down.
// All three share one *registry.Registry.
package supervisor

import (
	"context"
	"math"

	"github.com/mattjoyce/toolhub/internal/probe"
)

//go:generate mockgen -destination=mocks/mock_supervisor.go -package=mocks github.com/mattjoyce/toolhub/internal/supervisor Spawner,Signaler,ProbeStarter

// Spawner starts a shell command detached from the caller.
type Spawner interface {
	SpawnDetached(command, dir string) (int, error)
}

// Signaler force-terminates a process (and its group where supported).
type Signaler interface {
	Kill(pid int) error
}

// ProbeStarter begins a background readiness probe. It must not block.
type ProbeStarter interface {
	Start(t probe.Target)
}

// Opener opens a URL for the user.
type Opener interface {
	Open(ctx context.Context, rawURL string) error
}

// ValidPID reports whether pid fits the OS pid_t. kill(2) truncates wider
// values, so 1<<32+1 would signal pid 1's group.
func ValidPID(pid int) bool {
	return pid > 0 && pid <= math.MaxInt32
}

func validPort(p *int) bool {
	return p != nil && *p >= 1 && *p <= 65535
}
