package supervisor

import (
	"errors"
	"math"
	"testing"

	"github.com/golang/mock/gomock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mattjoyce/toolhub/internal/events"
	"github.com/mattjoyce/toolhub/internal/registry"
	"github.com/mattjoyce/toolhub/internal/supervisor/mocks"
)

func TestTerminateUnknownPIDSucceeds(t *testing.T) {
	ctrl := gomock.NewController(t)
	sig := mocks.NewMockSignaler(ctrl)
	sig.EXPECT().Kill(999999).Return(errors.New("no such process"))

	reg := registry.New()
	reg.Put(registry.Record{PID: 1000})
	term := NewTerminator(reg, sig, true, events.NewHub(8))

	res, err := term.Terminate(999999)
	require.NoError(t, err)
	assert.True(t, res.Success)
	assert.False(t, res.Tracked)
	assert.False(t, res.Delivered)
	assert.Equal(t, "Termination signal sent to PID: 999999", res.Message)
	assert.Equal(t, 1, reg.Len())
	_, ok := reg.Get(999999)
	assert.False(t, ok)
}

func TestTerminateKnownPIDRemovesEntry(t *testing.T) {
	for _, killErr := range []error{nil, errors.New("operation not permitted")} {
		ctrl := gomock.NewController(t)
		sig := mocks.NewMockSignaler(ctrl)
		sig.EXPECT().Kill(42).Return(killErr)

		reg := registry.New()
		reg.Put(registry.Record{PID: 42, ToolID: "x"})
		hub := events.NewHub(8)
		term := NewTerminator(reg, sig, true, hub)

		res, err := term.Terminate(42)
		require.NoError(t, err)
		assert.True(t, res.Tracked)
		assert.Equal(t, killErr == nil, res.Delivered)
		_, ok := reg.Get(42)
		assert.False(t, ok)

		evs := hub.Since(0)
		require.Len(t, evs, 1)
		assert.Equal(t, events.ProcessTerminated, evs[0].Type)
	}
}

func TestTerminateInvalidPID(t *testing.T) {
	ctrl := gomock.NewController(t)
	sig := mocks.NewMockSignaler(ctrl)
	term := NewTerminator(registry.New(), sig, true, nil)

	for _, pid := range []int{0, -1} {
		_, err := term.Terminate(pid)
		assert.ErrorIs(t, err, ErrInvalidProcessID)
	}
}

func TestTerminateUntrackedRefusedWhenDisallowed(t *testing.T) {
	ctrl := gomock.NewController(t)
	sig := mocks.NewMockSignaler(ctrl)
	term := NewTerminator(registry.New(), sig, false, nil)

	_, err := term.Terminate(31337)
	assert.ErrorIs(t, err, ErrUnknownProcess)
}

func TestTerminateTrackedAllowedWhenUntrackedDisallowed(t *testing.T) {
	ctrl := gomock.NewController(t)
	sig := mocks.NewMockSignaler(ctrl)
	sig.EXPECT().Kill(7).Return(nil)

	reg := registry.New()
	reg.Put(registry.Record{PID: 7})
	term := NewTerminator(reg, sig, false, nil)

	res, err := term.Terminate(7)
	require.NoError(t, err)
	assert.True(t, res.Delivered)
	assert.Equal(t, 0, reg.Len())
}

func TestTerminateRejectsPIDBeyondPIDT(t *testing.T) {
	ctrl := gomock.NewController(t)
	sig := mocks.NewMockSignaler(ctrl)
	term := NewTerminator(registry.New(), sig, true, nil)

	wide := int64(1)<<32 + 1
	for _, pid := range []int{int(wide), math.MaxInt32 + 1} {
		_, err := term.Terminate(pid)
		assert.ErrorIs(t, err, ErrInvalidProcessID, "pid %d", pid)
	}
}

func TestValidPID(t *testing.T) {
	assert.True(t, ValidPID(1))
	assert.True(t, ValidPID(math.MaxInt32))
	assert.False(t, ValidPID(0))
	assert.False(t, ValidPID(-1))
	assert.False(t, ValidPID(math.MaxInt32+1))
}
