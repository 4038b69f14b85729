package procstat

import (
	"context"
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestInspectSelf(t *testing.T) {
	st, err := Inspect(context.Background(), os.Getpid())
	require.NoError(t, err)

	assert.Equal(t, os.Getpid(), st.PID)
	assert.True(t, st.Running)
	assert.NotEmpty(t, st.Name)
	assert.Greater(t, st.RSSBytes, uint64(0))
	assert.False(t, st.CreateTime.IsZero())
}

func TestInspectInvalidPID(t *testing.T) {
	_, err := Inspect(context.Background(), 0)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestInspectMissingPID(t *testing.T) {
	// Above the default Linux pid_max.
	_, err := Inspect(context.Background(), 1<<22+1)
	assert.ErrorIs(t, err, ErrNotFound)
}
