package destroyer

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestArmedDisarmed(t *testing.T) {
	var d D
	require.False(t, d.Armed())

	d = New(func() {})
	require.True(t, d.Armed())
}

func TestNewNilPanics(t *testing.T) {
	require.Panics(t, func() {
		New(nil)
	})
}

func TestDestroyRunsOnce(t *testing.T) {
	calls := 0
	d := New(func() { calls++ })
	d.Destroy()
	d.Destroy()
	require.Equal(t, 1, calls)
	require.False(t, d.Armed())
}

func TestTakeTransfersAndDisarmsSource(t *testing.T) {
	calls := 0
	d := New(func() { calls++ })
	moved := d.Take()

	require.False(t, d.Armed())
	require.True(t, moved.Armed())

	d.Destroy() // no-op, already disarmed
	require.Equal(t, 0, calls)

	moved.Destroy()
	require.Equal(t, 1, calls)
}

func TestDestroySwallowsPanic(t *testing.T) {
	d := New(func() { panic("boom") })
	require.NotPanics(t, func() {
		d.Destroy()
	})
}

func TestDisarmedDestroyIsNoop(t *testing.T) {
	var d D
	require.NotPanics(t, func() {
		d.Destroy()
	})
}
