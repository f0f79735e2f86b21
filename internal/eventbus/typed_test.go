package eventbus

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTypedBusFanOut(t *testing.T) {
	bus := NewTyped[int]()
	a, b := bus.Subscribe(), bus.Subscribe()
	bus.Publish(7)
	assert.Equal(t, 7, <-a)
	assert.Equal(t, 7, <-b)
	assert.Equal(t, 2, bus.Subscribers())
}

func TestTypedBusCountsDrops(t *testing.T) {
	bus := NewTyped[string](WithBuffer(2))
	ch := bus.Subscribe()
	for _, v := range []string{"a", "b", "c", "d"} {
		bus.Publish(v)
	}
	assert.Equal(t, uint64(2), bus.Dropped())
	assert.Equal(t, "a", <-ch)
	assert.Equal(t, "b", <-ch)
}

func TestTypedBusIgnoresBadBuffer(t *testing.T) {
	bus := NewTyped[int](WithBuffer(0))
	ch := bus.Subscribe()
	assert.Equal(t, defaultBuffer, cap(ch))
}

func TestTypedBusUnsubscribe(t *testing.T) {
	bus := NewTyped[int]()
	ch := bus.Subscribe()
	bus.Unsubscribe(ch)
	_, ok := <-ch
	assert.False(t, ok)
	assert.Zero(t, bus.Subscribers())

	bus.Publish(1)
	assert.Zero(t, bus.Dropped())
}

func TestTypedBusClose(t *testing.T) {
	bus := NewTyped[float64]()
	ch := bus.Subscribe()
	bus.Close()
	bus.Close()

	_, ok := <-ch
	assert.False(t, ok)
	require.NotPanics(t, func() {
		bus.Unsubscribe(ch)
		bus.Publish(1)
	})

	late := bus.Subscribe()
	_, ok = <-late
	assert.False(t, ok)
}
