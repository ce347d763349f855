package ring

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestBufferEmpty(t *testing.T) {
	var r Buffer
	require.True(t, r.IsEmpty())
	require.Equal(t, 0, r.Len())
	_, ok := r.TryPop()
	require.False(t, ok)
}

func TestBufferFIFO(t *testing.T) {
	var r Buffer
	for i := 0; i < 10; i++ {
		require.True(t, r.TryPush(byte(i)))
	}
	require.Equal(t, 10, r.Len())
	for i := 0; i < 10; i++ {
		b, ok := r.TryPop()
		require.True(t, ok)
		require.Equal(t, byte(i), b)
	}
	require.True(t, r.IsEmpty())
}

func TestBufferWrapAround(t *testing.T) {
	var r Buffer
	var expect byte
	var val byte
	// push/pop in uneven batches to walk the indices across the boundary
	// several times.
	for round := 0; round < 20; round++ {
		for i := 0; i < 7; i++ {
			require.True(t, r.TryPush(val))
			val++
		}
		for i := 0; i < 5; i++ {
			b, ok := r.TryPop()
			require.True(t, ok)
			require.Equal(t, expect, b)
			expect++
		}
	}
	for !r.IsEmpty() {
		b, _ := r.TryPop()
		require.Equal(t, expect, b)
		expect++
	}
	require.Equal(t, val, expect)
}

func TestBufferOverflowRejectsNew(t *testing.T) {
	var r Buffer
	accepted := 0
	for i := 0; i < Capacity+1; i++ {
		if r.TryPush(byte(i + 1)) {
			accepted++
		}
	}
	require.Equal(t, Capacity-1, accepted)
	require.Equal(t, Capacity-1, r.Len())
	require.Equal(t, uint64(2), r.Dropped())
	require.True(t, r.IsFull())

	for i := 0; i < Capacity-1; i++ {
		b, ok := r.TryPop()
		require.True(t, ok)
		require.Equalf(t, byte(i+1), b, "byte[%d] mismatch", i)
	}
	_, ok := r.TryPop()
	require.False(t, ok)
	require.False(t, r.IsFull())

	// space is reclaimed after draining.
	require.True(t, r.TryPush(0xaa))
	b, ok := r.TryPop()
	require.True(t, ok)
	require.Equal(t, byte(0xaa), b)
}

func TestBufferConcurrentSPSC(t *testing.T) {
	const total = 100000
	var r Buffer
	var wg sync.WaitGroup
	var pushed []byte

	wg.Add(1)
	go func() {
		defer wg.Done()
		for i := 0; i < total; i++ {
			if r.TryPush(byte(i)) {
				pushed = append(pushed, byte(i))
			}
		}
	}()

	var popped []byte
	done := make(chan struct{})
	go func() {
		wg.Wait()
		close(done)
	}()
	for {
		if b, ok := r.TryPop(); ok {
			popped = append(popped, b)
			continue
		}
		select {
		case <-done:
			for {
				b, ok := r.TryPop()
				if !ok {
					break
				}
				popped = append(popped, b)
			}
			require.Equal(t, pushed, popped)
			require.Equal(t, uint64(total-len(pushed)), r.Dropped())
			return
		default:
		}
	}
}
