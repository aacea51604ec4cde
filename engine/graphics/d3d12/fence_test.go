package d3d12

import (
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/spaghettifunk/prism/engine/graphics"
)

// fakeFence mimics ID3D12Fence: a monotonically signaled value plus
// registered completion events.
type fakeFence struct {
	value atomic.Uint64

	mu      sync.Mutex
	waiters []fenceWaiterReg

	// onRegister runs inside SetEventOnCompletion, letting tests signal
	// the fence in the TOCTOU window between the initial check and the
	// event registration.
	onRegister func()
}

type fenceWaiterReg struct {
	target uint64
	done   chan<- struct{}
}

func (f *fakeFence) GetCompletedValue() uint64 {
	return f.value.Load()
}

func (f *fakeFence) SetEventOnCompletion(target uint64, done chan<- struct{}) error {
	if f.onRegister != nil {
		f.onRegister()
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.value.Load() >= target {
		close(done)
		return nil
	}
	f.waiters = append(f.waiters, fenceWaiterReg{target: target, done: done})
	return nil
}

func (f *fakeFence) signal(value uint64) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.value.Store(value)
	remaining := f.waiters[:0]
	for _, w := range f.waiters {
		if value >= w.target {
			close(w.done)
		} else {
			remaining = append(remaining, w)
		}
	}
	f.waiters = remaining
}

func TestNewFenceWaiterRequiresFence(t *testing.T) {
	_, err := NewFenceWaiter(nil, 1)
	require.Error(t, err)
	assert.Equal(t, graphics.ArgumentNull, graphics.CodeOf(err))
}

func TestFenceWaiterIsCompletePolls(t *testing.T) {
	fence := &fakeFence{}
	w, err := NewFenceWaiter(fence, 3)
	require.NoError(t, err)

	assert.False(t, w.IsComplete())
	fence.signal(2)
	assert.False(t, w.IsComplete())
	fence.signal(3)
	assert.True(t, w.IsComplete())
}

func TestFenceWaiterWaitTrueIffTargetReached(t *testing.T) {
	tests := []struct {
		name      string
		signal    uint64
		signalNow bool
		want      bool
	}{
		{name: "already signaled", signal: 5, signalNow: true, want: true},
		{name: "signaled past target", signal: 9, signalNow: true, want: true},
		{name: "never signaled times out", signal: 0, signalNow: false, want: false},
		{name: "signaled below target times out", signal: 4, signalNow: true, want: false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			fence := &fakeFence{}
			if tt.signalNow {
				fence.signal(tt.signal)
			}
			w, err := NewFenceWaiter(fence, 5)
			require.NoError(t, err)

			got := w.Wait(20)
			assert.Equal(t, tt.want, got)
			assert.Equal(t, got, fence.GetCompletedValue() >= 5,
				"Wait result must agree with the completed value at return")
		})
	}
}

func TestFenceWaiterWaitWakesOnSignal(t *testing.T) {
	fence := &fakeFence{}
	w, err := NewFenceWaiter(fence, 7)
	require.NoError(t, err)

	result := make(chan bool, 1)
	go func() { result <- w.Wait(5000) }()

	time.Sleep(20 * time.Millisecond)
	fence.signal(7)

	select {
	case got := <-result:
		assert.True(t, got)
	case <-time.After(time.Second):
		t.Fatal("Wait did not return after the fence was signaled")
	}
}

func TestFenceWaiterClosesRegistrationRace(t *testing.T) {
	// The fence reaches the target after the initial check but before the
	// event registration lands. Wait must still return true, and must not
	// depend on the event firing.
	fence := &fakeFence{}
	fence.onRegister = func() {
		fence.value.Store(10)
	}
	w, err := NewFenceWaiter(fence, 10)
	require.NoError(t, err)

	assert.True(t, w.Wait(20))
}
