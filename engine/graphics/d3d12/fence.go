package d3d12

import (
	"time"

	"github.com/spaghettifunk/prism/engine/core"
	"github.com/spaghettifunk/prism/engine/graphics"
)

// FenceWaiter waits for one fence to reach one target value. The completion
// channel plays the role of the Win32 event: registered once, drained by at
// most one Wait, and abandoned safely on timeout because the driver closes
// it rather than sending.
type FenceWaiter struct {
	fence  NativeFence
	target uint64
}

func NewFenceWaiter(fence NativeFence, targetValue uint64) (*FenceWaiter, error) {
	if fence == nil {
		return nil, graphics.NewResult(graphics.ArgumentNull, "fence must not be nil")
	}
	return &FenceWaiter{fence: fence, target: targetValue}, nil
}

// IsComplete is the non-blocking poll.
func (w *FenceWaiter) IsComplete() bool {
	return w.fence.GetCompletedValue() >= w.target
}

// Wait blocks until the fence reaches the target value or timeoutMs elapses.
// It returns true only when GetCompletedValue() >= target is confirmed at
// return. The fence can reach the target between the initial check and the
// event registration, so after either wakeup path the completed value is
// read again; the channel wakeup alone is never trusted.
func (w *FenceWaiter) Wait(timeoutMs uint32) bool {
	if w.IsComplete() {
		return true
	}

	done := make(chan struct{})
	if err := w.fence.SetEventOnCompletion(w.target, done); err != nil {
		core.LogError("SetEventOnCompletion failed for fence value %d: %v", w.target, err)
		return w.IsComplete()
	}
	// Registration raced the signal; re-check before arming the timer.
	if w.IsComplete() {
		return true
	}

	timer := time.NewTimer(time.Duration(timeoutMs) * time.Millisecond)
	defer timer.Stop()

	select {
	case <-done:
		return w.IsComplete()
	case <-timer.C:
		if w.IsComplete() {
			return true
		}
		core.LogWarn("fence wait timed out after %dms waiting for value %d (completed %d)",
			timeoutMs, w.target, w.fence.GetCompletedValue())
		return false
	}
}
