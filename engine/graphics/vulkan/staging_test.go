package vulkan

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/spaghettifunk/prism/engine/graphics"
)

type fakeTracker struct {
	completed map[graphics.SubmitHandle]bool
	waited    []graphics.SubmitHandle
}

func newFakeTracker() *fakeTracker {
	return &fakeTracker{completed: make(map[graphics.SubmitHandle]bool)}
}

func (f *fakeTracker) IsComplete(handle graphics.SubmitHandle) bool {
	return f.completed[handle]
}

func (f *fakeTracker) Wait(handle graphics.SubmitHandle) bool {
	f.waited = append(f.waited, handle)
	f.completed[handle] = true
	return true
}

func (f *fakeTracker) complete(handle graphics.SubmitHandle) {
	f.completed[handle] = true
}

func handleFor(id uint32) graphics.SubmitHandle {
	return graphics.NewSubmitHandle(0, id)
}

func TestStagingRingRejectsOversizeRequest(t *testing.T) {
	ring := newStagingRing(64, 16, newFakeTracker())

	_, err := ring.GetNextFreeOffset(65)
	require.Error(t, err)
	assert.Equal(t, graphics.ArgumentOutOfRange, graphics.CodeOf(err))

	// Aligned size is what counts: 60 rounds up to 64 and still fits.
	offset, err := ring.GetNextFreeOffset(60)
	require.NoError(t, err)
	assert.Equal(t, uint64(0), offset)
}

func TestStagingRingAlignsRegions(t *testing.T) {
	ring := newStagingRing(256, 16, newFakeTracker())

	tests := []struct {
		name       string
		size       uint64
		wantOffset uint64
	}{
		{name: "first region at zero", size: 10, wantOffset: 0},
		{name: "second rounds previous up", size: 1, wantOffset: 16},
		{name: "third keeps aligning", size: 17, wantOffset: 32},
		{name: "fourth after a two-slot region", size: 16, wantOffset: 64},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			offset, err := ring.GetNextFreeOffset(tt.size)
			require.NoError(t, err)
			assert.Equal(t, tt.wantOffset, offset)
			require.NoError(t, ring.CommitRegion(offset, tt.size, handleFor(uint32(offset/16+1))))
		})
	}
}

func TestStagingRingNeverOverlapsOutstandingRegions(t *testing.T) {
	tracker := newFakeTracker()
	ring := newStagingRing(64, 16, tracker)

	type live struct {
		offset uint64
		size   uint64
	}
	var outstanding []live

	// Fill the whole buffer with four unfenced regions.
	for i := uint32(1); i <= 4; i++ {
		offset, err := ring.GetNextFreeOffset(16)
		require.NoError(t, err)
		for _, r := range outstanding {
			disjoint := offset+16 <= r.offset || r.offset+r.size <= offset
			assert.True(t, disjoint, "region at %d overlaps outstanding region at %d", offset, r.offset)
		}
		outstanding = append(outstanding, live{offset: offset, size: 16})
		require.NoError(t, ring.CommitRegion(offset, 16, handleFor(i)))
	}
	assert.Equal(t, uint64(64), ring.OutstandingBytes())

	// The buffer is full, so the next request must block on the oldest
	// fence before reusing its region.
	offset, err := ring.GetNextFreeOffset(16)
	require.NoError(t, err)
	assert.Equal(t, uint64(0), offset)
	require.NotEmpty(t, tracker.waited)
	assert.Equal(t, handleFor(1), tracker.waited[0], "reclamation must be oldest-first")
}

func TestStagingRingWrapsAtCapacity(t *testing.T) {
	tracker := newFakeTracker()
	ring := newStagingRing(64, 16, tracker)

	offset, err := ring.GetNextFreeOffset(48)
	require.NoError(t, err)
	assert.Equal(t, uint64(0), offset)
	require.NoError(t, ring.CommitRegion(offset, 48, handleFor(1)))

	// 32 bytes do not fit in the 16-byte tail, so the candidate wraps to
	// offset zero once the region there has been reclaimed.
	tracker.complete(handleFor(1))
	offset, err = ring.GetNextFreeOffset(32)
	require.NoError(t, err)
	assert.Equal(t, uint64(0), offset)
}

func TestStagingRingReclaimsCompletedRegionsWithoutWaiting(t *testing.T) {
	tracker := newFakeTracker()
	ring := newStagingRing(64, 16, tracker)

	offset, err := ring.GetNextFreeOffset(64)
	require.NoError(t, err)
	require.NoError(t, ring.CommitRegion(offset, 64, handleFor(1)))
	assert.Equal(t, uint64(64), ring.OutstandingBytes())

	tracker.complete(handleFor(1))
	ring.FlushOutstandingFences()
	assert.Equal(t, uint64(0), ring.OutstandingBytes())

	// Reuse proceeds without any blocking wait.
	_, err = ring.GetNextFreeOffset(64)
	require.NoError(t, err)
	assert.Empty(t, tracker.waited)
}

func TestStagingRingTotalOutstandingNeverExceedsCapacity(t *testing.T) {
	tracker := newFakeTracker()
	ring := newStagingRing(128, 16, tracker)

	next := uint32(1)
	for i := 0; i < 50; i++ {
		offset, err := ring.GetNextFreeOffset(48)
		require.NoError(t, err)
		require.NoError(t, ring.CommitRegion(offset, 48, handleFor(next)))
		next++
		assert.LessOrEqual(t, ring.OutstandingBytes(), uint64(128))
	}
}
