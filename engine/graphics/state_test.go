package graphics

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stubTexture struct {
	label string
}

func (s *stubTexture) Upload(data []byte, rng TextureRangeDesc) error { return nil }
func (s *stubTexture) Dimensions() Dimensions                         { return Dimensions{Width: 1, Height: 1, Depth: 1} }
func (s *stubTexture) Format() TextureFormat                          { return TextureFormatRGBA8UNorm }
func (s *stubTexture) Label() string                                  { return s.label }
func (s *stubTexture) Destroy()                                       {}

func TestCommandBufferLifecycle(t *testing.T) {
	var b CommandBufferBase
	assert.Equal(t, CommandBufferStateRecording, b.State())
	assert.True(t, b.Handle().Empty())

	b.BeginEncoder("Render")
	assert.True(t, b.EncoderOpen())
	b.EndEncoder()
	assert.False(t, b.EncoderOpen())

	handle := NewSubmitHandle(0, 1)
	b.MarkSubmitted(handle)
	assert.Equal(t, CommandBufferStateSubmitted, b.State())
	assert.Equal(t, handle, b.Handle())

	b.MarkScheduled()
	assert.Equal(t, CommandBufferStateScheduled, b.State())

	b.MarkCompleted()
	assert.Equal(t, CommandBufferStateCompleted, b.State())
}

func TestCommandBufferCompletionMaySkipScheduled(t *testing.T) {
	// Completion can race the scheduling notification; the state machine
	// still lands on Completed.
	var b CommandBufferBase
	b.MarkSubmitted(NewSubmitHandle(0, 1))
	b.MarkCompleted()
	assert.Equal(t, CommandBufferStateCompleted, b.State())

	// A late scheduled notification must not regress the state.
	b.MarkScheduled()
	assert.Equal(t, CommandBufferStateCompleted, b.State())
}

func TestMarkPresentRequiresSurface(t *testing.T) {
	var b CommandBufferBase
	err := b.MarkPresent(nil)
	require.Error(t, err)
	assert.Equal(t, ArgumentNull, CodeOf(err))
	assert.Empty(t, b.PresentTargets())
}

func TestMarkPresentAccumulatesTargets(t *testing.T) {
	var b CommandBufferBase
	first := &stubTexture{label: "swapchain-0"}
	second := &stubTexture{label: "swapchain-1"}

	require.NoError(t, b.MarkPresent(first))
	require.NoError(t, b.MarkPresent(second))

	targets := b.PresentTargets()
	require.Len(t, targets, 2)
	assert.Same(t, first, targets[0])
	assert.Same(t, second, targets[1])

	// Present records intent only; the buffer still accepts commands.
	assert.Equal(t, CommandBufferStateRecording, b.State())
}

func TestCommandBufferStateString(t *testing.T) {
	assert.Equal(t, "recording", CommandBufferStateRecording.String())
	assert.Equal(t, "submitted", CommandBufferStateSubmitted.String())
	assert.Equal(t, "scheduled", CommandBufferStateScheduled.String())
	assert.Equal(t, "completed", CommandBufferStateCompleted.String())
}
