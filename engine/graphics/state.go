package graphics

import (
	"sync/atomic"

	"github.com/spaghettifunk/prism/engine/core"
)

// CommandBufferState is the lifecycle of a command buffer:
//
//	Recording → Submitted → Scheduled → Completed
//
// Recording operations are only valid in Recording. Submit moves the buffer
// to Submitted exactly once; the backend advances it to Scheduled when the
// driver has accepted the work and to Completed when the GPU is done.
type CommandBufferState uint8

const (
	CommandBufferStateRecording CommandBufferState = iota
	CommandBufferStateSubmitted
	CommandBufferStateScheduled
	CommandBufferStateCompleted
)

func (s CommandBufferState) String() string {
	switch s {
	case CommandBufferStateRecording:
		return "recording"
	case CommandBufferStateSubmitted:
		return "submitted"
	case CommandBufferStateScheduled:
		return "scheduled"
	case CommandBufferStateCompleted:
		return "completed"
	}
	return "unknown"
}

// CommandBufferBase carries the state machine every backend command buffer
// embeds. Single-writer discipline applies to recording; the state word is
// atomic because completion callbacks fire on backend threads.
type CommandBufferBase struct {
	state          atomic.Uint32
	encoderOpen    bool
	presentTargets []Texture
	handle         SubmitHandle
}

func (b *CommandBufferBase) State() CommandBufferState {
	return CommandBufferState(b.state.Load())
}

// Handle returns the SubmitHandle assigned at submission, empty before.
func (b *CommandBufferBase) Handle() SubmitHandle {
	return b.handle
}

// AssertRecording fails fast when an operation arrives in the wrong state.
// Recording into a submitted buffer is a caller bug that would corrupt GPU
// state, so it is fatal rather than an error return.
func (b *CommandBufferBase) AssertRecording(op string) {
	if s := b.State(); s != CommandBufferStateRecording {
		core.LogFatal("%s called on a %s command buffer; only recording buffers accept commands", op, s)
	}
}

// BeginEncoder marks an encoder open. Exactly one encoder may be open at a
// time.
func (b *CommandBufferBase) BeginEncoder(kind string) {
	b.AssertRecording("create" + kind + "CommandEncoder")
	if b.encoderOpen {
		core.LogFatal("an encoder is already open on this command buffer; call EndEncoding first")
	}
	b.encoderOpen = true
}

func (b *CommandBufferBase) EndEncoder() {
	if !b.encoderOpen {
		core.LogFatal("EndEncoding called with no open encoder")
	}
	b.encoderOpen = false
}

func (b *CommandBufferBase) EncoderOpen() bool {
	return b.encoderOpen
}

// MarkPresent records a surface to present at submission time. Present does
// not submit.
func (b *CommandBufferBase) MarkPresent(surface Texture) error {
	if surface == nil {
		return NewResult(ArgumentNull, "present surface must not be nil")
	}
	b.AssertRecording("present")
	b.presentTargets = append(b.presentTargets, surface)
	return nil
}

func (b *CommandBufferBase) PresentTargets() []Texture {
	return b.presentTargets
}

// MarkSubmitted transitions Recording → Submitted and pins the handle.
func (b *CommandBufferBase) MarkSubmitted(handle SubmitHandle) {
	if b.encoderOpen {
		core.LogFatal("submit called while an encoder is still open")
	}
	if !b.state.CompareAndSwap(uint32(CommandBufferStateRecording), uint32(CommandBufferStateSubmitted)) {
		core.LogFatal("submit called on a %s command buffer; buffers are submitted exactly once", b.State())
	}
	b.handle = handle
}

// MarkScheduled is a no-op unless the buffer is Submitted.
func (b *CommandBufferBase) MarkScheduled() {
	b.state.CompareAndSwap(uint32(CommandBufferStateSubmitted), uint32(CommandBufferStateScheduled))
}

func (b *CommandBufferBase) MarkCompleted() {
	// Scheduled may have been skipped when completion raced the scheduling
	// notification.
	b.state.CompareAndSwap(uint32(CommandBufferStateSubmitted), uint32(CommandBufferStateScheduled))
	b.state.CompareAndSwap(uint32(CommandBufferStateScheduled), uint32(CommandBufferStateCompleted))
}
