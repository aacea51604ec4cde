package graphics

// SubmitHandle identifies one submitted unit of GPU work. The submit id
// occupies the high 32 bits and increases monotonically per queue, so
// handles from one queue compare strictly increasing across submissions.
// The low 32 bits carry the index of the native command buffer slot the
// submission went through, which lets backends map a handle back to the
// fence that will signal its completion.
//
// The zero handle is "empty": never submitted, always considered complete.
type SubmitHandle uint64

func NewSubmitHandle(bufferIndex, submitID uint32) SubmitHandle {
	return SubmitHandle(uint64(submitID)<<32 | uint64(bufferIndex))
}

func (h SubmitHandle) BufferIndex() uint32 {
	return uint32(h & 0xffffffff)
}

func (h SubmitHandle) SubmitID() uint32 {
	return uint32(h >> 32)
}

func (h SubmitHandle) Empty() bool {
	return h.SubmitID() == 0
}
