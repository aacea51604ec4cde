package graphics

type BufferUsage uint8

const (
	BufferUsageVertex BufferUsage = 1 << iota
	BufferUsageIndex
	BufferUsageUniform
	BufferUsageStorage
)

type StorageMode uint8

const (
	// Let the backend decide. The zero value carries no meaning beyond
	// "unset"; backends must not treat it as a concrete mode.
	StorageModeUnset StorageMode = iota
	// Device-local memory, uploaded through the staging path.
	StorageModePrivate
	// Host-visible memory, mapped and written directly by the CPU.
	StorageModeShared
)

type BufferDesc struct {
	// Initial contents, may be nil.
	Data []byte
	// Size in bytes. Must be > 0.
	Size uint64
	// Usage flags. At least one must be set.
	Usage BufferUsage
	// Storage hint, optional.
	Storage StorageMode
	// Debug label, optional.
	Label string
}

// Validate checks the descriptor before any native work happens.
func (d *BufferDesc) Validate() error {
	if d.Size == 0 {
		return NewResult(ArgumentOutOfRange, "buffer size must be greater than zero")
	}
	if d.Usage == 0 {
		return NewResult(ArgumentInvalid, "buffer usage flags must not be empty")
	}
	if d.Data != nil && uint64(len(d.Data)) > d.Size {
		return NewResult(ArgumentOutOfRange, "initial data (%d bytes) exceeds buffer size (%d bytes)", len(d.Data), d.Size)
	}
	return nil
}

// Buffer is a GPU-resident memory resource. Buffers are reference-counted by
// the owning device and may be read concurrently by multiple command
// buffers; the native allocation is only released once the last reference
// drops and the GPU is proven done with it (deferred destruction).
type Buffer interface {
	// Upload copies data into the buffer at the given offset. For private
	// storage the copy goes through the backend's staging machinery and is
	// asynchronous; for shared storage it is a direct write.
	Upload(data []byte, offset uint64) error
	SizeInBytes() uint64
	Storage() StorageMode
	Label() string
	// Destroy drops the caller's reference. The backend frees the native
	// allocation once the GPU no longer uses it.
	Destroy()
}
