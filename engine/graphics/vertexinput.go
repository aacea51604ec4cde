package graphics

type VertexFormat uint8

const (
	VertexFormatFloat1 VertexFormat = iota
	VertexFormatFloat2
	VertexFormatFloat3
	VertexFormatFloat4
	VertexFormatUByte4Norm
)

func (f VertexFormat) SizeInBytes() uint32 {
	switch f {
	case VertexFormatFloat1:
		return 4
	case VertexFormatFloat2:
		return 8
	case VertexFormatFloat3:
		return 12
	case VertexFormatFloat4:
		return 16
	case VertexFormatUByte4Norm:
		return 4
	}
	return 0
}

type VertexAttribute struct {
	Format       VertexFormat
	Offset       uint32
	BufferIndex  uint32
	Location     uint32
}

type VertexBinding struct {
	Stride uint32
}

type VertexInputDesc struct {
	Attributes []VertexAttribute
	Bindings   []VertexBinding
	Label      string
}

func (d *VertexInputDesc) Validate() error {
	for i := range d.Attributes {
		a := &d.Attributes[i]
		if int(a.BufferIndex) >= len(d.Bindings) {
			return NewResult(ArgumentOutOfRange, "attribute %d references binding %d but only %d bindings exist", i, a.BufferIndex, len(d.Bindings))
		}
		if a.Format > VertexFormatUByte4Norm {
			return NewResult(ArgumentInvalid, "attribute %d has unknown vertex format %d", i, a.Format)
		}
	}
	return nil
}

type VertexInputState interface {
	Label() string
}
