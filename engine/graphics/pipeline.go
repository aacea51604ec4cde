package graphics

import (
	"fmt"
	"hash/fnv"
)

type CullMode uint8

const (
	CullModeNone CullMode = iota
	CullModeFront
	CullModeBack
)

type WindingMode uint8

const (
	WindingCounterClockwise WindingMode = iota
	WindingClockwise
)

type RenderPipelineDesc struct {
	Stages        ShaderStages
	VertexInput   VertexInputState
	ColorFormat   TextureFormat
	DepthFormat   TextureFormat
	Cull          CullMode
	Winding       WindingMode
	Primitive     PrimitiveType
	BlendEnabled  bool
	Label         string
}

func (d *RenderPipelineDesc) Validate() error {
	if d.Stages == nil {
		return NewResult(ArgumentNull, "render pipeline requires shader stages")
	}
	if d.Stages.IsCompute() {
		return NewResult(ArgumentInvalid, "render pipeline cannot be built from compute stages")
	}
	return nil
}

// CacheKey identifies the pipeline for descriptor-equality caching: shader
// stages identity plus fixed-function state plus debug name.
func (d *RenderPipelineDesc) CacheKey() uint64 {
	h := fnv.New64a()
	fmt.Fprintf(h, "%p|%d|%d|%d|%d|%d|%t|%s",
		d.Stages, d.ColorFormat, d.DepthFormat, d.Cull, d.Winding, d.Primitive, d.BlendEnabled, d.Label)
	return h.Sum64()
}

// RenderPipelineState is an immutable compiled program plus fixed-function
// state. Construct once, bind many times.
type RenderPipelineState interface {
	Label() string
}

type ComputePipelineDesc struct {
	Stages ShaderStages
	Label  string
}

func (d *ComputePipelineDesc) Validate() error {
	if d.Stages == nil {
		return NewResult(ArgumentNull, "compute pipeline requires shader stages")
	}
	if !d.Stages.IsCompute() {
		return NewResult(ArgumentInvalid, "compute pipeline requires compute stages")
	}
	return nil
}

func (d *ComputePipelineDesc) CacheKey() uint64 {
	h := fnv.New64a()
	fmt.Fprintf(h, "%p|%s", d.Stages, d.Label)
	return h.Sum64()
}

type ComputePipelineState interface {
	Label() string
}
