package graphics

type ShaderStage uint8

const (
	ShaderStageVertex ShaderStage = iota
	ShaderStageFragment
	ShaderStageCompute
)

func (s ShaderStage) String() string {
	switch s {
	case ShaderStageVertex:
		return "vertex"
	case ShaderStageFragment:
		return "fragment"
	case ShaderStageCompute:
		return "compute"
	}
	return "unknown"
}

type ShaderModuleDesc struct {
	Stage ShaderStage
	// Backend-specific payload: SPIR-V words for Vulkan, DXIL for D3D12,
	// MSL or GLSL source for Metal/OpenGL.
	Code  []byte
	Entry string
	Label string
}

func (d *ShaderModuleDesc) Validate() error {
	if len(d.Code) == 0 {
		return NewResult(ArgumentNull, "shader module code must not be empty")
	}
	if d.Entry == "" {
		return NewResult(ArgumentInvalid, "shader module entry point must be set")
	}
	return nil
}

// ShaderModule is one compiled shader stage.
type ShaderModule interface {
	Stage() ShaderStage
	Label() string
}

type ShaderStagesDesc struct {
	Vertex   ShaderModule
	Fragment ShaderModule
	Compute  ShaderModule
	Label    string
}

func (d *ShaderStagesDesc) Validate() error {
	if d.Compute != nil {
		if d.Vertex != nil || d.Fragment != nil {
			return NewResult(ArgumentInvalid, "compute stages cannot be combined with render stages")
		}
		return nil
	}
	if d.Vertex == nil {
		return NewResult(ArgumentNull, "render shader stages require a vertex module")
	}
	return nil
}

// ShaderStages groups the modules a pipeline links together. Pipeline states
// reference but do not own their stages.
type ShaderStages interface {
	IsCompute() bool
	Label() string
}
