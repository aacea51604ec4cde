package graphics

type SamplerFilter uint8

const (
	SamplerFilterNearest SamplerFilter = iota
	SamplerFilterLinear
)

type SamplerAddressMode uint8

const (
	SamplerAddressRepeat SamplerAddressMode = iota
	SamplerAddressClamp
	SamplerAddressMirror
)

type SamplerDesc struct {
	MinFilter SamplerFilter
	MagFilter SamplerFilter
	AddressU  SamplerAddressMode
	AddressV  SamplerAddressMode
	AddressW  SamplerAddressMode
	// 1 disables anisotropic filtering.
	MaxAnisotropy uint32
	Label         string
}

func (d *SamplerDesc) Validate() error {
	if d.MaxAnisotropy > 16 {
		return NewResult(ArgumentOutOfRange, "max anisotropy %d out of range (1..16)", d.MaxAnisotropy)
	}
	return nil
}

type SamplerState interface {
	Label() string
}
