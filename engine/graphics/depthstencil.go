package graphics

type CompareFunc uint8

const (
	CompareFuncNever CompareFunc = iota
	CompareFuncLess
	CompareFuncEqual
	CompareFuncLessEqual
	CompareFuncGreater
	CompareFuncNotEqual
	CompareFuncGreaterEqual
	CompareFuncAlways
)

type DepthStencilDesc struct {
	CompareFunc       CompareFunc
	DepthWriteEnabled bool
	Label             string
}

func (d *DepthStencilDesc) Validate() error {
	if d.CompareFunc > CompareFuncAlways {
		return NewResult(ArgumentInvalid, "unknown depth compare function %d", d.CompareFunc)
	}
	return nil
}

type DepthStencilState interface {
	Label() string
}
