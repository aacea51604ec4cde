package graphics

import "io"

// TextureLoader uploads a decoded texture container into a device texture.
// The abstraction never parses container formats itself; loaders are
// external collaborators consumed only through this contract.
type TextureLoader interface {
	// Desc returns the texture descriptor the container requires.
	Desc() TextureDesc
	// Upload writes the container's pixel data into the texture.
	Upload(tex Texture) error
}

// TextureLoaderFactory recognizes one container format.
type TextureLoaderFactory interface {
	// CanCreate inspects the leading header bytes without consuming input.
	CanCreate(header []byte) bool
	// TryCreate parses the container and returns a loader.
	TryCreate(r io.Reader) (TextureLoader, error)
}

// LoaderRegistry holds the registered container factories in probe order.
type LoaderRegistry struct {
	factories []TextureLoaderFactory
}

func NewLoaderRegistry(factories ...TextureLoaderFactory) *LoaderRegistry {
	return &LoaderRegistry{factories: factories}
}

func (lr *LoaderRegistry) Register(f TextureLoaderFactory) {
	lr.factories = append(lr.factories, f)
}

// Probe returns the first factory that recognizes the header, or an
// Unsupported result when none does.
func (lr *LoaderRegistry) Probe(header []byte) (TextureLoaderFactory, error) {
	if len(header) == 0 {
		return nil, NewResult(ArgumentNull, "texture container header must not be empty")
	}
	for _, f := range lr.factories {
		if f.CanCreate(header) {
			return f, nil
		}
	}
	return nil, NewResult(Unsupported, "no registered loader recognizes the texture container")
}
