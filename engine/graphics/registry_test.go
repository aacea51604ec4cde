package graphics

import (
	"bytes"
	"io"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stubFactory struct {
	magic []byte
}

func (f *stubFactory) CanCreate(header []byte) bool {
	return len(header) >= len(f.magic) && bytes.Equal(header[:len(f.magic)], f.magic)
}

func (f *stubFactory) TryCreate(r io.Reader) (TextureLoader, error) {
	return nil, NewResult(Unimplemented, "stub")
}

func TestLoaderRegistryProbeOrder(t *testing.T) {
	png := &stubFactory{magic: []byte{0x89, 'P'}}
	jpg := &stubFactory{magic: []byte{0xff, 0xd8}}
	registry := NewLoaderRegistry(png, jpg)

	got, err := registry.Probe([]byte{0xff, 0xd8, 0xff, 0xe0})
	require.NoError(t, err)
	assert.Same(t, jpg, got)

	got, err = registry.Probe([]byte{0x89, 'P', 'N', 'G'})
	require.NoError(t, err)
	assert.Same(t, png, got)
}

func TestLoaderRegistryRejectsEmptyHeader(t *testing.T) {
	registry := NewLoaderRegistry(&stubFactory{magic: []byte{1}})
	_, err := registry.Probe(nil)
	require.Error(t, err)
	assert.Equal(t, ArgumentNull, CodeOf(err))
}

func TestLoaderRegistryUnknownContainer(t *testing.T) {
	registry := NewLoaderRegistry(&stubFactory{magic: []byte{0x89}})
	_, err := registry.Probe([]byte{0x42, 0x4d})
	require.Error(t, err)
	assert.Equal(t, Unsupported, CodeOf(err))
}

func TestLoaderRegistryRegisterAppends(t *testing.T) {
	registry := NewLoaderRegistry()
	_, err := registry.Probe([]byte{1, 2, 3})
	require.Error(t, err)

	f := &stubFactory{magic: []byte{1, 2}}
	registry.Register(f)
	got, err := registry.Probe([]byte{1, 2, 3})
	require.NoError(t, err)
	assert.Same(t, f, got)
}
