package graphics

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stubStages struct {
	compute bool
	label   string
}

func (s *stubStages) IsCompute() bool { return s.compute }
func (s *stubStages) Label() string   { return s.label }

type stubPipeline struct {
	label string
}

func (p *stubPipeline) Label() string { return p.label }

func TestPipelineCacheBuildsOncePerDescriptor(t *testing.T) {
	cache := NewPipelineCache()
	stages := &stubStages{label: "tri"}
	desc := RenderPipelineDesc{Stages: stages, ColorFormat: TextureFormatBGRA8UNorm, Label: "tri"}

	builds := 0
	build := func() (RenderPipelineState, error) {
		builds++
		return &stubPipeline{label: desc.Label}, nil
	}

	first, err := cache.RenderPipeline(desc, build)
	require.NoError(t, err)
	second, err := cache.RenderPipeline(desc, build)
	require.NoError(t, err)

	assert.Same(t, first, second)
	assert.Equal(t, 1, builds)
}

func TestPipelineCacheDistinguishesFixedFunctionState(t *testing.T) {
	cache := NewPipelineCache()
	stages := &stubStages{label: "tri"}

	base := RenderPipelineDesc{Stages: stages, ColorFormat: TextureFormatBGRA8UNorm, Label: "tri"}
	blended := base
	blended.BlendEnabled = true

	builds := 0
	build := func() (RenderPipelineState, error) {
		builds++
		return &stubPipeline{}, nil
	}

	_, err := cache.RenderPipeline(base, build)
	require.NoError(t, err)
	_, err = cache.RenderPipeline(blended, build)
	require.NoError(t, err)
	assert.Equal(t, 2, builds)
}

func TestPipelineCacheDoesNotCacheFailures(t *testing.T) {
	cache := NewPipelineCache()
	desc := RenderPipelineDesc{Stages: &stubStages{}, Label: "broken"}

	attempts := 0
	failing := func() (RenderPipelineState, error) {
		attempts++
		return nil, NewResult(RuntimeError, "shader compile failed")
	}

	_, err := cache.RenderPipeline(desc, failing)
	require.Error(t, err)
	_, err = cache.RenderPipeline(desc, failing)
	require.Error(t, err)
	assert.Equal(t, 2, attempts, "failed builds must be retried, not cached")
}

func TestPipelineCacheComputeSide(t *testing.T) {
	cache := NewPipelineCache()
	desc := ComputePipelineDesc{Stages: &stubStages{compute: true}, Label: "reduce"}

	builds := 0
	build := func() (ComputePipelineState, error) {
		builds++
		return &stubPipeline{label: desc.Label}, nil
	}

	first, err := cache.ComputePipeline(desc, build)
	require.NoError(t, err)
	second, err := cache.ComputePipeline(desc, build)
	require.NoError(t, err)
	assert.Same(t, first, second)
	assert.Equal(t, 1, builds)
}
