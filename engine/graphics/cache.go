package graphics

import "sync"

// PipelineCache memoizes pipeline-state construction by descriptor equality.
// Pipeline states are immutable, so sharing them across call sites is safe.
type PipelineCache struct {
	mu      sync.Mutex
	render  map[uint64]RenderPipelineState
	compute map[uint64]ComputePipelineState
}

func NewPipelineCache() *PipelineCache {
	return &PipelineCache{
		render:  make(map[uint64]RenderPipelineState),
		compute: make(map[uint64]ComputePipelineState),
	}
}

// RenderPipeline returns the cached state for the descriptor or builds one.
func (pc *PipelineCache) RenderPipeline(desc RenderPipelineDesc, build func() (RenderPipelineState, error)) (RenderPipelineState, error) {
	key := desc.CacheKey()

	pc.mu.Lock()
	if pso, ok := pc.render[key]; ok {
		pc.mu.Unlock()
		return pso, nil
	}
	pc.mu.Unlock()

	pso, err := build()
	if err != nil {
		return nil, err
	}

	pc.mu.Lock()
	pc.render[key] = pso
	pc.mu.Unlock()
	return pso, nil
}

// ComputePipeline is the compute-side twin of RenderPipeline.
func (pc *PipelineCache) ComputePipeline(desc ComputePipelineDesc, build func() (ComputePipelineState, error)) (ComputePipelineState, error) {
	key := desc.CacheKey()

	pc.mu.Lock()
	if pso, ok := pc.compute[key]; ok {
		pc.mu.Unlock()
		return pso, nil
	}
	pc.mu.Unlock()

	pso, err := build()
	if err != nil {
		return nil, err
	}

	pc.mu.Lock()
	pc.compute[key] = pso
	pc.mu.Unlock()
	return pso, nil
}
