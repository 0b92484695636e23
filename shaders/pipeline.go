package shaders

import (
	"fmt"

	"github.com/gogpu/imgkernel/gpucore"
)

// Pipeline is a compute pipeline built from a Program, together with the
// objects it owns.
type Pipeline struct {
	Program         *Program
	Module          gpucore.ShaderModuleID
	BindGroupLayout gpucore.BindGroupLayoutID
	Layout          gpucore.PipelineLayoutID
	Pipeline        gpucore.ComputePipelineID
}

// NewPipeline looks up the named program and builds a compute pipeline for
// it on adapter. On failure every object created so far is released.
func NewPipeline(adapter gpucore.GPUAdapter, name string) (*Pipeline, error) {
	prog, err := Lookup(name)
	if err != nil {
		return nil, err
	}

	p := &Pipeline{Program: prog}
	ok := false
	defer func() {
		if !ok {
			p.Destroy(adapter)
		}
	}()

	p.Module, err = adapter.CreateShaderModule(&gpucore.ShaderModuleDesc{
		Label: name,
		WGSL:  prog.Source,
	})
	if err != nil {
		return nil, fmt.Errorf("create shader module %s: %w", name, err)
	}

	p.BindGroupLayout, err = adapter.CreateBindGroupLayout(UnaryLayout(name + "_layout"))
	if err != nil {
		return nil, fmt.Errorf("create bind group layout %s: %w", name, err)
	}

	p.Layout, err = adapter.CreatePipelineLayout([]gpucore.BindGroupLayoutID{p.BindGroupLayout})
	if err != nil {
		return nil, fmt.Errorf("create pipeline layout %s: %w", name, err)
	}

	p.Pipeline, err = adapter.CreateComputePipeline(&gpucore.ComputePipelineDesc{
		Label:         name,
		Layout:        p.Layout,
		ShaderModule:  p.Module,
		EntryPoint:    prog.EntryPoint(),
		WorkgroupSize: prog.WorkgroupSize,
	})
	if err != nil {
		return nil, fmt.Errorf("create compute pipeline %s: %w", name, err)
	}

	ok = true
	return p, nil
}

// Destroy releases the pipeline and the objects it owns, in reverse order
// of creation. It is safe to call on a partially built Pipeline.
func (p *Pipeline) Destroy(adapter gpucore.GPUAdapter) {
	if p.Pipeline != gpucore.InvalidID {
		adapter.DestroyComputePipeline(p.Pipeline)
		p.Pipeline = gpucore.InvalidID
	}
	if p.Layout != gpucore.InvalidID {
		adapter.DestroyPipelineLayout(p.Layout)
		p.Layout = gpucore.InvalidID
	}
	if p.BindGroupLayout != gpucore.InvalidID {
		adapter.DestroyBindGroupLayout(p.BindGroupLayout)
		p.BindGroupLayout = gpucore.InvalidID
	}
	if p.Module != gpucore.InvalidID {
		adapter.DestroyShaderModule(p.Module)
		p.Module = gpucore.InvalidID
	}
}
