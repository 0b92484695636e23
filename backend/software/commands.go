package software

import (
	"fmt"
	"sync"

	"github.com/gogpu/imgkernel"
	"github.com/gogpu/imgkernel/gpucore"
)

// dispatch is one recorded DispatchThreadgroups with its argument table.
type dispatch struct {
	pass            string
	pipeline        gpucore.ComputePipelineID
	source          gpucore.TextureID
	destination     gpucore.TextureID
	sampler         gpucore.SamplerID
	params          []byte
	groups          gpucore.Grid
	threadsPerGroup gpucore.Grid
}

type cbState uint8

const (
	stateRecording cbState = iota
	stateCommitted
	stateCompleted
)

// commandBuffer records dispatches and executes them on the adapter's
// executor after Commit.
type commandBuffer struct {
	adapter    *Adapter
	label      string
	dispatches []dispatch
	open       bool

	mu    sync.Mutex
	state cbState
	err   error
	done  chan struct{}
}

func (cb *commandBuffer) Label() string { return cb.label }

func (cb *commandBuffer) BeginComputePass(label string) gpucore.ComputePassEncoder {
	if cb.open {
		panic("software: BeginComputePass while another pass is open")
	}
	cb.open = true
	return &passEncoder{cb: cb, label: label}
}

func (cb *commandBuffer) Commit() error {
	cb.mu.Lock()
	if cb.state != stateRecording {
		cb.mu.Unlock()
		return gpucore.ErrAlreadyCommitted
	}
	if cb.open {
		cb.mu.Unlock()
		return fmt.Errorf("software: commit of %q with an open compute pass", cb.label)
	}
	cb.state = stateCommitted
	cb.mu.Unlock()

	if err := cb.adapter.submit(cb); err != nil {
		cb.finish(err)
		return err
	}
	return nil
}

func (cb *commandBuffer) WaitUntilCompleted() error {
	cb.mu.Lock()
	state := cb.state
	cb.mu.Unlock()
	if state == stateRecording {
		return gpucore.ErrNotCommitted
	}

	<-cb.done
	cb.mu.Lock()
	defer cb.mu.Unlock()
	return cb.err
}

func (cb *commandBuffer) finish(err error) {
	cb.mu.Lock()
	cb.state = stateCompleted
	cb.err = err
	cb.mu.Unlock()
	close(cb.done)
}

// execute runs every dispatch in order. The first failing dispatch stops
// execution and becomes the buffer's error.
func (cb *commandBuffer) execute() {
	for i := range cb.dispatches {
		d := &cb.dispatches[i]
		if err := cb.adapter.execute(d); err != nil {
			imgkernel.Logger().Warn("software: dispatch failed",
				"command_buffer", cb.label, "pass", d.pass, "err", err)
			cb.finish(fmt.Errorf("software: %s: %s: %w", cb.label, d.pass, err))
			return
		}
	}
	cb.finish(nil)
}

type passEncoder struct {
	cb          *commandBuffer
	label       string
	pipeline    gpucore.ComputePipelineID
	textures    map[uint32]gpucore.TextureID
	storage     map[uint32]gpucore.TextureID
	samplers    map[uint32]gpucore.SamplerID
	bytes       map[uint32][]byte
	debugGroups []string
	ended       bool
}

func (e *passEncoder) SetPipeline(p gpucore.ComputePipelineID) { e.pipeline = p }

func (e *passEncoder) SetTexture(binding uint32, tex gpucore.TextureID) {
	if e.textures == nil {
		e.textures = make(map[uint32]gpucore.TextureID)
	}
	e.textures[binding] = tex
}

func (e *passEncoder) SetStorageTexture(binding uint32, tex gpucore.TextureID) {
	if e.storage == nil {
		e.storage = make(map[uint32]gpucore.TextureID)
	}
	e.storage[binding] = tex
}

func (e *passEncoder) SetSampler(binding uint32, s gpucore.SamplerID) {
	if e.samplers == nil {
		e.samplers = make(map[uint32]gpucore.SamplerID)
	}
	e.samplers[binding] = s
}

func (e *passEncoder) SetBytes(binding uint32, data []byte) {
	if e.bytes == nil {
		e.bytes = make(map[uint32][]byte)
	}
	e.bytes[binding] = append([]byte(nil), data...)
}

func (e *passEncoder) DispatchThreadgroups(groups, threadsPerGroup gpucore.Grid) {
	e.cb.dispatches = append(e.cb.dispatches, dispatch{
		pass:            e.label,
		pipeline:        e.pipeline,
		source:          e.textures[gpucore.BindingSource],
		destination:     e.storage[gpucore.BindingDestination],
		sampler:         e.samplers[gpucore.BindingSampler],
		params:          e.bytes[gpucore.BindingParams],
		groups:          groups,
		threadsPerGroup: threadsPerGroup,
	})
}

func (e *passEncoder) PushDebugGroup(label string) {
	e.debugGroups = append(e.debugGroups, label)
}

func (e *passEncoder) PopDebugGroup() {
	if n := len(e.debugGroups); n > 0 {
		e.debugGroups = e.debugGroups[:n-1]
	}
}

func (e *passEncoder) End() {
	if e.ended {
		return
	}
	e.ended = true
	e.cb.open = false
}

// execute runs one dispatch. Rows of invocations are spread over the
// worker pool. The z dimension is ignored: every program writes a 2D
// texel, so extra layers would repeat the same store.
func (a *Adapter) execute(d *dispatch) error {
	if d.groups.IsEmpty() {
		return nil
	}

	a.mu.RLock()
	pl, okP := a.pipelines[d.pipeline]
	src, okS := a.textures[d.source]
	dst, okD := a.textures[d.destination]
	smp, okM := a.samplers[d.sampler]
	a.mu.RUnlock()
	switch {
	case !okP:
		return fmt.Errorf("%w: pipeline %d", gpucore.ErrResourceNotFound, d.pipeline)
	case !okS:
		return fmt.Errorf("%w: source texture %d", gpucore.ErrResourceNotFound, d.source)
	case !okD:
		return fmt.Errorf("%w: destination texture %d", gpucore.ErrResourceNotFound, d.destination)
	case !okM:
		return fmt.Errorf("%w: sampler %d", gpucore.ErrResourceNotFound, d.sampler)
	}
	p, err := decodeParams(d.params)
	if err != nil {
		return err
	}

	if src == dst {
		src.mu.RLock()
		src = src.snapshot()
		src.mu.RUnlock()
	} else {
		src.mu.RLock()
		defer src.mu.RUnlock()
	}
	dst.mu.Lock()
	defer dst.mu.Unlock()

	read := smp.bind(src)
	width := int(d.groups.X) * int(d.threadsPerGroup.X)
	height := int(d.groups.Y) * int(d.threadsPerGroup.Y)
	dw, dh := uint32(dst.desc.Width), uint32(dst.desc.Height)

	a.pool.ForRange(height, int(d.threadsPerGroup.Y), func(lo, hi int) {
		for gy := lo; gy < hi; gy++ {
			py := p.clipOrigin[1] + uint32(gy)
			if py >= p.clipMax[1] || py >= dh {
				continue
			}
			for gx := 0; gx < width; gx++ {
				px := p.clipOrigin[0] + uint32(gx)
				if px >= p.clipMax[0] || px >= dw {
					break
				}
				sx := int(px) + int(p.offsetX)
				sy := int(py) + int(p.offsetY)
				dst.store(int(px), int(py), pl.program(read, sx, sy, p.strength))
			}
		}
	})
	return nil
}
