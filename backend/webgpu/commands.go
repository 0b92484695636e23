//go:build !nogpu

package webgpu

import (
	"fmt"
	"strings"
	"sync"

	"github.com/cogentcore/webgpu/wgpu"
	"github.com/gogpu/imgkernel"
	"github.com/gogpu/imgkernel/gpucore"
)

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

type commandBuffer struct {
	adapter    *Adapter
	label      string
	dispatches []dispatch
	open       bool

	mu         sync.Mutex
	state      cbState
	transients []func()
	err        error
}

// NewCommandBuffer returns an empty command buffer.
func (a *Adapter) NewCommandBuffer(label string) (gpucore.CommandBuffer, error) {
	if err := a.checkOpen(); err != nil {
		return nil, err
	}
	return &commandBuffer{adapter: a, label: label}, nil
}

func (cb *commandBuffer) Label() string { return cb.label }

func (cb *commandBuffer) BeginComputePass(label string) gpucore.ComputePassEncoder {
	if cb.open {
		panic("webgpu: BeginComputePass while another pass is open")
	}
	cb.open = true
	return &passEncoder{cb: cb, label: label}
}

func (cb *commandBuffer) Commit() error {
	cb.mu.Lock()
	defer cb.mu.Unlock()
	if cb.state != stateRecording {
		return gpucore.ErrAlreadyCommitted
	}
	if cb.open {
		return fmt.Errorf("webgpu: commit of %q with an open compute pass", cb.label)
	}
	cb.state = stateCommitted

	err := cb.adapter.checkOpen()
	if err == nil {
		err = cb.adapter.submit(cb)
	}
	if err != nil {
		cb.releaseLocked()
		cb.state = stateCompleted
		cb.err = err
	}
	return err
}

// WaitUntilCompleted blocks on the device until the queue has drained and
// releases the per-dispatch resources.
func (cb *commandBuffer) WaitUntilCompleted() error {
	cb.mu.Lock()
	defer cb.mu.Unlock()
	switch cb.state {
	case stateRecording:
		return gpucore.ErrNotCommitted
	case stateCompleted:
		return cb.err
	}
	cb.adapter.device.Poll(true, nil)
	cb.releaseLocked()
	cb.state = stateCompleted
	return cb.err
}

func (cb *commandBuffer) releaseLocked() {
	for _, release := range cb.transients {
		release()
	}
	cb.transients = nil
}

func (a *Adapter) submit(cb *commandBuffer) error {
	a.queueMu.Lock()
	defer a.queueMu.Unlock()

	encoder, err := a.device.CreateCommandEncoder(&wgpu.CommandEncoderDescriptor{Label: cb.label})
	if err != nil {
		return fmt.Errorf("webgpu: create command encoder: %w", err)
	}
	defer encoder.Release()

	for i := range cb.dispatches {
		d := &cb.dispatches[i]
		if err := a.encodeDispatch(encoder, cb, d); err != nil {
			return fmt.Errorf("webgpu: %s: %s: %w", cb.label, d.pass, err)
		}
	}

	cmd, err := encoder.Finish(nil)
	if err != nil {
		return fmt.Errorf("webgpu: finish %s: %w", cb.label, err)
	}
	a.queue.Submit(cmd)
	cmd.Release()
	imgkernel.Logger().Debug("webgpu: submitted", "command_buffer", cb.label, "dispatches", len(cb.dispatches))
	return nil
}

func (a *Adapter) encodeDispatch(encoder *wgpu.CommandEncoder, cb *commandBuffer, d *dispatch) error {
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
	case src == dst:
		return fmt.Errorf("%w: source and destination are the same texture", gpucore.ErrInvalidDescriptor)
	case len(d.params) == 0:
		return fmt.Errorf("%w: no params bound", gpucore.ErrInvalidDescriptor)
	case d.threadsPerGroup != pl.workgroupSize:
		return fmt.Errorf("%w: threads per group %v, pipeline declares %v",
			gpucore.ErrInvalidDescriptor, d.threadsPerGroup, pl.workgroupSize)
	}

	params, err := a.device.CreateBuffer(&wgpu.BufferDescriptor{
		Label: d.pass + " params",
		Size:  uint64(len(d.params)),
		Usage: wgpu.BufferUsageUniform | wgpu.BufferUsageCopyDst,
	})
	if err != nil {
		return fmt.Errorf("create params buffer: %w", err)
	}
	cb.transients = append(cb.transients, params.Release)
	a.queue.WriteBuffer(params, 0, d.params)

	group, err := a.device.CreateBindGroup(&wgpu.BindGroupDescriptor{
		Label:  d.pass,
		Layout: pl.bindLayout,
		Entries: []wgpu.BindGroupEntry{
			{Binding: gpucore.BindingSource, TextureView: src.view},
			{Binding: gpucore.BindingDestination, TextureView: dst.view},
			{Binding: gpucore.BindingSampler, Sampler: smp.raw},
			{Binding: gpucore.BindingParams, Buffer: params, Offset: 0, Size: wgpu.WholeSize},
		},
	})
	if err != nil {
		return fmt.Errorf("create bind group: %w", err)
	}
	cb.transients = append(cb.transients, group.Release)

	pass := encoder.BeginComputePass(&wgpu.ComputePassDescriptor{Label: d.pass})
	pass.SetPipeline(pl.forSampler(smp))
	pass.SetBindGroup(0, group, nil)
	pass.DispatchWorkgroups(d.groups.X, d.groups.Y, d.groups.Z)
	pass.End()
	pass.Release()
	return nil
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
	label := e.label
	if len(e.debugGroups) > 0 {
		label += ": " + strings.Join(e.debugGroups, "/")
	}
	e.cb.dispatches = append(e.cb.dispatches, dispatch{
		pass:            label,
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
