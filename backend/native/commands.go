//go:build !nogpu

package native

import (
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/gogpu/gputypes"
	"github.com/gogpu/imgkernel"
	"github.com/gogpu/imgkernel/gpucore"
	"github.com/gogpu/wgpu/hal"
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

// commandBuffer records dispatches and encodes them into a hal command
// buffer at Commit.
type commandBuffer struct {
	adapter    *Adapter
	label      string
	dispatches []dispatch
	open       bool

	mu         sync.Mutex
	state      cbState
	submission uint64
	raw        hal.CommandBuffer
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
		panic("native: BeginComputePass while another pass is open")
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
		return fmt.Errorf("native: commit of %q with an open compute pass", cb.label)
	}
	cb.state = stateCommitted

	if err := cb.adapter.checkOpen(); err != nil {
		cb.state = stateCompleted
		cb.err = err
		return err
	}
	if err := cb.adapter.submit(cb); err != nil {
		cb.releaseLocked()
		cb.state = stateCompleted
		cb.err = err
		return err
	}
	return nil
}

// WaitUntilCompleted polls the queue until the buffer's submission has
// completed, then frees the hal command buffer and the per-dispatch
// resources.
func (cb *commandBuffer) WaitUntilCompleted() error {
	cb.mu.Lock()
	defer cb.mu.Unlock()
	switch cb.state {
	case stateRecording:
		return gpucore.ErrNotCommitted
	case stateCompleted:
		return cb.err
	}

	if err := cb.adapter.waitSubmission(cb.submission); err != nil {
		// The GPU may still use the resources; leave them to Close.
		return fmt.Errorf("native: %s: %w", cb.label, err)
	}
	cb.releaseLocked()
	cb.state = stateCompleted
	return cb.err
}

func (cb *commandBuffer) releaseLocked() {
	if cb.raw != nil {
		cb.adapter.device.FreeCommandBuffer(cb.raw)
		cb.raw = nil
	}
	for _, release := range cb.transients {
		release()
	}
	cb.transients = nil
}

// submit encodes every dispatch and submits the result. Submissions are
// serialized so that barriers see the texture usage left by the previous
// submission.
func (a *Adapter) submit(cb *commandBuffer) error {
	a.submitMu.Lock()
	defer a.submitMu.Unlock()

	encoder, err := a.device.CreateCommandEncoder(&hal.CommandEncoderDescriptor{Label: cb.label})
	if err != nil {
		return fmt.Errorf("native: create command encoder: %w", err)
	}
	if err := encoder.BeginEncoding(cb.label); err != nil {
		return fmt.Errorf("native: begin encoding: %w", err)
	}

	// usage tracks texture states within this submission; it is applied to
	// the textures only once the submission has been accepted.
	usage := make(map[*texture]gputypes.TextureUsage)
	for i := range cb.dispatches {
		d := &cb.dispatches[i]
		if err := a.encodeDispatch(encoder, cb, d, usage); err != nil {
			encoder.DiscardEncoding()
			return fmt.Errorf("native: %s: %s: %w", cb.label, d.pass, err)
		}
	}

	raw, err := encoder.EndEncoding()
	if err != nil {
		return fmt.Errorf("native: end encoding: %w", err)
	}
	cb.raw = raw
	index, err := a.queue.Submit([]hal.CommandBuffer{raw})
	if err != nil {
		return fmt.Errorf("native: submit: %w", err)
	}
	cb.submission = index
	for t, u := range usage {
		t.usage = u
	}
	imgkernel.Logger().Debug("native: submitted",
		"command_buffer", cb.label, "dispatches", len(cb.dispatches), "submission", index)
	return nil
}

func (a *Adapter) encodeDispatch(encoder hal.CommandEncoder, cb *commandBuffer, d *dispatch, usage map[*texture]gputypes.TextureUsage) error {
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

	params, err := a.device.CreateBuffer(&hal.BufferDescriptor{
		Label: d.pass + " params",
		Size:  uint64(len(d.params)),
		Usage: gputypes.BufferUsageUniform | gputypes.BufferUsageCopyDst,
	})
	if err != nil {
		return fmt.Errorf("create params buffer: %w", err)
	}
	cb.transients = append(cb.transients, func() { a.device.DestroyBuffer(params) })
	if err := a.queue.WriteBuffer(params, 0, d.params); err != nil {
		return fmt.Errorf("write params buffer: %w", err)
	}

	group, err := a.device.CreateBindGroup(&hal.BindGroupDescriptor{
		Label:  d.pass,
		Layout: pl.bindLayout,
		Entries: []gputypes.BindGroupEntry{
			{Binding: gpucore.BindingSource, Resource: gputypes.TextureViewBinding{TextureView: src.view.NativeHandle()}},
			{Binding: gpucore.BindingDestination, Resource: gputypes.TextureViewBinding{TextureView: dst.view.NativeHandle()}},
			{Binding: gpucore.BindingSampler, Resource: gputypes.SamplerBinding{Sampler: smp.raw.NativeHandle()}},
			{Binding: gpucore.BindingParams, Resource: gputypes.BufferBinding{Buffer: params.NativeHandle(), Size: uint64(len(d.params))}},
		},
	})
	if err != nil {
		return fmt.Errorf("create bind group: %w", err)
	}
	cb.transients = append(cb.transients, func() { a.device.DestroyBindGroup(group) })

	var barriers []hal.TextureBarrier
	barriers = appendBarrier(barriers, src, usage, gputypes.TextureUsageTextureBinding)
	barriers = appendBarrier(barriers, dst, usage, gputypes.TextureUsageStorageBinding)
	if len(barriers) > 0 {
		encoder.TransitionTextures(barriers)
	}

	pass := encoder.BeginComputePass(&hal.ComputePassDescriptor{Label: d.pass})
	pass.SetPipeline(pl.forSampler(smp))
	pass.SetBindGroup(0, group, nil)
	pass.Dispatch(d.groups.X, d.groups.Y, d.groups.Z)
	pass.End()
	return nil
}

// appendBarrier adds a transition of t to next unless t is already in
// that state.
func appendBarrier(barriers []hal.TextureBarrier, t *texture, usage map[*texture]gputypes.TextureUsage, next gputypes.TextureUsage) []hal.TextureBarrier {
	cur, ok := usage[t]
	if !ok {
		cur = t.usage
	}
	if cur == next {
		return barriers
	}
	usage[t] = next
	return append(barriers, hal.TextureBarrier{
		Texture: t.raw,
		Range:   hal.TextureRange{Aspect: gputypes.TextureAspectAll, MipLevelCount: 1, ArrayLayerCount: 1},
		Usage:   hal.TextureUsageTransition{OldUsage: cur, NewUsage: next},
	})
}

// waitSubmission polls the queue until submission has completed or the
// adapter's timeout elapses.
func (a *Adapter) waitSubmission(submission uint64) error {
	if a.queue.PollCompleted() >= submission {
		return nil
	}
	deadline := time.Now().Add(a.timeout)
	ticker := time.NewTicker(a.poll)
	defer ticker.Stop()
	for {
		<-ticker.C
		if a.queue.PollCompleted() >= submission {
			return nil
		}
		if time.Now().After(deadline) {
			return fmt.Errorf("%w: submission %d after %v", ErrTimeout, submission, a.timeout)
		}
	}
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

// DispatchThreadgroups records a dispatch. hal passes have no debug
// markers, so open debug groups become part of the pass label.
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
