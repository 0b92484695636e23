package kernel

import (
	"fmt"

	"github.com/gogpu/imgkernel"
	"github.com/gogpu/imgkernel/gpucore"
	"github.com/gogpu/imgkernel/shaders"
)

// unary is the dispatcher shared by every kernel in this package. Concrete
// kernels embed it and differ only in program and defaults.
type unary struct {
	self       Unary
	device     gpucore.GPUAdapter
	name       string
	label      string
	debugGroup string
	pipeline   *shaders.Pipeline

	// Sampling resource, keyed by edgeMode. samplerBuilt is false only
	// before the first successful build.
	sampler      gpucore.SamplerID
	edgeMode     EdgeMode
	samplerBuilt bool

	offset   Offset
	clip     Region
	strength float32
}

// init builds the pipeline and the initial sampler. self is the concrete
// kernel passed to allocators.
func (u *unary) init(self Unary, device gpucore.GPUAdapter, name, program, debugGroup string, strength float32, opts []Option) error {
	if device == nil {
		return ErrNilDevice
	}

	o := defaultOptions()
	for _, opt := range opts {
		opt(&o)
	}
	if o.label == "" {
		o.label = name
	}

	u.self = self
	u.device = device
	u.name = name
	u.label = o.label
	u.debugGroup = debugGroup
	u.offset = o.offset
	u.clip = o.clip
	u.strength = strength

	p, err := shaders.NewPipeline(device, program)
	if err != nil {
		imgkernel.Logger().Error("kernel: program unavailable",
			"kernel", name, "program", program, "backend", device.Name(), "err", err)
		return fmt.Errorf("%w: %s: %w", ErrPipeline, program, err)
	}
	u.pipeline = p

	if err := u.SetEdgeMode(o.edgeMode); err != nil {
		u.pipeline.Destroy(device)
		u.pipeline = nil
		return err
	}
	return nil
}

func (u *unary) Name() string { return u.name }

func (u *unary) EdgeMode() EdgeMode { return u.edgeMode }

func (u *unary) SetEdgeMode(mode EdgeMode) error {
	if !mode.valid() {
		return fmt.Errorf("%w: %d", ErrInvalidEdgeMode, mode)
	}
	if u.samplerBuilt && mode == u.edgeMode {
		return nil
	}

	desc := mode.samplerDesc(u.label)
	s, err := u.device.CreateSampler(&desc)
	if err != nil {
		return fmt.Errorf("%w: %s: %w", ErrSampler, mode, err)
	}

	old, hadOld := u.sampler, u.samplerBuilt
	u.sampler = s
	u.edgeMode = mode
	u.samplerBuilt = true
	if hadOld {
		u.device.DestroySampler(old)
	}

	imgkernel.Logger().Debug("kernel: sampler built",
		"kernel", u.label, "edge_mode", mode.String(), "address_mode", desc.AddressModeU.String())
	return nil
}

func (u *unary) Offset() Offset { return u.offset }

func (u *unary) SetOffset(off Offset) { u.offset = off }

func (u *unary) ClipRect() Region { return u.clip }

func (u *unary) SetClipRect(r Region) { u.clip = r }

func (u *unary) Strength() float32 { return u.strength }

func (u *unary) SetStrength(s float32) { u.strength = s }

func (u *unary) Encode(cb gpucore.CommandBuffer, src, dst gpucore.Texture) {
	clip := ClipRegion(u.clip, dst.Width(), dst.Height())
	params := NewParams(u.offset, clip, u.strength)
	groups := Threadgroups(clip, ThreadsPerGroup)

	pass := cb.BeginComputePass(u.label)
	pass.PushDebugGroup(u.debugGroup)
	pass.SetPipeline(u.pipeline.Pipeline)
	pass.SetTexture(gpucore.BindingSource, src.ID)
	pass.SetStorageTexture(gpucore.BindingDestination, dst.ID)
	pass.SetSampler(gpucore.BindingSampler, u.sampler)
	pass.SetBytes(gpucore.BindingParams, params.Bytes())
	pass.DispatchThreadgroups(groups, ThreadsPerGroup)
	pass.PopDebugGroup()
	pass.End()

	imgkernel.Logger().Debug("kernel: dispatch encoded",
		"kernel", u.label, "clip", clip.String(), "groups_x", groups.X, "groups_y", groups.Y)
}

func (u *unary) EncodeInPlace(cb gpucore.CommandBuffer, slot *gpucore.Texture, alloc CopyAllocator) (bool, error) {
	if alloc == nil || slot == nil {
		return false, nil
	}

	src := *slot
	dst, err := alloc(u.self, cb, src)
	if err != nil {
		return false, fmt.Errorf("kernel: %s: allocate destination: %w", u.label, err)
	}

	u.Encode(cb, src, dst)
	*slot = dst
	return true, nil
}

func (u *unary) Release() {
	if u.samplerBuilt {
		u.device.DestroySampler(u.sampler)
		u.sampler = gpucore.InvalidID
		u.samplerBuilt = false
	}
	if u.pipeline != nil {
		u.pipeline.Destroy(u.device)
		u.pipeline = nil
	}
}
