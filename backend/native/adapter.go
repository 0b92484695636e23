//go:build !nogpu

package native

import (
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gogpu/gputypes"
	"github.com/gogpu/imgkernel"
	"github.com/gogpu/imgkernel/gpucore"
	"github.com/gogpu/imgkernel/shaders"
	"github.com/gogpu/wgpu/hal"
)

type texture struct {
	desc gpucore.TextureDesc
	raw  hal.Texture
	view hal.TextureView

	// usage is the state the last submitted work left the texture in.
	// Guarded by Adapter.submitMu.
	usage gputypes.TextureUsage
}

// module is a compiled program. zero is the ZERO_EDGE build of the same
// source, nil when the source has no such switch.
type module struct {
	raw  hal.ShaderModule
	zero hal.ShaderModule
}

type sampler struct {
	raw  hal.Sampler
	zero bool
}

type pipeline struct {
	raw           hal.ComputePipeline
	zero          hal.ComputePipeline
	bindLayout    hal.BindGroupLayout
	workgroupSize gpucore.Grid
}

// forSampler returns the pipeline build that honours s's edge addressing.
func (p *pipeline) forSampler(s *sampler) hal.ComputePipeline {
	if s.zero && p.zero != nil {
		return p.zero
	}
	return p.raw
}

type pipelineLayout struct {
	raw     hal.PipelineLayout
	layouts []gpucore.BindGroupLayoutID
}

// Adapter implements gpucore.GPUAdapter on a hal.Device.
//
// Thread safety: Adapter is safe for concurrent use. Resource maps are
// guarded by mu; submissions are serialized by submitMu so that texture
// barriers follow submission order.
type Adapter struct {
	mu       sync.RWMutex
	submitMu sync.Mutex
	nextID   atomic.Uint64
	closed   bool

	name     string
	instance hal.Instance // nil when the device is provided
	device   hal.Device
	queue    hal.Queue
	external bool
	limits   gputypes.Limits
	timeout  time.Duration
	poll     time.Duration
	compile  func(string) ([]uint32, error)

	textures  map[gpucore.TextureID]*texture
	samplers  map[gpucore.SamplerID]*sampler
	modules   map[gpucore.ShaderModuleID]*module
	layouts   map[gpucore.BindGroupLayoutID]hal.BindGroupLayout
	pipeLays  map[gpucore.PipelineLayoutID]*pipelineLayout
	pipelines map[gpucore.ComputePipelineID]*pipeline
}

// New opens a GPU adapter. Without WithDeviceProvider it initializes the
// Vulkan backend and opens the first discrete or integrated GPU.
func New(opts ...Option) (*Adapter, error) {
	o := defaultOptions()
	for _, opt := range opts {
		opt(&o)
	}

	if o.provider != nil {
		device, queue, err := halFromProvider(o.provider)
		if err != nil {
			return nil, err
		}
		a := newAdapter("native (shared)", device, queue, gputypes.DefaultLimits(), o)
		a.external = true
		return a, nil
	}

	b, ok := hal.GetBackend(gputypes.BackendVulkan)
	if !ok {
		return nil, fmt.Errorf("%w: vulkan backend not available", ErrNoGPU)
	}
	instance, err := b.CreateInstance(&hal.InstanceDescriptor{Flags: 0})
	if err != nil {
		return nil, fmt.Errorf("native: create instance: %w", err)
	}
	adapters := instance.EnumerateAdapters(nil)
	if len(adapters) == 0 {
		instance.Destroy()
		return nil, ErrNoGPU
	}
	selected := &adapters[0]
	for i := range adapters {
		if adapters[i].Info.DeviceType == gputypes.DeviceTypeDiscreteGPU ||
			adapters[i].Info.DeviceType == gputypes.DeviceTypeIntegratedGPU {
			selected = &adapters[i]
			break
		}
	}
	limits := gputypes.DefaultLimits()
	openDev, err := selected.Adapter.Open(gputypes.Features(0), limits)
	if err != nil {
		instance.Destroy()
		return nil, fmt.Errorf("native: open device: %w", err)
	}

	a := newAdapter(selected.Info.Name, openDev.Device, openDev.Queue, limits, o)
	a.instance = instance
	imgkernel.Logger().Info("native: GPU adapter opened",
		"name", selected.Info.Name, "type", selected.Info.DeviceType)
	return a, nil
}

// NewFromHAL wraps an open device and queue. The caller keeps ownership of
// the device; Close releases only the adapter's resources.
func NewFromHAL(device hal.Device, queue hal.Queue, limits gputypes.Limits, opts ...Option) *Adapter {
	o := defaultOptions()
	for _, opt := range opts {
		opt(&o)
	}
	a := newAdapter("native", device, queue, limits, o)
	a.external = true
	return a
}

func newAdapter(name string, device hal.Device, queue hal.Queue, limits gputypes.Limits, o options) *Adapter {
	compile := o.compile
	if compile == nil {
		compile = shaders.CompileSPIRV
	}
	return &Adapter{
		name:      name,
		device:    device,
		queue:     queue,
		limits:    limits,
		timeout:   o.timeout,
		poll:      o.poll,
		compile:   compile,
		textures:  make(map[gpucore.TextureID]*texture),
		samplers:  make(map[gpucore.SamplerID]*sampler),
		modules:   make(map[gpucore.ShaderModuleID]*module),
		layouts:   make(map[gpucore.BindGroupLayoutID]hal.BindGroupLayout),
		pipeLays:  make(map[gpucore.PipelineLayoutID]*pipelineLayout),
		pipelines: make(map[gpucore.ComputePipelineID]*pipeline),
	}
}

func halFromProvider(provider any) (hal.Device, hal.Queue, error) {
	type halProvider interface {
		HalDevice() any
		HalQueue() any
	}
	hp, ok := provider.(halProvider)
	if !ok {
		return nil, nil, ErrInvalidProvider
	}
	device, ok := hp.HalDevice().(hal.Device)
	if !ok || device == nil {
		return nil, nil, fmt.Errorf("%w: HalDevice is not hal.Device", ErrInvalidProvider)
	}
	queue, ok := hp.HalQueue().(hal.Queue)
	if !ok || queue == nil {
		return nil, nil, fmt.Errorf("%w: HalQueue is not hal.Queue", ErrInvalidProvider)
	}
	return device, queue, nil
}

func (a *Adapter) id() uint64 {
	return a.nextID.Add(1)
}

// Name returns the GPU name.
func (a *Adapter) Name() string { return a.name }

// SupportsCompute returns true.
func (a *Adapter) SupportsCompute() bool { return true }

// MaxWorkgroupSize returns the device's compute work-group limits.
func (a *Adapter) MaxWorkgroupSize() [3]uint32 {
	return [3]uint32{
		a.limits.MaxComputeWorkgroupSizeX,
		a.limits.MaxComputeWorkgroupSizeY,
		a.limits.MaxComputeWorkgroupSizeZ,
	}
}

// === Shader Compilation ===

// CreateShaderModule compiles the WGSL source to SPIR-V and creates a
// module from it. Sources carrying the ZERO_EDGE switch are also built with
// the switch on, for samplers that clamp to zero.
func (a *Adapter) CreateShaderModule(desc *gpucore.ShaderModuleDesc) (gpucore.ShaderModuleID, error) {
	if desc == nil || desc.WGSL == "" {
		return gpucore.InvalidID, fmt.Errorf("%w: empty shader source", gpucore.ErrInvalidDescriptor)
	}
	if err := a.checkOpen(); err != nil {
		return gpucore.InvalidID, err
	}

	m := &module{}
	raw, err := a.buildModule(desc.Label, desc.WGSL)
	if err != nil {
		return gpucore.InvalidID, err
	}
	m.raw = raw
	if variant, ok := shaders.ZeroEdgeVariant(desc.WGSL); ok {
		m.zero, err = a.buildModule(desc.Label+" zero edge", variant)
		if err != nil {
			a.device.DestroyShaderModule(m.raw)
			return gpucore.InvalidID, err
		}
	}

	id := gpucore.ShaderModuleID(a.id())
	a.mu.Lock()
	a.modules[id] = m
	a.mu.Unlock()
	return id, nil
}

func (a *Adapter) buildModule(label, wgsl string) (hal.ShaderModule, error) {
	spirv, err := a.compile(wgsl)
	if err != nil {
		return nil, fmt.Errorf("native: shader %q: %w", label, err)
	}
	m, err := a.device.CreateShaderModule(&hal.ShaderModuleDescriptor{
		Label:  label,
		Source: hal.ShaderSource{SPIRV: spirv},
	})
	if err != nil {
		return nil, fmt.Errorf("native: create shader module: %w", err)
	}
	return m, nil
}

func (a *Adapter) DestroyShaderModule(id gpucore.ShaderModuleID) {
	a.mu.Lock()
	m, ok := a.modules[id]
	if ok {
		delete(a.modules, id)
	}
	a.mu.Unlock()

	if ok {
		a.destroyModule(m)
	}
}

func (a *Adapter) destroyModule(m *module) {
	if m.zero != nil {
		a.device.DestroyShaderModule(m.zero)
	}
	a.device.DestroyShaderModule(m.raw)
}

// === Textures ===

func (a *Adapter) CreateTexture(desc *gpucore.TextureDesc) (gpucore.Texture, error) {
	if err := desc.Validate(); err != nil {
		return gpucore.Texture{}, err
	}
	format, err := convertTextureFormat(desc.Format)
	if err != nil {
		return gpucore.Texture{}, err
	}
	if err := a.checkOpen(); err != nil {
		return gpucore.Texture{}, err
	}

	raw, err := a.device.CreateTexture(&hal.TextureDescriptor{
		Label:         desc.Label,
		Size:          hal.Extent3D{Width: uint32(desc.Width), Height: uint32(desc.Height), DepthOrArrayLayers: 1},
		MipLevelCount: 1,
		SampleCount:   1,
		Dimension:     gputypes.TextureDimension2D,
		Format:        format,
		Usage:         convertTextureUsage(desc.Usage),
	})
	if err != nil {
		return gpucore.Texture{}, fmt.Errorf("native: create texture: %w", err)
	}
	view, err := a.device.CreateTextureView(raw, &hal.TextureViewDescriptor{
		Label:           desc.Label,
		Format:          format,
		Dimension:       gputypes.TextureViewDimension2D,
		Aspect:          gputypes.TextureAspectAll,
		MipLevelCount:   1,
		ArrayLayerCount: 1,
	})
	if err != nil {
		a.device.DestroyTexture(raw)
		return gpucore.Texture{}, fmt.Errorf("native: create texture view: %w", err)
	}

	id := gpucore.TextureID(a.id())
	a.mu.Lock()
	a.textures[id] = &texture{desc: *desc, raw: raw, view: view}
	a.mu.Unlock()
	return gpucore.Texture{ID: id, Desc: *desc}, nil
}

func (a *Adapter) DestroyTexture(id gpucore.TextureID) {
	a.mu.Lock()
	t, ok := a.textures[id]
	if ok {
		delete(a.textures, id)
	}
	a.mu.Unlock()

	if ok {
		a.device.DestroyTextureView(t.view)
		a.device.DestroyTexture(t.raw)
	}
}

func (a *Adapter) texture(id gpucore.TextureID) (*texture, error) {
	a.mu.RLock()
	defer a.mu.RUnlock()
	t, ok := a.textures[id]
	if !ok {
		return nil, fmt.Errorf("%w: texture %d", gpucore.ErrResourceNotFound, id)
	}
	return t, nil
}

// === Samplers ===

// CreateSampler creates a sampler. The hal sampler of an
// AddressModeClampToZero descriptor clamps to edge; dispatches bound to it
// run the ZERO_EDGE build of their pipeline instead.
func (a *Adapter) CreateSampler(desc *gpucore.SamplerDesc) (gpucore.SamplerID, error) {
	hd, err := convertSampler(desc)
	if err != nil {
		return gpucore.InvalidID, err
	}
	if err := a.checkOpen(); err != nil {
		return gpucore.InvalidID, err
	}

	s, err := a.device.CreateSampler(hd)
	if err != nil {
		return gpucore.InvalidID, fmt.Errorf("native: create sampler: %w", err)
	}
	id := gpucore.SamplerID(a.id())
	a.mu.Lock()
	a.samplers[id] = &sampler{raw: s, zero: desc.ClampsToZero()}
	a.mu.Unlock()
	return id, nil
}

func (a *Adapter) DestroySampler(id gpucore.SamplerID) {
	a.mu.Lock()
	s, ok := a.samplers[id]
	if ok {
		delete(a.samplers, id)
	}
	a.mu.Unlock()

	if ok {
		a.device.DestroySampler(s.raw)
	}
}

// === Layouts and Pipelines ===

func (a *Adapter) CreateBindGroupLayout(desc *gpucore.BindGroupLayoutDesc) (gpucore.BindGroupLayoutID, error) {
	if desc == nil {
		return gpucore.InvalidID, fmt.Errorf("%w: nil bind group layout", gpucore.ErrInvalidDescriptor)
	}
	entries := make([]gputypes.BindGroupLayoutEntry, 0, len(desc.Entries))
	for _, e := range desc.Entries {
		entry, err := convertBindGroupLayoutEntry(e)
		if err != nil {
			return gpucore.InvalidID, err
		}
		entries = append(entries, entry)
	}
	if err := a.checkOpen(); err != nil {
		return gpucore.InvalidID, err
	}

	layout, err := a.device.CreateBindGroupLayout(&hal.BindGroupLayoutDescriptor{
		Label:   desc.Label,
		Entries: entries,
	})
	if err != nil {
		return gpucore.InvalidID, fmt.Errorf("native: create bind group layout: %w", err)
	}
	id := gpucore.BindGroupLayoutID(a.id())
	a.mu.Lock()
	a.layouts[id] = layout
	a.mu.Unlock()
	return id, nil
}

func (a *Adapter) DestroyBindGroupLayout(id gpucore.BindGroupLayoutID) {
	a.mu.Lock()
	layout, ok := a.layouts[id]
	if ok {
		delete(a.layouts, id)
	}
	a.mu.Unlock()

	if ok {
		a.device.DestroyBindGroupLayout(layout)
	}
}

func (a *Adapter) CreatePipelineLayout(layouts []gpucore.BindGroupLayoutID) (gpucore.PipelineLayoutID, error) {
	a.mu.RLock()
	halLayouts := make([]hal.BindGroupLayout, 0, len(layouts))
	for _, id := range layouts {
		l, ok := a.layouts[id]
		if !ok {
			a.mu.RUnlock()
			return gpucore.InvalidID, fmt.Errorf("%w: bind group layout %d", gpucore.ErrResourceNotFound, id)
		}
		halLayouts = append(halLayouts, l)
	}
	closed := a.closed
	a.mu.RUnlock()
	if closed {
		return gpucore.InvalidID, gpucore.ErrAdapterClosed
	}

	raw, err := a.device.CreatePipelineLayout(&hal.PipelineLayoutDescriptor{
		BindGroupLayouts: halLayouts,
	})
	if err != nil {
		return gpucore.InvalidID, fmt.Errorf("native: create pipeline layout: %w", err)
	}
	id := gpucore.PipelineLayoutID(a.id())
	a.mu.Lock()
	a.pipeLays[id] = &pipelineLayout{raw: raw, layouts: append([]gpucore.BindGroupLayoutID(nil), layouts...)}
	a.mu.Unlock()
	return id, nil
}

func (a *Adapter) DestroyPipelineLayout(id gpucore.PipelineLayoutID) {
	a.mu.Lock()
	pl, ok := a.pipeLays[id]
	if ok {
		delete(a.pipeLays, id)
	}
	a.mu.Unlock()

	if ok {
		a.device.DestroyPipelineLayout(pl.raw)
	}
}

// CreateComputePipeline creates a pipeline. Dispatches bind group 0 of the
// pipeline layout, so the layout must have exactly one bind group layout.
func (a *Adapter) CreateComputePipeline(desc *gpucore.ComputePipelineDesc) (gpucore.ComputePipelineID, error) {
	if desc == nil || desc.EntryPoint == "" {
		return gpucore.InvalidID, fmt.Errorf("%w: compute pipeline needs an entry point", gpucore.ErrInvalidDescriptor)
	}

	a.mu.RLock()
	m, okM := a.modules[desc.ShaderModule]
	pl, okL := a.pipeLays[desc.Layout]
	var bindLayout hal.BindGroupLayout
	if okL && len(pl.layouts) == 1 {
		bindLayout = a.layouts[pl.layouts[0]]
	}
	closed := a.closed
	a.mu.RUnlock()
	switch {
	case closed:
		return gpucore.InvalidID, gpucore.ErrAdapterClosed
	case !okM:
		return gpucore.InvalidID, fmt.Errorf("%w: shader module %d", gpucore.ErrResourceNotFound, desc.ShaderModule)
	case !okL:
		return gpucore.InvalidID, fmt.Errorf("%w: pipeline layout %d", gpucore.ErrResourceNotFound, desc.Layout)
	case bindLayout == nil:
		return gpucore.InvalidID, fmt.Errorf("%w: pipeline layout %d must hold one bind group layout",
			gpucore.ErrInvalidDescriptor, desc.Layout)
	}

	p := &pipeline{bindLayout: bindLayout, workgroupSize: desc.WorkgroupSize}
	var err error
	p.raw, err = a.buildPipeline(desc.Label, pl.raw, m.raw, desc.EntryPoint)
	if err != nil {
		return gpucore.InvalidID, err
	}
	if m.zero != nil {
		p.zero, err = a.buildPipeline(desc.Label+" zero edge", pl.raw, m.zero, desc.EntryPoint)
		if err != nil {
			a.device.DestroyComputePipeline(p.raw)
			return gpucore.InvalidID, err
		}
	}

	id := gpucore.ComputePipelineID(a.id())
	a.mu.Lock()
	a.pipelines[id] = p
	a.mu.Unlock()
	return id, nil
}

func (a *Adapter) buildPipeline(label string, layout hal.PipelineLayout, m hal.ShaderModule, entry string) (hal.ComputePipeline, error) {
	raw, err := a.device.CreateComputePipeline(&hal.ComputePipelineDescriptor{
		Label:  label,
		Layout: layout,
		Compute: hal.ComputeState{
			Module:     m,
			EntryPoint: entry,
		},
	})
	if err != nil {
		return nil, fmt.Errorf("native: create compute pipeline %q: %w", label, err)
	}
	return raw, nil
}

func (a *Adapter) destroyPipeline(p *pipeline) {
	if p.zero != nil {
		a.device.DestroyComputePipeline(p.zero)
	}
	a.device.DestroyComputePipeline(p.raw)
}

func (a *Adapter) DestroyComputePipeline(id gpucore.ComputePipelineID) {
	a.mu.Lock()
	p, ok := a.pipelines[id]
	if ok {
		delete(a.pipelines, id)
	}
	a.mu.Unlock()

	if ok {
		a.destroyPipeline(p)
	}
}

// === Lifecycle ===

func (a *Adapter) checkOpen() error {
	a.mu.RLock()
	defer a.mu.RUnlock()
	if a.closed {
		return gpucore.ErrAdapterClosed
	}
	return nil
}

// WaitIdle blocks until the device has finished all submitted work.
func (a *Adapter) WaitIdle() {
	if err := a.device.WaitIdle(); err != nil {
		imgkernel.Logger().Warn("native: wait idle failed", "err", err)
	}
}

// Close waits for the device, releases every resource the adapter still
// owns and, when the adapter opened the device itself, destroys it.
func (a *Adapter) Close() error {
	a.mu.Lock()
	if a.closed {
		a.mu.Unlock()
		return nil
	}
	a.closed = true
	a.mu.Unlock()

	a.submitMu.Lock()
	defer a.submitMu.Unlock()
	a.WaitIdle()

	a.mu.Lock()
	defer a.mu.Unlock()
	for id, p := range a.pipelines {
		a.destroyPipeline(p)
		delete(a.pipelines, id)
	}
	for id, pl := range a.pipeLays {
		a.device.DestroyPipelineLayout(pl.raw)
		delete(a.pipeLays, id)
	}
	for id, l := range a.layouts {
		a.device.DestroyBindGroupLayout(l)
		delete(a.layouts, id)
	}
	for id, m := range a.modules {
		a.destroyModule(m)
		delete(a.modules, id)
	}
	for id, s := range a.samplers {
		a.device.DestroySampler(s.raw)
		delete(a.samplers, id)
	}
	for id, t := range a.textures {
		a.device.DestroyTextureView(t.view)
		a.device.DestroyTexture(t.raw)
		delete(a.textures, id)
	}

	if !a.external {
		a.device.Destroy()
	}
	if a.instance != nil {
		a.instance.Destroy()
		a.instance = nil
	}
	imgkernel.Logger().Debug("native: adapter closed", "name", a.name)
	return nil
}

var _ gpucore.GPUAdapter = (*Adapter)(nil)
