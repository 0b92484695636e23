//go:build !nogpu

package webgpu

import (
	"errors"
	"fmt"
	"sync"
	"sync/atomic"

	"github.com/cogentcore/webgpu/wgpu"
	"github.com/gogpu/imgkernel"
	"github.com/gogpu/imgkernel/gpucore"
	"github.com/gogpu/imgkernel/shaders"
)

// ErrNoAdapter is returned when wgpu-native reports no usable adapter.
var ErrNoAdapter = errors.New("webgpu: no adapter available")

type texture struct {
	desc gpucore.TextureDesc
	raw  *wgpu.Texture
	view *wgpu.TextureView
}

// module holds a program and, when its source has a ZERO_EDGE switch, the
// build with the switch on.
type module struct {
	raw  *wgpu.ShaderModule
	zero *wgpu.ShaderModule
}

func (m *module) release() {
	if m.zero != nil {
		m.zero.Release()
	}
	m.raw.Release()
}

type sampler struct {
	raw  *wgpu.Sampler
	zero bool
}

type pipeline struct {
	raw           *wgpu.ComputePipeline
	zero          *wgpu.ComputePipeline
	bindLayout    *wgpu.BindGroupLayout
	workgroupSize gpucore.Grid
}

// forSampler returns the pipeline build that honours s's edge addressing.
func (p *pipeline) forSampler(s *sampler) *wgpu.ComputePipeline {
	if s.zero && p.zero != nil {
		return p.zero
	}
	return p.raw
}

func (p *pipeline) release() {
	if p.zero != nil {
		p.zero.Release()
	}
	p.raw.Release()
}

type pipelineLayout struct {
	raw     *wgpu.PipelineLayout
	layouts []gpucore.BindGroupLayoutID
}

// Adapter implements gpucore.GPUAdapter on a wgpu-native device.
//
// Thread safety: Adapter is safe for concurrent use. Queue access is
// serialized by queueMu.
type Adapter struct {
	mu      sync.RWMutex
	queueMu sync.Mutex
	nextID  atomic.Uint64
	closed  bool

	instance *wgpu.Instance
	adapter  *wgpu.Adapter
	device   *wgpu.Device
	queue    *wgpu.Queue
	limits   wgpu.Limits

	textures  map[gpucore.TextureID]*texture
	samplers  map[gpucore.SamplerID]*sampler
	modules   map[gpucore.ShaderModuleID]*module
	layouts   map[gpucore.BindGroupLayoutID]*wgpu.BindGroupLayout
	pipeLays  map[gpucore.PipelineLayoutID]*pipelineLayout
	pipelines map[gpucore.ComputePipelineID]*pipeline
}

// New requests an adapter and device from wgpu-native.
func New() (*Adapter, error) {
	instance := wgpu.CreateInstance(nil)
	adapter, err := instance.RequestAdapter(&wgpu.RequestAdapterOptions{
		PowerPreference: wgpu.PowerPreferenceHighPerformance,
	})
	if err != nil {
		instance.Release()
		return nil, fmt.Errorf("%w: %w", ErrNoAdapter, err)
	}

	limits := wgpu.DefaultLimits()
	device, err := adapter.RequestDevice(&wgpu.DeviceDescriptor{
		Label: "imgkernel",
		RequiredLimits: &wgpu.RequiredLimits{
			Limits: limits,
		},
	})
	if err != nil {
		adapter.Release()
		instance.Release()
		return nil, fmt.Errorf("webgpu: request device: %w", err)
	}

	a := &Adapter{
		instance:  instance,
		adapter:   adapter,
		device:    device,
		queue:     device.GetQueue(),
		limits:    limits,
		textures:  make(map[gpucore.TextureID]*texture),
		samplers:  make(map[gpucore.SamplerID]*sampler),
		modules:   make(map[gpucore.ShaderModuleID]*module),
		layouts:   make(map[gpucore.BindGroupLayoutID]*wgpu.BindGroupLayout),
		pipeLays:  make(map[gpucore.PipelineLayoutID]*pipelineLayout),
		pipelines: make(map[gpucore.ComputePipelineID]*pipeline),
	}
	imgkernel.Logger().Info("webgpu: device opened")
	return a, nil
}

func (a *Adapter) id() uint64 {
	return a.nextID.Add(1)
}

// Name returns "webgpu".
func (a *Adapter) Name() string { return "webgpu" }

// SupportsCompute returns true.
func (a *Adapter) SupportsCompute() bool { return true }

// MaxWorkgroupSize returns the device's requested work-group limits.
func (a *Adapter) MaxWorkgroupSize() [3]uint32 {
	return [3]uint32{
		a.limits.MaxComputeWorkgroupSizeX,
		a.limits.MaxComputeWorkgroupSizeY,
		a.limits.MaxComputeWorkgroupSizeZ,
	}
}

func (a *Adapter) checkOpen() error {
	a.mu.RLock()
	defer a.mu.RUnlock()
	if a.closed {
		return gpucore.ErrAdapterClosed
	}
	return nil
}

// CreateShaderModule hands the WGSL source to wgpu-native. Sources carrying
// the ZERO_EDGE switch are also built with the switch on, for samplers that
// clamp to zero.
func (a *Adapter) CreateShaderModule(desc *gpucore.ShaderModuleDesc) (gpucore.ShaderModuleID, error) {
	if desc == nil || desc.WGSL == "" {
		return gpucore.InvalidID, fmt.Errorf("%w: empty shader source", gpucore.ErrInvalidDescriptor)
	}
	if err := a.checkOpen(); err != nil {
		return gpucore.InvalidID, err
	}
	m := &module{}
	var err error
	m.raw, err = a.buildModule(desc.Label, desc.WGSL)
	if err != nil {
		return gpucore.InvalidID, err
	}
	if variant, ok := shaders.ZeroEdgeVariant(desc.WGSL); ok {
		m.zero, err = a.buildModule(desc.Label+" zero edge", variant)
		if err != nil {
			m.raw.Release()
			return gpucore.InvalidID, err
		}
	}
	id := gpucore.ShaderModuleID(a.id())
	a.mu.Lock()
	a.modules[id] = m
	a.mu.Unlock()
	return id, nil
}

func (a *Adapter) buildModule(label, wgsl string) (*wgpu.ShaderModule, error) {
	m, err := a.device.CreateShaderModule(&wgpu.ShaderModuleDescriptor{
		Label: label,
		WGSLDescriptor: &wgpu.ShaderModuleWGSLDescriptor{
			Code: wgsl,
		},
	})
	if err != nil {
		return nil, fmt.Errorf("webgpu: create shader module %q: %w", label, err)
	}
	return m, nil
}

func (a *Adapter) DestroyShaderModule(id gpucore.ShaderModuleID) {
	a.mu.Lock()
	m, ok := a.modules[id]
	delete(a.modules, id)
	a.mu.Unlock()
	if ok {
		m.release()
	}
}

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

	raw, err := a.device.CreateTexture(&wgpu.TextureDescriptor{
		Label:     desc.Label,
		Usage:     convertTextureUsage(desc.Usage),
		Dimension: wgpu.TextureDimension2D,
		Size: wgpu.Extent3D{
			Width:              uint32(desc.Width),
			Height:             uint32(desc.Height),
			DepthOrArrayLayers: 1,
		},
		Format:        format,
		MipLevelCount: 1,
		SampleCount:   1,
	})
	if err != nil {
		return gpucore.Texture{}, fmt.Errorf("webgpu: create texture: %w", err)
	}
	view, err := raw.CreateView(nil)
	if err != nil {
		raw.Release()
		return gpucore.Texture{}, fmt.Errorf("webgpu: create texture view: %w", err)
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
	delete(a.textures, id)
	a.mu.Unlock()
	if ok {
		t.view.Release()
		t.raw.Release()
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

// CreateSampler creates a sampler. The wgpu sampler of an
// AddressModeClampToZero descriptor clamps to edge; dispatches bound to it
// run the ZERO_EDGE build of their pipeline instead.
func (a *Adapter) CreateSampler(desc *gpucore.SamplerDesc) (gpucore.SamplerID, error) {
	sd, err := convertSampler(desc)
	if err != nil {
		return gpucore.InvalidID, err
	}
	if err := a.checkOpen(); err != nil {
		return gpucore.InvalidID, err
	}
	s, err := a.device.CreateSampler(sd)
	if err != nil {
		return gpucore.InvalidID, fmt.Errorf("webgpu: create sampler: %w", err)
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
	delete(a.samplers, id)
	a.mu.Unlock()
	if ok {
		s.raw.Release()
	}
}

func (a *Adapter) CreateBindGroupLayout(desc *gpucore.BindGroupLayoutDesc) (gpucore.BindGroupLayoutID, error) {
	if desc == nil {
		return gpucore.InvalidID, fmt.Errorf("%w: nil bind group layout", gpucore.ErrInvalidDescriptor)
	}
	entries := make([]wgpu.BindGroupLayoutEntry, 0, len(desc.Entries))
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
	layout, err := a.device.CreateBindGroupLayout(&wgpu.BindGroupLayoutDescriptor{
		Label:   desc.Label,
		Entries: entries,
	})
	if err != nil {
		return gpucore.InvalidID, fmt.Errorf("webgpu: create bind group layout: %w", err)
	}
	id := gpucore.BindGroupLayoutID(a.id())
	a.mu.Lock()
	a.layouts[id] = layout
	a.mu.Unlock()
	return id, nil
}

func (a *Adapter) DestroyBindGroupLayout(id gpucore.BindGroupLayoutID) {
	a.mu.Lock()
	l, ok := a.layouts[id]
	delete(a.layouts, id)
	a.mu.Unlock()
	if ok {
		l.Release()
	}
}

func (a *Adapter) CreatePipelineLayout(layouts []gpucore.BindGroupLayoutID) (gpucore.PipelineLayoutID, error) {
	a.mu.RLock()
	wl := make([]*wgpu.BindGroupLayout, 0, len(layouts))
	for _, id := range layouts {
		l, ok := a.layouts[id]
		if !ok {
			a.mu.RUnlock()
			return gpucore.InvalidID, fmt.Errorf("%w: bind group layout %d", gpucore.ErrResourceNotFound, id)
		}
		wl = append(wl, l)
	}
	closed := a.closed
	a.mu.RUnlock()
	if closed {
		return gpucore.InvalidID, gpucore.ErrAdapterClosed
	}

	raw, err := a.device.CreatePipelineLayout(&wgpu.PipelineLayoutDescriptor{
		BindGroupLayouts: wl,
	})
	if err != nil {
		return gpucore.InvalidID, fmt.Errorf("webgpu: create pipeline layout: %w", err)
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
	delete(a.pipeLays, id)
	a.mu.Unlock()
	if ok {
		pl.raw.Release()
	}
}

// CreateComputePipeline creates a pipeline whose layout holds exactly one
// bind group layout.
func (a *Adapter) CreateComputePipeline(desc *gpucore.ComputePipelineDesc) (gpucore.ComputePipelineID, error) {
	if desc == nil || desc.EntryPoint == "" {
		return gpucore.InvalidID, fmt.Errorf("%w: compute pipeline needs an entry point", gpucore.ErrInvalidDescriptor)
	}

	a.mu.RLock()
	m, okM := a.modules[desc.ShaderModule]
	pl, okL := a.pipeLays[desc.Layout]
	var bindLayout *wgpu.BindGroupLayout
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
			p.raw.Release()
			return gpucore.InvalidID, err
		}
	}
	id := gpucore.ComputePipelineID(a.id())
	a.mu.Lock()
	a.pipelines[id] = p
	a.mu.Unlock()
	return id, nil
}

func (a *Adapter) buildPipeline(label string, layout *wgpu.PipelineLayout, m *wgpu.ShaderModule, entry string) (*wgpu.ComputePipeline, error) {
	raw, err := a.device.CreateComputePipeline(&wgpu.ComputePipelineDescriptor{
		Label:  label,
		Layout: layout,
		Compute: wgpu.ProgrammableStageDescriptor{
			Module:     m,
			EntryPoint: entry,
		},
	})
	if err != nil {
		return nil, fmt.Errorf("webgpu: create compute pipeline %q: %w", label, err)
	}
	return raw, nil
}

func (a *Adapter) DestroyComputePipeline(id gpucore.ComputePipelineID) {
	a.mu.Lock()
	p, ok := a.pipelines[id]
	delete(a.pipelines, id)
	a.mu.Unlock()
	if ok {
		p.release()
	}
}

// WaitIdle blocks until the queue is empty.
func (a *Adapter) WaitIdle() {
	a.device.Poll(true, nil)
}

// Close waits for the device and releases everything the adapter owns.
func (a *Adapter) Close() error {
	a.mu.Lock()
	if a.closed {
		a.mu.Unlock()
		return nil
	}
	a.closed = true
	a.mu.Unlock()

	a.queueMu.Lock()
	defer a.queueMu.Unlock()
	a.WaitIdle()

	a.mu.Lock()
	defer a.mu.Unlock()
	for id, p := range a.pipelines {
		p.release()
		delete(a.pipelines, id)
	}
	for id, pl := range a.pipeLays {
		pl.raw.Release()
		delete(a.pipeLays, id)
	}
	for id, l := range a.layouts {
		l.Release()
		delete(a.layouts, id)
	}
	for id, m := range a.modules {
		m.release()
		delete(a.modules, id)
	}
	for id, s := range a.samplers {
		s.raw.Release()
		delete(a.samplers, id)
	}
	for id, t := range a.textures {
		t.view.Release()
		t.raw.Release()
		delete(a.textures, id)
	}
	a.queue.Release()
	a.device.Release()
	a.adapter.Release()
	a.instance.Release()
	imgkernel.Logger().Debug("webgpu: adapter closed")
	return nil
}

var _ gpucore.GPUAdapter = (*Adapter)(nil)
