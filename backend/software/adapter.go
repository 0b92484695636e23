package software

import (
	"fmt"
	"sync"
	"sync/atomic"

	"github.com/gogpu/imgkernel"
	"github.com/gogpu/imgkernel/gpucore"
	"github.com/gogpu/imgkernel/internal/parallel"
)

type pipeline struct {
	desc    gpucore.ComputePipelineDesc
	program program
}

// Adapter is a CPU implementation of gpucore.GPUAdapter.
//
// Thread safety: Adapter is safe for concurrent use.
type Adapter struct {
	mu     sync.RWMutex
	nextID atomic.Uint64
	closed bool

	textures  map[gpucore.TextureID]*texture
	samplers  map[gpucore.SamplerID]*sampler
	modules   map[gpucore.ShaderModuleID]gpucore.ShaderModuleDesc
	layouts   map[gpucore.BindGroupLayoutID]gpucore.BindGroupLayoutDesc
	pipeLays  map[gpucore.PipelineLayoutID][]gpucore.BindGroupLayoutID
	pipelines map[gpucore.ComputePipelineID]*pipeline

	pool    *parallel.WorkerPool
	queue   chan *commandBuffer
	stopped chan struct{}

	// pending counts committed command buffers not yet executed.
	pendMu  sync.Mutex
	idle    *sync.Cond
	pending int
}

// New creates a software adapter and starts its executor.
func New(opts ...Option) (*Adapter, error) {
	o := defaultOptions()
	for _, opt := range opts {
		opt(&o)
	}

	a := &Adapter{
		textures:  make(map[gpucore.TextureID]*texture),
		samplers:  make(map[gpucore.SamplerID]*sampler),
		modules:   make(map[gpucore.ShaderModuleID]gpucore.ShaderModuleDesc),
		layouts:   make(map[gpucore.BindGroupLayoutID]gpucore.BindGroupLayoutDesc),
		pipeLays:  make(map[gpucore.PipelineLayoutID][]gpucore.BindGroupLayoutID),
		pipelines: make(map[gpucore.ComputePipelineID]*pipeline),
		pool:      parallel.NewWorkerPool(o.workers),
		queue:     make(chan *commandBuffer, o.queueSize),
		stopped:   make(chan struct{}),
	}
	a.idle = sync.NewCond(&a.pendMu)
	go a.run()

	imgkernel.Logger().Debug("software: adapter created", "workers", a.pool.Workers())
	return a, nil
}

func (a *Adapter) id() uint64 {
	return a.nextID.Add(1)
}

// Name returns "software".
func (a *Adapter) Name() string { return "software" }

// SupportsCompute returns true.
func (a *Adapter) SupportsCompute() bool { return true }

// MaxWorkgroupSize returns the WebGPU default limits.
func (a *Adapter) MaxWorkgroupSize() [3]uint32 { return [3]uint32{256, 256, 64} }

// CreateShaderModule records the module. The WGSL is not compiled; the
// pipeline's entry point selects a CPU program.
func (a *Adapter) CreateShaderModule(desc *gpucore.ShaderModuleDesc) (gpucore.ShaderModuleID, error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.closed {
		return gpucore.InvalidID, gpucore.ErrAdapterClosed
	}
	id := gpucore.ShaderModuleID(a.id())
	a.modules[id] = *desc
	return id, nil
}

func (a *Adapter) DestroyShaderModule(id gpucore.ShaderModuleID) {
	a.mu.Lock()
	defer a.mu.Unlock()
	delete(a.modules, id)
}

func (a *Adapter) CreateTexture(desc *gpucore.TextureDesc) (gpucore.Texture, error) {
	t, err := newTexture(desc)
	if err != nil {
		return gpucore.Texture{}, err
	}

	a.mu.Lock()
	defer a.mu.Unlock()
	if a.closed {
		return gpucore.Texture{}, gpucore.ErrAdapterClosed
	}
	id := gpucore.TextureID(a.id())
	a.textures[id] = t
	return gpucore.Texture{ID: id, Desc: *desc}, nil
}

func (a *Adapter) DestroyTexture(id gpucore.TextureID) {
	a.mu.Lock()
	defer a.mu.Unlock()
	delete(a.textures, id)
}

// WriteTexture replaces the texture's contents. data holds tightly packed
// rows in the texture's format.
func (a *Adapter) WriteTexture(tex gpucore.Texture, data []byte) error {
	t, err := a.texture(tex.ID)
	if err != nil {
		return err
	}
	t.mu.Lock()
	defer t.mu.Unlock()
	if len(data) != len(t.data) {
		return fmt.Errorf("%w: write of %d bytes to %dx%d texture",
			gpucore.ErrInvalidDescriptor, len(data), t.desc.Width, t.desc.Height)
	}
	copy(t.data, data)
	return nil
}

// ReadTexture returns a copy of the texture's contents as tightly packed
// rows in the texture's format.
func (a *Adapter) ReadTexture(tex gpucore.Texture) ([]byte, error) {
	t, err := a.texture(tex.ID)
	if err != nil {
		return nil, err
	}
	t.mu.RLock()
	defer t.mu.RUnlock()
	return append([]byte(nil), t.data...), nil
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

func (a *Adapter) CreateSampler(desc *gpucore.SamplerDesc) (gpucore.SamplerID, error) {
	s, err := newSampler(desc)
	if err != nil {
		return gpucore.InvalidID, err
	}

	a.mu.Lock()
	defer a.mu.Unlock()
	if a.closed {
		return gpucore.InvalidID, gpucore.ErrAdapterClosed
	}
	id := gpucore.SamplerID(a.id())
	a.samplers[id] = s
	return id, nil
}

func (a *Adapter) DestroySampler(id gpucore.SamplerID) {
	a.mu.Lock()
	defer a.mu.Unlock()
	delete(a.samplers, id)
}

func (a *Adapter) CreateBindGroupLayout(desc *gpucore.BindGroupLayoutDesc) (gpucore.BindGroupLayoutID, error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.closed {
		return gpucore.InvalidID, gpucore.ErrAdapterClosed
	}
	id := gpucore.BindGroupLayoutID(a.id())
	a.layouts[id] = *desc
	return id, nil
}

func (a *Adapter) DestroyBindGroupLayout(id gpucore.BindGroupLayoutID) {
	a.mu.Lock()
	defer a.mu.Unlock()
	delete(a.layouts, id)
}

func (a *Adapter) CreatePipelineLayout(layouts []gpucore.BindGroupLayoutID) (gpucore.PipelineLayoutID, error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.closed {
		return gpucore.InvalidID, gpucore.ErrAdapterClosed
	}
	for _, l := range layouts {
		if _, ok := a.layouts[l]; !ok {
			return gpucore.InvalidID, fmt.Errorf("%w: bind group layout %d", gpucore.ErrResourceNotFound, l)
		}
	}
	id := gpucore.PipelineLayoutID(a.id())
	a.pipeLays[id] = append([]gpucore.BindGroupLayoutID(nil), layouts...)
	return id, nil
}

func (a *Adapter) DestroyPipelineLayout(id gpucore.PipelineLayoutID) {
	a.mu.Lock()
	defer a.mu.Unlock()
	delete(a.pipeLays, id)
}

// CreateComputePipeline binds the pipeline to the CPU port of its entry
// point. Unknown entry points fail with gpucore.ErrInvalidDescriptor.
func (a *Adapter) CreateComputePipeline(desc *gpucore.ComputePipelineDesc) (gpucore.ComputePipelineID, error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.closed {
		return gpucore.InvalidID, gpucore.ErrAdapterClosed
	}
	if _, ok := a.modules[desc.ShaderModule]; !ok {
		return gpucore.InvalidID, fmt.Errorf("%w: shader module %d", gpucore.ErrResourceNotFound, desc.ShaderModule)
	}
	if _, ok := a.pipeLays[desc.Layout]; !ok {
		return gpucore.InvalidID, fmt.Errorf("%w: pipeline layout %d", gpucore.ErrResourceNotFound, desc.Layout)
	}
	prog, ok := programs[desc.EntryPoint]
	if !ok {
		return gpucore.InvalidID, fmt.Errorf("%w: no software program for entry point %q",
			gpucore.ErrInvalidDescriptor, desc.EntryPoint)
	}
	id := gpucore.ComputePipelineID(a.id())
	a.pipelines[id] = &pipeline{desc: *desc, program: prog}
	return id, nil
}

func (a *Adapter) DestroyComputePipeline(id gpucore.ComputePipelineID) {
	a.mu.Lock()
	defer a.mu.Unlock()
	delete(a.pipelines, id)
}

func (a *Adapter) NewCommandBuffer(label string) (gpucore.CommandBuffer, error) {
	a.mu.RLock()
	defer a.mu.RUnlock()
	if a.closed {
		return nil, gpucore.ErrAdapterClosed
	}
	return &commandBuffer{adapter: a, label: label, done: make(chan struct{})}, nil
}

// WaitIdle blocks until every committed command buffer has executed.
func (a *Adapter) WaitIdle() {
	a.pendMu.Lock()
	defer a.pendMu.Unlock()
	for a.pending > 0 {
		a.idle.Wait()
	}
}

// Close waits for committed work, stops the executor and releases all
// resources. Close is safe to call multiple times.
func (a *Adapter) Close() error {
	a.mu.Lock()
	if a.closed {
		a.mu.Unlock()
		return nil
	}
	a.closed = true
	a.mu.Unlock()

	a.WaitIdle()
	close(a.queue)
	<-a.stopped
	a.pool.Close()

	a.mu.Lock()
	clear(a.textures)
	clear(a.samplers)
	clear(a.modules)
	clear(a.layouts)
	clear(a.pipeLays)
	clear(a.pipelines)
	a.mu.Unlock()

	imgkernel.Logger().Debug("software: adapter closed")
	return nil
}

// submit queues cb for execution. It fails once Close has started. The
// send happens outside a.mu so a full queue cannot block the executor's
// resource lookups.
func (a *Adapter) submit(cb *commandBuffer) error {
	a.mu.RLock()
	if a.closed {
		a.mu.RUnlock()
		return gpucore.ErrAdapterClosed
	}
	a.pendMu.Lock()
	a.pending++
	a.pendMu.Unlock()
	a.mu.RUnlock()

	a.queue <- cb
	return nil
}

// run executes committed command buffers in order.
func (a *Adapter) run() {
	defer close(a.stopped)
	for cb := range a.queue {
		cb.execute()

		a.pendMu.Lock()
		a.pending--
		if a.pending == 0 {
			a.idle.Broadcast()
		}
		a.pendMu.Unlock()
	}
}

var _ gpucore.GPUAdapter = (*Adapter)(nil)
