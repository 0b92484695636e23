// Package gputest provides a recording gpucore.GPUAdapter for tests.
//
// Recorder executes nothing. It hands out IDs, remembers every descriptor it
// was given and logs every command recorded into its command buffers, so
// tests can assert on what a kernel asked the GPU to do.
package gputest

import (
	"errors"
	"fmt"
	"sync"

	"github.com/gogpu/imgkernel/gpucore"
)

// ErrInjected is returned by creation calls selected with Recorder.FailOn.
var ErrInjected = errors.New("gputest: injected failure")

// Op names accepted by Recorder.FailOn.
const (
	OpShaderModule    = "shader_module"
	OpTexture         = "texture"
	OpSampler         = "sampler"
	OpBindGroupLayout = "bind_group_layout"
	OpPipelineLayout  = "pipeline_layout"
	OpComputePipeline = "compute_pipeline"
	OpCommandBuffer   = "command_buffer"
)

// Dispatch is one recorded DispatchThreadgroups call with the argument
// table in effect at the time of the call.
type Dispatch struct {
	Pass            string
	Pipeline        gpucore.ComputePipelineID
	Textures        map[uint32]gpucore.TextureID
	StorageTextures map[uint32]gpucore.TextureID
	Samplers        map[uint32]gpucore.SamplerID
	Bytes           map[uint32][]byte
	Groups          gpucore.Grid
	ThreadsPerGroup gpucore.Grid
	DebugGroups     []string
}

// Recorder is a gpucore.GPUAdapter that records instead of executing.
type Recorder struct {
	mu     sync.Mutex
	nextID uint64
	failOn map[string]error

	Samplers     map[gpucore.SamplerID]gpucore.SamplerDesc
	Textures     map[gpucore.TextureID]gpucore.TextureDesc
	Modules      map[gpucore.ShaderModuleID]gpucore.ShaderModuleDesc
	Pipelines    map[gpucore.ComputePipelineID]gpucore.ComputePipelineDesc
	Layouts      map[gpucore.BindGroupLayoutID]gpucore.BindGroupLayoutDesc
	PipeLayouts  map[gpucore.PipelineLayoutID][]gpucore.BindGroupLayoutID
	Buffers      []*CommandBuffer
	SamplersMade int
	TexturesMade int
	Destroyed    []string
	closed       bool
}

// New returns an empty Recorder.
func New() *Recorder {
	return &Recorder{
		failOn:      make(map[string]error),
		Samplers:    make(map[gpucore.SamplerID]gpucore.SamplerDesc),
		Textures:    make(map[gpucore.TextureID]gpucore.TextureDesc),
		Modules:     make(map[gpucore.ShaderModuleID]gpucore.ShaderModuleDesc),
		Pipelines:   make(map[gpucore.ComputePipelineID]gpucore.ComputePipelineDesc),
		Layouts:     make(map[gpucore.BindGroupLayoutID]gpucore.BindGroupLayoutDesc),
		PipeLayouts: make(map[gpucore.PipelineLayoutID][]gpucore.BindGroupLayoutID),
	}
}

// FailOn makes subsequent creation calls of kind op fail with ErrInjected.
// Pass an empty op list to clear all injected failures.
func (r *Recorder) FailOn(ops ...string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if len(ops) == 0 {
		r.failOn = make(map[string]error)
		return
	}
	for _, op := range ops {
		r.failOn[op] = fmt.Errorf("%w: %s", ErrInjected, op)
	}
}

func (r *Recorder) newID(op string) (uint64, error) {
	if err := r.failOn[op]; err != nil {
		return 0, err
	}
	r.nextID++
	return r.nextID, nil
}

// Dispatches returns every dispatch recorded into any command buffer, in
// recording order.
func (r *Recorder) Dispatches() []Dispatch {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []Dispatch
	for _, cb := range r.Buffers {
		out = append(out, cb.Dispatches...)
	}
	return out
}

func (r *Recorder) Name() string { return "recorder" }

func (r *Recorder) SupportsCompute() bool { return true }

func (r *Recorder) MaxWorkgroupSize() [3]uint32 { return [3]uint32{256, 256, 64} }

func (r *Recorder) CreateShaderModule(desc *gpucore.ShaderModuleDesc) (gpucore.ShaderModuleID, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	id, err := r.newID(OpShaderModule)
	if err != nil {
		return gpucore.InvalidID, err
	}
	r.Modules[gpucore.ShaderModuleID(id)] = *desc
	return gpucore.ShaderModuleID(id), nil
}

func (r *Recorder) DestroyShaderModule(id gpucore.ShaderModuleID) {
	r.destroy(fmt.Sprintf("module:%d", id), func() { delete(r.Modules, id) })
}

func (r *Recorder) CreateTexture(desc *gpucore.TextureDesc) (gpucore.Texture, error) {
	if err := desc.Validate(); err != nil {
		return gpucore.Texture{}, err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	id, err := r.newID(OpTexture)
	if err != nil {
		return gpucore.Texture{}, err
	}
	r.TexturesMade++
	r.Textures[gpucore.TextureID(id)] = *desc
	return gpucore.Texture{ID: gpucore.TextureID(id), Desc: *desc}, nil
}

func (r *Recorder) DestroyTexture(id gpucore.TextureID) {
	r.destroy(fmt.Sprintf("texture:%d", id), func() { delete(r.Textures, id) })
}

func (r *Recorder) WriteTexture(tex gpucore.Texture, data []byte) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.Textures[tex.ID]; !ok {
		return gpucore.ErrResourceNotFound
	}
	return nil
}

func (r *Recorder) ReadTexture(tex gpucore.Texture) ([]byte, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.Textures[tex.ID]; !ok {
		return nil, gpucore.ErrResourceNotFound
	}
	return make([]byte, tex.Width()*tex.Height()*tex.Format().BytesPerPixel()), nil
}

func (r *Recorder) CreateSampler(desc *gpucore.SamplerDesc) (gpucore.SamplerID, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	id, err := r.newID(OpSampler)
	if err != nil {
		return gpucore.InvalidID, err
	}
	r.SamplersMade++
	r.Samplers[gpucore.SamplerID(id)] = *desc
	return gpucore.SamplerID(id), nil
}

func (r *Recorder) DestroySampler(id gpucore.SamplerID) {
	r.destroy(fmt.Sprintf("sampler:%d", id), func() { delete(r.Samplers, id) })
}

func (r *Recorder) CreateBindGroupLayout(desc *gpucore.BindGroupLayoutDesc) (gpucore.BindGroupLayoutID, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	id, err := r.newID(OpBindGroupLayout)
	if err != nil {
		return gpucore.InvalidID, err
	}
	r.Layouts[gpucore.BindGroupLayoutID(id)] = *desc
	return gpucore.BindGroupLayoutID(id), nil
}

func (r *Recorder) DestroyBindGroupLayout(id gpucore.BindGroupLayoutID) {
	r.destroy(fmt.Sprintf("bind_group_layout:%d", id), func() { delete(r.Layouts, id) })
}

func (r *Recorder) CreatePipelineLayout(layouts []gpucore.BindGroupLayoutID) (gpucore.PipelineLayoutID, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	id, err := r.newID(OpPipelineLayout)
	if err != nil {
		return gpucore.InvalidID, err
	}
	r.PipeLayouts[gpucore.PipelineLayoutID(id)] = append([]gpucore.BindGroupLayoutID(nil), layouts...)
	return gpucore.PipelineLayoutID(id), nil
}

func (r *Recorder) DestroyPipelineLayout(id gpucore.PipelineLayoutID) {
	r.destroy(fmt.Sprintf("pipeline_layout:%d", id), func() { delete(r.PipeLayouts, id) })
}

func (r *Recorder) CreateComputePipeline(desc *gpucore.ComputePipelineDesc) (gpucore.ComputePipelineID, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	id, err := r.newID(OpComputePipeline)
	if err != nil {
		return gpucore.InvalidID, err
	}
	r.Pipelines[gpucore.ComputePipelineID(id)] = *desc
	return gpucore.ComputePipelineID(id), nil
}

func (r *Recorder) DestroyComputePipeline(id gpucore.ComputePipelineID) {
	r.destroy(fmt.Sprintf("compute_pipeline:%d", id), func() { delete(r.Pipelines, id) })
}

func (r *Recorder) NewCommandBuffer(label string) (gpucore.CommandBuffer, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, err := r.newID(OpCommandBuffer); err != nil {
		return nil, err
	}
	cb := &CommandBuffer{recorder: r, label: label}
	r.Buffers = append(r.Buffers, cb)
	return cb, nil
}

func (r *Recorder) WaitIdle() {}

func (r *Recorder) Close() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.closed = true
	return nil
}

// Closed reports whether Close was called.
func (r *Recorder) Closed() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.closed
}

func (r *Recorder) destroy(what string, del func()) {
	r.mu.Lock()
	defer r.mu.Unlock()
	del()
	r.Destroyed = append(r.Destroyed, what)
}

// CommandBuffer records passes and dispatches.
type CommandBuffer struct {
	recorder   *Recorder
	label      string
	Passes     []string
	Dispatches []Dispatch
	Committed  bool
	openPass   bool
}

func (cb *CommandBuffer) Label() string { return cb.label }

func (cb *CommandBuffer) BeginComputePass(label string) gpucore.ComputePassEncoder {
	cb.recorder.mu.Lock()
	defer cb.recorder.mu.Unlock()
	if cb.openPass {
		panic("gputest: BeginComputePass with a pass still open")
	}
	cb.openPass = true
	cb.Passes = append(cb.Passes, label)
	return &passEncoder{cb: cb, label: label, args: newArgs()}
}

func (cb *CommandBuffer) Commit() error {
	cb.recorder.mu.Lock()
	defer cb.recorder.mu.Unlock()
	if cb.Committed {
		return gpucore.ErrAlreadyCommitted
	}
	if cb.openPass {
		return errors.New("gputest: commit with an open pass")
	}
	cb.Committed = true
	return nil
}

func (cb *CommandBuffer) WaitUntilCompleted() error {
	cb.recorder.mu.Lock()
	defer cb.recorder.mu.Unlock()
	if !cb.Committed {
		return gpucore.ErrNotCommitted
	}
	return nil
}

type args struct {
	pipeline gpucore.ComputePipelineID
	textures map[uint32]gpucore.TextureID
	storage  map[uint32]gpucore.TextureID
	samplers map[uint32]gpucore.SamplerID
	bytes    map[uint32][]byte
}

func newArgs() args {
	return args{
		textures: make(map[uint32]gpucore.TextureID),
		storage:  make(map[uint32]gpucore.TextureID),
		samplers: make(map[uint32]gpucore.SamplerID),
		bytes:    make(map[uint32][]byte),
	}
}

type passEncoder struct {
	cb     *CommandBuffer
	label  string
	args   args
	groups []string
	ended  bool
}

func (e *passEncoder) SetPipeline(p gpucore.ComputePipelineID) { e.args.pipeline = p }

func (e *passEncoder) SetTexture(binding uint32, tex gpucore.TextureID) {
	e.args.textures[binding] = tex
}

func (e *passEncoder) SetStorageTexture(binding uint32, tex gpucore.TextureID) {
	e.args.storage[binding] = tex
}

func (e *passEncoder) SetSampler(binding uint32, s gpucore.SamplerID) {
	e.args.samplers[binding] = s
}

func (e *passEncoder) SetBytes(binding uint32, data []byte) {
	e.args.bytes[binding] = append([]byte(nil), data...)
}

func (e *passEncoder) DispatchThreadgroups(groups, threadsPerGroup gpucore.Grid) {
	d := Dispatch{
		Pass:            e.label,
		Pipeline:        e.args.pipeline,
		Textures:        make(map[uint32]gpucore.TextureID),
		StorageTextures: make(map[uint32]gpucore.TextureID),
		Samplers:        make(map[uint32]gpucore.SamplerID),
		Bytes:           make(map[uint32][]byte),
		Groups:          groups,
		ThreadsPerGroup: threadsPerGroup,
		DebugGroups:     append([]string(nil), e.groups...),
	}
	for k, v := range e.args.textures {
		d.Textures[k] = v
	}
	for k, v := range e.args.storage {
		d.StorageTextures[k] = v
	}
	for k, v := range e.args.samplers {
		d.Samplers[k] = v
	}
	for k, v := range e.args.bytes {
		d.Bytes[k] = v
	}

	e.cb.recorder.mu.Lock()
	e.cb.Dispatches = append(e.cb.Dispatches, d)
	e.cb.recorder.mu.Unlock()
}

func (e *passEncoder) PushDebugGroup(label string) { e.groups = append(e.groups, label) }

func (e *passEncoder) PopDebugGroup() {
	if len(e.groups) > 0 {
		e.groups = e.groups[:len(e.groups)-1]
	}
}

func (e *passEncoder) End() {
	if e.ended {
		return
	}
	e.ended = true
	e.cb.recorder.mu.Lock()
	e.cb.openPass = false
	e.cb.recorder.mu.Unlock()
}

var _ gpucore.GPUAdapter = (*Recorder)(nil)
