package gpucore

// GPUAdapter abstracts over the GPU backend implementations.
//
// Implementations must be safe for concurrent use. Command buffers and
// pass encoders obtained from an adapter are not: each is recorded by one
// goroutine at a time.
//
// Resource lifecycle:
//   - Resources are created via Create* methods
//   - Resources must be explicitly destroyed via Destroy* methods
//   - Destroying a resource referenced by uncompleted work is undefined behavior
//   - IDs become invalid after destruction and are never reused
type GPUAdapter interface {
	// === Capabilities ===

	// Name returns the backend name ("software", "native", "webgpu").
	Name() string

	// SupportsCompute returns whether compute shaders are supported.
	SupportsCompute() bool

	// MaxWorkgroupSize returns the maximum workgroup size in each dimension.
	MaxWorkgroupSize() [3]uint32

	// === Shader Compilation ===

	// CreateShaderModule creates a shader module from WGSL source.
	CreateShaderModule(desc *ShaderModuleDesc) (ShaderModuleID, error)

	// DestroyShaderModule releases a shader module.
	DestroyShaderModule(id ShaderModuleID)

	// === Texture Management ===

	// CreateTexture creates a 2D texture. The returned Texture carries desc.
	CreateTexture(desc *TextureDesc) (Texture, error)

	// DestroyTexture releases a texture.
	DestroyTexture(id TextureID)

	// WriteTexture replaces the whole content of a texture. data is tightly
	// packed rows of Width*BytesPerPixel bytes.
	WriteTexture(tex Texture, data []byte) error

	// ReadTexture reads back the whole content of a texture as tightly
	// packed rows. This waits for outstanding work that writes tex.
	ReadTexture(tex Texture) ([]byte, error)

	// === Samplers ===

	// CreateSampler creates an immutable sampler.
	CreateSampler(desc *SamplerDesc) (SamplerID, error)

	// DestroySampler releases a sampler.
	DestroySampler(id SamplerID)

	// === Pipeline Management ===

	// CreateBindGroupLayout creates a bind group layout.
	CreateBindGroupLayout(desc *BindGroupLayoutDesc) (BindGroupLayoutID, error)

	// DestroyBindGroupLayout releases a bind group layout.
	DestroyBindGroupLayout(id BindGroupLayoutID)

	// CreatePipelineLayout creates a pipeline layout from bind group layouts.
	CreatePipelineLayout(layouts []BindGroupLayoutID) (PipelineLayoutID, error)

	// DestroyPipelineLayout releases a pipeline layout.
	DestroyPipelineLayout(id PipelineLayoutID)

	// CreateComputePipeline creates a compute pipeline.
	CreateComputePipeline(desc *ComputePipelineDesc) (ComputePipelineID, error)

	// DestroyComputePipeline releases a compute pipeline.
	DestroyComputePipeline(id ComputePipelineID)

	// === Command Recording and Execution ===

	// NewCommandBuffer returns an empty command buffer ready for recording.
	NewCommandBuffer(label string) (CommandBuffer, error)

	// WaitIdle waits for all committed work to complete.
	WaitIdle()

	// Close releases the adapter and every resource it still tracks.
	Close() error
}

// CommandBuffer is a recording context. Passes are recorded into it in
// order, and it is submitted to the adapter with Commit.
//
// Usage:
//  1. Obtain a command buffer from GPUAdapter.NewCommandBuffer
//  2. Record one or more compute passes
//  3. Call Commit to submit
//  4. Call WaitUntilCompleted to observe completion
type CommandBuffer interface {
	// Label returns the debug label given at creation.
	Label() string

	// BeginComputePass begins a compute pass. The pass must be ended
	// before another pass is begun or the buffer is committed.
	BeginComputePass(label string) ComputePassEncoder

	// Commit submits the recorded work for execution. It does not wait.
	Commit() error

	// WaitUntilCompleted blocks until the committed work has executed and
	// returns the first execution error, if any.
	WaitUntilCompleted() error
}

// ComputePassEncoder records compute commands.
//
// Bindings set on the encoder form an argument table that is captured by
// each DispatchThreadgroups call; later Set* calls do not affect dispatches
// already recorded.
//
// The encoder is single-use and cannot be reused after End().
type ComputePassEncoder interface {
	// SetPipeline sets the active compute pipeline.
	SetPipeline(pipeline ComputePipelineID)

	// SetTexture binds a texture for sampled reads.
	SetTexture(binding uint32, tex TextureID)

	// SetStorageTexture binds a texture for writes.
	SetStorageTexture(binding uint32, tex TextureID)

	// SetSampler binds a sampler.
	SetSampler(binding uint32, sampler SamplerID)

	// SetBytes binds a small block of uniform data. The bytes are copied.
	SetBytes(binding uint32, data []byte)

	// DispatchThreadgroups dispatches groups work-groups, each made of
	// threadsPerGroup invocations. threadsPerGroup must match the
	// pipeline's workgroup size. An empty grid records nothing observable
	// but is valid.
	DispatchThreadgroups(groups, threadsPerGroup Grid)

	// PushDebugGroup opens a labelled group of commands for debuggers.
	PushDebugGroup(label string)

	// PopDebugGroup closes the innermost debug group.
	PopDebugGroup()

	// End finishes the compute pass.
	End()
}
