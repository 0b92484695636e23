// Package native implements gpucore.GPUAdapter with gogpu/wgpu/hal.
//
// New opens a Vulkan device of its own, preferring a discrete or integrated
// GPU. An application that already owns a device, for example through
// gogpu, shares it with WithDeviceProvider instead.
//
// Kernel programs are WGSL, compiled once per process to SPIR-V with naga.
// Command buffers record dispatches and are encoded at Commit: each dispatch
// gets its own uniform buffer and bind group, and texture barriers are
// derived from the usage each texture was last left in. The transient
// buffers and bind groups are released by WaitUntilCompleted.
//
// The hal API has no clamp-to-border addressing. Every program is therefore
// built twice, the second time with its ZERO_EDGE switch on, and dispatches
// bound to an AddressModeClampToZero sampler run that build.
//
// Build with -tags nogpu to leave only this doc in the package.
package native
