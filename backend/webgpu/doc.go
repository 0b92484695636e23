// Package webgpu implements gpucore.GPUAdapter on wgpu-native through
// cogentcore/webgpu.
//
// The adapter requests a high-performance adapter and a device of its own.
// Programs are handed to wgpu-native as WGSL. Like the native backend,
// command buffers record dispatches and encode them at Commit, with one
// uniform buffer and bind group per dispatch; wgpu-native inserts the
// barriers.
//
// WebGPU has no clamp-to-border addressing, so each program is also built
// with its ZERO_EDGE switch on, and dispatches bound to an
// AddressModeClampToZero sampler run that build. Storage textures must be
// RGBA8Unorm or RGBA32Float.
//
// Importing the package registers it with the backend registry as
// "webgpu". Build with -tags nogpu to exclude it.
package webgpu
