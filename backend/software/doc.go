// Package software implements gpucore.GPUAdapter on the CPU.
//
// The adapter runs the kernel programs from the shaders package as Go ports
// keyed by entry point, so a pipeline can only be created for programs it
// knows. Textures are RGBA8 or BGRA8 byte images. Samplers are exact,
// including ClampToZero addressing; only nearest filtering is supported.
//
// Command buffers execute asynchronously after Commit, one at a time per
// adapter and in commit order. Within a dispatch the work-group rows are
// spread over an internal/parallel.WorkerPool.
//
// Importing the package registers it with the backend registry as
// "software".
package software
