// Package gpucore provides the backend-neutral GPU abstractions used by
// imgkernel kernels.
//
// This package defines the [GPUAdapter] interface, which abstracts over the
// GPU backends a kernel can run on:
//   - backend/native: gogpu/wgpu HAL (Vulkan, or a device from a host application)
//   - backend/webgpu: wgpu-native through cogentcore/webgpu
//   - backend/software: a CPU reference implementation
//
// # Architecture
//
// Kernels are written once against gpucore; thin adapters translate the
// calls into backend APIs.
//
//	               +-----------------+
//	               |     kernel      |
//	               | (Unary filters) |
//	               +--------+--------+
//	                        |
//	               +--------v--------+
//	               |     gpucore     |
//	               |   GPUAdapter    |
//	               +--------+--------+
//	                        |
//	     +------------------+------------------+
//	     |                  |                  |
//	+----v-----+     +------v------+    +------v-----+
//	|  native  |     |   webgpu    |    |  software  |
//	| wgpu HAL |     | wgpu-native |    |    CPU     |
//	+----------+     +-------------+    +------------+
//
// # Recording Model
//
// Work is recorded into a [CommandBuffer] obtained from
// [GPUAdapter.NewCommandBuffer]. Each kernel dispatch opens one
// [ComputePassEncoder], binds its arguments by binding number, dispatches a
// grid of work-groups and ends the pass. Nothing executes until
// [CommandBuffer.Commit]; passes in one command buffer execute in the order
// they were recorded.
//
// Arguments are bound individually (texture, storage texture, sampler, raw
// bytes) rather than through prebuilt bind groups. Backends that need bind
// groups build them at dispatch time from the pass's argument table.
//
// # Resource Management
//
// GPU resources are managed via opaque IDs ([TextureID], [SamplerID], etc.).
// Textures are handed out as [Texture] values that carry their descriptor,
// so width, height and format are available without a round trip to the
// adapter. Adapters are responsible for mapping IDs to backend resources.
package gpucore
