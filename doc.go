// Package imgkernel provides region-clipped, parameterized compute kernels
// for GPU image processing.
//
// # Overview
//
// A kernel is a small object that turns a declarative filter configuration
// (edge mode, strength, offset, clip rectangle) into exactly one compute
// dispatch recorded into a caller-owned command buffer. Kernels never own
// images and never submit work; the caller commits the command buffer and
// observes completion through it.
//
// # Quick Start
//
//	adapter, err := backend.InitDefault()
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer adapter.Close()
//
//	sat, err := kernel.NewSaturation(adapter, 0.25)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer sat.Release()
//
//	cb, _ := adapter.NewCommandBuffer("frame")
//	sat.Encode(cb, src, dst)
//	cb.Commit()
//	cb.WaitUntilCompleted()
//
// # Architecture
//
// The module is organized into:
//   - gpucore: backend-neutral resource IDs, descriptors and the adapter interfaces
//   - shaders: embedded WGSL programs and pipeline construction by name
//   - kernel: the dispatcher (sampler cache, clipping, parameter block, grid)
//   - backend: adapter registry with software, native (wgpu HAL) and webgpu implementations
//   - cmd/imgkernel, cmd/imgkernel-worker: a batch CLI and a Redis job worker
//
// # Logging
//
// All packages log through [Logger]. Nothing is printed until [SetLogger]
// installs a handler.
package imgkernel
