// Package kernel implements region-clipped, parameterized unary image
// kernels.
//
// A kernel reads one texture and writes another through a single compute
// dispatch. Each call to Encode:
//
//  1. clips the configured clip rectangle to the destination bounds,
//  2. packs the offset, the clipped rectangle and the strength into a
//     32-byte [Params] block,
//  3. computes a grid of 16×16 work-groups that covers the clipped
//     rectangle, and
//  4. records one compute pass binding source, destination, sampler and
//     parameters into the caller's command buffer.
//
// The sampler is derived from the kernel's [EdgeMode] and rebuilt only when
// the mode changes. Kernels never own textures and never submit work.
//
// Kernels are not safe for concurrent use; each instance belongs to one
// goroutine at a time.
package kernel
