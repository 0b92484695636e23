// Package filter provides the per-pixel math of the image kernels for CPU
// execution.
//
// Colors are straight-alpha RGBA in [0, 1], the values a compute program
// sees after sampling an rgba8unorm texture. Functions here mirror the WGSL
// programs in the shaders package expression for expression so the software
// backend produces the same results as a GPU, up to rounding.
package filter
