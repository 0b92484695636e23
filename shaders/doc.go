// Package shaders holds the WGSL programs run by imgkernel kernels and
// builds compute pipelines from them by name.
//
// Every program is a unary image program: it reads binding 0, writes
// binding 1, samples through binding 2 and reads a 32-byte parameter block
// from binding 3 (see gpucore.BindingSource and friends). All programs use
// a 16×16×1 work-group and bounds-check each invocation against the clip
// rectangle carried in the parameter block.
package shaders
