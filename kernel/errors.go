package kernel

import "errors"

// Sentinel errors.
var (
	// ErrNilDevice is returned by constructors given a nil adapter.
	ErrNilDevice = errors.New("kernel: nil device")

	// ErrPipeline is returned when the kernel's compute program is missing
	// or fails to build into a pipeline.
	ErrPipeline = errors.New("kernel: pipeline unavailable")

	// ErrSampler is returned when the sampling resource cannot be created.
	ErrSampler = errors.New("kernel: sampler creation failed")

	// ErrInvalidEdgeMode is returned by SetEdgeMode for unknown modes.
	ErrInvalidEdgeMode = errors.New("kernel: invalid edge mode")

	// ErrUnknownKernel is returned by NewByName for unknown kernel names.
	ErrUnknownKernel = errors.New("kernel: unknown kernel")
)
