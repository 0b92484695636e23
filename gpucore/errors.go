package gpucore

import "errors"

// Sentinel errors returned by adapters.
var (
	// ErrResourceNotFound is returned when an ID does not refer to a live resource.
	ErrResourceNotFound = errors.New("gpucore: resource not found")

	// ErrUnsupportedFormat is returned for texture formats a backend cannot handle.
	ErrUnsupportedFormat = errors.New("gpucore: unsupported texture format")

	// ErrInvalidDescriptor is returned when a descriptor fails validation.
	ErrInvalidDescriptor = errors.New("gpucore: invalid descriptor")

	// ErrAlreadyCommitted is returned by CommandBuffer.Commit when called twice.
	ErrAlreadyCommitted = errors.New("gpucore: command buffer already committed")

	// ErrNotCommitted is returned by CommandBuffer.WaitUntilCompleted before Commit.
	ErrNotCommitted = errors.New("gpucore: command buffer not committed")

	// ErrAdapterClosed is returned by operations on a closed adapter.
	ErrAdapterClosed = errors.New("gpucore: adapter closed")
)
