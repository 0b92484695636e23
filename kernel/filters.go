package kernel

import (
	"github.com/gogpu/imgkernel/gpucore"
	"github.com/gogpu/imgkernel/shaders"
)

// Saturation adjusts color saturation. Strength is the saturation factor:
// 0 produces grayscale (Rec. 709 luma), 1 is the identity and values above
// 1 oversaturate.
type Saturation struct {
	unary
}

// NewSaturation creates a saturation kernel on device.
func NewSaturation(device gpucore.GPUAdapter, saturation float32, opts ...Option) (*Saturation, error) {
	k := &Saturation{}
	if err := k.init(k, device, "saturation", shaders.Saturation,
		"Dispatch image saturation adjustment kernel", saturation, opts); err != nil {
		return nil, err
	}
	return k, nil
}

// DefaultThreshold is the threshold used when none is given.
const DefaultThreshold = 0.5

// ThresholdToZero keeps pixels whose luma is above Strength and sets the
// color of all others to black. Alpha is preserved.
type ThresholdToZero struct {
	unary
}

// NewThresholdToZero creates a threshold-to-zero kernel on device.
func NewThresholdToZero(device gpucore.GPUAdapter, threshold float32, opts ...Option) (*ThresholdToZero, error) {
	k := &ThresholdToZero{}
	if err := k.init(k, device, "threshold", shaders.ThresholdToZero,
		"Dispatch threshold to zero kernel", threshold, opts); err != nil {
		return nil, err
	}
	return k, nil
}

// Sobel writes the Sobel gradient magnitude of the source luma, scaled by
// Strength, as a gray image.
type Sobel struct {
	unary
}

// NewSobel creates a Sobel edge detection kernel on device.
func NewSobel(device gpucore.GPUAdapter, scale float32, opts ...Option) (*Sobel, error) {
	k := &Sobel{}
	if err := k.init(k, device, "sobel", shaders.Sobel,
		"Dispatch sobel edge detection kernel", scale, opts); err != nil {
		return nil, err
	}
	return k, nil
}

// Laplacian writes the 4-neighbour Laplacian of each color channel, scaled
// by Strength.
type Laplacian struct {
	unary
}

// NewLaplacian creates a Laplacian kernel on device.
func NewLaplacian(device gpucore.GPUAdapter, scale float32, opts ...Option) (*Laplacian, error) {
	k := &Laplacian{}
	if err := k.init(k, device, "laplacian", shaders.Laplacian,
		"Dispatch laplacian kernel", scale, opts); err != nil {
		return nil, err
	}
	return k, nil
}

var (
	_ Unary = (*Saturation)(nil)
	_ Unary = (*ThresholdToZero)(nil)
	_ Unary = (*Sobel)(nil)
	_ Unary = (*Laplacian)(nil)
)
