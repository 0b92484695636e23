// Package process runs kernels over whole images: it uploads the pixels,
// encodes one dispatch, commits, waits and reads the result back.
package process

import (
	"context"
	"errors"
	"fmt"
	"image"
	"path/filepath"
	"time"

	"github.com/gogpu/imgkernel"
	"github.com/gogpu/imgkernel/gpucore"
	"github.com/gogpu/imgkernel/internal/imageio"
	"github.com/gogpu/imgkernel/kernel"
)

// MaxInflight is the default number of command buffers a Runner lets run
// at once.
const MaxInflight = 3

// ErrEmptyImage is returned for images with no pixels.
var ErrEmptyImage = errors.New("process: empty image")

// Request describes one kernel run.
type Request struct {
	// Kernel is a name accepted by kernel.NewByName.
	Kernel string

	// Strength overrides the kernel's default strength when non-nil.
	Strength *float32

	Edge   kernel.EdgeMode
	Offset kernel.Offset

	// Clip limits the written pixels. Pixels outside it keep their source
	// values. Nil filters the whole image.
	Clip *kernel.Region
}

// strength resolves the strength to construct the kernel with.
func (r Request) strength() (float32, error) {
	def, ok := kernel.DefaultStrength(r.Kernel)
	if !ok {
		return 0, fmt.Errorf("%w: %q", kernel.ErrUnknownKernel, r.Kernel)
	}
	if r.Strength != nil {
		return *r.Strength, nil
	}
	return def, nil
}

// Stats describes a finished run.
type Stats struct {
	Width, Height int
	InPlace       bool
	Duration      time.Duration
}

// Runner executes Requests on one device. It is safe for concurrent use.
type Runner struct {
	device   gpucore.GPUAdapter
	inflight chan struct{}
}

// Option configures a Runner.
type Option func(*Runner)

// WithMaxInflight sets how many runs may have a command buffer in flight.
// Values below 1 are ignored.
func WithMaxInflight(n int) Option {
	return func(r *Runner) {
		if n >= 1 {
			r.inflight = make(chan struct{}, n)
		}
	}
}

// NewRunner returns a Runner that dispatches on device. The Runner does
// not own device.
func NewRunner(device gpucore.GPUAdapter, opts ...Option) *Runner {
	r := &Runner{device: device, inflight: make(chan struct{}, MaxInflight)}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Device returns the adapter the Runner dispatches on.
func (r *Runner) Device() gpucore.GPUAdapter { return r.device }

func (r *Runner) acquire(ctx context.Context) error {
	select {
	case r.inflight <- struct{}{}:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (r *Runner) release() { <-r.inflight }

// Run filters img and returns a new image of the same size.
//
// Without a clip the kernel runs through EncodeInPlace with
// kernel.MatchingAllocator. With a clip the destination is first
// initialized from the source so that pixels outside the clip survive.
func (r *Runner) Run(ctx context.Context, img image.Image, req Request) (*image.NRGBA, Stats, error) {
	start := time.Now()
	src := imageio.ToNRGBA(img)
	w, h := src.Rect.Dx(), src.Rect.Dy()
	if w == 0 || h == 0 {
		return nil, Stats{}, ErrEmptyImage
	}
	strength, err := req.strength()
	if err != nil {
		return nil, Stats{}, err
	}

	if err := r.acquire(ctx); err != nil {
		return nil, Stats{}, err
	}
	defer r.release()

	opts := []kernel.Option{
		kernel.WithEdgeMode(req.Edge),
		kernel.WithOffset(req.Offset),
	}
	if req.Clip != nil {
		opts = append(opts, kernel.WithClipRect(*req.Clip))
	}
	k, err := kernel.NewByName(req.Kernel, r.device, strength, opts...)
	if err != nil {
		return nil, Stats{}, err
	}
	defer k.Release()

	input, err := r.upload(src, "input")
	if err != nil {
		return nil, Stats{}, err
	}
	defer r.device.DestroyTexture(input.ID)

	cb, err := r.device.NewCommandBuffer(req.Kernel)
	if err != nil {
		return nil, Stats{}, fmt.Errorf("process: command buffer: %w", err)
	}

	stats := Stats{Width: w, Height: h}
	var output gpucore.Texture
	if req.Clip == nil {
		slot := input
		ok, err := k.EncodeInPlace(cb, &slot, kernel.MatchingAllocator(r.device))
		if err != nil {
			return nil, Stats{}, err
		}
		if !ok {
			return nil, Stats{}, fmt.Errorf("process: %s: in-place encode declined", req.Kernel)
		}
		output = slot
		stats.InPlace = true
	} else {
		output, err = r.upload(src, "output")
		if err != nil {
			return nil, Stats{}, err
		}
		k.Encode(cb, input, output)
	}
	defer r.device.DestroyTexture(output.ID)

	if err := ctx.Err(); err != nil {
		return nil, Stats{}, err
	}
	if err := cb.Commit(); err != nil {
		return nil, Stats{}, fmt.Errorf("process: commit: %w", err)
	}
	if err := cb.WaitUntilCompleted(); err != nil {
		return nil, Stats{}, fmt.Errorf("process: %s: %w", req.Kernel, err)
	}

	pix, err := r.device.ReadTexture(output)
	if err != nil {
		return nil, Stats{}, fmt.Errorf("process: readback: %w", err)
	}
	out, err := imageio.FromPixels(w, h, pix)
	if err != nil {
		return nil, Stats{}, err
	}

	stats.Duration = time.Since(start)
	imgkernel.Logger().Debug("process: run complete",
		"kernel", req.Kernel, "device", r.device.Name(),
		"width", w, "height", h, "in_place", stats.InPlace, "duration", stats.Duration)
	return out, stats, nil
}

func (r *Runner) upload(img *image.NRGBA, label string) (gpucore.Texture, error) {
	tex, err := r.device.CreateTexture(&gpucore.TextureDesc{
		Label:  label,
		Width:  img.Rect.Dx(),
		Height: img.Rect.Dy(),
		Format: gpucore.TextureFormatRGBA8Unorm,
		Usage:  gpucore.TextureUsageKernelIO,
	})
	if err != nil {
		return gpucore.Texture{}, fmt.Errorf("process: create %s texture: %w", label, err)
	}
	if err := r.device.WriteTexture(tex, img.Pix); err != nil {
		r.device.DestroyTexture(tex.ID)
		return gpucore.Texture{}, fmt.Errorf("process: upload %s: %w", label, err)
	}
	return tex, nil
}

// File runs req over the image at in, downsized to maxSide first when
// maxSide > 0, and saves the result to out.
func (r *Runner) File(ctx context.Context, in, out string, maxSide int, req Request) (Stats, error) {
	if !imageio.CanSave(filepath.Ext(out)) {
		return Stats{}, fmt.Errorf("%w: %s", imageio.ErrUnsupportedFormat, out)
	}
	img, err := imageio.Load(in)
	if err != nil {
		return Stats{}, err
	}
	img = imageio.Fit(img, maxSide)

	res, stats, err := r.Run(ctx, img, req)
	if err != nil {
		return Stats{}, err
	}
	if err := imageio.Save(out, res); err != nil {
		return Stats{}, err
	}
	return stats, nil
}
