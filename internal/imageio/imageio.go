// Package imageio loads and saves the images that kernels run on.
//
// Every decoded image is converted to *image.NRGBA, whose Pix slice is the
// tightly packed RGBA8 layout of gpucore.TextureFormatRGBA8Unorm textures.
package imageio

import (
	"bytes"
	"errors"
	"fmt"
	"image"
	_ "image/gif" // decode only
	"image/jpeg"
	"image/png"
	"io"
	"os"
	"path/filepath"
	"strings"

	"golang.org/x/image/bmp"
	"golang.org/x/image/draw"
	"golang.org/x/image/tiff"

	// Registered for image.Decode only; there is no WebP encoder.
	_ "golang.org/x/image/webp"
)

// I/O errors.
var (
	// ErrUnsupportedFormat is returned by Save for extensions it cannot
	// encode.
	ErrUnsupportedFormat = errors.New("imageio: unsupported format")

	// ErrEmptyData is returned when image data is empty.
	ErrEmptyData = errors.New("imageio: empty data")
)

// JPEGQuality is the quality Save uses for .jpg and .jpeg files.
const JPEGQuality = 92

// Load decodes the image at path. PNG, JPEG, GIF, BMP, TIFF and WebP are
// detected from the content, not the extension.
func Load(path string) (*image.NRGBA, error) {
	f, err := os.Open(filepath.Clean(path))
	if err != nil {
		return nil, fmt.Errorf("imageio: open file: %w", err)
	}
	defer func() { _ = f.Close() }()

	return Decode(f)
}

// LoadBytes decodes an image held in memory.
func LoadBytes(data []byte) (*image.NRGBA, error) {
	if len(data) == 0 {
		return nil, ErrEmptyData
	}
	return Decode(bytes.NewReader(data))
}

// Decode decodes an image from r, auto-detecting the format.
func Decode(r io.Reader) (*image.NRGBA, error) {
	img, _, err := image.Decode(r)
	if err != nil {
		return nil, fmt.Errorf("imageio: decode: %w", err)
	}
	return ToNRGBA(img), nil
}

// ToNRGBA returns img as a zero-origin *image.NRGBA with a tight stride.
// An image that already has that layout is returned as is.
func ToNRGBA(img image.Image) *image.NRGBA {
	b := img.Bounds()
	if n, ok := img.(*image.NRGBA); ok && b.Min == (image.Point{}) && n.Stride == 4*b.Dx() {
		return n
	}
	dst := image.NewNRGBA(image.Rect(0, 0, b.Dx(), b.Dy()))
	draw.Draw(dst, dst.Bounds(), img, b.Min, draw.Src)
	return dst
}

// FromPixels wraps tightly packed RGBA8 rows as an image. The slice is
// used directly, not copied.
func FromPixels(width, height int, pix []byte) (*image.NRGBA, error) {
	if width <= 0 || height <= 0 || len(pix) != width*height*4 {
		return nil, fmt.Errorf("imageio: %d bytes for a %dx%d image", len(pix), width, height)
	}
	return &image.NRGBA{Pix: pix, Stride: width * 4, Rect: image.Rect(0, 0, width, height)}, nil
}

// Save encodes img to path, picking the encoder from the extension:
// .png, .jpg, .jpeg, .bmp, .tif or .tiff.
func Save(path string, img image.Image) error {
	ext := strings.ToLower(filepath.Ext(path))
	if !CanSave(ext) {
		return fmt.Errorf("%w: %q", ErrUnsupportedFormat, ext)
	}

	f, err := os.Create(filepath.Clean(path))
	if err != nil {
		return fmt.Errorf("imageio: create file: %w", err)
	}
	if err := Encode(f, img, ext); err != nil {
		_ = f.Close()
		return err
	}
	return f.Close()
}

// CanSave reports whether Save can encode files with extension ext
// (including the leading dot).
func CanSave(ext string) bool {
	switch strings.ToLower(ext) {
	case ".png", ".jpg", ".jpeg", ".bmp", ".tif", ".tiff":
		return true
	}
	return false
}

// Encode writes img to w in the format named by ext.
func Encode(w io.Writer, img image.Image, ext string) error {
	var err error
	switch strings.ToLower(ext) {
	case ".png":
		err = png.Encode(w, img)
	case ".jpg", ".jpeg":
		err = jpeg.Encode(w, img, &jpeg.Options{Quality: JPEGQuality})
	case ".bmp":
		err = bmp.Encode(w, img)
	case ".tif", ".tiff":
		err = tiff.Encode(w, img, &tiff.Options{Compression: tiff.Deflate, Predictor: true})
	default:
		return fmt.Errorf("%w: %q", ErrUnsupportedFormat, ext)
	}
	if err != nil {
		return fmt.Errorf("imageio: encode %s: %w", ext, err)
	}
	return nil
}

// Fit scales img down with Catmull-Rom so that neither side exceeds
// maxSide, keeping the aspect ratio. Images that already fit, and a
// maxSide <= 0, return img unchanged.
func Fit(img *image.NRGBA, maxSide int) *image.NRGBA {
	b := img.Bounds()
	w, h := b.Dx(), b.Dy()
	if maxSide <= 0 || (w <= maxSide && h <= maxSide) {
		return img
	}

	nw, nh := maxSide, maxSide
	if w >= h {
		nh = max(1, h*maxSide/w)
	} else {
		nw = max(1, w*maxSide/h)
	}
	dst := image.NewNRGBA(image.Rect(0, 0, nw, nh))
	draw.CatmullRom.Scale(dst, dst.Bounds(), img, b, draw.Src, nil)
	return dst
}
