package imageio

import (
	"bytes"
	"errors"
	"image"
	"image/color"
	"image/gif"
	"image/png"
	"os"
	"path/filepath"
	"testing"
)

func testImage(w, h int) *image.NRGBA {
	img := image.NewNRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			img.SetNRGBA(x, y, color.NRGBA{R: uint8(x * 16), G: uint8(y * 16), B: 128, A: 255})
		}
	}
	return img
}

func TestSaveLoadLossless(t *testing.T) {
	src := testImage(8, 6)
	for _, ext := range []string{".png", ".bmp", ".tiff", ".tif"} {
		t.Run(ext, func(t *testing.T) {
			path := filepath.Join(t.TempDir(), "out"+ext)
			if err := Save(path, src); err != nil {
				t.Fatalf("Save() error = %v", err)
			}
			got, err := Load(path)
			if err != nil {
				t.Fatalf("Load() error = %v", err)
			}
			if got.Bounds() != src.Bounds() {
				t.Fatalf("bounds = %v, want %v", got.Bounds(), src.Bounds())
			}
			if !bytes.Equal(got.Pix, src.Pix) {
				t.Errorf("pixels differ after %s round trip", ext)
			}
		})
	}
}

func TestSaveLoadJPEG(t *testing.T) {
	src := image.NewNRGBA(image.Rect(0, 0, 16, 16))
	for i := 0; i < len(src.Pix); i += 4 {
		copy(src.Pix[i:], []byte{100, 150, 200, 255})
	}
	path := filepath.Join(t.TempDir(), "out.jpg")
	if err := Save(path, src); err != nil {
		t.Fatalf("Save() error = %v", err)
	}
	got, err := Load(path)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	c := got.NRGBAAt(8, 8)
	if c.R < 90 || c.R > 110 || c.G < 140 || c.G > 160 || c.B < 190 || c.B > 210 {
		t.Errorf("JPEG pixel too different from original: got %v", c)
	}
}

func TestLoadGIF(t *testing.T) {
	pal := image.NewPaletted(image.Rect(0, 0, 4, 4), color.Palette{color.Black, color.White})
	pal.SetColorIndex(1, 1, 1)
	var buf bytes.Buffer
	if err := gif.Encode(&buf, pal, nil); err != nil {
		t.Fatalf("gif.Encode() error = %v", err)
	}
	got, err := LoadBytes(buf.Bytes())
	if err != nil {
		t.Fatalf("LoadBytes() error = %v", err)
	}
	if c := got.NRGBAAt(1, 1); c != (color.NRGBA{255, 255, 255, 255}) {
		t.Errorf("pixel (1,1) = %v, want white", c)
	}
	if c := got.NRGBAAt(0, 0); c != (color.NRGBA{0, 0, 0, 255}) {
		t.Errorf("pixel (0,0) = %v, want black", c)
	}
}

func TestLoadErrors(t *testing.T) {
	if _, err := LoadBytes(nil); !errors.Is(err, ErrEmptyData) {
		t.Errorf("LoadBytes(nil) error = %v, want ErrEmptyData", err)
	}
	if _, err := LoadBytes([]byte("not an image")); err == nil {
		t.Error("LoadBytes(garbage) succeeded")
	}
	if _, err := Load(filepath.Join(t.TempDir(), "missing.png")); !errors.Is(err, os.ErrNotExist) {
		t.Errorf("Load(missing) error = %v, want ErrNotExist", err)
	}
}

func TestSaveUnsupported(t *testing.T) {
	path := filepath.Join(t.TempDir(), "out.webp")
	if err := Save(path, testImage(2, 2)); !errors.Is(err, ErrUnsupportedFormat) {
		t.Fatalf("Save(.webp) error = %v, want ErrUnsupportedFormat", err)
	}
	if _, err := os.Stat(path); !os.IsNotExist(err) {
		t.Error("Save(.webp) left a file behind")
	}
}

func TestToNRGBA(t *testing.T) {
	src := testImage(4, 4)
	if got := ToNRGBA(src); got != src {
		t.Error("ToNRGBA copied an image that was already tight")
	}

	sub := src.SubImage(image.Rect(1, 1, 3, 3)).(*image.NRGBA)
	got := ToNRGBA(sub)
	if got.Bounds() != image.Rect(0, 0, 2, 2) || got.Stride != 8 {
		t.Fatalf("ToNRGBA(sub) bounds = %v stride = %d", got.Bounds(), got.Stride)
	}
	if got.NRGBAAt(0, 0) != src.NRGBAAt(1, 1) {
		t.Errorf("ToNRGBA(sub) origin = %v, want %v", got.NRGBAAt(0, 0), src.NRGBAAt(1, 1))
	}

	rgba := image.NewRGBA(image.Rect(0, 0, 1, 1))
	rgba.Set(0, 0, color.RGBA{R: 255, A: 255})
	if c := ToNRGBA(rgba).NRGBAAt(0, 0); c != (color.NRGBA{R: 255, A: 255}) {
		t.Errorf("ToNRGBA(rgba) = %v", c)
	}
}

func TestFromPixels(t *testing.T) {
	pix := make([]byte, 2*3*4)
	img, err := FromPixels(2, 3, pix)
	if err != nil {
		t.Fatalf("FromPixels() error = %v", err)
	}
	if img.Bounds().Dx() != 2 || img.Bounds().Dy() != 3 || &img.Pix[0] != &pix[0] {
		t.Errorf("FromPixels() = %v, stride %d", img.Bounds(), img.Stride)
	}
	if _, err := FromPixels(2, 3, pix[:4]); err == nil {
		t.Error("FromPixels() accepted a short slice")
	}
}

func TestFit(t *testing.T) {
	tests := []struct {
		name         string
		w, h, max    int
		wantW, wantH int
	}{
		{"fits", 10, 5, 16, 10, 5},
		{"no limit", 10, 5, 0, 10, 5},
		{"landscape", 40, 20, 10, 10, 5},
		{"portrait", 20, 40, 10, 5, 10},
		{"thin", 100, 1, 10, 10, 1},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			src := image.NewNRGBA(image.Rect(0, 0, tt.w, tt.h))
			got := Fit(src, tt.max)
			if got.Bounds().Dx() != tt.wantW || got.Bounds().Dy() != tt.wantH {
				t.Errorf("Fit(%dx%d, %d) = %v, want %dx%d", tt.w, tt.h, tt.max, got.Bounds(), tt.wantW, tt.wantH)
			}
		})
	}
}

func TestFitKeepsFlatColor(t *testing.T) {
	src := image.NewNRGBA(image.Rect(0, 0, 32, 32))
	for i := 0; i < len(src.Pix); i += 4 {
		copy(src.Pix[i:], []byte{40, 80, 120, 255})
	}
	got := Fit(src, 8)
	c := got.NRGBAAt(4, 4)
	want := [4]int{40, 80, 120, 255}
	for i, v := range [4]uint8{c.R, c.G, c.B, c.A} {
		if d := int(v) - want[i]; d < -1 || d > 1 {
			t.Fatalf("Fit() center = %v, want %v within 1", c, want)
		}
	}
}

func TestEncodePNGRoundTrip(t *testing.T) {
	var buf bytes.Buffer
	if err := Encode(&buf, testImage(3, 3), ".PNG"); err != nil {
		t.Fatalf("Encode() error = %v", err)
	}
	if _, err := png.Decode(&buf); err != nil {
		t.Errorf("png.Decode() error = %v", err)
	}
}
