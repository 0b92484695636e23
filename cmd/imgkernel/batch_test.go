package main

import (
	"context"
	"image"
	"os"
	"path/filepath"
	"slices"
	"testing"

	"github.com/gogpu/imgkernel/backend/software"
	"github.com/gogpu/imgkernel/internal/imageio"
	"github.com/gogpu/imgkernel/internal/process"
)

func TestListInputs(t *testing.T) {
	dir := t.TempDir()
	for _, name := range []string{"b.PNG", "a.jpg", "notes.txt", "c.webp"} {
		if err := os.WriteFile(filepath.Join(dir, name), nil, 0o644); err != nil {
			t.Fatal(err)
		}
	}
	if err := os.Mkdir(filepath.Join(dir, "sub.png"), 0o755); err != nil {
		t.Fatal(err)
	}

	got, err := listInputs(dir)
	if err != nil {
		t.Fatalf("listInputs() error = %v", err)
	}
	want := []string{filepath.Join(dir, "a.jpg"), filepath.Join(dir, "b.PNG"), filepath.Join(dir, "c.webp")}
	if !slices.Equal(got, want) {
		t.Errorf("listInputs() = %v, want %v", got, want)
	}
}

func TestOutputPath(t *testing.T) {
	if got := outputPath("/in/photo.jpeg", "/out", ".png"); got != filepath.Join("/out", "photo.png") {
		t.Errorf("outputPath() = %q", got)
	}
	if got := outputPath("frame.01.bmp", "o", "tiff"); got != filepath.Join("o", "frame.01.tiff") {
		t.Errorf("outputPath() = %q", got)
	}
}

func TestRunBatch(t *testing.T) {
	a, err := software.New()
	if err != nil {
		t.Fatalf("software.New() error = %v", err)
	}
	defer a.Close()

	in, out := t.TempDir(), filepath.Join(t.TempDir(), "out")
	for _, name := range []string{"one.png", "two.png", "three.png", "four.bmp"} {
		if err := imageio.Save(filepath.Join(in, name), image.NewNRGBA(image.Rect(0, 0, 9, 7))); err != nil {
			t.Fatal(err)
		}
	}
	if err := os.WriteFile(filepath.Join(in, "broken.png"), []byte("nope"), 0o644); err != nil {
		t.Fatal(err)
	}

	summary, err := runBatch(context.Background(), process.NewRunner(a), process.Request{Kernel: "sobel"}, batchConfig{
		dir:     in,
		outDir:  out,
		ext:     ".png",
		workers: 2,
	})
	if err != nil {
		t.Fatalf("runBatch() error = %v", err)
	}
	if summary.done != 4 || summary.failed != 1 {
		t.Errorf("summary = %+v, want 4 done 1 failed", summary)
	}
	for _, name := range []string{"one.png", "two.png", "three.png", "four.png"} {
		if _, err := os.Stat(filepath.Join(out, name)); err != nil {
			t.Errorf("missing output %s: %v", name, err)
		}
	}
}

func TestRunBatchEmptyDir(t *testing.T) {
	_, err := runBatch(context.Background(), nil, process.Request{Kernel: "sobel"}, batchConfig{
		dir: t.TempDir(), outDir: t.TempDir(), ext: ".png", workers: 1,
	})
	if err == nil {
		t.Error("runBatch() on an empty dir succeeded")
	}
}
