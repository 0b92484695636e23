// Command imgkernel runs an image kernel over one image or a directory of
// images.
//
//	imgkernel -kernel saturation -strength 0.2 -in photo.jpg -out gray.png
//	imgkernel -kernel sobel -batch ./frames -out-dir ./edges -workers 8
package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"log/slog"
	"os"
	"os/signal"
	"strings"

	"github.com/gogpu/imgkernel"
	"github.com/gogpu/imgkernel/backend"
	"github.com/gogpu/imgkernel/internal/cli"
	"github.com/gogpu/imgkernel/internal/process"
	"github.com/gogpu/imgkernel/kernel"

	_ "github.com/gogpu/imgkernel/backend/native"
	_ "github.com/gogpu/imgkernel/backend/software"
	_ "github.com/gogpu/imgkernel/backend/webgpu"
)

func main() {
	var (
		kernelName = flag.String("kernel", "saturation", "kernel name (see -list)")
		strength   = flag.String("strength", "", "kernel strength (default: the kernel's own)")
		edge       = flag.String("edge", "zero", "edge mode: zero or clamp")
		offset     = flag.String("offset", "", "source offset as x,y")
		clip       = flag.String("clip", "", "clip rectangle as x,y,w,h")
		backendArg = flag.String("backend", "", "backend name (default: best available)")
		maxSide    = flag.Int("max-side", 0, "downsize inputs so no side exceeds this (0 keeps size)")
		input      = flag.String("in", "", "input image")
		output     = flag.String("out", "", "output image")
		batch      = flag.String("batch", "", "process every image in this directory")
		outDir     = flag.String("out-dir", "", "output directory for -batch")
		format     = flag.String("format", ".png", "output extension for -batch")
		workers    = flag.Int("workers", 4, "parallel images for -batch")
		list       = flag.Bool("list", false, "list kernels and backends, then exit")
		verbose    = flag.Bool("v", false, "verbose logging")
	)
	flag.Parse()

	if *verbose {
		imgkernel.SetLogger(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelDebug})))
	}

	if *list {
		fmt.Println("kernels: ", strings.Join(kernel.Names(), ", "))
		fmt.Println("backends:", strings.Join(backend.Available(), ", "))
		return
	}

	req, err := cli.ParseRequest(*kernelName, *strength, *edge, *offset, *clip)
	if err != nil {
		log.Fatal(err)
	}

	device, err := cli.OpenBackend(*backendArg)
	if err != nil {
		log.Fatalf("Failed to open backend: %v", err)
	}
	defer func() { _ = device.Close() }()
	log.Printf("Using %s backend", device.Name())

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()
	runner := process.NewRunner(device)

	if *batch != "" {
		if *outDir == "" {
			log.Fatal("-batch needs -out-dir")
		}
		summary, err := runBatch(ctx, runner, req, batchConfig{
			dir:     *batch,
			outDir:  *outDir,
			ext:     *format,
			maxSide: *maxSide,
			workers: *workers,
		})
		if err != nil {
			log.Fatal(err)
		}
		log.Printf("Processed %d images (%d failed) in %v", summary.done, summary.failed, summary.elapsed)
		if summary.failed > 0 {
			os.Exit(1)
		}
		return
	}

	if *input == "" || *output == "" {
		flag.Usage()
		os.Exit(2)
	}
	stats, err := runner.File(ctx, *input, *output, *maxSide, req)
	if err != nil {
		log.Fatalf("Failed to process %s: %v", *input, err)
	}
	log.Printf("Saved %s (%dx%d, %v)", *output, stats.Width, stats.Height, stats.Duration)
}
