package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/Carmen-Shannon/automation/tools/worker"
	"github.com/gogpu/imgkernel"
	"github.com/gogpu/imgkernel/internal/imageio"
	"github.com/gogpu/imgkernel/internal/process"
)

// inputExts are the extensions picked up from a batch directory.
var inputExts = map[string]bool{
	".png": true, ".jpg": true, ".jpeg": true, ".gif": true,
	".bmp": true, ".tif": true, ".tiff": true, ".webp": true,
}

type batchConfig struct {
	dir     string
	outDir  string
	ext     string
	maxSide int
	workers int
}

type batchSummary struct {
	done, failed int
	elapsed      time.Duration
}

// listInputs returns the image files directly inside dir, sorted.
func listInputs(dir string) ([]string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("read batch dir: %w", err)
	}
	var files []string
	for _, e := range entries {
		if e.IsDir() || !inputExts[strings.ToLower(filepath.Ext(e.Name()))] {
			continue
		}
		files = append(files, filepath.Join(dir, e.Name()))
	}
	sort.Strings(files)
	return files, nil
}

// outputPath maps an input file to its output under outDir with ext.
func outputPath(in, outDir, ext string) string {
	base := strings.TrimSuffix(filepath.Base(in), filepath.Ext(in))
	if !strings.HasPrefix(ext, ".") {
		ext = "." + ext
	}
	return filepath.Join(outDir, base+ext)
}

// runBatch fans the directory out over a worker pool. Each task runs one
// file through the runner, which bounds how many reach the device at once.
func runBatch(ctx context.Context, runner *process.Runner, req process.Request, cfg batchConfig) (batchSummary, error) {
	if !imageio.CanSave(cfg.ext) && !imageio.CanSave("."+cfg.ext) {
		return batchSummary{}, fmt.Errorf("%w: %q", imageio.ErrUnsupportedFormat, cfg.ext)
	}
	files, err := listInputs(cfg.dir)
	if err != nil {
		return batchSummary{}, err
	}
	if len(files) == 0 {
		return batchSummary{}, errors.New("batch dir has no images")
	}
	if err := os.MkdirAll(cfg.outDir, 0o755); err != nil {
		return batchSummary{}, fmt.Errorf("create out dir: %w", err)
	}

	start := time.Now()
	pool := worker.NewDynamicWorkerPool(cfg.workers, len(files), time.Second)
	defer pool.Stop()

	var (
		wg      sync.WaitGroup
		mu      sync.Mutex
		summary batchSummary
	)
	logger := imgkernel.Logger()
	for i, in := range files {
		out := outputPath(in, cfg.outDir, cfg.ext)
		wg.Add(1)
		pool.SubmitTask(worker.Task{
			ID:      i,
			Payload: in,
			Do: func() (any, error) {
				defer wg.Done()
				stats, err := runner.File(ctx, in, out, cfg.maxSide, req)

				mu.Lock()
				defer mu.Unlock()
				if err != nil {
					summary.failed++
					logger.Error("batch: image failed", "input", in, "error", err)
					return nil, err
				}
				summary.done++
				logger.Info("batch: image done", "input", in, "output", out,
					"width", stats.Width, "height", stats.Height, "duration", stats.Duration)
				return stats, nil
			},
		})
	}
	wg.Wait()

	summary.elapsed = time.Since(start)
	return summary, ctx.Err()
}
