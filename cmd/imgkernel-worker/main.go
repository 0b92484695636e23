// Command imgkernel-worker consumes kernel jobs from Redis, runs them and
// stores their results.
//
//	imgkernel-worker -redis localhost:6379 -workers 4
package main

import (
	"context"
	"errors"
	"flag"
	"log"
	"log/slog"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/Carmen-Shannon/automation/tools/worker"
	"github.com/gogpu/imgkernel"
	"github.com/gogpu/imgkernel/internal/cli"
	"github.com/gogpu/imgkernel/internal/jobqueue"
	"github.com/gogpu/imgkernel/internal/process"

	_ "github.com/gogpu/imgkernel/backend/native"
	_ "github.com/gogpu/imgkernel/backend/software"
	_ "github.com/gogpu/imgkernel/backend/webgpu"
)

func main() {
	var (
		addr       = flag.String("redis", "localhost:6379", "Redis address")
		password   = flag.String("redis-password", "", "Redis password")
		db         = flag.Int("redis-db", 0, "Redis database")
		prefix     = flag.String("prefix", jobqueue.DefaultPrefix, "Redis key prefix")
		resultTTL  = flag.Duration("result-ttl", jobqueue.DefaultResultTTL, "how long results are kept")
		poll       = flag.Duration("poll", 5*time.Second, "how long one dequeue blocks")
		backendArg = flag.String("backend", "", "backend name (default: best available)")
		workers    = flag.Int("workers", process.MaxInflight, "jobs processed at once")
		verbose    = flag.Bool("v", false, "verbose logging")
	)
	flag.Parse()

	level := slog.LevelInfo
	if *verbose {
		level = slog.LevelDebug
	}
	imgkernel.SetLogger(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level})))

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	queue, err := jobqueue.New(ctx, jobqueue.Options{
		Addr:      *addr,
		Password:  *password,
		DB:        *db,
		Prefix:    *prefix,
		ResultTTL: *resultTTL,
	})
	if err != nil {
		log.Fatal(err)
	}
	defer func() { _ = queue.Close() }()

	device, err := cli.OpenBackend(*backendArg)
	if err != nil {
		log.Fatalf("Failed to open backend: %v", err)
	}
	defer func() { _ = device.Close() }()
	log.Printf("Worker on %s backend, consuming %s", device.Name(), *addr)

	w := &jobWorker{queue: queue, runner: process.NewRunner(device)}
	if err := w.serve(ctx, *workers, *poll); err != nil && !errors.Is(err, context.Canceled) {
		log.Fatal(err)
	}

	if s, err := queue.Stats(context.Background()); err == nil {
		log.Printf("Stopped; %d jobs pending, %d processed", s.Pending, s.Processed)
	}
}

// jobSource is the part of jobqueue.Queue the worker consumes.
type jobSource interface {
	Dequeue(ctx context.Context, timeout time.Duration) (*jobqueue.Job, error)
	PutResult(ctx context.Context, res jobqueue.Result) error
}

// jobWorker moves jobs from the queue through the runner.
type jobWorker struct {
	queue  jobSource
	runner *process.Runner
}

// serve dequeues until ctx is done, running up to workers jobs at once on
// a worker pool. It waits for running jobs before returning. A job that
// has left the queue is run to completion even when ctx is cancelled while
// it waits in the pool.
func (w *jobWorker) serve(ctx context.Context, workers int, poll time.Duration) error {
	pool := worker.NewDynamicWorkerPool(workers, workers, poll)
	defer pool.Stop()

	var wg sync.WaitGroup
	defer wg.Wait()

	logger := imgkernel.Logger()
	jobCtx := context.WithoutCancel(ctx)
	for {
		job, err := w.queue.Dequeue(ctx, poll)
		switch {
		case err == nil:
		case errors.Is(err, jobqueue.ErrEmpty):
			continue
		case ctx.Err() != nil:
			return ctx.Err()
		default:
			return err
		}

		logger.Debug("worker: job received", "job", job.ID, "kernel", job.Kernel, "input", job.Input)
		wg.Add(1)
		pool.SubmitTask(worker.Task{
			Payload: job,
			Do: func() (any, error) {
				defer wg.Done()
				res := run(jobCtx, w.runner, job)
				if err := w.queue.PutResult(jobCtx, res); err != nil {
					logger.Error("worker: store result failed", "job", job.ID, "error", err)
					return nil, err
				}
				return res, nil
			},
		})
	}
}

// run executes one job and reports it as a result.
func run(ctx context.Context, runner *process.Runner, job *jobqueue.Job) jobqueue.Result {
	res := jobqueue.Result{JobID: job.ID, Backend: runner.Device().Name()}
	logger := imgkernel.Logger()

	req, err := cli.RequestFromJob(job)
	if err == nil {
		err = job.Validate()
	}
	if err != nil {
		res.Error = err.Error()
		logger.Warn("worker: job rejected", "job", job.ID, "error", err)
		return res
	}

	stats, err := runner.File(ctx, job.Input, job.Output, job.MaxSide, req)
	res.Duration = stats.Duration
	if err != nil {
		res.Error = err.Error()
		logger.Error("worker: job failed", "job", job.ID, "error", err)
		return res
	}
	res.Output = job.Output
	res.Width, res.Height = stats.Width, stats.Height
	logger.Info("worker: job done", "job", job.ID, "kernel", job.Kernel, "duration", stats.Duration)
	return res
}
