// Package jobqueue carries kernel jobs and their results through Redis.
//
// Jobs are JSON documents on a list (LPUSH on enqueue, BRPOP on dequeue).
// Results are stored under a per-job key with a TTL, and every stored
// result bumps a processed counter.
package jobqueue

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"
)

// ErrEmpty is returned by Dequeue when no job arrived before the timeout,
// and by Result when no result is stored for the job.
var ErrEmpty = errors.New("jobqueue: empty")

// Defaults for Options.
const (
	DefaultPrefix    = "imgkernel"
	DefaultResultTTL = 24 * time.Hour
)

// Clip is a clip rectangle in destination pixels.
type Clip struct {
	X      int `json:"x"`
	Y      int `json:"y"`
	Width  int `json:"width"`
	Height int `json:"height"`
}

// Job asks a worker to run one kernel over one image file.
type Job struct {
	ID       string   `json:"id"`
	Kernel   string   `json:"kernel"`
	Strength *float32 `json:"strength,omitempty"`
	Edge     string   `json:"edge,omitempty"`
	OffsetX  int      `json:"offset_x,omitempty"`
	OffsetY  int      `json:"offset_y,omitempty"`
	Clip     *Clip    `json:"clip,omitempty"`
	MaxSide  int      `json:"max_side,omitempty"`
	Input    string   `json:"input"`
	Output   string   `json:"output"`

	EnqueuedAt time.Time `json:"enqueued_at"`
}

// Validate checks the fields a worker cannot default.
func (j *Job) Validate() error {
	switch {
	case j.Kernel == "":
		return errors.New("jobqueue: job has no kernel")
	case j.Input == "":
		return errors.New("jobqueue: job has no input")
	case j.Output == "":
		return errors.New("jobqueue: job has no output")
	case j.Clip != nil && (j.Clip.Width < 0 || j.Clip.Height < 0):
		return fmt.Errorf("jobqueue: negative clip size %dx%d", j.Clip.Width, j.Clip.Height)
	}
	return nil
}

// Result reports how a job finished. Error is empty on success.
type Result struct {
	JobID    string        `json:"job_id"`
	Output   string        `json:"output,omitempty"`
	Width    int           `json:"width,omitempty"`
	Height   int           `json:"height,omitempty"`
	Backend  string        `json:"backend,omitempty"`
	Error    string        `json:"error,omitempty"`
	Duration time.Duration `json:"duration_ns"`

	FinishedAt time.Time `json:"finished_at"`
}

// Stats is a snapshot of the queue.
type Stats struct {
	Pending   int64
	Processed int64
}

// Options configures New.
type Options struct {
	Addr      string
	Password  string
	DB        int
	Prefix    string
	ResultTTL time.Duration
}

// Queue is a Redis-backed job queue. It is safe for concurrent use.
type Queue struct {
	client    *redis.Client
	keys      keys
	resultTTL time.Duration
}

type keys struct {
	prefix string
}

func (k keys) jobs() string               { return k.prefix + ":jobs" }
func (k keys) seq() string                { return k.prefix + ":seq" }
func (k keys) processed() string          { return k.prefix + ":processed" }
func (k keys) result(jobID string) string { return k.prefix + ":result:" + jobID }

// New connects to Redis and pings it.
func New(ctx context.Context, opts Options) (*Queue, error) {
	client := redis.NewClient(&redis.Options{
		Addr:         opts.Addr,
		Password:     opts.Password,
		DB:           opts.DB,
		MaxRetries:   3,
		DialTimeout:  5 * time.Second,
		WriteTimeout: 3 * time.Second,
	})
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("jobqueue: redis ping %s: %w", opts.Addr, err)
	}
	return NewWithClient(client, opts), nil
}

// NewWithClient wraps an existing client. Addr, Password and DB in opts are
// ignored.
func NewWithClient(client *redis.Client, opts Options) *Queue {
	if opts.Prefix == "" {
		opts.Prefix = DefaultPrefix
	}
	if opts.ResultTTL <= 0 {
		opts.ResultTTL = DefaultResultTTL
	}
	return &Queue{client: client, keys: keys{prefix: opts.Prefix}, resultTTL: opts.ResultTTL}
}

// Enqueue validates job, assigns an ID when it has none, and pushes it.
// It returns the job's ID.
func (q *Queue) Enqueue(ctx context.Context, job Job) (string, error) {
	if err := job.Validate(); err != nil {
		return "", err
	}
	if job.ID == "" {
		n, err := q.client.Incr(ctx, q.keys.seq()).Result()
		if err != nil {
			return "", fmt.Errorf("jobqueue: assign id: %w", err)
		}
		job.ID = strconv.FormatInt(n, 10)
	}
	if job.EnqueuedAt.IsZero() {
		job.EnqueuedAt = time.Now().UTC()
	}

	data, err := json.Marshal(job)
	if err != nil {
		return "", fmt.Errorf("jobqueue: marshal job: %w", err)
	}
	if err := q.client.LPush(ctx, q.keys.jobs(), data).Err(); err != nil {
		return "", fmt.Errorf("jobqueue: push job %s: %w", job.ID, err)
	}
	return job.ID, nil
}

// Dequeue blocks for up to timeout waiting for a job. It returns ErrEmpty
// when the timeout passes without one. A zero timeout blocks until a job
// arrives or ctx is done.
func (q *Queue) Dequeue(ctx context.Context, timeout time.Duration) (*Job, error) {
	res, err := q.client.BRPop(ctx, timeout, q.keys.jobs()).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, ErrEmpty
		}
		return nil, fmt.Errorf("jobqueue: pop job: %w", err)
	}
	if len(res) < 2 {
		return nil, fmt.Errorf("jobqueue: unexpected BRPOP reply of %d elements", len(res))
	}
	return decodeJob([]byte(res[1]))
}

func decodeJob(data []byte) (*Job, error) {
	var job Job
	if err := json.Unmarshal(data, &job); err != nil {
		return nil, fmt.Errorf("jobqueue: unmarshal job: %w", err)
	}
	return &job, nil
}

// PutResult stores res under its job ID and counts it as processed.
func (q *Queue) PutResult(ctx context.Context, res Result) error {
	if res.JobID == "" {
		return errors.New("jobqueue: result has no job id")
	}
	if res.FinishedAt.IsZero() {
		res.FinishedAt = time.Now().UTC()
	}
	data, err := json.Marshal(res)
	if err != nil {
		return fmt.Errorf("jobqueue: marshal result: %w", err)
	}

	_, err = q.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.Set(ctx, q.keys.result(res.JobID), data, q.resultTTL)
		pipe.Incr(ctx, q.keys.processed())
		return nil
	})
	if err != nil {
		return fmt.Errorf("jobqueue: store result %s: %w", res.JobID, err)
	}
	return nil
}

// Result returns the stored result of a job, or ErrEmpty if there is none.
func (q *Queue) Result(ctx context.Context, jobID string) (*Result, error) {
	data, err := q.client.Get(ctx, q.keys.result(jobID)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, ErrEmpty
		}
		return nil, fmt.Errorf("jobqueue: get result %s: %w", jobID, err)
	}
	var res Result
	if err := json.Unmarshal(data, &res); err != nil {
		return nil, fmt.Errorf("jobqueue: unmarshal result: %w", err)
	}
	return &res, nil
}

// Stats returns the pending queue length and the processed count.
func (q *Queue) Stats(ctx context.Context) (Stats, error) {
	var pending *redis.IntCmd
	var processed *redis.StringCmd
	_, err := q.client.Pipelined(ctx, func(pipe redis.Pipeliner) error {
		pending = pipe.LLen(ctx, q.keys.jobs())
		processed = pipe.Get(ctx, q.keys.processed())
		return nil
	})
	if err != nil && !errors.Is(err, redis.Nil) {
		return Stats{}, fmt.Errorf("jobqueue: stats: %w", err)
	}

	s := Stats{Pending: pending.Val()}
	if v, err := processed.Int64(); err == nil {
		s.Processed = v
	}
	return s, nil
}

// Close closes the Redis connection.
func (q *Queue) Close() error {
	return q.client.Close()
}
