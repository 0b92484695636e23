package software

// Option configures an Adapter.
type Option func(*options)

type options struct {
	workers   int
	queueSize int
}

func defaultOptions() options {
	return options{
		workers:   0, // GOMAXPROCS
		queueSize: 16,
	}
}

// WithWorkers sets the number of goroutines that execute dispatches.
// Zero or negative uses GOMAXPROCS.
func WithWorkers(n int) Option {
	return func(o *options) {
		o.workers = n
	}
}

// WithQueueSize sets how many committed command buffers may wait for
// execution before Commit blocks.
func WithQueueSize(n int) Option {
	return func(o *options) {
		if n > 0 {
			o.queueSize = n
		}
	}
}
