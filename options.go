package psdmerge

import "log/slog"

// Option configures a Controller during creation.
//
// Example:
//
//	c, err := psdmerge.Open("doc.yaml",
//	    psdmerge.WithDebugDir("/tmp/merge"),
//	    psdmerge.WithPoolSize(8),
//	)
type Option func(*options)

// options holds optional configuration for Controller creation.
type options struct {
	debugDir string
	poolSize int
	logger   *slog.Logger
}

// defaultPoolSize is the number of canvases kept per size bucket.
const defaultPoolSize = 4

// defaultOptions returns the default controller options.
func defaultOptions() options {
	return options{
		poolSize: defaultPoolSize,
	}
}

// WithDebugDir enables snapshots: every paint step writes the layer image
// and the resulting canvas into dir. An empty dir disables snapshots.
func WithDebugDir(dir string) Option {
	return func(o *options) {
		o.debugDir = dir
	}
}

// WithPoolSize sets how many canvases of each size the controller keeps
// for reuse between merges. Zero keeps all of them.
func WithPoolSize(n int) Option {
	return func(o *options) {
		o.poolSize = max(n, 0)
	}
}

// WithLogger gives the controller its own logger instead of the package
// logger returned by [Logger].
func WithLogger(l *slog.Logger) Option {
	return func(o *options) {
		o.logger = l
	}
}
