package rasterstore

import (
	"errors"

	"go.uber.org/zap"
)

type WOption func(*writerOptions) error

type writerOptions struct {
	logger *zap.Logger
}

func (o *writerOptions) setDefault() {
	*o = writerOptions{
		logger: zap.NewNop(),
	}
}

func WithWLogger(l *zap.Logger) WOption {
	return func(o *writerOptions) error { o.logger = l; return nil }
}

type WriteManyOption func(options *writeManyOptions) error

type writeManyOptions struct {
	concurrency   int
	writeCallback func(uint32)
}

// WithConcurrency sets the number of goroutines framing chunks.
// Defaults to GOMAXPROCS.
func WithConcurrency(concurrency int) WriteManyOption {
	return func(o *writeManyOptions) error {
		if concurrency < 1 {
			return errors.New("concurrency must be positive")
		}
		o.concurrency = concurrency
		return nil
	}
}

// WithWriteCallback is called after each frame reaches the sink with the
// number of source bytes the frame carries.
func WithWriteCallback(callback func(size uint32)) WriteManyOption {
	return func(o *writeManyOptions) error {
		o.writeCallback = callback
		return nil
	}
}
