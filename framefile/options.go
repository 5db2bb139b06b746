package framefile

import (
	"github.com/klauspost/compress/zstd"
	"go.uber.org/zap"
)

type WOption func(*writerOptions) error

type writerOptions struct {
	logger    *zap.Logger
	zstdEOpts []zstd.EOption
}

func (o *writerOptions) setDefault() {
	*o = writerOptions{
		logger: zap.NewNop(),
	}
}

func WithWLogger(l *zap.Logger) WOption {
	return func(o *writerOptions) error { o.logger = l; return nil }
}

// WithZstdEOptions configures the encoder compressing stored frames.
func WithZstdEOptions(opts ...zstd.EOption) WOption {
	return func(o *writerOptions) error { o.zstdEOpts = opts; return nil }
}

type ROption func(*readerOptions) error

type readerOptions struct {
	logger    *zap.Logger
	zstdDOpts []zstd.DOption
}

func (o *readerOptions) setDefault() {
	*o = readerOptions{
		logger: zap.NewNop(),
	}
}

func WithRLogger(l *zap.Logger) ROption {
	return func(o *readerOptions) error { o.logger = l; return nil }
}

// WithZstdDOptions configures the decoder inflating stored frames.
func WithZstdDOptions(opts ...zstd.DOption) ROption {
	return func(o *readerOptions) error { o.zstdDOpts = opts; return nil }
}
