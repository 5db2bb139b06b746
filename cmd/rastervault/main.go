// Command rastervault stores arbitrary files inside sequences of
// fixed-geometry raster frames and restores them byte-for-byte.
package main

import (
	"bytes"
	"context"
	"errors"
	"hash"
	"io"
	"log"
	"os"

	"github.com/klauspost/compress/zstd"
	"github.com/schollz/progressbar/v3"
	flag "github.com/spf13/pflag"
	"github.com/zeebo/blake3"
	"go.uber.org/zap"

	rasterstore "github.com/rastervault/raster-store-go"
	"github.com/rastervault/raster-store-go/bitmap"
	"github.com/rastervault/raster-store-go/framefile"
)

func main() {
	var (
		encodeFlag, decodeFlag, packFlag, unpackFlag bool
		inputFlag, outputFlag                        string
		widthFlag, heightFlag, channelsFlag          int
		qualityFlag                                  int
		verifyFlag, verboseFlag                      bool
	)

	flag.BoolVarP(&encodeFlag, "encode", "e", false, "store a file as a frame artifact")
	flag.BoolVarP(&decodeFlag, "decode", "d", false, "restore a file from a frame artifact")
	flag.BoolVar(&packFlag, "pack-bitmap", false, "store a file as a single square bitmap (PNG)")
	flag.BoolVar(&unpackFlag, "unpack-bitmap", false, "restore a file from a square bitmap (PNG)")
	flag.StringVarP(&inputFlag, "input", "f", "", "input filename")
	flag.StringVarP(&outputFlag, "output", "o", "", "output filename")
	flag.IntVarP(&widthFlag, "width", "W", 1920, "frame width in pixels")
	flag.IntVarP(&heightFlag, "height", "H", 1080, "frame height in pixels")
	flag.IntVarP(&channelsFlag, "channels", "C", 3, "payload bytes per pixel")
	flag.IntVarP(&qualityFlag, "quality", "q", 1, "artifact compression level (lower == faster)")
	flag.BoolVarP(&verifyFlag, "verify", "t", false, "decode after encode and compare digests")
	flag.BoolVarP(&verboseFlag, "verbose", "v", false, "be verbose")

	flag.Parse()

	var err error
	var logger *zap.Logger
	if verboseFlag {
		logger, err = zap.NewDevelopment()
	} else {
		logger, err = zap.NewProduction()
	}
	if err != nil {
		log.Fatal("failed to initialize logger", err)
	}
	defer func() {
		_ = logger.Sync()
	}()

	if inputFlag == "" || outputFlag == "" {
		logger.Fatal("both input and output files need to be defined")
	}

	modes := 0
	for _, m := range []bool{encodeFlag, decodeFlag, packFlag, unpackFlag} {
		if m {
			modes++
		}
	}
	if modes != 1 {
		logger.Fatal("exactly one of --encode, --decode, --pack-bitmap, --unpack-bitmap must be given")
	}

	geo := rasterstore.Geometry{Width: widthFlag, Height: heightFlag, Channels: channelsFlag}

	switch {
	case encodeFlag:
		encode(logger, geo, inputFlag, outputFlag, qualityFlag, verifyFlag)
	case decodeFlag:
		decode(logger, geo, inputFlag, outputFlag)
	case packFlag:
		packBitmap(logger, inputFlag, outputFlag)
	case unpackFlag:
		unpackBitmap(logger, inputFlag, outputFlag)
	}
}

func encode(logger *zap.Logger, geo rasterstore.Geometry, inputPath, outputPath string, quality int, verify bool) {
	info, err := os.Stat(inputPath)
	if err != nil {
		logger.Fatal("failed to stat input", zap.Error(err))
	}
	size := uint64(info.Size())

	input, err := os.Open(inputPath)
	if err != nil {
		logger.Fatal("failed to open input", zap.Error(err))
	}
	defer input.Close()

	output, err := os.OpenFile(outputPath, os.O_TRUNC|os.O_WRONLY|os.O_CREATE, 0644)
	if err != nil {
		logger.Fatal("failed to open output", zap.Error(err))
	}
	defer output.Close()

	sink, err := framefile.NewWriter(output, geo,
		framefile.WithWLogger(logger),
		framefile.WithZstdEOptions(zstd.WithEncoderLevel(zstd.EncoderLevelFromZstd(quality))))
	if err != nil {
		logger.Fatal("failed to create artifact writer", zap.Error(err))
	}

	w, err := rasterstore.NewWriter(sink, geo, size, rasterstore.WithWLogger(logger))
	if err != nil {
		logger.Fatal("failed to create frame writer", zap.Error(err))
	}

	var expected hash.Hash
	var src io.Reader = input
	if verify {
		expected = blake3.New()
		src = io.TeeReader(input, expected)
	}

	bar := progressbar.DefaultBytes(info.Size(), "encoding")
	err = w.WriteMany(context.Background(), chunkSource(src, geo),
		rasterstore.WithWriteCallback(func(n uint32) {
			_ = bar.Add(int(n))
		}))
	if err != nil {
		logger.Fatal("failed to write frames", zap.Error(err))
	}
	if err := w.Close(); err != nil {
		logger.Fatal("failed to close frame writer", zap.Error(err))
	}
	if err := sink.Close(); err != nil {
		logger.Fatal("failed to close artifact writer", zap.Error(err))
	}
	_ = bar.Finish()

	logger.Info("artifact written",
		zap.Int64("frames", sink.FramesWritten()),
		zap.Uint64("bytes", sink.BytesWritten()))

	if verify {
		verifyArtifact(logger, geo, outputPath, expected)
	}
}

// chunkSource yields one frame's worth of source bytes at a time: the
// first chunk leaves room for the stream header.
func chunkSource(r io.Reader, geo rasterstore.Geometry) rasterstore.ChunkSource {
	buf := make([]byte, geo.FrameCapacity())
	first := true
	return func() ([]byte, error) {
		want := geo.FrameCapacity()
		if first {
			want = geo.FirstFrameDataSize()
			first = false
		}

		n, err := io.ReadFull(r, buf[:want])
		if errors.Is(err, io.EOF) {
			return nil, nil
		}
		if errors.Is(err, io.ErrUnexpectedEOF) {
			return buf[:n], nil
		}
		if err != nil {
			return nil, err
		}
		return buf[:want], nil
	}
}

func verifyArtifact(logger *zap.Logger, geo rasterstore.Geometry, path string, expected hash.Hash) {
	artifact, err := os.Open(path)
	if err != nil {
		logger.Fatal("failed to open artifact for verification", zap.Error(err))
	}
	defer artifact.Close()

	src, err := framefile.NewReader(artifact, framefile.WithRLogger(logger))
	if err != nil {
		logger.Fatal("failed to open artifact reader", zap.Error(err))
	}
	defer src.Close()

	if src.Geometry() != geo {
		logger.Fatal("artifact geometry differs from requested geometry",
			zap.Object("artifact", src.Geometry()), zap.Object("requested", geo))
	}

	r, err := rasterstore.NewReader(src, src.Geometry(), rasterstore.WithRLogger(logger))
	if err != nil {
		logger.Fatal("failed to create frame reader", zap.Error(err))
	}

	actual := blake3.New()
	m, err := io.CopyBuffer(actual, r, make([]byte, 128<<10))
	if err != nil {
		logger.Fatal("failed to compute actual digest", zap.Int64("processed", m), zap.Error(err))
	}

	if !bytes.Equal(actual.Sum(nil), expected.Sum(nil)) {
		logger.Fatal("digest verification failed",
			zap.Binary("actual", actual.Sum(nil)), zap.Binary("expected", expected.Sum(nil)))
	} else {
		logger.Info("digest verification succeeded", zap.Binary("actual", actual.Sum(nil)))
	}
}

func decode(logger *zap.Logger, geo rasterstore.Geometry, inputPath, outputPath string) {
	artifact, err := os.Open(inputPath)
	if err != nil {
		logger.Fatal("failed to open artifact", zap.Error(err))
	}
	defer artifact.Close()

	src, err := framefile.NewReader(artifact, framefile.WithRLogger(logger))
	if err != nil {
		logger.Fatal("failed to open artifact reader", zap.Error(err))
	}
	defer src.Close()

	// The artifact records its own geometry; explicit flags must agree.
	geometryOverridden := flag.CommandLine.Changed("width") ||
		flag.CommandLine.Changed("height") || flag.CommandLine.Changed("channels")
	if geometryOverridden && src.Geometry() != geo {
		logger.Fatal("artifact geometry differs from requested geometry",
			zap.Object("artifact", src.Geometry()), zap.Object("requested", geo))
	}

	r, err := rasterstore.NewReader(src, src.Geometry(), rasterstore.WithRLogger(logger))
	if err != nil {
		logger.Fatal("failed to create frame reader", zap.Error(err))
	}

	output, err := os.OpenFile(outputPath, os.O_TRUNC|os.O_WRONLY|os.O_CREATE, 0644)
	if err != nil {
		logger.Fatal("failed to open output", zap.Error(err))
	}
	defer output.Close()

	bar := progressbar.DefaultBytes(r.Size(), "decoding")
	m, err := io.CopyBuffer(output, io.TeeReader(r, bar), make([]byte, src.Geometry().FrameCapacity()))
	if err != nil {
		logger.Fatal("failed to restore file", zap.Int64("processed", m), zap.Error(err))
	}
	_ = bar.Finish()

	logger.Info("file restored", zap.Int64("bytes", m))
}

func packBitmap(logger *zap.Logger, inputPath, outputPath string) {
	data, err := os.ReadFile(inputPath)
	if err != nil {
		logger.Fatal("failed to read input", zap.Error(err))
	}

	output, err := os.OpenFile(outputPath, os.O_TRUNC|os.O_WRONLY|os.O_CREATE, 0644)
	if err != nil {
		logger.Fatal("failed to open output", zap.Error(err))
	}
	defer output.Close()

	if err := bitmap.Encode(output, data); err != nil {
		logger.Fatal("failed to encode bitmap", zap.Error(err))
	}

	side := bitmap.Side(len(data) * 8)
	logger.Info("bitmap written", zap.Int("side", side), zap.Int("bytes", len(data)))
}

func unpackBitmap(logger *zap.Logger, inputPath, outputPath string) {
	input, err := os.Open(inputPath)
	if err != nil {
		logger.Fatal("failed to open input", zap.Error(err))
	}
	defer input.Close()

	data, err := bitmap.Decode(input)
	if err != nil {
		logger.Fatal("failed to decode bitmap", zap.Error(err))
	}

	if err := os.WriteFile(outputPath, data, 0644); err != nil {
		logger.Fatal("failed to write output", zap.Error(err))
	}

	logger.Info("file restored", zap.Int("bytes", len(data)))
}
