// Package nativecomp provides in-process single-file compression as an
// alternative to shelling out to an external tool. It supports gzip (parallel,
// via pgzip) and zstd, writing through a temp file with an atomic rename so a
// half-written output never lands under its final name.
package nativecomp

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/klauspost/compress/zstd"
	"github.com/klauspost/pgzip"

	"github.com/paulschiretz/pgl-pdfcompress/pkg/pool"
	"github.com/paulschiretz/pgl-pdfcompress/pkg/util"
)

// DefaultBufferSize is the copy buffer size used when none is configured.
const DefaultBufferSize int64 = 1 << 20 // 1MB

// Compressor compresses one file at a time. It is stateless apart from its
// buffer pool and safe for concurrent use by multiple workers.
type Compressor struct {
	format     Format
	level      Level
	bufferPool *pool.FixedBufferPool
	bufferSize int64
}

// New creates a Compressor for the given format and level. A bufferSize of 0
// uses DefaultBufferSize.
func New(format Format, level Level, bufferSize int64) (*Compressor, error) {
	if _, ok := formatName[format]; !ok {
		return nil, fmt.Errorf("unsupported compression format: %d", format)
	}
	if _, ok := levelName[level]; !ok {
		return nil, fmt.Errorf("unsupported compression level: %d", level)
	}
	if bufferSize <= 0 {
		bufferSize = DefaultBufferSize
	}
	return &Compressor{
		format:     format,
		level:      level,
		bufferPool: pool.NewFixedBuffer(bufferSize),
		bufferSize: bufferSize,
	}, nil
}

// OutputName appends the format's suffix to the source filename.
func (c *Compressor) OutputName(name string) string {
	return name + c.format.Suffix()
}

// countingWriter wraps an io.Writer and counts the bytes written through it.
type countingWriter struct {
	w io.Writer
	n int64
}

func (cw *countingWriter) Write(p []byte) (n int, err error) {
	n, err = cw.w.Write(p)
	cw.n += int64(n)
	return
}

// ctxReader wraps an io.Reader and fails the copy when the context is
// canceled, so a long compression does not outlive the run.
type ctxReader struct {
	ctx context.Context
	r   io.Reader
}

func (cr *ctxReader) Read(p []byte) (int, error) {
	select {
	case <-cr.ctx.Done():
		return 0, cr.ctx.Err()
	default:
	}
	return cr.r.Read(p)
}

// CompressFile compresses srcPath into outPath and returns the number of
// compressed bytes written.
func (c *Compressor) CompressFile(ctx context.Context, srcPath, outPath string) (written int64, retErr error) {
	srcF, err := os.Open(srcPath)
	if err != nil {
		return 0, fmt.Errorf("failed to open source file %s: %w", srcPath, err)
	}
	defer srcF.Close()

	// 1. Create Temp File
	// Created in the output directory so the final rename stays on one filesystem.
	trgF, err := os.CreateTemp(filepath.Dir(outPath), "pgl-pdfcompress-*.tmp")
	if err != nil {
		return 0, fmt.Errorf("failed to create temp file: %w", err)
	}
	tempName := trgF.Name()

	// Ensure cleanup on error
	defer func() {
		if retErr != nil {
			trgF.Close()
			os.Remove(tempName)
		}
	}()

	// 2. Write Compressed Content
	written, err = c.writeCompressed(ctx, srcF, trgF)
	if err != nil {
		return 0, err
	}

	// 3. Close explicitly to flush to disk before rename
	if err := trgF.Close(); err != nil {
		return 0, fmt.Errorf("failed to close temp file: %w", err)
	}

	// 4. Atomic Rename
	if err := os.Rename(tempName, outPath); err != nil {
		return 0, fmt.Errorf("failed to rename temp file to final path: %w", err)
	}
	if err := os.Chmod(outPath, util.UserWritableFilePerms); err != nil {
		return 0, fmt.Errorf("failed to set permissions on %s: %w", outPath, err)
	}

	return written, nil
}

func (c *Compressor) writeCompressed(ctx context.Context, src io.Reader, trg io.Writer) (int64, error) {
	cw := &countingWriter{w: trg}

	var compressedWriter io.WriteCloser
	if c.format == Zstd {
		var encoderLevel zstd.EncoderLevel
		switch c.level {
		case Fastest:
			encoderLevel = zstd.SpeedFastest
		case Better:
			encoderLevel = zstd.SpeedBetterCompression
		case Best:
			encoderLevel = zstd.SpeedBestCompression
		default:
			encoderLevel = zstd.SpeedDefault
		}
		zstdWriter, err := zstd.NewWriter(cw, zstd.WithEncoderLevel(encoderLevel))
		if err != nil {
			return 0, fmt.Errorf("failed to create zstd writer: %w", err)
		}
		compressedWriter = zstdWriter
	} else {
		var lvl int
		switch c.level {
		case Fastest:
			lvl = pgzip.BestSpeed
		case Better:
			lvl = 6 // Good balance
		case Best:
			lvl = pgzip.BestCompression
		default:
			lvl = pgzip.DefaultCompression
		}
		pgzipWriter, err := pgzip.NewWriterLevel(cw, lvl)
		if err != nil {
			return 0, fmt.Errorf("failed to create gzip writer: %w", err)
		}
		compressedWriter = pgzipWriter
	}

	bufPtr := c.bufferPool.Get()
	defer c.bufferPool.Put(bufPtr)

	if _, err := io.CopyBuffer(compressedWriter, &ctxReader{ctx: ctx, r: src}, *bufPtr); err != nil {
		compressedWriter.Close()
		return 0, fmt.Errorf("compression copy failed: %w", err)
	}
	if err := compressedWriter.Close(); err != nil {
		return 0, fmt.Errorf("compressed writer close failed: %w", err)
	}

	return cw.n, nil
}
