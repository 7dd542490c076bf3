// Custodian - GRC Backup and Restore Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/custodian

package codec

import (
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/klauspost/compress/zstd"
	"github.com/klauspost/pgzip"
)

// Algorithm names a compression codec.
type Algorithm string

const (
	Gzip Algorithm = "gzip"
	Zstd Algorithm = "zstd"
)

const copyBufferSize = 256 * 1024

// ErrUnknownAlgorithm is returned for codec names other than gzip and zstd.
var ErrUnknownAlgorithm = errors.New("unknown compression algorithm")

// Compressor streams data through one compression algorithm.
type Compressor struct {
	algo  Algorithm
	level int
}

// NewCompressor returns a compressor for algo. A level of -1 selects the
// codec default.
func NewCompressor(algo string, level int) (*Compressor, error) {
	switch Algorithm(algo) {
	case Gzip:
		if level < -2 || level > 9 {
			return nil, fmt.Errorf("gzip level %d out of range", level)
		}
	case Zstd:
		if level != -1 && (level < 1 || level > 22) {
			return nil, fmt.Errorf("zstd level %d out of range", level)
		}
	case "":
		algo = string(Gzip)
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownAlgorithm, algo)
	}
	return &Compressor{algo: Algorithm(algo), level: level}, nil
}

// Algorithm returns the codec name recorded on the job.
func (c *Compressor) Algorithm() Algorithm { return c.algo }

// Extension returns the file suffix for compressed artifacts.
func (c *Compressor) Extension() string {
	return ExtensionFor(c.algo)
}

// ExtensionFor returns ".gz" or ".zst".
func ExtensionFor(algo Algorithm) string {
	if algo == Zstd {
		return ".zst"
	}
	return ".gz"
}

// Compress copies src to dst through the compressor.
func (c *Compressor) Compress(dst io.Writer, src io.Reader) error {
	var w io.WriteCloser
	switch c.algo {
	case Zstd:
		opts := []zstd.EOption{}
		if c.level != -1 {
			opts = append(opts, zstd.WithEncoderLevel(zstd.EncoderLevelFromZstd(c.level)))
		}
		zw, err := zstd.NewWriter(dst, opts...)
		if err != nil {
			return fmt.Errorf("create zstd writer: %w", err)
		}
		w = zw
	default:
		gw, err := pgzip.NewWriterLevel(dst, c.level)
		if err != nil {
			return fmt.Errorf("create gzip writer: %w", err)
		}
		w = gw
	}

	if _, err := io.CopyBuffer(w, src, make([]byte, copyBufferSize)); err != nil {
		_ = w.Close()
		return fmt.Errorf("compress: %w", err)
	}
	if err := w.Close(); err != nil {
		return fmt.Errorf("finish %s stream: %w", c.algo, err)
	}
	return nil
}

// Decompress copies the decoded form of src to dst.
func (c *Compressor) Decompress(dst io.Writer, src io.Reader) error {
	return Decompress(c.algo, dst, src)
}

// Decompress decodes src with algo; used at restore time where the
// algorithm comes from the ledger entry rather than current configuration.
func Decompress(algo Algorithm, dst io.Writer, src io.Reader) error {
	var r io.Reader
	switch algo {
	case Zstd:
		zr, err := zstd.NewReader(src)
		if err != nil {
			return fmt.Errorf("open zstd stream: %w", err)
		}
		defer zr.Close()
		r = zr
	case Gzip, "":
		gr, err := pgzip.NewReader(src)
		if err != nil {
			return fmt.Errorf("open gzip stream: %w", err)
		}
		defer gr.Close() //nolint:errcheck // close only releases decoder goroutines
		r = gr
	default:
		return fmt.Errorf("%w: %q", ErrUnknownAlgorithm, algo)
	}

	if _, err := io.CopyBuffer(dst, r, make([]byte, copyBufferSize)); err != nil {
		return fmt.Errorf("decompress: %w", err)
	}
	return nil
}

// CompressFile writes the compressed form of srcPath to dstPath.
func (c *Compressor) CompressFile(srcPath, dstPath string) error {
	return transformFile(srcPath, dstPath, c.Compress)
}

// DecompressFile writes the decoded form of srcPath to dstPath.
func DecompressFile(algo Algorithm, srcPath, dstPath string) error {
	return transformFile(srcPath, dstPath, func(dst io.Writer, src io.Reader) error {
		return Decompress(algo, dst, src)
	})
}

// transformFile runs fn from srcPath into a new dstPath, removing dstPath on failure.
func transformFile(srcPath, dstPath string, fn func(io.Writer, io.Reader) error) error {
	in, err := os.Open(srcPath) //nolint:gosec // G304: workspace path
	if err != nil {
		return fmt.Errorf("open %s: %w", srcPath, err)
	}
	defer in.Close() //nolint:errcheck // read-only

	out, err := os.OpenFile(dstPath, os.O_CREATE|os.O_EXCL|os.O_WRONLY, 0o600) //nolint:gosec // G304: workspace path
	if err != nil {
		return fmt.Errorf("create %s: %w", dstPath, err)
	}

	if err := fn(out, in); err != nil {
		_ = out.Close()
		_ = os.Remove(dstPath)
		return err
	}
	if err := out.Sync(); err != nil {
		_ = out.Close()
		_ = os.Remove(dstPath)
		return fmt.Errorf("sync %s: %w", dstPath, err)
	}
	if err := out.Close(); err != nil {
		_ = os.Remove(dstPath)
		return fmt.Errorf("close %s: %w", dstPath, err)
	}
	return nil
}
