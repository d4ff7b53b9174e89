package source

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"github.com/c2h5oh/datasize"
	"github.com/schollz/progressbar/v3"
	"go.uber.org/zap"

	"opensud/utils"
)

// DefaultChunkSize limits the peak memory used by a download.
const DefaultChunkSize = 8 * datasize.MB

// DownloadResult describes a completed download.
type DownloadResult struct {
	// Path of the written file
	Path string
	// Size the number of bytes written
	Size int64
	// SHA256 the hex digest computed over the written bytes
	SHA256 string
	// Verified is true only when the digest matched the pinned checksum
	Verified bool
}

// Downloader streams a remote dataset file to the local disk.
type Downloader struct {
	// ChunkSize the size of a single read/write buffer
	ChunkSize datasize.ByteSize

	// Progress is where the progress bar is rendered, nil disables it
	Progress io.Writer

	// Fetcher overrides the fetcher selection by URL scheme (used in tests)
	Fetcher Fetcher

	// FetcherOptions are passed to the fetcher selected by URL scheme
	FetcherOptions FetcherOptions

	// Logger defaults to the shared program logger
	Logger *utils.CustomLogger
}

// NewDownloader creates a downloader with the default chunk size and the progress bar rendered to stderr.
func NewDownloader(options FetcherOptions) *Downloader {
	return &Downloader{
		ChunkSize:      DefaultChunkSize,
		Progress:       os.Stderr,
		FetcherOptions: options,
	}
}

func (d *Downloader) logger() *utils.CustomLogger {
	if d.Logger != nil {
		return d.Logger
	}
	return log
}

// Download writes the remote file to dest chunk by chunk while hashing it, and then verifies the checksum.
// A failure in the middle of the transfer leaves a truncated file behind.
func (d *Downloader) Download(ctx context.Context, descriptor DatasetDescriptor, dest string) (ret DownloadResult, err error) {
	logger := d.logger()
	if err = descriptor.Validate(); err != nil {
		return ret, err
	}

	if err = os.MkdirAll(filepath.Dir(dest), 0o755); err != nil {
		return ret, fmt.Errorf("failed to create directory for %s: %w", dest, err)
	}

	logger.Info("Downloading", zap.String("from", descriptor.URL), zap.String("to", dest))

	fetcher := d.Fetcher
	if fetcher == nil {
		fetcher, err = NewFetcher(descriptor.URL, d.FetcherOptions)
		if err != nil {
			return ret, err
		}
	}

	start := time.Now()
	remote, err := fetcher.Fetch(ctx, descriptor.URL)
	if err != nil {
		return ret, err
	}
	defer func(body io.ReadCloser) {
		if err := body.Close(); err != nil {
			logger.Warn("Failed to close the response body", zap.Error(err))
		}
	}(remote.Body)

	file, err := os.Create(dest)
	if err != nil {
		return ret, fmt.Errorf("failed to create file %s: %w", dest, err)
	}
	defer func(file *os.File) {
		if closeErr := file.Close(); closeErr != nil && err == nil {
			err = fmt.Errorf("failed to close file %s: %w", dest, closeErr)
		}
	}(file)

	bar := d.newProgressBar(remote.Size)
	hasher := sha256.New()
	written, err := d.copyChunks(io.MultiWriter(file, hasher, bar), remote.Body)
	_ = bar.Finish()
	if err != nil {
		return ret, fmt.Errorf("download of %s failed after %d bytes: %w", descriptor.URL, written, err)
	}

	ret = DownloadResult{
		Path:   dest,
		Size:   written,
		SHA256: hex.EncodeToString(hasher.Sum(nil)),
	}
	logger.Debug("Download finished", zap.Int64("bytes", written),
		zap.Duration("time", time.Since(start)))
	if remote.Size >= 0 && written != remote.Size {
		logger.Warn("Downloaded size differs from the size reported by the server",
			zap.Int64("expected", remote.Size), zap.Int64("got", written))
	}

	ret.Verified = VerifyChecksum(logger, descriptor, ret.SHA256)
	return ret, nil
}

// copyChunks copies src to dst using a single buffer of ChunkSize bytes.
func (d *Downloader) copyChunks(dst io.Writer, src io.Reader) (written int64, err error) {
	chunkSize := int(d.ChunkSize.Bytes())
	if chunkSize <= 0 {
		chunkSize = int(DefaultChunkSize.Bytes())
	}
	buf := make([]byte, chunkSize)
	for {
		n, readErr := src.Read(buf)
		if n > 0 {
			w, writeErr := dst.Write(buf[:n])
			written += int64(w)
			if writeErr != nil {
				return written, writeErr
			}
			if w != n {
				return written, io.ErrShortWrite
			}
			d.logger().Trace("Chunk written", zap.Int("bytes", n), zap.Int64("total", written))
		}
		if errors.Is(readErr, io.EOF) {
			return written, nil
		}
		if readErr != nil {
			return written, readErr
		}
	}
}

// newProgressBar renders cumulative bytes against the total; with an unknown total it is a plain counter.
func (d *Downloader) newProgressBar(total int64) *progressbar.ProgressBar {
	writer := d.Progress
	if writer == nil {
		writer = io.Discard
	}
	return progressbar.NewOptions64(total,
		progressbar.OptionSetWriter(writer),
		progressbar.OptionSetDescription("Downloading"),
		progressbar.OptionShowBytes(true),
		progressbar.OptionShowCount(),
		progressbar.OptionThrottle(100*time.Millisecond),
		progressbar.OptionSpinnerType(14),
		progressbar.OptionOnCompletion(func() {
			_, _ = fmt.Fprintln(writer)
		}),
	)
}
