package source

import (
	"context"
	"fmt"
	"io"
	"net/url"
	"strings"
	"time"
)

// UnknownSize is reported by a fetcher when the server does not tell the content length.
const UnknownSize int64 = -1

// Remote is an open stream of a remote file.
type Remote struct {
	// Body must be closed by the caller
	Body io.ReadCloser
	// Size the total size reported by the server, or UnknownSize
	Size int64
}

// Fetcher opens a remote file for streaming.
type Fetcher interface {
	Fetch(ctx context.Context, rawURL string) (Remote, error)
}

// FetcherOptions are transport settings shared by all fetchers.
type FetcherOptions struct {
	// Timeout limits waiting for the response headers (not the whole transfer)
	Timeout time.Duration

	AWSRegion    string
	AWSAccessKey string
	AWSSecretKey string
}

// NewFetcher selects a fetcher by the URL scheme.
func NewFetcher(rawURL string, options FetcherOptions) (Fetcher, error) {
	u, err := url.Parse(rawURL)
	if err != nil {
		return nil, fmt.Errorf("invalid dataset URL '%s': %w", rawURL, err)
	}
	switch strings.ToLower(u.Scheme) {
	case "http", "https":
		return NewHTTPFetcher(options), nil
	case "s3":
		return NewS3Fetcher(options), nil
	case "gs":
		return NewGCSFetcher(), nil
	default:
		return nil, fmt.Errorf("unsupported dataset URL scheme '%s' in '%s'", u.Scheme, rawURL)
	}
}

// splitBucketURL splits s3://bucket/key or gs://bucket/object into the bucket and the object key.
func splitBucketURL(rawURL string) (bucket string, key string, err error) {
	u, err := url.Parse(rawURL)
	if err != nil {
		return "", "", fmt.Errorf("invalid bucket URL '%s': %w", rawURL, err)
	}
	bucket = u.Host
	key = strings.TrimPrefix(u.Path, "/")
	if bucket == "" || key == "" {
		return "", "", fmt.Errorf("bucket URL '%s' must look like scheme://bucket/key", rawURL)
	}
	return bucket, key, nil
}

// multiCloser closes the body first and then the client which produced it.
type multiCloser struct {
	io.Reader
	closers []io.Closer
}

func (m *multiCloser) Close() (err error) {
	for _, c := range m.closers {
		if e := c.Close(); e != nil && err == nil {
			err = e
		}
	}
	return
}
