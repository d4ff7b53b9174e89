package source

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/go-resty/resty/v2"
	"go.uber.org/zap"
)

// defaultTimeout is the response header timeout used when the options do not set one.
const defaultTimeout = 30 * time.Second

// HTTPFetcher streams files from HTTP servers.
type HTTPFetcher struct {
	client *resty.Client
}

// NewHTTPFetcher creates a fetcher with a response header timeout. The body transfer itself is not limited,
// because the dataset may take much longer to download than to start.
func NewHTTPFetcher(options FetcherOptions) *HTTPFetcher {
	timeout := options.Timeout
	if timeout <= 0 {
		timeout = defaultTimeout
	}
	transport := http.DefaultTransport.(*http.Transport).Clone()
	transport.ResponseHeaderTimeout = timeout
	client := resty.NewWithClient(&http.Client{Transport: transport})
	return &HTTPFetcher{client: client}
}

// Fetch sends a GET request and returns the unparsed response body.
func (f *HTTPFetcher) Fetch(ctx context.Context, rawURL string) (Remote, error) {
	log.Debug("Sending HTTP request", zap.String("url", rawURL))
	resp, err := f.client.R().
		SetContext(ctx).
		SetDoNotParseResponse(true).
		Get(rawURL)
	if err != nil {
		return Remote{}, fmt.Errorf("request to %s failed: %w", rawURL, err)
	}
	body := resp.RawBody()
	if resp.IsError() || resp.StatusCode() < http.StatusOK || resp.StatusCode() >= http.StatusMultipleChoices {
		if body != nil {
			_ = body.Close()
		}
		return Remote{}, fmt.Errorf("request to %s failed: unexpected status %s", rawURL, resp.Status())
	}

	size := UnknownSize
	if resp.RawResponse != nil && resp.RawResponse.ContentLength >= 0 {
		size = resp.RawResponse.ContentLength
	}
	log.Debug("HTTP response received", zap.Int("status", resp.StatusCode()), zap.Int64("size", size))
	return Remote{Body: body, Size: size}, nil
}
