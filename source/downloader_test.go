package source

import (
	"bytes"
	"context"
	"errors"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"testing"

	"github.com/jarcoal/httpmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zapcore"

	"opensud/utils"
)

const testURL = "https://example.com/datasets/test.parquet"

// newMockedDownloader returns a downloader whose HTTP fetcher is served by httpmock.
func newMockedDownloader(t *testing.T, logger *utils.CustomLogger) *Downloader {
	t.Helper()
	fetcher := NewHTTPFetcher(FetcherOptions{})
	httpmock.ActivateNonDefault(fetcher.client.GetClient())
	t.Cleanup(httpmock.DeactivateAndReset)

	return &Downloader{ChunkSize: 4, Fetcher: fetcher, Logger: logger}
}

func registerPayload(payload []byte, knownSize bool) {
	httpmock.RegisterResponder(http.MethodGet, testURL, func(req *http.Request) (*http.Response, error) {
		resp := httpmock.NewBytesResponse(http.StatusOK, payload)
		if knownSize {
			resp.ContentLength = int64(len(payload))
		} else {
			resp.ContentLength = -1
		}
		return resp, nil
	})
}

func TestDownloadWriteIntegrity(t *testing.T) {
	logger, _ := newObservedLogger(t)
	d := newMockedDownloader(t, logger)
	payload := []byte("PAR1 some parquet-like bytes which span several chunks PAR1")
	registerPayload(payload, true)

	// the destination directory does not exist yet
	dest := filepath.Join(t.TempDir(), "nested", "data", "test.parquet")
	descriptor := DatasetDescriptor{URL: testURL, SHA256: sha256Hex(payload), FileName: "test.parquet"}

	result, err := d.Download(context.Background(), descriptor, dest)
	require.NoError(t, err)
	assert.Equal(t, dest, result.Path)
	assert.Equal(t, int64(len(payload)), result.Size)
	assert.True(t, result.Verified)

	saved, err := HashFile(dest)
	require.NoError(t, err)
	assert.Equal(t, result.SHA256, saved, "streamed hash must equal the hash of the saved file")

	content, err := os.ReadFile(dest)
	require.NoError(t, err)
	assert.Equal(t, payload, content)

	// the second call is idempotent with respect to the directory and overwrites the file
	result2, err := d.Download(context.Background(), descriptor, dest)
	require.NoError(t, err)
	assert.Equal(t, result.SHA256, result2.SHA256)
}

func TestDownloadHashMismatchIsOnlyAWarning(t *testing.T) {
	logger, logs := newObservedLogger(t)
	d := newMockedDownloader(t, logger)
	payload := []byte("refreshed upstream content")
	registerPayload(payload, true)

	const pinned = "0000000000000000000000000000000000000000000000000000000000000000"
	dest := filepath.Join(t.TempDir(), "test.parquet")
	descriptor := DatasetDescriptor{
		URL:        testURL,
		SHA256:     pinned,
		SourcePage: "https://example.com/datasets/",
		FileName:   "test.parquet",
	}

	result, err := d.Download(context.Background(), descriptor, dest)
	require.NoError(t, err)
	assert.False(t, result.Verified)
	assert.FileExists(t, dest)

	warnings := logs.FilterLevelExact(zapcore.WarnLevel).FilterMessageSnippet("mismatch").All()
	require.Len(t, warnings, 1)
	fields := warnings[0].ContextMap()
	assert.Equal(t, pinned, fields["expected"])
	assert.Equal(t, sha256Hex(payload), fields["got"])
	assert.Equal(t, "https://example.com/datasets/", fields["source_page"])
}

func TestDownloadUnknownSize(t *testing.T) {
	logger, _ := newObservedLogger(t)
	d := newMockedDownloader(t, logger)
	d.Progress = io.Discard
	payload := bytes.Repeat([]byte{1, 2, 3}, 100)
	registerPayload(payload, false)

	dest := filepath.Join(t.TempDir(), "test.parquet")
	result, err := d.Download(context.Background(), DatasetDescriptor{URL: testURL, FileName: "test.parquet"}, dest)
	require.NoError(t, err)
	assert.Equal(t, int64(len(payload)), result.Size)
	assert.False(t, result.Verified, "nothing to verify without a pinned hash")
}

func TestDownloadHTTPError(t *testing.T) {
	logger, _ := newObservedLogger(t)
	d := newMockedDownloader(t, logger)
	httpmock.RegisterResponder(http.MethodGet, testURL, httpmock.NewStringResponder(http.StatusNotFound, "not found"))

	dest := filepath.Join(t.TempDir(), "test.parquet")
	_, err := d.Download(context.Background(), DatasetDescriptor{URL: testURL, FileName: "test.parquet"}, dest)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "404")
	assert.NoFileExists(t, dest)
}

// recordingReader records the size of every read request.
type recordingReader struct {
	data    []byte
	maxRead int
	failAt  int
}

func (r *recordingReader) Read(p []byte) (int, error) {
	if len(p) > r.maxRead {
		r.maxRead = len(p)
	}
	if r.failAt > 0 && len(r.data) <= r.failAt {
		return 0, errors.New("connection reset by peer")
	}
	if len(r.data) == 0 {
		return 0, io.EOF
	}
	n := copy(p, r.data)
	r.data = r.data[n:]
	return n, nil
}

type staticFetcher struct {
	reader io.Reader
	size   int64
}

func (f staticFetcher) Fetch(_ context.Context, _ string) (Remote, error) {
	return Remote{Body: io.NopCloser(f.reader), Size: f.size}, nil
}

func TestDownloadUsesBoundedChunks(t *testing.T) {
	logger, _ := newObservedLogger(t)
	payload := bytes.Repeat([]byte("x"), 1000)
	reader := &recordingReader{data: payload}
	d := &Downloader{ChunkSize: 64, Fetcher: staticFetcher{reader: reader, size: 1000}, Logger: logger}

	dest := filepath.Join(t.TempDir(), "test.parquet")
	result, err := d.Download(context.Background(), DatasetDescriptor{URL: testURL, FileName: "test.parquet"}, dest)
	require.NoError(t, err)
	assert.Equal(t, int64(1000), result.Size)
	assert.Equal(t, 64, reader.maxRead)
}

func TestDownloadFailureLeavesTruncatedFile(t *testing.T) {
	logger, _ := newObservedLogger(t)
	payload := bytes.Repeat([]byte("y"), 100)
	reader := &recordingReader{data: payload, failAt: 40}
	d := &Downloader{ChunkSize: 10, Fetcher: staticFetcher{reader: reader, size: 100}, Logger: logger}

	dest := filepath.Join(t.TempDir(), "test.parquet")
	_, err := d.Download(context.Background(), DatasetDescriptor{URL: testURL, FileName: "test.parquet"}, dest)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "connection reset")

	info, statErr := os.Stat(dest)
	require.NoError(t, statErr)
	assert.Equal(t, int64(60), info.Size())
}
