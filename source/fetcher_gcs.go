package source

import (
	"context"
	"fmt"
	"io"

	"cloud.google.com/go/storage"
	"go.uber.org/zap"
)

// GCSFetcher streams objects from Google Cloud Storage using application default credentials.
type GCSFetcher struct{}

func NewGCSFetcher() *GCSFetcher {
	return &GCSFetcher{}
}

func (f *GCSFetcher) Fetch(ctx context.Context, rawURL string) (Remote, error) {
	bucket, object, err := splitBucketURL(rawURL)
	if err != nil {
		return Remote{}, err
	}

	client, err := storage.NewClient(ctx)
	if err != nil {
		return Remote{}, fmt.Errorf("failed to create a storage client: %w", err)
	}

	log.Debug("Reading GCS object", zap.String("bucket", bucket), zap.String("object", object))
	reader, err := client.Bucket(bucket).Object(object).NewReader(ctx)
	if err != nil {
		_ = client.Close()
		return Remote{}, fmt.Errorf("failed to read gs://%s/%s: %w", bucket, object, err)
	}

	size := UnknownSize
	if reader.Attrs.Size >= 0 {
		size = reader.Attrs.Size
	}
	// the client lives as long as the body
	body := &multiCloser{Reader: reader, closers: []io.Closer{reader, client}}
	return Remote{Body: body, Size: size}, nil
}
