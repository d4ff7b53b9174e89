package source

import (
	"context"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"go.uber.org/zap"
)

// S3Fetcher streams objects from AWS S3 buckets.
type S3Fetcher struct {
	options FetcherOptions
}

// NewS3Fetcher creates a fetcher which uses static credentials when both keys are configured,
// and the default AWS credential chain otherwise.
func NewS3Fetcher(options FetcherOptions) *S3Fetcher {
	return &S3Fetcher{options: options}
}

// loadOptions builds the AWS configuration options out of the fetcher options.
func (f *S3Fetcher) loadOptions() []func(*awsconfig.LoadOptions) error {
	var opts []func(*awsconfig.LoadOptions) error
	if f.options.AWSRegion != "" {
		opts = append(opts, awsconfig.WithRegion(f.options.AWSRegion))
	}
	if f.options.AWSAccessKey != "" && f.options.AWSSecretKey != "" {
		// Last parameter is session token, usually empty
		provider := credentials.NewStaticCredentialsProvider(f.options.AWSAccessKey, f.options.AWSSecretKey, "")
		opts = append(opts, awsconfig.WithCredentialsProvider(provider))
	}
	return opts
}

func (f *S3Fetcher) Fetch(ctx context.Context, rawURL string) (Remote, error) {
	bucket, key, err := splitBucketURL(rawURL)
	if err != nil {
		return Remote{}, err
	}

	cfg, err := awsconfig.LoadDefaultConfig(ctx, f.loadOptions()...)
	if err != nil {
		return Remote{}, fmt.Errorf("failed to load AWS configuration: %w", err)
	}
	client := s3.NewFromConfig(cfg)

	log.Debug("Getting S3 object", zap.String("bucket", bucket), zap.String("key", key))
	out, err := client.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		return Remote{}, fmt.Errorf("failed to get s3://%s/%s: %w", bucket, key, err)
	}

	size := UnknownSize
	if out.ContentLength != nil {
		size = aws.ToInt64(out.ContentLength)
	}
	return Remote{Body: out.Body, Size: size}, nil
}
