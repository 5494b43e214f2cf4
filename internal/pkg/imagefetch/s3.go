package imagefetch

import (
	"context"
	"fmt"
	"net/http"
	neturl "net/url"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	appcfg "github.com/slidehub/ai-service/internal/config"
)

const defaultS3Region = "us-east-1"

// S3Fetcher reads s3://bucket/key objects from S3 compatible storage.
type S3Fetcher struct {
	client   *s3.Client
	maxBytes int64
}

func NewS3Fetcher(opts appcfg.S3Config, httpClient *http.Client, maxBytes int64) (*S3Fetcher, error) {
	if !opts.Enabled() {
		return nil, fmt.Errorf("incomplete s3 config: access_key_id/secret_access_key are required")
	}
	region := strings.TrimSpace(opts.Region)
	if region == "" {
		region = defaultS3Region
	}

	s3Opts := s3.Options{
		Region:       region,
		Credentials:  credentials.NewStaticCredentialsProvider(opts.AccessKeyID, opts.SecretAccessKey, ""),
		UsePathStyle: opts.PathStyle,
	}
	if endpoint := strings.TrimSpace(opts.Endpoint); endpoint != "" {
		if !strings.HasPrefix(endpoint, "http://") && !strings.HasPrefix(endpoint, "https://") {
			endpoint = "https://" + endpoint
		}
		s3Opts.BaseEndpoint = aws.String(strings.TrimSuffix(endpoint, "/"))
		// custom endpoints (MinIO, R2) rarely support virtual-hosted buckets
		s3Opts.UsePathStyle = true
	}
	if httpClient != nil {
		s3Opts.HTTPClient = httpClient
	}
	return &S3Fetcher{client: s3.New(s3Opts), maxBytes: maxBytes}, nil
}

func (f *S3Fetcher) Fetch(ctx context.Context, rawURL string) ([]byte, error) {
	bucket, key, err := parseS3URL(rawURL)
	if err != nil {
		return nil, err
	}
	out, err := f.client.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		return nil, fmt.Errorf("s3 get %s/%s: %w", bucket, key, err)
	}
	defer out.Body.Close()
	return readLimited(out.Body, f.maxBytes)
}

func parseS3URL(rawURL string) (bucket, key string, err error) {
	u, err := neturl.Parse(rawURL)
	if err != nil {
		return "", "", err
	}
	bucket = u.Host
	key = strings.TrimPrefix(u.Path, "/")
	if bucket == "" || key == "" {
		return "", "", fmt.Errorf("invalid s3 url %q, expected s3://bucket/key", rawURL)
	}
	return bucket, key, nil
}
