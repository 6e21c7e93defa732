// Package seventeenlands downloads the public 17Lands game_data exports.
package seventeenlands

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"
)

const (
	// PublicBucket holds the 17Lands public analysis exports.
	PublicBucket = "17lands-public"

	// GameDataPrefix is the key prefix of the per-set game_data objects.
	GameDataPrefix = "analysis_data/game_data"

	// PublicDatasetsBaseURL is the bucket's HTTPS endpoint for the same objects.
	PublicDatasetsBaseURL = "https://17lands-public.s3.amazonaws.com/" + GameDataPrefix

	// DefaultRegion is where the public bucket lives.
	DefaultRegion = "us-east-1"

	// DownloadTimeout bounds a single HTTP download.
	DownloadTimeout = 5 * time.Minute
)

// ErrObjectNotFound is returned by a Source when the object does not exist.
var ErrObjectNotFound = errors.New("object not found")

// Source opens game_data objects by name.
type Source interface {
	// Open returns the raw (still gzipped) object body.
	Open(ctx context.Context, name string) (io.ReadCloser, error)

	// Location describes where name is read from, for logs and errors.
	Location(name string) string
}

// HTTPSource reads objects over plain HTTPS from the bucket website.
type HTTPSource struct {
	baseURL    string
	httpClient *http.Client
	userAgent  string
}

// NewHTTPSource creates an HTTP source. An empty baseURL uses the public
// bucket, and a nil client gets DownloadTimeout.
func NewHTTPSource(baseURL string, client *http.Client) *HTTPSource {
	if baseURL == "" {
		baseURL = PublicDatasetsBaseURL
	}
	if client == nil {
		client = &http.Client{Timeout: DownloadTimeout}
	}
	return &HTTPSource{
		baseURL:    strings.TrimSuffix(baseURL, "/"),
		httpClient: client,
		userAgent:  "deckstats/1.0",
	}
}

// Location implements Source.
func (s *HTTPSource) Location(name string) string {
	return s.baseURL + "/" + name
}

// Open implements Source.
func (s *HTTPSource) Open(ctx context.Context, name string) (io.ReadCloser, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, s.Location(name), nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("User-Agent", s.userAgent)

	resp, err := s.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to execute request: %w", err)
	}

	switch resp.StatusCode {
	case http.StatusOK:
		return resp.Body, nil
	case http.StatusNotFound, http.StatusForbidden:
		// S3 answers 403 for missing keys when listing is not public.
		_ = resp.Body.Close()
		return nil, ErrObjectNotFound
	default:
		_ = resp.Body.Close()
		return nil, fmt.Errorf("unexpected status code: %d", resp.StatusCode)
	}
}

// ObjectGetter is the part of the S3 client S3Source uses.
type ObjectGetter interface {
	GetObject(ctx context.Context, params *s3.GetObjectInput, optFns ...func(*s3.Options)) (*s3.GetObjectOutput, error)
}

// S3Config holds configuration for S3Source.
type S3Config struct {
	Bucket string
	Prefix string
	Region string
	// Endpoint is an optional custom endpoint (for MinIO, LocalStack, etc.).
	Endpoint string
	// UsePathStyle enables path-style addressing (required for MinIO).
	UsePathStyle bool
	// Anonymous skips credential resolution; the public bucket needs none.
	Anonymous bool
}

// DefaultS3Config returns the configuration for the public 17Lands bucket.
func DefaultS3Config() S3Config {
	return S3Config{
		Bucket:    PublicBucket,
		Prefix:    GameDataPrefix,
		Region:    DefaultRegion,
		Anonymous: true,
	}
}

// S3Source reads objects through the S3 API.
type S3Source struct {
	client ObjectGetter
	bucket string
	prefix string
}

// NewS3Source creates an S3 source from the default AWS config chain.
func NewS3Source(ctx context.Context, cfg S3Config) (*S3Source, error) {
	var opts []func(*config.LoadOptions) error

	if cfg.Region != "" {
		opts = append(opts, config.WithRegion(cfg.Region))
	}
	if cfg.Anonymous {
		opts = append(opts, config.WithCredentialsProvider(aws.AnonymousCredentials{}))
	}

	awsCfg, err := config.LoadDefaultConfig(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to load AWS config: %w", err)
	}

	var s3Opts []func(*s3.Options)
	if cfg.Endpoint != "" {
		s3Opts = append(s3Opts, func(o *s3.Options) {
			o.BaseEndpoint = aws.String(cfg.Endpoint)
		})
	}
	if cfg.UsePathStyle {
		s3Opts = append(s3Opts, func(o *s3.Options) {
			o.UsePathStyle = true
		})
	}

	return NewS3SourceWithClient(s3.NewFromConfig(awsCfg, s3Opts...), cfg.Bucket, cfg.Prefix), nil
}

// NewS3SourceWithClient creates an S3 source around an existing client.
func NewS3SourceWithClient(client ObjectGetter, bucket, prefix string) *S3Source {
	if bucket == "" {
		bucket = PublicBucket
	}
	return &S3Source{
		client: client,
		bucket: bucket,
		prefix: strings.Trim(prefix, "/"),
	}
}

func (s *S3Source) key(name string) string {
	if s.prefix == "" {
		return name
	}
	return s.prefix + "/" + name
}

// Location implements Source.
func (s *S3Source) Location(name string) string {
	return fmt.Sprintf("s3://%s/%s", s.bucket, s.key(name))
}

// Open implements Source.
func (s *S3Source) Open(ctx context.Context, name string) (io.ReadCloser, error) {
	resp, err := s.client.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(s.key(name)),
	})
	if err != nil {
		var noSuchKey *types.NoSuchKey
		if errors.As(err, &noSuchKey) {
			return nil, ErrObjectNotFound
		}
		return nil, fmt.Errorf("get %s: %w", s.Location(name), err)
	}
	return resp.Body, nil
}
