package blob

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	awshttp "github.com/aws/aws-sdk-go-v2/aws/transport/http"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"
	"github.com/sethvargo/go-retry"
)

// S3Config configures an S3 or MinIO bucket.
type S3Config struct {
	// Endpoint, e.g. "http://127.0.0.1:9000". Empty uses AWS.
	Endpoint string `yaml:"endpoint"`

	Region    string `yaml:"region"`
	Bucket    string `yaml:"bucket"`
	AccessKey string `yaml:"access_key"`
	SecretKey string `yaml:"secret_key"`

	// CreateBucket makes EnsureBucket create the bucket when missing.
	CreateBucket bool          `yaml:"create_bucket"`
	MaxRetries   uint64        `yaml:"max_retries"`
	RetryBase    time.Duration `yaml:"retry_base"`
}

// DefaultS3Config returns settings for a local MinIO.
func DefaultS3Config() S3Config {
	return S3Config{
		Region:     "us-east-1",
		Bucket:     "materials",
		MaxRetries: 5,
		RetryBase:  time.Second,
	}
}

// S3 stores blobs in a bucket.
type S3 struct {
	client *s3.Client
	bucket string
	cfg    S3Config
}

// NewS3 builds the client. The SDK's own retryer is disabled; transient
// failures are retried here with Fibonacci backoff.
func NewS3(cfg S3Config) (*S3, error) {
	if cfg.Bucket == "" {
		return nil, errors.New("s3 bucket is required")
	}
	if cfg.Region == "" {
		cfg.Region = "us-east-1"
	}
	client := s3.NewFromConfig(aws.Config{Region: cfg.Region}, func(o *s3.Options) {
		if cfg.Endpoint != "" {
			o.BaseEndpoint = aws.String(cfg.Endpoint)
			o.UsePathStyle = true
		}
		if cfg.AccessKey != "" {
			o.Credentials = credentials.NewStaticCredentialsProvider(cfg.AccessKey, cfg.SecretKey, "")
		}
		o.Retryer = aws.NopRetryer{}
		o.RequestChecksumCalculation = aws.RequestChecksumCalculationWhenRequired
		o.ResponseChecksumValidation = aws.ResponseChecksumValidationWhenRequired
	})
	return &S3{client: client, bucket: cfg.Bucket, cfg: cfg}, nil
}

// EnsureBucket creates the bucket if CreateBucket is set and it is missing.
func (s *S3) EnsureBucket(ctx context.Context) error {
	if !s.cfg.CreateBucket {
		return nil
	}
	err := s.do(ctx, "create bucket", func(ctx context.Context) error {
		_, err := s.client.CreateBucket(ctx, &s3.CreateBucketInput{Bucket: aws.String(s.bucket)})
		return err
	})
	var owned *types.BucketAlreadyOwnedByYou
	var exists *types.BucketAlreadyExists
	if errors.As(err, &owned) || errors.As(err, &exists) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("couldn't create bucket %s in region %s: %w", s.bucket, s.cfg.Region, err)
	}
	return nil
}

func (s *S3) Put(ctx context.Context, name string, data []byte) (string, error) {
	if !ValidName(name) {
		return "", fmt.Errorf("%w: %q", ErrInvalidName, name)
	}
	err := s.do(ctx, "put "+name, func(ctx context.Context) error {
		_, err := s.client.PutObject(ctx, &s3.PutObjectInput{
			Bucket:        aws.String(s.bucket),
			Key:           aws.String(name),
			Body:          bytes.NewReader(data),
			ContentLength: aws.Int64(int64(len(data))),
		})
		return err
	})
	if err != nil {
		return "", fmt.Errorf("put %s: %w", name, err)
	}
	return "s3://" + s.bucket + "/" + name, nil
}

func (s *S3) Get(ctx context.Context, name string) ([]byte, error) {
	if !ValidName(name) {
		return nil, fmt.Errorf("%w: %q", ErrInvalidName, name)
	}
	var data []byte
	err := s.do(ctx, "get "+name, func(ctx context.Context) error {
		out, err := s.client.GetObject(ctx, &s3.GetObjectInput{
			Bucket: aws.String(s.bucket),
			Key:    aws.String(name),
		})
		if err != nil {
			return err
		}
		defer out.Body.Close()
		data, err = io.ReadAll(out.Body)
		return err
	})
	var noKey *types.NoSuchKey
	if errors.As(err, &noKey) || statusOf(err) == 404 {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, name)
	}
	if err != nil {
		return nil, fmt.Errorf("get %s: %w", name, err)
	}
	return data, nil
}

// do retries op on network failures and 5xx/429 responses.
func (s *S3) do(ctx context.Context, op string, task func(context.Context) error) error {
	base := s.cfg.RetryBase
	if base <= 0 {
		base = time.Second
	}
	b := retry.WithMaxRetries(s.cfg.MaxRetries, retry.NewFibonacci(base))
	err := retry.Do(ctx, b, func(ctx context.Context) error {
		err := task(ctx)
		if err == nil || !transient(err) {
			return err
		}
		slog.Warn(fmt.Sprintf("s3 %s failed, will retry", op), "err", err)
		return retry.RetryableError(err)
	})
	if err != nil && transient(err) {
		slog.Warn(fmt.Sprintf("s3 %s failed, gave up", op), "err", err)
	}
	return err
}

func transient(err error) bool {
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return false
	}
	code := statusOf(err)
	if code == 0 {
		// No HTTP response at all: connection level failure.
		return true
	}
	return code == 429 || code >= 500
}

func statusOf(err error) int {
	var re *awshttp.ResponseError
	if errors.As(err, &re) {
		return re.HTTPStatusCode()
	}
	return 0
}
