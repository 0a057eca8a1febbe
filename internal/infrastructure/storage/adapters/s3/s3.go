package s3

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	s3types "github.com/aws/aws-sdk-go-v2/service/s3/types"

	"massdownloader/internal/application/ports"
	"massdownloader/internal/infrastructure/config"
)

// API is the part of the S3 client the mirror calls
type API interface {
	PutObject(ctx context.Context, params *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error)
	GetObject(ctx context.Context, params *s3.GetObjectInput, optFns ...func(*s3.Options)) (*s3.GetObjectOutput, error)
	DeleteObject(ctx context.Context, params *s3.DeleteObjectInput, optFns ...func(*s3.Options)) (*s3.DeleteObjectOutput, error)
	HeadObject(ctx context.Context, params *s3.HeadObjectInput, optFns ...func(*s3.Options)) (*s3.HeadObjectOutput, error)
}

// client mirrors PDBs into a bucket on AWS S3 or an S3 compatible
// service such as MinIO
type client struct {
	api     API
	bucket  string
	logger  ports.Logger
	metrics ports.Metrics
}

// New creates a client for the configured bucket. A custom endpoint
// switches to path-style addressing.
func New(cfg *config.StorageConfig, logger ports.Logger, metrics ports.Metrics) (ports.Storage, error) {
	if cfg.BucketOrPath == "" {
		return nil, fmt.Errorf("invalid S3 configuration: bucket is required")
	}

	awsCfg, err := buildAWSConfig(cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to build AWS config: %w", err)
	}

	api := s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		if cfg.S3.Endpoint != "" {
			o.BaseEndpoint = aws.String(cfg.S3.Endpoint)
			o.UsePathStyle = true
		}
	})

	logger.Info("S3 mirror ready", "bucket", cfg.BucketOrPath, "region", cfg.S3.Region, "endpoint", cfg.S3.Endpoint)
	return NewWithAPI(api, cfg.BucketOrPath, logger, metrics), nil
}

// NewWithAPI wraps an existing client
func NewWithAPI(api API, bucket string, logger ports.Logger, metrics ports.Metrics) ports.Storage {
	return &client{
		api:     api,
		bucket:  bucket,
		logger:  logger.WithFields(map[string]interface{}{"storage": "s3", "bucket": bucket}),
		metrics: metrics.WithTags(map[string]string{"storage": "s3"}),
	}
}

func (c *client) Put(ctx context.Context, key string, reader io.Reader, metadata ports.ObjectMetadata) error {
	start := time.Now()

	input := &s3.PutObjectInput{
		Bucket:   aws.String(c.bucket),
		Key:      aws.String(key),
		Body:     reader,
		Metadata: metadata.UserMetadata,
	}
	if metadata.ContentType != "" {
		input.ContentType = aws.String(metadata.ContentType)
	}
	if metadata.ContentLength > 0 {
		input.ContentLength = aws.Int64(metadata.ContentLength)
	}

	if _, err := c.api.PutObject(ctx, input); err != nil {
		return c.failed("put", key, err)
	}

	c.logger.Info("PDB uploaded", "key", key, "bytes", metadata.ContentLength, "duration_ms", time.Since(start).Milliseconds())
	c.record("put", "ok")
	return nil
}

func (c *client) Get(ctx context.Context, key string) (io.ReadCloser, error) {
	out, err := c.api.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(c.bucket),
		Key:    aws.String(key),
	})
	if isNotFoundError(err) {
		c.record("get", "not_found")
		return nil, fmt.Errorf("%w: %s", ports.ErrObjectNotFound, key)
	}
	if err != nil {
		return nil, c.failed("get", key, err)
	}

	c.record("get", "ok")
	return out.Body, nil
}

// Delete removes key; S3 reports success for keys that do not exist
func (c *client) Delete(ctx context.Context, key string) error {
	_, err := c.api.DeleteObject(ctx, &s3.DeleteObjectInput{
		Bucket: aws.String(c.bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		return c.failed("delete", key, err)
	}

	c.record("delete", "ok")
	return nil
}

func (c *client) Exists(ctx context.Context, key string) (bool, error) {
	_, err := c.api.HeadObject(ctx, &s3.HeadObjectInput{
		Bucket: aws.String(c.bucket),
		Key:    aws.String(key),
	})
	if isNotFoundError(err) {
		c.record("head", "not_found")
		return false, nil
	}
	if err != nil {
		return false, c.failed("head", key, err)
	}

	c.record("head", "ok")
	return true, nil
}

func (c *client) record(op, result string) {
	c.metrics.IncrementCounter("s3.requests", map[string]string{"op": op, "result": result})
}

func (c *client) failed(op, key string, err error) error {
	c.logger.Error("S3 request failed", "op", op, "key", key, "error", err)
	c.record(op, "error")
	return fmt.Errorf("s3 %s %s: %w", op, key, err)
}

// buildAWSConfig loads the default credential chain unless static keys
// are configured
func buildAWSConfig(storageConfig *config.StorageConfig) (aws.Config, error) {
	var optFns []func(*awsconfig.LoadOptions) error
	s3Config := storageConfig.S3

	if s3Config.Region != "" {
		optFns = append(optFns, awsconfig.WithRegion(s3Config.Region))
	}
	if s3Config.AccessKeyID != "" && s3Config.SecretAccessKey != "" {
		optFns = append(optFns, awsconfig.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(s3Config.AccessKeyID, s3Config.SecretAccessKey, ""),
		))
	}
	if storageConfig.Timeout > 0 {
		optFns = append(optFns, awsconfig.WithHTTPClient(&http.Client{Timeout: storageConfig.Timeout}))
	}

	return awsconfig.LoadDefaultConfig(context.Background(), optFns...)
}

// isNotFoundError reports the errors GetObject and HeadObject return for a
// missing key
func isNotFoundError(err error) bool {
	if err == nil {
		return false
	}
	var nsk *s3types.NoSuchKey
	var nf *s3types.NotFound
	return errors.As(err, &nsk) || errors.As(err, &nf)
}
