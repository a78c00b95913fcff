// Package storage reads and writes objects in an S3-compatible bucket store
// and issues time-limited signed URLs for them.
package storage

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"

	"github.com/skillxpress/skillxpress/internal/config"
	"github.com/skillxpress/skillxpress/internal/types"
)

const serviceName = "object storage"

// maxObjectBytes bounds downloads of user uploads.
const maxObjectBytes = 32 << 20

// Client wraps an S3 client and its presigner.
type Client struct {
	s3       *s3.Client
	presign  *s3.PresignClient
	timeout  time.Duration
	maxBytes int64
}

// New builds a client from cfg. A custom endpoint (R2, MinIO, Supabase)
// switches to path-style addressing.
func New(ctx context.Context, cfg config.StorageConfig, timeout time.Duration) (*Client, error) {
	var loadOpts []func(*awsconfig.LoadOptions) error
	if cfg.Region != "" {
		loadOpts = append(loadOpts, awsconfig.WithRegion(cfg.Region))
	}
	if cfg.AccessKeyID != "" {
		loadOpts = append(loadOpts, awsconfig.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(cfg.AccessKeyID, cfg.SecretAccessKey, ""),
		))
	}
	awsCfg, err := awsconfig.LoadDefaultConfig(ctx, loadOpts...)
	if err != nil {
		return nil, fmt.Errorf("failed to load object storage config: %w", err)
	}
	return NewFromConfig(awsCfg, cfg.Endpoint, timeout), nil
}

// NewFromConfig builds a client from an already resolved aws.Config.
func NewFromConfig(awsCfg aws.Config, endpoint string, timeout time.Duration) *Client {
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	client := s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		if endpoint != "" {
			o.BaseEndpoint = aws.String(strings.TrimRight(endpoint, "/"))
			o.UsePathStyle = true
		}
		o.RequestChecksumCalculation = aws.RequestChecksumCalculationWhenRequired
		o.ResponseChecksumValidation = aws.ResponseChecksumValidationWhenRequired
	})
	return &Client{
		s3:       client,
		presign:  s3.NewPresignClient(client),
		timeout:  timeout,
		maxBytes: maxObjectBytes,
	}
}

// Download returns the object bytes. An object over the size limit fails with
// an ExtractionFailedError instead of being cut short.
func (c *Client) Download(ctx context.Context, bucket, key string) ([]byte, error) {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	out, err := c.s3.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		return nil, c.classify("get object "+key, err)
	}
	defer func() { _ = out.Body.Close() }()

	buf := new(bytes.Buffer)
	if _, err := io.Copy(buf, io.LimitReader(out.Body, c.maxBytes+1)); err != nil {
		return nil, c.classify("read object "+key, err)
	}
	if int64(buf.Len()) > c.maxBytes {
		return nil, &types.ExtractionFailedError{
			Path:  key,
			Cause: fmt.Errorf("document too large: exceeds %d bytes", c.maxBytes),
		}
	}
	return buf.Bytes(), nil
}

// Upload stores data under key, replacing any existing object.
func (c *Client) Upload(ctx context.Context, bucket, key string, data []byte, contentType string) error {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	_, err := c.s3.PutObject(ctx, &s3.PutObjectInput{
		Bucket:        aws.String(bucket),
		Key:           aws.String(key),
		Body:          bytes.NewReader(data),
		ContentType:   aws.String(contentType),
		ContentLength: aws.Int64(int64(len(data))),
	})
	if err != nil {
		return c.classify("put object "+key, err)
	}
	return nil
}

// SignedURL returns a GET URL for key valid for ttl. Signing is local and
// does not check that the object exists.
func (c *Client) SignedURL(ctx context.Context, bucket, key string, ttl time.Duration) (string, error) {
	if ttl <= 0 {
		return "", fmt.Errorf("signed url ttl must be positive")
	}
	req, err := c.presign.PresignGetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(bucket),
		Key:    aws.String(key),
	}, s3.WithPresignExpires(ttl))
	if err != nil {
		return "", fmt.Errorf("failed to sign url for %s: %w", key, err)
	}
	return req.URL, nil
}

func (c *Client) classify(op string, err error) error {
	if errors.Is(err, context.DeadlineExceeded) {
		return &types.UpstreamTimeoutError{Service: serviceName, Timeout: c.timeout, Cause: err}
	}
	return &types.UpstreamUnavailableError{Service: serviceName, Message: op + " failed", Cause: err}
}
