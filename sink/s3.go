package sink

import (
	"bytes"
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go/aws"
	"github.com/aws/aws-sdk-go/aws/credentials"
	"github.com/aws/aws-sdk-go/aws/session"
	"github.com/aws/aws-sdk-go/service/s3"
	"github.com/aws/aws-sdk-go/service/s3/s3iface"
)

// UploadTimeout bounds a single object upload.
const UploadTimeout = 30 * time.Second

// Uploader stores encoded images in an object store.
type Uploader interface {
	Upload(ctx context.Context, bucket, key, contentType string, data []byte) error
}

// S3Config holds the connection settings for an S3-compatible endpoint.
type S3Config struct {
	AccessKey string
	SecretKey string
	Endpoint  string
	Region    string
}

// S3Uploader uploads with PutObject.
type S3Uploader struct {
	client s3iface.S3API
}

// NewS3Uploader opens a session against cfg. An empty endpoint uses AWS.
func NewS3Uploader(cfg S3Config) (*S3Uploader, error) {
	awsCfg := &aws.Config{
		Region:           aws.String(cfg.Region),
		S3ForcePathStyle: aws.Bool(true),
	}
	if cfg.AccessKey != "" {
		awsCfg.Credentials = credentials.NewStaticCredentials(cfg.AccessKey, cfg.SecretKey, "")
	}
	if cfg.Endpoint != "" {
		awsCfg.Endpoint = aws.String(cfg.Endpoint)
	}

	sess, err := session.NewSession(awsCfg)
	if err != nil {
		return nil, fmt.Errorf("failed to create S3 session: %w", err)
	}
	return &S3Uploader{client: s3.New(sess)}, nil
}

// NewS3UploaderWithClient wraps an existing client.
func NewS3UploaderWithClient(client s3iface.S3API) *S3Uploader {
	return &S3Uploader{client: client}
}

func (u *S3Uploader) Upload(ctx context.Context, bucket, key, contentType string, data []byte) error {
	ctx, cancel := context.WithTimeout(ctx, UploadTimeout)
	defer cancel()

	size := int64(len(data))
	_, err := u.client.PutObjectWithContext(ctx, &s3.PutObjectInput{
		Bucket:        aws.String(bucket),
		Key:           aws.String(key),
		Body:          bytes.NewReader(data),
		ContentLength: aws.Int64(size),
		ContentType:   aws.String(contentType),
	})
	if err != nil {
		return fmt.Errorf("failed to upload s3://%s/%s: %w", bucket, key, err)
	}

	slog.Debug("uploaded render", "bucket", bucket, "key", key, "bytes", size)
	return nil
}

// ParseS3Target splits "s3://bucket/key" into its parts.
func ParseS3Target(target string) (bucket, key string, ok bool) {
	rest, found := strings.CutPrefix(target, "s3://")
	if !found {
		return "", "", false
	}
	bucket, key, found = strings.Cut(rest, "/")
	if !found || bucket == "" || key == "" {
		return "", "", false
	}
	return bucket, key, true
}
