package storage

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsConfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"

	"github.com/Additional-Code/invoicedesk/internal/config"
)

// S3Store keeps attachments in an S3-compatible bucket and serves them via presigned URLs.
type S3Store struct {
	client    *s3.Client
	presigner *s3.PresignClient
	bucket    string
	prefix    string
	expiry    time.Duration
}

// NewS3Store loads AWS configuration and builds a bucket-scoped store.
// Static credentials are used when both key parts are configured; otherwise the default chain applies.
func NewS3Store(ctx context.Context, cfg config.S3Storage, logger *zap.Logger) (*S3Store, error) {
	opts := []func(*awsConfig.LoadOptions) error{awsConfig.WithRegion(cfg.Region)}
	if cfg.AccessKeyID != "" && cfg.SecretAccessKey != "" {
		opts = append(opts, awsConfig.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(cfg.AccessKeyID, cfg.SecretAccessKey, ""),
		))
	}

	awsCfg, err := awsConfig.LoadDefaultConfig(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("load aws config: %w", err)
	}

	client := s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		if cfg.Endpoint != "" {
			o.BaseEndpoint = aws.String(cfg.Endpoint)
		}
		o.UsePathStyle = cfg.UsePathStyle
	})

	if logger != nil {
		logger.Info("using s3 attachment storage",
			zap.String("bucket", cfg.Bucket),
			zap.String("region", cfg.Region),
			zap.String("endpoint", cfg.Endpoint),
		)
	}

	return &S3Store{
		client:    client,
		presigner: s3.NewPresignClient(client),
		bucket:    cfg.Bucket,
		prefix:    cfg.KeyPrefix,
		expiry:    cfg.PresignExpiry,
	}, nil
}

// Put uploads body under key. Bodies that cannot seek are buffered so the request can be signed.
func (s *S3Store) Put(ctx context.Context, key string, body io.Reader, size int64, contentType string) error {
	objectKey, err := s.objectKey(key)
	if err != nil {
		return err
	}
	ctx, span := storageTracer.Start(ctx, "S3Store.Put", trace.WithAttributes(
		attribute.String("object.bucket", s.bucket),
		attribute.String("object.key", objectKey),
		attribute.Int64("object.size", size),
	))
	defer span.End()

	seeker, ok := body.(io.ReadSeeker)
	if !ok {
		data, err := io.ReadAll(body)
		if err != nil {
			span.RecordError(err)
			return fmt.Errorf("buffer object: %w", err)
		}
		seeker = bytes.NewReader(data)
		size = int64(len(data))
	}

	_, err = s.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:        aws.String(s.bucket),
		Key:           aws.String(objectKey),
		Body:          seeker,
		ContentLength: aws.Int64(size),
		ContentType:   aws.String(contentType),
	})
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "upload failed")
		return fmt.Errorf("upload object %s/%s: %w", s.bucket, objectKey, err)
	}
	return nil
}

// Delete removes key. S3 treats deleting a missing object as success.
func (s *S3Store) Delete(ctx context.Context, key string) error {
	objectKey, err := s.objectKey(key)
	if err != nil {
		return err
	}
	ctx, span := storageTracer.Start(ctx, "S3Store.Delete", trace.WithAttributes(attribute.String("object.key", objectKey)))
	defer span.End()

	_, err = s.client.DeleteObject(ctx, &s3.DeleteObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(objectKey),
	})
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "delete failed")
		return fmt.Errorf("delete object %s/%s: %w", s.bucket, objectKey, err)
	}
	return nil
}

// URL presigns a GET for key.
func (s *S3Store) URL(ctx context.Context, key string) (string, error) {
	objectKey, err := s.objectKey(key)
	if err != nil {
		return "", err
	}
	result, err := s.presigner.PresignGetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(objectKey),
	}, s3.WithPresignExpires(s.expiry))
	if err != nil {
		return "", fmt.Errorf("presign object %s/%s: %w", s.bucket, objectKey, err)
	}
	return result.URL, nil
}

func (s *S3Store) objectKey(key string) (string, error) {
	cleaned, err := cleanKey(key)
	if err != nil {
		return "", err
	}
	if s.prefix == "" {
		return cleaned, nil
	}
	return s.prefix + "/" + cleaned, nil
}
