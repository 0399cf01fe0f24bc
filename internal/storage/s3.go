package storage

import (
	"context"
	"errors"
	"fmt"
	"time"

	"tutorhub/internal/config"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	awsmiddleware "github.com/aws/smithy-go/middleware"
)

const presignExpiry = 15 * time.Minute

// ErrNotConfigured is returned when no bucket is configured.
var ErrNotConfigured = errors.New("object storage is not configured")

// ThumbnailStore signs read URLs for course thumbnails kept in an
// S3-compatible bucket.
type ThumbnailStore struct {
	presignClient *s3.PresignClient
	bucket        string
}

// NewThumbnailStore builds an S3 client from cfg. S3URL may point at any
// S3-compatible endpoint; path-style addressing is used in that case.
func NewThumbnailStore(ctx context.Context, cfg *config.Config) (*ThumbnailStore, error) {
	if cfg.S3Bucket == "" {
		return nil, ErrNotConfigured
	}
	opts := []func(*awsconfig.LoadOptions) error{
		awsconfig.WithRegion(cfg.S3Region),
		awsconfig.WithAPIOptions([]func(*awsmiddleware.Stack) error{removeDisableGzip()}),
	}
	if cfg.S3AccessKey != "" {
		opts = append(opts, awsconfig.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(cfg.S3AccessKey, cfg.S3SecretKey, "")))
	}
	awsCfg, err := awsconfig.LoadDefaultConfig(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("load S3 config: %w", err)
	}
	client := s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		if cfg.S3URL != "" {
			o.BaseEndpoint = aws.String(cfg.S3URL)
			o.UsePathStyle = true
		}
	})
	return &ThumbnailStore{presignClient: s3.NewPresignClient(client), bucket: cfg.S3Bucket}, nil
}

// PresignGet returns a short-lived GET URL for storagePath.
func (s *ThumbnailStore) PresignGet(ctx context.Context, storagePath string) (string, error) {
	req, err := s.presignClient.PresignGetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(storagePath),
	}, s3.WithPresignExpires(presignExpiry))
	if err != nil {
		return "", fmt.Errorf("presign thumbnail %s: %w", storagePath, err)
	}
	return req.URL, nil
}

// removeDisableGzip works around signature mismatches on some S3-compatible
// services. See https://github.com/supabase/storage/issues/577
func removeDisableGzip() func(*awsmiddleware.Stack) error {
	return func(stack *awsmiddleware.Stack) error {
		if _, ok := stack.Finalize.Get("DisableAcceptEncodingGzip"); ok {
			_, err := stack.Finalize.Remove("DisableAcceptEncodingGzip")
			return err
		}
		return nil
	}
}
