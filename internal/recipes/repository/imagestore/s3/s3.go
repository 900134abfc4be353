package s3

import (
	"context"
	"fmt"
	"io"

	"github.com/Leopold1975/recipes_control/internal/pkg/config"
	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
)

type putter interface {
	PutObject(ctx context.Context, in *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error)
}

// ImageStore writes recipe images to an S3 compatible bucket (AWS or MinIO).
type ImageStore struct {
	client putter
	bucket string
}

func New(ctx context.Context, cfg config.Images) (ImageStore, error) {
	opts := []func(*awsconfig.LoadOptions) error{awsconfig.WithRegion(cfg.Region)}

	if cfg.AccessKey != "" {
		opts = append(opts, awsconfig.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(cfg.AccessKey, cfg.SecretKey, "")))
	}

	awsCfg, err := awsconfig.LoadDefaultConfig(ctx, opts...)
	if err != nil {
		return ImageStore{}, fmt.Errorf("load aws config error: %w", err)
	}

	client := s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		if cfg.Endpoint != "" {
			o.BaseEndpoint = aws.String(cfg.Endpoint)
			o.UsePathStyle = true
		}
	})

	return ImageStore{client: client, bucket: cfg.Bucket}, nil
}

func (is ImageStore) Save(ctx context.Context, path, contentType string, body io.Reader, size int64) error {
	_, err := is.client.PutObject(ctx, &s3.PutObjectInput{ //nolint:exhaustruct
		Bucket:        aws.String(is.bucket),
		Key:           aws.String(path),
		Body:          body,
		ContentType:   aws.String(contentType),
		ContentLength: aws.Int64(size),
	})
	if err != nil {
		return fmt.Errorf("put object error: %w", err)
	}

	return nil
}
