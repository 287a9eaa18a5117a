package gap

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"
	"github.com/rs/zerolog/log"
	"github.com/spf13/viper"
)

// ObjectStorage keeps the binary objects (post images) outside the database.
type ObjectStorage interface {
	Store(ctx context.Context, name string, data []byte, contentType string) (link string, err error)
	Delete(ctx context.Context, name string) error
}

type S3Storage struct {
	client  *s3.Client
	presign *s3.PresignClient
	bucket  string
	linkTTL time.Duration
}

func NewS3Storage(ctx context.Context) (*S3Storage, error) {
	cfg, err := config.LoadDefaultConfig(ctx,
		config.WithRegion(viper.GetString("storage.region")),
		config.WithCredentialsProvider(credentials.NewStaticCredentialsProvider(
			viper.GetString("storage.access_key"),
			viper.GetString("storage.secret_key"),
			"",
		)),
	)
	if err != nil {
		return nil, fmt.Errorf("unable to load storage config: %v", err)
	}

	client := s3.NewFromConfig(cfg, func(o *s3.Options) {
		if endpoint := viper.GetString("storage.endpoint"); len(endpoint) > 0 {
			o.BaseEndpoint = aws.String(endpoint)
			o.UsePathStyle = true
		}
	})

	linkTTL := viper.GetDuration("storage.link_ttl")
	if linkTTL <= 0 {
		linkTTL = 7 * 24 * time.Hour
	}

	return &S3Storage{
		client:  client,
		presign: s3.NewPresignClient(client),
		bucket:  viper.GetString("storage.bucket"),
		linkTTL: linkTTL,
	}, nil
}

func (v *S3Storage) EnsureBucket(ctx context.Context) error {
	_, err := v.client.HeadBucket(ctx, &s3.HeadBucketInput{Bucket: aws.String(v.bucket)})
	if err == nil {
		log.Debug().Str("bucket", v.bucket).Msg("Storage bucket already exists.")
		return nil
	}

	var notFound *types.NotFound
	if !errors.As(err, &notFound) {
		return fmt.Errorf("unable to check bucket: %v", err)
	}

	if _, err := v.client.CreateBucket(ctx, &s3.CreateBucketInput{Bucket: aws.String(v.bucket)}); err != nil {
		return fmt.Errorf("unable to create bucket: %v", err)
	}
	log.Info().Str("bucket", v.bucket).Msg("Storage bucket created.")
	return nil
}

func (v *S3Storage) Store(ctx context.Context, name string, data []byte, contentType string) (string, error) {
	if _, err := v.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:        aws.String(v.bucket),
		Key:           aws.String(name),
		Body:          bytes.NewReader(data),
		ContentType:   aws.String(contentType),
		ContentLength: aws.Int64(int64(len(data))),
	}); err != nil {
		return "", fmt.Errorf("unable to upload object: %v", err)
	}

	req, err := v.presign.PresignGetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(v.bucket),
		Key:    aws.String(name),
	}, s3.WithPresignExpires(v.linkTTL))
	if err != nil {
		return "", fmt.Errorf("unable to sign object link: %v", err)
	}

	return req.URL, nil
}

func (v *S3Storage) Delete(ctx context.Context, name string) error {
	if _, err := v.client.DeleteObject(ctx, &s3.DeleteObjectInput{
		Bucket: aws.String(v.bucket),
		Key:    aws.String(name),
	}); err != nil {
		return fmt.Errorf("unable to delete object: %v", err)
	}
	return nil
}
