package storage

import (
	"bytes"
	"context"
	"errors"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"

	"github.com/starford/notable/internal/apperr"
	"github.com/starford/notable/internal/models"
)

var errObjectMissing = errors.New("object does not exist")

// S3Config describes where the note array lives in an S3-compatible bucket.
type S3Config struct {
	Bucket string
	Key    string
	Region string
	// Endpoint overrides the default AWS endpoint (MinIO, Tigris, gofakes3).
	Endpoint        string
	AccessKeyID     string
	SecretAccessKey string
	UsePathStyle    bool
}

// S3 implements Provider by storing the whole array as one object.
type S3 struct {
	client *s3.Client
	bucket string
	key    string
}

// NewS3 builds an S3 provider from cfg using the default AWS credential
// chain unless static keys are given.
func NewS3(ctx context.Context, cfg S3Config) (*S3, error) {
	opts := []func(*awsconfig.LoadOptions) error{
		awsconfig.WithRegion(cfg.Region),
	}
	if cfg.AccessKeyID != "" && cfg.SecretAccessKey != "" {
		opts = append(opts, awsconfig.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(cfg.AccessKeyID, cfg.SecretAccessKey, ""),
		))
	}

	sdkConfig, err := awsconfig.LoadDefaultConfig(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("storage: load AWS config: %w", err)
	}

	client := s3.NewFromConfig(sdkConfig, func(o *s3.Options) {
		if cfg.Endpoint != "" {
			o.BaseEndpoint = aws.String(cfg.Endpoint)
		}
		o.UsePathStyle = cfg.UsePathStyle
	})
	return NewS3FromClient(client, cfg.Bucket, cfg.Key), nil
}

// NewS3FromClient wraps an existing client.
func NewS3FromClient(client *s3.Client, bucket, key string) *S3 {
	return &S3{client: client, bucket: bucket, key: key}
}

func (s *S3) source() string {
	return "s3://" + s.bucket + "/" + s.key
}

// Init seeds an empty array when the object does not exist yet.
func (s *S3) Init(ctx context.Context) error {
	_, err := s.Load(ctx)
	if err == nil {
		return nil
	}
	if errors.Is(err, errObjectMissing) {
		return s.Save(ctx, nil)
	}
	if errors.Is(err, apperr.ErrCorruptStore) {
		// Present but unreadable content is reported per request, not repaired.
		return nil
	}
	return err
}

// Load fetches and decodes the object, closing the body on every path.
func (s *S3) Load(ctx context.Context) ([]models.Note, error) {
	out, err := s.client.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(s.key),
	})
	if err != nil {
		var nsk *types.NoSuchKey
		var notFound *types.NotFound
		if errors.As(err, &nsk) || errors.As(err, &notFound) {
			return nil, fmt.Errorf("storage: get %s: %w: %w", s.source(), apperr.ErrStorageUnavailable, errObjectMissing)
		}
		return nil, fmt.Errorf("storage: get %s: %w: %w", s.source(), apperr.ErrStorageUnavailable, err)
	}
	defer out.Body.Close()

	return decode(out.Body, s.source())
}

// Save uploads the encoded array, replacing the object.
func (s *S3) Save(ctx context.Context, notes []models.Note) error {
	data, err := encode(notes)
	if err != nil {
		return err
	}
	_, err = s.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(s.bucket),
		Key:         aws.String(s.key),
		Body:        bytes.NewReader(data),
		ContentType: aws.String("application/json"),
	})
	if err != nil {
		return fmt.Errorf("storage: put %s: %w: %w", s.source(), apperr.ErrStorageUnavailable, err)
	}
	return nil
}
