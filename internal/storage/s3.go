package storage

import (
	"context"
	"errors"
	"fmt"

	"github.com/aws/aws-sdk-go/aws"
	"github.com/aws/aws-sdk-go/aws/awserr"
	"github.com/aws/aws-sdk-go/aws/credentials"
	"github.com/aws/aws-sdk-go/aws/session"
	"github.com/aws/aws-sdk-go/service/s3"
)

type S3Config struct {
	Region    string
	Bucket    string
	Host      string
	AccessKey string
	SecretKey string
	// Endpoint overrides the AWS endpoint (MinIO, localstack). Path-style
	// addressing is used when set.
	Endpoint string
}

type S3Storage struct {
	client *s3.S3
	bucket string
	host   string
}

func NewS3Storage(cfg S3Config) (*S3Storage, error) {
	awsCfg := &aws.Config{
		Region: aws.String(cfg.Region),
	}
	if cfg.AccessKey != "" || cfg.SecretKey != "" {
		awsCfg.Credentials = credentials.NewStaticCredentials(cfg.AccessKey, cfg.SecretKey, "")
	}
	if cfg.Endpoint != "" {
		awsCfg.Endpoint = aws.String(cfg.Endpoint)
		awsCfg.S3ForcePathStyle = aws.Bool(true)
	}

	sess, err := session.NewSession(awsCfg)
	if err != nil {
		return nil, fmt.Errorf("create aws session: %w", err)
	}

	return &S3Storage{
		client: s3.New(sess),
		bucket: cfg.Bucket,
		host:   cfg.Host,
	}, nil
}

func (s *S3Storage) Upload(ctx context.Context, input *UploadInput) (*UploadResult, error) {
	_, err := s.client.PutObjectWithContext(ctx, &s3.PutObjectInput{
		Bucket:        aws.String(s.bucket),
		Key:           aws.String(input.Key),
		Body:          input.Body,
		ContentType:   aws.String(input.ContentType),
		ContentLength: aws.Int64(input.Size),
		CacheControl:  aws.String("max-age=31536000"), // 1 year cache
		Metadata: map[string]*string{
			"owner-id": aws.String(input.OwnerID),
		},
	})
	if err != nil {
		return nil, fmt.Errorf("put object %s: %w", input.Key, translateError(err))
	}

	return &UploadResult{
		Key: input.Key,
		URL: ObjectURL(s.bucket, s.host, input.Key),
	}, nil
}

func (s *S3Storage) Delete(ctx context.Context, key string) error {
	if key == "" {
		return nil // Nothing to delete
	}

	_, err := s.client.DeleteObjectWithContext(ctx, &s3.DeleteObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		return fmt.Errorf("delete object %s: %w", key, translateError(err))
	}
	return nil
}

func (s *S3Storage) KeyFromURL(rawURL string) (string, error) {
	return KeyFromURL(s.bucket, s.host, rawURL)
}

func translateError(err error) error {
	var aerr awserr.Error
	if !errors.As(err, &aerr) {
		return err
	}
	switch aerr.Code() {
	case "NoCredentialProviders", "InvalidAccessKeyId", "SignatureDoesNotMatch":
		return fmt.Errorf("%w: %s", ErrCredentials, aerr.Message())
	case s3.ErrCodeNoSuchKey, "NotFound":
		return fmt.Errorf("%w: %s", ErrObjectNotFound, aerr.Message())
	}
	return err
}
