// Package artifacts provides S3-backed storage for binary submission
// artifacts (generated images). Submissions carry a reference to the stored
// object, never the bytes themselves.
package artifacts

import (
	"bytes"
	"context"
	"fmt"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/google/uuid"
)

// URLExpiry is how long presigned upload/download URLs stay valid.
const URLExpiry = time.Hour

// Store writes and presigns artifact objects in one S3 bucket.
type Store struct {
	client  *s3.Client
	presign *s3.PresignClient
	bucket  string
}

// NewStore creates an artifact store for the given bucket and region, using
// the ambient AWS credential chain.
func NewStore(ctx context.Context, bucket, region string) (*Store, error) {
	if bucket == "" {
		return nil, fmt.Errorf("artifacts bucket is required")
	}

	cfg, err := awsconfig.LoadDefaultConfig(ctx, awsconfig.WithRegion(region))
	if err != nil {
		return nil, fmt.Errorf("failed to load AWS config: %w", err)
	}

	client := s3.NewFromConfig(cfg)
	return &Store{
		client:  client,
		presign: s3.NewPresignClient(client),
		bucket:  bucket,
	}, nil
}

// Put stores image bytes under a fresh key and returns the key as the
// submission reference.
func (s *Store) Put(ctx context.Context, data []byte) (string, error) {
	key := fmt.Sprintf("images/%s.png", uuid.New())

	_, err := s.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(s.bucket),
		Key:         aws.String(key),
		Body:        bytes.NewReader(data),
		ContentType: aws.String("image/png"),
	})
	if err != nil {
		return "", fmt.Errorf("failed to store artifact: %w", err)
	}
	return key, nil
}

// PresignGet returns a time-limited URL a client can use to view an artifact.
func (s *Store) PresignGet(ctx context.Context, key string) (string, error) {
	req, err := s.presign.PresignGetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(key),
	}, s3.WithPresignExpires(URLExpiry))
	if err != nil {
		return "", fmt.Errorf("failed to presign download for %s: %w", key, err)
	}
	return req.URL, nil
}

// PresignPut returns a time-limited upload URL and the key the upload will
// land under.
func (s *Store) PresignPut(ctx context.Context) (url, key string, err error) {
	key = fmt.Sprintf("images/%s.png", uuid.New())

	req, err := s.presign.PresignPutObject(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(s.bucket),
		Key:         aws.String(key),
		ContentType: aws.String("image/png"),
	}, s3.WithPresignExpires(URLExpiry))
	if err != nil {
		return "", "", fmt.Errorf("failed to presign upload: %w", err)
	}
	return req.URL, key, nil
}
