package snapshot

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"strconv"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"
)

// expiresMetaKey holds the expiry as unix seconds in object metadata.
// S3 lifecycle rules are too coarse for per-snapshot expiry.
const expiresMetaKey = "reflow-expires-at"

// S3API is the subset of the S3 client used by S3Store. *s3.Client
// satisfies it.
type S3API interface {
	PutObject(ctx context.Context, params *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error)
	GetObject(ctx context.Context, params *s3.GetObjectInput, optFns ...func(*s3.Options)) (*s3.GetObjectOutput, error)
	DeleteObject(ctx context.Context, params *s3.DeleteObjectInput, optFns ...func(*s3.Options)) (*s3.DeleteObjectOutput, error)
}

// S3Store persists snapshots as objects in an S3 bucket under an optional
// key prefix.
type S3Store struct {
	client S3API
	bucket string
	prefix string
}

// S3StoreOption configures S3Store behavior.
type S3StoreOption func(*S3Store)

// WithS3Prefix sets the key prefix for snapshot objects.
// Default: "snapshots/".
func WithS3Prefix(prefix string) S3StoreOption {
	return func(s *S3Store) {
		s.prefix = prefix
	}
}

// NewS3Store creates a snapshot store backed by an S3 bucket.
func NewS3Store(client S3API, bucket string, opts ...S3StoreOption) *S3Store {
	store := &S3Store{
		client: client,
		bucket: bucket,
		prefix: "snapshots/",
	}
	for _, opt := range opts {
		opt(store)
	}
	return store
}

func (s *S3Store) key(instanceID string) string {
	return s.prefix + instanceID + ".json"
}

// Save writes the snapshot object with its expiry recorded in metadata.
func (s *S3Store) Save(ctx context.Context, instanceID string, data []byte, expiresAt time.Time) error {
	_, err := s.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(s.bucket),
		Key:         aws.String(s.key(instanceID)),
		Body:        bytes.NewReader(data),
		ContentType: aws.String("application/json"),
		Metadata: map[string]string{
			expiresMetaKey: strconv.FormatInt(expiresAt.Unix(), 10),
		},
	})
	if err != nil {
		return fmt.Errorf("snapshot: s3 save %s: %w", instanceID, err)
	}
	return nil
}

// Load reads the snapshot object. Missing keys and expired objects both
// report (nil, nil).
func (s *S3Store) Load(ctx context.Context, instanceID string) ([]byte, error) {
	out, err := s.client.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(s.key(instanceID)),
	})
	if err != nil {
		var nsk *types.NoSuchKey
		if errors.As(err, &nsk) {
			return nil, nil
		}
		return nil, fmt.Errorf("snapshot: s3 load %s: %w", instanceID, err)
	}
	defer out.Body.Close()

	if raw, ok := out.Metadata[expiresMetaKey]; ok {
		if unix, perr := strconv.ParseInt(raw, 10, 64); perr == nil {
			if time.Now().After(time.Unix(unix, 0)) {
				return nil, nil
			}
		}
	}

	data, err := io.ReadAll(out.Body)
	if err != nil {
		return nil, fmt.Errorf("snapshot: s3 read %s: %w", instanceID, err)
	}
	return data, nil
}

// Delete removes the snapshot object. S3 deletes are idempotent, so a
// missing key is not an error.
func (s *S3Store) Delete(ctx context.Context, instanceID string) error {
	_, err := s.client.DeleteObject(ctx, &s3.DeleteObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(s.key(instanceID)),
	})
	if err != nil {
		return fmt.Errorf("snapshot: s3 delete %s: %w", instanceID, err)
	}
	return nil
}

// Close is a no-op; the S3 client is owned by the caller.
func (s *S3Store) Close() error {
	return nil
}
