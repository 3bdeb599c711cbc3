package s3store

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"

	"github.com/crimson-sun/trafficwatch/internal/artifact"
	"github.com/crimson-sun/trafficwatch/internal/model"
)

const scheme = "s3://"

// Config locates the bucket. Endpoint may point at MinIO ("http://127.0.0.1:9000").
type Config struct {
	Endpoint  string
	Region    string
	Bucket    string
	Prefix    string
	AccessKey string
	SecretKey string
}

// Connect builds an S3 client from static credentials.
func Connect(cfg Config) *s3.Client {
	return s3.NewFromConfig(aws.Config{Region: cfg.Region}, func(o *s3.Options) {
		if cfg.Endpoint != "" {
			o.BaseEndpoint = aws.String(cfg.Endpoint)
			o.UsePathStyle = true
		}
		if cfg.AccessKey != "" {
			o.Credentials = credentials.NewStaticCredentialsProvider(cfg.AccessKey, cfg.SecretKey, "")
		}
	})
}

// Store keeps clips as objects in one bucket. References have the form
// s3://bucket/key.
type Store struct {
	client *s3.Client
	bucket string
	prefix string
}

// New creates a Store for cfg.Bucket using client.
func New(client *s3.Client, cfg Config) (*Store, error) {
	if cfg.Bucket == "" {
		return nil, fmt.Errorf("artifact s3: bucket is required")
	}
	return &Store{client: client, bucket: cfg.Bucket, prefix: strings.Trim(cfg.Prefix, "/")}, nil
}

func (s *Store) Put(ctx context.Context, name string, data []byte) (model.ArtifactRef, error) {
	if name == "" {
		return "", fmt.Errorf("artifact s3: empty name")
	}
	key := s.objectKey(name)
	_, err := s.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(s.bucket),
		Key:         aws.String(key),
		Body:        bytes.NewReader(data),
		ContentType: aws.String("video/mp4"),
	})
	if err != nil {
		return "", fmt.Errorf("artifact s3: put %s: %w", key, err)
	}
	return FormatRef(s.bucket, key), nil
}

func (s *Store) Open(ctx context.Context, ref model.ArtifactRef) (io.ReadCloser, error) {
	key, err := s.key(ref)
	if err != nil {
		return nil, err
	}
	out, err := s.client.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		var nsk *types.NoSuchKey
		if errors.As(err, &nsk) {
			return nil, fmt.Errorf("%w: %s", artifact.ErrNotFound, ref)
		}
		return nil, fmt.Errorf("artifact s3: get %s: %w", key, err)
	}
	return out.Body, nil
}

// Delete is idempotent: S3 reports success for missing keys.
func (s *Store) Delete(ctx context.Context, ref model.ArtifactRef) error {
	key, err := s.key(ref)
	if err != nil {
		return err
	}
	_, err = s.client.DeleteObject(ctx, &s3.DeleteObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		return fmt.Errorf("artifact s3: delete %s: %w", key, err)
	}
	return nil
}

func (s *Store) Exists(ctx context.Context, ref model.ArtifactRef) (bool, error) {
	key, err := s.key(ref)
	if err != nil {
		return false, err
	}
	_, err = s.client.HeadObject(ctx, &s3.HeadObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		var nf *types.NotFound
		if errors.As(err, &nf) {
			return false, nil
		}
		return false, fmt.Errorf("artifact s3: head %s: %w", key, err)
	}
	return true, nil
}

// key maps ref to an object key. Bare names are taken relative to the prefix.
func (s *Store) key(ref model.ArtifactRef) (string, error) {
	if ref != "" && !strings.HasPrefix(string(ref), scheme) {
		return s.objectKey(string(ref)), nil
	}
	bucket, key, err := ParseRef(ref)
	if err != nil {
		return "", err
	}
	if bucket != s.bucket {
		return "", fmt.Errorf("artifact s3: %s is not in bucket %s", ref, s.bucket)
	}
	return key, nil
}

func (s *Store) objectKey(name string) string {
	if s.prefix == "" {
		return name
	}
	return s.prefix + "/" + name
}

// FormatRef builds an s3:// reference.
func FormatRef(bucket, key string) model.ArtifactRef {
	return model.ArtifactRef(scheme + bucket + "/" + key)
}

// ParseRef splits an s3:// reference into bucket and key.
func ParseRef(ref model.ArtifactRef) (bucket, key string, err error) {
	s := string(ref)
	if !strings.HasPrefix(s, scheme) {
		return "", "", fmt.Errorf("artifact s3: %q is not an s3:// reference", s)
	}
	bucket, key, ok := strings.Cut(strings.TrimPrefix(s, scheme), "/")
	if !ok || bucket == "" || key == "" {
		return "", "", fmt.Errorf("artifact s3: malformed reference %q", s)
	}
	return bucket, key, nil
}
