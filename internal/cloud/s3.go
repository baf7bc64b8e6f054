// Package cloud moves dictionaries, record files and reports through S3.
package cloud

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/s3"
)

// objectAPI is the subset of the S3 client the store uses.
type objectAPI interface {
	GetObject(ctx context.Context, in *s3.GetObjectInput, opts ...func(*s3.Options)) (*s3.GetObjectOutput, error)
	PutObject(ctx context.Context, in *s3.PutObjectInput, opts ...func(*s3.Options)) (*s3.PutObjectOutput, error)
}

// S3Store reads and writes objects addressed by s3://bucket/key URLs.
type S3Store struct {
	client objectAPI
}

// NewS3Store creates a store using the default AWS credential chain.
// An empty region defers to the environment.
func NewS3Store(ctx context.Context, region string) (*S3Store, error) {
	var opts []func(*config.LoadOptions) error
	if region != "" {
		opts = append(opts, config.WithRegion(region))
	}
	cfg, err := config.LoadDefaultConfig(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("loading AWS config: %w", err)
	}
	return &S3Store{client: s3.NewFromConfig(cfg)}, nil
}

// ParseS3URL splits s3://bucket/key into bucket and key.
func ParseS3URL(u string) (bucket, key string, err error) {
	rest, ok := strings.CutPrefix(u, "s3://")
	if !ok {
		return "", "", fmt.Errorf("%q is not an s3:// URL", u)
	}
	bucket, key, _ = strings.Cut(rest, "/")
	if bucket == "" || key == "" || strings.HasSuffix(key, "/") {
		return "", "", fmt.Errorf("%q must name a bucket and an object key", u)
	}
	return bucket, key, nil
}

// Get reads a whole object into memory.
func (s *S3Store) Get(ctx context.Context, u string) ([]byte, error) {
	body, err := s.open(ctx, u)
	if err != nil {
		return nil, err
	}
	defer body.Close()

	data, err := io.ReadAll(body)
	if err != nil {
		return nil, fmt.Errorf("reading %s: %w", u, err)
	}
	return data, nil
}

// Fetch downloads an object to a temporary file that keeps the object's
// base name, so format detection by extension still works. cleanup removes it.
func (s *S3Store) Fetch(ctx context.Context, u string) (string, func(), error) {
	body, err := s.open(ctx, u)
	if err != nil {
		return "", nil, err
	}
	defer body.Close()

	dir, err := os.MkdirTemp("", "codebook-s3-*")
	if err != nil {
		return "", nil, err
	}
	cleanup := func() { os.RemoveAll(dir) }

	_, key, _ := ParseS3URL(u)
	local := path.Join(dir, path.Base(key))
	f, err := os.Create(local)
	if err != nil {
		cleanup()
		return "", nil, err
	}
	if _, err := io.Copy(f, body); err != nil {
		f.Close()
		cleanup()
		return "", nil, fmt.Errorf("downloading %s: %w", u, err)
	}
	if err := f.Close(); err != nil {
		cleanup()
		return "", nil, err
	}
	return local, cleanup, nil
}

// PutJSON uploads v as an indented JSON document.
func (s *S3Store) PutJSON(ctx context.Context, u string, v any) error {
	bucket, key, err := ParseS3URL(u)
	if err != nil {
		return err
	}
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("marshaling %s: %w", key, err)
	}

	_, err = s.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(bucket),
		Key:         aws.String(key),
		Body:        bytes.NewReader(data),
		ContentType: aws.String("application/json"),
	})
	if err != nil {
		return fmt.Errorf("putting S3 object %s: %w", u, err)
	}
	return nil
}

func (s *S3Store) open(ctx context.Context, u string) (io.ReadCloser, error) {
	bucket, key, err := ParseS3URL(u)
	if err != nil {
		return nil, err
	}
	resp, err := s.client.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		return nil, fmt.Errorf("getting S3 object %s: %w", u, err)
	}
	return resp.Body, nil
}
