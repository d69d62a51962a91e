package docstore

import (
	"bytes"
	"context"
	"fmt"
	"io"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
)

// MinIOConfig holds object storage settings for the remote document store.
type MinIOConfig struct {
	Endpoint  string `yaml:"endpoint"`
	AccessKey string `yaml:"accessKey"`
	SecretKey string `yaml:"secretKey"`
	UseSSL    bool   `yaml:"useSSL"`
	Bucket    string `yaml:"bucket"`
}

// MinIOStore implements DocumentStore on a MinIO/S3 bucket.
// Documents live at users/<identity>/<category>/data.json, one object per
// category, mirroring the per-user document layout of the hosted backend.
type MinIOStore struct {
	client *minio.Client
	bucket string
}

func NewMinIOStore(cfg MinIOConfig) (*MinIOStore, error) {
	if cfg.Endpoint == "" {
		return nil, fmt.Errorf("minio endpoint is required")
	}
	if cfg.AccessKey == "" {
		return nil, fmt.Errorf("minio accessKey is required")
	}
	if cfg.SecretKey == "" {
		return nil, fmt.Errorf("minio secretKey is required")
	}
	if cfg.Bucket == "" {
		return nil, fmt.Errorf("minio bucket is required")
	}
	client, err := minio.New(cfg.Endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(cfg.AccessKey, cfg.SecretKey, ""),
		Secure: cfg.UseSSL,
	})
	if err != nil {
		return nil, fmt.Errorf("create minio client failed: %w", err)
	}
	return &MinIOStore{client: client, bucket: cfg.Bucket}, nil
}

// EnsureBucket creates the bucket if it does not exist yet.
func (s *MinIOStore) EnsureBucket(ctx context.Context) error {
	exists, err := s.client.BucketExists(ctx, s.bucket)
	if err != nil {
		return fmt.Errorf("check bucket failed: %w", err)
	}
	if exists {
		return nil
	}
	if err := s.client.MakeBucket(ctx, s.bucket, minio.MakeBucketOptions{}); err != nil {
		return fmt.Errorf("create bucket failed: %w", err)
	}
	return nil
}

func (s *MinIOStore) GetDocument(ctx context.Context, identity, category string) ([]byte, error) {
	key, err := objectKey(identity, category)
	if err != nil {
		return nil, err
	}
	obj, err := s.client.GetObject(ctx, s.bucket, key, minio.GetObjectOptions{})
	if err != nil {
		return nil, fmt.Errorf("minio get object failed: %w", err)
	}
	defer func() { _ = obj.Close() }()

	body, err := io.ReadAll(obj)
	if err != nil {
		if resp := minio.ToErrorResponse(err); resp.Code == "NoSuchKey" {
			return nil, ErrDocumentNotFound
		}
		return nil, fmt.Errorf("minio read object failed: %w", err)
	}
	return body, nil
}

func (s *MinIOStore) PutDocument(ctx context.Context, identity, category string, body []byte) error {
	key, err := objectKey(identity, category)
	if err != nil {
		return err
	}
	_, err = s.client.PutObject(ctx, s.bucket, key, bytes.NewReader(body), int64(len(body)),
		minio.PutObjectOptions{ContentType: "application/json"})
	if err != nil {
		return fmt.Errorf("minio put object failed: %w", err)
	}
	return nil
}

func (s *MinIOStore) DeleteDocument(ctx context.Context, identity, category string) error {
	key, err := objectKey(identity, category)
	if err != nil {
		return err
	}
	if err := s.client.RemoveObject(ctx, s.bucket, key, minio.RemoveObjectOptions{}); err != nil {
		return fmt.Errorf("minio remove object failed: %w", err)
	}
	return nil
}

func objectKey(identity, category string) (string, error) {
	if identity == "" {
		return "", fmt.Errorf("identity is required")
	}
	if category == "" {
		return "", fmt.Errorf("category is required")
	}
	return fmt.Sprintf("users/%s/%s/data.json", identity, category), nil
}
