package artifactstore

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"sync"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
)

// S3Config holds the object-storage connection settings.
type S3Config struct {
	Endpoint  string
	AccessKey string
	SecretKey string
	Bucket    string
	UseSSL    bool
}

// S3Store keeps artifacts in an S3-compatible bucket under
// <projectID>/<path>.
type S3Store struct {
	cli        *minio.Client
	bucket     string
	bucketOnce sync.Once
	bucketErr  error
}

func NewS3Store(cfg S3Config) (*S3Store, error) {
	cli, err := minio.New(cfg.Endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(cfg.AccessKey, cfg.SecretKey, ""),
		Secure: cfg.UseSSL,
	})
	if err != nil {
		return nil, fmt.Errorf("artifact: s3 client: %w", err)
	}
	return &S3Store{cli: cli, bucket: cfg.Bucket}, nil
}

func (s *S3Store) ensureBucket(ctx context.Context) error {
	s.bucketOnce.Do(func() {
		exists, err := s.cli.BucketExists(ctx, s.bucket)
		if err != nil {
			s.bucketErr = err
			return
		}
		if !exists {
			s.bucketErr = s.cli.MakeBucket(ctx, s.bucket, minio.MakeBucketOptions{})
		}
	})
	return s.bucketErr
}

func (s *S3Store) Put(ctx context.Context, projectID, path string, data []byte) error {
	if err := s.ensureBucket(ctx); err != nil {
		return err
	}
	key := objectKey(projectID, path)
	_, err := s.cli.PutObject(ctx, s.bucket, key, bytes.NewReader(data), int64(len(data)),
		minio.PutObjectOptions{ContentType: "application/octet-stream"})
	if err != nil {
		return fmt.Errorf("artifact: put %s: %w", key, err)
	}
	return nil
}

func (s *S3Store) Get(ctx context.Context, projectID, path string) ([]byte, error) {
	if err := s.ensureBucket(ctx); err != nil {
		return nil, err
	}
	key := objectKey(projectID, path)
	obj, err := s.cli.GetObject(ctx, s.bucket, key, minio.GetObjectOptions{})
	if err != nil {
		return nil, err
	}
	defer obj.Close()
	data, err := io.ReadAll(obj)
	if err != nil {
		var resp minio.ErrorResponse
		if errors.As(err, &resp) && resp.Code == "NoSuchKey" {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return data, nil
}

func (s *S3Store) List(ctx context.Context, projectID string) ([]string, error) {
	if err := s.ensureBucket(ctx); err != nil {
		return nil, err
	}
	prefix := projectID + "/"
	var paths []string
	for obj := range s.cli.ListObjects(ctx, s.bucket, minio.ListObjectsOptions{
		Prefix:    prefix,
		Recursive: true,
	}) {
		if obj.Err != nil {
			return nil, obj.Err
		}
		paths = append(paths, strings.TrimPrefix(obj.Key, prefix))
	}
	return paths, nil
}

func objectKey(projectID, path string) string {
	return projectID + "/" + strings.TrimPrefix(path, "/")
}
