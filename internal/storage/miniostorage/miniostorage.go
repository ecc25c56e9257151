// Package miniostorage keeps source photos, rendered results and logo assets in MinIO
package miniostorage

import (
	"context"
	"errors"
	"fmt"
	"io"

	"github.com/UnendingLoop/ExifFrame/internal/config"
	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
	"github.com/wb-go/wbf/zlog"
)

var ErrObjectNotFound = errors.New("object not found in storage")

type MinioRenderStorage struct {
	bucket string
	client *minio.Client
}

func NewMinioClient(ctx context.Context, cfg *config.Config) (*MinioRenderStorage, error) {
	bucket := cfg.BucketName
	if bucket == "" {
		bucket = "default"
		zlog.Logger.Warn().Str("bucket", bucket).Msg("Bucket name is empty, using default")
	}

	// подключаемся к минио - создаем клиента
	strg, err := minio.New(cfg.MinioAddr+":9000", &minio.Options{
		Creds:  credentials.NewStaticV4(cfg.MinioUser, cfg.MinioPass, ""),
		Secure: false,
	})
	if err != nil {
		return nil, err
	}

	if err := ensureBucket(ctx, strg, bucket); err != nil {
		return nil, fmt.Errorf("failed to create bucket %q in MinIO: %w", bucket, err)
	}

	return &MinioRenderStorage{bucket: bucket, client: strg}, nil
}

func (s *MinioRenderStorage) Put(ctx context.Context, key string, size int64, contentType string, r io.Reader) error {
	if r == nil {
		return errors.New("nil reader passed to storage.Put")
	}

	if _, err := s.client.PutObject(ctx, s.bucket, key, r, size, minio.PutObjectOptions{
		ContentType: contentType,
	}); err != nil {
		return err
	}

	return nil
}

func (s *MinioRenderStorage) Delete(ctx context.Context, key string) error {
	return s.client.RemoveObject(ctx, s.bucket, key, minio.RemoveObjectOptions{})
}

// Get opens the object. A missing key is reported as ErrObjectNotFound.
func (s *MinioRenderStorage) Get(ctx context.Context, key string) (io.ReadCloser, string, error) {
	res, err := s.client.GetObject(ctx, s.bucket, key, minio.GetObjectOptions{})
	if err != nil {
		return nil, "", err
	}

	resStat, err := res.Stat()
	if err != nil {
		_ = res.Close()
		if minio.ToErrorResponse(err).Code == "NoSuchKey" {
			return nil, "", fmt.Errorf("%w: %s", ErrObjectNotFound, key)
		}
		return nil, "", err
	}

	return res, resStat.ContentType, nil
}

func ensureBucket(ctx context.Context, client *minio.Client, bucket string) error {
	exists, err := client.BucketExists(ctx, bucket)
	if err != nil {
		return err
	}

	if exists {
		return nil
	}

	return client.MakeBucket(ctx, bucket, minio.MakeBucketOptions{})
}
