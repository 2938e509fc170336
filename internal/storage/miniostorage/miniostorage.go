// Package miniostorage provides structure to work with minio-storage
package miniostorage

import (
	"context"
	"errors"
	"io"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
	"github.com/wb-go/wbf/config"
	"github.com/wb-go/wbf/zlog"
)

const defaultBucket = "docmint"

type Config struct {
	Endpoint string
	User     string
	Pass     string
	Bucket   string
}

func ConfigFromEnv(cfg *config.Config) Config {
	c := Config{
		Endpoint: cfg.GetString("MINIO_CONTAINER_NAME") + ":9000",
		User:     cfg.GetString("MINIO_USER"),
		Pass:     cfg.GetString("MINIO_PASS"),
		Bucket:   cfg.GetString("BUCKET_NAME"),
	}
	if c.Bucket == "" {
		c.Bucket = defaultBucket
		zlog.Logger.Warn().Msgf("Bucket name is empty. Using default value %q...", c.Bucket)
	}
	return c
}

type MinioFileStorage struct {
	bucket string
	client *minio.Client
}

func NewMinioClient(ctx context.Context, c Config) (*MinioFileStorage, error) {
	// подключаемся к минио - создаем клиента
	strg, err := minio.New(c.Endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(c.User, c.Pass, ""),
		Secure: false,
	})
	if err != nil {
		return nil, err
	}

	// создаем бакет если его нет
	if err := ensureBucket(ctx, strg, c.Bucket); err != nil {
		return nil, err
	}

	return &MinioFileStorage{bucket: c.Bucket, client: strg}, nil
}

func (s *MinioFileStorage) Put(ctx context.Context, key string, size int64, contentType string, r io.Reader) error {
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

func (s *MinioFileStorage) Delete(ctx context.Context, key string) error {
	return s.client.RemoveObject(ctx, s.bucket, key, minio.RemoveObjectOptions{})
}

// Get returns the object stream and its stored content type; the caller closes the stream.
func (s *MinioFileStorage) Get(ctx context.Context, key string) (io.ReadCloser, string, error) {
	res, err := s.client.GetObject(ctx, s.bucket, key, minio.GetObjectOptions{})
	if err != nil {
		return nil, "", err
	}

	resStat, err := res.Stat()
	if err != nil {
		_ = res.Close()
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
