package filestore

import (
	"context"
	"errors"
	"fmt"
	"io"
	"mime"
	"path"
	"strings"

	"github.com/minio/minio-go/v7"

	mio "github.com/you-humble/printq/core/libs/minio"
)

type minioStore struct {
	db       *minio.Client
	bucket   string
	basePath string
}

func NewMinIOStore(ctx context.Context, cfg mio.Config) (*minioStore, error) {
	mioClient, err := mio.NewClient(ctx, cfg)
	if err != nil {
		return nil, err
	}

	return &minioStore{
		db:       mioClient,
		bucket:   cfg.Bucket,
		basePath: basePrefix(cfg.BasePath),
	}, nil
}

func (s *minioStore) Save(ctx context.Context, key string, r io.Reader, size int64) (string, error) {
	select {
	case <-ctx.Done():
		return "", ctx.Err()
	default:
	}

	objectName, err := objectName(s.basePath, key)
	if err != nil {
		return "", err
	}

	putSize := size
	if putSize <= 0 {
		putSize = -1
	}

	_, err = s.db.PutObject(ctx, s.bucket, objectName, r, putSize, minio.PutObjectOptions{
		ContentType: contentType(key),
	})
	if err != nil {
		return "", fmt.Errorf("put object %s: %w", objectName, err)
	}

	return "s3://" + s.bucket + "/" + objectName, nil
}

func (s *minioStore) Delete(ctx context.Context, key string) error {
	objectName, err := objectName(s.basePath, key)
	if err != nil {
		return err
	}

	err = s.db.RemoveObject(ctx, s.bucket, objectName, minio.RemoveObjectOptions{})
	if err != nil {
		var merr minio.ErrorResponse
		if errors.As(err, &merr) && merr.Code == minio.NoSuchKey {
			return nil
		}
		return fmt.Errorf("remove object: %w", err)
	}

	return nil
}

func basePrefix(base string) string {
	base = strings.Trim(base, "/")
	if base != "" {
		base += "/"
	}
	return base
}

func objectName(basePath, key string) (string, error) {
	if strings.TrimSpace(key) == "" {
		return "", fmt.Errorf("empty key")
	}

	clean := strings.TrimLeft(path.Clean("/"+key), "/")
	if clean == "" || clean != strings.TrimLeft(key, "/") {
		return "", fmt.Errorf("invalid key: %s", key)
	}

	return basePath + clean, nil
}

func contentType(key string) string {
	if ct := mime.TypeByExtension(path.Ext(key)); ct != "" {
		return ct
	}
	return "application/octet-stream"
}
