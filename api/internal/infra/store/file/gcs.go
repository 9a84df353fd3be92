package filestore

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"

	"cloud.google.com/go/storage"
	"google.golang.org/api/googleapi"
)

type gcsStore struct {
	bucket   *storage.BucketHandle
	name     string
	basePath string
}

func NewGCSStore(bucket *storage.BucketHandle, name, basePath string) *gcsStore {
	return &gcsStore{bucket: bucket, name: name, basePath: basePrefix(basePath)}
}

// Save writes the object only if it does not exist yet. A precondition
// failure means an earlier attempt already stored this key and counts as
// success.
func (s *gcsStore) Save(ctx context.Context, key string, r io.Reader, _ int64) (string, error) {
	objectName, err := objectName(s.basePath, key)
	if err != nil {
		return "", err
	}
	stored := "gs://" + s.name + "/" + objectName

	w := s.bucket.Object(objectName).If(storage.Conditions{DoesNotExist: true}).NewWriter(ctx)
	w.ContentType = contentType(key)

	if _, err := io.Copy(w, r); err != nil {
		_ = w.Close()
		if isPreconditionFailed(err) {
			slog.Info("object already exists", slog.String("object", objectName))
			return stored, nil
		}
		return "", fmt.Errorf("write gcs object %s: %w", objectName, err)
	}

	if err := w.Close(); err != nil {
		if isPreconditionFailed(err) {
			slog.Info("object already exists", slog.String("object", objectName))
			return stored, nil
		}
		return "", fmt.Errorf("finalize gcs object %s: %w", objectName, err)
	}

	return stored, nil
}

func (s *gcsStore) Delete(ctx context.Context, key string) error {
	objectName, err := objectName(s.basePath, key)
	if err != nil {
		return err
	}

	if err := s.bucket.Object(objectName).Delete(ctx); err != nil && !errors.Is(err, storage.ErrObjectNotExist) {
		return fmt.Errorf("delete gcs object %s: %w", objectName, err)
	}
	return nil
}

func isPreconditionFailed(err error) bool {
	var gerr *googleapi.Error
	return errors.As(err, &gerr) && gerr.Code == http.StatusPreconditionFailed
}
