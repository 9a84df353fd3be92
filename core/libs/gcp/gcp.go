package gcp

import (
	"context"
	"fmt"

	"cloud.google.com/go/firestore"
	"cloud.google.com/go/storage"
)

func NewFirestoreClient(ctx context.Context, projectID string) (*firestore.Client, error) {
	if projectID == "" {
		return nil, fmt.Errorf("projectID must be provided to create a firestore client")
	}

	client, err := firestore.NewClient(ctx, projectID)
	if err != nil {
		return nil, fmt.Errorf("create firestore client: %w", err)
	}
	return client, nil
}

// NewBucket opens a storage client and checks that bucket is reachable.
// The returned client must be closed by the caller.
func NewBucket(ctx context.Context, bucket string) (*storage.Client, *storage.BucketHandle, error) {
	if bucket == "" {
		return nil, nil, fmt.Errorf("empty GCS bucket")
	}

	client, err := storage.NewClient(ctx)
	if err != nil {
		return nil, nil, fmt.Errorf("create storage client: %w", err)
	}

	handle := client.Bucket(bucket)
	if _, err := handle.Attrs(ctx); err != nil {
		_ = client.Close()
		return nil, nil, fmt.Errorf("bucket %q attrs: %w", bucket, err)
	}
	return client, handle, nil
}
