package orderstore

import (
	"context"
	"fmt"

	"cloud.google.com/go/firestore"

	"github.com/you-humble/printq/api/internal/domain"
)

const defaultCollection = "orders"

type firestoreOrderStore struct {
	client     *firestore.Client
	collection string
}

func NewFirestoreOrderStore(client *firestore.Client, collection string) *firestoreOrderStore {
	if collection == "" {
		collection = defaultCollection
	}
	return &firestoreOrderStore{client: client, collection: collection}
}

func (s *firestoreOrderStore) Create(ctx context.Context, rec domain.OrderRecord) (string, error) {
	ref, _, err := s.client.Collection(s.collection).Add(ctx, rec)
	if err != nil {
		return "", fmt.Errorf("firestore add order: %w", err)
	}
	return ref.ID, nil
}
