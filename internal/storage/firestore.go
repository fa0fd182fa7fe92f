package storage

import (
	"context"
	"fmt"

	"cloud.google.com/go/firestore"
	"github.com/abduss/bugtrack/internal/config"
)

// NewFirestoreClient connects to the configured Firestore project. Credentials come from the
// environment (application default credentials or FIRESTORE_EMULATOR_HOST).
func NewFirestoreClient(ctx context.Context, cfg config.FirestoreConfig) (*firestore.Client, error) {
	client, err := firestore.NewClient(ctx, cfg.ProjectID)
	if err != nil {
		return nil, fmt.Errorf("create firestore client for project %q: %w", cfg.ProjectID, err)
	}
	return client, nil
}
