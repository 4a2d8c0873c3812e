package repository

import (
	"context"
	"fmt"
	"time"

	"cloud.google.com/go/firestore"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"auth-gateway/internal/domain"
)

const (
	// UsersCollection holds one document per account uid
	UsersCollection = "users"

	healthCollection = "_health"
	healthDocument   = "startup"
)

// firestoreProfileRepository keeps profile documents in Firestore
type firestoreProfileRepository struct {
	client     *firestore.Client
	collection string
}

// NewFirestoreProfileRepository creates a Firestore-backed profile repository
func NewFirestoreProfileRepository(client *firestore.Client, collection string) ProfileRepository {
	if collection == "" {
		collection = UsersCollection
	}
	return &firestoreProfileRepository{client: client, collection: collection}
}

// Upsert writes defaults only when the document does not exist yet. The
// existence check and the write share one transaction.
func (r *firestoreProfileRepository) Upsert(ctx context.Context, profile *domain.Profile) error {
	ref := r.client.Collection(r.collection).Doc(profile.UID)

	err := r.client.RunTransaction(ctx, func(ctx context.Context, tx *firestore.Transaction) error {
		snap, err := tx.Get(ref)
		if err != nil && status.Code(err) != codes.NotFound {
			return err
		}
		if snap == nil || !snap.Exists() {
			return tx.Set(ref, profile.InsertFields())
		}
		return tx.Set(ref, profile.MergeFields(), firestore.MergeAll)
	})
	if err != nil {
		return fmt.Errorf("failed to upsert profile document: %w", err)
	}
	return nil
}

// Ping reads the startup marker. A missing marker still proves the
// store answered.
func (r *firestoreProfileRepository) Ping(ctx context.Context) error {
	_, err := r.client.Collection(healthCollection).Doc(healthDocument).Get(ctx)
	if err != nil && status.Code(err) != codes.NotFound {
		return fmt.Errorf("failed to read health document: %w", err)
	}
	return nil
}

// MarkStartup writes the startup marker document
func (r *firestoreProfileRepository) MarkStartup(ctx context.Context) error {
	_, err := r.client.Collection(healthCollection).Doc(healthDocument).Set(ctx, map[string]interface{}{
		"checkedAt": time.Now().UTC(),
	}, firestore.MergeAll)
	if err != nil {
		return fmt.Errorf("failed to write health document: %w", err)
	}
	return nil
}

func (r *firestoreProfileRepository) Name() string { return "firestore" }
