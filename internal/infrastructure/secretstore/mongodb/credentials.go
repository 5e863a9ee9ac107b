package mongodb

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/marketingops/n8n-gateway/internal/domain/models"
)

// collection is the subset of *mongo.Collection the store uses.
type collection interface {
	FindOne(ctx context.Context, filter interface{}, opts ...*options.FindOneOptions) *mongo.SingleResult
	ReplaceOne(ctx context.Context, filter interface{}, replacement interface{}, opts ...*options.ReplaceOptions) (*mongo.UpdateResult, error)
	DeleteOne(ctx context.Context, filter interface{}, opts ...*options.DeleteOptions) (*mongo.DeleteResult, error)
}

type connection interface {
	Ping(ctx context.Context) error
}

// CredentialStore implements secretstore.Store on the credentials collection.
type CredentialStore struct {
	credentials collection
	conn        connection
}

// NewCredentialStore wraps a collection. conn may be nil, in which case Ping always succeeds.
func NewCredentialStore(credentials collection, conn connection) *CredentialStore {
	return &CredentialStore{
		credentials: credentials,
		conn:        conn,
	}
}

func ownerFilter(ownerID string, provider models.Provider) bson.M {
	return bson.M{"ownerId": ownerID, "provider": provider}
}

// Source implements secretstore.Store.
func (s *CredentialStore) Source() models.SecretSource {
	return models.SecretSourceCredentials
}

// Get returns the active credential of the owner for the provider.
func (s *CredentialStore) Get(ctx context.Context, ownerID string, provider models.Provider) (*models.Credential, error) {
	filter := ownerFilter(ownerID, provider)
	filter["active"] = true

	var cred models.Credential
	err := s.credentials.FindOne(ctx, filter).Decode(&cred)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get credential: %w", err)
	}

	cred.Source = s.Source()
	return &cred, nil
}

// Save replaces the owner's record, creating it if needed.
func (s *CredentialStore) Save(ctx context.Context, cred *models.Credential) error {
	if cred.OwnerID == "" {
		return fmt.Errorf("credential owner is required")
	}

	cred.Active = true
	cred.UpdatedAt = time.Now().UTC()

	_, err := s.credentials.ReplaceOne(ctx,
		ownerFilter(cred.OwnerID, cred.Provider),
		cred,
		options.Replace().SetUpsert(true))
	if err != nil {
		return fmt.Errorf("failed to save credential: %w", err)
	}

	cred.Source = s.Source()
	return nil
}

// Delete removes the owner's record.
func (s *CredentialStore) Delete(ctx context.Context, ownerID string, provider models.Provider) (bool, error) {
	result, err := s.credentials.DeleteOne(ctx, ownerFilter(ownerID, provider))
	if err != nil {
		return false, fmt.Errorf("failed to delete credential: %w", err)
	}
	return result.DeletedCount > 0, nil
}

// Ping checks the connection.
func (s *CredentialStore) Ping(ctx context.Context) error {
	if s.conn == nil {
		return nil
	}
	return s.conn.Ping(ctx)
}

// Close is a no-op; the Client owns the connection.
func (s *CredentialStore) Close() error {
	return nil
}
