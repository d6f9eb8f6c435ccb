// internal/app/store/oauthstate/oauthstatestore.go
package oauthstate

import (
	"context"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// TTL is how long an issued state token may sit between the redirect to
// Google and the callback before it is rejected.
const TTL = 10 * time.Minute

// State is a single-use OAuth state token. The token itself is the document
// id, so uniqueness comes from the primary key and no extra index is needed.
type State struct {
	State     string    `bson:"_id"`
	ExpiresAt time.Time `bson:"expires_at"`
	CreatedAt time.Time `bson:"created_at"`
}

// Store provides access to the login_states collection.
type Store struct {
	c *mongo.Collection
}

// New creates a Store over the login_states collection.
func New(db *mongo.Database) *Store {
	return &Store{
		c: db.Collection("login_states"),
	}
}

// EnsureIndexes creates the TTL index so Mongo reaps expired tokens on its
// own; Verify still checks expires_at because TTL reaping is lazy.
func (s *Store) EnsureIndexes(ctx context.Context) error {
	_, err := s.c.Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys:    bson.D{{Key: "expires_at", Value: 1}},
		Options: options.Index().SetExpireAfterSeconds(0),
	})
	return err
}

// Create stores a new state token valid for TTL. Inserting a token that is
// already present fails on the primary key.
func (s *Store) Create(ctx context.Context, state string) error {
	now := time.Now()
	_, err := s.c.InsertOne(ctx, State{
		State:     state,
		ExpiresAt: now.Add(TTL),
		CreatedAt: now,
	})
	return err
}

// Verify consumes a state token: it reports whether an unexpired token
// existed, and deletes it either way so a token can never be replayed.
func (s *Store) Verify(ctx context.Context, state string) bool {
	filter := bson.M{
		"_id":        state,
		"expires_at": bson.M{"$gt": time.Now()},
	}
	return s.c.FindOneAndDelete(ctx, filter).Err() == nil
}
