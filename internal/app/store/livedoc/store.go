// Package livedoc provides access to the shared live tracker document: one
// MongoDB document per live identity, written by the admin's sync
// coordinator via merge-style upsert and watched by subscribers through a
// change stream. The backend's last-write-wins merge semantics are taken as
// a given; conflict avoidance lives in the coordinator's publish guards.
package livedoc

import (
	"context"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.uber.org/zap"

	"github.com/dalemusser/stratatrack/internal/domain/timegrid"
)

// CollectionName is the MongoDB collection holding live tracker documents.
const CollectionName = "timetracker"

// Document is the shared live document shape.
type Document struct {
	ID          string                                `bson:"_id"`
	Daily       map[timegrid.DayKey]timegrid.Totals   `bson:"daily_data"`
	Grid        map[timegrid.DayKey]timegrid.DayGrid  `bson:"hourly_data"`
	Patterns    map[timegrid.DayKey][]string          `bson:"wasted_patterns"`
	Reflections map[timegrid.DayKey]string            `bson:"reflections"`
	UpdatedAt   time.Time                             `bson:"updated_at"`
}

// Bundle converts the document payload into a normalized bundle.
func (d *Document) Bundle() timegrid.Bundle {
	return timegrid.Bundle{
		Daily:       d.Daily,
		Grid:        d.Grid,
		Patterns:    d.Patterns,
		Reflections: d.Reflections,
	}.Normalize()
}

// Store provides access to one live document.
type Store struct {
	c      *mongo.Collection
	docID  string
	logger *zap.Logger
}

// New creates a live document store for the given document id.
func New(db *mongo.Database, docID string, logger *zap.Logger) *Store {
	return &Store{c: db.Collection(CollectionName), docID: docID, logger: logger}
}

// DocID returns the live document id this store is bound to.
func (s *Store) DocID() string { return s.docID }

// Get fetches the current live document. A document that does not exist yet
// returns (nil, nil).
func (s *Store) Get(ctx context.Context) (*Document, error) {
	var doc Document
	err := s.c.FindOne(ctx, bson.M{"_id": s.docID}).Decode(&doc)
	if err == mongo.ErrNoDocuments {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &doc, nil
}

// Publish upserts the full bundle into the live document with a fresh
// updated_at. Field-level merge is left to the backend; the coordinator
// always publishes the complete bundle.
func (s *Store) Publish(ctx context.Context, b timegrid.Bundle) error {
	update := bson.M{
		"$set": bson.M{
			"daily_data":      b.Daily,
			"hourly_data":     b.Grid,
			"wasted_patterns": b.Patterns,
			"reflections":     b.Reflections,
			"updated_at":      time.Now().UTC(),
		},
	}
	opts := options.Update().SetUpsert(true)
	_, err := s.c.UpdateOne(ctx, bson.M{"_id": s.docID}, update, opts)
	return err
}

// watchRetryDelay paces reconnect attempts after a change stream drops.
const watchRetryDelay = 5 * time.Second

// Watch delivers the live document to fn on every remote change until ctx is
// cancelled. It blocks; run it in a goroutine. The initial snapshot (if any)
// is delivered before the first change event. Stream errors are logged and
// followed by a reconnect; they never propagate to the caller, so a session
// stays usable offline.
func (s *Store) Watch(ctx context.Context, fn func(*Document)) {
	// Deliver whatever exists right away so subscribers do not wait for the
	// first edit.
	if doc, err := s.Get(ctx); err == nil && doc != nil {
		fn(doc)
	} else if err != nil && ctx.Err() == nil {
		s.logger.Warn("initial live document fetch failed", zap.Error(err))
	}

	pipeline := mongo.Pipeline{
		bson.D{{Key: "$match", Value: bson.M{"documentKey._id": s.docID}}},
	}
	opts := options.ChangeStream().SetFullDocument(options.UpdateLookup)

	for ctx.Err() == nil {
		stream, err := s.c.Watch(ctx, pipeline, opts)
		if err != nil {
			if ctx.Err() != nil {
				return
			}
			s.logger.Warn("live document watch failed, retrying",
				zap.String("doc_id", s.docID), zap.Error(err))
			select {
			case <-ctx.Done():
				return
			case <-time.After(watchRetryDelay):
			}
			continue
		}

		s.logger.Info("subscribed to live document", zap.String("doc_id", s.docID))
		for stream.Next(ctx) {
			var event struct {
				FullDocument *Document `bson:"fullDocument"`
			}
			if err := stream.Decode(&event); err != nil {
				s.logger.Warn("live change event decode failed", zap.Error(err))
				continue
			}
			if event.FullDocument != nil {
				fn(event.FullDocument)
			}
		}
		if err := stream.Err(); err != nil && ctx.Err() == nil {
			s.logger.Warn("live document stream closed, reconnecting", zap.Error(err))
		}
		stream.Close(context.Background())

		if ctx.Err() == nil {
			select {
			case <-ctx.Done():
				return
			case <-time.After(watchRetryDelay):
			}
		}
	}
}
