package store

import (
	"context"
	"errors"
	"fmt"

	"github.com/suteetoe/storefront/internal/model"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// MongoCollection stores records as documents keyed by _id
type MongoCollection[T Record] struct {
	coll *mongo.Collection
}

// NewMongoCollection returns the named collection in db
func NewMongoCollection[T Record](db *mongo.Database, name string) *MongoCollection[T] {
	return &MongoCollection[T]{coll: db.Collection(name)}
}

// NewMongoStores opens the collections in db. Closing the stores disconnects client.
func NewMongoStores(ctx context.Context, client *mongo.Client, database string) (*Stores, error) {
	db := client.Database(database)

	// enforces model.User's unique key
	_, err := db.Collection(CollectionUsers).Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys:    bson.D{{Key: "email", Value: 1}},
		Options: options.Index().SetUnique(true),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create users index: %w", err)
	}

	return &Stores{
		Users:   instrument[model.User](CollectionUsers, NewMongoCollection[model.User](db, CollectionUsers)),
		Orders:  instrument[model.Order](CollectionOrders, NewMongoCollection[model.Order](db, CollectionOrders)),
		Carts:   instrument[model.Cart](CollectionCarts, NewMongoCollection[model.Cart](db, CollectionCarts)),
		closeFn: client.Disconnect,
	}, nil
}

func (m *MongoCollection[T]) scan(ctx context.Context, pred func(T) bool, limit int) ([]T, error) {
	cursor, err := m.coll.Find(ctx, bson.D{})
	if err != nil {
		return nil, fmt.Errorf("failed to query %s: %w", m.coll.Name(), err)
	}
	defer cursor.Close(ctx)

	pred = matchAll(pred)
	var out []T
	for cursor.Next(ctx) {
		var rec T
		if err := cursor.Decode(&rec); err != nil {
			return nil, fmt.Errorf("failed to decode %s: %w", m.coll.Name(), err)
		}
		if !pred(rec) {
			continue
		}
		out = append(out, rec)
		if limit > 0 && len(out) == limit {
			break
		}
	}
	if err := cursor.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate %s: %w", m.coll.Name(), err)
	}
	return out, nil
}

// Get implements Collection
func (m *MongoCollection[T]) Get(ctx context.Context, id string) (T, bool, error) {
	var rec T
	err := m.coll.FindOne(ctx, bson.D{{Key: "_id", Value: id}}).Decode(&rec)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return rec, false, nil
	}
	if err != nil {
		var zero T
		return zero, false, fmt.Errorf("failed to load %s/%s: %w", m.coll.Name(), id, err)
	}
	return rec, true, nil
}

// Find implements Collection
func (m *MongoCollection[T]) Find(ctx context.Context, pred func(T) bool) (T, bool, error) {
	var zero T
	recs, err := m.scan(ctx, pred, 1)
	if err != nil || len(recs) == 0 {
		return zero, false, err
	}
	return recs[0], true, nil
}

// List implements Collection
func (m *MongoCollection[T]) List(ctx context.Context, pred func(T) bool) ([]T, error) {
	recs, err := m.scan(ctx, pred, 0)
	if err != nil {
		return nil, err
	}
	if recs == nil {
		recs = []T{}
	}
	return recs, nil
}

// Insert implements Collection
func (m *MongoCollection[T]) Insert(ctx context.Context, record T) error {
	if _, err := m.coll.InsertOne(ctx, record); err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return ErrDuplicate
		}
		return fmt.Errorf("failed to insert %s/%s: %w", m.coll.Name(), record.RecordID(), err)
	}
	return nil
}

// Update implements Collection. The replace is conditional on the document read,
// so a concurrent writer makes this update report not found rather than be lost.
func (m *MongoCollection[T]) Update(ctx context.Context, id string, patch func(*T)) (T, bool, error) {
	var zero T

	var raw bson.Raw
	err := m.coll.FindOne(ctx, bson.D{{Key: "_id", Value: id}}).Decode(&raw)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return zero, false, nil
	}
	if err != nil {
		return zero, false, fmt.Errorf("failed to load %s/%s: %w", m.coll.Name(), id, err)
	}

	var rec T
	if err := bson.Unmarshal(raw, &rec); err != nil {
		return zero, false, fmt.Errorf("failed to decode %s/%s: %w", m.coll.Name(), id, err)
	}
	patch(&rec)

	var original bson.D
	if err := bson.Unmarshal(raw, &original); err != nil {
		return zero, false, fmt.Errorf("failed to decode %s/%s: %w", m.coll.Name(), id, err)
	}

	res, err := m.coll.ReplaceOne(ctx, original, rec)
	if mongo.IsDuplicateKeyError(err) {
		return zero, false, ErrDuplicate
	}
	if err != nil {
		return zero, false, fmt.Errorf("failed to update %s/%s: %w", m.coll.Name(), id, err)
	}
	if res.MatchedCount == 0 {
		return zero, false, nil
	}
	return rec, true, nil
}

// Delete implements Collection
func (m *MongoCollection[T]) Delete(ctx context.Context, id string) (bool, error) {
	res, err := m.coll.DeleteOne(ctx, bson.D{{Key: "_id", Value: id}})
	if err != nil {
		return false, fmt.Errorf("failed to delete %s/%s: %w", m.coll.Name(), id, err)
	}
	return res.DeletedCount > 0, nil
}
