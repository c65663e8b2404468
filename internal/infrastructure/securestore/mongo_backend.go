package securestore

import (
	"context"
	"errors"
	"fmt"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

const storeCollection = "secure_store"

// MongoBackend keeps store entries as one document per key.
type MongoBackend struct {
	coll *mongo.Collection
}

type storeDoc struct {
	ID    string `bson:"_id"`
	Value []byte `bson:"value"`
}

// NewMongoBackend wraps an already-connected Mongo database.
func NewMongoBackend(db *mongo.Database) *MongoBackend {
	return &MongoBackend{coll: db.Collection(storeCollection)}
}

func (b *MongoBackend) Get(ctx context.Context, key string) ([]byte, error) {
	var doc storeDoc
	if err := b.coll.FindOne(ctx, bson.M{"_id": key}).Decode(&doc); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, ErrKeyNotFound
		}
		return nil, fmt.Errorf("mongo find %s: %w", key, err)
	}
	return doc.Value, nil
}

func (b *MongoBackend) Set(ctx context.Context, key string, value []byte) error {
	_, err := b.coll.ReplaceOne(ctx, bson.M{"_id": key},
		storeDoc{ID: key, Value: value}, options.Replace().SetUpsert(true))
	if err != nil {
		return fmt.Errorf("mongo upsert %s: %w", key, err)
	}
	return nil
}

func (b *MongoBackend) Delete(ctx context.Context, key string) error {
	if _, err := b.coll.DeleteOne(ctx, bson.M{"_id": key}); err != nil {
		return fmt.Errorf("mongo delete %s: %w", key, err)
	}
	return nil
}
