package store

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// mongoCollection holds one document per logical collection.
const mongoCollection = "collections"

// collectionDoc is the stored shape. Data is the JSON array text, which keeps
// numbers and nesting exactly as the other backends do.
type collectionDoc struct {
	Name      string    `bson:"_id"`
	Data      string    `bson:"data"`
	UpdatedAt time.Time `bson:"updatedAt"`
}

// MongoBackend stores collections in MongoDB. A whole-collection save is a
// single-document replace, so each save is atomic on the server.
type MongoBackend struct {
	client *mongo.Client
	docs   *mongo.Collection
}

// NewMongoBackend uses db for storage and disconnects client on Close.
func NewMongoBackend(client *mongo.Client, db *mongo.Database) *MongoBackend {
	return &MongoBackend{
		client: client,
		docs:   db.Collection(mongoCollection),
	}
}

// Read implements Backend.
func (b *MongoBackend) Read(ctx context.Context, collection string) ([]Record, error) {
	var doc collectionDoc
	err := b.docs.FindOne(ctx, bson.M{"_id": collection}).Decode(&doc)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, ErrNotExist
		}
		return nil, fmt.Errorf("find %s: %w", collection, err)
	}
	return decodeRecords([]byte(doc.Data))
}

// Write implements Backend.
func (b *MongoBackend) Write(ctx context.Context, collection string, records []Record) error {
	data, err := encodeRecords(records, false)
	if err != nil {
		return fmt.Errorf("encode %s: %w", collection, err)
	}
	doc := collectionDoc{
		Name:      collection,
		Data:      string(data),
		UpdatedAt: time.Now().UTC(),
	}
	_, err = b.docs.ReplaceOne(ctx, bson.M{"_id": collection}, doc, options.Replace().SetUpsert(true))
	if err != nil {
		return fmt.Errorf("replace %s: %w", collection, err)
	}
	return nil
}

// Exists implements Backend.
func (b *MongoBackend) Exists(ctx context.Context, collection string) (bool, error) {
	n, err := b.docs.CountDocuments(ctx, bson.M{"_id": collection}, options.Count().SetLimit(1))
	if err != nil {
		return false, fmt.Errorf("count %s: %w", collection, err)
	}
	return n > 0, nil
}

// Close implements Backend.
func (b *MongoBackend) Close() error {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	return b.client.Disconnect(ctx)
}
