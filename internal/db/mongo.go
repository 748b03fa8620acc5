package db

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/Mekka-mouse/Vaultsystem/internal/models"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// ExportsCollection is the collection audit entries are written to.
const ExportsCollection = "exports"

var ErrNilCollection = errors.New("mongo collection is nil")

// ConnectMongo connects to MongoDB at uri and verifies the connection.
func ConnectMongo(ctx context.Context, uri string) (*mongo.Client, error) {
	if uri == "" {
		return nil, errors.New("mongo uri is empty")
	}
	client, err := mongo.Connect(ctx, options.Client().ApplyURI(uri))
	if err != nil {
		return nil, fmt.Errorf("mongo.Connect error: %w", err)
	}
	pingCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()
	// Ping to verify connection
	if err := client.Ping(pingCtx, nil); err != nil {
		_ = client.Disconnect(context.Background())
		return nil, fmt.Errorf("mongo.Ping error: %w", err)
	}
	return client, nil
}

// MongoCollection wraps a MongoDB collection for export audit operations.
type MongoCollection struct {
	Collection *mongo.Collection
}

// NewExportCollection returns the audit collection of database dbName.
func NewExportCollection(client *mongo.Client, dbName string) *MongoCollection {
	return &MongoCollection{Collection: client.Database(dbName).Collection(ExportsCollection)}
}

// InsertExport inserts an export audit record into the collection.
func (c *MongoCollection) InsertExport(ctx context.Context, record models.ExportRecord) error {
	if c.Collection == nil {
		return ErrNilCollection
	}
	if record.CreatedAt.IsZero() {
		record.CreatedAt = time.Now().UTC()
	}
	_, err := c.Collection.InsertOne(ctx, record)
	return err
}

// mongoExportCursor wraps a MongoDB cursor for export queries.
type mongoExportCursor struct {
	cursor *mongo.Cursor
}

// All retrieves all results from the cursor.
func (m *mongoExportCursor) All(ctx context.Context, out interface{}) error {
	return m.cursor.All(ctx, out)
}

// Close closes the cursor.
func (m *mongoExportCursor) Close(ctx context.Context) error {
	return m.cursor.Close(ctx)
}

// FindExports queries export records from the collection.
func (c *MongoCollection) FindExports(ctx context.Context, filter interface{}, opts ...*options.FindOptions) (ExportCursor, error) {
	if c.Collection == nil {
		return nil, ErrNilCollection
	}
	cursor, err := c.Collection.Find(ctx, filter, opts...)
	if err != nil {
		return nil, err
	}
	return &mongoExportCursor{cursor: cursor}, nil
}

// RecentExports returns the latest export records, newest first.
func RecentExports(ctx context.Context, coll ExportCollection, limit int64) ([]models.ExportRecord, error) {
	opts := options.Find().SetSort(bson.D{{Key: "created_at", Value: -1}}).SetLimit(limit)
	cursor, err := coll.FindExports(ctx, bson.M{}, opts)
	if err != nil {
		return nil, fmt.Errorf("find exports: %w", err)
	}
	defer cursor.Close(ctx)

	var records []models.ExportRecord
	if err := cursor.All(ctx, &records); err != nil {
		return nil, fmt.Errorf("decode exports: %w", err)
	}
	return records, nil
}
