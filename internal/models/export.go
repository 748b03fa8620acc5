package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// ExportRecord is an audit entry written for every generated export.
type ExportRecord struct {
	ID        primitive.ObjectID `json:"id" bson:"_id,omitempty"`
	RequestID string             `json:"request_id" bson:"request_id"`
	Kind      string             `json:"kind" bson:"kind"`     // "vehicles", "checkout-history", "maintenance", "utilization", "complete"
	Format    string             `json:"format" bson:"format"` // "csv", "json", "xlsx"
	Filename  string             `json:"filename" bson:"filename"`
	Bytes     int                `json:"bytes" bson:"bytes"`
	Rows      int                `json:"rows" bson:"rows"`
	CreatedAt time.Time          `json:"created_at" bson:"created_at"`
}
