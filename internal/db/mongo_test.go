package db

import (
	"context"
	"errors"
	"os"
	"testing"
	"time"

	"github.com/Mekka-mouse/Vaultsystem/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo/options"
)

type MockExportCollection struct {
	mock.Mock
}

func (m *MockExportCollection) InsertExport(ctx context.Context, record models.ExportRecord) error {
	args := m.Called(ctx, record)
	return args.Error(0)
}

func (m *MockExportCollection) FindExports(ctx context.Context, filter interface{}, opts ...*options.FindOptions) (ExportCursor, error) {
	args := m.Called(ctx, filter, opts)
	cursor, _ := args.Get(0).(ExportCursor)
	return cursor, args.Error(1)
}

type MockExportCursor struct {
	mock.Mock
}

func (m *MockExportCursor) All(ctx context.Context, out interface{}) error {
	args := m.Called(ctx, out)
	return args.Error(0)
}

func (m *MockExportCursor) Close(ctx context.Context) error {
	args := m.Called(ctx)
	return args.Error(0)
}

func TestConnectMongo_EmptyURI(t *testing.T) {
	client, err := ConnectMongo(context.Background(), "")
	assert.Error(t, err)
	assert.Nil(t, client)
}

func TestConnectMongo_BadURI(t *testing.T) {
	client, err := ConnectMongo(context.Background(), "mongodb://bad:uri")
	assert.Error(t, err)
	assert.Nil(t, client)
}

func TestInsertExport_NilCollection(t *testing.T) {
	coll := &MongoCollection{Collection: nil}
	err := coll.InsertExport(context.Background(), models.ExportRecord{})
	assert.ErrorIs(t, err, ErrNilCollection)

	_, err = coll.FindExports(context.Background(), bson.M{})
	assert.ErrorIs(t, err, ErrNilCollection)
}

func TestRecentExports(t *testing.T) {
	coll := new(MockExportCollection)
	cursor := new(MockExportCursor)
	coll.On("FindExports", mock.Anything, bson.M{}, mock.Anything).Return(cursor, nil)
	cursor.On("All", mock.Anything, mock.Anything).Run(func(args mock.Arguments) {
		out := args.Get(1).(*[]models.ExportRecord)
		*out = []models.ExportRecord{{Kind: "vehicles", Format: "csv"}}
	}).Return(nil)
	cursor.On("Close", mock.Anything).Return(nil)

	records, err := RecentExports(context.Background(), coll, 10)

	require.NoError(t, err)
	require.Len(t, records, 1)
	assert.Equal(t, "vehicles", records[0].Kind)
	cursor.AssertExpectations(t)
}

func TestRecentExports_FindError(t *testing.T) {
	coll := new(MockExportCollection)
	coll.On("FindExports", mock.Anything, mock.Anything, mock.Anything).Return(nil, errors.New("boom"))

	_, err := RecentExports(context.Background(), coll, 10)

	assert.ErrorContains(t, err, "find exports")
}

// Integration test (requires running MongoDB)
func TestInsertExport_Integration(t *testing.T) {
	uri := os.Getenv("MONGO_URI")
	if uri == "" || uri == "uri" {
		t.Skip("MONGO_URI not set or invalid, skipping integration test")
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	client, err := ConnectMongo(ctx, uri)
	if err != nil {
		t.Skipf("failed to connect: %v, skipping integration test", err)
		return
	}
	defer client.Disconnect(context.Background())

	dbName := os.Getenv("MONGO_DB")
	if dbName == "" {
		dbName = "fleet"
	}
	coll := NewExportCollection(client, dbName)
	err = coll.InsertExport(ctx, models.ExportRecord{Kind: "vehicles", Format: "csv", Filename: "vehicles_test.csv"})
	assert.NoError(t, err)
}
