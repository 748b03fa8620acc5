package export

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/Mekka-mouse/Vaultsystem/internal/models"
	"github.com/Mekka-mouse/Vaultsystem/internal/store"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

type MockBackend struct {
	mock.Mock
}

func (m *MockBackend) Checkouts(ctx context.Context) ([]models.Checkout, error) {
	args := m.Called(ctx)
	return args.Get(0).([]models.Checkout), args.Error(1)
}

func (m *MockBackend) MaintenanceRecords(ctx context.Context) ([]models.Maintenance, error) {
	args := m.Called(ctx)
	return args.Get(0).([]models.Maintenance), args.Error(1)
}

type MockSnapshots struct {
	mock.Mock
}

func (m *MockSnapshots) Current() *store.Snapshot {
	args := m.Called()
	snap, _ := args.Get(0).(*store.Snapshot)
	return snap
}

func (m *MockSnapshots) RefreshAll(ctx context.Context) (*store.Snapshot, error) {
	args := m.Called(ctx)
	snap, _ := args.Get(0).(*store.Snapshot)
	return snap, args.Error(1)
}

type MockRecorder struct {
	mock.Mock
}

func (m *MockRecorder) InsertExport(ctx context.Context, record models.ExportRecord) error {
	args := m.Called(ctx, record)
	return args.Error(0)
}

func testSnapshot() *store.Snapshot {
	vehicles := sampleDataset().Vehicles
	return &store.Snapshot{Vehicles: vehicles, Stats: models.StatsFromVehicles(vehicles)}
}

func newTestExporter(backend Backend, snaps Snapshots) *Exporter {
	e := NewExporter(backend, snaps, Options{})
	e.now = func() time.Time { return time.Date(2024, 5, 3, 12, 0, 0, 0, time.UTC) }
	return e
}

func TestExporterGather(t *testing.T) {
	t.Run("vehicles only uses the snapshot", func(t *testing.T) {
		backend := new(MockBackend)
		snaps := new(MockSnapshots)
		snaps.On("Current").Return(testSnapshot())

		ds, err := newTestExporter(backend, snaps).Gather(context.Background(), KindVehicles)

		require.NoError(t, err)
		assert.Len(t, ds.Vehicles, 2)
		backend.AssertNotCalled(t, "Checkouts", mock.Anything)
		backend.AssertNotCalled(t, "MaintenanceRecords", mock.Anything)
	})

	t.Run("complete fetches history", func(t *testing.T) {
		backend := new(MockBackend)
		snaps := new(MockSnapshots)
		snaps.On("Current").Return(testSnapshot())
		backend.On("Checkouts", mock.Anything).Return(sampleDataset().Checkouts, nil)
		backend.On("MaintenanceRecords", mock.Anything).Return(sampleDataset().Maintenance, nil)

		ds, err := newTestExporter(backend, snaps).Gather(context.Background(), KindComplete)

		require.NoError(t, err)
		assert.Len(t, ds.Checkouts, 2)
		assert.Len(t, ds.Maintenance, 2)
		backend.AssertExpectations(t)
	})

	t.Run("refreshes when no snapshot is held", func(t *testing.T) {
		backend := new(MockBackend)
		snaps := new(MockSnapshots)
		snaps.On("Current").Return(nil)
		snaps.On("RefreshAll", mock.Anything).Return(testSnapshot(), nil)

		ds, err := newTestExporter(backend, snaps).Gather(context.Background(), KindUtilization)

		require.NoError(t, err)
		assert.Equal(t, 2, ds.Stats.TotalVehicles)
	})

	t.Run("fails without any snapshot", func(t *testing.T) {
		backend := new(MockBackend)
		snaps := new(MockSnapshots)
		snaps.On("Current").Return(nil)
		snaps.On("RefreshAll", mock.Anything).Return(nil, errors.New("connection refused"))

		_, err := newTestExporter(backend, snaps).Gather(context.Background(), KindVehicles)

		assert.ErrorContains(t, err, "connection refused")
	})

	t.Run("backend failure", func(t *testing.T) {
		backend := new(MockBackend)
		snaps := new(MockSnapshots)
		snaps.On("Current").Return(testSnapshot())
		backend.On("Checkouts", mock.Anything).Return([]models.Checkout(nil), errors.New("boom"))

		_, err := newTestExporter(backend, snaps).Gather(context.Background(), KindCheckoutHistory)

		assert.ErrorContains(t, err, "load checkouts")
	})
}

func TestExporterRecordsAudit(t *testing.T) {
	backend := new(MockBackend)
	snaps := new(MockSnapshots)
	recorder := new(MockRecorder)
	snaps.On("Current").Return(testSnapshot())
	recorder.On("InsertExport", mock.Anything, mock.MatchedBy(func(r models.ExportRecord) bool {
		return r.RequestID == "req-1" && r.Kind == "vehicles" && r.Format == "json" &&
			r.Filename == "vehicles_2024-05-03.json" && r.Rows == 2 && r.Bytes > 0
	})).Return(nil)

	e := newTestExporter(backend, snaps).WithRecorder(recorder)
	artifact, err := e.Export(context.Background(), KindVehicles, FormatJSON, "req-1")

	require.NoError(t, err)
	assert.Equal(t, "vehicles_2024-05-03.json", artifact.Filename)
	recorder.AssertExpectations(t)
}

func TestExporterAuditFailureDoesNotFailExport(t *testing.T) {
	backend := new(MockBackend)
	snaps := new(MockSnapshots)
	recorder := new(MockRecorder)
	snaps.On("Current").Return(testSnapshot())
	recorder.On("InsertExport", mock.Anything, mock.Anything).Return(errors.New("mongo down"))

	e := newTestExporter(backend, snaps).WithRecorder(recorder)
	_, err := e.Export(context.Background(), KindVehicles, FormatCSV, "")

	assert.NoError(t, err)
	recorder.AssertExpectations(t)
}

func TestFileSink(t *testing.T) {
	dir := t.TempDir()
	sink := FileSink{Dir: dir}

	path, err := sink.Save(context.Background(), &Artifact{Filename: "vehicles_2024-05-03.csv", Body: []byte("\"Name\"\n")})
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(dir, "vehicles_2024-05-03.csv"), path)

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "\"Name\"\n", string(data))

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	assert.Len(t, entries, 1, "temporary file should not be left behind")
}

func TestFileSinkCancelledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := FileSink{Dir: t.TempDir()}.Save(ctx, &Artifact{Filename: "x.csv"})
	assert.ErrorIs(t, err, context.Canceled)
}

func TestExportTo(t *testing.T) {
	backend := new(MockBackend)
	snaps := new(MockSnapshots)
	snaps.On("Current").Return(testSnapshot())
	dir := t.TempDir()

	path, err := newTestExporter(backend, snaps).ExportTo(context.Background(), KindUtilization, FormatXLSX, FileSink{Dir: dir})

	require.NoError(t, err)
	assert.Equal(t, filepath.Join(dir, "utilization_report_2024-05-03.xlsx"), path)
	sheets, err := func() ([]string, error) {
		body, err := os.ReadFile(path)
		if err != nil {
			return nil, err
		}
		return SheetNames(body)
	}()
	require.NoError(t, err)
	assert.Equal(t, []string{"Utilization Report"}, sheets)
}
