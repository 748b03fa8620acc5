package export

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/Mekka-mouse/Vaultsystem/internal/models"
	"github.com/Mekka-mouse/Vaultsystem/internal/store"
	"github.com/google/uuid"
	log "github.com/sirupsen/logrus"
)

var ErrNoSnapshot = errors.New("no vehicle snapshot available")

// Backend fetches the collections that are not part of the snapshot.
type Backend interface {
	Checkouts(ctx context.Context) ([]models.Checkout, error)
	MaintenanceRecords(ctx context.Context) ([]models.Maintenance, error)
}

// Snapshots gives access to the current vehicle snapshot.
type Snapshots interface {
	Current() *store.Snapshot
	RefreshAll(ctx context.Context) (*store.Snapshot, error)
}

// Recorder stores an audit entry for each export.
type Recorder interface {
	InsertExport(ctx context.Context, record models.ExportRecord) error
}

// Sink saves a rendered artifact and returns where it went.
type Sink interface {
	Save(ctx context.Context, a *Artifact) (string, error)
}

// Exporter gathers a dataset and renders it.
type Exporter struct {
	backend   Backend
	snapshots Snapshots
	recorder  Recorder
	opts      Options
	now       func() time.Time
}

// NewExporter creates an exporter. Call WithRecorder to enable auditing.
func NewExporter(backend Backend, snapshots Snapshots, opts Options) *Exporter {
	return &Exporter{
		backend:   backend,
		snapshots: snapshots,
		opts:      opts,
		now:       time.Now,
	}
}

// WithRecorder sets the audit recorder.
func (e *Exporter) WithRecorder(r Recorder) *Exporter {
	e.recorder = r
	return e
}

// Gather assembles the dataset an export kind needs. The vehicle snapshot is
// reused when present; checkouts and maintenance are fetched on demand.
func (e *Exporter) Gather(ctx context.Context, kind Kind) (Dataset, error) {
	snap := e.snapshots.Current()
	if snap == nil {
		var err error
		snap, err = e.snapshots.RefreshAll(ctx)
		if snap == nil {
			if err == nil {
				err = ErrNoSnapshot
			}
			return Dataset{}, fmt.Errorf("load vehicles: %w", err)
		}
	}

	ds := Dataset{
		Vehicles:    snap.Vehicles,
		Stats:       snap.Stats,
		GeneratedAt: e.now(),
	}

	needCheckouts, needMaintenance := kind.Needs()
	if needCheckouts {
		checkouts, err := e.backend.Checkouts(ctx)
		if err != nil {
			return Dataset{}, fmt.Errorf("load checkouts: %w", err)
		}
		ds.Checkouts = checkouts
	}
	if needMaintenance {
		records, err := e.backend.MaintenanceRecords(ctx)
		if err != nil {
			return Dataset{}, fmt.Errorf("load maintenance: %w", err)
		}
		ds.Maintenance = records
	}
	return ds, nil
}

// Export gathers and renders an export and records it in the audit log.
// requestID ties the audit entry to the caller; one is generated when empty.
func (e *Exporter) Export(ctx context.Context, kind Kind, format Format, requestID string) (*Artifact, error) {
	ds, err := e.Gather(ctx, kind)
	if err != nil {
		return nil, err
	}
	artifact, err := Render(ds, kind, format, e.opts)
	if err != nil {
		return nil, err
	}

	fields := log.Fields{
		"kind":     kind,
		"format":   format,
		"filename": artifact.Filename,
		"rows":     artifact.Rows,
	}
	log.WithFields(fields).Info("Export generated")

	if e.recorder != nil {
		if requestID == "" {
			requestID = uuid.NewString()
		}
		record := models.ExportRecord{
			RequestID: requestID,
			Kind:      string(kind),
			Format:    string(format),
			Filename:  artifact.Filename,
			Bytes:     len(artifact.Body),
			Rows:      artifact.Rows,
			CreatedAt: ds.GeneratedAt.UTC(),
		}
		if err := e.recorder.InsertExport(ctx, record); err != nil {
			log.WithError(err).WithFields(fields).Warn("Failed to record export")
		}
	}
	return artifact, nil
}

// ExportTo renders an export and hands it to sink.
func (e *Exporter) ExportTo(ctx context.Context, kind Kind, format Format, sink Sink) (string, error) {
	artifact, err := e.Export(ctx, kind, format, "")
	if err != nil {
		return "", err
	}
	return sink.Save(ctx, artifact)
}

// FileSink writes artifacts into a directory.
type FileSink struct {
	Dir string
}

// Save writes the artifact through a temporary file that is renamed into
// place, so a failed write never leaves a partial export behind.
func (s FileSink) Save(ctx context.Context, a *Artifact) (path string, err error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	dir := s.Dir
	if dir == "" {
		dir = "."
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("create export dir: %w", err)
	}

	tmp, err := os.CreateTemp(dir, ".export-*")
	if err != nil {
		return "", fmt.Errorf("create temp file: %w", err)
	}
	defer func() {
		if err != nil {
			tmp.Close()
			os.Remove(tmp.Name())
		}
	}()

	if _, err = tmp.Write(a.Body); err != nil {
		return "", fmt.Errorf("write export: %w", err)
	}
	if err = tmp.Close(); err != nil {
		return "", fmt.Errorf("close export: %w", err)
	}

	path = filepath.Join(dir, a.Filename)
	if err = os.Rename(tmp.Name(), path); err != nil {
		return "", fmt.Errorf("move export into place: %w", err)
	}
	if err = os.Chmod(path, 0o644); err != nil {
		return "", fmt.Errorf("chmod export: %w", err)
	}
	return path, nil
}
