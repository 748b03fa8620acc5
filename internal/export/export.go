// Package export renders fleet data as CSV, JSON or XLSX downloads.
//
// Renderers are pure: a Dataset goes in, an Artifact (filename, content type
// and bytes) comes out. Writing the artifact somewhere is the Sink's job.
package export

import (
	"errors"
	"fmt"
	"time"

	"github.com/Mekka-mouse/Vaultsystem/internal/models"
	"github.com/Mekka-mouse/Vaultsystem/internal/reports"
)

var (
	ErrUnknownKind   = errors.New("unknown export kind")
	ErrUnknownFormat = errors.New("unknown export format")
)

// Kind selects which records are exported.
type Kind string

const (
	KindVehicles        Kind = "vehicles"
	KindCheckoutHistory Kind = "checkout-history"
	KindMaintenance     Kind = "maintenance"
	KindUtilization     Kind = "utilization"
	KindComplete        Kind = "complete"
)

// Format selects the output encoding.
type Format string

const (
	FormatCSV  Format = "csv"
	FormatJSON Format = "json"
	FormatXLSX Format = "xlsx"
)

// DefaultDateLayout renders dates as month/day/year.
const DefaultDateLayout = "1/2/2006"

// ParseKind validates an export kind.
func ParseKind(s string) (Kind, error) {
	switch Kind(s) {
	case KindVehicles, KindCheckoutHistory, KindMaintenance, KindUtilization, KindComplete:
		return Kind(s), nil
	default:
		return "", fmt.Errorf("%w: %q", ErrUnknownKind, s)
	}
}

// ParseFormat validates an export format.
func ParseFormat(s string) (Format, error) {
	switch Format(s) {
	case FormatCSV, FormatJSON, FormatXLSX:
		return Format(s), nil
	default:
		return "", fmt.Errorf("%w: %q", ErrUnknownFormat, s)
	}
}

// ContentType returns the MIME type of the format.
func (f Format) ContentType() string {
	switch f {
	case FormatCSV:
		return "text/csv; charset=utf-8"
	case FormatJSON:
		return "application/json; charset=utf-8"
	case FormatXLSX:
		return "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"
	default:
		return "application/octet-stream"
	}
}

// Needs reports which backend collections a kind requires beyond the
// vehicle snapshot.
func (k Kind) Needs() (checkouts, maintenance bool) {
	switch k {
	case KindCheckoutHistory:
		return true, false
	case KindMaintenance:
		return false, true
	case KindComplete:
		return true, true
	default:
		return false, false
	}
}

// Dataset is the input of every renderer.
type Dataset struct {
	Vehicles    []models.Vehicle
	Stats       models.FleetStats
	Checkouts   []models.Checkout
	Maintenance []models.Maintenance
	GeneratedAt time.Time
}

// Utilization returns the utilization summary for the dataset.
func (d Dataset) Utilization() reports.Utilization {
	u := reports.UtilizationFromStats(d.Stats)
	u.Vehicles = d.Vehicles
	return u
}

// Options tune display formatting.
type Options struct {
	DateLayout string
}

func (o Options) dateLayout() string {
	if o.DateLayout == "" {
		return DefaultDateLayout
	}
	return o.DateLayout
}

// Artifact is a rendered export ready to be saved.
type Artifact struct {
	Filename    string
	ContentType string
	Body        []byte
	Rows        int
}

// Filename builds the download name, e.g. vehicles_2024-05-01.csv. The date
// is taken in UTC.
func Filename(kind Kind, format Format, at time.Time) string {
	date := at.UTC().Format("2006-01-02")
	var base string
	switch kind {
	case KindCheckoutHistory:
		base = "checkout_history"
	case KindUtilization:
		base = "utilization_report"
	case KindComplete:
		switch format {
		case FormatJSON:
			base = "complete_dataset"
		case FormatXLSX:
			base = "VAULT_Complete_Workbook"
		default:
			base = "complete_report"
		}
	default:
		base = string(kind)
	}
	return fmt.Sprintf("%s_%s.%s", base, date, format)
}

// Render encodes the dataset for the given kind and format.
func Render(ds Dataset, kind Kind, format Format, opts Options) (*Artifact, error) {
	if _, err := ParseKind(string(kind)); err != nil {
		return nil, err
	}
	if ds.GeneratedAt.IsZero() {
		ds.GeneratedAt = time.Now()
	}

	var (
		body []byte
		rows int
		err  error
	)
	switch format {
	case FormatCSV:
		body, rows = renderCSV(ds, kind, opts)
	case FormatJSON:
		body, rows, err = renderJSON(ds, kind)
	case FormatXLSX:
		body, rows, err = renderXLSX(ds, kind, opts)
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownFormat, format)
	}
	if err != nil {
		return nil, fmt.Errorf("render %s %s: %w", kind, format, err)
	}

	return &Artifact{
		Filename:    Filename(kind, format, ds.GeneratedAt),
		ContentType: format.ContentType(),
		Body:        body,
		Rows:        rows,
	}, nil
}
