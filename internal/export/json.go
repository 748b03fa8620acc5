package export

import (
	"encoding/json"
	"time"

	"github.com/Mekka-mouse/Vaultsystem/internal/models"
	"github.com/Mekka-mouse/Vaultsystem/internal/reports"
)

type utilizationDocument struct {
	Timestamp time.Time `json:"timestamp"`
	reports.Utilization
}

type completeDocument struct {
	ExportTimestamp time.Time            `json:"export_timestamp"`
	Vehicles        []models.Vehicle     `json:"vehicles"`
	CheckoutHistory []models.Checkout    `json:"checkout_history"`
	Maintenance     []models.Maintenance `json:"maintenance"`
	FleetStats      models.FleetStats    `json:"fleet_stats"`
}

func renderJSON(ds Dataset, kind Kind) ([]byte, int, error) {
	vehicles := nonNil(ds.Vehicles)
	checkouts := nonNil(ds.Checkouts)
	maintenance := nonNil(ds.Maintenance)

	var (
		doc  any
		rows int
	)
	switch kind {
	case KindVehicles:
		doc, rows = map[string]any{"vehicles": vehicles}, len(vehicles)
	case KindCheckoutHistory:
		doc, rows = map[string]any{"checkout_history": checkouts}, len(checkouts)
	case KindMaintenance:
		doc, rows = map[string]any{"maintenance": maintenance}, len(maintenance)
	case KindUtilization:
		u := ds.Utilization()
		u.Vehicles = vehicles
		doc = map[string]any{"utilization_report": utilizationDocument{
			Timestamp:   ds.GeneratedAt.UTC(),
			Utilization: u,
		}}
		rows = len(vehicles)
	default:
		doc = completeDocument{
			ExportTimestamp: ds.GeneratedAt.UTC(),
			Vehicles:        vehicles,
			CheckoutHistory: checkouts,
			Maintenance:     maintenance,
			FleetStats:      ds.Stats,
		}
		rows = len(vehicles) + len(checkouts) + len(maintenance)
	}

	body, err := json.MarshalIndent(doc, "", "  ")
	if err != nil {
		return nil, 0, err
	}
	return body, rows, nil
}

func nonNil[T any](s []T) []T {
	if s == nil {
		return []T{}
	}
	return s
}
