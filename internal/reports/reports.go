// Package reports computes the fleet summaries shown on the reports view and
// reused by the exporters.
package reports

import (
	"fmt"
	"math"

	"github.com/Mekka-mouse/Vaultsystem/internal/models"
)

// Name identifies a report.
type Name string

const (
	NameUtilization Name = "utilization"
	NameMaintenance Name = "maintenance"
	NameEfficiency  Name = "efficiency"
)

// ParseName validates a report name.
func ParseName(s string) (Name, error) {
	switch Name(s) {
	case NameUtilization, NameMaintenance, NameEfficiency:
		return Name(s), nil
	default:
		return "", fmt.Errorf("unknown report %q", s)
	}
}

// Round1 rounds to one decimal place.
func Round1(f float64) float64 {
	return math.Round(f*10) / 10
}

// FormatOneDecimal renders f with exactly one decimal.
func FormatOneDecimal(f float64) string {
	return fmt.Sprintf("%.1f", Round1(f))
}

// Rate returns part/total as a percentage rounded to one decimal, or 0 when
// total is zero.
func Rate(part, total int) float64 {
	if total <= 0 {
		return 0
	}
	return Round1(float64(part) / float64(total) * 100)
}

// UtilizationRate is the share of the fleet currently checked out.
func UtilizationRate(stats models.FleetStats) float64 {
	return Rate(stats.CheckedOut, stats.TotalVehicles)
}

// AvailabilityRate is the share of the fleet available for checkout.
func AvailabilityRate(stats models.FleetStats) float64 {
	return Rate(stats.Available, stats.TotalVehicles)
}

// Utilization summarizes the fleet status breakdown.
type Utilization struct {
	TotalVehicles       int              `json:"total_vehicles"`
	AvailableVehicles   int              `json:"available_vehicles"`
	CheckedOutVehicles  int              `json:"checked_out_vehicles"`
	MaintenanceVehicles int              `json:"maintenance_vehicles"`
	ReservedVehicles    int              `json:"reserved_vehicles"`
	UtilizationRate     float64          `json:"utilization_rate"`
	AvailabilityRate    float64          `json:"availability_rate"`
	Vehicles            []models.Vehicle `json:"vehicles,omitempty"`
}

// UtilizationFromStats builds the summary from precomputed fleet stats.
func UtilizationFromStats(stats models.FleetStats) Utilization {
	return Utilization{
		TotalVehicles:       stats.TotalVehicles,
		AvailableVehicles:   stats.Available,
		CheckedOutVehicles:  stats.CheckedOut,
		MaintenanceVehicles: stats.Maintenance,
		ReservedVehicles:    stats.Reserved,
		UtilizationRate:     UtilizationRate(stats),
		AvailabilityRate:    AvailabilityRate(stats),
	}
}

// BuildUtilization computes the summary from the vehicle list and keeps the
// vehicles for the detail table.
func BuildUtilization(vehicles []models.Vehicle) Utilization {
	u := UtilizationFromStats(models.StatsFromVehicles(vehicles))
	u.Vehicles = vehicles
	return u
}

// Metrics lists the summary as ordered metric/value pairs, the layout used by
// tabular exports.
func (u Utilization) Metrics() [][2]string {
	return [][2]string{
		{"Total Vehicles", fmt.Sprint(u.TotalVehicles)},
		{"Available Vehicles", fmt.Sprint(u.AvailableVehicles)},
		{"Checked Out Vehicles", fmt.Sprint(u.CheckedOutVehicles)},
		{"Maintenance Vehicles", fmt.Sprint(u.MaintenanceVehicles)},
		{"Reserved Vehicles", fmt.Sprint(u.ReservedVehicles)},
		{"Utilization Rate (%)", FormatOneDecimal(u.UtilizationRate)},
		{"Availability Rate (%)", FormatOneDecimal(u.AvailabilityRate)},
	}
}

// MaintenanceSummary counts maintenance records by status.
type MaintenanceSummary struct {
	Scheduled int                  `json:"scheduled"`
	Completed int                  `json:"completed"`
	Records   []models.Maintenance `json:"records"`
}

// BuildMaintenance counts scheduled and completed records. Records without a
// status count as scheduled.
func BuildMaintenance(records []models.Maintenance) MaintenanceSummary {
	summary := MaintenanceSummary{Records: records}
	for _, r := range records {
		switch r.Status.Normalize() {
		case models.MaintenanceScheduled:
			summary.Scheduled++
		case models.MaintenanceCompleted:
			summary.Completed++
		}
	}
	return summary
}

// VehicleEfficiency is the per-vehicle trip summary.
type VehicleEfficiency struct {
	VehicleID  int     `json:"vehicle_id"`
	Name       string  `json:"name"`
	Trips      int     `json:"trips"`
	TotalMiles int     `json:"total_miles"`
	AvgMiles   float64 `json:"avg_miles"`
}

// Efficiency summarizes miles driven per completed trip.
type Efficiency struct {
	TotalCheckouts  int                 `json:"total_checkouts"`
	CompletedTrips  int                 `json:"completed_trips"`
	AvgMilesPerTrip float64             `json:"avg_miles_per_trip"`
	Vehicles        []VehicleEfficiency `json:"vehicles"`
}

// BuildEfficiency averages miles driven over returned checkouts, fleet-wide
// and per vehicle. Only returned checkouts with a recorded return mileage
// count as completed trips; vehicles without trips report 0.
func BuildEfficiency(vehicles []models.Vehicle, checkouts []models.Checkout) Efficiency {
	type tally struct{ trips, miles int }
	perVehicle := make(map[int]*tally)
	var fleet tally

	for _, c := range checkouts {
		if c.Active() {
			continue
		}
		miles, ok := c.MilesDriven()
		if !ok {
			continue
		}
		fleet.trips++
		fleet.miles += miles
		t, found := perVehicle[c.VehicleID]
		if !found {
			t = &tally{}
			perVehicle[c.VehicleID] = t
		}
		t.trips++
		t.miles += miles
	}

	eff := Efficiency{
		TotalCheckouts:  len(checkouts),
		CompletedTrips:  fleet.trips,
		AvgMilesPerTrip: average(fleet.miles, fleet.trips),
		Vehicles:        make([]VehicleEfficiency, 0, len(vehicles)),
	}
	for _, v := range vehicles {
		ve := VehicleEfficiency{VehicleID: v.ID, Name: v.Name}
		if t, ok := perVehicle[v.ID]; ok {
			ve.Trips = t.trips
			ve.TotalMiles = t.miles
			ve.AvgMiles = average(t.miles, t.trips)
		}
		eff.Vehicles = append(eff.Vehicles, ve)
	}
	return eff
}

func average(total, n int) float64 {
	if n == 0 {
		return 0
	}
	return Round1(float64(total) / float64(n))
}
