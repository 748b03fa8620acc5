package models

// FleetStats is the status breakdown served by GET /api/fleet-stats.
type FleetStats struct {
	Available     int `json:"available"`
	CheckedOut    int `json:"checked_out"`
	Maintenance   int `json:"maintenance"`
	TotalVehicles int `json:"total_vehicles"`
	Reserved      int `json:"reserved"`
}

// StatsFromVehicles recomputes the fleet breakdown from a vehicle list.
// Reserved counts executive vehicles that are not in maintenance.
func StatsFromVehicles(vehicles []Vehicle) FleetStats {
	stats := FleetStats{TotalVehicles: len(vehicles)}
	for _, v := range vehicles {
		switch v.Status {
		case StatusAvailable:
			stats.Available++
		case StatusCheckedOut:
			stats.CheckedOut++
		case StatusMaintenance:
			stats.Maintenance++
		}
		if v.IsExecutive() && v.Status != StatusMaintenance {
			stats.Reserved++
		}
	}
	return stats
}
