package models

import "fmt"

// View is one of the dashboard's top-level tabs.
type View string

const (
	ViewDashboard   View = "dashboard"
	ViewReports     View = "reports"
	ViewMaintenance View = "maintenance"
)

// Data sets a view can require.
const (
	LoadVehicles    = "vehicles"
	LoadStats       = "stats"
	LoadCheckouts   = "checkouts"
	LoadMaintenance = "maintenance"
)

// ParseView validates a view name.
func ParseView(s string) (View, error) {
	switch View(s) {
	case ViewDashboard, ViewReports, ViewMaintenance:
		return View(s), nil
	case "":
		return ViewDashboard, nil
	default:
		return "", fmt.Errorf("unknown view %q", s)
	}
}

// Loads lists the data a view fetches when it becomes active. Reports are
// generated on demand, so selecting that view loads nothing.
func (v View) Loads() []string {
	switch v {
	case ViewDashboard:
		return []string{LoadVehicles, LoadStats, LoadCheckouts}
	case ViewMaintenance:
		return []string{LoadMaintenance}
	default:
		return nil
	}
}
