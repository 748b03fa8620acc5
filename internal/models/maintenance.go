package models

import "errors"

var (
	ErrAlreadyCompleted  = errors.New("maintenance record is already completed")
	ErrInvalidTransition = errors.New("invalid maintenance status transition")
)

// MaintenanceStatus is the completion state of a maintenance record.
type MaintenanceStatus string

const (
	MaintenanceScheduled MaintenanceStatus = "scheduled"
	MaintenanceCompleted MaintenanceStatus = "completed"
)

// Normalize maps a missing status to scheduled.
func (s MaintenanceStatus) Normalize() MaintenanceStatus {
	if s == "" {
		return MaintenanceScheduled
	}
	return s
}

// Transition validates a status change. Completion is one-way: the only
// permitted move is scheduled -> completed.
func (s MaintenanceStatus) Transition(to MaintenanceStatus) (MaintenanceStatus, error) {
	from := s.Normalize()
	switch {
	case from == MaintenanceScheduled && to == MaintenanceCompleted:
		return to, nil
	case from == MaintenanceCompleted && to == MaintenanceCompleted:
		return from, ErrAlreadyCompleted
	default:
		return from, ErrInvalidTransition
	}
}

// Maintenance represents a vehicle maintenance record as served by
// GET /api/reports/maintenance.
type Maintenance struct {
	ID              int               `json:"id"`
	VehicleID       int               `json:"vehicle_id"`
	VehicleName     string            `json:"vehicle_name"`
	MaintenanceType string            `json:"maintenance_type"`
	Description     string            `json:"description"`
	ScheduledDate   Timestamp         `json:"scheduled_date"`
	DatePerformed   Timestamp         `json:"date_performed"`
	CompletedDate   Timestamp         `json:"completed_date"`
	NextDueDate     Timestamp         `json:"next_due_date"`
	Mileage         int               `json:"mileage"`
	Cost            float64           `json:"cost"`
	PerformedBy     string            `json:"performed_by"`
	Status          MaintenanceStatus `json:"status"`
}

// CanComplete reports whether the record may still be marked complete.
func (m Maintenance) CanComplete() bool {
	_, err := m.Status.Transition(MaintenanceCompleted)
	return err == nil
}

// FindMaintenance returns the record with the given id.
func FindMaintenance(records []Maintenance, id int) (Maintenance, bool) {
	for _, m := range records {
		if m.ID == id {
			return m, true
		}
	}
	return Maintenance{}, false
}

// MaintenanceRequest is the body of POST /api/maintenance.
type MaintenanceRequest struct {
	VehicleID            int    `json:"vehicle_id"`
	MaintenanceType      string `json:"maintenance_type"`
	Description          string `json:"description"`
	ScheduledDate        string `json:"scheduled_date"`
	SetMaintenanceStatus bool   `json:"set_maintenance_status"`
}
