package models

// VehicleStatus is the live status of a fleet vehicle.
type VehicleStatus string

const (
	StatusAvailable   VehicleStatus = "available"
	StatusCheckedOut  VehicleStatus = "checked_out"
	StatusMaintenance VehicleStatus = "maintenance"
)

// AccessLevel controls who may check a vehicle out.
type AccessLevel string

const (
	AccessStandard   AccessLevel = "standard"
	AccessManagement AccessLevel = "management" // requires the management PIN
	AccessExecutive  AccessLevel = "executive"  // never checked out from the dashboard
)

// Vehicle represents a fleet vehicle as served by GET /api/vehicles.
type Vehicle struct {
	ID             int           `json:"id"`
	Name           string        `json:"name"`
	Make           string        `json:"make"`
	Model          string        `json:"model"`
	Year           int           `json:"year"`
	LicensePlate   string        `json:"license_plate"`
	VIN            string        `json:"vin"`
	CurrentMileage int           `json:"current_mileage"`
	Status         VehicleStatus `json:"status"`
	Location       string        `json:"location"`
	GarageLevel    string        `json:"garage_level"`
	AccessLevel    AccessLevel   `json:"access_level"`
}

// IsExecutive reports whether the vehicle is reserved for executives.
func (v Vehicle) IsExecutive() bool {
	return v.AccessLevel == AccessExecutive
}

// RequiresPIN reports whether checking the vehicle out needs the management PIN.
func (v Vehicle) RequiresPIN() bool {
	return v.AccessLevel == AccessManagement
}

// FindVehicle returns the vehicle with the given id.
func FindVehicle(vehicles []Vehicle, id int) (Vehicle, bool) {
	for _, v := range vehicles {
		if v.ID == id {
			return v, true
		}
	}
	return Vehicle{}, false
}
