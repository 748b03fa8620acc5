package models

// Checkout represents a checkout record as served by GET /api/reports/checkouts.
type Checkout struct {
	ID                 int       `json:"id"`
	VehicleID          int       `json:"vehicle_id"`
	VehicleName        string    `json:"vehicle_name"`
	DriverName         string    `json:"driver_name"`
	Purpose            string    `json:"purpose"`
	CheckoutDate       Timestamp `json:"checkout_date"`
	ExpectedReturnDate Timestamp `json:"expected_return_date"`
	ReturnDate         Timestamp `json:"return_date"`
	CheckoutMileage    int       `json:"checkout_mileage"`
	ReturnMileage      *int      `json:"return_mileage"`
	FuelLevel          *int      `json:"fuel_level"`
	SuppliesStocked    string    `json:"supplies_stocked"`
	SuppliesNeeded     string    `json:"supplies_needed"`
	ConditionNotes     string    `json:"condition_notes"`
	IsReturned         Flag      `json:"is_returned"`
}

// Active reports whether the checkout has not been returned yet.
func (c Checkout) Active() bool {
	return !bool(c.IsReturned)
}

// MilesDriven returns the distance covered during the checkout. The second
// result is false while no return mileage has been recorded.
func (c Checkout) MilesDriven() (int, bool) {
	if c.ReturnMileage == nil {
		return 0, false
	}
	return *c.ReturnMileage - c.CheckoutMileage, true
}

// CheckoutRequest is the body of POST /api/checkout.
type CheckoutRequest struct {
	VehicleID          int    `json:"vehicle_id"`
	DriverName         string `json:"driver_name"`
	Purpose            string `json:"purpose"`
	ExpectedReturnDate string `json:"expected_return_date"`
	CheckoutMileage    int    `json:"checkout_mileage"`
}

// ReturnRequest is the body of POST /api/return.
type ReturnRequest struct {
	VehicleID       int    `json:"vehicle_id"`
	ReturnMileage   int    `json:"return_mileage"`
	FuelLevel       int    `json:"fuel_level"`
	SuppliesStocked string `json:"supplies_stocked"`
	SuppliesNeeded  string `json:"supplies_needed"`
	ConditionNotes  string `json:"condition_notes"`
	GarageLevel     string `json:"garage_level"`
}

// SupplyChecklist is the fixed list of supplies a driver can flag as missing
// when returning a vehicle.
var SupplyChecklist = []string{
	"First Aid Kit",
	"Fire Extinguisher",
	"Flashlight",
	"Jumper Cables",
	"Ice Scraper",
	"Paper Towels",
	"Hand Sanitizer",
	"Trash Bags",
}
