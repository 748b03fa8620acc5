package export

import (
	"fmt"

	"github.com/Mekka-mouse/Vaultsystem/internal/models"
)

// table is the tabular form shared by the CSV and XLSX renderers.
type table struct {
	title  string
	sheet  string
	header []string
	rows   [][]any
}

var vehicleHeader = []string{
	"Name", "Make", "Model", "Year", "License Plate", "VIN",
	"Current Mileage", "Status", "Access Level", "Location", "Garage Level",
}

func vehicleTable(vehicles []models.Vehicle) table {
	t := table{title: "VEHICLES", sheet: "Vehicle Inventory", header: vehicleHeader}
	for _, v := range vehicles {
		t.rows = append(t.rows, []any{
			v.Name, v.Make, v.Model, v.Year, v.LicensePlate, v.VIN,
			v.CurrentMileage, string(v.Status), string(v.AccessLevel), v.Location, v.GarageLevel,
		})
	}
	return t
}

var checkoutHeader = []string{
	"Vehicle", "Driver", "Purpose", "Checkout Date", "Return Date",
	"Checkout Mileage", "Return Mileage", "Miles Driven", "Fuel Level",
	"Supplies Stocked", "Supplies Needed", "Condition Notes", "Status",
}

func checkoutTable(checkouts []models.Checkout, layout string) table {
	t := table{title: "CHECKOUT HISTORY", sheet: "Checkout History", header: checkoutHeader}
	for _, c := range checkouts {
		var returnMileage, milesDriven, fuel any = "", "", ""
		if c.ReturnMileage != nil {
			returnMileage = *c.ReturnMileage
		}
		if miles, ok := c.MilesDriven(); ok {
			milesDriven = miles
		}
		if c.FuelLevel != nil {
			fuel = *c.FuelLevel
		}
		status := "Checked Out"
		if c.IsReturned {
			status = "Returned"
		}
		t.rows = append(t.rows, []any{
			orUnknown(c.VehicleName),
			c.DriverName,
			c.Purpose,
			c.CheckoutDate.Display(layout, ""),
			c.ReturnDate.Display(layout, "Not returned"),
			c.CheckoutMileage,
			returnMileage,
			milesDriven,
			fuel,
			c.SuppliesStocked,
			c.SuppliesNeeded,
			c.ConditionNotes,
			status,
		})
	}
	return t
}

var maintenanceHeader = []string{
	"Vehicle", "Type", "Description", "Scheduled Date", "Status",
	"Completed Date", "Cost", "Performed By", "Next Due Date",
}

func maintenanceTable(records []models.Maintenance, layout string) table {
	t := table{title: "MAINTENANCE", sheet: "Maintenance Records", header: maintenanceHeader}
	for _, m := range records {
		t.rows = append(t.rows, []any{
			orUnknown(m.VehicleName),
			m.MaintenanceType,
			m.Description,
			m.ScheduledDate.Display(layout, ""),
			string(m.Status.Normalize()),
			m.CompletedDate.Display(layout, ""),
			Currency(m.Cost),
			m.PerformedBy,
			m.NextDueDate.Display(layout, ""),
		})
	}
	return t
}

func utilizationTable(ds Dataset) table {
	t := table{title: "UTILIZATION", sheet: "Fleet Utilization", header: []string{"Metric", "Value"}}
	for _, m := range ds.Utilization().Metrics() {
		t.rows = append(t.rows, []any{m[0], m[1]})
	}
	return t
}

// tables returns the tables making up an export kind. Single kinds use
// shorter sheet names than the complete workbook.
func tables(ds Dataset, kind Kind, opts Options) []table {
	layout := opts.dateLayout()
	switch kind {
	case KindVehicles:
		t := vehicleTable(ds.Vehicles)
		t.sheet = "Vehicles"
		return []table{t}
	case KindCheckoutHistory:
		return []table{checkoutTable(ds.Checkouts, layout)}
	case KindMaintenance:
		t := maintenanceTable(ds.Maintenance, layout)
		t.sheet = "Maintenance"
		return []table{t}
	case KindUtilization:
		t := utilizationTable(ds)
		t.sheet = "Utilization Report"
		return []table{t}
	default:
		return []table{
			vehicleTable(ds.Vehicles),
			checkoutTable(ds.Checkouts, layout),
			maintenanceTable(ds.Maintenance, layout),
			utilizationTable(ds),
		}
	}
}

// Currency renders an amount with two decimals.
func Currency(amount float64) string {
	return fmt.Sprintf("$%.2f", amount)
}

func orUnknown(s string) string {
	if s == "" {
		return "Unknown"
	}
	return s
}
