// Package rules derives what the dashboard shows for a vehicle: status labels,
// who is driving it and where it is, and whether it can be picked in a form.
// Everything here is pure and independent of rendering.
package rules

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/Mekka-mouse/Vaultsystem/internal/models"
)

// DefaultLocation is shown for vehicles with no recorded location.
const DefaultLocation = "150 Peabody Place"

const (
	DriverAvailable     = "Available"
	DriverInMaintenance = "In Maintenance"
	LocationServiceBay  = "Service Bay"

	LabelExecutiveMaintenance = "EXECUTIVE - MAINTENANCE"
	LabelExecutiveReserved    = "EXECUTIVE - RESERVED"
)

// VehicleView is the display triple for a vehicle card.
type VehicleView struct {
	StatusLabel string `json:"status_label"`
	Driver      string `json:"driver"`
	Location    string `json:"location"`
}

// StatusLabel renders a status for display, e.g. "CHECKED OUT".
func StatusLabel(status models.VehicleStatus) string {
	return strings.ToUpper(strings.ReplaceAll(string(status), "_", " "))
}

// StatusClass renders a status as a CSS-friendly token, e.g. "checked-out".
func StatusClass(status models.VehicleStatus) string {
	return strings.ReplaceAll(string(status), "_", "-")
}

// ActiveCheckout finds the un-returned checkout for a vehicle.
func ActiveCheckout(vehicleID int, checkouts []models.Checkout) (models.Checkout, bool) {
	for _, c := range checkouts {
		if c.VehicleID == vehicleID && c.Active() {
			return c, true
		}
	}
	return models.Checkout{}, false
}

// DescribeVehicle joins a vehicle with the active checkouts to decide who is
// driving it and where it is.
func DescribeVehicle(v models.Vehicle, checkouts []models.Checkout, defaultLocation string) VehicleView {
	if defaultLocation == "" {
		defaultLocation = DefaultLocation
	}

	view := VehicleView{
		StatusLabel: StatusLabel(v.Status),
		Driver:      DriverAvailable,
		Location:    v.Location,
	}
	if view.Location == "" {
		view.Location = defaultLocation
	}

	switch v.Status {
	case models.StatusCheckedOut:
		if active, ok := ActiveCheckout(v.ID, checkouts); ok {
			view.Driver = active.DriverName
			view.Location = active.Purpose
		}
	case models.StatusMaintenance:
		view.Driver = DriverInMaintenance
		view.Location = LocationServiceBay
	}
	return view
}

// Context names the form a vehicle is being selected for.
type Context string

const (
	ContextCheckout    Context = "checkout"
	ContextReturn      Context = "return"
	ContextMaintenance Context = "maintenance"
)

// ParseContext validates a selection context name.
func ParseContext(s string) (Context, error) {
	switch Context(s) {
	case ContextCheckout, ContextReturn, ContextMaintenance:
		return Context(s), nil
	default:
		return "", fmt.Errorf("unknown selection context %q", s)
	}
}

// Eligibility says whether a vehicle can be chosen and why not.
type Eligibility struct {
	Selectable bool   `json:"selectable"`
	Reason     string `json:"reason,omitempty"`
}

// Eligible applies the per-form selection rules.
func Eligible(v models.Vehicle, ctx Context) Eligibility {
	switch ctx {
	case ContextCheckout:
		if v.Status == models.StatusAvailable && !v.IsExecutive() {
			return Eligibility{Selectable: true}
		}
		if v.IsExecutive() {
			if v.Status == models.StatusMaintenance {
				return Eligibility{Reason: LabelExecutiveMaintenance}
			}
			return Eligibility{Reason: LabelExecutiveReserved}
		}
		return Eligibility{Reason: StatusLabel(v.Status)}

	case ContextReturn:
		if v.Status == models.StatusCheckedOut {
			return Eligibility{Selectable: true}
		}
		return Eligibility{Reason: StatusLabel(v.Status)}

	case ContextMaintenance:
		if v.Status == models.StatusAvailable {
			return Eligibility{Selectable: true}
		}
		if v.IsExecutive() && v.Status != models.StatusMaintenance {
			return Eligibility{Selectable: true, Reason: LabelExecutiveReserved}
		}
		return Eligibility{Selectable: true, Reason: StatusLabel(v.Status)}
	}
	return Eligibility{}
}

// Option is one entry of a vehicle select list.
type Option struct {
	VehicleID  int    `json:"vehicle_id"`
	Label      string `json:"label"`
	Selectable bool   `json:"selectable"`
}

// OptionLabel renders "<name> - <plate>", annotated with the reason if any.
func OptionLabel(v models.Vehicle, e Eligibility) string {
	label := fmt.Sprintf("%s - %s", v.Name, v.LicensePlate)
	if e.Reason != "" {
		label += " (" + e.Reason + ")"
	}
	return label
}

// Options builds the select list for a form.
func Options(vehicles []models.Vehicle, ctx Context) []Option {
	options := make([]Option, 0, len(vehicles))
	for _, v := range vehicles {
		e := Eligible(v, ctx)
		options = append(options, Option{
			VehicleID:  v.ID,
			Label:      OptionLabel(v, e),
			Selectable: e.Selectable,
		})
	}
	return options
}

// Card is a vehicle tile on the dashboard.
type Card struct {
	VehicleID    int    `json:"vehicle_id"`
	Name         string `json:"name"`
	StatusClass  string `json:"status_class"`
	MakeModel    string `json:"make_model"`
	LicensePlate string `json:"license_plate"`
	Mileage      string `json:"mileage"`
	GarageLevel  string `json:"garage_level,omitempty"`
	VehicleView
}

// Cards builds the dashboard grid.
func Cards(vehicles []models.Vehicle, checkouts []models.Checkout, defaultLocation string) []Card {
	cards := make([]Card, 0, len(vehicles))
	for _, v := range vehicles {
		cards = append(cards, Card{
			VehicleID:    v.ID,
			Name:         v.Name,
			StatusClass:  StatusClass(v.Status),
			MakeModel:    fmt.Sprintf("%s %s (%d)", v.Make, v.Model, v.Year),
			LicensePlate: v.LicensePlate,
			Mileage:      Thousands(v.CurrentMileage),
			GarageLevel:  v.GarageLevel,
			VehicleView:  DescribeVehicle(v, checkouts, defaultLocation),
		})
	}
	return cards
}

// Thousands formats n with comma separators.
func Thousands(n int) string {
	s := strconv.Itoa(n)
	neg := strings.HasPrefix(s, "-")
	if neg {
		s = s[1:]
	}
	var b strings.Builder
	for i, r := range s {
		if i > 0 && (len(s)-i)%3 == 0 {
			b.WriteByte(',')
		}
		b.WriteRune(r)
	}
	if neg {
		return "-" + b.String()
	}
	return b.String()
}
