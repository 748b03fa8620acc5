// Package forms runs the checkout, return and maintenance actions: validate
// the input, call the backend, then refresh the snapshot. Every outcome is
// reported as a Result scoped to the form that produced it.
package forms

import (
	"context"
	"errors"
	"fmt"
	"reflect"
	"strings"
	"time"

	"github.com/Mekka-mouse/Vaultsystem/internal/api"
	"github.com/Mekka-mouse/Vaultsystem/internal/models"
	"github.com/Mekka-mouse/Vaultsystem/internal/notify"
	"github.com/Mekka-mouse/Vaultsystem/internal/store"
	"github.com/go-playground/validator/v10"
	log "github.com/sirupsen/logrus"
)

const (
	MsgCheckoutOK    = "Vehicle checked out successfully!"
	MsgReturnOK      = "Vehicle returned successfully!"
	MsgMaintenanceOK = "Maintenance scheduled successfully!"
	MsgCompleteOK    = "Maintenance marked as complete!"

	MsgCheckoutFailed    = "An error occurred during checkout"
	MsgReturnFailed      = "An error occurred during return"
	MsgMaintenanceFailed = "An error occurred while scheduling maintenance"
	MsgCompleteFailed    = "An error occurred while completing maintenance"

	MsgExecutiveBlocked  = "Executive vehicles cannot be checked out."
	MsgInvalidPIN        = "Invalid management PIN. Access denied."
	MsgAlreadyCompleted  = "Maintenance record is already completed."
	MsgMaintenanceAbsent = "Maintenance record not found."
	MsgVehicleAbsent     = "Vehicle not found."
)

// ReturnDateLayout is the layout of the expected return date sent to the backend.
const ReturnDateLayout = "2006-01-02T15:04"

var (
	ErrExecutiveVehicle = errors.New("executive vehicle")
	ErrInvalidPIN       = errors.New("invalid management pin")
	ErrUnknownVehicle   = errors.New("unknown vehicle")
)

// Form names the form a result belongs to.
type Form string

const (
	FormCheckout    Form = "checkout"
	FormReturn      Form = "return"
	FormMaintenance Form = "maintenance"
)

// Level is the alert style of a result.
type Level string

const (
	LevelSuccess Level = "success"
	LevelDanger  Level = "danger"
)

// Failure classifies why an action did not succeed.
type Failure string

const (
	FailureNone       Failure = ""
	FailureValidation Failure = "validation"
	FailureBackend    Failure = "backend"
)

// Result is the outcome of one form submission.
type Result struct {
	Form    Form    `json:"form"`
	OK      bool    `json:"ok"`
	Level   Level   `json:"level"`
	Message string  `json:"message"`
	Failure Failure `json:"failure,omitempty"`
	Err     error   `json:"-"`
}

func success(form Form, msg string) Result {
	return Result{Form: form, OK: true, Level: LevelSuccess, Message: msg}
}

func invalid(form Form, msg string, err error) Result {
	return Result{Form: form, Level: LevelDanger, Message: msg, Failure: FailureValidation, Err: err}
}

func failed(form Form, err error, fallback string) Result {
	return Result{
		Form:    form,
		Level:   LevelDanger,
		Message: api.MessageOr(err, fallback),
		Failure: FailureBackend,
		Err:     err,
	}
}

// Backend is the set of backend actions the forms submit.
type Backend interface {
	Checkout(ctx context.Context, req models.CheckoutRequest) error
	Return(ctx context.Context, req models.ReturnRequest) error
	ScheduleMaintenance(ctx context.Context, req models.MaintenanceRequest) error
	CompleteMaintenance(ctx context.Context, id int) error
	MaintenanceRecords(ctx context.Context) ([]models.Maintenance, error)
}

// Snapshots is the view of the snapshot store the forms need.
type Snapshots interface {
	Vehicle(id int) (models.Vehicle, bool)
	RefreshAll(ctx context.Context) (*store.Snapshot, error)
}

// PINVerifier checks the management PIN.
type PINVerifier interface {
	VerifyManagementPIN(pin string) bool
}

// Controller runs form submissions.
type Controller struct {
	backend   Backend
	snapshots Snapshots
	pins      PINVerifier
	publisher notify.Publisher
	validate  *validator.Validate
	now       func() time.Time
}

// NewController creates a controller. publisher may be nil.
func NewController(backend Backend, snapshots Snapshots, pins PINVerifier, publisher notify.Publisher) *Controller {
	if publisher == nil {
		publisher = notify.NopPublisher{}
	}
	return &Controller{
		backend:   backend,
		snapshots: snapshots,
		pins:      pins,
		publisher: publisher,
		validate:  newValidator(),
		now:       time.Now,
	}
}

func newValidator() *validator.Validate {
	v := validator.New()
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "-" || name == "" {
			return fld.Name
		}
		return name
	})
	return v
}

// validationMessage turns validator errors into a single readable line.
func validationMessage(err error) string {
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return err.Error()
	}
	parts := make([]string, 0, len(verrs))
	for _, fe := range verrs {
		switch fe.Tag() {
		case "required":
			parts = append(parts, fe.Field()+" is required")
		case "oneof":
			parts = append(parts, fmt.Sprintf("%s must be one of: %s", fe.Field(), fe.Param()))
		default:
			parts = append(parts, fe.Field()+" is invalid")
		}
	}
	return strings.Join(parts, "; ")
}

// afterSuccess refreshes the snapshot and publishes the event. Neither can
// undo the action, so failures are only logged.
func (c *Controller) afterSuccess(ctx context.Context, event notify.Event) {
	if _, err := c.snapshots.RefreshAll(ctx); err != nil {
		log.WithError(err).Warn("Refresh after form submission failed")
	}
	if err := c.publisher.Publish(ctx, event); err != nil {
		log.WithError(err).WithField("event", event.Type).Warn("Failed to publish fleet event")
	}
}

// CheckoutInput is what the checkout form collects.
type CheckoutInput struct {
	VehicleID          int    `json:"vehicle_id" validate:"required,gt=0"`
	DriverName         string `json:"driver_name" validate:"required"`
	Purpose            string `json:"purpose" validate:"required"`
	ExpectedReturnDate string `json:"expected_return_date"`
	CheckoutMileage    *int   `json:"checkout_mileage" validate:"omitempty,gte=0"`
	ManagementPIN      string `json:"management_pin"`
}

// Checkout validates and submits a checkout. Executive vehicles are refused
// first, then management vehicles need the PIN; neither failure reaches the
// backend. A vehicle missing from the snapshot triggers one refresh; if it is
// still unknown the checkout is refused, since its access level cannot be
// checked.
func (c *Controller) Checkout(ctx context.Context, in CheckoutInput) Result {
	in.DriverName = strings.TrimSpace(in.DriverName)
	in.Purpose = strings.TrimSpace(in.Purpose)

	vehicle, known := c.snapshots.Vehicle(in.VehicleID)
	if !known && in.VehicleID > 0 {
		if _, err := c.snapshots.RefreshAll(ctx); err != nil {
			log.WithError(err).WithField("vehicle_id", in.VehicleID).Error("Could not load vehicle for checkout")
			return failed(FormCheckout, err, MsgCheckoutFailed)
		}
		vehicle, known = c.snapshots.Vehicle(in.VehicleID)
		if !known {
			return invalid(FormCheckout, MsgVehicleAbsent, fmt.Errorf("%w: %d", ErrUnknownVehicle, in.VehicleID))
		}
	}
	if known && vehicle.IsExecutive() {
		return invalid(FormCheckout, MsgExecutiveBlocked, ErrExecutiveVehicle)
	}
	if known && vehicle.RequiresPIN() && !c.pins.VerifyManagementPIN(in.ManagementPIN) {
		log.WithField("vehicle_id", in.VehicleID).Warn("Rejected checkout with invalid management PIN")
		return invalid(FormCheckout, MsgInvalidPIN, ErrInvalidPIN)
	}
	if err := c.validate.Struct(in); err != nil {
		return invalid(FormCheckout, validationMessage(err), err)
	}

	req := models.CheckoutRequest{
		VehicleID:          in.VehicleID,
		DriverName:         in.DriverName,
		Purpose:            in.Purpose,
		ExpectedReturnDate: in.ExpectedReturnDate,
		CheckoutMileage:    vehicle.CurrentMileage,
	}
	if req.ExpectedReturnDate == "" {
		req.ExpectedReturnDate = c.now().Format(ReturnDateLayout)
	}
	if in.CheckoutMileage != nil {
		req.CheckoutMileage = *in.CheckoutMileage
	}

	if err := c.backend.Checkout(ctx, req); err != nil {
		log.WithError(err).WithField("vehicle_id", in.VehicleID).Error("Checkout failed")
		return failed(FormCheckout, err, MsgCheckoutFailed)
	}

	log.WithFields(log.Fields{"vehicle_id": req.VehicleID, "driver": req.DriverName}).Info("Vehicle checked out")
	c.afterSuccess(ctx, notify.NewEvent(notify.EventVehicleCheckedOut, req.VehicleID, req.DriverName))
	return success(FormCheckout, MsgCheckoutOK)
}

// ReturnInput is what the return form collects.
type ReturnInput struct {
	VehicleID       int    `json:"vehicle_id" validate:"required,gt=0"`
	ReturnMileage   int    `json:"return_mileage" validate:"gte=0"`
	FuelLevel       int    `json:"fuel_level" validate:"gte=0,lte=100"`
	SuppliesStocked string `json:"supplies_stocked" validate:"required,oneof=Yes No"`
	// MissingSupplies are the checked checklist items; ignored when stocked.
	MissingSupplies []string `json:"missing_supplies"`
	ConditionNotes  string   `json:"condition_notes"`
	GarageLevel     string   `json:"garage_level"`
}

// SuppliesNeeded joins the checked checklist items in checklist order.
// Unknown items are dropped; nothing is needed when supplies are stocked.
func SuppliesNeeded(stocked string, checked []string) string {
	if stocked != "No" {
		return ""
	}
	selected := make(map[string]bool, len(checked))
	for _, item := range checked {
		selected[strings.TrimSpace(item)] = true
	}
	var needed []string
	for _, item := range models.SupplyChecklist {
		if selected[item] {
			needed = append(needed, item)
		}
	}
	return strings.Join(needed, ", ")
}

// Return validates and submits a vehicle return.
func (c *Controller) Return(ctx context.Context, in ReturnInput) Result {
	if err := c.validate.Struct(in); err != nil {
		return invalid(FormReturn, validationMessage(err), err)
	}

	req := models.ReturnRequest{
		VehicleID:       in.VehicleID,
		ReturnMileage:   in.ReturnMileage,
		FuelLevel:       in.FuelLevel,
		SuppliesStocked: in.SuppliesStocked,
		SuppliesNeeded:  SuppliesNeeded(in.SuppliesStocked, in.MissingSupplies),
		ConditionNotes:  in.ConditionNotes,
		GarageLevel:     in.GarageLevel,
	}
	if err := c.backend.Return(ctx, req); err != nil {
		log.WithError(err).WithField("vehicle_id", in.VehicleID).Error("Return failed")
		return failed(FormReturn, err, MsgReturnFailed)
	}

	log.WithFields(log.Fields{"vehicle_id": req.VehicleID, "supplies_needed": req.SuppliesNeeded}).Info("Vehicle returned")
	c.afterSuccess(ctx, notify.NewEvent(notify.EventVehicleReturned, req.VehicleID, req.SuppliesNeeded))
	return success(FormReturn, MsgReturnOK)
}

// MaintenanceInput is what the maintenance form collects.
type MaintenanceInput struct {
	VehicleID       int    `json:"vehicle_id" validate:"required,gt=0"`
	MaintenanceType string `json:"maintenance_type" validate:"required"`
	Description     string `json:"description"`
	ScheduledDate   string `json:"scheduled_date" validate:"required"`
	// SetMaintenanceStatus also moves the vehicle into maintenance.
	SetMaintenanceStatus bool `json:"set_maintenance_status"`
}

// ScheduleMaintenance validates and submits a maintenance record.
func (c *Controller) ScheduleMaintenance(ctx context.Context, in MaintenanceInput) Result {
	if err := c.validate.Struct(in); err != nil {
		return invalid(FormMaintenance, validationMessage(err), err)
	}
	if _, err := models.ParseTimestamp(in.ScheduledDate); err != nil {
		return invalid(FormMaintenance, "scheduled_date is invalid", err)
	}

	req := models.MaintenanceRequest{
		VehicleID:            in.VehicleID,
		MaintenanceType:      in.MaintenanceType,
		Description:          in.Description,
		ScheduledDate:        in.ScheduledDate,
		SetMaintenanceStatus: in.SetMaintenanceStatus,
	}
	if err := c.backend.ScheduleMaintenance(ctx, req); err != nil {
		log.WithError(err).WithField("vehicle_id", in.VehicleID).Error("Scheduling maintenance failed")
		return failed(FormMaintenance, err, MsgMaintenanceFailed)
	}

	log.WithFields(log.Fields{
		"vehicle_id":             req.VehicleID,
		"maintenance_type":       req.MaintenanceType,
		"set_maintenance_status": req.SetMaintenanceStatus,
	}).Info("Maintenance scheduled")
	c.afterSuccess(ctx, notify.NewEvent(notify.EventMaintenanceScheduled, req.VehicleID, req.MaintenanceType))
	return success(FormMaintenance, MsgMaintenanceOK)
}

// CompleteMaintenance marks a maintenance record complete. Completion is
// one-way: a record already completed is refused without contacting the
// backend's complete endpoint.
func (c *Controller) CompleteMaintenance(ctx context.Context, id int) Result {
	if id <= 0 {
		return invalid(FormMaintenance, MsgMaintenanceAbsent, fmt.Errorf("invalid maintenance id %d", id))
	}

	vehicleID := 0
	records, err := c.backend.MaintenanceRecords(ctx)
	if err != nil {
		log.WithError(err).Warn("Could not load maintenance records before completing, submitting anyway")
	} else if record, ok := models.FindMaintenance(records, id); ok {
		if _, err := record.Status.Transition(models.MaintenanceCompleted); err != nil {
			return invalid(FormMaintenance, MsgAlreadyCompleted, err)
		}
		vehicleID = record.VehicleID
	}

	if err := c.backend.CompleteMaintenance(ctx, id); err != nil {
		log.WithError(err).WithField("maintenance_id", id).Error("Completing maintenance failed")
		return failed(FormMaintenance, err, MsgCompleteFailed)
	}

	log.WithField("maintenance_id", id).Info("Maintenance completed")
	event := notify.NewEvent(notify.EventMaintenanceCompleted, vehicleID, "")
	event.MaintenanceID = id
	c.afterSuccess(ctx, event)
	return success(FormMaintenance, MsgCompleteOK)
}
