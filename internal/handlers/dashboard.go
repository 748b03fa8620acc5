package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"

	"github.com/Mekka-mouse/Vaultsystem/internal/export"
	"github.com/Mekka-mouse/Vaultsystem/internal/forms"
	"github.com/Mekka-mouse/Vaultsystem/internal/middleware"
	"github.com/Mekka-mouse/Vaultsystem/internal/models"
	"github.com/Mekka-mouse/Vaultsystem/internal/reports"
	"github.com/Mekka-mouse/Vaultsystem/internal/rules"
	"github.com/Mekka-mouse/Vaultsystem/internal/store"
	log "github.com/sirupsen/logrus"
)

// Notices shown when a read fails and the last known state is served instead.
const (
	NoticeVehicles    = "Failed to load vehicles"
	NoticeMaintenance = "Failed to load maintenance history"
	NoticeCheckouts   = "Failed to load checkout history"
)

// Fleet is the snapshot store as seen by the handlers.
type Fleet interface {
	Current() *store.Snapshot
	RefreshAll(ctx context.Context) (*store.Snapshot, error)
}

// Records fetches the history collections on demand.
type Records interface {
	Checkouts(ctx context.Context) ([]models.Checkout, error)
	MaintenanceRecords(ctx context.Context) ([]models.Maintenance, error)
}

// Forms runs form submissions.
type Forms interface {
	Checkout(ctx context.Context, in forms.CheckoutInput) forms.Result
	Return(ctx context.Context, in forms.ReturnInput) forms.Result
	ScheduleMaintenance(ctx context.Context, in forms.MaintenanceInput) forms.Result
	CompleteMaintenance(ctx context.Context, id int) forms.Result
}

// Exports renders downloads.
type Exports interface {
	Export(ctx context.Context, kind export.Kind, format export.Format, requestID string) (*export.Artifact, error)
}

// DashboardHandler serves the dashboard views, forms, reports and exports.
type DashboardHandler struct {
	fleet           Fleet
	records         Records
	forms           Forms
	exports         Exports
	defaultLocation string
}

// NewDashboardHandler creates a new dashboard handler
func NewDashboardHandler(fleet Fleet, records Records, f Forms, exports Exports, defaultLocation string) *DashboardHandler {
	return &DashboardHandler{
		fleet:           fleet,
		records:         records,
		forms:           f,
		exports:         exports,
		defaultLocation: defaultLocation,
	}
}

// Register mounts every route on mux behind the auth middleware.
func (h *DashboardHandler) Register(mux *http.ServeMux, authMW *AuthGuard) {
	mux.HandleFunc("GET /health", h.Health)
	mux.Handle("GET /api/auth/me", authMW.Guard(models.ActionViewFleet, h.Profile))

	mux.Handle("GET /api/view/{view}", authMW.Guard(models.ActionViewFleet, h.View))
	mux.Handle("GET /api/options/{context}", authMW.Guard(models.ActionViewFleet, h.Options))
	mux.Handle("GET /api/reports/{report}", authMW.Guard(models.ActionViewFleet, h.Report))
	mux.Handle("GET /api/export/{format}/{kind}", authMW.Guard(models.ActionExportReports, h.Export))

	mux.Handle("POST /api/forms/checkout", authMW.Guard(models.ActionCheckoutVehicle, h.Checkout))
	mux.Handle("POST /api/forms/return", authMW.Guard(models.ActionReturnVehicle, h.Return))
	mux.Handle("POST /api/forms/maintenance", authMW.Guard(models.ActionScheduleMaintenance, h.ScheduleMaintenance))
	mux.Handle("POST /api/forms/maintenance/{id}/complete", authMW.Guard(models.ActionCompleteMaintenance, h.CompleteMaintenance))
}

// AuthGuard wraps handlers with authentication and a permission check.
type AuthGuard struct {
	mw *middleware.AuthMiddleware
}

// NewAuthGuard creates a guard over the auth middleware.
func NewAuthGuard(mw *middleware.AuthMiddleware) *AuthGuard {
	return &AuthGuard{mw: mw}
}

// Guard requires action for fn.
func (g *AuthGuard) Guard(action string, fn http.HandlerFunc) http.Handler {
	return g.mw.Authenticate(g.mw.RequirePermission(action)(fn))
}

// Health reports liveness
func (h *DashboardHandler) Health(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// snapshot returns the current snapshot, fetching one if none is held yet.
func (h *DashboardHandler) snapshot(ctx context.Context) (*store.Snapshot, string) {
	if snap := h.fleet.Current(); snap != nil {
		return snap, ""
	}
	snap, err := h.fleet.RefreshAll(ctx)
	if err != nil {
		return snap, NoticeVehicles
	}
	return snap, ""
}

type dashboardView struct {
	View   models.View       `json:"view"`
	Loads  []string          `json:"loads"`
	Cards  []rules.Card      `json:"cards"`
	Stats  models.FleetStats `json:"stats"`
	Notice string            `json:"notice,omitempty"`
}

type maintenanceRow struct {
	models.Maintenance
	CanComplete bool `json:"can_complete"`
}

type maintenanceView struct {
	View    models.View      `json:"view"`
	Loads   []string         `json:"loads"`
	Records []maintenanceRow `json:"records"`
	Notice  string           `json:"notice,omitempty"`
}

type reportsView struct {
	View    models.View    `json:"view"`
	Loads   []string       `json:"loads"`
	Reports []reports.Name `json:"reports"`
}

// View serves the payload of one dashboard tab. Read failures keep the last
// known state and add a notice.
func (h *DashboardHandler) View(w http.ResponseWriter, r *http.Request) {
	view, err := models.ParseView(r.PathValue("view"))
	if err != nil {
		writeError(w, http.StatusNotFound, err.Error())
		return
	}
	ctx := r.Context()

	switch view {
	case models.ViewDashboard:
		resp := dashboardView{View: view, Loads: view.Loads()}
		snap, err := h.fleet.RefreshAll(ctx)
		if err != nil {
			resp.Notice = NoticeVehicles
		}
		checkouts, err := h.records.Checkouts(ctx)
		if err != nil {
			log.WithError(err).Warn("Failed to load checkouts for dashboard")
			if resp.Notice == "" {
				resp.Notice = NoticeCheckouts
			}
		}
		var vehicles []models.Vehicle
		if snap != nil {
			vehicles = snap.Vehicles
			resp.Stats = snap.Stats
		}
		resp.Cards = rules.Cards(vehicles, checkouts, h.defaultLocation)
		writeJSON(w, http.StatusOK, resp)

	case models.ViewMaintenance:
		resp := maintenanceView{View: view, Loads: view.Loads(), Records: []maintenanceRow{}}
		records, err := h.records.MaintenanceRecords(ctx)
		if err != nil {
			log.WithError(err).Warn("Failed to load maintenance history")
			resp.Notice = NoticeMaintenance
		}
		for _, m := range records {
			m.Status = m.Status.Normalize()
			resp.Records = append(resp.Records, maintenanceRow{Maintenance: m, CanComplete: m.CanComplete()})
		}
		writeJSON(w, http.StatusOK, resp)

	default:
		writeJSON(w, http.StatusOK, reportsView{
			View:    view,
			Loads:   []string{},
			Reports: []reports.Name{reports.NameUtilization, reports.NameMaintenance, reports.NameEfficiency},
		})
	}
}

type optionsView struct {
	Context rules.Context  `json:"context"`
	Options []rules.Option `json:"options"`
	Notice  string         `json:"notice,omitempty"`
}

// Options lists the vehicles selectable in a form.
func (h *DashboardHandler) Options(w http.ResponseWriter, r *http.Request) {
	selCtx, err := rules.ParseContext(r.PathValue("context"))
	if err != nil {
		writeError(w, http.StatusNotFound, err.Error())
		return
	}
	snap, notice := h.snapshot(r.Context())
	var vehicles []models.Vehicle
	if snap != nil {
		vehicles = snap.Vehicles
	}
	writeJSON(w, http.StatusOK, optionsView{
		Context: selCtx,
		Options: rules.Options(vehicles, selCtx),
		Notice:  notice,
	})
}

// Report builds one of the on-demand reports.
func (h *DashboardHandler) Report(w http.ResponseWriter, r *http.Request) {
	name, err := reports.ParseName(r.PathValue("report"))
	if err != nil {
		writeError(w, http.StatusNotFound, err.Error())
		return
	}
	ctx := r.Context()

	switch name {
	case reports.NameUtilization:
		snap, notice := h.snapshot(ctx)
		if snap == nil {
			writeError(w, http.StatusBadGateway, notice)
			return
		}
		writeJSON(w, http.StatusOK, reports.BuildUtilization(snap.Vehicles))

	case reports.NameMaintenance:
		records, err := h.records.MaintenanceRecords(ctx)
		if err != nil {
			log.WithError(err).Error("Failed to load maintenance report")
			writeError(w, http.StatusBadGateway, "Error loading maintenance report.")
			return
		}
		writeJSON(w, http.StatusOK, reports.BuildMaintenance(records))

	case reports.NameEfficiency:
		checkouts, err := h.records.Checkouts(ctx)
		if err != nil {
			log.WithError(err).Error("Failed to load efficiency report")
			writeError(w, http.StatusBadGateway, "Error loading efficiency report.")
			return
		}
		snap, _ := h.snapshot(ctx)
		var vehicles []models.Vehicle
		if snap != nil {
			vehicles = snap.Vehicles
		}
		writeJSON(w, http.StatusOK, reports.BuildEfficiency(vehicles, checkouts))
	}
}

// Export streams a download.
func (h *DashboardHandler) Export(w http.ResponseWriter, r *http.Request) {
	format, err := export.ParseFormat(r.PathValue("format"))
	if err != nil {
		writeError(w, http.StatusNotFound, err.Error())
		return
	}
	kind, err := export.ParseKind(r.PathValue("kind"))
	if err != nil {
		writeError(w, http.StatusNotFound, err.Error())
		return
	}

	artifact, err := h.exports.Export(r.Context(), kind, format, middleware.GetRequestID(r.Context()))
	if err != nil {
		log.WithError(err).WithFields(log.Fields{"kind": kind, "format": format}).Error("Export failed")
		writeError(w, http.StatusBadGateway, "Error creating export. Please try again.")
		return
	}

	w.Header().Set("Content-Type", artifact.ContentType)
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", artifact.Filename))
	w.Header().Set("Content-Length", strconv.Itoa(len(artifact.Body)))
	w.WriteHeader(http.StatusOK)
	if _, err := w.Write(artifact.Body); err != nil {
		log.WithError(err).Warn("Failed to write export body")
	}
}

// Checkout handles the checkout form
func (h *DashboardHandler) Checkout(w http.ResponseWriter, r *http.Request) {
	var in forms.CheckoutInput
	if !decodeForm(w, r, forms.FormCheckout, &in) {
		return
	}
	writeResult(w, h.forms.Checkout(r.Context(), in))
}

// Return handles the return form
func (h *DashboardHandler) Return(w http.ResponseWriter, r *http.Request) {
	var in forms.ReturnInput
	if !decodeForm(w, r, forms.FormReturn, &in) {
		return
	}
	writeResult(w, h.forms.Return(r.Context(), in))
}

// ScheduleMaintenance handles the maintenance form
func (h *DashboardHandler) ScheduleMaintenance(w http.ResponseWriter, r *http.Request) {
	var in forms.MaintenanceInput
	if !decodeForm(w, r, forms.FormMaintenance, &in) {
		return
	}
	writeResult(w, h.forms.ScheduleMaintenance(r.Context(), in))
}

// CompleteMaintenance marks a maintenance record complete
func (h *DashboardHandler) CompleteMaintenance(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.Atoi(r.PathValue("id"))
	if err != nil {
		writeResult(w, forms.Result{
			Form:    forms.FormMaintenance,
			Level:   forms.LevelDanger,
			Message: forms.MsgMaintenanceAbsent,
			Failure: forms.FailureValidation,
		})
		return
	}
	writeResult(w, h.forms.CompleteMaintenance(r.Context(), id))
}

const maxFormBytes = 1 << 20

func decodeForm(w http.ResponseWriter, r *http.Request, form forms.Form, dst interface{}) bool {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxFormBytes))
	if err := dec.Decode(dst); err != nil {
		var maxErr *http.MaxBytesError
		msg := "Invalid JSON"
		if errors.As(err, &maxErr) {
			msg = "Request body too large"
		}
		writeJSON(w, http.StatusBadRequest, forms.Result{Form: form, Level: forms.LevelDanger, Message: msg, Failure: forms.FailureValidation})
		return false
	}
	return true
}

func writeResult(w http.ResponseWriter, result forms.Result) {
	status := http.StatusOK
	switch result.Failure {
	case forms.FailureValidation:
		status = http.StatusUnprocessableEntity
	case forms.FailureBackend:
		status = http.StatusBadGateway
	}
	writeJSON(w, status, result)
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.WithError(err).Warn("Failed to encode response")
	}
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}
