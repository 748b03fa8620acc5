package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"text/tabwriter"
	"time"

	"github.com/Mekka-mouse/Vaultsystem/internal/api"
	"github.com/Mekka-mouse/Vaultsystem/internal/auth"
	"github.com/Mekka-mouse/Vaultsystem/internal/config"
	"github.com/Mekka-mouse/Vaultsystem/internal/db"
	"github.com/Mekka-mouse/Vaultsystem/internal/export"
	"github.com/Mekka-mouse/Vaultsystem/internal/forms"
	"github.com/Mekka-mouse/Vaultsystem/internal/models"
	"github.com/Mekka-mouse/Vaultsystem/internal/reports"
	"github.com/Mekka-mouse/Vaultsystem/internal/rules"
	"github.com/Mekka-mouse/Vaultsystem/internal/store"
	log "github.com/sirupsen/logrus"
)

const usage = `usage: fleetctl <command> [flags]

commands:
  vehicles                      list vehicles with status, driver and location
  stats                         show the fleet status breakdown
  checkout -vehicle N -driver NAME -purpose TEXT [-return T] [-mileage N] [-pin PIN]
  return -vehicle N -mileage N -fuel N -stocked Yes|No [-missing a,b] [-notes TEXT] [-garage L]
  maintenance -vehicle N -type TYPE -date YYYY-MM-DD [-description TEXT] [-set-status]
  complete -id N                mark a maintenance record complete
  report utilization|maintenance|efficiency
  export -format csv|json|xlsx -kind KIND [-out DIR]
  exports [-limit N]            list recent exports from the audit log
  token -subject NAME -role ROLE
`

var errUsage = errors.New("invalid usage")

func main() {
	cfg := config.Load()
	cfg.Log.ConfigureLogging()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg, os.Args[1:], os.Stdout); err != nil {
		if errors.Is(err, errUsage) {
			fmt.Fprint(os.Stderr, usage)
			os.Exit(2)
		}
		log.WithError(err).Error("Command failed")
		os.Exit(1)
	}
}

// cli holds the collaborators shared by every subcommand.
type cli struct {
	cfg      config.Config
	auth     *auth.Service
	client   *api.Client
	fleet    *store.Store
	forms    *forms.Controller
	exporter *export.Exporter
	out      io.Writer
}

func newCLI(cfg config.Config, out io.Writer) (*cli, error) {
	authService, err := auth.NewService(cfg.Auth)
	if err != nil {
		return nil, err
	}
	opts := []api.Option{api.WithTimeout(cfg.API.Timeout)}
	if ts := authService.ServiceToken(models.Role(cfg.Auth.ServiceTokenRole)); ts != nil {
		opts = append(opts, api.WithTokenSource(ts))
	}
	client := api.NewClient(cfg.API.BaseURL, opts...)
	fleet := store.New(client, nil)

	return &cli{
		cfg:      cfg,
		auth:     authService,
		client:   client,
		fleet:    fleet,
		forms:    forms.NewController(client, fleet, authService, nil),
		exporter: export.NewExporter(client, fleet, export.Options{DateLayout: cfg.Export.DateLayout}),
		out:      out,
	}, nil
}

func run(ctx context.Context, cfg config.Config, args []string, out io.Writer) error {
	if len(args) == 0 {
		return errUsage
	}
	c, err := newCLI(cfg, out)
	if err != nil {
		return err
	}

	cmd, rest := args[0], args[1:]
	switch cmd {
	case "vehicles":
		return c.vehicles(ctx)
	case "stats":
		return c.stats(ctx)
	case "checkout":
		return c.checkout(ctx, rest)
	case "return":
		return c.returnVehicle(ctx, rest)
	case "maintenance":
		return c.maintenance(ctx, rest)
	case "complete":
		return c.complete(ctx, rest)
	case "report":
		return c.report(ctx, rest)
	case "export":
		return c.export(ctx, rest)
	case "exports":
		return c.exports(ctx, rest)
	case "token":
		return c.token(rest)
	default:
		return fmt.Errorf("%w: unknown command %q", errUsage, cmd)
	}
}

func (c *cli) vehicles(ctx context.Context) error {
	snap, err := c.fleet.Refresh(ctx)
	if err != nil {
		return err
	}
	checkouts, err := c.client.Checkouts(ctx)
	if err != nil {
		log.WithError(err).Warn("Failed to load checkouts, drivers not shown")
	}

	tw := tabwriter.NewWriter(c.out, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tNAME\tPLATE\tSTATUS\tMILEAGE\tDRIVER\tLOCATION")
	for _, card := range rules.Cards(snap.Vehicles, checkouts, c.cfg.Dashboard.DefaultLocation) {
		fmt.Fprintf(tw, "%d\t%s\t%s\t%s\t%s\t%s\t%s\n",
			card.VehicleID, card.Name, card.LicensePlate, card.StatusLabel,
			card.Mileage, card.Driver, card.Location)
	}
	return tw.Flush()
}

func (c *cli) stats(ctx context.Context) error {
	snap, err := c.fleet.RefreshAll(ctx)
	if err != nil {
		return err
	}
	tw := tabwriter.NewWriter(c.out, 0, 4, 2, ' ', 0)
	for _, m := range reports.UtilizationFromStats(snap.Stats).Metrics() {
		fmt.Fprintf(tw, "%s\t%s\n", m[0], m[1])
	}
	return tw.Flush()
}

func (c *cli) checkout(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("checkout", flag.ContinueOnError)
	fs.SetOutput(io.Discard)
	var in forms.CheckoutInput
	mileage := fs.Int("mileage", -1, "checkout mileage (default: current mileage)")
	fs.IntVar(&in.VehicleID, "vehicle", 0, "vehicle id")
	fs.StringVar(&in.DriverName, "driver", "", "driver name")
	fs.StringVar(&in.Purpose, "purpose", "", "purpose or destination")
	fs.StringVar(&in.ExpectedReturnDate, "return", "", "expected return, 2006-01-02T15:04")
	fs.StringVar(&in.ManagementPIN, "pin", "", "management PIN")
	if err := fs.Parse(args); err != nil {
		return fmt.Errorf("%w: %v", errUsage, err)
	}
	if *mileage >= 0 {
		in.CheckoutMileage = mileage
	}
	if err := c.prime(ctx); err != nil {
		return err
	}
	return c.printResult(c.forms.Checkout(ctx, in))
}

func (c *cli) returnVehicle(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("return", flag.ContinueOnError)
	fs.SetOutput(io.Discard)
	var in forms.ReturnInput
	var missing string
	fs.IntVar(&in.VehicleID, "vehicle", 0, "vehicle id")
	fs.IntVar(&in.ReturnMileage, "mileage", 0, "return mileage")
	fs.IntVar(&in.FuelLevel, "fuel", 0, "fuel level percent")
	fs.StringVar(&in.SuppliesStocked, "stocked", "", "supplies stocked, Yes or No")
	fs.StringVar(&missing, "missing", "", "comma separated missing supplies")
	fs.StringVar(&in.ConditionNotes, "notes", "", "condition notes")
	fs.StringVar(&in.GarageLevel, "garage", "", "garage level")
	if err := fs.Parse(args); err != nil {
		return fmt.Errorf("%w: %v", errUsage, err)
	}
	in.MissingSupplies = splitList(missing)
	if err := c.prime(ctx); err != nil {
		return err
	}
	return c.printResult(c.forms.Return(ctx, in))
}

func (c *cli) maintenance(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("maintenance", flag.ContinueOnError)
	fs.SetOutput(io.Discard)
	var in forms.MaintenanceInput
	fs.IntVar(&in.VehicleID, "vehicle", 0, "vehicle id")
	fs.StringVar(&in.MaintenanceType, "type", "", "maintenance type")
	fs.StringVar(&in.Description, "description", "", "description")
	fs.StringVar(&in.ScheduledDate, "date", "", "scheduled date")
	fs.BoolVar(&in.SetMaintenanceStatus, "set-status", false, "move the vehicle into maintenance")
	if err := fs.Parse(args); err != nil {
		return fmt.Errorf("%w: %v", errUsage, err)
	}
	return c.printResult(c.forms.ScheduleMaintenance(ctx, in))
}

func (c *cli) complete(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("complete", flag.ContinueOnError)
	fs.SetOutput(io.Discard)
	id := fs.Int("id", 0, "maintenance record id")
	if err := fs.Parse(args); err != nil {
		return fmt.Errorf("%w: %v", errUsage, err)
	}
	if *id <= 0 {
		return fmt.Errorf("%w: -id is required", errUsage)
	}
	return c.printResult(c.forms.CompleteMaintenance(ctx, *id))
}

func (c *cli) report(ctx context.Context, args []string) error {
	if len(args) != 1 {
		return fmt.Errorf("%w: report needs a name", errUsage)
	}
	name, err := reports.ParseName(args[0])
	if err != nil {
		return fmt.Errorf("%w: %v", errUsage, err)
	}

	var v interface{}
	switch name {
	case reports.NameUtilization:
		snap, err := c.fleet.Refresh(ctx)
		if err != nil {
			return err
		}
		v = reports.BuildUtilization(snap.Vehicles)
	case reports.NameMaintenance:
		records, err := c.client.MaintenanceRecords(ctx)
		if err != nil {
			return err
		}
		v = reports.BuildMaintenance(records)
	case reports.NameEfficiency:
		checkouts, err := c.client.Checkouts(ctx)
		if err != nil {
			return err
		}
		var vehicles []models.Vehicle
		if snap, err := c.fleet.Refresh(ctx); err == nil {
			vehicles = snap.Vehicles
		}
		v = reports.BuildEfficiency(vehicles, checkouts)
	}

	enc := json.NewEncoder(c.out)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func (c *cli) export(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("export", flag.ContinueOnError)
	fs.SetOutput(io.Discard)
	formatName := fs.String("format", "csv", "csv, json or xlsx")
	kindName := fs.String("kind", "complete", "vehicles, checkout-history, maintenance, utilization or complete")
	dir := fs.String("out", c.cfg.Export.Dir, "output directory")
	if err := fs.Parse(args); err != nil {
		return fmt.Errorf("%w: %v", errUsage, err)
	}
	format, err := export.ParseFormat(*formatName)
	if err != nil {
		return fmt.Errorf("%w: %v", errUsage, err)
	}
	kind, err := export.ParseKind(*kindName)
	if err != nil {
		return fmt.Errorf("%w: %v", errUsage, err)
	}

	exporter := c.exporter
	if c.cfg.Mongo.URI != "" {
		audit, closeAudit, err := c.auditLog(ctx)
		if err != nil {
			log.WithError(err).Warn("MongoDB unavailable, export not audited")
		} else {
			defer closeAudit()
			exporter = exporter.WithRecorder(audit)
		}
	}

	path, err := exporter.ExportTo(ctx, kind, format, export.FileSink{Dir: *dir})
	if err != nil {
		return err
	}
	fmt.Fprintln(c.out, path)
	return nil
}

func (c *cli) exports(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("exports", flag.ContinueOnError)
	fs.SetOutput(io.Discard)
	limit := fs.Int64("limit", 20, "number of entries")
	if err := fs.Parse(args); err != nil {
		return fmt.Errorf("%w: %v", errUsage, err)
	}
	if c.cfg.Mongo.URI == "" {
		return errors.New("MONGO_URI is not set")
	}
	audit, closeAudit, err := c.auditLog(ctx)
	if err != nil {
		return err
	}
	defer closeAudit()

	records, err := db.RecentExports(ctx, audit, *limit)
	if err != nil {
		return err
	}
	tw := tabwriter.NewWriter(c.out, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "CREATED\tKIND\tFORMAT\tROWS\tFILENAME\tREQUEST")
	for _, r := range records {
		fmt.Fprintf(tw, "%s\t%s\t%s\t%d\t%s\t%s\n",
			r.CreatedAt.Format(time.RFC3339), r.Kind, r.Format, r.Rows, r.Filename, r.RequestID)
	}
	return tw.Flush()
}

// auditLog connects to the export audit collection.
func (c *cli) auditLog(ctx context.Context) (*db.MongoCollection, func(), error) {
	client, err := db.ConnectMongo(ctx, c.cfg.Mongo.URI)
	if err != nil {
		return nil, nil, err
	}
	closeFn := func() {
		if err := client.Disconnect(context.Background()); err != nil {
			log.WithError(err).Warn("Failed to disconnect from MongoDB")
		}
	}
	return db.NewExportCollection(client, c.cfg.Mongo.Database), closeFn, nil
}

func (c *cli) token(args []string) error {
	fs := flag.NewFlagSet("token", flag.ContinueOnError)
	fs.SetOutput(io.Discard)
	subject := fs.String("subject", "", "token subject")
	role := fs.String("role", string(models.RoleOperator), "admin, manager, operator or viewer")
	if err := fs.Parse(args); err != nil {
		return fmt.Errorf("%w: %v", errUsage, err)
	}
	if *subject == "" {
		return fmt.Errorf("%w: -subject is required", errUsage)
	}
	token, err := c.auth.GenerateToken(*subject, models.Role(*role))
	if err != nil {
		return err
	}
	fmt.Fprintln(c.out, token)
	return nil
}

// prime loads the snapshot the form rules read from.
func (c *cli) prime(ctx context.Context) error {
	if _, err := c.fleet.Refresh(ctx); err != nil {
		return fmt.Errorf("failed to load vehicles: %w", err)
	}
	return nil
}

func (c *cli) printResult(result forms.Result) error {
	fmt.Fprintln(c.out, result.Message)
	if !result.OK {
		if result.Err != nil {
			return result.Err
		}
		return errors.New(result.Message)
	}
	return nil
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
