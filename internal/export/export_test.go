package export

import (
	"encoding/json"
	"strings"
	"testing"
	"time"

	"github.com/Mekka-mouse/Vaultsystem/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func intPtr(i int) *int { return &i }

func date(s string) models.Timestamp {
	ts, err := models.ParseTimestamp(s)
	if err != nil {
		panic(err)
	}
	return ts
}

func sampleDataset() Dataset {
	vehicles := []models.Vehicle{
		{ID: 1, Name: "Van", Make: "Ford", Model: "Transit", Year: 2022, LicensePlate: "V-1", VIN: "1FT", CurrentMileage: 45210, Status: models.StatusAvailable, AccessLevel: models.AccessStandard, Location: "150 Peabody Place", GarageLevel: "P2"},
		{ID: 2, Name: `The "Boss" Car`, Make: "BMW", Model: "7", Year: 2023, LicensePlate: "X-9", VIN: "WBA", CurrentMileage: 1200, Status: models.StatusCheckedOut, AccessLevel: models.AccessExecutive},
	}
	return Dataset{
		Vehicles: vehicles,
		Stats:    models.StatsFromVehicles(vehicles),
		Checkouts: []models.Checkout{
			{ID: 1, VehicleID: 1, VehicleName: "Van", DriverName: "A", Purpose: "Errand", CheckoutDate: date("2024-05-01T09:00:00"), ReturnDate: date("2024-05-01T17:00:00"), CheckoutMileage: 100, ReturnMileage: intPtr(150), IsReturned: true},
			{ID: 2, VehicleID: 2, DriverName: "B", Purpose: "Meeting, downtown", CheckoutDate: date("2024-05-02T09:00:00"), CheckoutMileage: 1200},
		},
		Maintenance: []models.Maintenance{
			{ID: 1, VehicleID: 1, VehicleName: "Van", MaintenanceType: "Oil Change", Description: "5W-30", ScheduledDate: date("2024-05-10"), Cost: 49.5, Status: models.MaintenanceScheduled},
			{ID: 2, VehicleID: 2, VehicleName: "Car", MaintenanceType: "Tires", ScheduledDate: date("2024-04-10"), CompletedDate: date("2024-04-11"), Cost: 800, Status: models.MaintenanceCompleted},
		},
		GeneratedAt: time.Date(2024, 5, 3, 12, 0, 0, 0, time.UTC),
	}
}

func TestFilename(t *testing.T) {
	at := time.Date(2024, 5, 3, 12, 0, 0, 0, time.UTC)
	tests := []struct {
		kind     Kind
		format   Format
		expected string
	}{
		{KindVehicles, FormatCSV, "vehicles_2024-05-03.csv"},
		{KindVehicles, FormatXLSX, "vehicles_2024-05-03.xlsx"},
		{KindCheckoutHistory, FormatJSON, "checkout_history_2024-05-03.json"},
		{KindMaintenance, FormatCSV, "maintenance_2024-05-03.csv"},
		{KindUtilization, FormatCSV, "utilization_report_2024-05-03.csv"},
		{KindComplete, FormatCSV, "complete_report_2024-05-03.csv"},
		{KindComplete, FormatJSON, "complete_dataset_2024-05-03.json"},
		{KindComplete, FormatXLSX, "VAULT_Complete_Workbook_2024-05-03.xlsx"},
	}
	for _, tt := range tests {
		t.Run(string(tt.kind)+"."+string(tt.format), func(t *testing.T) {
			assert.Equal(t, tt.expected, Filename(tt.kind, tt.format, at))
		})
	}
}

func TestParseKindAndFormat(t *testing.T) {
	_, err := ParseKind("trips")
	assert.ErrorIs(t, err, ErrUnknownKind)
	_, err = ParseFormat("pdf")
	assert.ErrorIs(t, err, ErrUnknownFormat)

	kind, err := ParseKind("checkout-history")
	require.NoError(t, err)
	assert.Equal(t, KindCheckoutHistory, kind)
}

func TestRenderVehiclesCSV(t *testing.T) {
	artifact, err := Render(sampleDataset(), KindVehicles, FormatCSV, Options{})
	require.NoError(t, err)

	assert.Equal(t, "vehicles_2024-05-03.csv", artifact.Filename)
	assert.Equal(t, "text/csv; charset=utf-8", artifact.ContentType)
	assert.Equal(t, 2, artifact.Rows)

	lines := strings.Split(strings.TrimSuffix(string(artifact.Body), "\n"), "\n")
	require.Len(t, lines, 3)
	assert.Equal(t, `"Name","Make","Model","Year","License Plate","VIN","Current Mileage","Status","Access Level","Location","Garage Level"`, lines[0])
	assert.Equal(t, `"Van","Ford","Transit","2022","V-1","1FT","45210","available","standard","150 Peabody Place","P2"`, lines[1])
	assert.Contains(t, lines[2], `"The ""Boss"" Car"`)
}

func TestVehicleCSVRoundTrip(t *testing.T) {
	ds := sampleDataset()
	artifact, err := Render(ds, KindVehicles, FormatCSV, Options{})
	require.NoError(t, err)

	parsed, err := ParseVehicles(artifact.Body)
	require.NoError(t, err)
	require.Len(t, parsed, len(ds.Vehicles))

	for i, v := range ds.Vehicles {
		v.ID = 0
		assert.Equal(t, v, parsed[i])
	}
}

func TestRenderCheckoutCSV(t *testing.T) {
	artifact, err := Render(sampleDataset(), KindCheckoutHistory, FormatCSV, Options{})
	require.NoError(t, err)

	records, err := ParseCSV(artifact.Body)
	require.NoError(t, err)
	require.Len(t, records, 3)

	returned := records[1]
	assert.Equal(t, "5/1/2024", returned[3])
	assert.Equal(t, "5/1/2024", returned[4])
	assert.Equal(t, "150", returned[6])
	assert.Equal(t, "50", returned[7])
	assert.Equal(t, "Returned", returned[12])

	active := records[2]
	assert.Equal(t, "Unknown", active[0])
	assert.Equal(t, "Meeting, downtown", active[2])
	assert.Equal(t, "Not returned", active[4])
	assert.Equal(t, "", active[6])
	assert.Equal(t, "Checked Out", active[12])
}

func TestRenderMaintenanceCSVUsesDateLayoutAndCurrency(t *testing.T) {
	artifact, err := Render(sampleDataset(), KindMaintenance, FormatCSV, Options{DateLayout: "2006-01-02"})
	require.NoError(t, err)

	records, err := ParseCSV(artifact.Body)
	require.NoError(t, err)
	require.Len(t, records, 3)
	assert.Equal(t, "2024-05-10", records[1][3])
	assert.Equal(t, "$49.50", records[1][6])
	assert.Equal(t, "", records[1][5])
	assert.Equal(t, "2024-04-11", records[2][5])
	assert.Equal(t, "$800.00", records[2][6])
}

func TestRenderUtilizationCSV(t *testing.T) {
	artifact, err := Render(sampleDataset(), KindUtilization, FormatCSV, Options{})
	require.NoError(t, err)

	records, err := ParseCSV(artifact.Body)
	require.NoError(t, err)
	assert.Equal(t, []string{"Metric", "Value"}, records[0])
	assert.Contains(t, records, []string{"Total Vehicles", "2"})
	assert.Contains(t, records, []string{"Utilization Rate (%)", "50.0"})
	assert.Contains(t, records, []string{"Availability Rate (%)", "50.0"})
}

func TestRenderCompleteCSVSections(t *testing.T) {
	artifact, err := Render(sampleDataset(), KindComplete, FormatCSV, Options{})
	require.NoError(t, err)

	body := string(artifact.Body)
	assert.True(t, strings.HasPrefix(body, "VEHICLES\n"))
	for _, section := range []string{"\n\nCHECKOUT HISTORY\n", "\n\nMAINTENANCE\n", "\n\nUTILIZATION\n"} {
		assert.Contains(t, body, section)
	}
	assert.Equal(t, 2+2+2+7, artifact.Rows)
}

func TestRenderJSON(t *testing.T) {
	t.Run("vehicles", func(t *testing.T) {
		artifact, err := Render(sampleDataset(), KindVehicles, FormatJSON, Options{})
		require.NoError(t, err)
		assert.Contains(t, string(artifact.Body), "\n  \"vehicles\": [")

		var doc map[string][]models.Vehicle
		require.NoError(t, json.Unmarshal(artifact.Body, &doc))
		assert.Len(t, doc["vehicles"], 2)
	})

	t.Run("empty maintenance renders an empty list", func(t *testing.T) {
		artifact, err := Render(Dataset{}, KindMaintenance, FormatJSON, Options{})
		require.NoError(t, err)
		assert.JSONEq(t, `{"maintenance": []}`, string(artifact.Body))
	})

	t.Run("utilization", func(t *testing.T) {
		artifact, err := Render(sampleDataset(), KindUtilization, FormatJSON, Options{})
		require.NoError(t, err)

		var doc struct {
			Report struct {
				Timestamp       time.Time        `json:"timestamp"`
				TotalVehicles   int              `json:"total_vehicles"`
				UtilizationRate float64          `json:"utilization_rate"`
				Vehicles        []models.Vehicle `json:"vehicles"`
			} `json:"utilization_report"`
		}
		require.NoError(t, json.Unmarshal(artifact.Body, &doc))
		assert.Equal(t, 2, doc.Report.TotalVehicles)
		assert.Equal(t, 50.0, doc.Report.UtilizationRate)
		assert.Len(t, doc.Report.Vehicles, 2)
	})

	t.Run("complete", func(t *testing.T) {
		artifact, err := Render(sampleDataset(), KindComplete, FormatJSON, Options{})
		require.NoError(t, err)

		var doc map[string]json.RawMessage
		require.NoError(t, json.Unmarshal(artifact.Body, &doc))
		for _, key := range []string{"export_timestamp", "vehicles", "checkout_history", "maintenance", "fleet_stats"} {
			assert.Contains(t, doc, key)
		}
		var stats models.FleetStats
		require.NoError(t, json.Unmarshal(doc["fleet_stats"], &stats))
		assert.Equal(t, 2, stats.TotalVehicles)
		assert.Equal(t, "complete_dataset_2024-05-03.json", artifact.Filename)
	})
}

func TestRenderXLSX(t *testing.T) {
	t.Run("complete workbook has four sheets", func(t *testing.T) {
		artifact, err := Render(sampleDataset(), KindComplete, FormatXLSX, Options{})
		require.NoError(t, err)

		sheets, err := SheetNames(artifact.Body)
		require.NoError(t, err)
		assert.Equal(t, []string{"Vehicle Inventory", "Checkout History", "Maintenance Records", "Fleet Utilization"}, sheets)

		rows, err := SheetRows(artifact.Body, "Vehicle Inventory")
		require.NoError(t, err)
		require.Len(t, rows, 3)
		assert.Equal(t, "Name", rows[0][0])
		assert.Equal(t, "Van", rows[1][0])
	})

	t.Run("single sheet", func(t *testing.T) {
		artifact, err := Render(sampleDataset(), KindMaintenance, FormatXLSX, Options{})
		require.NoError(t, err)
		assert.Equal(t, "maintenance_2024-05-03.xlsx", artifact.Filename)

		sheets, err := SheetNames(artifact.Body)
		require.NoError(t, err)
		assert.Equal(t, []string{"Maintenance"}, sheets)
	})
}

func TestRenderUnknownFormat(t *testing.T) {
	_, err := Render(sampleDataset(), KindVehicles, Format("pdf"), Options{})
	assert.ErrorIs(t, err, ErrUnknownFormat)

	_, err = Render(sampleDataset(), Kind("trips"), FormatCSV, Options{})
	assert.ErrorIs(t, err, ErrUnknownKind)
}
