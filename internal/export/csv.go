package export

import (
	"bytes"
	"encoding/csv"
	"fmt"
	"strconv"
	"strings"

	"github.com/Mekka-mouse/Vaultsystem/internal/models"
)

func renderCSV(ds Dataset, kind Kind, opts Options) ([]byte, int) {
	var buf bytes.Buffer
	rows := 0
	ts := tables(ds, kind, opts)
	for i, t := range ts {
		if len(ts) > 1 {
			if i > 0 {
				buf.WriteString("\n")
			}
			buf.WriteString(t.title)
			buf.WriteString("\n")
		}
		writeQuotedRow(&buf, t.header)
		for _, row := range t.rows {
			fields := make([]string, len(row))
			for j, cell := range row {
				fields[j] = fmt.Sprint(cell)
			}
			writeQuotedRow(&buf, fields)
		}
		rows += len(t.rows)
	}
	return buf.Bytes(), rows
}

// writeQuotedRow writes one CSV line with every field quoted. encoding/csv
// only quotes fields that need it, so quoting is done here.
func writeQuotedRow(buf *bytes.Buffer, fields []string) {
	for i, f := range fields {
		if i > 0 {
			buf.WriteByte(',')
		}
		buf.WriteByte('"')
		buf.WriteString(strings.ReplaceAll(f, `"`, `""`))
		buf.WriteByte('"')
	}
	buf.WriteByte('\n')
}

// ParseCSV reads back a single-table CSV export, header row included.
func ParseCSV(data []byte) ([][]string, error) {
	r := csv.NewReader(bytes.NewReader(data))
	r.FieldsPerRecord = -1
	records, err := r.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("parse csv: %w", err)
	}
	return records, nil
}

// ParseVehicles rebuilds vehicles from a vehicles CSV export. Only the
// exported columns are populated.
func ParseVehicles(data []byte) ([]models.Vehicle, error) {
	records, err := ParseCSV(data)
	if err != nil {
		return nil, err
	}
	if len(records) == 0 {
		return nil, nil
	}

	col := make(map[string]int, len(records[0]))
	for i, h := range records[0] {
		col[h] = i
	}
	get := func(rec []string, name string) string {
		if i, ok := col[name]; ok && i < len(rec) {
			return rec[i]
		}
		return ""
	}
	atoi := func(rec []string, name string) (int, error) {
		s := get(rec, name)
		if s == "" {
			return 0, nil
		}
		n, err := strconv.Atoi(s)
		if err != nil {
			return 0, fmt.Errorf("column %q: %w", name, err)
		}
		return n, nil
	}

	vehicles := make([]models.Vehicle, 0, len(records)-1)
	for line, rec := range records[1:] {
		year, err := atoi(rec, "Year")
		if err != nil {
			return nil, fmt.Errorf("row %d: %w", line+2, err)
		}
		mileage, err := atoi(rec, "Current Mileage")
		if err != nil {
			return nil, fmt.Errorf("row %d: %w", line+2, err)
		}
		vehicles = append(vehicles, models.Vehicle{
			Name:           get(rec, "Name"),
			Make:           get(rec, "Make"),
			Model:          get(rec, "Model"),
			Year:           year,
			LicensePlate:   get(rec, "License Plate"),
			VIN:            get(rec, "VIN"),
			CurrentMileage: mileage,
			Status:         models.VehicleStatus(get(rec, "Status")),
			AccessLevel:    models.AccessLevel(get(rec, "Access Level")),
			Location:       get(rec, "Location"),
			GarageLevel:    get(rec, "Garage Level"),
		})
	}
	return vehicles, nil
}
