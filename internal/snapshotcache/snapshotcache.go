package snapshotcache

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/Mekka-mouse/Vaultsystem/internal/models"
	_ "modernc.org/sqlite" // SQLite driver
)

// SQLiteCache keeps the last successfully fetched vehicle list on disk.
type SQLiteCache struct {
	db *sql.DB
}

// Open opens (or creates) the cache at path. Use ":memory:" for a throwaway cache.
func Open(path string) (*SQLiteCache, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open snapshot cache: %w", err)
	}
	// a single connection keeps ":memory:" databases from splitting per connection
	db.SetMaxOpenConns(1)

	c := &SQLiteCache{db: db}
	if err := c.Init(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to initialize snapshot cache: %w", err)
	}
	return c, nil
}

// Init creates the necessary tables.
func (c *SQLiteCache) Init() error {
	schema := `
	CREATE TABLE IF NOT EXISTS vehicles (
		id INTEGER PRIMARY KEY,
		name TEXT NOT NULL,
		make TEXT NOT NULL,
		model TEXT NOT NULL,
		year INTEGER NOT NULL,
		license_plate TEXT NOT NULL,
		vin TEXT NOT NULL,
		current_mileage INTEGER NOT NULL,
		status TEXT NOT NULL,
		location TEXT NOT NULL,
		garage_level TEXT NOT NULL,
		access_level TEXT NOT NULL
	);

	CREATE TABLE IF NOT EXISTS snapshot_meta (
		id INTEGER PRIMARY KEY CHECK (id = 1),
		fetched_at TIMESTAMP NOT NULL
	);
	`
	_, err := c.db.Exec(schema)
	return err
}

// Save replaces the cached vehicle list within a single transaction.
func (c *SQLiteCache) Save(ctx context.Context, vehicles []models.Vehicle, fetchedAt time.Time) error {
	tx, err := c.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, `DELETE FROM vehicles`); err != nil {
		return fmt.Errorf("failed to clear cached vehicles: %w", err)
	}

	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO vehicles
		(id, name, make, model, year, license_plate, vin, current_mileage, status, location, garage_level, access_level)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`)
	if err != nil {
		return fmt.Errorf("failed to prepare statement: %w", err)
	}
	defer stmt.Close()

	for _, v := range vehicles {
		_, err := stmt.ExecContext(ctx,
			v.ID, v.Name, v.Make, v.Model, v.Year, v.LicensePlate, v.VIN,
			v.CurrentMileage, string(v.Status), v.Location, v.GarageLevel, string(v.AccessLevel),
		)
		if err != nil {
			return fmt.Errorf("failed to insert vehicle %d: %w", v.ID, err)
		}
	}

	_, err = tx.ExecContext(ctx,
		`INSERT OR REPLACE INTO snapshot_meta (id, fetched_at) VALUES (1, ?)`,
		fetchedAt.UTC().Format(time.RFC3339Nano),
	)
	if err != nil {
		return fmt.Errorf("failed to record fetch time: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	return nil
}

// Load returns the cached vehicles ordered by id and the time they were fetched.
// An empty cache yields no vehicles and a zero time.
func (c *SQLiteCache) Load(ctx context.Context) ([]models.Vehicle, time.Time, error) {
	var fetchedAt time.Time
	var raw string
	err := c.db.QueryRowContext(ctx, `SELECT fetched_at FROM snapshot_meta WHERE id = 1`).Scan(&raw)
	switch {
	case err == sql.ErrNoRows:
		return nil, time.Time{}, nil
	case err != nil:
		return nil, time.Time{}, fmt.Errorf("failed to read snapshot metadata: %w", err)
	}
	fetchedAt, _ = time.Parse(time.RFC3339Nano, raw)

	rows, err := c.db.QueryContext(ctx, `
		SELECT id, name, make, model, year, license_plate, vin, current_mileage, status, location, garage_level, access_level
		FROM vehicles
		ORDER BY id
	`)
	if err != nil {
		return nil, time.Time{}, err
	}
	defer rows.Close()

	vehicles := []models.Vehicle{}
	for rows.Next() {
		var v models.Vehicle
		var status, access string
		err := rows.Scan(
			&v.ID, &v.Name, &v.Make, &v.Model, &v.Year, &v.LicensePlate, &v.VIN,
			&v.CurrentMileage, &status, &v.Location, &v.GarageLevel, &access,
		)
		if err != nil {
			return nil, time.Time{}, err
		}
		v.Status = models.VehicleStatus(status)
		v.AccessLevel = models.AccessLevel(access)
		vehicles = append(vehicles, v)
	}

	return vehicles, fetchedAt, rows.Err()
}

func (c *SQLiteCache) Close() error {
	return c.db.Close()
}
