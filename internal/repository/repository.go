package repository

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/septivank/smart-meter-api/internal/db"
)

// Sentinel errors surfaced to callers so the API layer can map them to
// distinct status codes.
var (
	ErrMeterNotFound    = errors.New("meter not found or inactive")
	ErrDuplicateReading = errors.New("duplicate reading for this meter and timestamp")
	ErrDataIntegrity    = errors.New("data integrity error")
)

const (
	minReadingsLimit = 1
	maxReadingsLimit = 1000
)

// ReadingsQuery holds the optional filters for a reading-history lookup.
// Date bounds are inclusive.
type ReadingsQuery struct {
	Limit     int
	StartDate *time.Time
	EndDate   *time.Time
}

// Summary holds store-level counts for the stats endpoint
type Summary struct {
	PostgresVersion string `json:"postgres_version"`
	Customers       int64  `json:"customers"`
	Meters          int64  `json:"meters"`
	Readings        int64  `json:"readings"`
}

// Repository handles database operations
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository creates a new repository
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

// Ping verifies database connectivity
func (r *Repository) Ping(ctx context.Context) error {
	return r.pool.Ping(ctx)
}

// ListCustomers returns all customers ordered by display name
func (r *Repository) ListCustomers(ctx context.Context) ([]db.Customer, error) {
	query := `
		SELECT customer_id, account_number, customer_name, service_address, utility_type, rate_class
		FROM customers
		ORDER BY customer_name
	`

	rows, err := r.pool.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to query customers: %w", err)
	}
	defer rows.Close()

	var customers []db.Customer
	for rows.Next() {
		var c db.Customer
		if err := rows.Scan(&c.CustomerID, &c.AccountNumber, &c.CustomerName, &c.ServiceAddress, &c.UtilityType, &c.RateClass); err != nil {
			return nil, fmt.Errorf("failed to scan customer: %w", err)
		}
		customers = append(customers, c)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows iteration error: %w", err)
	}

	return customers, nil
}

// ListMeters returns all meters joined with the owning customer's name,
// ordered by meter id
func (r *Repository) ListMeters(ctx context.Context) ([]db.Meter, error) {
	query := `
		SELECT m.meter_id, m.customer_id, m.meter_type, m.manufacturer, m.model,
		       m.install_date, m.last_reading_date, m.status, c.customer_name
		FROM meters m
		JOIN customers c ON m.customer_id = c.customer_id
		ORDER BY m.meter_id
	`

	rows, err := r.pool.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to query meters: %w", err)
	}
	defer rows.Close()

	var meters []db.Meter
	for rows.Next() {
		var m db.Meter
		if err := rows.Scan(&m.MeterID, &m.CustomerID, &m.MeterType, &m.Manufacturer, &m.Model,
			&m.InstallDate, &m.LastReadingDate, &m.Status, &m.CustomerName); err != nil {
			return nil, fmt.Errorf("failed to scan meter: %w", err)
		}
		meters = append(meters, m)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows iteration error: %w", err)
	}

	return meters, nil
}

// GetMeter returns a single meter regardless of status
func (r *Repository) GetMeter(ctx context.Context, meterID string) (*db.Meter, error) {
	return r.getMeter(ctx, meterID, false)
}

// GetActiveMeter returns a single meter with status = 'active' as part of the
// lookup predicate. A missing and an inactive meter are indistinguishable to
// the caller, both yield ErrMeterNotFound.
func (r *Repository) GetActiveMeter(ctx context.Context, meterID string) (*db.Meter, error) {
	return r.getMeter(ctx, meterID, true)
}

func (r *Repository) getMeter(ctx context.Context, meterID string, activeOnly bool) (*db.Meter, error) {
	query := `
		SELECT meter_id, customer_id, meter_type, manufacturer, model,
		       install_date, last_reading_date, status
		FROM meters
		WHERE meter_id = $1
	`
	if activeOnly {
		query += ` AND status = 'active'`
	}

	var m db.Meter
	err := r.pool.QueryRow(ctx, query, meterID).Scan(&m.MeterID, &m.CustomerID, &m.MeterType,
		&m.Manufacturer, &m.Model, &m.InstallDate, &m.LastReadingDate, &m.Status)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrMeterNotFound
		}
		return nil, fmt.Errorf("failed to query meter: %w", err)
	}

	return &m, nil
}

// ListReadings returns the reading history for one meter, newest first.
// The limit is clamped to [1, 1000] regardless of caller input. Meter
// existence is the caller's concern (GetMeter), not checked here.
func (r *Repository) ListReadings(ctx context.Context, meterID string, opts ReadingsQuery) ([]db.Reading, error) {
	var sb strings.Builder
	sb.WriteString(`
		SELECT reading_id, meter_id, customer_id, reading_value,
		       reading_date, reading_type, quality_code,
		       temperature, voltage, signal_strength, created_at
		FROM meter_readings
		WHERE meter_id = $1
	`)
	args := []interface{}{meterID}

	if opts.StartDate != nil {
		args = append(args, *opts.StartDate)
		fmt.Fprintf(&sb, " AND reading_date >= $%d", len(args))
	}
	if opts.EndDate != nil {
		args = append(args, *opts.EndDate)
		fmt.Fprintf(&sb, " AND reading_date <= $%d", len(args))
	}

	args = append(args, ClampLimit(opts.Limit))
	fmt.Fprintf(&sb, " ORDER BY reading_date DESC LIMIT $%d", len(args))

	rows, err := r.pool.Query(ctx, sb.String(), args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query readings: %w", err)
	}
	defer rows.Close()

	var readings []db.Reading
	for rows.Next() {
		var rd db.Reading
		if err := rows.Scan(&rd.ReadingID, &rd.MeterID, &rd.CustomerID, &rd.ReadingValue,
			&rd.ReadingDate, &rd.ReadingType, &rd.QualityCode,
			&rd.Temperature, &rd.Voltage, &rd.SignalStrength, &rd.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan reading: %w", err)
		}
		readings = append(readings, rd)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows iteration error: %w", err)
	}

	return readings, nil
}

// RecordReading inserts the reading and updates the owning meter's
// last_reading_date in one transaction. Either both writes are visible or
// neither is. The assigned reading_id and created_at are filled in on the
// passed reading.
func (r *Repository) RecordReading(ctx context.Context, reading *db.Reading) (*db.Reading, error) {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	insertQuery := `
		INSERT INTO meter_readings (
			meter_id, customer_id, reading_value, reading_date,
			reading_type, quality_code, temperature, voltage, signal_strength
		)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		RETURNING reading_id, created_at
	`

	err = tx.QueryRow(ctx, insertQuery,
		reading.MeterID,
		reading.CustomerID,
		reading.ReadingValue,
		reading.ReadingDate,
		reading.ReadingType,
		reading.QualityCode,
		reading.Temperature,
		reading.Voltage,
		reading.SignalStrength,
	).Scan(&reading.ReadingID, &reading.CreatedAt)
	if err != nil {
		return nil, mapIntegrityError(err)
	}

	// The update is unconditional: an out-of-order backfill moves
	// last_reading_date backwards, matching the established behavior.
	updateQuery := `
		UPDATE meters
		SET last_reading_date = $1
		WHERE meter_id = $2
	`
	if _, err := tx.Exec(ctx, updateQuery, reading.ReadingDate, reading.MeterID); err != nil {
		return nil, fmt.Errorf("failed to update meter last_reading_date: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("failed to commit transaction: %w", err)
	}

	return reading, nil
}

// Summary returns row counts and the server version
func (r *Repository) Summary(ctx context.Context) (*Summary, error) {
	var s Summary
	if err := r.pool.QueryRow(ctx, `SELECT version()`).Scan(&s.PostgresVersion); err != nil {
		return nil, fmt.Errorf("failed to query server version: %w", err)
	}

	counts := []struct {
		query string
		dest  *int64
	}{
		{`SELECT COUNT(*) FROM customers`, &s.Customers},
		{`SELECT COUNT(*) FROM meters`, &s.Meters},
		{`SELECT COUNT(*) FROM meter_readings`, &s.Readings},
	}
	for _, c := range counts {
		if err := r.pool.QueryRow(ctx, c.query).Scan(c.dest); err != nil {
			return nil, fmt.Errorf("failed to query count: %w", err)
		}
	}

	return &s, nil
}

// mapIntegrityError translates constraint violations into sentinel errors:
// the (meter_id, reading_date) unique violation becomes ErrDuplicateReading,
// any other integrity-class violation becomes ErrDataIntegrity.
func mapIntegrityError(err error) error {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		if pgErr.Code == "23505" {
			return fmt.Errorf("%w: %s", ErrDuplicateReading, pgErr.ConstraintName)
		}
		if strings.HasPrefix(pgErr.Code, "23") {
			return fmt.Errorf("%w: %s", ErrDataIntegrity, pgErr.Message)
		}
	}
	return fmt.Errorf("failed to insert reading: %w", err)
}

// ClampLimit restricts a readings limit to the closed range [1, 1000]
func ClampLimit(limit int) int {
	if limit < minReadingsLimit {
		return minReadingsLimit
	}
	if limit > maxReadingsLimit {
		return maxReadingsLimit
	}
	return limit
}
