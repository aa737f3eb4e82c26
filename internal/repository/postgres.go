package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/lib/pq"

	"github.com/star/solarweather/internal/simulation"
	"github.com/star/solarweather/internal/weather"
)

const postgresSchema = `
CREATE TABLE IF NOT EXISTS simulations (
	singleton     BOOLEAN PRIMARY KEY DEFAULT TRUE CHECK (singleton),
	id            UUID NOT NULL,
	created_at    TIMESTAMPTZ NOT NULL,
	horizon       INTEGER NOT NULL,
	max_perimeter DOUBLE PRECISION NOT NULL,
	peak_days     INTEGER[] NOT NULL,
	dry_days      INTEGER NOT NULL,
	rainy_days    INTEGER NOT NULL,
	optimal_days  INTEGER NOT NULL,
	normal_days   INTEGER NOT NULL
);

CREATE TABLE IF NOT EXISTS simulation_days (
	day       INTEGER PRIMARY KEY,
	condition TEXT NOT NULL,
	perimeter DOUBLE PRECISION NOT NULL,
	bodies    JSONB NOT NULL
);`

// Postgres stores the simulation in two tables: a single summary row and one
// row per day.
type Postgres struct {
	db     *sql.DB
	logger *slog.Logger
}

// NewPostgres connects to databaseURL and creates the schema if needed.
func NewPostgres(ctx context.Context, databaseURL string, logger *slog.Logger) (*Postgres, error) {
	db, err := sql.Open("postgres", databaseURL)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	// Configure connection pool
	db.SetMaxOpenConns(10)
	db.SetMaxIdleConns(5)
	db.SetConnMaxLifetime(5 * time.Minute)

	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	p := &Postgres{db: db, logger: logger}
	if err := p.EnsureSchema(ctx); err != nil {
		db.Close()
		return nil, err
	}
	return p, nil
}

// EnsureSchema creates the tables if they do not exist.
func (p *Postgres) EnsureSchema(ctx context.Context) error {
	if _, err := p.db.ExecContext(ctx, postgresSchema); err != nil {
		return fmt.Errorf("failed to create schema: %w", err)
	}
	return nil
}

// Store inserts the summary row and bulk-copies the days in one transaction.
func (p *Postgres) Store(ctx context.Context, s *simulation.Simulation) (err error) {
	tx, err := p.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() {
		if err != nil {
			tx.Rollback()
		}
	}()

	peakDays := make(pq.Int64Array, len(s.PeakDays))
	for i, d := range s.PeakDays {
		peakDays[i] = int64(d)
	}

	res, err := tx.ExecContext(ctx,
		`INSERT INTO simulations (id, created_at, horizon, max_perimeter, peak_days, dry_days, rainy_days, optimal_days, normal_days)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		 ON CONFLICT (singleton) DO NOTHING`,
		s.ID, s.CreatedAt, s.Horizon, s.MaxPerimeter, peakDays,
		s.DryCount, s.RainCount, s.OptimalCount, s.NormalCount,
	)
	if err != nil {
		return fmt.Errorf("failed to insert simulation: %w", err)
	}
	if n, err := res.RowsAffected(); err != nil {
		return fmt.Errorf("failed to insert simulation: %w", err)
	} else if n == 0 {
		return ErrAlreadyExists
	}

	stmt, err := tx.PrepareContext(ctx, pq.CopyIn("simulation_days", "day", "condition", "perimeter", "bodies"))
	if err != nil {
		return fmt.Errorf("failed to prepare copy: %w", err)
	}
	for _, d := range s.Days {
		r := NewDayRecord(d)
		bodies, err := json.Marshal(r.Bodies)
		if err != nil {
			stmt.Close()
			return fmt.Errorf("encoding day %d: %w", d.Number, err)
		}
		if _, err := stmt.ExecContext(ctx, r.Number, r.Condition.String(), r.Perimeter, string(bodies)); err != nil {
			stmt.Close()
			return fmt.Errorf("failed to copy day %d: %w", d.Number, err)
		}
	}
	if _, err := stmt.ExecContext(ctx); err != nil {
		stmt.Close()
		return fmt.Errorf("failed to flush copy: %w", err)
	}
	if err := stmt.Close(); err != nil {
		return fmt.Errorf("failed to close copy: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit simulation: %w", err)
	}

	p.logger.Info("simulation stored in postgres", "id", s.ID.String(), "days", len(s.Days))
	return nil
}

func (p *Postgres) Exists(ctx context.Context) (bool, error) {
	var exists bool
	if err := p.db.QueryRowContext(ctx, `SELECT EXISTS (SELECT 1 FROM simulations)`).Scan(&exists); err != nil {
		return false, fmt.Errorf("failed to check simulation: %w", err)
	}
	return exists, nil
}

func (p *Postgres) FetchDay(ctx context.Context, n int) (weather.Day, error) {
	var (
		r         = DayRecord{Number: n}
		condition string
		bodies    []byte
	)
	err := p.db.QueryRowContext(ctx,
		`SELECT condition, perimeter, bodies FROM simulation_days WHERE day = $1`, n,
	).Scan(&condition, &r.Perimeter, &bodies)

	if errors.Is(err, sql.ErrNoRows) {
		return weather.Day{}, p.missingDay(ctx, n)
	}
	if err != nil {
		return weather.Day{}, fmt.Errorf("failed to get day %d: %w", n, err)
	}

	if err := r.Condition.UnmarshalText([]byte(condition)); err != nil {
		return weather.Day{}, fmt.Errorf("day %d: %w", n, err)
	}
	if err := json.Unmarshal(bodies, &r.Bodies); err != nil {
		return weather.Day{}, fmt.Errorf("decoding day %d: %w", n, err)
	}
	return r.Day()
}

// missingDay distinguishes an empty store from a day outside the horizon.
func (p *Postgres) missingDay(ctx context.Context, n int) error {
	s, err := p.FetchSummary(ctx)
	if err != nil {
		return err
	}
	return dayOutOfRange(n, s.Horizon)
}

func (p *Postgres) FetchSummary(ctx context.Context) (simulation.Summary, error) {
	var (
		r        SummaryRecord
		peakDays pq.Int64Array
	)
	err := p.db.QueryRowContext(ctx,
		`SELECT id, created_at, horizon, max_perimeter, peak_days, dry_days, rainy_days, optimal_days, normal_days
		 FROM simulations`,
	).Scan(&r.ID, &r.CreatedAt, &r.Horizon, &r.MaxPerimeter, &peakDays,
		&r.DryCount, &r.RainCount, &r.OptimalCount, &r.NormalCount)

	if errors.Is(err, sql.ErrNoRows) {
		return simulation.Summary{}, ErrNotFound
	}
	if err != nil {
		return simulation.Summary{}, fmt.Errorf("failed to get simulation: %w", err)
	}

	r.PeakDays = make([]int, len(peakDays))
	for i, d := range peakDays {
		r.PeakDays[i] = int(d)
	}
	r.CreatedAt = r.CreatedAt.UTC()
	return r.Summary(), nil
}

// Reset truncates both tables.
func (p *Postgres) Reset(ctx context.Context) error {
	if _, err := p.db.ExecContext(ctx, `TRUNCATE simulations, simulation_days`); err != nil {
		return fmt.Errorf("failed to reset simulation: %w", err)
	}
	return nil
}

func (p *Postgres) Ping(ctx context.Context) error {
	return p.db.PingContext(ctx)
}

// Close closes the database connection
func (p *Postgres) Close() error {
	if p.db != nil {
		return p.db.Close()
	}
	return nil
}
