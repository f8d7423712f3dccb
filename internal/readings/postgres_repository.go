package readings

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/breatheroute/ambee/pkg/ambee"
)

const schema = `
	CREATE TABLE IF NOT EXISTS ambee_readings (
		id         TEXT PRIMARY KEY,
		resource   TEXT NOT NULL,
		point      TEXT NOT NULL,
		lat        DOUBLE PRECISION NOT NULL,
		lng        DOUBLE PRECISION NOT NULL,
		fetched_at TIMESTAMPTZ NOT NULL,
		payload    JSONB NOT NULL
	);
	CREATE INDEX IF NOT EXISTS ambee_readings_lookup_idx
		ON ambee_readings (resource, point, fetched_at DESC);
`

// PostgresRepository is a PostgreSQL implementation of Repository.
type PostgresRepository struct {
	pool *pgxpool.Pool
}

// NewPostgresRepository creates a new PostgreSQL reading repository.
func NewPostgresRepository(pool *pgxpool.Pool) *PostgresRepository {
	return &PostgresRepository{pool: pool}
}

// EnsureSchema creates the readings table if it does not exist.
func (r *PostgresRepository) EnsureSchema(ctx context.Context) error {
	if _, err := r.pool.Exec(ctx, schema); err != nil {
		return fmt.Errorf("creating readings schema: %w", err)
	}
	return nil
}

// Save stores a reading.
func (r *PostgresRepository) Save(ctx context.Context, reading *Reading) error {
	query := `
		INSERT INTO ambee_readings (id, resource, point, lat, lng, fetched_at, payload)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
	`

	_, err := r.pool.Exec(ctx, query,
		reading.ID,
		string(reading.Resource),
		reading.Point,
		reading.Lat,
		reading.Lng,
		reading.FetchedAt,
		[]byte(reading.Payload),
	)
	if err != nil {
		return fmt.Errorf("inserting reading: %w", err)
	}
	return nil
}

// Latest returns the most recent reading of a resource for a point.
func (r *PostgresRepository) Latest(ctx context.Context, resource ambee.Resource, point string) (*Reading, error) {
	query := `
		SELECT id, resource, point, lat, lng, fetched_at, payload
		FROM ambee_readings
		WHERE resource = $1 AND point = $2
		ORDER BY fetched_at DESC
		LIMIT 1
	`

	reading, err := scanReading(r.pool.QueryRow(ctx, query, string(resource), point))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return reading, nil
}

// List returns readings newest first.
func (r *PostgresRepository) List(ctx context.Context, opts ListOptions) ([]*Reading, error) {
	query := `
		SELECT id, resource, point, lat, lng, fetched_at, payload
		FROM ambee_readings
		WHERE ($1 = '' OR resource = $1) AND ($2 = '' OR point = $2)
		ORDER BY fetched_at DESC
		LIMIT $3
	`

	rows, err := r.pool.Query(ctx, query, string(opts.Resource), opts.Point, normalizeLimit(opts.Limit))
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []*Reading
	for rows.Next() {
		reading, err := scanReading(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, reading)
	}
	return out, rows.Err()
}

func scanReading(row pgx.Row) (*Reading, error) {
	var (
		reading  Reading
		resource string
		payload  []byte
	)

	err := row.Scan(
		&reading.ID,
		&resource,
		&reading.Point,
		&reading.Lat,
		&reading.Lng,
		&reading.FetchedAt,
		&payload,
	)
	if err != nil {
		return nil, err
	}

	reading.Resource = ambee.Resource(resource)
	reading.Payload = payload
	return &reading, nil
}
