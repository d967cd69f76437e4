// README: Waypoint store backed by PostgreSQL.
package waypoint

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"

	"trailquest/internal/types"
)

// Coordinate and timestamp columns are nullable so rows written by other
// tools can be stored and then skipped on read.
const createTableSQL = `
CREATE TABLE IF NOT EXISTS waypoints (
    id          TEXT PRIMARY KEY,
    owner       TEXT NOT NULL,
    latitude    DOUBLE PRECISION,
    longitude   DOUBLE PRECISION,
    captured_at TIMESTAMPTZ
)`

const createOwnerIndexSQL = `CREATE INDEX IF NOT EXISTS waypoints_owner_idx ON waypoints (owner)`

type PostgresStore struct {
	db *pgxpool.Pool
}

func NewPostgresStore(db *pgxpool.Pool) *PostgresStore {
	return &PostgresStore{db: db}
}

// EnsureSchema creates the waypoints table and its owner index.
func (s *PostgresStore) EnsureSchema(ctx context.Context) error {
	if _, err := s.db.Exec(ctx, createTableSQL); err != nil {
		return err
	}
	_, err := s.db.Exec(ctx, createOwnerIndexSQL)
	return err
}

func (s *PostgresStore) Create(ctx context.Context, owner types.ID, p types.Point) (Waypoint, error) {
	id := types.ID(uuid.NewString())
	var capturedAt time.Time
	err := s.db.QueryRow(ctx, `
        INSERT INTO waypoints (id, owner, latitude, longitude, captured_at)
        VALUES ($1, $2, $3, $4, now())
        RETURNING captured_at`,
		string(id), string(owner), p.Lat, p.Lng,
	).Scan(&capturedAt)
	if err != nil {
		return Waypoint{}, err
	}
	return Waypoint{ID: id, Owner: owner, Point: p, CapturedAt: capturedAt}, nil
}

func (s *PostgresStore) ListByOwner(ctx context.Context, owner types.ID) ([]Waypoint, error) {
	rows, err := s.db.Query(ctx, `
        SELECT id, owner, latitude, longitude, captured_at
        FROM waypoints
        WHERE owner = $1`, string(owner),
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []Waypoint
	for rows.Next() {
		var (
			id, rowOwner string
			lat, lng     *float64
			capturedAt   *time.Time
		)
		if err := rows.Scan(&id, &rowOwner, &lat, &lng, &capturedAt); err != nil {
			return nil, err
		}
		if lat == nil || lng == nil || capturedAt == nil {
			continue
		}
		w := Waypoint{
			ID:         types.ID(id),
			Owner:      types.ID(rowOwner),
			Point:      types.Point{Lat: *lat, Lng: *lng},
			CapturedAt: *capturedAt,
		}
		if !w.valid() || w.Owner != owner {
			continue
		}
		result = append(result, w)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return result, nil
}

func (s *PostgresStore) Delete(ctx context.Context, owner, id types.ID) error {
	_, err := s.db.Exec(ctx, `DELETE FROM waypoints WHERE id = $1 AND owner = $2`, string(id), string(owner))
	return err
}
