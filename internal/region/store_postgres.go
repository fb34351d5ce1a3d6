package region

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	id "charter/pkg/domain"
	"charter/pkg/platform/sentinel"
)

// PostgresStore reads regions from the regions table.
type PostgresStore struct {
	db *sql.DB
}

func NewPostgresStore(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

func (s *PostgresStore) FindByID(ctx context.Context, regionID id.RegionID) (*Region, error) {
	var r Region
	var rawID string
	err := s.db.QueryRowContext(ctx,
		`SELECT id, name FROM regions WHERE id = $1`, regionID.String(),
	).Scan(&rawID, &r.Name)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, sentinel.ErrNotFound
		}
		return nil, fmt.Errorf("find region: %w", err)
	}
	parsed, err := id.ParseRegionID(rawID)
	if err != nil {
		return nil, fmt.Errorf("parse region id: %w", err)
	}
	r.ID = parsed
	return &r, nil
}

func (s *PostgresStore) List(ctx context.Context) ([]*Region, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT id, name FROM regions ORDER BY name`)
	if err != nil {
		return nil, fmt.Errorf("list regions: %w", err)
	}
	defer rows.Close()

	var out []*Region
	for rows.Next() {
		var r Region
		var rawID string
		if err := rows.Scan(&rawID, &r.Name); err != nil {
			return nil, fmt.Errorf("scan region: %w", err)
		}
		parsed, err := id.ParseRegionID(rawID)
		if err != nil {
			return nil, fmt.Errorf("parse region id: %w", err)
		}
		r.ID = parsed
		out = append(out, &r)
	}
	return out, rows.Err()
}
