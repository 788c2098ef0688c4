package repositories

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"route-tracking-service/internal/domain"
	"route-tracking-service/internal/platform/db"
	"route-tracking-service/internal/platform/obs"
	"strings"
)

// SQLPlaceStore keeps operator-curated places that extend the built-in
// gazetteer.
type SQLPlaceStore struct {
	DB      *sql.DB
	Dialect db.Dialect
	Logger  *slog.Logger
}

func NewSQLPlaceStore(conn *sql.DB, dialect db.Dialect, logger *slog.Logger) *SQLPlaceStore {
	if logger == nil {
		logger = slog.Default()
	}
	return &SQLPlaceStore{DB: conn, Dialect: dialect, Logger: logger}
}

// ListPlaces returns every stored place ordered by name.
func (s *SQLPlaceStore) ListPlaces(ctx context.Context) (_ []domain.NamedPlace, err error) {
	defer obs.Time(ctx, s.Logger, "places.ListPlaces")(&err)

	if s.DB == nil {
		return nil, errors.New("place store: db is nil")
	}

	q := `
	SELECT name, lat, lng
	FROM known_places
	ORDER BY name;
	`

	rows, err := s.DB.QueryContext(ctx, q)
	if err != nil {
		return nil, fmt.Errorf("list places: query known_places table: %w", err)
	}
	defer rows.Close()

	out := make([]domain.NamedPlace, 0, 32)
	for rows.Next() {
		var p domain.NamedPlace
		if err := rows.Scan(&p.Name, &p.Coordinates.Lat, &p.Coordinates.Lng); err != nil {
			return nil, fmt.Errorf("list places: scan rows: %w", err)
		}
		out = append(out, p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list places: row iteration: %w", err)
	}

	return out, nil
}

// PutMany stores name -> coordinate mappings, replacing existing names.
func (s *SQLPlaceStore) PutMany(ctx context.Context, places []domain.NamedPlace) error {
	if s.DB == nil {
		return errors.New("place store: db is nil")
	}

	if len(places) == 0 {
		return nil
	}

	tx, err := s.DB.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("insert places: db begin: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	if err := putPlaces(ctx, tx, s.Dialect, places); err != nil {
		return err
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("insert places commit: %w", err)
	}

	return nil
}

func putPlaces(ctx context.Context, tx *sql.Tx, d db.Dialect, places []domain.NamedPlace) error {
	stmt, err := tx.PrepareContext(ctx, d.Rebind(`
	INSERT INTO known_places (name, lat, lng)
	VALUES (?, ?, ?)
	ON CONFLICT (name) DO UPDATE
	SET lat = excluded.lat,
		lng = excluded.lng;
	`))
	if err != nil {
		return fmt.Errorf("insert places: db prepare: %w", err)
	}
	defer stmt.Close()

	for _, p := range places {
		name := strings.TrimSpace(p.Name)
		if name == "" {
			return errors.New("insert places: empty name")
		}
		if !p.Coordinates.Valid() {
			return fmt.Errorf("insert place %q: %w", name, domain.ErrInvalidCoordinate)
		}

		if _, err := stmt.ExecContext(ctx, name, p.Coordinates.Lat, p.Coordinates.Lng); err != nil {
			return fmt.Errorf("insert place %q: %w", name, err)
		}
	}
	return nil
}
