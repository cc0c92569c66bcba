package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"github.com/fosse-media/fosse/internal/domain"
	"github.com/fosse-media/fosse/internal/errors"
	"github.com/fosse-media/fosse/internal/normalize"
)

type dimensionTable struct {
	name         string
	parentColumn string
}

// dimensionTables whitelists the tables getOrCreateDimension may touch.
var dimensionTables = map[domain.DimensionKind]dimensionTable{
	domain.DimensionGenre:    {name: "genres"},
	domain.DimensionSubgenre: {name: "subgenres", parentColumn: "genre_id"},
	domain.DimensionPlatform: {name: "platforms"},
	domain.DimensionTitle:    {name: "titles", parentColumn: "platform_id"},
}

// getOrCreateDimension returns the id for name in kind's table, inserting
// it when missing. An empty name yields nil. The parent id is only recorded
// when the row is created.
func getOrCreateDimension(ctx context.Context, q querier, kind domain.DimensionKind, name string, parentID *int64) (*int64, error) {
	tbl, ok := dimensionTables[kind]
	if !ok {
		return nil, fmt.Errorf("unknown dimension %q", kind)
	}
	name = normalize.Text(name)
	if name == "" {
		return nil, nil
	}

	var err error
	if tbl.parentColumn == "" {
		_, err = q.ExecContext(ctx,
			`INSERT INTO `+tbl.name+` (name) VALUES (?) ON CONFLICT(name) DO NOTHING`, name)
	} else {
		_, err = q.ExecContext(ctx,
			`INSERT INTO `+tbl.name+` (name, `+tbl.parentColumn+`) VALUES (?, ?) ON CONFLICT(name) DO NOTHING`,
			name, nullID(parentID))
	}
	// A concurrent writer may win the insert; the row exists either way.
	if err != nil && !strings.Contains(err.Error(), "UNIQUE constraint failed") {
		return nil, fmt.Errorf("insert %s: %w", kind, err)
	}

	var id int64
	if err := q.QueryRowContext(ctx,
		`SELECT id FROM `+tbl.name+` WHERE name = ?`, name).Scan(&id); err != nil {
		return nil, fmt.Errorf("select %s: %w", kind, err)
	}
	return &id, nil
}

// ListDimension returns every row of kind's table ordered by name.
func (s *Store) ListDimension(ctx context.Context, kind domain.DimensionKind) ([]*domain.Dimension, error) {
	tbl, ok := dimensionTables[kind]
	if !ok {
		return nil, errors.Validationf("unknown dimension %q", kind)
	}

	parent := "NULL"
	if tbl.parentColumn != "" {
		parent = tbl.parentColumn
	}
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, name, `+parent+` FROM `+tbl.name+` ORDER BY name`)
	if err != nil {
		return nil, errors.Storage("list "+tbl.name, err)
	}
	defer rows.Close()

	var out []*domain.Dimension
	for rows.Next() {
		var (
			d        = domain.Dimension{Kind: kind}
			parentID sql.NullInt64
		)
		if err := rows.Scan(&d.ID, &d.Name, &parentID); err != nil {
			return nil, errors.Storage("list "+tbl.name, err)
		}
		d.ParentID = idPtr(parentID)
		out = append(out, &d)
	}
	if err := rows.Err(); err != nil {
		return nil, errors.Storage("list "+tbl.name, err)
	}
	return out, nil
}
