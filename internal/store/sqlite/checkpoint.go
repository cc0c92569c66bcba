package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"time"
)

// Checkpoint returns the most recent last_modified across notebooks and
// videos, the time the catalog last changed. An empty catalog returns the
// zero time.
func (s *Store) Checkpoint(ctx context.Context) (time.Time, error) {
	return checkpoint(ctx, s.db)
}

func checkpoint(ctx context.Context, q querier) (time.Time, error) {
	var maxModified sql.NullString

	err := q.QueryRowContext(ctx, `
		SELECT MAX(last_modified) FROM (
			SELECT last_modified FROM notebooks
			UNION ALL
			SELECT last_modified FROM videos
		)`).Scan(&maxModified)
	if err != nil {
		return time.Time{}, fmt.Errorf("query catalog checkpoint: %w", err)
	}

	if !maxModified.Valid || maxModified.String == "" {
		return time.Time{}, nil
	}

	t, err := parseTime(maxModified.String)
	if err != nil {
		return time.Time{}, fmt.Errorf("parse checkpoint time: %w", err)
	}

	return t, nil
}
