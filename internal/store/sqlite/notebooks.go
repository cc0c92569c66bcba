package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/fosse-media/fosse/internal/domain"
	"github.com/fosse-media/fosse/internal/errors"
	"github.com/fosse-media/fosse/internal/notebook"
	"github.com/fosse-media/fosse/internal/resolve"
)

// notebookColumns must match the scan order in scanNotebook.
const notebookColumns = `id, directory_path, raw_fields, last_modified`

func scanNotebook(scanner interface{ Scan(dest ...any) error }) (*domain.NotebookRecord, error) {
	var (
		rec          domain.NotebookRecord
		rawFields    string
		lastModified string
	)
	if err := scanner.Scan(&rec.ID, &rec.DirectoryPath, &rawFields, &lastModified); err != nil {
		return nil, err
	}

	nb, err := notebook.FromJSON([]byte(rawFields))
	if err != nil {
		return nil, fmt.Errorf("notebook %s: %w", rec.DirectoryPath, err)
	}
	rec.Notebook = nb

	rec.LastModified, err = parseTime(lastModified)
	if err != nil {
		return nil, err
	}
	return &rec, nil
}

func lookupNotebook(ctx context.Context, q querier, dir string) (*domain.NotebookRecord, error) {
	row := q.QueryRowContext(ctx,
		`SELECT `+notebookColumns+` FROM notebooks WHERE directory_path = ?`, dir)
	rec, err := scanNotebook(row)
	if err == sql.ErrNoRows {
		return nil, errors.NotFoundf("no notebook for %s", dir)
	}
	if err != nil {
		return nil, err
	}
	return rec, nil
}

// notebooksIn loads the notebooks stored for any of dirs, keyed by directory.
func notebooksIn(ctx context.Context, q querier, dirs []string) (map[string]*domain.NotebookRecord, error) {
	found := make(map[string]*domain.NotebookRecord)
	if len(dirs) == 0 {
		return found, nil
	}

	rows, err := q.QueryContext(ctx,
		`SELECT `+notebookColumns+` FROM notebooks WHERE directory_path IN (`+placeholders(len(dirs))+`)`,
		stringArgs(dirs)...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	for rows.Next() {
		rec, err := scanNotebook(rows)
		if err != nil {
			return nil, err
		}
		found[rec.DirectoryPath] = rec
	}
	return found, rows.Err()
}

func upsertNotebook(ctx context.Context, q querier, dir string, nb *notebook.Notebook, now time.Time) error {
	raw, err := nb.MarshalJSON()
	if err != nil {
		return fmt.Errorf("marshal notebook: %w", err)
	}
	_, err = q.ExecContext(ctx, `
		INSERT INTO notebooks (directory_path, raw_fields, last_modified)
		VALUES (?, ?, ?)
		ON CONFLICT(directory_path) DO UPDATE SET
			raw_fields = excluded.raw_fields,
			last_modified = excluded.last_modified`,
		dir, string(raw), formatTime(now))
	return err
}

// resolveConfig merges the stored notebooks on filePath's ancestor chain.
// include, when non-nil, filters which directories may contribute.
func resolveConfig(ctx context.Context, q querier, filePath string, include func(dir string) bool) (*resolve.Config, error) {
	chain := resolve.AncestorChain(filePath)
	found, err := notebooksIn(ctx, q, chain)
	if err != nil {
		return nil, err
	}
	return resolve.ForFile(filePath, func(dir string) *notebook.Notebook {
		rec, ok := found[dir]
		if !ok || (include != nil && !include(dir)) {
			return nil
		}
		return rec.Notebook
	}), nil
}

// LookupNotebook returns the committed notebook for dir.
// Returns a NOT_FOUND error when dir has none.
func (s *Store) LookupNotebook(ctx context.Context, dir string) (*domain.NotebookRecord, error) {
	rec, err := lookupNotebook(ctx, s.db, dir)
	if err != nil && !errors.Is(err, errors.ErrNotFound) {
		return nil, errors.Storage("lookup notebook", err)
	}
	return rec, err
}

// ListNotebooks returns every committed notebook ordered by directory.
func (s *Store) ListNotebooks(ctx context.Context) ([]*domain.NotebookRecord, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT `+notebookColumns+` FROM notebooks ORDER BY directory_path`)
	if err != nil {
		return nil, errors.Storage("list notebooks", err)
	}
	defer rows.Close()

	var out []*domain.NotebookRecord
	for rows.Next() {
		rec, err := scanNotebook(rows)
		if err != nil {
			return nil, errors.Storage("list notebooks", err)
		}
		out = append(out, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, errors.Storage("list notebooks", err)
	}
	return out, nil
}

// ResolveEffectiveConfig merges the committed notebooks above filePath,
// deepest directory winning per key. No notebooks yields an empty config.
func (s *Store) ResolveEffectiveConfig(ctx context.Context, filePath string) (*resolve.Config, error) {
	cfg, err := resolveConfig(ctx, s.db, filePath, nil)
	if err != nil {
		return nil, errors.Storage("resolve effective config", err)
	}
	return cfg, nil
}
