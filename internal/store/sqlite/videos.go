package sqlite

import (
	"bytes"
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/fosse-media/fosse/internal/domain"
	"github.com/fosse-media/fosse/internal/errors"
	"github.com/fosse-media/fosse/internal/resolve"
	"github.com/fosse-media/fosse/internal/store"
)

// videoSelect must match the scan order in scanVideo.
const videoSelect = `SELECT v.id, v.file_path, v.raw_metadata, v.display_name,
	v.duration_seconds, v.width, v.height, v.video_format, v.codec,
	v.frame_rate, v.file_size_bytes, v.bit_rate, v.aspect_ratio,
	v.genre_id, g.name, v.subgenre_id, sg.name,
	v.platform_id, p.name, v.title_id, t.name,
	v.recording_date, v.under_influence, v.source_notebooks,
	v.last_modified, v.last_used` + videoFrom

// videoFrom joins the dimension names used by filters and reads.
const videoFrom = `
	FROM videos v
	LEFT JOIN genres g ON g.id = v.genre_id
	LEFT JOIN subgenres sg ON sg.id = v.subgenre_id
	LEFT JOIN platforms p ON p.id = v.platform_id
	LEFT JOIN titles t ON t.id = v.title_id`

func scanVideo(scanner interface{ Scan(dest ...any) error }) (*domain.Video, error) {
	var v domain.Video

	var (
		rawMetadata     string
		aspectRatio     sql.NullString
		genreID         sql.NullInt64
		genre           sql.NullString
		subgenreID      sql.NullInt64
		subgenre        sql.NullString
		platformID      sql.NullInt64
		platform        sql.NullString
		titleID         sql.NullInt64
		title           sql.NullString
		recordingDate   sql.NullString
		underInfluence  int
		sourceNotebooks string
		lastModified    string
		lastUsed        sql.NullString
	)

	err := scanner.Scan(
		&v.ID,
		&v.FilePath,
		&rawMetadata,
		&v.DisplayName,
		&v.DurationSeconds,
		&v.Width,
		&v.Height,
		&v.VideoFormat,
		&v.Codec,
		&v.FrameRate,
		&v.FileSizeBytes,
		&v.BitRate,
		&aspectRatio,
		&genreID,
		&genre,
		&subgenreID,
		&subgenre,
		&platformID,
		&platform,
		&titleID,
		&title,
		&recordingDate,
		&underInfluence,
		&sourceNotebooks,
		&lastModified,
		&lastUsed,
	)
	if err != nil {
		return nil, err
	}

	v.AspectRatio = aspectRatio.String
	v.GenreID, v.Genre = idPtr(genreID), genre.String
	v.SubgenreID, v.Subgenre = idPtr(subgenreID), subgenre.String
	v.PlatformID, v.Platform = idPtr(platformID), platform.String
	v.TitleID, v.Title = idPtr(titleID), title.String
	v.UnderInfluence = underInfluence != 0

	if recordingDate.Valid && recordingDate.String != "" {
		rd, err := time.Parse(domain.RecordingDateLayout, recordingDate.String)
		if err != nil {
			return nil, fmt.Errorf("parse recording_date: %w", err)
		}
		v.RecordingDate = &rd
	}

	if err := json.Unmarshal([]byte(sourceNotebooks), &v.SourceNotebooks); err != nil {
		return nil, fmt.Errorf("decode source_notebooks: %w", err)
	}

	var raw domain.RawMetadata
	dec := json.NewDecoder(bytes.NewReader([]byte(rawMetadata)))
	dec.UseNumber()
	if err := dec.Decode(&raw); err != nil {
		return nil, fmt.Errorf("decode raw_metadata: %w", err)
	}
	v.Config = raw.Config

	v.LastModified, err = parseTime(lastModified)
	if err != nil {
		return nil, err
	}
	v.LastUsed, err = parseNullableTime(lastUsed)
	if err != nil {
		return nil, err
	}
	return &v, nil
}

func scanVideos(rows *sql.Rows) ([]*domain.Video, error) {
	defer rows.Close()
	var out []*domain.Video
	for rows.Next() {
		v, err := scanVideo(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, v)
	}
	return out, rows.Err()
}

func lookupVideo(ctx context.Context, q querier, path string) (*domain.Video, error) {
	v, err := scanVideo(q.QueryRowContext(ctx, videoSelect+` WHERE v.file_path = ?`, path))
	if err == sql.ErrNoRows {
		return nil, errors.NotFoundf("no video at %s", path)
	}
	if err != nil {
		return nil, err
	}
	return v, nil
}

// upsertVideo resolves v's dimensions and writes it keyed by file path.
// last_used survives updates. v.ID, the id fields and LastModified are set.
func upsertVideo(ctx context.Context, q querier, v *domain.Video, now time.Time) error {
	var err error
	if v.GenreID, err = getOrCreateDimension(ctx, q, domain.DimensionGenre, v.Genre, nil); err != nil {
		return err
	}
	if v.SubgenreID, err = getOrCreateDimension(ctx, q, domain.DimensionSubgenre, v.Subgenre, v.GenreID); err != nil {
		return err
	}
	if v.PlatformID, err = getOrCreateDimension(ctx, q, domain.DimensionPlatform, v.Platform, nil); err != nil {
		return err
	}
	if v.TitleID, err = getOrCreateDimension(ctx, q, domain.DimensionTitle, v.Title, v.PlatformID); err != nil {
		return err
	}

	if v.SourceNotebooks == nil {
		v.SourceNotebooks = []string{}
	}
	raw, err := json.Marshal(v.Raw())
	if err != nil {
		return fmt.Errorf("marshal raw_metadata: %w", err)
	}
	sources, err := json.Marshal(v.SourceNotebooks)
	if err != nil {
		return fmt.Errorf("marshal source_notebooks: %w", err)
	}

	var recordingDate sql.NullString
	if v.RecordingDate != nil {
		recordingDate = nullString(v.RecordingDate.Format(domain.RecordingDateLayout))
	}

	_, err = q.ExecContext(ctx, `
		INSERT INTO videos (
			file_path, raw_metadata, display_name, duration_seconds, width, height,
			video_format, codec, frame_rate, file_size_bytes, bit_rate, aspect_ratio,
			genre_id, subgenre_id, platform_id, title_id,
			recording_date, under_influence, source_notebooks, last_modified
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(file_path) DO UPDATE SET
			raw_metadata = excluded.raw_metadata,
			display_name = excluded.display_name,
			duration_seconds = excluded.duration_seconds,
			width = excluded.width,
			height = excluded.height,
			video_format = excluded.video_format,
			codec = excluded.codec,
			frame_rate = excluded.frame_rate,
			file_size_bytes = excluded.file_size_bytes,
			bit_rate = excluded.bit_rate,
			aspect_ratio = excluded.aspect_ratio,
			genre_id = excluded.genre_id,
			subgenre_id = excluded.subgenre_id,
			platform_id = excluded.platform_id,
			title_id = excluded.title_id,
			recording_date = excluded.recording_date,
			under_influence = excluded.under_influence,
			source_notebooks = excluded.source_notebooks,
			last_modified = excluded.last_modified`,
		v.FilePath,
		string(raw),
		v.DisplayName,
		v.DurationSeconds,
		v.Width,
		v.Height,
		orUnknown(v.VideoFormat),
		orUnknown(v.Codec),
		v.FrameRate,
		v.FileSizeBytes,
		v.BitRate,
		nullString(v.AspectRatio),
		nullID(v.GenreID),
		nullID(v.SubgenreID),
		nullID(v.PlatformID),
		nullID(v.TitleID),
		recordingDate,
		boolToInt(v.UnderInfluence),
		string(sources),
		formatTime(now),
	)
	if err != nil {
		return fmt.Errorf("upsert video %s: %w", v.FilePath, err)
	}

	if err := q.QueryRowContext(ctx,
		`SELECT id FROM videos WHERE file_path = ?`, v.FilePath).Scan(&v.ID); err != nil {
		return fmt.Errorf("read video id: %w", err)
	}
	v.LastModified = now
	return nil
}

func orUnknown(s string) string {
	if s == "" {
		return domain.UnknownFormat
	}
	return s
}

// prefixRange returns the half-open key range [lo, hi) covering every path
// inside dir.
func prefixRange(dir string) (lo, hi string) {
	lo = resolve.DirPrefix(dir)
	last := lo[len(lo)-1]
	return lo, lo[:len(lo)-1] + string(rune(last+1))
}

func videosUnder(ctx context.Context, q querier, dir string) ([]*domain.Video, error) {
	lo, hi := prefixRange(dir)
	rows, err := q.QueryContext(ctx,
		videoSelect+` WHERE v.file_path >= ? AND v.file_path < ? ORDER BY v.file_path`, lo, hi)
	if err != nil {
		return nil, err
	}
	return scanVideos(rows)
}

// GetVideo returns the committed video at filePath.
func (s *Store) GetVideo(ctx context.Context, filePath string) (*domain.Video, error) {
	v, err := lookupVideo(ctx, s.db, filePath)
	if err != nil && !errors.Is(err, errors.ErrNotFound) {
		return nil, errors.Storage("get video", err)
	}
	return v, err
}

// ListVideos returns one page of videos ordered by file path.
func (s *Store) ListVideos(ctx context.Context, filter store.VideoFilter, params store.PaginationParams) (*store.PaginatedResult[*domain.Video], error) {
	params.Validate()

	after, err := store.DecodeCursor(params.Cursor)
	if err != nil {
		return nil, errors.Validation(err.Error())
	}

	var (
		conds []string
		args  []any
	)
	eq := func(col, val string) {
		if val != "" {
			conds = append(conds, col+" = ?")
			args = append(args, val)
		}
	}
	eq("g.name", filter.Genre)
	eq("sg.name", filter.Subgenre)
	eq("p.name", filter.Platform)
	eq("t.name", filter.Title)
	if filter.UnderInfluence != nil {
		conds = append(conds, "v.under_influence = ?")
		args = append(args, boolToInt(*filter.UnderInfluence))
	}
	if filter.PathPrefix != "" {
		lo, hi := prefixRange(filter.PathPrefix)
		conds = append(conds, "v.file_path >= ? AND v.file_path < ?")
		args = append(args, lo, hi)
	}

	where := ""
	if len(conds) > 0 {
		where = " WHERE " + strings.Join(conds, " AND ")
	}

	var total int
	if err := s.db.QueryRowContext(ctx, `SELECT COUNT(*)`+videoFrom+where, args...).Scan(&total); err != nil {
		return nil, errors.Storage("count videos", err)
	}

	pageWhere := where
	pageArgs := append([]any{}, args...)
	if after != "" {
		if pageWhere == "" {
			pageWhere = " WHERE v.file_path > ?"
		} else {
			pageWhere += " AND v.file_path > ?"
		}
		pageArgs = append(pageArgs, after)
	}
	pageArgs = append(pageArgs, params.Limit+1)

	rows, err := s.db.QueryContext(ctx,
		videoSelect+pageWhere+` ORDER BY v.file_path LIMIT ?`, pageArgs...)
	if err != nil {
		return nil, errors.Storage("list videos", err)
	}
	videos, err := scanVideos(rows)
	if err != nil {
		return nil, errors.Storage("list videos", err)
	}

	hasMore := len(videos) > params.Limit
	if hasMore {
		videos = videos[:params.Limit]
	}
	result := &store.PaginatedResult[*domain.Video]{
		Items:   videos,
		HasMore: hasMore,
		Total:   total,
	}
	if hasMore {
		result.NextCursor = store.EncodeCursor(videos[len(videos)-1].FilePath)
	}
	if result.Items == nil {
		result.Items = []*domain.Video{}
	}
	return result, nil
}

// MarkVideoUsed records that filePath was played or otherwise used.
func (s *Store) MarkVideoUsed(ctx context.Context, filePath string, at time.Time) error {
	res, err := s.db.ExecContext(ctx,
		`UPDATE videos SET last_used = ? WHERE file_path = ?`, formatTime(at), filePath)
	if err != nil {
		return errors.Storage("mark video used", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return errors.Storage("mark video used", err)
	}
	if n == 0 {
		return errors.NotFoundf("no video at %s", filePath)
	}
	return nil
}

// Stats counts the rows of every catalog table.
func (s *Store) Stats(ctx context.Context) (*domain.CatalogStats, error) {
	var st domain.CatalogStats
	err := s.db.QueryRowContext(ctx, `SELECT
		(SELECT COUNT(*) FROM videos),
		(SELECT COUNT(*) FROM notebooks),
		(SELECT COUNT(*) FROM genres),
		(SELECT COUNT(*) FROM subgenres),
		(SELECT COUNT(*) FROM platforms),
		(SELECT COUNT(*) FROM titles)`).Scan(
		&st.Videos, &st.Notebooks, &st.Genres, &st.Subgenres, &st.Platforms, &st.Titles)
	if err != nil {
		return nil, errors.Storage("catalog stats", err)
	}

	last, err := checkpoint(ctx, s.db)
	if err != nil {
		return nil, errors.Storage("catalog stats", err)
	}
	if !last.IsZero() {
		st.LastChange = &last
	}
	return &st, nil
}
