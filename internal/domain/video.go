// Package domain contains the catalog entities shared by the store, the
// scanner and the API.
package domain

import (
	"path/filepath"
	"strings"
	"time"

	"github.com/fosse-media/fosse/internal/notebook"
)

// Defaults for technical fields the extractor could not determine.
const (
	UnknownFormat = "unknown"
	UnknownCodec  = "unknown"
)

// RecordingDateLayout is the stored form of a recording date. Recording
// dates come from file names and carry no zone.
const RecordingDateLayout = "2006-01-02T15:04:05"

// TechnicalMetadata is what the extractor reads from a media file.
type TechnicalMetadata struct {
	DurationSeconds float64 `json:"duration_seconds"`
	Width           int     `json:"width"`
	Height          int     `json:"height"`
	VideoFormat     string  `json:"video_format"`
	Codec           string  `json:"codec"`
	FrameRate       float64 `json:"frame_rate"`
	FileSizeBytes   int64   `json:"file_size_bytes"`
	BitRate         int64   `json:"bit_rate,omitempty"`
	AspectRatio     string  `json:"aspect_ratio,omitempty"`
}

// DefaultTechnicalMetadata returns the values written when extraction is
// unavailable.
func DefaultTechnicalMetadata() TechnicalMetadata {
	return TechnicalMetadata{
		VideoFormat: UnknownFormat,
		Codec:       UnknownCodec,
	}
}

// Decoded holds what was derived from the file name.
type Decoded struct {
	RecordingDate string `json:"recording_date,omitempty"`
	DisplayName   string `json:"display_name"`
}

// RawMetadata is the audit copy stored alongside the structured columns.
type RawMetadata struct {
	Config          map[string]any    `json:"config"`
	Technical       TechnicalMetadata `json:"technical"`
	SourceNotebooks []string          `json:"source_notebooks"`
	Decoded         Decoded           `json:"decoded"`
}

// Video is one catalogued media file.
type Video struct {
	ID          int64  `json:"id"`
	FilePath    string `json:"file_path"`
	DisplayName string `json:"display_name"`

	TechnicalMetadata

	// Dimension names. The store resolves them to ids on upsert and fills
	// them back in on read.
	Genre    string `json:"genre,omitempty"`
	Subgenre string `json:"subgenre,omitempty"`
	Platform string `json:"platform,omitempty"`
	Title    string `json:"title,omitempty"`

	GenreID    *int64 `json:"genre_id,omitempty"`
	SubgenreID *int64 `json:"subgenre_id,omitempty"`
	PlatformID *int64 `json:"platform_id,omitempty"`
	TitleID    *int64 `json:"title_id,omitempty"`

	RecordingDate   *time.Time     `json:"recording_date,omitempty"`
	UnderInfluence  bool           `json:"under_influence"`
	SourceNotebooks []string       `json:"source_notebooks"`
	Config          map[string]any `json:"config,omitempty"`

	LastModified time.Time  `json:"last_modified"`
	LastUsed     *time.Time `json:"last_used,omitempty"`
}

// Raw builds the audit document stored in raw_metadata.
func (v *Video) Raw() RawMetadata {
	raw := RawMetadata{
		Config:          v.Config,
		Technical:       v.TechnicalMetadata,
		SourceNotebooks: v.SourceNotebooks,
		Decoded:         Decoded{DisplayName: v.DisplayName},
	}
	if raw.Config == nil {
		raw.Config = map[string]any{}
	}
	if raw.SourceNotebooks == nil {
		raw.SourceNotebooks = []string{}
	}
	if v.RecordingDate != nil {
		raw.Decoded.RecordingDate = v.RecordingDate.Format(RecordingDateLayout)
	}
	return raw
}

// Stem returns the file name without its extension.
func Stem(path string) string {
	base := filepath.Base(path)
	return strings.TrimSuffix(base, filepath.Ext(base))
}

// NotebookRecord is a stored notebook row.
type NotebookRecord struct {
	ID            int64              `json:"id"`
	DirectoryPath string             `json:"directory_path"`
	Notebook      *notebook.Notebook `json:"raw_fields"`
	LastModified  time.Time          `json:"last_modified"`
}

// CatalogStats summarizes table sizes.
type CatalogStats struct {
	Videos    int `json:"videos"`
	Notebooks int `json:"notebooks"`
	Genres    int `json:"genres"`
	Subgenres int `json:"subgenres"`
	Platforms int `json:"platforms"`
	Titles    int `json:"titles"`
	// LastChange is when a notebook or video row was last written.
	LastChange *time.Time `json:"last_change,omitempty"`
}
