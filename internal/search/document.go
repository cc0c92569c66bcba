// Package search keeps a Bleve full-text index over catalogued videos. The
// catalog stays the source of truth; the index is refreshed after every
// committed scan and can be rebuilt from the catalog at any time.
package search

import (
	"strings"

	"github.com/fosse-media/fosse/internal/domain"
)

// Document is the indexed form of a video. Its ID is the file path.
type Document struct {
	ID             string
	DisplayName    string
	Genre          string
	Subgenre       string
	Platform       string
	Title          string
	Codec          string
	DurationSec    float64
	RecordedAt     int64 // Unix seconds, 0 when unknown
	UnderInfluence bool
}

// ToMap converts the document to the field names used by the mapping.
func (d *Document) ToMap() map[string]any {
	m := map[string]any{
		"path":            d.ID,
		"path_text":       pathWords(d.ID),
		"display_name":    d.DisplayName,
		"under_influence": d.UnderInfluence,
	}

	if d.Genre != "" {
		m["genre"] = d.Genre
	}
	if d.Subgenre != "" {
		m["subgenre"] = d.Subgenre
	}
	if d.Platform != "" {
		m["platform"] = d.Platform
	}
	if d.Title != "" {
		m["title"] = d.Title
	}
	if d.Codec != "" {
		m["codec"] = d.Codec
	}
	if text := d.dimensionText(); text != "" {
		m["dimensions"] = text
	}
	if d.DurationSec > 0 {
		m["duration"] = d.DurationSec
	}
	if d.RecordedAt != 0 {
		m["recorded_at"] = d.RecordedAt
	}
	return m
}

func (d *Document) dimensionText() string {
	var parts []string
	for _, s := range []string{d.Genre, d.Subgenre, d.Platform, d.Title} {
		if s != "" {
			parts = append(parts, s)
		}
	}
	return strings.Join(parts, " ")
}

// pathWords splits a path into words so directory names are searchable.
func pathWords(path string) string {
	return strings.Join(strings.FieldsFunc(path, func(r rune) bool {
		return r == '/' || r == '\\' || r == '_' || r == '-' || r == '.'
	}), " ")
}

// FromVideo converts a catalog video into a Document.
func FromVideo(v *domain.Video) *Document {
	doc := &Document{
		ID:             v.FilePath,
		DisplayName:    v.DisplayName,
		Genre:          v.Genre,
		Subgenre:       v.Subgenre,
		Platform:       v.Platform,
		Title:          v.Title,
		Codec:          v.Codec,
		DurationSec:    v.DurationSeconds,
		UnderInfluence: v.UnderInfluence,
	}
	if v.RecordingDate != nil {
		doc.RecordedAt = v.RecordingDate.Unix()
	}
	if doc.Codec == domain.UnknownCodec {
		doc.Codec = ""
	}
	return doc
}
