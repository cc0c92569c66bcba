package domain

import "fmt"

// DimensionKind names one of the categorical lookup tables.
type DimensionKind string

const (
	DimensionGenre    DimensionKind = "genre"
	DimensionSubgenre DimensionKind = "subgenre"
	DimensionPlatform DimensionKind = "platform"
	DimensionTitle    DimensionKind = "title"
)

// DimensionKinds lists every kind in a stable order.
var DimensionKinds = []DimensionKind{DimensionGenre, DimensionSubgenre, DimensionPlatform, DimensionTitle}

// ParseDimensionKind accepts a kind in singular or plural form.
func ParseDimensionKind(s string) (DimensionKind, error) {
	switch s {
	case "genre", "genres":
		return DimensionGenre, nil
	case "subgenre", "subgenres":
		return DimensionSubgenre, nil
	case "platform", "platforms":
		return DimensionPlatform, nil
	case "title", "titles":
		return DimensionTitle, nil
	}
	return "", fmt.Errorf("unknown dimension %q", s)
}

// Parent returns the kind a dimension is scoped under, if any.
func (k DimensionKind) Parent() (DimensionKind, bool) {
	switch k {
	case DimensionSubgenre:
		return DimensionGenre, true
	case DimensionTitle:
		return DimensionPlatform, true
	}
	return "", false
}

// Dimension is one row of a lookup table.
type Dimension struct {
	ID       int64         `json:"id"`
	Kind     DimensionKind `json:"kind"`
	Name     string        `json:"name"`
	ParentID *int64        `json:"parent_id,omitempty"`
}
