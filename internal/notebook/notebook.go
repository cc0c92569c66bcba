// Package notebook models the per-directory configuration fragment
// (fosse.yml by default) that cascades down the media tree.
//
// A Notebook keeps every field it was given, recognized or not. Values are
// canonicalized on the way in so that a notebook parsed from YAML and the
// same notebook read back from the catalog's JSON column compare equal:
// mappings become map[string]any, sequences []any, and every number becomes
// a json.Number holding its decimal text.
package notebook

import (
	"bytes"
	"encoding/json"
	"fmt"
	"maps"
	"math"
	"os"
	"reflect"
	"slices"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/fosse-media/fosse/internal/errors"
)

// DefaultFilename is the notebook file name looked for in every directory.
const DefaultFilename = "fosse.yml"

// Recognized top-level keys.
const (
	KeyName           = "name"
	KeySkip           = "skip"
	KeyDecoding       = "decoding"
	KeyGenre          = "genre"
	KeySubgenre       = "subgenre"
	KeyPlatform       = "platform"
	KeyTitle          = "title"
	KeyUnderInfluence = "under_influence"
	KeyDateFormat     = "date_format"
	KeyTimeFormat     = "time_format"
)

// Defaults applied by the accessors when a field is absent.
const (
	DefaultDateFormat = "%Y-%m-%d"
	DefaultTimeFormat = "%H:%M:%S"
)

// ErrNotMapping is returned when a notebook document is not a YAML mapping.
var ErrNotMapping = errors.New("notebook must be a mapping of keys to values")

// Notebook is one directory's configuration fragment.
type Notebook struct {
	raw map[string]any
}

// DecodingRule describes how to pull a recording date and display name out
// of a file name. Group references are either a capture group name or its
// decimal index.
type DecodingRule struct {
	Regexp    string `json:"regexp"`
	DateGroup string `json:"date_group,omitempty"`
	TimeGroup string `json:"time_group,omitempty"`
	NameGroup string `json:"name_group,omitempty"`
}

// Fields is the typed view of the recognized keys. Absent strings are "".
type Fields struct {
	Name           string        `json:"name,omitempty"`
	Skip           bool          `json:"skip"`
	Decoding       *DecodingRule `json:"decoding,omitempty"`
	Genre          string        `json:"genre,omitempty"`
	Subgenre       string        `json:"subgenre,omitempty"`
	Platform       string        `json:"platform,omitempty"`
	Title          string        `json:"title,omitempty"`
	UnderInfluence bool          `json:"under_influence"`
	DateFormat     string        `json:"date_format"`
	TimeFormat     string        `json:"time_format"`
}

// Empty returns a notebook with no fields.
func Empty() *Notebook {
	return &Notebook{raw: map[string]any{}}
}

// Parse decodes a YAML document. An empty document is an empty notebook.
func Parse(data []byte) (*Notebook, error) {
	var doc any
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, err
	}
	if doc == nil {
		return Empty(), nil
	}
	return fromAny(doc)
}

// Load reads and parses the notebook at path. Failures are reported as
// CONFIG_PARSE_ERROR carrying the path.
func Load(path string) (*Notebook, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.ConfigParse(path, err)
	}
	nb, err := Parse(data)
	if err != nil {
		return nil, errors.ConfigParse(path, err)
	}
	return nb, nil
}

// FromJSON decodes a stored raw_fields column.
func FromJSON(data []byte) (*Notebook, error) {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()
	var doc any
	if err := dec.Decode(&doc); err != nil {
		return nil, fmt.Errorf("decode notebook json: %w", err)
	}
	if doc == nil {
		return Empty(), nil
	}
	return fromAny(doc)
}

// FromMap builds a notebook from an arbitrary mapping, canonicalizing it.
func FromMap(m map[string]any) (*Notebook, error) {
	if m == nil {
		return Empty(), nil
	}
	return fromAny(m)
}

func fromAny(doc any) (*Notebook, error) {
	c, err := canonical(doc)
	if err != nil {
		return nil, err
	}
	m, ok := c.(map[string]any)
	if !ok {
		return nil, ErrNotMapping
	}
	return &Notebook{raw: m}, nil
}

// Overlay shallow-merges layers in order; a later layer's key replaces an
// earlier one's. Nil layers are skipped.
func Overlay(layers ...*Notebook) *Notebook {
	out := make(map[string]any)
	for _, l := range layers {
		if l == nil {
			continue
		}
		for k, v := range l.raw {
			out[k] = deepCopy(v)
		}
	}
	return &Notebook{raw: out}
}

// MarshalJSON encodes the raw fields.
func (n *Notebook) MarshalJSON() ([]byte, error) {
	return json.Marshal(n.raw)
}

// RawCopy returns a deep copy of all fields. Mutating it does not affect n.
func (n *Notebook) RawCopy() map[string]any {
	return deepCopy(n.raw).(map[string]any)
}

// Len returns the number of top-level fields.
func (n *Notebook) Len() int {
	return len(n.raw)
}

// Keys returns the top-level keys in sorted order.
func (n *Notebook) Keys() []string {
	return slices.Sorted(maps.Keys(n.raw))
}

// Equal reports whether both notebooks hold deeply equal fields.
// A nil notebook only equals another nil notebook.
func (n *Notebook) Equal(o *Notebook) bool {
	if n == nil || o == nil {
		return n == o
	}
	return reflect.DeepEqual(n.raw, o.raw)
}

// Value returns the raw value stored under key.
func (n *Notebook) Value(key string) (any, bool) {
	v, ok := n.raw[key]
	return v, ok
}

// String returns key as text when it holds a string or number.
func (n *Notebook) String(key string) (string, bool) {
	return scalarString(n.raw[key])
}

// Bool returns key as a boolean. Strings such as "true" or "1" are accepted;
// anything else is false.
func (n *Notebook) Bool(key string) bool {
	switch v := n.raw[key].(type) {
	case bool:
		return v
	case string:
		b, err := strconv.ParseBool(strings.TrimSpace(v))
		return err == nil && b
	case json.Number:
		return v.String() != "0"
	default:
		return false
	}
}

// EffectiveName returns the notebook's name, if set and non-blank.
func (n *Notebook) EffectiveName() (string, bool) {
	s, ok := n.String(KeyName)
	if !ok || strings.TrimSpace(s) == "" {
		return "", false
	}
	return s, true
}

// Skip reports whether files governed by this notebook are excluded.
func (n *Notebook) Skip() bool {
	return n.Bool(KeySkip)
}

// DecodingRule returns the file-name decoding rule when a non-empty regexp
// is configured. Both snake_case and kebab-case group keys are read.
func (n *Notebook) DecodingRule() (DecodingRule, bool) {
	m, ok := n.raw[KeyDecoding].(map[string]any)
	if !ok {
		return DecodingRule{}, false
	}
	re, _ := scalarString(m["regexp"])
	if re == "" {
		return DecodingRule{}, false
	}
	return DecodingRule{
		Regexp:    re,
		DateGroup: groupRef(m, "date_group", "date-group"),
		TimeGroup: groupRef(m, "time_group", "time-group"),
		NameGroup: groupRef(m, "name_group", "name-group"),
	}, true
}

// DateFormat returns the strftime pattern for the date group.
func (n *Notebook) DateFormat() string {
	if s, ok := n.String(KeyDateFormat); ok && s != "" {
		return s
	}
	return DefaultDateFormat
}

// TimeFormat returns the strftime pattern for the time group.
func (n *Notebook) TimeFormat() string {
	if s, ok := n.String(KeyTimeFormat); ok && s != "" {
		return s
	}
	return DefaultTimeFormat
}

// Fields returns the typed view of the recognized keys.
func (n *Notebook) Fields() Fields {
	f := Fields{
		Skip:           n.Skip(),
		UnderInfluence: n.Bool(KeyUnderInfluence),
		DateFormat:     n.DateFormat(),
		TimeFormat:     n.TimeFormat(),
	}
	f.Name, _ = n.EffectiveName()
	f.Genre, _ = n.String(KeyGenre)
	f.Subgenre, _ = n.String(KeySubgenre)
	f.Platform, _ = n.String(KeyPlatform)
	f.Title, _ = n.String(KeyTitle)
	if rule, ok := n.DecodingRule(); ok {
		f.Decoding = &rule
	}
	return f
}

func groupRef(m map[string]any, keys ...string) string {
	for _, k := range keys {
		if s, ok := scalarString(m[k]); ok && s != "" {
			return s
		}
	}
	return ""
}

func scalarString(v any) (string, bool) {
	switch val := v.(type) {
	case string:
		return val, true
	case json.Number:
		return val.String(), true
	default:
		return "", false
	}
}

// canonical rewrites decoded YAML or JSON into the shapes described in the
// package comment.
func canonical(v any) (any, error) {
	switch val := v.(type) {
	case nil, string, bool, json.Number:
		return val, nil
	case int:
		return json.Number(strconv.Itoa(val)), nil
	case int64:
		return json.Number(strconv.FormatInt(val, 10)), nil
	case uint64:
		return json.Number(strconv.FormatUint(val, 10)), nil
	case float64:
		if math.IsNaN(val) || math.IsInf(val, 0) {
			return strconv.FormatFloat(val, 'g', -1, 64), nil
		}
		return json.Number(strconv.FormatFloat(val, 'f', -1, 64)), nil
	case time.Time:
		return val.Format(time.RFC3339Nano), nil
	case []any:
		out := make([]any, len(val))
		for i, item := range val {
			c, err := canonical(item)
			if err != nil {
				return nil, err
			}
			out[i] = c
		}
		return out, nil
	case map[string]any:
		out := make(map[string]any, len(val))
		for k, item := range val {
			c, err := canonical(item)
			if err != nil {
				return nil, err
			}
			out[k] = c
		}
		return out, nil
	case map[any]any:
		out := make(map[string]any, len(val))
		for k, item := range val {
			c, err := canonical(item)
			if err != nil {
				return nil, err
			}
			out[fmt.Sprint(k)] = c
		}
		return out, nil
	default:
		return nil, fmt.Errorf("unsupported notebook value of type %T", v)
	}
}

func deepCopy(v any) any {
	switch val := v.(type) {
	case map[string]any:
		out := make(map[string]any, len(val))
		for k, item := range val {
			out[k] = deepCopy(item)
		}
		return out
	case []any:
		out := make([]any, len(val))
		for i, item := range val {
			out[i] = deepCopy(item)
		}
		return out
	default:
		return val
	}
}
