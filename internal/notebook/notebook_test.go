package notebook

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fosse-media/fosse/internal/errors"
)

const sampleYAML = `
name: Summer Sessions
genre: Skate
subgenre: Street
platform: GoPro
title: Hero 9
under_influence: true
date_format: "%Y%m%d"
decoding:
  regexp: '^GX(?P<date>\d{8})_(?P<time>\d{6})_(?P<name>.+)$'
  date-group: date
  time_group: time
  name_group: 3
custom:
  nested: [1, 2.5, "x"]
`

func TestParse_RecognizedFields(t *testing.T) {
	nb, err := Parse([]byte(sampleYAML))
	require.NoError(t, err)

	name, ok := nb.EffectiveName()
	assert.True(t, ok)
	assert.Equal(t, "Summer Sessions", name)
	assert.False(t, nb.Skip())

	rule, ok := nb.DecodingRule()
	require.True(t, ok)
	assert.Equal(t, `^GX(?P<date>\d{8})_(?P<time>\d{6})_(?P<name>.+)$`, rule.Regexp)
	assert.Equal(t, "date", rule.DateGroup, "kebab-case key should be read")
	assert.Equal(t, "time", rule.TimeGroup)
	assert.Equal(t, "3", rule.NameGroup, "numeric group reference kept as text")

	f := nb.Fields()
	assert.Equal(t, "Skate", f.Genre)
	assert.Equal(t, "Street", f.Subgenre)
	assert.Equal(t, "GoPro", f.Platform)
	assert.Equal(t, "Hero 9", f.Title)
	assert.True(t, f.UnderInfluence)
	assert.Equal(t, "%Y%m%d", f.DateFormat)
	assert.Equal(t, DefaultTimeFormat, f.TimeFormat)
}

func TestParse_Defaults(t *testing.T) {
	nb, err := Parse([]byte("genre: Surf\n"))
	require.NoError(t, err)

	_, ok := nb.EffectiveName()
	assert.False(t, ok)
	assert.False(t, nb.Skip())
	_, ok = nb.DecodingRule()
	assert.False(t, ok)
	assert.Equal(t, DefaultDateFormat, nb.DateFormat())
	assert.Equal(t, DefaultTimeFormat, nb.TimeFormat())
	assert.False(t, nb.Fields().UnderInfluence)
}

func TestParse_EmptyDocument(t *testing.T) {
	for _, doc := range []string{"", "   \n", "# only a comment\n"} {
		nb, err := Parse([]byte(doc))
		require.NoError(t, err)
		assert.Equal(t, 0, nb.Len())
	}
}

func TestParse_Malformed(t *testing.T) {
	tests := []struct {
		name string
		doc  string
	}{
		{"unclosed flow sequence", "genre: Skate\nplatform: [unclosed\n"},
		{"tab indentation", "decoding:\n\tregexp: x\n"},
		{"scalar document", "just some text\n"},
		{"sequence document", "- a\n- b\n"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Parse([]byte(tt.doc))
			assert.Error(t, err)
		})
	}
}

func TestParse_SkipVariants(t *testing.T) {
	tests := []struct {
		doc  string
		want bool
	}{
		{"skip: true", true},
		{"skip: false", false},
		{`skip: "true"`, true},
		{"skip: 1", true},
		{"skip: 0", false},
		{"skip: maybe", false},
	}
	for _, tt := range tests {
		t.Run(tt.doc, func(t *testing.T) {
			nb, err := Parse([]byte(tt.doc))
			require.NoError(t, err)
			assert.Equal(t, tt.want, nb.Skip())
		})
	}
}

func TestDecodingRule_BlankRegexpIgnored(t *testing.T) {
	nb, err := Parse([]byte("decoding:\n  regexp: ''\n  date_group: 1\n"))
	require.NoError(t, err)
	_, ok := nb.DecodingRule()
	assert.False(t, ok)
}

func TestRawCopy_IsIndependent(t *testing.T) {
	nb, err := Parse([]byte(sampleYAML))
	require.NoError(t, err)

	raw := nb.RawCopy()
	raw["genre"] = "Changed"
	raw["decoding"].(map[string]any)["regexp"] = "changed"
	raw["custom"].(map[string]any)["nested"].([]any)[0] = "changed"

	g, _ := nb.String(KeyGenre)
	assert.Equal(t, "Skate", g)
	rule, _ := nb.DecodingRule()
	assert.NotEqual(t, "changed", rule.Regexp)

	again := nb.RawCopy()
	assert.NotEqual(t, "changed", again["custom"].(map[string]any)["nested"].([]any)[0])
}

func TestEqual(t *testing.T) {
	a, err := Parse([]byte("genre: Skate\nyear: 2021\n"))
	require.NoError(t, err)
	b, err := Parse([]byte("year: 2021\ngenre: Skate\n"))
	require.NoError(t, err)
	c, err := Parse([]byte("genre: Surf\nyear: 2021\n"))
	require.NoError(t, err)

	assert.True(t, a.Equal(b), "key order must not matter")
	assert.False(t, a.Equal(c))
	assert.False(t, a.Equal(nil))

	var nilNB *Notebook
	assert.True(t, nilNB.Equal(nil))
}

func TestEqual_SurvivesJSONStorage(t *testing.T) {
	parsed, err := Parse([]byte(sampleYAML))
	require.NoError(t, err)

	stored, err := parsed.MarshalJSON()
	require.NoError(t, err)

	restored, err := FromJSON(stored)
	require.NoError(t, err)

	assert.True(t, parsed.Equal(restored), "notebook read back from the catalog must equal the parsed one")
}

func TestEqual_IntegerAndFloatSpellings(t *testing.T) {
	a, err := Parse([]byte("fps: 30\n"))
	require.NoError(t, err)
	b, err := Parse([]byte("fps: 30.0\n"))
	require.NoError(t, err)

	assert.True(t, a.Equal(b))
}

func TestFromMap(t *testing.T) {
	nb, err := FromMap(map[string]any{"genre": "Skate", "count": 3})
	require.NoError(t, err)

	other, err := Parse([]byte("genre: Skate\ncount: 3\n"))
	require.NoError(t, err)
	assert.True(t, nb.Equal(other))

	empty, err := FromMap(nil)
	require.NoError(t, err)
	assert.Equal(t, 0, empty.Len())
}

func TestLoad(t *testing.T) {
	dir := t.TempDir()

	good := filepath.Join(dir, DefaultFilename)
	require.NoError(t, os.WriteFile(good, []byte("genre: Skate\n"), 0o644))
	nb, err := Load(good)
	require.NoError(t, err)
	assert.Equal(t, []string{"genre"}, nb.Keys())

	bad := filepath.Join(dir, "bad.yml")
	require.NoError(t, os.WriteFile(bad, []byte("genre: [\n"), 0o644))
	_, err = Load(bad)
	require.Error(t, err)
	assert.True(t, errors.Is(err, errors.ErrConfigParse))
	assert.Contains(t, err.Error(), bad)

	_, err = Load(filepath.Join(dir, "missing.yml"))
	assert.True(t, errors.Is(err, errors.ErrConfigParse))
}
