package scanner

import (
	"fmt"
	"path/filepath"
	"regexp"
	"strconv"
	"sync"
	"time"

	"github.com/ncruces/go-strftime"

	"github.com/fosse-media/fosse/internal/domain"
	"github.com/fosse-media/fosse/internal/notebook"
)

// Decoder pulls a display name and recording date out of file names using
// the effective notebook's decoding rule. Compiled patterns are cached.
type Decoder struct {
	patterns sync.Map // string → *regexp.Regexp or error
}

// Decoding is the outcome of decoding one file name.
type Decoding struct {
	RecordingDate *time.Time
	DisplayName   string
	// Err explains why no recording date was produced when a rule was
	// configured. It is informational only.
	Err error
}

// Decode applies nb's decoding rule to the base name of path. The display
// name falls back to the notebook-independent file stem; a missing or
// unparseable date leaves RecordingDate nil.
func (d *Decoder) Decode(path string, nb *notebook.Notebook) Decoding {
	out := Decoding{DisplayName: domain.Stem(path)}

	rule, ok := nb.DecodingRule()
	if !ok {
		return out
	}

	re, err := d.compile(rule.Regexp)
	if err != nil {
		out.Err = err
		return out
	}

	m := re.FindStringSubmatch(filepath.Base(path))
	if m == nil {
		out.Err = fmt.Errorf("file name does not match %q", rule.Regexp)
		return out
	}

	if name := group(re, m, rule.NameGroup); name != "" {
		out.DisplayName = name
	}

	if rule.DateGroup == "" {
		return out
	}
	date := group(re, m, rule.DateGroup)
	if date == "" {
		out.Err = fmt.Errorf("date group %q is empty", rule.DateGroup)
		return out
	}
	recorded, err := parseRecording(date, nb.DateFormat(), group(re, m, rule.TimeGroup), nb.TimeFormat())
	if err != nil {
		out.Err = err
		return out
	}
	out.RecordingDate = &recorded
	return out
}

func (d *Decoder) compile(pattern string) (*regexp.Regexp, error) {
	if v, ok := d.patterns.Load(pattern); ok {
		if re, ok := v.(*regexp.Regexp); ok {
			return re, nil
		}
		return nil, v.(error)
	}
	re, err := regexp.Compile(pattern)
	if err != nil {
		err = fmt.Errorf("invalid decoding regexp: %w", err)
		d.patterns.Store(pattern, err)
		return nil, err
	}
	d.patterns.Store(pattern, re)
	return re, nil
}

// group returns the submatch named or numbered by ref, or "".
func group(re *regexp.Regexp, m []string, ref string) string {
	if ref == "" {
		return ""
	}
	idx, err := strconv.Atoi(ref)
	if err != nil {
		idx = re.SubexpIndex(ref)
	}
	if idx < 0 || idx >= len(m) {
		return ""
	}
	return m[idx]
}

// parseRecording combines a date and an optional time of day. A time that
// fails to parse is an error; an absent one means midnight.
func parseRecording(date, dateFormat, clock, timeFormat string) (time.Time, error) {
	day, err := strftime.Parse(dateFormat, date)
	if err != nil {
		return time.Time{}, fmt.Errorf("parse date %q with %q: %w", date, dateFormat, err)
	}
	var hh, mm, ss int
	if clock != "" {
		tod, err := strftime.Parse(timeFormat, clock)
		if err != nil {
			return time.Time{}, fmt.Errorf("parse time %q with %q: %w", clock, timeFormat, err)
		}
		hh, mm, ss = tod.Clock()
	}
	return time.Date(day.Year(), day.Month(), day.Day(), hh, mm, ss, 0, time.UTC), nil
}
