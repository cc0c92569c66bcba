package watcher

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestOptions_Defaults(t *testing.T) {
	opts := Options{}
	opts.setDefaults()

	assert.False(t, opts.IgnoreHidden)
	assert.Equal(t, 100*time.Millisecond, opts.SettleDelay)
	assert.Contains(t, opts.IgnorePatterns, ".DS_Store")
	assert.Contains(t, opts.IgnorePatterns, "*.part")
}

func TestOptions_CustomValues(t *testing.T) {
	opts := Options{
		IgnoreHidden:   true,
		SettleDelay:    200 * time.Millisecond,
		IgnorePatterns: []string{"*.bak"},
	}
	opts.setDefaults()

	assert.True(t, opts.IgnoreHidden)
	assert.Equal(t, 200*time.Millisecond, opts.SettleDelay)
	assert.Equal(t, []string{"*.bak"}, opts.IgnorePatterns)
}

func TestOptions_ShouldIgnore(t *testing.T) {
	opts := Options{IgnoreHidden: true}
	opts.setDefaults()

	tests := []struct {
		name   string
		path   string
		isDir  bool
		expect bool
	}{
		{"hidden directory", "/media/.trash", true, true},
		{"inside hidden directory", "/media/.trash/clip.mp4", false, true},
		{"hidden file in visible directory", "/media/live/.intro.mp4", false, false},
		{"DS_Store", "/media/.DS_Store", false, true},
		{"partial download", "/media/clip.mp4.part", false, true},
		{"video", "/media/clip.mp4", false, false},
		{"notebook", "/media/live/fosse.yml", false, false},
		{"outside root", "/elsewhere/clip.mp4", false, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expect, opts.shouldIgnore("/media", tt.path, tt.isDir))
		})
	}
}

func TestOptions_ShouldIgnore_RootInsideHiddenDirectory(t *testing.T) {
	opts := Options{IgnoreHidden: true}
	opts.setDefaults()

	assert.False(t, opts.shouldIgnore("/home/ana/.media", "/home/ana/.media/clip.mp4", false))
	assert.False(t, opts.shouldIgnore("/home/ana/.media", "/home/ana/.media/live", true))
}

func TestOptions_ShouldIgnore_HiddenDirectoriesWatchedByDefault(t *testing.T) {
	opts := Options{IgnorePatterns: []string{}}
	opts.setDefaults()

	assert.False(t, opts.shouldIgnore("/media", "/media/.archive", true))
	assert.False(t, opts.shouldIgnore("/media", "/media/.archive/clip.mp4", false))
	assert.False(t, opts.shouldIgnore("/media", "/media/clip.mp4.part", false))
}

func TestEventType_Merge(t *testing.T) {
	assert.Equal(t, EventCreated, EventCreated.merge(EventModified))
	assert.Equal(t, EventRemoved, EventCreated.merge(EventRemoved))
	assert.Equal(t, EventModified, EventModified.merge(EventModified))
	assert.Equal(t, "renamed", EventRenamed.String())
}
