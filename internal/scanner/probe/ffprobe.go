// Package probe extracts technical metadata from video files.
package probe

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/exec"
	"strconv"
	"strings"
	"sync"

	"github.com/fosse-media/fosse/internal/domain"
)

// Extractor reads technical metadata from a media file.
//
// Extract never fails because a track is unreadable or the file format is
// unsupported; it returns defaults instead. An error means the file itself
// could not be read, and the returned metadata is still usable defaults.
type Extractor interface {
	Extract(ctx context.Context, path string) (domain.TechnicalMetadata, error)
}

// Defaults is an Extractor that only records the file size.
type Defaults struct{}

// Extract implements Extractor.
func (Defaults) Extract(_ context.Context, path string) (domain.TechnicalMetadata, error) {
	meta := domain.DefaultTechnicalMetadata()
	info, err := os.Stat(path)
	if err != nil {
		return meta, fmt.Errorf("stat %s: %w", path, err)
	}
	meta.FileSizeBytes = info.Size()
	return meta, nil
}

// runFunc executes a command and returns its standard output.
type runFunc func(ctx context.Context, name string, args ...string) ([]byte, error)

func execRun(ctx context.Context, name string, args ...string) ([]byte, error) {
	return exec.CommandContext(ctx, name, args...).Output()
}

// FFprobe extracts metadata by running ffprobe.
type FFprobe struct {
	binary string
	logger *slog.Logger
	run    runFunc

	missing sync.Once
}

// NewFFprobe creates an extractor that runs binary ("ffprobe" when empty).
func NewFFprobe(binary string, logger *slog.Logger) *FFprobe {
	if binary == "" {
		binary = "ffprobe"
	}
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &FFprobe{binary: binary, logger: logger, run: execRun}
}

// Extract implements Extractor.
func (p *FFprobe) Extract(ctx context.Context, path string) (domain.TechnicalMetadata, error) {
	meta, err := Defaults{}.Extract(ctx, path)
	if err != nil {
		return meta, err
	}

	output, err := p.run(ctx, p.binary,
		"-v", "quiet",
		"-print_format", "json",
		"-show_format",
		"-show_streams",
		path,
	)
	if err != nil {
		if errors.Is(err, exec.ErrNotFound) {
			p.missing.Do(func() {
				p.logger.Warn("ffprobe not available, technical metadata will use defaults", "binary", p.binary)
			})
		} else {
			p.logger.Debug("ffprobe failed", "path", path, "error", err)
		}
		return meta, nil
	}

	if err := parseOutput(output, &meta); err != nil {
		p.logger.Debug("unreadable ffprobe output", "path", path, "error", err)
	}
	return meta, nil
}

// parseOutput fills meta from ffprobe's JSON. Fields ffprobe does not
// report keep their current values.
func parseOutput(output []byte, meta *domain.TechnicalMetadata) error {
	var data ffprobeOutput
	if err := json.Unmarshal(output, &data); err != nil {
		return fmt.Errorf("parse ffprobe output: %w", err)
	}
	parseFormatInfo(&data.Format, meta)
	parseVideoStream(data.Streams, meta)
	return nil
}

// parseFormatInfo extracts container-level information.
func parseFormatInfo(format *ffprobeFormat, meta *domain.TechnicalMetadata) {
	if format.FormatName != "" {
		// "mov,mp4,m4a,3gp,3g2,mj2" -> "mov"
		meta.VideoFormat = strings.Split(format.FormatName, ",")[0]
	}
	if dur, err := strconv.ParseFloat(format.Duration, 64); err == nil && dur > 0 {
		meta.DurationSeconds = dur
	}
	if size, err := strconv.ParseInt(format.Size, 10, 64); err == nil && size > 0 {
		meta.FileSizeBytes = size
	}
	if br, err := strconv.ParseInt(format.BitRate, 10, 64); err == nil && br > 0 {
		meta.BitRate = br
	}
}

// parseVideoStream reads the first video stream.
func parseVideoStream(streams []ffprobeStream, meta *domain.TechnicalMetadata) {
	for _, stream := range streams {
		if stream.CodecType != "video" {
			continue
		}
		if stream.CodecName != "" {
			meta.Codec = stream.CodecName
		}
		meta.Width = stream.Width
		meta.Height = stream.Height

		fps := parseRate(stream.RFrameRate)
		if fps == 0 {
			fps = parseRate(stream.AvgFrameRate)
		}
		meta.FrameRate = fps

		if ar := stream.DisplayAspectRatio; ar != "" && ar != "N/A" && !strings.HasPrefix(ar, "0:") {
			meta.AspectRatio = ar
		}
		return
	}
}

// parseRate converts "30000/1001" or "25" to frames per second. Invalid or
// zero-denominator rates yield 0.
func parseRate(s string) float64 {
	if s == "" {
		return 0
	}
	num, den, found := strings.Cut(s, "/")
	n, err := strconv.ParseFloat(num, 64)
	if err != nil {
		return 0
	}
	if !found {
		return n
	}
	d, err := strconv.ParseFloat(den, 64)
	if err != nil || d == 0 {
		return 0
	}
	return n / d
}

type ffprobeOutput struct {
	Format  ffprobeFormat   `json:"format"`
	Streams []ffprobeStream `json:"streams"`
}

type ffprobeFormat struct {
	FormatName string `json:"format_name"`
	Duration   string `json:"duration"`
	Size       string `json:"size"`
	BitRate    string `json:"bit_rate"`
}

type ffprobeStream struct {
	CodecType          string `json:"codec_type"`
	CodecName          string `json:"codec_name"`
	Width              int    `json:"width"`
	Height             int    `json:"height"`
	RFrameRate         string `json:"r_frame_rate"`
	AvgFrameRate       string `json:"avg_frame_rate"`
	DisplayAspectRatio string `json:"display_aspect_ratio"`
}
