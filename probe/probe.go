// Package probe inspects a media file with ffprobe and extracts the two
// values a compression run needs: total duration and source frame height.
//
// Any failure (non-zero exit, unparseable JSON, no video stream, missing or
// non-positive duration) is reported as ErrAnalyze so callers can treat it as
// a single "could not analyze" outcome.
package probe

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"os/exec"
	"strconv"
	"strings"

	"vidcompress/sysproc"
)

// ErrAnalyze is returned for every probe failure.
var ErrAnalyze = errors.New("could not analyze video file")

var commandContext = exec.CommandContext

// Result is the decoded ffprobe JSON document.
type Result struct {
	Streams []Stream `json:"streams"`
	Format  Format   `json:"format"`
}

// Stream describes a single stream in the container.
type Stream struct {
	Index     int    `json:"index"`
	CodecName string `json:"codec_name"`
	CodecType string `json:"codec_type"`
	Width     int    `json:"width"`
	Height    int    `json:"height"`
	BitRate   string `json:"bit_rate"`
}

// Format captures container-level metadata.
type Format struct {
	Filename   string `json:"filename"`
	Duration   string `json:"duration"`
	Size       string `json:"size"`
	BitRate    string `json:"bit_rate"`
	FormatName string `json:"format_name"`
}

// Info is what a compression run needs from the source.
type Info struct {
	Duration float64
	Height   int
	Result   Result
}

// VideoStream returns the first video stream.
func (r Result) VideoStream() (Stream, bool) {
	for _, s := range r.Streams {
		if strings.EqualFold(s.CodecType, "video") {
			return s, true
		}
	}
	return Stream{}, false
}

// DurationSeconds returns the container duration, NaN when unparseable and
// 0 when absent.
func (r Result) DurationSeconds() float64 {
	return parseFloat(r.Format.Duration)
}

// SizeBytes returns the reported container size, or 0 when unavailable.
func (r Result) SizeBytes() int64 {
	size := parseFloat(r.Format.Size)
	if math.IsNaN(size) || size < 0 {
		return 0
	}
	return int64(size)
}

// Prober runs ffprobe.
type Prober struct {
	Binary string
}

// New returns a Prober using binary, or "ffprobe" from PATH when empty.
func New(binary string) *Prober {
	binary = strings.TrimSpace(binary)
	if binary == "" {
		binary = "ffprobe"
	}
	return &Prober{Binary: binary}
}

// Probe inspects path. Every error it returns wraps ErrAnalyze.
func (p *Prober) Probe(ctx context.Context, path string) (Info, error) {
	if strings.TrimSpace(path) == "" {
		return Info{}, fmt.Errorf("%w: empty path", ErrAnalyze)
	}

	cmd := commandContext(ctx, p.Binary,
		"-v", "error",
		"-print_format", "json",
		"-show_format",
		"-show_streams",
		path,
	)
	sysproc.HideConsole(cmd)

	output, err := cmd.Output()
	if err != nil {
		detail := ""
		var exitErr *exec.ExitError
		if errors.As(err, &exitErr) {
			detail = strings.TrimSpace(string(exitErr.Stderr))
		}
		if detail != "" {
			return Info{}, fmt.Errorf("%w: ffprobe: %v: %s", ErrAnalyze, err, detail)
		}
		return Info{}, fmt.Errorf("%w: ffprobe: %v", ErrAnalyze, err)
	}

	return Parse(output)
}

// Parse extracts Info from raw ffprobe JSON.
func Parse(data []byte) (Info, error) {
	var result Result
	if err := json.Unmarshal(data, &result); err != nil {
		return Info{}, fmt.Errorf("%w: parse ffprobe output: %v", ErrAnalyze, err)
	}

	duration := result.DurationSeconds()
	if math.IsNaN(duration) || math.IsInf(duration, 0) || duration <= 0 {
		return Info{}, fmt.Errorf("%w: invalid duration %q", ErrAnalyze, result.Format.Duration)
	}

	video, ok := result.VideoStream()
	if !ok {
		return Info{}, fmt.Errorf("%w: no video stream", ErrAnalyze)
	}
	if video.Height <= 0 {
		return Info{}, fmt.Errorf("%w: video stream has no height", ErrAnalyze)
	}

	return Info{Duration: duration, Height: video.Height, Result: result}, nil
}

func parseFloat(value string) float64 {
	cleaned := strings.TrimSpace(value)
	if cleaned == "" {
		return 0
	}
	if parsed, err := strconv.ParseFloat(cleaned, 64); err == nil {
		return parsed
	}
	return math.NaN()
}
