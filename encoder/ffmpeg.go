package encoder

import (
	"bufio"
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/exec"
	"regexp"
	"strconv"
	"strings"

	"github.com/google/uuid"

	"vidcompress/config"
	"vidcompress/probe"
	"vidcompress/sysproc"
)

const (
	msgAnalyzing     = "Analyzing video..."
	msgAnalyzeFailed = "Error: Could not analyze video file."
	msgFFmpegFailed  = "Error: FFmpeg failed. See log for details."

	bytesPerMB = 1024 * 1024
	maxLogs    = 100
	// room for a burst of progress lines while the consumer redraws
	eventBuffer = 64
)

var (
	commandContext = exec.CommandContext

	// time=HH:MM:SS.ff; the fractional part is matched but not used
	timeRe = regexp.MustCompile(`time=(\d{2}):(\d{2}):(\d{2})\.(\d{2})`)
)

// Prober reports the duration and height of a media file.
type Prober interface {
	Probe(ctx context.Context, path string) (probe.Info, error)
}

// Job is one input/output pair plus the settings to encode it with.
type Job struct {
	InputPath  string
	OutputPath string
	Settings   config.Settings
}

// Runner drives ffmpeg for a single Job at a time.
type Runner struct {
	FFmpeg string
	Prober Prober
	Logger *slog.Logger
}

// New creates a Runner. An empty binary means "ffmpeg" from PATH.
func New(ffmpeg string, prober Prober, logger *slog.Logger) *Runner {
	if strings.TrimSpace(ffmpeg) == "" {
		ffmpeg = "ffmpeg"
	}
	return &Runner{FFmpeg: ffmpeg, Prober: prober, Logger: logger}
}

// clampPercentage ensures percentage is within 0-100 range
func clampPercentage(pct float64) float64 {
	if pct < 0 {
		return 0
	}
	if pct > 100 {
		return 100
	}
	return pct
}

// BuildArgs constructs the ffmpeg arguments. The scale filter is only added
// when it shrinks the picture.
func BuildArgs(job Job, sourceHeight int) []string {
	s := job.Settings
	args := []string{
		"-i", job.InputPath,
		"-y",
		"-vcodec", "libx264",
		"-crf", strconv.Itoa(s.CRF),
		"-preset", s.Preset,
		"-acodec", "aac",
		"-b:a", s.AudioBitrate,
		"-threads", "0",
	}

	if s.TargetHeight > 0 && s.TargetHeight < sourceHeight {
		args = append(args, "-vf", fmt.Sprintf("scale=-2:%d", s.TargetHeight))
	}

	return append(args, job.OutputPath)
}

// Start runs the job on its own goroutine. The channel carries every event
// and is closed after the terminal one.
func (r *Runner) Start(ctx context.Context, job Job) <-chan Event {
	events := make(chan Event, eventBuffer)
	go func() {
		defer close(events)
		r.Run(ctx, job, func(ev Event) {
			select {
			case events <- ev:
			case <-ctx.Done():
				// nobody may be listening any more
				select {
				case events <- ev:
				default:
				}
			}
		})
	}()
	return events
}

// Run blocks until ffmpeg exits. sink receives zero or more progress events
// followed by exactly one success or error event.
func (r *Runner) Run(ctx context.Context, job Job, sink Sink) {
	log := r.logger().With("run_id", uuid.NewString())

	final := unexpectedEvent(errors.New("run ended without a result"))
	defer func() {
		if p := recover(); p != nil {
			log.Error("runner panic", "panic", p)
			final = unexpectedEvent(fmt.Errorf("%v", p))
		}
		sink(final)
	}()

	final = r.run(ctx, job, sink, log)
}

func (r *Runner) run(ctx context.Context, job Job, sink Sink, log *slog.Logger) Event {
	sink(progressEvent(0, msgAnalyzing))

	if err := job.Settings.Validate(); err != nil {
		log.Error("rejected settings", "error", err)
		return unexpectedEvent(err)
	}
	if r.Prober == nil {
		return unexpectedEvent(errors.New("no prober configured"))
	}

	info, err := r.Prober.Probe(ctx, job.InputPath)
	if err != nil || info.Duration <= 0 {
		log.Warn("analysis failed", "input", job.InputPath, "error", err)
		return errorEvent(msgAnalyzeFailed)
	}
	log.Info("analyzed input",
		"input", job.InputPath,
		"duration_s", info.Duration,
		"height", info.Height,
	)

	args := BuildArgs(job, info.Height)
	cmd := commandContext(ctx, r.FFmpeg, args...)
	sysproc.HideConsole(cmd)
	log.Debug("starting ffmpeg", "command", r.FFmpeg+" "+strings.Join(args, " "))

	stderr, err := cmd.StderrPipe()
	if err != nil {
		return unexpectedEvent(fmt.Errorf("failed to get stderr pipe: %w", err))
	}
	if err := cmd.Start(); err != nil {
		return unexpectedEvent(fmt.Errorf("failed to start ffmpeg: %w", err))
	}

	tail, scanErr := captureStderr(stderr, info.Duration, sink)
	if scanErr != nil {
		log.Warn("ffmpeg output reader stopped", "error", scanErr)
		// keep the pipe drained so ffmpeg never blocks on a full buffer
		_, _ = io.Copy(io.Discard, stderr)
	}

	if err := cmd.Wait(); err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return unexpectedEvent(ctxErr)
		}
		var exitErr *exec.ExitError
		if errors.As(err, &exitErr) {
			log.Error("ffmpeg failed",
				"exit_code", exitErr.ExitCode(),
				"stderr", strings.Join(tail, "\n"),
			)
			return errorEvent(msgFFmpegFailed)
		}
		return unexpectedEvent(fmt.Errorf("waiting for ffmpeg: %w", err))
	}

	out, err := os.Stat(job.OutputPath)
	if err != nil {
		return unexpectedEvent(err)
	}
	sizeMB := float64(out.Size()) / bytesPerMB
	log.Info("compression finished", "output", job.OutputPath, "bytes", out.Size())
	return successEvent(fmt.Sprintf("Success! New file size: %.2f MB", sizeMB), sizeMB)
}

func (r *Runner) logger() *slog.Logger {
	if r.Logger != nil {
		return r.Logger
	}
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func unexpectedEvent(err error) Event {
	return errorEvent(fmt.Sprintf("An unexpected error occurred: %v", err))
}

// parseProgress turns a stderr line into a progress event, if it carries a
// timestamp.
func parseProgress(line string, totalSeconds float64) (Event, bool) {
	if totalSeconds <= 0 {
		return Event{}, false
	}
	m := timeRe.FindStringSubmatch(line)
	if m == nil {
		return Event{}, false
	}
	h, _ := strconv.Atoi(m[1])
	min, _ := strconv.Atoi(m[2])
	s, _ := strconv.Atoi(m[3])

	elapsed := float64(h*3600 + min*60 + s)
	pct := clampPercentage(elapsed / totalSeconds * 100)
	return progressEvent(pct, fmt.Sprintf("Compressing... %d%%", int(pct))), true
}

// captureStderr reads ffmpeg's stderr until EOF, emitting progress and
// keeping the last maxLogs non-progress lines for the failure log.
func captureStderr(r io.Reader, totalSeconds float64, sink Sink) ([]string, error) {
	scanner := bufio.NewScanner(r)
	const maxScannerBuffer = 1024 * 1024
	scanner.Buffer(make([]byte, 0, 64*1024), maxScannerBuffer)
	scanner.Split(scanLines)

	var tail []string
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}

		if ev, ok := parseProgress(line, totalSeconds); ok {
			sink(ev)
		}

		if strings.HasPrefix(line, "frame=") || strings.HasPrefix(line, "size=") {
			continue
		}
		tail = append(tail, line)
		if len(tail) > maxLogs {
			tail = tail[len(tail)-maxLogs:]
		}
	}
	return tail, scanner.Err()
}

// scanLines is bufio.ScanLines that also breaks on a bare '\r'; ffmpeg
// redraws its status line with carriage returns.
func scanLines(data []byte, atEOF bool) (advance int, token []byte, err error) {
	if atEOF && len(data) == 0 {
		return 0, nil, nil
	}
	if i := bytes.IndexAny(data, "\r\n"); i >= 0 {
		return i + 1, data[:i], nil
	}
	if atEOF {
		return len(data), data, nil
	}
	return 0, nil, nil
}

// SizeRatio returns the output size as a percentage of the input size.
func SizeRatio(inputPath, outputPath string) (float64, error) {
	in, err := os.Stat(inputPath)
	if err != nil {
		return 0, err
	}
	out, err := os.Stat(outputPath)
	if err != nil {
		return 0, err
	}
	if in.Size() == 0 {
		return 0, fmt.Errorf("input %s is empty", inputPath)
	}
	return float64(out.Size()) / float64(in.Size()) * 100, nil
}
