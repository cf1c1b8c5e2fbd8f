package probe

import (
	"context"
	"errors"
	"fmt"
	"math"
	"os"
	"os/exec"
	"testing"
)

const sampleJSON = `{
  "streams": [
    {"index": 0, "codec_name": "aac", "codec_type": "audio"},
    {"index": 1, "codec_name": "h264", "codec_type": "video", "width": 1920, "height": 1080},
    {"index": 2, "codec_name": "hevc", "codec_type": "video", "width": 640, "height": 360}
  ],
  "format": {"filename": "in.mp4", "duration": "3723.450000", "size": "1048576", "format_name": "mov,mp4"}
}`

func TestParse(t *testing.T) {
	info, err := Parse([]byte(sampleJSON))
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if math.Abs(info.Duration-3723.45) > 1e-9 {
		t.Errorf("Duration = %v", info.Duration)
	}
	if info.Height != 1080 {
		t.Errorf("Height = %d, want first video stream height 1080", info.Height)
	}
	if info.Result.SizeBytes() != 1048576 {
		t.Errorf("SizeBytes = %d", info.Result.SizeBytes())
	}
}

func TestParseFailuresAreAnalyzeErrors(t *testing.T) {
	tests := []struct {
		name string
		data string
	}{
		{"invalid json", `not json`},
		{"empty", ``},
		{"no streams key", `{"format": {"duration": "10.0"}}`},
		{"audio only", `{"streams": [{"codec_type": "audio"}], "format": {"duration": "10.0"}}`},
		{"missing duration", `{"streams": [{"codec_type": "video", "height": 720}], "format": {}}`},
		{"non-numeric duration", `{"streams": [{"codec_type": "video", "height": 720}], "format": {"duration": "N/A"}}`},
		{"zero duration", `{"streams": [{"codec_type": "video", "height": 720}], "format": {"duration": "0"}}`},
		{"negative duration", `{"streams": [{"codec_type": "video", "height": 720}], "format": {"duration": "-3"}}`},
		{"video without height", `{"streams": [{"codec_type": "video"}], "format": {"duration": "10.0"}}`},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			_, err := Parse([]byte(tc.data))
			if !errors.Is(err, ErrAnalyze) {
				t.Fatalf("Parse() err = %v, want ErrAnalyze", err)
			}
		})
	}
}

func TestResultHelpersHandleInvalidNumbers(t *testing.T) {
	result := Result{Format: Format{Duration: "bad", Size: "-1"}}
	if !math.IsNaN(result.DurationSeconds()) {
		t.Fatalf("expected duration NaN, got %v", result.DurationSeconds())
	}
	if result.SizeBytes() != 0 {
		t.Fatalf("expected size 0, got %d", result.SizeBytes())
	}
	if _, ok := result.VideoStream(); ok {
		t.Fatal("expected no video stream")
	}
}

func fakeProbe(t *testing.T, mode string, captured *[]string) {
	t.Helper()
	original := commandContext
	commandContext = func(ctx context.Context, name string, args ...string) *exec.Cmd {
		if captured != nil {
			*captured = append([]string{name}, args...)
		}
		cmd := exec.CommandContext(ctx, os.Args[0], "-test.run=TestHelperProcess")
		cmd.Env = append(os.Environ(), "GO_WANT_HELPER_PROCESS=1", "PROBE_HELPER_MODE="+mode)
		return cmd
	}
	t.Cleanup(func() {
		commandContext = original
	})
}

func TestProbeSuccess(t *testing.T) {
	var args []string
	fakeProbe(t, "success", &args)

	info, err := New("/opt/ffprobe").Probe(context.Background(), "/media/in.mp4")
	if err != nil {
		t.Fatalf("Probe: %v", err)
	}
	if info.Height != 1080 || info.Duration <= 0 {
		t.Fatalf("Probe() = %+v", info)
	}

	want := []string{"/opt/ffprobe", "-v", "error", "-print_format", "json", "-show_format", "-show_streams", "/media/in.mp4"}
	if fmt.Sprint(args) != fmt.Sprint(want) {
		t.Fatalf("args = %v, want %v", args, want)
	}
}

func TestProbeFailureModes(t *testing.T) {
	for _, mode := range []string{"failure", "badjson", "nostreams"} {
		t.Run(mode, func(t *testing.T) {
			fakeProbe(t, mode, nil)
			_, err := New("").Probe(context.Background(), "/media/in.mp4")
			if !errors.Is(err, ErrAnalyze) {
				t.Fatalf("Probe() err = %v, want ErrAnalyze", err)
			}
		})
	}
}

func TestProbeMissingBinary(t *testing.T) {
	_, err := New("/nonexistent/ffprobe").Probe(context.Background(), "/media/in.mp4")
	if !errors.Is(err, ErrAnalyze) {
		t.Fatalf("Probe() err = %v, want ErrAnalyze", err)
	}
}

func TestProbeEmptyPath(t *testing.T) {
	if _, err := New("").Probe(context.Background(), " "); !errors.Is(err, ErrAnalyze) {
		t.Fatalf("Probe() err = %v, want ErrAnalyze", err)
	}
}

func TestHelperProcess(t *testing.T) {
	if os.Getenv("GO_WANT_HELPER_PROCESS") != "1" {
		return
	}

	switch os.Getenv("PROBE_HELPER_MODE") {
	case "success":
		fmt.Print(sampleJSON)
		os.Exit(0)
	case "failure":
		fmt.Fprintln(os.Stderr, "/media/in.mp4: Invalid data found when processing input")
		os.Exit(1)
	case "badjson":
		fmt.Print("{\"streams\": [")
		os.Exit(0)
	case "nostreams":
		fmt.Print(`{"format": {"duration": "12.5"}}`)
		os.Exit(0)
	default:
		os.Exit(0)
	}
}
