package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/gofrs/flock"
	"github.com/mattn/go-isatty"
	"github.com/spf13/cobra"

	"vidcompress/config"
	"vidcompress/encoder"
	"vidcompress/logging"
	"vidcompress/probe"
	"vidcompress/tui"
)

// errRunFailed is returned after the failure has already been shown.
var errRunFailed = errors.New("compression failed")

type compressOptions struct {
	profile      string
	crf          int
	preset       string
	height       int
	audioBitrate string
	output       string
	plain        bool
}

func newCompressCommand(ctx *commandContext) *cobra.Command {
	opts := &compressOptions{}

	cmd := &cobra.Command{
		Use:   "vidcompress [flags] <input-file>",
		Short: "Compress a video with ffmpeg (H.264/AAC)",
		Long: `Compress a video to H.264/AAC MP4 with ffmpeg.

Settings start from a profile (see "vidcompress profiles"), then the
[settings] table of the config file, then any flags given here.`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			settings, err := resolveSettings(cmd, cfg, opts)
			if err != nil {
				return err
			}
			return runCompress(cmd, cfg, opts, args[0], settings)
		},
	}

	opts.bind(cmd)

	return cmd
}

func (o *compressOptions) bind(cmd *cobra.Command) {
	flags := cmd.Flags()
	flags.StringVar(&o.profile, "profile", "", "Encoding profile (default, quality, small, fast, archive)")
	flags.IntVar(&o.crf, "crf", 0, "Constant rate factor (0-51, lower is better quality)")
	flags.StringVar(&o.preset, "preset", "", "x264 preset (ultrafast ... veryslow)")
	flags.IntVar(&o.height, "height", 0, "Target height in pixels, 0 keeps the source resolution")
	flags.StringVar(&o.audioBitrate, "audio-bitrate", "", "AAC bitrate (64k, 96k, 128k, 192k, 256k)")
	flags.StringVarP(&o.output, "output", "o", "", "Output file (default: <input>_compressed.mp4)")
	flags.BoolVar(&o.plain, "plain", false, "Print progress lines instead of the interactive view")
}

// resolveSettings layers profile, config overrides and flags.
func resolveSettings(cmd *cobra.Command, cfg config.File, opts *compressOptions) (config.Settings, error) {
	flags := cmd.Flags()
	if flags.Changed("profile") {
		cfg.Profile = opts.profile
	}
	settings, err := cfg.ResolveSettings()
	if err != nil {
		return config.Settings{}, err
	}

	var overrides config.SettingsOverrides
	if flags.Changed("crf") {
		overrides.CRF = &opts.crf
	}
	if flags.Changed("preset") {
		overrides.Preset = &opts.preset
	}
	if flags.Changed("height") {
		overrides.Height = &opts.height
	}
	if flags.Changed("audio-bitrate") {
		overrides.AudioBitrate = &opts.audioBitrate
	}
	settings = overrides.Apply(settings)

	if err := settings.Validate(); err != nil {
		return config.Settings{}, err
	}
	return settings, nil
}

func runCompress(cmd *cobra.Command, cfg config.File, opts *compressOptions, input string, settings config.Settings) error {
	input = strings.TrimSpace(input)
	info, err := os.Stat(input)
	if err != nil {
		return fmt.Errorf("input file: %w", err)
	}
	if info.IsDir() {
		return fmt.Errorf("input %s is a directory", input)
	}

	output := strings.TrimSpace(opts.output)
	if output == "" {
		output = config.DefaultOutputPath(input)
	}
	if samePath(input, output) {
		return fmt.Errorf("output %s would overwrite the input", output)
	}

	plain := opts.plain || !isTerminal(os.Stdout)

	logOpts := logging.Options{Level: cfg.LogLevel, Format: cfg.LogFormat, Writer: cmd.ErrOrStderr()}
	if !plain {
		// the alternate screen owns the terminal
		logOpts.Dir = cfg.ResolvedLogDir()
	}
	logger, closeLog, err := logging.New(logOpts)
	if err != nil {
		return err
	}
	defer func() { _ = closeLog() }()

	lock := flock.New(output + ".lock")
	locked, err := lock.TryLock()
	if err != nil {
		return fmt.Errorf("lock output: %w", err)
	}
	if !locked {
		return fmt.Errorf("another vidcompress is already writing %s", output)
	}
	defer func() {
		_ = lock.Unlock()
		_ = os.Remove(lock.Path())
	}()

	logger.Info("compression requested",
		slog.String("input", input),
		slog.String("output", output),
		slog.String("ffmpeg", cfg.FFmpeg()),
		slog.String("ffprobe", cfg.FFprobe()),
	)

	runner := encoder.New(cfg.FFmpeg(), probe.New(cfg.FFprobe()), logger)
	job := encoder.Job{InputPath: input, OutputPath: output, Settings: settings}

	runCtx, cancel := context.WithCancel(cmd.Context())
	defer cancel()

	if plain {
		return runPlain(runCtx, cmd.OutOrStdout(), runner, job)
	}
	return runInteractive(runCtx, runner, job)
}

// runSession owns the context of the runs started from the TUI and the
// stream of the latest one.
type runSession struct {
	ctx    context.Context
	cancel context.CancelFunc
	runner *encoder.Runner
	job    encoder.Job

	mu     sync.Mutex
	events <-chan encoder.Event
}

func newRunSession(parent context.Context, runner *encoder.Runner, job encoder.Job) *runSession {
	ctx, cancel := context.WithCancel(parent)
	return &runSession{ctx: ctx, cancel: cancel, runner: runner, job: job}
}

func (s *runSession) start() <-chan encoder.Event {
	events := s.runner.Start(s.ctx, s.job)
	s.mu.Lock()
	s.events = events
	s.mu.Unlock()
	return events
}

// stop cancels the active run and blocks until its stream is closed, which
// happens only after ffmpeg has been reaped.
func (s *runSession) stop() {
	s.cancel()
	s.mu.Lock()
	events := s.events
	s.mu.Unlock()
	if events == nil {
		return
	}
	for range events {
	}
}

func runInteractive(ctx context.Context, runner *encoder.Runner, job encoder.Job) error {
	session := newRunSession(ctx, runner, job)
	defer session.stop()

	final, err := tea.NewProgram(tui.NewModel(job, session.start), tea.WithAltScreen()).Run()
	if err != nil {
		return fmt.Errorf("run interface: %w", err)
	}
	if m, ok := final.(tui.Model); ok && m.State != tui.StateSucceeded {
		if m.State == tui.StateFailed {
			fmt.Fprintln(os.Stderr, m.ErrorMessage)
		}
		return errRunFailed
	}
	return nil
}

// runPlain prints one line per status change and returns errRunFailed
// unless the run succeeded.
func runPlain(ctx context.Context, w io.Writer, runner *encoder.Runner, job encoder.Job) error {
	lastPct := -1
	var final encoder.Event
	for ev := range runner.Start(ctx, job) {
		if ev.Terminal() {
			final = ev
			fmt.Fprintln(w, ev.Message)
			continue
		}
		pct := int(ev.Value)
		if ev.Analyzing() || pct != lastPct {
			fmt.Fprintln(w, ev.Message)
			lastPct = pct
		}
	}
	if final.Status != encoder.StatusSuccess {
		return errRunFailed
	}
	return nil
}

func isTerminal(f *os.File) bool {
	return isatty.IsTerminal(f.Fd()) || isatty.IsCygwinTerminal(f.Fd())
}

func samePath(a, b string) bool {
	absA, errA := filepath.Abs(a)
	absB, errB := filepath.Abs(b)
	if errA != nil || errB != nil {
		return filepath.Clean(a) == filepath.Clean(b)
	}
	return absA == absB
}
