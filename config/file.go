package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"runtime"
	"strings"

	"github.com/pelletier/go-toml/v2"
)

const appName = "vidcompress"

// SettingsOverrides are optional per-field replacements for a profile.
type SettingsOverrides struct {
	CRF          *int    `toml:"crf"`
	Preset       *string `toml:"preset"`
	Height       *int    `toml:"height"`
	AudioBitrate *string `toml:"audio_bitrate"`
}

// Apply returns s with every set override copied over it.
func (o SettingsOverrides) Apply(s Settings) Settings {
	if o.CRF != nil {
		s.CRF = *o.CRF
	}
	if o.Preset != nil {
		s.Preset = strings.TrimSpace(*o.Preset)
	}
	if o.Height != nil {
		s.TargetHeight = *o.Height
	}
	if o.AudioBitrate != nil {
		s.AudioBitrate = strings.TrimSpace(*o.AudioBitrate)
	}
	return s
}

// File is the on-disk configuration.
type File struct {
	FFmpegPath  string            `toml:"ffmpeg_path"`
	FFprobePath string            `toml:"ffprobe_path"`
	LogDir      string            `toml:"log_dir"`
	LogLevel    string            `toml:"log_level"`
	LogFormat   string            `toml:"log_format"`
	Profile     string            `toml:"profile"`
	Settings    SettingsOverrides `toml:"settings"`
}

// DefaultFile returns the configuration used when no file exists.
func DefaultFile() File {
	return File{
		LogLevel:  "info",
		LogFormat: "text",
		Profile:   string(ProfileDefault),
	}
}

// DefaultPath is $XDG_CONFIG_HOME/vidcompress/config.toml (or the platform
// equivalent).
func DefaultPath() (string, error) {
	dir, err := os.UserConfigDir()
	if err != nil {
		return "", fmt.Errorf("resolve config dir: %w", err)
	}
	return filepath.Join(dir, appName, "config.toml"), nil
}

// Load reads a TOML config. A missing file yields DefaultFile.
func Load(path string) (File, error) {
	cfg := DefaultFile()

	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return cfg, nil
		}
		return File{}, fmt.Errorf("read config %s: %w", path, err)
	}

	if err := toml.Unmarshal(data, &cfg); err != nil {
		return File{}, fmt.Errorf("parse config %s: %w", path, err)
	}

	if strings.TrimSpace(cfg.LogLevel) == "" {
		cfg.LogLevel = "info"
	}
	if strings.TrimSpace(cfg.LogFormat) == "" {
		cfg.LogFormat = "text"
	}
	if strings.TrimSpace(cfg.Profile) == "" {
		cfg.Profile = string(ProfileDefault)
	}
	return cfg, nil
}

// ResolveSettings resolves the configured profile and applies the overrides.
func (f File) ResolveSettings() (Settings, error) {
	profile, err := ParseProfile(f.Profile)
	if err != nil {
		return Settings{}, err
	}
	return f.Settings.Apply(GetProfile(profile)), nil
}

// ResolvedLogDir falls back to the user cache dir.
func (f File) ResolvedLogDir() string {
	if dir := strings.TrimSpace(f.LogDir); dir != "" {
		return dir
	}
	if dir, err := os.UserCacheDir(); err == nil {
		return filepath.Join(dir, appName)
	}
	return filepath.Join(os.TempDir(), appName)
}

// FFmpeg returns the ffmpeg binary to invoke.
func (f File) FFmpeg() string {
	return ResolveBinary(f.FFmpegPath, "ffmpeg")
}

// FFprobe returns the ffprobe binary to invoke.
func (f File) FFprobe() string {
	return ResolveBinary(f.FFprobePath, "ffprobe")
}

var executablePath = os.Executable

// ResolveBinary picks, in order: the configured path, a copy bundled next to
// the running executable, then the bare name for PATH lookup.
func ResolveBinary(configured, name string) string {
	if p := strings.TrimSpace(configured); p != "" {
		return p
	}
	if runtime.GOOS == "windows" {
		name += ".exe"
	}
	if exe, err := executablePath(); err == nil {
		bundled := filepath.Join(filepath.Dir(exe), name)
		if info, err := os.Stat(bundled); err == nil && !info.IsDir() {
			return bundled
		}
	}
	return name
}

// DefaultOutputPath places <name>_compressed.mp4 next to the input.
func DefaultOutputPath(input string) string {
	dir := filepath.Dir(input)
	base := strings.TrimSuffix(filepath.Base(input), filepath.Ext(input))
	return filepath.Join(dir, base+"_compressed.mp4")
}
