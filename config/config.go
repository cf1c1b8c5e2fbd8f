package config

import (
	"errors"
	"fmt"
	"strings"

	"github.com/go-playground/validator/v10"
)

var (
	ErrInvalidSettings = errors.New("invalid settings")
	ErrUnknownProfile  = errors.New("unknown profile")
)

// Presets accepted by libx264, fastest first
var Presets = []string{
	"ultrafast", "superfast", "veryfast", "faster", "fast",
	"medium", "slow", "slower", "veryslow",
}

// AudioBitrates offered for the AAC track
var AudioBitrates = []string{"64k", "96k", "128k", "192k", "256k"}

// Heights offered as resize targets. 0 keeps the source height.
var Heights = []int{0, 360, 480, 720, 1080, 1440, 2160}

const (
	MinCRF = 0
	MaxCRF = 51
)

// Settings holds the user's choices for one compression run. It is passed by
// value and never mutated once a run starts.
type Settings struct {
	// CRF is the Constant Rate Factor (0-51, lower = better quality)
	CRF int `validate:"gte=0,lte=51" toml:"crf"`
	// Preset trades encode speed against compression efficiency
	Preset string `validate:"oneof=ultrafast superfast veryfast faster fast medium slow slower veryslow" toml:"preset"`
	// TargetHeight is the output height in pixels, 0 = keep original.
	// Values at or above the source height are ignored (no upscaling).
	TargetHeight int `validate:"gte=0,lte=8640" toml:"height"`
	// AudioBitrate is passed to -b:a verbatim
	AudioBitrate string `validate:"oneof=64k 96k 128k 192k 256k" toml:"audio_bitrate"`
}

var validate = validator.New()

// Validate reports every out-of-range field at once.
func (s Settings) Validate() error {
	err := validate.Struct(s)
	if err == nil {
		return nil
	}
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return fmt.Errorf("%w: %v", ErrInvalidSettings, err)
	}
	msgs := make([]string, 0, len(verrs))
	for _, e := range verrs {
		switch e.Tag() {
		case "gte", "lte":
			msgs = append(msgs, fmt.Sprintf("%s %v out of allowed range", e.Field(), e.Value()))
		case "oneof":
			msgs = append(msgs, fmt.Sprintf("%s %q must be one of [%s]", e.Field(), e.Value(), e.Param()))
		default:
			msgs = append(msgs, fmt.Sprintf("%s is invalid", e.Field()))
		}
	}
	return fmt.Errorf("%w: %s", ErrInvalidSettings, strings.Join(msgs, "; "))
}

// HeightLabel renders TargetHeight for display.
func (s Settings) HeightLabel() string {
	if s.TargetHeight <= 0 {
		return "Keep Original"
	}
	return fmt.Sprintf("%dp", s.TargetHeight)
}

// Profile represents a named starting point for Settings
type Profile string

const (
	ProfileDefault Profile = "default" // Balanced (CRF 26, medium)
	ProfileQuality Profile = "quality" // Larger files, visually close to source (CRF 20)
	ProfileSmall   Profile = "small"   // 720p, CRF 30, low audio bitrate
	ProfileFast    Profile = "fast"    // Default quality with a quick preset
	ProfileArchive Profile = "archive" // Near-transparent, slow (CRF 18)
)

// AvailableProfiles returns all available profile names
func AvailableProfiles() []Profile {
	return []Profile{ProfileDefault, ProfileQuality, ProfileSmall, ProfileFast, ProfileArchive}
}

// ParseProfile maps a user supplied name onto a known profile.
func ParseProfile(name string) (Profile, error) {
	p := Profile(strings.ToLower(strings.TrimSpace(name)))
	if p == "" {
		return ProfileDefault, nil
	}
	for _, known := range AvailableProfiles() {
		if p == known {
			return p, nil
		}
	}
	return "", fmt.Errorf("%w %q", ErrUnknownProfile, name)
}

// DefaultSettings returns the balanced profile
func DefaultSettings() Settings {
	return GetProfile(ProfileDefault)
}

// GetProfile returns the settings for a specific profile
func GetProfile(profile Profile) Settings {
	base := Settings{
		CRF:          26,
		Preset:       "medium",
		TargetHeight: 0,
		AudioBitrate: "96k",
	}

	switch profile {
	case ProfileQuality:
		base.CRF = 20
		base.Preset = "slow"
		base.AudioBitrate = "192k"

	case ProfileSmall:
		// Phones and chat uploads
		base.CRF = 30
		base.TargetHeight = 720
		base.AudioBitrate = "64k"

	case ProfileFast:
		base.Preset = "veryfast"

	case ProfileArchive:
		base.CRF = 18
		base.Preset = "slower"
		base.AudioBitrate = "256k"
	}

	return base
}

// ProfileDescription returns a human-readable description of a profile
func ProfileDescription(profile Profile) string {
	switch profile {
	case ProfileQuality:
		return "High quality (CRF 20) - visually close to the source, larger files"
	case ProfileSmall:
		return "Small (CRF 30, 720p) - for sharing, downscales larger sources"
	case ProfileFast:
		return "Fast (CRF 26, veryfast) - default quality, quicker encode"
	case ProfileArchive:
		return "Archive (CRF 18, slower) - near-transparent, slow"
	default:
		return "Default balanced (CRF 26) - good quality/size balance"
	}
}
