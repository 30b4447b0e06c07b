// Package config holds the compositor's configuration. A Config value is
// built from documented defaults, optionally overlaid from a YAML file,
// and passed explicitly into the sequencer and expanders; there are no
// ambient package-level settings.
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/ivlev/adv2video/internal/layout"
)

// Position is a seat's base placement as canvas ratios plus a base scale.
type Position struct {
	X     float64 `yaml:"x"`
	Y     float64 `yaml:"y"`
	Scale float64 `yaml:"scale"`
}

// Eyecatch is the optional fixed-duration leading element. It shifts the
// whole timeline by Duration and carries no animation.
type Eyecatch struct {
	Image    string  `yaml:"image"`
	Duration float64 `yaml:"duration"`
}

type Config struct {
	Width  int `yaml:"width"`
	Height int `yaml:"height"`
	FPS    int `yaml:"fps"`

	// Padding is the fixed gap inserted after each line's audio before the
	// next line starts, in seconds.
	Padding float64 `yaml:"padding"`
	// SafetyTrim is subtracted from each measured audio duration so
	// playback never reads past the physical end of the WAV.
	SafetyTrim float64 `yaml:"safety_trim"`

	Layout map[string]Position `yaml:"layout"`

	// Subtitle band geometry (the band itself is rendered downstream).
	PlateHeightRatio float64 `yaml:"plate_height_ratio"`
	PlateOpacity     float64 `yaml:"plate_opacity"`

	Eyecatch *Eyecatch `yaml:"eyecatch"`

	Speakers       map[string]int `yaml:"speakers"`
	DefaultSpeaker string         `yaml:"default_speaker"`

	VoicevoxURL string `yaml:"voicevox_url"`

	// Prefetch bounds how many synthesis requests may be in flight at
	// once. Results are always consumed in script order.
	Prefetch int `yaml:"prefetch"`

	// SlideDistance is the pixel displacement used by the DSL's
	// left-in / right-in entrance tokens.
	SlideDistance float64 `yaml:"slide_distance"`
}

// Default returns the documented default configuration.
func Default() *Config {
	return &Config{
		Width:      1920,
		Height:     1080,
		FPS:        30,
		Padding:    0.05,
		SafetyTrim: 0.02,
		Layout: map[string]Position{
			"left":   {X: 0.15, Y: 0.60, Scale: 1.0},
			"right":  {X: 0.85, Y: 0.60, Scale: 1.0},
			"center": {X: 0.50, Y: 0.60, Scale: 1.0},
		},
		PlateHeightRatio: 0.18,
		PlateOpacity:     0.35,
		Speakers: map[string]int{
			"四国めたん":  2,
			"ずんだもん":  3,
			"春日部つむぎ": 8,
			"雨晴はう":   10,
			"波音リツ":   9,
			"玄野武宏":   11,
			"白上虎太郎":  12,
			"青山龍星":   13,
			"冥鳴ひまり":  14,
			"九州そら":   16,
			"もち子さん":  20,
			"さとうささら": 21,
			"小夜":     22,
		},
		DefaultSpeaker: "ずんだもん",
		VoicevoxURL:    "http://127.0.0.1:50021",
		Prefetch:       4,
		SlideDistance:  200,
	}
}

// Load overlays the YAML file at path onto the defaults.
func Load(path string) (*Config, error) {
	cfg := Default()
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parse config %s: %w", path, err)
	}
	return cfg, nil
}

// ResolveSpeaker maps a voice identifier to a numeric speaker id. Numeric
// strings pass through, known names resolve via the speaker table, and
// anything else falls back to the default speaker.
func (c *Config) ResolveSpeaker(nameOrID string) int {
	s := strings.TrimSpace(nameOrID)
	if s != "" {
		if id, err := strconv.Atoi(s); err == nil {
			return id
		}
		if id, ok := c.Speakers[s]; ok {
			return id
		}
	}
	if id, ok := c.Speakers[c.DefaultSpeaker]; ok {
		return id
	}
	return 3
}

// SeatPosition converts a seat to its base pixel position and scale.
func (c *Config) SeatPosition(seat layout.Seat) (x, y, scale float64) {
	lay, ok := c.Layout[seat.String()]
	if !ok {
		lay, ok = c.Layout["center"]
		if !ok {
			lay = Position{X: 0.5, Y: 0.6, Scale: 1.0}
		}
	}
	return float64(c.Width) * lay.X, float64(c.Height) * lay.Y, lay.Scale
}

// ParseSeat maps a script position hint to a seat. Unknown hints mean no
// declared preference.
func ParseSeat(s string) layout.Seat {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "left":
		return layout.SeatLeft
	case "right":
		return layout.SeatRight
	case "center":
		return layout.SeatCenter
	default:
		return layout.SeatNone
	}
}
