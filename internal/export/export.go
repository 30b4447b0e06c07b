// Package export writes the laid-out timeline as a YAML plan that a
// renderer or external compositor can consume.
package export

import (
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"

	"github.com/ivlev/adv2video/internal/assets"
	"github.com/ivlev/adv2video/internal/config"
	"github.com/ivlev/adv2video/internal/timeline"
)

// Clock selects the keyframe timestamp base.
type Clock int

const (
	// ClockLocal stamps keyframes relative to the element's own start.
	ClockLocal Clock = iota
	// ClockGlobal stamps keyframes on the timeline's absolute clock.
	ClockGlobal
)

// Document is the exported plan.
type Document struct {
	Version  string    `yaml:"version"`
	Canvas   Canvas    `yaml:"canvas"`
	Duration float64   `yaml:"duration"`
	Elements []Element `yaml:"elements"`
}

// Canvas describes the output frame.
type Canvas struct {
	Width  int `yaml:"width"`
	Height int `yaml:"height"`
	FPS    int `yaml:"fps"`
}

// Element is one timeline segment with its sampled animation.
type Element struct {
	Kind    string  `yaml:"kind"`
	Asset   string  `yaml:"asset,omitempty"`
	Start   float64 `yaml:"start"`
	End     float64 `yaml:"end"`
	Seat    string  `yaml:"seat,omitempty"`
	Line    int     `yaml:"line,omitempty"`
	Audio   string  `yaml:"audio,omitempty"`
	Opacity float64 `yaml:"opacity"`

	// Source pixel dimensions of the asset, when it could be probed.
	Width  int `yaml:"width,omitempty"`
	Height int `yaml:"height,omitempty"`

	Keyframes []Keyframe `yaml:"keyframes"`
}

// Keyframe is the element's state at one instant.
type Keyframe struct {
	Time    float64 `yaml:"time"`
	X       float64 `yaml:"x"`
	Y       float64 `yaml:"y"`
	Scale   float64 `yaml:"scale"`
	Opacity float64 `yaml:"opacity"`
}

// Options control the export.
type Options struct {
	// Clock picks local or global keyframe timestamps.
	Clock Clock
	// SampleStep is the keyframe sampling interval in seconds; values
	// <= 0 fall back to one frame at the configured FPS.
	SampleStep float64
	// Root is the project directory asset paths resolve against, used
	// to probe media dimensions. Probing is best effort: elements whose
	// assets cannot be decoded are exported without dimensions.
	Root string
}

// Build converts a timeline into an export document.
func Build(tl *timeline.Timeline, cfg *config.Config, opts Options) *Document {
	step := opts.SampleStep
	if step <= 0 {
		fps := cfg.FPS
		if fps <= 0 {
			fps = 30
		}
		step = 1.0 / float64(fps)
	}

	doc := &Document{
		Version:  "1",
		Canvas:   Canvas{Width: cfg.Width, Height: cfg.Height, FPS: cfg.FPS},
		Duration: tl.Duration,
	}

	for _, seg := range tl.Segments {
		el := Element{
			Kind:    seg.Kind.String(),
			Asset:   seg.Asset,
			Start:   seg.Start,
			End:     seg.End,
			Line:    seg.Line,
			Audio:   seg.AudioPath,
			Opacity: seg.StaticOpacity,
		}
		if seg.Kind == timeline.ElementActor {
			el.Seat = seg.Seat.String()
		}
		if seg.Asset != "" && opts.Root != "" {
			if w, h, err := assets.ProbeSize(filepath.Join(opts.Root, seg.Asset)); err == nil {
				el.Width, el.Height = w, h
			}
		}
		el.Keyframes = sample(seg, step, opts.Clock)
		doc.Elements = append(doc.Elements, el)
	}
	return doc
}

// sample walks the segment's curves at a fixed step, always including
// the final instant so the end state is explicit.
func sample(seg timeline.Segment, step float64, clock Clock) []Keyframe {
	dur := seg.End - seg.Start
	if dur < 0 {
		dur = 0
	}

	var frames []Keyframe
	emit := func(t float64) {
		kf := Keyframe{
			Time:    t,
			X:       seg.Curves.OffsetX(t),
			Y:       seg.Curves.OffsetY(t),
			Scale:   seg.BaseScale * seg.Curves.Scale(t),
			Opacity: seg.StaticOpacity * seg.Curves.Opacity(t),
		}
		if clock == ClockGlobal {
			kf.Time = seg.Start + t
		}
		frames = append(frames, kf)
	}

	if !seg.Curves.Animated {
		emit(0)
		if dur > 0 {
			emit(dur)
		}
		return frames
	}

	for t := 0.0; t < dur; t += step {
		emit(t)
	}
	emit(dur)
	return frames
}

// Write marshals the document to a YAML file.
func Write(doc *Document, path string) error {
	data, err := yaml.Marshal(doc)
	if err != nil {
		return err
	}
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return err
		}
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("writing plan %s: %w", path, err)
	}
	return nil
}

// Read loads a previously written plan.
func Read(path string) (*Document, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var doc Document
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, err
	}
	return &doc, nil
}
