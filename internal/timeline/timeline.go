// Package timeline lays the script out on an absolute clock, driven by
// measured speech durations.
package timeline

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"golang.org/x/sync/errgroup"

	"github.com/ivlev/adv2video/internal/action"
	"github.com/ivlev/adv2video/internal/config"
	"github.com/ivlev/adv2video/internal/layout"
	"github.com/ivlev/adv2video/internal/script"
	"github.com/ivlev/adv2video/internal/subtitle"
)

// Synthesizer is the speech-synthesis collaborator. Synthesize renders
// text with the given speaker voice into outPath and returns the
// measured audio duration in seconds. The measured value is
// authoritative; any internal duration hints are advisory.
type Synthesizer interface {
	Synthesize(ctx context.Context, text string, speaker int, outPath string) (float64, error)
}

// ElementKind classifies a timeline segment.
type ElementKind int

const (
	ElementBackground ElementKind = iota
	ElementActor
	ElementPlate
	ElementEyecatch
)

func (k ElementKind) String() string {
	switch k {
	case ElementBackground:
		return "background"
	case ElementActor:
		return "actor"
	case ElementPlate:
		return "plate"
	default:
		return "eyecatch"
	}
}

// Segment is one visual element with absolute start/end times and its
// animation curves. Curves run on the segment-local clock: t=0 at Start.
type Segment struct {
	Kind  ElementKind
	Asset string
	Start float64
	End   float64

	Seat      layout.Seat
	BaseX     float64
	BaseY     float64
	BaseScale float64
	Curves    action.Curves

	// Opacity of a plate band; 1.0 for everything else.
	StaticOpacity float64

	// Line is the 1-based script line this segment belongs to, 0 for
	// segments not tied to a spoken line. Subtitle indexes count only
	// lines with text, so they can run behind this.
	Line int

	// AudioPath is set on actor segments: the WAV rendered for the line.
	AudioPath string
}

// Timeline is the sequencer's output, ready for a renderer or exporter.
type Timeline struct {
	Segments  []Segment
	Subtitles []subtitle.Interval
	Duration  float64
}

// Sequencer expands scenes into an absolute timeline.
type Sequencer struct {
	cfg       *config.Config
	synth     Synthesizer
	root      string
	voicesDir string
}

// New builds a sequencer. root is the project directory all asset paths
// are relative to; voice WAVs are written under root/voices.
func New(cfg *config.Config, synth Synthesizer, root string) *Sequencer {
	return &Sequencer{
		cfg:       cfg,
		synth:     synth,
		root:      root,
		voicesDir: filepath.Join(root, "voices"),
	}
}

type lineAudio struct {
	path     string
	duration float64
}

// prefetch synthesizes every line's audio, bounded by cfg.Prefetch
// concurrent requests. Requests may complete in any order; results land
// in a slice indexed by line number so the sequential cursor pass
// consumes measured durations strictly in script order.
func (s *Sequencer) prefetch(ctx context.Context, scenes []script.Scene) ([]lineAudio, error) {
	if err := os.MkdirAll(s.voicesDir, 0755); err != nil {
		return nil, err
	}

	type ref struct {
		text  string
		voice int
	}
	var refs []ref
	for _, sc := range scenes {
		for _, ln := range sc.Lines {
			refs = append(refs, ref{text: ln.Text, voice: ln.Voice})
		}
	}

	audios := make([]lineAudio, len(refs))
	g, ctx := errgroup.WithContext(ctx)
	limit := s.cfg.Prefetch
	if limit < 1 {
		limit = 1
	}
	g.SetLimit(limit)

	for i, r := range refs {
		i, r := i, r
		g.Go(func() error {
			out := filepath.Join(s.voicesDir, fmt.Sprintf("line_%03d.wav", i+1))
			dur, err := s.synth.Synthesize(ctx, r.text, r.voice, out)
			if err != nil {
				return fmt.Errorf("line %d (voice %d, %q): %w", i+1, r.voice, r.text, err)
			}
			audios[i] = lineAudio{path: out, duration: dur}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		// a single failed line would silently desynchronize every later
		// timestamp, so the whole build aborts
		return nil, err
	}
	return audios, nil
}

// Sequence lays out the scenes on the absolute clock. Asset references
// are validated up front, before any synthesis call is made.
func (s *Sequencer) Sequence(ctx context.Context, scenes []script.Scene) (*Timeline, error) {
	if err := script.ValidateAssets(scenes, s.root); err != nil {
		return nil, err
	}
	if ec := s.cfg.Eyecatch; ec != nil && ec.Image != "" && ec.Duration > 0 {
		if err := script.ValidateAssets([]script.Scene{{Background: ec.Image}}, s.root); err != nil {
			return nil, err
		}
	}

	audios, err := s.prefetch(ctx, scenes)
	if err != nil {
		return nil, err
	}

	tl := &Timeline{}
	cursor := 0.0

	if ec := s.cfg.Eyecatch; ec != nil && ec.Image != "" && ec.Duration > 0 {
		tl.Segments = append(tl.Segments, Segment{
			Kind:          ElementEyecatch,
			Asset:         ec.Image,
			Start:         0,
			End:           ec.Duration,
			BaseScale:     1.0,
			StaticOpacity: 1.0,
			Curves:        action.Compile(nil, ec.Duration, 0, 0),
		})
		cursor = ec.Duration
	}

	plateH := float64(s.cfg.Height) * s.cfg.PlateHeightRatio
	plateY := float64(s.cfg.Height) - plateH

	lineIdx := 0
	for _, sc := range scenes {
		if len(sc.Lines) == 0 {
			// a zero-line scene has zero duration and contributes nothing
			continue
		}
		sceneStart := cursor
		sceneEnd := cursor

		for _, ln := range sc.Lines {
			audio := audios[lineIdx]
			lineIdx++

			trimmed := audio.duration - s.cfg.SafetyTrim
			if trimmed < 0 {
				trimmed = 0
			}
			start, end := cursor, cursor+trimmed

			seat := ln.Position
			if seat == layout.SeatNone {
				seat = layout.SeatCenter
			}
			x, y, scale := s.cfg.SeatPosition(seat)

			tl.Segments = append(tl.Segments, Segment{
				Kind:          ElementActor,
				Asset:         ln.Character,
				Start:         start,
				End:           end,
				Seat:          seat,
				BaseX:         x,
				BaseY:         y,
				BaseScale:     scale,
				StaticOpacity: 1.0,
				Curves:        action.Compile(ln.Actions, trimmed, x, y),
				Line:          lineIdx,
				AudioPath:     audio.path,
			})

			if ln.Text != "" {
				tl.Segments = append(tl.Segments, Segment{
					Kind:          ElementPlate,
					Start:         start,
					End:           end,
					BaseY:         plateY,
					BaseScale:     1.0,
					StaticOpacity: s.cfg.PlateOpacity,
					Curves:        action.Compile(nil, trimmed, 0, plateY),
					Line:          lineIdx,
				})
				tl.Subtitles = append(tl.Subtitles, subtitle.Interval{
					Index: len(tl.Subtitles) + 1,
					Start: start,
					End:   end,
					Text:  ln.Text,
				})
			}

			sceneEnd = end
			cursor = end + s.cfg.Padding
		}

		// the background spans first line start to last line end
		tl.Segments = append(tl.Segments, Segment{
			Kind:          ElementBackground,
			Asset:         sc.Background,
			Start:         sceneStart,
			End:           sceneEnd,
			BaseScale:     1.0,
			StaticOpacity: 1.0,
			Curves:        action.Compile(nil, sceneEnd-sceneStart, 0, 0),
		})

		if sceneEnd > tl.Duration {
			tl.Duration = sceneEnd
		}
	}

	for _, seg := range tl.Segments {
		if seg.End > tl.Duration {
			tl.Duration = seg.End
		}
	}
	return tl, nil
}
