// Package dsl expands the plain-text timed script into the event model
// shared by the sequencer and the seat assignment engine.
//
// Grammar, one event per line:
//
//	MM:SS-MM:SS <asset-filename> [tokens...]
//
// Recognized tokens: left, right, left-in, right-in, fadein, fadeout,
// zoomin, zoomout, jump, talk "...", spk:<name-or-id>. Lines starting
// with '#' and blank lines are skipped. A three-field HH:MM:SS timecode
// is also accepted. The asset kind is inferred from the filename prefix:
// names starting with "bg" are backgrounds, everything else is an actor.
package dsl

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"path"
	"regexp"
	"sort"
	"strconv"
	"strings"

	"github.com/ivlev/adv2video/internal/action"
	"github.com/ivlev/adv2video/internal/config"
	"github.com/ivlev/adv2video/internal/layout"
	"github.com/ivlev/adv2video/internal/script"
	"github.com/ivlev/adv2video/internal/subtitle"
)

// EventKind classifies a timed event by the asset it shows.
type EventKind int

const (
	KindBackground EventKind = iota
	KindActor
)

func (k EventKind) String() string {
	if k == KindBackground {
		return "background"
	}
	return "actor"
}

// Event is one time-bounded element parsed from the DSL. Events are
// immutable after expansion except for background End extension during
// gap filling.
type Event struct {
	Kind     EventKind
	Asset    string
	Start    float64
	End      float64
	Actions  []action.Action
	Position layout.Seat
	Text     string
	Speaker  string
}

// ParseError reports a malformed DSL line verbatim.
type ParseError struct {
	LineNo int
	Line   string
	Reason string
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("dsl parse error at line %d: %s (%q)", e.LineNo, e.Reason, e.Line)
}

var (
	eventRe = regexp.MustCompile(`^(\d{2}:\d{2}(?::\d{2})?)\s*-\s*(\d{2}:\d{2}(?::\d{2})?)\s+(\S+)\s*(.*)$`)
	talkRe  = regexp.MustCompile(`talk\s+"([^"]*)"`)
	spkRe   = regexp.MustCompile(`(?i)^spk:(?:"([^"]+)"|(\S+))$`)
)

// Shorthand action defaults applied when a bare action token appears on
// an event line.
const (
	fadeDur  = 0.5
	jumpDur  = 0.6
	slideDur = 0.5
)

func parseTimecode(tc string) float64 {
	parts := strings.Split(tc, ":")
	sec := 0.0
	for _, p := range parts {
		n, _ := strconv.Atoi(p)
		sec = sec*60 + float64(n)
	}
	return sec
}

func kindFromName(name string) EventKind {
	if strings.HasPrefix(strings.ToLower(path.Base(name)), "bg") {
		return KindBackground
	}
	return KindActor
}

// Parse reads DSL events. cfg supplies the slide distance for the
// left-in / right-in entrance tokens. Any malformed line is fatal.
func Parse(r io.Reader, cfg *config.Config) ([]Event, error) {
	var evs []Event
	sc := bufio.NewScanner(r)
	lineNo := 0
	for sc.Scan() {
		lineNo++
		raw := strings.TrimSpace(sc.Text())
		if raw == "" || strings.HasPrefix(raw, "#") {
			continue
		}
		m := eventRe.FindStringSubmatch(raw)
		if m == nil {
			return nil, &ParseError{LineNo: lineNo, Line: raw, Reason: "expected 'MM:SS-MM:SS <asset> [tokens...]'"}
		}
		start, end := parseTimecode(m[1]), parseTimecode(m[2])
		if end <= start {
			return nil, &ParseError{LineNo: lineNo, Line: raw, Reason: "event end must be after its start"}
		}

		ev := Event{
			Kind:  kindFromName(m[3]),
			Asset: path.Base(strings.ReplaceAll(m[3], `\`, "/")),
			Start: start,
			End:   end,
		}

		tail := m[4]
		if m2 := talkRe.FindStringSubmatch(tail); m2 != nil {
			ev.Text = m2[1]
			tail = talkRe.ReplaceAllString(tail, "")
		}

		for _, tok := range strings.Fields(tail) {
			if m3 := spkRe.FindStringSubmatch(tok); m3 != nil {
				if m3[1] != "" {
					ev.Speaker = m3[1]
				} else {
					ev.Speaker = m3[2]
				}
				continue
			}
			switch strings.ToLower(tok) {
			case "left":
				ev.Position = layout.SeatLeft
			case "right":
				ev.Position = layout.SeatRight
			case "left-in":
				ev.Position = layout.SeatLeft
				ev.Actions = append(ev.Actions, action.Action{
					Type: action.KindSlide, Duration: slideDur, Strength: 1.0, X: -cfg.SlideDistance,
				})
			case "right-in":
				ev.Position = layout.SeatRight
				ev.Actions = append(ev.Actions, action.Action{
					Type: action.KindSlide, Duration: slideDur, Strength: 1.0, X: cfg.SlideDistance,
				})
			case "fadein":
				ev.Actions = append(ev.Actions, action.Action{
					Type: action.KindFadeIn, Duration: fadeDur, Strength: 1.0, Easing: "ease_in_out",
				})
			case "fadeout":
				// end-anchored: the last fadeDur seconds of the clip
				ev.Actions = append(ev.Actions, action.Action{
					Type: action.KindFadeOut, Start: -fadeDur, Duration: fadeDur, Strength: 1.0, Easing: "ease_in_out",
				})
			case "zoomin":
				ev.Actions = append(ev.Actions, action.Action{
					Type: action.KindZoomIn, Duration: -1, Strength: 0.3,
				})
			case "zoomout":
				ev.Actions = append(ev.Actions, action.Action{
					Type: action.KindZoomOut, Duration: -1, Strength: 0.3,
				})
			case "jump":
				ev.Actions = append(ev.Actions, action.Action{
					Type: action.KindJump, Start: 0.2, Duration: jumpDur, Strength: 1.0,
				})
			case "talk":
				// consumed above; bare remnants are fine
			default:
				// unknown tokens are tolerated, like unknown action types
			}
		}

		evs = append(evs, ev)
	}
	if err := sc.Err(); err != nil {
		return nil, err
	}

	sort.SliceStable(evs, func(i, j int) bool {
		if evs[i].Start != evs[j].Start {
			return evs[i].Start < evs[j].Start
		}
		return evs[i].Kind == KindBackground && evs[j].Kind != KindBackground
	})
	return evs, nil
}

// ParseFile reads a DSL file.
func ParseFile(path string, cfg *config.Config) ([]Event, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("read dsl: %w", err)
	}
	defer f.Close()
	return Parse(f, cfg)
}

// HoldBackgrounds extends each background to the start of the next one
// (or to the end of the last event) so background coverage is contiguous
// across the whole timeline. It mutates the background events in place
// and returns evs for chaining.
func HoldBackgrounds(evs []Event) []Event {
	if len(evs) == 0 {
		return evs
	}
	lastEnd := 0.0
	for _, e := range evs {
		if e.End > lastEnd {
			lastEnd = e.End
		}
	}
	var bgs []*Event
	for i := range evs {
		if evs[i].Kind == KindBackground {
			bgs = append(bgs, &evs[i])
		}
	}
	sort.SliceStable(bgs, func(i, j int) bool { return bgs[i].Start < bgs[j].Start })
	for i, bg := range bgs {
		hold := lastEnd
		if i+1 < len(bgs) {
			hold = bgs[i+1].Start
		}
		if hold > bg.End {
			bg.End = hold
		}
	}
	return evs
}

const midpointEps = 1e-3

// Scenes derives the structured scene/line document from the events: an
// actor event becomes a line of the background whose span contains the
// event's temporal midpoint. Speaker identifiers are resolved through
// the config's speaker table.
func Scenes(evs []Event, cfg *config.Config) []script.Scene {
	var scenes []script.Scene
	for _, bg := range evs {
		if bg.Kind != KindBackground {
			continue
		}
		scene := script.Scene{Background: bg.Asset}
		for _, ch := range evs {
			if ch.Kind != KindActor {
				continue
			}
			mid := (ch.Start + ch.End) / 2.0
			if bg.Start-midpointEps <= mid && mid <= bg.End+midpointEps {
				scene.Lines = append(scene.Lines, script.Line{
					Character: ch.Asset,
					Position:  ch.Position,
					Voice:     cfg.ResolveSpeaker(ch.Speaker),
					Text:      ch.Text,
					Actions:   ch.Actions,
				})
			}
		}
		scenes = append(scenes, scene)
	}
	return scenes
}

// SeatIntervals extracts the actor visibility intervals consumed by the
// seat assignment engine.
func SeatIntervals(evs []Event) []layout.Interval {
	var out []layout.Interval
	for _, e := range evs {
		if e.Kind != KindActor {
			continue
		}
		out = append(out, layout.Interval{
			Actor: e.Asset,
			Start: e.Start,
			End:   e.End,
			Hint:  e.Position,
		})
	}
	return out
}

// AssignSeats runs the seat assignment engine over the actor events and
// writes the computed seat back into each event's Position. The events
// are returned in a new slice. When some window cannot be seated the
// best-effort result is still applied and the layout error is returned
// with it.
func AssignSeats(evs []Event) ([]Event, error) {
	seated, layoutErr := layout.Assign(SeatIntervals(evs))

	out := make([]Event, len(evs))
	copy(out, evs)
	for i := range out {
		if out[i].Kind != KindActor {
			continue
		}
		mid := (out[i].Start + out[i].End) / 2.0
		for _, s := range seated {
			if s.Actor == out[i].Asset && s.Start <= mid && mid < s.End {
				out[i].Position = s.Seat
				break
			}
		}
	}
	return out, layoutErr
}

// minCueLen keeps truncated SRT blocks well-formed.
const minCueLen = 0.001

// Subtitles builds the ordered subtitle interval stream from talking
// actor events. Overlapping intervals are resolved by truncation: a cue
// ends no later than the next cue starts.
func Subtitles(evs []Event) []subtitle.Interval {
	var talks []Event
	for _, e := range evs {
		if e.Kind == KindActor && e.Text != "" {
			talks = append(talks, e)
		}
	}
	sort.SliceStable(talks, func(i, j int) bool {
		if talks[i].Start != talks[j].Start {
			return talks[i].Start < talks[j].Start
		}
		return talks[i].End < talks[j].End
	})

	out := make([]subtitle.Interval, len(talks))
	for i, t := range talks {
		end := t.End
		if i+1 < len(talks) && talks[i+1].Start < end {
			end = talks[i+1].Start
			if end <= t.Start {
				end = t.Start + minCueLen
			}
		}
		out[i] = subtitle.Interval{Index: i + 1, Start: t.Start, End: end, Text: t.Text}
	}
	return out
}
