// Package script models the structured scene/line document and loads it
// from the JSON form the compositor consumes.
package script

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/ivlev/adv2video/internal/action"
	"github.com/ivlev/adv2video/internal/assets"
	"github.com/ivlev/adv2video/internal/config"
	"github.com/ivlev/adv2video/internal/layout"
)

// Line is one spoken utterance: who stands where, what is said, and how
// the standing art animates while it is said.
type Line struct {
	Character string
	Position  layout.Seat
	Voice     int
	Text      string
	Actions   []action.Action
}

// Scene groups an ordered run of lines over one background.
type Scene struct {
	Background string
	Lines      []Line
}

type rawScene struct {
	Bg    string    `json:"bg"`
	Lines []rawLine `json:"lines"`
}

type rawLine struct {
	Character string          `json:"character"`
	Position  string          `json:"position"`
	Voice     json.RawMessage `json:"voice"`
	Speaker   string          `json:"speaker"`
	Text      string          `json:"text"`
	Action    json.RawMessage `json:"action"`
}

// rawAction mirrors the document's action object. Strength is a pointer
// so an absent field can default to 1.0 while an explicit 0 stays 0.
type rawAction struct {
	Type     string   `json:"type"`
	Start    float64  `json:"start"`
	Duration float64  `json:"duration"`
	Strength *float64 `json:"strength"`
	X        float64  `json:"x"`
	Y        float64  `json:"y"`
	Easing   string   `json:"easing"`
}

func (r rawAction) toAction() action.Action {
	strength := 1.0
	if r.Strength != nil {
		strength = *r.Strength
	}
	return action.Action{
		Type:     action.ParseKind(r.Type),
		Start:    r.Start,
		Duration: r.Duration,
		Strength: strength,
		X:        r.X,
		Y:        r.Y,
		Easing:   r.Easing,
	}
}

// voiceToken reads the "voice" field, which hand-written documents spell
// as either a JSON number or a quoted numeric string.
func voiceToken(raw json.RawMessage) string {
	if len(raw) == 0 || string(raw) == "null" {
		return ""
	}
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		return s
	}
	var n json.Number
	if err := json.Unmarshal(raw, &n); err == nil {
		return n.String()
	}
	return ""
}

// parseActionSpec accepts the document's three action spellings: a bare
// type string, a single object, or an ordered list of objects.
func parseActionSpec(raw json.RawMessage) ([]action.Action, error) {
	if len(raw) == 0 || string(raw) == "null" {
		return nil, nil
	}
	var name string
	if err := json.Unmarshal(raw, &name); err == nil {
		return []action.Action{{Type: action.ParseKind(name), Strength: 1.0}}, nil
	}
	var one rawAction
	if err := json.Unmarshal(raw, &one); err == nil {
		return []action.Action{one.toAction()}, nil
	}
	var many []rawAction
	if err := json.Unmarshal(raw, &many); err != nil {
		return nil, fmt.Errorf("action spec is neither a string, an object, nor a list: %w", err)
	}
	out := make([]action.Action, 0, len(many))
	for _, r := range many {
		out = append(out, r.toAction())
	}
	return out, nil
}

// Parse decodes a script document. Voice ids may be numeric ("voice") or
// symbolic ("speaker", resolved through the config's speaker table).
func Parse(data []byte, cfg *config.Config) ([]Scene, error) {
	var raws []rawScene
	if err := json.Unmarshal(data, &raws); err != nil {
		return nil, fmt.Errorf("parse script: %w", err)
	}
	scenes := make([]Scene, 0, len(raws))
	for si, rs := range raws {
		scene := Scene{Background: rs.Bg}
		for li, rl := range rs.Lines {
			acts, err := parseActionSpec(rl.Action)
			if err != nil {
				return nil, fmt.Errorf("scene %d line %d: %w", si+1, li+1, err)
			}
			voice := rl.Speaker
			if voice == "" {
				voice = voiceToken(rl.Voice)
			}
			scene.Lines = append(scene.Lines, Line{
				Character: rl.Character,
				Position:  config.ParseSeat(rl.Position),
				Voice:     cfg.ResolveSpeaker(voice),
				Text:      rl.Text,
				Actions:   acts,
			})
		}
		scenes = append(scenes, scene)
	}
	return scenes, nil
}

// LoadFile reads and parses the script document at path.
func LoadFile(path string, cfg *config.Config) ([]Scene, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read script: %w", err)
	}
	scenes, err := Parse(data, cfg)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return scenes, nil
}

// ValidateAssets checks every referenced background and character file
// under root. It fails on the first missing asset, before any synthesis
// work is attempted.
func ValidateAssets(scenes []Scene, root string) error {
	for _, sc := range scenes {
		if err := assets.Check(filepath.Join(root, sc.Background)); err != nil {
			return err
		}
		for _, ln := range sc.Lines {
			if err := assets.Check(filepath.Join(root, ln.Character)); err != nil {
				return err
			}
		}
	}
	return nil
}

// Write serializes scenes back to the script JSON document (the DSL
// expander uses this to emit its derived script).
func Write(path string, scenes []Scene) error {
	type outAction struct {
		Type     string  `json:"type"`
		Start    float64 `json:"start"`
		Duration float64 `json:"duration"`
		Strength float64 `json:"strength"`
		X        float64 `json:"x,omitempty"`
		Y        float64 `json:"y,omitempty"`
		Easing   string  `json:"easing,omitempty"`
	}
	type outLine struct {
		Character string      `json:"character"`
		Position  string      `json:"position,omitempty"`
		Voice     int         `json:"voice"`
		Text      string      `json:"text,omitempty"`
		Action    []outAction `json:"action,omitempty"`
	}
	type outScene struct {
		Bg    string    `json:"bg"`
		Lines []outLine `json:"lines"`
	}

	doc := make([]outScene, 0, len(scenes))
	for _, sc := range scenes {
		out := outScene{Bg: sc.Background, Lines: []outLine{}}
		for _, ln := range sc.Lines {
			ol := outLine{
				Character: ln.Character,
				Voice:     ln.Voice,
				Text:      ln.Text,
			}
			if ln.Position != layout.SeatNone {
				ol.Position = ln.Position.String()
			}
			for _, a := range ln.Actions {
				ol.Action = append(ol.Action, outAction{
					Type:     a.Type.String(),
					Start:    a.Start,
					Duration: a.Duration,
					Strength: a.Strength,
					X:        a.X,
					Y:        a.Y,
					Easing:   a.Easing,
				})
			}
			out.Lines = append(out.Lines, ol)
		}
		doc = append(doc, out)
	}

	data, err := json.MarshalIndent(doc, "", "  ")
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return err
	}
	return os.WriteFile(path, data, 0644)
}
