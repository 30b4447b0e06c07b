package timeline

import (
	"context"
	"errors"
	"math"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"

	"github.com/ivlev/adv2video/internal/config"
	"github.com/ivlev/adv2video/internal/layout"
	"github.com/ivlev/adv2video/internal/script"
)

type fakeSynth struct {
	mu        sync.Mutex
	durations map[string]float64
	calls     []string
	failOn    string
}

func (f *fakeSynth) Synthesize(ctx context.Context, text string, speaker int, outPath string) (float64, error) {
	f.mu.Lock()
	f.calls = append(f.calls, text)
	f.mu.Unlock()
	if f.failOn != "" && text == f.failOn {
		return 0, errors.New("engine refused")
	}
	if err := os.WriteFile(outPath, []byte("RIFF"), 0644); err != nil {
		return 0, err
	}
	return f.durations[text], nil
}

func testProject(t *testing.T, assets ...string) string {
	t.Helper()
	root := t.TempDir()
	for _, a := range assets {
		if err := os.WriteFile(filepath.Join(root, a), []byte{0}, 0644); err != nil {
			t.Fatal(err)
		}
	}
	return root
}

func almost(a, b float64) bool { return math.Abs(a-b) < 1e-9 }

func findLine(t *testing.T, tl *Timeline, n int) Segment {
	t.Helper()
	for _, seg := range tl.Segments {
		if seg.Kind == ElementActor && seg.Line == n {
			return seg
		}
	}
	t.Fatalf("no actor segment for line %d", n)
	return Segment{}
}

func TestSequenceCursorArithmetic(t *testing.T) {
	root := testProject(t, "bg.png", "zundamon.png", "metan.png")
	cfg := config.Default()
	cfg.Eyecatch = nil

	synth := &fakeSynth{durations: map[string]float64{
		"first":  2.0,
		"second": 3.0,
		"third":  1.5,
	}}
	scenes := []script.Scene{{
		Background: "bg.png",
		Lines: []script.Line{
			{Character: "zundamon.png", Voice: 3, Text: "first"},
			{Character: "metan.png", Voice: 2, Text: "second"},
			{Character: "zundamon.png", Voice: 3, Text: "third"},
		},
	}}

	tl, err := New(cfg, synth, root).Sequence(context.Background(), scenes)
	if err != nil {
		t.Fatal(err)
	}

	// each line is trimmed by 0.02, the next starts 0.05 after it ends
	l1 := findLine(t, tl, 1)
	if !almost(l1.Start, 0) || !almost(l1.End, 1.98) {
		t.Fatalf("line 1 = [%v, %v]", l1.Start, l1.End)
	}
	l2 := findLine(t, tl, 2)
	if !almost(l2.Start, 2.03) || !almost(l2.End, 5.01) {
		t.Fatalf("line 2 = [%v, %v]", l2.Start, l2.End)
	}
	l3 := findLine(t, tl, 3)
	if !almost(l3.Start, 5.06) || !almost(l3.End, 6.54) {
		t.Fatalf("line 3 = [%v, %v]", l3.Start, l3.End)
	}

	var bg *Segment
	for i := range tl.Segments {
		if tl.Segments[i].Kind == ElementBackground {
			bg = &tl.Segments[i]
		}
	}
	if bg == nil {
		t.Fatal("no background segment")
	}
	if !almost(bg.Start, 0) || !almost(bg.End, 6.54) {
		t.Fatalf("background = [%v, %v]", bg.Start, bg.End)
	}
	if !almost(tl.Duration, 6.54) {
		t.Fatalf("duration = %v", tl.Duration)
	}

	if len(tl.Subtitles) != 3 {
		t.Fatalf("got %d subtitles", len(tl.Subtitles))
	}
	for i, sub := range tl.Subtitles {
		if sub.Index != i+1 {
			t.Fatalf("subtitle %d has index %d", i, sub.Index)
		}
	}
	if !almost(tl.Subtitles[1].Start, 2.03) || tl.Subtitles[1].Text != "second" {
		t.Fatalf("subtitle 2 = %+v", tl.Subtitles[1])
	}

	// a voice file exists per line
	for n := 1; n <= 3; n++ {
		seg := findLine(t, tl, n)
		if _, err := os.Stat(seg.AudioPath); err != nil {
			t.Fatalf("line %d audio: %v", n, err)
		}
	}
}

func TestSequenceTrimFloorsAtZero(t *testing.T) {
	root := testProject(t, "bg.png", "a.png")
	cfg := config.Default()
	cfg.Eyecatch = nil
	cfg.SafetyTrim = 0.5

	synth := &fakeSynth{durations: map[string]float64{"tiny": 0.3}}
	scenes := []script.Scene{{
		Background: "bg.png",
		Lines:      []script.Line{{Character: "a.png", Voice: 3, Text: "tiny"}},
	}}

	tl, err := New(cfg, synth, root).Sequence(context.Background(), scenes)
	if err != nil {
		t.Fatal(err)
	}
	seg := findLine(t, tl, 1)
	if !almost(seg.End-seg.Start, 0) {
		t.Fatalf("trimmed duration = %v, want 0", seg.End-seg.Start)
	}
}

func TestSequenceEyecatchOffset(t *testing.T) {
	root := testProject(t, "bg.png", "a.png", "eyecatch.png")
	cfg := config.Default()
	cfg.Eyecatch = &config.Eyecatch{Image: "eyecatch.png", Duration: 2.0}

	synth := &fakeSynth{durations: map[string]float64{"hello": 1.0}}
	scenes := []script.Scene{{
		Background: "bg.png",
		Lines:      []script.Line{{Character: "a.png", Voice: 3, Text: "hello"}},
	}}

	tl, err := New(cfg, synth, root).Sequence(context.Background(), scenes)
	if err != nil {
		t.Fatal(err)
	}

	if tl.Segments[0].Kind != ElementEyecatch {
		t.Fatalf("first segment is %v", tl.Segments[0].Kind)
	}
	if !almost(tl.Segments[0].End, 2.0) {
		t.Fatalf("eyecatch ends at %v", tl.Segments[0].End)
	}

	// everything after the eyecatch is shifted by its duration, and
	// the 1.00s line is trimmed to 0.98s
	seg := findLine(t, tl, 1)
	if !almost(seg.Start, 2.0) || !almost(seg.End, 2.98) {
		t.Fatalf("line 1 = [%v, %v]", seg.Start, seg.End)
	}
	if !almost(tl.Subtitles[0].Start, 2.0) || !almost(tl.Subtitles[0].End, 2.98) {
		t.Fatalf("subtitle 1 = %+v", tl.Subtitles[0])
	}
}

func TestSequenceEmptySceneContributesNothing(t *testing.T) {
	root := testProject(t, "bg.png", "empty.png", "a.png")
	cfg := config.Default()
	cfg.Eyecatch = nil

	synth := &fakeSynth{durations: map[string]float64{"hello": 1.0}}
	scenes := []script.Scene{
		{Background: "empty.png"},
		{Background: "bg.png", Lines: []script.Line{{Character: "a.png", Voice: 3, Text: "hello"}}},
	}

	tl, err := New(cfg, synth, root).Sequence(context.Background(), scenes)
	if err != nil {
		t.Fatal(err)
	}
	for _, seg := range tl.Segments {
		if seg.Asset == "empty.png" {
			t.Fatal("empty scene emitted a segment")
		}
	}
	if !almost(findLine(t, tl, 1).Start, 0) {
		t.Fatal("empty scene advanced the clock")
	}
}

func TestSequenceTextlessLineKeepsClock(t *testing.T) {
	root := testProject(t, "bg.png", "a.png")
	cfg := config.Default()
	cfg.Eyecatch = nil

	synth := &fakeSynth{durations: map[string]float64{"": 1.0, "spoken": 2.0}}
	scenes := []script.Scene{{
		Background: "bg.png",
		Lines: []script.Line{
			{Character: "a.png", Voice: 3}, // pause beat, no text
			{Character: "a.png", Voice: 3, Text: "spoken"},
		},
	}}

	tl, err := New(cfg, synth, root).Sequence(context.Background(), scenes)
	if err != nil {
		t.Fatal(err)
	}

	// the textless line still occupies the clock but emits no subtitle
	// and no plate
	if len(tl.Subtitles) != 1 {
		t.Fatalf("got %d subtitles", len(tl.Subtitles))
	}
	for _, seg := range tl.Segments {
		if seg.Kind == ElementPlate && seg.Line == 1 {
			t.Fatal("textless line emitted a plate")
		}
	}

	// line numbering and subtitle numbering diverge here: the spoken
	// line is script line 2 but subtitle 1
	spoken := findLine(t, tl, 2)
	if !almost(spoken.Start, 1.03) || !almost(spoken.End, 3.01) {
		t.Fatalf("spoken line = [%v, %v]", spoken.Start, spoken.End)
	}
	sub := tl.Subtitles[0]
	if sub.Index != 1 || !almost(sub.Start, spoken.Start) || sub.Text != "spoken" {
		t.Fatalf("subtitle = %+v", sub)
	}
}

func TestSequenceSynthesisFailureIsFatal(t *testing.T) {
	root := testProject(t, "bg.png", "a.png")
	cfg := config.Default()
	cfg.Eyecatch = nil

	synth := &fakeSynth{
		durations: map[string]float64{"good": 1.0},
		failOn:    "bad",
	}
	scenes := []script.Scene{{
		Background: "bg.png",
		Lines: []script.Line{
			{Character: "a.png", Voice: 3, Text: "good"},
			{Character: "a.png", Voice: 2, Text: "bad"},
		},
	}}

	_, err := New(cfg, synth, root).Sequence(context.Background(), scenes)
	if err == nil {
		t.Fatal("want error")
	}
	for _, want := range []string{"line 2", "voice 2", "bad"} {
		if !strings.Contains(err.Error(), want) {
			t.Fatalf("error %q misses %q", err, want)
		}
	}
}

func TestSequenceValidatesAssetsBeforeSynthesis(t *testing.T) {
	root := testProject(t, "bg.png") // character image missing
	cfg := config.Default()
	cfg.Eyecatch = nil

	synth := &fakeSynth{durations: map[string]float64{"hello": 1.0}}
	scenes := []script.Scene{{
		Background: "bg.png",
		Lines:      []script.Line{{Character: "ghost.png", Voice: 3, Text: "hello"}},
	}}

	_, err := New(cfg, synth, root).Sequence(context.Background(), scenes)
	if err == nil {
		t.Fatal("want error")
	}
	if len(synth.calls) != 0 {
		t.Fatalf("synthesis ran %d times before validation failed", len(synth.calls))
	}
}

func TestSequenceSeatsAndPlate(t *testing.T) {
	root := testProject(t, "bg.png", "a.png")
	cfg := config.Default()
	cfg.Eyecatch = nil

	synth := &fakeSynth{durations: map[string]float64{"hi": 1.0}}
	scenes := []script.Scene{{
		Background: "bg.png",
		Lines: []script.Line{{
			Character: "a.png", Voice: 3, Text: "hi", Position: layout.SeatLeft,
		}},
	}}

	tl, err := New(cfg, synth, root).Sequence(context.Background(), scenes)
	if err != nil {
		t.Fatal(err)
	}
	seg := findLine(t, tl, 1)
	x, y, scale := cfg.SeatPosition(layout.SeatLeft)
	if seg.BaseX != x || seg.BaseY != y || seg.BaseScale != scale {
		t.Fatalf("seat geometry = (%v, %v, %v)", seg.BaseX, seg.BaseY, seg.BaseScale)
	}

	var plate *Segment
	for i := range tl.Segments {
		if tl.Segments[i].Kind == ElementPlate {
			plate = &tl.Segments[i]
		}
	}
	if plate == nil {
		t.Fatal("no plate segment")
	}
	if plate.StaticOpacity != cfg.PlateOpacity {
		t.Fatalf("plate opacity = %v", plate.StaticOpacity)
	}
	wantY := float64(cfg.Height) * (1 - cfg.PlateHeightRatio)
	if !almost(plate.BaseY, wantY) {
		t.Fatalf("plate y = %v, want %v", plate.BaseY, wantY)
	}
	if plate.Line != 1 || !almost(plate.Start, seg.Start) || !almost(plate.End, seg.End) {
		t.Fatalf("plate = %+v", plate)
	}
}
