// Package action compiles declarative per-line animation descriptors into
// time-varying parameter curves. All curves are evaluated on the clip's
// local clock (t=0 at clip start) and are total on all of t via clamping
// at the ramp boundaries.
package action

import (
	"strings"

	"github.com/ivlev/adv2video/internal/easing"
)

// Kind is the closed set of known action kinds. Unrecognized vocabulary
// parses to KindUnknown, which the compiler deliberately no-ops on.
type Kind int

const (
	KindUnknown Kind = iota
	KindFadeIn
	KindFadeOut
	KindJump
	KindZoomIn
	KindZoomOut
	KindMove
	KindSlide
)

var kindNames = map[Kind]string{
	KindUnknown: "unknown",
	KindFadeIn:  "fadein",
	KindFadeOut: "fadeout",
	KindJump:    "jump",
	KindZoomIn:  "zoomin",
	KindZoomOut: "zoomout",
	KindMove:    "move",
	KindSlide:   "slide",
}

func (k Kind) String() string { return kindNames[k] }

// ParseKind maps an action type token to its Kind. Unknown tokens map to
// KindUnknown rather than an error.
func ParseKind(s string) Kind {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "fadein":
		return KindFadeIn
	case "fadeout":
		return KindFadeOut
	case "jump":
		return KindJump
	case "zoomin":
		return KindZoomIn
	case "zoomout":
		return KindZoomOut
	case "move":
		return KindMove
	case "slide":
		return KindSlide
	default:
		return KindUnknown
	}
}

// JumpAmplitude is the vertical peak in pixels of a jump with strength 1.
const JumpAmplitude = 80.0

// Action is one declarative animation descriptor. Start and Duration are
// seconds relative to the clip start. Two sentinels are resolved against
// the clip duration at compile time: a negative Start anchors the action
// that many seconds before the clip end, and a negative Duration extends
// the action to the clip end.
type Action struct {
	Type     Kind
	Start    float64
	Duration float64
	Strength float64 // unitless multiplier, 1.0 is the neutral value
	X, Y     float64 // pixel displacement for move/slide
	Easing   string
}

// Curve is a time-varying parameter sampled on the clip-local clock.
type Curve func(t float64) float64

// Curves bundles the combined parameter functions for one clip.
// OffsetX/OffsetY include the clip's base position.
type Curves struct {
	Opacity Curve
	Scale   Curve
	OffsetX Curve
	OffsetY Curve

	// Animated reports whether any action contributed a time dependence.
	Animated bool
}

func constant(v float64) Curve { return func(float64) float64 { return v } }

// ramp builds the 0->1 progress function over [start, start+dur] shaped by
// ease. dur <= 0 degrades to a step at start rather than dividing by zero.
func ramp(start, dur float64, ease easing.Func) Curve {
	if dur <= 0 {
		return func(t float64) float64 {
			if t >= start {
				return 1.0
			}
			return 0.0
		}
	}
	return func(t float64) float64 {
		if t <= start {
			return 0.0
		}
		if t >= start+dur {
			return 1.0
		}
		return easing.Clamp(ease((t-start)/dur), 0.0, 1.0)
	}
}

// Compile combines a list of actions into the clip's parameter curves.
// Multiple opacity actions multiply (then clamp to [0,1]), multiple scale
// actions multiply, offsets sum component-wise on top of the base position
// (baseX, baseY). Unknown action kinds are skipped.
func Compile(actions []Action, clipDuration, baseX, baseY float64) Curves {
	var alphaFns, scaleFns, dxFns, dyFns []Curve

	for _, act := range actions {
		start := act.Start
		if start < 0 {
			start = clipDuration + start
			if start < 0 {
				start = 0
			}
		}
		dur := act.Duration
		if dur < 0 {
			dur = clipDuration - easing.Clamp(start, 0, clipDuration)
		}
		strength := act.Strength
		ease := easing.ByName(act.Easing)
		r := ramp(start, dur, ease)

		switch act.Type {
		case KindFadeIn:
			alphaFns = append(alphaFns, r)
		case KindFadeOut:
			alphaFns = append(alphaFns, func(t float64) float64 { return 1.0 - r(t) })
		case KindJump:
			amp := JumpAmplitude * strength
			dyFns = append(dyFns, func(t float64) float64 {
				u := r(t)
				// parabola: zero at u=0 and u=1, peak -amp at the midpoint
				return -amp * 4.0 * u * (1.0 - u)
			})
		case KindZoomIn:
			s := strength
			if s < 0 {
				s = 0
			}
			scaleFns = append(scaleFns, func(t float64) float64 { return 1.0 + s*r(t) })
		case KindZoomOut:
			s := strength
			if s < 0 {
				s = 0
			}
			scaleFns = append(scaleFns, func(t float64) float64 {
				v := 1.0 - s*r(t)
				if v < 0.1 {
					v = 0.1
				}
				return v
			})
		case KindMove:
			dx, dy := act.X, act.Y
			if dx != 0 {
				dxFns = append(dxFns, func(t float64) float64 { return dx * r(t) })
			}
			if dy != 0 {
				dyFns = append(dyFns, func(t float64) float64 { return dy * r(t) })
			}
		case KindSlide:
			dx, dy := act.X, act.Y
			if dx != 0 {
				dxFns = append(dxFns, func(t float64) float64 { return dx * (1.0 - r(t)) })
			}
			if dy != 0 {
				dyFns = append(dyFns, func(t float64) float64 { return dy * (1.0 - r(t)) })
			}
		default:
			// Unknown vocabulary is ignored for forward compatibility.
		}
	}

	out := Curves{
		Opacity:  constant(1.0),
		Scale:    constant(1.0),
		OffsetX:  constant(baseX),
		OffsetY:  constant(baseY),
		Animated: len(alphaFns)+len(scaleFns)+len(dxFns)+len(dyFns) > 0,
	}

	if len(alphaFns) > 0 {
		fns := alphaFns
		out.Opacity = func(t float64) float64 {
			a := 1.0
			for _, f := range fns {
				a *= easing.Clamp(f(t), 0.0, 1.0)
			}
			return easing.Clamp(a, 0.0, 1.0)
		}
	}
	if len(scaleFns) > 0 {
		fns := scaleFns
		out.Scale = func(t float64) float64 {
			s := 1.0
			for _, f := range fns {
				v := f(t)
				if v < 0.1 {
					v = 0.1
				}
				s *= v
			}
			return s
		}
	}
	if len(dxFns) > 0 {
		fns := dxFns
		out.OffsetX = func(t float64) float64 {
			x := baseX
			for _, f := range fns {
				x += f(t)
			}
			return x
		}
	}
	if len(dyFns) > 0 {
		fns := dyFns
		out.OffsetY = func(t float64) float64 {
			y := baseY
			for _, f := range fns {
				y += f(t)
			}
			return y
		}
	}
	return out
}
