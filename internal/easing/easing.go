package easing

import "strings"

// Func maps normalized progress u in [0,1] to eased progress in [0,1].
// Callers clamp the output where it matters; the functions themselves
// only guarantee f(0)=0 and f(1)=1.
type Func func(u float64) float64

func Linear(u float64) float64 { return u }

func In(u float64) float64 { return u * u }

func Out(u float64) float64 { return 1.0 - (1.0-u)*(1.0-u) }

// InOut is the smoothstep polynomial 3u^2 - 2u^3.
func InOut(u float64) float64 { return u * u * (3.0 - 2.0*u) }

// ByName resolves an easing name to its function. Unknown or empty
// names resolve to Linear: easing is cosmetic and must never fail.
func ByName(name string) Func {
	switch strings.ToLower(name) {
	case "ease_in_out", "ease-in-out", "inout", "smooth":
		return InOut
	case "ease_in", "ease-in", "in":
		return In
	case "ease_out", "ease-out", "out":
		return Out
	default:
		return Linear
	}
}

// Clamp limits x to the range [a, b].
func Clamp(x, a, b float64) float64 {
	if x < a {
		return a
	}
	if x > b {
		return b
	}
	return x
}

// Lerp performs linear interpolation between a and b.
func Lerp(a, b, t float64) float64 {
	return a + (b-a)*t
}
