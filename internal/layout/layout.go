// Package layout assigns screen seats (center / left / right) to
// simultaneously visible actors. It is pure interval algebra: the duo
// inertia map is an accumulator local to one Assign call, never package
// state.
package layout

import (
	"fmt"
	"sort"
)

// Seat is a discrete horizontal placement slot.
type Seat int

const (
	SeatNone Seat = iota
	SeatCenter
	SeatLeft
	SeatRight
)

func (s Seat) String() string {
	switch s {
	case SeatCenter:
		return "center"
	case SeatLeft:
		return "left"
	case SeatRight:
		return "right"
	default:
		return "none"
	}
}

// Interval is one actor's visibility window with an optional declared
// seat hint (SeatLeft or SeatRight; anything else means no hint).
type Interval struct {
	Actor string
	Start float64
	End   float64
	Hint  Seat
}

// SeatInterval is the assignment for one actor over a window of constant
// visibility composition.
type SeatInterval struct {
	Actor string
	Start float64
	End   float64
	Seat  Seat
}

// UnsupportedLayoutError reports a window in which more than two actors
// were visible at once. Assign still returns a best-effort result: the
// first two actors win the duo seats, the rest are emitted with SeatNone.
type UnsupportedLayoutError struct {
	Start  float64
	End    float64
	Actors []string
}

func (e *UnsupportedLayoutError) Error() string {
	return fmt.Sprintf("more than two actors visible in [%.3f, %.3f]: %v (only solo and duo layouts exist)",
		e.Start, e.End, e.Actors)
}

const boundaryEps = 1e-6

// Assign partitions time at every interval boundary and seats the visible
// actors of each window: one actor sits center, two actors resolve
// left/right by declared hint, then duo inertia from the previous duo
// window, then lexicographic order of the actor id. Adjacent windows where
// an actor keeps its seat are merged, so each actor's seat intervals tile
// its visible time.
func Assign(intervals []Interval) ([]SeatInterval, error) {
	if len(intervals) == 0 {
		return nil, nil
	}

	cutSet := make(map[float64]struct{}, 2*len(intervals))
	for _, iv := range intervals {
		cutSet[iv.Start] = struct{}{}
		cutSet[iv.End] = struct{}{}
	}
	cuts := make([]float64, 0, len(cutSet))
	for t := range cutSet {
		cuts = append(cuts, t)
	}
	sort.Float64s(cuts)

	var (
		segs       []SeatInterval
		firstErr   *UnsupportedLayoutError
		lastDuoMap map[string]Seat
	)

	emit := func(actor string, a, b float64, seat Seat) {
		// merge with the previous window when the actor holds its seat
		for i := len(segs) - 1; i >= 0 && segs[i].End > a-boundaryEps; i-- {
			if segs[i].Actor == actor {
				if segs[i].Seat == seat && segs[i].End >= a-boundaryEps {
					segs[i].End = b
					return
				}
				break
			}
		}
		segs = append(segs, SeatInterval{Actor: actor, Start: a, End: b, Seat: seat})
	}

	for i := 0; i < len(cuts)-1; i++ {
		a, b := cuts[i], cuts[i+1]
		var visible []Interval
		for _, iv := range intervals {
			if iv.Start < b-boundaryEps && iv.End > a+boundaryEps {
				visible = append(visible, iv)
			}
		}
		switch {
		case len(visible) == 0:
			continue
		case len(visible) == 1:
			emit(visible[0].Actor, a, b, SeatCenter)
			continue
		}

		// Deterministic candidate order: declared hint first, then start,
		// then actor id.
		sort.Slice(visible, func(x, y int) bool {
			hx, hy := hintKey(visible[x].Hint), hintKey(visible[y].Hint)
			if hx != hy {
				return hx < hy
			}
			if visible[x].Start != visible[y].Start {
				return visible[x].Start < visible[y].Start
			}
			return visible[x].Actor < visible[y].Actor
		})

		if len(visible) > 2 && firstErr == nil {
			names := make([]string, len(visible))
			for i, v := range visible {
				names[i] = v.Actor
			}
			firstErr = &UnsupportedLayoutError{Start: a, End: b, Actors: names}
		}

		v1, v2 := visible[0], visible[1]
		var left, right string

		// 1) declared hints
		if v1.Hint == SeatLeft {
			left = v1.Actor
		}
		if v1.Hint == SeatRight {
			right = v1.Actor
		}
		if v2.Hint == SeatLeft && left == "" {
			left = v2.Actor
		}
		if v2.Hint == SeatRight && right == "" {
			right = v2.Actor
		}
		// 2) inertia from the previous duo window
		if (left == "" || right == "") && lastDuoMap != nil {
			for _, v := range []Interval{v1, v2} {
				switch lastDuoMap[v.Actor] {
				case SeatLeft:
					if left == "" && right != v.Actor {
						left = v.Actor
					}
				case SeatRight:
					if right == "" && left != v.Actor {
						right = v.Actor
					}
				}
			}
		}
		// 3) lexicographic fallback
		if left == "" && right == "" {
			if v1.Actor < v2.Actor {
				left, right = v1.Actor, v2.Actor
			} else {
				left, right = v2.Actor, v1.Actor
			}
		} else if left == "" {
			if right == v1.Actor {
				left = v2.Actor
			} else {
				left = v1.Actor
			}
		} else if right == "" {
			if left == v1.Actor {
				right = v2.Actor
			} else {
				right = v1.Actor
			}
		}

		lastDuoMap = map[string]Seat{left: SeatLeft, right: SeatRight}

		for _, v := range visible {
			seat := SeatNone
			switch v.Actor {
			case left:
				seat = SeatLeft
			case right:
				seat = SeatRight
			}
			emit(v.Actor, a, b, seat)
		}
	}

	if firstErr != nil {
		return segs, firstErr
	}
	return segs, nil
}

func hintKey(h Seat) int {
	switch h {
	case SeatLeft:
		return 0
	case SeatRight:
		return 1
	default:
		return 2
	}
}
