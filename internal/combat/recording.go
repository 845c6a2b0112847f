package combat

import (
	"cmp"
	"slices"
)

// FrameEntry is the summed health and shield of all units of one type on one side.
type FrameEntry struct {
	Side   int      `json:"side"`
	Type   UnitType `json:"type"`
	Health float64  `json:"health"`
}

// Frame is a snapshot taken at the start of an iteration.
type Frame struct {
	Iteration int          `json:"iteration"`
	Time      float64      `json:"time"`
	Entries   []FrameEntry `json:"entries"`
}

// Total sums the health of every entry belonging to side, or all sides when side is 0.
func (f Frame) Total(side int) float64 {
	var total float64
	for _, e := range f.Entries {
		if side == 0 || e.Side == side {
			total += e.Health
		}
	}
	return total
}

// Recording is the per-iteration history of one engagement.
type Recording struct {
	Frames []Frame `json:"frames"`
}

func (r *Recording) capture(iteration int, time float64, units [2][]Unit) {
	type key struct {
		side int
		t    UnitType
	}
	sums := make(map[key]float64)
	for side, roster := range units {
		for i := range roster {
			if !roster[i].IsAlive() {
				continue
			}
			sums[key{side + 1, roster[i].Type}] += roster[i].TotalHealth()
		}
	}

	entries := make([]FrameEntry, 0, len(sums))
	for k, h := range sums {
		entries = append(entries, FrameEntry{Side: k.side, Type: k.t, Health: h})
	}
	slices.SortFunc(entries, func(a, b FrameEntry) int {
		if c := cmp.Compare(a.Side, b.Side); c != 0 {
			return c
		}
		return cmp.Compare(a.Type, b.Type)
	})
	r.Frames = append(r.Frames, Frame{Iteration: iteration, Time: time, Entries: entries})
}
