package suite

import (
	"math"
	"slices"

	"golang.org/x/exp/maps"
)

// Row is the summary of one case over the benchmark frames.
type Row struct {
	ID      uint32
	Name    string
	Total   float64
	Average float64
	StdDev  float64
	Ratio   float64
	Samples int
}

type timing struct {
	name    string
	total   float64
	samples []float64
}

// Results accumulates per-case timings. Record matches profiler.ResultFunc, so a Results can be
// handed straight to Device.ResolveAndReport.
type Results struct {
	compareTo string
	timings   map[uint32]*timing
}

// NewResults creates an empty accumulator that reports ratios against the named case.
//
// Parameters:
//   - compareTo: the name of the comparison case
//
// Returns:
//   - *Results: the accumulator
func NewResults(compareTo string) *Results {
	return &Results{
		compareTo: compareTo,
		timings:   make(map[uint32]*timing),
	}
}

// Record adds one timing of the case with the given id. The first name recorded for an id sticks.
func (r *Results) Record(elapsedMs float64, id uint32, name string) {
	t, ok := r.timings[id]
	if !ok {
		t = &timing{name: name}
		r.timings[id] = t
	}
	t.total += elapsedMs
	t.samples = append(t.samples, elapsedMs)
}

// Len returns the number of cases recorded.
func (r *Results) Len() int {
	return len(r.timings)
}

// CompareTo returns the name of the comparison case.
func (r *Results) CompareTo() string {
	return r.compareTo
}

// Rows summarizes every case in id order. Ratio is the comparison case's total over the row's
// total; a missing comparison case counts as 1 ms.
//
// Returns:
//   - []Row: one row per recorded case
func (r *Results) Rows() []Row {
	ids := maps.Keys(r.timings)
	slices.Sort(ids)

	reference := 1.0
	for _, id := range ids {
		if t := r.timings[id]; t.name == r.compareTo {
			reference = t.total
			break
		}
	}

	rows := make([]Row, 0, len(ids))
	for _, id := range ids {
		t := r.timings[id]
		n := float64(len(t.samples))
		avg := t.total / n

		var variance float64
		for _, s := range t.samples {
			variance += (s - avg) * (s - avg)
		}

		row := Row{
			ID:      id,
			Name:    t.name,
			Total:   t.total,
			Average: avg,
			StdDev:  math.Sqrt(variance / n),
			Samples: len(t.samples),
		}
		if t.total > 0 {
			row.Ratio = reference / t.total
		}
		rows = append(rows, row)
	}
	return rows
}
