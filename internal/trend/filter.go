package trend

import (
	"sync"

	"github.com/user/pq_analyzer_go/internal/analysis"
)

// FilterTrend projects the trend data onto the indices whose timestamp
// falls inside the window, inclusive at both ends. It returns nil when the
// data has no timestamps or either boundary date is unset (distinct from
// an empty result). With zero matching indices every series collapses to
// an empty sequence while the key shape of the input is preserved, so
// downstream chart logic never has to distinguish absence from emptiness.
//
// An inverted window (end before start) makes the predicate vacuously
// false: the result is shape-preserving and empty, never an error.
func FilterTrend(td *analysis.TrendData, w Window) *analysis.TrendData {
	if td == nil || td.Timestamps == nil || w.StartDate == "" || w.EndDate == "" {
		return nil
	}
	start, err := combine(w.StartDate, w.StartTime)
	if err != nil {
		return nil
	}
	end, err := combine(w.EndDate, w.EndTime)
	if err != nil {
		return nil
	}

	indices := make([]int, 0, len(td.Timestamps))
	for i, ts := range td.Timestamps {
		t, err := parseTimestamp(ts)
		if err != nil {
			continue
		}
		if !t.Before(start) && !t.After(end) {
			indices = append(indices, i)
		}
	}

	out := &analysis.TrendData{
		Timestamps: projectStrings(td.Timestamps, indices),
		Series:     make(map[string][]float64, len(td.Series)),
		Groups:     make(map[string]map[string][]float64, len(td.Groups)),
	}
	for key, series := range td.Series {
		out.Series[key] = projectFloats(series, indices)
	}
	for key, group := range td.Groups {
		filtered := make(map[string][]float64, len(group))
		for name, series := range group {
			filtered[name] = projectFloats(series, indices)
		}
		out.Groups[key] = filtered
	}
	return out
}

// projectFloats picks the given indices out of a series. Indices beyond
// the series length are skipped: a misaligned series yields a short
// projection rather than a panic.
func projectFloats(src []float64, indices []int) []float64 {
	out := make([]float64, 0, len(indices))
	for _, i := range indices {
		if i < len(src) {
			out = append(out, src[i])
		}
	}
	return out
}

func projectStrings(src []string, indices []int) []string {
	out := make([]string, 0, len(indices))
	for _, i := range indices {
		if i < len(src) {
			out = append(out, src[i])
		}
	}
	return out
}

// Filterer memoizes FilterTrend on the identity of the trend data plus the
// four window fields. Re-derivation is only triggered when one of those
// declared inputs actually changes; unrelated state changes reuse the
// cached projection.
type Filterer struct {
	mu         sync.Mutex
	lastData   *analysis.TrendData
	lastWindow Window
	lastOut    *analysis.TrendData
	cached     bool
}

// Filter returns the (possibly cached) filtered projection.
func (f *Filterer) Filter(td *analysis.TrendData, w Window) *analysis.TrendData {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.cached && f.lastData == td && f.lastWindow == w {
		return f.lastOut
	}
	out := FilterTrend(td, w)
	f.lastData = td
	f.lastWindow = w
	f.lastOut = out
	f.cached = true
	return out
}

// Invalidate drops the cached projection.
func (f *Filterer) Invalidate() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.cached = false
	f.lastData = nil
	f.lastOut = nil
}
