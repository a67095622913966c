package analysis

import (
	"encoding/json"
	"strings"
)

// AnalysisResult is the payload returned by the remote analysis service.
// It is held wholesale as the current session state and replaced (never
// mutated) when a new analysis completes.
type AnalysisResult struct {
	FileName          string                 `json:"fileName"`
	THDVPercent       float64                `json:"thdv_percent"`
	TDDPercent        float64                `json:"tdd_percent"`
	SummaryStats      map[string]float64     `json:"summary_stats"`
	VoltageCompliance string                 `json:"voltage_compliance"`
	CurrentCompliance string                 `json:"current_compliance"`
	FailingPoints     FailingPoints          `json:"failing_points"`
	Recommendations   []string               `json:"recommendations"`
	BarChartData      BarChartData           `json:"bar_chart_data"`
	TrendData         *TrendData             `json:"trend_data"`
}

// FailingPoints maps category name -> description -> detail.
type FailingPoints map[string]map[string]FailingPoint

// FailingPoint lists the phases (and harmonic orders, when applicable)
// that violated a limit for one description.
type FailingPoint struct {
	Phases    []string `json:"phases"`
	Harmonics []int    `json:"harmonics"`
}

// BarChartData is the harmonic spectrum snapshot: one value per harmonic
// order for voltage (vh) and current (ah), aligned with Labels.
type BarChartData struct {
	Labels []float64 `json:"labels"`
	VhData []float64 `json:"vh_data"`
	AhData []float64 `json:"ah_data"`
}

// VoltagePass reports the voltage compliance verdict. The service emits
// "Pass"/"Fail" but the comparison is case-insensitive by contract.
func (r *AnalysisResult) VoltagePass() bool {
	return strings.EqualFold(r.VoltageCompliance, "pass")
}

// CurrentPass reports the current compliance verdict.
func (r *AnalysisResult) CurrentPass() bool {
	return strings.EqualFold(r.CurrentCompliance, "pass")
}

// TrendData is the time-series half of the result: a timestamp spine plus
// series keyed either directly (top-level) or under a named group. Every
// series is index-aligned with Timestamps; misaligned or missing series
// degrade to empty projections downstream, they are never an error.
type TrendData struct {
	Timestamps []string
	Series     map[string][]float64
	Groups     map[string]map[string][]float64
}

// UnmarshalJSON decodes the service's trend_data object without a fixed
// schema: "timestamps" is the spine, array values become top-level series,
// object values become groups. Values of any other shape are dropped so a
// server-side addition cannot fail the whole payload.
func (t *TrendData) UnmarshalJSON(data []byte) error {
	var raw map[string]json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	t.Series = make(map[string][]float64)
	t.Groups = make(map[string]map[string][]float64)
	for key, val := range raw {
		if key == "timestamps" {
			if err := json.Unmarshal(val, &t.Timestamps); err != nil {
				return err
			}
			continue
		}
		var series []float64
		if err := json.Unmarshal(val, &series); err == nil {
			t.Series[key] = series
			continue
		}
		var rawGroup map[string]json.RawMessage
		if err := json.Unmarshal(val, &rawGroup); err != nil {
			continue
		}
		group := make(map[string][]float64, len(rawGroup))
		for name, rawSeries := range rawGroup {
			var vals []float64
			if err := json.Unmarshal(rawSeries, &vals); err == nil {
				group[name] = vals
			}
		}
		t.Groups[key] = group
	}
	return nil
}

// MarshalJSON re-emits the same wire shape the service produced, so the
// result can be forwarded to the browser unchanged.
func (t *TrendData) MarshalJSON() ([]byte, error) {
	out := make(map[string]interface{}, len(t.Series)+len(t.Groups)+1)
	out["timestamps"] = t.Timestamps
	for key, series := range t.Series {
		out[key] = series
	}
	for key, group := range t.Groups {
		out[key] = group
	}
	return json.Marshal(out)
}

// Group returns the named series group, or nil when absent.
func (t *TrendData) Group(key string) map[string][]float64 {
	if t == nil {
		return nil
	}
	return t.Groups[key]
}
