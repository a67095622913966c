// Package limits carries the IEEE 519 harmonic distortion limit tables and
// resolves the applicable voltage and current limit curves from site
// parameters. The tables are static; selection happens once per analysis.
package limits

import "math"

// voltageLimitRow pairs the individual-harmonic limit with the THD limit
// for one nominal-voltage bracket.
type voltageLimitRow struct {
	maxVoltage float64 // inclusive upper bound in volts
	individual float64
	thd        float64
}

// Brackets are inclusive at the top and strictly ascending with no gaps.
var voltageLimitRows = []voltageLimitRow{
	{1000, 5.0, 8.0},
	{69000, 3.0, 5.0},
	{161000, 1.5, 2.5},
	{math.Inf(1), 1.0, 1.5},
}

// VoltageLimit returns the individual voltage harmonic limit (percent) for
// the given nominal voltage.
func VoltageLimit(nominalVoltage float64) float64 {
	for _, row := range voltageLimitRows {
		if nominalVoltage <= row.maxVoltage {
			return row.individual
		}
	}
	return voltageLimitRows[len(voltageLimitRows)-1].individual
}

// VoltageTHDLimit returns the voltage THD limit (percent) for the given
// nominal voltage.
func VoltageTHDLimit(nominalVoltage float64) float64 {
	for _, row := range voltageLimitRows {
		if nominalVoltage <= row.maxVoltage {
			return row.thd
		}
	}
	return voltageLimitRows[len(voltageLimitRows)-1].thd
}

// CurrentLimitRow is one Isc/IL ratio bracket of the current distortion
// table (120 V through 69 kV), giving the limit percentage per
// harmonic-order band plus the TDD limit.
type CurrentLimitRow struct {
	MaxRatio float64 // exclusive upper bound of the Isc/IL bracket
	HLt11    float64
	H11to17  float64
	H17to23  float64
	H23to35  float64
	HGe35    float64
	TDD      float64
}

var currentLimitRows = []CurrentLimitRow{
	{20, 4.0, 2.0, 1.5, 0.6, 0.3, 5.0},
	{50, 7.0, 3.5, 2.5, 1.0, 0.5, 8.0},
	{100, 10.0, 4.5, 4.0, 1.5, 0.7, 12.0},
	{1000, 12.0, 5.5, 5.0, 2.0, 1.0, 15.0},
	{math.Inf(1), 15.0, 7.0, 6.0, 2.5, 1.4, 20.0},
}

// CurrentLimitRowFor selects the bracket for the Isc/IL ratio. The second
// return is false when il is zero (no ratio exists).
func CurrentLimitRowFor(isc, il float64) (CurrentLimitRow, bool) {
	if il == 0 {
		return CurrentLimitRow{}, false
	}
	ratio := isc / il
	for _, row := range currentLimitRows {
		if ratio < row.MaxRatio {
			return row, true
		}
	}
	return currentLimitRows[len(currentLimitRows)-1], true
}

// ForOrder maps a harmonic order to the row's sub-limit by order band.
func (r CurrentLimitRow) ForOrder(order float64) float64 {
	switch {
	case order < 11:
		return r.HLt11
	case order < 17:
		return r.H11to17
	case order < 23:
		return r.H17to23
	case order < 35:
		return r.H23to35
	default:
		return r.HGe35
	}
}

// CurrentLimits derives the limit-overlay sequence for the given harmonic
// orders, aligned index-for-index with the input. It returns nil when il is
// zero, mirroring the missing-input contract of the source tables.
func CurrentLimits(isc, il float64, orders []float64) []float64 {
	row, ok := CurrentLimitRowFor(isc, il)
	if !ok {
		return nil
	}
	out := make([]float64, len(orders))
	for i, order := range orders {
		out[i] = row.ForOrder(order)
	}
	return out
}
