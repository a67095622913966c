package trend

import (
	"time"

	"github.com/user/pq_analyzer_go/internal/analysis"
)

const (
	dateLayout = "2006-01-02"
	timeLayout = "15:04:05"
)

// timestampLayouts covers the formats the analysis service has been
// observed to emit for trend timestamps.
var timestampLayouts = []string{
	"2006-01-02 15:04:05",
	"2006-01-02T15:04:05",
	time.RFC3339,
}

func parseTimestamp(s string) (time.Time, error) {
	var err error
	for _, layout := range timestampLayouts {
		var t time.Time
		if t, err = time.Parse(layout, s); err == nil {
			return t, nil
		}
	}
	return time.Time{}, err
}

// combine joins a calendar date with a time-of-day string into a single
// instant. An empty time-of-day means midnight.
func combine(date, tod string) (time.Time, error) {
	if tod == "" {
		tod = "00:00:00"
	}
	return time.Parse(dateLayout+" "+timeLayout, date+" "+tod)
}

// Window is the selected start/end date-time range. It is only meaningful
// once both dates are set; the time-of-day strings are "HH:MM:SS".
type Window struct {
	StartDate string `json:"start_date"`
	EndDate   string `json:"end_date"`
	StartTime string `json:"start_time"`
	EndTime   string `json:"end_time"`
}

// Duration is an interval decomposed into whole hours, minutes and seconds.
type Duration struct {
	Hours   int `json:"hours"`
	Minutes int `json:"minutes"`
	Seconds int `json:"seconds"`
}

// IntervalDuration returns |end - start| decomposed into whole units. The
// second return is false while either date is unset or unparseable. An
// inverted window still yields its absolute duration; filtering is where
// the literal ordering matters.
func (w Window) IntervalDuration() (Duration, bool) {
	if w.StartDate == "" || w.EndDate == "" {
		return Duration{}, false
	}
	start, err := combine(w.StartDate, w.StartTime)
	if err != nil {
		return Duration{}, false
	}
	end, err := combine(w.EndDate, w.EndTime)
	if err != nil {
		return Duration{}, false
	}
	d := end.Sub(start)
	if d < 0 {
		d = -d
	}
	hours := int(d / time.Hour)
	d -= time.Duration(hours) * time.Hour
	minutes := int(d / time.Minute)
	d -= time.Duration(minutes) * time.Minute
	seconds := int(d / time.Second)
	return Duration{Hours: hours, Minutes: minutes, Seconds: seconds}, true
}

// RangeController owns the selected time window. It is reset to the full
// span of available data whenever a new analysis result arrives.
type RangeController struct {
	Window Window
}

// ResetToFullRange seeds the window from the first and last trend
// timestamps. With no timestamps (or unparseable boundary timestamps) the
// window is left unset.
func (c *RangeController) ResetToFullRange(td *analysis.TrendData) {
	if td == nil || len(td.Timestamps) == 0 {
		return
	}
	first, err := parseTimestamp(td.Timestamps[0])
	if err != nil {
		return
	}
	last, err := parseTimestamp(td.Timestamps[len(td.Timestamps)-1])
	if err != nil {
		return
	}
	c.Window = Window{
		StartDate: first.Format(dateLayout),
		EndDate:   last.Format(dateLayout),
		StartTime: first.Format(timeLayout),
		EndTime:   last.Format(timeLayout),
	}
}

// Patch carries partial window edits; nil fields are left untouched.
type Patch struct {
	StartDate *string `json:"start_date"`
	EndDate   *string `json:"end_date"`
	StartTime *string `json:"start_time"`
	EndTime   *string `json:"end_time"`
}

// Apply merges a patch into the current window.
func (c *RangeController) Apply(p Patch) {
	if p.StartDate != nil {
		c.Window.StartDate = *p.StartDate
	}
	if p.EndDate != nil {
		c.Window.EndDate = *p.EndDate
	}
	if p.StartTime != nil {
		c.Window.StartTime = *p.StartTime
	}
	if p.EndTime != nil {
		c.Window.EndTime = *p.EndTime
	}
}
