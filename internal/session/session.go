// Package session owns the one canonical analysis state of the report
// view: the current result, the selected time window, the memoized trend
// filter and the chart capture registry. Derived values are recomputed on
// input change, never mutated in place.
package session

import (
	"context"
	"errors"
	"fmt"
	"io"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/user/pq_analyzer_go/internal/analysis"
	"github.com/user/pq_analyzer_go/internal/report"
	"github.com/user/pq_analyzer_go/internal/trend"
)

var (
	// ErrAnalysisInFlight is returned while a previous analysis request
	// has not resolved; a second submission is rejected, not queued.
	ErrAnalysisInFlight = errors.New("an analysis is already in progress")
	// ErrExportInFlight is returned while a PDF export is running.
	ErrExportInFlight = errors.New("an export is already in progress")
	// ErrNoResult is returned by operations that need a current result.
	ErrNoResult = errors.New("no analysis result available")
	// ErrSuperseded marks a response that arrived after a newer request
	// had already started; the stale result is discarded.
	ErrSuperseded = errors.New("analysis result superseded by a newer request")
)

// Analyzer is the boundary to the remote analysis service.
type Analyzer interface {
	Analyze(ctx context.Context, fileName string, file io.Reader, params analysis.SiteParams) (*analysis.AnalysisResult, error)
}

// Notifier receives status transitions for the busy indicator. A nil
// notifier is allowed.
type Notifier interface {
	Notify(event string, payload interface{})
}

// Status event names broadcast over the websocket.
const (
	EventAnalysisStarted  = "analysis_started"
	EventAnalysisComplete = "analysis_complete"
	EventAnalysisFailed   = "analysis_failed"
	EventExportStarted    = "export_started"
	EventExportComplete   = "export_complete"
	EventExportFailed     = "export_failed"
)

// Session is the per-process report state. All computation is triggered by
// discrete transitions: new result, window edit, tab switch, export.
type Session struct {
	analyzer Analyzer
	notifier Notifier
	settle   time.Duration

	mu        sync.Mutex
	result    *analysis.AnalysisResult
	params    analysis.SiteParams
	rangeCtl  trend.RangeController
	filterer  trend.Filterer
	registry  *report.Registry
	loading   bool
	exporting bool
	seq       uint64
}

// New creates a session. settle is the minimum render-settle delay applied
// before chart pixels are read back during export.
func New(analyzer Analyzer, notifier Notifier, settle time.Duration) *Session {
	return &Session{
		analyzer: analyzer,
		notifier: notifier,
		settle:   settle,
		registry: report.NewRegistry(),
	}
}

func (s *Session) notify(event string, payload interface{}) {
	if s.notifier != nil {
		s.notifier.Notify(event, payload)
	}
}

// Analyze submits the file to the remote service and, on success, replaces
// the session result wholesale and resets the time window to the full data
// span. Exactly one request may be in flight; a stale response (one
// outlived by a newer request) is discarded rather than applied.
func (s *Session) Analyze(ctx context.Context, fileName string, file io.Reader, params analysis.SiteParams) (*analysis.AnalysisResult, error) {
	s.mu.Lock()
	if s.loading {
		s.mu.Unlock()
		return nil, ErrAnalysisInFlight
	}
	s.loading = true
	s.seq++
	seq := s.seq
	s.mu.Unlock()

	defer func() {
		s.mu.Lock()
		s.loading = false
		s.mu.Unlock()
	}()

	s.notify(EventAnalysisStarted, map[string]string{"file": fileName})
	result, err := s.analyzer.Analyze(ctx, fileName, file, params)

	s.mu.Lock()
	if seq != s.seq {
		s.mu.Unlock()
		log.Warn().Str("file", fileName).Msg("Discarding stale analysis response")
		return nil, ErrSuperseded
	}
	if err != nil {
		// Failure clears the result; no partial state is shown.
		s.result = nil
		s.filterer.Invalidate()
		s.registry.Reset()
		s.mu.Unlock()
		s.notify(EventAnalysisFailed, map[string]string{"error": err.Error()})
		return nil, err
	}
	s.result = result
	s.params = params
	s.rangeCtl.ResetToFullRange(result.TrendData)
	s.filterer.Invalidate()
	s.registry.Reset()
	s.mu.Unlock()

	log.Info().Str("file", fileName).Msg("Analysis complete")
	s.notify(EventAnalysisComplete, map[string]string{"file": fileName})
	return result, nil
}

// Result returns the current analysis result, or nil.
func (s *Session) Result() *analysis.AnalysisResult {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.result
}

// Loading reports whether an analysis request is in flight.
func (s *Session) Loading() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.loading
}

// Exporting reports whether a PDF export is running.
func (s *Session) Exporting() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.exporting
}

// Window returns the current window and its decomposed duration.
func (s *Session) Window() (trend.Window, trend.Duration, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	d, ok := s.rangeCtl.Window.IntervalDuration()
	return s.rangeCtl.Window, d, ok
}

// ApplyWindow merges a partial window edit.
func (s *Session) ApplyWindow(p trend.Patch) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.rangeCtl.Apply(p)
}

// TrendGroups shapes the filtered trend data into chart-ready panels for
// one category (empty category selects all, as the export path does).
func (s *Session) TrendGroups(category string) []trend.ChartGroup {
	s.mu.Lock()
	result := s.result
	window := s.rangeCtl.Window
	s.mu.Unlock()
	if result == nil {
		return nil
	}
	filtered := s.filterer.Filter(result.TrendData, window)
	return trend.GroupsFor(filtered, category)
}

// ChartPNG renders one chart group by title through its capture handle,
// creating the handle lazily. Used by the on-screen chart endpoint; export
// reuses the same handles.
func (s *Session) ChartPNG(title string) ([]byte, error) {
	groups := s.TrendGroups("")
	for _, g := range groups {
		if g.Spec.Title != title {
			continue
		}
		group := g
		panel := s.currentRegistry().Panel(title, func() ([]byte, error) {
			return report.RenderTrendChart(group)
		})
		panel.Invalidate()
		<-panel.Settled()
		return panel.Image()
	}
	return nil, fmt.Errorf("no chart group titled %q", title)
}

func (s *Session) currentRegistry() *report.Registry {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.registry
}

// exportSections is the fixed per-page category layout of the trend part
// of the PDF; power factor and unbalance share a page.
var exportSections = []struct {
	Heading    string
	Categories []string
}{
	{"RMS Trends", []string{trend.CategoryRMS}},
	{"Power Trends", []string{trend.CategoryPower}},
	{"Energy Trends", []string{trend.CategoryEnergy}},
	{"Harmonic Trends", []string{trend.CategoryHarmonic}},
	{"Power Factor & Unbalance Trends", []string{trend.CategoryPowerFactor, trend.CategoryUnbalance}},
}

// ExportPDF captures every non-empty chart surface and composes the
// paginated report. Single-flight: the exporting flag is cleared on every
// path so a failed export never leaves the view stuck.
func (s *Session) ExportPDF(ctx context.Context) ([]byte, string, error) {
	s.mu.Lock()
	if s.exporting {
		s.mu.Unlock()
		return nil, "", ErrExportInFlight
	}
	if s.result == nil {
		s.mu.Unlock()
		return nil, "", ErrNoResult
	}
	s.exporting = true
	result := s.result
	params := s.params
	registry := s.registry
	s.mu.Unlock()

	defer func() {
		s.mu.Lock()
		s.exporting = false
		s.mu.Unlock()
	}()

	s.notify(EventExportStarted, nil)
	pdfBytes, err := s.composePDF(ctx, result, params, registry)
	if err != nil {
		log.Error().Err(err).Msg("PDF export failed")
		s.notify(EventExportFailed, map[string]string{"error": err.Error()})
		return nil, "", err
	}

	name := exportFileName(result.FileName)
	log.Info().Str("file", name).Int("bytes", len(pdfBytes)).Msg("PDF export complete")
	s.notify(EventExportComplete, map[string]string{"file": name})
	return pdfBytes, name, nil
}

func (s *Session) composePDF(ctx context.Context, result *analysis.AnalysisResult, params analysis.SiteParams, registry *report.Registry) ([]byte, error) {
	groups := s.TrendGroups("")

	var panels []*report.Panel
	for _, g := range groups {
		if !g.HasData() {
			continue
		}
		group := g
		panels = append(panels, registry.Panel(group.Spec.Title, func() ([]byte, error) {
			return report.RenderTrendChart(group)
		}))
	}
	images, err := report.CaptureAll(ctx, registry, s.settle, panels)
	if err != nil {
		return nil, fmt.Errorf("chart capture failed: %w", err)
	}

	voltagePNG, err := report.RenderSpectrum(report.VoltageSpectrum(result.BarChartData, params.NominalVoltage))
	if err != nil {
		log.Warn().Err(err).Msg("Voltage spectrum not rendered")
		voltagePNG = nil
	}
	currentPNG, err := report.RenderSpectrum(report.CurrentSpectrum(result.BarChartData, params.Isc, params.Il))
	if err != nil {
		log.Warn().Err(err).Msg("Current spectrum not rendered")
		currentPNG = nil
	}

	sections := make([]report.TrendSection, 0, len(exportSections))
	for _, def := range exportSections {
		section := report.TrendSection{Heading: def.Heading}
		for _, g := range groups {
			if !containsCategory(def.Categories, g.Spec.Category) {
				continue
			}
			png, ok := images[g.Spec.Title]
			if !ok {
				continue
			}
			section.Charts = append(section.Charts, report.TrendChartImage{Title: g.Spec.Title, PNG: png})
		}
		sections = append(sections, section)
	}

	return report.ComposeReport(report.ReportInput{
		Result:             result,
		VoltageSpectrumPNG: voltagePNG,
		CurrentSpectrumPNG: currentPNG,
		TrendSections:      sections,
	})
}

func containsCategory(categories []string, c string) bool {
	for _, cat := range categories {
		if cat == c {
			return true
		}
	}
	return false
}

// exportFileName derives the PDF name from the uploaded file name.
func exportFileName(uploaded string) string {
	base := strings.TrimSuffix(filepath.Base(uploaded), filepath.Ext(uploaded))
	if base == "" || base == "." {
		base = "power_quality"
	}
	return base + "_report.pdf"
}
