package session

import (
	"bytes"
	"context"
	"errors"
	"io"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/user/pq_analyzer_go/internal/analysis"
	"github.com/user/pq_analyzer_go/internal/trend"
)

// fakeAnalyzer lets a test hold the request open and choose its outcome.
type fakeAnalyzer struct {
	block   chan struct{} // when non-nil, Analyze waits for it
	result  *analysis.AnalysisResult
	err     error
	mu      sync.Mutex
	calls   int
}

func (f *fakeAnalyzer) Analyze(ctx context.Context, fileName string, file io.Reader, params analysis.SiteParams) (*analysis.AnalysisResult, error) {
	f.mu.Lock()
	f.calls++
	f.mu.Unlock()
	if f.block != nil {
		<-f.block
	}
	if f.err != nil {
		return nil, f.err
	}
	if f.result != nil {
		// The real service echoes the uploaded file name in the result.
		f.result.FileName = fileName
	}
	return f.result, nil
}

type recordingNotifier struct {
	mu     sync.Mutex
	events []string
}

func (n *recordingNotifier) Notify(event string, payload interface{}) {
	n.mu.Lock()
	n.events = append(n.events, event)
	n.mu.Unlock()
}

func (n *recordingNotifier) seen(event string) bool {
	n.mu.Lock()
	defer n.mu.Unlock()
	for _, e := range n.events {
		if e == event {
			return true
		}
	}
	return false
}

func resultWithTrend() *analysis.AnalysisResult {
	return &analysis.AnalysisResult{
		FileName:          "site.csv",
		VoltageCompliance: "Pass",
		CurrentCompliance: "Pass",
		TrendData: &analysis.TrendData{
			Timestamps: []string{"2024-01-01 00:00:00", "2024-01-01 02:00:00"},
			Groups: map[string]map[string][]float64{
				"voltage_ll": {"U1 RMS": {400.0, 401.0}},
			},
		},
	}
}

func TestAnalyze_ReplacesStateAndResetsWindow(t *testing.T) {
	fa := &fakeAnalyzer{result: resultWithTrend()}
	n := &recordingNotifier{}
	s := New(fa, n, 0)

	result, err := s.Analyze(context.Background(), "site.csv", strings.NewReader("x"), analysis.DefaultSiteParams())
	if err != nil {
		t.Fatalf("Analyze: %v", err)
	}
	if s.Result() != result {
		t.Error("session does not hold the new result")
	}

	w, d, ok := s.Window()
	if !ok {
		t.Fatal("window not seeded from trend span")
	}
	if w.StartDate != "2024-01-01" || w.StartTime != "00:00:00" || w.EndTime != "02:00:00" {
		t.Errorf("window = %+v", w)
	}
	if d.Hours != 2 {
		t.Errorf("duration = %+v, want 2h", d)
	}
	if !n.seen(EventAnalysisStarted) || !n.seen(EventAnalysisComplete) {
		t.Errorf("events = %v", n.events)
	}
}

func TestAnalyze_SingleFlight(t *testing.T) {
	fa := &fakeAnalyzer{block: make(chan struct{}), result: resultWithTrend()}
	s := New(fa, nil, 0)

	done := make(chan error, 1)
	go func() {
		_, err := s.Analyze(context.Background(), "a.csv", strings.NewReader("x"), analysis.SiteParams{})
		done <- err
	}()

	// Wait until the first request is inside the analyzer.
	for !s.Loading() {
		time.Sleep(time.Millisecond)
	}
	if _, err := s.Analyze(context.Background(), "b.csv", strings.NewReader("x"), analysis.SiteParams{}); !errors.Is(err, ErrAnalysisInFlight) {
		t.Fatalf("second submission = %v, want ErrAnalysisInFlight", err)
	}

	close(fa.block)
	if err := <-done; err != nil {
		t.Fatalf("first submission: %v", err)
	}
	if fa.calls != 1 {
		t.Errorf("analyzer called %d times, want 1", fa.calls)
	}
}

func TestAnalyze_FailureClearsResult(t *testing.T) {
	fa := &fakeAnalyzer{result: resultWithTrend()}
	n := &recordingNotifier{}
	s := New(fa, n, 0)

	if _, err := s.Analyze(context.Background(), "site.csv", strings.NewReader("x"), analysis.SiteParams{}); err != nil {
		t.Fatalf("seed analysis: %v", err)
	}

	fa.err = errors.New("service unavailable")
	if _, err := s.Analyze(context.Background(), "site.csv", strings.NewReader("x"), analysis.SiteParams{}); err == nil {
		t.Fatal("expected failure")
	}
	if s.Result() != nil {
		t.Error("failed analysis left a stale result visible")
	}
	if !n.seen(EventAnalysisFailed) {
		t.Errorf("events = %v", n.events)
	}
}

func TestApplyWindow_NarrowsTrendGroups(t *testing.T) {
	fa := &fakeAnalyzer{result: resultWithTrend()}
	s := New(fa, nil, 0)
	if _, err := s.Analyze(context.Background(), "site.csv", strings.NewReader("x"), analysis.SiteParams{}); err != nil {
		t.Fatalf("Analyze: %v", err)
	}

	groups := s.TrendGroups(trend.CategoryRMS)
	if len(groups) != 1 || len(groups[0].Datasets[0].Points) != 2 {
		t.Fatalf("full-range groups = %+v", groups)
	}

	end := "01:00:00"
	s.ApplyWindow(trend.Patch{EndTime: &end})
	groups = s.TrendGroups(trend.CategoryRMS)
	if len(groups) != 1 || len(groups[0].Datasets[0].Points) != 1 {
		t.Fatalf("narrowed groups kept %d points, want 1", len(groups[0].Datasets[0].Points))
	}
}

func TestChartPNG_ReflectsWindowEdit(t *testing.T) {
	fa := &fakeAnalyzer{result: resultWithTrend()}
	s := New(fa, nil, 0)
	if _, err := s.Analyze(context.Background(), "site.csv", strings.NewReader("x"), analysis.SiteParams{}); err != nil {
		t.Fatalf("Analyze: %v", err)
	}

	before, err := s.ChartPNG("Voltage L-L RMS")
	if err != nil {
		t.Fatalf("ChartPNG: %v", err)
	}

	// Narrowing the window drops the second sample; the chart endpoint
	// must redraw from the narrowed projection, not the cached one.
	end := "00:30:00"
	s.ApplyWindow(trend.Patch{EndTime: &end})
	after, err := s.ChartPNG("Voltage L-L RMS")
	if err != nil {
		t.Fatalf("ChartPNG after edit: %v", err)
	}
	if bytes.Equal(before, after) {
		t.Error("chart after the window edit is identical to the pre-edit render")
	}
}

func TestTrendGroups_NoResult(t *testing.T) {
	s := New(&fakeAnalyzer{}, nil, 0)
	if groups := s.TrendGroups(""); groups != nil {
		t.Errorf("groups = %v, want nil without a result", groups)
	}
}

func TestExportPDF_NoResult(t *testing.T) {
	s := New(&fakeAnalyzer{}, nil, 0)
	if _, _, err := s.ExportPDF(context.Background()); !errors.Is(err, ErrNoResult) {
		t.Fatalf("err = %v, want ErrNoResult", err)
	}
}

func TestExportPDF_ProducesNamedPDF(t *testing.T) {
	fa := &fakeAnalyzer{result: resultWithTrend()}
	n := &recordingNotifier{}
	s := New(fa, n, 0)
	if _, err := s.Analyze(context.Background(), "plant_a.csv", strings.NewReader("x"), analysis.DefaultSiteParams()); err != nil {
		t.Fatalf("Analyze: %v", err)
	}

	data, name, err := s.ExportPDF(context.Background())
	if err != nil {
		t.Fatalf("ExportPDF: %v", err)
	}
	if name != "plant_a_report.pdf" {
		t.Errorf("file name = %q", name)
	}
	if len(data) == 0 || string(data[:4]) != "%PDF" {
		t.Error("output is not a PDF document")
	}
	if s.Exporting() {
		t.Error("exporting flag not cleared after success")
	}
	if !n.seen(EventExportStarted) || !n.seen(EventExportComplete) {
		t.Errorf("events = %v", n.events)
	}
}

func TestExportPDF_BusyFlagClearedOnFailure(t *testing.T) {
	fa := &fakeAnalyzer{result: resultWithTrend()}
	n := &recordingNotifier{}
	// A non-zero settle delay makes the cancelled context fail the capture
	// before any panel is read.
	s := New(fa, n, time.Millisecond)
	if _, err := s.Analyze(context.Background(), "site.csv", strings.NewReader("x"), analysis.SiteParams{}); err != nil {
		t.Fatalf("Analyze: %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if _, _, err := s.ExportPDF(ctx); err == nil {
		t.Fatal("expected failure with a cancelled context")
	}
	if s.Exporting() {
		t.Error("exporting flag not cleared after failure")
	}
	if !n.seen(EventExportFailed) {
		t.Errorf("events = %v", n.events)
	}

	// A subsequent export must be accepted again.
	if _, _, err := s.ExportPDF(context.Background()); err != nil {
		t.Fatalf("export after failure: %v", err)
	}
}

func TestExportFileName(t *testing.T) {
	tests := []struct{ in, want string }{
		{"plant_a.csv", "plant_a_report.pdf"},
		{"/tmp/upload/data.xlsx", "data_report.pdf"},
		{"", "power_quality_report.pdf"},
	}
	for _, tt := range tests {
		if got := exportFileName(tt.in); got != tt.want {
			t.Errorf("exportFileName(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}
