package analysis

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

func TestClient_Analyze_Success(t *testing.T) {
	var gotQuery map[string]string
	var gotFileName string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost || r.URL.Path != "/analyze/" {
			t.Errorf("unexpected request: %s %s", r.Method, r.URL.Path)
		}
		gotQuery = map[string]string{
			"nominal_voltage": r.URL.Query().Get("nominal_voltage"),
			"isc":             r.URL.Query().Get("isc"),
			"il":              r.URL.Query().Get("il"),
		}
		file, header, err := r.FormFile("file")
		if err != nil {
			t.Errorf("FormFile: %v", err)
		} else {
			file.Close()
			gotFileName = header.Filename
		}
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{
			"fileName": "site.csv",
			"thdv_percent": 3.2,
			"tdd_percent": 4.1,
			"voltage_compliance": "Pass",
			"current_compliance": "Fail",
			"trend_data": {"timestamps": ["2024-01-01 00:00:00"], "power_factor": [0.95]}
		}`))
	}))
	defer srv.Close()

	c := NewClient(Config{BaseURL: srv.URL})
	result, err := c.Analyze(context.Background(), "site.csv", strings.NewReader("raw,data"), SiteParams{
		NominalVoltage: 690, Isc: 10000, Il: 500,
	})
	if err != nil {
		t.Fatalf("Analyze: %v", err)
	}
	if gotFileName != "site.csv" {
		t.Errorf("uploaded file name = %q", gotFileName)
	}
	if gotQuery["nominal_voltage"] != "690" || gotQuery["isc"] != "10000" || gotQuery["il"] != "500" {
		t.Errorf("query params = %v", gotQuery)
	}
	if result.THDVPercent != 3.2 || !result.VoltagePass() || result.CurrentPass() {
		t.Errorf("decoded result = %+v", result)
	}
	if result.TrendData == nil || len(result.TrendData.Timestamps) != 1 {
		t.Errorf("trend data = %+v", result.TrendData)
	}
}

func TestClient_Analyze_DetailError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		w.Write([]byte(`{"detail": "Uploaded file is not a recognized export."}`))
	}))
	defer srv.Close()

	c := NewClient(Config{BaseURL: srv.URL})
	_, err := c.Analyze(context.Background(), "bad.csv", strings.NewReader("x"), DefaultSiteParams())
	if err == nil {
		t.Fatal("expected error")
	}
	if err.Error() != "Uploaded file is not a recognized export." {
		t.Errorf("error = %q, want the service detail verbatim", err)
	}
}

func TestClient_Analyze_GenericStatusError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
		w.Write([]byte("panic in worker"))
	}))
	defer srv.Close()

	c := NewClient(Config{BaseURL: srv.URL})
	_, err := c.Analyze(context.Background(), "x.csv", strings.NewReader("x"), DefaultSiteParams())
	if err == nil {
		t.Fatal("expected error")
	}
	if !strings.Contains(err.Error(), "status 500") {
		t.Errorf("error = %q, want generic status message", err)
	}
}

func TestClient_Analyze_TrailingSlashBaseURL(t *testing.T) {
	var gotPath string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		w.Write([]byte(`{}`))
	}))
	defer srv.Close()

	c := NewClient(Config{BaseURL: srv.URL + "/"})
	if _, err := c.Analyze(context.Background(), "x.csv", strings.NewReader("x"), DefaultSiteParams()); err != nil {
		t.Fatalf("Analyze: %v", err)
	}
	if gotPath != "/analyze/" {
		t.Errorf("path = %q, want /analyze/", gotPath)
	}
}
