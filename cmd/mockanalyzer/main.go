// mockanalyzer is a stand-in for the remote analysis service, useful for
// developing the report service without the real backend. It accepts the
// same /analyze/ request shape and returns a small canned result.
package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"log"
	"net/http"
	"time"
)

func cannedResult(fileName string) map[string]interface{} {
	base := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	n := 24
	timestamps := make([]string, n)
	u1 := make([]float64, n)
	a1 := make([]float64, n)
	thd := make([]float64, n)
	for i := 0; i < n; i++ {
		timestamps[i] = base.Add(time.Duration(i) * time.Hour).Format("2006-01-02 15:04:05")
		u1[i] = 398 + float64(i%5)
		a1[i] = 120 + float64(i%9)
		thd[i] = 3.2 + 0.1*float64(i%4)
	}
	labels := make([]int, 0, 49)
	vh := make([]float64, 0, 49)
	ah := make([]float64, 0, 49)
	for h := 2; h <= 50; h++ {
		labels = append(labels, h)
		vh = append(vh, 4.0/float64(h))
		ah = append(ah, 6.0/float64(h))
	}
	return map[string]interface{}{
		"fileName":     fileName,
		"thdv_percent": 3.4,
		"tdd_percent":  4.1,
		"summary_stats": map[string]float64{
			"u1_rms_avg":       399.8,
			"a1_rms_avg":       124.2,
			"active_power_avg": 84210.0,
			"power_factor_avg": 0.97,
		},
		"voltage_compliance": "Pass",
		"current_compliance": "Fail",
		"failing_points": map[string]interface{}{
			"Current THD": map[string]interface{}{
				"95th Percentile (10min) > TDD limit": map[string]interface{}{
					"phases": []string{"A1", "A3"},
				},
			},
		},
		"recommendations": []string{
			"Identify non-linear loads causing current distortion. Consider installing harmonic filters.",
		},
		"bar_chart_data": map[string]interface{}{
			"labels":  labels,
			"vh_data": vh,
			"ah_data": ah,
		},
		"trend_data": map[string]interface{}{
			"timestamps":   timestamps,
			"voltage_ll":   map[string]interface{}{"U1 RMS": u1},
			"current":      map[string]interface{}{"A1 RMS": a1},
			"thdi_percent": map[string]interface{}{"A1 THD": thd},
		},
	}
}

func main() {
	addr := flag.String("addr", ":8000", "listen address")
	flag.Parse()

	http.HandleFunc("/analyze/", func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
			return
		}
		if err := r.ParseMultipartForm(64 << 20); err != nil {
			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(http.StatusBadRequest)
			json.NewEncoder(w).Encode(map[string]string{"detail": "invalid multipart request"})
			return
		}
		_, header, err := r.FormFile("file")
		if err != nil {
			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(http.StatusBadRequest)
			json.NewEncoder(w).Encode(map[string]string{"detail": "Invalid file type. Please upload an .xlsx file."})
			return
		}
		log.Printf("analyze request: file=%s params=%v", header.Filename, r.URL.Query())
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(cannedResult(header.Filename))
	})

	fmt.Printf("mock analyzer listening on %s\n", *addr)
	log.Fatal(http.ListenAndServe(*addr, nil))
}
