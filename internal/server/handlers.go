package server

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"

	gwebsocket "github.com/gorilla/websocket"
	"github.com/rs/zerolog/log"

	"github.com/user/pq_analyzer_go/internal/analysis"
	"github.com/user/pq_analyzer_go/internal/session"
	"github.com/user/pq_analyzer_go/internal/trend"
	"github.com/user/pq_analyzer_go/internal/ws"
)

// maxUploadBytes bounds the multipart memory buffer for uploads.
const maxUploadBytes = 64 << 20

var upgrader = gwebsocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin:     func(r *http.Request) bool { return true },
}

// Handler carries the HTTP surface's dependencies.
type Handler struct {
	session *session.Session
	hub     *ws.Hub
}

func NewHandler(sess *session.Session, hub *ws.Hub) *Handler {
	return &Handler{session: sess, hub: hub}
}

// writeDetail emits the service's structured error payload.
func writeDetail(w http.ResponseWriter, status int, detail string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(map[string]string{"detail": detail})
}

func writeJSON(w http.ResponseWriter, status int, body interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(body); err != nil {
		log.Error().Err(err).Msg("Failed to encode response")
	}
}

// siteParamsFrom reads the numeric site parameters from form or query
// values. Absent fields take the documented defaults; invalid numerics
// coerce to 0.
func siteParamsFrom(r *http.Request) analysis.SiteParams {
	params := analysis.DefaultSiteParams()
	read := func(name string, dst *float64) {
		raw := r.FormValue(name)
		if raw == "" {
			raw = r.URL.Query().Get(name)
		}
		if raw == "" {
			return
		}
		v, err := strconv.ParseFloat(raw, 64)
		if err != nil {
			v = 0
		}
		*dst = v
	}
	read("nominal_voltage", &params.NominalVoltage)
	read("isc", &params.Isc)
	read("il", &params.Il)
	return params
}

// HandleAnalyze accepts the measurement file upload plus site parameters
// and forwards them to the remote analysis service.
func (h *Handler) HandleAnalyze(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseMultipartForm(maxUploadBytes); err != nil {
		writeDetail(w, http.StatusBadRequest, "invalid multipart request")
		return
	}
	file, header, err := r.FormFile("file")
	if err != nil {
		// Missing file is reported inline; no upstream call is issued.
		writeDetail(w, http.StatusBadRequest, "Please select a file to analyze.")
		return
	}
	defer file.Close()

	result, err := h.session.Analyze(r.Context(), header.Filename, file, siteParamsFrom(r))
	if err != nil {
		switch {
		case errors.Is(err, session.ErrAnalysisInFlight):
			writeDetail(w, http.StatusConflict, err.Error())
		case errors.Is(err, session.ErrSuperseded):
			writeDetail(w, http.StatusConflict, err.Error())
		default:
			writeDetail(w, http.StatusBadGateway, err.Error())
		}
		return
	}
	writeJSON(w, http.StatusOK, result)
}

// HandleResult returns the current analysis result.
func (h *Handler) HandleResult(w http.ResponseWriter, r *http.Request) {
	result := h.session.Result()
	if result == nil {
		writeDetail(w, http.StatusNotFound, "no analysis result available")
		return
	}
	writeJSON(w, http.StatusOK, result)
}

// windowResponse echoes the window with its derived interval duration.
type windowResponse struct {
	Window   trend.Window    `json:"window"`
	Duration *trend.Duration `json:"interval_duration"`
}

func (h *Handler) windowResponse() windowResponse {
	window, duration, ok := h.session.Window()
	resp := windowResponse{Window: window}
	if ok {
		resp.Duration = &duration
	}
	return resp
}

// HandleGetWindow returns the current time window.
func (h *Handler) HandleGetWindow(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, h.windowResponse())
}

// HandleSetWindow merges a partial window edit.
func (h *Handler) HandleSetWindow(w http.ResponseWriter, r *http.Request) {
	var patch trend.Patch
	if err := json.NewDecoder(r.Body).Decode(&patch); err != nil {
		writeDetail(w, http.StatusBadRequest, "invalid window payload")
		return
	}
	h.session.ApplyWindow(patch)
	writeJSON(w, http.StatusOK, h.windowResponse())
}

// trendDataset is the chart-ready wire shape of one series.
type trendDataset struct {
	Label  string        `json:"label"`
	Color  string        `json:"borderColor"`
	Points []trend.Point `json:"data"`
}

type trendGroupResponse struct {
	Title      string         `json:"title"`
	YAxisLabel string         `json:"yAxisLabel"`
	Category   string         `json:"category"`
	Datasets   []trendDataset `json:"datasets"`
}

// HandleTrends returns the chart-ready datasets for the active category
// under the current window. Empty category means all categories.
func (h *Handler) HandleTrends(w http.ResponseWriter, r *http.Request) {
	if h.session.Result() == nil {
		writeDetail(w, http.StatusNotFound, "no analysis result available")
		return
	}
	category := r.URL.Query().Get("category")
	groups := h.session.TrendGroups(category)

	resp := make([]trendGroupResponse, 0, len(groups))
	for _, g := range groups {
		out := trendGroupResponse{
			Title:      g.Spec.Title,
			YAxisLabel: g.Spec.YAxisLabel,
			Category:   g.Spec.Category,
		}
		for _, ds := range g.Datasets {
			out.Datasets = append(out.Datasets, trendDataset{
				Label:  ds.Label,
				Color:  fmt.Sprintf("hsl(%d, 70%%, 50%%)", ds.Hue),
				Points: ds.Points,
			})
		}
		resp = append(resp, out)
	}
	writeJSON(w, http.StatusOK, resp)
}

// HandleChartPNG serves one chart group's rendered panel image.
func (h *Handler) HandleChartPNG(w http.ResponseWriter, r *http.Request) {
	title := r.URL.Query().Get("title")
	if title == "" {
		writeDetail(w, http.StatusBadRequest, "missing chart title")
		return
	}
	img, err := h.session.ChartPNG(title)
	if err != nil {
		writeDetail(w, http.StatusNotFound, err.Error())
		return
	}
	w.Header().Set("Content-Type", "image/png")
	w.Write(img)
}

// HandleExport composes the PDF report and returns it as an attachment.
func (h *Handler) HandleExport(w http.ResponseWriter, r *http.Request) {
	pdfBytes, name, err := h.session.ExportPDF(r.Context())
	if err != nil {
		switch {
		case errors.Is(err, session.ErrExportInFlight):
			writeDetail(w, http.StatusConflict, err.Error())
		case errors.Is(err, session.ErrNoResult):
			writeDetail(w, http.StatusNotFound, err.Error())
		default:
			writeDetail(w, http.StatusInternalServerError, err.Error())
		}
		return
	}
	w.Header().Set("Content-Type", "application/pdf")
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", name))
	w.Write(pdfBytes)
}

// HandleWebSocket upgrades the connection and registers it with the hub.
func (h *Handler) HandleWebSocket(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Warn().Err(err).Msg("WebSocket upgrade failed")
		return
	}
	client := &ws.Client{Hub: h.hub, Conn: conn, Send: make(chan []byte, 256)}
	h.hub.RegisterClient(client)
	go client.WritePump()
	go client.ReadPump()
}

// HandleHealthz reports liveness plus the session busy flags.
func (h *Handler) HandleHealthz(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"status":    "ok",
		"loading":   h.session.Loading(),
		"exporting": h.session.Exporting(),
	})
}
