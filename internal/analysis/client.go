package analysis

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/rs/zerolog/log"
)

// SiteParams are the installation parameters forwarded to the analysis
// service. Invalid form input is coerced to 0 before it gets here.
type SiteParams struct {
	NominalVoltage float64
	Isc            float64
	Il             float64
}

// DefaultSiteParams returns the form defaults: 690 V nominal, 10 kA
// short-circuit current, 500 A load current.
func DefaultSiteParams() SiteParams {
	return SiteParams{NominalVoltage: 690, Isc: 10000, Il: 500}
}

// Config holds the connection settings for the analysis service.
type Config struct {
	BaseURL string
	Timeout time.Duration
}

// Client is the I/O boundary to the remote analysis service. The numeric
// analysis itself is entirely server-side; the client forwards file bytes
// and site parameters and decodes the structured result.
type Client struct {
	cfg        Config
	httpClient *http.Client
}

// NewClient creates an analysis service client.
func NewClient(cfg Config) *Client {
	if cfg.Timeout == 0 {
		cfg.Timeout = 90 * time.Second
	}
	return &Client{
		cfg: cfg,
		httpClient: &http.Client{
			Timeout: cfg.Timeout,
		},
	}
}

// errorDetail is the service's structured error payload.
type errorDetail struct {
	Detail string `json:"detail"`
}

// Analyze uploads the measurement file as multipart content with the site
// parameters as query values and returns the decoded result. Failures are
// surfaced with the service's detail message when one is present.
func (c *Client) Analyze(ctx context.Context, fileName string, file io.Reader, params SiteParams) (*AnalysisResult, error) {
	body := &bytes.Buffer{}
	writer := multipart.NewWriter(body)
	part, err := writer.CreateFormFile("file", fileName)
	if err != nil {
		return nil, fmt.Errorf("failed to build upload body: %w", err)
	}
	if _, err := io.Copy(part, file); err != nil {
		return nil, fmt.Errorf("failed to read upload file: %w", err)
	}
	if err := writer.Close(); err != nil {
		return nil, fmt.Errorf("failed to finalize upload body: %w", err)
	}

	query := url.Values{}
	query.Set("nominal_voltage", strconv.FormatFloat(params.NominalVoltage, 'f', -1, 64))
	query.Set("isc", strconv.FormatFloat(params.Isc, 'f', -1, 64))
	query.Set("il", strconv.FormatFloat(params.Il, 'f', -1, 64))

	analyzeURL := fmt.Sprintf("%s/analyze/?%s", strings.TrimRight(c.cfg.BaseURL, "/"), query.Encode())
	log.Info().Str("file", fileName).Msg("Submitting file for analysis")
	log.Debug().Str("url", analyzeURL).Msg("Analysis request details")

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, analyzeURL, body)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", writer.FormDataContentType())

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("analysis service unreachable: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		var detail errorDetail
		if err := json.NewDecoder(resp.Body).Decode(&detail); err == nil && detail.Detail != "" {
			return nil, fmt.Errorf("%s", detail.Detail)
		}
		return nil, fmt.Errorf("analysis service returned status %d", resp.StatusCode)
	}

	var result AnalysisResult
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return nil, fmt.Errorf("failed to decode analysis response: %w", err)
	}
	return &result, nil
}
