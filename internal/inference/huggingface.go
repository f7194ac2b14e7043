package inference

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

// HuggingFaceConfig configures a HuggingFace classifier.
type HuggingFaceConfig struct {
	BaseURL string
	Model   string
	Token   string
	// TopK asks the pipeline for that many labels. Zero leaves the server default.
	TopK    int
	Timeout time.Duration
	// HTTPClient overrides the client built from Timeout.
	HTTPClient *http.Client
}

// HuggingFace calls a text-classification pipeline of the Hugging Face
// Inference API.
type HuggingFace struct {
	url        string
	token      string
	topK       int
	httpClient *http.Client
}

// NewHuggingFace creates a classifier posting to <BaseURL>/<Model>.
func NewHuggingFace(cfg HuggingFaceConfig) *HuggingFace {
	hc := cfg.HTTPClient
	if hc == nil {
		hc = &http.Client{Timeout: cfg.Timeout}
	}
	return &HuggingFace{
		url:        strings.TrimRight(cfg.BaseURL, "/") + "/" + strings.TrimLeft(cfg.Model, "/"),
		token:      cfg.Token,
		topK:       cfg.TopK,
		httpClient: hc,
	}
}

type hfParameters struct {
	TopK int `json:"top_k,omitempty"`
}

type hfRequest struct {
	Inputs     string        `json:"inputs"`
	Parameters *hfParameters `json:"parameters,omitempty"`
}

type hfError struct {
	Error         string  `json:"error"`
	EstimatedTime float64 `json:"estimated_time,omitempty"`
}

// Classify implements Classifier.
func (h *HuggingFace) Classify(ctx context.Context, text string) ([]Label, error) {
	reqBody := hfRequest{Inputs: text}
	if h.topK > 0 {
		reqBody.Parameters = &hfParameters{TopK: h.topK}
	}
	body, err := json.Marshal(reqBody)
	if err != nil {
		return nil, fmt.Errorf("marshaling request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, h.url, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if h.token != "" {
		req.Header.Set("Authorization", "Bearer "+h.token)
	}

	resp, err := h.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("sending request: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("reading response: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		var e hfError
		if json.Unmarshal(respBody, &e) == nil && e.Error != "" {
			if e.EstimatedTime > 0 {
				return nil, fmt.Errorf("model returned status %d: %s (ready in ~%.0fs)", resp.StatusCode, e.Error, e.EstimatedTime)
			}
			return nil, fmt.Errorf("model returned status %d: %s", resp.StatusCode, e.Error)
		}
		return nil, fmt.Errorf("model returned status %d: %s", resp.StatusCode, truncate(string(respBody), 200))
	}

	return decodeLabels(respBody)
}

// decodeLabels accepts both the batched [[...]] and the flat [...] shapes the
// pipeline produces for a single input.
func decodeLabels(b []byte) ([]Label, error) {
	var nested [][]Label
	if err := json.Unmarshal(b, &nested); err == nil {
		if len(nested) == 0 {
			return nil, nil
		}
		return nested[0], nil
	}
	var flat []Label
	if err := json.Unmarshal(b, &flat); err != nil {
		return nil, fmt.Errorf("decoding response: %w", err)
	}
	return flat, nil
}

func truncate(s string, n int) string {
	s = strings.TrimSpace(s)
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
