package main

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/fatih/color"
	logtest "github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kalambet/sentid/internal/config"
	"github.com/kalambet/sentid/internal/inference"
	"github.com/kalambet/sentid/internal/logging"
	"github.com/kalambet/sentid/internal/storage"
)

type recordedRequest struct {
	Method string
	Path   string
	Body   string
}

type testServer struct {
	server   *httptest.Server
	requests []recordedRequest
}

func newTestServer(t *testing.T, responses map[string]string) *testServer {
	t.Helper()
	ts := &testServer{}

	ts.server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var body bytes.Buffer
		body.ReadFrom(r.Body)
		ts.requests = append(ts.requests, recordedRequest{
			Method: r.Method,
			Path:   r.URL.RequestURI(),
			Body:   body.String(),
		})

		w.Header().Set("Content-Type", "application/json")
		if resp, ok := responses[r.Method+" "+r.URL.Path]; ok {
			w.Write([]byte(resp))
			return
		}
		w.WriteHeader(http.StatusNotFound)
		w.Write([]byte(`{"detail":"Sentiment not found"}`))
	}))
	t.Cleanup(ts.server.Close)

	old := newAPIClient
	newAPIClient = func() (*apiClient, error) {
		return &apiClient{baseURL: ts.server.URL, httpClient: ts.server.Client()}, nil
	}
	t.Cleanup(func() { newAPIClient = old })
	return ts
}

// executeCommand runs the root command and returns what it wrote to stdout.
func executeCommand(t *testing.T, args ...string) (string, error) {
	t.Helper()
	var out bytes.Buffer
	rootCmd.SetOut(&out)
	rootCmd.SetArgs(args)
	t.Cleanup(func() {
		rootCmd.SetOut(nil)
		rootCmd.SetArgs(nil)
		analyzeCmd.Flags().Set("json", "false")
		getCmd.Flags().Set("json", "false")
	})
	err := rootCmd.Execute()
	return out.String(), err
}

func TestAnalyzeCommand(t *testing.T) {
	ts := newTestServer(t, map[string]string{
		"POST /sentiment/": `{"id":7,"text":"What a lovely day","sentiment":"POSITIVE","confidence":0.9998}`,
	})

	out, err := executeCommand(t, "--no-color", "analyze", "What", "a", "lovely", "day")
	require.NoError(t, err)

	require.Len(t, ts.requests, 1)
	assert.Equal(t, http.MethodPost, ts.requests[0].Method)
	assert.JSONEq(t, `{"text":"What a lovely day"}`, ts.requests[0].Body)

	assert.Contains(t, out, "id: 7")
	assert.Contains(t, out, "POSITIVE")
	assert.Contains(t, out, "0.9998")
}

func TestAnalyzeCommandJSON(t *testing.T) {
	body := `{"id":1,"text":"x","emotions":{"joy":0.9,"sadness":0.1}}`
	newTestServer(t, map[string]string{"POST /sentiment/": body})

	out, err := executeCommand(t, "analyze", "--json", "x")
	require.NoError(t, err)
	assert.JSONEq(t, body, out)
}

func TestGetCommand(t *testing.T) {
	ts := newTestServer(t, map[string]string{
		"GET /sentiment/3": `{"id":3,"text":"mixed","emotions":{"fear":0.2,"joy":0.7,"neutral":0.1}}`,
	})

	out, err := executeCommand(t, "--no-color", "get", "3")
	require.NoError(t, err)
	assert.Equal(t, "/sentiment/3", ts.requests[0].Path)

	joy := strings.Index(out, "joy")
	fear := strings.Index(out, "fear")
	require.NotEqual(t, -1, joy)
	require.NotEqual(t, -1, fear)
	assert.Less(t, joy, fear, "scores are listed highest first")
	assert.Contains(t, out, "0.700")
}

func TestGetCommandNotFound(t *testing.T) {
	newTestServer(t, nil)

	_, err := executeCommand(t, "get", "9999")
	require.Error(t, err)
	assert.Equal(t, "server returned 404: Sentiment not found", err.Error())
}

func TestGetCommandInvalidID(t *testing.T) {
	ts := newTestServer(t, nil)

	_, err := executeCommand(t, "get", "abc")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "must be an integer")
	assert.Empty(t, ts.requests)
}

func TestServerNotReachable(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	srv.Close()
	client := &apiClient{baseURL: srv.URL, httpClient: &http.Client{Timeout: time.Second}}

	_, err := client.get(context.Background(), "/health")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "not reachable")
}

func TestNoColorFlag(t *testing.T) {
	old, oldStderr := color.NoColor, stderr
	t.Cleanup(func() { color.NoColor, stderr = old, oldStderr })

	var buf bytes.Buffer
	stderr = &buf

	color.NoColor = true
	printSuccess("test message")
	assert.Equal(t, "✓ test message\n", buf.String())

	buf.Reset()
	color.NoColor = false
	printSuccess("test message")
	assert.Contains(t, buf.String(), "\033[")
}

func TestClientBaseURL(t *testing.T) {
	cfg := config.Config{Server: config.ServerConfig{Host: "0.0.0.0", Port: 8000}}
	assert.Equal(t, "http://127.0.0.1:8000", clientBaseURL(cfg))

	cfg.Server.Host = "::1"
	assert.Equal(t, "http://[::1]:8000", clientBaseURL(cfg))
}

func TestLabelSet(t *testing.T) {
	cfg := config.Config{Model: config.ModelConfig{Variant: config.VariantEmotions}}
	assert.Equal(t, inference.GoEmotionsLabels, labelSet(cfg))

	cfg.Model.Variant = config.VariantSentiment
	assert.Equal(t, inference.SST2Labels, labelSet(cfg))

	cfg.Model.Labels = "happy, sad"
	assert.Equal(t, []string{"happy", "sad"}, labelSet(cfg))
}

func testConfig(t *testing.T, variant, hfURL string) config.Config {
	t.Helper()
	return config.Config{
		Server: config.ServerConfig{Host: "127.0.0.1", Port: 8000},
		Model: config.ModelConfig{
			Variant: variant,
			Backend: config.BackendHuggingFace,
			Labels:  "joy,sadness",
		},
		HuggingFace: config.HuggingFaceConfig{BaseURL: hfURL, Timeout: 5 * time.Second},
		Ollama:      config.OllamaConfig{BaseURL: "http://127.0.0.1:1", Model: "phi3.5"},
		Storage:     config.StorageConfig{Path: filepath.Join(t.TempDir(), "data", "sentiment.db")},
		Log:         config.LogConfig{Level: "info", Format: "text"},
	}
}

func TestServeEndToEnd(t *testing.T) {
	hfRequests := make(chan map[string]any, 1)
	hf := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/"+config.DefaultEmotionsModel, r.URL.Path)
		var body map[string]any
		json.NewDecoder(r.Body).Decode(&body)
		hfRequests <- body
		w.Write([]byte(`[[{"label":"joy","score":0.73456},{"label":"sadness","score":0.2}]]`))
	}))
	defer hf.Close()

	cfg := testConfig(t, config.VariantEmotions, hf.URL)
	a, err := newApp(context.Background(), cfg, logging.Discard(), io.Discard)
	require.NoError(t, err)
	defer a.Close()

	applied, err := a.store.AppliedMigrations()
	require.NoError(t, err)
	assert.NotEmpty(t, applied, "migrations run before the listener opens")

	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- serve(ctx, a, ln) }()

	base := "http://" + ln.Addr().String()
	resp, err := http.Post(base+"/sentiment/", "application/json",
		strings.NewReader(`{"text":"I feel stressed but also hopeful about the future."}`))
	require.NoError(t, err)
	created, _ := io.ReadAll(resp.Body)
	resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode, string(created))
	assert.JSONEq(t, `{"id":1,"text":"I feel stressed but also hopeful about the future.","emotions":{"joy":0.735,"sadness":0.2}}`, string(created))
	hfRequest := <-hfRequests
	assert.Equal(t, float64(2), hfRequest["parameters"].(map[string]any)["top_k"])

	resp, err = http.Get(base + "/sentiment/1")
	require.NoError(t, err)
	fetched, _ := io.ReadAll(resp.Body)
	resp.Body.Close()
	assert.Equal(t, created, fetched)

	cancel()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(shutdownTimeout + time.Second):
		t.Fatal("serve did not return after cancellation")
	}
}

func TestNewAppRejectsOtherVariantStore(t *testing.T) {
	cfg := testConfig(t, config.VariantSentiment, "http://127.0.0.1:1")
	a, err := newApp(context.Background(), cfg, logging.Discard(), io.Discard)
	require.NoError(t, err)
	require.NoError(t, a.Close())

	cfg.Model.Variant = config.VariantEmotions
	_, err = newApp(context.Background(), cfg, logging.Discard(), io.Discard)
	assert.ErrorIs(t, err, storage.ErrVariantMismatch)
}

func TestNewAppOllamaUnavailable(t *testing.T) {
	cfg := testConfig(t, config.VariantSentiment, "")
	cfg.Model.Backend = config.BackendOllama
	down := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	down.Close()
	cfg.Ollama.BaseURL = down.URL

	_, err := newApp(context.Background(), cfg, logging.Discard(), io.Discard)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "preparing model")
}

func TestServeReturnsListenerErrors(t *testing.T) {
	cfg := testConfig(t, config.VariantSentiment, "http://127.0.0.1:1")
	a, err := newApp(context.Background(), cfg, logging.Discard(), io.Discard)
	require.NoError(t, err)
	defer a.Close()

	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	ln.Close()

	err = serve(context.Background(), a, ln)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "server error")
}

func TestNewAppLogsLabelSet(t *testing.T) {
	logger, hook := logtest.NewNullLogger()
	cfg := testConfig(t, config.VariantEmotions, "http://127.0.0.1:1")

	a, err := newApp(context.Background(), cfg, logger, io.Discard)
	require.NoError(t, err)
	defer a.Close()

	var ready bool
	for _, e := range hook.AllEntries() {
		if e.Message == "model and store ready" {
			ready = true
			assert.Equal(t, "joy,sadness", e.Data["labels"])
		}
	}
	assert.True(t, ready)
}
