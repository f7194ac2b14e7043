package api

import (
	"bytes"
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/getsentry/sentry-go"
	logtest "github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kalambet/sentid/internal/prediction"
	"github.com/kalambet/sentid/internal/storage"
)

type recordingTransport struct {
	mu     sync.Mutex
	events []*sentry.Event
}

func (t *recordingTransport) Configure(sentry.ClientOptions) {}

func (t *recordingTransport) SendEvent(e *sentry.Event) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.events = append(t.events, e)
}

func (t *recordingTransport) Flush(time.Duration) bool { return true }

func (t *recordingTransport) FlushWithContext(context.Context) bool { return true }

func (t *recordingTransport) Close() {}

func (t *recordingTransport) Events() []*sentry.Event {
	t.mu.Lock()
	defer t.mu.Unlock()
	return append([]*sentry.Event(nil), t.events...)
}

func newTestHub(t *testing.T) (*sentry.Hub, *recordingTransport) {
	t.Helper()
	transport := &recordingTransport{}
	client, err := sentry.NewClient(sentry.ClientOptions{Transport: transport})
	require.NoError(t, err)
	return sentry.NewHub(client, sentry.NewScope()), transport
}

func TestInternalErrorReportedToSentry(t *testing.T) {
	hub, transport := newTestHub(t)
	logger, hook := logtest.NewNullLogger()
	svc := prediction.NewSentiment(&stubModel{err: errors.New("model unavailable")}, openStore(t, storage.VariantSentiment))
	h := NewHandler(Deps{Service: svc, Log: logger, Sentry: hub})

	req := httptest.NewRequest(http.MethodPost, "/sentiment/", bytes.NewBufferString(`{"text":"x"}`))
	req.Header.Set(RequestIDHeader, "req-1")
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	events := transport.Events()
	require.Len(t, events, 1)
	assert.Equal(t, "req-1", events[0].Tags["request_id"])

	var logged bool
	for _, e := range hook.AllEntries() {
		if e.Message == "request failed" && e.Data["request_id"] == "req-1" {
			logged = true
		}
	}
	assert.True(t, logged)
}

func TestNotFoundNotReported(t *testing.T) {
	hub, transport := newTestHub(t)
	logger, _ := logtest.NewNullLogger()
	svc := prediction.NewSentiment(&stubModel{}, openStore(t, storage.VariantSentiment))
	h := NewHandler(Deps{Service: svc, Log: logger, Sentry: hub})

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/sentiment/42", nil))

	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Empty(t, transport.Events())
}

func TestPanicReportedToSentry(t *testing.T) {
	hub, transport := newTestHub(t)
	logger, _ := logtest.NewNullLogger()
	h := NewHandler(Deps{Service: panickingService{}, Log: logger, Sentry: hub})

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/sentiment/", bytes.NewBufferString(`{"text":"x"}`)))

	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.Len(t, transport.Events(), 1)
}
