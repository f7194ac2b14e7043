package api

import (
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/getsentry/sentry-go"
	"github.com/sirupsen/logrus"
)

const internalDetail = "Internal Server Error"

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	json.NewEncoder(w).Encode(v)
}

// httpError writes {"detail": msg}.
func httpError(w http.ResponseWriter, code int, format string, args ...any) {
	writeJSON(w, code, map[string]string{"detail": fmt.Sprintf(format, args...)})
}

// internalError logs err, reports it to Sentry and answers with an opaque 500.
func internalError(w http.ResponseWriter, r *http.Request, log logrus.FieldLogger, err error) {
	log.WithError(err).Error("request failed")
	if hub := sentry.GetHubFromContext(r.Context()); hub != nil {
		hub.CaptureException(err)
	}
	httpError(w, http.StatusInternalServerError, internalDetail)
}
