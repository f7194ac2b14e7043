package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/sirupsen/logrus"

	"github.com/kalambet/sentid/internal/storage"
)

const notFoundDetail = "Sentiment not found"

// decodeText extracts the "text" field. Only the type is checked; the empty
// string is accepted.
func decodeText(r *http.Request) (string, error) {
	var body map[string]json.RawMessage
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		return "", fmt.Errorf("invalid request body: %w", err)
	}
	raw, ok := body["text"]
	if !ok {
		return "", errors.New("field required: text")
	}
	var text string
	if string(raw) == "null" || json.Unmarshal(raw, &text) != nil {
		return "", errors.New("text must be a string")
	}
	return text, nil
}

func handleCreate(deps Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		r.Body = http.MaxBytesReader(w, r.Body, maxRequestBodySize)
		defer r.Body.Close()

		text, err := decodeText(r)
		if err != nil {
			var tooLarge *http.MaxBytesError
			if errors.As(err, &tooLarge) {
				httpError(w, http.StatusRequestEntityTooLarge, "request body too large")
				return
			}
			httpError(w, http.StatusUnprocessableEntity, "%v", err)
			return
		}

		rec, err := deps.Service.Create(r.Context(), text)
		if err != nil {
			internalError(w, r, logger(deps, r), fmt.Errorf("create prediction: %w", err))
			return
		}
		writeJSON(w, http.StatusOK, rec)
	}
}

func handleGet(deps Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
		if err != nil {
			httpError(w, http.StatusUnprocessableEntity, "id must be an integer")
			return
		}

		rec, err := deps.Service.Get(r.Context(), id)
		if errors.Is(err, storage.ErrNotFound) {
			httpError(w, http.StatusNotFound, notFoundDetail)
			return
		}
		if err != nil {
			internalError(w, r, logger(deps, r), fmt.Errorf("get prediction %d: %w", id, err))
			return
		}
		writeJSON(w, http.StatusOK, rec)
	}
}

func logger(deps Deps, r *http.Request) logrus.FieldLogger {
	return deps.Log.WithField("request_id", RequestIDFromContext(r.Context()))
}
