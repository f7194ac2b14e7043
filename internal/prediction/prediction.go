// Package prediction runs one model call per submitted text and persists the
// result. A Service is bound to a single variant for its whole life.
package prediction

import (
	"context"
	"fmt"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/kalambet/sentid/internal/inference"
	"github.com/kalambet/sentid/internal/metrics"
	"github.com/kalambet/sentid/internal/storage"
)

// Record is a stored prediction. It is JSON-encodable as returned to clients.
type Record interface {
	RecordID() int64
}

// Service creates and fetches predictions for one variant.
type Service interface {
	Variant() string
	Create(ctx context.Context, text string) (Record, error)
	Get(ctx context.Context, id int64) (Record, error)
}

// TopLabeler returns the single best label for a text.
type TopLabeler interface {
	Top(ctx context.Context, text string) (inference.Label, error)
}

// Scorer returns a score for every label of a fixed set.
type Scorer interface {
	Scores(ctx context.Context, text string) (inference.Scores, error)
}

// SentimentStore persists single-label predictions.
type SentimentStore interface {
	CreateSentiment(ctx context.Context, rec *storage.SentimentRecord) error
	GetSentiment(ctx context.Context, id int64) (storage.SentimentRecord, error)
}

// EmotionStore persists multi-label predictions.
type EmotionStore interface {
	CreateEmotion(ctx context.Context, rec *storage.EmotionRecord) error
	GetEmotion(ctx context.Context, id int64) (storage.EmotionRecord, error)
}

type options struct {
	log     logrus.FieldLogger
	metrics *metrics.Metrics
}

// Option configures a Service.
type Option func(*options)

// WithLogger sets the logger. Defaults to the logrus standard logger.
func WithLogger(l logrus.FieldLogger) Option {
	return func(o *options) { o.log = l }
}

// WithMetrics records inference timings and stored predictions on m.
func WithMetrics(m *metrics.Metrics) Option {
	return func(o *options) { o.metrics = m }
}

func buildOptions(opts []Option) options {
	o := options{log: logrus.StandardLogger()}
	for _, opt := range opts {
		opt(&o)
	}
	return o
}

// New returns the Service for the store's variant.
func New(adapter *inference.Adapter, store *storage.Store, opts ...Option) (Service, error) {
	switch store.Variant() {
	case storage.VariantSentiment:
		return NewSentiment(adapter, store, opts...), nil
	case storage.VariantEmotions:
		return NewEmotions(adapter, store, opts...), nil
	default:
		return nil, fmt.Errorf("unknown variant %q", store.Variant())
	}
}

// observe times one model call.
func (o options) observe(start time.Time, err error) {
	outcome := metrics.OutcomeSuccess
	if err != nil {
		outcome = metrics.OutcomeError
	}
	o.metrics.ObserveInference(outcome, time.Since(start))
}
