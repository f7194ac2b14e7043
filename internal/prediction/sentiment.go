package prediction

import (
	"context"
	"fmt"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/kalambet/sentid/internal/storage"
)

// SentimentService stores the top label and its confidence.
type SentimentService struct {
	model TopLabeler
	store SentimentStore
	opts  options
}

// NewSentiment creates a single-label Service.
func NewSentiment(model TopLabeler, store SentimentStore, opts ...Option) *SentimentService {
	return &SentimentService{model: model, store: store, opts: buildOptions(opts)}
}

func (s *SentimentService) Variant() string { return storage.VariantSentiment }

// Create classifies text and persists the result.
func (s *SentimentService) Create(ctx context.Context, text string) (Record, error) {
	start := time.Now()
	label, err := s.model.Top(ctx, text)
	s.opts.observe(start, err)
	if err != nil {
		return nil, fmt.Errorf("classifying text: %w", err)
	}

	rec := storage.SentimentRecord{Text: text, Sentiment: label.Label, Confidence: label.Score}
	if err := s.store.CreateSentiment(ctx, &rec); err != nil {
		return nil, fmt.Errorf("storing prediction: %w", err)
	}
	s.opts.metrics.PredictionStored(storage.VariantSentiment)
	s.opts.log.WithFields(logrus.Fields{
		"id":         rec.ID,
		"sentiment":  rec.Sentiment,
		"confidence": rec.Confidence,
	}).Debug("prediction stored")
	return rec, nil
}

// Get returns a stored prediction or storage.ErrNotFound.
func (s *SentimentService) Get(ctx context.Context, id int64) (Record, error) {
	rec, err := s.store.GetSentiment(ctx, id)
	if err != nil {
		return nil, err
	}
	return rec, nil
}
