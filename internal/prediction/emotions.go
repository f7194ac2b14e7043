package prediction

import (
	"context"
	"fmt"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/kalambet/sentid/internal/storage"
)

// EmotionService stores a score for every label of the model's label set.
type EmotionService struct {
	model Scorer
	store EmotionStore
	opts  options
}

// NewEmotions creates a multi-label Service.
func NewEmotions(model Scorer, store EmotionStore, opts ...Option) *EmotionService {
	return &EmotionService{model: model, store: store, opts: buildOptions(opts)}
}

func (s *EmotionService) Variant() string { return storage.VariantEmotions }

// Create classifies text and persists the scores.
func (s *EmotionService) Create(ctx context.Context, text string) (Record, error) {
	start := time.Now()
	scores, err := s.model.Scores(ctx, text)
	s.opts.observe(start, err)
	if err != nil {
		return nil, fmt.Errorf("classifying text: %w", err)
	}

	rec := storage.EmotionRecord{Text: text, Emotions: scores}
	if err := s.store.CreateEmotion(ctx, &rec); err != nil {
		return nil, fmt.Errorf("storing prediction: %w", err)
	}
	s.opts.metrics.PredictionStored(storage.VariantEmotions)
	s.opts.log.WithFields(logrus.Fields{
		"id":     rec.ID,
		"labels": len(rec.Emotions),
	}).Debug("prediction stored")
	return rec, nil
}

// Get returns a stored prediction or storage.ErrNotFound.
func (s *EmotionService) Get(ctx context.Context, id int64) (Record, error) {
	rec, err := s.store.GetEmotion(ctx, id)
	if err != nil {
		return nil, err
	}
	return rec, nil
}
