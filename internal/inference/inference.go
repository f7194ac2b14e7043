// Package inference turns the raw output of a text-classification model into
// the two result shapes the API stores: a single top label, or a score for
// every label of a fixed set.
package inference

import (
	"context"
	"errors"
	"fmt"
	"math"
	"slices"
)

// ErrInference wraps every failure to obtain a usable model answer.
var ErrInference = errors.New("inference failed")

// Label is one (label, score) pair produced by a model.
type Label struct {
	Label string  `json:"label"`
	Score float64 `json:"score"`
}

// Scores maps every label of a model's label set to its score.
type Scores map[string]float64

// Classifier is a model backend. Classify returns the raw pairs for text in
// whatever order the model produced them.
type Classifier interface {
	Classify(ctx context.Context, text string) ([]Label, error)
}

// Adapter normalises Classifier output. It is safe for concurrent use when the
// underlying Classifier is.
type Adapter struct {
	classifier Classifier
	labels     []string
}

// NewAdapter wraps c. labels is the model's fixed label set; Scores requires it
// while Top ignores it.
func NewAdapter(c Classifier, labels []string) *Adapter {
	return &Adapter{classifier: c, labels: slices.Clone(labels)}
}

// Labels returns the configured label set.
func (a *Adapter) Labels() []string {
	return slices.Clone(a.labels)
}

// Top returns the highest-scoring pair. Ties keep the first pair the model
// returned.
func (a *Adapter) Top(ctx context.Context, text string) (Label, error) {
	pairs, err := a.classify(ctx, text)
	if err != nil {
		return Label{}, err
	}
	best := pairs[0]
	for _, p := range pairs[1:] {
		if p.Score > best.Score {
			best = p
		}
	}
	return best, nil
}

// Scores returns a score rounded to three decimals for every label of the set.
// A label the model did not score, or one outside the set, fails the call.
func (a *Adapter) Scores(ctx context.Context, text string) (Scores, error) {
	if len(a.labels) == 0 {
		return nil, fmt.Errorf("%w: no label set configured", ErrInference)
	}
	pairs, err := a.classify(ctx, text)
	if err != nil {
		return nil, err
	}

	out := make(Scores, len(a.labels))
	for _, p := range pairs {
		if !slices.Contains(a.labels, p.Label) {
			return nil, fmt.Errorf("%w: unexpected label %q", ErrInference, p.Label)
		}
		out[p.Label] = Round3(p.Score)
	}
	for _, l := range a.labels {
		if _, ok := out[l]; !ok {
			return nil, fmt.Errorf("%w: model returned no score for %q", ErrInference, l)
		}
	}
	return out, nil
}

func (a *Adapter) classify(ctx context.Context, text string) ([]Label, error) {
	pairs, err := a.classifier.Classify(ctx, text)
	if err != nil {
		if errors.Is(err, ErrInference) {
			return nil, err
		}
		return nil, fmt.Errorf("%w: %w", ErrInference, err)
	}
	if len(pairs) == 0 {
		return nil, fmt.Errorf("%w: empty model output", ErrInference)
	}
	for _, p := range pairs {
		if math.IsNaN(p.Score) || p.Score < 0 || p.Score > 1 {
			return nil, fmt.Errorf("%w: score %v for %q outside [0,1]", ErrInference, p.Score, p.Label)
		}
	}
	return pairs, nil
}

// Round3 rounds v to three decimal places.
func Round3(v float64) float64 {
	return math.Round(v*1000) / 1000
}
