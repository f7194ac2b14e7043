package inference

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"github.com/kalambet/sentid/internal/ollama"
)

const ollamaSystemPrompt = `You are a text classifier. Read the user's text and return a JSON object ` +
	`with one property per label. Each value is the probability between 0 and 1 ` +
	`that the label applies to the text. Labels: %s.`

// Ollama classifies text with a local model through structured chat output.
type Ollama struct {
	client *ollama.Client
	model  string
	labels []string
	schema *ollama.Schema
}

// NewOllama creates a classifier that scores labels with model.
func NewOllama(client *ollama.Client, model string, labels []string) *Ollama {
	zero, one := 0.0, 1.0
	schema := &ollama.Schema{
		Type:       "object",
		Properties: make(map[string]ollama.SchemaProperty, len(labels)),
		Required:   labels,
	}
	for _, l := range labels {
		schema.Properties[l] = ollama.SchemaProperty{Type: "number", Minimum: &zero, Maximum: &one}
	}
	return &Ollama{client: client, model: model, labels: labels, schema: schema}
}

// Classify implements Classifier. Pairs come back in label set order.
func (o *Ollama) Classify(ctx context.Context, text string) ([]Label, error) {
	reply, err := o.client.Chat(ctx, o.model, []ollama.Message{
		{Role: "system", Content: fmt.Sprintf(ollamaSystemPrompt, strings.Join(o.labels, ", "))},
		{Role: "user", Content: text},
	}, o.schema)
	if err != nil {
		return nil, err
	}

	var scores map[string]float64
	if err := json.Unmarshal([]byte(reply), &scores); err != nil {
		return nil, fmt.Errorf("decoding model reply: %w", err)
	}
	out := make([]Label, 0, len(o.labels))
	for _, l := range o.labels {
		if s, ok := scores[l]; ok {
			out = append(out, Label{Label: l, Score: s})
		}
	}
	return out, nil
}

// Prepare makes sure the model is installed on the server.
func (o *Ollama) Prepare(ctx context.Context, w io.Writer) error {
	return ollama.EnsureModel(ctx, o.client, o.model, w)
}
