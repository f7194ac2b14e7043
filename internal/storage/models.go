package storage

import "errors"

var (
	// ErrNotFound is returned when a requested record does not exist.
	ErrNotFound = errors.New("not found")

	// ErrVariantMismatch is returned when a store initialised for one variant
	// is opened or written as the other.
	ErrVariantMismatch = errors.New("store variant mismatch")
)

// Variants. Each store file holds exactly one of them.
const (
	VariantSentiment = "sentiment"
	VariantEmotions  = "emotions"
)

// SentimentRecord is one single-label prediction: the model's top label and
// its confidence.
type SentimentRecord struct {
	ID         int64   `gorm:"primaryKey;autoIncrement" json:"id"`
	Text       string  `gorm:"not null" json:"text"`
	Sentiment  string  `gorm:"not null" json:"sentiment"`
	Confidence float64 `gorm:"not null" json:"confidence"`
}

func (SentimentRecord) TableName() string { return "sentiment" }

func (r SentimentRecord) RecordID() int64 { return r.ID }

// EmotionRecord is one multi-label prediction: every label of the model's
// label set mapped to its score. Emotions is stored as a JSON object.
type EmotionRecord struct {
	ID       int64              `gorm:"primaryKey;autoIncrement" json:"id"`
	Text     string             `gorm:"not null" json:"text"`
	Emotions map[string]float64 `gorm:"serializer:json;not null" json:"emotions"`
}

func (EmotionRecord) TableName() string { return "sentiments" }

func (r EmotionRecord) RecordID() int64 { return r.ID }
