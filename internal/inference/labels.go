package inference

// SST2Labels is the label set of the default sentiment model.
var SST2Labels = []string{"NEGATIVE", "POSITIVE"}

// GoEmotionsLabels is the label set of models fine-tuned on GoEmotions.
var GoEmotionsLabels = []string{
	"admiration", "amusement", "anger", "annoyance", "approval", "caring",
	"confusion", "curiosity", "desire", "disappointment", "disapproval",
	"disgust", "embarrassment", "excitement", "fear", "gratitude", "grief",
	"joy", "love", "nervousness", "optimism", "pride", "realization", "relief",
	"remorse", "sadness", "surprise", "neutral",
}

// DefaultLabels returns the label set used when none is configured. emotions
// selects GoEmotions, anything else SST-2.
func DefaultLabels(emotions bool) []string {
	if emotions {
		return GoEmotionsLabels
	}
	return SST2Labels
}
