package llm

import "time"

// DefaultModel is used when neither the client nor the call names a model.
const DefaultModel = "gemini-2.5-flash"

// GenerateOptions bounds one generation call. An empty Model uses the
// client's model; zero MaxTokens leaves the provider limit in place.
type GenerateOptions struct {
	Model       string
	MaxTokens   int32
	Temperature float32
	Timeout     time.Duration
}

func (o GenerateOptions) model(fallback string) string {
	switch {
	case o.Model != "":
		return o.Model
	case fallback != "":
		return fallback
	default:
		return DefaultModel
	}
}
