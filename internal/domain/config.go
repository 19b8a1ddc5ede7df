package domain

import "fmt"

// PipelineConfig holds internal pipeline settings, not exposed to clients.
type PipelineConfig struct {
	Dimensions     int
	MaxSliceTokens int
	TokenDivisor   int
	DefaultTopK    int
	MinPartTokens  int
}

// DefaultPipelineConfig returns the defaults the example corpora ship with.
// The token divisor is a tunable heuristic, not a real tokenizer's count.
func DefaultPipelineConfig() PipelineConfig {
	return PipelineConfig{
		Dimensions:     384,
		MaxSliceTokens: 1500,
		TokenDivisor:   4,
		DefaultTopK:    5,
		MinPartTokens:  100,
	}
}

// GoldenQuestion is one labeled entry of the evaluation question set.
// ExpectedIDs are collection-qualified record keys ("kb:alpha"). Notes may
// carry a "type=<source_type>" hint restricting retrieval to one collection.
type GoldenQuestion struct {
	ID          string   `json:"id"`
	Question    string   `json:"question"`
	ExpectedIDs []string `json:"expected_ids"`
	Notes       string   `json:"notes,omitempty"`
}

// Validate checks the required fields of a decoded golden question.
func (q *GoldenQuestion) Validate() error {
	if q.ID == "" {
		return fmt.Errorf("id is required")
	}
	if q.Question == "" {
		return fmt.Errorf("question is required")
	}
	if len(q.ExpectedIDs) == 0 {
		return fmt.Errorf("expected_ids is required")
	}
	return nil
}
