// Package embedding provides the pipeline's vectorizers and their decorators.
package embedding

import (
	"context"
	"crypto/sha256"
	"encoding/binary"
	"math"

	"github.com/kailas-cloud/ragdex/internal/domain"
)

// HashEmbedder is a deterministic, model-free vectorizer: a sinusoidal
// generator seeded entirely from the SHA-256 of the input text. Identical
// text always yields the bit-identical vector, which is what makes pipeline
// regression testing possible without per-model floating-point baselines.
// It carries no semantic quality and is meant to be swapped for a real
// embedding model behind the same domain.Embedder interface.
type HashEmbedder struct {
	dims int
}

// NewHashEmbedder creates a hash embedder producing dims-length vectors.
func NewHashEmbedder(dims int) *HashEmbedder {
	if dims <= 0 {
		dims = domain.DefaultPipelineConfig().Dimensions
	}
	return &HashEmbedder{dims: dims}
}

// Dimensions returns the output vector length.
func (e *HashEmbedder) Dimensions() int { return e.dims }

// Embed maps text to an L2-normalized vector. Never fails; the empty string
// maps to the fixed vector derived from the hash of no bytes.
func (e *HashEmbedder) Embed(_ context.Context, text string) (domain.EmbeddingResult, error) {
	h := sha256.Sum256([]byte(text))

	// Four independent hash words drive phase and frequency so that small
	// input changes decorrelate the whole vector.
	var words [4]uint64
	for i := range words {
		words[i] = binary.BigEndian.Uint64(h[i*8:])
	}

	vec := make([]float32, e.dims)
	for i := range vec {
		w := words[i%4]
		phase := float64(w%1_000_003) / 1_000_003 * 2 * math.Pi
		freq := 1 + float64((w>>20)%997)/997
		vec[i] = float32(math.Sin(phase + freq*float64(i+1)))
	}

	normalizeL2(vec)
	return domain.EmbeddingResult{Embedding: vec}, nil
}

// normalizeL2 scales the vector to unit Euclidean norm in place. A degenerate
// all-zero vector falls back to the uniform unit vector, which is itself
// well-defined under normalization.
func normalizeL2(vec []float32) {
	var sum float64
	for _, v := range vec {
		sum += float64(v) * float64(v)
	}
	if sum == 0 {
		u := float32(1 / math.Sqrt(float64(len(vec))))
		for i := range vec {
			vec[i] = u
		}
		return
	}
	inv := 1 / math.Sqrt(sum)
	for i := range vec {
		vec[i] = float32(float64(vec[i]) * inv)
	}
}
