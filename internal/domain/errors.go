package domain

import "errors"

var (
	// ErrNotFound signals a missing resource.
	ErrNotFound = errors.New("not found")
	// ErrMissingArtifact signals an absent required input artifact.
	// Fatal for the invocation: the pipeline never fabricates empty output
	// when an upstream stage was expected to have run.
	ErrMissingArtifact = errors.New("required artifact missing")
	// ErrUnknownSourceType signals a source type outside the known collections.
	ErrUnknownSourceType = errors.New("unknown source type")
	// ErrInvalidQuery signals invalid retrieval parameters (e.g. k <= 0).
	ErrInvalidQuery = errors.New("invalid query")
	// ErrVectorDimMismatch signals a vector dimension mismatch between the
	// query embedder and the loaded index. Fatal configuration error.
	ErrVectorDimMismatch = errors.New("vector dimension mismatch")
	// ErrInvalidRecord signals a malformed source record (skipped, counted).
	ErrInvalidRecord = errors.New("invalid record")
	// ErrEmbeddingProviderError signals an embedding provider failure.
	ErrEmbeddingProviderError = errors.New("embedding provider error")
)
