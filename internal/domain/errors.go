package domain

import "errors"

var (
	// ErrValidation signals a malformed request (e.g. missing query text).
	ErrValidation = errors.New("validation failed")
	// ErrNotFound signals a missing resource.
	ErrNotFound = errors.New("not found")
	// ErrIndexEmpty signals that no documents have been indexed yet.
	ErrIndexEmpty = errors.New("index is empty")
	// ErrDuplicateDocID signals a duplicate document id within one build.
	ErrDuplicateDocID = errors.New("duplicate document id")
	// ErrVectorDimMismatch signals a vector dimension mismatch.
	ErrVectorDimMismatch = errors.New("vector dimension mismatch")
	// ErrEmbeddingProvider signals an embedding provider failure.
	ErrEmbeddingProvider = errors.New("embedding provider error")
)
