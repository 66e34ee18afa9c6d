package domain

import (
	"errors"
	"fmt"
)

// Domain errors represent business logic failures.
// These are distinct from infrastructure errors.
var (
	// ErrNotFound indicates a requested entity does not exist.
	ErrNotFound = errors.New("not found")

	// ErrInvalidInput indicates malformed or invalid input.
	ErrInvalidInput = errors.New("invalid input")

	// ErrUnsupportedType indicates a file type no parser handles.
	ErrUnsupportedType = errors.New("unsupported file type")

	// ErrJobActive indicates an index job is already running.
	// Starting a second run must fail fast rather than interleave
	// batches with the active one.
	ErrJobActive = errors.New("index job already running")

	// ErrEmbeddingUnavailable indicates the embedding service is not
	// configured or unreachable. Semantic retrieval is impossible
	// without it.
	ErrEmbeddingUnavailable = errors.New("embedding service unavailable")

	// ErrVectorStoreUnavailable indicates the vector store is not
	// configured or unreachable.
	ErrVectorStoreUnavailable = errors.New("vector store unavailable")

	// ErrLLMUnavailable indicates no answer-generation provider is
	// configured. Retrieval still works; only answer synthesis is
	// disabled.
	ErrLLMUnavailable = errors.New("LLM service unavailable")

	// ErrDimensionMismatch indicates a vector whose length does not
	// match the store's fixed collection dimension.
	ErrDimensionMismatch = errors.New("embedding dimension mismatch")
)

// ErrorKind is the machine-readable classification of an indexing
// failure, recorded per document in the job error log.
type ErrorKind string

// Indexing error kinds.
const (
	// ErrorKindParse: corrupt or unreadable file. Skip, mark failed,
	// continue with the next document.
	ErrorKindParse ErrorKind = "parse_error"

	// ErrorKindSizeLimit: file exceeds the configured byte ceiling.
	// Skipped without being read.
	ErrorKindSizeLimit ErrorKind = "size_limit_exceeded"

	// ErrorKindEmbedding: batch or item embedding failure. Retryable
	// on resume.
	ErrorKindEmbedding ErrorKind = "embedding_error"

	// ErrorKindStoreWrite: vector store upsert or delete failure.
	// Retryable; must not leave a partial chunk set.
	ErrorKindStoreWrite ErrorKind = "store_write_error"

	// ErrorKindConfig: invalid model or dimension mismatch. Fatal to
	// the whole run, never recorded per document.
	ErrorKindConfig ErrorKind = "config_error"
)

// IndexError is a structured per-document indexing failure: a
// machine-readable kind, the pipeline step it originated from, and the
// underlying cause.
type IndexError struct {
	Kind ErrorKind
	Step string
	Err  error
}

func (e *IndexError) Error() string {
	return fmt.Sprintf("%s (%s): %v", e.Kind, e.Step, e.Err)
}

func (e *IndexError) Unwrap() error {
	return e.Err
}

// Message returns the human-readable part of the error.
func (e *IndexError) Message() string {
	if e.Err == nil {
		return string(e.Kind)
	}
	return e.Err.Error()
}

// NewIndexError builds an IndexError for the given step.
func NewIndexError(kind ErrorKind, step string, err error) *IndexError {
	return &IndexError{Kind: kind, Step: step, Err: err}
}

// EmbeddingBatchError reports a batch embedding failure, naming the
// offending input index so the caller can decide per-item retry vs.
// skip. A partial batch failure never silently corrupts alignment:
// the whole batch fails.
type EmbeddingBatchError struct {
	// Index is the position of the offending input within the batch,
	// or -1 when the failure is not attributable to one item.
	Index int
	Err   error
}

func (e *EmbeddingBatchError) Error() string {
	if e.Index >= 0 {
		return fmt.Sprintf("embedding batch failed at input %d: %v", e.Index, e.Err)
	}
	return fmt.Sprintf("embedding batch failed: %v", e.Err)
}

func (e *EmbeddingBatchError) Unwrap() error {
	return e.Err
}
