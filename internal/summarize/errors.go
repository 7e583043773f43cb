package summarize

import (
	"errors"
	"fmt"
)

var (
	ErrInvalidChunking     = errors.New("invalid chunking parameters")
	ErrEmptyInput          = errors.New("no text content available for summarization")
	ErrNoSentences         = errors.New("unable to detect sentences for summarization")
	ErrAllChunksFailed     = errors.New("failed to summarize any chunks")
	ErrReduceFailed        = errors.New("reduce phase failed")
	ErrSynthesisFailed     = errors.New("multi-document synthesis failed")
	ErrUnknownMode         = errors.New("unknown synthesis mode")
	ErrUnknownMethod       = errors.New("unknown summarization method")
	ErrNoCompletionService = errors.New("completion service is not configured")
)

// ChunkFailure records a map-phase call that failed for the chunk at Index.
type ChunkFailure struct {
	Index int
	Err   error
}

// AllChunksFailedError is returned when no chunk produced a partial summary.
// It matches ErrAllChunksFailed and unwraps to every per-chunk error.
type AllChunksFailedError struct {
	Failures []ChunkFailure
}

func (e *AllChunksFailedError) Error() string {
	if len(e.Failures) == 0 {
		return ErrAllChunksFailed.Error()
	}
	return fmt.Sprintf("%s (%d chunks, first error: %v)", ErrAllChunksFailed, len(e.Failures), e.Failures[0].Err)
}

func (e *AllChunksFailedError) Is(target error) bool {
	return target == ErrAllChunksFailed
}

func (e *AllChunksFailedError) Unwrap() []error {
	errs := make([]error, 0, len(e.Failures))
	for _, f := range e.Failures {
		errs = append(errs, f.Err)
	}
	return errs
}
