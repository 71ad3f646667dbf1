package ngram

import "errors"

// Load error kinds. LoadVocabulary/LoadBigrams return one of these when
// no entry at all could be read; a buffer that yields at least one
// entry before truncating is accepted with the partial result kept,
// per spec §9's resolution of the truncated-container open question.
var (
	ErrTooShort  = errors.New("ngram: buffer too short for header")
	ErrBadHeader = errors.New("ngram: bad magic or unsupported version")
	ErrEmpty     = errors.New("ngram: no entries could be read")

	// ErrTruncated is returned alongside a successfully-loaded partial
	// result when the declared entry count could not be fully read.
	// It is never returned in place of the partial result — callers
	// that don't care about the distinction can ignore it and use the
	// loaded entries as-is.
	ErrTruncated = errors.New("ngram: buffer truncated before declared entry count was reached")
)
