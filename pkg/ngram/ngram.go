// Package ngram implements the n-gram word-suggestion engine: a word
// vocabulary with frequencies, bigram adjacency buckets sorted by
// frequency, and the predict/complete/getSuggestions query surface.
//
// Unlike the original JNI-bound engine this is grounded on, there is no
// implicit process-wide singleton here — callers own an *Engine value
// with an explicit lifecycle (New, Load*, Release), matching spec §9's
// design note to "disallow implicit global state".
package ngram

import (
	"sort"
	"strings"

	"github.com/mmsuggest/engine/pkg/binreader"
)

const (
	magic   = 0x4E47524D // "NGRM"
	version = 1
)

// WordEntry is one vocabulary slot: its word and its observed frequency.
type WordEntry struct {
	Word      string
	Frequency uint16
}

// Suggestion is a scored candidate word. Score is frequency for plain
// completions, and frequency+1000 for bigram-boosted predictions (see
// GetSuggestions).
type Suggestion struct {
	Word  string
	Score int
}

type bigramTarget struct {
	wordIndex uint16
	frequency uint16
}

type bigramEntry struct {
	word1, word2 uint16
	frequency    uint16
}

// Engine holds one loaded n-gram model. The zero value, via New, is
// empty and not ready until both LoadVocabulary and LoadBigrams have
// succeeded.
type Engine struct {
	vocabulary     []WordEntry
	wordToIndex    map[string]uint16
	bigrams        []bigramEntry
	bigramsByFirst map[uint16][]bigramTarget

	vocabularyLoaded bool
	bigramsLoaded    bool
}

// New returns an empty, unready Engine.
func New() *Engine {
	return &Engine{}
}

// Release drops the engine's loaded state. Present for lifecycle parity
// with the C++ engine's release(); Go's garbage collector reclaims the
// memory once the Engine itself becomes unreachable, so this is just a
// courtesy reset for callers that want to reuse the value.
func (e *Engine) Release() {
	*e = Engine{}
}

// IsReady reports whether both a vocabulary and a bigram table have
// been successfully loaded.
func (e *Engine) IsReady() bool { return e.vocabularyLoaded && e.bigramsLoaded }

// VocabSize returns the number of loaded vocabulary words.
func (e *Engine) VocabSize() int { return len(e.vocabulary) }

// BigramCount returns the number of loaded bigram entries.
func (e *Engine) BigramCount() int { return len(e.bigrams) }

// Vocabulary returns a read-only snapshot of the loaded vocabulary in
// index order, for diagnostics.
func (e *Engine) Vocabulary() []WordEntry {
	out := make([]WordEntry, len(e.vocabulary))
	copy(out, e.vocabulary)
	return out
}

// LoadVocabulary parses a vocabulary container: magic, version, count,
// then count entries of (u16 word length, raw bytes, u16 frequency).
// Per spec §9's open question, a truncated buffer is not a hard
// failure: whatever entries were fully readable before truncation are
// kept, and readiness reflects only whether at least one entry loaded.
// If the buffer ran out before the declared count was reached, the
// partial result is still installed and ErrTruncated is returned
// alongside it.
func (e *Engine) LoadVocabulary(data []byte) error {
	r := binreader.New(data)
	gotMagic, err := r.U32()
	if err != nil {
		return ErrTooShort
	}
	gotVersion, err := r.U32()
	if err != nil {
		return ErrTooShort
	}
	if gotMagic != magic || gotVersion != version {
		return ErrBadHeader
	}
	count, err := r.U32()
	if err != nil {
		return ErrTooShort
	}

	vocabulary := make([]WordEntry, 0, count)
	wordToIndex := make(map[string]uint16, count)
	truncated := false

	for i := uint32(0); i < count; i++ {
		wordLen, err := r.U16()
		if err != nil {
			truncated = true
			break
		}
		word, err := r.String(int(wordLen))
		if err != nil {
			truncated = true
			break
		}
		freq, err := r.U16()
		if err != nil {
			truncated = true
			break
		}
		vocabulary = append(vocabulary, WordEntry{Word: word, Frequency: freq})
		wordToIndex[word] = uint16(len(vocabulary) - 1)
	}

	e.vocabulary = vocabulary
	e.wordToIndex = wordToIndex
	e.vocabularyLoaded = len(vocabulary) > 0
	if !e.vocabularyLoaded {
		return ErrEmpty
	}
	if truncated {
		return ErrTruncated
	}
	return nil
}

// LoadBigrams parses a bigram container: magic, version, count, then
// count entries of (u16 idx1, u16 idx2, u16 frequency). Buckets are
// sorted by frequency descending after loading, deterministically given
// input order. Truncation is tolerated the same way as LoadVocabulary,
// returning ErrTruncated alongside the partial result.
func (e *Engine) LoadBigrams(data []byte) error {
	r := binreader.New(data)
	gotMagic, err := r.U32()
	if err != nil {
		return ErrTooShort
	}
	gotVersion, err := r.U32()
	if err != nil {
		return ErrTooShort
	}
	if gotMagic != magic || gotVersion != version {
		return ErrBadHeader
	}
	count, err := r.U32()
	if err != nil {
		return ErrTooShort
	}

	bigrams := make([]bigramEntry, 0, count)
	bigramsByFirst := make(map[uint16][]bigramTarget)
	truncated := false

	for i := uint32(0); i < count; i++ {
		idx1, err := r.U16()
		if err != nil {
			truncated = true
			break
		}
		idx2, err := r.U16()
		if err != nil {
			truncated = true
			break
		}
		freq, err := r.U16()
		if err != nil {
			truncated = true
			break
		}
		bigrams = append(bigrams, bigramEntry{word1: idx1, word2: idx2, frequency: freq})
		bigramsByFirst[idx1] = append(bigramsByFirst[idx1], bigramTarget{wordIndex: idx2, frequency: freq})
	}

	for k := range bigramsByFirst {
		bucket := bigramsByFirst[k]
		sort.SliceStable(bucket, func(i, j int) bool {
			return bucket[i].frequency > bucket[j].frequency
		})
		bigramsByFirst[k] = bucket
	}

	e.bigrams = bigrams
	e.bigramsByFirst = bigramsByFirst
	e.bigramsLoaded = len(bigrams) > 0
	if !e.bigramsLoaded {
		return ErrEmpty
	}
	if truncated {
		return ErrTruncated
	}
	return nil
}

// lowerASCII lowercases only 'A'..'Z'; every other byte, including any
// non-ASCII byte, passes through unchanged. This is intentionally not
// strings.ToLower, which applies full Unicode case folding — the spec
// requires byte-wise ASCII lowercasing so that multi-byte Myanmar text
// is never reinterpreted by a locale-aware case map.
func lowerASCII(s string) string {
	b := []byte(s)
	changed := false
	for i, c := range b {
		if c >= 'A' && c <= 'Z' {
			b[i] = c - 'A' + 'a'
			changed = true
		}
	}
	if !changed {
		return s
	}
	return string(b)
}

// extractCurrentWord returns the lowercased substring after the last
// space in text, or all of text lowercased if there is no space.
func extractCurrentWord(text string) string {
	if text == "" {
		return ""
	}
	if i := strings.LastIndexByte(text, ' '); i >= 0 {
		return lowerASCII(text[i+1:])
	}
	return lowerASCII(text)
}

// extractLastWord returns the lowercased word that ends at the last
// space in text and starts after the space before it (or at the start
// of text when there is only one space), or "" if there is no space. Text
// beginning with a space yields "" rather than underflowing, per spec
// §9's resolution of the original's rfind(' ', lastSpace-1) call.
func extractLastWord(text string) string {
	if text == "" {
		return ""
	}
	lastSpace := strings.LastIndexByte(text, ' ')
	if lastSpace < 0 {
		return ""
	}
	prevStart := 0
	if lastSpace > 0 {
		if p := strings.LastIndexByte(text[:lastSpace], ' '); p >= 0 {
			prevStart = p + 1
		}
	}
	return lowerASCII(text[prevStart:lastSpace])
}

// Predict returns up to topK (word, frequency) pairs from the bigram
// bucket keyed by prevWord, pre-sorted by frequency descending. Returns
// nil if the engine isn't ready, prevWord is empty, or prevWord is
// unknown.
func (e *Engine) Predict(prevWord string, topK int) []Suggestion {
	if !e.IsReady() || prevWord == "" {
		return nil
	}
	idx, ok := e.wordToIndex[prevWord]
	if !ok {
		return nil
	}
	bucket, ok := e.bigramsByFirst[idx]
	if !ok {
		return nil
	}
	count := topK
	if count > len(bucket) {
		count = len(bucket)
	}
	out := make([]Suggestion, 0, count)
	for i := 0; i < count; i++ {
		nextIdx := bucket[i].wordIndex
		if int(nextIdx) >= len(e.vocabulary) {
			continue
		}
		out = append(out, Suggestion{Word: e.vocabulary[nextIdx].Word, Score: int(bucket[i].frequency)})
	}
	return out
}

// Complete returns up to topK vocabulary words whose byte-level prefix
// matches prefix, sorted by frequency descending.
func (e *Engine) Complete(prefix string, topK int) []Suggestion {
	if !e.vocabularyLoaded || prefix == "" {
		return nil
	}
	var matches []Suggestion
	for _, entry := range e.vocabulary {
		if strings.HasPrefix(entry.Word, prefix) {
			matches = append(matches, Suggestion{Word: entry.Word, Score: int(entry.Frequency)})
		}
	}
	sort.SliceStable(matches, func(i, j int) bool { return matches[i].Score > matches[j].Score })
	if topK >= 0 && len(matches) > topK {
		matches = matches[:topK]
	}
	return matches
}

// GetSuggestions combines bigram predictions for the text's previous
// word with prefix completions of its current (in-progress) word, per
// spec §4.3. Bigram hits are boosted by +1000 so they rank above pure
// completions; results are deduplicated by word and truncated to topK.
func (e *Engine) GetSuggestions(text string, topK int) []Suggestion {
	if !e.IsReady() || text == "" {
		return nil
	}

	currentWord := extractCurrentWord(text)
	prevWord := extractLastWord(text)

	seen := make(map[string]bool)
	var results []Suggestion

	if prevWord != "" {
		for _, pred := range e.Predict(prevWord, topK*2) {
			if currentWord != "" && !strings.HasPrefix(pred.Word, currentWord) {
				continue
			}
			if seen[pred.Word] {
				continue
			}
			seen[pred.Word] = true
			results = append(results, Suggestion{Word: pred.Word, Score: pred.Score + 1000})
		}
	}

	if len(currentWord) >= 2 {
		for _, comp := range e.Complete(currentWord, topK*2) {
			if seen[comp.Word] || comp.Word == prevWord {
				continue
			}
			seen[comp.Word] = true
			results = append(results, comp)
		}
	}

	sort.SliceStable(results, func(i, j int) bool { return results[i].Score > results[j].Score })
	if topK >= 0 && len(results) > topK {
		results = results[:topK]
	}
	return results
}
