package ngram

import (
	"encoding/binary"
	"testing"
)

type vocabWord struct {
	word string
	freq uint16
}

func buildVocab(t *testing.T, words []vocabWord) []byte {
	t.Helper()
	var buf []byte
	buf = binary.LittleEndian.AppendUint32(buf, magic)
	buf = binary.LittleEndian.AppendUint32(buf, version)
	buf = binary.LittleEndian.AppendUint32(buf, uint32(len(words)))
	for _, w := range words {
		buf = binary.LittleEndian.AppendUint16(buf, uint16(len(w.word)))
		buf = append(buf, w.word...)
		buf = binary.LittleEndian.AppendUint16(buf, w.freq)
	}
	return buf
}

type bigram struct {
	idx1, idx2 uint16
	freq       uint16
}

func buildBigrams(t *testing.T, entries []bigram) []byte {
	t.Helper()
	var buf []byte
	buf = binary.LittleEndian.AppendUint32(buf, magic)
	buf = binary.LittleEndian.AppendUint32(buf, version)
	buf = binary.LittleEndian.AppendUint32(buf, uint32(len(entries)))
	for _, e := range entries {
		buf = binary.LittleEndian.AppendUint16(buf, e.idx1)
		buf = binary.LittleEndian.AppendUint16(buf, e.idx2)
		buf = binary.LittleEndian.AppendUint16(buf, e.freq)
	}
	return buf
}

// sampleEngine builds the vocabulary/bigram fixture from spec §8
// scenario 5: words "the"/"theatre"/"they"/"cat" with frequencies
// 500/80/300/40, and one bigram the->cat with frequency 200.
func sampleEngine(t *testing.T) *Engine {
	t.Helper()
	words := []vocabWord{
		{"the", 500},
		{"theatre", 80},
		{"they", 300},
		{"cat", 40},
	}
	vocabData := buildVocab(t, words)

	var theIdx, catIdx uint16
	for i, w := range words {
		switch w.word {
		case "the":
			theIdx = uint16(i)
		case "cat":
			catIdx = uint16(i)
		}
	}
	bigramData := buildBigrams(t, []bigram{{idx1: theIdx, idx2: catIdx, freq: 200}})

	e := New()
	if err := e.LoadVocabulary(vocabData); err != nil {
		t.Fatalf("LoadVocabulary() error: %v", err)
	}
	if err := e.LoadBigrams(bigramData); err != nil {
		t.Fatalf("LoadBigrams() error: %v", err)
	}
	if !e.IsReady() {
		t.Fatal("engine not ready after loading vocabulary and bigrams")
	}
	return e
}

func TestGetSuggestionsBigramBoost(t *testing.T) {
	e := sampleEngine(t)
	got := e.GetSuggestions("the c", 5)
	want := []Suggestion{{Word: "cat", Score: 1200}}
	if len(got) != len(want) {
		t.Fatalf("GetSuggestions(%q) = %v, want %v", "the c", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("GetSuggestions(%q)[%d] = %v, want %v", "the c", i, got[i], want[i])
		}
	}
}

func TestGetSuggestionsCompletionExcludesPrevWord(t *testing.T) {
	e := sampleEngine(t)
	got := e.GetSuggestions("the th", 5)
	want := []Suggestion{
		{Word: "they", Score: 300},
		{Word: "theatre", Score: 80},
	}
	if len(got) != len(want) {
		t.Fatalf("GetSuggestions(%q) = %v, want %v", "the th", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("GetSuggestions(%q)[%d] = %v, want %v", "the th", i, got[i], want[i])
		}
	}
}

func TestGetSuggestionsDedup(t *testing.T) {
	// "cat" appears once from the bigram boost; it should never appear
	// a second time from the prefix completion pass, which runs for a
	// two-byte current word and also matches "cat" by prefix "ca".
	e := sampleEngine(t)
	got := e.GetSuggestions("the ca", 5)
	seen := make(map[string]int)
	for _, s := range got {
		seen[s.Word]++
	}
	for word, count := range seen {
		if count > 1 {
			t.Errorf("word %q appears %d times in results, want at most once", word, count)
		}
	}
}

func TestPredictUnknownWord(t *testing.T) {
	e := sampleEngine(t)
	if got := e.Predict("nonexistent", 5); got != nil {
		t.Errorf("Predict() for unknown word = %v, want nil", got)
	}
}

func TestCompletePrefix(t *testing.T) {
	e := sampleEngine(t)
	got := e.Complete("the", 10)
	if len(got) != 3 {
		t.Fatalf("Complete(%q) = %v, want 3 matches", "the", got)
	}
	for i := 1; i < len(got); i++ {
		if got[i].Score > got[i-1].Score {
			t.Errorf("Complete() not sorted descending at %d: %v", i, got)
		}
	}
}

func TestVocabSizeAndBigramCount(t *testing.T) {
	e := sampleEngine(t)
	if e.VocabSize() != 4 {
		t.Errorf("VocabSize() = %d, want 4", e.VocabSize())
	}
	if e.BigramCount() != 1 {
		t.Errorf("BigramCount() = %d, want 1", e.BigramCount())
	}
}

func TestLoadVocabularyTruncatedKeepsPartial(t *testing.T) {
	full := buildVocab(t, []vocabWord{{"the", 500}, {"they", 300}})
	// Truncate right after the second entry's length field, before any
	// of its word bytes.
	truncated := full[:len(full)-6]

	e := New()
	err := e.LoadVocabulary(truncated)
	if err != ErrTruncated {
		t.Fatalf("LoadVocabulary() on truncated buffer returned %v, want ErrTruncated alongside the partial result", err)
	}
	if e.VocabSize() != 1 {
		t.Errorf("VocabSize() after truncation = %d, want 1 (only first entry fully read)", e.VocabSize())
	}
}

func TestLoadVocabularyEmptyFails(t *testing.T) {
	empty := buildVocab(t, nil)
	e := New()
	if err := e.LoadVocabulary(empty); err != ErrEmpty {
		t.Errorf("LoadVocabulary(empty) error = %v, want ErrEmpty", err)
	}
}

func TestLoadBigramsTruncatedKeepsPartial(t *testing.T) {
	full := buildBigrams(t, []bigram{{idx1: 0, idx2: 1, freq: 10}, {idx1: 0, idx2: 2, freq: 20}})
	truncated := full[:len(full)-3]

	e := New()
	err := e.LoadBigrams(truncated)
	if err != ErrTruncated {
		t.Fatalf("LoadBigrams() on truncated buffer returned %v, want ErrTruncated alongside the partial result", err)
	}
	if e.BigramCount() != 1 {
		t.Errorf("BigramCount() after truncation = %d, want 1 (only first entry fully read)", e.BigramCount())
	}
}

func TestLoadBigramsBadHeaderFails(t *testing.T) {
	bad := []byte{0, 0, 0, 0, 1, 0, 0, 0, 0, 0, 0, 0}
	e := New()
	if err := e.LoadBigrams(bad); err != ErrBadHeader {
		t.Errorf("LoadBigrams(bad header) error = %v, want ErrBadHeader", err)
	}
}

func TestReleaseResetsState(t *testing.T) {
	e := sampleEngine(t)
	e.Release()
	if e.IsReady() {
		t.Error("IsReady() after Release() = true, want false")
	}
	if e.VocabSize() != 0 {
		t.Errorf("VocabSize() after Release() = %d, want 0", e.VocabSize())
	}
}
