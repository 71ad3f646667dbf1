// Command mksuggest inspects the three suggestion engines (trie,
// n-gram, LSTM) against their binary asset files and benchmarks trie
// queries.
//
// Usage:
//
//	mksuggest -trie path.trie [-query syllable,syllable,...] [-topk N]
//	mksuggest -trie path.trie -query syllable,syllable,... -bench N
//	mksuggest -ngram-vocab vocab.bin -ngram-bigrams bigrams.bin -text "the c"
//	mksuggest -model model.bin -vocab vocab.json -indices 2,3
package main

import (
	"flag"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/mmsuggest/engine/pkg/lstm"
	"github.com/mmsuggest/engine/pkg/ngram"
	"github.com/mmsuggest/engine/pkg/trie"
)

var (
	triePath    = flag.String("trie", "", "path to a trie container file")
	query       = flag.String("query", "", "comma-separated partial syllable sequence to query")
	topK        = flag.Int("topk", 5, "maximum number of results")
	bench       = flag.Int("bench", 0, "repeat the query N times and report timing")
	modelPath   = flag.String("model", "", "path to an LSTM model container file")
	vocabPath   = flag.String("vocab", "", "path to an LSTM vocabulary JSON file")
	indices     = flag.String("indices", "", "comma-separated input syllable indices for predict")
	ngramVocab  = flag.String("ngram-vocab", "", "path to an n-gram vocabulary container file")
	ngramBigram = flag.String("ngram-bigrams", "", "path to an n-gram bigram container file")
	text        = flag.String("text", "", "text to query against the n-gram engine")
	help        = flag.Bool("h", false, "display this help")
)

func main() {
	flag.Usage = usage
	flag.Parse()

	if *help {
		usage()
		os.Exit(0)
	}

	switch {
	case *triePath != "":
		runTrie()
	case *modelPath != "" || *vocabPath != "" && *indices != "":
		runLSTM()
	case *ngramVocab != "" || *ngramBigram != "":
		runNgram()
	default:
		usage()
		os.Exit(1)
	}
}

func usage() {
	fmt.Fprintln(os.Stderr, "mksuggest: inspect and benchmark the suggestion engines")
	flag.PrintDefaults()
}

func runTrie() {
	data, err := os.ReadFile(*triePath)
	if err != nil {
		fatal("cannot read '%s': %v", *triePath, err)
	}

	tr := trie.New()
	if err := tr.LoadFromMemory(data); err != nil {
		fatal("cannot load trie: %v", err)
	}

	stats := tr.Stats()
	fmt.Printf("strings=%d nodes=%d edges=%d\n", stats.StringCount, stats.NodeCount, stats.EdgeCount)

	if *query == "" {
		return
	}
	syllables := strings.Split(*query, ",")

	if *bench > 0 {
		start := time.Now()
		for i := 0; i < *bench; i++ {
			tr.SuggestPartial(syllables, *topK)
		}
		elapsed := time.Since(start)
		fmt.Printf("%d queries in %v (%v/query)\n", *bench, elapsed, elapsed/time.Duration(*bench))
		return
	}

	for _, s := range tr.SuggestPartial(syllables, *topK) {
		fmt.Printf("%s\t%d\n", s.Word, s.Frequency)
	}
}

func runLSTM() {
	e := lstm.Create()

	if *modelPath != "" {
		data, err := os.ReadFile(*modelPath)
		if err != nil {
			fatal("cannot read '%s': %v", *modelPath, err)
		}
		if err := e.LoadModel(data); err != nil {
			fatal("cannot load model: %v", err)
		}
		fmt.Printf("vocab_size=%d sequence_length=%d\n", e.VocabSize(), e.SequenceLength())
	}

	if *vocabPath != "" {
		data, err := os.ReadFile(*vocabPath)
		if err != nil {
			fatal("cannot read '%s': %v", *vocabPath, err)
		}
		if err := e.LoadVocab(data); err != nil {
			fatal("cannot load vocabulary: %v", err)
		}
	}

	if *indices == "" {
		return
	}
	parts := strings.Split(*indices, ",")
	idx := make([]int32, 0, len(parts))
	for _, p := range parts {
		n, err := strconv.Atoi(strings.TrimSpace(p))
		if err != nil {
			fatal("invalid index %q: %v", p, err)
		}
		idx = append(idx, int32(n))
	}

	probs := e.Predict(idx)
	if probs == nil {
		fatal("predict failed: no model loaded")
	}
	for i, p := range probs {
		syll, ok := e.Syllable(i)
		if ok {
			fmt.Printf("%d\t%s\t%.6f\n", i, syll, p)
		} else {
			fmt.Printf("%d\t\t%.6f\n", i, p)
		}
	}
}

func runNgram() {
	eng := ngram.New()

	if *ngramVocab != "" {
		data, err := os.ReadFile(*ngramVocab)
		if err != nil {
			fatal("cannot read '%s': %v", *ngramVocab, err)
		}
		if err := eng.LoadVocabulary(data); err != nil {
			fatal("cannot load vocabulary: %v", err)
		}
	}
	if *ngramBigram != "" {
		data, err := os.ReadFile(*ngramBigram)
		if err != nil {
			fatal("cannot read '%s': %v", *ngramBigram, err)
		}
		if err := eng.LoadBigrams(data); err != nil {
			fatal("cannot load bigrams: %v", err)
		}
	}

	fmt.Printf("vocab_size=%d bigram_count=%d ready=%v\n", eng.VocabSize(), eng.BigramCount(), eng.IsReady())

	if *text == "" {
		return
	}
	for _, s := range eng.GetSuggestions(*text, *topK) {
		fmt.Printf("%s\t%d\n", s.Word, s.Score)
	}
}

func fatal(format string, args ...interface{}) {
	fmt.Fprintf(os.Stderr, "mksuggest: "+format+"\n", args...)
	os.Exit(1)
}
