// Package lstm implements the syllable-level inference engine: a
// single-layer LSTM cell run forward over a fixed-length, right-aligned
// index sequence (zero-padded on the left), followed by a dense
// projection and softmax.
//
// An Engine is constructed empty via Create and becomes usable once
// LoadModel has succeeded; LoadVocab is independent and only needed by
// callers that want string<->index lookups rather than raw indices.
package lstm

import (
	"errors"
	"math"

	"gonum.org/v1/gonum/blas"
	"gonum.org/v1/gonum/blas/blas32"

	"github.com/mmsuggest/engine/pkg/binreader"
)

const (
	magic   = 0x4C53544D // "LSTM"
	version = 1

	defaultSequenceLength = 5
)

// Load error kinds.
var (
	ErrTooShort       = errors.New("lstm: buffer too short for header")
	ErrBadMagic       = errors.New("lstm: bad magic")
	ErrBadVersion     = errors.New("lstm: unsupported version")
	ErrDimensionUnder = errors.New("lstm: buffer shorter than declared tensor sizes")
	ErrEmptyVocab     = errors.New("lstm: vocabulary has no entries")

	// ErrTruncated is returned alongside a successfully-loaded partial
	// vocabulary when parsing stopped inside a key/value pair (an
	// unterminated string, a missing ':' or a missing integer) before a
	// closing brace was reached. A buffer that ends cleanly between
	// entries without a closing brace is not reported as truncated. It
	// is never returned in place of the partial result.
	ErrTruncated = errors.New("lstm: vocabulary JSON truncated or malformed before closing brace")
)

// Engine holds one loaded model, an optional loaded vocabulary, and the
// scratch buffers reused across Predict calls.
type Engine struct {
	vocabSize      int
	embeddingDim   int
	hiddenSize     int
	sequenceLength int

	embedding     []float32 // V*E
	lstmKernel    []float32 // 4H*E
	lstmRecurrent []float32 // 4H*H
	lstmBias      []float32 // 4H
	denseWeights  []float32 // V*H
	denseBias     []float32 // V

	modelLoaded bool

	vocabToIndex map[string]int
	indexToVocab []string // sized maxIndex+1
	vocabLoaded  bool

	hState      []float32
	cState      []float32
	gates       []float32
	embedded    []float32
	outputProbs []float32
}

// Create returns an empty Engine. SequenceLength reports the default
// of 5 until a model is loaded.
func Create() *Engine {
	return &Engine{sequenceLength: defaultSequenceLength}
}

// IsModelLoaded reports whether LoadModel has succeeded.
func (e *Engine) IsModelLoaded() bool { return e.modelLoaded }

// IsVocabLoaded reports whether LoadVocab has succeeded.
func (e *Engine) IsVocabLoaded() bool { return e.vocabLoaded }

// VocabSize returns the model's vocabulary size, or 0 if no model is
// loaded.
func (e *Engine) VocabSize() int { return e.vocabSize }

// SequenceLength returns the model's input sequence length, or the
// default of 5 if no model is loaded.
func (e *Engine) SequenceLength() int { return e.sequenceLength }

// LoadModel parses a binary model container per the tensor layout in
// the package's accompanying format doc: a 24-byte header of
// (magic, version, V, E, H, S) followed by the six weight tensors in
// row-major float32. Trailing bytes beyond the declared tensor sizes
// are accepted and ignored. On success, all tensors are copied into
// engine-owned storage and scratch buffers are (re)allocated.
func (e *Engine) LoadModel(data []byte) error {
	r := binreader.New(data)

	gotMagic, err := r.U32()
	if err != nil {
		return ErrTooShort
	}
	if gotMagic != magic {
		return ErrBadMagic
	}
	gotVersion, err := r.U32()
	if err != nil {
		return ErrTooShort
	}
	if gotVersion != version {
		return ErrBadVersion
	}
	v, err := r.U32()
	if err != nil {
		return ErrTooShort
	}
	emb, err := r.U32()
	if err != nil {
		return ErrTooShort
	}
	h, err := r.U32()
	if err != nil {
		return ErrTooShort
	}
	s, err := r.U32()
	if err != nil {
		return ErrTooShort
	}
	V, E, H, S := int(v), int(emb), int(h), int(s)

	embedding, err := r.Float32s(V * E)
	if err != nil {
		return ErrDimensionUnder
	}
	kernel, err := r.Float32s(4 * H * E)
	if err != nil {
		return ErrDimensionUnder
	}
	recurrent, err := r.Float32s(4 * H * H)
	if err != nil {
		return ErrDimensionUnder
	}
	bias, err := r.Float32s(4 * H)
	if err != nil {
		return ErrDimensionUnder
	}
	denseWeights, err := r.Float32s(V * H)
	if err != nil {
		return ErrDimensionUnder
	}
	denseBias, err := r.Float32s(V)
	if err != nil {
		return ErrDimensionUnder
	}

	e.vocabSize = V
	e.embeddingDim = E
	e.hiddenSize = H
	e.sequenceLength = S
	e.embedding = embedding
	e.lstmKernel = kernel
	e.lstmRecurrent = recurrent
	e.lstmBias = bias
	e.denseWeights = denseWeights
	e.denseBias = denseBias

	e.hState = make([]float32, H)
	e.cState = make([]float32, H)
	e.gates = make([]float32, 4*H)
	e.embedded = make([]float32, E)
	e.outputProbs = make([]float32, V)

	e.modelLoaded = true
	return nil
}

// LoadVocab parses a hand-rolled {string: integer} JSON subset and
// builds the string<->index lookup tables. A buffer that parses to
// zero entries is treated as failure; a buffer with a structural error
// partway through still installs whatever entries were parsed before
// the error, per the format's documented silent-abort behavior, and
// ErrTruncated is returned alongside that partial result.
func (e *Engine) LoadVocab(data []byte) error {
	entries, truncated := parseVocabJSON(data)
	if len(entries) == 0 {
		return ErrEmptyVocab
	}

	maxIndex := 0
	for _, idx := range entries {
		if idx > maxIndex {
			maxIndex = idx
		}
	}
	indexToVocab := make([]string, maxIndex+1)
	for s, idx := range entries {
		if idx >= 0 && idx < len(indexToVocab) {
			indexToVocab[idx] = s
		}
	}

	e.vocabToIndex = entries
	e.indexToVocab = indexToVocab
	e.vocabLoaded = true
	if truncated {
		return ErrTruncated
	}
	return nil
}

// Syllable returns the syllable at index i and true, or "" and false if
// i is out of range or no vocabulary is loaded.
func (e *Engine) Syllable(i int) (string, bool) {
	if !e.vocabLoaded || i < 0 || i >= len(e.indexToVocab) {
		return "", false
	}
	return e.indexToVocab[i], true
}

// Index returns the vocabulary index of s, or -1 if unknown or no
// vocabulary is loaded.
func (e *Engine) Index(s string) int {
	if !e.vocabLoaded {
		return -1
	}
	idx, ok := e.vocabToIndex[s]
	if !ok {
		return -1
	}
	return idx
}

func sigmoid32(x float32) float32 {
	return float32(1 / (1 + math.Exp(float64(-x))))
}

func tanh32(x float32) float32 {
	return float32(math.Tanh(float64(x)))
}

// general wraps a flat row-major slice as a blas32.General view with no
// copy.
func general(data []float32, rows, cols int) blas32.General {
	return blas32.General{Rows: rows, Cols: cols, Stride: cols, Data: data}
}

func vector(data []float32) blas32.Vector {
	return blas32.Vector{N: len(data), Inc: 1, Data: data}
}

// lstmStep runs one recurrent step, mutating gates, hState and cState
// in place, per the cell equations: g = bias + kernel*x + recurrent*h;
// gate split and activation; c = f*c + i*c̃; h = o*tanh(c).
func (e *Engine) lstmStep() {
	H := e.hiddenSize
	copy(e.gates, e.lstmBias)

	kernel := general(e.lstmKernel, 4*H, e.embeddingDim)
	blas32.Gemv(blas.NoTrans, 1, kernel, vector(e.embedded), 1, vector(e.gates))

	recurrent := general(e.lstmRecurrent, 4*H, H)
	blas32.Gemv(blas.NoTrans, 1, recurrent, vector(e.hState), 1, vector(e.gates))

	gi := e.gates[0*H : 1*H]
	gf := e.gates[1*H : 2*H]
	gc := e.gates[2*H : 3*H]
	go_ := e.gates[3*H : 4*H]

	for j := 0; j < H; j++ {
		gi[j] = sigmoid32(gi[j])
		gf[j] = sigmoid32(gf[j])
		go_[j] = sigmoid32(go_[j])
		gc[j] = tanh32(gc[j])

		e.cState[j] = gf[j]*e.cState[j] + gi[j]*gc[j]
		e.hState[j] = go_[j] * tanh32(e.cState[j])
	}
}

func softmaxInPlace(logits []float32) {
	max := logits[0]
	for _, v := range logits[1:] {
		if v > max {
			max = v
		}
	}
	var sum float32
	for i, v := range logits {
		e := float32(math.Exp(float64(v - max)))
		logits[i] = e
		sum += e
	}
	if sum == 0 {
		return
	}
	for i := range logits {
		logits[i] /= sum
	}
}

// Predict runs the forward pass over up to sequenceLength input
// indices (right-aligned, zero-padded on the left when shorter) and
// returns the softmax probability vector. Returns nil if no model is
// loaded. Out-of-range indices are clamped to 0.
func (e *Engine) Predict(indices []int32) []float32 {
	if !e.modelLoaded {
		return nil
	}
	S := e.sequenceLength
	for i := range e.hState {
		e.hState[i] = 0
	}
	for i := range e.cState {
		e.cState[i] = 0
	}

	count := len(indices)
	if count > S {
		count = S
	}
	pad := S - count

	E := e.embeddingDim
	for t := 0; t < S; t++ {
		var idx int
		if t < pad {
			idx = 0
		} else {
			v := indices[t-pad]
			if v < 0 || int(v) >= e.vocabSize {
				idx = 0
			} else {
				idx = int(v)
			}
		}
		copy(e.embedded, e.embedding[idx*E:(idx+1)*E])
		e.lstmStep()
	}

	logits := make([]float32, e.vocabSize)
	copy(logits, e.denseBias)
	dense := general(e.denseWeights, e.vocabSize, e.hiddenSize)
	blas32.Gemv(blas.NoTrans, 1, dense, vector(e.hState), 1, vector(logits))

	softmaxInPlace(logits)
	copy(e.outputProbs, logits)

	out := make([]float32, len(e.outputProbs))
	copy(out, e.outputProbs)
	return out
}
