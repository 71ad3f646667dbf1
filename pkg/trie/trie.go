// Package trie implements the compressed radix trie over tokenized
// Myanmar syllables: a container format parser plus frequency-ranked
// prefix completion.
//
// A Trie is constructed empty and populated by exactly one successful
// Load or LoadFromMemory call. A failed load installs nothing: the
// Trie keeps the state it had before the call (a new Trie stays empty
// and returns no suggestions), and the caller should discard it rather
// than retry in place.
package trie

import (
	"errors"
	"os"
	"sort"

	"github.com/mmsuggest/engine/pkg/binreader"
	"github.com/mmsuggest/engine/pkg/msyll"
)

const (
	magic   = 0x3154504D // "MPT1"
	version = 2
)

// Load/parse error kinds. A failed load always returns one of these
// (possibly wrapped); parsed data is installed only after the whole
// container has been read, so the Trie itself is left as it was before
// the call and should be discarded by the caller.
var (
	ErrBadMagic     = errors.New("trie: bad magic")
	ErrBadVersion   = errors.New("trie: unsupported version")
	ErrTooShort     = errors.New("trie: buffer too short for header and CRC")
	ErrCRCMismatch  = errors.New("trie: CRC-32 mismatch")
	ErrStringBounds = errors.New("trie: string table entry overruns buffer")
)

// Suggestion is one frequency-ranked completion.
type Suggestion struct {
	Word      string
	Frequency int32
}

type childEdge struct {
	firstToken uint32
	childIndex uint32
}

type node struct {
	label      []uint32
	frequency  int32 // -1 means internal (non-terminating)
	children   []childEdge
	childIndex map[uint32]uint32 // firstToken -> index into Trie.nodes
}

// Trie is the in-memory compressed radix trie. The zero value, via New,
// is empty and unusable until a Load succeeds.
type Trie struct {
	strings      []string
	stringToID   map[string]uint32
	nodes        []node
}

// New returns an empty Trie ready for Load or LoadFromMemory.
func New() *Trie {
	return &Trie{}
}

// Load reads and parses a trie container from the file at path.
func (t *Trie) Load(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return err
	}
	return t.LoadFromMemory(data)
}

// LoadFromMemory parses a trie container held entirely in data. The
// buffer is only borrowed for the duration of this call; all token
// strings and node data are copied into Trie-owned storage.
func (t *Trie) LoadFromMemory(data []byte) error {
	if len(data) == 0 {
		return ErrTooShort
	}
	if err := parse(t, data); err != nil {
		return err
	}
	return nil
}

func parse(t *Trie, data []byte) error {
	const headerAndCRC = 16 + 4
	if len(data) < headerAndCRC {
		return ErrTooShort
	}

	payload := data[:len(data)-4]
	storedCRC := binreader.New(data[len(data)-4:])
	want, err := storedCRC.U32()
	if err != nil {
		return ErrTooShort
	}
	if got := binreader.CRC32IEEE(payload); got != want {
		return ErrCRCMismatch
	}

	r := binreader.New(payload)

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
	stringCount, err := r.U32()
	if err != nil {
		return ErrTooShort
	}
	nodeCount, err := r.U32()
	if err != nil {
		return ErrTooShort
	}

	strings := make([]string, 0, stringCount)
	for i := uint32(0); i < stringCount; i++ {
		l, err := r.U32()
		if err != nil {
			return ErrTooShort
		}
		s, err := r.String(int(l))
		if err != nil {
			return ErrStringBounds
		}
		strings = append(strings, s)
	}
	stringToID := make(map[string]uint32, len(strings))
	for i, s := range strings {
		stringToID[s] = uint32(i)
	}

	nodes := make([]node, nodeCount)
	for i := uint32(0); i < nodeCount; i++ {
		labelLen, err := r.U32()
		if err != nil {
			return ErrTooShort
		}
		label := make([]uint32, labelLen)
		for j := range label {
			tok, err := r.U32()
			if err != nil {
				return ErrTooShort
			}
			label[j] = tok
		}
		freq, err := r.I32()
		if err != nil {
			return ErrTooShort
		}
		childCount, err := r.U32()
		if err != nil {
			return ErrTooShort
		}
		children := make([]childEdge, childCount)
		childIndex := make(map[uint32]uint32, childCount)
		for j := range children {
			first, err := r.U32()
			if err != nil {
				return ErrTooShort
			}
			idx, err := r.U32()
			if err != nil {
				return ErrTooShort
			}
			children[j] = childEdge{firstToken: first, childIndex: idx}
			childIndex[first] = idx
		}
		nodes[i] = node{label: label, frequency: freq, children: children, childIndex: childIndex}
	}

	t.strings = strings
	t.stringToID = stringToID
	t.nodes = nodes
	return nil
}

// syllablesToPartialTokens converts a partially-typed syllable sequence
// into the token-ID search key, per spec §4.2: each syllable's leading
// codepoint must resolve in the string table or the whole syllable is
// skipped; a non-empty, resolvable remainder is appended, a missing one
// silently omitted.
func (t *Trie) syllablesToPartialTokens(syllables []string) []uint32 {
	tokens := make([]uint32, 0, len(syllables)*2)
	for _, syll := range syllables {
		cons := msyll.FirstCodepoint(syll)
		tail := msyll.RestCodepoints(syll)
		if cons == "" {
			continue
		}
		id, ok := t.stringToID[cons]
		if !ok {
			continue
		}
		tokens = append(tokens, id)
		if tail != "" {
			if tailID, ok := t.stringToID[tail]; ok {
				tokens = append(tokens, tailID)
			}
		}
	}
	return tokens
}

func commonPrefixLen(key []uint32, offset int, label []uint32) int {
	i := 0
	for offset+i < len(key) && i < len(label) && key[offset+i] == label[i] {
		i++
	}
	return i
}

// joinTokens concatenates the token strings for path, skipping any
// out-of-range token (defensive only — a well-formed container never
// produces one).
func (t *Trie) joinTokens(path []uint32) string {
	var b []byte
	for _, tok := range path {
		if int(tok) < len(t.strings) {
			b = append(b, t.strings[tok]...)
		}
	}
	return string(b)
}

// collectWork is one pending frame of the iterative subtree walk: visit
// nodeIdx, appending its label to path from skip onward (tokens before
// skip were appended by the caller before descending).
type collectWork struct {
	nodeIdx int
	path    []uint32
	skip    int
}

// collect enumerates every frequency-terminating node in the subtree
// rooted at nodeIdx, given the path accumulated so far and the number
// of leading label tokens at nodeIdx to skip (already present in path).
// Iterative per spec §9's design note, to bound stack usage on deep
// tries.
func (t *Trie) collect(nodeIdx int, path []uint32, skip int) []Suggestion {
	var out []Suggestion
	stack := []collectWork{{nodeIdx: nodeIdx, path: path, skip: skip}}

	for len(stack) > 0 {
		w := stack[len(stack)-1]
		stack = stack[:len(stack)-1]

		n := t.nodes[w.nodeIdx]
		nextPath := make([]uint32, len(w.path), len(w.path)+len(n.label)-w.skip)
		copy(nextPath, w.path)
		nextPath = append(nextPath, n.label[w.skip:]...)

		if n.frequency >= 0 {
			out = append(out, Suggestion{Word: t.joinTokens(nextPath), Frequency: n.frequency})
		}
		for _, c := range n.children {
			stack = append(stack, collectWork{nodeIdx: int(c.childIndex), path: nextPath, skip: 0})
		}
	}
	return out
}

func sortAndTruncate(matches []Suggestion, topK int) []Suggestion {
	sort.Slice(matches, func(i, j int) bool {
		return matches[i].Frequency > matches[j].Frequency
	})
	if topK >= 0 && len(matches) > topK {
		matches = matches[:topK]
	}
	return matches
}

// SuggestPartial returns up to topK frequency-ranked completions of the
// token sequence derived from syllables, per the search algorithm in
// spec §4.2. Returns nil if the trie is empty, the input tokenizes to
// nothing resolvable, or there is no matching path.
func (t *Trie) SuggestPartial(syllables []string, topK int) []Suggestion {
	if len(t.nodes) == 0 || len(t.strings) == 0 {
		return nil
	}
	key := t.syllablesToPartialTokens(syllables)
	if len(key) == 0 {
		return nil
	}

	nodeIdx := 0
	var path []uint32
	offset := 0

	for offset < len(key) {
		cur := t.nodes[nodeIdx]
		childIdx, ok := cur.childIndex[key[offset]]
		if !ok {
			return nil
		}
		child := t.nodes[childIdx]
		common := commonPrefixLen(key, offset, child.label)
		if common == 0 {
			return nil
		}

		if common < len(child.label) {
			if offset+common == len(key) {
				matchPath := make([]uint32, len(path), len(path)+common)
				copy(matchPath, path)
				matchPath = append(matchPath, child.label[:common]...)
				return sortAndTruncate(t.collect(int(childIdx), matchPath, common), topK)
			}
			return nil
		}

		path = append(path, child.label...)
		offset += common
		nodeIdx = int(childIdx)
	}

	return sortAndTruncate(t.collect(nodeIdx, path, len(t.nodes[nodeIdx].label)), topK)
}

// Stats summarizes a loaded trie's in-memory footprint.
type Stats struct {
	StringCount int
	NodeCount   int
	EdgeCount   int
}

// Stats reports node/string-table/edge counts for diagnostics.
func (t *Trie) Stats() Stats {
	edges := 0
	for _, n := range t.nodes {
		edges += len(n.children)
	}
	return Stats{StringCount: len(t.strings), NodeCount: len(t.nodes), EdgeCount: edges}
}
