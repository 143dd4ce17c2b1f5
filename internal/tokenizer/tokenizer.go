package tokenizer

import (
	"errors"
	"fmt"
	"sort"
	"strings"
	"unicode/utf8"

	"github.com/pkoukk/tiktoken-go"
)

const (
	// encodingO200kBase is the tiktoken table the Harmony vocabulary extends.
	encodingO200kBase = "o200k_base"

	// baseVocabSize is the number of ordinary (mergeable) o200k tokens;
	// every id at or above it belongs to the special-token layer.
	baseVocabSize uint32 = 199998
)

// ErrInvalidUTF8 reports that decoded bytes do not form valid UTF-8.
var ErrInvalidUTF8 = errors.New("decoded bytes are not valid UTF-8")

// O200kHarmony is the o200k BPE extended with the Harmony structural tokens.
//
// The value is immutable after construction and safe for concurrent use.
type O200kHarmony struct {
	base          *tiktoken.Tiktoken
	specialByName map[string]uint32
	specialByID   map[uint32]string
	names         []string // special spellings, sorted
}

// NewO200kHarmony loads the o200k_base table and installs the Harmony
// special-token layer on top of it.
func NewO200kHarmony() (*O200kHarmony, error) {
	base, err := tiktoken.GetEncoding(encodingO200kBase)
	if err != nil {
		return nil, fmt.Errorf("failed to load tiktoken encoding %q: %w", encodingO200kBase, err)
	}

	byName := harmonySpecials()
	byID := make(map[uint32]string, len(byName))
	names := make([]string, 0, len(byName))
	for name, id := range byName {
		byID[id] = name
		names = append(names, name)
	}
	sort.Strings(names)

	return &O200kHarmony{
		base:          base,
		specialByName: byName,
		specialByID:   byID,
		names:         names,
	}, nil
}

// Name returns the vocabulary name.
func (t *O200kHarmony) Name() string { return "o200k_harmony" }

// VocabSize returns the total vocabulary size including the special layer.
func (t *O200kHarmony) VocabSize() int { return int(specialLast) + 1 }

// SpecialTokenID looks up a special token id by its spelling.
func (t *O200kHarmony) SpecialTokenID(name string) (uint32, bool) {
	id, ok := t.specialByName[name]
	return id, ok
}

// SpecialTokens returns all special-token spellings, sorted.
func (t *O200kHarmony) SpecialTokens() []string {
	return append([]string{}, t.names...)
}

// IsSpecialToken reports whether the id belongs to the special-token layer.
func (t *O200kHarmony) IsSpecialToken(id uint32) bool {
	return id >= specialFirst && id <= specialLast
}

// EncodeOrdinary tokenizes text without recognizing any special spellings:
// a literal "<|end|>" in the input stays ordinary text.
func (t *O200kHarmony) EncodeOrdinary(text string) []uint32 {
	return toUint32(t.base.EncodeOrdinary(text))
}

// Encode tokenizes text, mapping occurrences of the allowed special
// spellings to their single token ids. Spellings not in allowed are
// tokenized as ordinary text, so callers encoding untrusted payloads pass an
// empty set and no control token can be injected.
func (t *O200kHarmony) Encode(text string, allowed []string) []uint32 {
	if len(allowed) == 0 {
		return t.EncodeOrdinary(text)
	}
	active := make([]string, 0, len(allowed))
	for _, name := range allowed {
		if _, ok := t.specialByName[name]; ok {
			active = append(active, name)
		}
	}

	var out []uint32
	for len(text) > 0 {
		idx, name := -1, ""
		for _, candidate := range active {
			i := strings.Index(text, candidate)
			if i < 0 {
				continue
			}
			// Earliest match wins; on a tie prefer the longer spelling.
			if idx < 0 || i < idx || (i == idx && len(candidate) > len(name)) {
				idx, name = i, candidate
			}
		}
		if idx < 0 {
			out = append(out, t.EncodeOrdinary(text)...)
			break
		}
		if idx > 0 {
			out = append(out, t.EncodeOrdinary(text[:idx])...)
		}
		out = append(out, t.specialByName[name])
		text = text[idx+len(name):]
	}
	return out
}

// DecodeBytes converts tokens back into the exact byte sequence they encode.
// Special ids decode to their spellings. Unknown ids fail.
func (t *O200kHarmony) DecodeBytes(tokens []uint32) ([]byte, error) {
	var out []byte
	run := make([]int, 0, len(tokens))
	flush := func() {
		if len(run) > 0 {
			out = append(out, t.base.Decode(run)...)
			run = run[:0]
		}
	}
	for _, tok := range tokens {
		switch {
		case tok < baseVocabSize:
			run = append(run, int(tok))
		case t.IsSpecialToken(tok):
			flush()
			out = append(out, t.specialByID[tok]...)
		default:
			return nil, fmt.Errorf("token %d is out of the vocabulary range", tok)
		}
	}
	flush()
	return out, nil
}

// DecodeUTF8 decodes tokens into a string, failing with ErrInvalidUTF8 when
// the byte sequence does not form valid UTF-8 (callers wanting raw bytes use
// DecodeBytes).
func (t *O200kHarmony) DecodeUTF8(tokens []uint32) (string, error) {
	raw, err := t.DecodeBytes(tokens)
	if err != nil {
		return "", err
	}
	if !utf8.Valid(raw) {
		return "", ErrInvalidUTF8
	}
	return string(raw), nil
}

func toUint32(tokens []int) []uint32 {
	out := make([]uint32, len(tokens))
	for i, tok := range tokens {
		out[i] = uint32(tok) //nolint:gosec // G115: o200k ids fit in uint32.
	}
	return out
}
