package harmony

import (
	"fmt"
	"sync"

	"github.com/zacharytamas/harmony/internal/tokenizer"
)

// EncodingName identifies a supported Harmony encoding.
type EncodingName string

// Supported encodings.
const (
	HarmonyGptOss EncodingName = "HarmonyGptOss"
)

// Context and action-length limits of the HarmonyGptOss encoding.
const (
	gptOssContextLength   = 1 << 20 // 1,048,576
	gptOssMaxActionLength = 1 << 19 // 524,288
)

// Formatting token spellings the renderer and parser work with. They resolve
// to vocabulary ids through the encoding's formatting-token map, so future
// encodings may map them differently (or not at all).
const (
	formatStart     = "<|start|>"
	formatMessage   = "<|message|>"
	formatEnd       = "<|end|>"
	formatReturn    = "<|return|>"
	formatCall      = "<|call|>"
	formatRefusal   = "<|refusal|>"
	formatConstrain = "<|constrain|>"
	formatChannel   = "<|channel|>"
	formatEndOfText = "<|endoftext|>"
)

// Encoding bundles a tokenizer, the formatting-token id map and the stop
// token sets for one named Harmony encoding. Values are immutable after
// construction and safe to share across goroutines.
type Encoding struct {
	name             string
	tok              *tokenizer.O200kHarmony
	formatTokens     map[string]uint32
	maxMessageTokens int

	tokStart     uint32
	tokMessage   uint32
	tokEnd       uint32
	tokReturn    uint32
	tokCall      uint32
	tokConstrain uint32
	tokChannel   uint32
	tokEndOfText uint32
}

var loadGptOss = sync.OnceValues(func() (*Encoding, error) {
	tok, err := tokenizer.NewO200kHarmony()
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrLoad, err)
	}

	formatTokens := make(map[string]uint32)
	for _, name := range []string{
		formatStart, formatMessage, formatEnd, formatReturn,
		formatCall, formatConstrain, formatChannel, formatEndOfText,
	} {
		id, ok := tok.SpecialTokenID(name)
		if !ok {
			return nil, fmt.Errorf("%w: formatting token %s has no id", ErrLoad, name)
		}
		formatTokens[name] = id
	}
	// <|refusal|> is part of the formatting-token alphabet but has no id in
	// o200k_harmony; requesting it yields ErrRenderFormattingToken.

	enc := &Encoding{
		name:             string(HarmonyGptOss),
		tok:              tok,
		formatTokens:     formatTokens,
		maxMessageTokens: gptOssContextLength - gptOssMaxActionLength,
		tokStart:         formatTokens[formatStart],
		tokMessage:       formatTokens[formatMessage],
		tokEnd:           formatTokens[formatEnd],
		tokReturn:        formatTokens[formatReturn],
		tokCall:          formatTokens[formatCall],
		tokConstrain:     formatTokens[formatConstrain],
		tokChannel:       formatTokens[formatChannel],
		tokEndOfText:     formatTokens[formatEndOfText],
	}
	return enc, nil
})

// LoadEncoding returns the named encoding. Loading is idempotent: repeated
// calls converge on one cached instance per name.
func LoadEncoding(name EncodingName) (*Encoding, error) {
	switch name {
	case HarmonyGptOss:
		return loadGptOss()
	default:
		return nil, fmt.Errorf("%w: unknown encoding %q", ErrLoad, string(name))
	}
}

// Name returns the encoding's canonical name.
func (e *Encoding) Name() string { return e.name }

// MaxMessageTokens returns the per-message token limit.
func (e *Encoding) MaxMessageTokens() int { return e.maxMessageTokens }

// Encode tokenizes text. Spellings listed in allowedSpecials are emitted as
// their reserved single tokens; everything else is ordinary text. Pass no
// specials for untrusted payloads so typed-out control tokens stay inert.
func (e *Encoding) Encode(text string, allowedSpecials []string) []uint32 {
	return e.tok.Encode(text, allowedSpecials)
}

// DecodeUTF8 decodes tokens into a string, failing with ErrTokenizerMismatch
// when the bytes do not form valid UTF-8 or a token is out of range.
func (e *Encoding) DecodeUTF8(tokens []uint32) (string, error) {
	s, err := e.tok.DecodeUTF8(tokens)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrTokenizerMismatch, err)
	}
	return s, nil
}

// DecodeBytes decodes tokens into raw bytes for callers that tolerate
// partial UTF-8.
func (e *Encoding) DecodeBytes(tokens []uint32) ([]byte, error) {
	raw, err := e.tok.DecodeBytes(tokens)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrTokenizerMismatch, err)
	}
	return raw, nil
}

// SpecialTokens returns every reserved spelling of the vocabulary, for
// callers that need all-specials encoding.
func (e *Encoding) SpecialTokens() []string { return e.tok.SpecialTokens() }

// IsSpecialToken reports whether id belongs to the reserved token range.
func (e *Encoding) IsSpecialToken(id uint32) bool { return e.tok.IsSpecialToken(id) }

// StopTokens returns the token ids that absolutely terminate sampling.
func (e *Encoding) StopTokens() []uint32 {
	return []uint32{e.tokEndOfText, e.tokReturn}
}

// StopTokensForAssistantActions returns the sampling stop set that also
// commits tool calls.
func (e *Encoding) StopTokensForAssistantActions() []uint32 {
	return []uint32{e.tokEndOfText, e.tokReturn, e.tokCall}
}

// formattingTokenID resolves a formatting token spelling to its id.
func (e *Encoding) formattingTokenID(name string) (uint32, error) {
	id, ok := e.formatTokens[name]
	if !ok {
		return 0, fmt.Errorf("%w: %s", ErrRenderFormattingToken, name)
	}
	return id, nil
}

// isTerminator reports whether the token finalizes a message body.
func (e *Encoding) isTerminator(tok uint32) bool {
	return tok == e.tokEnd || tok == e.tokReturn || tok == e.tokCall
}
