package harmony

import (
	"github.com/zacharytamas/harmony/internal/chat"
	"github.com/zacharytamas/harmony/internal/harmony"
)

// EncodingName identifies a supported Harmony encoding.
type EncodingName = harmony.EncodingName

// HarmonyGptOss is the encoding of the gpt-oss model family: the o200k BPE
// extended with the Harmony structural tokens.
const HarmonyGptOss = harmony.HarmonyGptOss

// Encoding bundles a tokenizer, the formatting-token map and the stop-token
// sets for one named encoding. Encodings are immutable and safe to share
// across goroutines.
type Encoding = harmony.Encoding

// LoadEncoding returns the named encoding. Loading is idempotent and cached
// process-wide.
func LoadEncoding(name EncodingName) (*Encoding, error) {
	return harmony.LoadEncoding(name)
}

// RenderConversationConfig controls conversation rendering.
type RenderConversationConfig = harmony.RenderConversationConfig

// DefaultRenderConversationConfig returns the default configuration
// (analysis dropping enabled).
func DefaultRenderConversationConfig() RenderConversationConfig {
	return harmony.DefaultRenderConversationConfig()
}

// StreamState enumerates the streamable parser's states.
type StreamState = harmony.StreamState

// Streamable parser states.
const (
	StateExpectStart = harmony.StateExpectStart
	StateHeader      = harmony.StateHeader
	StateContent     = harmony.StateContent
)

// StreamableParser reconstructs messages from a token stream incrementally.
// Instances are single-threaded; create one per stream.
type StreamableParser = harmony.StreamableParser

// NewStreamableParser creates a streaming parser. A non-empty role is the
// default author for a stream that begins mid-message.
func NewStreamableParser(enc *Encoding, role Role) *StreamableParser {
	return harmony.NewStreamableParser(enc, role)
}

// Error kinds surfaced by the codec; match with errors.Is.
var (
	ErrLoad                  = harmony.ErrLoad
	ErrTokenizerMismatch     = harmony.ErrTokenizerMismatch
	ErrInvalidMessage        = harmony.ErrInvalidMessage
	ErrInvalidHeader         = harmony.ErrInvalidHeader
	ErrMessageTooLong        = harmony.ErrMessageTooLong
	ErrRenderFormattingToken = harmony.ErrRenderFormattingToken
	ErrUnexpectedEof         = harmony.ErrUnexpectedEof
)

// Role identifies the author class of a message.
type Role = chat.Role

// Well-known roles.
const (
	RoleUser      = chat.RoleUser
	RoleAssistant = chat.RoleAssistant
	RoleSystem    = chat.RoleSystem
	RoleDeveloper = chat.RoleDeveloper
	RoleTool      = chat.RoleTool
)
