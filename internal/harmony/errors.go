package harmony

import "errors"

// Error kinds surfaced by the codec. Callers match with errors.Is; wrapped
// errors carry the offending detail.
var (
	// ErrLoad reports that an encoding could not be loaded.
	ErrLoad = errors.New("failed to load encoding")

	// ErrTokenizerMismatch reports bytes that do not form valid UTF-8, or a
	// token id outside the vocabulary.
	ErrTokenizerMismatch = errors.New("tokenizer mismatch")

	// ErrInvalidMessage reports a message the renderer cannot express, such
	// as a tool message without a name.
	ErrInvalidMessage = errors.New("invalid message")

	// ErrInvalidHeader reports a message header the parser cannot decode.
	// The streamable parser poisons itself on this error.
	ErrInvalidHeader = errors.New("invalid message header")

	// ErrMessageTooLong reports a single message exceeding the per-message
	// token limit.
	ErrMessageTooLong = errors.New("message exceeds token limit")

	// ErrRenderFormattingToken reports a formatting token with no id in the
	// loaded vocabulary.
	ErrRenderFormattingToken = errors.New("unmapped formatting token")

	// ErrUnexpectedEof reports a token stream that ends in the middle of a
	// message header.
	ErrUnexpectedEof = errors.New("unexpected end of token stream")
)
