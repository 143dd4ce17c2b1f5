package harmony

import (
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/zacharytamas/harmony/internal/chat"
)

// StreamState enumerates the streamable parser's states.
type StreamState int

// Parser states: waiting for <|start|>, accumulating a header, accumulating
// message content.
const (
	StateExpectStart StreamState = iota
	StateHeader
	StateContent
)

// String returns the state name.
func (s StreamState) String() string {
	switch s {
	case StateExpectStart:
		return "ExpectStart"
	case StateHeader:
		return "Header"
	case StateContent:
		return "Content"
	default:
		return fmt.Sprintf("StreamState(%d)", int(s))
	}
}

// parsedHeader is the structured form of a message header.
type parsedHeader struct {
	author      chat.Author
	recipient   string
	channel     string
	contentType string
}

// StreamableParser reconstructs messages from a token stream one token at a
// time. It tolerates partial input: header and content accumulate until
// their delimiters arrive, and content with a trailing incomplete UTF-8
// sequence is withheld from CurrentContent until the remaining bytes show
// up.
//
// A parser instance is not safe for concurrent use; create one per stream.
// After ErrInvalidHeader the parser is poisoned: every further Process call
// returns the stored error, since resynchronizing would require discarding
// the whole current message anyway.
type StreamableParser struct {
	enc      *Encoding
	nextRole chat.Role

	state        StreamState
	headerBytes  []byte
	contentBytes []byte
	header       parsedHeader

	tokens       []uint32
	messages     []chat.Message
	lastDelta    string
	deltaEmitted int
	closed       bool
	err          error
}

// NewStreamableParser creates a parser. A non-empty role is the default for
// a stream that begins mid-message: the parser starts in the Header state
// and continues the header the prompt already opened.
func NewStreamableParser(enc *Encoding, role chat.Role) *StreamableParser {
	p := &StreamableParser{enc: enc, nextRole: role}
	if role != "" {
		p.state = StateHeader
	}
	return p
}

// Process consumes one token and advances the state machine.
func (p *StreamableParser) Process(token uint32) error {
	if p.err != nil {
		return p.err
	}
	p.tokens = append(p.tokens, token)
	p.lastDelta = ""

	switch p.state {
	case StateExpectStart:
		switch token {
		case p.enc.tokStart:
			p.headerBytes = p.headerBytes[:0]
			p.state = StateHeader
		case p.enc.tokEndOfText:
			p.closed = true
		default:
			return fmt.Errorf("%w: unexpected token %d while expecting %s", ErrInvalidMessage, token, formatStart)
		}
		return nil

	case StateHeader:
		switch token {
		case p.enc.tokStart:
			// A role-hinted parser starts in Header; an explicit start token
			// at the very beginning is redundant, not an error.
			if len(p.headerBytes) == 0 {
				return nil
			}
			return p.poison(fmt.Errorf("%w: %s inside header", ErrInvalidHeader, formatStart))
		case p.enc.tokMessage:
			header, err := p.enc.parseHeader(string(p.headerBytes), p.nextRole)
			if err != nil {
				return p.poison(err)
			}
			p.header = header
			p.nextRole = ""
			p.contentBytes = p.contentBytes[:0]
			p.state = StateContent
			return nil
		case p.enc.tokChannel, p.enc.tokConstrain:
			// Metadata markers stay in the buffer as literal spellings; the
			// header parser splits on them.
			raw, _ := p.enc.tok.DecodeBytes([]uint32{token})
			p.headerBytes = append(p.headerBytes, raw...)
			return nil
		default:
			if p.enc.IsSpecialToken(token) {
				return p.poison(fmt.Errorf("%w: unexpected token %d in header", ErrInvalidHeader, token))
			}
			raw, err := p.enc.tok.DecodeBytes([]uint32{token})
			if err != nil {
				return p.poison(fmt.Errorf("%w: %v", ErrInvalidHeader, err))
			}
			p.headerBytes = append(p.headerBytes, raw...)
			return nil
		}

	case StateContent:
		switch {
		case p.enc.isTerminator(token):
			if err := p.finalizeMessage(); err != nil {
				return err
			}
			if token == p.enc.tokReturn {
				p.closed = true
			}
			p.state = StateExpectStart
			return nil
		case token == p.enc.tokStart:
			// Implicit end: the next message begins without a terminator.
			if err := p.finalizeMessage(); err != nil {
				return err
			}
			p.headerBytes = p.headerBytes[:0]
			p.state = StateHeader
			return nil
		case token == p.enc.tokEndOfText:
			if err := p.finalizeMessage(); err != nil {
				return err
			}
			p.closed = true
			p.state = StateExpectStart
			return nil
		default:
			raw, err := p.enc.tok.DecodeBytes([]uint32{token})
			if err != nil {
				return fmt.Errorf("%w: %v", ErrTokenizerMismatch, err)
			}
			p.contentBytes = append(p.contentBytes, raw...)
			// Surface everything newly decodable, including bytes withheld
			// while a multi-byte sequence was incomplete.
			if n := completeUTF8Len(p.contentBytes); n > p.deltaEmitted {
				p.lastDelta = string(p.contentBytes[p.deltaEmitted:n])
				p.deltaEmitted = n
			}
			return nil
		}
	}
	return fmt.Errorf("%w: parser in unknown state", ErrInvalidMessage)
}

// ProcessEOS signals the end of the stream. A message still accumulating
// content is finalized; a stream that stops mid-header is ErrUnexpectedEof.
func (p *StreamableParser) ProcessEOS() error {
	if p.err != nil {
		return p.err
	}
	switch p.state {
	case StateContent:
		if err := p.finalizeMessage(); err != nil {
			return err
		}
		p.state = StateExpectStart
		return nil
	case StateHeader:
		// A role-hinted parser that never saw a single token is an empty
		// stream, not a truncated header.
		if len(p.tokens) == 0 && len(p.headerBytes) == 0 {
			return nil
		}
		return fmt.Errorf("%w: stream ended inside a message header", ErrUnexpectedEof)
	default:
		return nil
	}
}

func (p *StreamableParser) poison(err error) error {
	p.err = err
	return err
}

func (p *StreamableParser) finalizeMessage() error {
	if !utf8.Valid(p.contentBytes) {
		return fmt.Errorf("%w: message content is not valid UTF-8", ErrTokenizerMismatch)
	}
	msg := chat.Message{
		Author:      p.header.author,
		Recipient:   p.header.recipient,
		Channel:     p.header.channel,
		ContentType: p.header.contentType,
		Content:     []chat.Content{chat.TextContent{Text: string(p.contentBytes)}},
	}
	p.messages = append(p.messages, msg)
	p.headerBytes = p.headerBytes[:0]
	p.contentBytes = p.contentBytes[:0]
	p.header = parsedHeader{}
	p.lastDelta = ""
	p.deltaEmitted = 0
	return nil
}

// Messages returns the fully parsed messages so far.
func (p *StreamableParser) Messages() []chat.Message {
	return append([]chat.Message{}, p.messages...)
}

// Tokens returns every token fed to the parser, in order.
func (p *StreamableParser) Tokens() []uint32 {
	return append([]uint32{}, p.tokens...)
}

// State returns the current state.
func (p *StreamableParser) State() StreamState { return p.state }

// Closed reports whether a stream-terminating token has been seen.
func (p *StreamableParser) Closed() bool { return p.closed }

// CurrentContent returns the content accumulated for the in-progress
// message. A trailing incomplete multi-byte UTF-8 sequence is withheld
// until its remaining bytes arrive.
func (p *StreamableParser) CurrentContent() string {
	if p.state != StateContent {
		return ""
	}
	return string(p.contentBytes[:completeUTF8Len(p.contentBytes)])
}

// CurrentContentBytes returns the raw content bytes accumulated so far,
// including any incomplete trailing sequence.
func (p *StreamableParser) CurrentContentBytes() []byte {
	if p.state != StateContent {
		return nil
	}
	return append([]byte{}, p.contentBytes...)
}

// CurrentRole returns the role of the in-progress message, or the default
// role hint when the header has not completed. Empty when unknown.
func (p *StreamableParser) CurrentRole() chat.Role {
	if p.state == StateContent {
		return p.header.author.Role
	}
	return p.nextRole
}

// CurrentChannel returns the channel of the in-progress message, if known.
func (p *StreamableParser) CurrentChannel() string {
	if p.state != StateContent {
		return ""
	}
	return p.header.channel
}

// CurrentRecipient returns the recipient of the in-progress message, if
// known.
func (p *StreamableParser) CurrentRecipient() string {
	if p.state != StateContent {
		return ""
	}
	return p.header.recipient
}

// CurrentContentType returns the content type of the in-progress message,
// if known.
func (p *StreamableParser) CurrentContentType() string {
	if p.state != StateContent {
		return ""
	}
	return p.header.contentType
}

// LastContentDelta returns the content fragment decoded by the most recent
// Process call, for streaming consumers. Empty while a multi-byte sequence
// is still incomplete.
func (p *StreamableParser) LastContentDelta() string { return p.lastDelta }

// Reset discards the current partial message and any stored error and
// returns the parser to ExpectStart. Fully parsed messages are kept.
func (p *StreamableParser) Reset() {
	p.state = StateExpectStart
	p.headerBytes = p.headerBytes[:0]
	p.contentBytes = p.contentBytes[:0]
	p.header = parsedHeader{}
	p.nextRole = ""
	p.lastDelta = ""
	p.deltaEmitted = 0
	p.err = nil
}

// ParseMessagesFromCompletionTokens parses completion tokens into messages
// in one shot. A non-empty role is the default for a stream that begins
// mid-message. The first fatal error is reported with the index of the
// offending token.
func (e *Encoding) ParseMessagesFromCompletionTokens(tokens []uint32, role chat.Role) ([]chat.Message, error) {
	p := NewStreamableParser(e, role)
	for i, token := range tokens {
		if err := p.Process(token); err != nil {
			return nil, fmt.Errorf("token %d: %w", i, err)
		}
	}
	if err := p.ProcessEOS(); err != nil {
		return nil, err
	}
	return p.messages, nil
}

// parseHeader interprets a decoded header string. The role hint wins when
// present; otherwise the role comes from the leading token, with an unknown
// leading token treated as a tool author name when routing metadata
// follows.
func (e *Encoding) parseHeader(header string, roleHint chat.Role) (parsedHeader, error) {
	var out parsedHeader

	// Channel: everything after <|channel|> up to whitespace or the next
	// marker.
	if idx := strings.Index(header, formatChannel); idx >= 0 {
		after := header[idx+len(formatChannel):]
		end := strings.IndexFunc(after, func(r rune) bool { return r == ' ' || r == '<' })
		if end < 0 {
			end = len(after)
		}
		if end == 0 {
			return out, fmt.Errorf("%w: channel marker with no channel value", ErrInvalidHeader)
		}
		out.channel = after[:end]
		header = header[:idx] + after[end:]
	}
	header = strings.TrimSpace(header)

	// The model may omit the space before <|constrain|>; force one so the
	// content type splits off as its own token.
	if strings.Contains(header, formatConstrain) {
		header = strings.TrimSpace(strings.ReplaceAll(header, formatConstrain, " "+formatConstrain))
	}

	parts := strings.Fields(header)

	role := roleHint
	name := ""
	if role == "" {
		if len(parts) == 0 {
			return out, fmt.Errorf("%w: header contains no role", ErrInvalidHeader)
		}
		first := parts[0]
		switch {
		case isKnownRole(first):
			role = chat.Role(first)
			parts = parts[1:]
		case strings.ContainsRune(first, ':') && isKnownRole(first[:strings.IndexByte(first, ':')]):
			role = chat.Role(first[:strings.IndexByte(first, ':')])
			name = first[strings.IndexByte(first, ':')+1:]
			parts = parts[1:]
		case len(parts) > 1 && !strings.HasPrefix(first, "to="):
			// An unknown leading token followed by routing metadata is a
			// tool responding under its own name.
			role = chat.RoleTool
			name = first
			parts = parts[1:]
		default:
			return out, fmt.Errorf("%w: unknown role %q", ErrInvalidHeader, first)
		}
	} else if len(parts) > 0 {
		// The hinted role may still be echoed in the header.
		first := parts[0]
		switch {
		case first == role.String():
			parts = parts[1:]
		case strings.HasPrefix(first, role.String()+":"):
			name = first[len(role.String())+1:]
			parts = parts[1:]
		case role == chat.RoleTool && !strings.HasPrefix(first, "to=") && !strings.HasPrefix(first, "<|"):
			name = first
			parts = parts[1:]
		}
	}

	if len(parts) > 0 {
		last := parts[len(parts)-1]
		rest := parts[:len(parts)-1]
		switch {
		case strings.HasPrefix(last, "to="):
			out.recipient = last[len("to="):]
			parts = rest
		case len(rest) == 0:
			// A single remaining token is a content type when it carries the
			// constrain marker, otherwise a standalone recipient.
			if strings.HasPrefix(last, formatConstrain) {
				out.contentType = strings.TrimPrefix(last, formatConstrain)
			} else {
				out.recipient = last
			}
			parts = rest
		default:
			out.contentType = strings.TrimPrefix(last, formatConstrain)
			parts = rest
			raw := parts[len(parts)-1]
			out.recipient = strings.TrimPrefix(raw, "to=")
			parts = parts[:len(parts)-1]
		}
	}
	if len(parts) > 0 {
		return out, fmt.Errorf("%w: unexpected header tokens %v", ErrInvalidHeader, parts)
	}

	out.author = chat.Author{Role: role, Name: name}
	return out, nil
}

func isKnownRole(s string) bool {
	_, err := chat.ParseRole(s)
	return err == nil
}

// completeUTF8Len returns the length of the longest prefix of b that does
// not end in an incomplete multi-byte UTF-8 sequence.
func completeUTF8Len(b []byte) int {
	n := len(b)
	for i := n - 1; i >= 0 && i >= n-utf8.UTFMax; i-- {
		c := b[i]
		if c < utf8.RuneSelf {
			break
		}
		if c >= 0xC0 { // leading byte
			var size int
			switch {
			case c >= 0xF0:
				size = 4
			case c >= 0xE0:
				size = 3
			default:
				size = 2
			}
			if n-i < size {
				return i
			}
			break
		}
	}
	return n
}
