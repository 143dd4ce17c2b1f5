package harmony

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/zacharytamas/harmony/internal/chat"
)

func TestParseToolCall(t *testing.T) {
	enc := loadTestEncoding(t)

	text := `<|start|>assistant to=functions.lookup_weather<|channel|>commentary <|constrain|>json<|message|>{"location": "San Francisco"}<|call|>`
	tokens := encodeWithSpecials(enc, text)

	messages, err := enc.ParseMessagesFromCompletionTokens(tokens, "")
	require.NoError(t, err)
	require.Len(t, messages, 1)

	expected := chat.FromRoleAndText(chat.RoleAssistant, `{"location": "San Francisco"}`).
		WithRecipient("functions.lookup_weather").
		WithChannel("commentary").
		WithContentType("json")
	assert.Equal(t, expected, messages[0])
}

func TestParseHeaderVariants(t *testing.T) {
	enc := loadTestEncoding(t)

	tests := []struct {
		name     string
		text     string
		role     chat.Role
		expected chat.Message
	}{
		{
			name:     "channel before recipient, adjacent constrain",
			text:     `<|start|>assistant<|channel|>commentary to=functions.get_weather<|constrain|>json<|message|>{"latitude":48.8566}<|call|>`,
			expected: chat.FromRoleAndText(chat.RoleAssistant, `{"latitude":48.8566}`).WithChannel("commentary").WithRecipient("functions.get_weather").WithContentType("json"),
		},
		{
			name:     "recipient before channel, adjacent constrain",
			text:     `<|start|>assistant to=functions.get_weather<|channel|>commentary<|constrain|>json<|message|>{"location": "Tokyo"}<|end|>`,
			expected: chat.FromRoleAndText(chat.RoleAssistant, `{"location": "Tokyo"}`).WithChannel("commentary").WithRecipient("functions.get_weather").WithContentType("json"),
		},
		{
			name:     "bare content type after recipient",
			text:     `<|start|>assistant<|channel|>analysis to=lookup_weather code<|message|>print(1)<|call|>`,
			expected: chat.FromRoleAndText(chat.RoleAssistant, "print(1)").WithChannel("analysis").WithRecipient("lookup_weather").WithContentType("code"),
		},
		{
			name:     "tool response under bare tool name",
			text:     `<|start|>browser.search to=assistant<|channel|>commentary<|message|>{"result": "https://openai.com/"}<|end|>`,
			expected: chat.FromAuthorAndContent(chat.NewAuthor(chat.RoleTool, "browser.search"), chat.TextContent{Text: `{"result": "https://openai.com/"}`}).WithChannel("commentary").WithRecipient("assistant"),
		},
		{
			name:     "tool response with role prefix",
			text:     `<|start|>tool:functions.get_weather to=assistant<|channel|>commentary<|message|>{"temp": 20}<|end|>`,
			expected: chat.FromAuthorAndContent(chat.NewAuthor(chat.RoleTool, "functions.get_weather"), chat.TextContent{Text: `{"temp": 20}`}).WithChannel("commentary").WithRecipient("assistant"),
		},
		{
			name:     "named author",
			text:     `<|start|>user:alice<|message|>hi<|end|>`,
			expected: chat.FromAuthorAndContent(chat.NewAuthor(chat.RoleUser, "alice"), chat.TextContent{Text: "hi"}),
		},
		{
			name:     "role hint continues the header",
			text:     `<|channel|>analysis<|message|>Simple arithmetic.<|end|>`,
			role:     chat.RoleAssistant,
			expected: chat.FromRoleAndText(chat.RoleAssistant, "Simple arithmetic.").WithChannel("analysis"),
		},
		{
			name:     "user channel is preserved",
			text:     `<|start|>user<|channel|>final<|message|>hi<|end|>`,
			expected: chat.FromRoleAndText(chat.RoleUser, "hi").WithChannel("final"),
		},
		{
			name:     "content type without recipient",
			text:     `<|start|>assistant<|channel|>final <|constrain|>json<|message|>{"ok": true}<|end|>`,
			expected: chat.FromRoleAndText(chat.RoleAssistant, `{"ok": true}`).WithChannel("final").WithContentType("json"),
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tokens := encodeWithSpecials(enc, tt.text)
			messages, err := enc.ParseMessagesFromCompletionTokens(tokens, tt.role)
			require.NoError(t, err)
			require.Len(t, messages, 1)
			assert.Equal(t, tt.expected, messages[0])
		})
	}
}

func TestParseReasoningCompletion(t *testing.T) {
	enc := loadTestEncoding(t)

	text := `<|channel|>analysis<|message|>User asks a simple question.<|end|>` +
		`<|start|>assistant<|channel|>final<|message|>2 + 2 = 4.<|return|>`
	tokens := encodeWithSpecials(enc, text)

	messages, err := enc.ParseMessagesFromCompletionTokens(tokens, chat.RoleAssistant)
	require.NoError(t, err)
	expected := []chat.Message{
		chat.FromRoleAndText(chat.RoleAssistant, "User asks a simple question.").WithChannel("analysis"),
		chat.FromRoleAndText(chat.RoleAssistant, "2 + 2 = 4.").WithChannel("final"),
	}
	assert.Equal(t, expected, messages)
}

func TestParseImplicitEndOnStart(t *testing.T) {
	enc := loadTestEncoding(t)

	// The first message has no terminator; the next <|start|> closes it.
	text := `<|start|>assistant<|channel|>analysis<|message|>Thinking.` +
		`<|start|>assistant<|channel|>final<|message|>Done.<|return|>`
	tokens := encodeWithSpecials(enc, text)

	messages, err := enc.ParseMessagesFromCompletionTokens(tokens, "")
	require.NoError(t, err)
	require.Len(t, messages, 2)
	assert.Equal(t, []chat.Content{chat.TextContent{Text: "Thinking."}}, messages[0].Content)
	assert.Equal(t, "final", messages[1].Channel)
}

func TestParseTrailingContentAtEOS(t *testing.T) {
	enc := loadTestEncoding(t)

	tokens := encodeWithSpecials(enc, "<|start|>assistant<|channel|>final<|message|>Unterminated")
	messages, err := enc.ParseMessagesFromCompletionTokens(tokens, "")
	require.NoError(t, err)
	require.Len(t, messages, 1)
	assert.Equal(t, []chat.Content{chat.TextContent{Text: "Unterminated"}}, messages[0].Content)
}

func TestParseUnexpectedEOFInHeader(t *testing.T) {
	enc := loadTestEncoding(t)

	tokens := encodeWithSpecials(enc, "<|start|>assistant")
	_, err := enc.ParseMessagesFromCompletionTokens(tokens, "")
	assert.ErrorIs(t, err, ErrUnexpectedEof)
}

func TestParseErrorReportsTokenIndex(t *testing.T) {
	enc := loadTestEncoding(t)

	tokens := encodeWithSpecials(enc, "<|start|>frobnicator<|message|>x<|end|>")
	_, err := enc.ParseMessagesFromCompletionTokens(tokens, "")
	require.ErrorIs(t, err, ErrInvalidHeader)
	assert.Contains(t, err.Error(), "token ")
}

func TestStreamableParserStates(t *testing.T) {
	enc := loadTestEncoding(t)

	text := `<|start|>assistant to=functions.lookup_weather<|channel|>commentary <|constrain|>json<|message|>{"location": "San Francisco"}<|call|>`
	tokens := encodeWithSpecials(enc, text)

	p := NewStreamableParser(enc, "")
	for _, tok := range tokens {
		require.NoError(t, p.Process(tok))
		state := p.State()
		assert.True(t,
			state == StateExpectStart || state == StateHeader || state == StateContent,
			"unexpected state %v", state)
	}
	assert.Len(t, p.Messages(), 1)
	assert.Equal(t, tokens, p.Tokens())
	assert.Equal(t, StateExpectStart, p.State())
}

func TestStreamableParserAccessors(t *testing.T) {
	enc := loadTestEncoding(t)

	header := encodeWithSpecials(enc, `<|start|>assistant to=functions.f<|channel|>commentary <|constrain|>json<|message|>`)
	body := encodeWithSpecials(enc, `{"a": 1}`)

	p := NewStreamableParser(enc, "")
	assert.Equal(t, chat.Role(""), p.CurrentRole())

	for _, tok := range header {
		require.NoError(t, p.Process(tok))
	}
	assert.Equal(t, StateContent, p.State())
	assert.Equal(t, chat.RoleAssistant, p.CurrentRole())
	assert.Equal(t, "commentary", p.CurrentChannel())
	assert.Equal(t, "functions.f", p.CurrentRecipient())
	assert.Equal(t, "json", p.CurrentContentType())
	assert.Equal(t, "", p.CurrentContent())

	var streamed strings.Builder
	for _, tok := range body {
		require.NoError(t, p.Process(tok))
		streamed.WriteString(p.LastContentDelta())
	}
	assert.Equal(t, `{"a": 1}`, p.CurrentContent())
	assert.Equal(t, `{"a": 1}`, streamed.String())
	assert.Equal(t, []byte(`{"a": 1}`), p.CurrentContentBytes())
}

func TestStreamableParserUTF8AcrossTokens(t *testing.T) {
	enc := loadTestEncoding(t)

	// Multi-byte codepoints whose encodings may split mid-rune. After every
	// token, CurrentContent must be a valid UTF-8 prefix of the final text.
	const text = "héllo 🅰🅱 世界"
	tokens := encodeWithSpecials(enc, "<|start|>assistant<|channel|>final<|message|>")
	body := enc.Encode(text, nil)

	p := NewStreamableParser(enc, "")
	for _, tok := range tokens {
		require.NoError(t, p.Process(tok))
	}
	for _, tok := range body {
		require.NoError(t, p.Process(tok))
		current := p.CurrentContent()
		assert.True(t, strings.HasPrefix(text, current), "content %q is not a prefix of %q", current, text)
	}
	assert.Equal(t, text, p.CurrentContent())

	endID, ok := findFormatToken(enc, formatEnd)
	require.True(t, ok)
	require.NoError(t, p.Process(endID))
	messages := p.Messages()
	require.Len(t, messages, 1)
	assert.Equal(t, []chat.Content{chat.TextContent{Text: text}}, messages[0].Content)
}

func TestStreamableParserPoisonsOnInvalidHeader(t *testing.T) {
	enc := loadTestEncoding(t)

	tokens := encodeWithSpecials(enc, "<|start|>frobnicator<|message|>")
	p := NewStreamableParser(enc, "")

	var firstErr error
	for _, tok := range tokens {
		if err := p.Process(tok); err != nil {
			firstErr = err
			break
		}
	}
	require.ErrorIs(t, firstErr, ErrInvalidHeader)

	// Every further call re-returns the stored error.
	for _, tok := range encodeWithSpecials(enc, "more") {
		err := p.Process(tok)
		assert.Equal(t, firstErr, err)
	}

	// Reset clears the poison and the partial message.
	p.Reset()
	assert.Equal(t, StateExpectStart, p.State())
	for _, tok := range encodeWithSpecials(enc, "<|start|>assistant<|channel|>final<|message|>ok<|end|>") {
		require.NoError(t, p.Process(tok))
	}
	assert.Len(t, p.Messages(), 1)
}

func TestStreamableParserClosesOnReturn(t *testing.T) {
	enc := loadTestEncoding(t)

	p := NewStreamableParser(enc, "")
	for _, tok := range encodeWithSpecials(enc, "<|start|>assistant<|channel|>final<|message|>Done.<|return|>") {
		require.NoError(t, p.Process(tok))
	}
	assert.True(t, p.Closed())
	assert.Len(t, p.Messages(), 1)
}

func TestStreamableParserEndOfTextWhileIdle(t *testing.T) {
	enc := loadTestEncoding(t)

	p := NewStreamableParser(enc, "")
	for _, tok := range encodeWithSpecials(enc, "<|start|>assistant<|channel|>final<|message|>Done.<|end|><|endoftext|>") {
		require.NoError(t, p.Process(tok))
	}
	assert.True(t, p.Closed())
	assert.Equal(t, StateExpectStart, p.State())
	assert.Len(t, p.Messages(), 1)
}

func TestParseRoundTripConversation(t *testing.T) {
	enc := loadTestEncoding(t)

	convo := chat.FromMessages(
		chat.FromRoleAndText(chat.RoleUser, "What is the weather in SF?"),
		chat.FromRoleAndText(chat.RoleAssistant, "Need the lookup tool.").WithChannel("analysis"),
		chat.FromRoleAndText(chat.RoleAssistant, `{"location": "San Francisco"}`).
			WithChannel("commentary").
			WithRecipient("functions.lookup_weather").
			WithContentType("json"),
		chat.FromAuthorAndContent(
			chat.NewAuthor(chat.RoleTool, "functions.lookup_weather"),
			chat.TextContent{Text: `{"temperature": 20}`},
		).WithChannel("commentary").WithRecipient("assistant"),
		chat.FromRoleAndText(chat.RoleAssistant, "It is 20°C and sunny.").WithChannel("final"),
	)

	// Keep analysis so the parse compares against the full conversation.
	cfg := RenderConversationConfig{AutoDropAnalysis: false}
	tokens, err := enc.RenderConversationForTraining(convo, &cfg)
	require.NoError(t, err)
	parsed, err := enc.ParseMessagesFromCompletionTokens(tokens, "")
	require.NoError(t, err)
	assert.Equal(t, convo.Messages, parsed)
}

func TestCompleteUTF8Len(t *testing.T) {
	tests := []struct {
		name     string
		input    []byte
		expected int
	}{
		{name: "empty", input: nil, expected: 0},
		{name: "ascii", input: []byte("abc"), expected: 3},
		{name: "complete two byte", input: []byte{0xC3, 0xA9}, expected: 2},
		{name: "dangling lead byte", input: []byte{'a', 0xC3}, expected: 1},
		{name: "three byte missing one", input: []byte{'a', 0xE4, 0xB8}, expected: 1},
		{name: "four byte missing two", input: []byte{0xF0, 0x9F}, expected: 0},
		{name: "complete four byte", input: []byte{0xF0, 0x9F, 0x85, 0xB0}, expected: 4},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, completeUTF8Len(tt.input))
		})
	}
}
