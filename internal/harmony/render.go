package harmony

import (
	"fmt"
	"strings"

	"github.com/zacharytamas/harmony/internal/chat"
)

// RenderConversationConfig controls conversation rendering.
type RenderConversationConfig struct {
	// AutoDropAnalysis omits analysis-channel messages from turns that
	// completed before the first final answer, keeping chain-of-thought
	// visible only while a tool loop is still in progress.
	AutoDropAnalysis bool
}

// DefaultRenderConversationConfig returns the default configuration
// (analysis dropping enabled).
func DefaultRenderConversationConfig() RenderConversationConfig {
	return RenderConversationConfig{AutoDropAnalysis: true}
}

// renderOptions carries conversation-level facts into message rendering.
type renderOptions struct {
	conversationHasFunctionTools bool
}

// Render encodes a single message into tokens.
func (e *Encoding) Render(msg chat.Message) ([]uint32, error) {
	var out []uint32
	if err := e.renderMessageInto(msg, renderOptions{}, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// RenderConversation encodes a conversation into tokens. A nil config means
// the default configuration.
func (e *Encoding) RenderConversation(conv chat.Conversation, cfg *RenderConversationConfig) ([]uint32, error) {
	autoDrop := true
	if cfg != nil {
		autoDrop = cfg.AutoDropAnalysis
	}

	opts := renderOptions{conversationHasFunctionTools: hasFunctionTools(conv)}
	shouldDrop := autoDrop && lastAssistantIsFinal(conv)
	firstFinal := firstFinalIndex(conv)

	out := []uint32{}
	for i, msg := range conv.Messages {
		if shouldDrop && firstFinal >= 0 && i < firstFinal && msg.Channel == "analysis" {
			continue
		}
		if err := e.renderMessageInto(msg, opts, &out); err != nil {
			return nil, err
		}
	}
	return out, nil
}

// RenderConversationForCompletion encodes a conversation and appends
// <|start|> plus the next turn's role, leaving the stream positioned for the
// model to complete the header.
func (e *Encoding) RenderConversationForCompletion(conv chat.Conversation, next chat.Role, cfg *RenderConversationConfig) ([]uint32, error) {
	out, err := e.RenderConversation(conv, cfg)
	if err != nil {
		return nil, err
	}
	out = append(out, e.tokStart)
	out = append(out, e.tok.EncodeOrdinary(next.String())...)
	return out, nil
}

// RenderConversationForTraining encodes a conversation for loss computation.
// When the conversation ends with a final assistant answer, the trailing
// <|end|> is replaced with <|return|> so the target matches what sampling
// would produce.
func (e *Encoding) RenderConversationForTraining(conv chat.Conversation, cfg *RenderConversationConfig) ([]uint32, error) {
	out, err := e.RenderConversation(conv, cfg)
	if err != nil {
		return nil, err
	}
	if n := len(conv.Messages); n > 0 && len(out) > 0 {
		last := conv.Messages[n-1]
		if last.Author.Role == chat.RoleAssistant && last.Channel == "final" {
			out[len(out)-1] = e.tokReturn
		}
	}
	return out, nil
}

func (e *Encoding) renderMessageInto(msg chat.Message, opts renderOptions, out *[]uint32) error {
	start := len(*out)
	*out = append(*out, e.tokStart)

	if msg.Author.Role == "" {
		return fmt.Errorf("%w: message has no role", ErrInvalidMessage)
	}
	if msg.Author.Role == chat.RoleTool && msg.Author.Name == "" {
		return fmt.Errorf("%w: tool messages must have a name", ErrInvalidMessage)
	}

	header := msg.Author.Role.String()
	if msg.Author.Name != "" {
		header += ":" + msg.Author.Name
	}
	if needsRecipient(msg) {
		header += " to=" + msg.Recipient
	}
	e.renderText(header, out)

	if msg.Channel != "" {
		*out = append(*out, e.tokChannel)
		e.renderText(msg.Channel, out)
	}

	if msg.ContentType != "" {
		// Callers may embed the marker themselves; either way it is emitted
		// as the single reserved token, never as spelled-out bytes.
		contentType := strings.TrimPrefix(msg.ContentType, formatConstrain)
		e.renderText(" ", out)
		*out = append(*out, e.tokConstrain)
		if contentType != "" {
			e.renderText(contentType, out)
		}
	}

	*out = append(*out, e.tokMessage)

	for _, content := range msg.Content {
		switch c := content.(type) {
		case chat.TextContent:
			e.renderText(c.Text, out)
		case chat.SystemContent:
			if msg.Author.Role != chat.RoleSystem {
				return fmt.Errorf("%w: system content in %s message", ErrInvalidMessage, msg.Author.Role)
			}
			e.renderText(formatSystemContent(c, opts), out)
		case chat.DeveloperContent:
			if msg.Author.Role != chat.RoleDeveloper {
				return fmt.Errorf("%w: developer content in %s message", ErrInvalidMessage, msg.Author.Role)
			}
			e.renderText(formatDeveloperContent(c), out)
		default:
			return fmt.Errorf("%w: unknown content variant %T", ErrInvalidMessage, content)
		}
	}

	if msg.Author.Role == chat.RoleAssistant && needsRecipient(msg) {
		*out = append(*out, e.tokCall)
	} else {
		*out = append(*out, e.tokEnd)
	}

	if n := len(*out) - start; n > e.maxMessageTokens {
		return fmt.Errorf("%w: %d tokens (limit %d)", ErrMessageTooLong, n, e.maxMessageTokens)
	}
	return nil
}

// renderText appends the ordinary-token encoding of text. Reserved spellings
// inside payload text stay inert bytes.
func (e *Encoding) renderText(text string, out *[]uint32) {
	*out = append(*out, e.tok.EncodeOrdinary(text)...)
}

// needsRecipient reports whether the recipient is set to something other
// than the implicit "all".
func needsRecipient(msg chat.Message) bool {
	return msg.Recipient != "" && msg.Recipient != "all"
}

// hasFunctionTools reports whether any developer message declares a
// non-empty "functions" namespace.
func hasFunctionTools(conv chat.Conversation) bool {
	for _, msg := range conv.Messages {
		for _, content := range msg.Content {
			dev, ok := content.(chat.DeveloperContent)
			if !ok {
				continue
			}
			if ns, ok := dev.Tools["functions"]; ok && len(ns.Tools) > 0 {
				return true
			}
		}
	}
	return false
}

// lastAssistantIsFinal reports whether the most recent assistant message in
// the conversation went to the final channel.
func lastAssistantIsFinal(conv chat.Conversation) bool {
	for i := len(conv.Messages) - 1; i >= 0; i-- {
		if conv.Messages[i].Author.Role == chat.RoleAssistant {
			return conv.Messages[i].Channel == "final"
		}
	}
	return false
}

// firstFinalIndex returns the index of the first final-channel message, or
// -1 when there is none.
func firstFinalIndex(conv chat.Conversation) int {
	for i, msg := range conv.Messages {
		if msg.Channel == "final" {
			return i
		}
	}
	return -1
}

// formatSystemContent lays out the system message body: the identity and
// date block, the reasoning line, the tools block and the channel stanza,
// separated by blank lines.
func formatSystemContent(sys chat.SystemContent, opts renderOptions) string {
	var sections []string

	var top []string
	if sys.ModelIdentity != nil {
		top = append(top, *sys.ModelIdentity)
	}
	if sys.KnowledgeCutoff != nil {
		top = append(top, "Knowledge cutoff: "+*sys.KnowledgeCutoff)
	}
	if sys.ConversationStartDate != nil {
		top = append(top, "Current date: "+*sys.ConversationStartDate)
	}
	if len(top) > 0 {
		sections = append(sections, strings.Join(top, "\n"))
	}

	if sys.ReasoningEffort != nil {
		sections = append(sections, "Reasoning: "+string(*sys.ReasoningEffort))
	}

	if len(sys.Tools) > 0 {
		sections = append(sections, formatToolsSection(sys.Tools))
	}

	if sys.ChannelConfig != nil && len(sys.ChannelConfig.ValidChannels) > 0 {
		var sb strings.Builder
		sb.WriteString("# Valid channels: ")
		sb.WriteString(strings.Join(sys.ChannelConfig.ValidChannels, ", "))
		sb.WriteString(".")
		if sys.ChannelConfig.ChannelRequired {
			sb.WriteString(" Channel must be included for every message.")
		}
		if opts.conversationHasFunctionTools {
			sb.WriteString("\nCalls to these tools must go to the commentary channel: 'functions'.")
		}
		sections = append(sections, sb.String())
	}

	return strings.Join(sections, "\n\n")
}

// formatDeveloperContent lays out the developer message body: instructions
// followed by the tools block.
func formatDeveloperContent(dev chat.DeveloperContent) string {
	var sections []string
	if dev.Instructions != nil {
		sections = append(sections, "# Instructions", *dev.Instructions)
	}
	if len(dev.Tools) > 0 {
		sections = append(sections, formatToolsSection(dev.Tools))
	}
	return strings.Join(sections, "\n\n")
}
