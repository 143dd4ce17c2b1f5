package harmony

import "github.com/zacharytamas/harmony/internal/chat"

// The chat data model: pure value types the renderer reads and the parsers
// produce. Builders return copies; nothing here mutates in place.

// Author holds a message's role and optional name.
type Author = chat.Author

// NewAuthor creates a named author (for tool messages, the tool id).
func NewAuthor(role Role, name string) Author { return chat.NewAuthor(role, name) }

// Message is a single Harmony message.
type Message = chat.Message

// Conversation is an ordered list of messages.
type Conversation = chat.Conversation

// FromMessages builds a conversation.
func FromMessages(messages ...Message) Conversation { return chat.FromMessages(messages...) }

// FromRoleAndContent builds a single-content message with an unnamed author.
func FromRoleAndContent(role Role, content Content) Message {
	return chat.FromRoleAndContent(role, content)
}

// FromRoleAndText builds a plain text message with an unnamed author.
func FromRoleAndText(role Role, text string) Message {
	return chat.FromRoleAndText(role, text)
}

// FromAuthorAndContent builds a single-content message.
func FromAuthorAndContent(author Author, content Content) Message {
	return chat.FromAuthorAndContent(author, content)
}

// Content is one content item of a message: TextContent, SystemContent or
// DeveloperContent.
type Content = chat.Content

// TextContent is a plain text payload.
type TextContent = chat.TextContent

// Text builds a text content item.
func Text(text string) Content { return chat.TextContent{Text: text} }

// SystemContent carries system message metadata.
type SystemContent = chat.SystemContent

// NewSystemContent returns system content populated with the defaults.
func NewSystemContent() SystemContent { return chat.NewSystemContent() }

// DeveloperContent carries developer instructions and function tools.
type DeveloperContent = chat.DeveloperContent

// NewDeveloperContent returns empty developer content.
func NewDeveloperContent() DeveloperContent { return chat.NewDeveloperContent() }

// ReasoningEffort expresses the desired level of reasoning.
type ReasoningEffort = chat.ReasoningEffort

// Reasoning effort values.
const (
	ReasoningLow    = chat.ReasoningLow
	ReasoningMedium = chat.ReasoningMedium
	ReasoningHigh   = chat.ReasoningHigh
)

// ChannelConfig configures the valid channel set.
type ChannelConfig = chat.ChannelConfig

// RequireChannels builds a config that requires one of the given channels.
func RequireChannels(channels ...string) ChannelConfig { return chat.RequireChannels(channels...) }

// ToolDescription describes a single callable tool.
type ToolDescription = chat.ToolDescription

// NewToolDescription builds a tool description; parameters may be nil.
func NewToolDescription(name, description string, parameters []byte) ToolDescription {
	return chat.NewToolDescription(name, description, parameters)
}

// ToolNamespaceConfig groups tool declarations under a namespace.
type ToolNamespaceConfig = chat.ToolNamespaceConfig

// BrowserToolNamespace returns the built-in browser tool preset.
func BrowserToolNamespace() ToolNamespaceConfig { return chat.BrowserToolNamespace() }

// PythonToolNamespace returns the built-in python tool preset.
func PythonToolNamespace() ToolNamespaceConfig { return chat.PythonToolNamespace() }
