package chat

import "fmt"

// Role identifies the author class of a message (user, assistant, system,
// developer, tool).
type Role string

// Well-known roles of the Harmony prompt format.
const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
	RoleSystem    Role = "system"
	RoleDeveloper Role = "developer"
	RoleTool      Role = "tool"
)

// ParseRole converts a header role string into a Role.
func ParseRole(s string) (Role, error) {
	switch Role(s) {
	case RoleUser, RoleAssistant, RoleSystem, RoleDeveloper, RoleTool:
		return Role(s), nil
	}
	return "", fmt.Errorf("unknown role %q", s)
}

// String returns the lowercased role name as it appears in message headers.
func (r Role) String() string { return string(r) }

// Author holds the message author role and an optional name. For tool
// messages the name carries the tool identifier (e.g. "functions.get_weather").
type Author struct {
	Role Role
	Name string
}

// NewAuthor creates a named author.
func NewAuthor(role Role, name string) Author {
	return Author{Role: role, Name: name}
}

// Message is a single Harmony message: author, optional routing metadata and
// one or more content items.
//
// Recipient names the intended target of the message; tool calls set it to
// the tool name (e.g. "functions.get_weather"). The value "all" is the
// implicit default and is never rendered. Channel selects the audience of an
// assistant message ("analysis", "commentary", "final"). ContentType is
// typically only produced by the model (e.g. "json" on constrained tool
// calls). Empty strings mean unset throughout.
type Message struct {
	Author      Author
	Recipient   string
	Content     []Content
	Channel     string
	ContentType string
}

// FromRoleAndContent builds a message with an unnamed author.
func FromRoleAndContent(role Role, content Content) Message {
	return FromAuthorAndContent(Author{Role: role}, content)
}

// FromRoleAndText builds a plain text message with an unnamed author.
func FromRoleAndText(role Role, text string) Message {
	return FromRoleAndContent(role, TextContent{Text: text})
}

// FromAuthorAndContent builds a message with a single content item.
func FromAuthorAndContent(author Author, content Content) Message {
	return Message{Author: author, Content: []Content{content}}
}

// AddContent returns a copy of the message with an extra content item.
func (m Message) AddContent(content Content) Message {
	m.Content = append(append([]Content{}, m.Content...), content)
	return m
}

// WithChannel returns a copy of the message with the channel set.
func (m Message) WithChannel(channel string) Message {
	m.Channel = channel
	return m
}

// WithRecipient returns a copy of the message with the recipient set.
func (m Message) WithRecipient(recipient string) Message {
	m.Recipient = recipient
	return m
}

// WithContentType returns a copy of the message with the content type set.
func (m Message) WithContentType(contentType string) Message {
	m.ContentType = contentType
	return m
}

// Conversation is an ordered list of messages. Insertion order is
// significant; the renderer emits messages in order.
type Conversation struct {
	Messages []Message
}

// FromMessages builds a conversation from messages, copying the slice.
func FromMessages(messages ...Message) Conversation {
	return Conversation{Messages: append([]Message{}, messages...)}
}
