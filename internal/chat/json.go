package chat

import (
	"encoding/json"
	"fmt"
)

// Wire shapes for the conversation JSON format. Author is nested, optional
// message fields serialize as explicit nulls, and content items are
// discriminated by a "type" field ("text", "system_content",
// "developer_content"). On input, a bare string is accepted wherever a
// content list is expected.

type authorJSON struct {
	Role Role    `json:"role"`
	Name *string `json:"name"`
}

type messageJSON struct {
	Author      authorJSON        `json:"author"`
	Content     []json.RawMessage `json:"content"`
	Channel     *string           `json:"channel"`
	Recipient   *string           `json:"recipient"`
	ContentType *string           `json:"content_type"`
}

type contentEnvelope struct {
	Type string `json:"type"`
}

type textContentJSON struct {
	Type string `json:"type"`
	Text string `json:"text"`
}

type channelConfigJSON struct {
	ValidChannels   []string `json:"valid_channels"`
	ChannelRequired bool     `json:"channel_required"`
}

type toolDescriptionJSON struct {
	Name        string          `json:"name"`
	Description string          `json:"description"`
	Parameters  json.RawMessage `json:"parameters,omitempty"`
}

type toolNamespaceJSON struct {
	Name        string                `json:"name"`
	Description *string               `json:"description,omitempty"`
	Tools       []toolDescriptionJSON `json:"tools"`
}

type systemContentJSON struct {
	Type                  string                       `json:"type"`
	ModelIdentity         *string                      `json:"model_identity,omitempty"`
	ReasoningEffort       *ReasoningEffort             `json:"reasoning_effort,omitempty"`
	Tools                 map[string]toolNamespaceJSON `json:"tools,omitempty"`
	ConversationStartDate *string                      `json:"conversation_start_date,omitempty"`
	KnowledgeCutoff       *string                      `json:"knowledge_cutoff,omitempty"`
	ChannelConfig         *channelConfigJSON           `json:"channel_config,omitempty"`
}

type developerContentJSON struct {
	Type         string                       `json:"type"`
	Instructions *string                      `json:"instructions,omitempty"`
	Tools        map[string]toolNamespaceJSON `json:"tools,omitempty"`
}

func optString(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}

func fromOptString(p *string) string {
	if p == nil {
		return ""
	}
	return *p
}

func toolsToJSON(tools map[string]ToolNamespaceConfig) map[string]toolNamespaceJSON {
	if tools == nil {
		return nil
	}
	out := make(map[string]toolNamespaceJSON, len(tools))
	for key, ns := range tools {
		wire := toolNamespaceJSON{Name: ns.Name, Description: optString(ns.Description)}
		for _, tool := range ns.Tools {
			wire.Tools = append(wire.Tools, toolDescriptionJSON(tool))
		}
		out[key] = wire
	}
	return out
}

func toolsFromJSON(wire map[string]toolNamespaceJSON) map[string]ToolNamespaceConfig {
	if wire == nil {
		return nil
	}
	out := make(map[string]ToolNamespaceConfig, len(wire))
	for key, ns := range wire {
		cfg := ToolNamespaceConfig{Name: ns.Name, Description: fromOptString(ns.Description)}
		for _, tool := range ns.Tools {
			cfg.Tools = append(cfg.Tools, ToolDescription(tool))
		}
		out[key] = cfg
	}
	return out
}

func marshalContent(c Content) ([]byte, error) {
	switch v := c.(type) {
	case TextContent:
		return json.Marshal(textContentJSON{Type: "text", Text: v.Text})
	case SystemContent:
		wire := systemContentJSON{
			Type:                  "system_content",
			ModelIdentity:         v.ModelIdentity,
			ReasoningEffort:       v.ReasoningEffort,
			Tools:                 toolsToJSON(v.Tools),
			ConversationStartDate: v.ConversationStartDate,
			KnowledgeCutoff:       v.KnowledgeCutoff,
		}
		if v.ChannelConfig != nil {
			cc := channelConfigJSON(*v.ChannelConfig)
			wire.ChannelConfig = &cc
		}
		return json.Marshal(wire)
	case DeveloperContent:
		return json.Marshal(developerContentJSON{
			Type:         "developer_content",
			Instructions: v.Instructions,
			Tools:        toolsToJSON(v.Tools),
		})
	default:
		return nil, fmt.Errorf("unknown content variant %T", c)
	}
}

func unmarshalContent(raw json.RawMessage) (Content, error) {
	// A bare string is shorthand for a text content item.
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		return TextContent{Text: s}, nil
	}
	var env contentEnvelope
	if err := json.Unmarshal(raw, &env); err != nil {
		return nil, err
	}
	switch env.Type {
	case "text":
		var wire textContentJSON
		if err := json.Unmarshal(raw, &wire); err != nil {
			return nil, err
		}
		return TextContent{Text: wire.Text}, nil
	case "system_content":
		var wire systemContentJSON
		if err := json.Unmarshal(raw, &wire); err != nil {
			return nil, err
		}
		sys := SystemContent{
			ModelIdentity:         wire.ModelIdentity,
			ReasoningEffort:       wire.ReasoningEffort,
			Tools:                 toolsFromJSON(wire.Tools),
			ConversationStartDate: wire.ConversationStartDate,
			KnowledgeCutoff:       wire.KnowledgeCutoff,
		}
		if wire.ChannelConfig != nil {
			cc := ChannelConfig(*wire.ChannelConfig)
			sys.ChannelConfig = &cc
		}
		return sys, nil
	case "developer_content":
		var wire developerContentJSON
		if err := json.Unmarshal(raw, &wire); err != nil {
			return nil, err
		}
		return DeveloperContent{
			Instructions: wire.Instructions,
			Tools:        toolsFromJSON(wire.Tools),
		}, nil
	default:
		return nil, fmt.Errorf("unknown content type %q", env.Type)
	}
}

// MarshalJSON implements the conversation JSON message shape.
func (m Message) MarshalJSON() ([]byte, error) {
	wire := messageJSON{
		Author:      authorJSON{Role: m.Author.Role, Name: optString(m.Author.Name)},
		Channel:     optString(m.Channel),
		Recipient:   optString(m.Recipient),
		ContentType: optString(m.ContentType),
		Content:     make([]json.RawMessage, 0, len(m.Content)),
	}
	for _, c := range m.Content {
		raw, err := marshalContent(c)
		if err != nil {
			return nil, err
		}
		wire.Content = append(wire.Content, raw)
	}
	return json.Marshal(wire)
}

// UnmarshalJSON accepts the conversation JSON message shape. Content may be
// a list of typed items or a bare string.
func (m *Message) UnmarshalJSON(data []byte) error {
	var wire messageJSON
	if err := json.Unmarshal(data, &wire); err != nil {
		// Retry with string content.
		var alt struct {
			Author      authorJSON      `json:"author"`
			Content     json.RawMessage `json:"content"`
			Channel     *string         `json:"channel"`
			Recipient   *string         `json:"recipient"`
			ContentType *string         `json:"content_type"`
		}
		if err2 := json.Unmarshal(data, &alt); err2 != nil {
			return err
		}
		wire.Author = alt.Author
		wire.Channel = alt.Channel
		wire.Recipient = alt.Recipient
		wire.ContentType = alt.ContentType
		wire.Content = []json.RawMessage{alt.Content}
	}
	msg := Message{
		Author:      Author{Role: wire.Author.Role, Name: fromOptString(wire.Author.Name)},
		Channel:     fromOptString(wire.Channel),
		Recipient:   fromOptString(wire.Recipient),
		ContentType: fromOptString(wire.ContentType),
	}
	for _, raw := range wire.Content {
		c, err := unmarshalContent(raw)
		if err != nil {
			return err
		}
		msg.Content = append(msg.Content, c)
	}
	*m = msg
	return nil
}

// MarshalJSON implements the conversation JSON format.
func (c Conversation) MarshalJSON() ([]byte, error) {
	type wire struct {
		Messages []Message `json:"messages"`
	}
	msgs := c.Messages
	if msgs == nil {
		msgs = []Message{}
	}
	return json.Marshal(wire{Messages: msgs})
}

// UnmarshalJSON implements the conversation JSON format.
func (c *Conversation) UnmarshalJSON(data []byte) error {
	var wire struct {
		Messages []Message `json:"messages"`
	}
	if err := json.Unmarshal(data, &wire); err != nil {
		return err
	}
	c.Messages = wire.Messages
	return nil
}
