package chat

import "encoding/json"

// Content is a single content item within a message. The set of variants is
// closed: TextContent, SystemContent and DeveloperContent.
type Content interface {
	contentKind() string
}

// TextContent is a plain text payload.
type TextContent struct {
	Text string
}

func (TextContent) contentKind() string { return "text" }

// ReasoningEffort expresses the desired level of reasoning for the model.
type ReasoningEffort string

// Reasoning effort values.
const (
	ReasoningLow    ReasoningEffort = "low"
	ReasoningMedium ReasoningEffort = "medium"
	ReasoningHigh   ReasoningEffort = "high"
)

// ChannelConfig configures the channels the model may write to and whether a
// channel tag is mandatory on every message.
type ChannelConfig struct {
	ValidChannels   []string
	ChannelRequired bool
}

// RequireChannels builds a config that requires one of the given channels on
// every message.
func RequireChannels(channels ...string) ChannelConfig {
	return ChannelConfig{
		ValidChannels:   append([]string{}, channels...),
		ChannelRequired: true,
	}
}

// ToolDescription describes a single callable tool. Parameters is an
// untyped JSON-Schema-like object; nil means the tool takes no arguments.
type ToolDescription struct {
	Name        string
	Description string
	Parameters  json.RawMessage
}

// NewToolDescription builds a tool description.
func NewToolDescription(name, description string, parameters json.RawMessage) ToolDescription {
	return ToolDescription{Name: name, Description: description, Parameters: parameters}
}

// ToolNamespaceConfig groups tool declarations under a namespace (e.g.
// "functions", "browser", "python").
type ToolNamespaceConfig struct {
	Name        string
	Description string
	Tools       []ToolDescription
}

// SystemContent carries the system message metadata: model identity, dates,
// reasoning effort, channel configuration and system-attached tools.
//
// Optional string fields use pointers so that "unset" (not rendered) is
// distinguishable from an explicit empty value.
type SystemContent struct {
	ModelIdentity         *string
	ReasoningEffort       *ReasoningEffort
	Tools                 map[string]ToolNamespaceConfig
	ConversationStartDate *string
	KnowledgeCutoff       *string
	ChannelConfig         *ChannelConfig
}

func (SystemContent) contentKind() string { return "system_content" }

// NewSystemContent returns system content populated with the defaults:
// the ChatGPT model identity, knowledge cutoff 2024-06, medium reasoning
// effort and the required analysis/commentary/final channel set.
func NewSystemContent() SystemContent {
	identity := "You are ChatGPT, a large language model trained by OpenAI."
	cutoff := "2024-06"
	effort := ReasoningMedium
	channels := RequireChannels("analysis", "commentary", "final")
	return SystemContent{
		ModelIdentity:   &identity,
		KnowledgeCutoff: &cutoff,
		ReasoningEffort: &effort,
		ChannelConfig:   &channels,
	}
}

// WithModelIdentity returns a copy with the model identity line set.
func (s SystemContent) WithModelIdentity(identity string) SystemContent {
	s.ModelIdentity = &identity
	return s
}

// WithReasoningEffort returns a copy with the reasoning effort set.
func (s SystemContent) WithReasoningEffort(effort ReasoningEffort) SystemContent {
	s.ReasoningEffort = &effort
	return s
}

// WithConversationStartDate returns a copy with the conversation date set.
// The value should be an ISO date for portability.
func (s SystemContent) WithConversationStartDate(date string) SystemContent {
	s.ConversationStartDate = &date
	return s
}

// WithKnowledgeCutoff returns a copy with the knowledge cutoff set.
func (s SystemContent) WithKnowledgeCutoff(cutoff string) SystemContent {
	s.KnowledgeCutoff = &cutoff
	return s
}

// WithChannelConfig returns a copy with the channel configuration set.
func (s SystemContent) WithChannelConfig(cfg ChannelConfig) SystemContent {
	s.ChannelConfig = &cfg
	return s
}

// WithRequiredChannels returns a copy requiring the given channels.
func (s SystemContent) WithRequiredChannels(channels ...string) SystemContent {
	cfg := RequireChannels(channels...)
	s.ChannelConfig = &cfg
	return s
}

// WithTools returns a copy with the namespace added to the system tools.
func (s SystemContent) WithTools(ns ToolNamespaceConfig) SystemContent {
	tools := make(map[string]ToolNamespaceConfig, len(s.Tools)+1)
	for k, v := range s.Tools {
		tools[k] = v
	}
	tools[ns.Name] = ns
	s.Tools = tools
	return s
}

// WithBrowserTool returns a copy with the built-in browser namespace.
func (s SystemContent) WithBrowserTool() SystemContent {
	return s.WithTools(BrowserToolNamespace())
}

// WithPythonTool returns a copy with the built-in python namespace.
func (s SystemContent) WithPythonTool() SystemContent {
	return s.WithTools(PythonToolNamespace())
}

// DeveloperContent carries developer instructions and function tool
// declarations.
type DeveloperContent struct {
	Instructions *string
	Tools        map[string]ToolNamespaceConfig
}

func (DeveloperContent) contentKind() string { return "developer_content" }

// NewDeveloperContent returns empty developer content.
func NewDeveloperContent() DeveloperContent { return DeveloperContent{} }

// WithInstructions returns a copy with the instructions set.
func (d DeveloperContent) WithInstructions(instructions string) DeveloperContent {
	d.Instructions = &instructions
	return d
}

// WithTools returns a copy with the namespace added to the developer tools.
func (d DeveloperContent) WithTools(ns ToolNamespaceConfig) DeveloperContent {
	tools := make(map[string]ToolNamespaceConfig, len(d.Tools)+1)
	for k, v := range d.Tools {
		tools[k] = v
	}
	tools[ns.Name] = ns
	d.Tools = tools
	return d
}

// WithFunctionTools returns a copy declaring the given tools under the
// "functions" namespace.
func (d DeveloperContent) WithFunctionTools(tools ...ToolDescription) DeveloperContent {
	return d.WithTools(ToolNamespaceConfig{
		Name:  "functions",
		Tools: append([]ToolDescription{}, tools...),
	})
}
