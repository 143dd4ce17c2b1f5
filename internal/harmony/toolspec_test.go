package harmony

import (
	"encoding/json"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/zacharytamas/harmony/internal/chat"
)

func functionsNamespace(tools ...chat.ToolDescription) map[string]chat.ToolNamespaceConfig {
	return map[string]chat.ToolNamespaceConfig{
		"functions": {Name: "functions", Tools: tools},
	}
}

func TestFormatToolsSectionFunctions(t *testing.T) {
	tools := functionsNamespace(
		chat.NewToolDescription("get_location", "Gets the location of the user.", nil),
		chat.NewToolDescription("get_current_weather", "Gets the current weather in the provided location.", json.RawMessage(`{
			"type": "object",
			"properties": {
				"location": {
					"type": "string",
					"description": "The city and state, e.g. San Francisco, CA"
				},
				"format": {
					"type": "string",
					"enum": ["celsius", "fahrenheit"],
					"default": "celsius"
				}
			},
			"required": ["location"]
		}`)),
	)

	expected := "# Tools\n\n" +
		"## functions\n\n" +
		"namespace functions {\n\n" +
		"// Gets the location of the user.\n" +
		"type get_location = () => any;\n\n" +
		"// Gets the current weather in the provided location.\n" +
		"type get_current_weather = (_: {\n" +
		"// The city and state, e.g. San Francisco, CA\n" +
		"location: string,\n" +
		"format?: \"celsius\" | \"fahrenheit\", // default: celsius\n" +
		"}) => any;\n\n" +
		"} // namespace functions"

	assert.Equal(t, expected, formatToolsSection(tools))
}

func TestFormatToolsSectionSchemaCorners(t *testing.T) {
	tests := []struct {
		name     string
		params   string
		expected string
	}{
		{
			name: "array items",
			params: `{
				"type": "object",
				"properties": {
					"locations": {"type": "array", "items": {"type": "string"}}
				},
				"required": ["locations"]
			}`,
			expected: "type probe = (_: {\nlocations: string[],\n}) => any;",
		},
		{
			name: "array without items",
			params: `{
				"type": "object",
				"properties": {"xs": {"type": "array"}}
			}`,
			expected: "type probe = (_: {\nxs?: Array<any>,\n}) => any;",
		},
		{
			name: "type union",
			params: `{
				"type": "object",
				"properties": {"id": {"type": ["number", "string"], "default": -1}}
			}`,
			expected: "type probe = (_: {\nid?: number | string, // default: -1\n}) => any;",
		},
		{
			name: "integer maps to number",
			params: `{
				"type": "object",
				"properties": {"n": {"type": "integer"}},
				"required": ["n"]
			}`,
			expected: "type probe = (_: {\nn: number,\n}) => any;",
		},
		{
			name: "nullable with quoted default",
			params: `{
				"type": "object",
				"properties": {
					"s": {"type": "string", "nullable": true, "description": "A nullable string", "default": "the default"}
				}
			}`,
			expected: "type probe = (_: {\n// A nullable string\ns?: string | null, // default: \"the default\"\n}) => any;",
		},
		{
			name: "title and examples",
			params: `{
				"type": "object",
				"properties": {
					"s": {"type": "string", "title": "STRING", "description": "A string", "examples": ["hello", "world"]}
				}
			}`,
			expected: "type probe = (_: {\n// STRING\n//\n// A string\n// Examples:\n// - \"hello\"\n// - \"world\"\ns?: string,\n}) => any;",
		},
		{
			name: "oneOf variants",
			params: `{
				"type": "object",
				"properties": {
					"v": {
						"oneOf": [
							{"type": "string", "default": "default_string_in_oneof"},
							{"type": "number", "description": "numbers can happen too"}
						],
						"description": "a oneof",
						"default": 20
					}
				}
			}`,
			expected: "type probe = (_: {\n// a oneof\n// default: 20\nv?:\n" +
				" | string // default: \"default_string_in_oneof\"\n" +
				" | number // numbers can happen too\n" +
				",\n}) => any;",
		},
		{
			name: "unknown type falls back to any",
			params: `{
				"type": "object",
				"properties": {"x": {"type": "blob"}}
			}`,
			expected: "type probe = (_: {\nx?: any,\n}) => any;",
		},
		{
			name: "boolean default",
			params: `{
				"type": "object",
				"properties": {"view_source": {"type": "boolean", "default": false}}
			}`,
			expected: "type probe = (_: {\nview_source?: boolean, // default: false\n}) => any;",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tools := functionsNamespace(chat.NewToolDescription("probe", "A probe.", json.RawMessage(tt.params)))
			out := formatToolsSection(tools)
			assert.Contains(t, out, tt.expected)
		})
	}
}

func TestFormatToolsSectionPreservesPropertyOrder(t *testing.T) {
	// Properties deliberately out of alphabetical order.
	tools := functionsNamespace(chat.NewToolDescription("probe", "A probe.", json.RawMessage(`{
		"type": "object",
		"properties": {
			"zulu": {"type": "string"},
			"alfa": {"type": "string"},
			"mike": {"type": "string"}
		}
	}`)))
	out := formatToolsSection(tools)
	assert.Contains(t, out, "zulu?: string,\nalfa?: string,\nmike?: string,")
}

func TestFormatToolsSectionNamespaceDescription(t *testing.T) {
	t.Run("comment lines when tools present", func(t *testing.T) {
		tools := map[string]chat.ToolNamespaceConfig{
			"demo": {
				Name:        "demo",
				Description: "First line.\nSecond line.",
				Tools:       []chat.ToolDescription{chat.NewToolDescription("noop", "Does nothing.", nil)},
			},
		}
		out := formatToolsSection(tools)
		assert.Contains(t, out, "## demo\n\n// First line.\n// Second line.\nnamespace demo {")
	})

	t.Run("plain text when namespace is empty", func(t *testing.T) {
		out := formatToolsSection(map[string]chat.ToolNamespaceConfig{
			"python": chat.PythonToolNamespace(),
		})
		assert.Contains(t, out, "## python\n\nUse this tool to execute Python code")
		assert.NotContains(t, out, "namespace python")
	})
}

func TestFormatToolsSectionBrowserPreset(t *testing.T) {
	out := formatToolsSection(map[string]chat.ToolNamespaceConfig{
		"browser": chat.BrowserToolNamespace(),
	})

	assert.Contains(t, out, "## browser\n\n// Tool for browsing.")
	assert.Contains(t, out, "namespace browser {")
	assert.Contains(t, out, "// Searches for information related to `query` and displays `topn` results.\n"+
		"type search = (_: {\nquery: string,\ntopn?: number, // default: 10\nsource?: string,\n}) => any;")
	assert.Contains(t, out, "id?: number | string, // default: -1")
	assert.Contains(t, out, "view_source?: boolean, // default: false")
	assert.Contains(t, out, "type find = (_: {\npattern: string,\ncursor?: number, // default: -1\n}) => any;")
	assert.Contains(t, out, "} // namespace browser")
}

func TestFormatToolsSectionNamespaceOrder(t *testing.T) {
	sys := chat.NewSystemContent().WithBrowserTool().WithPythonTool()
	out := formatToolsSection(sys.Tools)
	browserIdx := strings.Index(out, "## browser")
	pythonIdx := strings.Index(out, "## python")
	require.GreaterOrEqual(t, browserIdx, 0)
	require.GreaterOrEqual(t, pythonIdx, 0)
	assert.Less(t, browserIdx, pythonIdx)
}
