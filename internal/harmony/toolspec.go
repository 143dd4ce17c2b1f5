package harmony

import (
	"encoding/json"
	"sort"
	"strings"

	"github.com/zacharytamas/harmony/internal/chat"
)

// The tool-syntax emitter renders tool namespaces as TypeScript-like
// declaration blocks for system and developer prompts. JSON schemas are
// walked through an order-preserving representation so properties and enum
// values appear exactly as declared.

type schemaKind int

const (
	kindNull schemaKind = iota
	kindBool
	kindNumber
	kindString
	kindArray
	kindObject
)

type schemaField struct {
	key string
	val schemaNode
}

type schemaNode struct {
	kind    schemaKind
	str     string
	num     string // raw numeric literal
	boolean bool
	elems   []schemaNode
	fields  []schemaField
}

func parseSchema(raw json.RawMessage) (schemaNode, error) {
	dec := json.NewDecoder(strings.NewReader(string(raw)))
	dec.UseNumber()
	return parseSchemaValue(dec)
}

func parseSchemaValue(dec *json.Decoder) (schemaNode, error) {
	tok, err := dec.Token()
	if err != nil {
		return schemaNode{}, err
	}
	switch v := tok.(type) {
	case json.Delim:
		switch v {
		case '{':
			node := schemaNode{kind: kindObject}
			for dec.More() {
				keyTok, err := dec.Token()
				if err != nil {
					return schemaNode{}, err
				}
				key, _ := keyTok.(string)
				val, err := parseSchemaValue(dec)
				if err != nil {
					return schemaNode{}, err
				}
				node.fields = append(node.fields, schemaField{key: key, val: val})
			}
			_, err = dec.Token() // consume '}'
			return node, err
		case '[':
			node := schemaNode{kind: kindArray}
			for dec.More() {
				elem, err := parseSchemaValue(dec)
				if err != nil {
					return schemaNode{}, err
				}
				node.elems = append(node.elems, elem)
			}
			_, err = dec.Token() // consume ']'
			return node, err
		}
		return schemaNode{}, nil
	case string:
		return schemaNode{kind: kindString, str: v}, nil
	case json.Number:
		return schemaNode{kind: kindNumber, num: v.String()}, nil
	case bool:
		return schemaNode{kind: kindBool, boolean: v}, nil
	default: // nil
		return schemaNode{kind: kindNull}, nil
	}
}

func (n schemaNode) field(key string) (schemaNode, bool) {
	if n.kind != kindObject {
		return schemaNode{}, false
	}
	for _, f := range n.fields {
		if f.key == key {
			return f.val, true
		}
	}
	return schemaNode{}, false
}

func (n schemaNode) stringField(key string) (string, bool) {
	v, ok := n.field(key)
	if !ok || v.kind != kindString {
		return "", false
	}
	return v.str, true
}

func (n schemaNode) boolField(key string) bool {
	v, ok := n.field(key)
	return ok && v.kind == kindBool && v.boolean
}

// literal reconstructs the compact JSON spelling of a node, for default
// value comments.
func (n schemaNode) literal() string {
	switch n.kind {
	case kindNull:
		return "null"
	case kindBool:
		if n.boolean {
			return "true"
		}
		return "false"
	case kindNumber:
		return n.num
	case kindString:
		quoted, _ := json.Marshal(n.str)
		return string(quoted)
	case kindArray:
		parts := make([]string, len(n.elems))
		for i, e := range n.elems {
			parts[i] = e.literal()
		}
		return "[" + strings.Join(parts, ",") + "]"
	default:
		parts := make([]string, len(n.fields))
		for i, f := range n.fields {
			key, _ := json.Marshal(f.key)
			parts[i] = string(key) + ":" + f.val.literal()
		}
		return "{" + strings.Join(parts, ",") + "}"
	}
}

func (n schemaNode) isEnum() bool {
	enum, ok := n.field("enum")
	return ok && enum.kind == kindArray && len(enum.elems) > 0
}

// defaultComment formats a default value for a trailing comment: plain
// strings are quoted, enum members stay bare.
func defaultComment(owner, def schemaNode) string {
	if def.kind == kindString && !owner.isEnum() {
		quoted, _ := json.Marshal(def.str)
		return string(quoted)
	}
	if def.kind == kindString {
		return def.str
	}
	return def.literal()
}

// formatToolsSection renders the "# Tools" block for the given namespaces,
// in namespace name order.
func formatToolsSection(tools map[string]chat.ToolNamespaceConfig) string {
	names := make([]string, 0, len(tools))
	for name := range tools {
		names = append(names, name)
	}
	sort.Strings(names)

	sections := []string{"# Tools"}
	for _, name := range names {
		sections = append(sections, formatNamespace(tools[name]))
	}
	return strings.Join(sections, "\n\n")
}

func formatNamespace(ns chat.ToolNamespaceConfig) string {
	lines := []string{"## " + ns.Name + "\n"}
	if ns.Description != "" {
		for _, line := range strings.Split(ns.Description, "\n") {
			if len(ns.Tools) > 0 {
				lines = append(lines, "// "+line)
			} else {
				lines = append(lines, line)
			}
		}
	}
	if len(ns.Tools) > 0 {
		lines = append(lines, "namespace "+ns.Name+" {\n")
		for _, tool := range ns.Tools {
			for _, line := range strings.Split(tool.Description, "\n") {
				lines = append(lines, "// "+line)
			}
			if len(tool.Parameters) == 0 {
				lines = append(lines, "type "+tool.Name+" = () => any;\n")
			} else if schema, err := parseSchema(tool.Parameters); err != nil {
				lines = append(lines, "type "+tool.Name+" = (_: any) => any;\n")
			} else {
				lines = append(lines, "type "+tool.Name+" = (_: "+schemaTypeScript(schema, "")+") => any;\n")
			}
		}
		lines = append(lines, "} // namespace "+ns.Name)
	}
	return strings.Join(lines, "\n")
}

// schemaTypeScript converts a JSON-Schema-like node to a TypeScript type
// expression. Unknown shapes fall back to any.
func schemaTypeScript(schema schemaNode, indent string) string {
	if oneOf, ok := schema.field("oneOf"); ok && oneOf.kind == kindArray {
		if _, hasType := schema.field("type"); !hasType {
			var sb strings.Builder
			for _, variant := range oneOf.elems {
				sb.WriteString("\n" + indent + " | ")
				sb.WriteString(variantTypeScript(variant, indent+"   "))
			}
			return sb.String()
		}
	}

	typ, ok := schema.field("type")
	if !ok {
		return "any"
	}

	if typ.kind == kindArray {
		parts := make([]string, 0, len(typ.elems))
		for _, t := range typ.elems {
			if t.kind != kindString {
				continue
			}
			name := t.str
			if name == "integer" {
				name = "number"
			}
			parts = append(parts, name)
		}
		if len(parts) > 0 {
			return strings.Join(parts, " | ")
		}
		return "any"
	}

	switch typ.str {
	case "object":
		var sb strings.Builder
		if desc, ok := schema.stringField("description"); ok {
			sb.WriteString(indent + "// " + desc + "\n")
		}
		sb.WriteString("{\n")
		writeObjectProperties(&sb, schema, indent)
		sb.WriteString(indent + "}")
		return sb.String()
	case "string":
		if enum, ok := schema.field("enum"); ok && enum.kind == kindArray {
			parts := make([]string, 0, len(enum.elems))
			for _, v := range enum.elems {
				if v.kind == kindString {
					parts = append(parts, `"`+v.str+`"`)
				}
			}
			if len(parts) > 0 {
				return strings.Join(parts, " | ")
			}
		}
		return "string"
	case "number", "integer":
		return "number"
	case "boolean":
		return "boolean"
	case "array":
		if items, ok := schema.field("items"); ok {
			return schemaTypeScript(items, indent) + "[]"
		}
		return "Array<any>"
	default:
		return "any"
	}
}

// variantTypeScript renders a oneOf variant, appending " | null" for
// nullable variants and trailing description/default comments.
func variantTypeScript(variant schemaNode, indent string) string {
	ts := schemaTypeScript(variant, indent)
	if variant.boolField("nullable") && !strings.Contains(ts, "null") {
		ts += " | null"
	}
	var trailing []string
	if desc, ok := variant.stringField("description"); ok {
		trailing = append(trailing, desc)
	}
	if def, ok := variant.field("default"); ok {
		trailing = append(trailing, "default: "+defaultComment(variant, def))
	}
	if len(trailing) > 0 {
		ts += " // " + strings.Join(trailing, " ")
	}
	return ts
}

func writeObjectProperties(sb *strings.Builder, schema schemaNode, indent string) {
	props, ok := schema.field("properties")
	if !ok || props.kind != kindObject {
		return
	}

	required := map[string]bool{}
	if req, ok := schema.field("required"); ok && req.kind == kindArray {
		for _, r := range req.elems {
			if r.kind == kindString {
				required[r.str] = true
			}
		}
	}

	for _, prop := range props.fields {
		key, val := prop.key, prop.val
		optional := ""
		if !required[key] {
			optional = "?"
		}

		if title, ok := val.stringField("title"); ok {
			sb.WriteString(indent + "// " + title + "\n" + indent + "//\n")
		}

		propDesc, hasPropDesc := val.stringField("description")

		oneOf, hasOneOf := val.field("oneOf")
		if hasOneOf && oneOf.kind == kindArray && len(oneOf.elems) > 0 {
			// A oneOf property renders its variants one per line under the
			// property name. The property description is not repeated when
			// it matches the first variant's.
			firstDesc, _ := oneOf.elems[0].stringField("description")
			if hasPropDesc && propDesc != firstDesc {
				sb.WriteString(indent + "// " + propDesc + "\n")
			}
			if def, ok := val.field("default"); ok {
				sb.WriteString(indent + "// default: " + defaultComment(val, def) + "\n")
			}
			sb.WriteString(indent + key + optional + ":\n")
			for i, variant := range oneOf.elems {
				ts := schemaTypeScript(variant, indent+"   ")
				if variant.boolField("nullable") && !strings.Contains(ts, "null") {
					ts += " | null"
				}
				var trailing []string
				if desc, ok := variant.stringField("description"); ok {
					if !(i == 0 && hasPropDesc && desc == propDesc) && desc != propDesc {
						trailing = append(trailing, desc)
					}
				}
				if def, ok := variant.field("default"); ok {
					trailing = append(trailing, "default: "+defaultComment(variant, def))
				}
				line := indent + " | " + ts
				if len(trailing) > 0 {
					line += " // " + strings.Join(trailing, " ")
				}
				sb.WriteString(line + "\n")
			}
			sb.WriteString(indent + ",\n")
			continue
		}

		if hasPropDesc {
			for _, line := range strings.Split(propDesc, "\n") {
				sb.WriteString(indent + "// " + line + "\n")
			}
		}
		if examples, ok := val.field("examples"); ok && examples.kind == kindArray && len(examples.elems) > 0 {
			sb.WriteString(indent + "// Examples:\n")
			for _, ex := range examples.elems {
				if ex.kind == kindString {
					sb.WriteString(indent + "// - \"" + ex.str + "\"\n")
				}
			}
		}

		ts := schemaTypeScript(val, indent+"    ")
		if val.boolField("nullable") && !strings.Contains(ts, "null") {
			ts += " | null"
		}
		line := indent + key + optional + ": " + ts + ","
		if def, ok := val.field("default"); ok {
			line += " // default: " + defaultComment(val, def)
		}
		sb.WriteString(line + "\n")
	}
}
