package value

import (
	"fmt"
	"regexp"
	"sort"
	"strconv"
	"strings"

	"github.com/rotisserie/eris"
	"gopkg.in/yaml.v3"
)

var (
	intPattern   = regexp.MustCompile(`^-?(0|[1-9][0-9]*)$`)
	floatPattern = regexp.MustCompile(`^-?(0|[1-9][0-9]*)(\.[0-9]+)?([eE][+-]?[0-9]+)?$`)
)

// Decode parses text as a structured literal. JSON is accepted as well as the relaxed flow
// syntax of YAML (single quoted strings, unquoted keys). Text that isn't a structured literal
// is returned unchanged as a String.
func Decode(text string) Value {
	var doc yaml.Node
	err := yaml.Unmarshal([]byte(text), &doc)
	if err != nil {
		return String(text)
	}

	if doc.Kind != yaml.DocumentNode || len(doc.Content) != 1 {
		return String(text)
	}

	root := doc.Content[0]
	if root.Kind == yaml.ScalarNode && root.Style&(yaml.DoubleQuotedStyle|yaml.SingleQuotedStyle) == 0 && root.ShortTag() == "!!str" {
		// plain words stay exactly as typed
		return String(text)
	}

	result, ok := fromNode(root, true)
	if !ok {
		return String(text)
	}
	return result
}

// fromNode converts a YAML node. In literal mode only flow collections and JSON style
// scalars are accepted.
func fromNode(node *yaml.Node, literal bool) (Value, bool) {
	if literal && (node.HeadComment != "" || node.LineComment != "" || node.FootComment != "") {
		return nil, false
	}

	switch node.Kind {
	case yaml.ScalarNode:
		if !literal {
			var raw interface{}
			if err := node.Decode(&raw); err != nil {
				return nil, false
			}

			result, err := FromInterface(raw)
			return result, err == nil
		}

		if node.Style&(yaml.DoubleQuotedStyle|yaml.SingleQuotedStyle) != 0 {
			return String(node.Value), true
		}

		switch node.ShortTag() {
		case "!!str":
			return String(node.Value), true
		case "!!bool":
			switch node.Value {
			case "true":
				return Bool(true), true
			case "false":
				return Bool(false), true
			}
		case "!!int":
			if intPattern.MatchString(node.Value) {
				parsed, err := strconv.ParseInt(node.Value, 10, 64)
				if err == nil {
					return Int(parsed), true
				}
			}
		case "!!float":
			if floatPattern.MatchString(node.Value) {
				parsed, err := strconv.ParseFloat(node.Value, 64)
				if err == nil {
					return Float(parsed), true
				}
			}
		}
		return nil, false
	case yaml.SequenceNode:
		if literal && node.Style&yaml.FlowStyle == 0 {
			return nil, false
		}

		items := make(List, len(node.Content))
		for idx, child := range node.Content {
			item, ok := fromNode(child, literal)
			if !ok {
				return nil, false
			}
			items[idx] = item
		}
		return items, true
	case yaml.MappingNode:
		if literal && node.Style&yaml.FlowStyle == 0 {
			return nil, false
		}

		result := NewMap(len(node.Content) / 2)
		for idx := 0; idx+1 < len(node.Content); idx += 2 {
			key := node.Content[idx]
			if key.Kind != yaml.ScalarNode {
				return nil, false
			}

			item, ok := fromNode(node.Content[idx+1], literal)
			if !ok {
				return nil, false
			}
			result.Set(key.Value, item)
		}
		return result, true
	case yaml.AliasNode:
		if !literal && node.Alias != nil {
			return fromNode(node.Alias, literal)
		}
	case yaml.DocumentNode:
		if !literal && len(node.Content) == 1 {
			return fromNode(node.Content[0], literal)
		}
	}

	return nil, false
}

// FromYAML converts a parsed YAML document. Unlike Decode, block style collections and every
// YAML scalar form are accepted. Mapping keys keep their document order.
func FromYAML(node *yaml.Node) (Value, error) {
	result, ok := fromNode(node, false)
	if !ok {
		return nil, eris.Errorf("unsupported YAML value at line %d", node.Line)
	}
	return result, nil
}

// Encode renders v as text. Scalars are rendered plainly; lists and maps are rendered as JSON
// with ", " and ": " separators so that Decode can read them back.
func Encode(v Value) string {
	switch v.(type) {
	case List, *Map:
		var buffer strings.Builder
		writeLiteral(&buffer, v)
		return buffer.String()
	case nil:
		return ""
	}

	return v.String()
}

// Canonical normalizes the quoting style of structured literals and returns any other text verbatim.
func Canonical(text string) string {
	switch decoded := Decode(text).(type) {
	case List, *Map:
		return Encode(decoded)
	}
	return text
}

func writeLiteral(buffer *strings.Builder, v Value) {
	switch v := v.(type) {
	case String:
		writeQuoted(buffer, string(v))
	case List:
		buffer.WriteByte('[')
		for idx, item := range v {
			if idx > 0 {
				buffer.WriteString(", ")
			}
			writeLiteral(buffer, item)
		}
		buffer.WriteByte(']')
	case *Map:
		buffer.WriteByte('{')
		for idx, key := range v.keys {
			if idx > 0 {
				buffer.WriteString(", ")
			}
			writeQuoted(buffer, key)
			buffer.WriteString(": ")
			writeLiteral(buffer, v.values[key])
		}
		buffer.WriteByte('}')
	default:
		buffer.WriteString(v.String())
	}
}

func writeQuoted(buffer *strings.Builder, text string) {
	buffer.WriteByte('"')
	for _, r := range text {
		switch r {
		case '"':
			buffer.WriteString(`\"`)
		case '\\':
			buffer.WriteString(`\\`)
		case '\n':
			buffer.WriteString(`\n`)
		case '\r':
			buffer.WriteString(`\r`)
		case '\t':
			buffer.WriteString(`\t`)
		default:
			if r < 0x20 {
				fmt.Fprintf(buffer, `\u%04x`, r)
			} else {
				buffer.WriteRune(r)
			}
		}
	}
	buffer.WriteByte('"')
}

// FromInterface converts the generic values produced by YAML and JSON decoders.
func FromInterface(raw interface{}) (Value, error) {
	switch raw := raw.(type) {
	case string:
		return String(raw), nil
	case int:
		return Int(raw), nil
	case int64:
		return Int(raw), nil
	case uint64:
		return Int(raw), nil
	case float64:
		return Float(raw), nil
	case bool:
		return Bool(raw), nil
	case []interface{}:
		items := make(List, len(raw))
		for idx, item := range raw {
			converted, err := FromInterface(item)
			if err != nil {
				return nil, err
			}
			items[idx] = converted
		}
		return items, nil
	case map[string]interface{}:
		keys := make([]string, 0, len(raw))
		for key := range raw {
			keys = append(keys, key)
		}
		sort.Strings(keys)

		result := NewMap(len(raw))
		for _, key := range keys {
			converted, err := FromInterface(raw[key])
			if err != nil {
				return nil, err
			}
			result.Set(key, converted)
		}
		return result, nil
	case nil:
		return nil, eris.New("null values are not supported")
	}

	return nil, eris.Errorf("encountered unsupported type %T", raw)
}
