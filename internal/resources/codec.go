package resources

import (
	"bytes"
	"encoding/json"
	"fmt"

	"gopkg.in/yaml.v3"
)

// UnmarshalJSON decodes a nested object where numbers mark files and
// objects mark folders, preserving key order.
func (f *Folder) UnmarshalJSON(data []byte) error {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()
	tok, err := dec.Token()
	if err != nil {
		return fmt.Errorf("resources: decode: %w", err)
	}
	if d, ok := tok.(json.Delim); !ok || d != '{' {
		return fmt.Errorf("resources: decode: expected object, got %v", tok)
	}
	folder, err := decodeFolderBody(dec)
	if err != nil {
		return err
	}
	*f = *folder
	return nil
}

// decodeFolderBody reads entries up to and including the closing brace.
func decodeFolderBody(dec *json.Decoder) (*Folder, error) {
	var entries []Entry
	for dec.More() {
		keyTok, err := dec.Token()
		if err != nil {
			return nil, fmt.Errorf("resources: decode key: %w", err)
		}
		name, ok := keyTok.(string)
		if !ok {
			return nil, fmt.Errorf("resources: decode: non-string key %v", keyTok)
		}
		node, err := decodeNode(dec)
		if err != nil {
			return nil, fmt.Errorf("resources: %s: %w", name, err)
		}
		entries = append(entries, Entry{Name: name, Node: node})
	}
	if _, err := dec.Token(); err != nil {
		return nil, fmt.Errorf("resources: decode end: %w", err)
	}
	return NewFolder(entries...), nil
}

func decodeNode(dec *json.Decoder) (Node, error) {
	tok, err := dec.Token()
	if err != nil {
		return nil, err
	}
	switch v := tok.(type) {
	case json.Delim:
		if v != '{' {
			return nil, fmt.Errorf("unexpected %v", v)
		}
		return decodeFolderBody(dec)
	case json.Number, float64:
		return &File{}, nil
	default:
		return nil, fmt.Errorf("unexpected value %v", tok)
	}
}

// MarshalJSON encodes the folder in declaration order, files as 1.
func (f *Folder) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	if err := encodeFolder(&buf, f); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func encodeFolder(buf *bytes.Buffer, f *Folder) error {
	buf.WriteByte('{')
	for i, e := range f.Children {
		if i > 0 {
			buf.WriteByte(',')
		}
		key, err := json.Marshal(e.Name)
		if err != nil {
			return err
		}
		buf.Write(key)
		buf.WriteByte(':')
		switch n := e.Node.(type) {
		case *File:
			buf.WriteByte('1')
		case *Folder:
			if err := encodeFolder(buf, n); err != nil {
				return err
			}
		default:
			return fmt.Errorf("resources: encode %s: unknown node %T", e.Name, e.Node)
		}
	}
	buf.WriteByte('}')
	return nil
}

// UnmarshalYAML decodes the same shape from a YAML mapping, preserving key order.
func (f *Folder) UnmarshalYAML(value *yaml.Node) error {
	folder, err := decodeYAMLFolder(value)
	if err != nil {
		return err
	}
	*f = *folder
	return nil
}

func decodeYAMLFolder(value *yaml.Node) (*Folder, error) {
	if value.Kind == yaml.DocumentNode && len(value.Content) == 1 {
		value = value.Content[0]
	}
	if value.Kind != yaml.MappingNode {
		return nil, fmt.Errorf("resources: line %d: expected mapping", value.Line)
	}
	entries := make([]Entry, 0, len(value.Content)/2)
	for i := 0; i+1 < len(value.Content); i += 2 {
		name := value.Content[i].Value
		child := value.Content[i+1]
		switch child.Kind {
		case yaml.MappingNode:
			sub, err := decodeYAMLFolder(child)
			if err != nil {
				return nil, err
			}
			entries = append(entries, Entry{Name: name, Node: sub})
		case yaml.ScalarNode:
			entries = append(entries, Entry{Name: name, Node: &File{}})
		default:
			return nil, fmt.Errorf("resources: line %d: %s: unexpected node", child.Line, name)
		}
	}
	return NewFolder(entries...), nil
}
