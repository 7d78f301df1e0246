package models

import (
	"encoding/json"
	"fmt"
	"strings"

	"gopkg.in/yaml.v3"
)

// Flag is a boolean that also accepts a marker string in input files,
// e.g. "followUp": "FOLLOW_UP". Any non-empty string other than "false"
// sets the flag.
type Flag bool

func (f *Flag) set(s string) {
	s = strings.TrimSpace(s)
	*f = Flag(s != "" && !strings.EqualFold(s, "false"))
}

// UnmarshalJSON accepts true/false, null or a marker string.
func (f *Flag) UnmarshalJSON(data []byte) error {
	var v any
	if err := json.Unmarshal(data, &v); err != nil {
		return err
	}
	switch t := v.(type) {
	case nil:
		*f = false
	case bool:
		*f = Flag(t)
	case string:
		f.set(t)
	default:
		return fmt.Errorf("models: flag: unexpected value %s", data)
	}
	return nil
}

// UnmarshalYAML accepts the same values as UnmarshalJSON.
func (f *Flag) UnmarshalYAML(value *yaml.Node) error {
	if value.Kind != yaml.ScalarNode {
		return fmt.Errorf("models: flag: line %d: expected scalar", value.Line)
	}
	if value.Tag == "!!bool" {
		var b bool
		if err := value.Decode(&b); err != nil {
			return err
		}
		*f = Flag(b)
		return nil
	}
	if value.Tag == "!!null" {
		*f = false
		return nil
	}
	f.set(value.Value)
	return nil
}
