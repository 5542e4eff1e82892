package database

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"
)

// Settings is a flat name/value map. Older stores kept some values as JSON
// arrays or booleans; decoding flattens them to strings so such files still
// load.
type Settings map[string]string

func (s *Settings) UnmarshalJSON(data []byte) error {
	var raw map[string]json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	out := make(Settings, len(raw))
	for name, value := range raw {
		flat, err := flattenSetting(value)
		if err != nil {
			return fmt.Errorf("setting %q: %w", name, err)
		}
		out[name] = flat
	}
	*s = out
	return nil
}

func flattenSetting(value json.RawMessage) (string, error) {
	trimmed := bytes.TrimSpace(value)
	if len(trimmed) == 0 || bytes.Equal(trimmed, []byte("null")) {
		return "", nil
	}
	switch trimmed[0] {
	case '"':
		var str string
		err := json.Unmarshal(trimmed, &str)
		return str, err
	case '[':
		var items []json.RawMessage
		if err := json.Unmarshal(trimmed, &items); err != nil {
			return "", err
		}
		parts := make([]string, 0, len(items))
		for _, item := range items {
			flat, err := flattenSetting(item)
			if err != nil {
				return "", err
			}
			parts = append(parts, flat)
		}
		return strings.Join(parts, ","), nil
	case '{':
		return "", fmt.Errorf("nested objects are not supported")
	default:
		// numbers and booleans keep their literal spelling
		return string(trimmed), nil
	}
}
