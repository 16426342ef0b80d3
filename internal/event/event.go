package event

import (
	"bytes"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"
)

const (
	InputPathKey  = "INPUT_PATH"
	OutputPathKey = "OUTPUT_PATH"
)

// Event is the JSON object a trigger hands to the handler.
type Event map[string]any

// UnmarshalJSON keeps numbers as json.Number so they are forwarded with the
// exact text the trigger sent.
func (e *Event) UnmarshalJSON(data []byte) error {
	decoder := json.NewDecoder(bytes.NewReader(data))
	decoder.UseNumber()

	var raw map[string]any
	if err := decoder.Decode(&raw); err != nil {
		return err
	}
	if raw == nil {
		raw = make(map[string]any)
	}
	*e = raw
	return nil
}

// Get returns the string form of key, or def when the key is absent.
func (e Event) Get(key, def string) string {
	value, ok := e[key]
	if !ok {
		return def
	}
	return Stringify(value)
}

// Strings returns every entry in its string form.
func (e Event) Strings() map[string]string {
	values := make(map[string]string, len(e))
	for key, value := range e {
		values[key] = Stringify(value)
	}
	return values
}

// JSON is the single-argument form passed to the spark script.
func (e Event) JSON() (string, error) {
	if e == nil {
		return "{}", nil
	}
	data, err := json.Marshal(map[string]any(e))
	if err != nil {
		return "", fmt.Errorf("failed to marshal event: %w", err)
	}
	return string(data), nil
}

// Stringify renders an event value for the process environment.
// Strings pass through, null becomes empty and objects or arrays become compact JSON.
func Stringify(value any) string {
	switch v := value.(type) {
	case nil:
		return ""
	case string:
		return v
	case json.Number:
		return v.String()
	case bool:
		if v {
			return "true"
		}
		return "false"
	case map[string]any, []any:
		data, err := json.Marshal(v)
		if err != nil {
			return fmt.Sprint(v)
		}
		return string(data)
	default:
		return fmt.Sprint(v)
	}
}

// Parse decodes a JSON event payload.
func Parse(payload []byte) (Event, error) {
	payload = bytes.TrimSpace(payload)
	if len(payload) == 0 {
		return Event{}, nil
	}
	var evt Event
	if err := json.Unmarshal(payload, &evt); err != nil {
		return nil, fmt.Errorf("event must be a JSON object: %w", err)
	}
	return evt, nil
}

// Load reads an event from a .json, .yaml or .yml file.
func Load(path string) (Event, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read event file: %w", err)
	}

	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		var raw map[string]any
		if err := yaml.Unmarshal(data, &raw); err != nil {
			return nil, fmt.Errorf("failed to decode yaml event: %w", err)
		}
		// round trip so yaml scalars get the same representation as JSON ones
		normalized, err := json.Marshal(raw)
		if err != nil {
			return nil, fmt.Errorf("failed to normalize yaml event: %w", err)
		}
		return Parse(normalized)
	default:
		return Parse(data)
	}
}
