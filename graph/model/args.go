package model

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"

	"github.com/mitchellh/mapstructure"
)

// ParseArguments decodes a JSON object of tool arguments into the flat
// string mapping of ToolCall.Arguments. Strings, numbers, and booleans are
// converted to their text form; arrays and objects keep their JSON encoding.
func ParseArguments(raw []byte) (map[string]string, error) {
	if len(strings.TrimSpace(string(raw))) == 0 {
		return map[string]string{}, nil
	}
	var obj map[string]interface{}
	if err := json.Unmarshal(raw, &obj); err != nil {
		return nil, fmt.Errorf("parse tool arguments: %w", err)
	}
	return FlattenArguments(obj)
}

// FlattenArguments converts decoded JSON arguments to strings.
func FlattenArguments(obj map[string]interface{}) (map[string]string, error) {
	scalars := make(map[string]interface{}, len(obj))
	out := make(map[string]string, len(obj))
	for k, v := range obj {
		switch t := v.(type) {
		case map[string]interface{}, []interface{}:
			b, err := json.Marshal(v)
			if err != nil {
				return nil, fmt.Errorf("encode argument %q: %w", k, err)
			}
			out[k] = string(b)
		case nil:
			out[k] = ""
		case bool:
			out[k] = strconv.FormatBool(t)
		default:
			scalars[k] = v
		}
	}

	var decoded map[string]string
	if err := mapstructure.WeakDecode(scalars, &decoded); err != nil {
		return nil, fmt.Errorf("decode tool arguments: %w", err)
	}
	for k, v := range decoded {
		out[k] = v
	}
	return out, nil
}

// ExpandArguments converts string arguments back to a JSON object for
// providers that echo tool calls as structured input. Values that are
// valid JSON objects or arrays are restored to their structure.
func ExpandArguments(args map[string]string) map[string]interface{} {
	out := make(map[string]interface{}, len(args))
	for k, v := range args {
		trimmed := strings.TrimSpace(v)
		if strings.HasPrefix(trimmed, "{") || strings.HasPrefix(trimmed, "[") {
			var structured interface{}
			if json.Unmarshal([]byte(trimmed), &structured) == nil {
				out[k] = structured
				continue
			}
		}
		out[k] = v
	}
	return out
}
