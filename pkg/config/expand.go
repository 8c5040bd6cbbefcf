package config

import (
	"fmt"
	"strings"
)

// ExpandVars substitutes ${key} references in s with values from vars.
// Keys follow the manifest's template namespaces, e.g. ${var.region} or
// ${environment.name}. An unknown key is an error; a lone $ or an
// unterminated ${ passes through unchanged.
func ExpandVars(s string, vars map[string]string) (string, error) {
	if !strings.Contains(s, "${") {
		return s, nil
	}

	var sb strings.Builder
	for {
		start := strings.Index(s, "${")
		if start < 0 {
			sb.WriteString(s)
			break
		}
		end := strings.Index(s[start:], "}")
		if end < 0 {
			sb.WriteString(s)
			break
		}

		sb.WriteString(s[:start])
		key := s[start+2 : start+end]
		value, ok := vars[key]
		if !ok {
			return "", fmt.Errorf("unknown template variable %q", key)
		}
		sb.WriteString(value)
		s = s[start+end+1:]
	}

	return sb.String(), nil
}

// ExpandConfig applies ExpandVars to every string value in a plugin config
// block, recursing into nested maps and lists.
func ExpandConfig(raw map[string]interface{}, vars map[string]string) (map[string]interface{}, error) {
	if raw == nil {
		return nil, nil
	}

	out := make(map[string]interface{}, len(raw))
	for key, value := range raw {
		expanded, err := expandValue(value, vars)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", key, err)
		}
		out[key] = expanded
	}
	return out, nil
}

func expandValue(value interface{}, vars map[string]string) (interface{}, error) {
	switch v := value.(type) {
	case string:
		return ExpandVars(v, vars)
	case map[string]interface{}:
		return ExpandConfig(v, vars)
	case []interface{}:
		out := make([]interface{}, len(v))
		for i, item := range v {
			expanded, err := expandValue(item, vars)
			if err != nil {
				return nil, err
			}
			out[i] = expanded
		}
		return out, nil
	default:
		return value, nil
	}
}
