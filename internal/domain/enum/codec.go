package enum

import (
	"encoding/json"
	"fmt"
	"strings"
)

func nameOf(names []string, i int) string {
	if i < 0 || i >= len(names) {
		return "UNKNOWN"
	}
	return names[i]
}

func parseName(names []string, s string) (int, bool) {
	s = strings.ToUpper(strings.TrimSpace(s))
	for i, name := range names {
		if name == s {
			return i, true
		}
	}
	return 0, false
}

// unmarshalName accepts either the enum name or its integer value
func unmarshalName(data []byte, names []string) (int, error) {
	var str string
	if err := json.Unmarshal(data, &str); err != nil {
		var i int
		if err := json.Unmarshal(data, &i); err != nil {
			return 0, err
		}
		if i < 0 || i >= len(names) {
			return 0, fmt.Errorf("enum value %d out of range", i)
		}
		return i, nil
	}
	i, ok := parseName(names, str)
	if !ok {
		return 0, fmt.Errorf("unknown enum value %q", str)
	}
	return i, nil
}

func scanInt(value interface{}) (int, error) {
	switch v := value.(type) {
	case nil:
		return 0, nil
	case int64:
		return int(v), nil
	case int32:
		return int(v), nil
	case int:
		return v, nil
	case []byte:
		var i int
		_, err := fmt.Sscan(string(v), &i)
		return i, err
	}
	return 0, fmt.Errorf("cannot scan %T into enum", value)
}
